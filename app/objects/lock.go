package objects

import (
	"fmt"
	"time"

	"pmflow/app/db/models"
	"pmflow/pkg/contextx"
	"pmflow/pkg/log"

	"github.com/google/uuid"
)

type NamedLock struct {
	*models.NamedLock
	ContextObject
	PersistentObject
}

func (l *NamedLock) Save(ctx *contextx.Context) error {
	if !l.IsCreated() {
		l.CreatedAt = time.Now().UTC()
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		l.UpdatedAt = l.CreatedAt
		if err := l.GetDB(ctx).Create(l.NamedLock).Error; err != nil {
			return err
		}
	} else {
		l.UpdatedAt = time.Now().UTC()
		if err := l.GetDB(ctx).Save(l.NamedLock).Error; err != nil {
			return err
		}
	}
	l.SetContext(ctx)
	l.SetCreated()
	return nil
}

func (l *NamedLock) Delete(ctx *contextx.Context) error {
	if !l.IsCreated() {
		return fmt.Errorf("object %s isn't a persistent object, can't delete it", l.ID)
	}
	return l.GetDB(ctx).Where("id = ?", l.ID).Delete(&models.NamedLock{}).Error
}

func NewNamedLock() *NamedLock {
	return &NamedLock{NamedLock: &models.NamedLock{}}
}

// breakStaleLock removes the lock row when it is older than lease. A missing
// row yields gorm.ErrRecordNotFound.
func breakStaleLock(ctx *contextx.Context, name string, lease time.Duration) (bool, error) {
	var held models.NamedLock
	if err := GetDB(ctx).Where("name = ?", name).Take(&held).Error; err != nil {
		return false, err
	}
	if lease <= 0 || time.Since(held.UpdatedAt) < lease {
		return false, nil
	}
	log.Warnf(ctx, "breaking stale lock %s held since %s", name, held.UpdatedAt.Format(time.RFC3339))
	cutoff := time.Now().UTC().Add(-lease)
	result := GetDB(ctx).Where("id = ? AND updated_at < ?", held.ID, cutoff).Delete(&models.NamedLock{})
	return result.RowsAffected > 0, result.Error
}

// WithNamedLock runs callback while holding the named row lock. When another
// holder keeps a fresh lock, callback is skipped and ran is false.
func WithNamedLock(ctx *contextx.Context, name string, lease time.Duration, callback func() error) (ran bool, err error) {
	locker := NewNamedLock()
	locker.Name = name
	if saveErr := locker.Save(ctx); saveErr != nil {
		broken, breakErr := breakStaleLock(ctx, name, lease)
		if IsNotFoundError(breakErr) {
			return false, saveErr
		}
		if breakErr != nil {
			return false, breakErr
		}
		if !broken {
			return false, nil
		}
		locker = NewNamedLock()
		locker.Name = name
		if err := locker.Save(ctx); err != nil {
			// somebody else won the race
			return false, nil
		}
	}

	err = callback()
	if delErr := locker.Delete(ctx); delErr != nil {
		log.Warnf(ctx, "clear lock %s failed, error: %s", name, delErr.Error())
	}
	return true, err
}

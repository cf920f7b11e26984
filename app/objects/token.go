package objects

import (
	"fmt"
	"time"

	"pmflow/app/db/models"
	"pmflow/app/workflow/states"
	"pmflow/pkg/contextx"
	"pmflow/pkg/log"

	"github.com/google/uuid"
)

var userWorkTypes = []string{"task", "userTask", "manualTask"}

type ProcessRequestToken struct {
	*models.ProcessRequestToken
	ContextObject
	PersistentObject
}

func ActiveKeyFor(requestID, elementID string) string {
	return requestID + ":" + elementID
}

// Save inserts a new token, failing on the unique active key when the
// element already holds an ACTIVE token of the same request.
func (t *ProcessRequestToken) Save(ctx *contextx.Context) error {
	if !t.IsCreated() {
		t.CreatedAt = time.Now().UTC()
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		t.UpdatedAt = t.CreatedAt
		if states.IsActive(t.Status) {
			key := ActiveKeyFor(t.ProcessRequestID, t.ElementID)
			t.ActiveKey = &key
		}
		if err := t.GetDB(ctx).Create(t.ProcessRequestToken).Error; err != nil {
			return err
		}
	} else {
		t.UpdatedAt = time.Now().UTC()
		if err := t.GetDB(ctx).Save(t.ProcessRequestToken).Error; err != nil {
			return err
		}
	}
	t.SetContext(ctx)
	t.SetCreated()
	return nil
}

// Update writes only the named fields, zero values included.
func (t *ProcessRequestToken) Update(ctx *contextx.Context, fields ...string) error {
	t.UpdatedAt = time.Now().UTC()
	fields = append(fields, "UpdatedAt")
	err := t.GetDB(ctx).Model(&models.ProcessRequestToken{}).Select(fields).Where("id = ?", t.ID).Updates(t.ProcessRequestToken).Error
	if err != nil {
		log.Errorf(ctx, "Save token %s error: %v", t.ID, err.Error())
		return err
	}
	return nil
}

// SetStatus moves the token to status and releases its active key once it
// leaves ACTIVE. Persist with Update(ctx, StatusFields...).
func (t *ProcessRequestToken) SetStatus(status string) error {
	if err := states.ValidateTokenTransition(t.Status, status); err != nil {
		return err
	}
	t.Status = status
	if !states.IsActive(status) {
		t.ActiveKey = nil
	}
	if states.IsTerminated(status) {
		now := time.Now().UTC()
		t.CompletedAt = &now
	}
	return nil
}

var StatusFields = []string{"Status", "ActiveKey", "CompletedAt"}

func (t *ProcessRequestToken) IsUserWork() bool {
	for _, typ := range userWorkTypes {
		if t.ElementType == typ {
			return true
		}
	}
	return false
}

func (t *ProcessRequestToken) Delete(ctx *contextx.Context) error {
	if !t.IsCreated() {
		return fmt.Errorf("object %s isn't a persistent object, can't delete it", t.ID)
	}
	now := time.Now().UTC()
	t.Deleted = 1
	t.DeletedAt = &now
	t.ActiveKey = nil
	return t.Update(ctx, "Deleted", "DeletedAt", "ActiveKey")
}

func NewProcessRequestToken() *ProcessRequestToken {
	return &ProcessRequestToken{ProcessRequestToken: &models.ProcessRequestToken{}}
}

func NewProcessRequestTokenFromDB(ctx *contextx.Context, m *models.ProcessRequestToken) *ProcessRequestToken {
	if m == nil {
		return nil
	}
	t := &ProcessRequestToken{ProcessRequestToken: m}
	t.SetContext(ctx)
	t.SetCreated()
	return t
}

func tokensFromDB(ctx *contextx.Context, ms []*models.ProcessRequestToken) []*ProcessRequestToken {
	var result []*ProcessRequestToken
	for _, m := range ms {
		result = append(result, NewProcessRequestTokenFromDB(ctx, m))
	}
	return result
}

func QueryTokenByID(ctx *contextx.Context, id string) (*ProcessRequestToken, error) {
	var m models.ProcessRequestToken
	err := GetDB(ctx).Where("id = ? AND deleted = 0", id).Take(&m).Error
	if IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return NewProcessRequestTokenFromDB(ctx, &m), nil
}

// QueryTokensOfRequest returns the tokens of a request in creation order.
func QueryTokensOfRequest(ctx *contextx.Context, requestID string, status interface{}) ([]*ProcessRequestToken, error) {
	var ms []*models.ProcessRequestToken
	tx := GetDB(ctx).Where("process_request_id = ? AND deleted = 0", requestID)
	if status != nil {
		tx = tx.Where("status = ?", status.(string))
	}
	if err := tx.Order("sequence").Find(&ms).Error; err != nil {
		return nil, err
	}
	return tokensFromDB(ctx, ms), nil
}

func CountTokensOfRequest(ctx *contextx.Context, requestID string) (int64, error) {
	var count int64
	err := GetDB(ctx).Model(&models.ProcessRequestToken{}).Where("process_request_id = ?", requestID).Count(&count).Error
	return count, err
}

// QueryDueTokens returns ACTIVE timer tokens due at now, ordered by request.
func QueryDueTokens(ctx *contextx.Context, now time.Time) ([]*ProcessRequestToken, error) {
	var ms []*models.ProcessRequestToken
	db := GetDB(ctx)
	activeRequests := db.Model(&models.ProcessRequest{}).Select("id").Where("status = ?", states.REQUEST_ACTIVE)
	err := db.
		Where("status = ? AND due_at IS NOT NULL AND due_at <= ? AND deleted = 0", states.ACTIVE, now.UTC()).
		Where("process_request_id IN (?)", activeRequests).
		Order("process_request_id").Order("sequence").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return tokensFromDB(ctx, ms), nil
}

// QueryTasks lists user-work tokens, optionally filtered by status and assignee.
func QueryTasks(ctx *contextx.Context, status interface{}, userID interface{}) ([]*ProcessRequestToken, error) {
	var ms []*models.ProcessRequestToken
	tx := GetDB(ctx).Where("element_type IN ? AND deleted = 0", userWorkTypes)
	if status != nil {
		tx = tx.Where("status = ?", status.(string))
	}
	if userID != nil {
		tx = tx.Where("user_id = ?", userID.(uint))
	}
	if err := tx.Order("created_at").Order("sequence").Find(&ms).Error; err != nil {
		return nil, err
	}
	return tokensFromDB(ctx, ms), nil
}

package objects

import (
	"fmt"
	"time"

	"pmflow/app/db/models"
	"pmflow/pkg/contextx"
	"pmflow/pkg/log"

	"github.com/google/uuid"
)

type ProcessRequest struct {
	*models.ProcessRequest
	ContextObject
	PersistentObject
}

func (r *ProcessRequest) Save(ctx *contextx.Context) error {
	if !r.IsCreated() {
		r.CreatedAt = time.Now().UTC()
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.UpdatedAt = r.CreatedAt
		if err := r.GetDB(ctx).Create(r.ProcessRequest).Error; err != nil {
			return err
		}
	} else {
		r.UpdatedAt = time.Now().UTC()
		if err := r.GetDB(ctx).Save(r.ProcessRequest).Error; err != nil {
			return err
		}
	}
	r.SetContext(ctx)
	r.SetCreated()
	return nil
}

// Update writes only the named fields, zero values included.
func (r *ProcessRequest) Update(ctx *contextx.Context, fields ...string) error {
	r.UpdatedAt = time.Now().UTC()
	fields = append(fields, "UpdatedAt")
	err := r.GetDB(ctx).Model(&models.ProcessRequest{}).Select(fields).Where("id = ?", r.ID).Updates(r.ProcessRequest).Error
	if err != nil {
		log.Errorf(ctx, "Save request %s error: %v", r.ID, err.Error())
		return err
	}
	return nil
}

func (r *ProcessRequest) Delete(ctx *contextx.Context) error {
	if !r.IsCreated() {
		return fmt.Errorf("object %s isn't a persistent object, can't delete it", r.ID)
	}
	now := time.Now().UTC()
	r.Deleted = 1
	r.DeletedAt = &now
	return r.Update(ctx, "Deleted", "DeletedAt")
}

func (r *ProcessRequest) GetTokens(ctx *contextx.Context, status interface{}) ([]*ProcessRequestToken, error) {
	if ctx == nil {
		ctx = r.GetContext()
	}
	return QueryTokensOfRequest(ctx, r.ID, status)
}

func NewProcessRequest() *ProcessRequest {
	return &ProcessRequest{ProcessRequest: &models.ProcessRequest{}}
}

func NewProcessRequestFromDB(ctx *contextx.Context, m *models.ProcessRequest) *ProcessRequest {
	if m == nil {
		return nil
	}
	r := &ProcessRequest{ProcessRequest: m}
	r.SetContext(ctx)
	r.SetCreated()
	return r
}

func QueryProcessRequestByID(ctx *contextx.Context, id string) (*ProcessRequest, error) {
	var m models.ProcessRequest
	err := GetDB(ctx).Where("id = ? AND deleted = 0", id).Take(&m).Error
	if IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return NewProcessRequestFromDB(ctx, &m), nil
}

func QueryProcessRequests(ctx *contextx.Context, processID, status interface{}) ([]*ProcessRequest, error) {
	var ms []*models.ProcessRequest
	tx := GetDB(ctx).Where("deleted = 0")
	if processID != nil {
		tx = tx.Where("process_id = ?", processID.(string))
	}
	if status != nil {
		tx = tx.Where("status = ?", status.(string))
	}
	if err := tx.Order("created_at").Find(&ms).Error; err != nil {
		return nil, err
	}
	var result []*ProcessRequest
	for _, m := range ms {
		result = append(result, NewProcessRequestFromDB(ctx, m))
	}
	return result, nil
}

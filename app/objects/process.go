package objects

import (
	"fmt"
	"time"

	"pmflow/app/db/models"
	"pmflow/pkg/contextx"

	"github.com/google/uuid"
)

const ProcessStatusActive = "ACTIVE"

type Process struct {
	*models.Process
	ContextObject
	PersistentObject
}

func (p *Process) Save(ctx *contextx.Context) error {
	if !p.IsCreated() {
		p.CreatedAt = time.Now().UTC()
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Status == "" {
			p.Status = ProcessStatusActive
		}
		p.UpdatedAt = p.CreatedAt
		if err := p.GetDB(ctx).Create(p.Process).Error; err != nil {
			return err
		}
	} else {
		p.UpdatedAt = time.Now().UTC()
		if err := p.GetDB(ctx).Save(p.Process).Error; err != nil {
			return err
		}
	}
	p.SetContext(ctx)
	p.SetCreated()
	return nil
}

func (p *Process) Delete(ctx *contextx.Context) error {
	if !p.IsCreated() {
		return fmt.Errorf("object %s isn't a persistent object, can't delete it", p.ID)
	}
	now := time.Now().UTC()
	p.Deleted = 1
	p.DeletedAt = &now
	return p.Save(ctx)
}

// AddVersion stores bpmn as the next version and makes it current.
func (p *Process) AddVersion(ctx *contextx.Context, bpmn string, users map[string]interface{}) (*ProcessVersion, error) {
	v := NewProcessVersion()
	v.ProcessID = p.ID
	v.Version = p.Version + 1
	v.Bpmn = bpmn
	v.Users = users
	if err := v.Save(ctx); err != nil {
		return nil, err
	}
	p.Version = v.Version
	if err := p.Save(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

func (p *Process) CurrentVersion(ctx *contextx.Context) (*ProcessVersion, error) {
	if ctx == nil {
		ctx = p.GetContext()
	}
	return QueryProcessVersion(ctx, p.ID, p.Version)
}

func NewProcess() *Process {
	return &Process{Process: &models.Process{}}
}

func NewProcessFromDB(ctx *contextx.Context, m *models.Process) *Process {
	if m == nil {
		return nil
	}
	p := &Process{Process: m}
	p.SetContext(ctx)
	p.SetCreated()
	return p
}

func QueryProcessByID(ctx *contextx.Context, id string) (*Process, error) {
	var m models.Process
	err := GetDB(ctx).Where("id = ? AND deleted = 0", id).Take(&m).Error
	if IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return NewProcessFromDB(ctx, &m), nil
}

func QueryProcesses(ctx *contextx.Context, name interface{}) ([]*Process, error) {
	var ms []*models.Process
	tx := GetDB(ctx).Where("deleted = 0")
	if name != nil {
		tx = tx.Where("name = ?", name.(string))
	}
	if err := tx.Order("created_at").Find(&ms).Error; err != nil {
		return nil, err
	}
	var result []*Process
	for _, m := range ms {
		result = append(result, NewProcessFromDB(ctx, m))
	}
	return result, nil
}

type ProcessVersion struct {
	*models.ProcessVersion
	ContextObject
	PersistentObject
}

// Save only inserts: a version never changes once written.
func (v *ProcessVersion) Save(ctx *contextx.Context) error {
	if v.IsCreated() {
		return fmt.Errorf("process version %s is immutable", v.ID)
	}
	v.CreatedAt = time.Now().UTC()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if err := v.GetDB(ctx).Create(v.ProcessVersion).Error; err != nil {
		return err
	}
	v.SetContext(ctx)
	v.SetCreated()
	return nil
}

func NewProcessVersion() *ProcessVersion {
	return &ProcessVersion{ProcessVersion: &models.ProcessVersion{}}
}

func NewProcessVersionFromDB(ctx *contextx.Context, m *models.ProcessVersion) *ProcessVersion {
	if m == nil {
		return nil
	}
	v := &ProcessVersion{ProcessVersion: m}
	v.SetContext(ctx)
	v.SetCreated()
	return v
}

func QueryProcessVersionByID(ctx *contextx.Context, id string) (*ProcessVersion, error) {
	var m models.ProcessVersion
	err := GetDB(ctx).Where("id = ?", id).Take(&m).Error
	if IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return NewProcessVersionFromDB(ctx, &m), nil
}

func QueryProcessVersion(ctx *contextx.Context, processID string, version int) (*ProcessVersion, error) {
	var m models.ProcessVersion
	err := GetDB(ctx).Where("process_id = ? AND version = ?", processID, version).Take(&m).Error
	if IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return NewProcessVersionFromDB(ctx, &m), nil
}

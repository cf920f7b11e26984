package workflow

import (
	"pmflow/app/bpmn"
	"pmflow/app/objects"
	"pmflow/pkg/contextx"
)

// CreateProcess validates bpmn and stores it as version 1 of a new process.
func (e *Engine) CreateProcess(ctx *contextx.Context, name, description, bpmnXML string, users map[string]interface{}) (*objects.Process, error) {
	if name == "" {
		return nil, objects.NewError(objects.InvalidInput, "process name is required")
	}
	if _, err := bpmn.Parse([]byte(bpmnXML)); err != nil {
		return nil, objects.NewError(objects.InvalidDefinition, "%s", err.Error())
	}

	ctx = e.Bind(ctx)
	var process *objects.Process
	err := objects.Transaction(ctx, func(subCtx *contextx.Context) error {
		process = objects.NewProcess()
		process.Name = name
		process.Description = description
		if err := process.Save(subCtx); err != nil {
			return err
		}
		_, err := process.AddVersion(subCtx, bpmnXML, users)
		return err
	})
	if err != nil {
		return nil, err
	}
	return process, nil
}

type ProcessUpdate struct {
	Name        *string
	Description *string
	Bpmn        *string
	Users       map[string]interface{}
}

// UpdateProcess changes a process. New BPMN becomes a new version; running
// requests keep the version they started on.
func (e *Engine) UpdateProcess(ctx *contextx.Context, processID string, update ProcessUpdate) (*objects.Process, error) {
	if update.Bpmn != nil {
		if _, err := bpmn.Parse([]byte(*update.Bpmn)); err != nil {
			return nil, objects.NewError(objects.InvalidDefinition, "%s", err.Error())
		}
	}

	ctx = e.Bind(ctx)
	var process *objects.Process
	err := objects.Transaction(ctx, func(subCtx *contextx.Context) error {
		var err error
		process, err = objects.QueryProcessByID(subCtx, processID)
		if err != nil {
			return err
		}
		if process == nil {
			return objects.NewError(objects.DefinitionNotFound, "process %s not found", processID)
		}
		if update.Name != nil {
			process.Name = *update.Name
		}
		if update.Description != nil {
			process.Description = *update.Description
		}
		if update.Bpmn != nil || update.Users != nil {
			current, err := process.CurrentVersion(subCtx)
			if err != nil {
				return err
			}
			if current == nil {
				return objects.NewError(objects.DefinitionNotFound, "process %s has no version", processID)
			}
			bpmnXML := current.Bpmn
			users := map[string]interface{}(current.Users)
			if update.Bpmn != nil {
				bpmnXML = *update.Bpmn
			}
			if update.Users != nil {
				users = update.Users
			}
			_, err = process.AddVersion(subCtx, bpmnXML, users)
			return err
		}
		return process.Save(subCtx)
	})
	if err != nil {
		return nil, err
	}
	return process, nil
}

func (e *Engine) GetProcess(ctx *contextx.Context, processID string) (*objects.Process, *objects.ProcessVersion, error) {
	ctx = e.Bind(ctx)
	process, err := objects.QueryProcessByID(ctx, processID)
	if err != nil {
		return nil, nil, err
	}
	if process == nil {
		return nil, nil, objects.NewError(objects.DefinitionNotFound, "process %s not found", processID)
	}
	version, err := process.CurrentVersion(ctx)
	if err != nil {
		return nil, nil, err
	}
	return process, version, nil
}

func (e *Engine) ListProcesses(ctx *contextx.Context) ([]*objects.Process, error) {
	return objects.QueryProcesses(e.Bind(ctx), nil)
}

// ActiveDefinition returns the parsed current version of a process.
func (e *Engine) ActiveDefinition(ctx *contextx.Context, processID string) (*bpmn.Definition, error) {
	_, version, err := e.GetProcess(ctx, processID)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, objects.NewError(objects.DefinitionNotFound, "process %s has no version", processID)
	}
	def, err := e.definition(version)
	if err != nil {
		return nil, err
	}
	return def.Definition, nil
}

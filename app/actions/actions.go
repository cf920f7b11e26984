// Package actions holds the in-process actions script and service tasks run.
package actions

import (
	"fmt"
	"sort"
	"sync"

	"pmflow/pkg/contextx"
)

type Action interface {
	Run(ctx *contextx.Context, input map[string]interface{}) (interface{}, error)
}

type ActionFunc func(ctx *contextx.Context, input map[string]interface{}) (interface{}, error)

func (f ActionFunc) Run(ctx *contextx.Context, input map[string]interface{}) (interface{}, error) {
	return f(ctx, input)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Action{}
)

// Register adds or replaces the action called name.
func Register(name string, action Action) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = action
}

func Get(name string) (Action, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := registry[name]
	return a, ok
}

func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Call(ctx *contextx.Context, name string, input map[string]interface{}) (interface{}, error) {
	action, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("action '%s' is not registered", name)
	}
	return action.Run(ctx, input)
}

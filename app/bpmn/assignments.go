package bpmn

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ResolvedDefinition pairs a definition with the assignee of each user task.
type ResolvedDefinition struct {
	*Definition
	assignees map[string]uint
}

// Assignee returns the user bound to a task, or nil when it is unassigned.
func (r ResolvedDefinition) Assignee(nodeID string) *uint {
	if id, ok := r.assignees[nodeID]; ok {
		return &id
	}
	return nil
}

// ResolveAssignments binds a user to every task with pm:assignment="user" and
// a literal pm:assignedUsers id. Ids found in userMap are translated first.
// The definition is left untouched.
func ResolveAssignments(def *Definition, userMap map[string]interface{}) ResolvedDefinition {
	resolved := ResolvedDefinition{Definition: def, assignees: map[string]uint{}}
	for _, n := range def.Nodes {
		if !n.IsUserWork() || n.Attribute("assignment") != "user" {
			continue
		}
		ref := strings.TrimSpace(n.Attribute("assignedUsers"))
		if ref == "" {
			continue
		}
		if mapped, ok := userMap[ref]; ok {
			if id, ok := toUserID(mapped); ok {
				resolved.assignees[n.ID] = id
			}
			continue
		}
		if id, ok := toUserID(ref); ok {
			resolved.assignees[n.ID] = id
		}
	}
	return resolved
}

func toUserID(v interface{}) (uint, bool) {
	switch t := v.(type) {
	case uint:
		return t, true
	case int:
		if t > 0 {
			return uint(t), true
		}
	case int64:
		if t > 0 {
			return uint(t), true
		}
	case float64:
		if t > 0 && t == float64(uint(t)) {
			return uint(t), true
		}
	case json.Number:
		return toUserID(t.String())
	case string:
		id, err := strconv.ParseUint(strings.TrimSpace(t), 10, 64)
		if err == nil && id > 0 {
			return uint(id), true
		}
	}
	return 0, false
}

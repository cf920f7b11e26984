// Package bpmn reads BPMN 2.0 documents into an immutable graph of flow nodes
// and sequence flows.
package bpmn

import "strings"

// PMNamespace holds the vendor attributes (assignment, scriptRef, ...).
const PMNamespace = "http://processmaker.com/BPMN/2.0/Schema.xsd"

const (
	StartEvent             = "startEvent"
	EndEvent               = "endEvent"
	Task                   = "task"
	UserTask               = "userTask"
	ManualTask             = "manualTask"
	ScriptTask             = "scriptTask"
	ServiceTask            = "serviceTask"
	ExclusiveGateway       = "exclusiveGateway"
	ParallelGateway        = "parallelGateway"
	InclusiveGateway       = "inclusiveGateway"
	IntermediateCatchEvent = "intermediateCatchEvent"
	IntermediateThrowEvent = "intermediateThrowEvent"
)

const (
	EventMessage   = "message"
	EventSignal    = "signal"
	EventTimer     = "timer"
	EventTerminate = "terminate"
)

var flowNodeTypes = map[string]bool{
	StartEvent:             true,
	EndEvent:               true,
	Task:                   true,
	UserTask:               true,
	ManualTask:             true,
	ScriptTask:             true,
	ServiceTask:            true,
	ExclusiveGateway:       true,
	ParallelGateway:        true,
	InclusiveGateway:       true,
	IntermediateCatchEvent: true,
	IntermediateThrowEvent: true,
}

type Flow struct {
	ID        string
	Name      string
	Condition string
	Source    *Node
	Target    *Node
}

func (f *Flow) IsConditional() bool {
	return strings.TrimSpace(f.Condition) != ""
}

type Node struct {
	ID   string
	Name string
	Type string
	// pm:* attributes by local name
	Attributes map[string]string

	Incoming []*Flow
	Outgoing []*Flow
	Default  *Flow

	EventKind string
	// message or signal name for catch events
	EventName     string
	TimerDuration string
	TimerDate     string
	TimerCycle    string
}

func (n *Node) Attribute(name string) string {
	return n.Attributes[name]
}

// IsUserWork reports whether the node waits for a person to complete it.
func (n *Node) IsUserWork() bool {
	switch n.Type {
	case Task, UserTask, ManualTask:
		return true
	}
	return false
}

func (n *Node) IsAutomated() bool {
	return n.Type == ScriptTask || n.Type == ServiceTask
}

func (n *Node) IsCatchEvent() bool {
	return n.Type == IntermediateCatchEvent
}

func (n *Node) IsGateway() bool {
	switch n.Type {
	case ExclusiveGateway, ParallelGateway, InclusiveGateway:
		return true
	}
	return false
}

func (n *Node) IsJoin() bool {
	return n.IsGateway() && len(n.Incoming) > 1
}

func (n *Node) IsTerminateEnd() bool {
	return n.Type == EndEvent && n.EventKind == EventTerminate
}

// Definition is one parsed process. It is never mutated after Parse.
type Definition struct {
	ID    string
	Name  string
	Nodes []*Node
	Flows []*Flow

	nodes map[string]*Node
}

func (d *Definition) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// StartEvent finds a start event by element id first, then by name.
func (d *Definition) StartEvent(ref string) (*Node, bool) {
	if n, ok := d.nodes[ref]; ok && n.Type == StartEvent {
		return n, true
	}
	for _, n := range d.Nodes {
		if n.Type == StartEvent && n.Name == ref && ref != "" {
			return n, true
		}
	}
	return nil, false
}

func (d *Definition) NodesOfType(types ...string) []*Node {
	var result []*Node
	for _, n := range d.Nodes {
		for _, t := range types {
			if n.Type == t {
				result = append(result, n)
				break
			}
		}
	}
	return result
}

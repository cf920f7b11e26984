package bpmn

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDefinition = errors.New("invalid definition")

type xmlElement struct {
	XMLName  xml.Name
	Attrs    []xml.Attr   `xml:",any,attr"`
	Children []xmlElement `xml:",any"`
	Text     string       `xml:",chardata"`
}

func (e *xmlElement) attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name && !isPMSpace(a.Name.Space) {
			return a.Value
		}
	}
	return ""
}

func (e *xmlElement) pmAttrs() map[string]string {
	attrs := map[string]string{}
	for _, a := range e.Attrs {
		if isPMSpace(a.Name.Space) {
			attrs[a.Name.Local] = a.Value
		}
	}
	return attrs
}

func (e *xmlElement) child(local string) *xmlElement {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == local {
			return &e.Children[i]
		}
	}
	return nil
}

func isPMSpace(space string) bool {
	return space == PMNamespace || space == "pm"
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidDefinition, fmt.Sprintf(format, args...))
}

// Parse reads the first process of a BPMN document.
func Parse(data []byte) (*Definition, error) {
	var root xmlElement
	decoder := xml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&root); err != nil {
		return nil, invalid("malformed xml: %v", err)
	}
	if root.XMLName.Local != "definitions" {
		return nil, invalid("root element is %q, want definitions", root.XMLName.Local)
	}

	// message and signal names are declared on the definitions element
	refNames := map[string]string{}
	var process *xmlElement
	for i := range root.Children {
		c := &root.Children[i]
		switch c.XMLName.Local {
		case "message", "signal":
			name := c.attr("name")
			if name == "" {
				name = c.attr("id")
			}
			refNames[c.attr("id")] = name
		case "process":
			if process == nil {
				process = c
			}
		}
	}
	if process == nil {
		return nil, invalid("no process element")
	}

	def := &Definition{
		ID:    process.attr("id"),
		Name:  process.attr("name"),
		nodes: map[string]*Node{},
	}

	type pendingFlow struct {
		flow           *Flow
		source, target string
	}
	var flows []pendingFlow
	defaults := map[*Node]string{}

	for i := range process.Children {
		c := &process.Children[i]
		local := c.XMLName.Local
		if local == "sequenceFlow" {
			f := &Flow{ID: c.attr("id"), Name: c.attr("name")}
			if cond := c.child("conditionExpression"); cond != nil {
				f.Condition = strings.TrimSpace(cond.Text)
			}
			flows = append(flows, pendingFlow{flow: f, source: c.attr("sourceRef"), target: c.attr("targetRef")})
			continue
		}
		if !flowNodeTypes[local] {
			continue
		}
		n := &Node{
			ID:         c.attr("id"),
			Name:       c.attr("name"),
			Type:       local,
			Attributes: c.pmAttrs(),
		}
		if n.ID == "" {
			return nil, invalid("%s without id", local)
		}
		if _, dup := def.nodes[n.ID]; dup {
			return nil, invalid("duplicate element id %q", n.ID)
		}
		readEventDefinition(n, c, refNames)
		if d := c.attr("default"); d != "" {
			defaults[n] = d
		}
		def.nodes[n.ID] = n
		def.Nodes = append(def.Nodes, n)
	}

	flowsByID := map[string]*Flow{}
	for _, pf := range flows {
		source, ok := def.nodes[pf.source]
		if !ok {
			return nil, invalid("flow %q has unknown source %q", pf.flow.ID, pf.source)
		}
		target, ok := def.nodes[pf.target]
		if !ok {
			return nil, invalid("flow %q has unknown target %q", pf.flow.ID, pf.target)
		}
		pf.flow.Source = source
		pf.flow.Target = target
		source.Outgoing = append(source.Outgoing, pf.flow)
		target.Incoming = append(target.Incoming, pf.flow)
		def.Flows = append(def.Flows, pf.flow)
		if pf.flow.ID != "" {
			flowsByID[pf.flow.ID] = pf.flow
		}
	}

	for n, flowID := range defaults {
		f, ok := flowsByID[flowID]
		if !ok || f.Source != n {
			return nil, invalid("default flow %q is not an outgoing flow of %q", flowID, n.ID)
		}
		n.Default = f
	}

	if len(def.NodesOfType(StartEvent)) == 0 {
		return nil, invalid("process %q has no start event", def.ID)
	}
	for _, n := range def.NodesOfType(IntermediateCatchEvent) {
		if n.EventKind == "" {
			return nil, invalid("catch event %q has no event definition", n.ID)
		}
		if n.EventKind == EventTimer {
			if _, err := n.DueAt(zeroTime); err != nil {
				return nil, invalid("catch event %q: %v", n.ID, err)
			}
		}
	}
	return def, nil
}

func readEventDefinition(n *Node, c *xmlElement, refNames map[string]string) {
	for i := range c.Children {
		ed := &c.Children[i]
		switch ed.XMLName.Local {
		case "messageEventDefinition":
			n.EventKind = EventMessage
			n.EventName = resolveRef(ed.attr("messageRef"), refNames, n.ID)
		case "signalEventDefinition":
			n.EventKind = EventSignal
			n.EventName = resolveRef(ed.attr("signalRef"), refNames, n.ID)
		case "timerEventDefinition":
			n.EventKind = EventTimer
			if d := ed.child("timeDuration"); d != nil {
				n.TimerDuration = strings.TrimSpace(d.Text)
			}
			if d := ed.child("timeDate"); d != nil {
				n.TimerDate = strings.TrimSpace(d.Text)
			}
			if d := ed.child("timeCycle"); d != nil {
				n.TimerCycle = strings.TrimSpace(d.Text)
			}
		case "terminateEventDefinition":
			n.EventKind = EventTerminate
		}
	}
}

func resolveRef(ref string, refNames map[string]string, fallback string) string {
	if ref == "" {
		return fallback
	}
	if name, ok := refNames[ref]; ok {
		return name
	}
	return ref
}

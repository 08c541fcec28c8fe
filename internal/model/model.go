package model

import (
	"fmt"

	"github.com/fcmstudio/adjustment/internal/fcmerr"
)

// Model is the read-only fuzzy cognitive map an adjustment run operates on:
// every concept and connection indexed by id, plus the partitions the
// genetic algorithm and simulator need on every iteration. Built once by
// New or Loader.Load and never mutated afterward — a run clones only the
// float values it needs to vary (see internal/adjustment.Individual).
type Model struct {
	concepts    map[int]*Concept
	connections map[int]*Connection

	controlConcepts []*Concept
	targetConcepts  []*Concept
	regularConcepts []*Concept

	controlConnections []*Connection
}

// New builds a Model from flat concept and connection slices, validating
// every cross-reference and structural invariant a well-formed fuzzy
// cognitive map must satisfy. It does not check for graph cycles or reject
// self-loops: feedback loops are a normal, expected shape for a fuzzy
// cognitive map, and a connection may target its own source concept.
func New(concepts []Concept, connections []Connection) (*Model, error) {
	m := &Model{
		concepts:    make(map[int]*Concept, len(concepts)),
		connections: make(map[int]*Connection, len(connections)),
	}

	if len(concepts) == 0 {
		return nil, fcmerr.InvalidModel("model must have at least one concept")
	}

	for i := range concepts {
		c := concepts[i]
		if _, exists := m.concepts[c.ID]; exists {
			return nil, fcmerr.InvalidModelf("duplicate concept id %d", c.ID)
		}
		if c.IsControl && c.IsTarget {
			return nil, fcmerr.InvalidModelf("concept %d cannot be both control and target", c.ID)
		}
		if c.IsTarget && c.TargetValue == nil {
			return nil, fcmerr.InvalidModelf("target concept %d has no target value", c.ID)
		}
		if c.TargetValue != nil {
			if c.TargetValue.MinValue > c.TargetValue.MaxValue {
				return nil, fcmerr.InvalidModelf("concept %d target value has min > max", c.ID)
			}
			if c.TargetValue.MinValue < 0 || c.TargetValue.MaxValue > 1 {
				return nil, fcmerr.InvalidModelf("concept %d target value is outside [0, 1]", c.ID)
			}
		}
		if c.Constraint != nil {
			if c.Constraint.MinValue > c.Constraint.MaxValue {
				return nil, fcmerr.InvalidModelf("concept %d constraint has min > max", c.ID)
			}
			if c.Constraint.MinValue < 0 || c.Constraint.MaxValue > 1 {
				return nil, fcmerr.InvalidModelf("concept %d constraint is outside [0, 1]", c.ID)
			}
		}
		if c.DynamicModel != nil && !c.DynamicModel.IsValid() {
			return nil, fcmerr.InvalidModelf("concept %d has an unknown dynamic model override", c.ID)
		}
		if c.Value < 0 || c.Value > 1 {
			return nil, fcmerr.InvalidModelf("concept %d value %g is outside [0, 1]", c.ID, c.Value)
		}
		stored := c
		m.concepts[c.ID] = &stored
	}

	for i := range connections {
		cn := connections[i]
		if _, exists := m.connections[cn.ID]; exists {
			return nil, fcmerr.InvalidModelf("duplicate connection id %d", cn.ID)
		}
		if _, ok := m.concepts[cn.SourceID]; !ok {
			return nil, fcmerr.InvalidModelf("connection %d references unknown source concept %d", cn.ID, cn.SourceID)
		}
		if _, ok := m.concepts[cn.TargetID]; !ok {
			return nil, fcmerr.InvalidModelf("connection %d references unknown target concept %d", cn.ID, cn.TargetID)
		}
		if cn.Constraint != nil {
			if cn.Constraint.MinValue > cn.Constraint.MaxValue {
				return nil, fcmerr.InvalidModelf("connection %d constraint has min > max", cn.ID)
			}
			if cn.Constraint.MinValue < -1 || cn.Constraint.MaxValue > 1 {
				return nil, fcmerr.InvalidModelf("connection %d constraint is outside [-1, 1]", cn.ID)
			}
		}
		if cn.Value < -1 || cn.Value > 1 {
			return nil, fcmerr.InvalidModelf("connection %d value %g is outside [-1, 1]", cn.ID, cn.Value)
		}
		stored := cn
		m.connections[cn.ID] = &stored
	}

	for _, c := range m.concepts {
		switch {
		case c.IsControl:
			m.controlConcepts = append(m.controlConcepts, c)
		case c.IsTarget:
			m.targetConcepts = append(m.targetConcepts, c)
		default:
			m.regularConcepts = append(m.regularConcepts, c)
		}
	}
	for _, cn := range m.connections {
		if cn.IsControl {
			m.controlConnections = append(m.controlConnections, cn)
		}
	}
	if len(m.controlConcepts) == 0 && len(m.controlConnections) == 0 {
		return nil, fcmerr.InvalidModel("model must have at least one control concept or control connection")
	}
	if len(m.targetConcepts) == 0 {
		return nil, fcmerr.InvalidModel("model must have at least one target concept")
	}

	return m, nil
}

// Concept returns the concept with the given id, or an error if unknown.
func (m *Model) Concept(id int) (*Concept, error) {
	c, ok := m.concepts[id]
	if !ok {
		return nil, fcmerr.InvalidModelf("unknown concept id %d", id)
	}
	return c, nil
}

// Connection returns the connection with the given id, or an error if
// unknown.
func (m *Model) Connection(id int) (*Connection, error) {
	cn, ok := m.connections[id]
	if !ok {
		return nil, fcmerr.InvalidModelf("unknown connection id %d", id)
	}
	return cn, nil
}

// Concepts returns every concept in the model, in no particular order.
func (m *Model) Concepts() []*Concept {
	out := make([]*Concept, 0, len(m.concepts))
	for _, c := range m.concepts {
		out = append(out, c)
	}
	return out
}

// Connections returns every connection in the model, in no particular
// order.
func (m *Model) Connections() []*Connection {
	out := make([]*Connection, 0, len(m.connections))
	for _, cn := range m.connections {
		out = append(out, cn)
	}
	return out
}

// ControlConcepts returns the concepts the genetic algorithm may vary.
func (m *Model) ControlConcepts() []*Concept { return m.controlConcepts }

// TargetConcepts returns the concepts the simulator scores error against.
func (m *Model) TargetConcepts() []*Concept { return m.targetConcepts }

// RegularConcepts returns concepts that are neither control nor target.
func (m *Model) RegularConcepts() []*Concept { return m.regularConcepts }

// ControlConnections returns the connections the genetic algorithm may vary.
func (m *Model) ControlConnections() []*Connection { return m.controlConnections }

// ConnectionsInto returns every connection whose TargetID is conceptID, in
// no particular order. Called once per concept per simulation step.
func (m *Model) ConnectionsInto(conceptID int) []*Connection {
	var out []*Connection
	for _, cn := range m.connections {
		if cn.TargetID == conceptID {
			out = append(out, cn)
		}
	}
	return out
}

func (c Concept) String() string {
	return fmt.Sprintf("Concept{id=%d, value=%g, control=%t, target=%t}", c.ID, c.Value, c.IsControl, c.IsTarget)
}

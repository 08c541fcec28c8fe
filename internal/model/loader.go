package model

import "github.com/fcmstudio/adjustment/internal/fcmerr"

// ConceptRecord is a row-shaped concept as it arrives from storage, before
// its constraint/target/dynamic-model plugin joins are folded in, the way a
// concept can be split across separate control/target/constraint/dynamic-
// model tables.
type ConceptRecord struct {
	ID           int
	Value        float64
	IsControl    bool
	IsTarget     bool
	TargetValue  *TargetValue
	Constraint   *Constraint
	DynamicModel *DynamicModel
}

// ConnectionRecord is a row-shaped connection as it arrives from storage,
// joined from the connections/connection_constraints tables.
type ConnectionRecord struct {
	ID         int
	Value      float64
	SourceID   int
	TargetID   int
	IsControl  bool
	Constraint *Constraint
}

// Loader assembles a Model from separately-sourced concept and connection
// records, joining their plugin tables at load time rather than assuming
// one flat input shape.
type Loader struct{}

// NewLoader returns a ready-to-use Loader. It holds no state; its methods
// exist to give the join step a stable, testable seam separate from New.
func NewLoader() *Loader { return &Loader{} }

// Load builds a Model from concept and connection records.
func (l *Loader) Load(concepts []ConceptRecord, connections []ConnectionRecord) (*Model, error) {
	if len(concepts) == 0 {
		return nil, fcmerr.InvalidModel("model must have at least one concept")
	}
	cs := make([]Concept, len(concepts))
	for i, r := range concepts {
		cs[i] = Concept{
			ID:           r.ID,
			Value:        r.Value,
			IsControl:    r.IsControl,
			IsTarget:     r.IsTarget,
			TargetValue:  r.TargetValue,
			Constraint:   r.Constraint,
			DynamicModel: r.DynamicModel,
		}
	}
	cns := make([]Connection, len(connections))
	for i, r := range connections {
		cns[i] = Connection{
			ID:         r.ID,
			Value:      r.Value,
			SourceID:   r.SourceID,
			TargetID:   r.TargetID,
			IsControl:  r.IsControl,
			Constraint: r.Constraint,
		}
	}
	return New(cs, cns)
}

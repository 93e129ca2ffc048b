// Package sbo assigns Systems Biology Ontology terms to exported elements.
//
// Species terms depend on the physical entity subtype, species reference
// terms on the participant role. Both tables are closed; anything outside
// them maps to Unset.
package sbo

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Benny93/reactome-sbml/internal/graph"
	"github.com/Benny93/reactome-sbml/internal/model"
)

// Term is an SBO term number.
type Term int

// Unset marks an element that carries no SBO term.
const Unset Term = -1

// Fixed terms used by the exporter.
const (
	Reactant            Term = 10
	Product             Term = 11
	Catalyst            Term = 13
	Inhibitor           Term = 20
	MaterialEntity      Term = 240
	SimpleChemical      Term = 247
	Complex             Term = 253
	PhysicalCompartment Term = 290
	Pharmaceutical      Term = 298
	Protein             Term = 297
	Stimulator          Term = 459
)

// IsSet reports whether t is a real term.
func (t Term) IsSet() bool {
	return t >= 0
}

// String renders the term in "SBO:0000247" form, or "" when unset.
func (t Term) String() string {
	if !t.IsSet() {
		return ""
	}
	return fmt.Sprintf("SBO:%07d", int(t))
}

// Species terms by class. Subclasses inherit through the lineage walk.
var speciesTerms = map[graph.Class]Term{
	graph.ClassSimpleEntity:        SimpleChemical,
	graph.ClassGenomeEncodedEntity: Protein,
	graph.ClassComplex:             Complex,
	graph.ClassPolymer:             MaterialEntity,
	graph.ClassOtherEntity:         MaterialEntity,
	graph.ClassDrug:                Pharmaceutical,
	graph.ClassEntitySet:           Unset,
}

var roleTerms = map[model.Role]Term{
	model.RoleReactant:          Reactant,
	model.RoleProduct:           Product,
	model.RoleCatalyst:          Catalyst,
	model.RolePositiveRegulator: Stimulator,
	model.RoleNegativeRegulator: Inhibitor,
}

// Classifier maps domain objects onto SBO terms.
type Classifier struct {
	logger *zap.Logger
}

// NewClassifier creates a classifier that reports unrecognised subtypes to
// logger. A nil logger discards them.
func NewClassifier(logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{logger: logger}
}

// SpeciesTerm returns the term for a physical entity.
//
// Entity sets carry no term. Any class outside the table is logged as a
// warning and maps to Unset; the export continues.
func (c *Classifier) SpeciesTerm(pe *model.PhysicalEntity) Term {
	if pe == nil {
		return Unset
	}
	if term, ok := ClassTerm(pe.Class); ok {
		return term
	}
	c.logger.Warn("unrecognised physical entity subtype",
		zap.String("stId", pe.StID),
		zap.Int64("dbId", pe.DBID),
		zap.String("class", string(pe.Class)),
	)
	return Unset
}

// ClassTerm looks up the species term for class. The second result is false
// when class is not in the table.
func ClassTerm(class graph.Class) (Term, bool) {
	for _, c := range class.Lineage() {
		if term, ok := speciesTerms[c]; ok {
			return term, true
		}
	}
	return Unset, false
}

// RoleTerm returns the species reference term for a participant role.
func RoleTerm(role model.Role) Term {
	if term, ok := roleTerms[role]; ok {
		return term
	}
	return Unset
}

// CompartmentTerm returns the term for every compartment.
func CompartmentTerm() Term {
	return PhysicalCompartment
}

// Lookup resolves name as a schema class or a role string.
func Lookup(name string) (Term, bool) {
	if term, ok := ClassTerm(graph.Class(name)); ok {
		return term, true
	}
	if term, ok := roleTerms[model.Role(name)]; ok {
		return term, true
	}
	return Unset, false
}

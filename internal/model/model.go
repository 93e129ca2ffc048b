// Package model defines the strongly typed Reactome domain objects the SBML
// assembler consumes. Only the fields needed downstream are carried.
package model

import (
	"github.com/Benny93/reactome-sbml/internal/graph"
)

// Role is the part a physical entity plays in a reaction.
type Role string

const (
	RoleReactant          Role = "reactant"
	RoleProduct           Role = "product"
	RoleCatalyst          Role = "catalyst"
	RolePositiveRegulator Role = "pos_regulator"
	RoleNegativeRegulator Role = "neg_regulator"
)

// IsModifier reports whether the role maps onto an SBML modifier rather than
// a reactant or product.
func (r Role) IsModifier() bool {
	return r == RoleCatalyst || r == RolePositiveRegulator || r == RoleNegativeRegulator
}

// Object is any converted domain object.
type Object interface {
	// ID returns the internal DB_ID.
	ID() int64
	// SchemaClass returns the most specific schema class.
	SchemaClass() graph.Class
}

// Base holds the identity common to all domain objects.
type Base struct {
	DBID  int64
	StID  string
	Name  string
	Class graph.Class
}

// ID implements Object.
func (b Base) ID() int64 { return b.DBID }

// SchemaClass implements Object.
func (b Base) SchemaClass() graph.Class { return b.Class }

// Event is a Pathway or a ReactionLikeEvent.
type Event interface {
	Object
	isEvent()
}

// Pathway is an organising event with child events.
type Pathway struct {
	Base
	// HasEvent lists child event DB_IDs in rank order.
	HasEvent []int64
}

func (*Pathway) isEvent() {}

// ReactionLikeEvent is a leaf event that consumes and produces entities.
type ReactionLikeEvent struct {
	Base
	Compartments []*Compartment
}

func (*ReactionLikeEvent) isEvent() {}

// PhysicalEntity is a reaction participant. Class selects its SBO term.
type PhysicalEntity struct {
	Base
	Compartments []*Compartment
}

// Compartment is a cellular location.
type Compartment struct {
	Base
	// Accession is the GO accession, e.g. 0005829.
	Accession string
}

// Participation is one occurrence of an entity in a reaction.
type Participation struct {
	ReactionDBID  int64
	Role          Role
	Stoichiometry int
}

// ParticipantDetails pairs an entity with every role it plays across the
// collected reactions.
type ParticipantDetails struct {
	Entity         *PhysicalEntity
	Participations []Participation
}

// Compartment returns the first compartment of the entity, or nil.
func (d *ParticipantDetails) Compartment() *Compartment {
	if d.Entity == nil || len(d.Entity.Compartments) == 0 {
		return nil
	}
	return d.Entity.Compartments[0]
}

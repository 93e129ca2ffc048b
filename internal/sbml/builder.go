package sbml

import (
	"strconv"
)

// Builder assembles a model, keeping element ids unique.
//
// Adding an element whose id is already present returns the existing
// element and leaves the model unchanged.
type Builder struct {
	model        *Model
	compartments map[string]*Compartment
	species      map[string]*Species
	reactions    map[string]*Reaction
	metaIDs      int
}

// NewBuilder starts a model with the given id and name.
func NewBuilder(id, name string) *Builder {
	return &Builder{
		model:        &Model{ID: id, Name: name},
		compartments: make(map[string]*Compartment),
		species:      make(map[string]*Species),
		reactions:    make(map[string]*Reaction),
	}
}

// Model returns the model being built.
func (b *Builder) Model() *Model {
	return b.model
}

// NextMetaID returns a fresh metaid for an annotated element.
func (b *Builder) NextMetaID() string {
	id := "metaid_" + strconv.Itoa(b.metaIDs)
	b.metaIDs++
	return id
}

// AddCompartment adds c unless a compartment with its id exists.
func (b *Builder) AddCompartment(c *Compartment) *Compartment {
	if existing, ok := b.compartments[c.ID]; ok {
		return existing
	}
	b.compartments[c.ID] = c
	b.model.Compartments = append(b.model.Compartments, c)
	return c
}

// AddSpecies adds s unless a species with its id exists.
func (b *Builder) AddSpecies(s *Species) *Species {
	if existing, ok := b.species[s.ID]; ok {
		return existing
	}
	b.species[s.ID] = s
	b.model.Species = append(b.model.Species, s)
	return s
}

// AddReaction adds r unless a reaction with its id exists.
func (b *Builder) AddReaction(r *Reaction) *Reaction {
	if existing, ok := b.reactions[r.ID]; ok {
		return existing
	}
	b.reactions[r.ID] = r
	b.model.Reactions = append(b.model.Reactions, r)
	return r
}

// Compartment returns the compartment with id, or nil.
func (b *Builder) Compartment(id string) *Compartment {
	return b.compartments[id]
}

// Species returns the species with id, or nil.
func (b *Builder) Species(id string) *Species {
	return b.species[id]
}

// Reaction returns the reaction with id, or nil.
func (b *Builder) Reaction(id string) *Reaction {
	return b.reactions[id]
}

// Document wraps the model in an L3V1 document.
func (b *Builder) Document() *Document {
	return NewDocument(b.model)
}

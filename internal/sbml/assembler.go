package sbml

import (
	"fmt"
	"strconv"

	"github.com/Benny93/reactome-sbml/internal/collect"
	"github.com/Benny93/reactome-sbml/internal/model"
	"github.com/Benny93/reactome-sbml/internal/sbo"
)

// identifiersReactome prefixes stable ids in MIRIAM annotations.
const identifiersReactome = "http://identifiers.org/reactome/"

// DefaultCompartmentID holds species whose entity has no compartment.
const DefaultCompartmentID = "default_compartment"

// Options configures document assembly.
type Options struct {
	// Annotations adds RDF bqbiol:is links to Reactome on the model,
	// species and reactions.
	Annotations bool

	// DBVersion is the Reactome release written into the model notes.
	// Zero omits the notes.
	DBVersion int
}

// Assembler turns collected events into SBML documents.
type Assembler struct {
	classifier *sbo.Classifier
	opts       Options
}

// NewAssembler creates an assembler. A nil classifier discards warnings.
func NewAssembler(classifier *sbo.Classifier, opts Options) *Assembler {
	if classifier == nil {
		classifier = sbo.NewClassifier(nil)
	}
	return &Assembler{classifier: classifier, opts: opts}
}

// ModelID names the model after the root event.
func ModelID(root model.Event) string {
	if _, ok := root.(*model.Pathway); ok {
		return "pathway_" + strconv.FormatInt(root.ID(), 10)
	}
	return ReactionID(root.ID())
}

// CompartmentID is the SBML id of a compartment.
func CompartmentID(dbID int64) string {
	return "compartment_" + strconv.FormatInt(dbID, 10)
}

// SpeciesID is the SBML id of a physical entity.
func SpeciesID(dbID int64) string {
	return "species_" + strconv.FormatInt(dbID, 10)
}

// ReactionID is the SBML id of a reaction-like event.
func ReactionID(dbID int64) string {
	return "reaction_" + strconv.FormatInt(dbID, 10)
}

// Assemble builds the document for c.
func (a *Assembler) Assemble(c *collect.Collection) *Document {
	b := NewBuilder(ModelID(c.Root), rootName(c.Root))
	m := b.Model()

	if a.opts.DBVersion > 0 {
		m.Notes = NewNotes(fmt.Sprintf("Derived from Reactome version %d", a.opts.DBVersion))
	}
	a.annotate(b, &m.MetaID, &m.Annotation, rootStID(c.Root))

	compartmentTerm := sbo.CompartmentTerm().String()
	for _, comp := range c.Compartments {
		b.AddCompartment(&Compartment{
			ID:       CompartmentID(comp.DBID),
			Name:     comp.Name,
			Constant: true,
			SBOTerm:  compartmentTerm,
		})
	}

	for _, p := range c.Participants {
		a.addSpecies(b, p)
	}

	for _, rxn := range c.Reactions {
		r := &Reaction{
			ID:   ReactionID(rxn.DBID),
			Name: rxn.Name,
		}
		if len(rxn.Compartments) > 0 {
			r.Compartment = CompartmentID(rxn.Compartments[0].DBID)
		}
		a.annotate(b, &r.MetaID, &r.Annotation, rxn.StID)
		b.AddReaction(r)
	}

	// Species references follow participant order so each reaction lists
	// its species in the same order as listOfSpecies.
	for _, p := range c.Participants {
		speciesID := SpeciesID(p.Entity.DBID)
		for _, part := range p.Participations {
			r := b.Reaction(ReactionID(part.ReactionDBID))
			if r == nil {
				continue
			}
			term := sbo.RoleTerm(part.Role).String()
			switch part.Role {
			case model.RoleReactant:
				r.Reactants = append(r.Reactants, &SpeciesReference{
					Species: speciesID, Stoichiometry: float64(part.Stoichiometry), Constant: true, SBOTerm: term,
				})
			case model.RoleProduct:
				r.Products = append(r.Products, &SpeciesReference{
					Species: speciesID, Stoichiometry: float64(part.Stoichiometry), Constant: true, SBOTerm: term,
				})
			default:
				r.Modifiers = append(r.Modifiers, &ModifierSpeciesReference{Species: speciesID, SBOTerm: term})
			}
		}
	}

	return b.Document()
}

func (a *Assembler) addSpecies(b *Builder, p *model.ParticipantDetails) {
	pe := p.Entity

	compartment := DefaultCompartmentID
	if comp := p.Compartment(); comp != nil {
		compartment = CompartmentID(comp.DBID)
	} else {
		b.AddCompartment(&Compartment{ID: DefaultCompartmentID, Name: "default compartment", Constant: true})
	}

	s := &Species{
		ID:          SpeciesID(pe.DBID),
		Name:        pe.Name,
		Compartment: compartment,
		SBOTerm:     a.classifier.SpeciesTerm(pe).String(),
	}
	a.annotate(b, &s.MetaID, &s.Annotation, pe.StID)
	b.AddSpecies(s)
}

func (a *Assembler) annotate(b *Builder, metaID *string, ann **Annotation, stID string) {
	if !a.opts.Annotations || stID == "" {
		return
	}
	*metaID = b.NextMetaID()
	*ann = NewIsAnnotation(*metaID, identifiersReactome+stID)
}

func rootName(root model.Event) string {
	switch ev := root.(type) {
	case *model.Pathway:
		return ev.Name
	case *model.ReactionLikeEvent:
		return ev.Name
	}
	return ""
}

func rootStID(root model.Event) string {
	switch ev := root.(type) {
	case *model.Pathway:
		return ev.StID
	case *model.ReactionLikeEvent:
		return ev.StID
	}
	return ""
}

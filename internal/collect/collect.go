// Package collect walks a Reactome event hierarchy and gathers the reactions
// and participating physical entities an SBML export needs.
package collect

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Benny93/reactome-sbml/internal/convert"
	"github.com/Benny93/reactome-sbml/internal/graph"
	"github.com/Benny93/reactome-sbml/internal/model"
	"github.com/Benny93/reactome-sbml/internal/storage"
)

// ErrNotFound is returned when an identifier does not resolve to an Event.
var ErrNotFound = errors.New("not found")

// stableIDPrefix marks a stable identifier such as R-HSA-69620.
const stableIDPrefix = "R-"

// Collection is everything collected below one root event.
type Collection struct {
	// Root is the resolved root event.
	Root model.Event

	// Pathway is the root when it is a pathway, nil when it is a reaction.
	Pathway *model.Pathway

	// Reactions are the reaction-like events in pre-order, each once.
	Reactions []*model.ReactionLikeEvent

	// Participants are the distinct entities in order of first appearance.
	Participants []*model.ParticipantDetails

	// Compartments are the distinct compartments of reactions and entities.
	Compartments []*model.Compartment
}

// Participant returns the details for the entity with DB_ID dbID, or nil.
func (c *Collection) Participant(dbID int64) *model.ParticipantDetails {
	for _, p := range c.Participants {
		if p.Entity.DBID == dbID {
			return p
		}
	}
	return nil
}

// Collector gathers reactions and participants from a Source.
type Collector struct {
	src    storage.Source
	conv   *convert.Converter
	logger *zap.Logger
}

// NewCollector creates a collector reading from src. A nil logger discards output.
func NewCollector(src storage.Source, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{src: src, conv: convert.NewConverter(src, logger), logger: logger}
}

// Collect resolves id (a DB_ID, or a stable identifier prefixed "R-") and
// gathers everything below it.
func (c *Collector) Collect(ctx context.Context, id string) (*Collection, error) {
	rootInst, err := c.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	root, err := convert.ConvertEvent(rootInst)
	if err != nil {
		return nil, err
	}

	run := &collection{
		Collector:    c,
		out:          &Collection{Root: root},
		visited:      make(map[int64]bool),
		participants: make(map[int64]*model.ParticipantDetails),
		compartments: make(map[int64]bool),
	}
	if pw, ok := root.(*model.Pathway); ok {
		run.out.Pathway = pw
	}

	var reactions []*graph.Instance
	if err := run.walk(ctx, rootInst, &reactions); err != nil {
		return nil, err
	}

	for _, inst := range reactions {
		if err := run.addReaction(ctx, inst); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("collected events",
		zap.String("root", rootInst.String()),
		zap.Int("reactions", len(run.out.Reactions)),
		zap.Int("participants", len(run.out.Participants)),
		zap.Int("compartments", len(run.out.Compartments)),
	)
	return run.out, nil
}

// Resolve returns the Event record identified by id.
func (c *Collector) Resolve(ctx context.Context, id string) (*graph.Instance, error) {
	id = strings.TrimSpace(id)

	if strings.HasPrefix(id, stableIDPrefix) {
		insts, err := c.src.FetchByAttribute(ctx, graph.ClassEvent, graph.AttrStID, id)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", id, err)
		}
		if len(insts) == 0 {
			return nil, notFound(id)
		}
		return insts[0], nil
	}

	dbID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, notFound(id)
	}
	inst, err := c.src.FetchByID(ctx, dbID)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", id, err)
	}
	if inst == nil || !inst.IsA(graph.ClassEvent) {
		return nil, notFound(id)
	}
	return inst, nil
}

func notFound(id string) error {
	return fmt.Errorf("cannot find an Event with id %s: %w", id, ErrNotFound)
}

// collection is the state of one Collect call.
type collection struct {
	*Collector

	out          *Collection
	visited      map[int64]bool
	participants map[int64]*model.ParticipantDetails
	compartments map[int64]bool
}

// walk appends reaction-like events below inst in pre-order.
func (r *collection) walk(ctx context.Context, inst *graph.Instance, reactions *[]*graph.Instance) error {
	if r.visited[inst.DBID] {
		return nil
	}
	r.visited[inst.DBID] = true

	if inst.IsA(graph.ClassReactionLikeEvent) {
		*reactions = append(*reactions, inst)
		return nil
	}

	for _, childID := range inst.Refs(graph.AttrHasEvent) {
		if r.visited[childID] {
			continue
		}
		child, err := r.src.FetchByID(ctx, childID)
		if err != nil {
			return fmt.Errorf("fetching event %d: %w", childID, err)
		}
		if child == nil || !child.IsA(graph.ClassEvent) {
			r.logger.Warn("skipping missing child event",
				zap.Int64("parent", inst.DBID),
				zap.Int64("child", childID),
			)
			continue
		}
		if err := r.walk(ctx, child, reactions); err != nil {
			return err
		}
	}
	return nil
}

func (r *collection) addReaction(ctx context.Context, inst *graph.Instance) error {
	ev, err := convert.ConvertEvent(inst)
	if err != nil {
		return err
	}
	rxn, ok := ev.(*model.ReactionLikeEvent)
	if !ok {
		return fmt.Errorf("%w: %s is not a reaction", convert.ErrTypeMismatch, inst)
	}
	if err := r.conv.FillInDetails(ctx, rxn); err != nil {
		return err
	}
	r.out.Reactions = append(r.out.Reactions, rxn)
	r.addCompartments(rxn.Compartments)

	refs, err := r.participantRefs(ctx, inst)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if err := r.addParticipant(ctx, rxn.DBID, ref); err != nil {
			return err
		}
	}
	return nil
}

// participantRef is one role an entity plays in a reaction.
type participantRef struct {
	entity        int64
	role          model.Role
	stoichiometry int
}

// participantRefs lists the reaction's participants in input, output,
// catalyst, regulator order. Repeated references in the same role collapse
// into one entry with a higher stoichiometry.
func (r *collection) participantRefs(ctx context.Context, inst *graph.Instance) ([]participantRef, error) {
	var refs []participantRef
	add := func(entity int64, role model.Role) {
		for i := range refs {
			if refs[i].entity == entity && refs[i].role == role {
				refs[i].stoichiometry++
				return
			}
		}
		refs = append(refs, participantRef{entity: entity, role: role, stoichiometry: 1})
	}

	for _, id := range inst.Refs(graph.AttrInput) {
		add(id, model.RoleReactant)
	}
	for _, id := range inst.Refs(graph.AttrOutput) {
		add(id, model.RoleProduct)
	}

	for _, caID := range inst.Refs(graph.AttrCatalystActivity) {
		ca, err := r.src.FetchByID(ctx, caID)
		if err != nil {
			return nil, fmt.Errorf("fetching catalyst activity %d: %w", caID, err)
		}
		if ca == nil {
			continue
		}
		for _, id := range ca.Refs(graph.AttrPhysicalEntity) {
			add(id, model.RoleCatalyst)
		}
	}

	for _, regID := range inst.Refs(graph.AttrRegulatedBy) {
		reg, err := r.src.FetchByID(ctx, regID)
		if err != nil {
			return nil, fmt.Errorf("fetching regulation %d: %w", regID, err)
		}
		if reg == nil {
			continue
		}

		var role model.Role
		switch {
		case reg.IsA(graph.ClassPositiveRegulation):
			role = model.RolePositiveRegulator
		case reg.IsA(graph.ClassNegativeRegulation):
			role = model.RoleNegativeRegulator
		default:
			continue
		}

		for _, id := range reg.Refs(graph.AttrRegulator) {
			regulator, err := r.src.FetchByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("fetching regulator %d: %w", id, err)
			}
			// Events and catalyst activities can regulate too; SBML modifiers
			// have to be species.
			if regulator == nil || !isEntity(regulator) {
				continue
			}
			add(id, role)
		}
	}

	return refs, nil
}

func isEntity(inst *graph.Instance) bool {
	return inst.IsA(graph.ClassPhysicalEntity) || !inst.Class.Known()
}

func (r *collection) addParticipant(ctx context.Context, reactionID int64, ref participantRef) error {
	details, ok := r.participants[ref.entity]
	if !ok {
		pe, err := r.conv.PhysicalEntity(ctx, ref.entity)
		if err != nil {
			return err
		}
		if pe == nil {
			r.logger.Warn("skipping missing participant",
				zap.Int64("reaction", reactionID),
				zap.Int64("entity", ref.entity),
			)
			return nil
		}
		details = &model.ParticipantDetails{Entity: pe}
		r.participants[ref.entity] = details
		r.out.Participants = append(r.out.Participants, details)
		r.addCompartments(pe.Compartments)
	}

	details.Participations = append(details.Participations, model.Participation{
		ReactionDBID:  reactionID,
		Role:          ref.role,
		Stoichiometry: ref.stoichiometry,
	})
	return nil
}

func (r *collection) addCompartments(comps []*model.Compartment) {
	for _, comp := range comps {
		if r.compartments[comp.DBID] {
			continue
		}
		r.compartments[comp.DBID] = true
		r.out.Compartments = append(r.out.Compartments, comp)
	}
}

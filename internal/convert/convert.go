// Package convert turns raw Reactome records into the typed domain objects
// consumed by the SBML assembler.
//
// Only the fields needed downstream are populated. Compartments are left as
// bare references until FillInDetails resolves them through a Source.
package convert

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Benny93/reactome-sbml/internal/graph"
	"github.com/Benny93/reactome-sbml/internal/model"
	"github.com/Benny93/reactome-sbml/internal/storage"
)

// ErrTypeMismatch is returned when a record does not convert into the
// requested domain type family.
var ErrTypeMismatch = errors.New("type mismatch")

// ErrUnconvertible is returned for records with no domain representation.
var ErrUnconvertible = errors.New("no domain type")

// mismatch builds the error reported for the offending record.
func mismatch(inst *graph.Instance, target string) error {
	return fmt.Errorf("%w: %s cannot be converted into %s", ErrTypeMismatch, inst, target)
}

// Convert produces the domain object for inst by schema class.
//
// Physical entities of a class outside the schema still convert, so that the
// classifier can report them; any other unknown record does not.
func Convert(inst *graph.Instance) (model.Object, error) {
	if inst == nil {
		return nil, fmt.Errorf("%w: nil record", ErrUnconvertible)
	}

	base := model.Base{DBID: inst.DBID, StID: inst.StID, Name: inst.DisplayName, Class: inst.Class}

	switch {
	case inst.IsA(graph.ClassPathway):
		return &model.Pathway{Base: base, HasEvent: inst.Refs(graph.AttrHasEvent)}, nil
	case inst.IsA(graph.ClassReactionLikeEvent):
		return &model.ReactionLikeEvent{Base: base, Compartments: stubs(inst)}, nil
	case inst.IsA(graph.ClassPhysicalEntity), !inst.Class.Known():
		return &model.PhysicalEntity{Base: base, Compartments: stubs(inst)}, nil
	case inst.IsA(graph.ClassGOCellularComponent):
		c := &model.Compartment{Base: base}
		if acc := inst.Strings("accession"); len(acc) > 0 {
			c.Accession = acc[0]
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnconvertible, inst)
	}
}

// stubs returns placeholder compartments that carry only the DB_ID.
func stubs(inst *graph.Instance) []*model.Compartment {
	refs := inst.Refs(graph.AttrCompartment)
	if len(refs) == 0 {
		return nil
	}
	out := make([]*model.Compartment, 0, len(refs))
	for _, id := range refs {
		out = append(out, &model.Compartment{Base: model.Base{DBID: id}})
	}
	return out
}

// ConvertPhysicalEntity converts inst and checks the result is a physical entity.
func ConvertPhysicalEntity(inst *graph.Instance) (*model.PhysicalEntity, error) {
	obj, err := Convert(inst)
	if err != nil && !errors.Is(err, ErrUnconvertible) {
		return nil, err
	}
	pe, ok := obj.(*model.PhysicalEntity)
	if !ok {
		return nil, mismatch(inst, "a PhysicalEntity")
	}
	return pe, nil
}

// ConvertEvent converts inst and checks the result is a pathway or reaction.
func ConvertEvent(inst *graph.Instance) (model.Event, error) {
	obj, err := Convert(inst)
	if err != nil && !errors.Is(err, ErrUnconvertible) {
		return nil, err
	}
	ev, ok := obj.(model.Event)
	if !ok {
		return nil, mismatch(inst, "an Event")
	}
	return ev, nil
}

// Converter resolves the details of converted objects from a Source.
// Compartments are cached for the converter's lifetime.
type Converter struct {
	src          storage.Source
	logger       *zap.Logger
	compartments map[int64]*model.Compartment
}

// NewConverter creates a converter reading from src. A nil logger discards output.
func NewConverter(src storage.Source, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{src: src, logger: logger, compartments: make(map[int64]*model.Compartment)}
}

// FillInDetails replaces compartment stubs on entity or reaction objects with
// resolved compartments.
func (c *Converter) FillInDetails(ctx context.Context, obj model.Object) error {
	switch o := obj.(type) {
	case *model.PhysicalEntity:
		resolved, err := c.resolve(ctx, o.Compartments)
		if err != nil {
			return fmt.Errorf("filling in %s: %w", o.Name, err)
		}
		o.Compartments = resolved
	case *model.ReactionLikeEvent:
		resolved, err := c.resolve(ctx, o.Compartments)
		if err != nil {
			return fmt.Errorf("filling in %s: %w", o.Name, err)
		}
		o.Compartments = resolved
	}
	return nil
}

func (c *Converter) resolve(ctx context.Context, stubs []*model.Compartment) ([]*model.Compartment, error) {
	var out []*model.Compartment
	for _, stub := range stubs {
		comp, err := c.Compartment(ctx, stub.DBID)
		if err != nil {
			return nil, err
		}
		if comp != nil {
			out = append(out, comp)
		}
	}
	return out, nil
}

// Compartment fetches and converts a compartment. It returns nil when the
// record is missing or is not a compartment; the latter is logged.
func (c *Converter) Compartment(ctx context.Context, dbID int64) (*model.Compartment, error) {
	if comp, ok := c.compartments[dbID]; ok {
		return comp, nil
	}

	inst, err := c.src.FetchByID(ctx, dbID)
	if err != nil {
		return nil, fmt.Errorf("fetching compartment %d: %w", dbID, err)
	}
	if inst == nil {
		c.compartments[dbID] = nil
		return nil, nil
	}

	obj, err := Convert(inst)
	if err != nil && !errors.Is(err, ErrUnconvertible) {
		return nil, err
	}
	comp, ok := obj.(*model.Compartment)
	if !ok {
		c.logger.Warn("dropping compartment of unexpected class",
			zap.Int64("dbId", inst.DBID),
			zap.String("class", string(inst.Class)),
		)
		c.compartments[dbID] = nil
		return nil, nil
	}
	c.compartments[dbID] = comp
	return comp, nil
}

// PhysicalEntity fetches, converts and fills in the entity with DB_ID dbID.
// It returns nil when the record does not exist.
func (c *Converter) PhysicalEntity(ctx context.Context, dbID int64) (*model.PhysicalEntity, error) {
	inst, err := c.src.FetchByID(ctx, dbID)
	if err != nil {
		return nil, fmt.Errorf("fetching entity %d: %w", dbID, err)
	}
	if inst == nil {
		return nil, nil
	}
	pe, err := ConvertPhysicalEntity(inst)
	if err != nil {
		return nil, err
	}
	if err := c.FillInDetails(ctx, pe); err != nil {
		return nil, err
	}
	return pe, nil
}

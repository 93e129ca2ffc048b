package collect

import (
	"context"
	"fmt"

	"github.com/Benny93/reactome-sbml/internal/graph"
	"github.com/Benny93/reactome-sbml/internal/storage"
)

// HomoSapiens is the DB_ID of the Homo sapiens Species record.
const HomoSapiens int64 = 48887

// Lister is a Source that can enumerate a class.
type Lister interface {
	storage.Source
	storage.ClassLister
}

// PolymerPathways lists pathways of the given species that contain exactly
// one child event, where that child is a reaction-like event with a Polymer
// among its inputs. These are the smallest exports that exercise the
// material-entity term. It also returns the number of pathways examined.
//
// The species filter is skipped when species is 0 or the source holds no
// record for it, as with snapshots and JSON dumps.
func PolymerPathways(ctx context.Context, src Lister, species int64) ([]*graph.Instance, int, error) {
	var out []*graph.Instance
	total, err := eachSingleChild(ctx, src, species, graph.ClassReactionLikeEvent, func(pw, child *graph.Instance) error {
		ok, err := hasPolymerInput(ctx, src, child)
		if err != nil {
			return err
		}
		if ok {
			out = append(out, pw)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ActivityReport is the first catalyst activity of a pathway's only reaction.
type ActivityReport struct {
	Pathway *graph.Instance

	// Activity is the GO molecular function of the catalyst activity, nil
	// when none is recorded.
	Activity *graph.Instance
}

// CatalystActivities reports, for each pathway of the given species whose
// only child is a Reaction with catalysts, the GO molecular function of its
// first catalyst activity. Curated data occasionally lacks the function;
// those reports carry a nil Activity. The species filter follows
// PolymerPathways. It also returns the number of pathways examined.
func CatalystActivities(ctx context.Context, src Lister, species int64) ([]ActivityReport, int, error) {
	var out []ActivityReport
	total, err := eachSingleChild(ctx, src, species, graph.ClassReaction, func(pw, child *graph.Instance) error {
		cats := child.Refs(graph.AttrCatalystActivity)
		if len(cats) == 0 {
			return nil
		}

		report := ActivityReport{Pathway: pw}
		ca, err := src.FetchByID(ctx, cats[0])
		if err != nil {
			return fmt.Errorf("fetching catalyst activity %d: %w", cats[0], err)
		}
		if ca != nil {
			if refs := ca.Refs(graph.AttrActivity); len(refs) > 0 {
				report.Activity, err = src.FetchByID(ctx, refs[0])
				if err != nil {
					return fmt.Errorf("fetching activity %d: %w", refs[0], err)
				}
			}
		}
		out = append(out, report)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// eachSingleChild calls fn for every pathway of species whose only child
// event is of class child. It returns the number of pathways examined.
func eachSingleChild(ctx context.Context, src Lister, species int64, class graph.Class, fn func(pw, child *graph.Instance) error) (int, error) {
	pathways, err := src.FetchByClass(ctx, graph.ClassPathway)
	if err != nil {
		return 0, fmt.Errorf("listing pathways: %w", err)
	}

	if species != 0 {
		sp, err := src.FetchByID(ctx, species)
		if err != nil {
			return 0, fmt.Errorf("fetching species %d: %w", species, err)
		}
		if sp != nil && sp.IsA(graph.ClassSpecies) {
			pathways = ofSpecies(pathways, species)
		}
	}

	for _, pw := range pathways {
		children := pw.Refs(graph.AttrHasEvent)
		if len(children) != 1 {
			continue
		}

		child, err := src.FetchByID(ctx, children[0])
		if err != nil {
			return 0, fmt.Errorf("fetching event %d: %w", children[0], err)
		}
		if child == nil || !child.IsA(class) {
			continue
		}
		if err := fn(pw, child); err != nil {
			return 0, err
		}
	}
	return len(pathways), nil
}

func ofSpecies(pathways []*graph.Instance, species int64) []*graph.Instance {
	var out []*graph.Instance
	for _, pw := range pathways {
		for _, id := range pw.Refs(graph.AttrSpecies) {
			if id == species {
				out = append(out, pw)
				break
			}
		}
	}
	return out
}

func hasPolymerInput(ctx context.Context, src storage.Source, rxn *graph.Instance) (bool, error) {
	for _, id := range rxn.Refs(graph.AttrInput) {
		input, err := src.FetchByID(ctx, id)
		if err != nil {
			return false, fmt.Errorf("fetching input %d: %w", id, err)
		}
		if input != nil && input.IsA(graph.ClassPolymer) {
			return true, nil
		}
	}
	return false, nil
}

package collect

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Benny93/reactome-sbml/internal/convert"
	"github.com/Benny93/reactome-sbml/internal/graph"
	"github.com/Benny93/reactome-sbml/internal/model"
	"github.com/Benny93/reactome-sbml/internal/storage"
	"github.com/Benny93/reactome-sbml/internal/testutil"
)

func reactionIDs(c *Collection) []int64 {
	ids := make([]int64, 0, len(c.Reactions))
	for _, r := range c.Reactions {
		ids = append(ids, r.DBID)
	}
	return ids
}

func participantIDs(c *Collection) []int64 {
	ids := make([]int64, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.Entity.DBID)
	}
	return ids
}

func TestCollector_Collect(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("NestedPathway", func(t *testing.T) {
		t.Parallel()
		c, err := NewCollector(testutil.NewSource(), nil).Collect(ctx, testutil.GlycolysisStID)
		require.NoError(t, err)

		require.NotNil(t, c.Pathway)
		assert.Equal(t, testutil.Glycolysis, c.Root.ID())
		assert.Equal(t, []int64{testutil.Phosphoryl, testutil.SetBinding, testutil.Hydrolysis}, reactionIDs(c))
		assert.Equal(t, []int64{
			testutil.ATP, testutil.ADP, testutil.HKSet, testutil.HK1,
			testutil.H2O, testutil.Pi, testutil.HK1Complex, testutil.Imatinib,
		}, participantIDs(c))

		require.Len(t, c.Compartments, 1)
		assert.Equal(t, "cytosol", c.Compartments[0].Name)
	})

	t.Run("StableIDAndDBIDAgree", func(t *testing.T) {
		t.Parallel()
		src := testutil.NewSource()
		byStID, err := NewCollector(src, nil).Collect(ctx, testutil.GlycolysisStID)
		require.NoError(t, err)
		byDBID, err := NewCollector(src, nil).Collect(ctx, strconv.FormatInt(testutil.Glycolysis, 10))
		require.NoError(t, err)

		assert.Equal(t, byStID, byDBID)
	})

	t.Run("RepeatedEntityKeepsEachOccurrence", func(t *testing.T) {
		t.Parallel()
		c, err := NewCollector(testutil.NewSource(), nil).Collect(ctx, "R-HSA-1003")
		require.NoError(t, err)

		assert.Equal(t, []int64{testutil.HKSet, testutil.HK1}, participantIDs(c))
		assert.Equal(t, []model.Participation{
			{ReactionDBID: testutil.SetBinding, Role: model.RoleReactant, Stoichiometry: 1},
			{ReactionDBID: testutil.SetBinding, Role: model.RolePositiveRegulator, Stoichiometry: 1},
		}, c.Participant(testutil.HK1).Participations)
	})

	t.Run("ParticipationsAcrossReactions", func(t *testing.T) {
		t.Parallel()
		c, err := NewCollector(testutil.NewSource(), nil).Collect(ctx, testutil.GlycolysisStID)
		require.NoError(t, err)

		assert.Equal(t, []model.Participation{
			{ReactionDBID: testutil.Phosphoryl, Role: model.RoleProduct, Stoichiometry: 2},
			{ReactionDBID: testutil.Hydrolysis, Role: model.RoleProduct, Stoichiometry: 1},
		}, c.Participant(testutil.ADP).Participations)

		assert.Equal(t, []model.Participation{
			{ReactionDBID: testutil.Hydrolysis, Role: model.RoleCatalyst, Stoichiometry: 1},
		}, c.Participant(testutil.HK1Complex).Participations)

		assert.Equal(t, []model.Participation{
			{ReactionDBID: testutil.Hydrolysis, Role: model.RoleNegativeRegulator, Stoichiometry: 1},
		}, c.Participant(testutil.Imatinib).Participations)
	})

	t.Run("RootReaction", func(t *testing.T) {
		t.Parallel()
		c, err := NewCollector(testutil.NewSource(), nil).Collect(ctx, testutil.HydrolysisStID)
		require.NoError(t, err)

		assert.Nil(t, c.Pathway)
		assert.Equal(t, []int64{testutil.Hydrolysis}, reactionIDs(c))
		assert.Equal(t, []int64{
			testutil.ATP, testutil.H2O, testutil.ADP, testutil.Pi,
			testutil.HK1Complex, testutil.HK1, testutil.Imatinib,
		}, participantIDs(c))
		require.Len(t, c.Reactions[0].Compartments, 1)
		assert.Equal(t, testutil.Cytosol, c.Reactions[0].Compartments[0].DBID)
	})

	t.Run("EmptyPathway", func(t *testing.T) {
		t.Parallel()
		c, err := NewCollector(testutil.NewSource(), nil).Collect(ctx, "R-HSA-2002")
		require.NoError(t, err)
		assert.Empty(t, c.Reactions)
		assert.Empty(t, c.Participants)
	})

	t.Run("Cycle", func(t *testing.T) {
		t.Parallel()
		c, err := NewCollector(testutil.NewSource(), nil).Collect(ctx, "R-HSA-2003")
		require.NoError(t, err)
		assert.Equal(t, []int64{testutil.Hydrolysis}, reactionIDs(c))
	})

	t.Run("UnknownEntityClassStillCollected", func(t *testing.T) {
		t.Parallel()
		c, err := NewCollector(testutil.NewSource(), nil).Collect(ctx, "R-HSA-1005")
		require.NoError(t, err)
		assert.Equal(t, []int64{testutil.UnknownCell, testutil.H2O}, participantIDs(c))
	})

	t.Run("CompartmentsInFirstAppearanceOrder", func(t *testing.T) {
		t.Parallel()
		c, err := NewCollector(testutil.NewSource(), nil).Collect(ctx, "R-HSA-2005")
		require.NoError(t, err)

		require.Len(t, c.Compartments, 2)
		assert.Equal(t, testutil.Cytosol, c.Compartments[0].DBID)
		assert.Equal(t, testutil.PlasmaMembr, c.Compartments[1].DBID)
	})
}

func TestCollector_NotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	collector := NewCollector(testutil.NewSource(), nil)

	for _, id := range []string{"R-HSA-404", "404", "abc", "R-ALL-113592", "113592", ""} {
		t.Run(id, func(t *testing.T) {
			c, err := collector.Collect(ctx, id)
			assert.Nil(t, c)
			require.ErrorIs(t, err, ErrNotFound)
			assert.ErrorContains(t, err, "cannot find an Event with id "+id)
		})
	}
}

func TestCollector_Warnings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	src := testutil.NewSource()
	src.Add(
		graph.NewInstance(3000, graph.ClassPathway, "dangling").AddRef(graph.AttrHasEvent, 3999, testutil.Phosphoryl),
		graph.NewInstance(3001, graph.ClassReaction, "missing input").AddRef(graph.AttrInput, 3998),
	)

	core, logs := observer.New(zapcore.WarnLevel)
	collector := NewCollector(src, zap.New(core))

	c, err := collector.Collect(ctx, "3000")
	require.NoError(t, err)
	assert.Equal(t, []int64{testutil.Phosphoryl}, reactionIDs(c))
	assert.Equal(t, 1, logs.FilterMessage("skipping missing child event").Len())

	c, err = collector.Collect(ctx, "3001")
	require.NoError(t, err)
	assert.Empty(t, c.Participants)
	assert.Equal(t, 1, logs.FilterMessage("skipping missing participant").Len())
}

func TestCollector_EventRegulatorSkipped(t *testing.T) {
	t.Parallel()

	src := testutil.NewSource()
	src.Add(
		graph.NewInstance(3100, graph.ClassPositiveRegulation, "regulated by a reaction").AddRef(graph.AttrRegulator, testutil.Phosphoryl),
		graph.NewInstance(3101, graph.ClassReaction, "regulated").
			AddRef(graph.AttrInput, testutil.ATP).
			AddRef(graph.AttrRegulatedBy, 3100),
	)

	c, err := NewCollector(src, nil).Collect(context.Background(), "3101")
	require.NoError(t, err)
	assert.Equal(t, []int64{testutil.ATP}, participantIDs(c))
}

func TestCollector_CuratorCompartments(t *testing.T) {
	t.Parallel()

	src := storage.NewMemoryBackend().Add(
		graph.NewInstance(1, graph.ClassReaction, "ATP hydrolysis").
			AddRef(graph.AttrInput, 2).
			AddRef(graph.AttrCompartment, 3),
		graph.NewInstance(2, graph.ClassSimpleEntity, "ATP [cytosol]").AddRef(graph.AttrCompartment, 3),
		graph.NewInstance(3, graph.ClassEntityCompartment, "cytosol"),
	)

	c, err := NewCollector(src, nil).Collect(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, c.Compartments, 1)
	assert.Equal(t, int64(3), c.Compartments[0].DBID)
	assert.Equal(t, "cytosol", c.Participant(2).Compartment().Name)
}

func TestCollector_NonEntityParticipant(t *testing.T) {
	t.Parallel()

	src := testutil.NewSource()
	src.Add(graph.NewInstance(3200, graph.ClassReaction, "bad input").AddRef(graph.AttrInput, testutil.Catalysis))

	_, err := NewCollector(src, nil).Collect(context.Background(), "3200")
	require.ErrorIs(t, err, convert.ErrTypeMismatch)
	assert.ErrorContains(t, err, "cannot be converted into a PhysicalEntity")
}

func TestPolymerPathways(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("NoSpeciesRecord", func(t *testing.T) {
		t.Parallel()
		pathways, total, err := PolymerPathways(ctx, testutil.NewSource(), HomoSapiens)
		require.NoError(t, err)
		assert.Equal(t, 6, total)
		require.Len(t, pathways, 1)
		assert.Equal(t, testutil.PolyPathway, pathways[0].DBID)
	})

	t.Run("FiltersBySpecies", func(t *testing.T) {
		t.Parallel()
		src := testutil.NewSource()
		src.Graph().Get(testutil.PolyPathway).AddRef(graph.AttrSpecies, HomoSapiens)
		src.Add(
			graph.NewInstance(HomoSapiens, graph.ClassSpecies, "Homo sapiens"),
			graph.NewInstance(48898, graph.ClassSpecies, "Gallus gallus"),
			graph.NewInstance(3300, graph.ClassPathway, "Polymer handling").
				AddRef(graph.AttrHasEvent, testutil.Ubiquitinate).
				AddRef(graph.AttrSpecies, 48898),
		)

		pathways, total, err := PolymerPathways(ctx, src, HomoSapiens)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, pathways, 1)
		assert.Equal(t, testutil.PolyPathway, pathways[0].DBID)

		pathways, total, err = PolymerPathways(ctx, src, 48898)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, pathways, 1)
		assert.Equal(t, int64(3300), pathways[0].DBID)
	})

	t.Run("Unfiltered", func(t *testing.T) {
		t.Parallel()
		src := testutil.NewSource()
		src.Add(graph.NewInstance(HomoSapiens, graph.ClassSpecies, "Homo sapiens"))

		_, total, err := PolymerPathways(ctx, src, 0)
		require.NoError(t, err)
		assert.Equal(t, 6, total)
	})
}

func TestCatalystActivities(t *testing.T) {
	t.Parallel()

	src := testutil.NewSource()
	src.Add(
		graph.NewInstance(3400, graph.ClassPathway, "ATP hydrolysis pathway").AddRef(graph.AttrHasEvent, testutil.Hydrolysis),
		graph.NewInstance(3410, graph.ClassReaction, "glucose to G6P").AddRef(graph.AttrCatalystActivity, 3411),
		graph.NewInstance(3411, graph.ClassCatalystActivity, "hexokinase activity of HK1").AddRef(graph.AttrActivity, 3412),
		graph.NewInstance(3412, graph.ClassGOMolecularFunction, "hexokinase activity"),
		graph.NewInstance(3413, graph.ClassPathway, "Glucose phosphorylation").AddRef(graph.AttrHasEvent, 3410),
		graph.NewInstance(3420, graph.ClassReaction, "uncatalysed"),
		graph.NewInstance(3421, graph.ClassPathway, "Uncatalysed step").AddRef(graph.AttrHasEvent, 3420),
	)

	reports, total, err := CatalystActivities(context.Background(), src, HomoSapiens)
	require.NoError(t, err)
	assert.Equal(t, 9, total)
	require.Len(t, reports, 2)

	assert.Equal(t, int64(3400), reports[0].Pathway.DBID)
	assert.Nil(t, reports[0].Activity)

	assert.Equal(t, int64(3413), reports[1].Pathway.DBID)
	require.NotNil(t, reports[1].Activity)
	assert.Equal(t, "hexokinase activity", reports[1].Activity.DisplayName)
}

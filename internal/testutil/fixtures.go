// Package testutil provides a small Reactome-shaped record set used across
// package tests.
package testutil

import (
	"github.com/Benny93/reactome-sbml/internal/graph"
	"github.com/Benny93/reactome-sbml/internal/storage"
)

// DB_IDs of the fixture records.
const (
	Cytosol      int64 = 70101
	PlasmaMembr  int64 = 876
	H2O          int64 = 29356
	ATP          int64 = 113592
	ADP          int64 = 29370
	Pi           int64 = 29372
	HK1          int64 = 140 // EntityWithAccessionedSequence
	HK1Complex   int64 = 200
	HKSet        int64 = 300 // CandidateSet
	Imatinib     int64 = 400 // ChemicalDrug
	PolyUb       int64 = 500 // Polymer
	Electron     int64 = 600 // OtherEntity
	GeneProduct  int64 = 700 // GenomeEncodedEntity
	UnknownCell  int64 = 800 // class outside the schema
	Catalysis    int64 = 900
	PosReg       int64 = 910
	NegReg       int64 = 920
	PosRegHK1    int64 = 930
	Hydrolysis   int64 = 1001 // Reaction
	Phosphoryl   int64 = 1002 // BlackBoxEvent
	SetBinding   int64 = 1003 // Reaction, HK1 as reactant and regulator
	Ubiquitinate int64 = 1004 // FailedReaction with a Polymer input
	UnknownRxn   int64 = 1005 // Reaction with an entity of unknown class
	Glycolysis   int64 = 2000
	SubPathway   int64 = 2001
	EmptyPathway int64 = 2002
	CycleA       int64 = 2003
	CycleB       int64 = 2004
	PolyPathway  int64 = 2005
)

// Stable identifiers of the fixture events.
const (
	GlycolysisStID = "R-HSA-2000"
	HydrolysisStID = "R-HSA-1001"
)

// Release reported by the fixture source.
const Release = 75

func entity(dbID int64, class graph.Class, name string, compartments ...int64) *graph.Instance {
	inst := graph.NewInstance(dbID, class, name)
	inst.AddRef(graph.AttrCompartment, compartments...)
	return inst
}

func withStID(inst *graph.Instance, stID string) *graph.Instance {
	inst.StID = stID
	return inst
}

// Instances returns a fresh copy of every fixture record.
func Instances() []*graph.Instance {
	return []*graph.Instance{
		graph.NewInstance(Cytosol, graph.ClassCompartment, "cytosol").AddScalar("accession", "0005829"),
		graph.NewInstance(PlasmaMembr, graph.ClassCompartment, "plasma membrane").AddScalar("accession", "0005886"),

		withStID(entity(H2O, graph.ClassSimpleEntity, "H2O [cytosol]", Cytosol), "R-ALL-29356"),
		withStID(entity(ATP, graph.ClassSimpleEntity, "ATP [cytosol]", Cytosol), "R-ALL-113592"),
		withStID(entity(ADP, graph.ClassSimpleEntity, "ADP [cytosol]", Cytosol), "R-ALL-29370"),
		withStID(entity(Pi, graph.ClassSimpleEntity, "Pi [cytosol]", Cytosol), "R-ALL-29372"),
		withStID(entity(HK1, graph.ClassEntityWithAccessionedSequence, "HK1 [cytosol]", Cytosol), "R-HSA-140"),
		withStID(entity(HK1Complex, graph.ClassComplex, "HK1:Mg2+ [cytosol]", Cytosol).AddRef(graph.AttrHasComponent, HK1), "R-HSA-200"),
		withStID(entity(HKSet, graph.ClassCandidateSet, "HK [cytosol]", Cytosol).AddRef(graph.AttrHasMember, HK1), "R-HSA-300"),
		withStID(entity(Imatinib, graph.ClassChemicalDrug, "imatinib"), "R-ALL-400"),
		withStID(entity(PolyUb, graph.ClassPolymer, "polyUb [cytosol]", Cytosol), "R-HSA-500"),
		withStID(entity(Electron, graph.ClassOtherEntity, "electron [plasma membrane]", PlasmaMembr), "R-ALL-600"),
		withStID(entity(GeneProduct, graph.ClassGenomeEncodedEntity, "gene product [cytosol]", Cytosol), "R-HSA-700"),
		withStID(entity(UnknownCell, graph.Class("Cell"), "red blood cell"), "R-HSA-800"),

		graph.NewInstance(Catalysis, graph.ClassCatalystActivity, "hexokinase activity of HK1:Mg2+").AddRef(graph.AttrPhysicalEntity, HK1Complex),
		graph.NewInstance(PosReg, graph.ClassPositiveRegulation, "positive regulation by HK1").AddRef(graph.AttrRegulator, HK1),
		graph.NewInstance(NegReg, graph.ClassNegativeRegulation, "negative regulation by imatinib").AddRef(graph.AttrRegulator, Imatinib),
		graph.NewInstance(PosRegHK1, graph.ClassRequirement, "HK1 is required").AddRef(graph.AttrRegulator, HK1),

		withStID(graph.NewInstance(Hydrolysis, graph.ClassReaction, "ATP hydrolysis").
			AddRef(graph.AttrInput, ATP, H2O).
			AddRef(graph.AttrOutput, ADP, Pi).
			AddRef(graph.AttrCatalystActivity, Catalysis).
			AddRef(graph.AttrRegulatedBy, PosReg, NegReg).
			AddRef(graph.AttrCompartment, Cytosol), HydrolysisStID),
		withStID(graph.NewInstance(Phosphoryl, graph.ClassBlackBoxEvent, "glucose phosphorylation").
			AddRef(graph.AttrInput, ATP).
			AddRef(graph.AttrOutput, ADP, ADP), "R-HSA-1002"),
		withStID(graph.NewInstance(SetBinding, graph.ClassReaction, "HK set binding").
			AddRef(graph.AttrInput, HKSet, HK1).
			AddRef(graph.AttrRegulatedBy, PosRegHK1), "R-HSA-1003"),
		withStID(graph.NewInstance(Ubiquitinate, graph.ClassFailedReaction, "failed ubiquitination").
			AddRef(graph.AttrInput, PolyUb).
			AddRef(graph.AttrOutput, Electron, GeneProduct), "R-HSA-1004"),
		withStID(graph.NewInstance(UnknownRxn, graph.ClassReaction, "cell uptake").
			AddRef(graph.AttrInput, UnknownCell).
			AddRef(graph.AttrOutput, H2O), "R-HSA-1005"),

		withStID(graph.NewInstance(Glycolysis, graph.ClassPathway, "Glycolysis").
			AddRef(graph.AttrHasEvent, SubPathway, Hydrolysis), GlycolysisStID),
		withStID(graph.NewInstance(SubPathway, graph.ClassPathway, "Hexokinase steps").
			AddRef(graph.AttrHasEvent, Phosphoryl, SetBinding, Hydrolysis), "R-HSA-2001"),
		withStID(graph.NewInstance(EmptyPathway, graph.ClassPathway, "HIV transcription termination"), "R-HSA-2002"),
		withStID(graph.NewInstance(CycleA, graph.ClassPathway, "cycle A").
			AddRef(graph.AttrHasEvent, CycleB), "R-HSA-2003"),
		withStID(graph.NewInstance(CycleB, graph.ClassPathway, "cycle B").
			AddRef(graph.AttrHasEvent, CycleA, Hydrolysis), "R-HSA-2004"),
		withStID(graph.NewInstance(PolyPathway, graph.ClassPathway, "Polymer handling").
			AddRef(graph.AttrHasEvent, Ubiquitinate), "R-HSA-2005"),
	}
}

// NewSource returns a memory backend loaded with the fixture records.
func NewSource() *storage.MemoryBackend {
	m := storage.NewMemoryBackend().Add(Instances()...)
	m.SetInfo(storage.DBInfo{Name: "reactome", Version: Release})
	return m
}

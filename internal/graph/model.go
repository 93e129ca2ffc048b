// Package graph provides the raw record model for Reactome data.
//
// Records are schema-typed instances (pathways, reactions, physical entities,
// compartments, ...) whose attributes reference other instances by DB_ID.
// Storage backends return these records; the converter turns them into
// strongly typed domain objects.
package graph

import (
	"strconv"
)

// Class is a Reactome schema class name.
type Class string

const (
	ClassDatabaseObject Class = "DatabaseObject"

	ClassEvent             Class = "Event"
	ClassPathway           Class = "Pathway"
	ClassReactionLikeEvent Class = "ReactionLikeEvent"
	ClassReaction          Class = "Reaction"
	ClassBlackBoxEvent     Class = "BlackBoxEvent"
	ClassPolymerisation    Class = "Polymerisation"
	ClassDepolymerisation  Class = "Depolymerisation"
	ClassFailedReaction    Class = "FailedReaction"

	ClassPhysicalEntity                Class = "PhysicalEntity"
	ClassSimpleEntity                  Class = "SimpleEntity"
	ClassGenomeEncodedEntity           Class = "GenomeEncodedEntity"
	ClassEntityWithAccessionedSequence Class = "EntityWithAccessionedSequence"
	ClassComplex                       Class = "Complex"
	ClassPolymer                       Class = "Polymer"
	ClassOtherEntity                   Class = "OtherEntity"
	ClassDrug                          Class = "Drug"
	ClassChemicalDrug                  Class = "ChemicalDrug"
	ClassProteinDrug                   Class = "ProteinDrug"
	ClassRNADrug                       Class = "RNADrug"
	ClassEntitySet                     Class = "EntitySet"
	ClassDefinedSet                    Class = "DefinedSet"
	ClassCandidateSet                  Class = "CandidateSet"
	ClassOpenSet                       Class = "OpenSet"

	ClassCompartment         Class = "Compartment"
	ClassEntityCompartment   Class = "EntityCompartment"
	ClassGOCellularComponent Class = "GO_CellularComponent"
	ClassGOMolecularFunction Class = "GO_MolecularFunction"

	ClassCatalystActivity                 Class = "CatalystActivity"
	ClassRegulation                       Class = "Regulation"
	ClassPositiveRegulation               Class = "PositiveRegulation"
	ClassPositiveGeneExpressionRegulation Class = "PositiveGeneExpressionRegulation"
	ClassRequirement                      Class = "Requirement"
	ClassNegativeRegulation               Class = "NegativeRegulation"
	ClassNegativeGeneExpressionRegulation Class = "NegativeGeneExpressionRegulation"

	ClassStableIdentifier Class = "StableIdentifier"
	ClassSpecies          Class = "Species"
)

// Attribute names used by the exporter.
const (
	AttrHasEvent         = "hasEvent"
	AttrInput            = "input"
	AttrOutput           = "output"
	AttrCatalystActivity = "catalystActivity"
	AttrPhysicalEntity   = "physicalEntity"
	AttrRegulatedBy      = "regulatedBy"
	AttrRegulator        = "regulator"
	AttrCompartment      = "compartment"
	AttrHasComponent     = "hasComponent"
	AttrHasMember        = "hasMember"
	AttrStID             = "stId"
	AttrDisplayName      = "displayName"
	AttrSpecies          = "species"
	AttrActivity         = "activity"
)

// Value is a single attribute value. Exactly one of Ref or Scalar is meaningful:
// Ref is the DB_ID of a referenced instance, Scalar holds a literal.
type Value struct {
	Ref    int64  `json:"ref,omitempty"`
	Scalar string `json:"scalar,omitempty"`
}

// IsRef reports whether the value references another instance.
func (v Value) IsRef() bool {
	return v.Ref != 0
}

// RefValue wraps a DB_ID reference.
func RefValue(dbID int64) Value {
	return Value{Ref: dbID}
}

// ScalarValue wraps a literal value.
func ScalarValue(s string) Value {
	return Value{Scalar: s}
}

// Instance is a raw Reactome record.
type Instance struct {
	// DBID is the internal numeric identifier.
	DBID int64 `json:"dbId"`

	// StID is the stable identifier (e.g. R-HSA-69620), empty if none.
	StID string `json:"stId,omitempty"`

	// Class is the most specific schema class of the record.
	Class Class `json:"schemaClass"`

	// DisplayName is the human readable name.
	DisplayName string `json:"displayName,omitempty"`

	// Attributes holds multi-valued attributes in rank order. A reference
	// repeated N times stands for a stoichiometry of N.
	Attributes map[string][]Value `json:"attributes,omitempty"`
}

// NewInstance creates an instance with an empty attribute map.
func NewInstance(dbID int64, class Class, displayName string) *Instance {
	return &Instance{
		DBID:        dbID,
		Class:       class,
		DisplayName: displayName,
		Attributes:  make(map[string][]Value),
	}
}

// IsA reports whether the instance's class is, or descends from, ancestor.
func (i *Instance) IsA(ancestor Class) bool {
	return i.Class.IsA(ancestor)
}

// AddRef appends a reference to another instance.
func (i *Instance) AddRef(attr string, dbIDs ...int64) *Instance {
	if i.Attributes == nil {
		i.Attributes = make(map[string][]Value)
	}
	for _, id := range dbIDs {
		i.Attributes[attr] = append(i.Attributes[attr], RefValue(id))
	}
	return i
}

// AddScalar appends literal values.
func (i *Instance) AddScalar(attr string, values ...string) *Instance {
	if i.Attributes == nil {
		i.Attributes = make(map[string][]Value)
	}
	for _, v := range values {
		i.Attributes[attr] = append(i.Attributes[attr], ScalarValue(v))
	}
	return i
}

// Refs returns the referenced DB_IDs of an attribute in rank order,
// including repeats.
func (i *Instance) Refs(attr string) []int64 {
	var refs []int64
	for _, v := range i.Attributes[attr] {
		if v.IsRef() {
			refs = append(refs, v.Ref)
		}
	}
	return refs
}

// Strings returns the scalar values of an attribute.
func (i *Instance) Strings(attr string) []string {
	var out []string
	for _, v := range i.Attributes[attr] {
		if !v.IsRef() {
			out = append(out, v.Scalar)
		}
	}
	return out
}

// Int returns the first scalar value of attr parsed as an integer.
func (i *Instance) Int(attr string) (int, bool) {
	for _, s := range i.Strings(attr) {
		n, err := strconv.Atoi(s)
		if err == nil {
			return n, true
		}
	}
	return 0, false
}

// String renders the instance the way error messages identify records.
func (i *Instance) String() string {
	if i == nil {
		return "<nil>"
	}
	return i.DisplayName + " [" + string(i.Class) + ":" + strconv.FormatInt(i.DBID, 10) + "]"
}

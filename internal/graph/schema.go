package graph

import "sort"

// parents maps each known class to its direct superclass.
var parents = map[Class]Class{
	ClassEvent:             ClassDatabaseObject,
	ClassPathway:           ClassEvent,
	ClassReactionLikeEvent: ClassEvent,
	ClassReaction:          ClassReactionLikeEvent,
	ClassBlackBoxEvent:     ClassReactionLikeEvent,
	ClassPolymerisation:    ClassReactionLikeEvent,
	ClassDepolymerisation:  ClassReactionLikeEvent,
	ClassFailedReaction:    ClassReactionLikeEvent,

	ClassPhysicalEntity:                ClassDatabaseObject,
	ClassSimpleEntity:                  ClassPhysicalEntity,
	ClassGenomeEncodedEntity:           ClassPhysicalEntity,
	ClassEntityWithAccessionedSequence: ClassGenomeEncodedEntity,
	ClassComplex:                       ClassPhysicalEntity,
	ClassPolymer:                       ClassPhysicalEntity,
	ClassOtherEntity:                   ClassPhysicalEntity,
	ClassDrug:                          ClassPhysicalEntity,
	ClassChemicalDrug:                  ClassDrug,
	ClassProteinDrug:                   ClassDrug,
	ClassRNADrug:                       ClassDrug,
	ClassEntitySet:                     ClassPhysicalEntity,
	ClassDefinedSet:                    ClassEntitySet,
	ClassCandidateSet:                  ClassEntitySet,
	ClassOpenSet:                       ClassEntitySet,

	ClassCompartment:         ClassGOCellularComponent,
	ClassEntityCompartment:   ClassCompartment,
	ClassGOCellularComponent: ClassDatabaseObject,
	ClassGOMolecularFunction: ClassDatabaseObject,

	ClassCatalystActivity:                 ClassDatabaseObject,
	ClassRegulation:                       ClassDatabaseObject,
	ClassPositiveRegulation:               ClassRegulation,
	ClassPositiveGeneExpressionRegulation: ClassPositiveRegulation,
	ClassRequirement:                      ClassPositiveRegulation,
	ClassNegativeRegulation:               ClassRegulation,
	ClassNegativeGeneExpressionRegulation: ClassNegativeRegulation,

	ClassStableIdentifier: ClassDatabaseObject,
	ClassSpecies:          ClassDatabaseObject,
}

// Known reports whether the class is part of the schema this exporter knows.
func (c Class) Known() bool {
	if c == ClassDatabaseObject {
		return true
	}
	_, ok := parents[c]
	return ok
}

// Parent returns the direct superclass, or "" for the root or unknown classes.
func (c Class) Parent() Class {
	return parents[c]
}

// IsA reports whether c equals ancestor or descends from it.
func (c Class) IsA(ancestor Class) bool {
	for cur := c; cur != ""; cur = parents[cur] {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// Lineage returns c followed by its superclasses up to DatabaseObject.
func (c Class) Lineage() []Class {
	var out []Class
	for cur := c; cur != ""; cur = parents[cur] {
		out = append(out, cur)
	}
	return out
}

// Classes returns every known schema class in sorted order.
func Classes() []Class {
	out := []Class{ClassDatabaseObject}
	for c := range parents {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseClass returns the known class with the given name.
func ParseClass(name string) (Class, bool) {
	c := Class(name)
	return c, c.Known()
}

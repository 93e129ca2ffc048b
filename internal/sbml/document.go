// Package sbml holds an SBML Level 3 Version 1 document model, a builder for
// it, and the assembler that turns collected Reactome events into a document.
package sbml

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// Namespaces written into exported documents.
const (
	NamespaceCore   = "http://www.sbml.org/sbml/level3/version1/core"
	NamespaceXHTML  = "http://www.w3.org/1999/xhtml"
	NamespaceRDF    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespaceBQBiol = "http://biomodels.net/biology-qualifiers/"
)

const writerBufferSize = 256 * 1024 // 256 KB

// Document is the <sbml> root element.
type Document struct {
	XMLName xml.Name `xml:"sbml"`
	XMLNS   string   `xml:"xmlns,attr"`
	Level   int      `xml:"level,attr"`
	Version int      `xml:"version,attr"`
	Model   *Model   `xml:"model"`
}

// NewDocument creates an empty L3V1 document around model.
func NewDocument(model *Model) *Document {
	return &Document{XMLNS: NamespaceCore, Level: 3, Version: 1, Model: model}
}

// Model is the <model> element.
type Model struct {
	MetaID       string         `xml:"metaid,attr,omitempty"`
	ID           string         `xml:"id,attr"`
	Name         string         `xml:"name,attr,omitempty"`
	Notes        *Notes         `xml:"notes"`
	Annotation   *Annotation    `xml:"annotation"`
	Compartments []*Compartment `xml:"listOfCompartments>compartment"`
	Species      []*Species     `xml:"listOfSpecies>species"`
	Reactions    []*Reaction    `xml:"listOfReactions>reaction"`
}

// Compartment is a <compartment> element.
type Compartment struct {
	MetaID   string `xml:"metaid,attr,omitempty"`
	ID       string `xml:"id,attr"`
	Name     string `xml:"name,attr,omitempty"`
	Constant bool   `xml:"constant,attr"`
	SBOTerm  string `xml:"sboTerm,attr,omitempty"`
}

// Species is a <species> element.
type Species struct {
	MetaID                string      `xml:"metaid,attr,omitempty"`
	ID                    string      `xml:"id,attr"`
	Name                  string      `xml:"name,attr,omitempty"`
	Compartment           string      `xml:"compartment,attr"`
	HasOnlySubstanceUnits bool        `xml:"hasOnlySubstanceUnits,attr"`
	BoundaryCondition     bool        `xml:"boundaryCondition,attr"`
	Constant              bool        `xml:"constant,attr"`
	SBOTerm               string      `xml:"sboTerm,attr,omitempty"`
	Annotation            *Annotation `xml:"annotation"`
}

// Reaction is a <reaction> element.
type Reaction struct {
	MetaID      string                      `xml:"metaid,attr,omitempty"`
	ID          string                      `xml:"id,attr"`
	Name        string                      `xml:"name,attr,omitempty"`
	Compartment string                      `xml:"compartment,attr,omitempty"`
	Reversible  bool                        `xml:"reversible,attr"`
	Fast        bool                        `xml:"fast,attr"`
	Annotation  *Annotation                 `xml:"annotation"`
	Reactants   []*SpeciesReference         `xml:"listOfReactants>speciesReference"`
	Products    []*SpeciesReference         `xml:"listOfProducts>speciesReference"`
	Modifiers   []*ModifierSpeciesReference `xml:"listOfModifiers>modifierSpeciesReference"`
}

// SpeciesReference is a reactant or product of a reaction.
type SpeciesReference struct {
	Species       string  `xml:"species,attr"`
	Stoichiometry float64 `xml:"stoichiometry,attr"`
	Constant      bool    `xml:"constant,attr"`
	SBOTerm       string  `xml:"sboTerm,attr,omitempty"`
}

// ModifierSpeciesReference is a catalyst or regulator of a reaction.
type ModifierSpeciesReference struct {
	Species string `xml:"species,attr"`
	SBOTerm string `xml:"sboTerm,attr,omitempty"`
}

// Notes is a <notes> element holding an XHTML body.
type Notes struct {
	Body NotesBody `xml:"body"`
}

// NotesBody is the XHTML body of a notes element.
type NotesBody struct {
	XMLNS      string   `xml:"xmlns,attr"`
	Paragraphs []string `xml:"p"`
}

// NewNotes creates notes with one paragraph per line.
func NewNotes(paragraphs ...string) *Notes {
	return &Notes{Body: NotesBody{XMLNS: NamespaceXHTML, Paragraphs: paragraphs}}
}

// Annotation is an <annotation> element carrying MIRIAM RDF.
type Annotation struct {
	RDF RDF `xml:"rdf:RDF"`
}

// RDF is the rdf:RDF block of an annotation.
type RDF struct {
	XMLNSRDF     string        `xml:"xmlns:rdf,attr"`
	XMLNSBQBiol  string        `xml:"xmlns:bqbiol,attr"`
	Descriptions []Description `xml:"rdf:Description"`
}

// Description states what the element with a given metaid is.
type Description struct {
	About string  `xml:"rdf:about,attr"`
	Is    []RDFLi `xml:"bqbiol:is>rdf:Bag>rdf:li"`
}

// RDFLi is one resource in an rdf:Bag.
type RDFLi struct {
	Resource string `xml:"rdf:resource,attr"`
}

// NewIsAnnotation states that the element with metaID is each of resources.
func NewIsAnnotation(metaID string, resources ...string) *Annotation {
	desc := Description{About: "#" + metaID}
	for _, r := range resources {
		desc.Is = append(desc.Is, RDFLi{Resource: r})
	}
	return &Annotation{RDF: RDF{
		XMLNSRDF:     NamespaceRDF,
		XMLNSBQBiol:  NamespaceBQBiol,
		Descriptions: []Description{desc},
	}}
}

// WriteTo writes the document with an XML header, indented by two spaces.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriterSize(cw, writerBufferSize)

	if _, err := bw.WriteString(xml.Header); err != nil {
		return cw.n, err
	}
	enc := xml.NewEncoder(bw)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return cw.n, fmt.Errorf("encoding sbml: %w", err)
	}
	if err := bw.WriteByte('\n'); err != nil {
		return cw.n, err
	}
	if err := bw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// WriteFile writes the document to path, replacing any existing file.
func (d *Document) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := d.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Marshal returns the serialised document.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

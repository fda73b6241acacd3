package domain

import (
	"slices"

	"golang.org/x/text/language"
)

// Namespaces used by vocabulary exports.
const (
	NamespaceSKOS     = "http://www.w3.org/2004/02/skos/core#"
	NamespaceDCTerms  = "http://purl.org/dc/terms/"
	NamespaceRDFS     = "http://www.w3.org/2000/01/rdf-schema#"
	NamespacePopisDat = "http://onto.fel.cvut.cz/ontologies/slovnik/agendovy/popis-dat/pojem/"
	NamespaceTermit   = "http://onto.fel.cvut.cz/ontologies/application/termit/pojem/"
)

// Type IRIs.
const (
	TypeVocabulary         = NamespacePopisDat + "slovnik"
	TypeTerm               = NamespaceSKOS + "Concept"
	TypeVocabularySnapshot = NamespaceTermit + "verze-slovniku"
	TypeReadOnly           = NamespaceTermit + "slovnik-pouze-pro-cteni"
)

// Property IRIs.
const (
	PropTitle                = NamespaceDCTerms + "title"
	PropDescription          = NamespaceDCTerms + "description"
	PropDescribesDocument    = NamespacePopisDat + "popisuje-dokument"
	PropHasGlossary          = NamespacePopisDat + "ma-glosar"
	PropHasModel             = NamespacePopisDat + "ma-model"
	PropImportsVocabulary    = NamespacePopisDat + "importuje-slovnik"
	PropHasAccessLevel       = NamespaceTermit + "ma-uroven-pristupovych-prav"
	PropIsSnapshotOf         = NamespaceTermit + "je-verzi-slovniku"
	PropSnapshotCreated      = NamespaceTermit + "ma-datum-a-cas-vytvoreni-verze"
	PropPrefLabel            = NamespaceSKOS + "prefLabel"
	PropAltLabel             = NamespaceSKOS + "altLabel"
	PropDefinition           = NamespaceSKOS + "definition"
	PropScopeNote            = NamespaceSKOS + "scopeNote"
	PropBroader              = NamespaceSKOS + "broader"
	PropInScheme             = NamespaceSKOS + "inScheme"
	PropIsTermFromVocabulary = NamespacePopisDat + "je-pojmem-ze-slovniku"
)

// Properties holds property values not mapped to a record field, keyed by
// property IRI. Values keep their source order.
type Properties map[string][]string

// First returns the first value of the property and whether it is present.
func (p Properties) First(iri string) (string, bool) {
	values, ok := p[iri]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// Add appends a value to the property.
func (p Properties) Add(iri, value string) {
	p[iri] = append(p[iri], value)
}

// Vocabulary is a vocabulary asset.
type Vocabulary struct {
	IRI                  string             `json:"iri"`
	Types                []string           `json:"types"`
	Label                MultilingualString `json:"label"`
	Comment              MultilingualString `json:"comment,omitempty"`
	Document             string             `json:"document,omitempty"`
	Glossary             string             `json:"glossary,omitempty"`
	Model                string             `json:"model,omitempty"`
	ImportedVocabularies []string           `json:"importedVocabularies,omitempty"`
	AccessLevel          string             `json:"accessLevel,omitempty"`
	Properties           Properties         `json:"properties,omitempty"`
}

// EnsureType adds the vocabulary type if missing.
func (v *Vocabulary) EnsureType() {
	if !slices.Contains(v.Types, TypeVocabulary) {
		v.Types = append(v.Types, TypeVocabulary)
	}
}

// HasType reports whether the vocabulary carries the given type IRI.
func (v *Vocabulary) HasType(typ string) bool {
	return slices.Contains(v.Types, typ)
}

// IsSnapshot reports whether the vocabulary is a snapshot of another one.
func (v *Vocabulary) IsSnapshot() bool {
	return v.HasType(TypeVocabularySnapshot)
}

// SnapshotOf returns the IRI of the vocabulary this snapshot was taken from.
func (v *Vocabulary) SnapshotOf() (string, bool) {
	return v.Properties.First(PropIsSnapshotOf)
}

// SnapshotCreated returns the snapshot creation timestamp as recorded.
func (v *Vocabulary) SnapshotCreated() (string, bool) {
	return v.Properties.First(PropSnapshotCreated)
}

// IsEditable reports whether the vocabulary is neither a snapshot nor read-only.
func (v *Vocabulary) IsEditable() bool {
	return !v.IsSnapshot() && !v.HasType(TypeReadOnly)
}

// DisplayLabel returns the label in the preferred language.
func (v *Vocabulary) DisplayLabel(preferred language.Tag) string {
	return v.Label.Value(preferred)
}

// Term is a term (concept) asset.
type Term struct {
	IRI        string             `json:"iri"`
	Types      []string           `json:"types"`
	Label      MultilingualString `json:"label"`
	AltLabels  []LocalizedLiteral `json:"altLabels,omitempty"`
	Definition MultilingualString `json:"definition,omitempty"`
	ScopeNote  MultilingualString `json:"scopeNote,omitempty"`
	Vocabulary string             `json:"vocabulary,omitempty"`
	Parents    []string           `json:"parentTerms,omitempty"`
	Properties Properties         `json:"properties,omitempty"`
}

// EnsureType adds the term type if missing.
func (t *Term) EnsureType() {
	if !slices.Contains(t.Types, TypeTerm) {
		t.Types = append(t.Types, TypeTerm)
	}
}

// HasType reports whether the term carries the given type IRI.
func (t *Term) HasType(typ string) bool {
	return slices.Contains(t.Types, typ)
}

// DisplayLabel returns the label in the preferred language.
func (t *Term) DisplayLabel(preferred language.Tag) string {
	return t.Label.Value(preferred)
}

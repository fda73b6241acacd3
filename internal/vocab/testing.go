package vocab

import (
	"os"
	"path/filepath"
	"testing"
)

// Sample asset IRIs of SampleGlossary.
const (
	SampleVocabularyIRI = "http://example.org/vocabulary/buildings"
	SampleBuildingIRI   = "http://example.org/vocabulary/buildings/term/building"
	SampleRoofIRI       = "http://example.org/vocabulary/buildings/term/roof"
	SampleWallIRI       = "http://example.org/vocabulary/buildings/term/wall"
)

// SampleGlossary is a small vocabulary export used by tests. Searching for
// "building" matches the vocabulary comment, the label and definition of the
// building term and the definition of the roof term.
const SampleGlossary = `{
  "@graph": [
    {
      "iri": "http://example.org/vocabulary/buildings",
      "types": ["http://onto.fel.cvut.cz/ontologies/slovnik/agendovy/popis-dat/pojem/slovnik"],
      "label": {"en": "Construction glossary", "cs": "Stavební slovník"},
      "comment": {"en": "Terms describing a building and its parts"}
    },
    {
      "iri": "http://example.org/vocabulary/buildings/term/building",
      "types": ["http://www.w3.org/2004/02/skos/core#Concept"],
      "label": {"en": "Building", "cs": "Budova"},
      "altLabels": [{"@value": "Edifice", "@language": "en"}],
      "definition": {"en": "A building is a structure with a roof and walls"}
    },
    {
      "iri": "http://example.org/vocabulary/buildings/term/roof",
      "types": ["http://www.w3.org/2004/02/skos/core#Concept"],
      "label": {"en": "Roof", "cs": "Střecha"},
      "definition": {"en": "The covering on the top of a building"},
      "parentTerms": [{"iri": "http://example.org/vocabulary/buildings/term/building"}]
    },
    {
      "iri": "http://example.org/vocabulary/buildings/term/wall",
      "types": ["http://www.w3.org/2004/02/skos/core#Concept"],
      "label": {"en": "Wall", "cs": "Zeď"},
      "definition": {"en": "A vertical structure that encloses a space"},
      "scopeNote": {"en": "Load-bearing or partition"}
    }
  ]
}`

// WriteSampleSource writes SampleGlossary into a new directory under dir and
// returns the directory path.
func WriteSampleSource(t testing.TB, dir string) string {
	t.Helper()
	src := filepath.Join(dir, "glossaries")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatalf("failed to create source directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "buildings.jsonld"), []byte(SampleGlossary), 0644); err != nil {
		t.Fatalf("failed to write sample glossary: %v", err)
	}
	return src
}

package domain

import "slices"

// LabelField is the matched field name of a label match. Snippets from this
// field are always listed first in an aggregated result.
const LabelField = "label"

// RawSearchHit is a single match of a search query against one field of one
// asset. Several hits may reference the same asset through different fields.
type RawSearchHit struct {
	// IRI identifies the matched asset.
	IRI string `json:"iri"`

	// Label is the display label of the matched asset.
	Label string `json:"label,omitempty"`

	// Vocabulary is the IRI of the vocabulary the asset belongs to, if any.
	Vocabulary string `json:"vocabulary,omitempty"`

	// Score is the relevance of this field match. A missing score decodes as 0.
	Score float64 `json:"score,omitempty"`

	// SnippetField is the name of the field the match occurred in.
	SnippetField string `json:"snippetField"`

	// SnippetText is the excerpt showing the match context.
	SnippetText string `json:"snippetText"`

	// Types are the type IRIs of the matched asset.
	Types []string `json:"types,omitempty"`
}

// SearchResult is the merged representation of all hits referring to the same
// asset.
type SearchResult struct {
	IRI           string   `json:"iri"`
	Label         string   `json:"label,omitempty"`
	Vocabulary    string   `json:"vocabulary,omitempty"`
	Types         []string `json:"types,omitempty"`
	TotalScore    float64  `json:"totalScore"`
	Snippets      []string `json:"snippets"`
	SnippetFields []string `json:"snippetFields"`
}

// HasType reports whether the result carries the given type IRI.
func (r *SearchResult) HasType(typ string) bool {
	return slices.Contains(r.Types, typ)
}

// IsVocabulary reports whether the result refers to a vocabulary.
func (r *SearchResult) IsVocabulary() bool {
	return r.HasType(TypeVocabulary)
}

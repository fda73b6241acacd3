package domain

// Asset kinds stored in the index.
const (
	KindVocabulary = "vocabulary"
	KindTerm       = "term"
)

// AssetDocument is a vocabulary or term as stored in the bleve index.
type AssetDocument struct {
	// ID is the document ID, equal to the asset IRI.
	ID string `json:"id"`

	// Kind is KindVocabulary or KindTerm.
	Kind string `json:"kind"`

	// Types are the asset type IRIs.
	Types []string `json:"types"`

	// Label is the label in the configured language. AltLabel holds the label
	// in all other languages followed by the alternative labels.
	Label    string   `json:"label"`
	AltLabel []string `json:"altLabel,omitempty"`

	// Definition is the term definition. Vocabularies have none.
	Definition string `json:"definition,omitempty"`

	// Comment is the vocabulary description or the term scope note.
	Comment string `json:"comment,omitempty"`

	// Vocabulary is the IRI of the owning vocabulary; a vocabulary refers to itself.
	Vocabulary string `json:"vocabulary,omitempty"`

	// Source is the file the asset was loaded from.
	Source string `json:"source"`

	// Body is the asset record serialized as JSON, used to answer lookups.
	Body string `json:"body"`
}

// Bleve field name constants for consistent field references in queries and mappings.
const (
	FieldID         = "id"
	FieldKind       = "kind"
	FieldTypes      = "types"
	FieldLabel      = LabelField
	FieldAltLabel   = "altLabel"
	FieldDefinition = "definition"
	FieldComment    = "comment"
	FieldVocabulary = "vocabulary"
	FieldSource     = "source"
	FieldBody       = "body"
)

// SearchableFields are the fields a search query is matched against, in
// priority order.
var SearchableFields = []string{FieldLabel, FieldAltLabel, FieldDefinition, FieldComment}

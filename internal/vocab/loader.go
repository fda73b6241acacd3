package vocab

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/sha1n/mcp-vocab-server/internal/domain"
)

var (
	// ErrMissingIRI indicates a vocabulary or term node without an identifier
	ErrMissingIRI = errors.New("node has no IRI")

	// ErrInvalidDocument indicates JSON that is not a node, node array or graph
	ErrInvalidDocument = errors.New("expected a JSON-LD node, node array or @graph object")
)

// Document is the content of one JSON-LD file.
type Document struct {
	// Path is the file the document was loaded from; empty for Parse.
	Path string

	Vocabularies []domain.Vocabulary
	Terms        []domain.Term

	// Skipped counts nodes that are neither vocabularies nor terms.
	Skipped int
}

// Prefixes expanded in compact IRIs.
var prefixes = map[string]string{
	"skos":    domain.NamespaceSKOS,
	"dcterms": domain.NamespaceDCTerms,
	"rdfs":    domain.NamespaceRDFS,
	"pdp":     domain.NamespacePopisDat,
	"termit":  domain.NamespaceTermit,
}

// Compact keys accepted for vocabulary nodes, mapped to property IRIs.
var vocabularyKeys = map[string]string{
	"label":                domain.PropTitle,
	"comment":              domain.PropDescription,
	"document":             domain.PropDescribesDocument,
	"glossary":             domain.PropHasGlossary,
	"model":                domain.PropHasModel,
	"importedVocabularies": domain.PropImportsVocabulary,
	"accessLevel":          domain.PropHasAccessLevel,
}

// Compact keys accepted for term nodes, mapped to property IRIs.
var termKeys = map[string]string{
	"label":       domain.PropPrefLabel,
	"altLabels":   domain.PropAltLabel,
	"definition":  domain.PropDefinition,
	"scopeNote":   domain.PropScopeNote,
	"vocabulary":  domain.PropIsTermFromVocabulary,
	"parentTerms": domain.PropBroader,
}

// LoadFile reads and parses a JSON-LD file.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// Parse reads a JSON-LD document: a single node object, an array of nodes or
// an object with an @graph array. Nodes typed as vocabularies or terms are
// returned; other nodes are counted as skipped. Terms without a vocabulary
// inherit it when the document holds exactly one vocabulary.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	nodes, err := splitNodes(data)
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	for i, raw := range nodes {
		if err := doc.addNode(raw); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
	}

	if len(doc.Vocabularies) == 1 {
		owner := doc.Vocabularies[0].IRI
		for i := range doc.Terms {
			if doc.Terms[i].Vocabulary == "" {
				doc.Terms[i].Vocabulary = owner
			}
		}
	}

	return doc, nil
}

func splitNodes(data []byte) ([]map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrInvalidDocument
	}

	switch trimmed[0] {
	case '[':
		var nodes []map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &nodes); err != nil {
			return nil, fmt.Errorf("failed to parse node array: %w", err)
		}
		return nodes, nil
	case '{':
		var node map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &node); err != nil {
			return nil, fmt.Errorf("failed to parse node: %w", err)
		}
		graph, ok := node["@graph"]
		if !ok {
			return []map[string]json.RawMessage{node}, nil
		}
		var nodes []map[string]json.RawMessage
		if err := json.Unmarshal(graph, &nodes); err != nil {
			return nil, fmt.Errorf("failed to parse @graph: %w", err)
		}
		return nodes, nil
	default:
		return nil, ErrInvalidDocument
	}
}

func (d *Document) addNode(node map[string]json.RawMessage) error {
	types, err := nodeTypes(node)
	if err != nil {
		return err
	}

	switch {
	case slices.Contains(types, domain.TypeVocabulary):
		v, err := parseVocabulary(node, types)
		if err != nil {
			return err
		}
		d.Vocabularies = append(d.Vocabularies, *v)
	case slices.Contains(types, domain.TypeTerm):
		t, err := parseTerm(node, types)
		if err != nil {
			return err
		}
		d.Terms = append(d.Terms, *t)
	default:
		d.Skipped++
	}
	return nil
}

func parseVocabulary(node map[string]json.RawMessage, types []string) (*domain.Vocabulary, error) {
	iri, err := nodeIRI(node)
	if err != nil {
		return nil, err
	}

	v := &domain.Vocabulary{IRI: iri, Types: types, Properties: domain.Properties{}}
	for _, key := range slices.Sorted(maps.Keys(node)) {
		raw := node[key]
		prop := propertyIRI(key, vocabularyKeys)
		if prop == "" {
			continue
		}
		values, err := domain.DecodeValues(normalizeReferences(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}

		switch prop {
		case domain.PropTitle:
			v.Label = domain.NewMultilingualString(values)
		case domain.PropDescription:
			v.Comment = domain.NewMultilingualString(values)
		case domain.PropDescribesDocument:
			v.Document = firstString(values)
		case domain.PropHasGlossary:
			v.Glossary = firstString(values)
		case domain.PropHasModel:
			v.Model = firstString(values)
		case domain.PropImportsVocabulary:
			v.ImportedVocabularies = valueStrings(values)
		case domain.PropHasAccessLevel:
			v.AccessLevel = firstString(values)
		default:
			for _, val := range values {
				v.Properties.Add(prop, domain.ValueString(val))
			}
		}
	}
	v.EnsureType()
	return v, nil
}

func parseTerm(node map[string]json.RawMessage, types []string) (*domain.Term, error) {
	iri, err := nodeIRI(node)
	if err != nil {
		return nil, err
	}

	t := &domain.Term{IRI: iri, Types: types, Properties: domain.Properties{}}
	for _, key := range slices.Sorted(maps.Keys(node)) {
		raw := node[key]
		prop := propertyIRI(key, termKeys)
		if prop == "" {
			continue
		}
		values, err := domain.DecodeValues(normalizeReferences(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}

		switch prop {
		case domain.PropPrefLabel:
			t.Label = domain.NewMultilingualString(values)
		case domain.PropAltLabel:
			t.AltLabels = literals(values)
		case domain.PropDefinition:
			t.Definition = domain.NewMultilingualString(values)
		case domain.PropScopeNote:
			t.ScopeNote = domain.NewMultilingualString(values)
		case domain.PropIsTermFromVocabulary, domain.PropInScheme:
			if t.Vocabulary == "" {
				t.Vocabulary = firstString(values)
			}
		case domain.PropBroader:
			t.Parents = append(t.Parents, valueStrings(values)...)
		default:
			for _, val := range values {
				t.Properties.Add(prop, domain.ValueString(val))
			}
		}
	}
	t.EnsureType()
	return t, nil
}

// propertyIRI resolves a node key to a property IRI. It returns "" for keys
// that carry no property: identifier, types and context.
func propertyIRI(key string, compact map[string]string) string {
	switch key {
	case "@id", "iri", "@type", "types", "@context", "@graph":
		return ""
	}
	if iri, ok := compact[key]; ok {
		return iri
	}
	return expandIRI(key)
}

func expandIRI(s string) string {
	prefix, local, ok := strings.Cut(s, ":")
	if !ok || strings.HasPrefix(local, "//") {
		return s
	}
	if ns, known := prefixes[prefix]; known {
		return ns + local
	}
	return s
}

func nodeIRI(node map[string]json.RawMessage) (string, error) {
	for _, key := range []string{"@id", "iri"} {
		raw, ok := node[key]
		if !ok {
			continue
		}
		var iri string
		if err := json.Unmarshal(raw, &iri); err != nil {
			return "", fmt.Errorf("%s must be a string: %w", key, err)
		}
		if iri != "" {
			return iri, nil
		}
	}
	return "", ErrMissingIRI
}

func nodeTypes(node map[string]json.RawMessage) ([]string, error) {
	var types []string
	for _, key := range []string{"@type", "types"} {
		raw, ok := node[key]
		if !ok {
			continue
		}
		values, err := domain.DecodeValues(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		for _, v := range values {
			typ := expandIRI(domain.ValueString(v))
			if !slices.Contains(types, typ) {
				types = append(types, typ)
			}
		}
	}
	return types, nil
}

// normalizeReferences rewrites {"iri": x} objects into {"@id": x} so that
// compact references decode like expanded ones.
func normalizeReferences(raw json.RawMessage) json.RawMessage {
	if !bytes.Contains(raw, []byte(`"iri"`)) {
		return raw
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return raw
	}
	out, err := json.Marshal(rewriteIRIKey(decoded))
	if err != nil {
		return raw
	}
	return out
}

func rewriteIRIKey(v any) any {
	switch val := v.(type) {
	case []any:
		for i := range val {
			val[i] = rewriteIRIKey(val[i])
		}
		return val
	case map[string]any:
		if iri, ok := val["iri"].(string); ok {
			if _, hasID := val["@id"]; !hasID {
				return map[string]any{"@id": iri}
			}
		}
		return val
	default:
		return v
	}
}

func firstString(values []domain.Value) string {
	if len(values) == 0 {
		return ""
	}
	return domain.ValueString(values[0])
}

func valueStrings(values []domain.Value) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, domain.ValueString(v))
	}
	return out
}

func literals(values []domain.Value) []domain.LocalizedLiteral {
	out := make([]domain.LocalizedLiteral, 0, len(values))
	for _, v := range values {
		if lit, ok := v.(domain.LocalizedLiteral); ok {
			out = append(out, lit)
			continue
		}
		out = append(out, domain.LocalizedLiteral{Value: domain.ValueString(v)})
	}
	return out
}

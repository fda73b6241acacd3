package vocab

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/sha1n/mcp-vocab-server/internal/domain"
	"golang.org/x/text/language"
)

const (
	// IndexSuffix is the suffix for index directories
	IndexSuffix = ".bleve"

	// MaxBatchSize is the maximum number of documents per batch
	MaxBatchSize = 100
)

// IndexStats summarizes a rebuilt index.
type IndexStats struct {
	Files        int
	Vocabularies int
	Terms        int
}

// Documents returns the number of indexed documents.
func (s IndexStats) Documents() int {
	return s.Vocabularies + s.Terms
}

// Indexer manages one Bleve index per source.
type Indexer struct {
	baseDir string
	lang    language.Tag
}

// NewIndexer creates an indexer storing indexes under baseDir. Labels are
// indexed in lang; other languages are indexed as alternative labels.
func NewIndexer(baseDir string, lang language.Tag) *Indexer {
	return &Indexer{
		baseDir: baseDir,
		lang:    lang,
	}
}

// IndexPath returns the path to the index of a source.
func (i *Indexer) IndexPath(sourceID string) string {
	return filepath.Join(i.baseDir, "indexes", sourceID+IndexSuffix)
}

// CreateIndexMapping creates the Bleve index mapping for asset documents.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// Searchable text, with term vectors for highlighting
	for _, field := range domain.SearchableFields {
		textField := bleve.NewTextFieldMapping()
		textField.Analyzer = standard.Name
		textField.Store = true
		textField.IncludeTermVectors = true
		docMapping.AddFieldMappingsAt(field, textField)
	}

	// Filters - keyword, stored
	for _, field := range []string{domain.FieldID, domain.FieldKind, domain.FieldTypes, domain.FieldVocabulary, domain.FieldSource} {
		keywordField := bleve.NewTextFieldMapping()
		keywordField.Analyzer = keyword.Name
		keywordField.Store = true
		keywordField.IncludeInAll = false
		docMapping.AddFieldMappingsAt(field, keywordField)
	}

	// Body - stored only
	bodyField := bleve.NewTextFieldMapping()
	bodyField.Index = false
	bodyField.Store = true
	bodyField.IncludeInAll = false
	docMapping.AddFieldMappingsAt(domain.FieldBody, bodyField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// OpenForWrite opens or creates an index for writing.
func (i *Indexer) OpenForWrite(sourceID string) (bleve.Index, error) {
	indexPath := i.IndexPath(sourceID)

	index, err := bleve.Open(indexPath)
	if err == nil {
		return index, nil
	}

	index, err = bleve.New(indexPath, CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return index, nil
}

// OpenForRead opens an existing index for reading.
func (i *Indexer) OpenForRead(sourceID string) (bleve.Index, error) {
	index, err := bleve.Open(i.IndexPath(sourceID))
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	return index, nil
}

// IndexExists checks if an index exists for the given source.
func (i *Indexer) IndexExists(sourceID string) bool {
	_, err := os.Stat(i.IndexPath(sourceID))
	return err == nil
}

// SourceIndexes is an alias over opened source indexes. Closing it closes
// the alias and every index behind it.
type SourceIndexes struct {
	bleve.IndexAlias
	indexes []bleve.Index
}

// Close closes the alias and the source indexes.
func (s *SourceIndexes) Close() error {
	errs := []error{s.IndexAlias.Close()}
	for _, index := range s.indexes {
		errs = append(errs, index.Close())
	}
	return errors.Join(errs...)
}

// CreateAlias opens the indexes of the given sources behind one IndexAlias.
func (i *Indexer) CreateAlias(sourceIDs []string) (*SourceIndexes, error) {
	indexes := make([]bleve.Index, 0, len(sourceIDs))

	for _, sourceID := range sourceIDs {
		index, err := i.OpenForRead(sourceID)
		if err != nil {
			for _, idx := range indexes {
				_ = idx.Close()
			}
			return nil, fmt.Errorf("failed to open index for %s: %w", sourceID, err)
		}
		indexes = append(indexes, index)
	}

	if len(indexes) == 0 {
		return nil, fmt.Errorf("no indexes to combine")
	}

	return &SourceIndexes{
		IndexAlias: bleve.NewIndexAlias(indexes...),
		indexes:    indexes,
	}, nil
}

// Rebuild replaces the index of a source with the assets loaded from files.
// A file that fails to load aborts the rebuild and leaves no index behind.
func (i *Indexer) Rebuild(sourceID string, files []string) (stats IndexStats, err error) {
	if err := i.DeleteIndex(sourceID); err != nil {
		return stats, fmt.Errorf("failed to remove old index: %w", err)
	}

	index, err := i.OpenForWrite(sourceID)
	if err != nil {
		return stats, err
	}
	defer func() {
		if cerr := index.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			_ = i.DeleteIndex(sourceID)
		}
	}()

	batch := index.NewBatch()
	flush := func(force bool) error {
		if batch.Size() == 0 || (!force && batch.Size() < MaxBatchSize) {
			return nil
		}
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("batch index failed: %w", err)
		}
		batch = index.NewBatch()
		return nil
	}
	// A later definition of the same IRI replaces the earlier document.
	seen := make(map[string]struct{})
	add := func(doc domain.AssetDocument, count *int) error {
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to index %s: %w", doc.ID, err)
		}
		if _, dup := seen[doc.ID]; !dup {
			seen[doc.ID] = struct{}{}
			*count++
		}
		return flush(false)
	}

	for _, path := range files {
		loaded, err := LoadFile(path)
		if err != nil {
			return stats, err
		}
		stats.Files++

		for idx := range loaded.Vocabularies {
			doc, err := VocabularyDocument(&loaded.Vocabularies[idx], path, i.lang)
			if err != nil {
				return stats, err
			}
			if err := add(doc, &stats.Vocabularies); err != nil {
				return stats, err
			}
		}
		for idx := range loaded.Terms {
			doc, err := TermDocument(&loaded.Terms[idx], path, i.lang)
			if err != nil {
				return stats, err
			}
			if err := add(doc, &stats.Terms); err != nil {
				return stats, err
			}
		}
	}

	if err := flush(true); err != nil {
		return stats, err
	}

	return stats, nil
}

// DeleteIndex removes an index from disk.
func (i *Indexer) DeleteIndex(sourceID string) error {
	return os.RemoveAll(i.IndexPath(sourceID))
}

// GetDocumentCount returns the number of documents in an index.
func (i *Indexer) GetDocumentCount(sourceID string) (count uint64, err error) {
	index, err := i.OpenForRead(sourceID)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := index.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return index.DocCount()
}

// VocabularyDocument converts a vocabulary to its index document.
func VocabularyDocument(v *domain.Vocabulary, source string, lang language.Tag) (domain.AssetDocument, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return domain.AssetDocument{}, fmt.Errorf("failed to encode vocabulary %s: %w", v.IRI, err)
	}

	label := v.DisplayLabel(lang)
	return domain.AssetDocument{
		ID:         v.IRI,
		Kind:       domain.KindVocabulary,
		Types:      v.Types,
		Label:      label,
		AltLabel:   otherTexts(v.Label, label),
		Comment:    v.Comment.Value(lang),
		Vocabulary: v.IRI,
		Source:     source,
		Body:       string(body),
	}, nil
}

// TermDocument converts a term to its index document.
func TermDocument(t *domain.Term, source string, lang language.Tag) (domain.AssetDocument, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return domain.AssetDocument{}, fmt.Errorf("failed to encode term %s: %w", t.IRI, err)
	}

	label := t.DisplayLabel(lang)
	alt := otherTexts(t.Label, label)
	for _, lit := range t.AltLabels {
		if !slices.Contains(alt, lit.Value) && lit.Value != label {
			alt = append(alt, lit.Value)
		}
	}

	return domain.AssetDocument{
		ID:         t.IRI,
		Kind:       domain.KindTerm,
		Types:      t.Types,
		Label:      label,
		AltLabel:   alt,
		Definition: t.Definition.Value(lang),
		Comment:    t.ScopeNote.Value(lang),
		Vocabulary: t.Vocabulary,
		Source:     source,
		Body:       string(body),
	}, nil
}

// otherTexts returns the texts of m that differ from primary.
func otherTexts(m domain.MultilingualString, primary string) []string {
	var out []string
	for _, text := range m.All() {
		if text != primary && !slices.Contains(out, text) {
			out = append(out, text)
		}
	}
	return out
}

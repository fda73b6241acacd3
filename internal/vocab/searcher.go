package vocab

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	bsearch "github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/sha1n/mcp-vocab-server/internal/domain"
	"github.com/sha1n/mcp-vocab-server/internal/metrics"
	"github.com/sha1n/mcp-vocab-server/internal/search"
)

const (
	// LabelBoost weights label matches over the other fields.
	LabelBoost = 2.0

	// FieldPageSize is the number of hits fetched per request while reading
	// all matches of a field.
	FieldPageSize = 500
)

var (
	// ErrEmptyQuery indicates a blank search query
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrTermNotFound indicates no asset with the requested IRI is indexed
	ErrTermNotFound = errors.New("asset not found")
)

var highlightMarks = strings.NewReplacer("<mark>", "**", "</mark>", "**")

// SearchRequest describes a vocabulary search.
type SearchRequest struct {
	Query string

	// Vocabulary restricts results to assets of this vocabulary IRI.
	Vocabulary string

	// Kind restricts results to domain.KindVocabulary or domain.KindTerm.
	Kind string

	// Limit caps the number of results; zero or above the configured
	// maximum means the configured maximum.
	Limit int
}

// Asset is an indexed vocabulary or term.
type Asset struct {
	Kind       string
	Source     string
	Vocabulary *domain.Vocabulary
	Term       *domain.Term
}

// Search matches the query against each searchable field, converts every
// match to a raw hit and aggregates them per asset.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*search.Aggregation, error) {
	start := time.Now()

	text := strings.TrimSpace(req.Query)
	if text == "" {
		return nil, ErrEmptyQuery
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready || s.alias == nil {
		s.recorder.ObserveSearch(metrics.OutcomeNotReady, 0, 0, 0)
		return nil, ErrNotReady
	}

	limit := s.settings.MaxResults
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}

	var hits []domain.RawSearchHit
	for _, field := range domain.SearchableFields {
		fieldHits, err := s.searchField(ctx, field, text, req)
		if err != nil {
			s.recorder.ObserveSearch(metrics.OutcomeError, 0, 0, 0)
			return nil, err
		}
		hits = append(hits, fieldHits...)
	}

	slices.SortStableFunc(hits, func(a, b domain.RawSearchHit) int {
		return cmp.Compare(b.Score, a.Score)
	})

	agg := search.Aggregate(hits)
	if len(agg.Results) > limit {
		agg.Results = agg.Results[:limit]
	}

	outcome := metrics.OutcomeOK
	if len(agg.Results) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	s.recorder.ObserveSearch(outcome, time.Since(start), len(hits), len(agg.Results))

	return agg, nil
}

// searchField returns every match of text on field. Scores are summed per
// asset afterwards, so no hit may be cut here.
func (s *Service) searchField(ctx context.Context, field, text string, req SearchRequest) ([]domain.RawSearchHit, error) {
	match := bleve.NewMatchQuery(text)
	match.SetField(field)
	if field == domain.FieldLabel {
		match.SetBoost(LabelBoost)
	}

	var q query.Query = match
	if req.Vocabulary != "" || req.Kind != "" {
		must := []query.Query{match}
		if req.Vocabulary != "" {
			vq := bleve.NewTermQuery(req.Vocabulary)
			vq.SetField(domain.FieldVocabulary)
			must = append(must, vq)
		}
		if req.Kind != "" {
			kq := bleve.NewTermQuery(req.Kind)
			kq.SetField(domain.FieldKind)
			must = append(must, kq)
		}
		q = bleve.NewConjunctionQuery(must...)
	}

	var hits []domain.RawSearchHit
	for from := 0; ; from += FieldPageSize {
		searchReq := bleve.NewSearchRequestOptions(q, FieldPageSize, from, false)
		searchReq.Fields = []string{domain.FieldLabel, domain.FieldTypes, domain.FieldVocabulary, field}
		searchReq.Highlight = bleve.NewHighlight()
		searchReq.Highlight.AddField(field)

		res, err := s.alias.SearchInContext(ctx, searchReq)
		if err != nil {
			return nil, fmt.Errorf("search on %s failed: %w", field, err)
		}

		for _, dm := range res.Hits {
			hits = append(hits, rawHit(dm, field))
		}
		if len(res.Hits) < FieldPageSize || uint64(len(hits)) >= res.Total {
			return hits, nil
		}
	}
}

// rawHit converts a bleve match on field to a raw hit. The snippet is the
// highlighted fragment, or the stored field value when none was produced.
func rawHit(match *bsearch.DocumentMatch, field string) domain.RawSearchHit {
	snippet := strings.Join(match.Fragments[field], " … ")
	if snippet == "" {
		snippet = strings.Join(fieldStrings(match.Fields[field]), "; ")
	}

	label := strings.Join(fieldStrings(match.Fields[domain.FieldLabel]), " ")
	vocabulary := strings.Join(fieldStrings(match.Fields[domain.FieldVocabulary]), " ")

	return domain.RawSearchHit{
		IRI:          match.ID,
		Label:        label,
		Vocabulary:   vocabulary,
		Score:        match.Score,
		SnippetField: field,
		SnippetText:  highlightMarks.Replace(snippet),
		Types:        fieldStrings(match.Fields[domain.FieldTypes]),
	}
}

// fieldStrings reads a stored field, which bleve returns as a single value
// or a slice depending on how many values were indexed.
func fieldStrings(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return []string{fmt.Sprint(val)}
	}
}

// Term looks up an indexed vocabulary or term by IRI.
func (s *Service) Term(ctx context.Context, iri string) (*Asset, error) {
	iri = strings.TrimSpace(iri)
	if iri == "" {
		return nil, ErrEmptyQuery
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready || s.alias == nil {
		return nil, ErrNotReady
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery([]string{iri}), 1, 0, false)
	req.Fields = []string{domain.FieldKind, domain.FieldSource, domain.FieldBody}

	res, err := s.alias.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lookup failed: %w", err)
	}
	if len(res.Hits) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTermNotFound, iri)
	}

	match := res.Hits[0]
	asset := &Asset{
		Kind:   strings.Join(fieldStrings(match.Fields[domain.FieldKind]), ""),
		Source: strings.Join(fieldStrings(match.Fields[domain.FieldSource]), ""),
	}
	body := []byte(strings.Join(fieldStrings(match.Fields[domain.FieldBody]), ""))

	switch asset.Kind {
	case domain.KindVocabulary:
		asset.Vocabulary = &domain.Vocabulary{}
		err = json.Unmarshal(body, asset.Vocabulary)
	case domain.KindTerm:
		asset.Term = &domain.Term{}
		err = json.Unmarshal(body, asset.Term)
	default:
		err = fmt.Errorf("unknown asset kind %q", asset.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", iri, err)
	}

	return asset, nil
}

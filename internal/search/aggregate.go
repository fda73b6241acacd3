// Package search merges per-field search hits into ranked per-asset results.
package search

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/sha1n/mcp-vocab-server/internal/domain"
)

// ErrMissingIdentifier indicates a hit without an asset IRI.
var ErrMissingIdentifier = errors.New("search hit has no identifier")

// Aggregation is the outcome of merging one response's hits.
type Aggregation struct {
	// Results are ordered by total score, descending. Equal scores are ordered
	// by IRI.
	Results []domain.SearchResult `json:"results"`

	// MaxScore is the highest total score, 0 when there are no results.
	MaxScore float64 `json:"maxScore"`

	// MatchCount is the number of raw hits that were merged.
	MatchCount int `json:"matchCount"`
}

// Ratio returns the total score of r relative to MaxScore, in [0, 1] for
// results of this aggregation.
func (a *Aggregation) Ratio(r domain.SearchResult) float64 {
	if a.MaxScore <= 0 {
		return 0
	}
	return r.TotalScore / a.MaxScore
}

// Validate checks that every hit names an asset.
func Validate(hits []domain.RawSearchHit) error {
	for i, hit := range hits {
		if hit.IRI == "" {
			return fmt.Errorf("hit %d: %w", i, ErrMissingIdentifier)
		}
	}
	return nil
}

// Aggregate merges hits referring to the same asset. Scores are summed, and a
// snippet is kept for every distinct matched field: label snippets go first,
// others follow in the order they were seen. Hits are never modified.
func Aggregate(hits []domain.RawSearchHit) *Aggregation {
	byIRI := make(map[string]*domain.SearchResult, len(hits))
	order := make([]string, 0, len(hits))

	for _, hit := range hits {
		existing, ok := byIRI[hit.IRI]
		if !ok {
			byIRI[hit.IRI] = newResult(hit)
			order = append(order, hit.IRI)
			continue
		}

		existing.TotalScore += hit.Score
		// A field that already has a snippet keeps it; the match is marked there.
		if slices.Contains(existing.SnippetFields, hit.SnippetField) {
			continue
		}
		if hit.SnippetField == domain.LabelField {
			existing.Snippets = slices.Insert(existing.Snippets, 0, hit.SnippetText)
			existing.SnippetFields = slices.Insert(existing.SnippetFields, 0, hit.SnippetField)
		} else {
			existing.Snippets = append(existing.Snippets, hit.SnippetText)
			existing.SnippetFields = append(existing.SnippetFields, hit.SnippetField)
		}
	}

	agg := &Aggregation{
		Results:    make([]domain.SearchResult, 0, len(order)),
		MatchCount: len(hits),
	}
	for _, iri := range order {
		r := byIRI[iri]
		agg.Results = append(agg.Results, *r)
		agg.MaxScore = max(agg.MaxScore, r.TotalScore)
	}
	slices.SortFunc(agg.Results, compareResults)
	return agg
}

func newResult(hit domain.RawSearchHit) *domain.SearchResult {
	return &domain.SearchResult{
		IRI:           hit.IRI,
		Label:         hit.Label,
		Vocabulary:    hit.Vocabulary,
		Types:         slices.Clone(hit.Types),
		TotalScore:    hit.Score,
		Snippets:      []string{hit.SnippetText},
		SnippetFields: []string{hit.SnippetField},
	}
}

// compareResults orders by total score descending, then by IRI.
func compareResults(a, b domain.SearchResult) int {
	if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
		return c
	}
	return cmp.Compare(a.IRI, b.IRI)
}

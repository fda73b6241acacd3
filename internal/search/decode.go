package search

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sha1n/mcp-vocab-server/internal/domain"
)

// DecodeHits reads a JSON array of raw hits, as returned by a search backend,
// and validates it.
func DecodeHits(r io.Reader) ([]domain.RawSearchHit, error) {
	var hits []domain.RawSearchHit
	if err := json.NewDecoder(r).Decode(&hits); err != nil {
		return nil, fmt.Errorf("failed to decode search hits: %w", err)
	}
	if err := Validate(hits); err != nil {
		return nil, err
	}
	return hits, nil
}

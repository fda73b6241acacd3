package vocab

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-vocab-server/internal/domain"
	"github.com/sha1n/mcp-vocab-server/internal/search"
)

// ScoreBarWidth is the number of cells of the relative score bar.
const ScoreBarWidth = 10

// SearchArgument defines search parameters.
type SearchArgument struct {
	Query      string `json:"query" jsonschema_description:"Words to look for in term and vocabulary labels, definitions and comments"`
	Vocabulary string `json:"vocabulary,omitempty" jsonschema_description:"Restrict results to the vocabulary with this IRI"`
	Kind       string `json:"kind,omitempty" jsonschema_description:"Restrict results to 'term' or 'vocabulary'"`
	Limit      int    `json:"limit,omitempty" jsonschema_description:"Maximum number of results (capped by the server limit)"`
}

// SearchHandler handles the search_terms MCP tool.
type SearchHandler struct {
	service *Service
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service *Service) *SearchHandler {
	return &SearchHandler{
		service: service,
	}
}

// Handle executes the search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	switch args.Kind {
	case "", domain.KindTerm, domain.KindVocabulary:
	default:
		return errorResult(fmt.Sprintf("Invalid kind %q: expected %q or %q", args.Kind, domain.KindTerm, domain.KindVocabulary)), nil, nil
	}

	agg, err := h.service.Search(ctx, SearchRequest{
		Query:      args.Query,
		Vocabulary: strings.TrimSpace(args.Vocabulary),
		Kind:       args.Kind,
		Limit:      args.Limit,
	})
	switch {
	case errors.Is(err, ErrNotReady):
		return errorResult("Search is not available. The vocabularies are still being indexed. Please try again later."), nil, nil
	case errors.Is(err, ErrEmptyQuery):
		return errorResult("Query cannot be empty"), nil, nil
	case err != nil:
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	return textResult(FormatResults(agg, args.Query)), nil, nil
}

// FormatResults renders an aggregation as markdown.
func FormatResults(agg *search.Aggregation, query string) string {
	if len(agg.Results) == 0 {
		return fmt.Sprintf("No results found for query: %s", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d matches in %d assets for '%s':\n\n", agg.MatchCount, len(agg.Results), query)

	for i, r := range agg.Results {
		label := r.Label
		if label == "" {
			label = r.IRI
		}

		if r.IsVocabulary() {
			fmt.Fprintf(&sb, "### %d. Vocabulary: %s\n", i+1, label)
			fmt.Fprintf(&sb, "**IRI**: <%s>\n", r.IRI)
		} else {
			fmt.Fprintf(&sb, "### %d. Term: %s\n", i+1, label)
			fmt.Fprintf(&sb, "**IRI**: <%s>\n", r.IRI)
			if r.Vocabulary != "" {
				fmt.Fprintf(&sb, "**Vocabulary**: <%s>\n", r.Vocabulary)
			}
		}
		fmt.Fprintf(&sb, "**Score**: %s %.4f\n\n", ScoreBar(agg.Ratio(r)), r.TotalScore)

		for j, snippet := range r.Snippets {
			fmt.Fprintf(&sb, "- *%s*: %s\n", r.SnippetFields[j], snippet)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// ScoreBar renders ratio, clamped to [0, 1], as a bar of ScoreBarWidth cells.
func ScoreBar(ratio float64) string {
	if math.IsNaN(ratio) {
		ratio = 0
	}
	filled := int(math.Round(min(max(ratio, 0), 1) * ScoreBarWidth))
	return strings.Repeat("█", filled) + strings.Repeat("░", ScoreBarWidth-filled)
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_terms",
		Description: "Search vocabulary terms and vocabularies by label, alternative label, definition and comment. Results are ranked per asset with the matching snippets.",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, service *Service) {
	handler := NewSearchHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	result := textResult(text)
	result.IsError = true
	return result
}

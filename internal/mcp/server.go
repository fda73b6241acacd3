package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-vocab-server/internal/vocab"
)

// Instructions is sent to clients on initialization.
const Instructions = "Use search_terms to find vocabulary terms by words in their labels, definitions and comments. " +
	"Results are ranked per term with the matching snippets, label first. " +
	"Use get_term with an IRI from the results to read the full record."

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string

	// VocabularySvc provides the vocabulary tools. Without it the server
	// exposes no tools.
	VocabularySvc *vocab.Service
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &mcp.ServerOptions{
		Instructions: Instructions,
	})

	if cfg.VocabularySvc != nil {
		vocab.RegisterSearchTool(s, cfg.VocabularySvc)
		vocab.RegisterTermTool(s, cfg.VocabularySvc)
	}

	return s
}

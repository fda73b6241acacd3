package vocab

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-vocab-server/internal/domain"
	"golang.org/x/text/language"
)

// TermArgument defines lookup parameters.
type TermArgument struct {
	IRI string `json:"iri" jsonschema_description:"IRI of the term or vocabulary, as shown in search results"`
}

// TermHandler handles the get_term MCP tool.
type TermHandler struct {
	service *Service
}

// NewTermHandler creates a new term handler.
func NewTermHandler(service *Service) *TermHandler {
	return &TermHandler{
		service: service,
	}
}

// Handle looks up an asset and returns its details.
func (h *TermHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args TermArgument) (*mcp.CallToolResult, any, error) {
	iri := strings.Trim(strings.TrimSpace(args.IRI), "<>")

	asset, err := h.service.Term(ctx, iri)
	switch {
	case errors.Is(err, ErrNotReady):
		return errorResult("Lookup is not available. The vocabularies are still being indexed. Please try again later."), nil, nil
	case errors.Is(err, ErrEmptyQuery):
		return errorResult("IRI cannot be empty"), nil, nil
	case errors.Is(err, ErrTermNotFound):
		return errorResult(fmt.Sprintf("No term or vocabulary found with IRI: %s", iri)), nil, nil
	case err != nil:
		return errorResult(fmt.Sprintf("Lookup failed: %s", err)), nil, nil
	}

	return textResult(FormatAsset(asset, h.service.Settings().LanguageTag())), nil, nil
}

// FormatAsset renders an asset as markdown, labelled in lang.
func FormatAsset(asset *Asset, lang language.Tag) string {
	var sb strings.Builder
	switch {
	case asset.Term != nil:
		formatTerm(&sb, asset.Term, lang)
	case asset.Vocabulary != nil:
		formatVocabulary(&sb, asset.Vocabulary, lang)
	}
	if asset.Source != "" {
		fmt.Fprintf(&sb, "\n**Source**: %s\n", asset.Source)
	}
	return sb.String()
}

func formatTerm(sb *strings.Builder, t *domain.Term, lang language.Tag) {
	fmt.Fprintf(sb, "# Term: %s\n\n", orIRI(t.DisplayLabel(lang), t.IRI))
	fmt.Fprintf(sb, "**IRI**: <%s>\n", t.IRI)
	if t.Vocabulary != "" {
		fmt.Fprintf(sb, "**Vocabulary**: <%s>\n", t.Vocabulary)
	}
	writeList(sb, "Types", references(t.Types))
	writeMultilingual(sb, "Labels", t.Label)

	alt := make([]string, 0, len(t.AltLabels))
	for _, lit := range t.AltLabels {
		alt = append(alt, domain.FormatValue(lit))
	}
	writeList(sb, "Alternative labels", alt)
	writeMultilingual(sb, "Definition", t.Definition)
	writeMultilingual(sb, "Scope note", t.ScopeNote)
	writeList(sb, "Parent terms", references(t.Parents))
	writeProperties(sb, t.Properties)
}

func formatVocabulary(sb *strings.Builder, v *domain.Vocabulary, lang language.Tag) {
	fmt.Fprintf(sb, "# Vocabulary: %s\n\n", orIRI(v.DisplayLabel(lang), v.IRI))
	fmt.Fprintf(sb, "**IRI**: <%s>\n", v.IRI)
	fmt.Fprintf(sb, "**Editable**: %t\n", v.IsEditable())
	if v.IsSnapshot() {
		of, _ := v.SnapshotOf()
		created, _ := v.SnapshotCreated()
		fmt.Fprintf(sb, "**Snapshot of**: <%s> (created %s)\n", of, created)
	}
	for _, ref := range []struct{ name, iri string }{
		{"Document", v.Document},
		{"Glossary", v.Glossary},
		{"Model", v.Model},
		{"Access level", v.AccessLevel},
	} {
		if ref.iri != "" {
			fmt.Fprintf(sb, "**%s**: <%s>\n", ref.name, ref.iri)
		}
	}
	writeList(sb, "Types", references(v.Types))
	writeMultilingual(sb, "Labels", v.Label)
	writeMultilingual(sb, "Description", v.Comment)
	writeList(sb, "Imported vocabularies", references(v.ImportedVocabularies))
	writeProperties(sb, v.Properties)
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n## %s\n", title)
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
}

func writeMultilingual(sb *strings.Builder, title string, m domain.MultilingualString) {
	items := make([]string, 0, len(m))
	for _, lang := range m.Languages() {
		items = append(items, domain.FormatValue(domain.LocalizedLiteral{Value: m[lang], Language: lang}))
	}
	writeList(sb, title, items)
}

func writeProperties(sb *strings.Builder, props domain.Properties) {
	keys := make([]string, 0, len(props))
	for key := range props {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	items := make([]string, 0, len(keys))
	for _, key := range keys {
		values := make([]string, 0, len(props[key]))
		for _, v := range props[key] {
			values = append(values, domain.FormatValue(domain.Scalar{Value: v}))
		}
		items = append(items, fmt.Sprintf("<%s>: %s", key, strings.Join(values, ", ")))
	}
	writeList(sb, "Other properties", items)
}

func references(iris []string) []string {
	out := make([]string, 0, len(iris))
	for _, iri := range iris {
		out = append(out, domain.FormatValue(domain.Reference{IRI: iri}))
	}
	return out
}

func orIRI(label, iri string) string {
	if label == "" {
		return iri
	}
	return label
}

// GetToolDefinition returns the MCP tool definition.
func (h *TermHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_term",
		Description: "Show the full record of a term or vocabulary by IRI: labels in all languages, definition, parents and other properties",
	}
}

// RegisterTermTool registers the get_term tool with an MCP server.
func RegisterTermTool(server *mcp.Server, service *Service) {
	handler := NewTermHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

// Package mcptool exposes the disease knowledge base as MCP tools, so any
// MCP-capable agent host can search diagnoses and fetch treatment advice
// without going through the HTTP API.
//
// Two tools are served:
//
//   - search_diseases — match a free-form symptom description against the
//     keyword rules and the disease key list
//   - get_treatment   — fetch the full treatment record for one disease key
//
// The server speaks the standard MCP stdio transport and is typically run as
// a subprocess of the agent host.
package mcptool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/verdantlabs/leafdoc/internal/knowledge"
	"github.com/verdantlabs/leafdoc/internal/symptom"
)

// KnowledgeBase is the store contract the tools are built on.
type KnowledgeBase interface {
	Lookup(ctx context.Context, key string) (*knowledge.TreatmentRecord, error)
	Keys(ctx context.Context) ([]string, error)
}

// Classifier matches a symptom description to a disease label.
type Classifier interface {
	Classify(text string) string
}

// Embedder turns text into an embedding vector for semantic search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SemanticSearcher finds the disease keys whose symptom embeddings are
// closest to a query embedding.
type SemanticSearcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]knowledge.SemanticMatch, error)
}

// SearchArgs are the inputs of the search_diseases tool.
type SearchArgs struct {
	// Query is a free-form symptom description or partial disease name.
	Query string `json:"query" jsonschema:"symptom description or partial disease name to search for"`
}

// SearchResult is the structured output of the search_diseases tool.
type SearchResult struct {
	// Matches are normalized disease keys, best match first.
	Matches []string `json:"matches"`
}

// TreatmentArgs are the inputs of the get_treatment tool.
type TreatmentArgs struct {
	// Key is the disease key, e.g. "tomato_late_blight". Separator and case
	// variants are accepted.
	Key string `json:"key" jsonschema:"disease key to fetch the treatment record for"`
}

// Server wires the knowledge base and classifier into an MCP server.
type Server struct {
	kb         KnowledgeBase
	classifier Classifier
	embedder   Embedder
	semantic   SemanticSearcher
	logger     *slog.Logger
	mcp        *mcp.Server
}

// Option is a functional option for New.
type Option func(*Server)

// WithSemanticSearch enriches search_diseases with embedding-based matches.
// Both the embedder and the index are required for the enrichment to apply.
func WithSemanticSearch(e Embedder, s SemanticSearcher) Option {
	return func(srv *Server) {
		srv.embedder = e
		srv.semantic = s
	}
}

// New creates the MCP tool server. kb and classifier are required.
func New(kb KnowledgeBase, classifier Classifier, logger *slog.Logger, opts ...Option) (*Server, error) {
	if kb == nil || classifier == nil {
		return nil, fmt.Errorf("mcptool: knowledge base and classifier are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		kb:         kb,
		classifier: classifier,
		logger:     logger,
	}
	for _, o := range opts {
		o(s)
	}

	srv := mcp.NewServer(&mcp.Implementation{Name: "leafdoc", Version: "1.0.0"}, nil)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_diseases",
		Description: "Search the plant disease knowledge base by symptom description or partial disease name. Returns matching disease keys for use with get_treatment.",
	}, s.searchDiseases)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_treatment",
		Description: "Fetch the treatment record for a disease key: cause, symptoms, treatment steps and prevention steps.",
	}, s.getTreatment)
	s.mcp = srv

	return s, nil
}

// Run serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp tool server starting", "transport", "stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// searchDiseases implements the search_diseases tool. The keyword classifier
// gets the first shot; key substring matching catches queries that name the
// disease rather than describe it.
func (s *Server) searchDiseases(ctx context.Context, _ *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, SearchResult, error) {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return nil, SearchResult{}, fmt.Errorf("query must not be empty")
	}

	var matches []string
	seen := make(map[string]bool)
	add := func(key string) {
		if key != "" && !seen[key] {
			seen[key] = true
			matches = append(matches, key)
		}
	}

	if label := s.classifier.Classify(query); label != symptom.LabelUnknown {
		add(knowledge.NormalizeKey(label))
	}

	keys, err := s.kb.Keys(ctx)
	if err != nil {
		return nil, SearchResult{}, fmt.Errorf("listing disease keys: %w", err)
	}
	needle := knowledge.NormalizeKey(query)
	for _, key := range keys {
		if needle != "" && strings.Contains(key, needle) {
			add(key)
		}
	}

	// Semantic enrichment is best-effort: a broken embedding backend must
	// not fail a search that the rule and substring passes already answered.
	if s.embedder != nil && s.semantic != nil {
		if sem, err := s.semanticMatches(ctx, query); err != nil {
			s.logger.Warn("semantic search unavailable", "err", err)
		} else {
			for _, key := range sem {
				add(key)
			}
		}
	}

	if matches == nil {
		matches = []string{}
	}
	return nil, SearchResult{Matches: matches}, nil
}

// semanticMatchLimit caps the embedding matches merged into a search result.
const semanticMatchLimit = 3

func (s *Server) semanticMatches(ctx context.Context, query string) ([]string, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	found, err := s.semantic.Search(ctx, vec, semanticMatchLimit)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(found))
	for _, m := range found {
		keys = append(keys, m.Key)
	}
	return keys, nil
}

// getTreatment implements the get_treatment tool. A miss returns the record
// with Found=false and generic advice, mirroring the diagnosis path, plus the
// rendered markdown as the tool's text content.
func (s *Server) getTreatment(ctx context.Context, _ *mcp.CallToolRequest, args TreatmentArgs) (*mcp.CallToolResult, *knowledge.TreatmentRecord, error) {
	if knowledge.NormalizeKey(args.Key) == "" {
		return nil, nil, fmt.Errorf("key must not be empty")
	}

	rec, err := s.kb.Lookup(ctx, args.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up %q: %w", args.Key, err)
	}

	res := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: knowledge.Render(rec, "unknown")},
		},
	}
	return res, rec, nil
}

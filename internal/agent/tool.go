package agent

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/video-summary/backend/internal/search"
)

// Tool is a capability the model may invoke on its own while answering.
type Tool interface {
	Declaration() *genai.FunctionDeclaration
	Call(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]search.Result, error)
}

// SearchToolName is the function name the model sees for web search.
const SearchToolName = "duckduckgo_search"

// SearchTool exposes a Searcher to the model.
type SearchTool struct {
	searcher   Searcher
	maxResults int
}

// NewSearchTool wraps searcher. maxResults caps what the model may ask for.
func NewSearchTool(searcher Searcher, maxResults int) *SearchTool {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &SearchTool{searcher: searcher, maxResults: maxResults}
}

func (t *SearchTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        SearchToolName,
		Description: "Search the web with DuckDuckGo for context that is not visible in the video. Returns titles, URLs and snippets.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {
					Type:        genai.TypeString,
					Description: "The search query.",
				},
				"max_results": {
					Type:        genai.TypeInteger,
					Description: fmt.Sprintf("Number of results to return, at most %d.", t.maxResults),
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *SearchTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, search.ErrEmptyQuery
	}

	max := t.maxResults
	// JSON numbers arrive as float64
	switch n := args["max_results"].(type) {
	case float64:
		max = int(n)
	case int:
		max = n
	}
	if max <= 0 || max > t.maxResults {
		max = t.maxResults
	}

	results, err := t.searcher.Search(ctx, query, max)
	if err != nil {
		return nil, err
	}

	items := make([]any, 0, len(results))
	for _, r := range results {
		items = append(items, map[string]any{
			"title":   r.Title,
			"url":     r.URL,
			"snippet": r.Snippet,
		})
	}
	return map[string]any{"query": query, "results": items}, nil
}

package agent

import (
	"context"
	"fmt"
)

// Searcher is the narrow contract the knowledge agent needs from a web
// search backend. internal/tools wraps DuckDuckGo behind it.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// KnowledgeAgent answers documentation/general-information queries by
// searching the web and handing the raw findings to the response
// synthesizer.
type KnowledgeAgent struct {
	Searcher Searcher
}

func NewKnowledgeAgent(searcher Searcher) *KnowledgeAgent {
	return &KnowledgeAgent{Searcher: searcher}
}

func (a *KnowledgeAgent) SearchKnowledge(ctx context.Context, params map[string]any) (any, error) {
	query, ok := params["query"].(string)
	if !ok || query == "" {
		return nil, fmt.Errorf("search_knowledge requires a 'query' parameter")
	}
	if a.Searcher == nil {
		return nil, fmt.Errorf("no search backend configured")
	}

	findings, err := a.Searcher.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("knowledge search failed: %w", err)
	}

	return map[string]any{
		"query":    query,
		"findings": findings,
	}, nil
}

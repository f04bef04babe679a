package tools

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/tools/duckduckgo"
)

// SearchClient backs the knowledge agent with DuckDuckGo web search.
type SearchClient struct {
	client *duckduckgo.Tool
}

func NewSearchClient() (*SearchClient, error) {
	ddg, err := duckduckgo.New(10, duckduckgo.DefaultUserAgent)
	if err != nil {
		return nil, err
	}
	return &SearchClient{client: ddg}, nil
}

func (s *SearchClient) Search(ctx context.Context, query string) (string, error) {
	res, err := s.client.Call(ctx, query)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	return res, nil
}

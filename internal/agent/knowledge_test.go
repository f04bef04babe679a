package agent

import (
	"context"
	"errors"
	"testing"
)

type fakeSearcher struct {
	findings string
	err      error
	queries  []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string) (string, error) {
	f.queries = append(f.queries, query)
	return f.findings, f.err
}

func TestSearchKnowledge(t *testing.T) {
	searcher := &fakeSearcher{findings: "canary deployments shift traffic gradually"}
	a := NewKnowledgeAgent(searcher)

	result, err := a.SearchKnowledge(context.Background(), map[string]any{"query": "what is a canary deployment?"})
	if err != nil {
		t.Fatalf("SearchKnowledge: %v", err)
	}

	data := result.(map[string]any)
	if data["query"] != "what is a canary deployment?" {
		t.Errorf("query = %v", data["query"])
	}
	if data["findings"] != searcher.findings {
		t.Errorf("findings = %v", data["findings"])
	}
	if len(searcher.queries) != 1 {
		t.Errorf("search called %d times", len(searcher.queries))
	}
}

func TestSearchKnowledgeRequiresQuery(t *testing.T) {
	a := NewKnowledgeAgent(&fakeSearcher{})

	for _, params := range []map[string]any{{}, {"query": ""}, {"query": 7}} {
		if _, err := a.SearchKnowledge(context.Background(), params); err == nil {
			t.Errorf("params %v accepted", params)
		}
	}
}

func TestSearchKnowledgeWithoutBackend(t *testing.T) {
	a := NewKnowledgeAgent(nil)

	if _, err := a.SearchKnowledge(context.Background(), map[string]any{"query": "x"}); err == nil {
		t.Error("missing backend accepted")
	}
}

func TestSearchKnowledgeSurfacesSearchFailure(t *testing.T) {
	boom := errors.New("search unavailable")
	a := NewKnowledgeAgent(&fakeSearcher{err: boom})

	_, err := a.SearchKnowledge(context.Background(), map[string]any{"query": "x"})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped search failure", err)
	}
}

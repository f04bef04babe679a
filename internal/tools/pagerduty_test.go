package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rahul/autops/internal/agent"
)

func TestActiveIncidentsRequiresAPIKey(t *testing.T) {
	p := NewPagerDutyClient("", "")

	_, err := p.ActiveIncidents(context.Background(), "payments")
	var apiErr *agent.APIError
	if !errors.As(err, &apiErr) || apiErr.Service != "PagerDuty" {
		t.Fatalf("error = %v, want PagerDuty APIError", err)
	}
}

func TestActiveIncidentsRollsUpStatusAndUrgency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token token=pd-key" {
			t.Errorf("authorization = %q", got)
		}
		q := r.URL.Query()
		if q.Get("q") != "payments" {
			t.Errorf("q = %q", q.Get("q"))
		}
		if got := q["statuses[]"]; len(got) != 2 {
			t.Errorf("statuses[] = %v", got)
		}
		w.Write([]byte(`{"incidents": [
			{"id": "P1", "title": "High error rate on payments", "status": "triggered", "urgency": "high", "created_at": "2026-08-28T10:00:00Z"},
			{"id": "P2", "title": "Latency alert", "status": "acknowledged", "urgency": "low", "created_at": "2026-08-28T09:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	p := NewPagerDutyClient("pd-key", srv.URL)
	data, err := p.ActiveIncidents(context.Background(), "payments")
	if err != nil {
		t.Fatalf("ActiveIncidents: %v", err)
	}

	if data["total_incidents"] != 2 {
		t.Errorf("total_incidents = %v", data["total_incidents"])
	}
	byStatus := data["by_status"].(map[string]int)
	if byStatus["triggered"] != 1 || byStatus["acknowledged"] != 1 {
		t.Errorf("by_status = %v", byStatus)
	}
	byUrgency := data["by_urgency"].(map[string]int)
	if byUrgency["high"] != 1 || byUrgency["low"] != 1 {
		t.Errorf("by_urgency = %v", byUrgency)
	}

	incidents := data["incidents"].([]map[string]any)
	if len(incidents) != 2 || incidents[0]["id"] != "P1" {
		t.Errorf("incidents = %v", incidents)
	}
}

func TestActiveIncidentsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"incidents": []}`))
	}))
	defer srv.Close()

	p := NewPagerDutyClient("pd-key", srv.URL)
	data, err := p.ActiveIncidents(context.Background(), "payments")
	if err != nil {
		t.Fatalf("ActiveIncidents: %v", err)
	}
	if data["total_incidents"] != 0 {
		t.Errorf("total_incidents = %v", data["total_incidents"])
	}
}

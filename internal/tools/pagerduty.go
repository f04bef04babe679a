package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rahul/autops/internal/agent"
)

// PagerDutyClient lists active incidents for a service. Like Datadog, it is
// only reachable through the retrieval agent until the capability registry
// turns it on for direct tool steps.
type PagerDutyClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewPagerDutyClient(apiKey, baseURL string) *PagerDutyClient {
	if baseURL == "" {
		baseURL = "https://api.pagerduty.com"
	}
	return &PagerDutyClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type pagerDutyIncidents struct {
	Incidents []struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		Status    string `json:"status"`
		Urgency   string `json:"urgency"`
		CreatedAt string `json:"created_at"`
	} `json:"incidents"`
}

// ActiveIncidents returns triggered and acknowledged incidents matching the
// service name, with status/urgency rollups.
func (p *PagerDutyClient) ActiveIncidents(ctx context.Context, serviceName string) (map[string]any, error) {
	if p.apiKey == "" {
		return nil, &agent.APIError{Service: "PagerDuty", Message: "API key is not configured"}
	}

	params := url.Values{}
	params.Add("statuses[]", "triggered")
	params.Add("statuses[]", "acknowledged")
	params.Set("q", serviceName)
	params.Set("limit", "25")

	var listing pagerDutyIncidents
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			p.baseURL+"/incidents?"+params.Encode(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", fmt.Sprintf("Token token=%s", p.apiKey))
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			apiErr := &agent.APIError{
				Service:    "PagerDuty",
				StatusCode: resp.StatusCode,
				Message:    string(body),
			}
			if retryableStatus(resp.StatusCode) {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	if err := withRetry(ctx, op); err != nil {
		return nil, err
	}

	incidents := make([]map[string]any, 0, len(listing.Incidents))
	byStatus := map[string]int{"triggered": 0, "acknowledged": 0}
	byUrgency := map[string]int{"high": 0, "low": 0}
	for _, inc := range listing.Incidents {
		incidents = append(incidents, map[string]any{
			"id":         inc.ID,
			"title":      inc.Title,
			"status":     inc.Status,
			"urgency":    inc.Urgency,
			"created_at": inc.CreatedAt,
		})
		byStatus[inc.Status]++
		byUrgency[inc.Urgency]++
	}

	return map[string]any{
		"service":         serviceName,
		"total_incidents": len(incidents),
		"incidents":       incidents,
		"by_status":       byStatus,
		"by_urgency":      byUrgency,
	}, nil
}

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

// DatadogClient queries the metrics API for error rates. Direct tool steps
// against Datadog are gated off in the capability registry; this client
// exists for the retrieval agent's context gathering.
type DatadogClient struct {
	apiKey  string
	appKey  string
	baseURL string
	http    *http.Client
}

func NewDatadogClient(apiKey, appKey, baseURL string) *DatadogClient {
	if baseURL == "" {
		baseURL = "https://api.datadoghq.com"
	}
	return &DatadogClient{
		apiKey:  apiKey,
		appKey:  appKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type datadogSeries struct {
	Series []struct {
		PointList [][]float64 `json:"pointlist"`
	} `json:"series"`
}

// ErrorRateMetrics returns the error rate for a service over the last hour,
// shaped for the incident-context bundle.
func (d *DatadogClient) ErrorRateMetrics(ctx context.Context, serviceName string) (map[string]any, error) {
	if d.apiKey == "" {
		return nil, &agent.APIError{Service: "Datadog", Message: "API key is not configured"}
	}

	const windowMinutes = 60
	now := time.Now()
	query := fmt.Sprintf("sum:trace.http.request.errors{service:%s}.as_rate()", serviceName)

	params := url.Values{}
	params.Set("query", query)
	params.Set("from", fmt.Sprintf("%d", now.Add(-windowMinutes*time.Minute).Unix()))
	params.Set("to", fmt.Sprintf("%d", now.Unix()))

	var series datadogSeries
	err := d.get(ctx, "/api/v1/query?"+params.Encode(), &series)
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"service":             serviceName,
		"time_window_minutes": windowMinutes,
		"has_data":            false,
		"error_rate":          "0.0%",
	}

	if len(series.Series) == 0 || len(series.Series[0].PointList) == 0 {
		return data, nil
	}

	points := series.Series[0].PointList
	var sum, max float64
	min := points[0][1]
	for _, p := range points {
		v := p[1]
		sum += v
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}

	data["has_data"] = true
	data["data_points"] = len(points)
	data["error_rate"] = fmt.Sprintf("%.1f%%", sum/float64(len(points))*100)
	data["max_error_rate"] = fmt.Sprintf("%.1f%%", max*100)
	data["min_error_rate"] = fmt.Sprintf("%.1f%%", min*100)

	return data, nil
}

func (d *DatadogClient) get(ctx context.Context, path string, out any) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("DD-API-KEY", d.apiKey)
		req.Header.Set("DD-APPLICATION-KEY", d.appKey)

		resp, err := d.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			apiErr := &agent.APIError{
				Service:    "Datadog",
				StatusCode: resp.StatusCode,
				Message:    string(body),
			}
			if retryableStatus(resp.StatusCode) {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	return withRetry(ctx, op)
}

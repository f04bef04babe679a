package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rahul/autops/internal/agent"
)

// GitLabClient reads deployment history and can trigger a pipeline on a
// given ref, which is how an approved rollback is executed.
type GitLabClient struct {
	token     string
	baseURL   string
	namespace string
	http      *http.Client
}

func NewGitLabClient(token, baseURL, namespace string) *GitLabClient {
	if baseURL == "" {
		baseURL = "https://gitlab.com"
	}
	return &GitLabClient{
		token:     token,
		baseURL:   strings.TrimRight(baseURL, "/"),
		namespace: namespace,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

type gitlabDeployment struct {
	ID          int64  `json:"id"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	Environment struct {
		Name string `json:"name"`
	} `json:"environment"`
	Deployable struct {
		Ref    string `json:"ref"`
		Commit struct {
			ID         string `json:"id"`
			ShortID    string `json:"short_id"`
			Title      string `json:"title"`
			AuthorName string `json:"author_name"`
		} `json:"commit"`
	} `json:"deployable"`
}

// LastDeployment returns the most recent deployment for a project, shaped
// for the incident-context bundle.
func (g *GitLabClient) LastDeployment(ctx context.Context, serviceName string) (map[string]any, error) {
	if g.token == "" {
		return nil, &agent.APIError{Service: "GitLab", Message: "token is not configured"}
	}

	params := url.Values{}
	params.Set("order_by", "created_at")
	params.Set("sort", "desc")
	params.Set("per_page", "1")

	path := fmt.Sprintf("/api/v4/projects/%s/deployments?%s", g.projectID(serviceName), params.Encode())

	var deployments []gitlabDeployment
	if err := g.do(ctx, http.MethodGet, path, nil, &deployments); err != nil {
		return nil, err
	}

	data := map[string]any{
		"service":         serviceName,
		"has_deployments": false,
	}
	if len(deployments) == 0 {
		return data, nil
	}

	d := deployments[0]
	data["has_deployments"] = true
	data["deployment"] = map[string]any{
		"id":          d.ID,
		"status":      d.Status,
		"created_at":  d.CreatedAt,
		"environment": d.Environment.Name,
		"ref":         d.Deployable.Ref,
		"sha":         d.Deployable.Commit.ID,
		"commit": map[string]any{
			"title":       d.Deployable.Commit.Title,
			"author_name": d.Deployable.Commit.AuthorName,
			"short_id":    d.Deployable.Commit.ShortID,
		},
	}
	return data, nil
}

// TriggerPipeline starts a pipeline on the given ref. Used by the
// rollback remediation handler to redeploy a known-good revision.
func (g *GitLabClient) TriggerPipeline(ctx context.Context, serviceName, ref string) (map[string]any, error) {
	if g.token == "" {
		return nil, &agent.APIError{Service: "GitLab", Message: "token is not configured"}
	}
	if ref == "" {
		return nil, &agent.APIError{Service: "GitLab", Message: "pipeline ref is required"}
	}

	path := fmt.Sprintf("/api/v4/projects/%s/pipeline?ref=%s", g.projectID(serviceName), url.QueryEscape(ref))

	var pipeline struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
		WebURL string `json:"web_url"`
	}
	if err := g.do(ctx, http.MethodPost, path, nil, &pipeline); err != nil {
		return nil, err
	}

	return map[string]any{
		"service":     serviceName,
		"pipeline_id": pipeline.ID,
		"status":      pipeline.Status,
		"url":         pipeline.WebURL,
		"ref":         ref,
	}, nil
}

func (g *GitLabClient) projectID(serviceName string) string {
	project := serviceName
	if g.namespace != "" {
		project = g.namespace + "/" + serviceName
	}
	return url.PathEscape(project)
}

func (g *GitLabClient) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("PRIVATE-TOKEN", g.token)

		resp, err := g.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			apiErr := &agent.APIError{
				Service:    "GitLab",
				StatusCode: resp.StatusCode,
				Message:    string(respBody),
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

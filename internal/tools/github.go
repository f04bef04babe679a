package tools

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v66/github"
	"github.com/rahul/autops/internal/agent"
)

// GitHubClient wraps the GitHub Actions API for CI status lookups. One
// long-lived instance serves all requests; the underlying client is safe
// for concurrent use.
type GitHubClient struct {
	client *github.Client
	owner  string
}

func NewGitHubClient(token, owner string) (*GitHubClient, error) {
	if token == "" {
		return nil, &agent.APIError{Service: "GitHub", Message: "token is required"}
	}
	if owner == "" {
		return nil, &agent.APIError{Service: "GitHub", Message: "owner is required"}
	}

	return &GitHubClient{
		client: github.NewClient(nil).WithAuthToken(token),
		owner:  owner,
	}, nil
}

func validateRepoName(repoName string) error {
	if repoName == "" {
		return fmt.Errorf("repository name cannot be empty")
	}
	if strings.Contains(repoName, "/") {
		return fmt.Errorf("repository name should not contain owner prefix")
	}
	return nil
}

// PipelineStatus returns the status of the latest workflow run on a branch
// (default branch when empty). The result always carries "status" and
// "conclusion" keys; a repository with no runs reports status "neutral",
// conclusion "no_runs".
func (g *GitHubClient) PipelineStatus(ctx context.Context, repoName, branch string) (map[string]any, error) {
	if err := validateRepoName(repoName); err != nil {
		return nil, &agent.APIError{Service: "GitHub", Message: err.Error()}
	}

	if branch == "" {
		repo, resp, err := g.client.Repositories.Get(ctx, g.owner, repoName)
		if err != nil {
			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			if status == 404 {
				return nil, &agent.APIError{
					Service:    "GitHub",
					StatusCode: status,
					Message:    fmt.Sprintf("repository '%s' not found in '%s'", repoName, g.owner),
				}
			}
			return nil, &agent.APIError{Service: "GitHub", StatusCode: status, Message: err.Error(), Cause: err}
		}
		branch = repo.GetDefaultBranch()
	}

	var runs *github.WorkflowRuns
	op := func() error {
		var resp *github.Response
		var err error
		runs, resp, err = g.client.Actions.ListRepositoryWorkflowRuns(ctx, g.owner, repoName,
			&github.ListWorkflowRunsOptions{
				Branch:      branch,
				ListOptions: github.ListOptions{PerPage: 10},
			})
		if err != nil {
			if resp != nil && retryableStatus(resp.StatusCode) {
				log.Printf("GitHub API error (status %d), retrying", resp.StatusCode)
				return err
			}
			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			return backoff.Permanent(&agent.APIError{Service: "GitHub", StatusCode: status, Message: err.Error(), Cause: err})
		}
		return nil
	}
	if err := withRetry(ctx, op); err != nil {
		return nil, err
	}

	data := map[string]any{
		"repository": repoName,
		"owner":      g.owner,
		"branch":     branch,
		"query_time": time.Now().Format(time.RFC3339),
		"has_runs":   false,
	}

	if runs.GetTotalCount() == 0 {
		data["status"] = "neutral"
		data["conclusion"] = "no_runs"
		data["message"] = "No workflow runs found."
		return data, nil
	}

	latest := runs.WorkflowRuns[0]
	data["has_runs"] = true
	data["status"] = latest.GetStatus()
	data["conclusion"] = latest.GetConclusion()
	data["url"] = latest.GetHTMLURL()

	latestRun := map[string]any{
		"id":          latest.GetID(),
		"number":      latest.GetRunNumber(),
		"status":      latest.GetStatus(),
		"conclusion":  latest.GetConclusion(),
		"url":         latest.GetHTMLURL(),
		"created_at":  latest.GetCreatedAt().Format(time.RFC3339),
		"updated_at":  latest.GetUpdatedAt().Format(time.RFC3339),
		"head_sha":    latest.GetHeadSHA(),
		"head_branch": latest.GetHeadBranch(),
		"event":       latest.GetEvent(),
	}
	if !latest.GetCreatedAt().IsZero() && !latest.GetUpdatedAt().IsZero() {
		latestRun["duration_seconds"] = latest.GetUpdatedAt().Sub(latest.GetCreatedAt().Time).Seconds()
	}
	data["latest_run"] = latestRun

	// Conclusion histogram over the recent runs, for the responder to
	// mention flakiness.
	summary := map[string]any{"total_runs": len(runs.WorkflowRuns)}
	byConclusion := map[string]int{}
	for _, run := range runs.WorkflowRuns {
		conclusion := run.GetConclusion()
		if conclusion == "" {
			conclusion = "in_progress"
		}
		byConclusion[conclusion]++
	}
	summary["by_conclusion"] = byConclusion
	data["workflow_summary"] = summary

	return data, nil
}

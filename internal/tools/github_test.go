package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/rahul/autops/internal/agent"
)

func TestNewGitHubClientRequiresCredentials(t *testing.T) {
	cases := []struct {
		name  string
		token string
		owner string
	}{
		{"no token", "", "acme"},
		{"no owner", "ghp_token", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewGitHubClient(tc.token, tc.owner)
			var apiErr *agent.APIError
			if !errors.As(err, &apiErr) || apiErr.Service != "GitHub" {
				t.Errorf("error = %v, want GitHub APIError", err)
			}
		})
	}

	if _, err := NewGitHubClient("ghp_token", "acme"); err != nil {
		t.Errorf("valid credentials rejected: %v", err)
	}
}

func TestValidateRepoName(t *testing.T) {
	if err := validateRepoName("checkout-service"); err != nil {
		t.Errorf("plain name rejected: %v", err)
	}
	if err := validateRepoName(""); err == nil {
		t.Error("empty name accepted")
	}
	if err := validateRepoName("acme/checkout-service"); err == nil {
		t.Error("owner-prefixed name accepted")
	}
}

func TestPipelineStatusRejectsBadRepoName(t *testing.T) {
	g, err := NewGitHubClient("ghp_token", "acme")
	if err != nil {
		t.Fatalf("NewGitHubClient: %v", err)
	}

	_, err = g.PipelineStatus(context.Background(), "acme/checkout-service", "main")
	var apiErr *agent.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError before any network call", err)
	}
}

func TestRetryableStatus(t *testing.T) {
	cases := map[int]bool{
		200: false,
		301: false,
		400: false,
		403: false,
		404: false,
		429: true,
		500: true,
		502: true,
		503: true,
	}
	for status, want := range cases {
		if got := retryableStatus(status); got != want {
			t.Errorf("retryableStatus(%d) = %v, want %v", status, got, want)
		}
	}
}

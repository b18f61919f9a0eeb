package deployworker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// TokenIssuer mints the job-scope bearer token a Client presents to a
// deployment worker. Satisfied structurally by *pkg/auth.TokenManager,
// without deployworker importing pkg/auth directly.
type TokenIssuer interface {
	IssueJobToken(modelID, deploymentID uuid.UUID, ttl time.Duration) (string, error)
}

// BaseURLResolver maps a model ID to the base URL of its running deployment
// worker, e.g. by asking the scheduler for the service's address.
type BaseURLResolver interface {
	ResolveDeploymentURL(ctx context.Context, modelID uuid.UUID) (string, error)
}

// Client implements pkg/bazaar.DeploymentWorker by calling into the
// identified model's own running deployment worker, the same bearer-header
// REST-client shape pkg/scheduler.Client uses against the external
// scheduler.
type Client struct {
	httpClient *http.Client
	resolver   BaseURLResolver
	tokens     TokenIssuer
}

// NewClient builds a deployworker Client.
func NewClient(resolver BaseURLResolver, tokens TokenIssuer) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		resolver:   resolver,
		tokens:     tokens,
	}
}

// Save asks modelID's deployment worker to persist its in-memory state. It
// satisfies pkg/bazaar.DeploymentWorker.
func (c *Client) Save(ctx context.Context, modelID uuid.UUID, newModelName string) error {
	baseURL, err := c.resolver.ResolveDeploymentURL(ctx, modelID)
	if err != nil {
		return fmt.Errorf("deployworker: resolving deployment URL: %w", err)
	}
	token, err := c.tokens.IssueJobToken(modelID, modelID, 5*time.Minute)
	if err != nil {
		return fmt.Errorf("deployworker: issuing job token: %w", err)
	}

	body, err := json.Marshal(saveRequest{ArtifactPath: artifactPathFor(modelID), ModelName: newModelName})
	if err != nil {
		return fmt.Errorf("deployworker: encoding save request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/save", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("deployworker: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deployworker: calling worker: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("deployworker: worker returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func artifactPathFor(modelID uuid.UUID) string {
	return "/var/lib/modelbazaar/models/" + modelID.String() + "/artifact"
}

package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/modelbazaar/controlplane/pkg/license"
)

// Client calls the external scheduler's generic REST surface.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a scheduler Client. token is sent as a bearer credential
// on every request (the TASK_RUNNER_TOKEN environment variable).
func NewClient(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}
}

func retryOpts() []backoff.RetryOption {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 8 * time.Second
	return []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(5),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	op := func() (struct{}, error) {
		var reader *bytes.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return struct{}{}, backoff.Permanent(fmt.Errorf("marshaling request: %w", err))
			}
			reader = bytes.NewReader(data)
		} else {
			reader = bytes.NewReader(nil)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("building request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("calling scheduler: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode == http.StatusNotFound {
			return struct{}{}, backoff.Permanent(errNotFound)
		}
		if resp.StatusCode >= 500 {
			return struct{}{}, fmt.Errorf("scheduler returned HTTP %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return struct{}{}, backoff.Permanent(fmt.Errorf("scheduler returned HTTP %d", resp.StatusCode))
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return struct{}{}, backoff.Permanent(fmt.Errorf("decoding response: %w", err))
			}
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, op, retryOpts()...)
	return err
}

var errNotFound = fmt.Errorf("scheduler: job not found")

// IsNotFound reports whether err is the scheduler's not-found sentinel.
func IsNotFound(err error) bool {
	return err == errNotFound
}

// SubmitJob renders and submits spec, returning the scheduler-assigned job
// ID. Retries transient network errors and 5xx responses with exponential
// backoff (base 500ms, cap 8s, 5 attempts).
func (c *Client) SubmitJob(ctx context.Context, spec JobSpec) (string, error) {
	var job Job
	if err := c.do(ctx, http.MethodPost, "/v1/jobs", spec, &job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// DeleteJob stops a job. Idempotent: a not-found response is treated as
// success since the desired end state already holds.
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	err := c.do(ctx, http.MethodDelete, "/v1/job/"+jobID, nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// GetJob fetches the scheduler's current view of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodGet, "/v1/job/"+jobID, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// JobExists reports whether the scheduler still knows about jobID.
func (c *Client) JobExists(ctx context.Context, jobID string) (bool, error) {
	_, err := c.GetJob(ctx, jobID)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListServices lists all scheduler-exposed services.
func (c *Client) ListServices(ctx context.Context) ([]Service, error) {
	var services []Service
	if err := c.do(ctx, http.MethodGet, "/v1/services", nil, &services); err != nil {
		return nil, err
	}
	return services, nil
}

// GetServiceInfo fetches a single named service.
func (c *Client) GetServiceInfo(ctx context.Context, name string) (*Service, error) {
	var svc Service
	if err := c.do(ctx, http.MethodGet, "/v1/service/"+name, nil, &svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

// ListAllocations lists current allocations with resource usage, used both
// for reconciliation and the license CPU-MHz accounting.
func (c *Client) ListAllocations(ctx context.Context) ([]Allocation, error) {
	var allocs []Allocation
	if err := c.do(ctx, http.MethodGet, "/v1/allocations?resources=true", nil, &allocs); err != nil {
		return nil, err
	}
	return allocs, nil
}

// RunningCPUMhz sums CPU-MHz across all currently running allocations, the
// figure the license gate checks a new job's request against.
func (c *Client) RunningCPUMhz(ctx context.Context) (int64, error) {
	allocs, err := c.ListAllocations(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, a := range allocs {
		if a.Running {
			total += a.CPUMhz
		}
	}
	return total, nil
}

// SubmitJobLicensed checks the license's expiry and CPU-MHz capacity against
// currently running allocations before submitting spec. This is the gate
// every train/deploy request must pass through.
func (c *Client) SubmitJobLicensed(ctx context.Context, spec JobSpec, lic *license.License) (string, error) {
	if lic.Expired(time.Now()) {
		return "", fmt.Errorf("%w: license expired on %s", license.ErrExhausted, lic.ExpiryDate.Format(time.RFC3339))
	}
	running, err := c.RunningCPUMhz(ctx)
	if err != nil {
		return "", fmt.Errorf("checking scheduler capacity: %w", err)
	}
	if err := lic.CheckCapacity(running, spec.CPUMhz); err != nil {
		return "", err
	}
	return c.SubmitJob(ctx, spec)
}

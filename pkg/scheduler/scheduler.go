// Package scheduler talks to the external cluster scheduler: submitting and
// tearing down jobs, and reconciling observed state back into model status
// rows.
package scheduler

import "time"

// JobSpec is the templated payload POSTed to the scheduler's job submission
// endpoint: job id, image, CPU/memory request and replica count. Per-job
// values such as the model ID and artifact path travel in Env.
type JobSpec struct {
	JobID    string            `json:"job_id"`
	Image    string            `json:"image"`
	CPUMhz   int64             `json:"cpu_mhz"`
	MemoryMB int64             `json:"memory_mb"`
	Env      map[string]string `json:"env"`
	Count    int               `json:"count,omitempty"`
}

// Job is the scheduler's view of a submitted job.
type Job struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	SubmitAt  time.Time `json:"submit_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service is a named group of allocations the scheduler exposes, e.g. a
// deployed model's worker pool.
type Service struct {
	Name        string `json:"name"`
	JobID       string `json:"job_id"`
	Allocations int    `json:"allocation_count"`
	Healthy     int    `json:"healthy_count"`
}

// Allocation is one running unit of work the scheduler is accounting CPU-MHz
// for; ListAllocations powers both reconciliation and the license check.
type Allocation struct {
	ID      string `json:"id"`
	JobID   string `json:"job_id"`
	CPUMhz  int64  `json:"cpu_mhz"`
	Running bool   `json:"running"`
}

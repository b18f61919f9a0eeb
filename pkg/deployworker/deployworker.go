// Package deployworker implements the per-deployment process that serves
// predict/update traffic for one deployed model: a small chi router backed
// by an mlmodel.Model, an optional guardrail.Classifier, a replica-local
// update log, and an idle-timer that runs a caller-supplied teardown callback
// once the deployment has gone quiet. cmd/deployworker's callback reports
// the deployment stopped and exits the process; it does not call the
// scheduler's DeleteJob.
package deployworker

import "time"

// DefaultIdleTimeout is how long a worker waits with no authenticated
// endpoint call before self-terminating.
const DefaultIdleTimeout = 15 * time.Minute

// DefaultWriterSaveInterval is how often the elected writer replays new
// update-log records; a tick that applied at least one record saves a new
// snapshot. There is no update-count trigger and no idle wait before a save.
const DefaultWriterSaveInterval = 10 * time.Second

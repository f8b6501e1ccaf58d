package notify

import (
	"context"
	"errors"

	"contentpilot/domain/model"
)

// ISignal is the best-effort accelerator: producers fire it after creating a
// job to shave dispatch latency. It is never authoritative; a lost or failed
// notification only means the job waits for the next scheduler tick.
type ISignal interface {
	Notify(ctx context.Context, jobType model.JobType) error
}

// IWaker is implemented by transports that can also deliver the wake signal to
// a local dispatcher loop.
type IWaker interface {
	Wake(ctx context.Context) (<-chan struct{}, error)
}

// ErrWakeUnsupported marks publish-only transports; dispatchers fall back to
// the periodic tick alone.
var ErrWakeUnsupported = errors.New("notify: transport cannot deliver wake signals")

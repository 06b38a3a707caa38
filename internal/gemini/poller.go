package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/video-summary/backend/internal/models"
)

var (
	ErrPollTimeout      = errors.New("remote processing did not finish in time")
	ErrProcessingFailed = errors.New("remote processing failed")
)

// Refresher re-reads the state of an uploaded file.
type Refresher interface {
	Refresh(ctx context.Context, name string) (*models.RemoteFile, error)
}

// PollOptions configures a Poller.
type PollOptions struct {
	Interval time.Duration // delay between refreshes, default 1s
	Timeout  time.Duration // zero waits forever
	Clock    clock.Clock
}

// Poller waits for uploaded files to leave the processing state.
type Poller struct {
	files    Refresher
	interval time.Duration
	timeout  time.Duration
	clock    clock.Clock
}

// NewPoller creates a Poller refreshing through files.
func NewPoller(files Refresher, opts PollOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	return &Poller{
		files:    files,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		clock:    opts.Clock,
	}
}

// Wait refreshes file every interval while it is pending or processing and
// returns the file once it is ready. A file reported as failed yields
// ErrProcessingFailed; exceeding the timeout yields ErrPollTimeout.
// The last wait is shortened so no refresh is sent after the deadline.
func (p *Poller) Wait(ctx context.Context, file *models.RemoteFile) (*models.RemoteFile, error) {
	deadline := p.clock.Now().Add(p.timeout)

	for file.State.InProgress() {
		wait := p.interval
		if p.timeout > 0 {
			remaining := deadline.Sub(p.clock.Now())
			if remaining <= 0 {
				return file, p.timeoutError(file)
			}
			wait = min(wait, remaining)
		}

		select {
		case <-ctx.Done():
			return file, ctx.Err()
		case <-p.clock.After(wait):
		}

		// timers may fire late
		if p.timeout > 0 && p.clock.Now().After(deadline) {
			return file, p.timeoutError(file)
		}

		next, err := p.files.Refresh(ctx, file.Name)
		if err != nil {
			return file, err
		}
		file = next
	}

	if file.State == models.FileStateFailed {
		return file, fmt.Errorf("%w: %s", ErrProcessingFailed, file.Name)
	}
	return file, nil
}

func (p *Poller) timeoutError(file *models.RemoteFile) error {
	return fmt.Errorf("%w: %s still %s after %s", ErrPollTimeout, file.Name, file.State, p.timeout)
}

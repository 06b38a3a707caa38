// Package analysis runs one analysis attempt: upload the staged video,
// wait for the remote service to process it, ask the agent and clean up.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/labstack/gommon/log"
	"github.com/video-summary/backend/internal/agent"
	"github.com/video-summary/backend/internal/gemini"
	"github.com/video-summary/backend/internal/logging"
	"github.com/video-summary/backend/internal/models"
	"github.com/video-summary/backend/internal/staging"
)

// State is a step of the per-interaction flow.
type State string

const (
	StateIdle       State = "idle"
	StateFileStaged State = "file_staged"
	StateValidating State = "validating"
	StateUploading  State = "uploading"
	StatePolling    State = "polling"
	StateAnalyzing  State = "analyzing"
	StateRendering  State = "rendering"
	StateFailed     State = "failed"
)

// RemoteFiles is the part of the remote service the flow needs.
type RemoteFiles interface {
	gemini.Refresher
	Upload(ctx context.Context, path string) (*models.RemoteFile, error)
	Delete(ctx context.Context, name string) error
}

// Outcome is the result of Analyze. State is StateRendering on success,
// StateFileStaged when the query was rejected and StateFailed otherwise.
type Outcome struct {
	State   State
	VideoID string
	Query   string
	Result  *models.AnalysisResult
	Warning string
	Err     error
	Elapsed time.Duration
}

// Message is the text to show the user for this outcome.
func (o Outcome) Message() string {
	switch o.State {
	case StateRendering:
		if o.Result != nil {
			return o.Result.Text
		}
		return ""
	case StateFileStaged:
		return o.Warning
	case StateFailed:
		return fmt.Sprintf("An error occurred: %v", o.Err)
	default:
		return ""
	}
}

// Options configures a Service.
type Options struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	Clock        clock.Clock
	// DeleteRemote removes the uploaded copy from the remote service once the
	// agent has answered.
	DeleteRemote  bool
	DeleteTimeout time.Duration
}

// Service runs analysis attempts against staged videos.
type Service struct {
	files         RemoteFiles
	store         *staging.Store
	agents        *agent.Cache
	poller        *gemini.Poller
	deleteRemote  bool
	deleteTimeout time.Duration
	logger        *log.Logger
}

// NewService creates the orchestration service.
func NewService(files RemoteFiles, store *staging.Store, agents *agent.Cache, opts Options) *Service {
	if opts.DeleteTimeout <= 0 {
		opts.DeleteTimeout = 30 * time.Second
	}
	return &Service{
		files:  files,
		store:  store,
		agents: agents,
		poller: gemini.NewPoller(files, gemini.PollOptions{
			Interval: opts.PollInterval,
			Timeout:  opts.PollTimeout,
			Clock:    opts.Clock,
		}),
		deleteRemote:  opts.DeleteRemote,
		deleteTimeout: opts.DeleteTimeout,
		logger:        logging.New("analysis"),
	}
}

// Analyze answers query about the staged video videoID. A blank query leaves
// the staged video in place and returns a warning. Otherwise the staged file
// is deleted before Analyze returns, whatever the outcome.
func (s *Service) Analyze(ctx context.Context, videoID, query string) (out Outcome) {
	start := time.Now()
	out = Outcome{VideoID: videoID, Query: query}
	defer func() { out.Elapsed = time.Since(start) }()

	tag := shortID(videoID)
	s.transition(tag, StateValidating)
	if strings.TrimSpace(query) == "" {
		s.transition(tag, StateFileStaged)
		out.State = StateFileStaged
		out.Warning = EmptyQueryWarning
		return out
	}

	lease, err := s.store.Acquire(videoID)
	if err != nil {
		return s.fail(tag, out, KindStaging, err)
	}
	defer func() {
		if err := lease.Release(); err != nil {
			s.logger.Warnf("[%s] releasing staged file: %v", tag, err)
		}
		s.transition(tag, StateIdle)
	}()
	defer func() {
		if r := recover(); r != nil {
			out = s.fail(tag, out, KindInternal, fmt.Errorf("panic: %v", r))
		}
	}()

	s.transition(tag, StateUploading)
	remote, err := s.files.Upload(ctx, lease.Video().Path)
	if err != nil {
		return s.fail(tag, out, KindUpload, err)
	}
	if s.deleteRemote {
		defer s.removeRemote(ctx, tag, remote.Name)
	}

	s.transition(tag, StatePolling)
	remote, err = s.poller.Wait(ctx, remote)
	if err != nil {
		kind := KindProcessing
		if errors.Is(err, gemini.ErrPollTimeout) {
			kind = KindTimeout
		}
		return s.fail(tag, out, kind, err)
	}

	s.transition(tag, StateAnalyzing)
	a, err := s.agents.Get()
	if err != nil {
		return s.fail(tag, out, KindModel, err)
	}
	result, err := a.Run(ctx, BuildPrompt(query), []*models.RemoteFile{remote})
	if err != nil {
		return s.fail(tag, out, KindModel, err)
	}

	s.transition(tag, StateRendering)
	out.State = StateRendering
	out.Result = result
	return out
}

func (s *Service) fail(tag string, out Outcome, kind Kind, err error) Outcome {
	s.logger.Errorf("[%s] %s failed: %v", tag, kind, err)
	s.transition(tag, StateFailed)
	out.State = StateFailed
	out.Err = &Error{Kind: kind, Err: err}
	return out
}

// removeRemote deletes the uploaded copy even when the request was cancelled.
func (s *Service) removeRemote(ctx context.Context, tag, name string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deleteTimeout)
	defer cancel()

	if err := s.files.Delete(ctx, name); err != nil {
		s.logger.Warnf("[%s] deleting remote copy %s: %v", tag, name, err)
	}
}

func (s *Service) transition(tag string, state State) {
	s.logger.Debugf("[%s] -> %s", tag, state)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

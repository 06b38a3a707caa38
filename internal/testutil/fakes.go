// Package testutil provides fakes of the remote model service for tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/juju/clock"
	"github.com/video-summary/backend/internal/agent"
	"github.com/video-summary/backend/internal/models"
)

// FakeFiles implements the remote file operations (upload, refresh, delete).
type FakeFiles struct {
	mu sync.Mutex

	// UploadState is the state of a freshly uploaded file. Empty means PROCESSING.
	UploadState models.FileState
	// States are returned by successive refreshes; the last one repeats.
	// Empty means READY.
	States     []models.FileState
	UploadErr  error
	RefreshErr error
	DeleteErr  error

	Uploads   int
	Refreshes int
	Deletes   int

	// UploadedData holds the bytes read from disk at upload time.
	UploadedData [][]byte
	UploadedPath []string
}

// ProcessingThenReady scripts n PROCESSING refreshes followed by READY.
func ProcessingThenReady(n int) []models.FileState {
	states := make([]models.FileState, 0, n+1)
	for i := 0; i < n; i++ {
		states = append(states, models.FileStateProcessing)
	}
	return append(states, models.FileStateReady)
}

func (f *FakeFiles) Upload(ctx context.Context, path string) (*models.RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Uploads++
	f.UploadedPath = append(f.UploadedPath, path)
	if f.UploadErr != nil {
		return nil, f.UploadErr
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fake upload: %w", err)
	}
	f.UploadedData = append(f.UploadedData, data)

	state := f.UploadState
	if state == "" {
		state = models.FileStateProcessing
	}
	name := fmt.Sprintf("files/fake-%d", f.Uploads)
	return &models.RemoteFile{
		Name:     name,
		URI:      "https://generativelanguage.googleapis.com/v1beta/" + name,
		MIMEType: "video/mp4",
		State:    state,
		Size:     int64(len(data)),
	}, nil
}

func (f *FakeFiles) Refresh(ctx context.Context, name string) (*models.RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Refreshes++
	if f.RefreshErr != nil {
		return nil, f.RefreshErr
	}

	state := models.FileStateReady
	if len(f.States) > 0 {
		i := f.Refreshes - 1
		if i >= len(f.States) {
			i = len(f.States) - 1
		}
		state = f.States[i]
	}
	return &models.RemoteFile{
		Name:     name,
		URI:      "https://generativelanguage.googleapis.com/v1beta/" + name,
		MIMEType: "video/mp4",
		State:    state,
	}, nil
}

func (f *FakeFiles) Delete(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Deletes++
	return f.DeleteErr
}

// Counts returns uploads, refreshes and deletes so far.
func (f *FakeFiles) Counts() (uploads, refreshes, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Uploads, f.Refreshes, f.Deletes
}

// TextResponse builds a model answer made of one text part.
func TextResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(text)}},
		}},
	}
}

// CallResponse builds a model answer requesting one function call.
func CallResponse(name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []genai.Part{genai.FunctionCall{Name: name, Args: args}}},
		}},
	}
}

// FakeSession replays scripted responses and records what was sent.
type FakeSession struct {
	mu        sync.Mutex
	Responses []*genai.GenerateContentResponse
	Err       error
	Sent      [][]genai.Part
}

func (s *FakeSession) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Sent = append(s.Sent, append([]genai.Part(nil), parts...))
	if s.Err != nil {
		return nil, s.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.Responses) == 0 {
		return nil, errors.New("fake session: no scripted response left")
	}
	resp := s.Responses[0]
	s.Responses = s.Responses[1:]
	return resp, nil
}

// FakeProvider hands out a new FakeSession per chat.
type FakeProvider struct {
	mu         sync.Mutex
	NewSession func() *FakeSession
	Specs      []agent.ChatSpec
	Sessions   []*FakeSession
}

// NewTextProvider answers every chat with text.
func NewTextProvider(text string) *FakeProvider {
	return &FakeProvider{NewSession: func() *FakeSession {
		return &FakeSession{Responses: []*genai.GenerateContentResponse{TextResponse(text)}}
	}}
}

// NewErrorProvider fails every message with err.
func NewErrorProvider(err error) *FakeProvider {
	return &FakeProvider{NewSession: func() *FakeSession {
		return &FakeSession{Err: err}
	}}
}

func (p *FakeProvider) StartChat(spec agent.ChatSpec) agent.Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.NewSession()
	p.Specs = append(p.Specs, spec)
	p.Sessions = append(p.Sessions, s)
	return s
}

// FakeClock advances its time by the requested duration whenever a wait is
// requested, so poll loops run instantly. Now, After, NewTimer and AfterFunc
// are faked; any other clock.Clock method panics.
type FakeClock struct {
	clock.Clock
	mu     sync.Mutex
	now    time.Time
	Sleeps int
}

// NewFakeClock starts at now.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.advance(d)
	return ch
}

func (c *FakeClock) NewTimer(d time.Duration) clock.Timer {
	t := &fakeTimer{clock: c, ch: make(chan time.Time, 1)}
	t.Reset(d)
	return t
}

// AfterFunc advances the clock and runs f before returning.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	t := &fakeTimer{clock: c, ch: make(chan time.Time, 1)}
	t.Reset(d)
	f()
	return t
}

func (c *FakeClock) advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Sleeps++
	c.now = c.now.Add(d)
	return c.now
}

// fakeTimer fires as soon as it is armed.
type fakeTimer struct {
	clock *FakeClock
	ch    chan time.Time
}

func (t *fakeTimer) Chan() <-chan time.Time { return t.ch }

func (t *fakeTimer) Reset(d time.Duration) bool {
	now := t.clock.advance(d)
	select {
	case <-t.ch:
	default:
	}
	t.ch <- now
	return false
}

// Stop always reports false: the timer has already fired.
func (t *fakeTimer) Stop() bool { return false }

package analysis

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/video-summary/backend/internal/agent"
	"github.com/video-summary/backend/internal/gemini"
	"github.com/video-summary/backend/internal/models"
	"github.com/video-summary/backend/internal/staging"
	"github.com/video-summary/backend/internal/testutil"
)

type fixture struct {
	svc      *Service
	store    *staging.Store
	cache    *agent.Cache
	provider *testutil.FakeProvider
	builds   *atomic.Int64
}

func newFixture(t *testing.T, files RemoteFiles, provider *testutil.FakeProvider, opts Options) *fixture {
	t.Helper()

	store, err := staging.NewStore(t.TempDir())
	require.NoError(t, err)

	builds := &atomic.Int64{}
	cache := agent.NewCache(func() (*agent.Agent, error) {
		builds.Add(1)
		return agent.New(provider, agent.Options{Name: "video-summary-agent", Model: "gemini-2.0-flash", Markdown: true})
	})

	if opts.Clock == nil {
		opts.Clock = testutil.NewFakeClock(time.Unix(0, 0))
	}
	if opts.PollTimeout == 0 {
		opts.PollTimeout = 5 * time.Minute
	}
	return &fixture{
		svc:      NewService(files, store, cache, opts),
		store:    store,
		cache:    cache,
		provider: provider,
		builds:   builds,
	}
}

// stage writes a short fake clip, standing in for a 2-second video.
func (f *fixture) stage(t *testing.T, name string) *models.StagedVideo {
	t.Helper()
	video, err := f.store.Stage(name, bytes.NewReader(bytes.Repeat([]byte{0x00, 0x00, 0x00, 0x18}, 512)))
	require.NoError(t, err)
	return video
}

func TestAnalyze_ReadyImmediatelyRendersAgentText(t *testing.T) {
	files := &testutil.FakeFiles{UploadState: models.FileStateReady}
	f := newFixture(t, files, testutil.NewTextProvider("This video shows a sunset."), Options{DeleteRemote: true})
	video := f.stage(t, "clip.mp4")

	out := f.svc.Analyze(context.Background(), video.ID, "Summarize this video")

	require.NoError(t, out.Err)
	assert.Equal(t, StateRendering, out.State)
	assert.Equal(t, "This video shows a sunset.", out.Message())
	assert.Equal(t, "gemini-2.0-flash", out.Result.Model)

	assert.NoFileExists(t, video.Path)
	uploads, refreshes, deletes := files.Counts()
	assert.Equal(t, 1, uploads)
	assert.Zero(t, refreshes)
	assert.Equal(t, 1, deletes, "remote copy is removed after the run")
}

func TestAnalyze_SendsPromptWithAttachedVideo(t *testing.T) {
	files := &testutil.FakeFiles{UploadState: models.FileStateReady}
	f := newFixture(t, files, testutil.NewTextProvider("ok"), Options{})
	video := f.stage(t, "clip.mov")

	out := f.svc.Analyze(context.Background(), video.ID, "  What happens at the end?  ")
	require.Equal(t, StateRendering, out.State)

	require.Len(t, f.provider.Sessions, 1)
	sent := f.provider.Sessions[0].Sent
	require.Len(t, sent, 1)
	require.Len(t, sent[0], 2)
	file, ok := sent[0][0].(genai.FileData)
	require.True(t, ok, "video goes first")
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/files/fake-1", file.URI)
	assert.Equal(t, "video/mp4", file.MIMEType)
	assert.Equal(t, genai.Text(BuildPrompt("What happens at the end?")), sent[0][1])
}

func TestAnalyze_UploadErrorIsShownAndFileRemoved(t *testing.T) {
	files := &testutil.FakeFiles{UploadErr: errors.New("dial tcp: network is unreachable")}
	f := newFixture(t, files, testutil.NewTextProvider("unused"), Options{DeleteRemote: true})
	video := f.stage(t, "clip.avi")

	out := f.svc.Analyze(context.Background(), video.ID, "Summarize this video")

	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, KindUpload, KindOf(out.Err))
	assert.Contains(t, out.Message(), "dial tcp: network is unreachable")
	assert.True(t, strings.HasPrefix(out.Message(), "An error occurred: "))

	assert.NoFileExists(t, video.Path)
	_, err := f.store.Get(video.ID)
	assert.ErrorIs(t, err, staging.ErrNotFound)
	assert.Equal(t, 1, f.store.Stats().Removed)

	_, _, deletes := files.Counts()
	assert.Zero(t, deletes, "nothing was uploaded")
	assert.Empty(t, f.provider.Sessions)
}

func TestAnalyze_EmptyQueryKeepsStagedFile(t *testing.T) {
	for _, query := range []string{"", "   ", "\n\t"} {
		files := &testutil.FakeFiles{UploadState: models.FileStateReady}
		f := newFixture(t, files, testutil.NewTextProvider("ok"), Options{})
		video := f.stage(t, "clip.mp4")

		out := f.svc.Analyze(context.Background(), video.ID, query)

		assert.Equal(t, StateFileStaged, out.State)
		assert.Equal(t, EmptyQueryWarning, out.Message())
		assert.NoError(t, out.Err)
		assert.FileExists(t, video.Path)

		uploads, refreshes, _ := files.Counts()
		assert.Zero(t, uploads)
		assert.Zero(t, refreshes)
		assert.Zero(t, f.builds.Load())

		// the user can retry right away
		out = f.svc.Analyze(context.Background(), video.ID, "Summarize")
		assert.Equal(t, StateRendering, out.State)
		assert.NoFileExists(t, video.Path)
	}
}

func TestAnalyze_PollsUntilReady(t *testing.T) {
	const n = 4
	files := &testutil.FakeFiles{States: testutil.ProcessingThenReady(n)}
	f := newFixture(t, files, testutil.NewTextProvider("done"), Options{PollInterval: time.Second})
	video := f.stage(t, "clip.mp4")

	out := f.svc.Analyze(context.Background(), video.ID, "Summarize")

	require.Equal(t, StateRendering, out.State, out.Message())
	_, refreshes, _ := files.Counts()
	assert.Equal(t, n+1, refreshes)
}

func TestAnalyze_PollTimeout(t *testing.T) {
	files := &testutil.FakeFiles{States: []models.FileState{models.FileStateProcessing}}
	f := newFixture(t, files, testutil.NewTextProvider("unused"), Options{
		PollInterval: time.Second,
		PollTimeout:  3 * time.Second,
		DeleteRemote: true,
	})
	video := f.stage(t, "clip.mp4")

	out := f.svc.Analyze(context.Background(), video.ID, "Summarize")

	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, KindTimeout, KindOf(out.Err))
	assert.ErrorIs(t, out.Err, gemini.ErrPollTimeout)
	assert.NoFileExists(t, video.Path)

	_, _, deletes := files.Counts()
	assert.Equal(t, 1, deletes, "uploaded copy is removed on failure too")
	assert.Zero(t, f.builds.Load())
}

func TestAnalyze_RemoteProcessingFailed(t *testing.T) {
	files := &testutil.FakeFiles{States: []models.FileState{models.FileStateProcessing, models.FileStateFailed}}
	f := newFixture(t, files, testutil.NewTextProvider("unused"), Options{})
	video := f.stage(t, "clip.mp4")

	out := f.svc.Analyze(context.Background(), video.ID, "Summarize")

	assert.Equal(t, KindProcessing, KindOf(out.Err))
	assert.ErrorIs(t, out.Err, gemini.ErrProcessingFailed)
	assert.NoFileExists(t, video.Path)
}

func TestAnalyze_ModelErrorRemovesFile(t *testing.T) {
	files := &testutil.FakeFiles{UploadState: models.FileStateReady}
	f := newFixture(t, files, testutil.NewErrorProvider(errors.New("quota exceeded")), Options{})
	video := f.stage(t, "clip.mp4")

	out := f.svc.Analyze(context.Background(), video.ID, "Summarize")

	assert.Equal(t, KindModel, KindOf(out.Err))
	assert.Contains(t, out.Message(), "quota exceeded")
	assert.NoFileExists(t, video.Path)
	assert.Equal(t, 1, f.store.Stats().Removed)
}

func TestAnalyze_UnknownVideo(t *testing.T) {
	files := &testutil.FakeFiles{}
	f := newFixture(t, files, testutil.NewTextProvider("unused"), Options{})

	out := f.svc.Analyze(context.Background(), "missing", "Summarize")

	assert.Equal(t, KindStaging, KindOf(out.Err))
	assert.ErrorIs(t, out.Err, ErrVideoNotFound)
	uploads, _, _ := files.Counts()
	assert.Zero(t, uploads)
}

func TestAnalyze_StagedVideoIsConsumedByOneAnalysis(t *testing.T) {
	files := &testutil.FakeFiles{UploadState: models.FileStateReady}
	f := newFixture(t, files, testutil.NewTextProvider("ok"), Options{})
	video := f.stage(t, "clip.mp4")

	require.Equal(t, StateRendering, f.svc.Analyze(context.Background(), video.ID, "Summarize").State)

	out := f.svc.Analyze(context.Background(), video.ID, "Summarize again")
	assert.ErrorIs(t, out.Err, ErrVideoNotFound)

	// staging the same clip again allows another question
	again := f.stage(t, "clip.mp4")
	assert.NotEqual(t, video.ID, again.ID)
	out = f.svc.Analyze(context.Background(), again.ID, "Find key events")
	require.Equal(t, StateRendering, out.State, out.Message())
	assert.NoFileExists(t, again.Path)

	uploads, _, _ := files.Counts()
	assert.Equal(t, 2, uploads)
	assert.Equal(t, 2, f.store.Stats().Removed)
}

type panickingFiles struct {
	*testutil.FakeFiles
}

func (panickingFiles) Upload(ctx context.Context, path string) (*models.RemoteFile, error) {
	panic("upload exploded")
}

func TestAnalyze_PanicBecomesFailure(t *testing.T) {
	f := newFixture(t, panickingFiles{&testutil.FakeFiles{}}, testutil.NewTextProvider("unused"), Options{})
	video := f.stage(t, "clip.mp4")

	var out Outcome
	require.NotPanics(t, func() {
		out = f.svc.Analyze(context.Background(), video.ID, "Summarize")
	})
	assert.Equal(t, KindInternal, KindOf(out.Err))
	assert.Contains(t, out.Message(), "upload exploded")
	assert.NoFileExists(t, video.Path)
}

func TestAnalyze_AgentBuiltOnceAcrossInteractions(t *testing.T) {
	files := &testutil.FakeFiles{UploadState: models.FileStateReady}
	f := newFixture(t, files, testutil.NewTextProvider("ok"), Options{})

	const runs = 24
	videos := make([]*models.StagedVideo, runs)
	for i := range videos {
		videos[i] = f.stage(t, "clip.mp4")
	}

	var wg sync.WaitGroup
	for _, v := range videos {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			out := f.svc.Analyze(context.Background(), id, "Summarize")
			assert.Equal(t, StateRendering, out.State, out.Message())
		}(v.ID)
	}
	wg.Wait()

	assert.Equal(t, int64(1), f.builds.Load())
	assert.Equal(t, int64(1), f.cache.Builds())
	assert.Equal(t, runs, f.store.Stats().Removed)
	for _, v := range videos {
		_, err := os.Stat(v.Path)
		assert.True(t, os.IsNotExist(err))
	}
}

func TestAnalyze_UploadsStagedBytes(t *testing.T) {
	files := &testutil.FakeFiles{UploadState: models.FileStateReady}
	f := newFixture(t, files, testutil.NewTextProvider("ok"), Options{})

	video, err := f.store.Stage("clip.mp4", strings.NewReader("fake video bytes"))
	require.NoError(t, err)

	f.svc.Analyze(context.Background(), video.ID, "Summarize")

	require.Len(t, files.UploadedData, 1)
	assert.Equal(t, "fake video bytes", string(files.UploadedData[0]))
	assert.Equal(t, []string{video.Path}, files.UploadedPath)
	assert.True(t, strings.HasSuffix(files.UploadedPath[0], ".mp4"))
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("  Summarize this video ")
	assert.True(t, strings.HasPrefix(prompt, "Analyze the uploaded video for content and context.\n"))
	assert.Contains(t, prompt, "supplementary web research:\nSummarize this video\n\n")
	assert.True(t, strings.HasSuffix(prompt, "Provide a detailed, user-friendly, and actionable response."))
}

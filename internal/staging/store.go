// Package staging keeps uploaded videos in temporary files until they are analysed.
package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/video-summary/backend/internal/logging"
	"github.com/video-summary/backend/internal/models"
)

var (
	ErrNotFound          = errors.New("staged video not found")
	ErrInUse             = errors.New("staged video is already being analysed")
	ErrUnsupportedFormat = errors.New("unsupported video format")
)

// SupportedExtensions lists the accepted upload formats.
var SupportedExtensions = []string{"mp4", "avi", "mov"}

// Stats counts staging activity since startup.
type Stats struct {
	Staged  int `json:"staged"`
	Removed int `json:"removed"`
	Active  int `json:"active"`
}

type entry struct {
	video  *models.StagedVideo
	leased bool
}

// Store writes uploads to unique temp files and tracks them until release.
type Store struct {
	mu      sync.Mutex
	dir     string
	videos  map[string]*entry
	staged  int
	removed int
	logger  *log.Logger
}

// NewStore creates a Store writing into dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	return &Store{
		dir:    dir,
		videos: make(map[string]*entry),
		logger: logging.New("staging"),
	}, nil
}

// NormalizeExtension returns the lower-case extension of name without the dot.
func NormalizeExtension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// IsSupported reports whether the file name carries an accepted video extension.
func IsSupported(name string) bool {
	ext := NormalizeExtension(name)
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Stage writes the upload to a new temp file. The file always carries a .mp4
// suffix whatever the source container is.
func (s *Store) Stage(name string, r io.Reader) (*models.StagedVideo, error) {
	if !IsSupported(name) {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, name, strings.Join(SupportedExtensions, ", "))
	}

	f, err := os.CreateTemp(s.dir, "video-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	path := f.Name()

	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing temp file: %w", err)
	}

	video := &models.StagedVideo{
		ID:       uuid.New().String(),
		Name:     filepath.Base(name),
		Ext:      NormalizeExtension(name),
		Path:     path,
		Size:     size,
		StagedAt: time.Now(),
	}

	s.mu.Lock()
	s.videos[video.ID] = &entry{video: video}
	s.staged++
	s.mu.Unlock()

	s.logger.Infof("[%s] staged %s (%d bytes) at %s", shortID(video.ID), video.Name, size, path)
	return video, nil
}

// Get retrieves a staged video by ID.
func (s *Store) Get(id string) (*models.StagedVideo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.videos[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.video, nil
}

// Acquire hands the staged video to one analysis attempt. The caller must
// Release the lease; releasing deletes the temp file.
func (s *Store) Acquire(id string) (*Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.videos[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.leased {
		return nil, fmt.Errorf("%w: %s", ErrInUse, id)
	}
	e.leased = true

	return &Lease{store: s, video: e.video}, nil
}

// Discard removes a staged video the user abandoned before analysing it.
func (s *Store) Discard(id string) error {
	s.mu.Lock()
	e, ok := s.videos[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.leased {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInUse, id)
	}
	delete(s.videos, id)
	s.removed++
	s.mu.Unlock()

	return s.deleteFile(e.video)
}

// CleanupStale removes unleased videos staged before maxAge ago and returns
// how many were removed.
func (s *Store) CleanupStale(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	var stale []*models.StagedVideo
	for id, e := range s.videos {
		if !e.leased && e.video.StagedAt.Before(cutoff) {
			stale = append(stale, e.video)
			delete(s.videos, id)
			s.removed++
		}
	}
	s.mu.Unlock()

	for _, video := range stale {
		if err := s.deleteFile(video); err != nil {
			s.logger.Warnf("[%s] cleanup failed: %v", shortID(video.ID), err)
		}
	}
	if len(stale) > 0 {
		s.logger.Infof("removed %d stale uploads", len(stale))
	}
	return len(stale)
}

// Stats returns counters for the health endpoint.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Staged: s.staged, Removed: s.removed, Active: len(s.videos)}
}

func (s *Store) remove(id string) error {
	s.mu.Lock()
	e, ok := s.videos[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.videos, id)
	s.removed++
	s.mu.Unlock()

	return s.deleteFile(e.video)
}

func (s *Store) deleteFile(video *models.StagedVideo) error {
	if err := os.Remove(video.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting temp file: %w", err)
	}
	s.logger.Debugf("[%s] removed %s", shortID(video.ID), video.Path)
	return nil
}

// Lease is exclusive use of a staged video for one analysis attempt.
type Lease struct {
	store *Store
	video *models.StagedVideo
	once  sync.Once
	err   error
}

// Video returns the leased video.
func (l *Lease) Video() *models.StagedVideo {
	return l.video
}

// Release deletes the temp file. Only the first call has an effect; later
// calls return the first result.
func (l *Lease) Release() error {
	l.once.Do(func() {
		l.err = l.store.remove(l.video.ID)
	})
	return l.err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

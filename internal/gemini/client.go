// Package gemini wraps the hosted Gemini API: file upload, processing status
// and chat sessions for the agent.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/generative-ai-go/genai"
	"github.com/labstack/gommon/log"
	"github.com/video-summary/backend/internal/logging"
	"github.com/video-summary/backend/internal/models"
	"google.golang.org/api/option"
)

// VideoMIMEType is sent for every upload; staged files always carry .mp4.
const VideoMIMEType = "video/mp4"

// Client is the process-wide connection to the remote model service.
type Client struct {
	genai  *genai.Client
	logger *log.Logger
}

// NewClient configures the service with apiKey. It must succeed before any
// other call is made.
func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)

	c, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return &Client{genai: c, logger: logging.New("gemini")}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.genai.Close()
}

// Upload sends the file at path to the service.
func (c *Client) Upload(ctx context.Context, path string) (*models.RemoteFile, error) {
	f, err := c.genai.UploadFileFromPath(ctx, path, &genai.UploadFileOptions{
		DisplayName: filepath.Base(path),
		MIMEType:    VideoMIMEType,
	})
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", filepath.Base(path), err)
	}

	remote := fromFile(f)
	c.logger.Infof("uploaded %s as %s (%s)", filepath.Base(path), remote.Name, remote.State)
	return remote, nil
}

// Refresh re-reads the processing state of an uploaded file.
func (c *Client) Refresh(ctx context.Context, name string) (*models.RemoteFile, error) {
	f, err := c.genai.GetFile(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("getting file %s: %w", name, err)
	}
	return fromFile(f), nil
}

// Delete removes an uploaded file from the service.
func (c *Client) Delete(ctx context.Context, name string) error {
	if err := c.genai.DeleteFile(ctx, name); err != nil {
		return fmt.Errorf("deleting file %s: %w", name, err)
	}
	return nil
}

func fromFile(f *genai.File) *models.RemoteFile {
	return &models.RemoteFile{
		Name:     f.Name,
		URI:      f.URI,
		MIMEType: f.MIMEType,
		State:    stateFromGenAI(f.State),
		Size:     f.SizeBytes,
	}
}

func stateFromGenAI(s genai.FileState) models.FileState {
	switch s {
	case genai.FileStateProcessing:
		return models.FileStateProcessing
	case genai.FileStateActive:
		return models.FileStateReady
	case genai.FileStateFailed:
		return models.FileStateFailed
	default:
		return models.FileStatePending
	}
}

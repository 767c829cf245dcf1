package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/specter-content/internal/core"
)

// ErrDownloadStatus is returned when an image URL answers with a non-2xx status.
var ErrDownloadStatus = errors.New("image download returned non-success status")

// Downloader fetches image bytes over plain HTTP GET.
type Downloader struct {
	httpClient *http.Client
}

var _ core.ImageDownloader = (*Downloader)(nil)

// NewDownloader creates a downloader with the given request timeout.
func NewDownloader(timeout time.Duration) *Downloader {
	return &Downloader{httpClient: &http.Client{Timeout: timeout}}
}

// Download returns the body behind url.
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %s", ErrDownloadStatus, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}

	return data, nil
}

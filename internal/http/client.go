package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ErrTooLarge is returned when a download exceeds the configured size limit.
var ErrTooLarge = errors.New("download exceeds size limit")

// Options configures a Client.
type Options struct {
	// Timeout bounds every request, including reading the body.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// MaxSize limits the number of bytes DownloadFile will write.
	// Zero disables the limit.
	MaxSize int64
}

// Client wraps HTTP operations used to track extension packages.
//
// Client provides:
//   - Configured User-Agent header
//   - Timeout handling
//   - Redirect inspection without following the redirect
//   - Size-limited file download with progress tracking
//
// Example usage:
//
//	client := NewClient(Options{Timeout: time.Minute, UserAgent: "nix-chrome-extensions"})
//
//	// Find where an update URL points to
//	redirect, err := client.Resolve(ctx, updateURL)
//
//	// Download the package
//	n, err := client.DownloadFile(ctx, redirect.Location, "/tmp/x/extension.crx", nil)
type Client struct {
	httpClient *http.Client
	noRedirect *http.Client
	userAgent  string
	maxSize    int64
}

// NewClient creates a new HTTP client.
func NewClient(opts Options) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		noRedirect: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent: opts.UserAgent,
		maxSize:   opts.MaxSize,
	}
}

// ProgressWriter wraps a writer to track download progress.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	// Parameters are (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// Redirect is the outcome of a request whose redirect was not followed.
type Redirect struct {
	// StatusCode is the HTTP status of the first response.
	StatusCode int

	// Location is the redirect target, empty if the response had none.
	Location string
}

// Resolve performs a GET request without following redirects and reports
// the status code and Location header of the response.
//
// Any status is returned to the caller; only transport failures are errors.
// The response body is discarded.
//
// Example:
//
//	r, err := client.Resolve(ctx, "https://clients2.google.com/service/update2/crx?...")
//	if err == nil && r.StatusCode == http.StatusNoContent {
//	    // extension is gone
//	}
func (c *Client) Resolve(ctx context.Context, url string) (*Redirect, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.noRedirect.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	return &Redirect{
		StatusCode: resp.StatusCode,
		Location:   resp.Header.Get("Location"),
	}, nil
}

// DownloadFile downloads a file to the specified path with optional progress
// callback and returns the number of bytes written.
//
// The file is created (or truncated if it exists) and the content is streamed
// directly to disk. If the client has a size limit and the body is larger,
// ErrTooLarge is returned.
//
// Parameters:
//   - ctx: Context for cancellation
//   - url: URL to download from
//   - destPath: Local file path to save to
//   - onProgress: Optional callback called with (bytesWritten, totalBytes)
//     Pass nil to disable progress tracking
func (c *Client) DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	if c.maxSize > 0 && resp.ContentLength > c.maxSize {
		return 0, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, resp.ContentLength, c.maxSize)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var writer io.Writer = file
	if onProgress != nil {
		writer = &ProgressWriter{
			Writer:   file,
			Total:    resp.ContentLength,
			OnUpdate: onProgress,
		}
	}

	var body io.Reader = resp.Body
	if c.maxSize > 0 {
		// One extra byte tells "exactly at the limit" from "over it".
		body = io.LimitReader(resp.Body, c.maxSize+1)
	}

	n, err := io.Copy(writer, body)
	if err != nil {
		return n, err
	}
	if c.maxSize > 0 && n > c.maxSize {
		return n, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, c.maxSize)
	}

	return n, nil
}

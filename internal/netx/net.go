// Package netx holds HTTP client helpers used by feedctl.
package netx

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
)

// DownloadTo GETs url with client and copies the body into w.
// Non-200 responses are returned as errors including the body.
func DownloadTo(ctx context.Context, client *http.Client, url string, w io.Writer) (int64, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, "", fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}

	name := FilenameFromDisposition(resp.Header.Get("Content-Disposition"))

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, name, fmt.Errorf("copy body: %w", err)
	}
	return n, name, nil
}

// FilenameFromDisposition extracts the base file name from a
// Content-Disposition header, or "" when absent.
func FilenameFromDisposition(h string) string {
	if h == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(h)
	if err != nil {
		return ""
	}
	name := params["filename"]
	if name == "" {
		return ""
	}
	return filepath.Base(name)
}

package netx

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadTo_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Disposition", `attachment; filename="clip.zip"`)
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("payload"))
	}))
	defer ts.Close()

	var buf bytes.Buffer
	n, name, err := DownloadTo(context.Background(), ts.Client(), ts.URL, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "clip.zip", name)
	assert.Equal(t, "payload", buf.String())
}

func TestDownloadTo_Non200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"invalid or expired download token"}`))
	}))
	defer ts.Close()

	_, _, err := DownloadTo(context.Background(), ts.Client(), ts.URL, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "invalid or expired")
}

func TestDownloadTo_BadURL(t *testing.T) {
	_, _, err := DownloadTo(context.Background(), http.DefaultClient, "://bad", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestFilenameFromDisposition(t *testing.T) {
	assert.Equal(t, "a.zip", FilenameFromDisposition(`attachment; filename="a.zip"`))
	assert.Equal(t, "passwd", FilenameFromDisposition(`attachment; filename="../../etc/passwd"`))
	assert.Equal(t, "", FilenameFromDisposition(""))
	assert.Equal(t, "", FilenameFromDisposition("attachment"))
	assert.Equal(t, "", FilenameFromDisposition(";;;"))
}

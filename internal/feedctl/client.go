package feedctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/netx"
)

// Client talks to the feedvault HTTP API as a regular user.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	token       string
	deviceToken string
}

// Ticket is an issued download token.
type Ticket struct {
	DownloadToken     string    `json:"downloadToken"`
	SecureDownloadURL string    `json:"secureDownloadUrl"`
	RemainingQuota    float64   `json:"remainingQuota"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

// Resolved describes the file a ticket points to.
type Resolved struct {
	FileName    string `json:"fileName"`
	FileSize    string `json:"fileSize"`
	DownloadURL string `json:"downloadUrl"`
}

// NewClient creates an API client for baseURL (e.g. "http://localhost:5000").
// The request timeout defaults to 30 seconds.
func NewClient(baseURL string, timeout ...time.Duration) *Client {
	clientTimeout := 30 * time.Second
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
	}
}

// Login authenticates with the user portal and keeps the session token and
// device token for later calls.
func (c *Client) Login(ctx context.Context, email string, password []byte) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": string(password), "deviceToken": c.deviceToken})
	if err != nil {
		return err
	}

	var result struct {
		Token string `json:"token"`
		User  struct {
			DeviceToken string `json:"deviceToken"`
		} `json:"user"`
	}
	if err := c.call(ctx, "login", http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body), &result); err != nil {
		return err
	}
	if result.Token == "" {
		return fmt.Errorf("login response carries no token")
	}

	c.token = result.Token
	if result.User.DeviceToken != "" {
		c.deviceToken = result.User.DeviceToken
	}
	return nil
}

// IssueDownload asks for a download token for a feed item.
func (c *Client) IssueDownload(ctx context.Context, itemID string) (*Ticket, error) {
	var t Ticket
	u := c.baseURL + "/api/feed/download/" + url.PathEscape(itemID)
	if err := c.call(ctx, "issue download", http.MethodGet, u, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Resolve verifies a ticket and returns the streaming URL.
func (c *Client) Resolve(ctx context.Context, t *Ticket) (*Resolved, error) {
	var r Resolved
	if err := c.call(ctx, "secure download", http.MethodGet, t.SecureDownloadURL, nil, &r); err != nil {
		return nil, err
	}
	if r.DownloadURL == "" {
		return nil, fmt.Errorf("secure download response carries no url")
	}
	return &r, nil
}

// Fetch runs the full issue, resolve and stream sequence for itemID into the
// writer returned by open, which receives the served file name.
func (c *Client) Fetch(ctx context.Context, itemID string, open func(name string) (io.WriteCloser, error)) (int64, *Resolved, error) {
	t, err := c.IssueDownload(ctx, itemID)
	if err != nil {
		return 0, nil, err
	}
	r, err := c.Resolve(ctx, t)
	if err != nil {
		return 0, nil, err
	}

	w, err := open(r.FileName)
	if err != nil {
		return 0, r, err
	}

	n, _, err := netx.DownloadTo(ctx, c.httpClient, r.DownloadURL, w)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return n, r, err
}

func (c *Client) call(ctx context.Context, op, method, u string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.deviceToken != "" {
		req.AddCookie(&http.Cookie{Name: common.DeviceTokenCookieName, Value: c.deviceToken})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s request failed with code %d: %s", op, resp.StatusCode, apiMessage(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", op, err)
	}
	return nil
}

// apiMessage extracts the "message" field of an error body, or returns the
// raw body.
func apiMessage(b []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &e) == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(b))
}

// Package paypal is a minimal PayPal Orders v2 client: OAuth2 client
// credentials, order creation and capture.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Order statuses used by the capture path.
const (
	StatusCreated   = "CREATED"
	StatusApproved  = "APPROVED"
	StatusCompleted = "COMPLETED"
)

type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type PurchaseUnit struct {
	ReferenceID string `json:"reference_id,omitempty"`
	CustomID    string `json:"custom_id,omitempty"`
	Description string `json:"description,omitempty"`
	Amount      Amount `json:"amount"`
}

type ApplicationContext struct {
	ReturnURL string `json:"return_url,omitempty"`
	CancelURL string `json:"cancel_url,omitempty"`
}

type OrderRequest struct {
	Intent             string              `json:"intent"`
	PurchaseUnits      []PurchaseUnit      `json:"purchase_units"`
	ApplicationContext *ApplicationContext `json:"application_context,omitempty"`
}

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []Link `json:"links"`
}

// ApproveLink returns the buyer-facing approval URL, if present.
func (o *Order) ApproveLink() string {
	for _, l := range o.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			return l.Href
		}
	}
	return ""
}

type Client struct {
	baseURL    string
	clientID   string
	secret     string
	httpClient *http.Client
	now        func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewClient builds a client. A nil httpClient gets a 30 second timeout.
func NewClient(baseURL, clientID, secret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		clientID:   clientID,
		secret:     secret,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// accessToken returns a cached bearer token, fetching a new one a minute
// before the old one runs out.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("oauth token: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("oauth token: empty access_token")
	}

	c.token = out.AccessToken
	c.expires = c.now().Add(time.Duration(out.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *Client) CreateOrder(ctx context.Context, in OrderRequest) (*Order, error) {
	if in.Intent == "" {
		in.Intent = "CAPTURE"
	}
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	var o Order
	if err := c.authed(ctx, http.MethodPost, "/v2/checkout/orders", body, &o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &o, nil
}

func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := c.authed(ctx, http.MethodPost, path, []byte("{}"), &o); err != nil {
		return nil, fmt.Errorf("capture order %s: %w", orderID, err)
	}
	return &o, nil
}

func (c *Client) authed(ctx context.Context, method, path string, body []byte, out any) error {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("paypal returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

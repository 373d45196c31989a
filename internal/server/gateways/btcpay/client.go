// Package btcpay is a minimal client for the BTCPay Server Greenfield API:
// creating invoices and reading their status.
package btcpay

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
)

// Invoice statuses reported by BTCPay.
const (
	StatusNew        = "New"
	StatusProcessing = "Processing"
	StatusSettled    = "Settled"
	StatusExpired    = "Expired"
	StatusInvalid    = "Invalid"
)

type Checkout struct {
	RedirectURL          string `json:"redirectURL,omitempty"`
	DefaultPaymentMethod string `json:"defaultPaymentMethod,omitempty"`
}

type InvoiceRequest struct {
	Amount   string         `json:"amount"`
	Currency string         `json:"currency"`
	Checkout Checkout       `json:"checkout"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Invoice struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	CheckoutLink string `json:"checkoutLink"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
}

// Client talks to one store on a BTCPay host.
type Client struct {
	host       string
	apiKey     string
	storeID    string
	httpClient *http.Client
}

// NewClient builds a client. A nil httpClient gets a 30 second timeout.
func NewClient(host, apiKey, storeID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		apiKey:     apiKey,
		storeID:    storeID,
		httpClient: httpClient,
	}
}

func (c *Client) invoicesURL() string {
	return fmt.Sprintf("%s/api/v1/stores/%s/invoices", c.host, url.PathEscape(c.storeID))
}

func (c *Client) CreateInvoice(ctx context.Context, in InvoiceRequest) (*Invoice, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.invoicesURL(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var inv Invoice
	if err := c.do(req, &inv); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return &inv, nil
}

func (c *Client) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.invoicesURL()+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var inv Invoice
	if err := c.do(req, &inv); err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}
	return &inv, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "token "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("btcpay returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

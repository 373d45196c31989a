package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/dbx"
	"github.com/dmitrijs2005/feedvault/internal/logging"
	"github.com/dmitrijs2005/feedvault/internal/server/config"
	"github.com/dmitrijs2005/feedvault/internal/server/gateways/btcpay"
	"github.com/dmitrijs2005/feedvault/internal/server/gateways/paypal"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/feedvault/internal/sizex"
)

const currencyUSD = "USD"

// Plan is a purchasable quota package.
type Plan struct {
	Name       string
	PriceCents int64
	QuotaGB    int64
}

// Price renders the price as a decimal string ("5.99").
func (p Plan) Price() string { return FormatCents(p.PriceCents) }

// FormatCents renders an amount in cents as a decimal string.
func FormatCents(c int64) string {
	return fmt.Sprintf("%d.%02d", c/100, c%100)
}

func (p Plan) QuotaBytes() int64 { return p.QuotaGB * sizex.GiB }

var plans = map[string]Plan{
	"mini-small": {Name: "mini-small", PriceCents: 99, QuotaGB: 1},
	"small":      {Name: "small", PriceCents: 599, QuotaGB: 5},
	"medium":     {Name: "medium", PriceCents: 999, QuotaGB: 10},
	"large":      {Name: "large", PriceCents: 1499, QuotaGB: 15},
	"xlarge":     {Name: "xlarge", PriceCents: 2499, QuotaGB: 25},
	"xxlarge":    {Name: "xxlarge", PriceCents: 4999, QuotaGB: 50},
	"mega":       {Name: "mega", PriceCents: 9999, QuotaGB: 100},
}

// LookupPlan returns the named plan or ErrUnknownPlan.
func LookupPlan(name string) (Plan, error) {
	p, ok := plans[name]
	if !ok {
		return Plan{}, common.ErrUnknownPlan
	}
	return p, nil
}

// Plans lists all plans, cheapest first.
func Plans() []Plan {
	out := make([]Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriceCents < out[j].PriceCents })
	return out
}

// InvoiceGateway is the crypto payment provider.
type InvoiceGateway interface {
	CreateInvoice(ctx context.Context, in btcpay.InvoiceRequest) (*btcpay.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*btcpay.Invoice, error)
}

// OrderGateway is the card/PayPal payment provider.
type OrderGateway interface {
	CreateOrder(ctx context.Context, in paypal.OrderRequest) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*paypal.Order, error)
}

// PaymentService sells quota. A payment is credited exactly once: the
// pending->completed flip and the credit share a transaction.
type PaymentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	invoices    InvoiceGateway
	orders      OrderGateway
	log         logging.Logger
	frontendURL string
}

// NewPaymentService wires the gateways. Either may be nil when the provider
// is not configured.
func NewPaymentService(db *sql.DB, m repomanager.RepositoryManager, invoices InvoiceGateway, orders OrderGateway, cfg *config.Config, log logging.Logger) *PaymentService {
	return &PaymentService{
		db:          db,
		repomanager: m,
		invoices:    invoices,
		orders:      orders,
		log:         log.With("module", "payments"),
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
	}
}

// CreateCryptoPayment opens a BTCPay invoice for the plan and records a
// pending payment. It returns the checkout link.
func (s *PaymentService) CreateCryptoPayment(ctx context.Context, userID, planName string) (string, error) {
	plan, err := LookupPlan(planName)
	if err != nil {
		return "", err
	}
	if s.invoices == nil {
		return "", fmt.Errorf("%w: crypto payments are not configured", common.ErrorInternal)
	}

	inv, err := s.invoices.CreateInvoice(ctx, btcpay.InvoiceRequest{
		Amount:   plan.Price(),
		Currency: currencyUSD,
		Checkout: btcpay.Checkout{
			RedirectURL:          s.frontendURL + "/payment-success",
			DefaultPaymentMethod: "BTC",
		},
		Metadata: map[string]any{"userId": userID, "plan": plan.Name, "downloadLimit": plan.QuotaGB},
	})
	if err != nil {
		s.log.Error(ctx, "btcpay invoice failed", "user_id", userID, "error", err)
		return "", fmt.Errorf("%w: error creating crypto payment", common.ErrorInternal)
	}

	if _, err := s.repomanager.Payments(s.db).Create(ctx, s.pending(userID, inv.ID, models.ProviderBTCPay, plan)); err != nil {
		return "", fmt.Errorf("error storing payment: %w", err)
	}

	s.log.Info(ctx, "crypto payment created", "user_id", userID, "invoice", inv.ID, "plan", plan.Name)
	return inv.CheckoutLink, nil
}

// VerifyCryptoPayment checks the invoice and credits quota once it settles.
// Unsettled invoices yield ErrPaymentPending; expired or invalid ones also
// mark the payment failed.
func (s *PaymentService) VerifyCryptoPayment(ctx context.Context, userID, invoiceID string) (*models.Payment, error) {
	if invoiceID == "" {
		return nil, fmt.Errorf("%w: paymentId is required", common.ErrorValidation)
	}
	if s.invoices == nil {
		return nil, fmt.Errorf("%w: crypto payments are not configured", common.ErrorInternal)
	}

	p, err := s.ownPayment(ctx, userID, models.ProviderBTCPay, invoiceID)
	if err != nil {
		return nil, err
	}

	inv, err := s.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		s.log.Error(ctx, "btcpay lookup failed", "invoice", invoiceID, "error", err)
		return nil, fmt.Errorf("%w: error verifying payment", common.ErrorInternal)
	}

	switch inv.Status {
	case btcpay.StatusSettled:
		return s.complete(ctx, p)
	case btcpay.StatusExpired, btcpay.StatusInvalid:
		if p.Status == models.PaymentPending {
			if err := s.repomanager.Payments(s.db).MarkFailed(ctx, p.ID); err != nil {
				return nil, fmt.Errorf("error updating payment: %w", err)
			}
		}
		return nil, common.ErrPaymentPending
	default:
		return nil, common.ErrPaymentPending
	}
}

// CreatePayPalOrder opens a PayPal order and records a pending payment. It
// returns the order id and the approval link.
func (s *PaymentService) CreatePayPalOrder(ctx context.Context, userID, planName string) (string, string, error) {
	plan, err := LookupPlan(planName)
	if err != nil {
		return "", "", err
	}
	if s.orders == nil {
		return "", "", fmt.Errorf("%w: paypal is not configured", common.ErrorInternal)
	}

	order, err := s.orders.CreateOrder(ctx, paypal.OrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypal.PurchaseUnit{{
			ReferenceID: plan.Name,
			CustomID:    userID,
			Description: fmt.Sprintf("%d GB download quota", plan.QuotaGB),
			Amount:      paypal.Amount{CurrencyCode: currencyUSD, Value: plan.Price()},
		}},
		ApplicationContext: &paypal.ApplicationContext{
			ReturnURL: s.frontendURL + "/payment-success",
			CancelURL: s.frontendURL + "/payment-cancelled",
		},
	})
	if err != nil {
		s.log.Error(ctx, "paypal order failed", "user_id", userID, "error", err)
		return "", "", fmt.Errorf("%w: error creating paypal order", common.ErrorInternal)
	}

	if _, err := s.repomanager.Payments(s.db).Create(ctx, s.pending(userID, order.ID, models.ProviderPayPal, plan)); err != nil {
		return "", "", fmt.Errorf("error storing payment: %w", err)
	}

	s.log.Info(ctx, "paypal order created", "user_id", userID, "order", order.ID, "plan", plan.Name)
	return order.ID, order.ApproveLink(), nil
}

// CapturePayPalOrder captures an approved order and credits quota when
// PayPal reports it COMPLETED.
func (s *PaymentService) CapturePayPalOrder(ctx context.Context, userID, orderID string) (*models.Payment, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: orderId is required", common.ErrorValidation)
	}
	if s.orders == nil {
		return nil, fmt.Errorf("%w: paypal is not configured", common.ErrorInternal)
	}

	p, err := s.ownPayment(ctx, userID, models.ProviderPayPal, orderID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PaymentCompleted {
		return p, nil
	}

	order, err := s.orders.CaptureOrder(ctx, orderID)
	if err != nil {
		s.log.Error(ctx, "paypal capture failed", "order", orderID, "error", err)
		return nil, fmt.Errorf("%w: error capturing paypal order", common.ErrorInternal)
	}
	if order.Status != paypal.StatusCompleted {
		return nil, common.ErrPaymentPending
	}
	return s.complete(ctx, p)
}

func (s *PaymentService) ownPayment(ctx context.Context, userID, provider, externalID string) (*models.Payment, error) {
	p, err := s.repomanager.Payments(s.db).GetByExternalID(ctx, provider, externalID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return p, nil
}

func (s *PaymentService) pending(userID, externalID, provider string, plan Plan) *models.Payment {
	return &models.Payment{
		UserID:      userID,
		ExternalID:  externalID,
		Provider:    provider,
		Plan:        plan.Name,
		AmountCents: plan.PriceCents,
		Currency:    currencyUSD,
		QuotaBytes:  plan.QuotaBytes(),
		Status:      models.PaymentPending,
	}
}

// complete flips the payment to completed and credits its quota. A payment
// that was already completed is returned without a second credit.
func (s *PaymentService) complete(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	var credited bool
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		changed, err := s.repomanager.Payments(tx).MarkCompleted(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("error completing payment: %w", err)
		}
		if !changed {
			return nil
		}
		if _, err := s.repomanager.Quota(tx).Credit(ctx, p.UserID, p.QuotaBytes); err != nil {
			return fmt.Errorf("error crediting quota: %w", err)
		}
		credited = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if credited {
		s.log.Info(ctx, "payment completed", "payment_id", p.ID, "user_id", p.UserID, "quota_bytes", p.QuotaBytes)
	} else if p.Status != models.PaymentCompleted {
		// the row vanished or was completed by a concurrent request
		current, err := s.repomanager.Payments(s.db).GetByExternalID(ctx, p.Provider, p.ExternalID)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		if current != nil && current.Status != models.PaymentCompleted {
			return nil, common.ErrPaymentPending
		}
	}
	p.Status = models.PaymentCompleted
	return p, nil
}

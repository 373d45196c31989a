package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
)

type planRequest struct {
	Plan string `json:"plan"`
}

type captureRequest struct {
	OrderID string `json:"orderId"`
}

type paymentResultResponse struct {
	Message string      `json:"message"`
	Status  string      `json:"status"`
	Payment *paymentDTO `json:"payment,omitempty"`
}

// paymentResult reports both outcomes with 200; a pending or failed provider
// state is not an HTTP error.
func paymentResult(c echo.Context, p *models.Payment, err error) error {
	if errors.Is(err, common.ErrPaymentPending) {
		return c.JSON(http.StatusOK, paymentResultResponse{Message: "Payment still pending or failed.", Status: models.PaymentPending})
	}
	if err != nil {
		return err
	}
	dto := toPaymentDTO(p)
	return c.JSON(http.StatusOK, paymentResultResponse{Message: "Payment verified, storage added!", Status: p.Status, Payment: &dto})
}

func (s *Server) handleCryptoPayment(c echo.Context) error {
	var req planRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	link, err := s.svc.Payments.CreateCryptoPayment(c.Request().Context(), currentUser(c).ID, req.Plan)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"link": link})
}

func (s *Server) handleCryptoVerify(c echo.Context) error {
	p, err := s.svc.Payments.VerifyCryptoPayment(c.Request().Context(), currentUser(c).ID, c.QueryParam("paymentId"))
	return paymentResult(c, p, err)
}

func (s *Server) handlePayPalOrder(c echo.Context) error {
	var req planRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	id, link, err := s.svc.Payments.CreatePayPalOrder(c.Request().Context(), currentUser(c).ID, req.Plan)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"orderId": id, "link": link})
}

func (s *Server) handlePayPalCapture(c echo.Context) error {
	var req captureRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := s.svc.Payments.CapturePayPalOrder(c.Request().Context(), currentUser(c).ID, req.OrderID)
	return paymentResult(c, p, err)
}

// Package httpapi exposes feedvault over HTTP/JSON using echo.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/atomic"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/logging"
	"github.com/dmitrijs2005/feedvault/internal/server/auth"
	"github.com/dmitrijs2005/feedvault/internal/server/config"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
	"github.com/dmitrijs2005/feedvault/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type UserService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, portal string, req services.LoginRequest) (*services.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Authenticate(ctx context.Context, accessToken, deviceToken string) (*models.User, error)
	Me(ctx context.Context, userID string) (*models.User, error)
	AccessTokenValidity() time.Duration
	RefreshTokenValidity() time.Duration
}

type FeedService interface {
	List(ctx context.Context, page, limit int) (*services.FeedPage, error)
	Get(ctx context.Context, id string) (*models.FeedItem, error)
	Create(ctx context.Context, in services.FeedInput, file, image *services.Upload) (*models.FeedItem, bool, error)
	Update(ctx context.Context, id string, in services.FeedInput, file, image *services.Upload) (*models.FeedItem, error)
	Delete(ctx context.Context, id string) error
}

type DownloadService interface {
	Issue(ctx context.Context, userID, itemID string) (*services.IssuedDownload, error)
	Verify(ctx context.Context, token string) (*auth.DownloadClaims, error)
	StartURL(token string) string
	Open(ctx context.Context, token string) (*services.DownloadStream, error)
}

type PaymentService interface {
	CreateCryptoPayment(ctx context.Context, userID, planName string) (string, error)
	VerifyCryptoPayment(ctx context.Context, userID, invoiceID string) (*models.Payment, error)
	CreatePayPalOrder(ctx context.Context, userID, planName string) (string, string, error)
	CapturePayPalOrder(ctx context.Context, userID, orderID string) (*models.Payment, error)
}

type SupportService interface {
	Send(ctx context.Context, user *models.User, message string) error
	Mine(ctx context.Context, userID string) (*models.SupportThread, error)
	List(ctx context.Context) ([]models.SupportThread, error)
	Reply(ctx context.Context, threadID, reply string) error
}

type AdminService interface {
	Dashboard(ctx context.Context) (*services.Dashboard, error)
	Devices(ctx context.Context, adminID string) ([]models.Device, error)
	ApproveDevice(ctx context.Context, adminID, deviceToken string) error
	RemoveDevice(ctx context.Context, adminID, deviceToken string) error
	Payments(ctx context.Context) ([]models.Payment, error)
	Profile(ctx context.Context, userID string) (*services.Profile, error)
}

// Services is the set of backends the HTTP layer dispatches to.
type Services struct {
	Users     UserService
	Feed      FeedService
	Downloads DownloadService
	Payments  PaymentService
	Support   SupportService
	Admin     AdminService
}

type Server struct {
	address string
	cookies cookieSettings
	log     logging.Logger
	svc     Services
	e       *echo.Echo
	isReady atomic.Bool
}

func NewServer(cfg *config.Config, log logging.Logger, svc Services) *Server {
	s := &Server{
		address: cfg.HTTPAddr,
		cookies: cookieSettings{domain: cfg.CookieDomain, secure: cfg.SecureCookies},
		log:     log.With("module", "http_server"),
		svc:     svc,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowCredentials: true,
	}))
	e.Use(s.requestLogger())

	s.e = e
	s.routes()
	s.isReady.Store(true)
	return s
}

func (s *Server) routes() {
	e := s.e
	e.GET("/livez", s.handleLivez)
	e.GET("/readyz", s.handleReadyz)

	authed := s.authenticate
	admin := s.requireAdmin

	a := e.Group("/api/auth")
	a.POST("/register", s.handleRegister)
	a.POST("/login", s.handleLogin(common.RoleUser))
	a.POST("/admin/login", s.handleLogin(common.RoleAdmin))
	a.POST("/logout", s.handleLogout)
	a.POST("/refresh", s.handleRefresh)
	a.GET("/me", s.handleMe, authed)

	f := e.Group("/api/feed")
	f.GET("", s.handleFeedList)
	f.GET("/secure-download", s.handleSecureDownload)
	f.GET("/start-download", s.handleStartDownload)
	f.GET("/download/:id", s.handleIssueDownload, authed)
	f.POST("/create", s.handleFeedCreate, authed, admin)
	f.GET("/:id", s.handleFeedGet)
	f.PUT("/:id", s.handleFeedUpdate, authed, admin)
	f.DELETE("/:id", s.handleFeedDelete, authed, admin)

	e.GET("/api/profile", s.handleProfile, authed)

	p := e.Group("/api/payments", authed)
	p.POST("/crypto-payment", s.handleCryptoPayment)
	p.GET("/crypto-verify", s.handleCryptoVerify)
	p.POST("/paypal/order", s.handlePayPalOrder)
	p.POST("/paypal/capture", s.handlePayPalCapture)

	sp := e.Group("/api/support", authed)
	sp.POST("", s.handleSupportSend)
	sp.GET("", s.handleSupportMine)
	sp.GET("/admin", s.handleSupportList, admin)
	sp.PUT("/:id/reply", s.handleSupportReply, admin)

	ad := e.Group("/api/admin", authed, admin)
	ad.GET("/dashboard", s.handleDashboard)
	ad.GET("/devices", s.handleDevices)
	ad.POST("/approve-device", s.handleApproveDevice)
	ad.POST("/remove-device", s.handleRemoveDevice)
	ad.GET("/payments", s.handleAdminPayments)
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.e }

// SetReady flips the /readyz answer.
func (s *Server) SetReady(ready bool) { s.isReady.Store(ready) }

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.isReady.Store(false)
		s.log.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.e.Shutdown(shutdownCtx); err != nil {
			s.log.Error(ctx, "http shutdown error", "error", err.Error())
		}
	}()

	s.log.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.e.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/livez" || p == "/readyz"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "remote_ip", v.RemoteIP}
			if v.Error != nil {
				args = append(args, "error", v.Error.Error())
			}
			s.log.Info(c.Request().Context(), "request", args...)
			return nil
		},
	})
}

func (s *Server) handleLivez(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleReadyz(c echo.Context) error {
	if !s.isReady.Load() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// closeQuietly closes an upload part, logging only.
func (s *Server) closeQuietly(ctx context.Context, c io.Closer) {
	if err := c.Close(); err != nil {
		s.log.Warn(ctx, "close error", "error", err.Error())
	}
}

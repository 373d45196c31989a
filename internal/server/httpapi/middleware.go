package httpapi

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
)

const userCtxKey = "user"

type cookieSettings struct {
	domain string
	secure bool
}

func (cs cookieSettings) set(c echo.Context, name, value string, maxAge time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cs.domain,
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   cs.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (cs cookieSettings) clear(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   cs.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cs.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

// accessToken reads the session token from the jwt cookie, falling back to
// an Authorization: Bearer header.
func accessToken(c echo.Context) string {
	if v := cookieValue(c, common.AccessTokenCookieName); v != "" {
		return v
	}
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// authenticate resolves the caller and stores it in the echo context.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := accessToken(c)
		if token == "" {
			return fmt.Errorf("%w: please log in", common.ErrorUnauthorized)
		}

		user, err := s.svc.Users.Authenticate(c.Request().Context(), token, cookieValue(c, common.DeviceTokenCookieName))
		if err != nil {
			return err
		}

		c.Set(userCtxKey, user)
		return next(c)
	}
}

func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u := currentUser(c)
		if u == nil || u.Role != common.RoleAdmin {
			return fmt.Errorf("%w: admins only", common.ErrorForbidden)
		}
		return next(c)
	}
}

func currentUser(c echo.Context) *models.User {
	u, _ := c.Get(userCtxKey).(*models.User)
	return u
}

// clientIP is the first X-Forwarded-For hop, or the peer address.
func clientIP(c echo.Context) string {
	if xff := c.Request().Header.Get(echo.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
	if err != nil {
		return c.Request().RemoteAddr
	}
	return host
}

// clientCountry reads the country set by the CDN edge, if any.
func clientCountry(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get("CF-IPCountry"))
}

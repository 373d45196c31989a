package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/server/services"
)

const deviceCookieMaxAge = 365 * 24 * time.Hour

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DeviceToken string `json:"deviceToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrorValidation)
	}
	return nil
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	u, err := s.svc.Users.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, messageResponse{Message: "User registered successfully as " + u.Role})
}

func (s *Server) handleLogin(portal string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		device := req.DeviceToken
		if device == "" {
			device = cookieValue(c, common.DeviceTokenCookieName)
		}

		res, err := s.svc.Users.Login(c.Request().Context(), portal, services.LoginRequest{
			Email:       req.Email,
			Password:    req.Password,
			DeviceToken: device,
			IPAddress:   clientIP(c),
			UserAgent:   c.Request().UserAgent(),
			Country:     clientCountry(c),
		})
		if err != nil {
			return err
		}

		s.cookies.set(c, common.AccessTokenCookieName, res.AccessToken, s.svc.Users.AccessTokenValidity())
		s.cookies.set(c, common.RefreshTokenCookieName, res.RefreshToken, s.svc.Users.RefreshTokenValidity())
		s.cookies.set(c, common.DeviceTokenCookieName, res.DeviceToken, deviceCookieMaxAge)

		user := toUserDTO(res.User)
		user.DeviceToken = res.DeviceToken
		return c.JSON(http.StatusOK, loginResponse{Message: "Login successful", Token: res.AccessToken, User: user})
	}
}

func (s *Server) handleLogout(c echo.Context) error {
	if rt := cookieValue(c, common.RefreshTokenCookieName); rt != "" {
		if err := s.svc.Users.Logout(c.Request().Context(), rt); err != nil {
			s.log.Warn(c.Request().Context(), "error deleting refresh token", "error", err.Error())
		}
	}

	s.cookies.clear(c, common.AccessTokenCookieName)
	s.cookies.clear(c, common.RefreshTokenCookieName)
	s.cookies.clear(c, common.DeviceTokenCookieName)

	return c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (s *Server) handleRefresh(c echo.Context) error {
	rt := cookieValue(c, common.RefreshTokenCookieName)
	if rt == "" {
		var req refreshRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		rt = req.RefreshToken
	}
	if rt == "" {
		return fmt.Errorf("%w: missing refresh token", common.ErrorUnauthorized)
	}

	pair, err := s.svc.Users.RefreshToken(c.Request().Context(), rt)
	if err != nil {
		return err
	}

	s.cookies.set(c, common.AccessTokenCookieName, pair.AccessToken, s.svc.Users.AccessTokenValidity())
	s.cookies.set(c, common.RefreshTokenCookieName, pair.RefreshToken, s.svc.Users.RefreshTokenValidity())

	return c.JSON(http.StatusOK, map[string]string{"token": pair.AccessToken})
}

func (s *Server) handleMe(c echo.Context) error {
	u, err := s.svc.Users.Me(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]userDTO{"user": toUserDTO(u)})
}

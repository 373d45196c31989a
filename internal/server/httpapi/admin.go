package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type messageRequest struct {
	Message string `json:"message"`
}

type replyRequest struct {
	Reply string `json:"reply"`
}

type deviceRequest struct {
	DeviceToken string `json:"deviceToken"`
}

func (s *Server) handleSupportSend(c echo.Context) error {
	var req messageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.svc.Support.Send(c.Request().Context(), currentUser(c), req.Message); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, messageResponse{Message: "Message sent successfully!"})
}

func (s *Server) handleSupportMine(c echo.Context) error {
	t, err := s.svc.Support.Mine(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSupportThreadDTO(t))
}

func (s *Server) handleSupportList(c echo.Context) error {
	threads, err := s.svc.Support.List(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]supportThreadDTO, 0, len(threads))
	for i := range threads {
		out = append(out, toSupportThreadDTO(&threads[i]))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleSupportReply(c echo.Context) error {
	var req replyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.svc.Support.Reply(c.Request().Context(), c.Param("id"), req.Reply); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Reply sent successfully"})
}

func (s *Server) handleDashboard(c echo.Context) error {
	d, err := s.svc.Admin.Dashboard(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDashboardResponse(d))
}

func (s *Server) handleDevices(c echo.Context) error {
	ds, err := s.svc.Admin.Devices(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDevicesResponse(ds))
}

func (s *Server) handleApproveDevice(c echo.Context) error {
	var req deviceRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.svc.Admin.ApproveDevice(c.Request().Context(), currentUser(c).ID, req.DeviceToken); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Device approved successfully"})
}

func (s *Server) handleRemoveDevice(c echo.Context) error {
	var req deviceRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.svc.Admin.RemoveDevice(c.Request().Context(), currentUser(c).ID, req.DeviceToken); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Device removed successfully"})
}

func (s *Server) handleAdminPayments(c echo.Context) error {
	ps, err := s.svc.Admin.Payments(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPaymentDTOs(ps))
}

func (s *Server) handleProfile(c echo.Context) error {
	p, err := s.svc.Admin.Profile(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponse(p))
}

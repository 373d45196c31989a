package httpapi

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/sizex"
)

func tokenParam(c echo.Context) (string, error) {
	t := strings.TrimSpace(c.QueryParam("token"))
	if t == "" {
		return "", fmt.Errorf("%w: download token is required", common.ErrorValidation)
	}
	return t, nil
}

// handleIssueDownload reserves quota for the item and returns a signed link.
func (s *Server) handleIssueDownload(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return fmt.Errorf("%w: file id is required", common.ErrorValidation)
	}

	dl, err := s.svc.Downloads.Issue(c.Request().Context(), currentUser(c).ID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, issueResponse{
		DownloadToken:     dl.Token,
		SecureDownloadURL: dl.URL,
		RemainingQuota:    sizex.GB(dl.RemainingBytes),
		ExpiresAt:         dl.ExpiresAt,
	})
}

// handleSecureDownload checks a token and describes the file behind it.
func (s *Server) handleSecureDownload(c echo.Context) error {
	token, err := tokenParam(c)
	if err != nil {
		return err
	}

	claims, err := s.svc.Downloads.Verify(c.Request().Context(), token)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, verifyResponse{
		FileName:    claims.FileName,
		FileSize:    sizex.FormatMB(claims.FileSize),
		DownloadURL: s.svc.Downloads.StartURL(token),
	})
}

// handleStartDownload streams the file. Once headers are sent a copy error
// can only be logged.
func (s *Server) handleStartDownload(c echo.Context) error {
	token, err := tokenParam(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	stream, err := s.svc.Downloads.Open(ctx, token)
	if err != nil {
		return err
	}
	defer s.closeQuietly(ctx, stream.Body)

	h := c.Response().Header()
	h.Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": stream.Claims.FileName}))
	h.Set(echo.HeaderContentType, echo.MIMEOctetStream)
	if stream.Size >= 0 {
		h.Set(echo.HeaderContentLength, strconv.FormatInt(stream.Size, 10))
	}
	c.Response().WriteHeader(http.StatusOK)

	n, err := io.Copy(c.Response(), stream.Body)
	if err != nil {
		s.log.Error(ctx, "download stream interrupted", "jti", stream.Claims.ID, "written", n, "error", err)
		return nil
	}

	s.log.Info(ctx, "download streamed", "jti", stream.Claims.ID, "user_id", stream.Claims.UserID, "bytes", n)
	return nil
}

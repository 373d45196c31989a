package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/server/services"
)

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

func queryInt(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return n
}

func feedInput(c echo.Context) services.FeedInput {
	return services.FeedInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Resolution:  c.FormValue("resolution"),
		Duration:    c.FormValue("duration"),
	}
}

// formUpload opens the named multipart part. A missing part yields a nil
// Upload and a no-op closer.
func formUpload(c echo.Context, field string) (*services.Upload, io.Closer, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, noopCloser{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid %s upload", common.ErrorValidation, field)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("error opening %s upload: %w", field, err)
	}

	return &services.Upload{Name: fh.Filename, ContentType: fh.Header.Get(echo.HeaderContentType), Body: f}, f, nil
}

func (s *Server) uploads(c echo.Context) (file, image *services.Upload, done func(), err error) {
	file, fc, err := formUpload(c, "file")
	if err != nil {
		return nil, nil, nil, err
	}
	image, ic, err := formUpload(c, "image")
	if err != nil {
		s.closeQuietly(c.Request().Context(), fc)
		return nil, nil, nil, err
	}
	done = func() {
		s.closeQuietly(c.Request().Context(), fc)
		s.closeQuietly(c.Request().Context(), ic)
	}
	return file, image, done, nil
}

func (s *Server) handleFeedList(c echo.Context) error {
	page, err := s.svc.Feed.List(c.Request().Context(), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFeedPageDTO(page))
}

func (s *Server) handleFeedGet(c echo.Context) error {
	item, err := s.svc.Feed.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFeedItemDTO(item))
}

func (s *Server) handleFeedCreate(c echo.Context) error {
	file, image, done, err := s.uploads(c)
	if err != nil {
		return err
	}
	defer done()

	item, created, err := s.svc.Feed.Create(c.Request().Context(), feedInput(c), file, image)
	if err != nil {
		return err
	}

	if !created {
		return c.JSON(http.StatusOK, feedItemResponse{Message: "File already exists", Item: toFeedItemDTO(item)})
	}
	return c.JSON(http.StatusCreated, feedItemResponse{Message: "Feed created successfully", Item: toFeedItemDTO(item)})
}

func (s *Server) handleFeedUpdate(c echo.Context) error {
	file, image, done, err := s.uploads(c)
	if err != nil {
		return err
	}
	defer done()

	item, err := s.svc.Feed.Update(c.Request().Context(), c.Param("id"), feedInput(c), file, image)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, feedItemResponse{Message: "Item updated successfully", Item: toFeedItemDTO(item)})
}

func (s *Server) handleFeedDelete(c echo.Context) error {
	if err := s.svc.Feed.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Item deleted successfully"})
}

package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"tapevault/internal/deliver"
	"tapevault/internal/logging"
)

// StreamHandler serves asset bytes: range-aware streaming for playback
// and whole-file downloads.
type StreamHandler struct {
	delivery *deliver.Service
	logger   *slog.Logger
}

// NewStreamHandler builds the delivery handler.
func NewStreamHandler(logger *slog.Logger, delivery *deliver.Service) *StreamHandler {
	return &StreamHandler{
		delivery: delivery,
		logger:   logging.WithComponent(logger, "stream"),
	}
}

// Register wires the delivery routes.
func (h *StreamHandler) Register(e *echo.Echo) {
	e.GET("/api/media/:id/stream", h.stream)
	e.GET("/api/media/:id/download", h.download)
}

func (h *StreamHandler) stream(c echo.Context) error {
	id := c.Param("id")
	stream, err := h.delivery.OpenRequest(c.Request().Context(), id, c.Request().Header.Get("Range"))
	if err != nil {
		return respondError(c, err)
	}
	defer stream.Close()

	c.Response().Header().Set("Accept-Ranges", "bytes")
	c.Response().Header().Set("Content-Length", strconv.FormatInt(stream.Length, 10))
	if stream.Partial {
		c.Response().Header().Set("Content-Range",
			fmt.Sprintf("bytes %d-%d/%d", stream.Start, stream.Start+stream.Length-1, stream.Total))
		return c.Stream(http.StatusPartialContent, stream.Asset.MIME, stream)
	}
	return c.Stream(http.StatusOK, stream.Asset.MIME, stream)
}

func (h *StreamHandler) download(c echo.Context) error {
	id := c.Param("id")
	stream, err := h.delivery.Open(c.Request().Context(), id, nil)
	if err != nil {
		return respondError(c, err)
	}
	defer stream.Close()

	filename := stream.Asset.Title
	if filename == "" {
		filename = stream.Asset.ID
	}
	c.Response().Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().Header().Set("Content-Length", strconv.FormatInt(stream.Length, 10))
	return c.Stream(http.StatusOK, stream.Asset.MIME, stream)
}

package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

func RespondOK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

func RespondCreated(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, data)
}

// RespondAccepted answers a request whose work was queued.
func RespondAccepted(c echo.Context, data any) error {
	return c.JSON(http.StatusAccepted, data)
}

func RespondNoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// MessageResponse acknowledges an action that has no resource to return.
type MessageResponse struct {
	Message string `json:"message"`
}

func RespondMessage(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, MessageResponse{Message: message})
}

// RespondDownload streams an attachment named filename.
func RespondDownload(c echo.Context, contentType, filename string, write func(io.Writer) error) error {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, contentType)
	h.Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Response().WriteHeader(http.StatusOK)
	return write(c.Response())
}

// ListResponse is one page of a list endpoint.
type ListResponse[T any] struct {
	Data    []T  `json:"data"`
	Total   int  `json:"total"`
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

// RespondList sends a page of data. A nil page is sent as [].
func RespondList[T any](c echo.Context, data []T, total, offset, limit int) error {
	if data == nil {
		data = []T{}
	}
	return c.JSON(http.StatusOK, ListResponse[T]{
		Data:    data,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		HasMore: offset+len(data) < total,
	})
}

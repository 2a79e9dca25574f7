package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "taskhub/internal/errors"
	"taskhub/internal/model"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Data    interface{}            `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Errors  []apperrors.FieldError `json:"errors,omitempty"`
}

func respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Response{Success: true, Data: data})
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{Success: true, Message: message})
}

// ErrorHandler renders every error returned from a handler or middleware
// through the response envelope. It is installed as echo's HTTPErrorHandler.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *apperrors.HTTPError
	if he, ok := err.(*echo.HTTPError); ok {
		httpErr = apperrors.NewHTTPError(he.Code, echoMessage(he), "")
	} else {
		httpErr = apperrors.MapErrorToHTTP(err, "Server error")
	}

	if httpErr.StatusCode >= http.StatusInternalServerError {
		c.Logger().Errorf("request_id=%s method=%s path=%s error=%v",
			c.Response().Header().Get(echo.HeaderXRequestID), c.Request().Method, c.Path(), err)
	}

	body := Response{
		Success: false,
		Message: httpErr.Message,
		Error:   httpErr.Detail,
		Errors:  httpErr.Fields,
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(httpErr.StatusCode)
	} else {
		writeErr = c.JSON(httpErr.StatusCode, body)
	}
	if writeErr != nil {
		c.Logger().Error(writeErr)
	}
}

func echoMessage(he *echo.HTTPError) string {
	if msg, ok := he.Message.(string); ok {
		return msg
	}
	if he.Message == nil {
		return http.StatusText(he.Code)
	}
	return fmt.Sprint(he.Message)
}

// bindAndValidate decodes the request body into req and runs struct validation.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.NewHTTPError(http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
	}
	return c.Validate(req)
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.Invalid(name, "Invalid id")
	}
	return id, nil
}

// parseOptionalUUID returns nil for an empty string.
func parseOptionalUUID(field, raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.Invalid(field, "Invalid id")
	}
	return &id, nil
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// parseOptionalDate accepts RFC 3339 timestamps and plain dates. Empty means nil.
func parseOptionalDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.Invalid(field, "Invalid date")
}

// clearableUUID turns a JSON string-or-null field into a patch value where
// null and "" both clear.
func clearableUUID(field string, in model.Optional[string]) (model.Optional[uuid.UUID], error) {
	if !in.Set {
		return model.Optional[uuid.UUID]{}, nil
	}
	if in.Value == nil {
		return model.Null[uuid.UUID](), nil
	}
	id, err := parseOptionalUUID(field, *in.Value)
	if err != nil {
		return model.Optional[uuid.UUID]{}, err
	}
	return model.Optional[uuid.UUID]{Set: true, Value: id}, nil
}

func clearableDate(field string, in model.Optional[string]) (model.Optional[time.Time], error) {
	if !in.Set {
		return model.Optional[time.Time]{}, nil
	}
	if in.Value == nil {
		return model.Null[time.Time](), nil
	}
	t, err := parseOptionalDate(field, *in.Value)
	if err != nil {
		return model.Optional[time.Time]{}, err
	}
	return model.Optional[time.Time]{Set: true, Value: t}, nil
}

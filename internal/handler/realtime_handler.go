package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"taskhub/internal/auth"
	"taskhub/internal/realtime"
	"taskhub/internal/service"
)

const defaultKeepAlive = 15 * time.Second

// RealtimeHandler streams change notifications over Server-Sent Events.
type RealtimeHandler struct {
	hub            *realtime.Hub
	projectService service.ProjectService
	keepAlive      time.Duration
}

// NewRealtimeHandler creates a streaming handler. keepAlive <= 0 uses 15s.
func NewRealtimeHandler(hub *realtime.Hub, projectService service.ProjectService, keepAlive time.Duration) *RealtimeHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &RealtimeHandler{hub: hub, projectService: projectService, keepAlive: keepAlive}
}

// Stream godoc
// @Summary Subscribe to live updates
// @Description Joins a project's channel when project is given; broadcast events are always included.
// @Tags realtime
// @Produce text/event-stream
// @Security BearerAuth
// @Param project query string false "Project ID"
// @Param token query string false "Access token for clients that cannot set headers"
// @Success 200 {string} string "event stream"
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /realtime/events [get]
func (h *RealtimeHandler) Stream(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	channel := realtime.Broadcast
	projectID, err := parseOptionalUUID("project", c.QueryParam("project"))
	if err != nil {
		return err
	}
	if projectID != nil {
		// Joining a project channel requires read access.
		if _, err := h.projectService.Get(c.Request().Context(), *projectID, userID); err != nil {
			return err
		}
		channel = realtime.ProjectChannel(*projectID)
	}

	sub := h.hub.Subscribe(channel)
	defer sub.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	hello, _ := json.Marshal(echo.Map{"channel": channel})
	if err := writeSSE(res, "connected", hello); err != nil {
		return nil
	}

	ctx := c.Request().Context()
	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": keep-alive\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := writeSSE(res, string(ev.Kind), ev.Payload); err != nil {
				return nil
			}
		}
	}
}

func writeSSE(res *echo.Response, event string, data []byte) error {
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	res.Flush()
	return nil
}

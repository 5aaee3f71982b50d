package api

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"coaching-api/domain"
)

// streamDocument sends the room document as server-sent events, once on
// connect and again after every change.
func (s *server) streamDocument(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	room := roomID(c, scope)
	if room == "" {
		return jsonError(c, http.StatusBadRequest, "invalid room")
	}
	ctx := c.Request().Context()
	if _, err := s.Rooms.InitDocument(ctx, room); err != nil {
		return s.storageError(c, m, err)
	}
	updates, closeSub, err := s.Rooms.Subscribe(ctx, room)
	if err != nil {
		return s.storageError(c, m, err)
	}
	defer closeSub()

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.String(http.StatusInternalServerError, "stream unsupported")
	}
	c.Response().WriteHeader(http.StatusOK)

	frames := 0
	defer func() { m.Set("frames", frames) }()
	for {
		doc, err := s.Rooms.Document(ctx, room)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.Fail("storage", err)
			c.Logger().Error(err)
			return nil
		}
		data, err := sonic.ConfigStd.Marshal(doc)
		if err != nil {
			m.Fail("encode_response", err)
			return nil
		}
		if _, err := c.Response().Write([]byte("data: ")); err != nil {
			return nil
		}
		if _, err := c.Response().Write(data); err != nil {
			return nil
		}
		if _, err := c.Response().Write([]byte("\n\n")); err != nil {
			return nil
		}
		flusher.Flush()
		frames++

		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-updates:
			if !ok {
				return nil
			}
		}
	}
}

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"coaching-api/domain"
)

// roomID namespaces a room path parameter by organization. It returns ""
// when the parameter is not a usable key.
func roomID(c echo.Context, scope domain.Scope) string {
	room := c.Param("room")
	if !validKey(room) || strings.Contains(room, ":") {
		return ""
	}
	return scope.OrgID + ":" + room
}

func (s *server) boardError(c echo.Context, m *requestMetrics, err error) error {
	switch {
	case errors.Is(err, domain.ErrBoardNotFound), errors.Is(err, domain.ErrShapeNotOnBoard):
		return jsonError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConcurrencyConflict):
		m.SetErrorStage("conflict")
		return jsonError(c, http.StatusConflict, "boards changed concurrently, retry")
	}
	return s.storageError(c, m, err)
}

// listBoards reconciles the room's boards with its shapes before returning
// them.
func (s *server) listBoards(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	room := roomID(c, scope)
	if room == "" {
		return jsonError(c, http.StatusBadRequest, "invalid room")
	}
	boards, err := s.Boards.Reconcile(c.Request().Context(), room)
	if err != nil {
		return s.boardError(c, m, err)
	}
	m.Set("boards", len(boards))
	return c.JSON(http.StatusOK, boards)
}

func (s *server) createBoard(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	room := roomID(c, scope)
	if room == "" {
		return jsonError(c, http.StatusBadRequest, "invalid room")
	}
	var req createBoardRequest
	if err := decodeBody(c.Request().Body, jsonBodyMaxSize, &req); err != nil {
		m.SetErrorStage("decode")
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return jsonError(c, http.StatusBadRequest, "title is required")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	} else if !validKey(req.ID) {
		return jsonError(c, http.StatusBadRequest, "invalid board id")
	}
	b, err := s.Boards.Create(c.Request().Context(), room, req.ID, req.Title)
	if err != nil {
		return s.boardError(c, m, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (s *server) moveShape(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	room := roomID(c, scope)
	if room == "" {
		return jsonError(c, http.StatusBadRequest, "invalid room")
	}
	var req moveShapeRequest
	if err := decodeBody(c.Request().Body, jsonBodyMaxSize, &req); err != nil {
		m.SetErrorStage("decode")
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	if req.ShapeID == "" || req.BoardID == "" {
		return jsonError(c, http.StatusBadRequest, "shapeId and boardId are required")
	}
	boards, err := s.Boards.Move(c.Request().Context(), room, req.ShapeID, req.BoardID)
	if err != nil {
		return s.boardError(c, m, err)
	}
	s.publish(c, scope, domain.ActivityShapeMoved, req.ShapeID)
	return c.JSON(http.StatusOK, boards)
}

func (s *server) getDocument(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	room := roomID(c, scope)
	if room == "" {
		return jsonError(c, http.StatusBadRequest, "invalid room")
	}
	doc, err := s.Rooms.Document(c.Request().Context(), room)
	if err != nil {
		return s.storageError(c, m, err)
	}
	m.Set("shapes", len(doc.Shapes))
	return c.JSON(http.StatusOK, doc)
}

func (s *server) appendShapes(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	room := roomID(c, scope)
	if room == "" {
		return jsonError(c, http.StatusBadRequest, "invalid room")
	}
	var req appendShapesRequest
	if err := decodeBody(c.Request().Body, shapesBodyMaxSize, &req); err != nil {
		m.SetErrorStage("decode")
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	for _, sh := range req.Shapes {
		if sh.ID == "" || sh.Type == "" {
			return jsonError(c, http.StatusBadRequest, "shapes need an id and a type")
		}
	}
	doc, err := s.Rooms.AppendShapes(c.Request().Context(), room, req.Shapes)
	if err != nil {
		return s.storageError(c, m, err)
	}
	return c.JSON(http.StatusOK, doc)
}

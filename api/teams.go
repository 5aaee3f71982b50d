package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"coaching-api/domain"
)

func (s *server) listParticipants(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	participants, err := s.Teams.ListParticipants(c.Request().Context(), scope.OrgID)
	if err != nil {
		return s.storageError(c, m, err)
	}
	m.Set("participants_returned", len(participants))
	return c.JSON(http.StatusOK, participants)
}

func (s *server) createParticipant(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	var req createParticipantRequest
	if err := decodeBody(c.Request().Body, jsonBodyMaxSize, &req); err != nil {
		m.SetErrorStage("decode")
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return jsonError(c, http.StatusBadRequest, "name is required")
	}
	p := domain.Participant{
		ID:            uuid.NewString(),
		OrgID:         scope.OrgID,
		Name:          req.Name,
		Email:         req.Email,
		ScheduledDate: req.ScheduledDate,
		Status:        req.Status,
	}
	if err := s.Teams.CreateParticipant(c.Request().Context(), scope, p); err != nil {
		return s.storageError(c, m, err)
	}
	if p.ScheduledDate != nil {
		s.publish(c, scope, domain.ActivityParticipantUpdated, p.ID)
	}
	return c.JSON(http.StatusCreated, p)
}

// participantOr404 writes a 404 and returns nil when the participant is not
// part of the caller's organization.
func (s *server) participantOr404(c echo.Context, scope domain.Scope, m *requestMetrics, id string) (*domain.Participant, error) {
	if !validKey(id) {
		return nil, jsonError(c, http.StatusBadRequest, "invalid participant id")
	}
	p, err := s.Teams.GetParticipant(c.Request().Context(), scope, id)
	if err != nil {
		return nil, s.storageError(c, m, err)
	}
	if p == nil {
		return nil, jsonError(c, http.StatusNotFound, "participant not found")
	}
	return p, nil
}

func (s *server) getParticipant(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	p, err := s.participantOr404(c, scope, m, c.Param("id"))
	if p == nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *server) updateParticipant(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	var ch domain.ParticipantChanges
	if err := decodeBody(c.Request().Body, jsonBodyMaxSize, &ch); err != nil {
		m.SetErrorStage("decode")
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	p, err := s.participantOr404(c, scope, m, c.Param("id"))
	if p == nil {
		return err
	}
	if ch.ScheduledDate == nil && ch.Status == nil {
		return c.JSON(http.StatusOK, p)
	}
	if err := s.Teams.UpdateParticipant(c.Request().Context(), scope, p.ID, ch); err != nil {
		return s.storageError(c, m, err)
	}
	if ch.ScheduledDate != nil {
		p.ScheduledDate = ch.ScheduledDate
	}
	if ch.Status != nil {
		p.Status = *ch.Status
	}
	s.publish(c, scope, domain.ActivityParticipantUpdated, p.ID)
	return c.JSON(http.StatusOK, p)
}

func (s *server) deleteParticipant(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	id := c.Param("id")
	if !validKey(id) {
		return jsonError(c, http.StatusBadRequest, "invalid participant id")
	}
	if err := s.Teams.DeleteParticipant(c.Request().Context(), scope, id); err != nil {
		return s.storageError(c, m, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *server) listHypotheses(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	hypotheses, err := s.Teams.ListHypotheses(c.Request().Context(), scope.OrgID)
	if err != nil {
		return s.storageError(c, m, err)
	}
	return c.JSON(http.StatusOK, hypotheses)
}

func (s *server) createHypothesis(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	var req createHypothesisRequest
	if err := decodeBody(c.Request().Body, jsonBodyMaxSize, &req); err != nil {
		m.SetErrorStage("decode")
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return jsonError(c, http.StatusBadRequest, "title is required")
	}
	h := domain.Hypothesis{ID: uuid.NewString(), OrgID: scope.OrgID, Title: req.Title, Order: req.Order}
	if req.ConclusionStatus != "" {
		status, err := domain.ParseConclusionStatus(req.ConclusionStatus)
		if err != nil {
			return jsonError(c, http.StatusBadRequest, err.Error())
		}
		h.ConclusionStatus = status
	}
	if err := s.Teams.CreateHypothesis(c.Request().Context(), scope, h); err != nil {
		return s.storageError(c, m, err)
	}
	return c.JSON(http.StatusCreated, h)
}

func (s *server) setHypothesisStatus(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	id := c.Param("id")
	if !validKey(id) {
		return jsonError(c, http.StatusBadRequest, "invalid hypothesis id")
	}
	var req hypothesisStatusRequest
	if err := decodeBody(c.Request().Body, jsonBodyMaxSize, &req); err != nil {
		m.SetErrorStage("decode")
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	status, err := domain.ParseConclusionStatus(req.Status)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}
	if err := s.Teams.SetHypothesisStatus(c.Request().Context(), scope, id, status); err != nil {
		if errors.Is(err, domain.ErrUnknownConclusionStatus) {
			return jsonError(c, http.StatusBadRequest, err.Error())
		}
		return s.storageError(c, m, err)
	}
	s.publish(c, scope, domain.ActivityHypothesisStatus, id)
	return c.JSON(http.StatusOK, hypothesisStatusRequest{Status: string(status)})
}

func (s *server) deleteHypothesis(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	id := c.Param("id")
	if !validKey(id) {
		return jsonError(c, http.StatusBadRequest, "invalid hypothesis id")
	}
	if err := s.Teams.DeleteHypothesis(c.Request().Context(), scope, id); err != nil {
		return s.storageError(c, m, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *server) listQuestions(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	id := c.Param("id")
	if !validKey(id) {
		return jsonError(c, http.StatusBadRequest, "invalid hypothesis id")
	}
	questions, err := s.Teams.ListQuestions(c.Request().Context(), scope.OrgID, id)
	if err != nil {
		return s.storageError(c, m, err)
	}
	return c.JSON(http.StatusOK, questions)
}

func (s *server) createQuestion(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	id := c.Param("id")
	if !validKey(id) {
		return jsonError(c, http.StatusBadRequest, "invalid hypothesis id")
	}
	var req createQuestionRequest
	if err := decodeBody(c.Request().Body, jsonBodyMaxSize, &req); err != nil {
		m.SetErrorStage("decode")
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return jsonError(c, http.StatusBadRequest, "title is required")
	}
	h, err := s.Teams.GetHypothesis(c.Request().Context(), scope, id)
	if err != nil {
		return s.storageError(c, m, err)
	}
	if h == nil {
		return jsonError(c, http.StatusNotFound, "hypothesis not found")
	}
	q := domain.Question{ID: uuid.NewString(), OrgID: scope.OrgID, HypothesisID: h.ID, Title: req.Title, Order: req.Order}
	if err := s.Teams.CreateQuestion(c.Request().Context(), scope, q); err != nil {
		return s.storageError(c, m, err)
	}
	return c.JSON(http.StatusCreated, q)
}

func (s *server) listResponses(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	responses, err := s.Teams.ListResponses(c.Request().Context(), scope.OrgID)
	if err != nil {
		return s.storageError(c, m, err)
	}
	if pid := c.QueryParam("participantId"); pid != "" {
		filtered := responses[:0]
		for _, r := range responses {
			if r.ParticipantID == pid {
				filtered = append(filtered, r)
			}
		}
		responses = filtered
	}
	return c.JSON(http.StatusOK, responses)
}

// upsertResponse stores the latest answer for a (question, participant) pair.
// Persistence failures are reported to the caller.
func (s *server) upsertResponse(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	var req responseRequest
	if err := decodeBody(c.Request().Body, jsonBodyMaxSize, &req); err != nil {
		m.SetErrorStage("decode")
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	if !validKey(req.QuestionID) {
		return jsonError(c, http.StatusBadRequest, "invalid question id")
	}
	q, err := s.Teams.GetQuestion(c.Request().Context(), scope, req.QuestionID)
	if err != nil {
		return s.storageError(c, m, err)
	}
	if q == nil {
		return jsonError(c, http.StatusNotFound, "question not found")
	}
	p, err := s.participantOr404(c, scope, m, req.ParticipantID)
	if p == nil {
		return err
	}

	resp := domain.InterviewResponse{
		QuestionID:    q.ID,
		ParticipantID: p.ID,
		Response:      req.Response,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.Teams.UpsertResponse(c.Request().Context(), scope, resp); err != nil {
		return s.storageError(c, m, err)
	}
	s.publish(c, scope, domain.ActivityResponseRecorded, q.ID+":"+p.ID)
	return c.JSON(http.StatusOK, resp)
}

package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"coaching-api/domain"
	"coaching-api/storage"
)

const (
	headerIdempotencyKey      = "Idempotency-Key"
	dashboardFetchConcurrency = 8
	healthCheckTimeout        = 2 * time.Second
)

// Deps collects everything the HTTP surface talks to.
type Deps struct {
	Curriculum    Curriculum
	Completions   Completions
	Organizations Organizations
	Teams         Teams
	Boards        Boards
	Rooms         Rooms
	Blobs         Blobs
	Auth          Authenticator
	Activity      *ActivityPublisher
	HealthChecks  map[string]HealthCheck

	// SignInURL receives callers without a valid session, OrgSelectURL those
	// with a session but no active organization.
	SignInURL    string
	OrgSelectURL string
}

type server struct {
	Deps
	log      *log.Logger
	seenOrgs sync.Map
}

// scopedHandler serves a request on behalf of a resolved caller.
type scopedHandler func(c echo.Context, scope domain.Scope, m *requestMetrics) error

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, deps Deps, logger *log.Logger) {
	s := &server{Deps: deps, log: logger}

	route := func(method, path, name string, h scopedHandler) {
		e.Add(method, path, s.scoped(path, name, h))
	}

	route(http.MethodGet, "/api/tasks", "tasks.get", s.getTasks)
	route(http.MethodPut, "/api/tasks/:taskId/completion", "tasks.completion", s.putCompletion)
	route(http.MethodGet, "/api/dashboard", "dashboard.get", s.getDashboard)

	route(http.MethodGet, "/api/participants", "participants.list", s.listParticipants)
	route(http.MethodPost, "/api/participants", "participants.create", s.createParticipant)
	route(http.MethodGet, "/api/participants/:id", "participants.get", s.getParticipant)
	route(http.MethodPatch, "/api/participants/:id", "participants.update", s.updateParticipant)
	route(http.MethodDelete, "/api/participants/:id", "participants.delete", s.deleteParticipant)

	route(http.MethodGet, "/api/hypotheses", "hypotheses.list", s.listHypotheses)
	route(http.MethodPost, "/api/hypotheses", "hypotheses.create", s.createHypothesis)
	route(http.MethodPut, "/api/hypotheses/:id/status", "hypotheses.status", s.setHypothesisStatus)
	route(http.MethodDelete, "/api/hypotheses/:id", "hypotheses.delete", s.deleteHypothesis)
	route(http.MethodGet, "/api/hypotheses/:id/questions", "questions.list", s.listQuestions)
	route(http.MethodPost, "/api/hypotheses/:id/questions", "questions.create", s.createQuestion)

	route(http.MethodGet, "/api/responses", "responses.list", s.listResponses)
	route(http.MethodPut, "/api/responses", "responses.upsert", s.upsertResponse)

	route(http.MethodGet, "/api/attachments", "attachments.list", s.listAttachments)
	route(http.MethodPost, "/api/attachments", "attachments.create", s.createAttachment)

	route(http.MethodGet, "/api/rooms/:room/boards", "boards.list", s.listBoards)
	route(http.MethodPost, "/api/rooms/:room/boards", "boards.create", s.createBoard)
	route(http.MethodPost, "/api/rooms/:room/boards/move", "boards.move", s.moveShape)
	route(http.MethodGet, "/api/rooms/:room/document", "rooms.document", s.getDocument)
	route(http.MethodPost, "/api/rooms/:room/shapes", "rooms.shapes", s.appendShapes)
	e.GET("/api/rooms/:room/stream", tokenFromQuery(s.scoped("/api/rooms/:room/stream", "rooms.stream", s.streamDocument)))

	e.GET("/healthz", s.healthz)
}

// scoped resolves the caller, records request metrics and hands over to h.
func (s *server) scoped(route, name string, h scopedHandler) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newRequestMetrics(c.Request().Context(), s.log, route, name)
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() {
			metrics.Log(responseStatus(c, err), err)
		}()

		authStart := time.Now()
		scope, authErr := s.Auth.ScopeFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveStage("auth", time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			return s.redirectToSession(c, authErr)
		}
		s.rememberOrganization(ctx, scope)
		return h(c, scope, metrics)
	}
}

// redirectToSession sends the caller to sign in or to pick an organization.
// Without a configured destination the request is rejected with 401.
func (s *server) redirectToSession(c echo.Context, authErr error) error {
	target := s.SignInURL
	if errors.Is(authErr, errNoOrganization) {
		target = s.OrgSelectURL
	}
	if target == "" {
		return c.String(http.StatusUnauthorized, authErr.Error())
	}
	return c.Redirect(http.StatusFound, target)
}

// rememberOrganization registers the caller's organization the first time
// this instance sees it, so admin dashboards can enumerate teams.
func (s *server) rememberOrganization(ctx context.Context, scope domain.Scope) {
	if s.Organizations == nil {
		return
	}
	key := scope.OrgID + "\x00" + scope.OrgName
	if _, loaded := s.seenOrgs.LoadOrStore(key, struct{}{}); loaded {
		return
	}
	org := domain.Organization{ID: scope.OrgID, Name: scope.OrgName}
	if err := s.Organizations.UpsertOrganization(ctx, org); err != nil {
		s.seenOrgs.Delete(key)
		s.log.WithError(err).WithField("org", scope.OrgID).Warn("organization registration failed")
	}
}

func (s *server) publish(c echo.Context, scope domain.Scope, eventType, entityID string) {
	key := c.Request().Header.Get(headerIdempotencyKey)
	if key != "" {
		key += ":" + eventType + ":" + entityID
	}
	s.Activity.Publish(c.Request().Context(), domain.ActivityEvent{
		IdempotencyKey: key,
		OrgID:          scope.OrgID,
		UserID:         scope.UserID,
		Type:           eventType,
		EntityID:       entityID,
	})
}

func responseStatus(c echo.Context, err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if err != nil && !c.Response().Committed {
		return http.StatusInternalServerError
	}
	return c.Response().Status
}

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Error: msg})
}

// storageError answers 404 for rows missing from the caller's organization
// and 500 for everything else.
func (s *server) storageError(c echo.Context, m *requestMetrics, err error) error {
	if storage.IsNotFound(err) {
		m.SetErrorStage("storage")
		return jsonError(c, http.StatusNotFound, "not found")
	}
	m.Fail("storage", err)
	c.Logger().Error(err)
	return jsonError(c, http.StatusInternalServerError, err.Error())
}

func (s *server) healthz(c echo.Context) error {
	names := make([]string, 0, len(s.HealthChecks))
	for name := range s.HealthChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := map[string]string{}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
		err := s.HealthChecks[name](ctx)
		cancel()
		if err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		return c.JSON(http.StatusServiceUnavailable, failed)
	}
	return c.NoContent(http.StatusOK)
}

func (s *server) getTasks(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	var (
		tasks     []domain.Task
		completed []domain.CompletedTask
	)
	fetchStart := time.Now()
	g, ctx := errgroup.WithContext(c.Request().Context())
	g.Go(func() error {
		var err error
		tasks, err = s.Curriculum.FetchCurriculum(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		completed, err = s.Completions.FetchCompletions(ctx, scope)
		return err
	})
	err := g.Wait()
	m.ObserveStage("fetch", time.Since(fetchStart))
	if err != nil {
		return s.storageError(c, m, err)
	}

	state := domain.DeriveStepper(domain.GroupTasks(tasks), completed)
	m.Set("tasks_returned", len(tasks))
	m.Set("active_index", state.ActiveIndex)

	encodeStart := time.Now()
	err = c.JSON(http.StatusOK, tasksResponse{Stepper: state, Completed: completed})
	m.ObserveStage("encode", time.Since(encodeStart))
	if err != nil {
		m.SetErrorStage("encode_response")
	}
	return err
}

func (s *server) putCompletion(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	ctx := c.Request().Context()
	taskID := c.Param("taskId")
	if !validKey(taskID) {
		return jsonError(c, http.StatusBadRequest, "invalid task id")
	}
	var req completionRequest
	if err := decodeBody(c.Request().Body, jsonBodyMaxSize, &req); err != nil {
		m.SetErrorStage("decode")
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}

	tasks, err := s.Curriculum.FetchCurriculum(ctx)
	if err != nil {
		return s.storageError(c, m, err)
	}
	known := false
	for _, t := range tasks {
		if t.ID == taskID {
			known = true
			break
		}
	}
	if !known {
		return jsonError(c, http.StatusNotFound, "task not found")
	}

	completion := domain.CompletedTask{TaskID: taskID, UserID: scope.UserID, Completed: req.Completed, Data: req.Data}
	if err := s.Completions.SetCompletion(ctx, scope, completion); err != nil {
		return s.storageError(c, m, err)
	}
	s.publish(c, scope, domain.ActivityTaskCompletion, taskID)
	return c.JSON(http.StatusOK, completion)
}

func (s *server) getDashboard(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	if !scope.IsAdmin() {
		m.SetErrorStage("forbidden")
		return jsonError(c, http.StatusForbidden, "admin role required")
	}

	fetchStart := time.Now()
	orgs, err := s.Organizations.ListOrganizations(c.Request().Context())
	if err != nil {
		return s.storageError(c, m, err)
	}

	data := make([]domain.OrgData, len(orgs))
	g, ctx := errgroup.WithContext(c.Request().Context())
	g.SetLimit(dashboardFetchConcurrency)
	for i, org := range orgs {
		i, org := i, org
		g.Go(func() error {
			participants, err := s.Teams.ListParticipants(ctx, org.ID)
			if err != nil {
				return err
			}
			hypotheses, err := s.Teams.ListHypotheses(ctx, org.ID)
			if err != nil {
				return err
			}
			responses, err := s.Teams.ListResponses(ctx, org.ID)
			if err != nil {
				return err
			}
			data[i] = domain.OrgData{Organization: org, Participants: participants, Hypotheses: hypotheses, Responses: responses}
			return nil
		})
	}
	err = g.Wait()
	m.ObserveStage("fetch", time.Since(fetchStart))
	if err != nil {
		return s.storageError(c, m, err)
	}

	teams := domain.BuildDashboard(data)
	m.Set("organizations", len(teams))
	return c.JSON(http.StatusOK, dashboardResponse{Teams: teams})
}

package api

import (
	"io"
	"time"

	"github.com/bytedance/sonic"

	"coaching-api/domain"
)

const (
	jsonBodyMaxSize   = 64 * 1024 // 64 KiB
	shapesBodyMaxSize = 1 << 20   // 1 MiB
	uploadMaxSize     = 25 << 20  // 25 MiB
)

// errorResponse is the body of every JSON error reply.
type errorResponse struct {
	Error string `json:"error"`
	// URL is set when a file was uploaded but could not be recorded.
	URL string `json:"url,omitempty"`
}

// GET /api/tasks response body
type tasksResponse struct {
	Stepper   domain.StepperState    `json:"stepper"`
	Completed []domain.CompletedTask `json:"completed"`
}

// PUT /api/tasks/:taskId/completion request body
type completionRequest struct {
	Completed bool   `json:"completed"`
	Data      string `json:"data,omitempty"`
}

// GET /api/dashboard response body
type dashboardResponse struct {
	Teams []domain.TeamDashboard `json:"teams"`
}

// POST /api/participants request body
type createParticipantRequest struct {
	Name          string     `json:"name"`
	Email         string     `json:"email,omitempty"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`
	Status        string     `json:"status,omitempty"`
}

// POST /api/hypotheses request body
type createHypothesisRequest struct {
	Title            string `json:"title"`
	Order            int    `json:"order"`
	ConclusionStatus string `json:"conclusionStatus,omitempty"`
}

// PUT /api/hypotheses/:id/status request body
type hypothesisStatusRequest struct {
	Status string `json:"status"`
}

// POST /api/hypotheses/:id/questions request body
type createQuestionRequest struct {
	Title string `json:"title"`
	Order int    `json:"order"`
}

// PUT /api/responses request body
type responseRequest struct {
	QuestionID    string `json:"questionId"`
	ParticipantID string `json:"participantId"`
	Response      string `json:"response"`
}

// POST /api/rooms/:room/boards request body
type createBoardRequest struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
}

// POST /api/rooms/:room/boards/move request body
type moveShapeRequest struct {
	ShapeID string `json:"shapeId"`
	BoardID string `json:"boardId"`
}

// POST /api/rooms/:room/shapes request body
type appendShapesRequest struct {
	Shapes []domain.Shape `json:"shapes"`
}

// decodeBody reads at most limit bytes of strict JSON into v.
func decodeBody(r io.Reader, limit int64, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(r, limit))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

package api

import (
	"context"
	"io"

	"coaching-api/domain"
	"coaching-api/storage"
)

// Curriculum returns the shared task catalogue.
type Curriculum interface {
	FetchCurriculum(ctx context.Context) ([]domain.Task, error)
}

// Completions stores per-user task completion.
type Completions interface {
	FetchCompletions(ctx context.Context, scope domain.Scope) ([]domain.CompletedTask, error)
	SetCompletion(ctx context.Context, scope domain.Scope, c domain.CompletedTask) error
}

// Organizations is the registry of teams seen by the service.
type Organizations interface {
	ListOrganizations(ctx context.Context) ([]domain.Organization, error)
	UpsertOrganization(ctx context.Context, org domain.Organization) error
}

// Teams abstracts the per-organization interview records.
type Teams interface {
	ListParticipants(ctx context.Context, orgID string) ([]domain.Participant, error)
	GetParticipant(ctx context.Context, scope domain.Scope, id string) (*domain.Participant, error)
	CreateParticipant(ctx context.Context, scope domain.Scope, p domain.Participant) error
	UpdateParticipant(ctx context.Context, scope domain.Scope, id string, ch domain.ParticipantChanges) error
	DeleteParticipant(ctx context.Context, scope domain.Scope, id string) error

	ListHypotheses(ctx context.Context, orgID string) ([]domain.Hypothesis, error)
	GetHypothesis(ctx context.Context, scope domain.Scope, id string) (*domain.Hypothesis, error)
	CreateHypothesis(ctx context.Context, scope domain.Scope, h domain.Hypothesis) error
	SetHypothesisStatus(ctx context.Context, scope domain.Scope, id string, status domain.ConclusionStatus) error
	DeleteHypothesis(ctx context.Context, scope domain.Scope, id string) error

	ListQuestions(ctx context.Context, orgID, hypothesisID string) ([]domain.Question, error)
	GetQuestion(ctx context.Context, scope domain.Scope, id string) (*domain.Question, error)
	CreateQuestion(ctx context.Context, scope domain.Scope, q domain.Question) error

	ListResponses(ctx context.Context, orgID string) ([]domain.InterviewResponse, error)
	UpsertResponse(ctx context.Context, scope domain.Scope, r domain.InterviewResponse) error

	ListAttachments(ctx context.Context, orgID string) ([]domain.Attachment, error)
	RecordAttachment(ctx context.Context, scope domain.Scope, a domain.Attachment) error
}

// Boards reconciles and edits kanban boards of a room.
type Boards interface {
	Reconcile(ctx context.Context, roomID string) ([]domain.Board, error)
	Move(ctx context.Context, roomID, shapeID, to string) ([]domain.Board, error)
	Create(ctx context.Context, roomID, id, title string) (domain.Board, error)
}

// Rooms holds the live collaborative documents.
type Rooms interface {
	Document(ctx context.Context, roomID string) (domain.RoomDocument, error)
	InitDocument(ctx context.Context, roomID string) (bool, error)
	AppendShapes(ctx context.Context, roomID string, shapes []domain.Shape) (domain.RoomDocument, error)
	Subscribe(ctx context.Context, roomID string) (<-chan struct{}, func() error, error)
}

// Blobs uploads attachment payloads.
type Blobs interface {
	Upload(ctx context.Context, key, name, contentType string, size int64, r io.Reader) (storage.UploadedFile, error)
}

// ActivitySink delivers activity events to the feed.
type ActivitySink interface {
	EnqueueActivity(ctx context.Context, events []domain.ActivityEvent) error
}

// Authenticator is implemented by types able to resolve a caller from headers.
type Authenticator interface {
	ScopeFromAuthHeader(string) (domain.Scope, error)
}

// Deduper prevents publishing the same activity event twice.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, orgID, key string) (bool, error)
	// Remove deletes a previously added key, used when downstream processing fails.
	Remove(ctx context.Context, orgID, key string) error
}

// HealthCheck probes a dependency.
type HealthCheck func(ctx context.Context) error

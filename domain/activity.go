package domain

// Activity event types emitted after successful writes.
const (
	ActivityTaskCompletion     = "task-completion-set"
	ActivityResponseRecorded   = "interview-response-recorded"
	ActivityParticipantUpdated = "participant-updated"
	ActivityAttachmentAdded    = "attachment-added"
	ActivityHypothesisStatus   = "hypothesis-status-set"
	ActivityShapeMoved         = "board-shape-moved"
)

// ActivityEvent describes a write that happened in a team's workspace.
type ActivityEvent struct {
	// IdempotencyKey deduplicates deliveries of the same event.
	IdempotencyKey string `json:"idempotencyKey"`
	OrgID          string `json:"orgId"`
	UserID         string `json:"userId"`
	Type           string `json:"type"`
	EntityID       string `json:"entityId"`
	Timestamp      int64  `json:"timestamp"`
}

package domain

import "time"

// Attachment is a file uploaded to object storage and linked to a team.
type Attachment struct {
	ID            string    `json:"id"`
	OrgID         string    `json:"orgId"`
	ParticipantID string    `json:"participantId,omitempty"`
	URL           string    `json:"url"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	Size          int64     `json:"size"`
	CreatedAt     time.Time `json:"createdAt"`
}

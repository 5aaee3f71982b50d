package storage

import (
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

const (
	edmInt64    = "Edm.Int64"
	edmDateTime = "Edm.DateTime"
)

// Curriculum partitions.
const (
	partitionLists    = "list"
	partitionSections = "section"
	partitionTasks    = "task"
	partitionOrgs     = "org"
)

type listEntity struct {
	aztables.Entity
	Title string `json:"Title"`
	Order int    `json:"Order"`
}

type sectionEntity struct {
	aztables.Entity
	Title string `json:"Title"`
	Order int    `json:"Order"`
}

type taskEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description,omitempty"`
	URL         string `json:"URL,omitempty"`
	Type        string `json:"Type"`
	Order       int    `json:"Order"`
	ListID      string `json:"ListID"`
	SectionID   string `json:"SectionID,omitempty"`
}

type completionEntity struct {
	aztables.Entity
	Completed bool   `json:"Completed"`
	Data      string `json:"Data,omitempty"`
}

type organizationEntity struct {
	aztables.Entity
	Name string `json:"Name"`
}

type participantEntity struct {
	aztables.Entity
	Name              string     `json:"Name"`
	Email             string     `json:"Email,omitempty"`
	ScheduledDate     *time.Time `json:"ScheduledDate,omitempty"`
	ScheduledDateType *string    `json:"ScheduledDate@odata.type,omitempty"`
	Status            string     `json:"Status,omitempty"`
}

type participantUpdate struct {
	aztables.Entity
	ScheduledDate     *time.Time `json:"ScheduledDate,omitempty"`
	ScheduledDateType *string    `json:"ScheduledDate@odata.type,omitempty"`
	Status            *string    `json:"Status,omitempty"`
}

type hypothesisEntity struct {
	aztables.Entity
	Title            string `json:"Title"`
	Order            int    `json:"Order"`
	ConclusionStatus string `json:"ConclusionStatus,omitempty"`
}

type hypothesisStatusUpdate struct {
	aztables.Entity
	ConclusionStatus string `json:"ConclusionStatus"`
}

type questionEntity struct {
	aztables.Entity
	HypothesisID string `json:"HypothesisID"`
	Title        string `json:"Title"`
	Order        int    `json:"Order"`
}

type responseEntity struct {
	aztables.Entity
	QuestionID    string    `json:"QuestionID"`
	ParticipantID string    `json:"ParticipantID"`
	Response      string    `json:"Response"`
	UpdatedAt     time.Time `json:"UpdatedAt"`
	UpdatedAtType string    `json:"UpdatedAt@odata.type"`
}

type attachmentEntity struct {
	aztables.Entity
	ParticipantID string    `json:"ParticipantID,omitempty"`
	URL           string    `json:"URL"`
	Name          string    `json:"Name"`
	Type          string    `json:"Type"`
	Size          int64     `json:"Size,string"`
	SizeType      string    `json:"Size@odata.type"`
	CreatedAt     time.Time `json:"CreatedAt"`
	CreatedAtType string    `json:"CreatedAt@odata.type"`
}

type boardEntity struct {
	aztables.Entity
	ETag     string `json:"odata.etag,omitempty"`
	Title    string `json:"Title"`
	Order    int    `json:"Order"`
	ShapeIDs string `json:"ShapeIDs"`
}

func key(pk, rk string) aztables.Entity {
	return aztables.Entity{PartitionKey: pk, RowKey: rk}
}

func ptr[T any](v T) *T { return &v }

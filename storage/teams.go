package storage

import (
	"context"
	"encoding/json"

	"coaching-api/domain"
)

// ListOrganizations returns every known organization.
func (s *Store) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	out := []domain.Organization{}
	err := listPartition(ctx, s.organizations, partitionOrgs, func(raw []byte) error {
		var ent organizationEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		out = append(out, domain.Organization{ID: ent.RowKey, Name: ent.Name})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertOrganization records an organization seen in a session.
func (s *Store) UpsertOrganization(ctx context.Context, org domain.Organization) error {
	return upsertEntity(ctx, s.organizations, organizationEntity{Entity: key(partitionOrgs, org.ID), Name: org.Name})
}

func participantFromEntity(ent participantEntity) domain.Participant {
	return domain.Participant{
		ID:            ent.RowKey,
		OrgID:         ent.PartitionKey,
		Name:          ent.Name,
		Email:         ent.Email,
		ScheduledDate: ent.ScheduledDate,
		Status:        ent.Status,
	}
}

// ListParticipants returns the participants of an organization.
func (s *Store) ListParticipants(ctx context.Context, orgID string) ([]domain.Participant, error) {
	out := []domain.Participant{}
	err := listPartition(ctx, s.participants, orgID, func(raw []byte) error {
		var ent participantEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		out = append(out, participantFromEntity(ent))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetParticipant returns nil when the participant does not exist in the
// caller's organization.
func (s *Store) GetParticipant(ctx context.Context, scope domain.Scope, id string) (*domain.Participant, error) {
	raw, _, err := getEntity(ctx, s.participants, scope.OrgID, id)
	if err != nil || raw == nil {
		return nil, err
	}
	var ent participantEntity
	if err := json.Unmarshal(raw, &ent); err != nil {
		return nil, err
	}
	p := participantFromEntity(ent)
	return &p, nil
}

// CreateParticipant stores a new participant in the caller's organization.
func (s *Store) CreateParticipant(ctx context.Context, scope domain.Scope, p domain.Participant) error {
	ent := participantEntity{
		Entity:        key(scope.OrgID, p.ID),
		Name:          p.Name,
		Email:         p.Email,
		ScheduledDate: p.ScheduledDate,
		Status:        p.Status,
	}
	if p.ScheduledDate != nil {
		ent.ScheduledDateType = ptr(edmDateTime)
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.participants.AddEntity(ctx, payload, nil)
	return err
}

// UpdateParticipant merges schedule and status changes.
func (s *Store) UpdateParticipant(ctx context.Context, scope domain.Scope, id string, ch domain.ParticipantChanges) error {
	upd := participantUpdate{Entity: key(scope.OrgID, id), ScheduledDate: ch.ScheduledDate, Status: ch.Status}
	if ch.ScheduledDate != nil {
		upd.ScheduledDateType = ptr(edmDateTime)
	}
	return mergeEntity(ctx, s.participants, upd)
}

// DeleteParticipant removes a participant from the caller's organization.
func (s *Store) DeleteParticipant(ctx context.Context, scope domain.Scope, id string) error {
	return deleteEntity(ctx, s.participants, scope.OrgID, id)
}

// ListHypotheses returns the hypotheses of an organization.
func (s *Store) ListHypotheses(ctx context.Context, orgID string) ([]domain.Hypothesis, error) {
	out := []domain.Hypothesis{}
	err := listPartition(ctx, s.hypotheses, orgID, func(raw []byte) error {
		var ent hypothesisEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		out = append(out, hypothesisFromEntity(ent))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func hypothesisFromEntity(ent hypothesisEntity) domain.Hypothesis {
	return domain.Hypothesis{
		ID:               ent.RowKey,
		OrgID:            ent.PartitionKey,
		Title:            ent.Title,
		Order:            ent.Order,
		ConclusionStatus: domain.ConclusionStatus(ent.ConclusionStatus),
	}
}

// GetHypothesis returns nil when the hypothesis does not exist in the
// caller's organization.
func (s *Store) GetHypothesis(ctx context.Context, scope domain.Scope, id string) (*domain.Hypothesis, error) {
	raw, _, err := getEntity(ctx, s.hypotheses, scope.OrgID, id)
	if err != nil || raw == nil {
		return nil, err
	}
	var ent hypothesisEntity
	if err := json.Unmarshal(raw, &ent); err != nil {
		return nil, err
	}
	h := hypothesisFromEntity(ent)
	return &h, nil
}

// CreateHypothesis stores a new hypothesis.
func (s *Store) CreateHypothesis(ctx context.Context, scope domain.Scope, h domain.Hypothesis) error {
	payload, err := json.Marshal(hypothesisEntity{
		Entity:           key(scope.OrgID, h.ID),
		Title:            h.Title,
		Order:            h.Order,
		ConclusionStatus: string(h.ConclusionStatus),
	})
	if err != nil {
		return err
	}
	_, err = s.hypotheses.AddEntity(ctx, payload, nil)
	return err
}

// SetHypothesisStatus updates the conclusion of an existing hypothesis.
func (s *Store) SetHypothesisStatus(ctx context.Context, scope domain.Scope, id string, status domain.ConclusionStatus) error {
	return mergeEntity(ctx, s.hypotheses, hypothesisStatusUpdate{Entity: key(scope.OrgID, id), ConclusionStatus: string(status)})
}

// DeleteHypothesis removes a hypothesis.
func (s *Store) DeleteHypothesis(ctx context.Context, scope domain.Scope, id string) error {
	return deleteEntity(ctx, s.hypotheses, scope.OrgID, id)
}

// ListQuestions returns the organization's questions, optionally restricted
// to one hypothesis.
func (s *Store) ListQuestions(ctx context.Context, orgID, hypothesisID string) ([]domain.Question, error) {
	out := []domain.Question{}
	err := listPartition(ctx, s.questions, orgID, func(raw []byte) error {
		var ent questionEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		if hypothesisID != "" && ent.HypothesisID != hypothesisID {
			return nil
		}
		out = append(out, questionFromEntity(ent))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func questionFromEntity(ent questionEntity) domain.Question {
	return domain.Question{
		ID:           ent.RowKey,
		OrgID:        ent.PartitionKey,
		HypothesisID: ent.HypothesisID,
		Title:        ent.Title,
		Order:        ent.Order,
	}
}

// GetQuestion returns nil when the question does not exist in the caller's
// organization.
func (s *Store) GetQuestion(ctx context.Context, scope domain.Scope, id string) (*domain.Question, error) {
	raw, _, err := getEntity(ctx, s.questions, scope.OrgID, id)
	if err != nil || raw == nil {
		return nil, err
	}
	var ent questionEntity
	if err := json.Unmarshal(raw, &ent); err != nil {
		return nil, err
	}
	q := questionFromEntity(ent)
	return &q, nil
}

// CreateQuestion stores a new question under a hypothesis.
func (s *Store) CreateQuestion(ctx context.Context, scope domain.Scope, q domain.Question) error {
	payload, err := json.Marshal(questionEntity{
		Entity:       key(scope.OrgID, q.ID),
		HypothesisID: q.HypothesisID,
		Title:        q.Title,
		Order:        q.Order,
	})
	if err != nil {
		return err
	}
	_, err = s.questions.AddEntity(ctx, payload, nil)
	return err
}

// responseRowKey is the composite key enforcing one response per
// (question, participant) pair.
func responseRowKey(questionID, participantID string) string {
	return questionID + "|" + participantID
}

// ListResponses returns every interview response recorded by an organization.
func (s *Store) ListResponses(ctx context.Context, orgID string) ([]domain.InterviewResponse, error) {
	out := []domain.InterviewResponse{}
	err := listPartition(ctx, s.responses, orgID, func(raw []byte) error {
		var ent responseEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		out = append(out, domain.InterviewResponse{
			QuestionID:    ent.QuestionID,
			ParticipantID: ent.ParticipantID,
			Response:      ent.Response,
			UpdatedAt:     ent.UpdatedAt,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertResponse creates or replaces the response for the pair.
func (s *Store) UpsertResponse(ctx context.Context, scope domain.Scope, r domain.InterviewResponse) error {
	return upsertEntity(ctx, s.responses, responseEntity{
		Entity:        key(scope.OrgID, responseRowKey(r.QuestionID, r.ParticipantID)),
		QuestionID:    r.QuestionID,
		ParticipantID: r.ParticipantID,
		Response:      r.Response,
		UpdatedAt:     r.UpdatedAt.UTC(),
		UpdatedAtType: edmDateTime,
	})
}

// ListAttachments returns the organization's attachments.
func (s *Store) ListAttachments(ctx context.Context, orgID string) ([]domain.Attachment, error) {
	out := []domain.Attachment{}
	err := listPartition(ctx, s.attachments, orgID, func(raw []byte) error {
		var ent attachmentEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		out = append(out, domain.Attachment{
			ID:            ent.RowKey,
			OrgID:         ent.PartitionKey,
			ParticipantID: ent.ParticipantID,
			URL:           ent.URL,
			Name:          ent.Name,
			Type:          ent.Type,
			Size:          ent.Size,
			CreatedAt:     ent.CreatedAt,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordAttachment stores the metadata of an uploaded file.
func (s *Store) RecordAttachment(ctx context.Context, scope domain.Scope, a domain.Attachment) error {
	payload, err := json.Marshal(attachmentEntity{
		Entity:        key(scope.OrgID, a.ID),
		ParticipantID: a.ParticipantID,
		URL:           a.URL,
		Name:          a.Name,
		Type:          a.Type,
		Size:          a.Size,
		SizeType:      edmInt64,
		CreatedAt:     a.CreatedAt.UTC(),
		CreatedAtType: edmDateTime,
	})
	if err != nil {
		return err
	}
	_, err = s.attachments.AddEntity(ctx, payload, nil)
	return err
}

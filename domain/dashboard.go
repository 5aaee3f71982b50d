package domain

import "time"

// ConclusionStatus is the outcome recorded for a hypothesis.
type ConclusionStatus string

const (
	StatusTesting     ConclusionStatus = "Testing"
	StatusValidated   ConclusionStatus = "Validated"
	StatusInvalidated ConclusionStatus = "Invalidated"
)

// ParseConclusionStatus accepts only the three known statuses.
func ParseConclusionStatus(s string) (ConclusionStatus, error) {
	switch ConclusionStatus(s) {
	case StatusTesting, StatusValidated, StatusInvalidated:
		return ConclusionStatus(s), nil
	}
	return "", ErrUnknownConclusionStatus
}

// Organization is a team using the curriculum.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Participant is an interviewee tracked by a team.
type Participant struct {
	ID            string     `json:"id"`
	OrgID         string     `json:"orgId"`
	Name          string     `json:"name"`
	Email         string     `json:"email,omitempty"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`
	Status        string     `json:"status,omitempty"`
}

// ParticipantChanges is a partial participant update. Nil fields are left
// untouched.
type ParticipantChanges struct {
	ScheduledDate *time.Time `json:"scheduledDate"`
	Status        *string    `json:"status"`
}

// Hypothesis is a testable claim owned by a team.
type Hypothesis struct {
	ID               string           `json:"id"`
	OrgID            string           `json:"orgId"`
	Title            string           `json:"title"`
	Order            int              `json:"order"`
	ConclusionStatus ConclusionStatus `json:"conclusionStatus,omitempty"`
}

// Question belongs to a hypothesis and is asked during interviews.
type Question struct {
	ID           string `json:"id"`
	OrgID        string `json:"orgId"`
	HypothesisID string `json:"hypothesisId"`
	Title        string `json:"title"`
	Order        int    `json:"order"`
}

// InterviewResponse is a participant's answer to a question. There is at most
// one response per (question, participant) pair.
type InterviewResponse struct {
	QuestionID    string    `json:"questionId"`
	ParticipantID string    `json:"participantId"`
	Response      string    `json:"response"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// OrgData is everything the dashboard needs about one organization.
type OrgData struct {
	Organization Organization
	Participants []Participant
	Hypotheses   []Hypothesis
	Responses    []InterviewResponse
}

type InterviewCounts struct {
	Conducted int `json:"conducted"`
	Scheduled int `json:"scheduled"`
}

type HypothesisCounts struct {
	Testing     int `json:"testing"`
	Validated   int `json:"validated"`
	Invalidated int `json:"invalidated"`
}

// TeamDashboard holds the counters shown for one organization.
type TeamDashboard struct {
	Organization     Organization     `json:"organization"`
	Interviews       InterviewCounts  `json:"interviews"`
	HypothesisStatus HypothesisCounts `json:"hypothesisStatus"`
}

// BuildDashboard computes counters for each organization independently.
func BuildDashboard(orgs []OrgData) []TeamDashboard {
	out := make([]TeamDashboard, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, SummarizeOrg(o))
	}
	return out
}

// SummarizeOrg computes the dashboard counters of a single organization.
// Responses are joined to the organization through their participant; a
// participant with several responses counts once.
func SummarizeOrg(o OrgData) TeamDashboard {
	d := TeamDashboard{Organization: o.Organization}

	members := make(map[string]struct{}, len(o.Participants))
	for _, p := range o.Participants {
		if p.OrgID != o.Organization.ID {
			continue
		}
		members[p.ID] = struct{}{}
		if p.ScheduledDate != nil {
			d.Interviews.Scheduled++
		}
	}

	var conducted []string
	seen := make(map[string]struct{})
	for _, r := range o.Responses {
		if _, ok := members[r.ParticipantID]; !ok {
			continue
		}
		if _, dup := seen[r.ParticipantID]; dup {
			continue
		}
		seen[r.ParticipantID] = struct{}{}
		conducted = append(conducted, r.ParticipantID)
	}
	d.Interviews.Conducted = len(conducted)

	for _, h := range o.Hypotheses {
		if h.OrgID != o.Organization.ID {
			continue
		}
		switch h.ConclusionStatus {
		case StatusTesting:
			d.HypothesisStatus.Testing++
		case StatusValidated:
			d.HypothesisStatus.Validated++
		case StatusInvalidated:
			d.HypothesisStatus.Invalidated++
		}
	}
	return d
}

package domain

import (
	"errors"
	"testing"
	"time"
)

func TestSummarizeOrgCounts(t *testing.T) {
	when := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	org := Organization{ID: "o1", Name: "Team"}
	data := OrgData{
		Organization: org,
		Participants: []Participant{
			{ID: "p1", OrgID: "o1", ScheduledDate: &when},
			{ID: "p2", OrgID: "o1"},
			{ID: "p3", OrgID: "o1", ScheduledDate: &when},
		},
		Hypotheses: []Hypothesis{
			{ID: "h1", OrgID: "o1", ConclusionStatus: StatusTesting},
			{ID: "h2", OrgID: "o1", ConclusionStatus: StatusValidated},
			{ID: "h3", OrgID: "o1", ConclusionStatus: StatusValidated},
			{ID: "h4", OrgID: "o1", ConclusionStatus: StatusInvalidated},
			{ID: "h5", OrgID: "o1", ConclusionStatus: "testing"},
			{ID: "h6", OrgID: "o1"},
		},
		Responses: []InterviewResponse{
			{QuestionID: "q1", ParticipantID: "p1"},
			{QuestionID: "q2", ParticipantID: "p1"},
			{QuestionID: "q1", ParticipantID: "p2"},
			{QuestionID: "q1", ParticipantID: "other-org"},
		},
	}

	d := SummarizeOrg(data)
	if d.Interviews.Scheduled != 2 {
		t.Fatalf("expected 2 scheduled, got %d", d.Interviews.Scheduled)
	}
	if d.Interviews.Conducted != 2 {
		t.Fatalf("expected 2 conducted, got %d", d.Interviews.Conducted)
	}
	want := HypothesisCounts{Testing: 1, Validated: 2, Invalidated: 1}
	if d.HypothesisStatus != want {
		t.Fatalf("unexpected hypothesis counts: %+v", d.HypothesisStatus)
	}
}

func TestBuildDashboardConductedNeverExceedsParticipants(t *testing.T) {
	orgs := []OrgData{
		{
			Organization: Organization{ID: "a"},
			Participants: []Participant{{ID: "p1", OrgID: "a"}},
			Responses: []InterviewResponse{
				{QuestionID: "q1", ParticipantID: "p1"},
				{QuestionID: "q2", ParticipantID: "p1"},
				{QuestionID: "q3", ParticipantID: "p1"},
			},
		},
		{Organization: Organization{ID: "b"}},
	}
	out := BuildDashboard(orgs)
	if len(out) != 2 {
		t.Fatalf("expected 2 dashboards, got %d", len(out))
	}
	for i, d := range out {
		if d.Interviews.Conducted > len(orgs[i].Participants) {
			t.Fatalf("org %s conducted %d exceeds participants", d.Organization.ID, d.Interviews.Conducted)
		}
	}
	if out[0].Interviews.Conducted != 1 {
		t.Fatalf("expected one conducted interview, got %d", out[0].Interviews.Conducted)
	}
	if out[1] != (TeamDashboard{Organization: Organization{ID: "b"}}) {
		t.Fatalf("expected zero counters for empty org, got %+v", out[1])
	}
}

func TestParseConclusionStatus(t *testing.T) {
	if s, err := ParseConclusionStatus("Validated"); err != nil || s != StatusValidated {
		t.Fatalf("unexpected result: %q %v", s, err)
	}
	if _, err := ParseConclusionStatus("validated"); !errors.Is(err, ErrUnknownConclusionStatus) {
		t.Fatalf("expected unknown status error, got %v", err)
	}
}

package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"coaching-api/domain"
)

type recordingWriter struct {
	calls []string
	fail  string
}

func (w *recordingWriter) record(call string) error {
	w.calls = append(w.calls, call)
	if call == w.fail {
		return errors.New("boom")
	}
	return nil
}

func (w *recordingWriter) SaveList(ctx context.Context, l domain.TaskList) error {
	return w.record("list:" + l.ID)
}

func (w *recordingWriter) SaveSection(ctx context.Context, s domain.TaskSection) error {
	return w.record("section:" + s.ID)
}

func (w *recordingWriter) SaveTask(ctx context.Context, t domain.Task) error {
	return w.record("task:" + t.ID)
}

func TestParseCurriculumExample(t *testing.T) {
	f, err := os.Open("curriculum.example.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	c, err := parseCurriculum(f)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(c.Lists) != 2 || len(c.Sections) != 3 || len(c.Tasks) != 5 {
		t.Fatalf("unexpected counts lists=%d sections=%d tasks=%d", len(c.Lists), len(c.Sections), len(c.Tasks))
	}
	kickoff := c.Tasks[0]
	if kickoff.ID != "kickoff" || kickoff.Section.Valid {
		t.Fatalf("expected unsectioned kickoff first, got %+v", kickoff)
	}
	landing := c.Tasks[4]
	if landing.List.ID != "validation" || !landing.Section.Valid || landing.Section.Section.ID != "experiments" {
		t.Fatalf("landing page parents wrong: %+v", landing)
	}
	if c.Lists[1].Order != 1 || c.Sections[2].Order != 2 {
		t.Fatalf("orders not derived from position: %+v %+v", c.Lists, c.Sections)
	}

	groups := domain.GroupTasks(c.Tasks)
	if len(groups) != 2 || groups[0].List.ID != "discovery" {
		t.Fatalf("seed does not group cleanly: %+v", groups)
	}
}

func TestParseCurriculumDefaultsToLink(t *testing.T) {
	c, err := parseCurriculum(strings.NewReader("lists:\n  - id: a\n    tasks:\n      - id: t1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Tasks[0].Type != domain.TaskTypeLink {
		t.Fatalf("expected link, got %q", c.Tasks[0].Type)
	}
}

func TestParseCurriculumRejects(t *testing.T) {
	cases := map[string]string{
		"empty":          "lists: []\n",
		"missing id":     "lists:\n  - title: x\n",
		"duplicate task": "lists:\n  - id: a\n    tasks:\n      - id: t\n      - id: t\n",
		"bad type":       "lists:\n  - id: a\n    tasks:\n      - id: t\n        type: podcast\n",
		"unknown field":  "lists:\n  - id: a\n    colour: red\n",
		"not yaml":       "lists: [\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := parseCurriculum(strings.NewReader(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSeedWritesParentsFirst(t *testing.T) {
	c, err := parseCurriculum(strings.NewReader("lists:\n  - id: a\n    sections:\n      - id: s\n        tasks:\n          - id: t\n"))
	if err != nil {
		t.Fatal(err)
	}
	w := &recordingWriter{}
	if err := seedCurriculum(context.Background(), w, c); err != nil {
		t.Fatal(err)
	}
	want := []string{"list:a", "section:s", "task:t"}
	if strings.Join(w.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v want %v", w.calls, want)
	}
}

func TestSeedStopsOnError(t *testing.T) {
	c, err := parseCurriculum(strings.NewReader("lists:\n  - id: a\n    tasks:\n      - id: t1\n      - id: t2\n"))
	if err != nil {
		t.Fatal(err)
	}
	w := &recordingWriter{fail: "task:t1"}
	err = seedCurriculum(context.Background(), w, c)
	if err == nil || !strings.Contains(err.Error(), "t1") {
		t.Fatalf("expected wrapped t1 error, got %v", err)
	}
	if len(w.calls) != 2 {
		t.Fatalf("expected to stop after failing write, got %v", w.calls)
	}
}

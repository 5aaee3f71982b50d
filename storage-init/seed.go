package main

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"coaching-api/domain"
)

// curriculumFile is the YAML layout of a curriculum seed. Order fields are
// derived from position in the file.
type curriculumFile struct {
	Lists []listSpec `yaml:"lists"`
}

type listSpec struct {
	ID       string        `yaml:"id"`
	Title    string        `yaml:"title"`
	Sections []sectionSpec `yaml:"sections"`
	Tasks    []taskSpec    `yaml:"tasks"`
}

type sectionSpec struct {
	ID    string     `yaml:"id"`
	Title string     `yaml:"title"`
	Tasks []taskSpec `yaml:"tasks"`
}

type taskSpec struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
	Type        string `yaml:"type"`
}

// curriculum is a parsed seed ready to be written.
type curriculum struct {
	Lists    []domain.TaskList
	Sections []domain.TaskSection
	Tasks    []domain.Task
}

var taskTypes = map[domain.TaskType]bool{
	domain.TaskTypeVideo:    true,
	domain.TaskTypeImage:    true,
	domain.TaskTypeLink:     true,
	domain.TaskTypeModal:    true,
	domain.TaskTypeSchedule: true,
}

func parseCurriculum(r io.Reader) (curriculum, error) {
	var f curriculumFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return curriculum{}, fmt.Errorf("decode curriculum: %w", err)
	}
	if len(f.Lists) == 0 {
		return curriculum{}, fmt.Errorf("curriculum has no lists")
	}

	var out curriculum
	seen := map[string]string{}
	claim := func(kind, id string) error {
		if id == "" {
			return fmt.Errorf("%s without id", kind)
		}
		k := kind + "/" + id
		if _, dup := seen[k]; dup {
			return fmt.Errorf("duplicate %s id %q", kind, id)
		}
		seen[k] = id
		return nil
	}
	taskOrder := 0
	addTask := func(ts taskSpec, list domain.TaskList, sec domain.SectionRef) error {
		if err := claim("task", ts.ID); err != nil {
			return err
		}
		typ := domain.TaskType(ts.Type)
		if typ == "" {
			typ = domain.TaskTypeLink
		}
		if !taskTypes[typ] {
			return fmt.Errorf("task %q: unknown type %q", ts.ID, ts.Type)
		}
		out.Tasks = append(out.Tasks, domain.Task{
			ID:          ts.ID,
			Title:       ts.Title,
			Description: ts.Description,
			URL:         ts.URL,
			Type:        typ,
			Order:       taskOrder,
			List:        list,
			Section:     sec,
		})
		taskOrder++
		return nil
	}

	sectionOrder := 0
	for li, ls := range f.Lists {
		if err := claim("list", ls.ID); err != nil {
			return curriculum{}, err
		}
		list := domain.TaskList{ID: ls.ID, Title: ls.Title, Order: li}
		out.Lists = append(out.Lists, list)
		for _, ts := range ls.Tasks {
			if err := addTask(ts, list, domain.SectionRef{}); err != nil {
				return curriculum{}, err
			}
		}
		for _, ss := range ls.Sections {
			if err := claim("section", ss.ID); err != nil {
				return curriculum{}, err
			}
			sec := domain.TaskSection{ID: ss.ID, Title: ss.Title, Order: sectionOrder}
			sectionOrder++
			out.Sections = append(out.Sections, sec)
			for _, ts := range ss.Tasks {
				if err := addTask(ts, list, domain.InSection(sec)); err != nil {
					return curriculum{}, err
				}
			}
		}
	}
	return out, nil
}

type curriculumWriter interface {
	SaveList(ctx context.Context, l domain.TaskList) error
	SaveSection(ctx context.Context, sec domain.TaskSection) error
	SaveTask(ctx context.Context, t domain.Task) error
}

// seedCurriculum writes parents before tasks so readers never see a task
// whose list is missing.
func seedCurriculum(ctx context.Context, w curriculumWriter, c curriculum) error {
	for _, l := range c.Lists {
		if err := w.SaveList(ctx, l); err != nil {
			return fmt.Errorf("save list %s: %w", l.ID, err)
		}
	}
	for _, s := range c.Sections {
		if err := w.SaveSection(ctx, s); err != nil {
			return fmt.Errorf("save section %s: %w", s.ID, err)
		}
	}
	for _, t := range c.Tasks {
		if err := w.SaveTask(ctx, t); err != nil {
			return fmt.Errorf("save task %s: %w", t.ID, err)
		}
	}
	return nil
}

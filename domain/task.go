package domain

import (
	"math"
	"sort"
)

// TaskType selects how a curriculum step is presented.
type TaskType string

const (
	TaskTypeVideo    TaskType = "video"
	TaskTypeImage    TaskType = "image"
	TaskTypeLink     TaskType = "link"
	TaskTypeModal    TaskType = "modal"
	TaskTypeSchedule TaskType = "schedule"
)

// TaskList is an ordered container of sections and tasks.
type TaskList struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
}

// TaskSection is an ordered grouping key within a list.
type TaskSection struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
}

// SectionRef is an optional reference to a TaskSection.
type SectionRef struct {
	Section TaskSection
	Valid   bool
}

// InSection returns a present section reference.
func InSection(s TaskSection) SectionRef {
	return SectionRef{Section: s, Valid: true}
}

// UnsectionedTitle names the bucket for tasks without a section.
const UnsectionedTitle = "Unsectioned"

// Unsectioned is the synthetic section used for tasks without one. Its order
// sorts it after every real section.
var Unsectioned = TaskSection{Title: UnsectionedTitle, Order: math.MaxInt}

// Task represents a single curriculum step. List and Section are the
// denormalized parents loaded alongside the task.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"taskDescription,omitempty"`
	URL         string     `json:"taskUrl,omitempty"`
	Type        TaskType   `json:"type"`
	Order       int        `json:"order"`
	List        TaskList   `json:"-"`
	Section     SectionRef `json:"-"`
}

// CompletedTask records a user's completion of a task.
type CompletedTask struct {
	TaskID    string `json:"taskId"`
	UserID    string `json:"userId"`
	Completed bool   `json:"completed"`
	Data      string `json:"data,omitempty"`
}

// SectionGroup is a section together with its ordered tasks.
type SectionGroup struct {
	Section TaskSection `json:"section"`
	Tasks   []Task      `json:"tasks"`
}

// ListGroup is a list together with its ordered sections.
type ListGroup struct {
	List     TaskList       `json:"list"`
	Sections []SectionGroup `json:"sections"`
}

// TaskCount returns the number of tasks across all sections of the list.
func (g ListGroup) TaskCount() int {
	n := 0
	for _, s := range g.Sections {
		n += len(s.Tasks)
	}
	return n
}

type sectionKey struct {
	id    string
	valid bool
}

type listBucket struct {
	list     TaskList
	keys     []sectionKey
	sections map[sectionKey]*SectionGroup
}

// GroupTasks buckets a flat task slice by list and section. Lists, sections
// and tasks come back sorted by order; equal orders keep encounter order and
// the Unsectioned bucket is always last within its list.
func GroupTasks(tasks []Task) []ListGroup {
	var listIDs []string
	lists := make(map[string]*listBucket)

	for _, t := range tasks {
		lb, ok := lists[t.List.ID]
		if !ok {
			lb = &listBucket{list: t.List, sections: make(map[sectionKey]*SectionGroup)}
			lists[t.List.ID] = lb
			listIDs = append(listIDs, t.List.ID)
		}

		key := sectionKey{valid: t.Section.Valid}
		section := Unsectioned
		if t.Section.Valid {
			key.id = t.Section.Section.ID
			section = t.Section.Section
		}
		sg, ok := lb.sections[key]
		if !ok {
			sg = &SectionGroup{Section: section}
			lb.sections[key] = sg
			lb.keys = append(lb.keys, key)
		}
		sg.Tasks = append(sg.Tasks, t)
	}

	result := make([]ListGroup, 0, len(listIDs))
	for _, id := range listIDs {
		lb := lists[id]
		sections := make([]SectionGroup, 0, len(lb.keys))
		var unsectioned *SectionGroup
		for _, k := range lb.keys {
			sg := lb.sections[k]
			sort.SliceStable(sg.Tasks, func(i, j int) bool { return sg.Tasks[i].Order < sg.Tasks[j].Order })
			if !k.valid {
				unsectioned = sg
				continue
			}
			sections = append(sections, *sg)
		}
		sort.SliceStable(sections, func(i, j int) bool { return sections[i].Section.Order < sections[j].Section.Order })
		if unsectioned != nil {
			sections = append(sections, *unsectioned)
		}
		result = append(result, ListGroup{List: lb.list, Sections: sections})
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].List.Order < result[j].List.Order })
	return result
}

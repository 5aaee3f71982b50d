package domain

import (
	"strings"
	"testing"

	"github.com/bytedance/sonic"
)

func TestTaskMarshalIncludesZeroOrder(t *testing.T) {
	task := Task{ID: "t1", Title: "Title", Type: TaskTypeVideo, Order: 0}

	payload, err := sonic.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}

	if !strings.Contains(string(payload), "\"order\":0") {
		t.Fatalf("expected order field to be present, got %s", payload)
	}
}

func task(id, list string, listOrder int, section *TaskSection, order int) Task {
	t := Task{ID: id, Title: id, Order: order, List: TaskList{ID: list, Title: list, Order: listOrder}}
	if section != nil {
		t.Section = InSection(*section)
	}
	return t
}

func TestGroupTasksOrdersListsSectionsAndTasks(t *testing.T) {
	intro := &TaskSection{ID: "s-intro", Title: "Intro", Order: 1}
	basics := &TaskSection{ID: "s-basics", Title: "Basics", Order: 0}

	tasks := []Task{
		task("t1", "l2", 2, nil, 0),
		task("t2", "l1", 1, intro, 5),
		task("t3", "l1", 1, basics, 2),
		task("t4", "l1", 1, nil, 0),
		task("t5", "l1", 1, intro, 1),
		task("t6", "l1", 1, basics, 1),
	}

	groups := GroupTasks(tasks)
	if len(groups) != 2 {
		t.Fatalf("expected 2 lists, got %d", len(groups))
	}
	if groups[0].List.ID != "l1" || groups[1].List.ID != "l2" {
		t.Fatalf("unexpected list order: %s, %s", groups[0].List.ID, groups[1].List.ID)
	}

	l1 := groups[0]
	got := make([]string, 0, len(l1.Sections))
	for _, s := range l1.Sections {
		got = append(got, s.Section.Title)
	}
	want := []string{"Basics", "Intro", UnsectionedTitle}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected section order: %v", got)
	}
	if ids := taskIDs(l1.Sections[0].Tasks); ids != "t6,t3" {
		t.Fatalf("unexpected basics tasks: %s", ids)
	}
	if ids := taskIDs(l1.Sections[1].Tasks); ids != "t5,t2" {
		t.Fatalf("unexpected intro tasks: %s", ids)
	}
	if l1.Sections[2].Section.ID != "" || l1.Sections[2].Section.Order != Unsectioned.Order {
		t.Fatalf("unexpected unsectioned bucket: %#v", l1.Sections[2].Section)
	}
}

func TestGroupTasksKeepsEveryTaskOnce(t *testing.T) {
	s := &TaskSection{ID: "s", Order: 3}
	var tasks []Task
	for i := 0; i < 50; i++ {
		var sec *TaskSection
		if i%3 == 0 {
			sec = s
		}
		list := "a"
		if i%2 == 0 {
			list = "b"
		}
		tasks = append(tasks, task(string(rune('A'+i%26))+string(rune('a'+i/26)), list, i%2, sec, 10-i%7))
	}

	seen := map[string]int{}
	for _, g := range GroupTasks(tasks) {
		if g.TaskCount() == 0 {
			t.Fatalf("list %s has no tasks", g.List.ID)
		}
		for si, sg := range g.Sections {
			if si > 0 && sg.Section.Order < g.Sections[si-1].Section.Order {
				t.Fatalf("sections out of order in list %s", g.List.ID)
			}
			for ti, tk := range sg.Tasks {
				if ti > 0 && tk.Order < sg.Tasks[ti-1].Order {
					t.Fatalf("tasks out of order in section %q", sg.Section.Title)
				}
				seen[tk.ID]++
			}
		}
	}
	if len(seen) != len(tasks) {
		t.Fatalf("expected %d distinct tasks, got %d", len(tasks), len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("task %s appeared %d times", id, n)
		}
	}
}

func TestGroupTasksStableForEqualOrder(t *testing.T) {
	tasks := []Task{
		task("first", "l", 0, nil, 1),
		task("second", "l", 0, nil, 1),
		task("third", "l", 0, nil, 0),
	}
	groups := GroupTasks(tasks)
	if ids := taskIDs(groups[0].Sections[0].Tasks); ids != "third,first,second" {
		t.Fatalf("unexpected order: %s", ids)
	}
}

func TestGroupTasksEmpty(t *testing.T) {
	if groups := GroupTasks(nil); len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
}

func taskIDs(tasks []Task) string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return strings.Join(ids, ",")
}

package domain

import "testing"

func listGroup(id string, order int, taskIDs ...string) ListGroup {
	g := ListGroup{List: TaskList{ID: id, Order: order}}
	if len(taskIDs) == 0 {
		return g
	}
	sg := SectionGroup{Section: Unsectioned}
	for _, tid := range taskIDs {
		sg.Tasks = append(sg.Tasks, Task{ID: tid})
	}
	g.Sections = []SectionGroup{sg}
	return g
}

func done(ids ...string) []CompletedTask {
	out := make([]CompletedTask, 0, len(ids))
	for _, id := range ids {
		out = append(out, CompletedTask{TaskID: id, Completed: true})
	}
	return out
}

func TestDeriveStepperFirstIncompleteIsActive(t *testing.T) {
	groups := []ListGroup{
		listGroup("l1", 0, "a", "b"),
		listGroup("l2", 1, "c", "d"),
		listGroup("l3", 2, "e"),
	}
	state := DeriveStepper(groups, done("a", "b", "c"))

	if state.ActiveIndex != 1 || state.ActiveList == nil || state.ActiveList.ID != "l2" {
		t.Fatalf("expected l2 active, got %d %#v", state.ActiveIndex, state.ActiveList)
	}
	if !state.Lists[0].IsCompleted {
		t.Fatal("expected l1 to be completed")
	}
	if state.Lists[1].CompletedTasksCount != 1 || state.Lists[1].TotalTasks != 2 {
		t.Fatalf("unexpected l2 counts: %+v", state.Lists[1])
	}
}

func TestDeriveStepperAllCompleteSelectsLast(t *testing.T) {
	groups := []ListGroup{listGroup("l1", 0, "a"), listGroup("l2", 1, "b")}
	state := DeriveStepper(groups, done("a", "b"))
	if state.ActiveIndex != 1 || state.ActiveList.ID != "l2" {
		t.Fatalf("expected last list active, got %d", state.ActiveIndex)
	}
}

func TestDeriveStepperNoLists(t *testing.T) {
	state := DeriveStepper(nil, done("a"))
	if state.ActiveIndex != -1 || state.ActiveList != nil {
		t.Fatalf("expected no active list, got %d %#v", state.ActiveIndex, state.ActiveList)
	}
}

func TestDeriveStepperEmptyListComesFirst(t *testing.T) {
	groups := []ListGroup{listGroup("l1", 0), listGroup("l2", 1, "a", "b")}
	state := DeriveStepper(groups, done("a", "b"))

	if state.Lists[0].IsCompleted {
		t.Fatal("list without tasks must not be completed")
	}
	if !state.Lists[1].IsCompleted {
		t.Fatal("expected l2 to be completed")
	}
	if state.ActiveList == nil || state.ActiveList.ID != "l1" {
		t.Fatalf("expected empty l1 to be active, got %#v", state.ActiveList)
	}
}

func TestDeriveStepperIgnoresUncompletedRecords(t *testing.T) {
	groups := []ListGroup{listGroup("l1", 0, "a")}
	completed := []CompletedTask{{TaskID: "a", Completed: false, Data: "slot-2"}}
	state := DeriveStepper(groups, completed)
	if state.Lists[0].CompletedTasksCount != 0 || state.Lists[0].IsCompleted {
		t.Fatalf("unexpected progress: %+v", state.Lists[0])
	}
}

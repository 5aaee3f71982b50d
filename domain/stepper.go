package domain

// ListProgress is the completion state of a single task list.
type ListProgress struct {
	ListGroup
	TotalTasks          int  `json:"totalTasks"`
	CompletedTasksCount int  `json:"completedTasksCount"`
	IsCompleted         bool `json:"isCompleted"`
}

// StepperState drives the curriculum stepper. ActiveIndex is -1 when there
// are no lists.
type StepperState struct {
	Lists       []ListProgress `json:"lists"`
	ActiveIndex int            `json:"activeIndex"`
	ActiveList  *TaskList      `json:"activeList,omitempty"`
}

// DeriveStepper computes per-list completion and picks the active list: the
// first incomplete one, or the last list when all are complete. A list without
// tasks is never complete, so it becomes active when it comes first.
func DeriveStepper(groups []ListGroup, completed []CompletedTask) StepperState {
	done := make(map[string]struct{}, len(completed))
	for _, c := range completed {
		if c.Completed {
			done[c.TaskID] = struct{}{}
		}
	}

	state := StepperState{Lists: make([]ListProgress, 0, len(groups)), ActiveIndex: -1}
	for _, g := range groups {
		p := ListProgress{ListGroup: g}
		for _, s := range g.Sections {
			for _, t := range s.Tasks {
				p.TotalTasks++
				if _, ok := done[t.ID]; ok {
					p.CompletedTasksCount++
				}
			}
		}
		p.IsCompleted = p.TotalTasks > 0 && p.CompletedTasksCount == p.TotalTasks
		state.Lists = append(state.Lists, p)
	}

	for i, p := range state.Lists {
		if !p.IsCompleted {
			state.ActiveIndex = i
			break
		}
	}
	if state.ActiveIndex < 0 && len(state.Lists) > 0 {
		state.ActiveIndex = len(state.Lists) - 1
	}
	if state.ActiveIndex >= 0 {
		list := state.Lists[state.ActiveIndex].List
		state.ActiveList = &list
	}
	return state
}

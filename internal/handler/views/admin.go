package views

import (
	"context"
	"strconv"

	"github.com/cikmis/examclient/internal/authoring"
	"github.com/cikmis/examclient/internal/model"
)

const questionsPlaceholder = `[{"question_text": "...", "answer": "...", "options": ["...", "..."]}]`

// WizardData is what the wizard page shows.
type WizardData struct {
	Wizard       authoring.Wizard
	Universities []model.University
	Departments  []model.Department
	ClassLevels  []model.ClassLevel
	Questions    string // pasted text kept after a failed upload
	Error        string // localized
	Flash        string // localized
}

type wizardStep struct {
	num    int
	id     string
	active bool
}

func wizardSteps(current authoring.Step) []wizardStep {
	ids := []string{"StepUnit", "StepInfo", "StepQuestions"}
	steps := make([]wizardStep, len(ids))
	for i, id := range ids {
		steps[i] = wizardStep{num: i + 1, id: id, active: authoring.Step(i+1) == current}
	}
	return steps
}

type unitOption struct{ value, label string }

func universityOptions(us []model.University) []unitOption {
	opts := make([]unitOption, len(us))
	for i, u := range us {
		opts[i] = unitOption{itoa64(u.ID), u.Name}
	}
	return opts
}

func departmentOptions(ds []model.Department) []unitOption {
	opts := make([]unitOption, len(ds))
	for i, d := range ds {
		opts[i] = unitOption{itoa64(d.ID), d.Name}
	}
	return opts
}

func classLevelOptions(ctx context.Context, cls []model.ClassLevel) []unitOption {
	opts := make([]unitOption, len(cls))
	for i, cl := range cls {
		opts[i] = unitOption{itoa64(cl.ID), td(ctx, "ClassLevelN", map[string]any{"Level": cl.Level})}
	}
	return opts
}

func selected(u authoring.Unit, opt unitOption) bool {
	return u.Existing() && opt.value == itoa64(u.ID)
}

// newEntryValue is what the free-text field shows for u.
func newEntryValue(u authoring.Unit) string {
	if u.Existing() {
		return ""
	}
	return u.Name
}

func yearValue(year int) string {
	if year <= 0 {
		return ""
	}
	return strconv.Itoa(year)
}

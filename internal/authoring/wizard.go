package authoring

import (
	"encoding/json"
	"time"
)

// Step is a page of the wizard.
type Step int

const (
	StepUnit Step = iota + 1
	StepInfo
	StepQuestions
)

// Wizard is the state carried between wizard pages. Pasted questions are not
// part of it; they are submitted with the last page.
type Wizard struct {
	Step     Step     `json:"step"`
	Draft    Draft    `json:"draft"`
	Resolved Resolved `json:"resolved"`
	Info     ExamInfo `json:"info"`
}

// NewWizard starts a wizard on the first page.
func NewWizard(now time.Time) Wizard {
	return Wizard{Step: StepUnit, Info: NewExamInfo(now)}
}

// Back moves one page back. Entered data is kept.
func (w *Wizard) Back() {
	if w.Step > StepUnit {
		w.Step--
	}
}

// UnitDone records the resolved academic unit and moves to the info page.
func (w *Wizard) UnitDone(r Resolved) {
	w.Resolved = r
	// Created entities are existing from now on, so going back does not
	// create them twice.
	if r.UniversityID != 0 {
		w.Draft.University = Unit{ID: r.UniversityID, Name: w.Draft.University.Name}
	}
	if r.DepartmentID != 0 {
		w.Draft.Department = Unit{ID: r.DepartmentID, Name: w.Draft.Department.Name}
	}
	w.Draft.ClassLevel = Unit{ID: r.ClassLevelID, Name: w.Draft.ClassLevel.Name}
	w.Step = StepInfo
}

// InfoDone validates and stores the exam info and moves to the questions page.
func (w *Wizard) InfoDone(info ExamInfo) error {
	w.Info = info
	if err := info.Validate(); err != nil {
		return err
	}
	w.Step = StepQuestions
	return nil
}

// Encode serializes the wizard for a cookie session.
func (w Wizard) Encode() (string, error) {
	b, err := json.Marshal(w)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeWizard restores a wizard. An empty or broken value starts over.
func DecodeWizard(s string, now time.Time) Wizard {
	var w Wizard
	if s == "" || json.Unmarshal([]byte(s), &w) != nil || w.Step < StepUnit || w.Step > StepQuestions {
		return NewWizard(now)
	}
	return w
}

package views

import (
	"github.com/cikmis/examclient/internal/exam"
	"github.com/cikmis/examclient/internal/model"
)

const loadingRefreshSeconds = 2

// refreshSeconds keeps reloading the page while an assist request runs.
func refreshSeconds(v exam.View) int {
	if v.ExplainLoading || v.SimilarLoading {
		return loadingRefreshSeconds
	}
	return 0
}

func examPath(v exam.View, action string) string {
	return "/exam/" + itoa64(v.ExamID) + action
}

func optionClass(v exam.View, opt model.LabeledOption) string {
	if !v.Answered {
		return ""
	}
	switch opt.Text {
	case v.Outcome.CorrectAnswer:
		return "correct"
	case v.Outcome.Selected:
		return "wrong"
	}
	return ""
}

func nextLabelID(v exam.View) string {
	if v.IsLast {
		return "FinishExam"
	}
	return "NextQuestion"
}

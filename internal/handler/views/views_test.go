package views

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/cikmis/examclient/internal/exam"
	appI18n "github.com/cikmis/examclient/internal/i18n"
	"github.com/cikmis/examclient/internal/model"
)

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("init i18n: %v", err)
	}
	ctx := appI18n.WithLanguage(context.Background(), "en")
	ctx = model.ContextWithBasePath(ctx, "/quiz")
	return model.ContextWithCSRFToken(ctx, "tok")
}

func questionView(answered bool) exam.View {
	v := exam.View{
		ExamID:   5,
		Phase:    exam.PhaseReady,
		Index:    1,
		Total:    3,
		Question: model.Question{QuestionText: "Capital of France?", Answer: "Paris"},
		Options:  exam.LabelOptions([]string{"Paris", "Lyon"}),
	}
	if answered {
		v.Phase = exam.PhaseInProgress
		v.Answered = true
		v.Outcome = exam.Outcome{Selected: "Lyon", CorrectAnswer: "Paris"}
	}
	return v
}

func TestExamPageQuestion(t *testing.T) {
	ctx := testContext(t)
	body := render(t, ctx, ExamPage(questionView(false)))

	for _, want := range []string{
		`<!doctype html>`,
		`action="/quiz/exam/5/answer"`,
		`name="csrf_token" value="tok"`,
		`name="index" value="1"`,
		`name="option" value="1"`,
		"B) Lyon",
		"Question 2 / 3",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, " disabled") || strings.Contains(body, "/exam/5/next") {
		t.Errorf("unanswered question should have enabled options and no next button")
	}
}

func TestExamPageAnswered(t *testing.T) {
	ctx := testContext(t)
	body := render(t, ctx, ExamPage(questionView(true)))

	for _, want := range []string{
		`class="correct" disabled`,
		`class="wrong" disabled`,
		"Wrong. The correct answer is: Paris",
		`action="/quiz/exam/5/next"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if got := strings.Count(body, `name="index" value="1"`); got != 2 {
		t.Errorf("index fields = %d, want 2 (answer and next forms)", got)
	}
}

func TestExamPageEscapes(t *testing.T) {
	ctx := testContext(t)
	v := questionView(false)
	v.Question.QuestionText = `<script>alert("x")</script>`
	body := render(t, ctx, ExamPage(v))
	if strings.Contains(body, "<script>") {
		t.Errorf("question text was not escaped")
	}
}

func TestExamPageRefreshWhileLoading(t *testing.T) {
	ctx := testContext(t)
	v := questionView(true)
	v.ExplainLoading = true
	body := render(t, ctx, ExamPage(v))
	if !strings.Contains(body, `http-equiv="refresh" content="2"`) {
		t.Errorf("expected meta refresh while loading")
	}
	if strings.Contains(body, "/exam/5/explain") {
		t.Errorf("explain button should be hidden while loading")
	}
}

func TestLayoutAdminNav(t *testing.T) {
	ctx := testContext(t)
	if body := render(t, ctx, ExamErrorPage("FetchFailed")); strings.Contains(body, "/quiz/admin/logout") {
		t.Errorf("logout shown without an admin session")
	}
	ctx = model.ContextWithAdmin(ctx, &model.AdminSession{})
	if body := render(t, ctx, ExamErrorPage("FetchFailed")); !strings.Contains(body, `action="/quiz/admin/logout"`) {
		t.Errorf("expected logout form for admins")
	}
}

func TestHomePageLinks(t *testing.T) {
	ctx := testContext(t)
	uni := &model.University{ID: 1, Name: "Ege"}
	body := render(t, ctx, HomePage(HomeData{
		University:  uni,
		Departments: []model.Department{{ID: 2, Name: "CS"}},
	}))
	for _, want := range []string{"Ege", `href="/quiz/?department=2&amp;university=1"`, `href="/quiz/"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cikmis/examclient/internal/api"
	"github.com/cikmis/examclient/internal/exam"
	appI18n "github.com/cikmis/examclient/internal/i18n"
	"github.com/cikmis/examclient/internal/model"
	"github.com/cikmis/examclient/internal/store"
)

// fakeService mimics the exam service endpoints the web client uses.
type fakeService struct {
	mu       sync.Mutex
	failList bool
	exam     model.Exam
	uploaded []model.QuestionUpload
	created  []string
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	authed := r.Header.Get("Authorization") == "Bearer tok"
	write := func(body string) { _, _ = io.WriteString(w, body) }

	switch r.Method + " " + r.URL.Path {
	case "GET /academics/universities":
		if f.failList {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		write(`[{"id":1,"name":"Ege"}]`)
	case "GET /academics/universities/1/departments":
		write(`[{"id":2,"name":"CS","university_id":1}]`)
	case "GET /academics/departments/2/classes":
		write(`[{"id":3,"level":2,"department_id":2}]`)
	case "GET /exams/":
		write(`[{"id":5,"title":"Algebra 2024 Fall","course_name":"Algebra","year":2024,"semester":"Fall"}]`)
	case "GET /exams/5/questions":
		write(`[
			{"id":1,"exam_id":5,"question_text":"Capital of France?","answer":"Paris","options":["Paris","Lyon"]},
			{"id":2,"exam_id":5,"question_text":"What is 2+2?","answer":"4","options":"[\"3\",\"4\"]"}
		]`)
	case "POST /exams/explain-question":
		write(`{"explanation":"Paris is the capital."}`)
	case "POST /auth/login":
		if r.FormValue("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			write(`{"detail":"Incorrect username or password"}`)
			return
		}
		write(`{"access_token":"tok","token_type":"bearer"}`)
	case "POST /academics/universities", "POST /academics/departments", "POST /academics/class-levels":
		if !authed {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		f.created = append(f.created, r.URL.Path)
		switch r.URL.Path {
		case "/academics/universities":
			write(`{"id":10,"name":"New University"}`)
		case "/academics/departments":
			write(`{"id":11,"name":"Math","university_id":10}`)
		default:
			write(`{"id":12,"level":2,"department_id":11}`)
		}
	case "POST /exams/":
		if !authed {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&f.exam)
		f.exam.ID = 20
		_ = json.NewEncoder(w).Encode(f.exam)
	case "POST /exams/20/upload-questions":
		_ = json.NewDecoder(r.Body).Decode(&f.uploaded)
		_ = json.NewEncoder(w).Encode(f.uploaded)
	default:
		w.WriteHeader(http.StatusNotFound)
		write(`{"detail":"Not found"}`)
	}
}

func newTestApp(t *testing.T, svc *fakeService) (*httptest.Server, *store.Store) {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("init i18n: %v", err)
	}

	backend := httptest.NewServer(svc)
	t.Cleanup(backend.Close)
	c := api.New(backend.URL, 5*time.Second)

	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	h, err := New(c, c, st, model.ClientConfig{SessionKey: "0123456789abcdef0123456789abcdef"})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	r := chi.NewRouter()
	r.Use(appI18n.Middleware(false))
	r.Use(h.BasePathMiddleware)
	h.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, st
}

// browser keeps cookies between requests and does not follow redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, srv *httptest.Server) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &browser{
		t:    t,
		base: srv.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) get(path string) (int, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.base + path)
	if err != nil {
		b.t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func (b *browser) cookie(name string) string {
	u, _ := url.Parse(b.base)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// post submits form with the current CSRF token and returns status and Location.
func (b *browser) post(path string, form url.Values) (int, string) {
	b.t.Helper()
	status, loc, _ := b.postPage(path, form)
	return status, loc
}

func (b *browser) postPage(path string, form url.Values) (int, string, string) {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if form.Get("csrf_token") == "" {
		form.Set("csrf_token", b.cookie(csrfCookieName))
	}
	resp, err := b.client.PostForm(b.base+path, form)
	if err != nil {
		b.t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header.Get("Location"), string(body)
}

func TestHomeDrillDown(t *testing.T) {
	srv, _ := newTestApp(t, &fakeService{})
	b := newBrowser(t, srv)

	tests := []struct {
		name  string
		path  string
		wants []string
	}{
		{"universities", "/", []string{"Ege", "university=1"}},
		{"departments", "/?university=1", []string{"CS", "department=2"}},
		{"class levels", "/?university=1&department=2", []string{"class=3"}},
		{"exams", "/?university=1&department=2&class=3", []string{"Algebra 2024 Fall", "/exam/5"}},
		{"stale id falls back", "/?university=99", []string{"Ege"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := b.get(tt.path)
			if status != http.StatusOK {
				t.Fatalf("status = %d", status)
			}
			for _, want := range tt.wants {
				if !strings.Contains(body, want) {
					t.Errorf("body missing %q", want)
				}
			}
		})
	}
}

func TestHomeListFailed(t *testing.T) {
	srv, _ := newTestApp(t, &fakeService{failList: true})
	status, body := newBrowser(t, srv).get("/")
	if status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", status)
	}
	if !strings.Contains(body, "Could not load the list.") {
		t.Errorf("expected list failure message")
	}
}

func TestExamNotFound(t *testing.T) {
	srv, _ := newTestApp(t, &fakeService{})
	status, body := newBrowser(t, srv).get("/exam/7")
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
	if !strings.Contains(body, "No questions found for this exam.") {
		t.Errorf("expected no-questions message")
	}
}

func TestExamFlow(t *testing.T) {
	srv, st := newTestApp(t, &fakeService{})
	b := newBrowser(t, srv)

	status, body := b.get("/exam/5")
	if status != http.StatusOK || !strings.Contains(body, "Capital of France?") {
		t.Fatalf("unexpected first page %d", status)
	}
	if !strings.Contains(body, "Question 1 / 2") {
		t.Errorf("expected progress line")
	}

	if status, loc := b.post("/exam/5/answer", url.Values{"index": {"0"}, "option": {"0"}}); status != http.StatusSeeOther || loc != "/exam/5" {
		t.Fatalf("answer = %d %q", status, loc)
	}
	_, body = b.get("/exam/5")
	if !strings.Contains(body, "Correct!") {
		t.Errorf("expected correct feedback")
	}

	// A second answer for the same question is ignored.
	if status, _ := b.post("/exam/5/answer", url.Values{"index": {"0"}, "option": {"1"}}); status != http.StatusSeeOther {
		t.Errorf("repeat answer status = %d", status)
	}

	b.post("/exam/5/next", url.Values{"index": {"0"}})
	_, body = b.get("/exam/5")
	if !strings.Contains(body, "What is 2+2?") {
		t.Fatalf("expected second question")
	}
	b.post("/exam/5/answer", url.Values{"index": {"1"}, "option": {"0"}})
	b.post("/exam/5/next", url.Values{"index": {"1"}})

	_, body = b.get("/exam/5")
	if !strings.Contains(body, "Correct: 1, Wrong: 1, Total: 2") {
		t.Errorf("expected score summary, got %s", body)
	}
	b.get("/exam/5")

	attempts, err := st.ListAttempts(5)
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 recorded attempt, got %d", len(attempts))
	}
	rec, err := st.GetAttempt(attempts[0].ID)
	if err != nil || rec == nil {
		t.Fatalf("GetAttempt = %v, %v", rec, err)
	}
	if rec.Correct != 1 || len(rec.Answers) != 2 || !rec.Answers[0].IsCorrect {
		t.Errorf("unexpected attempt %+v", rec)
	}

	b.post("/exam/5/retry", nil)
	_, body = b.get("/exam/5")
	if !strings.Contains(body, "Capital of France?") {
		t.Errorf("expected retry to restart at the first question")
	}
}

func TestExamStaleForms(t *testing.T) {
	srv, st := newTestApp(t, &fakeService{})
	b := newBrowser(t, srv)

	_, body := b.get("/exam/5")
	if !strings.Contains(body, `name="index" value="0"`) {
		t.Fatalf("expected answer form to carry the question index")
	}
	b.post("/exam/5/answer", url.Values{"index": {"0"}, "option": {"0"}})
	_, body = b.get("/exam/5")
	if !strings.Contains(body, `/exam/5/next"`) || strings.Count(body, `name="index" value="0"`) != 2 {
		t.Fatalf("expected answer and next forms for question 1")
	}
	b.post("/exam/5/next", url.Values{"index": {"0"}})

	// The question 1 page is resubmitted from another tab.
	if status, loc := b.post("/exam/5/answer", url.Values{"index": {"0"}, "option": {"1"}}); status != http.StatusSeeOther || loc != "/exam/5" {
		t.Fatalf("stale answer = %d %q", status, loc)
	}
	if status, loc := b.post("/exam/5/next", url.Values{"index": {"0"}}); status != http.StatusSeeOther || loc != "/exam/5" {
		t.Fatalf("stale next = %d %q", status, loc)
	}
	if status, _ := b.post("/exam/5/answer", url.Values{"option": {"1"}}); status != http.StatusSeeOther {
		t.Fatalf("answer without index = %d", status)
	}

	_, body = b.get("/exam/5")
	if !strings.Contains(body, "What is 2+2?") || !strings.Contains(body, `name="index" value="1"`) {
		t.Fatalf("expected question 2 to stay current")
	}
	if strings.Contains(body, "Correct!") || strings.Contains(body, "Wrong.") || strings.Contains(body, " disabled") {
		t.Errorf("question 2 must still be unanswered")
	}

	b.post("/exam/5/answer", url.Values{"index": {"1"}, "option": {"1"}})
	b.post("/exam/5/next", url.Values{"index": {"1"}})
	b.get("/exam/5")
	attempts, err := st.ListAttempts(5)
	if err != nil || len(attempts) != 1 {
		t.Fatalf("ListAttempts = %v, %v", attempts, err)
	}
	rec, err := st.GetAttempt(attempts[0].ID)
	if err != nil || rec == nil {
		t.Fatalf("GetAttempt = %v, %v", rec, err)
	}
	if rec.Correct != 2 || len(rec.Answers) != 2 {
		t.Errorf("expected both questions answered correctly once, got %+v", rec)
	}
}

func TestExamInvalidOption(t *testing.T) {
	srv, _ := newTestApp(t, &fakeService{})
	b := newBrowser(t, srv)
	b.get("/exam/5")
	if status, _ := b.post("/exam/5/answer", url.Values{"index": {"0"}, "option": {"9"}}); status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
	if status, _ := b.post("/exam/5/next", url.Values{"index": {"0"}}); status != http.StatusConflict {
		t.Errorf("next before answering = %d, want 409", status)
	}
}

func TestExamWithoutSessionRedirects(t *testing.T) {
	srv, _ := newTestApp(t, &fakeService{})
	b := newBrowser(t, srv)
	b.get("/")
	status, loc := b.post("/exam/5/answer", url.Values{"option": {"0"}})
	if status != http.StatusSeeOther || loc != "/exam/5" {
		t.Errorf("got %d %q", status, loc)
	}
}

func TestExplain(t *testing.T) {
	srv, _ := newTestApp(t, &fakeService{})
	b := newBrowser(t, srv)
	b.get("/exam/5")

	if status, _ := b.post("/exam/5/explain", nil); status != http.StatusSeeOther {
		t.Fatalf("explain status = %d", status)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		_, body := b.get("/exam/5")
		if strings.Contains(body, "Paris is the capital.") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("explanation never arrived")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestCSRFRejected(t *testing.T) {
	srv, _ := newTestApp(t, &fakeService{})
	b := newBrowser(t, srv)
	b.get("/exam/5")
	status, _ := b.post("/exam/5/answer", url.Values{"option": {"0"}, "csrf_token": {"forged"}})
	if status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", status)
	}
}

func TestAdminRequiresLogin(t *testing.T) {
	srv, _ := newTestApp(t, &fakeService{})
	b := newBrowser(t, srv)
	resp, err := b.client.Get(srv.URL + "/admin")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/admin/login" {
		t.Errorf("got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestAdminLoginFailure(t *testing.T) {
	srv, _ := newTestApp(t, &fakeService{})
	b := newBrowser(t, srv)
	b.get("/admin/login")
	form := url.Values{"username": {"admin"}, "password": {"wrong"}, "csrf_token": {b.cookie(csrfCookieName)}}
	resp, err := b.client.PostForm(srv.URL+"/admin/login", form)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if !strings.Contains(string(body), "Incorrect username or password") {
		t.Errorf("expected service detail in login page")
	}
}

func TestAdminWizard(t *testing.T) {
	svc := &fakeService{}
	srv, _ := newTestApp(t, svc)
	b := newBrowser(t, srv)

	b.get("/admin/login")
	if status, loc := b.post("/admin/login", url.Values{"username": {"admin"}, "password": {"secret"}}); status != http.StatusSeeOther || loc != "/admin" {
		t.Fatalf("login = %d %q", status, loc)
	}

	b.post("/admin/unit", url.Values{"action": {"university"}, "university_name": {"New University"}})
	b.post("/admin/unit", url.Values{"action": {"department"}, "department_name": {"Math"}})

	if status, _ := b.post("/admin/unit", url.Values{"action": {"next"}, "class_level": {"second"}}); status != http.StatusUnprocessableEntity {
		t.Errorf("non-numeric class level status = %d, want 422", status)
	}
	status, _, body := b.postPage("/admin/unit", url.Values{"action": {"next"}, "class_level": {"99999999999999999999"}})
	if status != http.StatusUnprocessableEntity || !strings.Contains(body, "The class level must be a number.") {
		t.Errorf("out of range class level = %d, want 422 with numeric message", status)
	}
	b.post("/admin/unit", url.Values{"action": {"next"}, "class_level": {"2"}})

	_, body := b.get("/admin")
	if !strings.Contains(body, `name="course_name"`) {
		t.Fatalf("expected exam info step")
	}

	if status, _ := b.post("/admin/info", url.Values{"action": {"next"}, "course_name": {"Algebra"}, "year": {"2025"}}); status != http.StatusUnprocessableEntity {
		t.Errorf("missing semester status = %d, want 422", status)
	}
	b.post("/admin/info", url.Values{"action": {"next"}, "course_name": {"Algebra"}, "year": {"2025"}, "semester": {"Fall"}})

	questions := "1. What is 2+2?\na) 3\n*b) 4\n2. Capital of France?\n*a) Paris\nb) Lyon\n"
	if status, loc := b.post("/admin/questions", url.Values{"action": {"next"}, "questions": {questions}}); status != http.StatusSeeOther || loc != "/admin" {
		t.Fatalf("upload = %d %q", status, loc)
	}

	_, body = b.get("/admin")
	if !strings.Contains(body, "The exam and 2 questions were uploaded.") {
		t.Errorf("expected upload flash")
	}
	if !strings.Contains(body, `name="university_id"`) {
		t.Errorf("expected wizard to start over")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	want := []string{"/academics/universities", "/academics/departments", "/academics/class-levels"}
	if strings.Join(svc.created, ",") != strings.Join(want, ",") {
		t.Errorf("created = %v, want %v", svc.created, want)
	}
	if svc.exam.Title != "Algebra 2025 Fall" || svc.exam.ClassLevelID == nil || *svc.exam.ClassLevelID != 12 {
		t.Errorf("unexpected exam %+v", svc.exam)
	}
	if len(svc.uploaded) != 2 || svc.uploaded[0].Answer != "4" {
		t.Errorf("unexpected questions %+v", svc.uploaded)
	}
}

func TestLogout(t *testing.T) {
	srv, _ := newTestApp(t, &fakeService{})
	b := newBrowser(t, srv)
	b.get("/admin/login")
	b.post("/admin/login", url.Values{"username": {"admin"}, "password": {"secret"}})
	if status, loc := b.post("/admin/logout", nil); status != http.StatusSeeOther || loc != "/" {
		t.Fatalf("logout = %d %q", status, loc)
	}
	resp, err := b.client.Get(srv.URL + "/admin")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("expected redirect to login after logout, got %d", resp.StatusCode)
	}
}

func TestRegistryPrunes(t *testing.T) {
	g := newRegistry(time.Minute)
	now := time.Now()
	a := exam.NewSession(exam.NewAttempt(1, nil), nil)
	b := exam.NewSession(exam.NewAttempt(1, nil), nil)
	g.put("a", 1, a, now)
	if got := g.put("b", 1, b, now.Add(2*time.Minute)); got != b {
		t.Errorf("put for a new key should store the given session")
	}
	if g.size() != 1 {
		t.Errorf("size = %d, want 1", g.size())
	}
	if _, ok := g.get("a", 1, now); ok {
		t.Errorf("expected stale session to be pruned")
	}
}

func TestRegistryKeepsFirstSession(t *testing.T) {
	g := newRegistry(time.Hour)
	now := time.Now()
	questions := []model.Question{{QuestionText: "Capital of France?", Answer: "Paris", Options: []string{"Paris", "Lyon"}}}
	first := exam.NewSession(exam.NewAttempt(5, questions), nil)
	second := exam.NewSession(exam.NewAttempt(5, questions), nil)

	if got := g.put("v", 5, first, now); got != first {
		t.Fatalf("first put returned another session")
	}
	if _, err := first.SubmitAnswer("Paris"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if got := g.put("v", 5, second, now); got != first {
		t.Errorf("second put replaced the live session")
	}
	got, ok := g.get("v", 5, now)
	if !ok || got != first || !got.View().Answered {
		t.Errorf("get returned a session without the recorded answer")
	}
}

package i18n

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return WithLanguage(context.Background(), lang)
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		lang, id, want string
	}{
		{"en", "AppTitle", "Past Exam Questions"},
		{"en", "NoQuestions", "No questions found for this exam."},
		{"tr", "AppTitle", "Çıkmış Sorular"},
		{"tr", "NoQuestions", "Bu sınav için soru bulunamadı."},
		{"tr", "FetchFailed", "Sorular yüklenirken bir hata oluştu."},
	}
	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.id, func(t *testing.T) {
			ctx := initLang(t, tt.lang)
			if got := T(ctx, tt.id); got != tt.want {
				t.Errorf("T(%s) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "QuestionsCount", 1); got != "1 question" {
		t.Errorf("Tp(1) = %q", got)
	}
	if got := Tp(ctx, "QuestionsCount", 5); got != "5 questions" {
		t.Errorf("Tp(5) = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "tr")

	got := Td(ctx, "AnswerWrong", map[string]any{"Answer": "Paris"})
	if got != "Yanlış. Doğru cevap: Paris" {
		t.Errorf("Td(AnswerWrong) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestLocalesHaveSameKeys(t *testing.T) {
	keys := map[string]map[string]bool{}
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		var msgs map[string]any
		if err := json.Unmarshal(data, &msgs); err != nil {
			t.Fatalf("%s: %v", e.Name(), err)
		}
		keys[e.Name()] = map[string]bool{}
		for id := range msgs {
			keys[e.Name()][id] = true
		}
	}
	for file, ids := range keys {
		for other, otherIDs := range keys {
			for id := range ids {
				if !otherIDs[id] {
					t.Errorf("%s has %q but %s does not", file, id, other)
				}
			}
		}
	}
}

func TestMatch(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	tests := []struct {
		name  string
		prefs []string
		want  string
	}{
		{"none", nil, "en"},
		{"plain code", []string{"tr"}, "tr"},
		{"accept header", []string{"", "", "tr-TR,tr;q=0.9,en;q=0.8"}, "tr"},
		{"unsupported", []string{"de"}, "en"},
		{"query wins", []string{"en", "tr"}, "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.prefs...); got != tt.want {
				t.Errorf("Match(%v) = %q, want %q", tt.prefs, got, tt.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var got string
	h := Middleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "Home")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?lang=tr", nil))
	if got != "Ana sayfa" {
		t.Errorf("with ?lang=tr got %q", got)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "tr" {
		t.Fatalf("expected lang cookie, got %v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	req.Header.Set("Accept-Language", "en")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "Ana sayfa" {
		t.Errorf("cookie should win over Accept-Language, got %q", got)
	}
}

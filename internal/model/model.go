package model

import (
	"context"
	"time"
)

// AdminSession binds a browser cookie to the bearer token issued by the exam service.
type AdminSession struct {
	ID        string
	Username  string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type adminCtxKey struct{}

// ContextWithAdmin stores the authenticated admin session in the request context.
func ContextWithAdmin(ctx context.Context, s *AdminSession) context.Context {
	return context.WithValue(ctx, adminCtxKey{}, s)
}

// AdminFromContext retrieves the admin session from context, or nil.
func AdminFromContext(ctx context.Context) *AdminSession {
	s, _ := ctx.Value(adminCtxKey{}).(*AdminSession)
	return s
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// Question is one exam item as served by the exam service.
// Options keeps the order received; Answer is expected to equal one of them.
type Question struct {
	ID           int64    `json:"id"`
	ExamID       int64    `json:"exam_id,omitempty"`
	QuestionText string   `json:"question_text"`
	Answer       string   `json:"answer"`
	Options      []string `json:"options"`
}

// LabeledOption pairs a positional letter with the option text.
type LabeledOption struct {
	Label string `json:"option_label"`
	Text  string `json:"text"`
}

// ExplainRequest is the body of POST /exams/explain-question.
type ExplainRequest struct {
	Question      string          `json:"question"`
	Options       []LabeledOption `json:"options"`
	CorrectAnswer string          `json:"correct_answer"`
	UserAnswer    *string         `json:"user_answer"`
}

// ExplainResponse is the reply of POST /exams/explain-question.
type ExplainResponse struct {
	Explanation string `json:"explanation"`
}

// SimilarRequest is the body of POST /exams/generate-similar-question.
type SimilarRequest struct {
	OriginalQuestion string `json:"original_question"`
}

// SimilarQuestion is a generated question shown next to the current one.
type SimilarQuestion struct {
	Question   string          `json:"question"`
	Options    []LabeledOption `json:"options"`
	CorrectAns string          `json:"correct_ans"`
}

// University is the top of the academic hierarchy.
type University struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Department belongs to a university.
type Department struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	UniversityID int64  `json:"university_id"`
}

// ClassLevel is a numbered year within a department.
type ClassLevel struct {
	ID           int64 `json:"id"`
	Level        int   `json:"level"`
	DepartmentID int64 `json:"department_id"`
}

// Exam is the metadata of one exam.
type Exam struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	CourseName   string `json:"course_name"`
	Year         int    `json:"year"`
	Semester     string `json:"semester"`
	UniversityID *int64 `json:"university_id,omitempty"`
	DepartmentID *int64 `json:"department_id,omitempty"`
	ClassLevelID *int64 `json:"class_level_id,omitempty"`
	UserID       int64  `json:"user_id,omitempty"`
}

// ExamFilter narrows GET /exams/. Zero values are omitted from the query.
type ExamFilter struct {
	UniversityID int64
	DepartmentID int64
	ClassLevelID int64
	ClassLevel   int
	CourseName   string
	Year         int
	Semester     string
}

// QuestionUpload is one entry of the bulk question payload.
type QuestionUpload struct {
	QuestionText string   `json:"question_text"`
	Answer       string   `json:"answer"`
	Options      []string `json:"options"`
}

// Token is the reply of POST /auth/login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AssistBackend selects who answers explanation and similar-question requests.
type AssistBackend string

const (
	AssistRemote AssistBackend = "remote"
	AssistOpenAI AssistBackend = "openai"
	AssistGemini AssistBackend = "gemini"
)

// ClientConfig holds runtime parameters set via CLI flags.
type ClientConfig struct {
	APIURL        string
	APITimeout    time.Duration
	Lang          string
	BasePath      string // URL prefix for sub-path deployments (e.g. "/tr")
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
	SessionKey    string // signing key for the visitor cookie
	Assist        AssistBackend
	AssistTimeout time.Duration // bound on one explain or similar-question call
}

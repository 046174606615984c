package exam

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cikmis/examclient/internal/model"
)

// FallbackExplanation replaces an explanation that could not be fetched.
const FallbackExplanation = "Could not get an explanation from the AI assistant."

// Assistant answers the two assist requests. Implementations must not block
// longer than ctx allows.
type Assistant interface {
	Explain(ctx context.Context, req model.ExplainRequest) (string, error)
	SimilarQuestion(ctx context.Context, req model.SimilarRequest) (*model.SimilarQuestion, error)
}

// View is a consistent snapshot of a session for rendering.
type View struct {
	AttemptID string
	ExamID    int64
	Phase     Phase
	Index     int
	Total     int
	Question  model.Question
	Options   []model.LabeledOption
	Answered  bool
	Outcome   Outcome
	IsLast    bool

	Explanation       string
	ExplanationFailed bool
	ExplainLoading    bool

	Similar        *model.SimilarQuestion
	SimilarFailed  bool
	SimilarLoading bool

	Score Score
}

// Summary describes a finished attempt.
type Summary struct {
	AttemptID string
	ExamID    int64
	Questions []model.Question
	Results   []Result
	Score     Score
}

// Record converts the summary into a history record.
func (sum Summary) Record(finishedAt time.Time) model.AttemptRecord {
	rec := model.AttemptRecord{
		ID:         sum.AttemptID,
		ExamID:     sum.ExamID,
		Correct:    sum.Score.Correct,
		Wrong:      sum.Score.Wrong,
		Total:      sum.Score.Total,
		FinishedAt: finishedAt,
		Answers:    make([]model.AnswerRecord, 0, len(sum.Results)),
	}
	for i, r := range sum.Results {
		rec.Answers = append(rec.Answers, model.AnswerRecord{
			Position:   i,
			QuestionID: r.QuestionID,
			Selected:   r.Selected,
			IsCorrect:  r.IsCorrect,
		})
	}
	return rec
}

type explainState struct {
	loading bool
	text    string
	failed  bool
}

type similarState struct {
	loading bool
	data    *model.SimilarQuestion
	failed  bool
}

// Session owns an Attempt together with the per-question screen state: the
// explanation text, the similar question overlay, and their loading flags.
// Each assist request remembers the generation it started in; a response that
// comes back after Advance or Retry is dropped.
type Session struct {
	mu       sync.Mutex
	recordMu sync.Mutex
	attempt  *Attempt
	assist   Assistant
	gen      uint64
	explain  explainState
	similar  similarState
	recorded string
}

// NewSession wraps a loaded attempt. assist may be nil, in which case assist
// requests fail with KindAssistFailed.
func NewSession(a *Attempt, assist Assistant) *Session {
	return &Session{attempt: a, assist: assist}
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.attempt
	v := View{
		AttemptID:         a.ID(),
		ExamID:            a.ExamID(),
		Phase:             a.Phase(),
		Index:             a.Index(),
		Total:             a.Len(),
		Explanation:       s.explain.text,
		ExplanationFailed: s.explain.failed,
		ExplainLoading:    s.explain.loading,
		Similar:           s.similar.data,
		SimilarFailed:     s.similar.failed,
		SimilarLoading:    s.similar.loading,
	}
	if q, ok := a.Current(); ok {
		v.Question = q
		v.Options = LabelOptions(q.Options)
		v.IsLast = a.Index() == a.Len()-1
	}
	if o, ok := a.Outcome(); ok {
		v.Answered = true
		v.Outcome = o
	}
	if sc, err := a.Score(); err == nil {
		v.Score = sc
	}
	return v
}

// SubmitAnswer records the answer for the current question.
func (s *Session) SubmitAnswer(selected string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.attempt.SubmitAnswer(selected)
	if err != nil && !errors.Is(err, ErrAlreadyAnswered) {
		slog.Warn("answer rejected", "attempt_id", s.attempt.ID(), "index", s.attempt.Index(), "error", err)
	}
	return o, err
}

// Advance moves to the next question and clears the per-question state.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.attempt.Advance(); err != nil {
		return err
	}
	s.resetTransient()
	return nil
}

// Retry restarts the attempt with the same questions.
func (s *Session) Retry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempt.Retry()
	s.resetTransient()
}

func (s *Session) resetTransient() {
	s.gen++
	s.explain = explainState{}
	s.similar = similarState{}
}

// Score returns the score of a finished attempt.
func (s *Session) Score() (Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt.Score()
}

// Summary returns the finished attempt's data.
func (s *Session) Summary() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, err := s.attempt.Score()
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		AttemptID: s.attempt.ID(),
		ExamID:    s.attempt.ExamID(),
		Questions: s.attempt.Questions(),
		Results:   s.attempt.Results(),
		Score:     sc,
	}, nil
}

// RecordOnce hands the finished attempt's summary to write unless it was
// already written for the current attempt id. The attempt only counts as
// recorded once write returns nil, so a failed write is tried again on the
// next call. Calls are serialized.
func (s *Session) RecordOnce(write func(Summary) error) (bool, error) {
	s.recordMu.Lock()
	defer s.recordMu.Unlock()

	sum, err := s.Summary()
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	done := s.recorded == sum.AttemptID
	s.mu.Unlock()
	if done {
		return false, nil
	}
	if err := write(sum); err != nil {
		return false, err
	}
	s.mu.Lock()
	s.recorded = sum.AttemptID
	s.mu.Unlock()
	return true, nil
}

// Explain asks the assistant to explain the current question. Failures are
// replaced by FallbackExplanation and never returned as errors. A response
// that arrives after the session moved on returns ErrStale and is not kept.
func (s *Session) Explain(ctx context.Context) (string, error) {
	req, gen, err := s.beginExplain()
	if err != nil {
		return "", err
	}
	text, err := s.callExplain(ctx, req)
	return s.finishExplain(gen, text, err)
}

// StartExplain runs Explain in the background. Busy and state errors are
// returned right away; the outcome shows up in View.
func (s *Session) StartExplain(ctx context.Context) error {
	req, gen, err := s.beginExplain()
	if err != nil {
		return err
	}
	go func() {
		text, err := s.callExplain(ctx, req)
		_, _ = s.finishExplain(gen, text, err)
	}()
	return nil
}

func (s *Session) beginExplain() (model.ExplainRequest, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.attempt.Current()
	if !ok {
		return model.ExplainRequest{}, 0, ErrInvalidState
	}
	if s.explain.loading {
		return model.ExplainRequest{}, 0, ErrAssistBusy
	}
	var selected *string
	if o, answered := s.attempt.Outcome(); answered {
		sel := o.Selected
		selected = &sel
	}
	s.explain = explainState{loading: true}
	return BuildExplainRequest(q, selected), s.gen, nil
}

func (s *Session) finishExplain(gen uint64, text string, err error) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		slog.Warn("dropping stale explanation", "attempt_id", s.attempt.ID())
		return "", ErrStale
	}
	s.explain.loading = false
	if err != nil {
		slog.Warn("explanation failed", "attempt_id", s.attempt.ID(), "index", s.attempt.Index(), "error", err)
		s.explain.text = FallbackExplanation
		s.explain.failed = true
		return FallbackExplanation, nil
	}
	s.explain.text = text
	return text, nil
}

func (s *Session) callExplain(ctx context.Context, req model.ExplainRequest) (string, error) {
	if s.assist == nil {
		return "", &Error{Kind: KindAssistFailed, Detail: "no assistant configured"}
	}
	text, err := s.assist.Explain(ctx, req)
	if err != nil {
		return "", &Error{Kind: KindAssistFailed, Detail: "explanation request failed", Err: err}
	}
	return text, nil
}

// SimilarQuestion asks the assistant for a question like the current one.
// Failures are returned as KindAssistFailed and leave the attempt untouched.
func (s *Session) SimilarQuestion(ctx context.Context) (*model.SimilarQuestion, error) {
	req, gen, err := s.beginSimilar()
	if err != nil {
		return nil, err
	}
	sq, err := s.callSimilar(ctx, req)
	return s.finishSimilar(gen, sq, err)
}

// StartSimilarQuestion runs SimilarQuestion in the background.
func (s *Session) StartSimilarQuestion(ctx context.Context) error {
	req, gen, err := s.beginSimilar()
	if err != nil {
		return err
	}
	go func() {
		sq, err := s.callSimilar(ctx, req)
		_, _ = s.finishSimilar(gen, sq, err)
	}()
	return nil
}

func (s *Session) beginSimilar() (model.SimilarRequest, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.attempt.Current()
	if !ok {
		return model.SimilarRequest{}, 0, ErrInvalidState
	}
	if s.similar.loading {
		return model.SimilarRequest{}, 0, ErrAssistBusy
	}
	s.similar = similarState{loading: true}
	return model.SimilarRequest{OriginalQuestion: ComposeOriginalQuestion(q)}, s.gen, nil
}

func (s *Session) callSimilar(ctx context.Context, req model.SimilarRequest) (*model.SimilarQuestion, error) {
	if s.assist == nil {
		return nil, &Error{Kind: KindAssistFailed, Detail: "no assistant configured"}
	}
	sq, err := s.assist.SimilarQuestion(ctx, req)
	if err != nil {
		return nil, &Error{Kind: KindAssistFailed, Detail: "similar question request failed", Err: err}
	}
	return sq, nil
}

func (s *Session) finishSimilar(gen uint64, sq *model.SimilarQuestion, err error) (*model.SimilarQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		slog.Warn("dropping stale similar question", "attempt_id", s.attempt.ID())
		return nil, ErrStale
	}
	s.similar.loading = false
	if err != nil {
		slog.Warn("similar question failed", "attempt_id", s.attempt.ID(), "index", s.attempt.Index(), "error", err)
		s.similar.failed = true
		return nil, err
	}
	s.similar.data = sq
	return sq, nil
}

// CloseSimilar hides the similar question overlay.
func (s *Session) CloseSimilar() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.similar.loading {
		s.similar = similarState{}
	}
}

package model

import "time"

// HistoryExport is the top-level JSON structure written by the export command.
type HistoryExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Attempts   []AttemptRecord `json:"attempts"`
}

// AttemptRecord holds one finished exam attempt.
type AttemptRecord struct {
	ID         string         `json:"id"`
	ExamID     int64          `json:"exam_id"`
	Correct    int            `json:"correct"`
	Wrong      int            `json:"wrong"`
	Total      int            `json:"total"`
	FinishedAt time.Time      `json:"finished_at"`
	Answers    []AnswerRecord `json:"answers"`
}

// AnswerRecord holds per-question data for one attempt.
type AnswerRecord struct {
	Position   int    `json:"position"`
	QuestionID int64  `json:"question_id"`
	Selected   string `json:"selected"`
	IsCorrect  bool   `json:"is_correct"`
}

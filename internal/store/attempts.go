package store

import (
	"database/sql"

	"github.com/cikmis/examclient/internal/model"
)

// RecordAttempt stores a finished attempt with its answers. Recording the same
// attempt id twice is a no-op.
func (s *Store) RecordAttempt(rec model.AttemptRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO attempts (id, exam_id, correct, wrong, total, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		rec.ID, rec.ExamID, rec.Correct, rec.Wrong, rec.Total, rec.FinishedAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return err
	}

	for _, a := range rec.Answers {
		_, err := tx.Exec(
			`INSERT INTO attempt_answers (attempt_id, position, question_id, selected, is_correct)
			 VALUES (?, ?, ?, ?, ?)`,
			rec.ID, a.Position, a.QuestionID, a.Selected, a.IsCorrect,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetAttempt returns one attempt with its answers, or nil if not found.
func (s *Store) GetAttempt(id string) (*model.AttemptRecord, error) {
	var rec model.AttemptRecord
	err := s.db.QueryRow(
		`SELECT id, exam_id, correct, wrong, total, finished_at FROM attempts WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.ExamID, &rec.Correct, &rec.Wrong, &rec.Total, &rec.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.Answers, err = s.getAnswers(id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListAttempts returns attempt headers, newest first. examID 0 lists all exams.
func (s *Store) ListAttempts(examID int64) ([]model.AttemptRecord, error) {
	query := `SELECT id, exam_id, correct, wrong, total, finished_at FROM attempts`
	var args []any
	if examID != 0 {
		query += ` WHERE exam_id = ?`
		args = append(args, examID)
	}
	query += ` ORDER BY finished_at DESC, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AttemptRecord
	for rows.Next() {
		var rec model.AttemptRecord
		if err := rows.Scan(&rec.ID, &rec.ExamID, &rec.Correct, &rec.Wrong, &rec.Total, &rec.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) getAnswers(attemptID string) ([]model.AnswerRecord, error) {
	rows, err := s.db.Query(
		`SELECT position, question_id, selected, is_correct FROM attempt_answers
		 WHERE attempt_id = ? ORDER BY position`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	answers := []model.AnswerRecord{}
	for rows.Next() {
		var a model.AnswerRecord
		if err := rows.Scan(&a.Position, &a.QuestionID, &a.Selected, &a.IsCorrect); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

package store

import (
	"fmt"
	"time"

	"github.com/cikmis/examclient/internal/model"
)

// ExportHistory builds the export document of the recorded attempts of
// examID, or of all exams when examID is 0.
func (s *Store) ExportHistory(examID int64) (*model.HistoryExport, error) {
	headers, err := s.ListAttempts(examID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	attempts := make([]model.AttemptRecord, 0, len(headers))
	for _, h := range headers {
		answers, err := s.getAnswers(h.ID)
		if err != nil {
			return nil, fmt.Errorf("get answers of attempt %s: %w", h.ID, err)
		}
		h.Answers = answers
		attempts = append(attempts, h)
	}

	return &model.HistoryExport{
		ExportedAt: time.Now().UTC(),
		Attempts:   attempts,
	}, nil
}

package models

import (
	"time"
)

// QuizResult records one completed quiz attempt.
type QuizResult struct {
	ID             int64     `db:"id"`
	TelegramID     int64     `db:"telegram_id"`
	QuizID         int       `db:"quiz_id"`
	Score          int       `db:"score"`
	TotalQuestions int       `db:"total_questions"`
	CreatedAt      time.Time `db:"created_at"`
}

// QuizStats is the aggregate quiz snapshot for the admin panel.
type QuizStats struct {
	TotalAttempts      int
	AverageScore       float64
	WeeklyParticipants int
}

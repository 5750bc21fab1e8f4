package scheduler

import (
	"time"

	"github.com/sandeepkv93/phantom/internal/model"
)

// StudyConfig shapes the study sessions derived from an exam.
type StudyConfig struct {
	Sessions int
	Hour     int
	Duration time.Duration
}

func DefaultStudyConfig() StudyConfig {
	return StudyConfig{Sessions: 3, Hour: 19, Duration: 2 * time.Hour}
}

// DeriveStudySessions returns flexible study blocks on the evenings before an
// exam, earliest first. Non-exam events derive nothing. The session count is
// clamped to two or three.
func DeriveStudySessions(exam model.Event, cfg StudyConfig) []model.Event {
	if exam.Category != model.CategoryExam {
		return nil
	}
	n := cfg.Sessions
	switch {
	case n < 2:
		n = 2
	case n > 3:
		n = 3
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 2 * time.Hour
	}
	if cfg.Hour <= 0 || cfg.Hour > 23 {
		cfg.Hour = 19
	}

	loc := exam.Start.Location()
	y, m, d := exam.Start.Date()
	out := make([]model.Event, 0, n)
	for i := n; i >= 1; i-- {
		start := time.Date(y, m, d-i, cfg.Hour, 0, 0, 0, loc)
		out = append(out, model.Event{
			OwnerID:     exam.OwnerID,
			Title:       "Study for " + exam.Title,
			Description: "Preparation for " + exam.Title,
			Category:    model.CategoryStudy,
			Start:       start,
			End:         start.Add(cfg.Duration),
			Flexible:    true,
		})
	}
	return out
}

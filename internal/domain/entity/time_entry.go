package entity

import (
	"time"

	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/billing"
)

// TimeEntry es un registro de tiempo. Se crea corriendo (StoppedAt nil) y se
// finaliza una sola vez con Stop, que fija duración, tarifa y monto.
type TimeEntry struct {
	ID              string
	TeamID          string
	ProjectID       string
	TaskID          *string
	UserID          *string
	Description     string
	StartedAt       time.Time
	StoppedAt       *time.Time
	DurationSeconds *int64
	Billable        bool
	HourlyRateCents *int64
	AmountCents     *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsRunning indica si la entrada aún no se detuvo.
func (e *TimeEntry) IsRunning() bool { return e.StoppedAt == nil }

// Stop finaliza la entrada: duration = stoppedAt - startedAt en segundos,
// amount = round(duration/3600 * rate). Falla si ya estaba detenida o si la duración
// es menor a un segundo.
func (e *TimeEntry) Stop(stoppedAt time.Time, rateCents int64) error {
	if !e.IsRunning() {
		return domain.Validation("time entry is already stopped")
	}
	if !stoppedAt.After(e.StartedAt) {
		return domain.Validation("end time must be after start time")
	}
	if rateCents < 0 {
		return domain.Validation("hourly rate must not be negative")
	}
	duration := int64(stoppedAt.Sub(e.StartedAt) / time.Second)
	if duration < 1 {
		return domain.Validation("time entry must last at least one second")
	}
	amount := billing.TimeEntryAmountCents(duration, rateCents)
	e.StoppedAt = &stoppedAt
	e.DurationSeconds = &duration
	e.HourlyRateCents = &rateCents
	e.AmountCents = &amount
	return nil
}

// Seconds devuelve la duración registrada (0 si sigue corriendo).
func (e *TimeEntry) Seconds() int64 {
	if e.DurationSeconds == nil {
		return 0
	}
	return *e.DurationSeconds
}

// ResolveRate elige la tarifa: tarea, si no proyecto, si no 0.
func ResolveRate(task *Task, project *Project) int64 {
	if task != nil && task.HourlyRateCents != nil {
		return *task.HourlyRateCents
	}
	if project != nil && project.HourlyRateCents != nil {
		return *project.HourlyRateCents
	}
	return 0
}

package entity

import "time"

// Task es una tarea de un proyecto; su tarifa tiene prioridad sobre la del proyecto.
type Task struct {
	ID              string
	TeamID          string
	ProjectID       string
	Name            string
	HourlyRateCents *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

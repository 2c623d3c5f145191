package entity

import "time"

// Client es el destinatario de facturas y, opcionalmente, dueño de proyectos.
type Client struct {
	ID        string
	TeamID    string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

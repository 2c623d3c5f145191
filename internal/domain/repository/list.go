package repository

import "time"

// ListParams son los parámetros comunes de listado: búsqueda, orden y paginación.
// OrderBy/Order llegan crudos del cliente; el adaptador los valida contra su lista blanca.
type ListParams struct {
	Search  string
	OrderBy string
	Order   string
	Offset  int
	Limit   int
}

// ProjectFilter filtros del listado de proyectos.
// VisibleToUserID restringe a proyectos con fila en project_members para ese usuario.
type ProjectFilter struct {
	ListParams
	Status          string
	ClientID        string
	VisibleToUserID string
}

// TimeEntryFilter filtros del listado de entradas de tiempo (rango sobre started_at).
type TimeEntryFilter struct {
	ListParams
	ProjectID       string
	UserID          string
	VisibleToUserID string
	From            *time.Time
	To              *time.Time
	Billable        *bool
	Unbilled        bool
}

// InvoiceFilter filtros del listado de facturas (rango sobre issue_date).
type InvoiceFilter struct {
	ListParams
	Status   string
	ClientID string
	From     *time.Time
	To       *time.Time
}

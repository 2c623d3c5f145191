package dto

import "github.com/jhoicas/Tiempo-api/pkg/querybuilder"

// ListRequest parámetros de listado (query string): paginación, búsqueda y orden.
// Limit/Offset se acotan en el query builder; OrderBy se valida contra la lista blanca de cada listado.
type ListRequest struct {
	Limit   int    `query:"limit"`
	Offset  int    `query:"offset"`
	Search  string `query:"search"`
	OrderBy string `query:"order_by"`
	Order   string `query:"order"`
}

// ListResponse envoltorio de listados paginados.
type ListResponse[T any] struct {
	Items []T               `json:"items"`
	Page  querybuilder.Page `json:"page"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

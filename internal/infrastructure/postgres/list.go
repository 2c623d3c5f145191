package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

// ListLimits son los límites de paginación compartidos por todos los listados.
type ListLimits struct {
	MaxLimit     int
	DefaultLimit int
}

// listLimits se fija una vez al arrancar (SetListLimits); cero usa los defaults del builder.
var listLimits ListLimits

// SetListLimits configura los límites de paginación. Se llama desde main antes de servir.
func SetListLimits(l ListLimits) { listLimits = l }

// applyParams copia búsqueda, orden y paginación de p sobre o.
func applyParams(o querybuilder.Options, p repository.ListParams) querybuilder.Options {
	o.Sort = querybuilder.SortRequest{OrderBy: p.OrderBy, Order: p.Order}
	o.Offset = p.Offset
	o.Limit = p.Limit
	o.MaxLimit = listLimits.MaxLimit
	o.DefaultLimit = listLimits.DefaultLimit
	if o.Search != nil {
		o.Search.Term = p.Search
	}
	return o
}

// runList arma la consulta, ejecuta datos y conteo sobre el mismo snapshot y
// devuelve la página.
func runList[T any](ctx context.Context, q Querier, op string, o querybuilder.Options, scan pgx.RowToFunc[T]) ([]T, querybuilder.Page, error) {
	lq, err := querybuilder.Build(o)
	if err != nil {
		return nil, querybuilder.Page{}, mapError(err, op)
	}

	var (
		items []T
		total int
	)
	err = snapshot(ctx, q, func(q Querier) error {
		rows, err := q.Query(ctx, lq.SQL, lq.Args...)
		if err != nil {
			return err
		}
		items, err = pgx.CollectRows(rows, scan)
		if err != nil {
			return err
		}
		return q.QueryRow(ctx, lq.CountSQL, lq.CountArgs()...).Scan(&total)
	})
	if err != nil {
		return nil, querybuilder.Page{}, mapError(err, op)
	}
	if items == nil {
		items = []T{}
	}
	return items, querybuilder.NewPage(lq.Offset, lq.Limit, total), nil
}

// collect ejecuta una consulta y escanea todas las filas.
func collect[T any](ctx context.Context, q Querier, op, sql string, scan pgx.RowToFunc[T], args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, op)
	}
	out, err := pgx.CollectRows(rows, scan)
	if err != nil {
		return nil, mapError(err, op)
	}
	return out, nil
}

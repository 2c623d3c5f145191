// Package querybuilder arma consultas de listado parametrizadas (filtro, búsqueda,
// rango de fechas, orden y paginación) junto con su consulta COUNT(*).
//
// Ningún valor provisto por el cliente llega al texto SQL: los valores viajan como
// parámetros $n y el orden solo acepta nombres de una lista blanca, que se valida
// antes de armar cualquier fragmento.
package querybuilder

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Direction es la dirección de orden normalizada.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection normaliza "asc"/"DESC"/... sin distinguir mayúsculas. Vacío devuelve def.
func ParseDirection(s string, def Direction) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		if def == "" {
			return Asc, nil
		}
		return def, nil
	case "ASC":
		return Asc, nil
	case "DESC":
		return Desc, nil
	}
	return "", &ValidationError{Field: "order", Value: s, Allowed: []string{"asc", "desc"}}
}

// ValidationError indica un parámetro de orden inválido; nombra el conjunto permitido.
type ValidationError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: allowed values are %s", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

// Fragment es un predicado pre-autorizado con placeholders "?" y sus argumentos.
type Fragment struct {
	Pred string
	Args []any
}

// Where construye un Fragment. Cada "?" del predicado consume un argumento en orden.
func Where(pred string, args ...any) Fragment {
	return Fragment{Pred: pred, Args: args}
}

// Search es una búsqueda libre sobre varias columnas (ILIKE '%term%').
type Search struct {
	Term    string
	Columns []string
}

// DateRange filtra Column entre From y To (ambos inclusivos, ambos opcionales).
type DateRange struct {
	Column string
	From   *time.Time
	To     *time.Time
}

// SortRequest es el orden pedido por el cliente (nombres públicos).
type SortRequest struct {
	OrderBy string
	Order   string
}

// Options describe un listado.
type Options struct {
	Select  string // proyección, p.ej. "p.id, p.name"
	From    string // fuente, p.ej. "projects p JOIN ..."
	Filters []Fragment
	Search  *Search
	Date    *DateRange

	Sort         SortRequest
	SortColumns  map[string]string // nombre público → expresión SQL
	DefaultSort  string            // nombre público usado cuando OrderBy está vacío
	DefaultOrder Direction
	Tiebreaker   string // expresión SQL única (p.ej. "p.id") agregada a todo orden

	Offset       int
	Limit        int
	MaxLimit     int
	DefaultLimit int
}

// Defaults de paginación cuando la llamada no los define.
const (
	DefaultMaxLimit     = 100
	DefaultDefaultLimit = 20
)

// ListQuery es el resultado de Build.
type ListQuery struct {
	SQL      string
	CountSQL string
	Args     []any
	Offset   int
	Limit    int

	filterArgs int
}

// CountArgs devuelve los argumentos de CountSQL (los mismos de filtro, sin LIMIT/OFFSET).
func (q ListQuery) CountArgs() []any { return q.Args[:q.filterArgs] }

// Build valida el orden y arma la consulta de datos y la de conteo, que comparten
// la numeración de parámetros.
func Build(o Options) (ListQuery, error) {
	orderExpr, dir, err := resolveSort(o)
	if err != nil {
		return ListQuery{}, err
	}

	b := &builder{}
	var preds []string
	for _, f := range o.Filters {
		p, err := b.bind(f.Pred, f.Args)
		if err != nil {
			return ListQuery{}, err
		}
		preds = append(preds, p)
	}
	if o.Search != nil && strings.TrimSpace(o.Search.Term) != "" && len(o.Search.Columns) > 0 {
		ph := b.add("%" + EscapeLike(strings.TrimSpace(o.Search.Term)) + "%")
		ors := make([]string, len(o.Search.Columns))
		for i, col := range o.Search.Columns {
			ors[i] = col + " ILIKE " + ph
		}
		preds = append(preds, "("+strings.Join(ors, " OR ")+")")
	}
	if o.Date != nil && o.Date.Column != "" {
		if o.Date.From != nil {
			preds = append(preds, o.Date.Column+" >= "+b.add(*o.Date.From))
		}
		if o.Date.To != nil {
			preds = append(preds, o.Date.Column+" <= "+b.add(*o.Date.To))
		}
	}

	where := ""
	if len(preds) > 0 {
		where = " WHERE " + strings.Join(preds, " AND ")
	}
	filterArgs := len(b.args)

	offset, limit := Clamp(o.Offset, o.Limit, o.MaxLimit, o.DefaultLimit)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(o.Select)
	sb.WriteString(" FROM ")
	sb.WriteString(o.From)
	sb.WriteString(where)
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderExpr)
	sb.WriteString(" ")
	sb.WriteString(string(dir))
	if o.Tiebreaker != "" && o.Tiebreaker != orderExpr {
		sb.WriteString(", ")
		sb.WriteString(o.Tiebreaker)
		sb.WriteString(" ")
		sb.WriteString(string(dir))
	}
	sb.WriteString(" LIMIT ")
	sb.WriteString(b.add(limit))
	sb.WriteString(" OFFSET ")
	sb.WriteString(b.add(offset))

	return ListQuery{
		SQL:        sb.String(),
		CountSQL:   "SELECT COUNT(*) FROM " + o.From + where,
		Args:       b.args,
		Offset:     offset,
		Limit:      limit,
		filterArgs: filterArgs,
	}, nil
}

func resolveSort(o Options) (string, Direction, error) {
	name := strings.TrimSpace(o.Sort.OrderBy)
	if name == "" {
		name = o.DefaultSort
	}
	expr, ok := o.SortColumns[name]
	if !ok {
		return "", "", &ValidationError{Field: "orderBy", Value: o.Sort.OrderBy, Allowed: AllowedNames(o.SortColumns)}
	}
	dir, err := ParseDirection(o.Sort.Order, o.DefaultOrder)
	if err != nil {
		return "", "", err
	}
	return expr, dir, nil
}

// AllowedNames devuelve los nombres públicos ordenados.
func AllowedNames(cols map[string]string) []string {
	names := make([]string, 0, len(cols))
	for k := range cols {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clamp aplica las reglas de paginación: offset >= 0; limit 0 usa el default;
// el resto queda en [1, max].
func Clamp(offset, limit, max, def int) (int, int) {
	if max <= 0 {
		max = DefaultMaxLimit
	}
	if def <= 0 {
		def = DefaultDefaultLimit
	}
	if def > max {
		def = max
	}
	if offset < 0 {
		offset = 0
	}
	switch {
	case limit == 0:
		limit = def
	case limit < 1:
		limit = 1
	case limit > max:
		limit = max
	}
	return offset, limit
}

// EscapeLike escapa los comodines de LIKE con la barra invertida (escape por defecto de Postgres).
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// builder acumula parámetros y lleva el contador $n.
type builder struct {
	args []any
}

func (b *builder) add(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *builder) bind(pred string, args []any) (string, error) {
	if n := strings.Count(pred, "?"); n != len(args) {
		return "", fmt.Errorf("querybuilder: predicate %q has %d placeholders but %d args", pred, n, len(args))
	}
	var sb strings.Builder
	i := 0
	for _, r := range pred {
		if r == '?' {
			sb.WriteString(b.add(args[i]))
			i++
			continue
		}
		sb.WriteRune(r)
	}
	return "(" + sb.String() + ")", nil
}

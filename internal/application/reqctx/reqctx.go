// Package reqctx guarda en context.Context la identidad y el equipo activo de la
// petición junto con sus loaders. Se construye en el middleware HTTP y se descarta
// al terminar la petición.
package reqctx

import (
	"context"

	"github.com/jhoicas/Tiempo-api/internal/application/loader"
	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
)

// ContextKey es la clave del contexto de petición.
var ContextKey = &struct{ string }{"request"}

// Request es el contexto de autorización de una petición.
type Request struct {
	UserID       string
	InstanceRole authz.InstanceRole
	TeamID       string
	TeamRole     authz.TeamRole
	Loaders      *loader.Loaders
}

// WithContext devuelve un contexto con la petición.
func WithContext(ctx context.Context, r *Request) context.Context {
	return context.WithValue(ctx, ContextKey, r)
}

// FromContext devuelve la petición o nil.
func FromContext(ctx context.Context) *Request {
	if r, ok := ctx.Value(ContextKey).(*Request); ok {
		return r
	}
	return nil
}

// Identity devuelve la petición autenticada o ErrUnauthorized.
func Identity(ctx context.Context) (*Request, error) {
	r := FromContext(ctx)
	if r == nil || r.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	return r, nil
}

// Team devuelve la petición con equipo activo. Sin equipo seleccionado es Validation;
// sin pertenencia al equipo es Forbidden.
func Team(ctx context.Context) (*Request, error) {
	r, err := Identity(ctx)
	if err != nil {
		return nil, err
	}
	if r.TeamID == "" {
		return nil, domain.Validation("no active team selected")
	}
	if r.TeamRole == authz.TeamRoleNone {
		return nil, domain.Forbidden("not a member of the active team")
	}
	return r, nil
}

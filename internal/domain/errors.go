package domain

import (
	"errors"
	"fmt"
)

// Kind clasifica un error de dominio. La capa de transporte traduce cada Kind
// a un status (401, 403, 404, 400, 409, 409, 500).
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
	KindDependencyViolation
)

// String devuelve el nombre estable del Kind (se usa como código por defecto en respuestas).
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindValidation:
		return "VALIDATION"
	case KindConflict:
		return "CONFLICT"
	case KindDependencyViolation:
		return "DEPENDENCY_VIOLATION"
	default:
		return "INTERNAL"
	}
}

// Error es el error de dominio tipado (sin dependencias externas).
// Code es opcional y más específico que Kind (p.ej. TIME_ENTRY_ALREADY_BILLED).
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindInternal {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is compara por Kind; si el target trae Code también debe coincidir.
// Así errors.Is(err, ErrNotFound) reconoce cualquier NotFound.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// ResponseCode devuelve Code si existe, si no el nombre del Kind.
func (e *Error) ResponseCode() string {
	if e.Code != "" {
		return e.Code
	}
	return e.Kind.String()
}

// Errores de dominio.
var (
	ErrUnauthorized        = &Error{Kind: KindUnauthorized, Message: "authentication required"}
	ErrForbidden           = &Error{Kind: KindForbidden, Message: "insufficient permissions"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrInvalidInput        = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrConflict            = &Error{Kind: KindConflict, Message: "conflict with current state"}
	ErrDependencyViolation = &Error{Kind: KindDependencyViolation, Message: "resource is still referenced"}
	ErrInternal            = &Error{Kind: KindInternal, Message: "internal error"}

	ErrDuplicate              = &Error{Kind: KindConflict, Code: "DUPLICATE", Message: "resource already exists"}
	ErrTimeEntryAlreadyBilled = &Error{Kind: KindConflict, Code: "TIME_ENTRY_ALREADY_BILLED", Message: "time entry is already billed"}
	ErrInvoiceNotDraft        = &Error{Kind: KindConflict, Code: "INVOICE_NOT_DRAFT", Message: "invoice must be draft to modify"}
	ErrLastOwner              = &Error{Kind: KindValidation, Code: "LAST_OWNER", Message: "cannot change the last owner role"}
	ErrTimerRunning           = &Error{Kind: KindConflict, Code: "TIMER_RUNNING", Message: "a time entry is already running"}
)

// New construye un error de dominio con mensaje formateado.
func New(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation construye un error de validación.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, "", format, args...)
}

// Forbidden construye un error de permisos.
func Forbidden(format string, args ...any) *Error {
	return New(KindForbidden, "", format, args...)
}

// NotFound construye un NotFound para la entidad indicada. Se usa también para
// entidades de otro equipo: no se revela su existencia.
func NotFound(entity string) *Error {
	return New(KindNotFound, "", "%s not found", entity)
}

// Conflict construye un conflicto con código específico.
func Conflict(code, format string, args ...any) *Error {
	return New(KindConflict, code, format, args...)
}

// DependencyViolation construye el error de borrado bloqueado por referencias.
func DependencyViolation(format string, args ...any) *Error {
	return New(KindDependencyViolation, "", format, args...)
}

// Internal envuelve un error no clasificado. El mensaje hacia el cliente es genérico;
// el detalle queda en Err para el log.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf devuelve el Kind de err; errores no tipados se consideran internos.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

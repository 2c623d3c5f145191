package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

// Nombres de constraints con traducción específica (ver migrations/00001_init.sql).
const (
	constraintLinkTimeEntry = "invoice_time_entries_time_entry_id_key"
	constraintOneRunning    = "time_entries_one_running_idx"
)

// mapError traduce errores de pgx y del query builder a errores de dominio.
// Lo que no tiene traducción se envuelve con op y el transporte lo trata como interno.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	var ve *querybuilder.ValidationError
	if errors.As(err, &ve) {
		return &domain.Error{Kind: domain.KindValidation, Code: "INVALID_SORT", Message: ve.Error(), Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			switch pgErr.ConstraintName {
			case constraintLinkTimeEntry:
				return domain.ErrTimeEntryAlreadyBilled
			case constraintOneRunning:
				return domain.ErrTimerRunning
			}
			return &domain.Error{Kind: domain.KindConflict, Code: domain.ErrDuplicate.Code, Message: domain.ErrDuplicate.Message, Err: err}
		case pgerrcode.ForeignKeyViolation:
			// En DELETE/UPDATE del padre el mensaje empieza con "update or delete on table".
			if strings.HasPrefix(pgErr.Message, "update or delete") {
				return &domain.Error{Kind: domain.KindDependencyViolation, Message: "resource is still referenced", Err: err}
			}
			return &domain.Error{Kind: domain.KindValidation, Message: "referenced resource does not exist", Err: err}
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation, pgerrcode.InvalidTextRepresentation,
			pgerrcode.NumericValueOutOfRange, pgerrcode.StringDataRightTruncationDataException:
			return &domain.Error{Kind: domain.KindValidation, Message: "invalid value", Err: err}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// notFoundOr devuelve NotFound(entity) para pgx.ErrNoRows y mapError en otro caso.
func notFoundOr(err error, entity, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound(entity)
	}
	return mapError(err, op)
}

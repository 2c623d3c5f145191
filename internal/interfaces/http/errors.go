package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Tiempo-api/internal/application/dto"
	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/pkg/logger"
)

// statusFor traduce el Kind de dominio a status HTTP.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindUnauthorized:
		return fiber.StatusUnauthorized
	case domain.KindForbidden:
		return fiber.StatusForbidden
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindConflict, domain.KindDependencyViolation:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError escribe el ErrorResponse de err. Los errores internos se registran
// aquí una sola vez y el cliente recibe un mensaje genérico.
func respondError(c *fiber.Ctx, err error) error {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = domain.Internal(err)
	}
	status := statusFor(de.Kind)
	msg := de.Message
	if de.Kind == domain.KindInternal {
		logger.FromContext(c.UserContext()).Error().Err(err).
			Str("method", c.Method()).Str("path", c.Path()).
			Msg("error interno")
		msg = "error interno"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: de.ResponseCode(), Message: msg})
}

// ErrorHandler es el manejador de errores de la app Fiber: errores de Fiber
// (404 de ruta, body demasiado grande) conservan su status; el resto pasa por respondError.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: codeForStatus(fe.Code), Message: fe.Message})
	}
	return respondError(c, err)
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "BODY_TOO_LARGE"
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	default:
		return "INTERNAL"
	}
}

// invalidBody es la respuesta estándar cuando el cuerpo no se puede parsear.
func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// invalidQuery es la respuesta estándar cuando los parámetros de consulta no se pueden parsear.
func invalidQuery(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros de consulta inválidos"})
}

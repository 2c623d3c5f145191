package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Tiempo-api/internal/application/loader"
	"github.com/jhoicas/Tiempo-api/internal/application/reqctx"
	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/pkg/logger"
)

// userReader resuelve el usuario del token. Lo implementa *postgres.UserRepo.
type userReader interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// memberRoleReader es lo mínimo que necesita el middleware para resolver el rol de equipo.
// Lo implementa *postgres.TeamRepo.
type memberRoleReader interface {
	GetMemberRole(ctx context.Context, teamID, userID string) (authz.TeamRole, error)
}

// RequestContext construye el contexto de autorización de la petición: rol de instancia
// y rol de equipo resueltos en la DB, loaders nuevos y un sublogger con los identificadores.
// El rol de instancia del token se reemplaza por el de la DB.
// Debe usarse DESPUÉS de AuthMiddleware.
func RequestContext(users userReader, teams memberRoleReader, src loader.Sources, cfg loader.Config, base zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		teamID := GetTeamID(c)
		ctx := c.UserContext()

		user, err := users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return respondError(c, domain.ErrUnauthorized)
			}
			return respondError(c, err)
		}
		c.Locals(LocalInstanceRole, user.InstanceRole)

		teamRole := authz.TeamRoleNone
		if teamID != "" {
			role, err := teams.GetMemberRole(ctx, teamID, userID)
			if err != nil {
				return respondError(c, err)
			}
			teamRole = role
		}

		zl := base.With().
			Str("request_id", requestID(c)).
			Str("user_id", userID).
			Str("team_id", teamID).
			Logger()
		ctx = logger.WithContext(ctx, zl)
		loaders := loader.New(src, cfg, teamID, userID)
		loaders.Users.Prime(userID, user)
		ctx = reqctx.WithContext(ctx, &reqctx.Request{
			UserID:       userID,
			InstanceRole: user.InstanceRole,
			TeamID:       teamID,
			TeamRole:     teamRole,
			Loaders:      loaders,
		})
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// RequestLogger registra cada petición con su duración y status.
func RequestLogger(base zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			// el ErrorHandler aún no escribió la respuesta
			status = statusOf(err)
		}
		ev := base.Info()
		if status >= fiber.StatusInternalServerError {
			ev = base.Error()
		}
		ev.Str("request_id", requestID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("petición HTTP")
		return err
	}
}

// metricsObserver lo implementa *metrics.Metrics.
type metricsObserver interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

// Metrics registra contador e histograma por ruta (plantilla, no path concreto).
func Metrics(m metricsObserver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		m.ObserveRequest(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}

func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return statusFor(domain.KindOf(err))
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}

package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Tiempo-api/internal/application/dto"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/pkg/jwt"
)

// Locals keys para la identidad del token en Fiber.
const (
	LocalUserID       = "user_id"
	LocalTeamID       = "team_id"
	LocalInstanceRole = "instance_role"
)

// HeaderTeamID permite elegir el equipo activo por petición.
const HeaderTeamID = "X-Team-ID"

// AuthMiddleware valida el Bearer Token JWT y extrae UserID, TeamID e InstanceRole a c.Locals.
// El header X-Team-ID, si viene, reemplaza el equipo del token.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil || claims.UserID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		role, err := authz.ParseInstanceRole(claims.InstanceRole)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "rol de instancia inválido"})
		}
		teamID := claims.TeamID
		if h := strings.TrimSpace(c.Get(HeaderTeamID)); h != "" {
			teamID = h
		}
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalTeamID, teamID)
		c.Locals(LocalInstanceRole, role)
		return c.Next()
	}
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalUserID).(string)
	return s
}

// GetTeamID devuelve el equipo activo (token o X-Team-ID).
func GetTeamID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalTeamID).(string)
	return s
}

// GetInstanceRole devuelve el rol de instancia de la petición; USER si no hay.
// Después de RequestContext es el rol vigente en la DB, no el del token.
func GetInstanceRole(c *fiber.Ctx) authz.InstanceRole {
	r, _ := c.Locals(LocalInstanceRole).(authz.InstanceRole)
	return r
}

// RequireInstanceAdmin corta con 403 si el usuario no es administrador de instancia.
// Debe usarse DESPUÉS de RequestContext para decidir con el rol de la DB.
func RequireInstanceAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetUserID(c) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
		}
		if err := authz.RequireInstanceAdmin(GetInstanceRole(c)); err != nil {
			return respondError(c, err)
		}
		return c.Next()
	}
}

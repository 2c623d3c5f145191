package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Tiempo-api/internal/application/dto"
	apphttp "github.com/jhoicas/Tiempo-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/Tiempo-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testTeamID    = "00000000-0000-0000-0000-000000000002"
	otherTeamID   = "00000000-0000-0000-0000-000000000003"
	otherUserID   = "00000000-0000-0000-0000-000000000004"
	testIssuer    = "tiempo-test"
	testExpMin    = 60
)

// buildTestApp construye una aplicación Fiber mínima con:
//   - AuthMiddleware para parsear el JWT y cargar locals
//   - una ruta /admin protegida además con RequireInstanceAdmin
func buildTestApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler})
	echo := func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":       apphttp.GetUserID(c),
			"team_id":       apphttp.GetTeamID(c),
			"instance_role": apphttp.GetInstanceRole(c).String(),
		})
	}
	app.Get("/protected", apphttp.AuthMiddleware(testJWTSecret), echo)
	app.Get("/admin", apphttp.AuthMiddleware(testJWTSecret), apphttp.RequireInstanceAdmin(), echo)
	return app
}

// bearer genera un JWT con el rol de instancia y equipo indicados.
func bearer(t *testing.T, teamID, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, teamID, role, testIssuer, testExpMin)
	require.NoError(t, err, "debe generarse un token JWT válido")
	return "Bearer " + tok
}

// doGet lanza una petición GET y devuelve la respuesta.
func doGet(t *testing.T, app *fiber.App, path, authHeader string, headers ...string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeError(t *testing.T, resp *http.Response) dto.ErrorResponse {
	t.Helper()
	defer resp.Body.Close()
	var out dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests AuthMiddleware
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_SinAuthHeader_Retorna401(t *testing.T) {
	resp := doGet(t, buildTestApp(), "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_TOKEN", decodeError(t, resp).Code)
}

func TestAuthMiddleware_FormatoInvalido_Retorna401(t *testing.T) {
	resp := doGet(t, buildTestApp(), "/protected", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", decodeError(t, resp).Code)
}

func TestAuthMiddleware_TokenInvalido_Retorna401(t *testing.T) {
	resp := doGet(t, buildTestApp(), "/protected", "Bearer esto.no.es.un.jwt")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", decodeError(t, resp).Code)
}

func TestAuthMiddleware_RolDeInstanciaDesconocido_Retorna401(t *testing.T) {
	resp := doGet(t, buildTestApp(), "/protected", bearer(t, testTeamID, "SUPERUSER"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_ExtraeClaims(t *testing.T) {
	resp := doGet(t, buildTestApp(), "/protected", bearer(t, testTeamID, "USER"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, testTeamID, body["team_id"])
	assert.Equal(t, "USER", body["instance_role"])
}

func TestAuthMiddleware_HeaderXTeamIDReemplazaEquipoDelToken(t *testing.T) {
	resp := doGet(t, buildTestApp(), "/protected", bearer(t, testTeamID, "USER"), apphttp.HeaderTeamID, otherTeamID)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, otherTeamID, body["team_id"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests RequireInstanceAdmin
// ──────────────────────────────────────────────────────────────────────────────

func TestRequireInstanceAdmin_AdminAccede(t *testing.T) {
	resp := doGet(t, buildTestApp(), "/admin", bearer(t, "", "ADMIN"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireInstanceAdmin_UsuarioBloqueado_Retorna403(t *testing.T) {
	resp := doGet(t, buildTestApp(), "/admin", bearer(t, testTeamID, "USER"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", decodeError(t, resp).Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests JWT
// ──────────────────────────────────────────────────────────────────────────────

func TestJWT_TokenExpirado_RetornaError(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testTeamID, "USER", testIssuer, -1)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(testJWTSecret, tok)
	assert.Error(t, err, "un token expirado debe rechazarse")

	resp := doGet(t, buildTestApp(), "/protected", "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJWT_SecretIncorrecto_RetornaError(t *testing.T) {
	tok, err := pkgjwt.Generate("otro-secret", testUserID, testTeamID, "USER", testIssuer, testExpMin)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(testJWTSecret, tok)
	assert.Error(t, err)
}

package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"guardialog/internal/config"
	"guardialog/internal/models"
	"guardialog/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB initializes a test database
func setupTestDB(t *testing.T) (*config.Config, *gorm.DB) {
	t.Helper()

	testDBPath := fmt.Sprintf("%s/guardialog_routes_test_%d.db", os.TempDir(), time.Now().UnixNano())

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Type: "sqlite",
			SQLite: config.SQLiteConfig{
				Path: testDBPath,
			},
		},
		JWT: config.JWTConfig{
			Secret:    "test-secret-key-for-testing-only",
			ExpiresIn: "24h",
			Issuer:    "guardialog-test",
		},
		Security: config.SecurityConfig{
			BcryptCost:    10,
			ResetPassword: "1234",
		},
		Bootstrap: config.BootstrapConfig{
			Username: "admin",
			Password: "admin123",
		},
	}

	db, err := models.InitDB(cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
		os.Remove(testDBPath)
	})

	return cfg, db
}

// createTestUser creates an account with the forced-change flag already
// cleared, so it can use the API straight away
func createTestUser(t *testing.T, db *gorm.DB, authService *services.AuthService, username, password string, esAdmin bool) *models.User {
	t.Helper()

	user, err := authService.CreateUser(username, password, esAdmin)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("debe_cambiar_password", false).Error)
	user.DebeCambiarPassword = false

	return user
}

// createTestToken creates a JWT and backing session for a user
func createTestToken(t *testing.T, cfg *config.Config, authService *services.AuthService, user *models.User) string {
	t.Helper()

	expiresIn, _ := time.ParseDuration(cfg.JWT.ExpiresIn)
	if expiresIn == 0 {
		expiresIn = 24 * time.Hour
	}
	now := time.Now()
	expiresAt := now.Add(expiresIn)

	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"es_admin": user.EsAdmin,
		"exp":      expiresAt.Unix(),
		"iat":      now.Unix(),
		"iss":      cfg.JWT.Issuer,
		"jti":      uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWT.Secret))
	require.NoError(t, err)

	require.NoError(t, authService.CreateSession(user.ID, tokenString, expiresAt))

	return tokenString
}

// setupTestRouter creates a test router with routes
func setupTestRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupRoutes(r, cfg, db)
	return r
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(jsonData)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func guardiaBody(prioridad, estado string) map[string]any {
	return map[string]any{
		"quien_llamo":   "Carlos Perez",
		"fecha_llamado": time.Now().Add(-time.Hour).Format(time.RFC3339),
		"descripcion":   "Servidor de facturacion sin respuesta",
		"prioridad":     prioridad,
		"estado":        estado,
	}
}

func TestAuthRoutes(t *testing.T) {
	cfg, db := setupTestDB(t)
	authService := services.NewAuthService(cfg, db)
	user := createTestUser(t, db, authService, "ana", "secreto1", false)
	router := setupTestRouter(cfg, db)

	t.Run("POST /api/auth/login - Success", func(t *testing.T) {
		w := doJSON(t, router, "POST", "/api/auth/login", "", map[string]any{
			"username": "ana",
			"password": "secreto1",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.NotEmpty(t, response["token"])
		assert.Equal(t, false, response["debe_cambiar_password"])
	})

	t.Run("POST /api/auth/login - Invalid credentials", func(t *testing.T) {
		w := doJSON(t, router, "POST", "/api/auth/login", "", map[string]any{
			"username": "ana",
			"password": "equivocada",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("POST /api/auth/login - Inactive account", func(t *testing.T) {
		require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("activo", false).Error)
		defer func() {
			require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("activo", true).Error)
		}()

		w := doJSON(t, router, "POST", "/api/auth/login", "", map[string]any{
			"username": "ana",
			"password": "secreto1",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("GET /api/auth/me - Success", func(t *testing.T) {
		token := createTestToken(t, cfg, authService, user)
		w := doJSON(t, router, "GET", "/api/auth/me", token, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var response models.User
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "ana", response.Username)
	})

	t.Run("POST /api/auth/logout - Session is gone afterwards", func(t *testing.T) {
		token := createTestToken(t, cfg, authService, user)

		w := doJSON(t, router, "POST", "/api/auth/logout", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, "GET", "/api/auth/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestForcedPasswordChangeFlow(t *testing.T) {
	cfg, db := setupTestDB(t)
	authService := services.NewAuthService(cfg, db)
	router := setupTestRouter(cfg, db)

	// freshly created accounts must change their password
	_, err := authService.CreateUser("nuevo", "temporal1", false)
	require.NoError(t, err)

	w := doJSON(t, router, "POST", "/api/auth/login", "", map[string]any{
		"username": "nuevo",
		"password": "temporal1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var login map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, true, login["debe_cambiar_password"])
	token := login["token"].(string)

	// everything behind the gate answers 403 until the password changes
	w = doJSON(t, router, "GET", "/api/guardias", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	var gate map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gate))
	assert.Equal(t, "password_change_required", gate["code"])

	// the change itself is allowed
	w = doJSON(t, router, "POST", "/api/auth/password", token, map[string]any{
		"password": "definitiva1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "GET", "/api/guardias", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuardiasRoutes(t *testing.T) {
	cfg, db := setupTestDB(t)
	authService := services.NewAuthService(cfg, db)

	adminUser := createTestUser(t, db, authService, "root", "admin123", true)
	anaUser := createTestUser(t, db, authService, "ana", "secreto1", false)
	brunoUser := createTestUser(t, db, authService, "bruno", "secreto1", false)

	router := setupTestRouter(cfg, db)
	anaToken := createTestToken(t, cfg, authService, anaUser)
	brunoToken := createTestToken(t, cfg, authService, brunoUser)
	adminToken := createTestToken(t, cfg, authService, adminUser)

	t.Run("GET /api/guardias - Unauthorized without token", func(t *testing.T) {
		w := doJSON(t, router, "GET", "/api/guardias", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	var anaGuardiaID uint

	t.Run("POST /api/guardias - Success", func(t *testing.T) {
		w := doJSON(t, router, "POST", "/api/guardias", anaToken, guardiaBody("Alta", "Abierto"))

		assert.Equal(t, http.StatusCreated, w.Code)
		var response models.Guardia
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "ana", response.QuienGuardia)
		assert.True(t, response.Reciente)
		anaGuardiaID = response.ID
	})

	t.Run("POST /api/guardias - Missing required field", func(t *testing.T) {
		body := guardiaBody("Alta", "Abierto")
		delete(body, "descripcion")
		w := doJSON(t, router, "POST", "/api/guardias", anaToken, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("POST /api/guardias - Invalid priority", func(t *testing.T) {
		w := doJSON(t, router, "POST", "/api/guardias", anaToken, guardiaBody("Urgente", "Abierto"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("GET /api/guardias/:id - Forbidden for another user", func(t *testing.T) {
		w := doJSON(t, router, "GET", fmt.Sprintf("/api/guardias/%d", anaGuardiaID), brunoToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("GET /api/guardias/:id - Admin can read it", func(t *testing.T) {
		w := doJSON(t, router, "GET", fmt.Sprintf("/api/guardias/%d", anaGuardiaID), adminToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("GET /api/guardias/:id - Not found", func(t *testing.T) {
		w := doJSON(t, router, "GET", "/api/guardias/99999", adminToken, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GET /api/guardias/:id - Invalid ID", func(t *testing.T) {
		w := doJSON(t, router, "GET", "/api/guardias/abc", adminToken, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("PUT /api/guardias/:id - Forbidden for another user", func(t *testing.T) {
		w := doJSON(t, router, "PUT", fmt.Sprintf("/api/guardias/%d", anaGuardiaID), brunoToken, guardiaBody("Alta", "En progreso"))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("PUT /api/guardias/:id - Owner updates state", func(t *testing.T) {
		w := doJSON(t, router, "PUT", fmt.Sprintf("/api/guardias/%d", anaGuardiaID), anaToken, guardiaBody("Alta", "En progreso"))

		assert.Equal(t, http.StatusOK, w.Code)
		var response models.Guardia
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, models.EstadoEnProgreso, response.Estado)
		assert.Nil(t, response.FechaResolucion)
	})

	t.Run("POST /api/guardias/:id/resolver - Idempotent", func(t *testing.T) {
		w := doJSON(t, router, "POST", fmt.Sprintf("/api/guardias/%d/resolver", anaGuardiaID), anaToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var first models.Guardia
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
		require.NotNil(t, first.FechaResolucion)

		w = doJSON(t, router, "POST", fmt.Sprintf("/api/guardias/%d/resolver", anaGuardiaID), anaToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var second models.Guardia
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
		require.NotNil(t, second.FechaResolucion)
		assert.WithinDuration(t, *first.FechaResolucion, *second.FechaResolucion, time.Second)
	})

	t.Run("GET /api/guardias - Ordering and scoping", func(t *testing.T) {
		// bruno logs a Baja first, then an Alta; listing puts Alta first
		w := doJSON(t, router, "POST", "/api/guardias", brunoToken, guardiaBody("Baja", "Abierto"))
		require.Equal(t, http.StatusCreated, w.Code)
		w = doJSON(t, router, "POST", "/api/guardias", brunoToken, guardiaBody("Alta", "Abierto"))
		require.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(t, router, "GET", "/api/guardias", brunoToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Guardias   []models.Guardia    `json:"guardias"`
			Pagination services.Pagination `json:"pagination"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Guardias, 2)
		assert.Equal(t, models.PrioridadAlta, response.Guardias[0].Prioridad)
		assert.Equal(t, models.PrioridadBaja, response.Guardias[1].Prioridad)
		for _, g := range response.Guardias {
			assert.Equal(t, "bruno", g.QuienGuardia)
		}
		assert.Equal(t, int64(2), response.Pagination.Total)
	})

	t.Run("GET /api/guardias - Admin sees assignee list", func(t *testing.T) {
		w := doJSON(t, router, "GET", "/api/guardias", adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Contains(t, response, "guardias_disponibles")
	})

	t.Run("GET /api/guardias - Search highlights matches", func(t *testing.T) {
		body := guardiaBody("Media", "Abierto")
		body["descripcion"] = "Base-de-datos principal caida"
		w := doJSON(t, router, "POST", "/api/guardias", anaToken, body)
		require.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(t, router, "GET", "/api/guardias?q=base+de+datos", anaToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Guardias []struct {
				Descripcion     string `json:"descripcion"`
				DescripcionHTML string `json:"descripcion_html"`
			} `json:"guardias"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Guardias, 1)
		assert.Equal(t, "Base-de-datos principal caida", response.Guardias[0].Descripcion)
		assert.Equal(t, "<mark>Base-de-datos</mark> principal caida", response.Guardias[0].DescripcionHTML)
	})

	t.Run("GET /api/historial - Separately paginated", func(t *testing.T) {
		w := doJSON(t, router, "GET", "/api/historial?page=1", anaToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Guardias   []models.Guardia    `json:"guardias"`
			Pagination services.Pagination `json:"pagination"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, 1, response.Pagination.Page)
		for _, g := range response.Guardias {
			assert.Equal(t, "ana", g.QuienGuardia)
		}
	})
}

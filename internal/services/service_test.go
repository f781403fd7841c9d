package services

import (
	"fmt"
	"os"
	"testing"
	"time"

	"guardialog/internal/config"
	"guardialog/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB initializes a throwaway SQLite database
func setupTestDB(t *testing.T) (*config.Config, *gorm.DB) {
	t.Helper()

	testDBPath := fmt.Sprintf("%s/guardialog_test_%d.db", os.TempDir(), time.Now().UnixNano())

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

func timeIn24h() time.Time { return time.Now().Add(24 * time.Hour) }

// actor builds an in-memory user for permission checks
func actor(id uint, username string, admin bool) *models.User {
	return &models.User{ID: id, Username: username, EsAdmin: admin, Activo: true}
}

func mustCreateGuardia(t *testing.T, svc *GuardiaService, in CreateGuardiaInput, by *models.User) *models.Guardia {
	t.Helper()
	g, err := svc.Create(in, by)
	require.NoError(t, err)
	return g
}

func baseInput(prioridad, estado string) CreateGuardiaInput {
	return CreateGuardiaInput{
		QuienLlamo:   "Carlos Perez",
		FechaLlamado: time.Now().Add(-time.Hour),
		Descripcion:  "Servidor de facturacion sin respuesta",
		Prioridad:    prioridad,
		Estado:       estado,
	}
}

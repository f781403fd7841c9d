package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Security  SecurityConfig  `yaml:"security"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"`
}

type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	MySQL    MySQLConfig    `yaml:"mysql"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Charset  string `yaml:"charset"`
}

type JWTConfig struct {
	Secret    string `yaml:"secret"`
	ExpiresIn string `yaml:"expires_in"`
	Issuer    string `yaml:"issuer"`
}

type SecurityConfig struct {
	BcryptCost int `yaml:"bcrypt_cost"`
	// ResetPassword is the temporary value an admin reset assigns; the
	// account is forced to change it on next login.
	ResetPassword string `yaml:"reset_password"`
}

type BootstrapConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Load reads the configuration file and applies environment overrides.
// A .env file in the working directory is loaded first if present.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if jwtSecret := os.Getenv("GUARDIALOG_JWT_SECRET"); jwtSecret != "" {
		cfg.JWT.Secret = jwtSecret
	}

	if mode := os.Getenv("GUARDIALOG_MODE"); mode != "" {
		cfg.Server.Mode = mode
	}

	if port := os.Getenv("GUARDIALOG_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid GUARDIALOG_PORT: %w", err)
		}
		cfg.Server.Port = p
	}

	if dbType := os.Getenv("GUARDIALOG_DB_TYPE"); dbType != "" {
		cfg.Database.Type = dbType
	}

	if dbPath := os.Getenv("GUARDIALOG_DB_PATH"); dbPath != "" {
		cfg.Database.SQLite.Path = dbPath
	}

	if pgDSN := os.Getenv("GUARDIALOG_PG_DSN"); pgDSN != "" {
		cfg.Database.Postgres.DSN = pgDSN
	}

	if mysqlHost := os.Getenv("GUARDIALOG_MYSQL_HOST"); mysqlHost != "" {
		cfg.Database.MySQL.Host = mysqlHost
	}

	if mysqlUser := os.Getenv("GUARDIALOG_MYSQL_USER"); mysqlUser != "" {
		cfg.Database.MySQL.Username = mysqlUser
	}

	if mysqlPass := os.Getenv("GUARDIALOG_MYSQL_PASSWORD"); mysqlPass != "" {
		cfg.Database.MySQL.Password = mysqlPass
	}

	if mysqlDB := os.Getenv("GUARDIALOG_MYSQL_DATABASE"); mysqlDB != "" {
		cfg.Database.MySQL.Database = mysqlDB
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	// Ensure data directory exists for SQLite
	if cfg.Database.Type == "sqlite" {
		dataDir := filepath.Dir(cfg.Database.SQLite.Path)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	switch cfg.Database.Type {
	case "sqlite":
		if cfg.Database.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case "postgres":
		if cfg.Database.Postgres.DSN == "" {
			return fmt.Errorf("postgres DSN is required")
		}
	case "mysql":
		if cfg.Database.MySQL.Username == "" {
			return fmt.Errorf("MySQL username is required")
		}
		if cfg.Database.MySQL.Database == "" {
			return fmt.Errorf("MySQL database name is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	if cfg.Security.BcryptCost == 0 {
		cfg.Security.BcryptCost = 12
	}
	if cfg.Security.ResetPassword == "" {
		cfg.Security.ResetPassword = "1234"
	}
	if cfg.Bootstrap.Username == "" {
		cfg.Bootstrap.Username = "admin"
	}
	if cfg.Bootstrap.Password == "" {
		cfg.Bootstrap.Password = "admin123"
	}
	if cfg.JWT.ExpiresIn == "" {
		cfg.JWT.ExpiresIn = "24h"
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "guardialog"
	}

	return nil
}

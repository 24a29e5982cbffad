package main

import (
	"context"
	"database/sql"
	_ "embed"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"school-resources-backend/internal/config"
	"school-resources-backend/internal/domain"
	"school-resources-backend/internal/logger"
	"school-resources-backend/internal/repository/postgres"
)

//go:embed schema.sql
var schema string

type SeedUser struct {
	Name     string          `yaml:"name"`
	Email    string          `yaml:"email"`
	DNI      string          `yaml:"dni"`
	Role     domain.UserRole `yaml:"role"`
	Password string          `yaml:"password"`
}

type SeedResource struct {
	Number     string `yaml:"number"`
	Brand      string `yaml:"brand"`
	Model      string `yaml:"model"`
	CategoryID string `yaml:"category_id"`
}

type SeedData struct {
	Users     []SeedUser     `yaml:"users"`
	Resources []SeedResource `yaml:"resources"`
}

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	seedPath := flag.String("data", "cmd/seed/seed.example.yaml", "Path to the seed data file")
	schemaOnly := flag.Bool("schema-only", false, "Create the tables and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Connected to database", "host", cfg.Database.Host, "database", cfg.Database.Database)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	logger.Info("Schema applied")
	if *schemaOnly {
		return
	}

	data, err := readSeedFile(*seedPath)
	if err != nil {
		log.Fatalf("Failed to read seed file: %v", err)
	}
	if err := populateData(ctx, db, data); err != nil {
		log.Fatalf("Failed to populate data: %v", err)
	}
	logger.Info("Seed data populated", "users", len(data.Users), "resources", len(data.Resources))
}

func readSeedFile(filename string) (*SeedData, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var data SeedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	for _, u := range data.Users {
		if !u.Role.Valid() {
			return nil, fmt.Errorf("user %s: unknown role %q", u.Email, u.Role)
		}
		if !domain.ValidDNI(u.DNI) {
			return nil, fmt.Errorf("user %s: DNI must be %d digits", u.Email, domain.DNILength)
		}
	}
	return &data, nil
}

// populateData inserts users and resources in one transaction. Rows that
// already exist (by email or number) are left untouched.
func populateData(ctx context.Context, db *sql.DB, data *SeedData) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, u := range data.Users {
		logger.Info("Creating user", "n", i+1, "of", len(data.Users), "email", u.Email, "role", u.Role)
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", u.Email, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO users (id, name, email, dni, role, password_hash)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (email) DO NOTHING`,
			uuid.NewString(), u.Name, strings.ToLower(strings.TrimSpace(u.Email)), u.DNI, u.Role, string(hash))
		if err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.Email, err)
		}
	}

	for _, r := range data.Resources {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO resources (id, number, brand, model, category_id, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (number) DO NOTHING`,
			uuid.NewString(), r.Number, r.Brand, r.Model, r.CategoryID, domain.ResourceStatusAvailable)
		if err != nil {
			return fmt.Errorf("failed to create resource %s: %w", r.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

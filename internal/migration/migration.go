package migration

import (
	"context"
	"database/sql"
	_ "embed"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"topup-gateway/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// Statements splits a migration script into individual statements.
func Statements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// Apply runs the embedded schema. Every statement is idempotent.
func Apply(ctx context.Context, db *sql.DB) error {
	return applyScript(ctx, db, schemaSQL)
}

func applyScript(ctx context.Context, db *sql.DB, script string) error {
	for i, stmt := range Statements(script) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}
	return nil
}

// RunMigration is the "migrate" subcommand.
func RunMigration(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	envFlag := fs.String("env", "dev", "Environment (dev, test, prod)")
	envFileFlag := fs.String("env-file", "", "Path to .env file")
	migrationFlag := fs.String("migration", "", "Path to a migration file (defaults to the embedded schema)")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	loadEnv(*envFlag, *envFileFlag)

	dbConfig := config.Load().Database
	fmt.Printf("Connecting to MySQL at %s:%s as %s\n", dbConfig.Host, dbConfig.Port, dbConfig.Username)

	db, err := sql.Open("mysql", dbConfig.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	fmt.Println("Connected to database successfully")

	script := schemaSQL
	source := "embedded schema"
	if *migrationFlag != "" {
		raw, err := os.ReadFile(*migrationFlag)
		if err != nil {
			log.Fatalf("Failed to read migration file: %v", err)
		}
		script = string(raw)
		source = *migrationFlag
	}

	fmt.Printf("Executing migration from %s\n", source)
	if err := applyScript(ctx, db, script); err != nil {
		log.Fatalf("Failed to execute migration: %v", err)
	}

	fmt.Println("Migration completed successfully")
}

func loadEnv(env string, envFile string) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err == nil {
			fmt.Printf("Loaded environment from %s\n", envFile)
			return
		}
	}

	envSpecificFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envSpecificFile); err == nil {
		fmt.Printf("Loaded environment from %s\n", envSpecificFile)
		return
	}

	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded environment from .env")
		return
	}

	fmt.Println("No .env file found, using default or system environment variables")
}

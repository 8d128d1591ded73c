package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"qaebench/adapters/sqlstore"
	"qaebench/domain/core"
	"qaebench/domain/run"
	"qaebench/internal/errors"
	"qaebench/internal/migration"

	"github.com/google/uuid"
)

// Imports run result files written by "qaebench simulate --results-json"
// into a results database.
func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <database_url> <results_dir>")
	}

	databaseURL := os.Args[1]
	resultsDir := os.Args[2]

	log.Printf("Starting migration from %s to database %s", resultsDir, databaseURL)

	ctx := context.Background()
	db, err := sqlstore.Connect(ctx, driverFor(databaseURL), databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}
	repo := sqlstore.NewResultsRepository(db)

	files, err := findResultFiles(resultsDir)
	if err != nil {
		log.Fatalf("Failed to find result files: %v", err)
	}

	log.Printf("Found %d result files to migrate", len(files))

	migrated := 0
	skipped := 0

	for _, file := range files {
		results, err := loadResultsFromFile(file)
		if err != nil {
			log.Printf("Failed to load results from %s: %v", file, err)
			skipped++
			continue
		}

		if err := repo.SaveRun(ctx, results); err != nil {
			err = errors.DatabaseError(err, "failed to save run "+results.RunID.String())
			log.Printf("[%s] %v", errors.GetCode(err), err)
			skipped++
			continue
		}

		migrated++
		log.Printf("Migrated run %s (%s, %s) from %s", results.RunID, results.Label, results.Summary(), filepath.Base(file))
	}

	log.Printf("Migration complete: %d migrated, %d skipped", migrated, skipped)
}

// driverFor picks postgres for postgres URLs and SQLite for everything else.
func driverFor(url string) string {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return sqlstore.DriverPostgres
	}
	return sqlstore.DriverSQLite
}

func findResultFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}

func loadResultsFromFile(filePath string) (*run.Results, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var results run.Results
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, err
	}
	if err := results.Validate(); err != nil {
		return nil, err
	}

	// Fallback: deterministic run ID based on file path
	if results.RunID == "" {
		results.RunID = core.RunID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(filePath)).String())
	}
	if results.CreatedAt.IsZero() {
		results.CreatedAt = core.Now()
	}

	return &results, nil
}

package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reedfrost/adapters/postgres"
	"reedfrost/domain/core"
	"reedfrost/domain/epidemic"
	"reedfrost/internal/migration"
	"reedfrost/internal/reedfrost"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <database_url> <ensemble_json_dir>")
	}

	databaseURL := os.Args[1]
	ensembleDir := os.Args[2]

	log.Printf("Importing ensembles from %s", ensembleDir)

	// Connect to database
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	runRepo := postgres.NewRunRepository(db)

	files, err := findEnsembleFiles(ensembleDir)
	if err != nil {
		log.Fatalf("Failed to find ensemble files: %v", err)
	}

	log.Printf("Found %d ensemble files to import", len(files))

	migrated := 0
	skipped := 0

	for _, file := range files {
		run, err := loadEnsembleFromFile(file)
		if err != nil {
			log.Printf("Failed to load ensemble from %s: %v", file, err)
			skipped++
			continue
		}

		if err := runRepo.Save(ctx, run); err != nil {
			log.Printf("Failed to save ensemble %s: %v", run.ID, err)
			skipped++
			continue
		}

		migrated++
		log.Printf("Imported ensemble %s from %s", run.ID, filepath.Base(file))
	}

	log.Printf("Import complete: %d imported, %d skipped", migrated, skipped)
}

func findEnsembleFiles(dir string) ([]string, error) {
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

// loadEnsembleFromFile reads an ensemble as returned by GET /api/v1/ensembles/:id.
// Derived fields are rebuilt from the trajectories.
func loadEnsembleFromFile(filePath string) (*epidemic.EnsembleRun, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var run epidemic.EnsembleRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}

	for _, traj := range run.Trajectories {
		if err := traj.Validate(run.Params.S0); err != nil {
			return nil, err
		}
	}
	if err := run.Params.Validate(); err != nil {
		return nil, err
	}

	id, err := core.ParseRunID(run.ID.String())
	if err != nil {
		// Stable id so re-importing a file does not duplicate it
		id = core.RunID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(filePath)).String())
	}
	run.ID = id

	run.Recount()
	if run.Summary, err = reedfrost.Summarize(run.FinalSizes); err != nil {
		return nil, err
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	return &run, nil
}

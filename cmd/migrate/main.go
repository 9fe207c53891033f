package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"defecteval/adapters/postgres"
	"defecteval/adapters/report"
	"defecteval/app"
	"defecteval/domain/run"
	"defecteval/internal"
	"defecteval/ports"
)

const manifestSuffix = ".manifest.json"

// migrate imports runs written to an output directory into the database.
// Each <project>.manifest.json is paired with <project>.csv; a run whose
// records no longer match the manifest's output hash is skipped.
func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <database_url> <output_dir>")
	}

	databaseURL := os.Args[1]
	outputDir := os.Args[2]

	log.Printf("Starting migration from %s", outputDir)

	ctx := context.Background()
	repo, err := postgres.Connect(ctx, databaseURL, internal.NewDefaultLogger())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	files, err := findManifests(outputDir)
	if err != nil {
		log.Fatalf("Failed to find manifests: %v", err)
	}
	log.Printf("Found %d manifests to migrate", len(files))

	migrated := 0
	skipped := 0

	for _, file := range files {
		rep, err := loadRun(file)
		if err != nil {
			log.Printf("Failed to load run from %s: %v", file, err)
			skipped++
			continue
		}

		exists, err := repo.RunExists(ctx, rep.Manifest.RunID)
		if err != nil {
			log.Fatalf("Failed to check run %s: %v", rep.Manifest.RunID, err)
		}
		if exists {
			log.Printf("Run %s already stored, skipping %s", rep.Manifest.RunID, filepath.Base(file))
			skipped++
			continue
		}

		if got := app.OutputHash(rep.Records); got != rep.Manifest.OutputHash {
			log.Printf("Output hash mismatch for %s: manifest %s, records %s", filepath.Base(file), rep.Manifest.OutputHash, got)
			skipped++
			continue
		}

		if err := repo.Write(ctx, rep); err != nil {
			log.Printf("Failed to store run %s: %v", rep.Manifest.RunID, err)
			skipped++
			continue
		}

		migrated++
		log.Printf("Migrated run %s (%d records) from %s", rep.Manifest.RunID, len(rep.Records), filepath.Base(file))
	}

	log.Printf("Migration complete: %d migrated, %d skipped", migrated, skipped)
}

func findManifests(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && strings.HasSuffix(path, manifestSuffix) {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}

func loadRun(manifestPath string) (ports.RunReport, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return ports.RunReport{}, err
	}

	var manifest run.RunManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return ports.RunReport{}, err
	}
	if err := manifest.Validate(); err != nil {
		return ports.RunReport{}, err
	}

	csvPath := strings.TrimSuffix(manifestPath, manifestSuffix) + ".csv"
	records, err := report.ReadRecords(csvPath)
	if err != nil {
		return ports.RunReport{}, err
	}

	return ports.RunReport{Project: manifest.Project, Records: records, Manifest: &manifest}, nil
}

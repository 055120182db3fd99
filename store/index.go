package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// indexFile is the artifact index database, kept inside the artifact
// directory so wiping the directory wipes the index with it.
const indexFile = "index.db"

// artifactRecord is one row of the artifact index
type artifactRecord struct {
	ReferencePath string
	ArtifactPath  string
	Score         float64
	MinScore      float64
	Passed        bool
}

// openIndex opens the artifact index in dir, creating the schema on first use
func openIndex(dir string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", filepath.Join(dir, indexFile))
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		reference_path TEXT NOT NULL,
		artifact_path TEXT NOT NULL,
		score REAL,
		min_score REAL,
		passed INTEGER,
		recorded_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_reference_path ON artifacts(reference_path);
	CREATE INDEX IF NOT EXISTS idx_passed ON artifacts(passed);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating artifact index schema: %w", err)
	}
	return db, nil
}

// recordArtifact appends one record to the artifact index in dir
func recordArtifact(dir string, rec artifactRecord) error {
	db, err := openIndex(dir)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(
		`INSERT INTO artifacts (reference_path, artifact_path, score, min_score, passed, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ReferencePath, rec.ArtifactPath, rec.Score, rec.MinScore, rec.Passed,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting artifact record: %w", err)
	}
	return nil
}

// Failure is one failed comparison recorded in the artifact index.
type Failure struct {
	ReferencePath string
	ArtifactPath  string
	Score         float64
	MinScore      float64
	RecordedAt    string
}

// Failures lists the failing comparisons recorded in dir's artifact index,
// most recent first. CI tooling can use it to build a review list without
// crawling the artifact tree.
func Failures(dir string) ([]Failure, error) {
	db, err := openIndex(dir)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT reference_path, artifact_path, score, min_score, recorded_at
		 FROM artifacts WHERE passed = 0 ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying artifact index: %w", err)
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.ReferencePath, &f.ArtifactPath, &f.Score, &f.MinScore, &f.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning artifact record: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

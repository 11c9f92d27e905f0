// Package reportdb archives detection runs to SQLite. The archive is
// purely observational: the pipeline never reads it back, and detection
// results are identical with or without it.
package reportdb

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/surface-data/planedetect/internal/pipeline"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps the archive database handle.
type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the archive at path and ensures the
// schema exists.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}
	return &DB{db}, nil
}

// RecordRun stores one run's dimensions, resolved settings, and ranked
// report. It returns the generated run ID.
func (db *DB) RecordRun(width, height int, s pipeline.Settings, report pipeline.Report) (string, error) {
	runID := uuid.NewString()

	tx, err := db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO detection_runs
			(id, width, height, min_normal_diff, max_dist, outlier_ratio, min_num_points, nr_neighbors, plane_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, width, height, s.MinNormalDiff, s.MaxDist, s.OutlierRatio, s.MinNumPoints, s.NumNeighbors, len(report))
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for rank, p := range report {
		_, err = tx.Exec(`
			INSERT INTO detected_planes
				(run_id, plane_rank,
				 normal_x, normal_y, normal_z,
				 center_x, center_y, center_z,
				 basis_u_x, basis_u_y, basis_u_z,
				 basis_v_x, basis_v_y, basis_v_z,
				 distance_from_origin, inlier_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, rank,
			p.Normal[0], p.Normal[1], p.Normal[2],
			p.Center[0], p.Center[1], p.Center[2],
			p.BasisU[0], p.BasisU[1], p.BasisU[2],
			p.BasisV[0], p.BasisV[1], p.BasisV[2],
			p.DistanceFromOrigin, p.InlierCount)
		if err != nil {
			return "", fmt.Errorf("failed to insert plane %d: %w", rank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return runID, nil
}

// RunReport loads the archived report for a run, in rank order.
func (db *DB) RunReport(runID string) (pipeline.Report, error) {
	rows, err := db.Query(`
		SELECT normal_x, normal_y, normal_z,
		       center_x, center_y, center_z,
		       basis_u_x, basis_u_y, basis_u_z,
		       basis_v_x, basis_v_y, basis_v_z,
		       distance_from_origin, inlier_count
		FROM detected_planes WHERE run_id = ? ORDER BY plane_rank`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := pipeline.Report{}
	for rows.Next() {
		var p pipeline.PlaneRecord
		err := rows.Scan(
			&p.Normal[0], &p.Normal[1], &p.Normal[2],
			&p.Center[0], &p.Center[1], &p.Center[2],
			&p.BasisU[0], &p.BasisU[1], &p.BasisU[2],
			&p.BasisV[0], &p.BasisV[1], &p.BasisV[2],
			&p.DistanceFromOrigin, &p.InlierCount)
		if err != nil {
			return nil, err
		}
		report = append(report, p)
	}
	return report, rows.Err()
}

// RunCount returns the number of archived runs.
func (db *DB) RunCount() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM detection_runs`).Scan(&n)
	return n, err
}

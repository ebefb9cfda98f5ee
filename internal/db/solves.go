package db

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/closedform/internal/photometric"
)

// SolveRecord summarises one closed-form solve and carries the full result.
type SolveRecord struct {
	SolveID     string
	SceneID     string
	Points      int
	Views       int
	Iterations  int
	SubsetSize  int
	MeanInliers float64
	Degenerate  int
	Duration    time.Duration
	Result      *photometric.Result
	CreatedAtNs int64
}

// NewSolveRecord builds a record for res, solved on sceneID in elapsed time.
func NewSolveRecord(sceneID string, res *photometric.Result, elapsed time.Duration) *SolveRecord {
	mean := 0.0
	if len(res.History) > 0 {
		mean = res.History[len(res.History)-1]
	}
	return &SolveRecord{
		SceneID:     sceneID,
		Points:      res.Points,
		Views:       res.Views,
		Iterations:  res.Iterations,
		SubsetSize:  res.SubsetSize,
		MeanInliers: mean,
		Degenerate:  res.DegenerateCount(),
		Duration:    elapsed,
		Result:      res,
	}
}

// InsertSolve stores rec. If rec.SolveID is empty, a new UUID is generated.
func (db *DB) InsertSolve(rec *SolveRecord) error {
	if rec.Result == nil {
		return fmt.Errorf("insert solve: missing result")
	}
	blob, err := encodeResult(rec.Result)
	if err != nil {
		return fmt.Errorf("insert solve: %w", err)
	}
	if rec.SolveID == "" {
		rec.SolveID = uuid.New().String()
	}
	if rec.CreatedAtNs == 0 {
		rec.CreatedAtNs = db.clock.Now().UnixNano()
	}

	_, err = db.Exec(`
		INSERT INTO solves (
			solve_id, scene_id, points, views, iterations, subset_size,
			mean_inliers, degenerate, duration_ns, result, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SolveID, rec.SceneID, rec.Points, rec.Views, rec.Iterations, rec.SubsetSize,
		rec.MeanInliers, rec.Degenerate, rec.Duration.Nanoseconds(), blob, rec.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert solve: %w", err)
	}
	return nil
}

const solveColumns = `solve_id, scene_id, points, views, iterations, subset_size,
	mean_inliers, degenerate, duration_ns, result, created_at_ns`

func scanSolve(row rowScanner) (*SolveRecord, error) {
	var rec SolveRecord
	var durationNs int64
	var blob []byte
	if err := row.Scan(&rec.SolveID, &rec.SceneID, &rec.Points, &rec.Views, &rec.Iterations,
		&rec.SubsetSize, &rec.MeanInliers, &rec.Degenerate, &durationNs, &blob, &rec.CreatedAtNs); err != nil {
		return nil, err
	}
	rec.Duration = time.Duration(durationNs)
	res, err := decodeResult(blob)
	if err != nil {
		return nil, err
	}
	rec.Result = res
	return &rec, nil
}

// GetSolve retrieves a solve by ID.
func (db *DB) GetSolve(solveID string) (*SolveRecord, error) {
	row := db.QueryRow(`SELECT `+solveColumns+` FROM solves WHERE solve_id = ?`, solveID)
	rec, err := scanSolve(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("solve %s: %w", solveID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get solve: %w", err)
	}
	return rec, nil
}

// ListSolves returns the solves of a scene, oldest first.
func (db *DB) ListSolves(sceneID string) ([]*SolveRecord, error) {
	rows, err := db.Query(`SELECT `+solveColumns+` FROM solves
		WHERE scene_id = ? ORDER BY created_at_ns, solve_id`, sceneID)
	if err != nil {
		return nil, fmt.Errorf("list solves: %w", err)
	}
	defer rows.Close()

	var out []*SolveRecord
	for rows.Next() {
		rec, err := scanSolve(rows)
		if err != nil {
			return nil, fmt.Errorf("scan solve: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LatestSolve returns the most recent solve of a scene.
func (db *DB) LatestSolve(sceneID string) (*SolveRecord, error) {
	row := db.QueryRow(`SELECT `+solveColumns+` FROM solves
		WHERE scene_id = ? ORDER BY created_at_ns DESC, solve_id DESC LIMIT 1`, sceneID)
	rec, err := scanSolve(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("solves of scene %s: %w", sceneID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest solve: %w", err)
	}
	return rec, nil
}

func encodeResult(res *photometric.Result) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(res); err != nil {
		gz.Close()
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeResult(blob []byte) (*photometric.Result, error) {
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var res photometric.Result
	if err := gob.NewDecoder(gz).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &res, nil
}

package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/closedform/internal/location"
)

// ErrNotFound is returned when a scene or solve id is unknown.
var ErrNotFound = errors.New("record not found")

// SceneRecord is a stored location parametrization.
type SceneRecord struct {
	SceneID     string
	Kind        location.Kind
	Height      int
	Width       int
	Points      int
	Description string
	Snapshot    []byte
	CreatedAtNs int64
}

// Parametrization restores the stored parametrization.
func (r *SceneRecord) Parametrization() (location.Parametrization, error) {
	return location.Restore(r.Snapshot)
}

// InsertScene stores rec. If rec.SceneID is empty, a new UUID is generated.
func (db *DB) InsertScene(rec *SceneRecord) error {
	if len(rec.Snapshot) == 0 {
		return fmt.Errorf("insert scene: empty snapshot")
	}
	if rec.SceneID == "" {
		rec.SceneID = uuid.New().String()
	}
	if rec.CreatedAtNs == 0 {
		rec.CreatedAtNs = db.clock.Now().UnixNano()
	}

	_, err := db.Exec(`
		INSERT INTO scenes (
			scene_id, kind, height, width, points, description, snapshot, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SceneID, string(rec.Kind), rec.Height, rec.Width, rec.Points,
		nullString(rec.Description), rec.Snapshot, rec.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert scene: %w", err)
	}
	return nil
}

// SaveParametrization serializes p and stores it as a new scene.
func (db *DB) SaveParametrization(p location.Parametrization, description string) (*SceneRecord, error) {
	blob, err := p.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", p.Kind(), err)
	}
	rec := &SceneRecord{
		Kind:        p.Kind(),
		Height:      p.Mask().Height,
		Width:       p.Mask().Width,
		Points:      p.PointCount(),
		Description: description,
		Snapshot:    blob,
	}
	if err := db.InsertScene(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

const sceneColumns = `scene_id, kind, height, width, points, description, snapshot, created_at_ns`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanScene(row rowScanner) (*SceneRecord, error) {
	var rec SceneRecord
	var kind string
	var description sql.NullString
	if err := row.Scan(&rec.SceneID, &kind, &rec.Height, &rec.Width, &rec.Points,
		&description, &rec.Snapshot, &rec.CreatedAtNs); err != nil {
		return nil, err
	}
	rec.Kind = location.Kind(kind)
	if description.Valid {
		rec.Description = description.String
	}
	return &rec, nil
}

// GetScene retrieves a scene by ID.
func (db *DB) GetScene(sceneID string) (*SceneRecord, error) {
	row := db.QueryRow(`SELECT `+sceneColumns+` FROM scenes WHERE scene_id = ?`, sceneID)
	rec, err := scanScene(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scene %s: %w", sceneID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get scene: %w", err)
	}
	return rec, nil
}

// ListScenes returns all scenes, oldest first.
func (db *DB) ListScenes() ([]*SceneRecord, error) {
	rows, err := db.Query(`SELECT ` + sceneColumns + ` FROM scenes ORDER BY created_at_ns, scene_id`)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	var out []*SceneRecord
	for rows.Next() {
		rec, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteScene removes a scene and, through the foreign key, its solves.
func (db *DB) DeleteScene(sceneID string) error {
	res, err := db.Exec(`DELETE FROM scenes WHERE scene_id = ?`, sceneID)
	if err != nil {
		return fmt.Errorf("delete scene: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("scene %s: %w", sceneID, ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/gradeboard/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'grader',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS grade_sessions (
		id TEXT PRIMARY KEY,
		assignment_id TEXT NOT NULL,
		students INTEGER NOT NULL DEFAULT 0,
		exported TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveGradeSession persists one grading run with its exported JSON.
// Saving the same board id again replaces the stored document.
func (s *Store) SaveGradeSession(gs model.GradeSession) error {
	_, err := s.db.Exec(
		`INSERT INTO grade_sessions (id, assignment_id, students, exported, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET students = ?, exported = ?`,
		gs.ID, gs.AssignmentID, gs.Students, gs.Exported, time.Now(),
		gs.Students, gs.Exported,
	)
	return err
}

// GetGradeSession returns a saved grading run by id, or nil if absent.
func (s *Store) GetGradeSession(id string) (*model.GradeSession, error) {
	var gs model.GradeSession
	err := s.db.QueryRow(
		`SELECT id, assignment_id, students, exported, created_at FROM grade_sessions WHERE id = ?`, id,
	).Scan(&gs.ID, &gs.AssignmentID, &gs.Students, &gs.Exported, &gs.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &gs, nil
}

// ListGradeSessions returns all saved grading runs, newest first.
func (s *Store) ListGradeSessions() ([]model.GradeSession, error) {
	rows, err := s.db.Query(
		`SELECT id, assignment_id, students, exported, created_at FROM grade_sessions ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.GradeSession
	for rows.Next() {
		var gs model.GradeSession
		if err := rows.Scan(&gs.ID, &gs.AssignmentID, &gs.Students, &gs.Exported, &gs.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, gs)
	}
	return sessions, rows.Err()
}

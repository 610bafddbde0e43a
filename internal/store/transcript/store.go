package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"concord/internal/consensus"
)

// 中文说明：
// 模型交互原文存档（原生 database/sql + SQLite），方便后续排查模型输出质量。

type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Entry 单条交互记录。
type Entry struct {
	ID        int64   `json:"id"`
	RunID     string  `json:"run_id"`
	Round     int     `json:"round"`
	ModelID   string  `json:"model_id"`
	RawOutput string  `json:"raw_output"`
	Price     float64 `json:"price"`
	Error     string  `json:"error,omitempty"`
	CreatedAt int64   `json:"created_at"`
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("transcript store: 数据库路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS appraisal_transcripts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			model_id TEXT NOT NULL,
			raw_output TEXT,
			price REAL,
			error TEXT,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_appraisal_transcripts_run ON appraisal_transcripts(run_id, round, model_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("transcript schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// RecordRun 实现 consensus.Recorder，把整个 run 的交互记录写进一个事务。
func (s *Store) RecordRun(ctx context.Context, run consensus.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("transcript store 未初始化")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO appraisal_transcripts
		(run_id, round, model_id, raw_output, price, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, entry := range run.Transcript {
		if _, err := stmt.ExecContext(ctx, run.ID, entry.Round, entry.ModelID, entry.RawText, entry.Price, entry.Err, now); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ListByRun 按轮次返回某次评估的全部交互记录。
func (s *Store) ListByRun(ctx context.Context, runID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("transcript store 未初始化")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, run_id, round, model_id, raw_output, price, error, created_at
		FROM appraisal_transcripts WHERE run_id = ? ORDER BY round ASC, model_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RunID, &e.Round, &e.ModelID, &e.RawOutput, &e.Price, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

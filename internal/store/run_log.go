package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// 运行类别
const (
	KindUpdate = "update"
	KindCheck  = "check"
)

// 运行状态
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrRunNotFound 运行记录不存在
var ErrRunNotFound = errors.New("run not found")

// RunCounts 一次运行的统计
type RunCounts struct {
	Documents int `json:"documents"`
	Mentions  int `json:"mentions"`
	Codes     int `json:"codes"`
	Matched   int `json:"matched"`
	Failed    int `json:"failed"`
	DateEmpty int `json:"dateEmpty"`
	Errors    int `json:"errors"`
}

// RunLog 运行日志
type RunLog struct {
	ID          int64      `json:"id"`
	RunID       string     `json:"runId"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	Counts      RunCounts  `json:"counts"`
	Message     string     `json:"message"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// CodeOutcome 单个编号的处理结果
type CodeOutcome struct {
	Code     string `json:"code"`
	Batch    string `json:"batch"`
	Outcome  string `json:"outcome"`
	Hits     int    `json:"hits"`
	Attempts int    `json:"attempts"`
	Message  string `json:"message"`
}

// CreateRunLog 创建运行日志，返回 run_log_id
func (s *Store) CreateRunLog(kind, runID string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO run_logs (run_id, kind, status)
		VALUES (?, ?, 'running')
	`, runID, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to create run log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run log id: %w", err)
	}
	return id, nil
}

// FinishRunLog 完成运行日志更新
func (s *Store) FinishRunLog(id int64, c RunCounts, status, message string) error {
	_, err := s.db.Exec(`
		UPDATE run_logs SET
			documents = ?,
			mentions = ?,
			codes = ?,
			matched = ?,
			failed = ?,
			date_empty = ?,
			errors = ?,
			status = ?,
			message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, c.Documents, c.Mentions, c.Codes, c.Matched, c.Failed, c.DateEmpty, c.Errors, status, message, id)
	if err != nil {
		return fmt.Errorf("failed to update run log: %w", err)
	}
	return nil
}

// InsertCodeOutcome 记录一个编号的处理结果
func (s *Store) InsertCodeOutcome(runLogID int64, o CodeOutcome) error {
	_, err := s.db.Exec(`
		INSERT INTO run_codes (run_log_id, code, batch, outcome, hits, attempts, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runLogID, o.Code, o.Batch, o.Outcome, o.Hits, o.Attempts, o.Message)
	if err != nil {
		return fmt.Errorf("failed to insert run code: %w", err)
	}
	return nil
}

// GetRunLog 按 run_id 查询运行日志
func (s *Store) GetRunLog(runID string) (*RunLog, error) {
	row := s.db.QueryRow(selectRunLog+` WHERE run_id = ?`, runID)
	rl, err := scanRunLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return rl, err
}

// RecentRuns 最近的运行日志（新的在前）
func (s *Store) RecentRuns(limit int) ([]RunLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(selectRunLog+` ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run logs: %w", err)
	}
	defer rows.Close()

	var out []RunLog
	for rows.Next() {
		rl, err := scanRunLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rl)
	}
	return out, rows.Err()
}

// CodeOutcomes 某次运行的逐个编号结果（处理顺序）
func (s *Store) CodeOutcomes(runLogID int64) ([]CodeOutcome, error) {
	rows, err := s.db.Query(`
		SELECT code, batch, outcome, hits, attempts, message
		FROM run_codes WHERE run_log_id = ? ORDER BY id
	`, runLogID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run codes: %w", err)
	}
	defer rows.Close()

	var out []CodeOutcome
	for rows.Next() {
		var o CodeOutcome
		if err := rows.Scan(&o.Code, &o.Batch, &o.Outcome, &o.Hits, &o.Attempts, &o.Message); err != nil {
			return nil, fmt.Errorf("failed to scan run code: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

const selectRunLog = `
	SELECT id, run_id, kind, status,
		documents, mentions, codes, matched, failed, date_empty, errors,
		message, started_at, completed_at
	FROM run_logs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRunLog(sc scanner) (*RunLog, error) {
	var (
		rl        RunLog
		completed sql.NullTime
	)
	err := sc.Scan(
		&rl.ID, &rl.RunID, &rl.Kind, &rl.Status,
		&rl.Counts.Documents, &rl.Counts.Mentions, &rl.Counts.Codes,
		&rl.Counts.Matched, &rl.Counts.Failed, &rl.Counts.DateEmpty, &rl.Counts.Errors,
		&rl.Message, &rl.StartedAt, &completed,
	)
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		t := completed.Time
		rl.CompletedAt = &t
	}
	return &rl, nil
}

package store

import (
	"database/sql"
	"encoding/json"

	_ "github.com/glebarez/go-sqlite"
	"github.com/rahul/autops/internal/agent"
)

// AuditStore keeps the historical record of classified queries, plan runs
// and reflections. It is a write-mostly trail for offline analysis; nothing
// in the request path reads from it.
type AuditStore struct {
	DB *sql.DB
}

func NewAuditStore(dbPath string) (*AuditStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS queries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			channel TEXT,
			query TEXT,
			intent TEXT,
			confidence REAL,
			model TEXT,
			processing_ms REAL,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS plan_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			channel TEXT,
			intent TEXT,
			original_query TEXT,
			status TEXT,
			failed_step TEXT,
			steps_json TEXT,
			duration_ms REAL,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS reflections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			channel TEXT,
			intent TEXT,
			overall_success INTEGER,
			confidence REAL,
			reflection_json TEXT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, q := range queries {
		_, err = db.Exec(q)
		if err != nil {
			return nil, err
		}
	}

	return &AuditStore{DB: db}, nil
}

func (s *AuditStore) RecordQuery(channel string, query *agent.StructuredQuery) error {
	q := `INSERT INTO queries (channel, query, intent, confidence, model, processing_ms) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.DB.Exec(q, channel, query.OriginalQuery, query.Intent, query.Confidence, query.ModelUsed, query.ProcessingMS)
	return err
}

func (s *AuditStore) RecordPlanRun(channel string, plan *agent.Plan, failedStep *agent.Step, durationMS float64) error {
	status := "completed"
	failedName := ""
	if failedStep != nil {
		status = "failed"
		failedName = failedStep.Executor + "/" + failedStep.Action
	}

	stepsJSON, err := json.Marshal(plan.Steps)
	if err != nil {
		return err
	}

	q := `INSERT INTO plan_runs (channel, intent, original_query, status, failed_step, steps_json, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.DB.Exec(q, channel, plan.Intent, plan.OriginalQuery, status, failedName, string(stepsJSON), durationMS)
	return err
}

func (s *AuditStore) RecordReflection(channel string, reflection *agent.WorkflowReflection) error {
	reflectionJSON, err := json.Marshal(reflection)
	if err != nil {
		return err
	}

	success := 0
	if reflection.OverallSuccess {
		success = 1
	}

	q := `INSERT INTO reflections (channel, intent, overall_success, confidence, reflection_json) VALUES (?, ?, ?, ?, ?)`
	_, err = s.DB.Exec(q, channel, reflection.Intent, success, reflection.ConfidenceScore, string(reflectionJSON))
	return err
}

// RecentQueries returns the latest classified queries, newest first. Used
// by offline analysis scripts, not the request path.
func (s *AuditStore) RecentQueries(limit int) ([]QueryRecord, error) {
	rows, err := s.DB.Query(
		`SELECT channel, query, intent, confidence FROM queries ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []QueryRecord
	for rows.Next() {
		var r QueryRecord
		if err := rows.Scan(&r.Channel, &r.Query, &r.Intent, &r.Confidence); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

type QueryRecord struct {
	Channel    string
	Query      string
	Intent     string
	Confidence float64
}

func (s *AuditStore) Close() error {
	return s.DB.Close()
}

// Package mysql provides a MySQL-backed ActionLog for durable experiment
// logs and post-hoc analytics replay. The table is append-only: rows are
// inserted once and never updated, and the auto-increment seq column defines
// the total append order the protocol and analytics depend on.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/openagora/agora/actionlog"
	"github.com/openagora/agora/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS actions (
    seq          BIGINT       NOT NULL AUTO_INCREMENT,
    id           VARCHAR(64)  NOT NULL,
    agent_id     VARCHAR(128) NOT NULL,
    name         VARCHAR(64)  NOT NULL,
    created_at   DATETIME(6)  NOT NULL,
    request_json JSON         NOT NULL,
    result_json  JSON         NOT NULL,
    PRIMARY KEY (seq),
    UNIQUE KEY uq_actions_id (id),
    KEY idx_actions_agent (agent_id),
    KEY idx_actions_name (name)
)`

// Store is a durable ActionLog on top of database/sql with the MySQL driver.
type Store struct {
	db *sql.DB
}

// Open connects to MySQL using the given DSN and ensures the actions table
// exists. The DSN must enable parseTime so DATETIME columns scan into
// time.Time.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql action log: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql action log: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing connection pool without running migrations.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create actions table: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Append implements core.ActionLog.
func (s *Store) Append(ctx context.Context, a core.Action) (core.AppendResult, error) {
	requestJSON, err := json.Marshal(a.Request)
	if err != nil {
		return core.AppendResult{}, fmt.Errorf("encode action request: %w", err)
	}
	resultJSON, err := json.Marshal(a.Result)
	if err != nil {
		return core.AppendResult{}, fmt.Errorf("encode action result: %w", err)
	}

	query := `INSERT INTO actions (id, agent_id, name, created_at, request_json, result_json) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, a.ID, a.AgentID, a.Request.Name, a.CreatedAt.UTC(), requestJSON, resultJSON)
	if err != nil {
		return core.AppendResult{}, fmt.Errorf("append action %s: %w", a.ID, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return core.AppendResult{}, fmt.Errorf("append action %s: %w", a.ID, err)
	}
	return core.AppendResult{Seq: seq}, nil
}

// Query implements core.ActionLog. Indexed fields (sent-direction agent id,
// action kind, seq cursor) are pushed into SQL; message-level filters are
// applied in Go via actionlog.Matches after decoding.
func (s *Store) Query(ctx context.Context, f core.Filter) ([]core.Record, error) {
	query := `SELECT seq, id, agent_id, created_at, request_json, result_json FROM actions`
	var (
		where []string
		args  []any
	)
	if f.AgentID != "" && f.Direction != core.DirectionReceived {
		where = append(where, "agent_id = ?")
		args = append(args, f.AgentID)
	}
	if f.ActionKind != "" {
		where = append(where, "name = ?")
		args = append(args, f.ActionKind)
	}
	if f.AfterSeq > 0 {
		where = append(where, "seq > ?")
		args = append(args, f.AfterSeq)
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if !actionlog.Matches(rec, f) {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	return out, nil
}

func scanRecord(rows *sql.Rows) (core.Record, error) {
	var (
		rec         core.Record
		createdAt   time.Time
		requestJSON []byte
		resultJSON  []byte
	)
	if err := rows.Scan(&rec.Seq, &rec.Action.ID, &rec.Action.AgentID, &createdAt, &requestJSON, &resultJSON); err != nil {
		return core.Record{}, fmt.Errorf("scan action row: %w", err)
	}
	rec.Action.CreatedAt = createdAt.UTC()
	if err := json.Unmarshal(requestJSON, &rec.Action.Request); err != nil {
		return core.Record{}, fmt.Errorf("decode request of action %s: %w", rec.Action.ID, err)
	}
	if err := json.Unmarshal(resultJSON, &rec.Action.Result); err != nil {
		return core.Record{}, fmt.Errorf("decode result of action %s: %w", rec.Action.ID, err)
	}
	return rec, nil
}

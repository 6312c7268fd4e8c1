// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package feedback

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const feedbackSchema = `CREATE TABLE IF NOT EXISTS feedback (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	response   TEXT NOT NULL,
	helpful    BOOLEAN NOT NULL,
	comment    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// pgStore PostgreSQL 实现，多实例部署共享一张 feedback 表
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPostgres 创建基于 PostgreSQL 的反馈存储并确保表存在
func NewPostgres(ctx context.Context, dsn string) (Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, feedbackSchema); err != nil {
		pool.Close()
		return nil, err
	}
	return &pgStore{pool: pool}, nil
}

func (s *pgStore) Save(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = "fb-" + uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO feedback (id, query, response, helpful, comment, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Query, e.Response, e.Helpful, e.Comment, e.CreatedAt)
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *pgStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, query, response, helpful, comment, created_at FROM feedback ORDER BY created_at DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Query, &e.Response, &e.Helpful, &e.Comment, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *pgStore) Close() {
	s.pool.Close()
}

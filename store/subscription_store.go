/*
 * Copyright 2025 The SpitBreak Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package store persists subscription configurations in a SQL database so a
// broker can restore its subscriptions across restarts. Only the expression
// source text is stored; restoring recompiles it:
//
//	configs, err := subscriptionStore.LoadAll(ctx)
//	if err == nil {
//		err = broker.Restore(configs, consumerFor)
//	}
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/spitbreak/qpid/api/types"
	"github.com/spitbreak/qpid/utils/json"
	"github.com/spitbreak/qpid/utils/str"
)

// DefaultTable is the subscription table name when none is configured.
const DefaultTable = "qpid_subscriptions"

// Config configures the database connection of a SubscriptionStore.
type Config struct {
	// DriverName is the database driver, mysql or postgres.
	DriverName string
	// Dsn is the connection string, per sql.Open.
	Dsn string
	// PoolSize caps open connections, 0 keeps the driver default.
	PoolSize int
	// Table overrides the subscription table name.
	Table string
}

// SubscriptionStore reads and writes subscription configurations. The
// connection is opened lazily on first use and shared afterwards.
type SubscriptionStore struct {
	config Config
	mu     sync.Mutex
	db     *sql.DB
}

// NewSubscriptionStore validates the configuration and returns a store.
// The database is not contacted until the first operation.
func NewSubscriptionStore(config Config) (*SubscriptionStore, error) {
	if config.Dsn == "" {
		return nil, errors.New("dsn can not be empty")
	}
	if config.DriverName == "" {
		config.DriverName = "mysql"
	}
	if !str.Contains([]string{"mysql", "postgres"}, config.DriverName) {
		return nil, fmt.Errorf("unsupported driver: %s", config.DriverName)
	}
	if config.Table == "" {
		config.Table = DefaultTable
	}
	return &SubscriptionStore{config: config}, nil
}

// client opens the shared connection on first use.
func (s *SubscriptionStore) client() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	db, err := sql.Open(s.config.DriverName, s.config.Dsn)
	if err != nil {
		return nil, err
	}
	if s.config.PoolSize > 0 {
		db.SetMaxOpenConns(s.config.PoolSize)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.db = db
	return db, nil
}

// EnsureSchema creates the subscription table if it does not exist.
func (s *SubscriptionStore) EnsureSchema(ctx context.Context) error {
	db, err := s.client()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, createTableStatement(s.config.Table))
	return err
}

// Save inserts the subscription configuration, replacing an existing row
// with the same id.
func (s *SubscriptionStore) Save(ctx context.Context, config types.SubscriptionConfig) error {
	if config.Id == "" {
		return errors.New("subscription id can not be empty")
	}
	db, err := s.client()
	if err != nil {
		return err
	}
	var configuration []byte
	if len(config.Configuration) > 0 {
		if configuration, err = json.Marshal(config.Configuration); err != nil {
			return err
		}
	}
	_, err = db.ExecContext(ctx, upsertStatement(s.config.DriverName, s.config.Table),
		config.Id, config.Destination, config.Dialect, config.Expression,
		config.DebugMode, string(configuration), time.Now().UnixMilli())
	return err
}

// Delete removes the subscription row with the given id. Deleting an
// unknown id is not an error.
func (s *SubscriptionStore) Delete(ctx context.Context, id string) error {
	db, err := s.client()
	if err != nil {
		return err
	}
	stmt := str.ConvertDollarPlaceholder(
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.config.Table), s.config.DriverName)
	_, err = db.ExecContext(ctx, stmt, id)
	return err
}

// LoadAll returns every stored subscription configuration, ordered by id.
func (s *SubscriptionStore) LoadAll(ctx context.Context) ([]types.SubscriptionConfig, error) {
	db, err := s.client()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		"SELECT id, destination, dialect, expression, debug_mode, configuration FROM %s ORDER BY id",
		s.config.Table))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var configs []types.SubscriptionConfig
	for rows.Next() {
		var config types.SubscriptionConfig
		var configuration string
		if err = rows.Scan(&config.Id, &config.Destination, &config.Dialect,
			&config.Expression, &config.DebugMode, &configuration); err != nil {
			return nil, err
		}
		if configuration != "" {
			if err = json.Unmarshal([]byte(configuration), &config.Configuration); err != nil {
				return nil, fmt.Errorf("subscription %s: configuration: %w", config.Id, err)
			}
		}
		configs = append(configs, config)
	}
	return configs, rows.Err()
}

// Close closes the shared connection if one was opened.
func (s *SubscriptionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func createTableStatement(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id VARCHAR(64) PRIMARY KEY,
	destination VARCHAR(512) NOT NULL,
	dialect VARCHAR(64) NOT NULL,
	expression TEXT,
	debug_mode BOOLEAN NOT NULL,
	configuration TEXT,
	updated_at BIGINT NOT NULL
)`, table)
}

func upsertStatement(driverName, table string) string {
	columns := "id, destination, dialect, expression, debug_mode, configuration, updated_at"
	if driverName == "postgres" {
		return str.ConvertDollarPlaceholder(fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?) "+
				"ON CONFLICT (id) DO UPDATE SET destination = EXCLUDED.destination, "+
				"dialect = EXCLUDED.dialect, expression = EXCLUDED.expression, "+
				"debug_mode = EXCLUDED.debug_mode, configuration = EXCLUDED.configuration, "+
				"updated_at = EXCLUDED.updated_at",
			table, columns), driverName)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?) "+
			"ON DUPLICATE KEY UPDATE destination = VALUES(destination), "+
			"dialect = VALUES(dialect), expression = VALUES(expression), "+
			"debug_mode = VALUES(debug_mode), configuration = VALUES(configuration), "+
			"updated_at = VALUES(updated_at)",
		table, columns)
}

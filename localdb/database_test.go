// Copyright (c) 2014-2026 Netius Authors.
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
package localdb

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetMocks() {
	ensureFilePresent = defaultEnsureFilePresent
	sqlxOpen = sqlx.Open
	gooseSetDialect = goose.SetDialect
	gooseUp = func(db *sql.DB, dir string) error { return goose.Up(db, dir) }
}

func TestNewCreatesSchemaAndLimitsConnections(t *testing.T) {
	resetMocks()
	require := require.New(t)

	source := filepath.Join(t.TempDir(), "test.db")
	db, err := New(Config{Source: source})
	require.NoError(err)
	defer db.Close()

	require.NoError(db.Ping())
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)

	var tables []string
	require.NoError(db.Select(&tables, `
		SELECT name FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'goose_%'
		ORDER BY name`))
	assert.Contains(t, tables, "piece_verification")
	assert.Contains(t, tables, "ftp_session")
}

func TestNewFailsOnInvalidSourcePath(t *testing.T) {
	resetMocks()
	require := require.New(t)

	tmpfile := filepath.Join(t.TempDir(), "file")
	require.NoError(os.WriteFile(tmpfile, []byte("x"), 0644))
	invalidPath := filepath.Join(tmpfile, "db.sqlite")

	db, err := New(Config{Source: invalidPath})
	require.Error(err)
	require.Nil(db)
	require.Contains(err.Error(), "ensure db source present")
}

func TestNewWrapsSqlxOpenError(t *testing.T) {
	resetMocks()
	defer resetMocks()
	require := require.New(t)

	ensureFilePresent = func(string, os.FileMode) error { return nil }
	sqlxOpen = func(driverName, dataSourceName string) (*sqlx.DB, error) {
		return nil, errors.New("mock open error")
	}

	db, err := New(Config{Source: "test.db"})
	require.Error(err)
	require.Nil(db)
	require.Contains(err.Error(), "open sqlite3")
}

func TestNewWrapsMigrationError(t *testing.T) {
	resetMocks()
	defer resetMocks()
	require := require.New(t)

	source := filepath.Join(t.TempDir(), "test.db")
	gooseUp = func(db *sql.DB, dir string) error { return errors.New("mock migration error") }

	db, err := New(Config{Source: source})
	require.Error(err)
	require.Nil(db)
	require.Contains(err.Error(), "perform db migration")
}

func TestRecordPieceVerificationAndFTPSession(t *testing.T) {
	resetMocks()
	require := require.New(t)

	source := filepath.Join(t.TempDir(), "test.db")
	db, err := New(Config{Source: source})
	require.NoError(err)
	defer db.Close()

	require.NoError(RecordPieceVerification(db, "abc123", 0, true))
	require.NoError(RecordFTPSession(db, "anonymous", "127.0.0.1", "RETR", "greeting.txt"))

	var pieceCount, sessionCount int
	require.NoError(db.Get(&pieceCount, `SELECT COUNT(*) FROM piece_verification`))
	require.NoError(db.Get(&sessionCount, `SELECT COUNT(*) FROM ftp_session`))
	require.Equal(1, pieceCount)
	require.Equal(1, sessionCount)
}

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

// Package localdb is an embedded SQLite audit trail: completed/failed
// torrent piece verifications and FTP command sessions are appended here
// so a crashed-and-restarted daemon can tell what it had already done.
// Writes happen off the reactor goroutine, since SQLite I/O is
// synchronous, per the concurrency model's one exception to "the reactor
// thread owns all state".
package localdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose"

	_ "github.com/mattn/go-sqlite3" // SQL driver.
	_ "github.com/zdzhjx/netius/localdb/migrations"
)

// Config configures the local database's storage location.
type Config struct {
	Source string `yaml:"source"`
}

// indirections for test mocking, following the same pattern the
// migration runner itself uses to fake failures.
var (
	ensureFilePresent = defaultEnsureFilePresent
	sqlxOpen          = sqlx.Open
	gooseSetDialect   = goose.SetDialect
	gooseUp           = func(db *sql.DB, dir string) error { return goose.Up(db, dir) }
)

func defaultEnsureFilePresent(path string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0775); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, perm)
	if err != nil {
		return err
	}
	return f.Close()
}

// New opens (creating if necessary) the embedded SQLite database at
// config.Source and runs any pending migrations.
func New(config Config) (*sqlx.DB, error) {
	if err := ensureFilePresent(config.Source, 0775); err != nil {
		return nil, fmt.Errorf("ensure db source present: %s", err)
	}
	db, err := sqlxOpen("sqlite3", config.Source)
	if err != nil {
		return nil, fmt.Errorf("open sqlite3: %s", err)
	}
	// SQLite errors on more than one connection touching a table at once.
	db.SetMaxOpenConns(1)
	if err := gooseSetDialect("sqlite3"); err != nil {
		return nil, fmt.Errorf("set dialect as sqlite3: %s", err)
	}
	if err := gooseUp(db.DB, "."); err != nil {
		return nil, fmt.Errorf("perform db migration: %s", err)
	}
	return db, nil
}

// RecordPieceVerification appends one piece verification outcome.
func RecordPieceVerification(db *sqlx.DB, infoHash string, pieceIndex int, success bool) error {
	_, err := db.Exec(
		`INSERT INTO piece_verification (info_hash, piece_index, success) VALUES (?, ?, ?)`,
		infoHash, pieceIndex, success)
	return err
}

// RecordFTPSession appends one executed FTP command.
func RecordFTPSession(db *sqlx.DB, username, remoteIP, command, argument string) error {
	_, err := db.Exec(
		`INSERT INTO ftp_session (username, remote_ip, command, argument) VALUES (?, ?, ?, ?)`,
		username, remoteIP, command, argument)
	return err
}

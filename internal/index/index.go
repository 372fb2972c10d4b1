// Package index keeps a SQLite record of completed conversions.
package index

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"
)

// Entry describes one conversion. Digest is the BLAKE3-256 of the raw
// (uncompressed) NBT.
type Entry struct {
	Source      string
	Output      string
	Format      string
	Compression string
	RawSize     int64
	FramedSize  int64
	Digest      string
	RecordedAt  string
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	DroppedTotal  uint64
}

type Index struct {
	db     *sql.DB
	logger *log.Logger

	ch   chan Entry
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

// Digest returns the hex BLAKE3-256 of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Open creates or opens the index at path. logger may be nil.
func Open(path string, logger *log.Logger) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Index{
		db:     db,
		logger: logger,
		ch:     make(chan Entry, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			digest TEXT NOT NULL,
			source TEXT NOT NULL,
			output TEXT NOT NULL,
			format TEXT NOT NULL,
			compression TEXT NOT NULL,
			raw_size INTEGER NOT NULL,
			framed_size INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_digest ON conversions(digest, id);`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_source ON conversions(source, id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close stops accepting entries, writes everything queued and closes the
// database.
func (s *Index) Close() error {
	if s == nil {
		return nil
	}
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Record queues e. It never blocks: when the writer falls behind the entry
// is dropped and counted.
func (s *Index) Record(e Entry) {
	if s == nil || s.closed.Load() {
		return
	}
	if e.RecordedAt == "" {
		e.RecordedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
		s.printf("index queue full; drop digest=%s", e.Digest)
	}
}

func (s *Index) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DroppedTotal:  s.dropped.Load(),
	}
}

// Lookup returns the most recent entry with the given digest, or
// sql.ErrNoRows.
func (s *Index) Lookup(ctx context.Context, digest string) (Entry, error) {
	if s == nil {
		return Entry{}, sql.ErrNoRows
	}
	var e Entry
	row := s.db.QueryRowContext(ctx, `SELECT source,output,format,compression,raw_size,framed_size,digest,recorded_at
		FROM conversions WHERE digest=? ORDER BY id DESC LIMIT 1`, digest)
	if err := row.Scan(&e.Source, &e.Output, &e.Format, &e.Compression, &e.RawSize, &e.FramedSize, &e.Digest, &e.RecordedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("lookup %s: %w", digest, err)
	}
	return e, nil
}

func (s *Index) printf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

func (s *Index) loop() {
	ctx := context.Background()

	insert, err := s.db.Prepare(`INSERT INTO conversions(digest,source,output,format,compression,raw_size,framed_size,recorded_at) VALUES(?,?,?,?,?,?,?,?)`)
	if err != nil {
		s.printf("index prepare: %v", err)
		for range s.ch {
			s.dropped.Add(1)
		}
		return
	}
	defer insert.Close()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = time.Second
	)

	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.printf("index commit: %v", err)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for e := range s.ch {
		if tx == nil {
			txx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				s.printf("index begin: %v", err)
				s.dropped.Add(1)
				time.Sleep(50 * time.Millisecond)
				continue
			}
			tx = txx
			opCount = 0
			lastCommit = time.Now()
		}
		if _, err := tx.Stmt(insert).Exec(e.Digest, e.Source, e.Output, e.Format, e.Compression, e.RawSize, e.FramedSize, e.RecordedAt); err != nil {
			s.printf("index insert digest=%s: %v", e.Digest, err)
			_ = tx.Rollback()
			tx = nil
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}

// Package datarecording stores flat records, such as per-point sweep
// results, in SQLite tables. Each table is created from a sample struct whose
// exported scalar fields become columns.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// ErrInvalidEntry is returned for entries that are not flat structs of
// scalar fields.
var ErrInvalidEntry = errors.New("entry must be a struct of scalar fields")

// Recorder buffers entries and writes them into tables in batches.
type Recorder interface {
	// CreateTable creates a table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry of the table's struct type.
	InsertData(tableName string, entry any) error

	// ListTables returns the names of the tables created by the recorder.
	ListTables() []string

	// Flush writes all buffered entries in one transaction.
	Flush() error

	// Close flushes and closes the database.
	Close() error
}

// New creates a SQLite database at path + ".sqlite3". An empty path picks a
// unique name. The recorder is flushed when the program exits through
// atexit.Exit.
func New(path string) (Recorder, error) {
	if path == "" {
		path = "pufsim_recording_" + xid.New().String()
	}

	filename := path + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	return newWriter(db), nil
}

// NewWithDB creates a recorder on an open database.
func NewWithDB(db *sql.DB) Recorder {
	return newWriter(db)
}

func newWriter(db *sql.DB) *sqliteWriter {
	w := &sqliteWriter{
		db:        db,
		batchSize: 10000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { _ = w.Flush() })

	return w
}

type table struct {
	structType reflect.Type
	entries    []any
}

type sqliteWriter struct {
	sync.Mutex

	db         *sql.DB
	tables     map[string]*table
	batchSize  int
	entryCount int
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkEntry(entry any) (reflect.Type, error) {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%T: %w", entry, ErrInvalidEntry)
	}

	if t.NumField() == 0 {
		return nil, fmt.Errorf("%T has no fields: %w", entry, ErrInvalidEntry)
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || !isAllowedKind(f.Type.Kind()) {
			return nil, fmt.Errorf("field %s of %T: %w",
				f.Name, entry, ErrInvalidEntry)
		}
	}

	return t, nil
}

func checkTableName(name string) error {
	if name == "" {
		return errors.New("empty table name")
	}

	for i, r := range name {
		ok := r == '_' ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(i > 0 && r >= '0' && r <= '9')
		if !ok {
			return fmt.Errorf("invalid table name %q", name)
		}
	}

	return nil
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) error {
	w.Lock()
	defer w.Unlock()

	if err := checkTableName(tableName); err != nil {
		return err
	}

	if _, exists := w.tables[tableName]; exists {
		return fmt.Errorf("table %s already exists", tableName)
	}

	t, err := checkEntry(sampleEntry)
	if err != nil {
		return err
	}

	columns := strings.Join(structs.Names(sampleEntry), ",\n\t")
	stmt := "CREATE TABLE " + tableName + " (\n\t" + columns + "\n);"

	if _, err := w.db.Exec(stmt); err != nil {
		return fmt.Errorf("creating table %s: %w", tableName, err)
	}

	w.tables[tableName] = &table{structType: t}

	return nil
}

func (w *sqliteWriter) InsertData(tableName string, entry any) error {
	w.Lock()
	defer w.Unlock()

	t, exists := w.tables[tableName]
	if !exists {
		return fmt.Errorf("table %s does not exist", tableName)
	}

	if reflect.TypeOf(entry) != t.structType {
		return fmt.Errorf("table %s holds %v, got %T: %w",
			tableName, t.structType, entry, ErrInvalidEntry)
	}

	t.entries = append(t.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		return w.flush()
	}

	return nil
}

func (w *sqliteWriter) ListTables() []string {
	w.Lock()
	defer w.Unlock()

	tables := make([]string, 0, len(w.tables))
	for name := range w.tables {
		tables = append(tables, name)
	}

	return tables
}

func (w *sqliteWriter) Flush() error {
	w.Lock()
	defer w.Unlock()

	return w.flush()
}

func (w *sqliteWriter) flush() error {
	if w.entryCount == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	for name, t := range w.tables {
		if len(t.entries) == 0 {
			continue
		}

		if err := insertAll(tx, name, t.entries); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	for _, t := range w.tables {
		t.entries = nil
	}

	w.entryCount = 0

	return nil
}

func insertAll(tx *sql.Tx, tableName string, entries []any) error {
	placeholders := make([]string, len(structs.Names(entries[0])))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	stmt, err := tx.Prepare("INSERT INTO " + tableName +
		" VALUES (" + strings.Join(placeholders, ", ") + ")")
	if err != nil {
		return fmt.Errorf("preparing insert into %s: %w", tableName, err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return fmt.Errorf("inserting into %s: %w", tableName, err)
		}
	}

	return nil
}

func (w *sqliteWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}

	return w.db.Close()
}

// Package datarecording persists simulation traces into SQLite databases.
// Tables are derived from flat Go structs: one column per field, one row
// per inserted entry. Inserts are buffered and flushed in batches.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"

	// Registers the SQLite driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that records rows of trace data.
type DataRecorder interface {
	// CreateTable creates a table whose columns mirror the fields of the
	// sample entry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers one entry of the table's row type.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all created tables.
	ListTables() []string

	// Flush writes all buffered entries to the database.
	Flush()
}

// New creates a DataRecorder writing to a new SQLite database at the given
// path (without the .sqlite3 suffix). An empty path generates a unique
// name. Buffered data is flushed at exit.
func New(path string) DataRecorder {
	w := &sqliteWriter{
		dbName:    path,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	w.open()

	atexit.Register(func() { w.Flush() })

	return w
}

// NewWithDB creates a DataRecorder on an already-open database connection.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		db:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

type table struct {
	rowType reflect.Type
	entries []any
}

type sqliteWriter struct {
	db *sql.DB

	dbName     string
	tables     map[string]*table
	batchSize  int
	entryCount int
}

func (w *sqliteWriter) open() {
	if w.dbName == "" {
		w.dbName = "ulx3s_trace_" + xid.New().String()
	}

	filename := w.dbName + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	w.db = db
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	mustBeFlatStruct(sampleEntry)

	fields := strings.Join(structs.Names(sampleEntry), ", \n\t")
	w.mustExecute(
		"CREATE TABLE " + tableName + " (\n\t" + fields + "\n);")

	w.tables[tableName] = &table{
		rowType: reflect.TypeOf(sampleEntry),
	}
}

func (w *sqliteWriter) InsertData(tableName string, entry any) {
	t, exists := w.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.rowType {
		panic(fmt.Sprintf("entry type does not match table %s", tableName))
	}

	t.entries = append(t.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		w.Flush()
	}
}

func (w *sqliteWriter) ListTables() []string {
	names := make([]string, 0, len(w.tables))
	for name := range w.tables {
		names = append(names, name)
	}

	return names
}

func (w *sqliteWriter) Flush() {
	if w.entryCount == 0 {
		return
	}

	w.mustExecute("BEGIN TRANSACTION")
	defer w.mustExecute("COMMIT TRANSACTION")

	for tableName, t := range w.tables {
		if len(t.entries) == 0 {
			continue
		}

		w.flushTable(tableName, t)
	}

	w.entryCount = 0
}

func (w *sqliteWriter) flushTable(tableName string, t *table) {
	stmt := w.prepareInsert(tableName, t.entries[0])
	defer stmt.Close()

	for _, entry := range t.entries {
		value := reflect.ValueOf(entry)

		row := make([]any, 0, value.NumField())
		for i := 0; i < value.NumField(); i++ {
			row = append(row, value.Field(i).Interface())
		}

		if _, err := stmt.Exec(row...); err != nil {
			panic(err)
		}
	}

	t.entries = nil
}

func (w *sqliteWriter) prepareInsert(tableName string, entry any) *sql.Stmt {
	placeholders := structs.Names(entry)
	for i := range placeholders {
		placeholders[i] = "?"
	}

	stmt, err := w.db.Prepare("INSERT INTO " + tableName +
		" VALUES (" + strings.Join(placeholders, ", ") + ")")
	if err != nil {
		panic(err)
	}

	return stmt
}

func (w *sqliteWriter) mustExecute(query string) sql.Result {
	res, err := w.db.Exec(query)
	if err != nil {
		fmt.Printf("Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}

func mustBeFlatStruct(entry any) {
	t := reflect.TypeOf(entry)

	for i := 0; i < t.NumField(); i++ {
		switch t.Field(i).Type.Kind() {
		case reflect.Bool,
			reflect.Int, reflect.Int8, reflect.Int16,
			reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16,
			reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64,
			reflect.String:
			// Storable directly.
		default:
			panic(fmt.Sprintf(
				"field %s has a type that cannot be recorded",
				t.Field(i).Name))
		}
	}
}

package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
)

// QueryParams narrows a query.
type QueryParams struct {
	// Where is a WHERE clause without the keyword, for example
	// "Temperature > ?".
	Where string
	Args  []any

	// Limit caps the number of rows. Zero means no limit.
	Limit  int
	Offset int

	// OrderBy is an ORDER BY clause without the keywords.
	OrderBy string
}

// Reader reads tables back into structs.
type Reader struct {
	db      *sql.DB
	typeMap map[string]reflect.Type
}

// NewReader opens the SQLite database at filename.
func NewReader(filename string) (*Reader, error) {
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB creates a reader on an open database.
func NewReaderWithDB(db *sql.DB) *Reader {
	return &Reader{
		db:      db,
		typeMap: make(map[string]reflect.Type),
	}
}

// MapTable associates a table with the struct type of sampleEntry. A table
// must be mapped before it can be queried.
func (r *Reader) MapTable(tableName string, sampleEntry any) error {
	t, err := checkEntry(sampleEntry)
	if err != nil {
		return err
	}

	if err := checkTableName(tableName); err != nil {
		return err
	}

	r.typeMap[tableName] = t

	return nil
}

// Tables lists the tables stored in the database.
func (r *Reader) Tables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		names = append(names, name)
	}

	return names, rows.Err()
}

// Query returns pointers to structs of the mapped type, and the number of
// rows matching params.Where regardless of Limit.
func (r *Reader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	structType, ok := r.typeMap[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("no mapping found for table: %s", tableName)
	}

	query := "SELECT * FROM " + tableName
	countQuery := "SELECT COUNT(*) FROM " + tableName

	if params.Where != "" {
		query += " WHERE " + params.Where
		countQuery += " WHERE " + params.Where
	}

	if params.OrderBy != "" {
		query += " ORDER BY " + params.OrderBy
	}

	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", params.Limit)
		if params.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", params.Offset)
		}
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, params.Args...).
		Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, query, params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results, err := scanRows(rows, structType)
	if err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func scanRows(rows *sql.Rows, structType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fieldIndex := make(map[string]int)
	for i := 0; i < structType.NumField(); i++ {
		fieldIndex[structType.Field(i).Name] = i
	}

	var results []any

	for rows.Next() {
		ptr := reflect.New(structType)
		val := ptr.Elem()
		targets := make([]any, len(columns))

		for i, col := range columns {
			if idx, ok := fieldIndex[col]; ok {
				targets[i] = val.Field(idx).Addr().Interface()
			} else {
				var ignored any
				targets[i] = &ignored
			}
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, ptr.Interface())
	}

	return results, rows.Err()
}

// Close closes the database.
func (r *Reader) Close() error {
	return r.db.Close()
}

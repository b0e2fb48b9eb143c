package sq

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var ErrNoResults = fmt.Errorf("empty results")
var ErrAbortScan = fmt.Errorf("early exit scan")

func Exec(c Connection, q string, args ...any) (id, count int64, err error) {
	return ExecContext(context.Background(), c, q, args...)
}

func ExecContext(ctx context.Context, c Connection, q string, args ...any) (id, count int64, err error) {
	result, err := c.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, 0, err
	}
	id, idErr := result.LastInsertId()
	count, countErr := result.RowsAffected()
	return id, count, errors.Join(idErr, countErr)
}

func Query[T any](c Connection, q string, args ...any) (vs []T, err error) {
	return QueryContext[T](context.Background(), c, q, args...)
}

func QueryContext[T any](ctx context.Context, c Connection, q string, args ...any) (vs []T, err error) {
	err = EachContext(ctx, c, q, func(v T) error {
		vs = append(vs, v)
		return nil
	}, args...)
	return vs, err
}

func QueryOne[T any](c Connection, q string, args ...any) (v T, err error) {
	return QueryOneContext[T](context.Background(), c, q, args...)
}

func QueryOneContext[T any](ctx context.Context, c Connection, q string, args ...any) (v T, err error) {
	noResultsErr := ErrNoResults
	err = EachContext(ctx, c, q, func(_v T) error {
		v, noResultsErr = _v, nil
		return ErrAbortScan
	}, args...)
	if err != nil {
		return v, err
	}
	return v, noResultsErr
}

func Each[T any](c Connection, q string, f func(T) error, args ...any) error {
	return EachContext(context.Background(), c, q, f, args...)
}

// EachContext calls f for every row. Struct types are scanned by column name,
// everything else must be a single column.
func EachContext[T any](ctx context.Context, c Connection, q string, f func(T) error, args ...any) error {
	rows, err := c.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	if reflect.TypeOf(*new(T)).Kind() == reflect.Struct {
		return Scan(rows, f)
	}
	return ScanVal(rows, f)
}

func Scan[T any](rows *sql.Rows, f func(T) error) error {
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("column types: %w", err)
	}
	t := reflect.TypeOf(*new(T))
	fields := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		fields[normalizedCol(t.Field(i).Name)] = i
	}
	idxs, ptrs := make([]int, len(cols)), make([]any, len(cols))
	for i, c := range cols {
		if fi, ok := fields[normalizedCol(c)]; ok {
			idxs[i], ptrs[i] = fi, reflect.New(reflect.PointerTo(t.Field(fi).Type)).Interface()
		} else {
			idxs[i], ptrs[i] = -1, new(any)
		}
	}
	for rows.Next() {
		v := *new(T)
		rv := reflect.ValueOf(&v).Elem()
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		for i, fi := range idxs {
			if ptr := reflect.ValueOf(ptrs[i]); fi != -1 && !ptr.Elem().IsNil() {
				rv.Field(fi).Set(ptr.Elem().Elem())
			}
		}
		if err := f(v); errors.Is(err, ErrAbortScan) {
			break
		} else if err != nil {
			return err
		}
	}
	return rows.Err()
}

func ScanVal[T any](rows *sql.Rows, f func(T) error) error {
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to get columns: %w", err)
	} else if len(cols) != 1 {
		return fmt.Errorf("must select a single col (%v)", cols)
	}
	for rows.Next() {
		nv := &sql.Null[T]{}
		if err := rows.Scan(nv); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		if err := f(nv.V); errors.Is(err, ErrAbortScan) {
			return nil
		} else if err != nil {
			return err
		}
	}
	return rows.Err()
}

func normalizedCol(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// QueryFirstColumn runs query on a dedicated connection and returns the
// first column of the first row. A missing row or a NULL value yields an
// invalid NullString and no error. The connection goes back to the pool on
// every path.
func (db *DB) QueryFirstColumn(ctx context.Context, query string, args ...any) (sql.NullString, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return sql.NullString{}, err
	}
	defer rows.Close()

	return firstColumn(rows)
}

// firstColumn scans the first row of rows but keeps only column zero.
func firstColumn(rows *sql.Rows) (sql.NullString, error) {
	if !rows.Next() {
		return sql.NullString{}, rows.Err()
	}

	cols, err := rows.Columns()
	if err != nil {
		return sql.NullString{}, err
	}
	if len(cols) == 0 {
		return sql.NullString{}, nil
	}

	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return sql.NullString{}, err
	}

	return values[0], nil
}

// ExecCommit executes query inside a transaction and commits it. Only a
// successful commit returns nil.
func (db *DB) ExecCommit(ctx context.Context, query string, args ...any) error {
	return db.WithTransaction(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
}

// QueryProcedure calls a stored procedure and returns the first column of
// its first row.
func (db *DB) QueryProcedure(ctx context.Context, name string, args ...sql.NamedArg) (sql.NullString, error) {
	stmt, params, err := procedureCall(db.driver, name, args)
	if err != nil {
		return sql.NullString{}, err
	}
	return db.QueryFirstColumn(ctx, stmt, params...)
}

// ExecProcedure calls a stored procedure inside a committed transaction.
func (db *DB) ExecProcedure(ctx context.Context, name string, args ...sql.NamedArg) error {
	stmt, params, err := procedureCall(db.driver, name, args)
	if err != nil {
		return err
	}
	return db.ExecCommit(ctx, stmt, params...)
}

// procedureCall builds the driver-specific statement for a procedure call.
// go-mssqldb treats a bare identifier with named arguments as an RPC call,
// binding each sql.NamedArg to the @name parameter.
func procedureCall(driver, name string, args []sql.NamedArg) (string, []any, error) {
	if name == "" {
		return "", nil, errors.New("db: empty procedure name")
	}

	switch driver {
	case "sqlserver", "mssql":
		params := make([]any, len(args))
		for i, a := range args {
			params[i] = a
		}
		return name, params, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
}

// Package database registers the "sql" blocks. Statements run on the
// session's connection, taken from the shared pool on first use, so every
// statement of one execution sees the same connection.
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Kind is the block kind registered by this package.
const Kind = "sql"

// Module implements the block.Module interface for this package.
type Module struct{}

// Register registers sql/query and sql/execute.
func (m *Module) Register(r *block.Registry) {
	shape := block.Shape{Blocks: []string{"statement"}, Lists: []string{"params"}}
	r.RegisterFunc(Kind, "query", shape, query)
	r.RegisterFunc(Kind, "execute", shape, execute)
}

func statement(ctx *block.Context, n *block.Node) (string, []any, error) {
	stmt, err := n.String(ctx, "statement")
	if err != nil {
		return "", nil, err
	}
	if stmt == "" {
		return "", nil, n.Invalid("statement must not be empty")
	}
	params, err := n.Values(ctx, "params")
	if err != nil {
		return "", nil, err
	}
	args := make([]any, len(params))
	for i, p := range params {
		switch p.Kind() {
		case value.KindList, value.KindMap, value.KindHandle:
			return "", nil, n.Invalid("params[%d] must be a scalar, got %s", i, p.Kind())
		}
		args[i] = value.ToNative(p)
	}
	return stmt, args, nil
}

func query(ctx *block.Context, n *block.Node) (value.Value, error) {
	stmt, args, err := statement(ctx, n)
	if err != nil {
		return value.Null(), err
	}
	conn, err := ctx.Session().SQL(ctx.Context())
	if err != nil {
		return value.Null(), err
	}

	rows, err := conn.QueryContext(ctx.Context(), stmt, args...)
	if err != nil {
		return value.Null(), n.Fault(fault.Storage, err.Error(), fault.WithCause(err))
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return value.Null(), n.Fault(fault.Storage, err.Error(), fault.WithCause(err))
	}
	ctx.Logger().Debug("SQL query finished.", "rows", len(out))
	return value.List(out...), nil
}

func execute(ctx *block.Context, n *block.Node) (value.Value, error) {
	stmt, args, err := statement(ctx, n)
	if err != nil {
		return value.Null(), err
	}
	conn, err := ctx.Session().SQL(ctx.Context())
	if err != nil {
		return value.Null(), err
	}

	res, err := conn.ExecContext(ctx.Context(), stmt, args...)
	if err != nil {
		return value.Null(), n.Fault(fault.Storage, err.Error(), fault.WithCause(err))
	}
	out := map[string]value.Value{
		"rows_affected":  value.Null(),
		"last_insert_id": value.Null(),
	}
	if affected, err := res.RowsAffected(); err == nil {
		out["rows_affected"] = value.Int(affected)
	}
	if id, err := res.LastInsertId(); err == nil {
		out["last_insert_id"] = value.Int(id)
	}
	ctx.Logger().Debug("SQL statement executed.", "rows_affected", out["rows_affected"].String())
	return value.Map(out), nil
}

func scanRows(rows *sql.Rows) ([]value.Value, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []value.Value
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]value.Value, len(cols))
		for i, col := range cols {
			v, err := column(dest[i])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", col, err)
			}
			row[col] = v
		}
		out = append(out, value.Map(row))
	}
	return out, rows.Err()
}

// column converts a driver value. Timestamps become Unix seconds.
func column(v any) (value.Value, error) {
	if t, ok := v.(time.Time); ok {
		return value.Int(t.Unix()), nil
	}
	return value.FromNative(v)
}

// Package clickhouse is a thin query client for ClickHouse over the
// native protocol.
//
// It wraps the official driver with the two access patterns servicegate
// needs: buffered queries returning column-name-keyed rows, and
// streaming queries delivering one row at a time for large results.
package clickhouse

import (
	"context"
	"fmt"
	"reflect"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/dkemmer/servicegate/internal/infrastructure/config"
)

// Client executes queries against one ClickHouse database.
type Client struct {
	conn driver.Conn
}

// New opens a native-protocol connection from validated configuration.
// The password is revealed once here, to the driver only.
func New(cfg config.ClickHouseConfig) (*Client, error) {
	conn, err := ch.Open(&ch.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: ch.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password.Reveal(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening clickhouse connection: %w", err)
	}
	return &Client{conn: conn}, nil
}

// newWithConn wires a prepared driver connection; used by tests.
func newWithConn(conn driver.Conn) *Client {
	return &Client{conn: conn}
}

// Query runs a query and buffers the full result as one map per row,
// keyed by column name. Params become named query parameters
// ({name:Type} placeholders in the SQL).
func (c *Client) Query(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	rows, err := c.conn.Query(ctx, query, namedArgs(params)...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	columns := rows.Columns()
	types := rows.ColumnTypes()

	var result []map[string]any
	for rows.Next() {
		values, err := scanRow(rows, types)
		if err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, name := range columns {
			row[name] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}

// QueryStream runs a query and invokes fn once per row, in order,
// without buffering the result set. Returning an error from fn stops
// the stream and propagates that error.
func (c *Client) QueryStream(ctx context.Context, query string, params map[string]any, fn func(row []any) error) error {
	rows, err := c.conn.Query(ctx, query, namedArgs(params)...)
	if err != nil {
		return fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	types := rows.ColumnTypes()
	for rows.Next() {
		values, err := scanRow(rows, types)
		if err != nil {
			return err
		}
		if err := fn(values); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rows: %w", err)
	}
	return nil
}

// Ping reports whether the server is reachable. Mirrors the behaviour
// callers expect from a healthcheck: no error details, just up or down.
func (c *Client) Ping(ctx context.Context) bool {
	return c.conn.Ping(ctx) == nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.conn.Close()
}

// scanRow scans the current row into freshly allocated values of each
// column's native Go type, then dereferences them for the caller.
func scanRow(rows driver.Rows, types []driver.ColumnType) ([]any, error) {
	targets := make([]any, len(types))
	for i, t := range types {
		targets[i] = reflect.New(t.ScanType()).Interface()
	}

	if err := rows.Scan(targets...); err != nil {
		return nil, fmt.Errorf("scanning row: %w", err)
	}

	values := make([]any, len(targets))
	for i, target := range targets {
		values[i] = reflect.ValueOf(target).Elem().Interface()
	}
	return values, nil
}

// namedArgs converts a parameter map into the driver's named-argument
// form.
func namedArgs(params map[string]any) []any {
	if len(params) == 0 {
		return nil
	}
	args := make([]any, 0, len(params))
	for name, value := range params {
		args = append(args, ch.Named(name, value))
	}
	return args
}

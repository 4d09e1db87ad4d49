package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpCapturesPgxFields(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "ux_orders_order_number",
		TableName:      "orders",
		Message:        "duplicate key value violates unique constraint",
	}
	err := Wrap(CodeInternal, fmt.Errorf("insert order: %w", pgErr), "create order")

	dump := Dump(err)
	assert.Equal(t, CodeInternal, dump.Code)
	assert.Equal(t, "23505", dump.PGCode)
	assert.Equal(t, "ux_orders_order_number", dump.PGConstraint)
	assert.Equal(t, "orders", dump.PGTable)
	require.Len(t, dump.Chain, 3)

	fields := dump.Fields()
	assert.Equal(t, "23505", fields["pg_code"])
	assert.NotContains(t, fields, "pg_column")
}

func TestDumpCapturesPqFields(t *testing.T) {
	err := fmt.Errorf("decrement: %w", &pq.Error{Code: "23514", Constraint: "products_stock_check", Table: "products"})

	dump := Dump(err)
	assert.Equal(t, "23514", dump.PGCode)
	assert.Equal(t, "products_stock_check", dump.PGConstraint)
	assert.Empty(t, dump.Code)
}

func TestDumpNil(t *testing.T) {
	assert.Equal(t, ErrorDump{}, Dump(nil))
}

package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the log-only view of an error chain. It never reaches clients.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`

	Chain []string `json:"chain,omitempty"`

	SQLState   string `json:"sql_state,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	DBMessage  string `json:"db_message,omitempty"`
}

// sqlite reports constraint failures only as text, e.g.
// "UNIQUE constraint failed: returns.loan_id".
var sqliteConstraintPrefixes = []string{
	"UNIQUE constraint failed: ",
	"CHECK constraint failed: ",
	"FOREIGN KEY constraint failed",
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Retryable = MetadataFor(d.Code).Retryable
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.SQLState = pgxErr.Code
		d.Constraint = pgxErr.ConstraintName
		d.Table = pgxErr.TableName
		d.Column = pgxErr.ColumnName
		d.Detail = pgxErr.Detail
		d.DBMessage = pgxErr.Message
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.SQLState = string(pqErr.Code)
		d.Constraint = pqErr.Constraint
		d.Table = pqErr.Table
		d.Column = pqErr.Column
		d.Detail = pqErr.Detail
		d.DBMessage = pqErr.Message
		return d
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		if readSQLiteConstraint(&d, e.Error()) {
			break
		}
	}
	return d
}

func readSQLiteConstraint(d *ErrorDump, msg string) bool {
	for _, prefix := range sqliteConstraintPrefixes {
		idx := strings.Index(msg, prefix)
		if idx < 0 {
			continue
		}
		d.DBMessage = msg[idx:]
		d.Constraint = strings.TrimSpace(strings.TrimPrefix(msg[idx:], prefix))
		if table, column, ok := strings.Cut(d.Constraint, "."); ok && !strings.Contains(table, " ") {
			d.Table, d.Column = table, column
		}
		return true
	}
	return false
}

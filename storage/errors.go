package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindConnectivity
	KindQuery
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConnectivity:
		return "connectivity"
	case KindQuery:
		return "query"
	}
	return "unknown"
}

var (
	ErrValidation   = errors.New("validation failed")
	ErrConnectivity = errors.New("database unreachable")
	ErrQuery        = errors.New("query failed")
)

// Error is returned by every Store operation. Match the cause with
// errors.Is(err, ErrValidation), ErrConnectivity or ErrQuery.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrConnectivity:
		return e.Kind == KindConnectivity
	case ErrQuery:
		return e.Kind == KindQuery
	}
	return false
}

// Inserted is the boolean view of an Insert result.
func Inserted(err error) bool {
	return err == nil
}

func validationError(op, format string, args ...any) error {
	return &Error{Op: op, Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

// backendError classifies err as a connectivity or query failure.
func backendError(op string, err error) error {
	return &Error{Op: op, Kind: classify(err), Err: err}
}

func classify(err error) Kind {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return KindQuery
	}

	var netErr net.Error
	switch {
	case errors.As(err, &netErr),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, context.DeadlineExceeded),
		pgconn.Timeout(err):
		return KindConnectivity
	}

	return KindQuery
}

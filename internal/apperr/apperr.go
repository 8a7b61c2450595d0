// Package apperr defines the error contract of the ordering core.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Kind string

const (
	KindValidation       Kind = "VALIDATION_REJECTED"
	KindNotFound         Kind = "NOT_FOUND"
	KindPermissionDenied Kind = "PERMISSION_DENIED"
	KindInvariant        Kind = "INVARIANT_VIOLATION"
	KindConcurrency      Kind = "CONCURRENCY_ABORT"
)

type Reason string

const (
	ReasonProductAlreadyInOrder  Reason = "PRODUCT_ALREADY_IN_ORDER"
	ReasonInvalidWeightScheme    Reason = "INVALID_WEIGHT_SCHEME"
	ReasonDeadlinePassed         Reason = "DEADLINE_PASSED"
	ReasonMaxExceeded            Reason = "MAX_EXCEEDED"
	ReasonOutsideOrderWindow     Reason = "OUTSIDE_ORDER_WINDOW"
	ReasonOrderAlreadyExists     Reason = "ORDER_ALREADY_EXISTS"
	ReasonOrderPaid              Reason = "ORDER_PAID"
	ReasonInvalidPickUpDay       Reason = "INVALID_PICK_UP_DAY"
	ReasonInvalidQuantity        Reason = "INVALID_QUANTITY"
	ReasonInvalidFund            Reason = "INVALID_FUND"
	ReasonSupplyAlreadyExists    Reason = "SUPPLY_ALREADY_EXISTS"
	ReasonProductAlreadyInSupply Reason = "PRODUCT_ALREADY_IN_SUPPLY"
	ReasonWrongProducer          Reason = "WRONG_PRODUCER"
	ReasonDuplicate              Reason = "DUPLICATE"
	ReasonInvalidInput           Reason = "INVALID_INPUT"
)

type Error struct {
	Kind    Kind
	Reason  Reason // validation errors only
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Reason != "" {
		msg += "{" + string(e.Reason) + "}"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Rejected(reason Reason, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindPermissionDenied, Message: msg}
}

func Invariant(msg string, err error) *Error {
	return &Error{Kind: KindInvariant, Message: msg, Err: err}
}

// postgres SQLSTATEs a caller may retry on
var retryableCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
}

// FromDB classifies a persistence error. Already classified errors pass through.
func FromDB(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Kind: KindNotFound, Message: "record not found", Err: err}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &Error{Kind: KindValidation, Reason: ReasonDuplicate, Message: "duplicate value", Err: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && retryableCodes[pgErr.Code] {
		return &Error{Kind: KindConcurrency, Message: "transaction conflict, retry", Err: err}
	}
	return &Error{Kind: KindInvariant, Message: "database error", Err: err}
}

// NotFoundAs maps gorm.ErrRecordNotFound to a NotFound error naming the entity.
func NotFoundAs(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(what)
	}
	return FromDB(err)
}

func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

func ReasonOf(err error) Reason {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}

// HTTPStatus maps an error to the status code surfaced at the interface.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindConcurrency:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

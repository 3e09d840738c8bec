package services

import "errors"

type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindNotFound
	KindAuthentication
	KindConflict
	KindInsufficientFunds
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthentication:
		return "authentication"
	case KindConflict:
		return "conflict"
	case KindInsufficientFunds:
		return "insufficient_funds"
	}
	return "unexpected"
}

// Error is a categorized failure. The package-level values are sentinels:
// compare with errors.Is, and wrap with fmt.Errorf("%w: ...") to add detail.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newErr(kind Kind, code, msg string) *Error { return &Error{Kind: kind, Code: code, Message: msg} }

var (
	ErrInvalidAmount        = newErr(KindValidation, "invalid_amount", "amount must be greater than zero")
	ErrInvalidType          = newErr(KindValidation, "invalid_type", "unknown transaction type")
	ErrInvalidPlan          = newErr(KindValidation, "invalid_plan", "unknown plan")
	ErrInvalidInput         = newErr(KindValidation, "invalid_input", "invalid payment data")
	ErrInvalidCard          = newErr(KindValidation, "invalid_card", "invalid card details")
	ErrNotYetExpired        = newErr(KindValidation, "not_yet_expired", "transaction has not reached its timeout")
	ErrTransactionNotFound  = newErr(KindNotFound, "transaction_not_found", "transaction not found")
	ErrCardNotFound         = newErr(KindNotFound, "card_not_found", "card not found")
	ErrUserNotFound         = newErr(KindNotFound, "user_not_found", "user not found")
	ErrMerchantNotFound     = newErr(KindNotFound, "merchant_not_found", "merchant not found")
	ErrAuthenticationFailed = newErr(KindAuthentication, "authentication_failed", "card authentication failed")
	ErrAlreadySettled       = newErr(KindConflict, "already_settled", "transaction already completed")
	ErrTransactionDead      = newErr(KindConflict, "transaction_dead", "transaction is no longer payable")
	ErrConcurrencyConflict  = newErr(KindConflict, "concurrency_conflict", "transaction is busy, try again")
	ErrCardExists           = newErr(KindConflict, "card_exists", "card already registered")
	ErrAccountExists        = newErr(KindConflict, "account_exists", "account already exists")
	ErrInsufficientFunds    = newErr(KindInsufficientFunds, "insufficient_funds", "insufficient funds")
)

// KindOf reports the category of err; uncategorized errors are unexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// CodeOf reports the machine-readable code of err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

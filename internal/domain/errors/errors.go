package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies failures of the gasless flow.
type Kind string

const (
	// KindRelayUnavailable is a transport-level failure reaching the relay.
	KindRelayUnavailable Kind = "RELAY_UNAVAILABLE"

	// KindUnsupportedToken means the mint is not in the relay's fee-token registry.
	KindUnsupportedToken Kind = "UNSUPPORTED_TOKEN"

	// KindMissingField means a required request field is absent.
	KindMissingField Kind = "MISSING_FIELD"

	// KindInvalidRequest means a field is present but malformed.
	KindInvalidRequest Kind = "INVALID_REQUEST"

	// KindAccountLookupFailed means the ledger could not answer an account query.
	KindAccountLookupFailed Kind = "ACCOUNT_LOOKUP_FAILED"

	// KindUpstreamRejected means the relay or ledger explicitly refused the transaction.
	KindUpstreamRejected Kind = "UPSTREAM_REJECTED"

	// KindUnsupported means the deployed relay does not offer the operation.
	KindUnsupported Kind = "UNSUPPORTED_OPERATION"
)

// ReasonAlreadyProcessed is the structured reason a relay or ledger reports
// when an identical transaction already landed.
const ReasonAlreadyProcessed = "AlreadyProcessed"

// transactionErrorVariants are the ledger's TransactionError variant names.
var transactionErrorVariants = map[string]struct{}{
	"AccountInUse":                          {},
	"AccountLoadedTwice":                    {},
	"AccountNotFound":                       {},
	"ProgramAccountNotFound":                {},
	"InsufficientFundsForFee":               {},
	"InvalidAccountForFee":                  {},
	ReasonAlreadyProcessed:                  {},
	"BlockhashNotFound":                     {},
	"InstructionError":                      {},
	"CallChainTooDeep":                      {},
	"MissingSignatureForFee":                {},
	"InvalidAccountIndex":                   {},
	"SignatureFailure":                      {},
	"InvalidProgramForExecution":            {},
	"SanitizeFailure":                       {},
	"ClusterMaintenance":                    {},
	"AccountBorrowOutstanding":              {},
	"WouldExceedMaxBlockCostLimit":          {},
	"UnsupportedVersion":                    {},
	"InvalidWritableAccount":                {},
	"WouldExceedMaxAccountCostLimit":        {},
	"WouldExceedAccountDataBlockLimit":      {},
	"TooManyAccountLocks":                   {},
	"AddressLookupTableNotFound":            {},
	"InvalidAddressLookupTableOwner":        {},
	"InvalidAddressLookupTableData":         {},
	"InvalidAddressLookupTableIndex":        {},
	"InvalidRentPayingAccount":              {},
	"WouldExceedMaxVoteCostLimit":           {},
	"WouldExceedAccountDataTotalLimit":      {},
	"DuplicateInstruction":                  {},
	"InsufficientFundsForRent":              {},
	"MaxLoadedAccountsDataSizeExceeded":     {},
	"InvalidLoadedAccountsDataSizeLimit":    {},
	"ResanitizationNeeded":                  {},
	"ProgramExecutionTemporarilyRestricted": {},
	"UnbalancedTransaction":                 {},
	"ProgramCacheHitMaxLimit":               {},
	"CommitCancelled":                       {},
}

// IsTransactionErrorVariant reports whether name is a ledger TransactionError
// variant. Only such names are kept as structured reasons.
func IsTransactionErrorVariant(name string) bool {
	_, ok := transactionErrorVariants[name]
	return ok
}

// Error is the single error type of the relay flow. Message is safe to return
// to API callers; for relay failures it carries the upstream text.
type Error struct {
	Kind    Kind
	Message string
	Code    int
	Reason  string
	Fields  []string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message != e.Cause.Error() {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on kind so callers can test with errors.Is(err, &Error{Kind: ...}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func RelayUnavailable(cause error) *Error {
	msg := "relay unavailable"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: KindRelayUnavailable, Message: msg, Cause: cause}
}

// UpstreamRejected keeps the relay's own error text and code.
func UpstreamRejected(message string, code int) *Error {
	return &Error{Kind: KindUpstreamRejected, Message: message, Code: code}
}

func UnsupportedToken(mint string) *Error {
	return &Error{
		Kind:    KindUnsupportedToken,
		Message: fmt.Sprintf("Token %s is not supported for fee payment", mint),
	}
}

func MissingFields(fields ...string) *Error {
	return &Error{
		Kind:    KindMissingField,
		Message: "Missing required fields: " + strings.Join(fields, ", "),
		Fields:  fields,
	}
}

func InvalidRequest(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func AccountLookupFailed(account string, cause error) *Error {
	return &Error{
		Kind:    KindAccountLookupFailed,
		Message: fmt.Sprintf("failed to look up account %s", account),
		Cause:   cause,
	}
}

func Unsupported(operation, relay string) *Error {
	return &Error{
		Kind:    KindUnsupported,
		Message: fmt.Sprintf("%s is not supported by the %s relay", operation, relay),
	}
}

// As returns the relay error wrapped in err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func KindOf(err error) (Kind, bool) {
	if e, ok := As(err); ok {
		return e.Kind, true
	}
	return "", false
}

// IsRelayError reports whether err came back from the relay itself.
func IsRelayError(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case KindRelayUnavailable, KindUpstreamRejected, KindUnsupported:
		return true
	default:
		return false
	}
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case KindMissingField, KindUnsupportedToken, KindInvalidRequest, KindUnsupported:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

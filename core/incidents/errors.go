package incidents

import "errors"

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindPrecondition
	KindInvalidState
	KindForbidden
)

// Error carries the failure class so the API layer can map it to a
// status code without string matching.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func ValidationError(msg string) error   { return newError(KindValidation, msg) }
func NotFoundError(msg string) error     { return newError(KindNotFound, msg) }
func PreconditionError(msg string) error { return newError(KindPrecondition, msg) }
func InvalidStateError(msg string) error { return newError(KindInvalidState, msg) }
func ForbiddenError(msg string) error    { return newError(KindForbidden, msg) }

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsPrecondition(err error) bool { return KindOf(err) == KindPrecondition }
func IsInvalidState(err error) bool { return KindOf(err) == KindInvalidState }
func IsForbidden(err error) bool    { return KindOf(err) == KindForbidden }

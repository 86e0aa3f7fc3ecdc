package errs

import (
	"strconv"
	"strings"

	pkgerr "github.com/pkg/errors"
)

// CodeError carries a stable numeric code alongside a human message.
// Code values follow HTTP status semantics (400/401/500) so the HTTP layer
// and the realtime ack translation can share one taxonomy.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) clone() *CodeError {
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: e.Detail}
}

// WithDetail returns a copy with extra detail appended; the receiver is not
// mutated, so the predefined errors stay clean.
func (e *CodeError) WithDetail(detail string) *CodeError {
	ret := e.clone()
	if ret.Detail == "" {
		ret.Detail = detail
	} else {
		ret.Detail += ", " + detail
	}
	return ret
}

// WrapMsg returns the error wrapped with a call-site message and stack.
func (e *CodeError) WrapMsg(msg string) error {
	return pkgerr.WithMessage(e.clone(), msg)
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// Is matches on Code so errors.Is works across WithDetail copies.
func (e *CodeError) Is(target error) bool {
	t, ok := target.(*CodeError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Msg == t.Msg
}

// AsCodeError unwraps err down to a *CodeError, or wraps a plain error in
// ErrInternal so callers always have a code to report.
func AsCodeError(err error) *CodeError {
	if err == nil {
		return nil
	}
	var ce *CodeError
	if pkgerr.As(err, &ce) {
		return ce
	}
	return ErrInternal.WithDetail(err.Error())
}

func Wrap(err error) error {
	return pkgerr.WithStack(err)
}

func WrapMsg(err error, msg string) error {
	return pkgerr.WithMessage(err, msg)
}

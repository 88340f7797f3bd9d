package handle

import "strings"

type Kind uint8

const (
	KindInvalidState Kind = iota + 1
	KindSyntax
	KindSecurity
	KindAborted
	KindTimeout
	KindNetwork
)

var kindNames = [...]string{
	KindInvalidState: "invalid state",
	KindSyntax:       "syntax error",
	KindSecurity:     "security error",
	KindAborted:      "aborted",
	KindTimeout:      "timeout",
	KindNetwork:      "network error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown error"
}

// Error is raised by handles. Two errors match with errors.Is when
// their kinds are equal, so the Err* values below work as sentinels.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := []string{"xhr: " + e.Kind.String()}
	if e.Detail != "" {
		msg = append(msg, e.Detail)
	}
	if e.Err != nil {
		msg = append(msg, e.Err.Error())
	}
	return strings.Join(msg, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(err error) bool {
	if t, ok := err.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// With returns a copy of e carrying a detail message and a cause.
func (e *Error) With(detail string, err error) *Error {
	return &Error{Kind: e.Kind, Detail: detail, Err: err}
}

var (
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrSyntax       = &Error{Kind: KindSyntax}
	ErrSecurity     = &Error{Kind: KindSecurity}
	ErrAborted      = &Error{Kind: KindAborted}
	ErrTimeout      = &Error{Kind: KindTimeout}
	ErrNetwork      = &Error{Kind: KindNetwork}
)

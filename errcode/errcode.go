package errcode

// Code is a stable, wire-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable). These are protocol errors: always
// recoverable, reported to the host as {"ok":false,"error":<code>} and
// never allowed to disturb other subsystems. Degraded hardware (sensor
// absent, begin failed, subscription failed) is deliberately NOT an error
// code; it is surfaced through status fields only.
const (
	OK          Code = "ok"
	BadJSON     Code = "bad_json"
	UnknownCmd  Code = "unknown_cmd"
	MissingArg  Code = "missing_arg"
	BadArg      Code = "bad_arg"
	OutOfRange  Code = "out_of_range"
	Busy        Code = "busy"
	Unsupported Code = "unsupported"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// With builds an E carrying a detail message, e.g. the violated constraint
// for an out-of-range argument ("r must be 0-255").
func With(c Code, msg string) *E { return &E{C: c, Msg: msg} }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// Detail returns the human detail for an error, falling back to Error().
func Detail(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := err.(*E); ok && e.Msg != "" {
		return e.Msg
	}
	return err.Error()
}

// Package coreerr attaches an exit-code classification to errors flowing
// out of the core components, following the small sentinel/wrapped-error
// pattern used elsewhere in this codebase (see process.ErrProcessNotFound)
// rather than a third-party error-taxonomy library.
package coreerr

import (
	"errors"
	"fmt"
)

// Code is one of the exit-code taxonomy values a command surfaces.
type Code int

const (
	OK                   Code = 0
	Generic              Code = 1
	InvalidInput         Code = 2
	ProviderUnavailable  Code = 3
	ProviderCLIError     Code = 4
	Timeout              Code = 5
	MissingConfig        Code = 6
	StoreError           Code = 7
	MultiplexerError     Code = 8
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case Generic:
		return "generic"
	case InvalidInput:
		return "invalid_input"
	case ProviderUnavailable:
		return "provider_unavailable"
	case ProviderCLIError:
		return "provider_cli_error"
	case Timeout:
		return "timeout"
	case MissingConfig:
		return "missing_config"
	case StoreError:
		return "store_error"
	case MultiplexerError:
		return "multiplexer_error"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a taxonomy code.
type Error struct {
	Code Code
	Err  error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Err: errors.New(message)}
}

func Wrap(code Code, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}

func Wrapf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil || e.Err == nil {
		return e.Code.String()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CodeOf extracts the taxonomy code from err, defaulting to Generic when
// err does not carry one.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return Generic
}

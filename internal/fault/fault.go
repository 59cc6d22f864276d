// Package fault defines the error taxonomy shared by every provisioning step.
//
// Errors from external libraries (crypto, filesystem, template engine, process
// execution) are converted into a *Error at the call site that crosses the
// boundary, so callers can branch on Kind without knowing which library failed.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a provisioning failure.
type Kind int

const (
	Other Kind = iota
	Crypto
	FileIO
	Config
	CustomCANotSet
	TemplateRender
	UnpackArchive
	ServiceManager
	BindAddress
)

func (k Kind) String() string {
	switch k {
	case Crypto:
		return "crypto"
	case FileIO:
		return "file_io"
	case Config:
		return "config"
	case CustomCANotSet:
		return "custom_ca_not_set"
	case TemplateRender:
		return "template_render"
	case UnpackArchive:
		return "unpack_archive"
	case ServiceManager:
		return "service_manager"
	case BindAddress:
		return "bind_address"
	default:
		return "other"
	}
}

// Error is a classified failure with an optional underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind with no underlying cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf is New with a format string.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the kind of the outermost *Error in err's chain, or Other.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Other
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

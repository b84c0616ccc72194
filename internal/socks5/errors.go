package socks5

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the handshakes wraps exactly one of
// these, so callers can classify failures with errors.Is.
var (
	// ErrConnect reports that the transport connection to an upstream
	// could not be established.
	ErrConnect = errors.New("socks5 connect")
	// ErrHandshake reports a protocol violation or truncated read during
	// either handshake direction.
	ErrHandshake = errors.New("socks5 handshake")
	// ErrAuth reports a failure of the username/password sub-negotiation.
	ErrAuth = errors.New("socks5 auth")
)

// Handshake refinements, wrapped together with ErrHandshake.
var (
	ErrVersion                = errors.New("unsupported socks version")
	ErrNoMethods              = errors.New("no authentication methods offered")
	ErrNoAcceptableMethod     = errors.New("no acceptable authentication method")
	ErrUnsupportedCommand     = errors.New("unsupported command")
	ErrReserved               = errors.New("reserved field is not zero")
	ErrUnsupportedAddressType = errors.New("unsupported address type")
	ErrDomainLength           = errors.New("domain name length out of range")
)

// ReplyError is returned when an upstream answers a CONNECT request with a
// non-success reply code.
type ReplyError struct {
	Rep byte
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("upstream replied %s (0x%02x)", replyText(e.Rep), e.Rep)
}

func handshakeErr(err error, format string, args ...any) error {
	if format == "" {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrHandshake, fmt.Sprintf(format, args...), err)
}

func replyText(rep byte) string {
	switch rep {
	case RepSuccess:
		return "succeeded"
	case RepGeneralFailure:
		return "general failure"
	case RepNotAllowed:
		return "connection not allowed by ruleset"
	case RepNetworkUnreachable:
		return "network unreachable"
	case RepHostUnreachable:
		return "host unreachable"
	case RepConnectionRefused:
		return "connection refused"
	case RepTTLExpired:
		return "TTL expired"
	case RepCommandNotSupported:
		return "command not supported"
	case RepAddressNotSupported:
		return "address type not supported"
	default:
		return "unknown reply"
	}
}

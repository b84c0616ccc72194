package socks5

import (
	"errors"
	"fmt"
	"io"
	"net"

	txsocks5 "github.com/txthinking/socks5"
)

// WriteSuccessReply writes a SOCKS5 success reply using bound as the bound
// address.
func WriteSuccessReply(w io.Writer, bound Addr, port uint16) error {
	if err := bound.Validate(); err != nil {
		bound, port = IPv4Addr([4]byte{}), 0
	}
	if _, err := newReply(RepSuccess, bound, port).WriteTo(w); err != nil {
		return fmt.Errorf("success reply: %w", err)
	}
	return nil
}

// WriteFailureReply writes a SOCKS5 reply with the given failure code and a
// zero bound address.
func WriteFailureReply(w io.Writer, rep byte) error {
	if _, err := newReply(rep, IPv4Addr([4]byte{}), 0).WriteTo(w); err != nil {
		return fmt.Errorf("failure reply: %w", err)
	}
	return nil
}

// ReplyCode maps a handshake or dial error onto the reply code reported to
// the client.
func ReplyCode(err error) byte {
	var re *ReplyError
	var ne net.Error
	switch {
	case err == nil:
		return RepSuccess
	case errors.As(err, &re):
		return re.Rep
	case errors.Is(err, ErrUnsupportedCommand):
		return RepCommandNotSupported
	case errors.Is(err, ErrUnsupportedAddressType):
		return RepAddressNotSupported
	case errors.Is(err, ErrConnect):
		if errors.As(err, &ne) && ne.Timeout() {
			return RepHostUnreachable
		}
		return RepConnectionRefused
	default:
		return RepGeneralFailure
	}
}

func newReply(rep byte, bound Addr, port uint16) *txsocks5.Reply {
	return txsocks5.NewReply(rep, bound.Type, bound.Raw, []byte{byte(port >> 8), byte(port)})
}

package socks5

import (
	"errors"
	"fmt"
	"io"

	txsocks5 "github.com/txthinking/socks5"
)

// ClientDial negotiates with an upstream SOCKS5 server over rw and asks it to
// CONNECT to addr:port. On success rw is a raw tunnel to the target.
func ClientDial(rw io.ReadWriter, auth *Auth, addr Addr, port uint16) (Addr, uint16, error) {
	if err := ClientNegotiate(rw, auth); err != nil {
		return Addr{}, 0, err
	}
	return ClientConnect(rw, addr, port)
}

// ClientNegotiate sends the greeting and, if the server selects it, runs the
// RFC 1929 username/password sub-negotiation. Username/password is only
// offered when auth is non-nil.
func ClientNegotiate(rw io.ReadWriter, auth *Auth) error {
	methods := []byte{MethodNone}
	if auth != nil {
		methods = append(methods, MethodUsernamePassword)
	}
	if _, err := txsocks5.NewNegotiationRequest(methods).WriteTo(rw); err != nil {
		return handshakeErr(err, "write greeting")
	}

	neg, err := txsocks5.NewNegotiationReplyFrom(rw)
	if err != nil {
		return readErr(err, "read method selection")
	}

	switch neg.Method {
	case MethodNone:
		return nil
	case MethodUsernamePassword:
		if auth == nil {
			return handshakeErr(ErrNoAcceptableMethod, "server selected username/password")
		}
		return clientUserPass(rw, *auth)
	case MethodNoAcceptable:
		return handshakeErr(ErrNoAcceptableMethod, "")
	default:
		return handshakeErr(ErrNoAcceptableMethod, "server selected method 0x%02x", neg.Method)
	}
}

func clientUserPass(rw io.ReadWriter, auth Auth) error {
	if err := auth.Validate(); err != nil {
		return err
	}

	req := txsocks5.NewUserPassNegotiationRequest([]byte(auth.Username), []byte(auth.Password))
	if _, err := req.WriteTo(rw); err != nil {
		return fmt.Errorf("%w: write credentials: %w", ErrAuth, err)
	}

	rep, err := txsocks5.NewUserPassNegotiationReplyFrom(rw)
	if err != nil {
		return fmt.Errorf("%w: read status: %w", ErrAuth, err)
	}
	if rep.Status != txsocks5.UserPassStatusSuccess {
		return fmt.Errorf("%w: rejected with status 0x%02x", ErrAuth, rep.Status)
	}
	return nil
}

// ClientConnect sends a CONNECT request for addr:port and reads the complete
// reply, returning the server's bound address.
func ClientConnect(rw io.ReadWriter, addr Addr, port uint16) (Addr, uint16, error) {
	if err := addr.Validate(); err != nil {
		return Addr{}, 0, handshakeErr(err, "target")
	}

	req := txsocks5.NewRequest(CmdConnect, addr.Type, addr.Raw, []byte{byte(port >> 8), byte(port)})
	if _, err := req.WriteTo(rw); err != nil {
		return Addr{}, 0, handshakeErr(err, "write request")
	}

	rep, err := txsocks5.NewReplyFrom(rw)
	if err != nil {
		return Addr{}, 0, readErr(err, "read reply")
	}
	if rep.Rep != RepSuccess {
		return Addr{}, 0, &ReplyError{Rep: rep.Rep}
	}

	raw := rep.BndAddr
	if rep.Atyp == ATYPDomain && len(raw) > 0 {
		raw = raw[1:]
	}
	bound := Addr{Type: rep.Atyp, Raw: append([]byte(nil), raw...)}
	var boundPort uint16
	if len(rep.BndPort) == 2 {
		boundPort = uint16(rep.BndPort[0])<<8 | uint16(rep.BndPort[1])
	}
	return bound, boundPort, nil
}

// readErr wraps an error from a txthinking/socks5 reader, keeping version
// mismatches classifiable as ErrVersion.
func readErr(err error, what string) error {
	if errors.Is(err, txsocks5.ErrVersion) {
		return handshakeErr(ErrVersion, "%s: %v", what, err)
	}
	return handshakeErr(err, "%s", what)
}

package socks5

import (
	"io"
	"net"
	"strconv"
)

// Request is a parsed client CONNECT request.
type Request struct {
	Cmd  byte
	Addr Addr
	Port uint16
}

// Address returns the request target as host:port.
func (r Request) Address() string {
	return net.JoinHostPort(r.Addr.Host(), strconv.Itoa(int(r.Port)))
}

// String is the target as logged: the address display form plus port.
func (r Request) String() string {
	return r.Addr.String() + ":" + strconv.Itoa(int(r.Port))
}

// ServerHandshake runs the server side of the handshake on rw: method
// negotiation followed by reading the CONNECT request. It never writes the
// CONNECT reply; that is left to the caller once the outcome is known.
func ServerHandshake(rw io.ReadWriter) (Request, error) {
	if err := ServerNegotiate(rw); err != nil {
		return Request{}, err
	}
	return ServerReadRequest(rw)
}

// ServerNegotiate reads the client greeting and selects no-auth, whatever
// methods the client offered. A malformed greeting gets no reply.
func ServerNegotiate(rw io.ReadWriter) error {
	var hdr [2]byte
	if _, err := io.ReadFull(rw, hdr[:]); err != nil {
		return handshakeErr(err, "read greeting")
	}
	if hdr[0] != Version {
		return handshakeErr(ErrVersion, "greeting version %d", hdr[0])
	}
	if hdr[1] == 0 {
		return handshakeErr(ErrNoMethods, "")
	}

	methods := make([]byte, int(hdr[1]))
	if _, err := io.ReadFull(rw, methods); err != nil {
		return handshakeErr(err, "read methods")
	}

	if _, err := rw.Write([]byte{Version, MethodNone}); err != nil {
		return handshakeErr(err, "write method selection")
	}
	return nil
}

// ServerReadRequest reads a CONNECT request: VER CMD RSV ATYP DST.ADDR
// DST.PORT.
func ServerReadRequest(r io.Reader) (Request, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Request{}, handshakeErr(err, "read request")
	}
	if hdr[0] != Version {
		return Request{}, handshakeErr(ErrVersion, "request version %d", hdr[0])
	}
	if hdr[1] != CmdConnect {
		return Request{}, handshakeErr(ErrUnsupportedCommand, "command 0x%02x", hdr[1])
	}
	if hdr[2] != 0x00 {
		return Request{}, handshakeErr(ErrReserved, "")
	}

	addr, err := ReadAddr(r, hdr[3])
	if err != nil {
		return Request{}, err
	}
	port, err := readPort(r)
	if err != nil {
		return Request{}, err
	}

	return Request{Cmd: hdr[1], Addr: addr, Port: port}, nil
}

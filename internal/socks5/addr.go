package socks5

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strings"
)

// Addr is a SOCKS5 address in wire form: an address type tag (ATYPIPv4,
// ATYPDomain or ATYPIPv6) and its raw payload. Domain payloads carry no length
// prefix and no terminator.
type Addr struct {
	Type byte
	Raw  []byte
}

// IPv4Addr returns the Addr for a 4-byte IPv4 address.
func IPv4Addr(ip [4]byte) Addr {
	return Addr{Type: ATYPIPv4, Raw: ip[:]}
}

// IPv6Addr returns the Addr for a 16-byte IPv6 address.
func IPv6Addr(ip [16]byte) Addr {
	return Addr{Type: ATYPIPv6, Raw: ip[:]}
}

// DomainAddr returns the Addr for a domain name. The name must fit a single
// length byte.
func DomainAddr(name string) (Addr, error) {
	if len(name) == 0 || len(name) > 255 {
		return Addr{}, fmt.Errorf("%w: %d bytes", ErrDomainLength, len(name))
	}
	return Addr{Type: ATYPDomain, Raw: []byte(name)}, nil
}

// ParseHost returns an IPv4 or IPv6 Addr if host is an IP literal, and a
// domain Addr otherwise. IPv4-mapped IPv6 literals become IPv4.
func ParseHost(host string) (Addr, error) {
	if ip, err := netip.ParseAddr(host); err == nil {
		ip = ip.Unmap()
		if ip.Is4() {
			return IPv4Addr(ip.As4()), nil
		}
		return IPv6Addr(ip.As16()), nil
	}
	return DomainAddr(host)
}

// AddrFromNetAddr converts a bound socket address into an Addr and port. Any
// address that isn't a TCP address maps to 0.0.0.0:0.
func AddrFromNetAddr(a net.Addr) (Addr, uint16) {
	ta, ok := a.(*net.TCPAddr)
	if !ok || ta.IP == nil {
		return IPv4Addr([4]byte{}), 0
	}
	if ip4 := ta.IP.To4(); ip4 != nil {
		return IPv4Addr([4]byte(ip4)), uint16(ta.Port)
	}
	if ip16 := ta.IP.To16(); ip16 != nil {
		return IPv6Addr([16]byte(ip16)), uint16(ta.Port)
	}
	return IPv4Addr([4]byte{}), 0
}

// Validate reports whether the payload length matches the address type.
func (a Addr) Validate() error {
	switch a.Type {
	case ATYPIPv4:
		if len(a.Raw) != net.IPv4len {
			return fmt.Errorf("ipv4 address has %d bytes", len(a.Raw))
		}
	case ATYPIPv6:
		if len(a.Raw) != net.IPv6len {
			return fmt.Errorf("ipv6 address has %d bytes", len(a.Raw))
		}
	case ATYPDomain:
		if len(a.Raw) == 0 || len(a.Raw) > 255 {
			return fmt.Errorf("%w: %d bytes", ErrDomainLength, len(a.Raw))
		}
	default:
		return fmt.Errorf("%w: 0x%02x", ErrUnsupportedAddressType, a.Type)
	}
	return nil
}

// Len returns the encoded length, including the type tag.
func (a Addr) Len() int {
	if a.Type == ATYPDomain {
		return 2 + len(a.Raw)
	}
	return 1 + len(a.Raw)
}

// AppendTo appends the wire encoding of a to b.
func (a Addr) AppendTo(b []byte) []byte {
	b = append(b, a.Type)
	if a.Type == ATYPDomain {
		b = append(b, byte(len(a.Raw)))
	}
	return append(b, a.Raw...)
}

// Encode returns the wire encoding of a.
func (a Addr) Encode() []byte {
	return a.AppendTo(make([]byte, 0, a.Len()))
}

// Equal reports whether a and b are the same address.
func (a Addr) Equal(b Addr) bool {
	return a.Type == b.Type && bytes.Equal(a.Raw, b.Raw)
}

// Host returns a host string suitable for net.JoinHostPort.
func (a Addr) Host() string {
	switch a.Type {
	case ATYPIPv4:
		if len(a.Raw) == net.IPv4len {
			return netip.AddrFrom4([4]byte(a.Raw)).String()
		}
	case ATYPIPv6:
		if len(a.Raw) == net.IPv6len {
			return netip.AddrFrom16([16]byte(a.Raw)).String()
		}
	case ATYPDomain:
		return string(a.Raw)
	}
	return ""
}

// String renders IPv4 as a dotted quad, IPv6 as eight zero-padded hextets in
// brackets, and domains as text with invalid UTF-8 replaced.
func (a Addr) String() string {
	switch a.Type {
	case ATYPIPv4:
		if len(a.Raw) == net.IPv4len {
			return fmt.Sprintf("%d.%d.%d.%d", a.Raw[0], a.Raw[1], a.Raw[2], a.Raw[3])
		}
	case ATYPIPv6:
		if len(a.Raw) == net.IPv6len {
			var sb strings.Builder
			sb.WriteByte('[')
			for i := 0; i < 8; i++ {
				if i > 0 {
					sb.WriteByte(':')
				}
				fmt.Fprintf(&sb, "%04x", binary.BigEndian.Uint16(a.Raw[2*i:]))
			}
			sb.WriteByte(']')
			return sb.String()
		}
	case ATYPDomain:
		return strings.ToValidUTF8(string(a.Raw), "\uFFFD")
	}
	return fmt.Sprintf("invalid(type=0x%02x, %d bytes)", a.Type, len(a.Raw))
}

// DecodeAddr decodes one address (type tag plus payload) from the front of b
// and returns it with the number of bytes consumed. The returned Addr owns its
// payload.
func DecodeAddr(b []byte) (Addr, int, error) {
	if len(b) < 1 {
		return Addr{}, 0, handshakeErr(io.ErrUnexpectedEOF, "address type")
	}

	atyp := b[0]
	off := 1
	var n int
	switch atyp {
	case ATYPIPv4:
		n = net.IPv4len
	case ATYPIPv6:
		n = net.IPv6len
	case ATYPDomain:
		if len(b) < 2 {
			return Addr{}, 0, handshakeErr(io.ErrUnexpectedEOF, "domain length")
		}
		n = int(b[1])
		if n == 0 {
			return Addr{}, 0, handshakeErr(ErrDomainLength, "empty domain")
		}
		off = 2
	default:
		return Addr{}, 0, handshakeErr(ErrUnsupportedAddressType, "type 0x%02x", atyp)
	}

	if len(b) < off+n {
		return Addr{}, 0, handshakeErr(io.ErrUnexpectedEOF, "address payload")
	}
	raw := make([]byte, n)
	copy(raw, b[off:off+n])
	return Addr{Type: atyp, Raw: raw}, off + n, nil
}

// ReadAddr reads the payload of an address whose type tag atyp has already
// been consumed from r.
func ReadAddr(r io.Reader, atyp byte) (Addr, error) {
	var n int
	switch atyp {
	case ATYPIPv4:
		n = net.IPv4len
	case ATYPIPv6:
		n = net.IPv6len
	case ATYPDomain:
		var l [1]byte
		if _, err := io.ReadFull(r, l[:]); err != nil {
			return Addr{}, handshakeErr(err, "read domain length")
		}
		n = int(l[0])
		if n == 0 {
			return Addr{}, handshakeErr(ErrDomainLength, "empty domain")
		}
	default:
		return Addr{}, handshakeErr(ErrUnsupportedAddressType, "type 0x%02x", atyp)
	}

	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return Addr{}, handshakeErr(err, "read address")
	}
	return Addr{Type: atyp, Raw: raw}, nil
}

func readPort(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, handshakeErr(err, "read port")
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

package socks5

import (
	"bytes"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
)

func TestIPv4RoundTrip(t *testing.T) {
	quads := [][4]byte{
		{0, 0, 0, 0},
		{127, 0, 0, 1},
		{192, 0, 2, 1},
		{255, 255, 255, 255},
		{10, 255, 0, 128},
	}
	for _, q := range quads {
		in := IPv4Addr(q)
		enc := in.Encode()
		if len(enc) != 5 || enc[0] != ATYPIPv4 {
			t.Fatalf("encode %v: got % x", q, enc)
		}
		out, n, err := DecodeAddr(enc)
		if err != nil {
			t.Fatalf("decode %v: %v", q, err)
		}
		if n != len(enc) {
			t.Fatalf("decode %v consumed %d of %d", q, n, len(enc))
		}
		if !out.Equal(in) {
			t.Fatalf("round trip %v: got %v", q, out)
		}
	}
}

func TestDomainRoundTrip(t *testing.T) {
	for l := 1; l <= 255; l++ {
		name := strings.Repeat("a", l)
		in, err := DomainAddr(name)
		if err != nil {
			t.Fatalf("len %d: %v", l, err)
		}
		enc := in.Encode()
		if enc[0] != ATYPDomain || int(enc[1]) != l || len(enc) != l+2 {
			t.Fatalf("len %d: bad encoding prefix % x", l, enc[:2])
		}
		out, n, err := DecodeAddr(enc)
		if err != nil {
			t.Fatalf("len %d: %v", l, err)
		}
		if n != l+2 || !out.Equal(in) {
			t.Fatalf("len %d: got %v (%d bytes)", l, out, n)
		}
	}
}

func TestDomainLengthRejected(t *testing.T) {
	for _, l := range []int{0, 256} {
		if _, err := DomainAddr(strings.Repeat("a", l)); !errors.Is(err, ErrDomainLength) {
			t.Fatalf("len %d: expected ErrDomainLength, got %v", l, err)
		}
	}

	_, _, err := DecodeAddr([]byte{ATYPDomain, 0})
	if !errors.Is(err, ErrHandshake) || !errors.Is(err, ErrDomainLength) {
		t.Fatalf("zero-length domain decode: got %v", err)
	}
}

func TestIPv6RoundTripAndString(t *testing.T) {
	ip := net.ParseIP("2001:db8::12:34")
	in := IPv6Addr([16]byte(ip.To16()))

	out, n, err := DecodeAddr(in.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if n != 17 || !out.Equal(in) {
		t.Fatalf("got %v (%d bytes)", out, n)
	}

	s := out.String()
	if s != "[2001:0db8:0000:0000:0000:0000:0012:0034]" {
		t.Fatalf("unexpected display %q", s)
	}
	if groups := strings.Split(strings.Trim(s, "[]"), ":"); len(groups) != 8 {
		t.Fatalf("expected 8 groups, got %d", len(groups))
	}
	if out.Host() != "2001:db8::12:34" {
		t.Fatalf("unexpected host %q", out.Host())
	}
}

func TestDecodeAddrErrors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{name: "empty", in: nil, want: io.ErrUnexpectedEOF},
		{name: "unsupported_type", in: []byte{0x02, 1, 2, 3, 4}, want: ErrUnsupportedAddressType},
		{name: "short_ipv4", in: []byte{ATYPIPv4, 1, 2, 3}, want: io.ErrUnexpectedEOF},
		{name: "short_ipv6", in: append([]byte{ATYPIPv6}, make([]byte, 15)...), want: io.ErrUnexpectedEOF},
		{name: "missing_domain_length", in: []byte{ATYPDomain}, want: io.ErrUnexpectedEOF},
		{name: "short_domain", in: []byte{ATYPDomain, 5, 'a', 'b'}, want: io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeAddr(tt.in)
			if !errors.Is(err, ErrHandshake) {
				t.Fatalf("expected ErrHandshake, got %v", err)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeAddrIgnoresTrailingBytes(t *testing.T) {
	b := []byte{ATYPIPv4, 192, 0, 2, 1, 0x1f, 0x90}
	a, n, err := DecodeAddr(b)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("consumed %d, want 5", n)
	}
	if a.String() != "192.0.2.1" {
		t.Fatalf("got %v", a)
	}
}

func TestReadAddr(t *testing.T) {
	a, err := ReadAddr(bytes.NewReader([]byte{3, 'f', 'o', 'o'}), ATYPDomain)
	if err != nil {
		t.Fatal(err)
	}
	if a.String() != "foo" {
		t.Fatalf("got %q", a.String())
	}

	if _, err := ReadAddr(bytes.NewReader(nil), 0x09); !errors.Is(err, ErrUnsupportedAddressType) {
		t.Fatalf("expected ErrUnsupportedAddressType, got %v", err)
	}
}

func TestDomainStringInvalidUTF8(t *testing.T) {
	a := Addr{Type: ATYPDomain, Raw: []byte{'a', 0xff, 'b'}}
	if got := a.String(); got != "a\uFFFDb" {
		t.Fatalf("got %q", got)
	}
}

func TestParseHost(t *testing.T) {
	tests := []struct {
		host     string
		wantType byte
		wantHost string
	}{
		{host: "192.0.2.1", wantType: ATYPIPv4, wantHost: "192.0.2.1"},
		{host: "::ffff:192.0.2.1", wantType: ATYPIPv4, wantHost: "192.0.2.1"},
		{host: "2001:db8::1", wantType: ATYPIPv6, wantHost: "2001:db8::1"},
		{host: "example.com", wantType: ATYPDomain, wantHost: "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			a, err := ParseHost(tt.host)
			if err != nil {
				t.Fatal(err)
			}
			if a.Type != tt.wantType {
				t.Fatalf("type 0x%02x, want 0x%02x", a.Type, tt.wantType)
			}
			if a.Host() != tt.wantHost {
				t.Fatalf("host %q, want %q", a.Host(), tt.wantHost)
			}
		})
	}
}

func TestAddrFromNetAddr(t *testing.T) {
	a, port := AddrFromNetAddr(&net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 1080})
	if a.Type != ATYPIPv4 || a.String() != "10.0.0.1" || port != 1080 {
		t.Fatalf("got %v:%d", a, port)
	}

	a, port = AddrFromNetAddr(&net.UnixAddr{Name: "/tmp/x", Net: "unix"})
	if a.String() != "0.0.0.0" || port != 0 {
		t.Fatalf("got %v:%d", a, port)
	}
}

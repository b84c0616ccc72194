// Package dialer provides outbound dialing used by rotor.
//
// Dialers implement a small interface (DialContext). The direct dialer opens
// TCP connections to upstream proxies; the SOCKS5 proxy dialer runs the
// client-side SOCKS5 handshake over such a connection to open a tunnel to the
// requested target.
package dialer

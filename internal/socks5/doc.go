// Package socks5 implements the SOCKS5 (RFC 1928) handshakes used by rotor.
//
// The server side negotiates no-auth with an arriving client and parses its
// CONNECT request. The client side negotiates with an upstream SOCKS5 proxy,
// optionally authenticating with username/password (RFC 1929), and opens a
// CONNECT tunnel to a target.
//
// Protocol constants and reply framing come from github.com/txthinking/socks5;
// address encoding and the handshake state machines live here so that every
// byte read from or written to the wire is accounted for. BIND and
// UDP ASSOCIATE are not supported.
package socks5

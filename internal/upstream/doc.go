// Package upstream holds the pool of upstream SOCKS5 proxies that inbound
// connections are forwarded through.
//
// The pool publishes immutable snapshots behind an atomic pointer: readers
// never lock, and a reload replaces the whole list at once. A connection keeps
// the snapshot it loaded for its lifetime, so a reload never moves in-flight
// traffic to a different upstream.
package upstream

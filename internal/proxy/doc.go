// Package proxy implements rotor's listener side: the SOCKS5 server that
// accepts clients, forwards each connection through an upstream chosen from
// the pool, and relays bytes until either side closes.
//
// It also multiplexes reload events with the accept loop so that the
// upstream pool can be refreshed while connections keep being served.
package proxy

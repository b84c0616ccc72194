package upstream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/die-net/rotor/internal/socks5"
)

// ErrNoUpstreams is returned when a list has entries but none of them parse.
var ErrNoUpstreams = errors.New("no valid upstreams in list")

// LoadFile reads an upstream list from path. See Parse for the format.
func LoadFile(path string, log zerolog.Logger) ([]Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upstream list: %w", err)
	}
	defer f.Close()

	list, err := Parse(f, log.With().Str("file", path).Logger())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// Parse reads an upstream list, one entry per line:
//
//	# comment
//	192.0.2.1:1080
//	[2001:db8::1]:1080|username:password
//
// Blank lines and comments are ignored. Lines that don't parse are logged and
// skipped. A list with entries but no valid one fails with ErrNoUpstreams; a
// list with no entries at all is empty, not an error.
func Parse(r io.Reader, log zerolog.Logger) ([]Descriptor, error) {
	var (
		list    []Descriptor
		skipped int
	)

	sc := bufio.NewScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		d, err := ParseLine(line)
		if err != nil {
			skipped++
			log.Warn().Int("line", lineNo).Err(err).Msg("skipping invalid upstream")
			continue
		}
		list = append(list, d)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read upstream list: %w", err)
	}

	if len(list) == 0 {
		if skipped > 0 {
			return nil, ErrNoUpstreams
		}
		log.Warn().Msg("upstream list is empty, connections will be refused")
		return nil, nil
	}

	log.Info().Int("upstreams", len(list)).Int("skipped", skipped).Msg("loaded upstream list")
	return list, nil
}

// ParseLine parses a single `host:port[|username:password]` entry.
func ParseLine(line string) (Descriptor, error) {
	addrPart, credPart, hasCreds := strings.Cut(line, "|")
	addrPart = strings.TrimSpace(addrPart)

	host, port, err := net.SplitHostPort(addrPart)
	if err != nil {
		return Descriptor{}, fmt.Errorf("invalid address %q: %w", addrPart, err)
	}
	if host == "" {
		return Descriptor{}, fmt.Errorf("invalid address %q: missing host", addrPart)
	}
	n, err := strconv.ParseUint(port, 10, 16)
	if err != nil || n == 0 {
		return Descriptor{}, fmt.Errorf("invalid address %q: bad port", addrPart)
	}

	d := Descriptor{Addr: net.JoinHostPort(host, port)}
	if !hasCreds {
		return d, nil
	}

	user, pass, ok := strings.Cut(strings.TrimSpace(credPart), ":")
	if !ok {
		return Descriptor{}, errors.New("credentials must be username:password")
	}
	auth := &socks5.Auth{Username: user, Password: pass}
	if err := auth.Validate(); err != nil {
		return Descriptor{}, err
	}
	d.Auth = auth
	return d, nil
}

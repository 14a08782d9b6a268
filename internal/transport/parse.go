package transport

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Parse parses a transport specification string and returns a Transport.
// Supported formats:
//   - "tcp://host:port" -> TCPTransport
//   - "serial:///dev/ttyUSB0?baud=115200" -> SerialTransport
//   - "/dev/ttyUSB0" (bare device path) -> SerialTransport
//   - "host:port" (bare address) -> TCPTransport
func Parse(spec string, opts Options) (Transport, error) {
	if spec == "" {
		return nil, fmt.Errorf("empty transport spec")
	}
	if strings.Contains(spec, "://") {
		return parseURL(spec, opts)
	}
	if strings.HasPrefix(spec, "/") || strings.HasPrefix(strings.ToUpper(spec), "COM") {
		return NewSerialTransport(spec, opts), nil
	}
	if _, _, err := splitHostPort(spec); err != nil {
		return nil, err
	}
	return NewTCPTransport(spec, opts), nil
}

func parseURL(spec string, opts Options) (Transport, error) {
	u, err := url.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}

	switch u.Scheme {
	case "tcp":
		if _, _, err := splitHostPort(u.Host); err != nil {
			return nil, err
		}
		return NewTCPTransport(u.Host, opts), nil
	case "serial":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return nil, fmt.Errorf("serial device path is required")
		}
		if baud := u.Query().Get("baud"); baud != "" {
			n, err := strconv.Atoi(baud)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid baud %q", baud)
			}
			opts.Baud = n
		}
		return NewSerialTransport(path, opts), nil
	default:
		return nil, fmt.Errorf("unsupported transport scheme: %s", u.Scheme)
	}
}

func splitHostPort(addr string) (string, int, error) {
	idx := strings.LastIndex(addr, ":")
	if idx <= 0 {
		return "", 0, fmt.Errorf("address %q must be host:port", addr)
	}
	port, err := strconv.Atoi(addr[idx+1:])
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in %q", addr)
	}
	return addr[:idx], port, nil
}

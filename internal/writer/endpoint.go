package writer

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidEndpoint marks a storage host string that cannot be normalized.
var ErrInvalidEndpoint = errors.New("invalid endpoint")

const defaultInfluxPort = "8086"

// NormalizeEndpoint turns a user-supplied storage host into a canonical base
// URL: http/https only, http:// prepended when schemeless, :8086 appended
// when no port is given. Path and query are left untouched. The function is
// pure and idempotent.
func NormalizeEndpoint(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty server address", ErrInvalidEndpoint)
	}

	if i := strings.Index(s, "://"); i >= 0 {
		scheme := s[:i]
		if scheme != "http" && scheme != "https" {
			return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, scheme)
		}
	} else {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidEndpoint, raw)
	}

	if u.Port() == "" {
		u.Host += ":" + defaultInfluxPort
	}

	return u.String(), nil
}

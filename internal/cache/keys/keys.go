// Package keys builds the Redis keys under which fetched objects are cached.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const prefix = "obj"

// Object returns the key for one storage object. The readable part is
// sanitized and truncated; the hash of the trimmed bucket and path keeps
// keys unique.
func Object(bucket, path string) string {
	b := sanitize(strings.TrimSpace(bucket))
	p := strings.Trim(strings.TrimSpace(path), "/")
	safe := sanitize(p)

	const maxPathLen = 160
	if len(safe) > maxPathLen {
		safe = safe[:maxPathLen]
	}

	sum := xxhash.Sum64String(strings.TrimSpace(bucket) + "\x00" + p)
	return fmt.Sprintf("%s:%s:%s:h=%016x", prefix, b, safe, sum)
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == '/' || r == '.' || r == '_' || r == '-':
			out = r
		default:
			// any other rune, non-ASCII included
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

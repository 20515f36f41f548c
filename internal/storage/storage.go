// Package storage fetches survey objects from the configured object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("object not found")

type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// ObjectPath turns a ':'-separated identifier into a storage path with the
// extension appended: "output:HF2012" -> "output/HF2012.csv".
func ObjectPath(ref, ext string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty file identifier")
	}
	parts := strings.Split(ref, ":")
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.Contains(p, "/") {
			return "", fmt.Errorf("invalid file identifier %q", ref)
		}
	}
	return strings.Join(parts, "/") + "." + ext, nil
}

// Package invalidation defines the object-update events that evict cached
// survey files.
package invalidation

import (
	"fmt"
	"strings"
	"time"
)

const (
	OpPut    = "put"
	OpDelete = "delete"
)

// Event reports that an object in the survey bucket was written or removed.
type Event struct {
	Version uint64    `json:"version"`
	Op      string    `json:"op"`
	Bucket  string    `json:"bucket"`
	Path    string    `json:"path"`
	TS      time.Time `json:"ts"`
}

func (e Event) Validate() error {
	if e.Version == 0 {
		return fmt.Errorf("version must be >= 1")
	}
	switch e.Op {
	case OpPut, OpDelete:
	default:
		return fmt.Errorf("op must be put|delete")
	}
	if strings.TrimSpace(e.Bucket) == "" {
		return fmt.Errorf("bucket is required")
	}
	p := strings.Trim(strings.TrimSpace(e.Path), "/")
	if p == "" {
		return fmt.Errorf("path is required")
	}
	for seg := range strings.SplitSeq(p, "/") {
		if seg == ".." {
			return fmt.Errorf("path must not contain '..'")
		}
	}
	return nil
}

// ObjectKey identifies the object for version ordering.
func (e Event) ObjectKey() string {
	return e.Bucket + "/" + strings.Trim(strings.TrimSpace(e.Path), "/")
}

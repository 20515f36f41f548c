package invalidation

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func mustTS() time.Time { return time.Date(2025, 10, 26, 12, 30, 45, 0, time.UTC) }

func TestEvent_DecodeWireFormat(t *testing.T) {
	raw := `{"version":3,"op":"put","bucket":"haig-fras","path":"hf2012/summary.csv","ts":"2025-10-26T12:30:45Z"}`
	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if ev.Version != 3 || !ev.TS.Equal(mustTS()) || ev.ObjectKey() != "haig-fras/hf2012/summary.csv" {
		t.Fatalf("decoded %+v", ev)
	}
}

func TestEvent_Validate_HappyPath(t *testing.T) {
	ev := Event{Version: 1, Op: OpDelete, Bucket: "haig-fras", Path: "/hf2012/meta.csv", TS: mustTS()}
	if err := ev.Validate(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if got := ev.ObjectKey(); got != "haig-fras/hf2012/meta.csv" {
		t.Fatalf("key=%q", got)
	}
}

func TestEvent_Validate_Rejects(t *testing.T) {
	base := Event{Version: 1, Op: OpPut, Bucket: "b", Path: "a.csv"}
	cases := map[string]func(*Event){
		"zero version": func(e *Event) { e.Version = 0 },
		"unknown op":   func(e *Event) { e.Op = "update" },
		"no bucket":    func(e *Event) { e.Bucket = " " },
		"no path":      func(e *Event) { e.Path = "/" },
		"dot dot":      func(e *Event) { e.Path = "hf/../secret.csv" },
	}
	for name, mut := range cases {
		ev := base
		mut(&ev)
		if err := ev.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

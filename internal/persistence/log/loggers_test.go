package log

import (
	"path/filepath"
	"testing"
	"time"

	"tilecraft.ai/internal/sim/world"
)

func TestEventLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLogger(dir)
	at := time.Date(2024, 5, 1, 13, 30, 0, 0, time.UTC)
	l.w.now = func() time.Time { return at }

	in := []world.Event{
		{Tick: 1, Kind: world.EventFocus, From: &[2]int{0, 0}, To: &[2]int{1, 0}},
		{Tick: 2, Kind: world.EventPlace, Tile: "Dirt", At: &[2]float64{10, 20}},
		{Tick: 300, Kind: world.EventSave, Chunks: 9, Bytes: 412},
	}
	for _, e := range in {
		if err := l.WriteEvent(e); err != nil {
			t.Fatalf("WriteEvent: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := ReadEvents(filepath.Join(dir, "events", "events-2024-05-01-13.jsonl.zst"))
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("got %d events", len(got))
	}
	if got[0].Kind != world.EventFocus || *got[0].To != [2]int{1, 0} {
		t.Fatalf("focus event = %+v", got[0])
	}
	if got[1].Tile != "Dirt" || *got[1].At != [2]float64{10, 20} {
		t.Fatalf("place event = %+v", got[1])
	}
	if got[2].Chunks != 9 || got[2].Bytes != 412 {
		t.Fatalf("save event = %+v", got[2])
	}
}

func TestWriterRotatesByHour(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "events")
	at := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return at }

	if err := w.Write(world.Event{Tick: 1, Kind: world.EventSave}); err != nil {
		t.Fatal(err)
	}
	at = at.Add(2 * time.Minute)
	if err := w.Write(world.Event{Tick: 2, Kind: world.EventSave}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"events-2024-05-01-23.jsonl.zst", "events-2024-05-02-00.jsonl.zst"} {
		got, err := ReadEvents(filepath.Join(dir, name))
		if err != nil || len(got) != 1 {
			t.Fatalf("%s: %d events, err=%v", name, len(got), err)
		}
	}
}

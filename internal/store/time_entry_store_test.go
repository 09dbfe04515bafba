package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nhle/worklog/internal/model"
)

func openEntryCount(s *TimeEntryStore) int {
	n := 0
	for _, e := range s.List() {
		if e.Open() {
			n++
		}
	}
	return n
}

func TestStartStopLifecycle(t *testing.T) {
	s := NewTimeEntryStore(filepath.Join(t.TempDir(), TimeEntriesFile))

	entry, err := s.Start("task-1", "design")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !entry.Open() {
		t.Fatal("started entry must be open")
	}
	active, ok := s.Active()
	if !ok || active.ID != entry.ID {
		t.Fatalf("active = %+v, want %s", active, entry.ID)
	}

	stopped, err := s.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stopped == nil || stopped.ID != entry.ID {
		t.Fatalf("stopped = %+v, want entry %s", stopped, entry.ID)
	}
	if stopped.EndTime == nil {
		t.Fatal("stopped entry must have an end time")
	}
	if stopped.DurationSeconds < 0 {
		t.Fatalf("duration = %d, want >= 0", stopped.DurationSeconds)
	}
	if want := int64(stopped.EndTime.Sub(stopped.StartTime).Seconds()); stopped.DurationSeconds != want {
		t.Fatalf("duration = %d, want end-start = %d", stopped.DurationSeconds, want)
	}
	if _, ok := s.Active(); ok {
		t.Fatal("no entry should be active after stop")
	}
}

func TestStopWhenIdleIsNoOp(t *testing.T) {
	s := NewTimeEntryStore(filepath.Join(t.TempDir(), TimeEntriesFile))

	stopped, err := s.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stopped != nil {
		t.Fatalf("stop on idle = %+v, want nil", stopped)
	}
}

func TestStartAutoStopsRunningEntry(t *testing.T) {
	s := NewTimeEntryStore(filepath.Join(t.TempDir(), TimeEntriesFile))

	first, err := s.Start("task-1", "design")
	if err != nil {
		t.Fatalf("start first: %v", err)
	}
	second, err := s.Start("task-1", "coding")
	if err != nil {
		t.Fatalf("start second: %v", err)
	}

	if openEntryCount(s) != 1 {
		t.Fatalf("open entries = %d, want exactly 1", openEntryCount(s))
	}

	closed, _ := s.Get(first.ID)
	if closed.EndTime == nil {
		t.Fatal("previous entry must be closed by the new start")
	}
	if want := int64(closed.EndTime.Sub(closed.StartTime).Seconds()); closed.DurationSeconds != want {
		t.Fatalf("duration = %d, want end-start = %d", closed.DurationSeconds, want)
	}

	active, ok := s.Active()
	if !ok || active.ID != second.ID {
		t.Fatalf("active = %+v, want %s", active, second.ID)
	}
}

func TestSingleActiveInvariantSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), TimeEntriesFile)

	s := NewTimeEntryStore(path)
	for i := 0; i < 5; i++ {
		if _, err := s.Start("task-1", ""); err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
	}

	reopened, err := OpenTimeEntryStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if openEntryCount(reopened) != 1 {
		t.Fatalf("open entries after reopen = %d, want 1", openEntryCount(reopened))
	}
	if _, ok := reopened.Active(); !ok {
		t.Fatal("reopen must rediscover the running entry")
	}
}

func TestElapsedIncludesLiveTail(t *testing.T) {
	s := NewTimeEntryStore(filepath.Join(t.TempDir(), TimeEntriesFile))

	// A completed hour recorded by editing the boundaries.
	entry, err := s.Start("task-1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	start := time.Now().UTC().Add(-2 * time.Hour)
	end := start.Add(time.Hour)
	if _, err := s.Update(entry.ID, model.TimeEntryPatch{StartTime: &start, EndTime: &end}); err != nil {
		t.Fatalf("update boundaries: %v", err)
	}

	if got := s.ElapsedSeconds("task-1"); got != 3600 {
		t.Fatalf("elapsed = %d, want 3600", got)
	}

	// A running entry adds its live tail for its own task only.
	if _, err := s.Start("task-1", ""); err != nil {
		t.Fatalf("start live: %v", err)
	}
	if got := s.ElapsedSeconds("task-1"); got < 3600 {
		t.Fatalf("elapsed with live tail = %d, want >= 3600", got)
	}
	if got := s.ElapsedSeconds("task-2"); got != 0 {
		t.Fatalf("elapsed for other task = %d, want 0", got)
	}

	// The live tail is a read-time adjustment, never persisted.
	active, _ := s.Active()
	if active.DurationSeconds != 0 {
		t.Fatalf("running entry persisted duration = %d, want 0", active.DurationSeconds)
	}
}

func TestBoundaryEditRecomputesDuration(t *testing.T) {
	s := NewTimeEntryStore(filepath.Join(t.TempDir(), TimeEntriesFile))

	entry, err := s.Start("task-1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	// Editing only the start recomputes against the existing end.
	got, _ := s.Get(entry.ID)
	newStart := got.EndTime.Add(-30 * time.Minute)
	updated, err := s.Update(entry.ID, model.TimeEntryPatch{StartTime: &newStart})
	if err != nil {
		t.Fatalf("update start: %v", err)
	}
	if updated.DurationSeconds != 1800 {
		t.Fatalf("duration = %d, want 1800", updated.DurationSeconds)
	}

	// Editing only the end recomputes against the existing start.
	newEnd := newStart.Add(45 * time.Minute)
	updated, err = s.Update(entry.ID, model.TimeEntryPatch{EndTime: &newEnd})
	if err != nil {
		t.Fatalf("update end: %v", err)
	}
	if updated.DurationSeconds != 2700 {
		t.Fatalf("duration = %d, want 2700", updated.DurationSeconds)
	}
}

func TestDeleteActiveEntryClearsSlot(t *testing.T) {
	s := NewTimeEntryStore(filepath.Join(t.TempDir(), TimeEntriesFile))

	entry, err := s.Start("task-1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	removed, err := s.Delete(entry.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !removed {
		t.Fatal("expected removal")
	}
	if _, ok := s.Active(); ok {
		t.Fatal("active slot must be cleared when the running entry is deleted")
	}
}

func TestStartSaveFailureRestoresRunningEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), TimeEntriesFile)
	s := NewTimeEntryStore(path)

	first, err := s.Start("task-1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	blockSave(t, path)
	if _, err := s.Start("task-2", ""); err == nil {
		t.Fatal("expected start to fail when the save fails")
	}

	active, ok := s.Active()
	if !ok || active.ID != first.ID {
		t.Fatalf("active = %+v, want the original entry %s still running", active, first.ID)
	}
	if !active.Open() {
		t.Fatal("original entry must still be open after failed start")
	}
	if n := openEntryCount(s); n != 1 {
		t.Fatalf("open entries = %d, want 1", n)
	}
}

func TestStopSaveFailureKeepsTimerRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), TimeEntriesFile)
	s := NewTimeEntryStore(path)

	entry, err := s.Start("task-1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	blockSave(t, path)
	if _, err := s.Stop(); err == nil {
		t.Fatal("expected stop to fail when the save fails")
	}

	active, ok := s.Active()
	if !ok || active.ID != entry.ID || !active.Open() {
		t.Fatalf("active = %+v, want %s still running after failed stop", active, entry.ID)
	}

	// Once the file is writable again, a retried stop must persist.
	if err := os.Remove(path); err != nil {
		t.Fatalf("unblock store file: %v", err)
	}
	stopped, err := s.Stop()
	if err != nil {
		t.Fatalf("retried stop: %v", err)
	}
	if stopped == nil || stopped.ID != entry.ID {
		t.Fatalf("retried stop returned %+v, want %s", stopped, entry.ID)
	}

	reopened, err := OpenTimeEntryStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	got, _ := reopened.Get(entry.ID)
	if got.Open() {
		t.Fatal("entry still open on disk after retried stop")
	}
}

package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestStore creates a Store backed by a file in a temp dir.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	tables := []string{"calibrations", "settings", "sessions", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s should exist: %v", table, err)
		}
	}

	version, dirty, err := s.Version()
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("Version() = %d, dirty=%v; want 2, false", version, dirty)
	}
}

func TestNewStore_ReopenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s.Settings().Set(KeyMode, "face"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s.Close()

	got, err := s.Settings().Get(KeyMode)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "face" {
		t.Errorf("mode = %q, want face", got)
	}
}

func TestStore_MigrateDown(t *testing.T) {
	s := newTestStore(t)

	if err := s.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}

	version, _, err := s.Version()
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != 1 {
		t.Errorf("version after down = %d, want 1", version)
	}

	var n int
	s.DB().QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name='sessions'").Scan(&n)
	if n != 0 {
		t.Error("sessions table should be dropped")
	}
}

func TestCalibrations_CreateAndLatest(t *testing.T) {
	s := newTestStore(t)
	repo := s.Calibrations()

	if _, err := repo.Latest(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Latest on empty table = %v, want ErrNotFound", err)
	}

	first := &Calibration{FocalLengthPx: 769.23, WidthPx: 100, KnownWidthCM: 6.5, CalibDistanceCM: 50, Mode: "colour"}
	if err := repo.Create(first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.ID == 0 {
		t.Error("ID should be set after create")
	}
	if first.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set after create")
	}

	second := &Calibration{FocalLengthPx: 500, WidthPx: 65, KnownWidthCM: 6.5, CalibDistanceCM: 50, Mode: "face"}
	if err := repo.Create(second); err != nil {
		t.Fatalf("Create: %v", err)
	}

	latest, err := repo.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != second.ID || latest.FocalLengthPx != 500 || latest.Mode != "face" {
		t.Errorf("Latest = %+v, want second calibration", latest)
	}
	if latest.WidthPx != 65 {
		t.Errorf("WidthPx = %d, want 65", latest.WidthPx)
	}
}

func TestCalibrations_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Calibrations()

	for i := 1; i <= 5; i++ {
		c := &Calibration{FocalLengthPx: float64(i * 100), WidthPx: i * 10, KnownWidthCM: 6.5, CalibDistanceCM: 50}
		if err := repo.Create(c); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, err := repo.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("List(0) returned %d rows, want 5", len(all))
	}
	if all[0].FocalLengthPx != 500 {
		t.Errorf("first row focal = %v, want newest (500)", all[0].FocalLengthPx)
	}

	some, err := repo.List(2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(some) != 2 {
		t.Errorf("List(2) returned %d rows", len(some))
	}
}

func TestSettings_GetSetDelete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if _, err := repo.Get("display.show_mask"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}

	if err := repo.Set("display.show_mask", "true"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := repo.Set("display.show_mask", "false"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	got, err := repo.Get("display.show_mask")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "false" {
		t.Errorf("Get = %q, want 800", got)
	}

	if err := repo.Delete("display.show_mask"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get("display.show_mask"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := repo.Delete("missing"); err != nil {
		t.Errorf("Delete missing key: %v", err)
	}
}

func TestSessions_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess, err := repo.Start("colour")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("session ID should be set")
	}
	if sess.EndedAt != nil {
		t.Error("new session should be open")
	}

	sess.Frames = 300
	sess.FramesFound = 120
	sess.ModeSwitches = 2
	sess.Calibrations = 1
	sess.Mode = "face"
	if err := repo.Finish(sess); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	got, err := repo.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Frames != 300 || got.FramesFound != 120 || got.ModeSwitches != 2 || got.Calibrations != 1 {
		t.Errorf("counters = %+v", got)
	}
	if got.Mode != "face" {
		t.Errorf("Mode = %q, want face", got.Mode)
	}
	if got.EndedAt == nil {
		t.Fatal("EndedAt should be set after Finish")
	}
	if got.EndedAt.Before(got.StartedAt.Add(-time.Second)) {
		t.Errorf("EndedAt %v before StartedAt %v", got.EndedAt, got.StartedAt)
	}
}

func TestSessions_SaveUnknown(t *testing.T) {
	s := newTestStore(t)

	err := s.Sessions().Save(&Session{ID: "nope", Mode: "idle"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Save unknown = %v, want ErrNotFound", err)
	}
	if _, err := s.Sessions().Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get unknown = %v, want ErrNotFound", err)
	}
}

func TestSessions_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	for _, mode := range []string{"colour", "person", "face"} {
		if _, err := repo.Start(mode); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}

	list, err := repo.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List returned %d sessions, want 3", len(list))
	}
	if list[0].Mode != "face" {
		t.Errorf("newest session mode = %q, want face", list[0].Mode)
	}
}

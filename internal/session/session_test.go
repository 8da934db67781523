package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/azqeurio/sequential-selecter/pkg/mover"
)

type fakeRatings struct {
	moves [][2]string
	fail  bool
}

func (f *fakeRatings) Relocate(from, to string) error {
	if f.fail {
		return errors.New("database is locked")
	}
	f.moves = append(f.moves, [2]string{from, to})
	return nil
}

func newSession(t *testing.T, pairs bool, files map[string]string) (*Session, afero.Fs, *fakeRatings) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("创建目录失败: %v", err)
		}
		if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
			t.Fatalf("创建测试文件失败: %v", err)
		}
	}

	ratings := &fakeRatings{}
	s := New(Options{Fs: fs, PairMode: pairs, Verify: true, Ratings: ratings})
	if err := s.SetTarget(1, "/keep"); err != nil {
		t.Fatalf("SetTarget() error = %v", err)
	}
	if err := s.SetTarget(2, "/reject"); err != nil {
		t.Fatalf("SetTarget() error = %v", err)
	}
	return s, fs, ratings
}

func exists(fs afero.Fs, path string) bool {
	ok, _ := afero.Exists(fs, path)
	return ok
}

func TestSession_Targets(t *testing.T) {
	s := New(Options{Fs: afero.NewMemMapFs()})

	if _, err := s.Target(1); !errors.Is(err, ErrTargetNotSet) {
		t.Errorf("Expected ErrTargetNotSet, got %v", err)
	}
	if err := s.SetTarget(3, "/x"); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("Expected ErrInvalidTarget, got %v", err)
	}
	if _, err := s.MoveFiles([]string{"/a.jpg"}, 2); !errors.Is(err, ErrTargetNotSet) {
		t.Errorf("MoveFiles without target should fail, got %v", err)
	}

	if err := s.SetTarget(2, "/reject/"); err != nil {
		t.Fatalf("SetTarget() error = %v", err)
	}
	if dir, _ := s.Target(2); dir != "/reject" {
		t.Errorf("Expected cleaned target, got %s", dir)
	}
}

func TestSession_MoveSelectedWithPairs(t *testing.T) {
	s, fs, ratings := newSession(t, true, map[string]string{
		"/shoot/IMG_001.CR2": "raw",
		"/shoot/IMG_001.jpg": "jpg",
		"/shoot/IMG_001.xmp": "xmp",
		"/shoot/IMG_002.jpg": "two",
		"/shoot/IMG_003.jpg": "three",
	})

	s.Selection().Add("/shoot/IMG_001.jpg")
	s.Selection().Add("/shoot/IMG_002.jpg")

	report, err := s.MoveSelected(1)
	if err != nil {
		t.Fatalf("MoveSelected() error = %v", err)
	}

	if len(report.Moved) != 4 || len(report.Failed) != 0 {
		t.Fatalf("Expected 4 moved files, got %d moved %d failed", len(report.Moved), len(report.Failed))
	}
	for _, entry := range report.Moved {
		if entry.BatchID != report.BatchID || report.BatchID == "" {
			t.Error("All entries should share the batch id")
		}
		if entry.Checksum == 0 {
			t.Error("Expected checksum when verification is enabled")
		}
	}
	for _, name := range []string{"IMG_001.CR2", "IMG_001.jpg", "IMG_001.xmp", "IMG_002.jpg"} {
		if !exists(fs, filepath.Join("/keep", name)) {
			t.Errorf("Expected %s in target 1", name)
		}
	}
	if !exists(fs, "/shoot/IMG_003.jpg") {
		t.Error("Unselected file must stay")
	}
	if s.Selection().Len() != 0 {
		t.Errorf("Moved files should leave the selection, %d left", s.Selection().Len())
	}
	if len(ratings.moves) != 4 {
		t.Errorf("Expected 4 rating relocations, got %d", len(ratings.moves))
	}
	if s.UndoDepth() != 4 {
		t.Errorf("Expected undo depth 4, got %d", s.UndoDepth())
	}

	outcomes, err := s.Undo()
	if err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if len(outcomes) != 4 {
		t.Errorf("Undo should revert the whole batch, got %d", len(outcomes))
	}
	for _, name := range []string{"IMG_001.CR2", "IMG_001.jpg", "IMG_001.xmp", "IMG_002.jpg"} {
		if !exists(fs, filepath.Join("/shoot", name)) {
			t.Errorf("Expected %s back in source folder", name)
		}
	}
	if len(ratings.moves) != 8 {
		t.Errorf("Ratings should follow undo, got %d relocations", len(ratings.moves))
	}
	last := ratings.moves[len(ratings.moves)-1]
	if filepath.Dir(last[0]) != "/keep" || filepath.Dir(last[1]) != "/shoot" {
		t.Errorf("Unexpected relocation %v", last)
	}

	if _, err := s.Redo(); err != nil {
		t.Fatalf("Redo() error = %v", err)
	}
	if !exists(fs, "/keep/IMG_001.CR2") || s.RedoDepth() != 0 {
		t.Error("Redo should move the batch to target 1 again")
	}
}

func TestSession_PairModeOff(t *testing.T) {
	s, fs, _ := newSession(t, false, map[string]string{
		"/shoot/IMG_001.CR2": "raw",
		"/shoot/IMG_001.jpg": "jpg",
		"/shoot/IMG_001.xmp": "xmp",
	})

	report, err := s.MoveFiles([]string{"/shoot/IMG_001.jpg"}, 2)
	if err != nil {
		t.Fatalf("MoveFiles() error = %v", err)
	}
	if len(report.Moved) != 2 {
		t.Errorf("Expected image and sidecar to move, got %d", len(report.Moved))
	}
	if !exists(fs, "/shoot/IMG_001.CR2") {
		t.Error("RAW pair must stay when pair mode is off")
	}
	if !exists(fs, "/reject/IMG_001.xmp") {
		t.Error("Sidecar should always travel with its photo")
	}
}

func TestSession_PartialFailure(t *testing.T) {
	s, fs, _ := newSession(t, false, map[string]string{
		"/shoot/a.jpg": "a",
		"/shoot/b.jpg": "b",
	})

	s.Selection().Add("/shoot/a.jpg")
	s.Selection().Add("/shoot/gone.jpg")
	s.Selection().Add("/shoot/b.jpg")

	report, err := s.MoveSelected(1)
	if err != nil {
		t.Fatalf("MoveSelected() error = %v", err)
	}
	if len(report.Moved) != 2 || len(report.Failed) != 1 {
		t.Fatalf("Expected 2 moved and 1 failed, got %d/%d", len(report.Moved), len(report.Failed))
	}
	if !errors.Is(report.Failed[0].Err, mover.ErrSourceMissing) {
		t.Errorf("Expected ErrSourceMissing, got %v", report.Failed[0].Err)
	}
	if !s.Selection().Contains("/shoot/gone.jpg") || s.Selection().Len() != 1 {
		t.Error("Failed paths should stay selected")
	}
	if !exists(fs, "/keep/a.jpg") || !exists(fs, "/keep/b.jpg") {
		t.Error("Successful moves should not be affected by a failure")
	}
}

func TestSession_CollisionAndUndo(t *testing.T) {
	s, fs, _ := newSession(t, false, map[string]string{
		"/shoot/IMG_001.jpg": "mine",
		"/keep/IMG_001.jpg":  "theirs",
	})

	report, err := s.MoveFiles([]string{"/shoot/IMG_001.jpg"}, 1)
	if err != nil {
		t.Fatalf("MoveFiles() error = %v", err)
	}
	if report.Moved[0].DestPath != filepath.Join("/keep", "IMG_001_1.jpg") {
		t.Errorf("Expected disambiguated name, got %s", report.Moved[0].DestPath)
	}

	if _, err := s.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if !exists(fs, "/shoot/IMG_001.jpg") || exists(fs, "/keep/IMG_001_1.jpg") {
		t.Error("Undo should restore the original name and remove the copy")
	}
	data, _ := afero.ReadFile(fs, "/keep/IMG_001.jpg")
	if string(data) != "theirs" {
		t.Error("Pre-existing file must be untouched")
	}
}

func TestSession_SameFolderSkipped(t *testing.T) {
	s, _, _ := newSession(t, false, map[string]string{
		"/keep/a.jpg": "a",
	})

	report, err := s.MoveFiles([]string{"/keep/a.jpg"}, 1)
	if err != nil {
		t.Fatalf("MoveFiles() error = %v", err)
	}
	if len(report.Skipped) != 1 || len(report.Moved) != 0 {
		t.Errorf("Expected file already in target to be skipped, got %+v", report)
	}
	if s.UndoDepth() != 0 {
		t.Error("Skipped files must not be journaled")
	}
}

func TestSession_SameFolderRelativeTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	if err := os.WriteFile(src, []byte("a"), 0644); err != nil {
		t.Fatalf("创建测试文件失败: %v", err)
	}
	t.Chdir(dir)

	s := New(Options{Fs: afero.NewOsFs()})
	if err := s.SetTarget(1, "."); err != nil {
		t.Fatalf("SetTarget() error = %v", err)
	}
	if target, _ := s.Target(1); target != dir {
		t.Errorf("Expected absolute target %s, got %s", dir, target)
	}

	report, err := s.MoveFiles([]string{src}, 1)
	if err != nil {
		t.Fatalf("MoveFiles() error = %v", err)
	}
	if len(report.Skipped) != 1 || len(report.Moved) != 0 {
		t.Errorf("Expected file already in target to be skipped, got %+v", report)
	}
	if _, err := os.Stat(filepath.Join(dir, "a_1.jpg")); err == nil {
		t.Error("File must not be renamed in place")
	}
	if s.UndoDepth() != 0 {
		t.Error("Skipped files must not be journaled")
	}
}

func TestSession_RatingFailureNotFatal(t *testing.T) {
	s, fs, ratings := newSession(t, false, map[string]string{"/shoot/a.jpg": "a"})
	ratings.fail = true

	report, err := s.MoveFiles([]string{"/shoot/a.jpg"}, 1)
	if err != nil {
		t.Fatalf("MoveFiles() error = %v", err)
	}
	if len(report.Moved) != 1 || !exists(fs, "/keep/a.jpg") {
		t.Error("Rating errors must not block moves")
	}
}

func TestSession_UndoEmpty(t *testing.T) {
	s, _, _ := newSession(t, false, nil)

	outcomes, err := s.Undo()
	if err != nil || len(outcomes) != 0 {
		t.Errorf("Undo on empty session should be a no-op, got %v %v", outcomes, err)
	}
}

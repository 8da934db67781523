package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func openTestDB(t *testing.T) (*Database, string) {
	t.Helper()
	tempDir := t.TempDir()

	db, err := NewDatabase(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, tempDir
}

func TestNewDatabase(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "nested", "test.db")

	db, err := NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	defer db.Close()

	if db.db == nil {
		t.Error("Expected database connection")
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Expected database file to be created")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	got, err := expandPath("~/ratings.db")
	if err != nil {
		t.Fatalf("expandPath() error = %v", err)
	}
	if got != filepath.Join(home, "ratings.db") {
		t.Errorf("expandPath() = %s", got)
	}

	if got, _ := expandPath("/abs/ratings.db"); got != "/abs/ratings.db" {
		t.Errorf("Absolute path should be unchanged, got %s", got)
	}
}

func TestDatabase_SaveAndGetRating(t *testing.T) {
	db, dir := openTestDB(t)
	photo := filepath.Join(dir, "IMG_001.jpg")

	stars, err := db.GetRating(photo)
	if err != nil {
		t.Fatalf("GetRating() error = %v", err)
	}
	if stars != 0 {
		t.Errorf("Expected unrated file to return 0, got %d", stars)
	}

	if err := db.SaveRating(photo, 3, "2024-05-17", "Canon EOS R5"); err != nil {
		t.Fatalf("SaveRating() error = %v", err)
	}
	if err := db.SaveRating(photo, 5, "2024-05-17", "Canon EOS R5"); err != nil {
		t.Fatalf("SaveRating() update error = %v", err)
	}

	stars, err = db.GetRating(photo)
	if err != nil {
		t.Fatalf("GetRating() error = %v", err)
	}
	if stars != 5 {
		t.Errorf("Expected updated rating 5, got %d", stars)
	}

	ratings, err := db.LoadRatings(dir, Filter{})
	if err != nil {
		t.Fatalf("LoadRatings() error = %v", err)
	}
	if len(ratings) != 1 {
		t.Errorf("Upsert should keep a single row, got %d", len(ratings))
	}
}

func TestDatabase_SaveRating_Invalid(t *testing.T) {
	db, dir := openTestDB(t)

	for _, stars := range []int{-1, 6} {
		err := db.SaveRating(filepath.Join(dir, "a.jpg"), stars, "", "")
		if !errors.Is(err, ErrInvalidRating) {
			t.Errorf("SaveRating(%d) expected ErrInvalidRating, got %v", stars, err)
		}
	}
}

func TestDatabase_RemoveAndClear(t *testing.T) {
	db, dir := openTestDB(t)
	other := filepath.Join(dir, "other")

	for i := 0; i < 3; i++ {
		if err := db.SaveRating(filepath.Join(dir, fmt.Sprintf("IMG_%03d.jpg", i)), i+1, "", ""); err != nil {
			t.Fatalf("SaveRating() error = %v", err)
		}
	}
	if err := db.SaveRating(filepath.Join(other, "keep.jpg"), 4, "", ""); err != nil {
		t.Fatalf("SaveRating() error = %v", err)
	}

	if err := db.RemoveRating(filepath.Join(dir, "IMG_000.jpg")); err != nil {
		t.Fatalf("RemoveRating() error = %v", err)
	}
	if stars, _ := db.GetRating(filepath.Join(dir, "IMG_000.jpg")); stars != 0 {
		t.Errorf("Expected removed rating to be 0, got %d", stars)
	}

	n, err := db.ClearFolder(dir)
	if err != nil {
		t.Fatalf("ClearFolder() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 ratings cleared, got %d", n)
	}

	if stars, _ := db.GetRating(filepath.Join(other, "keep.jpg")); stars != 4 {
		t.Error("ClearFolder must not touch other folders")
	}
}

func TestDatabase_LoadRatings_Filter(t *testing.T) {
	db, dir := openTestDB(t)

	rows := []struct {
		name   string
		stars  int
		date   string
		camera string
	}{
		{"c.jpg", 2, "2024-05-17", "Canon EOS R5"},
		{"a.jpg", 5, "2024-05-17", "NIKON Z 6"},
		{"b.jpg", 4, "2024-05-18", "Canon EOS R5"},
		{"d.jpg", 1, "", ""},
	}
	for _, r := range rows {
		if err := db.SaveRating(filepath.Join(dir, r.name), r.stars, r.date, r.camera); err != nil {
			t.Fatalf("SaveRating() error = %v", err)
		}
	}

	testCases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"}},
		{"date", Filter{Date: "2024-05-17"}, []string{"a.jpg", "c.jpg"}},
		{"camera", Filter{Camera: "Canon EOS R5"}, []string{"b.jpg", "c.jpg"}},
		{"stars", Filter{MinStars: 4}, []string{"a.jpg", "b.jpg"}},
		{"combined", Filter{Date: "2024-05-17", Camera: "Canon EOS R5"}, []string{"c.jpg"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ratings, err := db.LoadRatings(dir, tc.filter)
			if err != nil {
				t.Fatalf("LoadRatings() error = %v", err)
			}
			var got []string
			for _, r := range ratings {
				got = append(got, r.Filename)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("LoadRatings() = %v, want %v", got, tc.want)
			}
		})
	}

	dates, cameras, err := db.UniqueFilters(dir)
	if err != nil {
		t.Fatalf("UniqueFilters() error = %v", err)
	}
	if !reflect.DeepEqual(dates, []string{"2024-05-17", "2024-05-18"}) {
		t.Errorf("Unexpected dates %v", dates)
	}
	if !reflect.DeepEqual(cameras, []string{"Canon EOS R5", "NIKON Z 6"}) {
		t.Errorf("Unexpected cameras %v", cameras)
	}
}

func TestDatabase_Relocate(t *testing.T) {
	db, dir := openTestDB(t)
	src := filepath.Join(dir, "src", "IMG_001.jpg")
	dest := filepath.Join(dir, "target1", "IMG_001_1.jpg")

	if err := db.SaveRating(src, 4, "2024-05-17", "Canon EOS R5"); err != nil {
		t.Fatalf("SaveRating() error = %v", err)
	}
	// 目标位置残留的评分会被替换
	if err := db.SaveRating(dest, 1, "", ""); err != nil {
		t.Fatalf("SaveRating() error = %v", err)
	}

	if err := db.Relocate(src, dest); err != nil {
		t.Fatalf("Relocate() error = %v", err)
	}

	if stars, _ := db.GetRating(src); stars != 0 {
		t.Errorf("Expected old path to be unrated, got %d", stars)
	}
	if stars, _ := db.GetRating(dest); stars != 4 {
		t.Errorf("Expected rating to follow the file, got %d", stars)
	}

	// 没有评分的文件不受影响
	if err := db.Relocate(filepath.Join(dir, "none.jpg"), filepath.Join(dir, "x.jpg")); err != nil {
		t.Errorf("Relocate() of unrated file error = %v", err)
	}
}

func TestDatabase_Persistence(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")
	photo := filepath.Join(tempDir, "a.jpg")

	db1, err := NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("First NewDatabase() error = %v", err)
	}
	if err := db1.SaveRating(photo, 3, "", ""); err != nil {
		t.Fatalf("SaveRating() error = %v", err)
	}
	if err := db1.Close(); err != nil {
		t.Fatalf("First Close() error = %v", err)
	}

	db2, err := NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("Second NewDatabase() error = %v", err)
	}
	defer db2.Close()

	stars, err := db2.GetRating(photo)
	if err != nil {
		t.Fatalf("GetRating() error = %v", err)
	}
	if stars != 3 {
		t.Error("Expected rating to persist across database reopen")
	}
}

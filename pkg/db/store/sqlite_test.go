package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/heroku-miraheze/ed2kd/pkg/db/models"
	"github.com/heroku-miraheze/ed2kd/pkg/ed2k"
	"gorm.io/gorm"
)

// testCatalog creates a migrated file-backed catalog for one test.
func testCatalog(t *testing.T) *SQLiteStore {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "catalog.db") + "?" + strings.TrimPrefix(DSNPragmas, "&")
	s, err := NewSQLiteStore(SQLiteConfig{DSN: dsn})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func hashOf(b byte) [ed2k.HashSize]byte {
	var h [ed2k.HashSize]byte
	for i := range h {
		h[i] = b
	}
	return h
}

func shareOne(t *testing.T, s *SQLiteStore, owner Endpoint, in FileShareInput) {
	t.Helper()
	if err := s.ShareFiles(context.Background(), owner, []FileShareInput{in}); err != nil {
		t.Fatalf("ShareFiles: %v", err)
	}
}

// fileRecord loads the record for a hash, reporting whether it exists.
func fileRecord(t *testing.T, s *SQLiteStore, hash [ed2k.HashSize]byte) (*models.FileRecord, bool) {
	t.Helper()
	var rec models.FileRecord
	err := s.db.Where("fid = ?", int64(ed2k.FileKey(hash))).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false
	}
	if err != nil {
		t.Fatalf("load file record: %v", err)
	}
	return &rec, true
}

// groundTruth recomputes the derived counters from the source rows.
func groundTruth(t *testing.T, s *SQLiteStore, hash [ed2k.HashSize]byte) (avail, complete, rated, ratingSum int64) {
	t.Helper()
	row := s.db.Raw(`SELECT COUNT(*),
		COALESCE(SUM(complete), 0),
		COALESCE(SUM(rating <> 0), 0),
		COALESCE(SUM(rating), 0)
		FROM sources WHERE fid = ?`, int64(ed2k.FileKey(hash))).Row()
	if err := row.Scan(&avail, &complete, &rated, &ratingSum); err != nil {
		t.Fatalf("recompute counters: %v", err)
	}
	return
}

func checkCounters(t *testing.T, s *SQLiteStore, hash [ed2k.HashSize]byte) {
	t.Helper()
	avail, complete, rated, ratingSum := groundTruth(t, s, hash)

	rec, ok := fileRecord(t, s, hash)
	if avail == 0 {
		if ok {
			t.Fatalf("file record with no sources not pruned: %+v", rec)
		}
		return
	}
	if !ok {
		t.Fatalf("file record missing with %d live sources", avail)
	}
	if rec.SrcAvail != avail || rec.SrcComplete != complete || rec.RatedCount != rated || rec.Rating != ratingSum {
		t.Fatalf("counters (%d,%d,%d,%d) disagree with ground truth (%d,%d,%d,%d)",
			rec.SrcAvail, rec.SrcComplete, rec.RatedCount, rec.Rating,
			avail, complete, rated, ratingSum)
	}
}

func TestShareFiles_CreatesRecordAndSource(t *testing.T) {
	s := testCatalog(t)
	hash := hashOf(0x01)

	shareOne(t, s, Endpoint{Addr: 0x7f000001, Port: 4662}, FileShareInput{
		Hash: hash, Name: "song.mp3", Size: 5000000, Type: ed2k.FileTypeAudio,
		Complete: true, MediaLength: 240, MediaBitrate: 192, MediaCodec: "mp3",
	})

	rec, ok := fileRecord(t, s, hash)
	if !ok {
		t.Fatal("file record not created")
	}
	if rec.Name != "song.mp3" || rec.Ext != "mp3" || rec.Size != 5000000 {
		t.Errorf("record = %+v", rec)
	}
	if rec.SrcAvail != 1 || rec.SrcComplete != 1 {
		t.Errorf("counters = (%d,%d), want (1,1)", rec.SrcAvail, rec.SrcComplete)
	}
	checkCounters(t, s, hash)
}

func TestShareFiles_TwoPeersSameFile(t *testing.T) {
	s := testCatalog(t)
	ctx := context.Background()
	hash := hashOf(0x02)
	p1 := Endpoint{Addr: 0x0a000001, Port: 4662}
	p2 := Endpoint{Addr: 0x0a000002, Port: 4672}
	in := FileShareInput{Hash: hash, Name: "song.mp3", Size: 5000000, Type: ed2k.FileTypeAudio}

	shareOne(t, s, p1, in)
	shareOne(t, s, p2, in)

	rec, ok := fileRecord(t, s, hash)
	if !ok || rec.SrcAvail != 2 {
		t.Fatalf("after two shares: record=%+v ok=%v, want srcavail=2", rec, ok)
	}

	if err := s.RemoveSourcesForOwner(ctx, p1); err != nil {
		t.Fatalf("RemoveSourcesForOwner(p1): %v", err)
	}
	rec, ok = fileRecord(t, s, hash)
	if !ok || rec.SrcAvail != 1 {
		t.Fatalf("after removing p1: record=%+v ok=%v, want srcavail=1", rec, ok)
	}

	if err := s.RemoveSourcesForOwner(ctx, p2); err != nil {
		t.Fatalf("RemoveSourcesForOwner(p2): %v", err)
	}
	if _, ok := fileRecord(t, s, hash); ok {
		t.Fatal("file record still present after last source removed")
	}
}

func TestCounters_InsertDeleteSequence(t *testing.T) {
	s := testCatalog(t)
	ctx := context.Background()
	hash := hashOf(0x03)

	peers := []struct {
		ep       Endpoint
		complete bool
		rating   int8
	}{
		{Endpoint{Addr: 1, Port: 1000}, true, 0},
		{Endpoint{Addr: 2, Port: 1001}, false, 5},
		{Endpoint{Addr: 3, Port: 1002}, true, -2},
		{Endpoint{Addr: 4, Port: 1003}, false, 0},
	}

	// Invariants must hold after every single insert and delete, not
	// just at the end.
	for _, p := range peers {
		shareOne(t, s, p.ep, FileShareInput{
			Hash: hash, Name: "file.bin", Size: 1, Complete: p.complete, Rating: p.rating,
		})
		checkCounters(t, s, hash)
	}
	for _, p := range peers {
		if err := s.RemoveSourcesForOwner(ctx, p.ep); err != nil {
			t.Fatalf("RemoveSourcesForOwner: %v", err)
		}
		checkCounters(t, s, hash)
	}

	if _, ok := fileRecord(t, s, hash); ok {
		t.Fatal("record survived deletion of all sources")
	}
}

func TestShareFiles_EmptyNameSkipped(t *testing.T) {
	s := testCatalog(t)
	hash := hashOf(0x04)

	shareOne(t, s, Endpoint{Addr: 1, Port: 1}, FileShareInput{Hash: hash, Name: "", Size: 10})

	if _, ok := fileRecord(t, s, hash); ok {
		t.Fatal("empty-name input created a record")
	}
}

func TestShareFiles_ReshareUpdatesMutableFields(t *testing.T) {
	s := testCatalog(t)
	hash := hashOf(0x05)
	p := Endpoint{Addr: 9, Port: 9}

	shareOne(t, s, p, FileShareInput{Hash: hash, Name: "draft.avi", Size: 100, Type: ed2k.FileTypeVideo})
	shareOne(t, s, p, FileShareInput{Hash: hash, Name: "final.mpg", Size: 200, Type: ed2k.FileTypeVideo})

	rec, ok := fileRecord(t, s, hash)
	if !ok {
		t.Fatal("record missing")
	}
	if rec.Name != "final.mpg" || rec.Ext != "mpg" || rec.Size != 200 {
		t.Errorf("mutable fields not updated: %+v", rec)
	}
	// The content hash is the identity and is never rewritten.
	for i, b := range rec.Hash {
		if b != hash[i] {
			t.Fatalf("hash rewritten: %x", rec.Hash)
		}
	}
	// Re-sharing from the same peer adds another source row; removal
	// by owner still drops both.
	if rec.SrcAvail != 2 {
		t.Errorf("srcavail = %d, want 2", rec.SrcAvail)
	}
}

func TestRemoveSources_OnlyOwner(t *testing.T) {
	s := testCatalog(t)
	ctx := context.Background()
	p1 := Endpoint{Addr: 1, Port: 100}
	p2 := Endpoint{Addr: 2, Port: 200}

	shareOne(t, s, p1, FileShareInput{Hash: hashOf(0x06), Name: "one.iso", Size: 1})
	shareOne(t, s, p2, FileShareInput{Hash: hashOf(0x07), Name: "two.iso", Size: 2})

	if err := s.RemoveSourcesForOwner(ctx, p1); err != nil {
		t.Fatalf("RemoveSourcesForOwner: %v", err)
	}

	if _, ok := fileRecord(t, s, hashOf(0x06)); ok {
		t.Error("p1's file survived p1 disconnect")
	}
	if _, ok := fileRecord(t, s, hashOf(0x07)); !ok {
		t.Error("p2's file vanished on p1 disconnect")
	}
}

func TestSourcesForFile(t *testing.T) {
	s := testCatalog(t)
	ctx := context.Background()
	hash := hashOf(0x08)
	p1 := Endpoint{Addr: 0xc0a80101, Port: 4662}
	p2 := Endpoint{Addr: 0xc0a80102, Port: 4672}

	shareOne(t, s, p1, FileShareInput{Hash: hash, Name: "shared.zip", Size: 1})
	shareOne(t, s, p2, FileShareInput{Hash: hash, Name: "shared.zip", Size: 1})

	got, err := s.SourcesForFile(ctx, hash, 10)
	if err != nil {
		t.Fatalf("SourcesForFile: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("sources = %v, want 2", got)
	}
	seen := map[Endpoint]bool{}
	for _, ep := range got {
		seen[ep] = true
	}
	if !seen[p1] || !seen[p2] {
		t.Errorf("sources = %v, want both %v and %v", got, p1, p2)
	}

	// The limit caps the result.
	got, err = s.SourcesForFile(ctx, hash, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("SourcesForFile(limit=1) = %v, %v", got, err)
	}

	// A zero limit is an empty result, not an error.
	got, err = s.SourcesForFile(ctx, hash, 0)
	if err != nil {
		t.Fatalf("SourcesForFile(limit=0): %v", err)
	}
	if len(got) != 0 {
		t.Errorf("SourcesForFile(limit=0) = %v, want empty", got)
	}
}

func TestSourcesForFile_UnknownHash(t *testing.T) {
	s := testCatalog(t)
	got, err := s.SourcesForFile(context.Background(), hashOf(0xee), 5)
	if err != nil {
		t.Fatalf("SourcesForFile: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("sources = %v, want empty", got)
	}
}

func TestReset_EmptiesCatalog(t *testing.T) {
	s := testCatalog(t)
	ctx := context.Background()

	shareOne(t, s, Endpoint{Addr: 5, Port: 5}, FileShareInput{Hash: hashOf(0x09), Name: "old.bin", Size: 1})

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	var files, sources int64
	if err := s.db.Model(&models.FileRecord{}).Count(&files).Error; err != nil {
		t.Fatalf("count files: %v", err)
	}
	if err := s.db.Model(&models.SourceRecord{}).Count(&sources).Error; err != nil {
		t.Fatalf("count sources: %v", err)
	}
	if files != 0 || sources != 0 {
		t.Errorf("after reset: %d files, %d sources", files, sources)
	}
}

func TestHealth(t *testing.T) {
	s := testCatalog(t)
	if err := s.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLocalStoreUploadAndRemove(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:8080/photos/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ref, err := store.Upload(context.Background(), "actor1/item1/photo.jpg", []byte("jpegdata"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if ref != "http://localhost:8080/photos/actor1/item1/photo.jpg" {
		t.Fatalf("unexpected ref: %s", ref)
	}

	data, err := os.ReadFile(filepath.Join(dir, "actor1", "item1", "photo.jpg"))
	if err != nil || string(data) != "jpegdata" {
		t.Fatalf("object not written: %v", err)
	}

	if err := store.Remove(context.Background(), []string{ref}); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "actor1", "item1", "photo.jpg")); !os.IsNotExist(err) {
		t.Fatalf("object should be removed")
	}
}

func TestLocalStoreRemoveForeignRefIgnored(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080/photos")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Remove(context.Background(), []string{"https://elsewhere.example/x.jpg"}); err != nil {
		t.Fatalf("foreign refs must be skipped, got %v", err)
	}
}

func TestStagingRoundTrip(t *testing.T) {
	staging, err := NewStaging(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ref, err := staging.Put([]byte("captured"))
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if !IsStagedRef(ref) {
		t.Fatalf("expected staged ref, got %s", ref)
	}

	data, err := staging.Get(ref)
	if err != nil || string(data) != "captured" {
		t.Fatalf("get failed: %v", err)
	}

	if err := staging.Delete(ref); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := staging.Get(ref); err == nil {
		t.Fatalf("expected error after delete")
	}
	// 二次删除不算错误
	if err := staging.Delete(ref); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
}

func TestStagingRejectsTraversal(t *testing.T) {
	staging, err := NewStaging(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := staging.Get("staged://../etc/passwd"); err == nil {
		t.Fatalf("expected traversal rejection")
	}
	if _, err := staging.Get("http://example.com/x.jpg"); err == nil {
		t.Fatalf("expected non-staged ref rejection")
	}
}

func TestStagingSweep(t *testing.T) {
	dir := t.TempDir()
	staging, err := NewStaging(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	oldRef, err := staging.Put([]byte("old"))
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}
	freshRef, err := staging.Put([]byte("fresh"))
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}

	oldID := oldRef[len(StagedScheme):]
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(filepath.Join(dir, oldID), past, past); err != nil {
		t.Fatalf("chtimes failed: %v", err)
	}

	removed, err := staging.Sweep(time.Hour)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := staging.Get(freshRef); err != nil {
		t.Fatalf("fresh file must survive sweep: %v", err)
	}
}

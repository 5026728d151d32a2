package cas_test

import (
	"path/filepath"
	"testing"
	"time"

	"go.trai.ch/anvil/internal/adapters/cas"
	"go.trai.ch/anvil/internal/core/domain"
)

func TestStore_PutAndGet(t *testing.T) {
	tmpDir := t.TempDir()
	storePath := filepath.Join(tmpDir, "anvil_state.json")

	store, err := cas.NewStore(storePath)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	info := domain.BuildInfo{
		TargetName:   "target1",
		InputDigest:  "abc",
		OutputDigest: "def",
		Timestamp:    time.Now(),
	}

	if err := store.Put(info); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get("target1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.TargetName != info.TargetName {
		t.Errorf("expected TargetName %q, got %q", info.TargetName, got.TargetName)
	}
	if got.OutputDigest != info.OutputDigest {
		t.Errorf("expected OutputDigest %q, got %q", info.OutputDigest, got.OutputDigest)
	}
}

func TestStore_Get_Missing(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := cas.NewStore(filepath.Join(tmpDir, "anvil_state.json"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	got, err := store.Get("nonexistent")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing target, got %+v", got)
	}
}

func TestStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()
	storePath := filepath.Join(tmpDir, "anvil_state.json")

	store1, err := cas.NewStore(storePath)
	if err != nil {
		t.Fatalf("NewStore 1 failed: %v", err)
	}

	info := domain.BuildInfo{TargetName: "target2", InputDigest: "xyz"}
	if err := store1.Put(info); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	store2, err := cas.NewStore(storePath)
	if err != nil {
		t.Fatalf("NewStore 2 failed: %v", err)
	}

	got, err := store2.Get("target2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.InputDigest != "xyz" {
		t.Errorf("expected InputDigest %q, got %q", "xyz", got.InputDigest)
	}
}

func TestStore_Put_OverwritesExisting(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := cas.NewStore(filepath.Join(tmpDir, "anvil_state.json"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if err := store.Put(domain.BuildInfo{TargetName: "t", InputDigest: "first"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(domain.BuildInfo{TargetName: "t", InputDigest: "second"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get("t")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.InputDigest != "second" {
		t.Errorf("expected overwritten InputDigest %q, got %q", "second", got.InputDigest)
	}
}

package decode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDecoderMissingVvdIsFatal(t *testing.T) {
	dir := t.TempDir()
	mdlPath := filepath.Join(dir, "model.mdl")
	if err := os.WriteFile(mdlPath, buildMinimalMdl(t), 0o644); err != nil {
		t.Fatalf("writing fixture model: %v", err)
	}

	dec, err := NewDecoder(WithBlobStore(NewFSStore(dir)))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	_, err = dec.Decode(context.Background(), "model.mdl")
	if !errors.Is(err, ErrMissingCompanion) {
		t.Fatalf("Decode error = %v, want ErrMissingCompanion", err)
	}
}

func TestDecoderRequiresBlobStore(t *testing.T) {
	if _, err := NewDecoder(); err == nil {
		t.Fatal("expected NewDecoder to require WithBlobStore")
	}
}

func TestDecoderAbortsOnCancelledContext(t *testing.T) {
	dir := t.TempDir()
	mdlPath := filepath.Join(dir, "model.mdl")
	if err := os.WriteFile(mdlPath, buildMinimalMdl(t), 0o644); err != nil {
		t.Fatalf("writing fixture model: %v", err)
	}

	dec, err := NewDecoder(WithBlobStore(NewFSStore(dir)))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = dec.Decode(ctx, "model.mdl")
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Decode error = %v, want ErrAborted", err)
	}
}

func TestPlaceholderAssetInvariants(t *testing.T) {
	a := placeholderAsset("broken_model")
	if !a.Placeholder {
		t.Error("placeholder asset must set Placeholder = true")
	}
	if len(a.Meshes) != 1 || len(a.Meshes[0].Indices)%3 != 0 {
		t.Fatalf("placeholder mesh is malformed: %+v", a.Meshes)
	}
	if len(a.Materials) != 1 || a.Materials[0].Width != 1 || a.Materials[0].Height != 1 {
		t.Fatalf("placeholder material is malformed: %+v", a.Materials)
	}
	for _, v := range a.Meshes[0].Vertices {
		sum := 0
		for _, w := range v.Weights {
			sum += int(w.Weight)
		}
		if sum != 255 {
			t.Errorf("placeholder vertex weight sum = %d, want 255", sum)
		}
	}
}

func TestFSStoreReadAndExists(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	store := NewFSStore(dir)

	if !store.Exists(context.Background(), "a.txt") {
		t.Error("Exists(a.txt) = false, want true")
	}
	if store.Exists(context.Background(), "missing.txt") {
		t.Error("Exists(missing.txt) = true, want false")
	}
	b, err := store.Read(context.Background(), "a.txt")
	if err != nil || string(b) != "hello" {
		t.Errorf("Read(a.txt) = %q, %v, want %q, nil", b, err, "hello")
	}
}

// ABOUTME: Tests for the SQLite cache index covering lookup misses, inserts, and idempotent racing writes.
// ABOUTME: Uses a temp-dir database file per test.
package manifest

import (
	"path/filepath"
	"testing"

	"github.com/discernus/discernus-sub014/cas"
)

func openIndex(t *testing.T) *CacheIndex {
	t.Helper()
	idx, err := OpenCacheIndex(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenCacheIndex failed: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestCacheIndexMiss(t *testing.T) {
	idx := openIndex(t)

	refs, ok, err := idx.Lookup("no-such-key")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if ok || refs != nil {
		t.Errorf("expected miss, got ok=%v refs=%v", ok, refs)
	}
}

func TestCacheIndexInsertLookup(t *testing.T) {
	idx := openIndex(t)

	outputs := []ArtifactRef{
		{Digest: cas.HashBytes([]byte("scores")), ContentType: "scores"},
		{Digest: cas.HashBytes([]byte("evidence")), ContentType: "evidence"},
	}
	if err := idx.Insert("key-1", "analyze", "run-a", outputs); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	refs, ok, err := idx.Lookup("key-1")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2", len(refs))
	}
	if refs[0].ContentType != "scores" || refs[1].ContentType != "evidence" {
		t.Errorf("output order not preserved: %+v", refs)
	}
}

func TestCacheIndexInsertIgnoresDuplicate(t *testing.T) {
	idx := openIndex(t)

	first := []ArtifactRef{{Digest: cas.HashBytes([]byte("v1")), ContentType: "scores"}}
	second := []ArtifactRef{{Digest: cas.HashBytes([]byte("v2")), ContentType: "scores"}}

	if err := idx.Insert("key", "analyze", "run-a", first); err != nil {
		t.Fatal(err)
	}
	if err := idx.Insert("key", "analyze", "run-b", second); err != nil {
		t.Fatalf("duplicate Insert must be a no-op, got %v", err)
	}

	refs, ok, err := idx.Lookup("key")
	if err != nil || !ok {
		t.Fatalf("Lookup failed: ok=%v err=%v", ok, err)
	}
	if refs[0].Digest != first[0].Digest {
		t.Error("duplicate insert overwrote existing cache row")
	}
}

func TestCacheIndexCountForStage(t *testing.T) {
	idx := openIndex(t)

	ref := []ArtifactRef{{Digest: cas.HashBytes([]byte("x")), ContentType: "report"}}
	_ = idx.Insert("k1", "synthesize", "run-a", ref)
	_ = idx.Insert("k2", "synthesize", "run-a", ref)
	_ = idx.Insert("k3", "analyze", "run-a", ref)

	n, err := idx.CountForStage("synthesize")
	if err != nil {
		t.Fatalf("CountForStage failed: %v", err)
	}
	if n != 2 {
		t.Errorf("CountForStage = %d, want 2", n)
	}
}

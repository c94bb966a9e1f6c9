package securestore

import "testing"

func TestBadgerStore_RoundTrip(t *testing.T) {
	store, err := NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	defer store.Close()

	if _, ok, err := store.Read("missing"); err != nil || ok {
		t.Fatalf("Read(missing) = ok=%v err=%v", ok, err)
	}
	if err := store.Save("seed/default", "sealed"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	v, ok, err := store.Read("seed/default")
	if err != nil || !ok || v != "sealed" {
		t.Fatalf("Read = %q ok=%v err=%v", v, ok, err)
	}
	if err := store.Delete("seed/default"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Read("seed/default"); ok {
		t.Error("key should be gone after Delete")
	}
}

func TestBadgerStore_Durability(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	if err := store.Save("k", "v"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewBadger(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	v, ok, err := reopened.Read("k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("Read after reopen = %q ok=%v err=%v", v, ok, err)
	}
}

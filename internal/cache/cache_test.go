// internal/cache/cache_test.go
package cache

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"
)

func openTest(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.sqlite3"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestOpenSetsSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cache.sqlite3")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	version, err := c.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion error: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", version, CurrentSchemaVersion)
	}
	c.Close()

	// reopening an up to date database is a no-op
	c, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	c.Close()
}

func TestPutGet(t *testing.T) {
	c := openTest(t)

	if err := c.Put("known_playernames", "Foo,Bar", time.Hour); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, ok, err := c.Get("known_playernames", false)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !ok || got != "Foo,Bar" {
		t.Errorf("Get = %q, %v, want %q, true", got, ok, "Foo,Bar")
	}

	// overwrite
	if err := c.Put("known_playernames", "Foo", time.Hour); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, _, _ = c.Get("known_playernames", false)
	if got != "Foo" {
		t.Errorf("Get after overwrite = %q, want %q", got, "Foo")
	}

	_, ok, err = c.Get("missing", true)
	if err != nil || ok {
		t.Errorf("Get(missing) = %v, %v, want false, nil", ok, err)
	}
}

func TestGetStale(t *testing.T) {
	c := openTest(t)
	base := time.Date(2015, 1, 1, 20, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	if err := c.Put("charid_Foo", "90000001", time.Minute); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	c.now = func() time.Time { return base.Add(2 * time.Minute) }

	if _, ok, _ := c.Get("charid_Foo", false); ok {
		t.Error("expired entry returned without allowStale")
	}
	got, ok, err := c.Get("charid_Foo", true)
	if err != nil || !ok || got != "90000001" {
		t.Errorf("Get(allowStale) = %q, %v, %v, want %q, true, nil", got, ok, err, "90000001")
	}
}

func TestPlayernames(t *testing.T) {
	c := openTest(t)

	if _, ok, _ := c.GetPlayername("Foo"); ok {
		t.Fatal("unexpected playername before put")
	}
	if err := c.PutPlayername("Foo", 1); err != nil {
		t.Fatalf("PutPlayername error: %v", err)
	}
	status, ok, err := c.GetPlayername("Foo")
	if err != nil || !ok || status != 1 {
		t.Errorf("GetPlayername = %d, %v, %v, want 1, true, nil", status, ok, err)
	}
}

func TestAvatars(t *testing.T) {
	c := openTest(t)
	img := []byte{0xff, 0xd8, 0xff, 0x00, 0x01}

	if err := c.PutAvatar("Foo", img); err != nil {
		t.Fatalf("PutAvatar error: %v", err)
	}
	got, ok, err := c.GetAvatar("Foo")
	if err != nil || !ok || !bytes.Equal(got, img) {
		t.Errorf("GetAvatar = %v, %v, %v, want %v", got, ok, err, img)
	}

	if err := c.RemoveAvatar("Foo"); err != nil {
		t.Fatalf("RemoveAvatar error: %v", err)
	}
	if _, ok, _ := c.GetAvatar("Foo"); ok {
		t.Error("avatar still present after RemoveAvatar")
	}
}

func TestPutDefaultTTL(t *testing.T) {
	c := openTest(t)
	base := time.Date(2015, 1, 1, 20, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	if err := c.Put("charid_Foo", "90000001", 0); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	c.now = func() time.Time { return base.Add(DefaultTTL - time.Minute) }
	if _, ok, _ := c.Get("charid_Foo", false); !ok {
		t.Error("entry expired before DefaultTTL")
	}
	c.now = func() time.Time { return base.Add(DefaultTTL + time.Minute) }
	if _, ok, _ := c.Get("charid_Foo", false); ok {
		t.Error("entry still fresh after DefaultTTL")
	}
}

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sceneguard/pkg/cache"
)

// testCLI returns a CLI whose config points every backend into a temp dir.
func testCLI(t *testing.T) (*CLI, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	body := "[cache]\nbackend = \"file\"\ndir = \"" + filepath.ToSlash(filepath.Join(dir, "cache")) + "\"\n\n" +
		"[store]\nbackend = \"file\"\npath = \"" + filepath.ToSlash(filepath.Join(dir, "runs")) + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	c := New(&bytes.Buffer{}, log.InfoLevel)
	c.configPath = cfgPath
	return c, dir
}

func TestCountEntries(t *testing.T) {
	dir := t.TempDir()
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		if err := fc.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}
	if got := countEntries(dir); got != 3 {
		t.Errorf("countEntries() = %d, want 3", got)
	}
	if got := countEntries(filepath.Join(dir, "missing")); got != 0 {
		t.Errorf("countEntries(missing) = %d, want 0", got)
	}
}

func TestCachePathCommand(t *testing.T) {
	c, dir := testCLI(t)
	cmd := c.cachePathCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("cache path: %v", err)
	}
	want := filepath.Join(dir, "cache")
	if got := strings.TrimSpace(out.String()); filepath.Clean(got) != filepath.Clean(want) {
		t.Errorf("cache path = %q, want %q", got, want)
	}
}

func TestCacheClearCommand(t *testing.T) {
	c, dir := testCLI(t)
	cacheDir := filepath.Join(dir, "cache")
	fc, err := cache.NewFileCache(cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := fc.Set(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}

	cmd := c.cacheClearCommand()
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if got := countEntries(cacheDir); got != 0 {
		t.Errorf("entries after clear = %d, want 0", got)
	}
}

package registry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const simpleSource = `jobs:
  - id: tick
    schedule: every 5 minutes
    command: echo tick
`

func TestRegistry_RegisterOutcomes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := New(filepath.Join(dir, "registry.json"))
	src := writeSource(t, dir, "jobs.yaml", simpleSource)

	out, err := r.Register(src, "")
	if err != nil || out != Added {
		t.Fatalf("Register() = %v, %v; want added", out, err)
	}

	out, err = r.Register(src, "")
	if err != nil || out != Exists {
		t.Fatalf("second Register() = %v, %v; want exists", out, err)
	}

	out, err = r.Register(src, "pm")
	if err != nil || out != Updated {
		t.Fatalf("Register() with new namespace = %v, %v; want updated", out, err)
	}

	e, ok, err := r.Find(src)
	if err != nil || !ok {
		t.Fatalf("Find() = %v, %v, %v", e, ok, err)
	}
	if e.Namespace != "pm" {
		t.Errorf("namespace = %q, want pm", e.Namespace)
	}
}

func TestRegistry_Unregister(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := New(filepath.Join(dir, "registry.json"))
	src := writeSource(t, dir, "jobs.yaml", simpleSource)

	if _, err := r.Register(src, ""); err != nil {
		t.Fatal(err)
	}

	out, err := r.Unregister(src)
	if err != nil || out != Removed {
		t.Fatalf("Unregister() = %v, %v; want removed", out, err)
	}

	out, err = r.Unregister(src)
	if err != nil || out != NotFound {
		t.Fatalf("second Unregister() = %v, %v; want not_found", out, err)
	}
}

func TestRegistry_RejectsInvalidNamespace(t *testing.T) {
	t.Parallel()

	r := New(filepath.Join(t.TempDir(), "registry.json"))
	if _, err := r.Register("/tmp/jobs.yaml", "bad.ns"); err == nil {
		t.Error("dotted namespace should be rejected")
	}
}

func TestRegistry_LegacyMigration(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	if err := os.WriteFile(path, []byte(`["/a/jobs.yaml","/b/jobs.yaml"]`), 0o644); err != nil {
		t.Fatal(err)
	}

	r := New(path)
	entries, err := r.Entries()
	if err != nil {
		t.Fatalf("Entries() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Path != "/a/jobs.yaml" || entries[0].Namespace != "" {
		t.Errorf("entry 0 = %+v, want promoted path with empty namespace", entries[0])
	}

	// A save after migration persists the promoted shape.
	if _, err := r.Register("/c/jobs.yaml", ""); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"path": "/a/jobs.yaml"`) {
		t.Errorf("registry not promoted on save: %s", data)
	}
}

func TestRegistry_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, []byte("{oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path).Entries(); err == nil {
		t.Error("corrupt registry should be an error")
	}
}

func TestRegistry_MissingFile(t *testing.T) {
	t.Parallel()

	entries, err := New(filepath.Join(t.TempDir(), "registry.json")).Entries()
	if err != nil {
		t.Fatalf("Entries() error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestRegistry_LoadAllToleratesBrokenFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := New(filepath.Join(dir, "registry.json"))

	good := writeSource(t, dir, "good.yaml", simpleSource)
	broken := writeSource(t, dir, "broken.yaml", "jobs: [\n")
	if _, err := r.Register(good, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Register(broken, ""); err != nil {
		t.Fatal(err)
	}

	sources, err := r.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}
	if sources[0].Err != nil {
		t.Errorf("good source errored: %v", sources[0].Err)
	}
	if sources[1].Err == nil {
		t.Error("broken source should carry an error")
	}
}

func TestRegistry_FindJob(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := New(filepath.Join(dir, "registry.json"))

	am := writeSource(t, dir, "am.yaml", `jobs:
  - id: tick
    interval: 60000
    command: echo am
`)
	pm := writeSource(t, dir, "pm.yaml", `jobs:
  - id: tick
    interval: 60000
    command: echo pm
`)
	if _, err := r.Register(am, "am"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Register(pm, "pm"); err != nil {
		t.Fatal(err)
	}

	// Qualified lookup requires exact namespace.
	def, src, err := r.FindJob("pm/tick")
	if err != nil {
		t.Fatalf("FindJob(pm/tick) error: %v", err)
	}
	if src.Namespace != "pm" || def.Command != "echo pm" {
		t.Errorf("FindJob(pm/tick) resolved %q in ns %q", def.Command, src.Namespace)
	}

	// Bare lookup returns the first match in registry order.
	def, src, err = r.FindJob("tick")
	if err != nil {
		t.Fatalf("FindJob(tick) error: %v", err)
	}
	if src.Namespace != "am" {
		t.Errorf("bare lookup resolved ns %q, want am (registry order)", src.Namespace)
	}
	if got := src.QualifiedID(def.ID); got != "am/tick" {
		t.Errorf("QualifiedID = %q, want am/tick", got)
	}

	if _, _, err := r.FindJob("xx/tick"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("FindJob(xx/tick) = %v, want ErrJobNotFound", err)
	}
	if _, _, err := r.FindJob("nope"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("FindJob(nope) = %v, want ErrJobNotFound", err)
	}
}

package loader

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/milk9111/omiloader/config"
	"github.com/milk9111/omiloader/scene"
)

func TestWatchReloadsChangedDocument(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "hangar.gltf", hangarDoc)

	logger := log.New(io.Discard, "", 0)
	scn := scene.New(scene.Options{Logger: logger})
	l := New(scn, config.Default(), WithLogger(logger))
	if _, err := l.Load(context.Background(), p); err != nil {
		t.Fatalf("Load: %v", err)
	}

	w, err := NewWatcher(p)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type reload struct {
		ok     bool
		title  string
		spawns int
	}
	reloads := make(chan reload, 8)
	done := make(chan error, 1)
	go func() {
		done <- l.watch(ctx, w, p, func(ok bool) {
			select {
			case reloads <- reload{ok: ok, title: scn.Title, spawns: scn.Spawns.Len()}:
			default:
			}
		})
	}()

	renamed := strings.Replace(hangarDoc, `"title": "Hangar"`, `"title": "Hangar B"`, 1)
	tmp := writeFile(t, dir, "hangar.tmp", renamed)
	if err := os.Rename(tmp, p); err != nil {
		t.Fatalf("rename: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case r := <-reloads:
			if !r.ok || r.title != "Hangar B" {
				continue
			}
			// The scene is reset before each reload, so the spawn point is
			// not registered twice.
			if r.spawns != 1 {
				t.Fatalf("spawn points after reload = %d, want 1", r.spawns)
			}
			reloaded = true
		case <-deadline:
			t.Fatalf("no successful reload after rename")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("watch did not stop on cancel")
	}
}

func TestWatcherFiltersUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "scene.gltf", untitledDoc)

	w, err := NewWatcher(p)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	cases := []struct {
		name string
		want bool
	}{
		{p, true},
		{filepath.Join(dir, "other.gltf"), false},
		{filepath.Join(dir, "notes.txt"), false},
		{filepath.Join(dir, "scene.bin"), true},
		{filepath.Join(dir, "engine.WAV"), true},
	}
	for _, c := range cases {
		if got := w.relevant(c.name); got != c.want {
			t.Fatalf("relevant(%s) = %v, want %v", filepath.Base(c.name), got, c.want)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

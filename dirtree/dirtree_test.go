package dirtree_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gitlab.com/efronlicht/dirindex/dirtree"
)

// mkTree creates the named files (and their parent directories) under a fresh temp dir.
// names ending in "/" are created as empty directories.
func mkTree(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, n := range names {
		p := filepath.Join(root, filepath.FromSlash(n))
		if n[len(n)-1] == '/' {
			if err := os.MkdirAll(p, 0o755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(n), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestWalkVisitsEveryDirectoryOnce(t *testing.T) {
	root := mkTree(t, "b.txt", "a.txt", "docs/guide.md", "docs/img/logo.png", "empty/")
	seen := make(map[string]dirtree.Dir)
	var order []string
	err := dirtree.Walk(root, func(d dirtree.Dir) error {
		if _, ok := seen[d.Rel]; ok {
			t.Fatalf("visited %s twice", d.Rel)
		}
		seen[d.Rel] = d
		order = append(order, d.Rel)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{".", "docs", "docs/img", "empty"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("visit order = %v, want %v", order, want)
	}
	rootDir := seen["."]
	if !rootDir.IsRoot() || rootDir.Path != root {
		t.Errorf("root dir = %+v", rootDir)
	}
	if want := []string{"a.txt", "b.txt"}; !reflect.DeepEqual(rootDir.Files, want) {
		t.Errorf("root files = %v, want %v", rootDir.Files, want)
	}
	if want := []string{"docs", "empty"}; !reflect.DeepEqual(rootDir.Subdirs, want) {
		t.Errorf("root subdirs = %v, want %v", rootDir.Subdirs, want)
	}
	if got := seen["docs/img"].Path; got != filepath.Join(root, "docs", "img") {
		t.Errorf("docs/img path = %s", got)
	}
}

func TestWalkStopsOnCallbackError(t *testing.T) {
	root := mkTree(t, "a/x", "b/y")
	stop := errors.New("stop")
	var calls int
	err := dirtree.Walk(root, func(d dirtree.Dir) error {
		calls++
		if d.Rel == "a" {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v, want %v", err, stop)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestWalkDoesNotFollowSymlinks(t *testing.T) {
	root := mkTree(t, "real/file.txt")
	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")); err != nil {
		t.Skipf("SKIP %s: symlinks unsupported: %v", t.Name(), err)
	}
	var rels []string
	var rootFiles []string
	err := dirtree.Walk(root, func(d dirtree.Dir) error {
		rels = append(rels, d.Rel)
		if d.IsRoot() {
			rootFiles = d.Files
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{".", "real"}; !reflect.DeepEqual(rels, want) {
		t.Errorf("visited %v, want %v", rels, want)
	}
	if want := []string{"link"}; !reflect.DeepEqual(rootFiles, want) {
		t.Errorf("root files = %v, want %v", rootFiles, want)
	}
}

func TestCheckRoot(t *testing.T) {
	root := mkTree(t, "file.txt")
	if _, err := dirtree.CheckRoot(root); err != nil {
		t.Errorf("CheckRoot(dir): %v", err)
	}
	if _, err := dirtree.CheckRoot(filepath.Join(root, "file.txt")); !errors.Is(err, dirtree.ErrNotDir) {
		t.Errorf("CheckRoot(file) = %v, want ErrNotDir", err)
	}
	if _, err := dirtree.CheckRoot(filepath.Join(root, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("CheckRoot(missing) = %v, want ErrNotExist", err)
	}
	if err := dirtree.Walk(filepath.Join(root, "missing"), func(dirtree.Dir) error {
		t.Fatal("callback called for missing root")
		return nil
	}); err == nil {
		t.Error("Walk(missing) succeeded")
	}
}

func TestPrune(t *testing.T) {
	for _, tt := range []struct {
		name      string
		in        dirtree.Dir
		wantFiles []string
		wantOK    bool
	}{
		{"only index", dirtree.Dir{Files: []string{"index.html"}}, []string{}, false},
		{"empty", dirtree.Dir{}, []string{}, false},
		{"index and subdir", dirtree.Dir{Files: []string{"index.html"}, Subdirs: []string{"a"}}, []string{}, true},
		{"index among files", dirtree.Dir{Files: []string{"a.txt", "index.html", "z.txt"}}, []string{"a.txt", "z.txt"}, true},
		{"similar names kept", dirtree.Dir{Files: []string{"index.htm", "INDEX.html"}}, []string{"index.htm", "INDEX.html"}, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			before := append([]string(nil), tt.in.Files...)
			got, ok := dirtree.Prune(tt.in)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !reflect.DeepEqual(got.Files, tt.wantFiles) {
				t.Errorf("files = %v, want %v", got.Files, tt.wantFiles)
			}
			if !reflect.DeepEqual(tt.in.Files, before) {
				t.Errorf("input mutated: %v, was %v", tt.in.Files, before)
			}
		})
	}
}

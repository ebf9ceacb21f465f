package rotation_test

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"photowall/internal/faults"
	"photowall/internal/rotation"
	"photowall/internal/testsupport"
)

func seeded() rotation.WalkOption {
	return rotation.WithRand(rand.New(rand.NewPCG(7, 11)))
}

func TestRandomWalkReturnsOnlyImages(t *testing.T) {
	base := t.TempDir()
	testsupport.WritePhotoTree(t, base, "2019/a.png", "2019/b.png", "2020/summer/c.png", "2020/summer/c_rewrite.png")
	testsupport.WriteFile(t, filepath.Join(base, "2019", "notes.txt"), 64)
	// Extension lies; content decides.
	testsupport.WriteFile(t, filepath.Join(base, "2020", "fake.jpg"), 64)

	walk := rotation.NewRandomWalk(base, rotation.WithRewriteSuffix("_rewrite"), seeded())
	allowed := map[string]bool{"2019/a.png": true, "2019/b.png": true, "2020/summer/c.png": true}
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		path, err := walk.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !allowed[path] {
			t.Fatalf("unexpected candidate %q", path)
		}
		seen[path] = true
	}
	if len(seen) != len(allowed) {
		t.Fatalf("expected every photo to be reachable, saw %v", seen)
	}
}

func TestRandomWalkBlacklistsEmptyDirectories(t *testing.T) {
	base := t.TempDir()
	testsupport.WritePhotoTree(t, base, "full/x.png")
	empty := filepath.Join(base, "empty")
	if err := os.MkdirAll(filepath.Join(empty, "deeper"), 0o755); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, filepath.Join(base, "textonly", "readme.txt"), 10)

	walk := rotation.NewRandomWalk(base, seeded())
	for i := 0; i < 100; i++ {
		path, err := walk.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if path != "full/x.png" {
			t.Fatalf("unexpected candidate %q", path)
		}
	}
	for _, dir := range []string{empty, filepath.Join(empty, "deeper"), filepath.Join(base, "textonly")} {
		if !walk.IsBlacklisted(dir) {
			t.Fatalf("expected %s blacklisted; have %v", dir, walk.Blacklisted())
		}
	}
	if walk.IsBlacklisted(base) {
		t.Fatal("base must not be blacklisted while photos remain")
	}
}

func TestRandomWalkExhaustedPolicies(t *testing.T) {
	for _, reset := range []bool{true, false} {
		base := t.TempDir()
		if err := os.MkdirAll(filepath.Join(base, "a", "b"), 0o755); err != nil {
			t.Fatal(err)
		}
		walk := rotation.NewRandomWalk(base, rotation.WithResetOnExhaust(reset), seeded())
		_, err := walk.Next()
		if !errors.Is(err, faults.ErrSourceExhausted) {
			t.Fatalf("reset=%v: expected exhausted error, got %v", reset, err)
		}
		if !walk.IsBlacklisted(base) {
			t.Fatalf("reset=%v: expected root blacklisted after exhaustion", reset)
		}
	}
}

func TestRandomWalkResetRecoversNewPhotos(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "later"), 0o755); err != nil {
		t.Fatal(err)
	}
	walk := rotation.NewRandomWalk(base, seeded())
	if _, err := walk.Next(); !errors.Is(err, faults.ErrSourceExhausted) {
		t.Fatalf("expected exhausted, got %v", err)
	}

	testsupport.WritePhotoTree(t, base, "later/new.png")
	path, err := walk.Next()
	if err != nil {
		t.Fatalf("expected reset to find new photo, got %v", err)
	}
	if path != "later/new.png" {
		t.Fatalf("unexpected path %q", path)
	}
}

func TestRandomWalkMissingBaseIsIOError(t *testing.T) {
	walk := rotation.NewRandomWalk(filepath.Join(t.TempDir(), "missing"))
	_, err := walk.Next()
	if !errors.Is(err, faults.ErrSourceIO) {
		t.Fatalf("expected source io error, got %v", err)
	}
}

func TestUnblacklistReadmitsAncestors(t *testing.T) {
	base := t.TempDir()
	testsupport.WritePhotoTree(t, base, "keep/k.png")
	deep := filepath.Join(base, "a", "b", "c")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}
	walk := rotation.NewRandomWalk(base, seeded())
	for i := 0; i < 50 && !walk.IsBlacklisted(filepath.Join(base, "a")); i++ {
		if _, err := walk.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if !walk.IsBlacklisted(deep) || !walk.IsBlacklisted(filepath.Join(base, "a")) {
		t.Fatalf("expected chain blacklisted, have %v", walk.Blacklisted())
	}

	if !walk.Unblacklist(deep) {
		t.Fatal("expected Unblacklist to report a change")
	}
	for _, dir := range []string{deep, filepath.Join(base, "a", "b"), filepath.Join(base, "a")} {
		if walk.IsBlacklisted(dir) {
			t.Fatalf("%s still blacklisted", dir)
		}
	}
	if walk.Unblacklist(filepath.Join(filepath.Dir(base), "elsewhere")) {
		t.Fatal("paths outside the base must be ignored")
	}
}

func TestRandomWalkConcurrentNext(t *testing.T) {
	base := t.TempDir()
	testsupport.WritePhotoTree(t, base, "a/1.png", "b/2.png", "c/d/3.png")
	walk := rotation.NewRandomWalk(base)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				path, err := walk.Next()
				if err != nil {
					errs <- err
					return
				}
				if !strings.HasSuffix(path, ".png") {
					errs <- errors.New("unexpected path " + path)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

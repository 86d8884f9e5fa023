package listing

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// A ModTimer reports when the file or directory at path was last modified.
type ModTimer interface {
	ModTime(path string) (time.Time, error)
}

// FSModTimer uses the filesystem's modification time.
type FSModTimer struct{}

func (FSModTimer) ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// GitModTimer uses the time of the last commit touching path, so a fresh checkout lists the same
// dates as the original tree. Paths with no history fall back to the filesystem with a warning.
type GitModTimer struct {
	Logger *zap.Logger // nil means zap.L()
	Git    string      // git binary; "" means "git" on $PATH
}

// ModTime runs git log in path's directory. Path names are matched literally, never as globs.
// No history for path, no repository, or no git binary all mean the same thing: warn and use
// the filesystem. Any other git failure is returned as an error.
func (g GitModTimer) ModTime(path string) (time.Time, error) {
	bin := g.Git
	if bin == "" {
		bin = "git"
	}
	cmd := exec.Command(bin, "--literal-pathspecs", "log", "-1", "--pretty=format:%ct", "--", filepath.Base(path))
	cmd.Dir = filepath.Dir(path)
	cmd.Env = append(os.Environ(), "LC_ALL=C") // notARepository matches the english message
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	switch {
	case err == nil:
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return g.fallback(path, "git not found")
	case notARepository(err, stderr.Bytes()):
		return g.fallback(path, "not a git repository")
	default:
		return time.Time{}, fmt.Errorf("git log %s: %w: %s", path, err, bytes.TrimSpace(stderr.Bytes()))
	}
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return g.fallback(path, "no commits touch this path")
	}
	secs, err := strconv.ParseInt(string(out), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("git log %s: parsing commit time %q: %w", path, out, err)
	}
	return time.Unix(secs, 0), nil
}

func (g GitModTimer) fallback(path, reason string) (time.Time, error) {
	logger := g.Logger
	if logger == nil {
		logger = zap.L()
	}
	logger.Warn("cannot find git modification time; using filesystem mtime", zap.String("path", path), zap.String("reason", reason))
	return FSModTimer{}.ModTime(path)
}

// git exits 128 and says so on stderr when run outside a work tree.
func notARepository(err error, stderr []byte) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 128 && bytes.Contains(stderr, []byte("not a git repository"))
}

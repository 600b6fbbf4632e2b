// Package savefile installs rebuilt save files next to, and then over, the
// originals: temp-file staging, optional (compressed) backup, atomic rename,
// and a sidecar lock file so two patch runs cannot interleave.
package savefile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"syscall"
	"time"
)

// DefaultMinSize rejects outputs that cannot even hold an SSF1 header.
const DefaultMinSize = 16

// Options controls Replace.
type Options struct {
	Backup         bool
	Compression    Compression
	StaleLockAfter time.Duration // 0 means DefaultStaleLockAfter
	MinSize        int           // 0 means DefaultMinSize

	// Now stamps backup names and lock files. Defaults to time.Now.
	Now func() time.Time
}

func (o *Options) defaults() {
	if o.StaleLockAfter <= 0 {
		o.StaleLockAfter = DefaultStaleLockAfter
	}
	if o.MinSize <= 0 {
		o.MinSize = DefaultMinSize
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Result describes a completed replacement.
type Result struct {
	Path       string
	BackupPath string // empty without backup
	Bytes      int
}

// Replace atomically installs data at path, which must already exist.
func Replace(path string, data []byte, opts Options) (*Result, error) {
	opts.defaults()
	now := opts.Now()

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	if len(data) < opts.MinSize {
		return nil, fmt.Errorf("refusing to install %d-byte output (<%d)", len(data), opts.MinSize)
	}

	lock, err := acquireLock(path, opts.StaleLockAfter, now)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	tmp, err := stage(path, data, info.Mode().Perm())
	if err != nil {
		return nil, err
	}

	res := &Result{Path: path, Bytes: len(data)}
	if opts.Backup {
		res.BackupPath, err = writeBackup(path, opts.Compression, now)
		if err != nil {
			os.Remove(tmp)
			return nil, err
		}
	}

	if err := install(tmp, path); err != nil {
		return nil, err
	}
	return res, nil
}

// WriteNew installs data at path without requiring an existing file and
// without a backup.
func WriteNew(path string, data []byte) error {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	tmp, err := stage(path, data, perm)
	if err != nil {
		return err
	}
	return install(tmp, path)
}

// Restore decompresses a backup written by Replace (compression is taken
// from its suffix) and installs it at dest.
func Restore(backupPath, dest string, opts Options) (*Result, error) {
	f, err := os.Open(backupPath)
	if err != nil {
		return nil, fmt.Errorf("opening backup: %w", err)
	}
	defer f.Close()

	data, err := compressionForPath(backupPath).decode(f)
	if err != nil {
		return nil, fmt.Errorf("reading backup %s: %w", backupPath, err)
	}

	if _, err := os.Stat(dest); errors.Is(err, os.ErrNotExist) {
		if err := WriteNew(dest, data); err != nil {
			return nil, err
		}
		return &Result{Path: dest, Bytes: len(data)}, nil
	}
	return Replace(dest, data, opts)
}

// BackupName is path + ".bak_YYYYMMDD_HHMMSS" + compression suffix.
func BackupName(path string, c Compression, t time.Time) string {
	return path + ".bak_" + t.Format("20060102_150405") + c.Ext()
}

var backupSuffix = regexp.MustCompile(`\.bak_\d{8}_\d{6}(_\d+)?(\.lz4|\.zst)?$`)

// OriginalPath strips the suffix BackupName added.
func OriginalPath(backupPath string) (string, bool) {
	loc := backupSuffix.FindStringIndex(backupPath)
	if loc == nil || loc[0] == 0 {
		return "", false
	}
	return backupPath[:loc[0]], true
}

// -------------------- staging --------------------

// stage writes data to path+".tmp": write, sync, close, in that order.
func stage(path string, data []byte, perm os.FileMode) (string, error) {
	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("removing stale temp file: %w", err)
	}

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("syncing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return tmp, nil
}

func install(tmp, path string) error {
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		if isBusy(err) {
			return fmt.Errorf("%w: renaming into place: %v (close the game and retry)", ErrLocked, err)
		}
		return fmt.Errorf("renaming temp file into place: %w", err)
	}

	if dir, err := os.Open(filepath.Dir(path)); err == nil {
		dir.Sync()
		dir.Close()
	}
	return nil
}

// errSharingViolation is ERROR_SHARING_VIOLATION, returned on Windows while
// another process has the save open.
const errSharingViolation = syscall.Errno(32)

// isBusy reports whether a failed rename means another process holds the
// target. Permission errors are not included.
func isBusy(err error) bool {
	if errors.Is(err, syscall.EBUSY) {
		return true
	}
	var errno syscall.Errno
	return runtime.GOOS == "windows" && errors.As(err, &errno) && errno == errSharingViolation
}

// writeBackup copies the current contents of path into a new backup file.
// Same-second collisions get a numeric suffix.
func writeBackup(path string, c Compression, now time.Time) (string, error) {
	orig, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading original for backup: %w", err)
	}

	var buf bytes.Buffer
	if err := c.encodeTo(&buf, orig); err != nil {
		return "", fmt.Errorf("compressing backup: %w", err)
	}

	name := BackupName(path, c, now)
	for i := 1; ; i++ {
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) && i < 100 {
			base := path + ".bak_" + now.Format("20060102_150405")
			name = fmt.Sprintf("%s_%d%s", base, i, c.Ext())
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating backup: %w", err)
		}
		if _, err := f.Write(buf.Bytes()); err != nil {
			f.Close()
			os.Remove(name)
			return "", fmt.Errorf("writing backup: %w", err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			os.Remove(name)
			return "", fmt.Errorf("syncing backup: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(name)
			return "", fmt.Errorf("closing backup: %w", err)
		}
		return name, nil
	}
}

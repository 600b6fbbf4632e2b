package savefile

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrLocked is returned when another process holds the save, either through
// our lock file or by keeping the file open (the game does while running).
var ErrLocked = errors.New("save file is locked")

// DefaultStaleLockAfter is how old a lock file must be before it is ignored.
const DefaultStaleLockAfter = 10 * time.Minute

const lockSuffix = ".ssfpatch.lock"

type fileLock struct {
	path string
}

// acquireLock creates target+".ssfpatch.lock" exclusively. A lock older than
// staleAfter is removed and the attempt repeated once.
func acquireLock(target string, staleAfter time.Duration, now time.Time) (*fileLock, error) {
	path := target + lockSuffix

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			fmt.Fprintf(f, "pid=%d time=%s\n", os.Getpid(), now.UTC().Format(time.RFC3339))
			if err := f.Close(); err != nil {
				os.Remove(path)
				return nil, fmt.Errorf("closing lock file: %w", err)
			}
			return &fileLock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}

		info, statErr := os.Stat(path)
		if statErr != nil {
			// released between our open and stat
			continue
		}
		age := now.Sub(info.ModTime())
		if age < staleAfter {
			return nil, fmt.Errorf("%w: %s held for %s", ErrLocked, path, age.Round(time.Second))
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("removing stale lock %s: %w", path, err)
		}
	}
	return nil, fmt.Errorf("%w: could not acquire %s", ErrLocked, path)
}

func (l *fileLock) release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing lock file: %w", err)
	}
	return nil
}

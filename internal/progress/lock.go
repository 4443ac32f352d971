package progress

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked indicates another plenum process holds the progress store.
var ErrLocked = errors.New("another plenum process is already running")

// RunLock guards the progress store against concurrent processes. The store
// serializes writers within one process; the flock extends that guarantee
// across processes sharing the same store file.
type RunLock struct {
	lock *flock.Flock
}

// NewRunLock builds a lock beside the progress store file.
func NewRunLock(storePath string) *RunLock {
	return &RunLock{lock: flock.New(storePath + ".lock")}
}

// Acquire takes the lock without blocking. It fails with ErrLocked when
// another process holds it.
func (l *RunLock) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Release drops the lock. Safe to call when the lock was never acquired.
func (l *RunLock) Release() error {
	return l.lock.Unlock()
}

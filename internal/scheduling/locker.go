package scheduling

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LocalLocker serializes doctor critical sections within a single process
// using one semaphore per doctor. It is the in-process counterpart of the
// Redis locker and the default when no Redis address is configured.
type LocalLocker struct {
	mu      sync.Mutex
	sems    map[uuid.UUID]chan struct{}
	acquire time.Duration
}

func NewLocalLocker(acquireTimeout time.Duration) *LocalLocker {
	return &LocalLocker{
		sems:    make(map[uuid.UUID]chan struct{}),
		acquire: acquireTimeout,
	}
}

func (l *LocalLocker) sem(doctorID uuid.UUID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[doctorID]
	if !ok {
		s = make(chan struct{}, 1)
		l.sems[doctorID] = s
	}
	return s
}

func (l *LocalLocker) WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error {
	sem := l.sem(doctorID)

	timer := time.NewTimer(l.acquire)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
	case <-timer.C:
		return ErrLockNotAcquired
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-sem }()

	return fn(ctx)
}

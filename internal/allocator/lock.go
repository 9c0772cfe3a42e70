package allocator

import (
	"sync"

	"ms-invites/internal/models"
)

// Locker serializes allocation bursts per (event, kind) before they reach the
// database. The counter row is the real arbiter; the lock just keeps a burst
// of requests from piling up on the same row.
type Locker interface {
	Acquire(eventID string, kind models.InviteKind, owner string) (bool, error)
	Release(eventID string, kind models.InviteKind, owner string) error
}

// LocalLocker is the single-process Locker used in tests and when Redis is
// not configured.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: map[string]*sync.Mutex{}}
}

func (l *LocalLocker) keyLock(eventID string, kind models.InviteKind) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := eventID + ":" + string(kind)
	if _, ok := l.locks[key]; !ok {
		l.locks[key] = &sync.Mutex{}
	}
	return l.locks[key]
}

func (l *LocalLocker) Acquire(eventID string, kind models.InviteKind, owner string) (bool, error) {
	l.keyLock(eventID, kind).Lock()
	return true, nil
}

func (l *LocalLocker) Release(eventID string, kind models.InviteKind, owner string) error {
	l.keyLock(eventID, kind).Unlock()
	return nil
}

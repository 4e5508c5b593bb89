package mem

import (
	"context"
	"sync"
	"time"

	"github.com/small-engineer/go-web-serv/account/internal/domain"
	"github.com/small-engineer/go-web-serv/account/internal/usecase/auth"
)

type sessionEntry struct {
	uid     domain.UserID
	expires time.Time
}

// SessionRepo drops an entry ttl after its last Save. A non-positive ttl
// keeps entries for the life of the process.
type SessionRepo struct {
	mu  sync.Mutex
	m   map[auth.SessionID]sessionEntry
	ttl time.Duration
	now func() time.Time
}

func NewSessionRepo(ttl time.Duration) *SessionRepo {
	return &SessionRepo{
		m:   make(map[auth.SessionID]sessionEntry),
		ttl: ttl,
		now: time.Now,
	}
}

func (r *SessionRepo) expired(e sessionEntry, now time.Time) bool {
	return r.ttl > 0 && !now.Before(e.expires)
}

func (r *SessionRepo) FindUserID(ctx context.Context, id auth.SessionID) (domain.UserID, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.m[id]
	if !ok {
		return 0, false, nil
	}
	if r.expired(e, r.now()) {
		delete(r.m, id)
		return 0, false, nil
	}
	return e.uid, true, nil
}

// Save also sweeps expired entries so sessions that are never read again
// do not accumulate.
func (r *SessionRepo) Save(ctx context.Context, id auth.SessionID, uid domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for k, e := range r.m {
		if r.expired(e, now) {
			delete(r.m, k)
		}
	}
	r.m[id] = sessionEntry{uid: uid, expires: now.Add(r.ttl)}
	return nil
}

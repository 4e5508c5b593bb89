package mem

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/small-engineer/go-web-serv/account/internal/domain"
)

type UserRepo struct {
	mu     sync.RWMutex
	byName map[string]*domain.User
	byID   map[domain.UserID]*domain.User
	seq    domain.UserID
	now    func() time.Time
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byName: make(map[string]*domain.User),
		byID:   make(map[domain.UserID]*domain.User),
		now:    time.Now,
	}
}

func (r *UserRepo) FindByName(ctx context.Context, name string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byName[name]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// Create checks and inserts under one lock, so two racing creates for the
// same name see exactly one winner.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[u.Username]; ok {
		return domain.ErrUsernameTaken
	}
	if u.ID == 0 {
		for {
			r.seq++
			if _, ok := r.byID[r.seq]; !ok {
				break
			}
		}
		u.ID = r.seq
	} else if _, ok := r.byID[u.ID]; ok {
		return oops.Code("USER_ID_CONFLICT").With("id", u.ID).Errorf("user id already exists")
	}

	ts := r.now().UTC()
	u.CreatedAt = ts
	u.UpdatedAt = ts

	cp := *u
	r.byName[cp.Username] = &cp
	r.byID[cp.ID] = &cp
	return nil
}

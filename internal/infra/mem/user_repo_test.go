package mem

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/small-engineer/go-web-serv/account/internal/domain"
)

func TestUserRepo_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepo()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	u := &domain.User{ID: 5, Username: "alice", PasswordHash: "h"}
	require.NoError(t, r.Create(ctx, u))
	assert.Equal(t, fixed, u.CreatedAt)
	assert.Equal(t, fixed, u.UpdatedAt)

	byName, err := r.FindByName(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, domain.UserID(5), byName.ID)

	byID, err := r.FindByID(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "alice", byID.Username)

	byName.Username = "mutated"
	again, _ := r.FindByID(ctx, 5)
	assert.Equal(t, "alice", again.Username, "callers get copies")
}

func TestUserRepo_Misses(t *testing.T) {
	r := NewUserRepo()

	u, err := r.FindByName(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.Nil(t, u)

	u, err = r.FindByID(context.Background(), 1)
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserRepo_AssignsIDs(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepo()

	require.NoError(t, r.Create(ctx, &domain.User{ID: 1, Username: "taken"}))

	u := &domain.User{Username: "auto"}
	require.NoError(t, r.Create(ctx, u))
	assert.Equal(t, domain.UserID(2), u.ID, "sequence skips caller-supplied ids")
}

func TestUserRepo_Conflicts(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepo()
	require.NoError(t, r.Create(ctx, &domain.User{ID: 1, Username: "alice"}))

	err := r.Create(ctx, &domain.User{ID: 2, Username: "alice"})
	assert.True(t, errors.Is(err, domain.ErrUsernameTaken))

	err = r.Create(ctx, &domain.User{ID: 1, Username: "bob"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrUsernameTaken))

	u, _ := r.FindByName(ctx, "bob")
	assert.Nil(t, u, "failed create leaves no trace")
}

func TestUserRepo_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepo()

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.Create(ctx, &domain.User{Username: "same"})
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrUsernameTaken):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
}

func TestSessionRepo(t *testing.T) {
	ctx := context.Background()
	r := NewSessionRepo(time.Hour)

	_, ok, err := r.FindUserID(ctx, "sid")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Save(ctx, "sid", 42))
	uid, ok, err := r.FindUserID(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.UserID(42), uid)

	require.NoError(t, r.Save(ctx, "sid", 43))
	uid, _, _ = r.FindUserID(ctx, "sid")
	assert.Equal(t, domain.UserID(43), uid)
}

func TestSessionRepo_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewSessionRepo(time.Hour)
	r.now = func() time.Time { return clock }

	require.NoError(t, r.Save(ctx, "old", 1))
	clock = clock.Add(30 * time.Minute)
	require.NoError(t, r.Save(ctx, "new", 2))

	uid, ok, err := r.FindUserID(ctx, "old")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.UserID(1), uid)

	clock = clock.Add(31 * time.Minute)
	_, ok, err = r.FindUserID(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok, "expired after ttl")

	_, ok, _ = r.FindUserID(ctx, "new")
	assert.True(t, ok)

	clock = clock.Add(time.Hour)
	require.NoError(t, r.Save(ctx, "fresh", 3))
	r.mu.Lock()
	assert.Len(t, r.m, 1, "save sweeps expired entries")
	r.mu.Unlock()
}

func TestSessionRepo_NoTTL(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewSessionRepo(0)
	r.now = func() time.Time { return clock }

	require.NoError(t, r.Save(ctx, "sid", 9))
	clock = clock.Add(24 * 365 * time.Hour)
	_, ok, err := r.FindUserID(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, ok)
}

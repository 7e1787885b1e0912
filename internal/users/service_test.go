package users_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpage-auth/webpage/internal/password"
	"github.com/webpage-auth/webpage/internal/shared"
	"github.com/webpage-auth/webpage/internal/testing/memstore"
	"github.com/webpage-auth/webpage/internal/users"
)

func testHasher() *password.Hasher {
	return password.NewHasher(password.Params{MemoryKiB: 8 * 1024, Iterations: 1, Parallelism: 1})
}

func newTestService() (*users.Service, *memstore.Users, *password.Hasher) {
	store := memstore.NewUsers()
	hasher := testHasher()
	return users.NewService(store, hasher), store, hasher
}

func TestSignupCreatesOneUser(t *testing.T) {
	svc, store, hasher := newTestService()
	ctx := context.Background()

	user, err := svc.Signup(ctx, users.SignupInput{FirstName: "Ann", LastName: "Lee", Username: "ann", Password: "pw123"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, 1, store.Len())

	stored, err := store.FindByUsername(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
	assert.Equal(t, "Ann", stored.FirstName)
	assert.Equal(t, "Lee", stored.LastName)
	assert.NotEqual(t, "pw123", stored.PasswordHash)
	assert.True(t, hasher.Verify("pw123", stored.PasswordHash))
	assert.Nil(t, stored.SessionStart)
	assert.Nil(t, stored.SessionEnd)
}

func TestSignupAssignsDistinctIDs(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Signup(ctx, users.SignupInput{FirstName: "Ann", LastName: "Lee", Username: "ann", Password: "pw"})
	require.NoError(t, err)
	b, err := svc.Signup(ctx, users.SignupInput{FirstName: "Bob", LastName: "Ray", Username: "bob", Password: "pw"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSignupRequiresAllFields(t *testing.T) {
	cases := map[string]users.SignupInput{
		"first name": {LastName: "Lee", Username: "ann", Password: "pw"},
		"last name":  {FirstName: "Ann", Username: "ann", Password: "pw"},
		"username":   {FirstName: "Ann", LastName: "Lee", Password: "pw"},
		"password":   {FirstName: "Ann", LastName: "Lee", Username: "ann"},
		"blank name": {FirstName: "   ", LastName: "Lee", Username: "ann", Password: "pw"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			svc, store, _ := newTestService()
			_, err := svc.Signup(context.Background(), in)
			assert.ErrorIs(t, err, shared.ErrValidation)
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestSignupDuplicateLeavesOriginalUnchanged(t *testing.T) {
	svc, store, hasher := newTestService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, users.SignupInput{FirstName: "Ann", LastName: "Lee", Username: "ann", Password: "pw123"})
	require.NoError(t, err)
	before, err := store.FindByUsername(ctx, "ann")
	require.NoError(t, err)

	_, err = svc.Signup(ctx, users.SignupInput{FirstName: "Other", LastName: "Person", Username: "ann", Password: "different"})
	assert.ErrorIs(t, err, shared.ErrDuplicateUsername)
	assert.Equal(t, 1, store.Len())

	after, err := store.FindByUsername(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.True(t, hasher.Verify("pw123", after.PasswordHash))
}

func TestSignupUsernameIsCaseSensitive(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, users.SignupInput{FirstName: "Ann", LastName: "Lee", Username: "ann", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.Signup(ctx, users.SignupInput{FirstName: "Ann", LastName: "Lee", Username: "Ann", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
}

func TestConcurrentSignupsSameUsername(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	const attempts = 2
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Signup(ctx, users.SignupInput{FirstName: "Bob", LastName: "Ray", Username: "bob", Password: "pw"})
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, shared.ErrDuplicateUsername):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)
	assert.Equal(t, 1, store.Len())
}

func TestSignupStorageErrorPropagates(t *testing.T) {
	svc, store, _ := newTestService()
	store.Err = errors.New("connection refused")

	_, err := svc.Signup(context.Background(), users.SignupInput{FirstName: "Ann", LastName: "Lee", Username: "ann", Password: "pw"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrDuplicateUsername)
	assert.NotErrorIs(t, err, shared.ErrValidation)
}

func TestListUsersInInsertionOrder(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	for _, name := range []string{"carol", "ann", "bob"} {
		_, err := svc.Signup(ctx, users.SignupInput{FirstName: "F", LastName: "L", Username: name, Password: "pw"})
		require.NoError(t, err)
	}

	list, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"carol", "ann", "bob"}, []string{list[0].Username, list[1].Username, list[2].Username})
}

func TestListUsersConcurrentCallersGetOwnSlices(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Signup(ctx, users.SignupInput{FirstName: "F", LastName: "L", Username: "ann", Password: "pw"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]users.User, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			list, err := svc.ListUsers(ctx)
			assert.NoError(t, err)
			results[i] = list
		}(i)
	}
	wg.Wait()

	results[0][0].Username = "mutated"
	for _, list := range results[1:] {
		require.Len(t, list, 1)
		assert.Equal(t, "ann", list[0].Username)
	}
}

func TestSignupStoresUsernameExactly(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, users.SignupInput{FirstName: "Ann", LastName: "Lee", Username: "ann", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.Signup(ctx, users.SignupInput{FirstName: "Ann", LastName: "Lee", Username: "ann ", Password: "pw"})
	require.NoError(t, err, "a trailing space makes a different username")
	assert.Equal(t, 2, store.Len())

	padded, err := store.FindByUsername(ctx, "ann ")
	require.NoError(t, err)
	assert.Equal(t, "ann ", padded.Username)

	_, err = svc.Signup(ctx, users.SignupInput{FirstName: "Ann", LastName: "Lee", Username: "   ", Password: "pw"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

// blockingStore holds ListAll open until release is closed or its ctx ends.
type blockingStore struct {
	*memstore.Users
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (s *blockingStore) ListAll(ctx context.Context) ([]users.User, error) {
	if s.calls.Add(1) == 1 {
		close(s.started)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.release:
	}
	return s.Users.ListAll(ctx)
}

func TestListUsersSurvivesFirstCallerCancellation(t *testing.T) {
	store := &blockingStore{Users: memstore.NewUsers(), started: make(chan struct{}), release: make(chan struct{})}
	_, err := store.Insert(context.Background(), users.NewUser{FirstName: "Ann", LastName: "Lee", Username: "ann", PasswordHash: "h"})
	require.NoError(t, err)
	svc := users.NewService(store, testHasher())

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.ListUsers(firstCtx)
		firstErr <- err
	}()
	<-store.started

	type result struct {
		list []users.User
		err  error
	}
	second := make(chan result, 1)
	go func() {
		list, err := svc.ListUsers(context.Background())
		second <- result{list, err}
	}()
	// Give the second caller time to join the in-flight query.
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(store.release)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		require.Len(t, res.list, 1)
		assert.Equal(t, "ann", res.list[0].Username)
	case <-time.After(2 * time.Second):
		t.Fatal("live caller did not return")
	}
	assert.Equal(t, int32(1), store.calls.Load())
}

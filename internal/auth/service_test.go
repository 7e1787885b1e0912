package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpage-auth/webpage/internal/password"
	"github.com/webpage-auth/webpage/internal/shared"
	"github.com/webpage-auth/webpage/internal/testing/memstore"
	"github.com/webpage-auth/webpage/internal/users"
)

type countingVerifier struct {
	*password.Hasher
	dummyCalls int
}

func (v *countingVerifier) VerifyDummy(plain string) bool {
	v.dummyCalls++
	return v.Hasher.VerifyDummy(plain)
}

func newServiceFixture(t *testing.T) (*Service, *memstore.Users, *countingVerifier) {
	t.Helper()
	hasher := password.NewHasher(password.Params{MemoryKiB: 8 * 1024, Iterations: 1, Parallelism: 1})
	store := memstore.NewUsers()
	hash, err := hasher.Hash("pw123")
	require.NoError(t, err)
	_, err = store.Insert(context.Background(), users.NewUser{FirstName: "Ann", LastName: "Lee", Username: "ann", PasswordHash: hash})
	require.NoError(t, err)
	verifier := &countingVerifier{Hasher: hasher}
	return NewService(store, verifier), store, verifier
}

func TestAuthenticateSuccess(t *testing.T) {
	svc, _, _ := newServiceFixture(t)
	user, err := svc.Authenticate(context.Background(), "ann", "pw123")
	require.NoError(t, err)
	assert.Equal(t, "ann", user.Username)
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	svc, _, verifier := newServiceFixture(t)

	_, wrongPassword := svc.Authenticate(context.Background(), "ann", "nope")
	_, unknownUser := svc.Authenticate(context.Background(), "zed", "pw123")

	assert.ErrorIs(t, wrongPassword, shared.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, shared.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
	assert.Equal(t, 1, verifier.dummyCalls, "unknown users still pay for a hash verification")
}

func TestAuthenticateIsCaseSensitive(t *testing.T) {
	svc, _, _ := newServiceFixture(t)
	_, err := svc.Authenticate(context.Background(), "ANN", "pw123")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateStorageErrorPropagates(t *testing.T) {
	svc, store, _ := newServiceFixture(t)
	boom := errors.New("connection refused")
	store.Err = boom

	_, err := svc.Authenticate(context.Background(), "ann", "pw123")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestStartAndEndSessionRecordTimes(t *testing.T) {
	svc, store, _ := newServiceFixture(t)
	login := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	logout := login.Add(90 * time.Minute)
	ctx := context.Background()

	svc.now = func() time.Time { return login }
	at, err := svc.StartSession(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, login, at)

	svc.now = func() time.Time { return logout }
	_, err = svc.EndSession(ctx, "ann")
	require.NoError(t, err)

	user, err := store.FindByUsername(ctx, "ann")
	require.NoError(t, err)
	require.NotNil(t, user.SessionStart)
	require.NotNil(t, user.SessionEnd)
	assert.Equal(t, login, *user.SessionStart)
	assert.Equal(t, logout, *user.SessionEnd)
}

func TestSessionTimesForUnknownUserAreNoop(t *testing.T) {
	svc, store, _ := newServiceFixture(t)
	_, err := svc.StartSession(context.Background(), "ghost")
	assert.NoError(t, err)
	_, err = svc.EndSession(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

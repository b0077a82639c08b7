package usecase

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshkart/pkg/errors"
)

type fakeRevoker struct {
	revoked []string
	err     error
}

func (f *fakeRevoker) RevokeRefreshTokens(ctx context.Context, uid string) error {
	if f.err != nil {
		return f.err
	}
	f.revoked = append(f.revoked, uid)
	return nil
}

type fakeSessions map[string]int

func (f fakeSessions) DisconnectUser(userID string) int {
	n := f[userID]
	delete(f, userID)
	return n
}

func TestLogout(t *testing.T) {
	revoker := &fakeRevoker{}
	sessions := fakeSessions{buyerID: 2}
	uc := NewSessionUseCase(revoker, sessions)

	closed, err := uc.Logout(context.Background(), buyerID)
	require.NoError(t, err)
	assert.Equal(t, 2, closed)
	assert.Equal(t, []string{buyerID}, revoker.revoked)
	assert.Empty(t, sessions)

	_, err = uc.Logout(context.Background(), "")
	assert.True(t, errors.Is(err, errors.CodeAuthenticationRequired))
}

func TestLogoutKeepsSessionsWhenRevokeFails(t *testing.T) {
	sessions := fakeSessions{buyerID: 1}
	uc := NewSessionUseCase(&fakeRevoker{err: stderrors.New("auth down")}, sessions)

	_, err := uc.Logout(context.Background(), buyerID)
	assert.True(t, errors.Is(err, errors.CodeInternal))
	assert.Equal(t, 1, sessions[buyerID])
}

func TestLogoutWithoutRevoker(t *testing.T) {
	uc := NewSessionUseCase(nil, fakeSessions{})
	closed, err := uc.Logout(context.Background(), buyerID)
	require.NoError(t, err)
	assert.Zero(t, closed)
}

package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInviteTokenRoundTrip(t *testing.T) {
	signer := NewInviteTokenSigner("test-secret")

	invitationId := uuid.New()
	token, err := signer.Sign(invitationId, "bob@mail.com", time.Now().Add(time.Hour))
	require.NoError(t, err)

	gotId, gotEmail, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, invitationId, gotId)
	assert.Equal(t, "bob@mail.com", gotEmail)
}

func TestInviteTokenWrongSecret(t *testing.T) {
	signer := NewInviteTokenSigner("test-secret")
	other := NewInviteTokenSigner("other-secret")

	token, err := signer.Sign(uuid.New(), "bob@mail.com", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, _, err = other.Verify(token)
	assert.Error(t, err)
}

func TestInviteTokenExpired(t *testing.T) {
	signer := NewInviteTokenSigner("test-secret")

	token, err := signer.Sign(uuid.New(), "bob@mail.com", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, _, err = signer.Verify(token)
	assert.Error(t, err)
}

func TestInviteTokenGarbage(t *testing.T) {
	signer := NewInviteTokenSigner("test-secret")

	_, _, err := signer.Verify("not-a-token")
	assert.Error(t, err)
}

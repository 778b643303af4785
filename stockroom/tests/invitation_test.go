package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/gerald-spec/novastock/stockroom/schema"
)

func TestInvitationFlow(t *testing.T) {
	env := setupTestEnv(t)

	alice, err := env.newUser("alice")
	if err != nil {
		t.Fatal(err)
	}
	bob, err := env.newUser("bob")
	if err != nil {
		t.Fatal(err)
	}

	workspaceId, err := alice.createWorkspace("warehouse")
	if err != nil {
		t.Fatal(err)
	}

	invitationId, err := alice.createInvitation(workspaceId, "bob@mail.com", "member")
	if err != nil {
		t.Fatal(err)
	}

	pending, err := bob.myInvitations()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].WorkspaceName != "warehouse" {
		t.Fatalf("unexpected pending invitations: %+v", pending)
	}

	if err := bob.acceptInvitation(invitationId); err != nil {
		t.Fatal(err)
	}

	info, err := bob.workspaceInfo(workspaceId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Role != "member" {
		t.Fatalf("expected role 'member' after accepting invitation, got '%v'", info.Role)
	}

	// Accepted invitations are removed.
	remaining, err := alice.listInvitations(workspaceId)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no pending invitations after accept, got %d", len(remaining))
	}
}

func TestInvitationRequiresAdmin(t *testing.T) {
	env := setupTestEnv(t)

	alice, err := env.newUser("alice")
	if err != nil {
		t.Fatal(err)
	}

	workspaceId, err := alice.createWorkspace("warehouse")
	if err != nil {
		t.Fatal(err)
	}

	bob := addMember(t, env, alice, workspaceId, "bob")

	_, err = bob.createInvitation(workspaceId, "charlie@mail.com", "member")
	if statusCode(err) != http.StatusForbidden {
		t.Fatalf("expected status 403 for member creating invitation, got %d", statusCode(err))
	}
}

func TestDuplicateInvitation(t *testing.T) {
	env := setupTestEnv(t)

	alice, err := env.newUser("alice")
	if err != nil {
		t.Fatal(err)
	}

	workspaceId, err := alice.createWorkspace("warehouse")
	if err != nil {
		t.Fatal(err)
	}

	_, err = alice.createInvitation(workspaceId, "bob@mail.com", "member")
	if err != nil {
		t.Fatal(err)
	}

	_, err = alice.createInvitation(workspaceId, "bob@mail.com", "admin")
	if statusCode(err) != http.StatusConflict {
		t.Fatalf("expected status 409 for duplicate invitation, got %d", statusCode(err))
	}
}

func TestInviteExistingMember(t *testing.T) {
	env := setupTestEnv(t)

	alice, err := env.newUser("alice")
	if err != nil {
		t.Fatal(err)
	}

	workspaceId, err := alice.createWorkspace("warehouse")
	if err != nil {
		t.Fatal(err)
	}

	addMember(t, env, alice, workspaceId, "bob")

	_, err = alice.createInvitation(workspaceId, "bob@mail.com", "member")
	if statusCode(err) != http.StatusConflict {
		t.Fatalf("expected status 409 inviting existing member, got %d", statusCode(err))
	}
}

func TestExpiredInvitationGrantsNoAccess(t *testing.T) {
	env := setupTestEnv(t)

	alice, err := env.newUser("alice")
	if err != nil {
		t.Fatal(err)
	}
	bob, err := env.newUser("bob")
	if err != nil {
		t.Fatal(err)
	}

	workspaceId, err := alice.createWorkspace("warehouse")
	if err != nil {
		t.Fatal(err)
	}

	invitationId, err := alice.createInvitation(workspaceId, "bob@mail.com", "member")
	if err != nil {
		t.Fatal(err)
	}

	result := env.db.Model(&schema.WorkspaceInvitation{}).
		Where("id = ?", invitationId).
		Update("expires_at", time.Now().UTC().Add(-time.Hour))
	if result.Error != nil {
		t.Fatal(result.Error)
	}

	err = bob.acceptInvitation(invitationId)
	if statusCode(err) != http.StatusGone {
		t.Fatalf("expected status 410 accepting expired invitation, got %d", statusCode(err))
	}

	_, err = bob.workspaceInfo(workspaceId)
	if statusCode(err) != http.StatusForbidden {
		t.Fatalf("expected no access after expired invitation accept, got %d", statusCode(err))
	}
}

func TestInvitationWrongRecipient(t *testing.T) {
	env := setupTestEnv(t)

	alice, err := env.newUser("alice")
	if err != nil {
		t.Fatal(err)
	}
	mallory, err := env.newUser("mallory")
	if err != nil {
		t.Fatal(err)
	}

	workspaceId, err := alice.createWorkspace("warehouse")
	if err != nil {
		t.Fatal(err)
	}

	invitationId, err := alice.createInvitation(workspaceId, "bob@mail.com", "member")
	if err != nil {
		t.Fatal(err)
	}

	err = mallory.acceptInvitation(invitationId)
	if statusCode(err) != http.StatusForbidden {
		t.Fatalf("expected status 403 accepting another user's invitation, got %d", statusCode(err))
	}
}

func TestRevokeInvitation(t *testing.T) {
	env := setupTestEnv(t)

	alice, err := env.newUser("alice")
	if err != nil {
		t.Fatal(err)
	}
	bob, err := env.newUser("bob")
	if err != nil {
		t.Fatal(err)
	}

	workspaceId, err := alice.createWorkspace("warehouse")
	if err != nil {
		t.Fatal(err)
	}

	invitationId, err := alice.createInvitation(workspaceId, "bob@mail.com", "member")
	if err != nil {
		t.Fatal(err)
	}

	if err := alice.revokeInvitation(workspaceId, invitationId); err != nil {
		t.Fatal(err)
	}

	err = bob.acceptInvitation(invitationId)
	if statusCode(err) != http.StatusNotFound {
		t.Fatalf("expected status 404 accepting revoked invitation, got %d", statusCode(err))
	}
}

func TestAcceptInvitationByToken(t *testing.T) {
	env := setupTestEnv(t)

	alice, err := env.newUser("alice")
	if err != nil {
		t.Fatal(err)
	}
	bob, err := env.newUser("bob")
	if err != nil {
		t.Fatal(err)
	}

	workspaceId, err := alice.createWorkspace("warehouse")
	if err != nil {
		t.Fatal(err)
	}

	_, token, err := alice.createInvitationWithToken(workspaceId, "bob@mail.com", "member")
	if err != nil {
		t.Fatal(err)
	}
	if token == "" {
		t.Fatal("expected invitation response to include an invite token")
	}

	err = bob.acceptInvitationToken("not-a-real-token")
	if statusCode(err) != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for malformed token, got %d", statusCode(err))
	}

	if err := bob.acceptInvitationToken(token); err != nil {
		t.Fatal(err)
	}

	info, err := bob.workspaceInfo(workspaceId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Role != "member" {
		t.Fatalf("expected role 'member' after accepting by token, got '%v'", info.Role)
	}

	// The invitation is consumed, so replaying the token finds nothing.
	err = bob.acceptInvitationToken(token)
	if statusCode(err) != http.StatusNotFound {
		t.Fatalf("expected status 404 replaying a consumed token, got %d", statusCode(err))
	}
}

package tests

import (
	"net/http"
	"testing"

	"github.com/gerald-spec/novastock/stockroom/schema"

	"github.com/google/uuid"
)

func TestCreateAndListWorkspaces(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("alice")
	if err != nil {
		t.Fatal(err)
	}

	workspaceId, err := user.createWorkspace("warehouse-east")
	if err != nil {
		t.Fatal(err)
	}

	workspaces, err := user.listWorkspaces()
	if err != nil {
		t.Fatal(err)
	}
	if len(workspaces) != 2 {
		t.Fatalf("expected 2 workspaces, got %d", len(workspaces))
	}

	info, err := user.workspaceInfo(workspaceId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "warehouse-east" {
		t.Fatalf("unexpected workspace name '%v'", info.Name)
	}
	if info.Role != "admin" {
		t.Fatalf("expected creator to be admin, got role '%v'", info.Role)
	}
}

func TestCreateWorkspaceEmptyName(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("alice")
	if err != nil {
		t.Fatal(err)
	}

	_, err = user.createWorkspace("")
	if err == nil {
		t.Fatal("expected creating workspace with empty name to fail")
	}
	if statusCode(err) != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", statusCode(err))
	}
}

func TestNonMemberCannotAccessWorkspace(t *testing.T) {
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

	_, err = bob.workspaceInfo(workspaceId)
	if err == nil {
		t.Fatal("expected non member workspace access to fail")
	}
	if statusCode(err) != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", statusCode(err))
	}

	_, err = bob.listMembers(workspaceId)
	if statusCode(err) != http.StatusForbidden {
		t.Fatalf("expected status 403 listing members, got %d", statusCode(err))
	}

	_, err = bob.listSuppliers(workspaceId)
	if statusCode(err) != http.StatusForbidden {
		t.Fatalf("expected status 403 listing suppliers, got %d", statusCode(err))
	}
}

func addMember(t *testing.T, env *testEnv, admin client, workspaceId, username string) client {
	t.Helper()

	member, err := env.newUser(username)
	if err != nil {
		t.Fatal(err)
	}

	invitationId, err := admin.createInvitation(workspaceId, username+"@mail.com", "member")
	if err != nil {
		t.Fatal(err)
	}

	if err := member.acceptInvitation(invitationId); err != nil {
		t.Fatal(err)
	}

	return member
}

func TestRenameWorkspaceRequiresAdmin(t *testing.T) {
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

	err = bob.renameWorkspace(workspaceId, "bobs-warehouse")
	if statusCode(err) != http.StatusForbidden {
		t.Fatalf("expected status 403 for member rename, got %d", statusCode(err))
	}

	if err := alice.renameWorkspace(workspaceId, "warehouse-2"); err != nil {
		t.Fatal(err)
	}

	info, err := alice.workspaceInfo(workspaceId)
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "warehouse-2" {
		t.Fatalf("expected renamed workspace, got '%v'", info.Name)
	}
}

func TestUpdateMemberRole(t *testing.T) {
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

	err = alice.updateMemberRole(workspaceId, bob.userId, "overlord")
	if statusCode(err) != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for invalid role, got %d", statusCode(err))
	}

	if err := alice.updateMemberRole(workspaceId, bob.userId, "admin"); err != nil {
		t.Fatal(err)
	}

	members, err := alice.listMembers(workspaceId)
	if err != nil {
		t.Fatal(err)
	}
	for _, member := range members {
		if member.Role != "admin" {
			t.Fatalf("expected all members to be admins, user %v has role '%v'", member.UserId, member.Role)
		}
	}
}

func TestLastAdminCannotBeDemotedOrRemoved(t *testing.T) {
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

	err = alice.updateMemberRole(workspaceId, alice.userId, "member")
	if statusCode(err) != http.StatusConflict {
		t.Fatalf("expected status 409 demoting last admin, got %d", statusCode(err))
	}

	err = alice.removeMember(workspaceId, alice.userId)
	if statusCode(err) != http.StatusConflict {
		t.Fatalf("expected status 409 removing last admin, got %d", statusCode(err))
	}

	members, err := alice.listMembers(workspaceId)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 {
		t.Fatalf("expected membership unchanged, got %d members", len(members))
	}
}

func TestMemberSelfLeave(t *testing.T) {
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
	charlie := addMember(t, env, alice, workspaceId, "charlie")

	// A regular member cannot remove anyone but themselves.
	err = bob.removeMember(workspaceId, charlie.userId)
	if statusCode(err) != http.StatusForbidden {
		t.Fatalf("expected status 403 for member removing another member, got %d", statusCode(err))
	}

	if err := bob.removeMember(workspaceId, bob.userId); err != nil {
		t.Fatal(err)
	}

	_, err = bob.workspaceInfo(workspaceId)
	if statusCode(err) != http.StatusForbidden {
		t.Fatalf("expected status 403 after leaving workspace, got %d", statusCode(err))
	}
}

func TestDeleteWorkspace(t *testing.T) {
	env := setupTestEnv(t)

	alice, err := env.newUser("alice")
	if err != nil {
		t.Fatal(err)
	}

	workspaceId, err := alice.createWorkspace("warehouse")
	if err != nil {
		t.Fatal(err)
	}

	if err := alice.deleteWorkspace(workspaceId); err != nil {
		t.Fatal(err)
	}

	workspaces, err := alice.listWorkspaces()
	if err != nil {
		t.Fatal(err)
	}
	for _, ws := range workspaces {
		if ws.Id.String() == workspaceId {
			t.Fatal("deleted workspace still listed")
		}
	}
}

func TestCreateWorkspaceRollsBackWithoutMembership(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("alice")
	if err != nil {
		t.Fatal(err)
	}

	// Force the admin membership insert to fail so creation cannot complete.
	if err := env.db.Migrator().DropTable(&schema.WorkspaceMember{}); err != nil {
		t.Fatal(err)
	}

	_, err = user.createWorkspace("warehouse-east")
	if err == nil {
		t.Fatal("expected workspace creation to fail without a membership row")
	}

	var workspaces int64
	if err := env.db.Model(&schema.Workspace{}).Count(&workspaces).Error; err != nil {
		t.Fatal(err)
	}
	if workspaces != 1 {
		t.Fatalf("expected only the default workspace to remain, found %d rows", workspaces)
	}
}

func TestUpdateRoleOfUnknownUser(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.newUser("alice")
	if err != nil {
		t.Fatal(err)
	}

	workspaceId, err := admin.createWorkspace("warehouse-east")
	if err != nil {
		t.Fatal(err)
	}

	err = admin.updateMemberRole(workspaceId, uuid.NewString(), "admin")
	if statusCode(err) != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown user, got %d", statusCode(err))
	}
}

package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gerald-spec/novastock/stockroom/schema"
	"github.com/gerald-spec/novastock/utils"

	"gorm.io/gorm"
)

// WorkspaceMemberOnly rejects requests from users without a membership row in
// the workspace named by the {workspace_id} url param. Absence of a row means
// no access, there is no fallthrough role.
func WorkspaceMemberOnly(db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			workspaceId, err := utils.URLParamUUID(r, "workspace_id")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			isMember, err := schema.IsWorkspaceMember(workspaceId, user.Id, db)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if !isMember {
				http.Error(w, fmt.Sprintf("user %v is not a member of workspace %v", user.Id, workspaceId), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

// WorkspaceAdminOnly requires an admin membership in the workspace named by
// the {workspace_id} url param.
func WorkspaceAdminOnly(db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			workspaceId, err := utils.URLParamUUID(r, "workspace_id")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			member, err := schema.GetWorkspaceMember(workspaceId, user.Id, db)
			if err != nil {
				if errors.Is(err, schema.ErrMemberNotFound) {
					http.Error(w, fmt.Sprintf("user %v is not a member of workspace %v", user.Id, workspaceId), http.StatusForbidden)
					return
				}
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if member.Role != schema.RoleAdmin {
				http.Error(w, fmt.Sprintf("user %v must be a workspace admin to access endpoint", user.Id), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

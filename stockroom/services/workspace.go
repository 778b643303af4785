package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gerald-spec/novastock/stockroom/auth"
	"github.com/gerald-spec/novastock/stockroom/schema"
	"github.com/gerald-spec/novastock/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkspaceService struct {
	db          *gorm.DB
	userAuth    auth.IdentityProvider
	inviteToken *auth.InviteTokenSigner
}

func (s *WorkspaceService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Post("/create", s.Create)
	r.Get("/list", s.List)

	r.Route("/{workspace_id}", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.WorkspaceMemberOnly(s.db))

			r.Get("/", s.Get)
			r.Get("/members", s.ListMembers)
			r.Delete("/members/{user_id}", s.RemoveMember)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.WorkspaceAdminOnly(s.db))

			r.Post("/name", s.Rename)
			r.Delete("/", s.Delete)

			r.Post("/members/{user_id}/role", s.UpdateMemberRole)

			r.Get("/invitations", s.ListInvitations)
			r.Post("/invitations", s.CreateInvitation)
			r.Delete("/invitations/{invitation_id}", s.RevokeInvitation)
		})
	})

	return r
}

type createWorkspaceRequest struct {
	Name string `json:"name"`
}

type createWorkspaceResponse struct {
	WorkspaceId uuid.UUID `json:"workspace_id"`
}

func (s *WorkspaceService) Create(w http.ResponseWriter, r *http.Request) {
	var params createWorkspaceRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if len(params.Name) == 0 {
		http.Error(w, "workspace name must not be empty", http.StatusUnprocessableEntity)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	workspace := schema.Workspace{
		Id:        uuid.New(),
		Name:      params.Name,
		CreatedBy: user.Id,
		CreatedAt: time.Now().UTC(),
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if result := txn.Create(&workspace); result.Error != nil {
			slog.Error("sql error creating workspace", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		member := schema.WorkspaceMember{
			WorkspaceId: workspace.Id,
			UserId:      user.Id,
			Role:        schema.RoleAdmin,
			JoinedAt:    time.Now().UTC(),
		}
		if result := txn.Create(&member); result.Error != nil {
			slog.Error("sql error creating workspace admin membership", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating workspace: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("workspace created", "workspace_id", workspace.Id, "created_by", user.Id)

	utils.WriteJsonResponse(w, createWorkspaceResponse{WorkspaceId: workspace.Id})
}

type WorkspaceInfo struct {
	Id        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	Role      string    `json:"role"`
}

func (s *WorkspaceService) List(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var memberships []schema.WorkspaceMember
	result := s.db.Preload("Workspace").Where("user_id = ?", user.Id).Find(&memberships)
	if result.Error != nil {
		slog.Error("sql error listing workspaces", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing workspaces: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]WorkspaceInfo, 0, len(memberships))
	for _, member := range memberships {
		infos = append(infos, WorkspaceInfo{
			Id:        member.WorkspaceId,
			Name:      member.Workspace.Name,
			CreatedBy: member.Workspace.CreatedBy,
			CreatedAt: member.Workspace.CreatedAt,
			Role:      member.Role,
		})
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *WorkspaceService) Get(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	workspace, err := schema.GetWorkspace(workspaceId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrWorkspaceNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting workspace: %v", err), http.StatusInternalServerError)
		return
	}

	role, err := schema.GetUserWorkspaceRole(workspaceId, user.Id, s.db)
	if err != nil {
		http.Error(w, fmt.Sprintf("error getting workspace: %v", err), http.StatusInternalServerError)
		return
	}

	info := WorkspaceInfo{
		Id:        workspace.Id,
		Name:      workspace.Name,
		CreatedBy: workspace.CreatedBy,
		CreatedAt: workspace.CreatedAt,
		Role:      role,
	}
	utils.WriteJsonResponse(w, info)
}

type renameWorkspaceRequest struct {
	Name string `json:"name"`
}

func (s *WorkspaceService) Rename(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params renameWorkspaceRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if len(params.Name) == 0 {
		http.Error(w, "workspace name must not be empty", http.StatusUnprocessableEntity)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkWorkspaceExists(txn, workspaceId); err != nil {
			return err
		}

		result := txn.Model(&schema.Workspace{Id: workspaceId}).Update("name", params.Name)
		if result.Error != nil {
			slog.Error("sql error renaming workspace", "workspace_id", workspaceId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error renaming workspace: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

func (s *WorkspaceService) Delete(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkWorkspaceExists(txn, workspaceId); err != nil {
			return err
		}

		// Dependent rows are removed explicitly so deletion does not depend
		// on foreign key enforcement being enabled.
		lineDelete := txn.Where(
			"purchase_order_id IN (?)",
			txn.Model(&schema.PurchaseOrder{}).Select("id").Where("workspace_id = ?", workspaceId),
		).Delete(&schema.PurchaseOrderItem{})
		if lineDelete.Error != nil {
			slog.Error("sql error deleting workspace order lines", "workspace_id", workspaceId, "error", lineDelete.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		for _, model := range []interface{}{
			&schema.PurchaseOrder{}, &schema.InventoryItem{}, &schema.Supplier{},
			&schema.WorkspaceInvitation{}, &schema.WorkspaceMember{},
		} {
			result := txn.Where("workspace_id = ?", workspaceId).Delete(model)
			if result.Error != nil {
				slog.Error("sql error deleting workspace rows", "workspace_id", workspaceId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		result := txn.Delete(&schema.Workspace{Id: workspaceId})
		if result.Error != nil {
			slog.Error("sql error deleting workspace", "workspace_id", workspaceId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting workspace: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("workspace deleted", "workspace_id", workspaceId)

	utils.WriteSuccess(w)
}

type WorkspaceMemberInfo struct {
	UserId   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

func (s *WorkspaceService) ListMembers(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var members []schema.WorkspaceMember
	result := s.db.Preload("User").Where("workspace_id = ?", workspaceId).Find(&members)
	if result.Error != nil {
		slog.Error("sql error listing workspace members", "workspace_id", workspaceId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing members: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]WorkspaceMemberInfo, 0, len(members))
	for _, member := range members {
		infos = append(infos, WorkspaceMemberInfo{
			UserId:   member.UserId,
			Username: member.User.Username,
			Email:    member.User.Email,
			Role:     member.Role,
			JoinedAt: member.JoinedAt,
		})
	}
	utils.WriteJsonResponse(w, infos)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateMemberRole changes a member's role. Demoting the last admin is
// rejected so the workspace always has at least one admin.
func (s *WorkspaceService) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userId, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateRoleRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := schema.CheckValidRole(params.Role); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkUserExists(txn, userId); err != nil {
			return err
		}

		member, err := schema.GetWorkspaceMember(workspaceId, userId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrMemberNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if member.Role == schema.RoleAdmin && params.Role != schema.RoleAdmin {
			admins, err := schema.CountWorkspaceAdmins(workspaceId, txn)
			if err != nil {
				return CodedError(err, http.StatusInternalServerError)
			}
			if admins < 2 {
				return CodedError(fmt.Errorf("cannot demote user %v since workspace %v would have no admins left", userId, workspaceId), http.StatusConflict)
			}
		}

		result := txn.Model(&schema.WorkspaceMember{}).
			Where("workspace_id = ? AND user_id = ?", workspaceId, userId).
			Update("role", params.Role)
		if result.Error != nil {
			slog.Error("sql error updating member role", "workspace_id", workspaceId, "user_id", userId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating member role: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

// RemoveMember removes a membership. Admins can remove anyone, regular
// members can only remove themselves. Removing the last admin is rejected.
func (s *WorkspaceService) RemoveMember(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userId, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	caller, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		callerMember, err := schema.GetWorkspaceMember(workspaceId, caller.Id, txn)
		if err != nil {
			if errors.Is(err, schema.ErrMemberNotFound) {
				return CodedError(err, http.StatusForbidden)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if callerMember.Role != schema.RoleAdmin && caller.Id != userId {
			return CodedError(fmt.Errorf("user %v cannot remove other members from workspace %v", caller.Id, workspaceId), http.StatusForbidden)
		}

		member, err := schema.GetWorkspaceMember(workspaceId, userId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrMemberNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if member.Role == schema.RoleAdmin {
			admins, err := schema.CountWorkspaceAdmins(workspaceId, txn)
			if err != nil {
				return CodedError(err, http.StatusInternalServerError)
			}
			if admins < 2 {
				return CodedError(fmt.Errorf("cannot remove user %v since workspace %v would have no admins left", userId, workspaceId), http.StatusConflict)
			}
		}

		result := txn.Where("workspace_id = ? AND user_id = ?", workspaceId, userId).Delete(&schema.WorkspaceMember{})
		if result.Error != nil {
			slog.Error("sql error removing workspace member", "workspace_id", workspaceId, "user_id", userId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error removing member: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("workspace member removed", "workspace_id", workspaceId, "user_id", userId, "removed_by", caller.Id)

	utils.WriteSuccess(w)
}

func (s *WorkspaceService) ListInvitations(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var invitations []schema.WorkspaceInvitation
	result := s.db.Preload("Workspace").Where("workspace_id = ?", workspaceId).Find(&invitations)
	if result.Error != nil {
		slog.Error("sql error listing workspace invitations", "workspace_id", workspaceId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing invitations: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]InvitationInfo, 0, len(invitations))
	for _, invitation := range invitations {
		infos = append(infos, InvitationInfo{
			Id:            invitation.Id,
			WorkspaceId:   invitation.WorkspaceId,
			WorkspaceName: invitation.Workspace.Name,
			Email:         invitation.Email,
			Role:          invitation.Role,
			CreatedAt:     invitation.CreatedAt,
			ExpiresAt:     invitation.ExpiresAt,
		})
	}
	utils.WriteJsonResponse(w, infos)
}

type createInvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type createInvitationResponse struct {
	InvitationId uuid.UUID `json:"invitation_id"`
	InviteToken  string    `json:"invite_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *WorkspaceService) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params createInvitationRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if !utils.ValidEmail(params.Email) {
		http.Error(w, fmt.Sprintf("invalid email '%v'", params.Email), http.StatusUnprocessableEntity)
		return
	}
	if err := schema.CheckValidRole(params.Role); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	caller, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	email := utils.NormalizeEmail(params.Email)
	now := time.Now().UTC()

	invitation := schema.WorkspaceInvitation{
		Id:          uuid.New(),
		WorkspaceId: workspaceId,
		Email:       email,
		Role:        params.Role,
		InvitedBy:   caller.Id,
		CreatedAt:   now,
		ExpiresAt:   now.Add(schema.InvitationTTL),
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkWorkspaceExists(txn, workspaceId); err != nil {
			return err
		}

		var existing schema.WorkspaceInvitation
		findResult := txn.Limit(1).Find(&existing, "workspace_id = ? AND email = ?", workspaceId, email)
		if findResult.Error != nil {
			slog.Error("sql error checking for duplicate invitation", "workspace_id", workspaceId, "error", findResult.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if findResult.RowsAffected != 0 {
			return CodedError(fmt.Errorf("an invitation for %v already exists in workspace %v", email, workspaceId), http.StatusConflict)
		}

		var member schema.WorkspaceMember
		memberResult := txn.Joins("User").
			Where("workspace_members.workspace_id = ? AND \"User\".email = ?", workspaceId, email).
			Limit(1).Find(&member)
		if memberResult.Error != nil {
			slog.Error("sql error checking for existing member by email", "workspace_id", workspaceId, "error", memberResult.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if memberResult.RowsAffected != 0 {
			return CodedError(fmt.Errorf("user with email %v is already a member of workspace %v", email, workspaceId), http.StatusConflict)
		}

		if result := txn.Create(&invitation); result.Error != nil {
			slog.Error("sql error creating invitation", "workspace_id", workspaceId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating invitation: %v", err), GetResponseCode(err))
		return
	}

	token, err := s.inviteToken.Sign(invitation.Id, email, invitation.ExpiresAt)
	if err != nil {
		slog.Error("error signing invitation token", "invitation_id", invitation.Id, "error", err)
		http.Error(w, fmt.Sprintf("error creating invitation: %v", err), http.StatusInternalServerError)
		return
	}

	slog.Info("invitation created", "invitation_id", invitation.Id, "workspace_id", workspaceId, "invited_by", caller.Id)

	utils.WriteJsonResponse(w, createInvitationResponse{
		InvitationId: invitation.Id,
		InviteToken:  token,
		ExpiresAt:    invitation.ExpiresAt,
	})
}

func (s *WorkspaceService) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	invitationId, err := utils.URLParamUUID(r, "invitation_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		invitation, err := schema.GetInvitation(invitationId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrInvitationNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if invitation.WorkspaceId != workspaceId {
			return CodedError(fmt.Errorf("invitation %v does not belong to workspace %v", invitationId, workspaceId), http.StatusNotFound)
		}

		result := txn.Delete(&schema.WorkspaceInvitation{Id: invitationId})
		if result.Error != nil {
			slog.Error("sql error deleting invitation", "invitation_id", invitationId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error revoking invitation: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

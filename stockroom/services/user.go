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

type UserService struct {
	db          *gorm.DB
	userAuth    auth.IdentityProvider
	inviteToken *auth.InviteTokenSigner
}

func (s *UserService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		if s.userAuth.AllowDirectSignup() {
			r.Post("/signup", s.Signup)
		}

		r.Get("/login", s.LoginWithEmail)
		r.Post("/login-with-token", s.LoginWithToken)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)

		r.Get("/info", s.Info)
		r.Get("/workspaces", s.Workspaces)
		r.Get("/token-expiration", s.TokenExpiration)

		r.Get("/invitations", s.ListInvitations)
		r.Post("/invitations/accept", s.AcceptInvitationByToken)
		r.Post("/invitations/{invitation_id}/accept", s.AcceptInvitation)
	})

	return r
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type signupResponse struct {
	UserId      uuid.UUID `json:"user_id"`
	WorkspaceId uuid.UUID `json:"workspace_id"`
}

// onboardUser provisions the personal workspace for a new account. The new
// user is the sole admin of this workspace.
func onboardUser(txn *gorm.DB, userId uuid.UUID, username string) (uuid.UUID, error) {
	workspace := schema.Workspace{
		Id:        uuid.New(),
		Name:      schema.DefaultWorkspaceName(username),
		CreatedBy: userId,
		CreatedAt: time.Now().UTC(),
	}

	if result := txn.Create(&workspace); result.Error != nil {
		slog.Error("sql error creating default workspace", "user_id", userId, "error", result.Error)
		return uuid.Nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	member := schema.WorkspaceMember{
		WorkspaceId: workspace.Id,
		UserId:      userId,
		Role:        schema.RoleAdmin,
		JoinedAt:    time.Now().UTC(),
	}

	if result := txn.Create(&member); result.Error != nil {
		slog.Error("sql error creating default workspace membership", "user_id", userId, "error", result.Error)
		return uuid.Nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	return workspace.Id, nil
}

func (s *UserService) Signup(w http.ResponseWriter, r *http.Request) {
	var params signupRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if !s.userAuth.AllowDirectSignup() {
		http.Error(w, "direct signup is not supported for this identity provider", http.StatusBadRequest)
		return
	}

	if !utils.ValidEmail(params.Email) {
		http.Error(w, fmt.Sprintf("invalid email '%v'", params.Email), http.StatusUnprocessableEntity)
		return
	}
	if len(params.Username) == 0 {
		http.Error(w, "username must not be empty", http.StatusUnprocessableEntity)
		return
	}

	userId, err := s.userAuth.CreateUser(auth.NewUserArgs{
		Username: params.Username,
		Email:    params.Email,
		Password: params.Password,
		FullName: params.FullName,
	})
	if err != nil {
		responseCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, auth.ErrEmailAlreadyInUse):
			responseCode = http.StatusConflict
		case errors.Is(err, auth.ErrUsernameAlreadyInUse):
			responseCode = http.StatusConflict
		}
		http.Error(w, err.Error(), responseCode)
		return
	}

	var workspaceId uuid.UUID
	err = s.db.Transaction(func(txn *gorm.DB) error {
		workspaceId, err = onboardUser(txn, userId, params.Username)
		return err
	})
	if err != nil {
		// Roll back the account so the signup can be retried cleanly.
		if deleteErr := s.userAuth.DeleteUser(userId); deleteErr != nil {
			slog.Error("error removing user after failed onboarding", "user_id", userId, "error", deleteErr)
		}
		http.Error(w, fmt.Sprintf("error onboarding user: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("new user signed up", "user_id", userId, "workspace_id", workspaceId)

	res := signupResponse{UserId: userId, WorkspaceId: workspaceId}
	utils.WriteJsonResponse(w, res)
}

type loginResponse struct {
	UserId      uuid.UUID `json:"user_id"`
	AccessToken string    `json:"access_token"`
}

func (s *UserService) LoginWithEmail(w http.ResponseWriter, r *http.Request) {
	email, password, ok := r.BasicAuth()
	if !ok {
		http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return
	}

	login, err := s.userAuth.LoginWithEmail(email, password)
	if err != nil {
		responseCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, auth.ErrUserNotFoundWithEmail):
			responseCode = http.StatusNotFound
		case errors.Is(err, auth.ErrInvalidCredentials):
			responseCode = http.StatusUnauthorized
		}
		http.Error(w, fmt.Sprintf("login failed: %v", err), responseCode)
		return
	}

	res := loginResponse{UserId: login.UserId, AccessToken: login.AccessToken}
	utils.WriteJsonResponse(w, res)
}

type loginWithTokenRequest struct {
	AccessToken string `json:"access_token"`
}

func (s *UserService) LoginWithToken(w http.ResponseWriter, r *http.Request) {
	var params loginWithTokenRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	login, err := s.userAuth.LoginWithToken(params.AccessToken)
	if err != nil {
		http.Error(w, fmt.Sprintf("login failed: %v", err), http.StatusInternalServerError)
		return
	}

	res := loginResponse{UserId: login.UserId, AccessToken: login.AccessToken}
	utils.WriteJsonResponse(w, res)
}

type UserWorkspaceInfo struct {
	WorkspaceId   uuid.UUID `json:"workspace_id"`
	WorkspaceName string    `json:"workspace_name"`
	Role          string    `json:"role"`
}

type UserInfo struct {
	Id         uuid.UUID           `json:"id"`
	Username   string              `json:"username"`
	Email      string              `json:"email"`
	FullName   string              `json:"full_name"`
	AvatarUrl  string              `json:"avatar_url"`
	Workspaces []UserWorkspaceInfo `json:"workspaces"`
}

func convertToUserInfo(user *schema.User) UserInfo {
	workspaces := make([]UserWorkspaceInfo, 0, len(user.Memberships))
	for _, member := range user.Memberships {
		workspaces = append(workspaces, UserWorkspaceInfo{
			WorkspaceId:   member.WorkspaceId,
			WorkspaceName: member.Workspace.Name,
			Role:          member.Role,
		})
	}

	return UserInfo{
		Id:         user.Id,
		Username:   user.Username,
		Email:      user.Email,
		FullName:   user.FullName,
		AvatarUrl:  user.AvatarUrl,
		Workspaces: workspaces,
	}
}

func (s *UserService) Info(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var userWithWorkspaces schema.User
	result := s.db.Preload("Memberships").Preload("Memberships.Workspace").First(&userWithWorkspaces, "id = ?", user.Id)
	if result.Error != nil {
		slog.Error("sql error loading user info", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error getting user info: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	info := convertToUserInfo(&userWithWorkspaces)
	utils.WriteJsonResponse(w, info)
}

func (s *UserService) Workspaces(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var memberships []schema.WorkspaceMember
	result := s.db.Preload("Workspace").Where("user_id = ?", user.Id).Find(&memberships)
	if result.Error != nil {
		slog.Error("sql error listing user workspaces", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing workspaces: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]UserWorkspaceInfo, 0, len(memberships))
	for _, member := range memberships {
		infos = append(infos, UserWorkspaceInfo{
			WorkspaceId:   member.WorkspaceId,
			WorkspaceName: member.Workspace.Name,
			Role:          member.Role,
		})
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *UserService) TokenExpiration(w http.ResponseWriter, r *http.Request) {
	expiration, err := s.userAuth.GetTokenExpiration(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error getting token expiration: %v", err), http.StatusUnauthorized)
		return
	}

	utils.WriteJsonResponse(w, map[string]interface{}{"expiration": expiration})
}

type InvitationInfo struct {
	Id            uuid.UUID `json:"id"`
	WorkspaceId   uuid.UUID `json:"workspace_id"`
	WorkspaceName string    `json:"workspace_name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (s *UserService) ListInvitations(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var invitations []schema.WorkspaceInvitation
	result := s.db.Preload("Workspace").Where("email = ?", utils.NormalizeEmail(user.Email)).Find(&invitations)
	if result.Error != nil {
		slog.Error("sql error listing invitations for user", "user_id", user.Id, "error", result.Error)
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

// AcceptInvitation converts a pending invitation into a membership. The
// invitation must be addressed to the caller's email, and an expired
// invitation is rejected without granting any access.
func (s *UserService) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	invitationId, err := utils.URLParamUUID(r, "invitation_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	workspaceId, err := s.acceptInvitation(user, invitationId)
	if err != nil {
		http.Error(w, fmt.Sprintf("error accepting invitation: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, map[string]interface{}{"workspace_id": workspaceId})
}

type acceptInvitationTokenRequest struct {
	InviteToken string `json:"invite_token"`
}

// AcceptInvitationByToken accepts using the signed token from the invitation
// link, so the email flow works without the recipient knowing the invitation
// id. The invitation row remains the authoritative check for expiry and
// recipient.
func (s *UserService) AcceptInvitationByToken(w http.ResponseWriter, r *http.Request) {
	var params acceptInvitationTokenRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	invitationId, _, err := s.inviteToken.Verify(params.InviteToken)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	workspaceId, err := s.acceptInvitation(user, invitationId)
	if err != nil {
		http.Error(w, fmt.Sprintf("error accepting invitation: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, map[string]interface{}{"workspace_id": workspaceId})
}

func (s *UserService) acceptInvitation(user schema.User, invitationId uuid.UUID) (uuid.UUID, error) {
	var workspaceId uuid.UUID

	err := s.db.Transaction(func(txn *gorm.DB) error {
		invitation, err := schema.GetInvitation(invitationId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrInvitationNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if invitation.Email != utils.NormalizeEmail(user.Email) {
			return CodedError(fmt.Errorf("invitation %v is not addressed to user %v", invitationId, user.Id), http.StatusForbidden)
		}

		if invitation.Expired(time.Now().UTC()) {
			return CodedError(fmt.Errorf("invitation %v has expired", invitationId), http.StatusGone)
		}

		existing, err := schema.IsWorkspaceMember(invitation.WorkspaceId, user.Id, txn)
		if err != nil {
			return CodedError(err, http.StatusInternalServerError)
		}
		if existing {
			return CodedError(fmt.Errorf("user %v is already a member of workspace %v", user.Id, invitation.WorkspaceId), http.StatusConflict)
		}

		member := schema.WorkspaceMember{
			WorkspaceId: invitation.WorkspaceId,
			UserId:      user.Id,
			Role:        invitation.Role,
			JoinedAt:    time.Now().UTC(),
		}
		if result := txn.Create(&member); result.Error != nil {
			slog.Error("sql error creating membership from invitation", "invitation_id", invitationId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if result := txn.Delete(&schema.WorkspaceInvitation{Id: invitationId}); result.Error != nil {
			slog.Error("sql error deleting accepted invitation", "invitation_id", invitationId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		workspaceId = invitation.WorkspaceId
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	slog.Info("invitation accepted", "invitation_id", invitationId, "user_id", user.Id, "workspace_id", workspaceId)

	return workspaceId, nil
}

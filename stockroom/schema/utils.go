package schema

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrMemberNotFound     = errors.New("workspace membership not found")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrSupplierNotFound   = errors.New("supplier not found")
	ErrItemNotFound       = errors.New("inventory item not found")
	ErrOrderNotFound      = errors.New("purchase order not found")
	ErrDbAccessFailed     = errors.New("db access failed")
)

func GetUser(userId uuid.UUID, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user", "user_id", userId, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetWorkspace(workspaceId uuid.UUID, db *gorm.DB) (Workspace, error) {
	var workspace Workspace

	result := db.First(&workspace, "id = ?", workspaceId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return workspace, ErrWorkspaceNotFound
		}
		slog.Error("sql error in get workspace", "workspace_id", workspaceId, "error", result.Error)
		return workspace, ErrDbAccessFailed
	}

	return workspace, nil
}

// GetWorkspaceMember is the single source of truth for access control. Absence
// of a membership row means "not a member" and callers must treat it as deny.
func GetWorkspaceMember(workspaceId, userId uuid.UUID, db *gorm.DB) (WorkspaceMember, error) {
	var member WorkspaceMember
	result := db.First(&member, "workspace_id = ? and user_id = ?", workspaceId, userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return member, ErrMemberNotFound
		}
		slog.Error("sql error in get workspace member", "workspace_id", workspaceId, "user_id", userId, "error", result.Error)
		return member, ErrDbAccessFailed
	}

	return member, nil
}

// GetUserWorkspaceRole returns the role, or ErrMemberNotFound for non-members.
func GetUserWorkspaceRole(workspaceId, userId uuid.UUID, db *gorm.DB) (string, error) {
	member, err := GetWorkspaceMember(workspaceId, userId, db)
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func IsWorkspaceMember(workspaceId, userId uuid.UUID, db *gorm.DB) (bool, error) {
	_, err := GetWorkspaceMember(workspaceId, userId, db)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func IsWorkspaceAdmin(workspaceId, userId uuid.UUID, db *gorm.DB) (bool, error) {
	member, err := GetWorkspaceMember(workspaceId, userId, db)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return false, nil
		}
		return false, err
	}
	return member.Role == RoleAdmin, nil
}

func GetUserWorkspaceIds(userId uuid.UUID, db *gorm.DB) ([]uuid.UUID, error) {
	var members []WorkspaceMember
	result := db.Find(&members, "user_id = ?", userId)
	if result.Error != nil {
		slog.Error("sql error in get user workspace ids", "user_id", userId, "error", result.Error)
		return nil, ErrDbAccessFailed
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.WorkspaceId)
	}
	return ids, nil
}

func GetInvitation(invitationId uuid.UUID, db *gorm.DB) (WorkspaceInvitation, error) {
	var invitation WorkspaceInvitation

	result := db.First(&invitation, "id = ?", invitationId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return invitation, ErrInvitationNotFound
		}
		slog.Error("sql error in get invitation", "invitation_id", invitationId, "error", result.Error)
		return invitation, ErrDbAccessFailed
	}

	return invitation, nil
}

func GetSupplier(workspaceId, supplierId uuid.UUID, db *gorm.DB) (Supplier, error) {
	var supplier Supplier

	result := db.First(&supplier, "id = ? and workspace_id = ?", supplierId, workspaceId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return supplier, ErrSupplierNotFound
		}
		slog.Error("sql error in get supplier", "supplier_id", supplierId, "error", result.Error)
		return supplier, ErrDbAccessFailed
	}

	return supplier, nil
}

func GetInventoryItem(workspaceId, itemId uuid.UUID, db *gorm.DB) (InventoryItem, error) {
	var item InventoryItem

	result := db.Preload("Supplier").First(&item, "id = ? and workspace_id = ?", itemId, workspaceId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return item, ErrItemNotFound
		}
		slog.Error("sql error in get inventory item", "item_id", itemId, "error", result.Error)
		return item, ErrDbAccessFailed
	}

	return item, nil
}

func GetPurchaseOrder(workspaceId, orderId uuid.UUID, db *gorm.DB, loadItems bool) (PurchaseOrder, error) {
	var order PurchaseOrder

	query := db
	if loadItems {
		query = query.Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("purchase_order_items.position ASC")
		})
	}

	result := query.First(&order, "id = ? and workspace_id = ?", orderId, workspaceId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return order, ErrOrderNotFound
		}
		slog.Error("sql error in get purchase order", "order_id", orderId, "error", result.Error)
		return order, ErrDbAccessFailed
	}

	return order, nil
}

func CountWorkspaceAdmins(workspaceId uuid.UUID, db *gorm.DB) (int64, error) {
	var count int64
	result := db.Model(&WorkspaceMember{}).Where("workspace_id = ? and role = ?", workspaceId, RoleAdmin).Count(&count)
	if result.Error != nil {
		slog.Error("sql error counting workspace admins", "workspace_id", workspaceId, "error", result.Error)
		return 0, ErrDbAccessFailed
	}
	return count, nil
}

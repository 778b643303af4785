package schema

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

func CheckValidRole(role string) error {
	if role != RoleAdmin && role != RoleMember {
		return fmt.Errorf("invalid role '%v', must be '%v' or '%v'", role, RoleAdmin, RoleMember)
	}
	return nil
}

const (
	OrderDraft     = "draft"
	OrderSubmitted = "submitted"
	OrderApproved  = "approved"
	OrderOrdered   = "ordered"
	OrderReceived  = "received"
	OrderCancelled = "cancelled"
)

// Purchase order status is a free standing enum: admins may move an order from
// any status to any other. There is intentionally no transition graph.
func CheckValidOrderStatus(status string) error {
	switch status {
	case OrderDraft, OrderSubmitted, OrderApproved, OrderOrdered, OrderReceived, OrderCancelled:
		return nil
	}
	return fmt.Errorf("invalid purchase order status '%v'", status)
}

const InvitationTTL = 7 * 24 * time.Hour

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Username string `gorm:"unique;size:50;not null"`
	Email    string `gorm:"unique;size:254;not null"`
	Password []byte

	FullName  string `gorm:"size:100"`
	AvatarUrl string `gorm:"size:500"`

	Memberships []WorkspaceMember `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
}

type Workspace struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name string `gorm:"size:100;not null"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Members     []WorkspaceMember     `gorm:"constraint:OnDelete:CASCADE"`
	Invitations []WorkspaceInvitation `gorm:"constraint:OnDelete:CASCADE"`
	Suppliers   []Supplier            `gorm:"constraint:OnDelete:CASCADE"`
	Items       []InventoryItem       `gorm:"constraint:OnDelete:CASCADE"`
	Orders      []PurchaseOrder       `gorm:"constraint:OnDelete:CASCADE"`
}

// WorkspaceMember is the (workspace, user, role) relation granting access. The
// composite primary key guarantees at most one membership per pair.
type WorkspaceMember struct {
	WorkspaceId uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId      uuid.UUID `gorm:"type:uuid;primaryKey"`

	Role string `gorm:"size:20;not null;default:'member'"`

	JoinedAt time.Time

	Workspace *Workspace `gorm:"constraint:OnDelete:CASCADE"`
	User      *User      `gorm:"constraint:OnDelete:CASCADE"`
}

type WorkspaceInvitation struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	WorkspaceId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_workspace_invitation_email"`
	Email       string    `gorm:"size:254;not null;uniqueIndex:idx_workspace_invitation_email"`
	Role        string    `gorm:"size:20;not null;default:'member'"`

	InvitedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"not null"`

	Workspace *Workspace `gorm:"constraint:OnDelete:CASCADE"`
}

func (i *WorkspaceInvitation) Expired(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}

type Supplier struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	WorkspaceId uuid.UUID `gorm:"type:uuid;not null;index"`

	CompanyName string `gorm:"size:200;not null"`
	Email       string `gorm:"size:254"`
	Phone       string `gorm:"size:50"`
	Website     string `gorm:"size:500"`
	Address     string

	CreatedAt time.Time
	UpdatedAt time.Time

	Workspace *Workspace `gorm:"constraint:OnDelete:CASCADE"`
}

type InventoryItem struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	WorkspaceId uuid.UUID  `gorm:"type:uuid;not null;index"`
	SupplierId  *uuid.UUID `gorm:"type:uuid"`

	Name        string `gorm:"size:200;not null"`
	Sku         string `gorm:"size:100"`
	Description string

	Quantity    int      `gorm:"not null;default:0"`
	MinQuantity int      `gorm:"not null;default:0"`
	UnitPrice   *float64 `gorm:"type:numeric(12,2)"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Workspace *Workspace `gorm:"constraint:OnDelete:CASCADE"`
	Supplier  *Supplier  `gorm:"constraint:OnDelete:SET NULL"`
}

type PurchaseOrder struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	WorkspaceId uuid.UUID `gorm:"type:uuid;not null;index"`
	SupplierId  uuid.UUID `gorm:"type:uuid;not null;index"`

	Status string `gorm:"size:20;not null;default:'draft'"`
	Notes  string

	OrderDate    *time.Time
	ExpectedDate *time.Time
	CreatedBy    *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []PurchaseOrderItem `gorm:"constraint:OnDelete:CASCADE"`

	Workspace *Workspace `gorm:"constraint:OnDelete:CASCADE"`
	// Suppliers referenced by purchase orders cannot be deleted.
	Supplier *Supplier `gorm:"constraint:OnDelete:RESTRICT"`
}

// PurchaseOrderItem is a snapshot of a catalog item at order time. The back
// reference to the inventory item is soft so line items outlive the catalog
// entry they were copied from.
type PurchaseOrderItem struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	PurchaseOrderId uuid.UUID  `gorm:"type:uuid;not null;index"`
	InventoryItemId *uuid.UUID `gorm:"type:uuid"`

	ItemName  string   `gorm:"size:200;not null"`
	Quantity  int      `gorm:"not null"`
	UnitPrice *float64 `gorm:"type:numeric(12,2)"`

	// Position preserves insertion order within the order.
	Position int `gorm:"not null;default:0"`

	PurchaseOrder *PurchaseOrder `gorm:"constraint:OnDelete:CASCADE"`
	InventoryItem *InventoryItem `gorm:"constraint:OnDelete:SET NULL"`
}

func DefaultWorkspaceName(username string) string {
	return fmt.Sprintf("%v's Workspace", username)
}

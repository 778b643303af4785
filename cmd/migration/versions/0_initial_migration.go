package versions

import (
	"log"

	"github.com/gerald-spec/novastock/stockroom/schema"

	"gorm.io/gorm"
)

// Migration_0_initial_schema creates the full table set for a fresh install.
// Later migrations assume these tables exist.
func Migration_0_initial_schema(txn *gorm.DB) error {
	log.Println("creating initial schema")

	err := txn.Migrator().AutoMigrate(
		&schema.User{}, &schema.Workspace{}, &schema.WorkspaceMember{},
		&schema.WorkspaceInvitation{}, &schema.Supplier{}, &schema.InventoryItem{},
		&schema.PurchaseOrder{}, &schema.PurchaseOrderItem{},
	)
	if err != nil {
		return err
	}

	log.Println("initial schema created")

	return nil
}

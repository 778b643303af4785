package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func price(v float64) *float64 {
	return &v
}

func TestLowStock(t *testing.T) {
	assert.True(t, (&InventoryItem{Quantity: 0, MinQuantity: 0}).LowStock())
	assert.True(t, (&InventoryItem{Quantity: 5, MinQuantity: 5}).LowStock())
	assert.True(t, (&InventoryItem{Quantity: 4, MinQuantity: 5}).LowStock())
	assert.False(t, (&InventoryItem{Quantity: 6, MinQuantity: 5}).LowStock())
}

func TestLowStockItemsPreservesOrder(t *testing.T) {
	items := []InventoryItem{
		{Name: "a", Quantity: 1, MinQuantity: 5},
		{Name: "b", Quantity: 9, MinQuantity: 5},
		{Name: "c", Quantity: 5, MinQuantity: 5},
		{Name: "d", Quantity: 0, MinQuantity: 0},
	}

	low := LowStockItems(items)

	names := make([]string, 0, len(low))
	for _, item := range low {
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{"a", "c", "d"}, names)
}

func TestLowStockItemsEmpty(t *testing.T) {
	assert.Empty(t, LowStockItems(nil))
	assert.Empty(t, LowStockItems([]InventoryItem{{Quantity: 10, MinQuantity: 1}}))
}

func TestRestockQuantity(t *testing.T) {
	assert.Equal(t, 4, (&InventoryItem{Quantity: 1, MinQuantity: 5}).RestockQuantity())
	assert.Equal(t, 1, (&InventoryItem{Quantity: 5, MinQuantity: 5}).RestockQuantity())
	assert.Equal(t, 1, (&InventoryItem{Quantity: 10, MinQuantity: 0}).RestockQuantity())
}

func TestDraftOrderQuantity(t *testing.T) {
	assert.Equal(t, 9, (&InventoryItem{Quantity: 1, MinQuantity: 5}).DraftOrderQuantity())
	assert.Equal(t, 5, (&InventoryItem{Quantity: 5, MinQuantity: 5}).DraftOrderQuantity())
	assert.Equal(t, 1, (&InventoryItem{Quantity: 0, MinQuantity: 0}).DraftOrderQuantity())
	assert.Equal(t, 1, (&InventoryItem{Quantity: 20, MinQuantity: 5}).DraftOrderQuantity())
}

func TestOrderTotal(t *testing.T) {
	assert.Equal(t, 0.0, OrderTotal(nil))

	items := []PurchaseOrderItem{
		{Quantity: 5, UnitPrice: price(1.50)},
		{Quantity: 2, UnitPrice: price(2.50)},
	}
	assert.Equal(t, 12.50, OrderTotal(items))

	// Missing prices count as zero rather than failing the total.
	items = append(items, PurchaseOrderItem{Quantity: 100, UnitPrice: nil})
	assert.Equal(t, 12.50, OrderTotal(items))
}

func TestCheckValidRole(t *testing.T) {
	assert.NoError(t, CheckValidRole(RoleAdmin))
	assert.NoError(t, CheckValidRole(RoleMember))
	assert.Error(t, CheckValidRole("owner"))
	assert.Error(t, CheckValidRole(""))
}

func TestCheckValidOrderStatus(t *testing.T) {
	for _, status := range []string{OrderDraft, OrderSubmitted, OrderApproved, OrderOrdered, OrderReceived, OrderCancelled} {
		assert.NoError(t, CheckValidOrderStatus(status))
	}
	assert.Error(t, CheckValidOrderStatus("pending"))
}

package schema

// Derived inventory state. These predicates are authoritative and are always
// recomputed from the current quantities, never persisted.

// LowStock reports whether the item is at or below its reorder threshold.
func (i *InventoryItem) LowStock() bool {
	return i.Quantity <= i.MinQuantity
}

// LowStockItems filters to items needing restock, preserving input order.
func LowStockItems(items []InventoryItem) []InventoryItem {
	low := make([]InventoryItem, 0)
	for _, item := range items {
		if item.LowStock() {
			low = append(low, item)
		}
	}
	return low
}

// RestockQuantity is the suggested quantity when reordering a single flagged
// item: enough to bring stock back to the threshold, at least one unit. It is
// an advisory default the user may override.
func (i *InventoryItem) RestockQuantity() int {
	return max(1, i.MinQuantity-i.Quantity)
}

// DraftOrderQuantity sizes an assistant-drafted order: restock to twice the
// threshold so the item does not flag again immediately. Advisory only.
func (i *InventoryItem) DraftOrderQuantity() int {
	return max(1, i.MinQuantity*2-i.Quantity)
}

// OrderTotal computes the order value over line items, treating a missing unit
// price as zero. Totals are derived on read and never stored.
func OrderTotal(items []PurchaseOrderItem) float64 {
	var total float64
	for _, item := range items {
		if item.UnitPrice != nil {
			total += float64(item.Quantity) * *item.UnitPrice
		}
	}
	return total
}

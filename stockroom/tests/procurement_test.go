package tests

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gerald-spec/novastock/stockroom/schema"

	"github.com/google/uuid"
)

func setupProcurement(t *testing.T) (*testEnv, client, string, string) {
	t.Helper()

	env, admin, workspaceId := setupWorkspace(t)

	supplierId, err := admin.createSupplier(workspaceId, supplierArgs{CompanyName: "Acme Industrial"})
	if err != nil {
		t.Fatal(err)
	}

	return env, admin, workspaceId, supplierId
}

func TestOrderLifecycle(t *testing.T) {
	_, admin, workspaceId, supplierId := setupProcurement(t)

	orderId, err := admin.createOrder(workspaceId, supplierId)
	if err != nil {
		t.Fatal(err)
	}

	order, err := admin.getOrder(workspaceId, orderId)
	if err != nil {
		t.Fatal(err)
	}
	if order.Status != "draft" {
		t.Fatalf("expected new order status 'draft', got '%v'", order.Status)
	}
	if order.SupplierName != "Acme Industrial" {
		t.Fatalf("expected supplier name on order, got '%v'", order.SupplierName)
	}

	price := 3.0
	err = admin.addOrderItem(workspaceId, orderId, orderLineArgs{ItemName: "Widget", Quantity: 4, UnitPrice: &price})
	if err != nil {
		t.Fatal(err)
	}

	order, err = admin.getOrder(workspaceId, orderId)
	if err != nil {
		t.Fatal(err)
	}
	if len(order.Items) != 1 || order.Total != 12.0 {
		t.Fatalf("unexpected order after adding line: items=%d total=%v", len(order.Items), order.Total)
	}

	if err := admin.updateOrderStatus(workspaceId, orderId, "submitted"); err != nil {
		t.Fatal(err)
	}

	// Any status change is allowed, including moving backwards.
	if err := admin.updateOrderStatus(workspaceId, orderId, "draft"); err != nil {
		t.Fatal(err)
	}

	err = admin.updateOrderStatus(workspaceId, orderId, "lost-in-transit")
	if statusCode(err) != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for invalid order status, got %d", statusCode(err))
	}

	if err := admin.deleteOrder(workspaceId, orderId); err != nil {
		t.Fatal(err)
	}

	_, err = admin.getOrder(workspaceId, orderId)
	if statusCode(err) != http.StatusNotFound {
		t.Fatalf("expected status 404 after order delete, got %d", statusCode(err))
	}
}

func TestOrderLineValidation(t *testing.T) {
	_, admin, workspaceId, supplierId := setupProcurement(t)

	orderId, err := admin.createOrder(workspaceId, supplierId)
	if err != nil {
		t.Fatal(err)
	}

	err = admin.addOrderItem(workspaceId, orderId, orderLineArgs{ItemName: "Widget", Quantity: 0})
	if statusCode(err) != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for zero quantity, got %d", statusCode(err))
	}

	err = admin.addOrderItem(workspaceId, orderId, orderLineArgs{ItemName: "", Quantity: 2})
	if statusCode(err) != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for empty item name, got %d", statusCode(err))
	}
}

func TestOrderLineSnapshotsCatalogItem(t *testing.T) {
	_, admin, workspaceId, supplierId := setupProcurement(t)

	price := 2.75
	itemId, err := admin.createItem(workspaceId, itemArgs{Name: "Bolts", Quantity: 1, MinQuantity: 5, UnitPrice: &price})
	if err != nil {
		t.Fatal(err)
	}

	orderId, err := admin.createOrder(workspaceId, supplierId)
	if err != nil {
		t.Fatal(err)
	}

	err = admin.addOrderItem(workspaceId, orderId, orderLineArgs{InventoryItemId: itemId})
	if err != nil {
		t.Fatal(err)
	}

	order, err := admin.getOrder(workspaceId, orderId)
	if err != nil {
		t.Fatal(err)
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(order.Items))
	}

	line := order.Items[0]
	if line.ItemName != "Bolts" {
		t.Fatalf("expected line name copied from catalog, got '%v'", line.ItemName)
	}
	if line.UnitPrice == nil || *line.UnitPrice != price {
		t.Fatalf("expected line price copied from catalog, got %+v", line.UnitPrice)
	}
	// Suggested quantity restocks to twice the threshold.
	if line.Quantity != 9 {
		t.Fatalf("expected suggested quantity 9, got %d", line.Quantity)
	}

	// The snapshot survives catalog deletion.
	if err := admin.deleteItem(workspaceId, itemId); err != nil {
		t.Fatal(err)
	}

	order, err = admin.getOrder(workspaceId, orderId)
	if err != nil {
		t.Fatal(err)
	}
	if len(order.Items) != 1 || order.Items[0].ItemName != "Bolts" {
		t.Fatalf("expected line to survive item deletion: %+v", order.Items)
	}
	if order.Items[0].InventoryItemId != nil {
		t.Fatalf("expected line back reference cleared, got %v", order.Items[0].InventoryItemId)
	}
}

func TestReorderTotal(t *testing.T) {
	_, admin, workspaceId, supplierId := setupProcurement(t)

	priceA, priceB := 1.50, 2.50
	lines := []orderLineArgs{
		{ItemName: "Bolts", Quantity: 5, UnitPrice: &priceA},
		{ItemName: "Nuts", Quantity: 2, UnitPrice: &priceB},
	}

	order, err := admin.reorder(workspaceId, supplierId, lines)
	if err != nil {
		t.Fatal(err)
	}

	if order.Status != "draft" {
		t.Fatalf("expected reorder to produce draft order, got status '%v'", order.Status)
	}
	if order.Total != 12.50 {
		t.Fatalf("expected order total 12.50, got %v", order.Total)
	}
	if len(order.Items) != 2 || order.Items[0].ItemName != "Bolts" || order.Items[1].ItemName != "Nuts" {
		t.Fatalf("expected lines in insertion order, got %+v", order.Items)
	}
}

func TestReorderMissingPriceCountsAsZero(t *testing.T) {
	_, admin, workspaceId, supplierId := setupProcurement(t)

	price := 1.25
	lines := []orderLineArgs{
		{ItemName: "Bolts", Quantity: 4, UnitPrice: &price},
		{ItemName: "Mystery Part", Quantity: 100},
	}

	order, err := admin.reorder(workspaceId, supplierId, lines)
	if err != nil {
		t.Fatal(err)
	}

	if order.Total != 5.0 {
		t.Fatalf("expected total 5.0 with unpriced line, got %v", order.Total)
	}
}

func TestReorderIsAtomic(t *testing.T) {
	_, admin, workspaceId, supplierId := setupProcurement(t)

	lines := []orderLineArgs{
		{ItemName: "Bolts", Quantity: 5},
		{InventoryItemId: uuid.NewString()}, // does not exist
	}

	_, err := admin.reorder(workspaceId, supplierId, lines)
	if statusCode(err) != http.StatusNotFound {
		t.Fatalf("expected status 404 for reorder with missing item, got %d", statusCode(err))
	}

	// The failed reorder leaves nothing behind.
	orders, err := admin.listOrders(workspaceId)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected no orders after failed reorder, got %d", len(orders))
	}
}

func TestReorderRequiresAdmin(t *testing.T) {
	env, admin, workspaceId, supplierId := setupProcurement(t)

	bob := addMember(t, env, admin, workspaceId, "bob")

	_, err := bob.reorder(workspaceId, supplierId, []orderLineArgs{{ItemName: "Bolts", Quantity: 1}})
	if statusCode(err) != http.StatusForbidden {
		t.Fatalf("expected status 403 for member reorder, got %d", statusCode(err))
	}

	// Members can still read orders.
	if _, err := bob.listOrders(workspaceId); err != nil {
		t.Fatal(err)
	}
}

func TestDraftReorderEmail(t *testing.T) {
	env, admin, workspaceId, _ := setupProcurement(t)

	body := map[string]interface{}{
		"item_name":        "Bolts",
		"current_quantity": 2,
		"reorder_quantity": 20,
		"supplier_name":    "Acme Industrial",
	}

	res, err := admin.draftReorderEmail(workspaceId, body)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fallback {
		t.Fatal("expected generated email, got fallback")
	}
	if !strings.HasPrefix(res.Email, "Subject: ") {
		t.Fatalf("expected email to start with subject line, got '%v'", res.Email)
	}
	if env.drafter.calls != 1 {
		t.Fatalf("expected 1 drafter call, got %d", env.drafter.calls)
	}
}

func TestDraftReorderEmailFallback(t *testing.T) {
	env, admin, workspaceId, _ := setupProcurement(t)

	env.drafter.err = errors.New("rate limited")

	body := map[string]interface{}{
		"item_name":        "Bolts",
		"current_quantity": 2,
		"reorder_quantity": 20,
		"supplier_name":    "Acme Industrial",
	}

	res, err := admin.draftReorderEmail(workspaceId, body)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Fallback {
		t.Fatal("expected fallback email after provider failure")
	}
	if !strings.HasPrefix(res.Email, "Subject: ") {
		t.Fatalf("expected fallback email to start with subject line, got '%v'", res.Email)
	}
	if !strings.Contains(res.Email, "20 units of Bolts") {
		t.Fatalf("expected fallback email to mention the order, got '%v'", res.Email)
	}
}

func TestDraftReorderEmailFromCatalogItem(t *testing.T) {
	_, admin, workspaceId, supplierId := setupProcurement(t)

	price := 0.10
	itemId, err := admin.createItem(workspaceId, itemArgs{
		Name: "Bolts", Sku: "BLT-01", SupplierId: supplierId,
		Quantity: 2, MinQuantity: 10, UnitPrice: &price,
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := admin.draftReorderEmail(workspaceId, map[string]interface{}{"inventory_item_id": itemId})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Email, "Bolts") {
		t.Fatalf("expected email to reference the item, got '%v'", res.Email)
	}
}

func TestDeleteOrderRemovesLineItems(t *testing.T) {
	env, admin, workspaceId, supplierId := setupProcurement(t)

	orderId, err := admin.createOrder(workspaceId, supplierId)
	if err != nil {
		t.Fatal(err)
	}

	price := 2.0
	if err := admin.addOrderItem(workspaceId, orderId, orderLineArgs{ItemName: "Widget", Quantity: 2, UnitPrice: &price}); err != nil {
		t.Fatal(err)
	}
	if err := admin.addOrderItem(workspaceId, orderId, orderLineArgs{ItemName: "Bracket", Quantity: 1}); err != nil {
		t.Fatal(err)
	}

	if err := admin.deleteOrder(workspaceId, orderId); err != nil {
		t.Fatal(err)
	}

	var lines int64
	if err := env.db.Model(&schema.PurchaseOrderItem{}).Count(&lines).Error; err != nil {
		t.Fatal(err)
	}
	if lines != 0 {
		t.Fatalf("expected no line item rows after order delete, found %d", lines)
	}
}

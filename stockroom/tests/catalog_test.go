package tests

import (
	"net/http"
	"testing"
)

func setupWorkspace(t *testing.T) (*testEnv, client, string) {
	t.Helper()

	env := setupTestEnv(t)

	admin, err := env.newUser("alice")
	if err != nil {
		t.Fatal(err)
	}

	workspaceId, err := admin.createWorkspace("warehouse")
	if err != nil {
		t.Fatal(err)
	}

	return env, admin, workspaceId
}

func TestSupplierRoundTrip(t *testing.T) {
	_, admin, workspaceId := setupWorkspace(t)

	args := supplierArgs{
		CompanyName: "Acme Industrial",
		Email:       "sales@acme.example",
		Phone:       "555-0134",
		Website:     "https://acme.example",
		Address:     "1 Factory Rd",
	}

	supplierId, err := admin.createSupplier(workspaceId, args)
	if err != nil {
		t.Fatal(err)
	}

	supplier, err := admin.getSupplier(workspaceId, supplierId)
	if err != nil {
		t.Fatal(err)
	}

	if supplier.CompanyName != args.CompanyName || supplier.Email != args.Email ||
		supplier.Phone != args.Phone || supplier.Website != args.Website || supplier.Address != args.Address {
		t.Fatalf("supplier round trip mismatch: %+v", supplier)
	}
}

func TestListSuppliersOrdered(t *testing.T) {
	_, admin, workspaceId := setupWorkspace(t)

	for _, name := range []string{"Zenith Parts", "Acme Industrial", "Midway Metals"} {
		if _, err := admin.createSupplier(workspaceId, supplierArgs{CompanyName: name}); err != nil {
			t.Fatal(err)
		}
	}

	suppliers, err := admin.listSuppliers(workspaceId)
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"Acme Industrial", "Midway Metals", "Zenith Parts"}
	if len(suppliers) != len(expected) {
		t.Fatalf("expected %d suppliers, got %d", len(expected), len(suppliers))
	}
	for i, name := range expected {
		if suppliers[i].CompanyName != name {
			t.Fatalf("expected supplier %d to be '%v', got '%v'", i, name, suppliers[i].CompanyName)
		}
	}
}

func TestSupplierValidation(t *testing.T) {
	_, admin, workspaceId := setupWorkspace(t)

	_, err := admin.createSupplier(workspaceId, supplierArgs{CompanyName: ""})
	if statusCode(err) != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for empty company name, got %d", statusCode(err))
	}

	_, err = admin.createSupplier(workspaceId, supplierArgs{CompanyName: "Acme", Email: "not-an-email"})
	if statusCode(err) != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for invalid email, got %d", statusCode(err))
	}
}

func TestDeleteSupplierDetachesItems(t *testing.T) {
	_, admin, workspaceId := setupWorkspace(t)

	supplierId, err := admin.createSupplier(workspaceId, supplierArgs{CompanyName: "Acme"})
	if err != nil {
		t.Fatal(err)
	}

	itemId, err := admin.createItem(workspaceId, itemArgs{Name: "Widget", SupplierId: supplierId, Quantity: 5})
	if err != nil {
		t.Fatal(err)
	}

	if err := admin.deleteSupplier(workspaceId, supplierId); err != nil {
		t.Fatal(err)
	}

	item, err := admin.getItem(workspaceId, itemId)
	if err != nil {
		t.Fatal(err)
	}
	if item.SupplierId != nil {
		t.Fatalf("expected item supplier to be detached, got %v", item.SupplierId)
	}
}

func TestDeleteSupplierWithOrdersRejected(t *testing.T) {
	_, admin, workspaceId := setupWorkspace(t)

	supplierId, err := admin.createSupplier(workspaceId, supplierArgs{CompanyName: "Acme"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := admin.createOrder(workspaceId, supplierId); err != nil {
		t.Fatal(err)
	}

	err = admin.deleteSupplier(workspaceId, supplierId)
	if statusCode(err) != http.StatusConflict {
		t.Fatalf("expected status 409 deleting supplier with orders, got %d", statusCode(err))
	}

	if _, err := admin.getSupplier(workspaceId, supplierId); err != nil {
		t.Fatalf("supplier should still exist after rejected delete: %v", err)
	}
}

func TestItemValidation(t *testing.T) {
	_, admin, workspaceId := setupWorkspace(t)

	negativePrice := -1.0

	cases := []itemArgs{
		{Name: ""},
		{Name: "Widget", Quantity: -1},
		{Name: "Widget", MinQuantity: -1},
		{Name: "Widget", UnitPrice: &negativePrice},
	}

	for _, args := range cases {
		_, err := admin.createItem(workspaceId, args)
		if statusCode(err) != http.StatusUnprocessableEntity {
			t.Fatalf("expected status 422 for item %+v, got %d", args, statusCode(err))
		}
	}
}

func TestItemCrudRequiresAdmin(t *testing.T) {
	env, admin, workspaceId := setupWorkspace(t)

	bob := addMember(t, env, admin, workspaceId, "bob")

	_, err := bob.createItem(workspaceId, itemArgs{Name: "Widget"})
	if statusCode(err) != http.StatusForbidden {
		t.Fatalf("expected status 403 for member creating item, got %d", statusCode(err))
	}

	itemId, err := admin.createItem(workspaceId, itemArgs{Name: "Widget", Quantity: 3})
	if err != nil {
		t.Fatal(err)
	}

	// Members can read the catalog.
	item, err := bob.getItem(workspaceId, itemId)
	if err != nil {
		t.Fatal(err)
	}
	if item.Name != "Widget" || item.Quantity != 3 {
		t.Fatalf("unexpected item: %+v", item)
	}

	err = bob.deleteItem(workspaceId, itemId)
	if statusCode(err) != http.StatusForbidden {
		t.Fatalf("expected status 403 for member deleting item, got %d", statusCode(err))
	}
}

func TestLowStockListing(t *testing.T) {
	_, admin, workspaceId := setupWorkspace(t)

	items := []itemArgs{
		{Name: "Bolts", Quantity: 2, MinQuantity: 10},
		{Name: "Nuts", Quantity: 50, MinQuantity: 10},
		{Name: "Screws", Quantity: 10, MinQuantity: 10},
		{Name: "Washers", Quantity: 11, MinQuantity: 10},
	}
	for _, args := range items {
		if _, err := admin.createItem(workspaceId, args); err != nil {
			t.Fatal(err)
		}
	}

	lowStock, err := admin.listLowStockItems(workspaceId)
	if err != nil {
		t.Fatal(err)
	}

	// Quantity equal to the threshold counts as low stock, listing order is kept.
	expected := []string{"Bolts", "Screws"}
	if len(lowStock) != len(expected) {
		t.Fatalf("expected %d low stock items, got %d", len(expected), len(lowStock))
	}
	for i, name := range expected {
		if lowStock[i].Name != name {
			t.Fatalf("expected low stock item %d to be '%v', got '%v'", i, name, lowStock[i].Name)
		}
		if !lowStock[i].LowStock {
			t.Fatalf("expected item '%v' to be flagged low stock", name)
		}
	}

	all, err := admin.listItems(workspaceId)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 items, got %d", len(all))
	}
}

func TestUpdateItem(t *testing.T) {
	_, admin, workspaceId := setupWorkspace(t)

	itemId, err := admin.createItem(workspaceId, itemArgs{Name: "Widget", Quantity: 5, MinQuantity: 2})
	if err != nil {
		t.Fatal(err)
	}

	price := 4.25
	err = admin.updateItem(workspaceId, itemId, itemArgs{Name: "Widget v2", Quantity: 1, MinQuantity: 2, UnitPrice: &price})
	if err != nil {
		t.Fatal(err)
	}

	item, err := admin.getItem(workspaceId, itemId)
	if err != nil {
		t.Fatal(err)
	}
	if item.Name != "Widget v2" || item.Quantity != 1 {
		t.Fatalf("unexpected item after update: %+v", item)
	}
	if item.UnitPrice == nil || *item.UnitPrice != price {
		t.Fatalf("unexpected unit price after update: %+v", item.UnitPrice)
	}
	if !item.LowStock {
		t.Fatal("expected item to be low stock after quantity update")
	}
}

func TestWorkspaceScopingOfCatalog(t *testing.T) {
	env, admin, workspaceId := setupWorkspace(t)

	otherAdmin, err := env.newUser("bob")
	if err != nil {
		t.Fatal(err)
	}
	otherWorkspaceId, err := otherAdmin.createWorkspace("other-warehouse")
	if err != nil {
		t.Fatal(err)
	}

	supplierId, err := admin.createSupplier(workspaceId, supplierArgs{CompanyName: "Acme"})
	if err != nil {
		t.Fatal(err)
	}

	// The supplier is invisible through the other workspace.
	_, err = otherAdmin.getSupplier(otherWorkspaceId, supplierId)
	if statusCode(err) != http.StatusNotFound {
		t.Fatalf("expected status 404 for cross workspace supplier access, got %d", statusCode(err))
	}
}

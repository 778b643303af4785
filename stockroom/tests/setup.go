package tests

import (
	"bytes"
	"testing"

	"github.com/gerald-spec/novastock/stockroom/auth"
	"github.com/gerald-spec/novastock/stockroom/schema"
	"github.com/gerald-spec/novastock/stockroom/services"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	stockroom services.Stockroom
	api       chi.Router
	db        *gorm.DB
	drafter   *drafterStub
}

func setupTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	err = db.AutoMigrate(
		&schema.User{}, &schema.Workspace{}, &schema.WorkspaceMember{},
		&schema.WorkspaceInvitation{}, &schema.Supplier{}, &schema.InventoryItem{},
		&schema.PurchaseOrder{}, &schema.PurchaseOrderItem{},
	)
	if err != nil {
		t.Fatal(err)
	}

	secret := []byte("290zcv02ai249")

	userAuth := auth.NewBasicIdentityProvider(db, auth.NewAuditLogger(new(bytes.Buffer)), secret)

	drafter := &drafterStub{}

	stockroom := services.NewStockroom(db, userAuth, drafter, secret)

	return &testEnv{stockroom: stockroom, api: stockroom.Routes(), db: db, drafter: drafter}
}

func (t *testEnv) newClient() client {
	return client{api: t.api}
}

func (t *testEnv) newUser(username string) (client, error) {
	c := t.newClient()
	login, err := c.signup(username, username+"@mail.com", username+"_password")
	if err != nil {
		return client{}, err
	}

	err = c.login(login)
	if err != nil {
		return client{}, err
	}

	return c, nil
}

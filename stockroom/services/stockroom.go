package services

import (
	"log"
	"net/http"
	"os"

	"github.com/gerald-spec/novastock/stockroom/auth"
	"github.com/gerald-spec/novastock/utils"
	"github.com/gerald-spec/novastock/utils/emailgen"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

// Stockroom aggregates the service sub-routers into the application api.
type Stockroom struct {
	user        UserService
	workspace   WorkspaceService
	catalog     CatalogService
	procurement ProcurementService

	db *gorm.DB
}

func NewStockroom(db *gorm.DB, userAuth auth.IdentityProvider, drafter emailgen.Drafter, secret []byte) Stockroom {
	inviteToken := auth.NewInviteTokenSigner(string(secret) + "invite")

	return Stockroom{
		user: UserService{db: db, userAuth: userAuth, inviteToken: inviteToken},
		workspace: WorkspaceService{
			db:          db,
			userAuth:    userAuth,
			inviteToken: inviteToken,
		},
		catalog: CatalogService{db: db, userAuth: userAuth},
		procurement: ProcurementService{
			db:       db,
			userAuth: userAuth,
			drafter:  drafter,
		},
		db: db,
	}
}

func (s *Stockroom) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))

	r.Mount("/user", s.user.Routes())
	r.Mount("/workspace", s.workspace.Routes())
	r.Mount("/catalog", s.catalog.Routes())
	r.Mount("/procurement", s.procurement.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	return r
}

package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gerald-spec/novastock/stockroom/auth"
	"github.com/gerald-spec/novastock/stockroom/schema"
	"github.com/gerald-spec/novastock/stockroom/services"
	"github.com/gerald-spec/novastock/utils/emailgen"
	"github.com/gerald-spec/novastock/utils/logging"

	"github.com/caarlos0/env/v10"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type stockroomConfig struct {
	DatabaseUri string `env:"DATABASE_URI,required" yaml:"database_uri"`
	JwtSecret   string `env:"JWT_SECRET,required" yaml:"jwt_secret"`

	PublicHostname string `env:"PUBLIC_HOSTNAME" envDefault:"localhost" yaml:"public_hostname"`
	LogDir         string `env:"LOG_DIR" envDefault:"logs" yaml:"log_dir"`

	IdentityProvider      string `env:"IDENTITY_PROVIDER" envDefault:"basic" yaml:"identity_provider"`
	KeycloakServerUrl     string `env:"KEYCLOAK_SERVER_URL" yaml:"keycloak_server_url"`
	KeycloakAdminUsername string `env:"KEYCLOAK_ADMIN_USER" yaml:"keycloak_admin_user"`
	KeycloakAdminPassword string `env:"KEYCLOAK_ADMIN_PASSWORD" yaml:"-"`
	UseSslInLogin         bool   `env:"USE_SSL_IN_LOGIN" yaml:"use_ssl_in_login"`
	SslCertPath           string `env:"SSL_CERT_PATH" yaml:"ssl_cert_path"`
	SslKeyPath            string `env:"SSL_KEY_PATH" yaml:"ssl_key_path"`

	OpenaiApiKey string `env:"OPENAI_API_KEY" yaml:"-"`
}

func loadEnvFile(envFile string) {
	slog.Info(fmt.Sprintf("loading env from file %v", envFile))
	err := godotenv.Load(envFile)
	if err != nil {
		log.Fatalf("error loading .env file '%v': %v", envFile, err)
	}
}

func loadConfig(configFile string) stockroomConfig {
	var cfg stockroomConfig

	// Yaml values are defaults, env vars take precedence.
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			log.Fatalf("error reading config file '%v': %v", configFile, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("error parsing config file '%v': %v", configFile, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error loading config from environment: %v", err)
	}

	return cfg
}

func (cfg *stockroomConfig) postgresDsn() string {
	parts, err := url.Parse(cfg.DatabaseUri)
	if err != nil {
		log.Fatalf("error parsing db uri: %v", err)
	}
	pwd, _ := parts.User.Password()
	dbname := strings.TrimPrefix(parts.Path, "/")
	return fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v", parts.Hostname(), parts.User.Username(), pwd, dbname, parts.Port())
}

func initDb(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	err = db.AutoMigrate(
		&schema.User{}, &schema.Workspace{}, &schema.WorkspaceMember{},
		&schema.WorkspaceInvitation{}, &schema.Supplier{}, &schema.InventoryItem{},
		&schema.PurchaseOrder{}, &schema.PurchaseOrderItem{},
	)
	if err != nil {
		log.Fatalf("error migrating db schema: %v", err)
	}

	return db
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from. If not specified will just load them from the environment variables already defined.")
	configFile := flag.String("config", "", "Optional yaml config file, env variables override values from this file.")
	port := flag.Int("port", 8000, "Port to run server on")

	flag.Parse()

	if *envFile != "" {
		loadEnvFile(*envFile)
	}
	cfg := loadConfig(*configFile)

	err := os.MkdirAll(cfg.LogDir, 0777)
	if err != nil {
		log.Fatalf("error creating log dir: %v", err)
	}

	logFile, err := os.OpenFile(filepath.Join(cfg.LogDir, "stockroom.log"), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer logFile.Close()

	auditLog, err := os.OpenFile(filepath.Join(cfg.LogDir, "audit.log"), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		log.Fatalf("error opening audit log file: %v", err)
	}
	defer auditLog.Close()

	logging.Init(logFile, "stockroom")

	db := initDb(cfg.postgresDsn())

	var identityProvider auth.IdentityProvider
	if cfg.IdentityProvider == "keycloak" {
		identityProvider, err = auth.NewKeycloakIdentityProvider(
			db,
			auth.NewAuditLogger(auditLog),
			auth.KeycloakArgs{
				KeycloakServerUrl:     cfg.KeycloakServerUrl,
				KeycloakAdminUsername: cfg.KeycloakAdminUsername,
				KeycloakAdminPassword: cfg.KeycloakAdminPassword,
				PublicHostname:        cfg.PublicHostname,
				SslLogin:              cfg.UseSslInLogin,
				SslCertPath:           cfg.SslCertPath,
				SslKeyPath:            cfg.SslKeyPath,
			},
		)
		if err != nil {
			log.Fatalf("error creating keycloak identity provider: %v", err)
		}
	} else {
		identityProvider = auth.NewBasicIdentityProvider(db, auth.NewAuditLogger(auditLog), []byte(cfg.JwtSecret))
	}

	var drafter emailgen.Drafter
	if cfg.OpenaiApiKey != "" {
		drafter, err = emailgen.NewDrafter("openai", cfg.OpenaiApiKey)
		if err != nil {
			log.Fatalf("error creating email drafter: %v", err)
		}
	}

	stockroom := services.NewStockroom(db, identityProvider, drafter, []byte(cfg.JwtSecret))

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{fmt.Sprintf("http://%v", cfg.PublicHostname), fmt.Sprintf("https://%v", cfg.PublicHostname)},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Mount("/api/v1", stockroom.Routes())
	r.Handle("/metrics", promhttp.Handler())

	slog.Info("starting server", "port", *port)
	err = http.ListenAndServe(fmt.Sprintf(":%d", *port), r)
	if err != nil {
		log.Fatalf("listen and serve returned error: %v", err.Error())
	}
}

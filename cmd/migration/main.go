package main

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/gerald-spec/novastock/cmd/migration/versions"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func postgresDsn(databaseUri string) string {
	parts, err := url.Parse(databaseUri)
	if err != nil {
		log.Fatalf("error parsing db uri: %v", err)
	}
	pwd, _ := parts.User.Password()
	dbname := strings.TrimPrefix(parts.Path, "/")
	return fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v", parts.Hostname(), parts.User.Username(), pwd, dbname, parts.Port())
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from.")
	databaseUri := flag.String("db_uri", "", "Uri of the database to apply migrations to.")

	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("error loading .env file '%v': %v", *envFile, err)
		}
	}

	if *databaseUri == "" {
		log.Fatal("must specify -db_uri argument")
	}

	db, err := gorm.Open(postgres.Open(postgresDsn(*databaseUri)), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "0_initial_schema",
			Migrate: func(txn *gorm.DB) error {
				return versions.Migration_0_initial_schema(txn)
			},
		},
	})

	if err := m.Migrate(); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Println("all migrations applied")
}

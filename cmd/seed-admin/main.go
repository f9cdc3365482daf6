// seed-admin creates the admin console user or resets its password and role.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	  go run ./cmd/seed-admin --email admin@example.com --password '...'
//
// ADMIN_EMAIL, ADMIN_NAME and ADMIN_PASSWORD are read when the flags are empty.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/maestro_backend/config"
	"github.com/mmdatafocus/maestro_backend/models"
	"github.com/mmdatafocus/maestro_backend/utils"
)

func flagOrEnv(v, key string) string {
	if strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(os.Getenv(key))
}

func main() {
	email := flag.String("email", "", "Admin email (or ADMIN_EMAIL)")
	name := flag.String("name", "", "Display name (or ADMIN_NAME, default \"Maestro Admin\")")
	password := flag.String("password", "", "Password, at least 8 characters (or ADMIN_PASSWORD)")
	migrate := flag.Bool("migrate", false, "Run AutoMigrate before seeding")
	flag.Parse()

	adminEmail := flagOrEnv(*email, "ADMIN_EMAIL")
	adminName := flagOrEnv(*name, "ADMIN_NAME")
	if adminName == "" {
		adminName = "Maestro Admin"
	}
	adminPassword := flagOrEnv(*password, "ADMIN_PASSWORD")
	if adminEmail == "" || len(adminPassword) < 8 {
		fmt.Fprintln(os.Stderr, "--email and a --password of at least 8 characters are required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if *migrate {
		if err := models.MigrateTable(db); err != nil {
			fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
			os.Exit(1)
		}
	}

	ctx := utils.SetUsernameInContext(context.Background(), "seed-admin")
	user, created, err := models.NewStore(db).UpsertAdmin(ctx, adminEmail, adminName, adminPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed admin user: %v\n", err)
		os.Exit(1)
	}
	if created {
		fmt.Printf("Created admin user: email=%q (role=A)\n", user.Email)
		return
	}
	fmt.Printf("Updated admin user: email=%q (role=A)\n", user.Email)
}

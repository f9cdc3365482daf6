// import-maestro loads a master catalog file (.csv or .xlsx) into the
// database, upserting by normalized SKU.
//
// Usage:
//
//	go run ./cmd/import-maestro --file maestro.xlsx [--by someone@example.com] [--dry-run] [--redis]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/maestro_backend/config"
	"github.com/mmdatafocus/maestro_backend/models"
	"github.com/mmdatafocus/maestro_backend/models/reports"
	"github.com/mmdatafocus/maestro_backend/utils"
	"github.com/sirupsen/logrus"
)

func main() {
	path := flag.String("file", "", "Required: catalog file (.csv or .xlsx)")
	importedBy := flag.String("by", "import-maestro", "Recorded as the updating user")
	dryRun := flag.Bool("dry-run", false, "Parse and report without writing")
	withRedis := flag.Bool("redis", false, "Connect to REDIS_ADDRESS so cached maestro entries are dropped")
	flag.Parse()

	if strings.TrimSpace(*path) == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		os.Exit(1)
	}
	logger := config.GetLogger()

	format, err := reports.FormatFromFilename(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", *path, err)
		os.Exit(1)
	}
	f, err := os.Open(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", *path, err)
		os.Exit(1)
	}
	defer f.Close()

	table, err := reports.ReadTable(f, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", *path, err)
		os.Exit(1)
	}
	rows, err := reports.ParseMasterRecords(table)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", *path, err)
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{"file": *path, "rows": len(rows)}).Info("catalog parsed")
	if *dryRun {
		return
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	if *withRedis {
		config.ConnectRedisWithRetry()
	}

	ctx := utils.SetUsernameInContext(context.Background(), *importedBy)
	result, err := models.NewStore(db).ImportMasterRecords(ctx, rows, *importedBy)
	if err != nil {
		config.LogError(logger, "import-maestro", "main", "import", *path, err)
		os.Exit(1)
	}
	reports.InvalidateReports("maestro")

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
	if len(result.Errors) > 0 {
		os.Exit(2)
	}
}

// Command-line tool to clean the database by dropping all tables in the public schema.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"PartTimeJob-backend/internal/config"
	"PartTimeJob-backend/internal/database"
)

const dropAll = `
DO $$
	DECLARE
		r RECORD;
	BEGIN
		FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
			EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
		END LOOP;
	END $$;
`

func main() {
	fmt.Println("WARNING: This command will DROP ALL TABLES in the 'public' schema of your database.")
	fmt.Println("This action is irreversible. Do you want to continue? (yes/no): ")

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		slog.Error("failed to read input", "error", err)
		os.Exit(1)
	}
	if strings.TrimSpace(strings.ToLower(input)) != "yes" {
		fmt.Println("Operation cancelled.")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.NewLogger())

	db, err := database.GetMainDB(cfg)
	if err != nil {
		slog.Error("database failed to initialize", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Exec(dropAll).Error; err != nil {
		slog.Error("failed to execute drop command", "error", err)
		os.Exit(1)
	}

	fmt.Println("All tables dropped successfully.")
}

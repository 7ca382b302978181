package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/vncsmyrnk/election/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/election/internal/platform/config"
)

func main() {
	all := flag.Bool("all", false, "apply every up migration in order")
	flag.Parse()

	if !*all && flag.NArg() < 1 {
		log.Fatal("a migration name is required, or pass -all")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	connStr := config.PostgresURLFromEnv()
	if connStr == "" {
		log.Fatal("POSTGRES_HOST is not set")
	}
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if *all {
		if err := postgres.MigrateUp(ctx, db); err != nil {
			log.Fatal(err)
		}
		fmt.Println("All migrations executed successfully.")
		return
	}

	name, content, err := postgres.MigrationFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	if _, err := db.ExecContext(ctx, string(content)); err != nil {
		log.Fatalf("Failed to execute SQL file %s: %v", name, err)
	}

	fmt.Printf("Migration file %s executed successfully.\n", name)
}

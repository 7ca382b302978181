package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/vncsmyrnk/election/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/election/internal/core/services"
	"github.com/vncsmyrnk/election/internal/platform/config"
	"github.com/vncsmyrnk/election/internal/platform/logger"
)

// tallyaudit re-checks every stored election: per-candidate counts against
// ledgers, one ballot per voter and the declared winner. It exits 1 when any
// election is inconsistent.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	var dbHost, dbPort, dbUser, dbPass, dbName string

	flag.StringVar(&dbHost, "db-host", os.Getenv("POSTGRES_HOST"), "Database host")
	flag.StringVar(&dbPort, "db-port", getenv("POSTGRES_PORT", "5432"), "Database port")
	flag.StringVar(&dbUser, "db-user", os.Getenv("POSTGRES_USER"), "Database user")
	flag.StringVar(&dbPass, "db-pass", os.Getenv("POSTGRES_PASSWORD"), "Database password")
	flag.StringVar(&dbName, "db-name", os.Getenv("POSTGRES_DB"), "Database name")
	flag.Parse()

	db, err := sql.Open("postgres", config.PostgresURL(dbUser, dbPass, dbHost, dbPort, dbName))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	logger := logger.New(getenv("LOG_LEVEL", "info"), "text")
	statsService := services.NewStatsService(
		postgres.NewElectionRepository(db),
		postgres.NewUserRepository(db),
		services.WithLogger(logger),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Println("Starting tally audit...")

	violations, err := statsService.VerifyTallies(ctx)
	if err != nil {
		log.Fatalf("Error verifying tallies: %v", err)
	}

	stats, err := statsService.ComputeStats(ctx)
	if err != nil {
		log.Fatalf("Error computing stats: %v", err)
	}
	fmt.Printf("elections=%d voters=%d votes=%d turnout=%s\n", stats.TotalElections, stats.TotalVoters, stats.TotalVotes, stats.Turnout)

	if len(violations) > 0 {
		for _, v := range violations {
			fmt.Printf("election %s (%s):\n", v.ElectionID, v.Title)
			for _, p := range v.Problems {
				fmt.Printf("  - %s\n", p)
			}
		}
		log.Printf("Tally audit found %d inconsistent elections.", len(violations))
		os.Exit(1)
	}

	log.Println("Tally audit completed successfully.")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// apply-migration applies the embedded schema, or a single .sql file given as argument.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"lodgfy-booking/common/database"
	"lodgfy-booking/internal/config"
	"lodgfy-booking/internal/migrations"
)

func main() {
	cfg := config.Load()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Connected to database: %s\n\n", cfg.Database.Database)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if len(os.Args) < 2 {
		if err := migrations.Apply(ctx, db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Printf("Applied embedded migrations: %v\n", migrations.Names())
		return
	}

	content, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to read migration file: %v", err)
	}
	n, err := database.ExecScript(ctx, db, string(content))
	if err != nil {
		log.Fatalf("Migration failed after %d statements: %v", n, err)
	}
	fmt.Printf("Migration completed successfully (%d statements)\n", n)
}

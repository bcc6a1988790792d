package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tandoor-pos/api/internal/config"
	"github.com/tandoor-pos/api/internal/enum"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// CLI flags
	username := flag.String("username", "", "Admin username")
	password := flag.String("password", "", "Admin password")
	name := flag.String("name", "", "Admin display name")
	flag.Parse()

	// Fall back to environment variables
	if *username == "" {
		*username = os.Getenv("SEED_USERNAME")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}

	// Fall back to defaults
	if *username == "" {
		*username = "admin"
	}
	if *password == "" {
		*password = "admin123"
		log.Println("WARNING: Using default password 'admin123'. Change immediately in production!")
	}
	if *name == "" {
		*name = "Administrator"
	}

	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Seed in one transaction: either the whole starter data set lands or
	// nothing does.
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	adminID, err := seedAdmin(ctx, tx, *username, *password, *name)
	if err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	if err := seedMenu(ctx, tx); err != nil {
		log.Fatalf("Failed to seed menu: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed completed successfully")
	log.Printf("Admin user ID: %s", adminID)
}

// seedAdmin creates the initial admin account if it doesn't exist.
func seedAdmin(ctx context.Context, tx pgx.Tx, username, password, name string) (string, error) {
	var existingID string
	err := tx.QueryRow(ctx,
		`SELECT id FROM users WHERE username = $1 LIMIT 1`, username).Scan(&existingID)
	if err == nil {
		log.Printf("User '%s' already exists (ID: %s), skipping", username, existingID)
		return existingID, nil
	}
	if err != pgx.ErrNoRows {
		return "", fmt.Errorf("check user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	var newID string
	err = tx.QueryRow(ctx,
		`INSERT INTO users (name, username, password_hash, role, party)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		name, username, string(hash), enum.UserRoleAdmin, enum.DefaultParty).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	return newID, nil
}

// seedMenu creates the starter categories and a couple of sample dishes so a
// fresh install has something to sell.
func seedMenu(ctx context.Context, tx pgx.Tx) error {
	categories := []string{"Appetizers", "Main Courses", "Desserts", "Beverages", "Specials"}

	categoryIDs := make(map[string]string, len(categories))
	for _, name := range categories {
		var id string
		err := tx.QueryRow(ctx, `SELECT id FROM categories WHERE name = $1`, name).Scan(&id)
		if err == nil {
			categoryIDs[name] = id
			continue
		}
		if err != pgx.ErrNoRows {
			return fmt.Errorf("check category %q: %w", name, err)
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO categories (name) VALUES ($1) RETURNING id`, name).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert category %q: %w", name, err)
		}
		categoryIDs[name] = id
	}

	items := []struct {
		name     string
		price    string
		category string
		stock    int32
	}{
		{"Spring Rolls", "5.99", "Appetizers", 50},
		{"Samosas", "4.99", "Appetizers", 40},
	}

	for _, item := range items {
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM menu_items WHERE name = $1)`, item.name).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check menu item %q: %w", item.name, err)
		}
		if exists {
			continue
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO menu_items (name, price, category_id, stock)
			 VALUES ($1, $2, $3, $4)`,
			item.name, item.price, categoryIDs[item.category], item.stock)
		if err != nil {
			return fmt.Errorf("insert menu item %q: %w", item.name, err)
		}
	}

	return nil
}

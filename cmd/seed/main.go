// seed loads a demo company with payment types, clients, products and pending
// orders. It is idempotent on the company code.
//
// Usage: seed [--company DEMO]
package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"water-delivery/internal/db"
)

func main() {
	_ = godotenv.Load()

	code := pflag.String("company", "DEMO", "company code to create or refresh")
	url := pflag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	pflag.Parse()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, *url, 2)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Restoring company...")
	var companyID int
	err = tx.QueryRow(ctx, `
		INSERT INTO companies (company_code, name)
		VALUES ($1, 'Demo Water Co')
		ON CONFLICT (company_code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, *code).Scan(&companyID)
	if err != nil {
		log.Fatalf("Failed to restore company: %v", err)
	}

	log.Println("Restoring payment types...")
	_, err = tx.Exec(ctx, `
		INSERT INTO payment_types (company_id, name, applies_to_balance)
		VALUES ($1, 'Efectivo', B'0'), ($1, 'Transferencia', B'0'), ($1, 'Cuenta corriente', B'1')
		ON CONFLICT (company_id, name) DO UPDATE SET applies_to_balance = EXCLUDED.applies_to_balance
	`, companyID)
	if err != nil {
		log.Fatalf("Failed to restore payment types: %v", err)
	}

	var existing int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM clients WHERE company_id = $1", companyID).Scan(&existing); err != nil {
		log.Fatalf("Failed to count clients: %v", err)
	}
	if existing > 0 {
		if err := tx.Commit(ctx); err != nil {
			log.Fatalf("Failed to commit: %v", err)
		}
		log.Printf("Company %s already has %d clients; left orders untouched.", *code, existing)
		return
	}

	log.Println("Creating clients, products and pending orders...")
	insertID := func(sql string, args ...any) int {
		var id int
		if err := tx.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
			log.Fatalf("Failed to insert seed row: %v", err)
		}
		return id
	}

	bakery := insertID("INSERT INTO clients (company_id, name) VALUES ($1, 'Panaderia Sol') RETURNING id", companyID)
	office := insertID("INSERT INTO clients (company_id, name, balance, outstanding_returnables) VALUES ($1, 'Oficina Norte', 1000, 5) RETURNING id", companyID)
	jug := insertID("INSERT INTO products (company_id, name, unit_price, is_returnable) VALUES ($1, 'Bidon 20L', 50, TRUE) RETURNING id", companyID)
	sachet := insertID("INSERT INTO products (company_id, name, unit_price, is_returnable) VALUES ($1, 'Sachet 6x2L', 30, FALSE) RETURNING id", companyID)

	type item struct {
		product, quantity int
		returnable        bool
	}
	orders := []struct {
		client int
		total  int
		items  []item
	}{
		{bakery, 150, []item{{jug, 3, true}}},
		{office, 130, []item{{jug, 2, true}, {sachet, 1, false}}},
	}
	for _, o := range orders {
		orderID := insertID("INSERT INTO orders (company_id, client_id, total) VALUES ($1, $2, $3) RETURNING id", companyID, o.client, o.total)
		for _, it := range o.items {
			_, err := tx.Exec(ctx,
				"INSERT INTO order_items (order_id, product_id, quantity, is_returnable) VALUES ($1, $2, $3, $4)",
				orderID, it.product, it.quantity, it.returnable,
			)
			if err != nil {
				log.Fatalf("Failed to insert order item: %v", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}
	log.Printf("Seed data for company %s restored.", *code)
}

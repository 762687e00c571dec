// Package app assembles the domain services over a chosen set of stores.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stockflow/pkg/auth"
	"stockflow/pkg/event"
	"stockflow/pkg/logger"
	"stockflow/pkg/packaging"
	packmem "stockflow/pkg/packaging/memory"
	packpg "stockflow/pkg/packaging/postgres"
	"stockflow/pkg/product"
	productmem "stockflow/pkg/product/memory"
	productpg "stockflow/pkg/product/postgres"
	"stockflow/pkg/sale"
	salemem "stockflow/pkg/sale/memory"
	salepg "stockflow/pkg/sale/postgres"
	"stockflow/pkg/session"
	"stockflow/pkg/stock"
	stockmem "stockflow/pkg/stock/memory"
	stockpg "stockflow/pkg/stock/postgres"
	"stockflow/pkg/user"
	usermem "stockflow/pkg/user/memory"
	userpg "stockflow/pkg/user/postgres"
	"stockflow/pkg/webhook"
	webhookmem "stockflow/pkg/webhook/memory"
	webhookpg "stockflow/pkg/webhook/postgres"
)

// Stores are the persistence collaborators of every service.
type Stores struct {
	Stock         stock.Store
	Products      product.Repository
	Carts         packaging.Store
	Sales         sale.Repository
	Users         user.Repository
	Subscriptions webhook.Repository
	Revoked       session.Revoker
}

// MemoryStores keeps everything in process.
func MemoryStores() Stores {
	return Stores{
		Stock:         stockmem.New(),
		Products:      productmem.New(),
		Carts:         packmem.New(),
		Sales:         salemem.New(),
		Users:         usermem.New(),
		Subscriptions: webhookmem.New(),
		Revoked:       session.NewRegistry(),
	}
}

// Schemas lists the DDL of every postgres store, in dependency order.
var Schemas = []string{stockpg.Schema, productpg.Schema, packpg.Schema, salepg.Schema, userpg.Schema, webhookpg.Schema}

// PostgresStores creates the tables if needed and returns the postgres stores.
// Revoked tokens stay in process unless the caller swaps in another Revoker.
func PostgresStores(ctx context.Context, db *sql.DB) (Stores, error) {
	for _, ddl := range Schemas {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return Stores{}, fmt.Errorf("apply schema: %w", err)
		}
	}
	return Stores{
		Stock:         stockpg.New(db),
		Products:      productpg.New(db),
		Carts:         packpg.New(db),
		Sales:         salepg.New(db),
		Users:         userpg.New(db),
		Subscriptions: webhookpg.New(db),
		Revoked:       session.NewRegistry(),
	}, nil
}

// Options tune the assembly.
type Options struct {
	Log  *logger.Logger
	Auth auth.Config
	// Sender delivers webhooks. Defaults to a synchronous HTTPSender.
	Sender webhook.Sender
	// Mirrors receive every published event after the webhook dispatcher.
	Mirrors []event.Publisher
}

// App holds the assembled services.
type App struct {
	Stock         *stock.Service
	Products      *product.Service
	Packaging     *packaging.Service
	Sales         *sale.Service
	Auth          *auth.Service
	Subscriptions *webhook.SubscriptionService
}

// New opens the stock ledger and wires the services to one publisher.
func New(ctx context.Context, st Stores, opts Options) (*App, error) {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	sender := opts.Sender
	if sender == nil {
		sender = webhook.NewHTTPSender(5 * time.Second)
	}

	ledger, err := stock.Open(ctx, st.Stock)
	if err != nil {
		return nil, fmt.Errorf("open stock ledger: %w", err)
	}
	dispatcher := webhook.NewDispatcher(st.Subscriptions, sender, log)
	pub := append(event.Multi{dispatcher}, opts.Mirrors...)

	products := product.NewService(ledger, st.Products, pub)
	return &App{
		Stock:         stock.NewService(ledger, pub),
		Products:      products,
		Packaging:     packaging.NewService(packaging.NewYard(st.Carts, products), pub),
		Sales:         sale.NewService(sale.NewLedger(st.Sales, st.Users, products), pub),
		Auth:          auth.NewService(st.Users, st.Revoked, opts.Auth),
		Subscriptions: webhook.NewSubscriptionService(st.Subscriptions),
	}, nil
}

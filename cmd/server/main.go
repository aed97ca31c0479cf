package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"handypay/internal/api"
	"handypay/internal/cache"
	"handypay/internal/config"
	"handypay/internal/ledger"
	"handypay/internal/provider"
	"handypay/internal/store"
	"handypay/internal/webhook"
)

func main() {
	cfg := config.Load()

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatal(err)
	}

	dbpool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer dbpool.Close()

	ledgerStore := store.NewPostgres(dbpool)
	writer := &ledger.Writer{Store: ledgerStore}

	var dedup webhook.DedupCache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(cfg.RedisAddr, time.Hour)
		if err != nil {
			log.Fatal(err)
		}
		dedup = redisCache
		log.Println("using redis dedup cache at", cfg.RedisAddr)
	} else {
		dedup = cache.NewMemory(time.Hour)
	}

	dispatcher := &webhook.Dispatcher{Writer: writer, Cache: dedup}

	handler := &api.Handler{
		Writer: writer,
		Store:  ledgerStore,
		Stripe: provider.NewStripeClient(cfg.StripeSecretKey),
		Billplz: provider.NewBillplzClient(
			cfg.BillplzBaseURL,
			cfg.BillplzSecretKey,
			cfg.BillplzCollectionID,
			cfg.BillplzCallbackURL,
			cfg.BillplzRedirectURL,
		),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhooks/stripe", webhook.StripeHandler(cfg.StripeWebhookSecret, dispatcher))
	mux.HandleFunc("POST /webhooks/billplz", webhook.BillplzHandler(cfg.BillplzSignatureKey, dispatcher))

	mux.HandleFunc("POST /api/intents", api.RequireAuth(cfg.JWTSecret, handler.CreateIntent))
	mux.HandleFunc("POST /api/bills", api.RequireAuth(cfg.JWTSecret, handler.CreateBill))
	mux.HandleFunc("POST /api/payments/confirm", api.RequireAuth(cfg.JWTSecret, handler.ConfirmPayment))
	mux.HandleFunc("POST /api/payments/fail", api.RequireAuth(cfg.JWTSecret, handler.LogFailure))
	mux.HandleFunc("GET /api/payments/{id}", api.RequireAuth(cfg.JWTSecret, handler.GetPayment))
	mux.HandleFunc("GET /api/billings/{id}/payments", api.RequireAuth(cfg.JWTSecret, handler.ListPayments))

	mux.Handle("GET /metrics", promhttp.Handler())

	log.Println("server started at", cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, mux))
}

package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files in dev
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/escolta-mx/booking-api/internal/audit"
	"github.com/escolta-mx/booking-api/internal/config"
	"github.com/escolta-mx/booking-api/internal/database"
	"github.com/escolta-mx/booking-api/internal/handler"
	"github.com/escolta-mx/booking-api/internal/metrics"
	"github.com/escolta-mx/booking-api/internal/queue"
	"github.com/escolta-mx/booking-api/internal/ratelimit"
	"github.com/escolta-mx/booking-api/internal/repository"
	"github.com/escolta-mx/booking-api/internal/router"
	"github.com/escolta-mx/booking-api/internal/settlement"
	"github.com/escolta-mx/booking-api/internal/stripe"
)

func main() {
	// Load .env when present; real deployments set the environment
	// directly and the file is absent.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()
	payCfg := config.LoadPaymentsConfig()
	rlCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the rate limiter only; when it is unreachable the
	// limiter fails open and the API keeps serving.
	var limiter *ratelimit.Limiter
	if rdb := config.NewRedisClient(); rdb != nil {
		limiter = ratelimit.New(ratelimit.NewRedisStore(rdb), rlCfg.Prefix)
	}

	metrics.Register()

	auditLog := audit.NewLogger(db)
	bookings := repository.NewBookingRepo(db)
	assignments := repository.NewAssignmentRepo(db)
	guards := repository.NewGuardRepo(db)
	rules := repository.NewPricingRuleRepo(db)
	quotes := repository.NewQuoteRepo(db)
	payments := repository.NewPaymentRepo(db)

	stripeClient := stripe.NewClient(payCfg.SecretKey)
	splitter := &settlement.Splitter{
		WebhookSecret: payCfg.WebhookSecret,
		Defaults:      payCfg.DefaultSplits,
		Dest:          payCfg.Destinations,
		Client:        stripeClient,
	}

	h := router.Handlers{
		Pricing:  handler.NewPricingHandler(rules, quotes, bookings, auditLog),
		Bookings: handler.NewBookingHandler(bookings, auditLog),
		Matching: handler.NewMatchingHandler(bookings, guards, assignments, auditLog),
		Jobs:     handler.NewJobsHandler(assignments, bookings, auditLog),
		Payments: handler.NewPaymentsHandler(bookings, payments, quotes, splitter, stripeClient, payCfg, auditLog),
	}

	e := echo.New()
	router.RegisterRoutes(e, h, rlCfg, limiter)
	router.RegisterAPI(e, h, cfg.JWTSecret, rlCfg, limiter)

	// Background consumer mirrors assignment events into logs/booking.log.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

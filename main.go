package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shophub/address"
	"shophub/admin"
	"shophub/auth"
	"shophub/cart"
	"shophub/checkout"
	"shophub/config"
	"shophub/db"
	"shophub/media"
	"shophub/middleware"
	"shophub/mq"
	"shophub/pay"
	"shophub/products"
	"shophub/profile"
	"shophub/ratelim"
	"shophub/rdx"
	"shophub/routes"
	"shophub/store"
	"shophub/tickets"
	"shophub/userdata"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s - %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

// backends holds what main has to close on shutdown.
type backends struct {
	stores *store.Stores
	mongo  *db.Collections
	redis  *redis.Client
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}
	switch cfg.Store {
	case "memory":
		log.Println("Using in-memory store; data is lost on restart")
		b.stores = store.NewMemory()
	default:
		colls, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := colls.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		b.mongo = colls
		b.stores = store.NewMongo(colls)
	}

	if cfg.RedisAddr != "" {
		conn, err := rdx.Connect(ctx, cfg.RedisAddr, cfg.RedisPass)
		if err != nil {
			log.Printf("Redis unavailable, falling back to in-process cache: %v", err)
		} else {
			b.redis = conn
		}
	}
	return b, nil
}

func (b *backends) close(ctx context.Context) {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			log.Printf("redis close: %v", err)
		}
	}
	if b.mongo != nil {
		if err := b.mongo.Disconnect(ctx); err != nil {
			log.Printf("mongo disconnect: %v", err)
		}
	}
}

// mailSender is the final delivery step: SMTP when configured, a log line otherwise.
func mailSender(cfg *config.Config) mq.Sender {
	if cfg.SMTPHost == "" {
		return mq.LogSender{}
	}
	return mq.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
}

func buildDeps(cfg *config.Config, b *backends, notifier mq.Notifier) (*routes.Deps, *middleware.Gate) {
	var cache rdx.Cache = rdx.NewMemoryCache()
	if b.redis != nil {
		cache = rdx.NewRedisCache(b.redis)
	}

	tokens := auth.NewJWTService(cfg.JwtSecret, cfg.JwtExpiry)
	uploader := media.NewLocalUploader(cfg.UploadDir, "/static/uploads")
	gateway := pay.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL)
	orchestrator := checkout.New(b.stores, gateway, notifier, cache)

	d := &routes.Deps{
		Auth:        auth.NewService(b.stores.Accounts, tokens, notifier, cache),
		Cart:        cart.NewCartStore(b.stores.Accounts, b.stores.Products, cache),
		Addresses:   address.NewBook(b.stores.Accounts, b.stores.Addresses, cache),
		Checkout:    orchestrator,
		Idempotency: pay.NewIdempotency(b.stores.Idempotency),
		Details:     userdata.NewDetails(b.stores, cache),
		Profile:     profile.NewEditor(b.stores.Accounts, uploader, cache),
		Catalog:     products.NewCatalog(b.stores.Products, uploader),
		Admin:       admin.NewConsole(b.stores.Accounts, b.stores.Orders, cache),
		Receipts:    tickets.NewReceipts(orchestrator, b.stores.Products, cfg.ReceiptKey),
		UploadDir:   cfg.UploadDir,
	}
	if cfg.GoogleClientID != "" {
		provisioner := auth.NewProvisioner(b.stores.Accounts, tokens, cache, cfg.FrontendURL)
		d.Google = auth.NewGoogleBridge(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, provisioner)
	}
	return d, middleware.NewGate(tokens, b.stores.Accounts)
}

func setupRouter(d *routes.Deps, rateLimiter *ratelim.RateLimiter) *httprouter.Router {
	router := httprouter.New()
	router.GET("/api/v1/health-check", Index)
	routes.RoutesWrapper(router, d, rateLimiter)
	return router
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	// With Redis, the request path only publishes and the mail worker delivers.
	var sender mq.Sender = mailSender(cfg)
	if b.redis != nil {
		go mq.StartMailWorker(ctx, b.redis, sender)
		sender = mq.NewRedisPublisher(b.redis)
	}
	dispatcher := mq.NewDispatcher(sender, cfg.NotifyWorkers, 256)

	deps, gate := buildDeps(cfg, b, dispatcher)

	rateLimiter := ratelim.NewRateLimiter(5, 5)
	go rateLimiter.Run(ctx, time.Minute)

	router := setupRouter(deps, rateLimiter)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	}).Handler(gate.Handler(router))

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutdown signal received; shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
	log.Println("Draining notification queue...")
	dispatcher.Close()
	stop()
	b.close(shutdownCtx)
	log.Println("Server stopped cleanly")
}

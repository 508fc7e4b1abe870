// Single-check HTTP surface (spec §4.11): a thin HTTP front door exposing
// one address at a time via /verify, plus the bulk-upload control plane
// (/upload, /status, /results) that hands batches off to the queue the
// Bulk Worker drains. Generalized from the teacher's cmd/api/main.go —
// same mux layout, same CORS/auth middleware chain, same graceful-shutdown
// sequence — onto config.Load, the verification pipeline, queue.Producer
// (AMQP), and the extended store.Store.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"mailvetter/internal/cache"
	"mailvetter/internal/config"
	"mailvetter/internal/headless"
	"mailvetter/internal/pipeline"
	"mailvetter/internal/proxy"
	"mailvetter/internal/provider"
	"mailvetter/internal/queue"
	"mailvetter/internal/signals"
	"mailvetter/internal/smtpprobe"
	"mailvetter/internal/store"
	"mailvetter/internal/verdict"
)

// server bundles the dependencies every handler needs. A struct-of-deps
// instead of package-level globals (the teacher's store.DB, queue.Client)
// keeps each handler's dependencies explicit and makes the API testable
// without a live Postgres/RabbitMQ connection.
type server struct {
	pipeline *pipeline.Pipeline
	store    *store.Store
	producer queue.Producer
}

func main() {
	log.Println("starting mailvetter single-check API")

	cfg, err := config.Load()
	if err != nil {
		log.Printf("config error: %v", err)
		os.Exit(1)
	}

	var db *store.Store
	var producer queue.Producer
	if cfg.Worker.Enable {
		db, err = store.Open(context.Background(), cfg.Worker.PostgresURL)
		if err != nil {
			log.Printf("failed to connect to Postgres: %v", err)
			os.Exit(2)
		}
		defer db.Close()
		log.Println("connected to Postgres")

		broker, err := queue.Dial(cfg.Worker.RabbitMQURL)
		if err != nil {
			log.Printf("failed to connect to RabbitMQ: %v", err)
			os.Exit(2)
		}
		defer broker.Close()
		producer = broker
		log.Println("connected to RabbitMQ")
	} else {
		log.Println("worker.enable is false: /upload, /status, /results are disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var proxyPool *proxy.Pool
	if cfg.Proxy.Enabled() {
		proxyPool = proxy.NewPool([]proxy.Descriptor{{
			Host: cfg.Proxy.Host, Port: cfg.Proxy.Port,
			User: cfg.Proxy.User, Pass: cfg.Proxy.Pass,
		}}, 0)
	}

	prober := smtpprobe.NewProber(smtpprobe.Config{
		HelloName: cfg.HelloName,
		FromEmail: cfg.FromEmail,
		ProxyPool: proxyPool,
	})

	headlessAdapter := headless.New(cfg.WebdriverAddr)

	methodCfg := provider.DefaultMethodConfig()
	if cfg.VerifMethod.Gmail != "" {
		methodCfg.Gmail = verdict.VerifMethod(cfg.VerifMethod.Gmail)
	}
	if cfg.VerifMethod.HotmailB2B != "" {
		methodCfg.HotmailB2B = verdict.VerifMethod(cfg.VerifMethod.HotmailB2B)
	}
	if cfg.VerifMethod.HotmailB2C != "" {
		methodCfg.HotmailB2C = verdict.VerifMethod(cfg.VerifMethod.HotmailB2C)
	}
	if cfg.VerifMethod.Yahoo != "" {
		methodCfg.Yahoo = verdict.VerifMethod(cfg.VerifMethod.Yahoo)
	}

	var mxCache cache.Store
	if redisAddr := os.Getenv("CACHE_REDIS_ADDR"); redisAddr != "" {
		mxCache = cache.NewRedis(redis.NewClient(&redis.Options{Addr: redisAddr}))
	} else {
		mem := cache.NewMemory()
		cache.StartCleanup(ctx, mem, 5*time.Minute)
		mxCache = mem
		log.Println("cache eviction goroutine started (interval: 5m)")
	}

	pl := pipeline.New(pipeline.Config{
		BackendName:  cfg.BackendName,
		MethodConfig: methodCfg,
		Prober:       prober,
		Headless:     headlessAdapter,
		MXCache:      mxCache,
		SignalsConfig: signals.Config{
			EnableGravatar:    true,
			HIBPAPIKey:        os.Getenv("HIBP_API_KEY"),
			EnableDomainInfra: true,
			EnableGitHub:      true,
			EnableDomainAge:   true,
		},
		CheckMicrosoft: true,
	})

	srv := &server{pipeline: pl, store: db, producer: producer}

	mux := http.NewServeMux()
	mux.HandleFunc("/verify", enableCORS(requireAPIKey(cfg, srv.verifyHandler)))
	mux.HandleFunc("/upload", enableCORS(requireAPIKey(cfg, srv.uploadHandler)))
	mux.HandleFunc("/status", enableCORS(requireAPIKey(cfg, srv.statusHandler)))
	mux.HandleFunc("/results", enableCORS(requireAPIKey(cfg, srv.resultsHandler)))
	mux.HandleFunc("/info", enableCORS(infoHandler))

	httpServer := &http.Server{
		Addr:         cfg.HTTPHost + ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("mailvetter API listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutdown signal received, draining in-flight requests...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server shut down cleanly")
}

// enableCORS sets permissive CORS headers for frontend access, per the
// teacher's cmd/api/main.go enableCORS.
func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	guide := map[string]any{
		"service": "mailvetter",
		"endpoints": []string{
			"GET /verify?email=",
			"POST /upload",
			"GET /status?id=",
			"GET /results?id=",
		},
	}
	writeJSON(w, http.StatusOK, guide)
}

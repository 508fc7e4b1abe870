// Bulk Worker entrypoint (spec §4.9): consumes the five provider queues,
// runs each address through the verification pipeline, and persists the
// result. Generalized from the teacher's cmd/worker/main.go Redis/BLPop
// wiring onto config.Load, queue.Dial (AMQP), and store.Open (pgx); the
// SIGTERM/SIGINT-then-drain shutdown sequence is kept as-is.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
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
	"mailvetter/internal/throttle"
	"mailvetter/internal/verdict"
	"mailvetter/internal/webhook"
	"mailvetter/internal/worker"
)

func main() {
	log.Println("starting mailvetter bulk worker")

	cfg, err := config.Load()
	if err != nil {
		log.Printf("config error: %v", err)
		os.Exit(1)
	}
	if !cfg.Worker.Enable {
		log.Println("worker.enable is false, nothing to do")
		os.Exit(0)
	}

	broker, err := queue.Dial(cfg.Worker.RabbitMQURL)
	if err != nil {
		log.Printf("failed to connect to RabbitMQ: %v", err)
		os.Exit(2)
	}
	defer broker.Close()
	log.Println("connected to RabbitMQ")

	db, err := store.Open(context.Background(), cfg.Worker.PostgresURL)
	if err != nil {
		log.Printf("failed to connect to Postgres: %v", err)
		os.Exit(2)
	}
	defer db.Close()
	log.Println("connected to Postgres")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var proxyPool *proxy.Pool
	if cfg.Proxy.Enabled() {
		proxyPool = proxy.NewPool([]proxy.Descriptor{{
			Host: cfg.Proxy.Host, Port: cfg.Proxy.Port,
			User: cfg.Proxy.User, Pass: cfg.Proxy.Pass,
		}}, 0)
		log.Println("SOCKS5 proxy pool enabled for SMTP probing")
	} else {
		log.Println("no proxy configured, SMTP probes dial direct")
	}

	prober := smtpprobe.NewProber(smtpprobe.Config{
		HelloName: cfg.HelloName,
		FromEmail: cfg.FromEmail,
		ProxyPool: proxyPool,
	})

	var headlessAdapter *headless.Adapter
	if cfg.WebdriverAddr != "" {
		headlessAdapter = headless.New(cfg.WebdriverAddr)
		log.Println("headless backend configured")
	} else {
		headlessAdapter = headless.New("")
	}

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

	// The worker's own domain/MX memoization cache. Redis is preferred when
	// configured so a multi-process worker fleet shares one cache instead
	// of each process cold-starting its own.
	var mxCache cache.Store
	if redisAddr := os.Getenv("CACHE_REDIS_ADDR"); redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		mxCache = cache.NewRedis(client)
		log.Printf("cache backed by Redis at %s", redisAddr)
	} else {
		mem := cache.NewMemory()
		cache.StartCleanup(ctx, mem, 5*time.Minute)
		mxCache = mem
		log.Println("cache backed by in-memory store")
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
		CheckMicrosoft:      true,
		CheckGoogleCalendar: false,
		CheckAdobe:          false,
	})

	bucket := throttle.New(throttle.Limits{
		PerSecond: cfg.Worker.Throttle.PerSecond,
		PerMinute: cfg.Worker.Throttle.PerMinute,
		PerHour:   cfg.Worker.Throttle.PerHour,
		PerDay:    cfg.Worker.Throttle.PerDay,
	})

	notifier := webhook.New(cfg.Worker.WebhookURL)

	queues := cfg.Worker.Queues
	if len(queues) == 0 {
		queues = []string{queue.QueueGmail, queue.QueueHotmailB2B, queue.QueueHotmailB2C, queue.QueueYahoo, queue.QueueOther}
	}

	pool := worker.NewPool(worker.Config{
		Queues:      queues,
		Consumer:    broker,
		Producer:    broker,
		Pipeline:    pl,
		Store:       db,
		Throttle:    bucket,
		Webhook:     notifier,
		Concurrency: cfg.Worker.Concurrency,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	<-quit
	log.Println("shutdown signal received, draining in-flight jobs...")
	cancel()

	select {
	case <-done:
		log.Println("worker pool drained cleanly")
	case <-time.After(30 * time.Second):
		log.Println("drain timeout exceeded, exiting anyway")
	}
}

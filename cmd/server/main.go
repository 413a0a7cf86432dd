package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cataloghandler "cpdtrack/internal/catalog/handler"
	catalogservice "cpdtrack/internal/catalog/service"
	mappingstore "cpdtrack/internal/catalog/store/mapping"
	"cpdtrack/internal/completion/ports"
	completionservice "cpdtrack/internal/completion/service"
	credhandler "cpdtrack/internal/credential/handler"
	credmetrics "cpdtrack/internal/credential/metrics"
	credservice "cpdtrack/internal/credential/service"
	credentialstore "cpdtrack/internal/credential/store/credential"
	rulepackstore "cpdtrack/internal/credential/store/rulepack"
	usercredentialstore "cpdtrack/internal/credential/store/usercredential"
	"cpdtrack/internal/events"
	issuancehandler "cpdtrack/internal/issuance/handler"
	issmetrics "cpdtrack/internal/issuance/metrics"
	issuanceservice "cpdtrack/internal/issuance/service"
	certificatestore "cpdtrack/internal/issuance/store/certificate"
	"cpdtrack/internal/platform/config"
	"cpdtrack/internal/platform/httpserver"
	"cpdtrack/internal/platform/kafka"
	"cpdtrack/internal/platform/logger"
	"cpdtrack/internal/platform/metrics"
	"cpdtrack/internal/platform/middleware"
	platformredis "cpdtrack/internal/platform/redis"
	progresshandler "cpdtrack/internal/progress/handler"
	progressservice "cpdtrack/internal/progress/service"
	recordshandler "cpdtrack/internal/records/handler"
	recmetrics "cpdtrack/internal/records/metrics"
	recordsservice "cpdtrack/internal/records/service"
	allocationstore "cpdtrack/internal/records/store/allocation"
	recordstore "cpdtrack/internal/records/store/record"
	"cpdtrack/internal/storage"
	httptransport "cpdtrack/internal/transport/http"
	audit "cpdtrack/pkg/platform/audit"
	auditmem "cpdtrack/pkg/platform/audit/store/memory"
	auditpg "cpdtrack/pkg/platform/audit/store/postgres"
	"cpdtrack/pkg/platform/audit/publisher"
	"cpdtrack/pkg/platform/tx"
)

// holdingStore is the full user credential store surface main wires; the
// credential service and the progress aggregator each consume a slice of it.
type holdingStore interface {
	credservice.HoldingStore
	progressservice.HoldingStore
}

// fullRecordStore joins the record reads and writes every consumer needs.
type fullRecordStore interface {
	recordsservice.RecordStore
	progressservice.RecordStore
}

// fullAllocationStore joins the ledger writes with the aggregator reads and
// the cascade invoked when a holding is dropped.
type fullAllocationStore interface {
	recordsservice.AllocationStore
	progressservice.AllocationStore
	credservice.AllocationCascade
}

// main wires storage, messaging and the domain services, then runs the HTTP
// server until interrupted. Without CPD_DATABASE_URL the process runs fully
// in memory, which is the local development mode.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- storage ----
	var (
		credentials credservice.CredentialStore
		packs       credservice.RulePackStore
		holdings    holdingStore
		mappings    catalogservice.Store
		records     fullRecordStore
		allocations fullAllocationStore
		certs       issuanceservice.CertificateStore
		ruleStore   ports.RuleStore
		idempotency events.IdempotencyStore
		auditStore  audit.Store
		runner      tx.Runner = tx.NopRunner{}
	)

	if cfg.DatabaseURL != "" {
		db, err := storage.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		credentials = credentialstore.NewPostgres(db)
		packs = rulepackstore.NewPostgres(db)
		holdings = usercredentialstore.NewPostgres(db)
		mappings = mappingstore.NewPostgres(db)
		records = recordstore.NewPostgres(db)
		allocations = allocationstore.NewPostgres(db)
		certs = certificatestore.NewPostgres(db)
		ruleStore = ports.NewPostgresRuleStore(db)
		idempotency = events.NewPostgresIdempotencyStore(db)
		auditStore = auditpg.New(db)
		runner = tx.NewSQLRunner(db)
	} else {
		log.Warn("CPD_DATABASE_URL not set, using in-memory stores")
		credentials = credentialstore.NewInMemory()
		packs = rulepackstore.NewInMemory()
		holdings = usercredentialstore.NewInMemory()
		mappings = mappingstore.NewInMemory()
		records = recordstore.NewInMemory()
		allocations = allocationstore.NewInMemory()
		certs = certificatestore.NewInMemory()
		ruleStore = ports.NewInMemoryRuleStore()
		idempotency = events.NewInMemoryIdempotencyStore()
		auditStore = auditmem.NewInMemoryStore()
	}

	// Quiz and evidence data arrive from adjacent subsystems; until their
	// read APIs are wired the in-process views serve.
	quizzes := ports.NewInMemoryQuizSource()
	evidence := ports.NewInMemoryEvidenceCounter()

	// ---- messaging & audit ----
	publisherOpts := []publisher.Option{publisher.WithLogger(log), publisher.WithAsyncBuffer(256)}
	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		producer = p
		defer producer.Close()
		if err := kafka.EnsureTopics(ctx, producer.Client()); err != nil {
			log.Error("failed to ensure kafka topics", "error", err)
			os.Exit(1)
		}
		publisherOpts = append(publisherOpts, publisher.WithSink(kafka.NewAuditSink(producer)))
	}
	auditPub := publisher.NewPublisher(auditStore, publisherOpts...)
	defer auditPub.Close()

	// ---- services ----
	credOpts := []credservice.Option{
		credservice.WithLogger(log),
		credservice.WithMetrics(credmetrics.New()),
		credservice.WithAuditPublisher(auditPub),
		credservice.WithHoldingStore(holdings),
		credservice.WithAllocationCascade(allocations),
	}
	if cfg.RedisURL != "" {
		rdb, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		if rdb != nil {
			defer rdb.Close()
			credOpts = append(credOpts, credservice.WithCache(credservice.NewRedisCache(rdb.Client, log)))
		}
	}
	credSvc, err := credservice.New(credentials, packs, credOpts...)
	if err != nil {
		fatal(log, "credential service", err)
	}

	catalogSvc, err := catalogservice.New(mappings, catalogservice.WithLogger(log))
	if err != nil {
		fatal(log, "catalog service", err)
	}

	recordsSvc, err := recordsservice.New(records, allocations, holdings,
		recordsservice.WithLogger(log),
		recordsservice.WithMetrics(recmetrics.New()),
		recordsservice.WithAuditPublisher(auditPub),
		recordsservice.WithTxRunner(runner),
	)
	if err != nil {
		fatal(log, "records service", err)
	}

	completionSvc, err := completionservice.New(records, ruleStore, quizzes, evidence,
		completionservice.WithLogger(log),
		completionservice.WithAuditPublisher(auditPub),
	)
	if err != nil {
		fatal(log, "completion service", err)
	}

	issuanceSvc, err := issuanceservice.New(certs, completionSvc, records,
		issuanceservice.WithLogger(log),
		issuanceservice.WithMetrics(issmetrics.New()),
		issuanceservice.WithAuditPublisher(auditPub),
		issuanceservice.WithTxRunner(runner),
		issuanceservice.WithQuizSource(quizzes),
		issuanceservice.WithVerificationBaseURL(cfg.VerificationBaseURL),
	)
	if err != nil {
		fatal(log, "issuance service", err)
	}

	progressSvc, err := progressservice.New(holdings, credSvc, records, allocations,
		progressservice.WithLogger(log),
	)
	if err != nil {
		fatal(log, "progress service", err)
	}

	// ---- provider event consumer ----
	if len(cfg.KafkaBrokers) > 0 {
		handler, err := events.NewHandler(idempotency, issuanceSvc,
			events.WithLogger(log),
			events.WithAuditPublisher(auditPub),
		)
		if err != nil {
			fatal(log, "provider event handler", err)
		}
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, "cpdtrack-engine", []string{kafka.TopicProviderEvents}, handler, log)
		if err != nil {
			fatal(log, "provider event consumer", err)
		}
		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("provider event consumer stopped", "error", err)
			}
		}()
	}

	// ---- http ----
	router := httptransport.NewRouter(httptransport.Handlers{
		Credentials:  credhandler.New(credSvc, log),
		Catalog:      cataloghandler.New(catalogSvc, log),
		Records:      recordshandler.New(recordsSvc, completionSvc, log),
		Issuance:     issuancehandler.New(issuanceSvc, log),
		Progress:     progresshandler.New(progressSvc, log),
		JWTValidator: middleware.NewHMACValidator(cfg.JWTSigningKey),
	}, log, metrics.New())

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("starting cpdtrack engine", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

func fatal(log *slog.Logger, what string, err error) {
	log.Error("failed to build "+what, "error", err)
	os.Exit(1)
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/cheya01/facial-recog-poc-server/internal/audit"
	auditkafka "github.com/cheya01/facial-recog-poc-server/internal/audit/kafka"
	"github.com/cheya01/facial-recog-poc-server/internal/blob"
	blobcache "github.com/cheya01/facial-recog-poc-server/internal/blob/cache"
	blobcloudinary "github.com/cheya01/facial-recog-poc-server/internal/blob/cloudinary"
	blobmemory "github.com/cheya01/facial-recog-poc-server/internal/blob/memory"
	blobs3 "github.com/cheya01/facial-recog-poc-server/internal/blob/s3"
	httpapi "github.com/cheya01/facial-recog-poc-server/internal/http"
	"github.com/cheya01/facial-recog-poc-server/internal/platform/config"
	"github.com/cheya01/facial-recog-poc-server/internal/platform/mongodb"
	"github.com/cheya01/facial-recog-poc-server/internal/platform/postgres"
	"github.com/cheya01/facial-recog-poc-server/internal/platform/redis"
	"github.com/cheya01/facial-recog-poc-server/internal/visitor/service"
	visitormemory "github.com/cheya01/facial-recog-poc-server/internal/visitor/store/memory"
	visitormongo "github.com/cheya01/facial-recog-poc-server/internal/visitor/store/mongo"
	visitorpg "github.com/cheya01/facial-recog-poc-server/internal/visitor/store/postgres"
)

// dependencies holds the infrastructure chosen by configuration plus the
// cleanups to run on shutdown, in reverse order of acquisition.
type dependencies struct {
	visitors       service.VisitorStore
	blobs          blob.Store
	auditPublisher *audit.Publisher
	auditWorker    *audit.Worker
	healthChecks   map[string]httpapi.HealthChecker
	closers        []func() error
}

func (d *dependencies) close(log *slog.Logger) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			log.Warn("failed to release dependency", "error", err)
		}
	}
}

func buildDependencies(ctx context.Context, cfg config.Config, log *slog.Logger) (*dependencies, error) {
	d := &dependencies{healthChecks: make(map[string]httpapi.HealthChecker)}

	visitors, err := d.visitorStore(ctx, cfg.Storage)
	if err != nil {
		d.close(log)
		return nil, err
	}
	d.visitors = visitors

	blobs, err := d.blobStore(ctx, cfg, log)
	if err != nil {
		d.close(log)
		return nil, err
	}
	d.blobs = blobs

	if err := d.audit(cfg.Audit, log); err != nil {
		d.close(log)
		return nil, err
	}
	return d, nil
}

func (d *dependencies) visitorStore(ctx context.Context, cfg config.Storage) (service.VisitorStore, error) {
	switch cfg.Backend {
	case "mongo":
		client, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, func() error { return client.Close(context.Background()) })
		d.healthChecks["mongo"] = client

		store := visitormongo.New(client.DB)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		db, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, db.Close)
		d.healthChecks["postgres"] = httpapi.HealthCheckFunc(db.PingContext)
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, err
		}
		return visitorpg.New(db), nil
	case "memory":
		return visitormemory.New(), nil
	default:
		return nil, fmt.Errorf("unknown VISITOR_STORE %q", cfg.Backend)
	}
}

func (d *dependencies) blobStore(ctx context.Context, cfg config.Config, log *slog.Logger) (blob.Store, error) {
	var store blob.Store
	switch cfg.Blob.Backend {
	case "s3":
		s, err := blobs3.New(ctx, cfg.Blob)
		if err != nil {
			return nil, err
		}
		store = s
	case "cloudinary":
		s, err := blobcloudinary.New(cfg.Blob.CloudinaryURL)
		if err != nil {
			return nil, err
		}
		store = s
	case "memory":
		store = blobmemory.NewInMemory()
	default:
		return nil, fmt.Errorf("unknown BLOB_BACKEND %q", cfg.Blob.Backend)
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rdb == nil {
		return store, nil
	}
	d.closers = append(d.closers, rdb.Close)
	d.healthChecks["redis"] = rdb
	log.Info("reference image cache enabled", "ttl", cfg.Blob.CacheTTL)
	return blobcache.New(store, rdb.Client, cfg.Blob.CacheTTL, log), nil
}

func (d *dependencies) audit(cfg config.Audit, log *slog.Logger) error {
	d.auditPublisher = audit.NewPublisher(audit.WithLogger(log))

	var sink audit.Store
	if len(cfg.KafkaBrokers) > 0 {
		store, client, err := auditkafka.New(cfg.KafkaBrokers, cfg.Topic)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, closeKafka(client))
		d.healthChecks["kafka"] = httpapi.HealthCheckFunc(client.Ping)
		sink = store
		log.Info("publishing audit events to kafka", "topic", cfg.Topic)
	} else {
		sink = audit.NewInMemoryStore(audit.WithCapacity(cfg.MemoryCapacity))
		log.Info("keeping recent audit events in memory", "capacity", cfg.MemoryCapacity)
	}
	d.auditWorker = audit.NewWorker(sink, d.auditPublisher.Inbox(), log)
	return nil
}

func closeKafka(client *kgo.Client) func() error {
	return func() error {
		client.Close()
		return nil
	}
}

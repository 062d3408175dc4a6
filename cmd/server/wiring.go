package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"parish/internal/audit"
	"parish/internal/duty"
	"parish/internal/duty/checker"
	dutymetrics "parish/internal/duty/metrics"
	dutyservice "parish/internal/duty/service"
	entrystore "parish/internal/duty/store/entry"
	"parish/internal/family"
	familymetrics "parish/internal/family/metrics"
	familyservice "parish/internal/family/service"
	familystore "parish/internal/family/store/family"
	invitationstore "parish/internal/family/store/invitation"
	memberstore "parish/internal/family/store/member"
	"parish/internal/notification"
	"parish/internal/notification/email"
	"parish/internal/notification/events"
	"parish/internal/notification/inbox"
	notificationmetrics "parish/internal/notification/metrics"
	"parish/internal/platform/config"
	"parish/internal/platform/metrics"
	"parish/internal/platform/postgres"
	"parish/internal/platform/redis"
	"parish/internal/users"
	userservice "parish/internal/users/service"
	userstore "parish/internal/users/store/user"
)

// app holds the wired services and the resources main must release.
type app struct {
	users    *users.Service
	duties   *duty.Service
	families *family.Service
	inbox    inbox.Store
	audit    *audit.Publisher
	worker   *audit.Worker
	health   []func(context.Context) error
	closers  []func(context.Context) error
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context, logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.WarnContext(ctx, "failed to release resource", "error", err)
		}
	}
}

// storeSet is either the in-memory or the postgres flavour of every store.
type storeSet struct {
	users       userservice.Store
	entries     dutyservice.Store
	families    familyservice.FamilyStore
	invitations familyservice.InvitationStore
	members     familyservice.MemberStore
	audit       audit.Store
	dutyTx      dutyservice.EntryStoreTx
	familyTx    familyservice.StoresTx
}

func memoryStores() storeSet {
	return storeSet{
		users:       userstore.NewInMemoryStore(),
		entries:     entrystore.NewInMemoryStore(),
		families:    familystore.NewInMemoryStore(),
		invitations: invitationstore.NewInMemoryStore(),
		members:     memberstore.NewInMemoryStore(),
		audit:       audit.NewMemoryStore(),
	}
}

func postgresStores(db *sqlx.DB, cfg config.Server) storeSet {
	return storeSet{
		users:       userstore.NewPostgres(db),
		entries:     entrystore.NewPostgres(db),
		families:    familystore.NewPostgres(db),
		invitations: invitationstore.NewPostgres(db),
		members:     memberstore.NewPostgres(db),
		audit:       audit.NewPostgresStore(db),
		dutyTx:      newDutyPostgresTx(db, cfg.TxTimeout),
		familyTx:    newFamilyPostgresTx(db, cfg.TxTimeout),
	}
}

func build(ctx context.Context, cfg config.Server, logger *slog.Logger, reg *metrics.Metrics) (*app, error) {
	a := &app{}

	stores := memoryStores()
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		a.health = append(a.health, db.PingContext)
		if !cfg.IsProduction() {
			if err := postgres.Migrate(ctx, db, logger); err != nil {
				a.close(ctx, logger)
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		stores = postgresStores(db, cfg)
		logger.InfoContext(ctx, "using postgres stores", "driver", cfg.Database.Driver)
	} else {
		logger.InfoContext(ctx, "using in-memory stores")
	}

	var publisherOpts []audit.PublisherOption
	publisherOpts = append(publisherOpts, audit.WithPublisherLogger(logger))
	if cfg.AuditAsync {
		queue := make(chan audit.Event, cfg.AuditBuffer)
		publisherOpts = append(publisherOpts, audit.WithQueue(queue))
		a.worker = audit.NewWorker(stores.audit, queue, logger)
	}
	a.audit = audit.NewPublisher(stores.audit, publisherOpts...)

	dispatcher, err := a.notifications(ctx, cfg, logger, reg)
	if err != nil {
		a.close(ctx, logger)
		return nil, err
	}

	a.users = users.NewService(stores.users,
		userservice.WithLogger(logger),
		userservice.WithAuditPublisher(a.audit),
	)

	mode, err := checker.ParseMode(cfg.Duty.OverlapMode)
	if err != nil {
		a.close(ctx, logger)
		return nil, err
	}
	dutyOpts := []dutyservice.Option{
		dutyservice.WithLogger(logger),
		dutyservice.WithAuditPublisher(a.audit),
		dutyservice.WithNotifier(dispatcher),
		dutyservice.WithMetrics(dutymetrics.New(reg.Registerer())),
		dutyservice.WithPolicy(checker.Policy{Window: cfg.Duty.OverlapWindow, Mode: mode}),
		dutyservice.WithLocation(cfg.Location()),
	}
	if stores.dutyTx != nil {
		dutyOpts = append(dutyOpts, dutyservice.WithTx(stores.dutyTx))
	}
	a.duties = duty.NewService(stores.entries, stores.users, dutyOpts...)

	familyOpts := []familyservice.Option{
		familyservice.WithLogger(logger),
		familyservice.WithAuditPublisher(a.audit),
		familyservice.WithNotifier(dispatcher),
		familyservice.WithMetrics(familymetrics.New(reg.Registerer())),
	}
	if stores.familyTx != nil {
		familyOpts = append(familyOpts, familyservice.WithTx(stores.familyTx))
	}
	a.families = family.NewService(familyservice.Stores{
		Families:    stores.families,
		Invitations: stores.invitations,
		Members:     stores.members,
		Users:       stores.users,
	}, familyOpts...)

	return a, nil
}

// notifications builds the dispatcher and the inbox store the API reads.
func (a *app) notifications(ctx context.Context, cfg config.Server, logger *slog.Logger, reg *metrics.Metrics) (*notification.Dispatcher, error) {
	opts := []notification.Option{
		notification.WithLogger(logger),
		notification.WithMetrics(notificationmetrics.New(reg.Registerer())),
		notification.WithChannel(email.NewSender(cfg.SMTP, logger)),
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		a.health = append(a.health, rdb.Health)
		a.inbox = inbox.NewRedisStore(rdb.Client, cfg.Redis.InboxCap)
	} else {
		a.inbox = inbox.NewInMemoryStore(int(cfg.Redis.InboxCap))
	}
	opts = append(opts, notification.WithChannel(inbox.NewChannel(a.inbox)))

	publisher, err := events.NewPublisher(cfg.Kafka, logger)
	if err != nil {
		return nil, err
	}
	if publisher != nil {
		a.closers = append(a.closers, publisher.Close)
		opts = append(opts, notification.WithChannel(publisher))
	}
	return notification.NewDispatcher(opts...), nil
}

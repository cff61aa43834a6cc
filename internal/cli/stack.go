package cli

import (
	"context"
	"errors"
	"fmt"

	app "github.com/erp/replicator/internal/application/replication"
	"github.com/erp/replicator/internal/domain/replication"
	"github.com/erp/replicator/internal/infrastructure/config"
	"github.com/erp/replicator/internal/infrastructure/logger"
	"github.com/erp/replicator/internal/infrastructure/persistence"
	"github.com/erp/replicator/internal/infrastructure/servicelayer"
	"github.com/erp/replicator/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// stack is the shared setup every command starts from
type stack struct {
	cfg    *config.Config
	log    *zap.Logger
	tracer *telemetry.TracerProvider
	meter  *telemetry.MeterProvider
	logs   *telemetry.LoggerProvider
}

func newStack(ctx context.Context, opts *RootOptions) (*stack, error) {
	cfg, err := config.LoadFile(opts.ConfigFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.Version != "" && cfg.App.Version == "" {
		cfg.App.Version = opts.Version
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize logger", err)
	}

	rt := &stack{cfg: cfg, log: log}
	t := cfg.Telemetry

	rt.tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           t.Enabled,
		CollectorEndpoint: t.CollectorEndpoint,
		SamplingRatio:     t.SamplingRatio,
		ServiceName:       t.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize tracing", err)
	}

	rt.meter, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           t.MetricsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ExportInterval:    t.MetricsInterval,
		ServiceName:       t.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		_ = rt.close(ctx)
		return nil, WrapExitError(ExitCommandError, "failed to initialize metrics", err)
	}

	rt.logs, err = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           t.LogsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ServiceName:       t.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		_ = rt.close(ctx)
		return nil, WrapExitError(ExitCommandError, "failed to initialize log export", err)
	}
	rt.log = telemetry.Bridge(log, t.ServiceName, rt.logs, logger.ParseLevel(cfg.Log.Level))

	return rt, nil
}

// close flushes telemetry and the logger
func (rt *stack) close(ctx context.Context) error {
	var errs []error
	if rt.logs != nil {
		errs = append(errs, rt.logs.Shutdown(ctx))
	}
	if rt.meter != nil {
		errs = append(errs, rt.meter.Shutdown(ctx))
	}
	if rt.tracer != nil {
		errs = append(errs, rt.tracer.Shutdown(ctx))
	}
	_ = rt.log.Sync()
	return errors.Join(errs...)
}

// connector picks the host adapter for a descriptor: a local store for sqlite:// and postgres://
// descriptors, the Service Layer otherwise
func (rt *stack) connector(descriptor string) replication.Connector {
	if persistence.IsStoreDescriptor(descriptor) {
		return persistence.NewConnector(rt.storeConfig(), rt.log)
	}
	return servicelayer.NewConnector(servicelayer.Config{
		Timeout:            rt.cfg.ServiceLayer.Timeout,
		InsecureSkipVerify: rt.cfg.ServiceLayer.InsecureSkipVerify,
		LoginAttempts:      rt.cfg.ServiceLayer.LoginAttempts,
	}, rt.log)
}

func (rt *stack) storeConfig() persistence.ConnectorConfig {
	t := rt.cfg.Telemetry
	tracing := telemetry.DefaultDBTracingConfig()
	tracing.Enabled = t.DBTraceEnabled
	tracing.LogFullSQL = t.DBLogFullSQL
	if t.DBSlowQueryThresh > 0 {
		tracing.SlowQueryThresh = t.DBSlowQueryThresh
	}
	return persistence.ConnectorConfig{
		Database: rt.cfg.Database,
		Tracing:  tracing,
		LogLevel: rt.cfg.Log.Level,
	}
}

// connect attaches to the host. A failure is reported and exits with ExitCommandError.
func (rt *stack) connect(ctx context.Context, descriptor string) (replication.Session, error) {
	session, err := rt.connector(descriptor).Connect(ctx, descriptor)
	if err != nil {
		rt.log.Error("failed to connect", zap.Error(err))
		return nil, WrapExitError(ExitCommandError, "failed to connect", err)
	}
	return session, nil
}

// pipeline wires the replication service and the host event handler onto a session
type pipeline struct {
	service *app.Service
	handler *app.EventHandler
}

func (rt *stack) newPipeline(session replication.Session, notifier replication.Notifier) (*pipeline, error) {
	r := rt.cfg.Replication
	api := session.DataAPI()

	service := app.NewService(
		replication.NewGuard(),
		app.NewDocumentFetcher(api, rt.log),
		app.NewPersistenceCommitter(api, rt.log),
		app.NewNotifyingReporter(notifier, r.DerivedLabel, rt.log),
		app.ServiceConfig{
			SourceKind: replication.DocumentKind(r.SourceKind),
			Mapper:     replication.NewMapper(replication.DocumentKind(r.DerivedKind), r.SourceLabel),
		},
		rt.log,
	)

	metrics, err := telemetry.NewReplicationMetrics(telemetry.ReplicationMetricsConfig{
		Meter:  rt.meter.Meter("replicator"),
		Logger: rt.log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register replication metrics: %w", err)
	}
	service.SetMetrics(metrics)

	trigger := replication.Trigger{
		FormType:   r.TriggerFormType,
		SourceKind: replication.DocumentKind(r.SourceKind),
	}
	return &pipeline{
		service: service,
		handler: app.NewEventHandler(trigger, service, rt.log),
	}, nil
}

// closeSession closes the host session, logging any error
func (rt *stack) closeSession(session replication.Session) {
	if err := session.Close(); err != nil {
		rt.log.Error("error closing session", zap.Error(err))
		return
	}
	rt.log.Info("disconnected")
}

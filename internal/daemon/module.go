// Package daemon composes the bot's subsystems into one fx application.
package daemon

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"lingozap/internal/ai"
	"lingozap/internal/authstate"
	"lingozap/internal/blobstore"
	"lingozap/internal/bus"
	"lingozap/internal/config"
	"lingozap/internal/conn"
	"lingozap/internal/engine"
	"lingozap/internal/health"
	"lingozap/internal/logging"
	"lingozap/internal/profile"
	"lingozap/internal/wa"
)

// Params holds the resolved startup options passed to the fx module.
type Params struct {
	ConfigPath string
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideMongo,
			provideAuthState,
			provideProfiles,
			provideBackend,
			provideAdapter,
			provideEngine,
			provideSupervisor,
			provideHealthServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	cfg, err := config.Load(p.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogPath, cfg.BotName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *conn.Machine {
	return conn.NewMachine(b)
}

func provideMongo(cfg *config.Config, logger *zap.Logger) (*mongo.Client, error) {
	logger.Info("connecting to MongoDB", zap.String("database", cfg.MongoDatabase))
	return blobstore.Dial(context.Background(), cfg.MongoURI)
}

func provideAuthState(client *mongo.Client, cfg *config.Config, logger *zap.Logger) (*authstate.Adapter, error) {
	store := blobstore.NewMongo(client.Database(cfg.MongoDatabase), "authstate")
	adapter := authstate.NewAdapter(store, logger)
	if err := adapter.Init(context.Background()); err != nil {
		return nil, err
	}
	return adapter, nil
}

func provideProfiles(client *mongo.Client, cfg *config.Config) (profile.Repository, error) {
	return profile.NewMongoRepository(context.Background(), client.Database(cfg.MongoDatabase), "users")
}

func provideBackend(cfg *config.Config, logger *zap.Logger) ai.Backend {
	return ai.NewOpenAI(cfg.OpenAIKey, cfg.ChatModel, cfg.SpeechModel, cfg.SpeechVoice, cfg.BackendTimeout, logger)
}

func provideAdapter(auth *authstate.Adapter, logger *zap.Logger) (*wa.Adapter, error) {
	return wa.NewAdapter(context.Background(), auth, logger)
}

func provideEngine(repo profile.Repository, backend ai.Backend, adapter *wa.Adapter, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *engine.Engine {
	return engine.New(repo, backend, adapter, b, cfg.MirrorMode, logger)
}

func provideSupervisor(adapter *wa.Adapter, machine *conn.Machine, auth *authstate.Adapter, cfg *config.Config, logger *zap.Logger) *conn.Supervisor {
	return conn.NewSupervisor(adapter, machine, auth, cfg.ReconnectDelay, logger)
}

func provideHealthServer(cfg *config.Config, machine *conn.Machine, adapter *wa.Adapter, logger *zap.Logger) *health.Server {
	return health.New(cfg.HTTPAddr, machine, adapter.Paired, logger)
}

func registerLifecycle(lc fx.Lifecycle, cfg *config.Config, adapter *wa.Adapter, supervisor *conn.Supervisor, eng *engine.Engine, srv *health.Server, client *mongo.Client, logger *zap.Logger) {
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			handler := wa.NewEventHandler(runCtx, adapter, supervisor, eng, cfg.MirrorMode, logger)
			adapter.RegisterEventHandler(handler.Handle)

			srv.Start()

			// An unpaired device needs the QR channel open before the
			// first connect, so rotating challenges reach the supervisor.
			if !adapter.Paired() {
				qrCh, err := adapter.GetQRChannel(runCtx)
				if err != nil {
					return err
				}
				go func() {
					for item := range qrCh {
						switch item.Event {
						case "code":
							supervisor.HandleQR(item.Code)
						case "success":
							logger.Info("pairing complete")
						default:
							logger.Warn("pairing ended", zap.String("event", item.Event))
						}
					}
				}()
			}

			go supervisor.Start(runCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			supervisor.Stop()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("health server shutdown", zap.Error(err))
			}
			if err := client.Disconnect(ctx); err != nil {
				logger.Warn("mongo disconnect", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

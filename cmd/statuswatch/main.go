package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/statuswatch/internal/changelog"
	"github.com/dropDatabas3/statuswatch/internal/config"
	"github.com/dropDatabas3/statuswatch/internal/engine"
	httpserver "github.com/dropDatabas3/statuswatch/internal/http"
	"github.com/dropDatabas3/statuswatch/internal/ingest"
	"github.com/dropDatabas3/statuswatch/internal/observability/logger"
	"github.com/dropDatabas3/statuswatch/internal/push"
	"github.com/dropDatabas3/statuswatch/internal/registry"
	"github.com/dropDatabas3/statuswatch/internal/status"
	"github.com/dropDatabas3/statuswatch/internal/store"
)

// wiring agrupa todo lo que arma boot().
type wiring struct {
	cfg         *config.Config
	kv          store.KV
	registry    *registry.Registry
	dispatcher  *push.Dispatcher
	engine      *engine.Engine
	changelog   *changelog.Store
	coordinator *engine.Coordinator
}

// boot carga config, inicializa logger y conecta el store y los componentes.
func boot(cfgPath string) (*wiring, error) {
	// .env es opcional; si no existe seguimos con el entorno del proceso
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "statuswatch"})

	kv, err := store.New(store.Config{
		Kind: cfg.Store.Kind,
		Redis: store.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
		},
	})
	if err != nil {
		return nil, err
	}

	var vapid *push.VAPID
	if cfg.Push.VAPIDPrivateKey != "" {
		vapid, err = push.NewVAPID(cfg.Push.VAPIDPrivateKey, cfg.Push.Subject)
		if err != nil {
			return nil, err
		}
	}

	dispatcher := push.New(kv, push.Config{
		VAPID:   vapid,
		TTL:     cfg.Push.TTL,
		Timeout: cfg.Push.Timeout,
	})

	st := status.New(kv)
	cl := changelog.New(kv)
	eng := engine.New(st, cl)

	return &wiring{
		cfg:         cfg,
		kv:          kv,
		registry:    registry.New(kv, dispatcher),
		dispatcher:  dispatcher,
		engine:      eng,
		changelog:   cl,
		coordinator: engine.NewCoordinator(dispatcher),
	}, nil
}

func serveCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servicio HTTP y el poller de ingest",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := boot(cfgPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer w.kv.Close()
			log := logger.Named("main")

			api := &httpserver.API{
				Registry:    w.registry,
				Dispatcher:  w.dispatcher,
				Engine:      w.engine,
				Coordinator: w.coordinator,
				KV:          w.kv,
			}
			handler := httpserver.NewRouter(api, httpserver.RouterConfig{
				CORSAllowedOrigins: w.cfg.Server.CORSAllowedOrigins,
			})
			srv := httpserver.NewServer(w.cfg.Server.Addr, handler)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if w.cfg.Ingest.URL != "" {
				poller := ingest.New(ingest.Config{
					URL:      w.cfg.Ingest.URL,
					Interval: w.cfg.Ingest.Interval,
					Timeout:  w.cfg.Ingest.Timeout,
				}, w.engine, w.coordinator)
				go func() { _ = poller.Run(ctx) }()
				log.Info("ingest poller started", logger.Op("serve"))
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()
			log.Info("http server listening", logger.Path(w.cfg.Server.Addr))

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "config.yaml", "ruta del YAML de configuración")
	return cmd
}

func pollCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Corre una pasada de ingest y termina",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := boot(cfgPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer w.kv.Close()

			if w.cfg.Ingest.URL == "" {
				return fmt.Errorf("poll: INGEST_URL no configurada")
			}
			poller := ingest.New(ingest.Config{
				URL:     w.cfg.Ingest.URL,
				Timeout: w.cfg.Ingest.Timeout,
			}, w.engine, w.coordinator)
			return poller.RunOnce(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "config.yaml", "ruta del YAML de configuración")
	return cmd
}

func changelogCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Vuelca el changelog completo (ordenado por timestamp) a stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := boot(cfgPath)
			if err != nil {
				return err
			}
			defer w.kv.Close()

			entries, err := w.changelog.ReadAll(cmd.Context())
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(entries))
			for k := range entries {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			for _, k := range keys {
				if err := enc.Encode(map[string]any{"at": k, "entry": entries[k]}); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "config.yaml", "ruta del YAML de configuración")
	return cmd
}

func vapidKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid-keygen",
		Short: "Genera un par de claves VAPID (P-256) en base64url",
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, pub, err := push.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			fmt.Printf("VAPID_PRIVATE_KEY=%s\nVAPID_PUBLIC_KEY=%s\n", priv, pub)
			return nil
		},
	}
}

func main() {
	root := &cobra.Command{
		Use:   "statuswatch",
		Short: "Tracker de features con changelog y notificaciones Web Push",
	}
	root.AddCommand(serveCmd(), pollCmd(), changelogCmd(), vapidKeygenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/elevenfingers/internal/auth"
	"github.com/rickgao/elevenfingers/internal/config"
	"github.com/rickgao/elevenfingers/internal/connection"
	"github.com/rickgao/elevenfingers/internal/database"
	"github.com/rickgao/elevenfingers/internal/metrics"
	"github.com/rickgao/elevenfingers/internal/model"
	"github.com/rickgao/elevenfingers/internal/poller"
	"github.com/rickgao/elevenfingers/internal/recorder"
	"github.com/rickgao/elevenfingers/internal/router"
	"github.com/rickgao/elevenfingers/internal/store"
	"github.com/rickgao/elevenfingers/internal/version"
)

const shutdownTimeout = 10 * time.Second

type watchOptions struct {
	configPath string
	room       string
	ready      bool
	autotype   int
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Join a room and mirror the game session until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "/etc/typeclient/config.yaml", "path to config file")
	cmd.Flags().StringVar(&opts.room, "room", "", "room to join (overrides server.room)")
	cmd.Flags().BoolVar(&opts.ready, "ready", false, "mark this client ready after joining")
	cmd.Flags().IntVar(&opts.autotype, "autotype-wpm", 0, "type each game's text at this many words per minute (0 = off)")

	return cmd
}

// managerConfig maps the connection section onto the Connection Manager.
func managerConfig(cfg *config.ClientConfig, creds *auth.Credentials) connection.ManagerConfig {
	mc := connection.DefaultManagerConfig()
	c := cfg.Connection

	mc.Client.Header = creds.Header()
	mc.Client.HandshakeTimeout = c.HandshakeTimeout
	mc.Client.WriteTimeout = c.WriteTimeout
	mc.Client.PingInterval = c.PingInterval
	mc.Client.PingTimeout = c.PingTimeout
	mc.ReconnectBaseWait = c.ReconnectBaseDelay
	mc.ReconnectMaxWait = c.ReconnectMaxDelay
	mc.MaxReconnectAttempts = c.MaxReconnectAttempts

	return mc
}

func runWatch(ctx context.Context, opts watchOptions) error {
	cfg, err := config.LoadAndValidate(opts.configPath)
	if err != nil {
		return err
	}
	if opts.room != "" {
		cfg.Server.Room = opts.room
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := newLogger(level)
	logger.Info("starting typeclient", "version", version.String(), "room", cfg.Server.Room)

	creds, err := auth.LoadCredentials(cfg.Server.Token, cfg.Server.TokenFile)
	if err != nil {
		return err
	}
	if creds.Anonymous() {
		logger.Warn("no token configured, connecting anonymously")
	}
	sessionURL, err := auth.SessionURL(cfg.Server.WSURL, cfg.Server.Room, creds)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mc := metrics.New(reg)

	session := store.NewSession()
	routerOpts := []router.Option{router.WithMetrics(mc)}

	var (
		pool   *pgxpool.Pool
		rec    *recorder.Recorder
		events *router.Queue[router.GameEvent]
	)
	if cfg.Recorder.Enabled {
		pool, err = database.Connect(ctx, cfg.Recorder.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}

		events = router.NewQueue[router.GameEvent](cfg.Recorder.BatchSize)
		routerOpts = append(routerOpts, router.WithEvents(events))
		rec = recorder.New(recorder.Config{
			Room:          cfg.Server.Room,
			BatchSize:     cfg.Recorder.BatchSize,
			FlushInterval: cfg.Recorder.FlushInterval,
		}, events, pool, logger.With("component", "recorder"))
	}

	rt := router.New(session, logger.With("component", "router"), routerOpts...)
	mgr := connection.NewManager(managerConfig(cfg, creds), rt, logger.With("component", "connection"), connection.WithMetrics(mc))

	h := mgr.Connect(sessionURL)
	unsubscribe := watchSession(session, h, cfg.Server.Room, opts, logger)
	defer unsubscribe()

	if rec != nil {
		if err := rec.Start(ctx); err != nil {
			return err
		}
	}

	var poll *poller.Poller
	if cfg.Server.RoomStatusInterval > 0 {
		poll = poller.New(poller.Config{Interval: cfg.Server.RoomStatusInterval}, mgr, h, logger.With("component", "poller"))
		if err := poll.Start(ctx); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	var srv *http.Server
	if cfg.Metrics.Enabled {
		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           newStatusHandler(session, mgr, cfg.Metrics.Path, reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("status server listening", "addr", srv.Addr, "metrics_path", cfg.Metrics.Path)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if srv != nil {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		if poll != nil {
			errs = append(errs, poll.Stop(shutdownCtx))
		}
		errs = append(errs, mgr.Shutdown(shutdownCtx))
		if rec != nil {
			errs = append(errs, rec.Stop(shutdownCtx))
			stats := rec.Stats()
			logger.Info("recorder stopped",
				"games", stats.Games,
				"placements", stats.Placements,
				"inserts", stats.Inserts,
				"conflicts", stats.Conflicts,
				"errors", stats.Errors,
			)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	stats := mgr.Stats()
	logger.Info("typeclient stopped",
		"connect_attempts", stats.ConnectAttempts,
		"reconnects", stats.ReconnectsScheduled,
		"send_failures", stats.SendFailures,
	)
	return nil
}

// watchSession joins the room whenever the socket opens and logs session
// changes. Subscribers run on the manager's event loop, so anything slow is
// handed to a goroutine.
func watchSession(s *store.Session, h connection.Handle, room string, opts watchOptions, logger *slog.Logger) func() {
	t := newTypist(h, opts.autotype, logger.With("component", "typist"))

	unsubs := []func(){
		s.Status.Subscribe(func(st model.ConnectionStatus) {
			logger.Info("connection status", "status", st)
			if st != model.StatusConnected {
				t.stop()
				return
			}
			if err := h.Send(router.JoinRoom(room)); err != nil {
				logger.Warn("join failed", "room", room, "error", err)
				return
			}
			if opts.ready {
				if err := h.Send(router.Ready()); err != nil {
					logger.Warn("ready failed", "error", err)
				}
			}
		}),
		s.Players.Subscribe(func(r model.Roster) {
			logger.Info("roster updated", "players", len(r))
		}),
		s.Game.Subscribe(func(g *model.GameSnapshot) {
			if g == nil {
				return
			}
			logger.Info("game started", "words", g.WordCount())
			t.start(g.Text)
		}),
		s.Rankings.Subscribe(func(r model.Rankings) {
			logger.Info("rankings updated", "finished", len(r))
		}),
		s.GameOver.Subscribe(func(over bool) {
			if over {
				logger.Info("game over")
				t.stop()
			}
		}),
	}

	return func() {
		for _, u := range unsubs {
			u()
		}
		t.stop()
	}
}

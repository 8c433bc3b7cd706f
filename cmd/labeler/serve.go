package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tropicly/labeler/internal/config"
	"github.com/tropicly/labeler/internal/geo"
	"github.com/tropicly/labeler/internal/influx"
	"github.com/tropicly/labeler/internal/keys"
	"github.com/tropicly/labeler/internal/mapview"
	"github.com/tropicly/labeler/internal/metrics"
	"github.com/tropicly/labeler/internal/monitor"
	"github.com/tropicly/labeler/internal/navigator"
	"github.com/tropicly/labeler/internal/samplecsv"
	"github.com/tropicly/labeler/internal/server"
)

var (
	serveAddress string
	serveCenter  string
)

var serveCmd = &cobra.Command{
	Use:   "serve [file]",
	Short: "Start the labeling web page",
	Long: `Starts the local web server. Open the printed address in a browser, load a
sample CSV and step through it with the configured keys. A file given on the
command line is loaded on start.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "Listen address (overrides server.address)")
	serveCmd.Flags().StringVar(&serveCenter, "center", "", `Initial map center as "lat,lng" (overrides map.centerLat/centerLng)`)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	csvOpts, err := csvOptions()
	if err != nil {
		return err
	}
	mapCfg, err := mapConfig()
	if err != nil {
		return err
	}

	hub := mapview.NewHub(Logger)
	defer hub.Close()

	recorder, err := metrics.NewRecorder(nil)
	if err != nil {
		return err
	}

	nav := navigator.New(navigator.Dependencies{
		Map:     hub,
		Display: hub,
		Logger:  Logger,
		Observers: []navigator.Observer{
			hub,
			recorder,
			navigator.ObserverFunc(func(e navigator.Event) {
				Session.Update(e.FileName, e.Cursor, e.Total)
			}),
		},
	})

	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		backupPath := filepath.Join(config.GetString("logsDir"), "influx_backup.log.gz")
		im := influx.NewManager(SlogManager.Zerolog("influx"), influxCfg, backupPath)
		if err := im.Connect(ctx); err != nil {
			Logger.Warn("InfluxDB reporting disabled", "error", err)
		} else {
			nav.Subscribe(im)
			defer im.Close()
		}
	}

	storageCfg := config.GetStorageConfig()
	backend, err := initStorage(storageCfg)
	if err != nil {
		return err
	}
	if backend != nil {
		defer backend.Close()
	}

	if len(args) == 1 {
		if err := preload(nav, args[0], csvOpts); err != nil {
			return err
		}
	}

	serverCfg := config.GetServerConfig()
	if serveAddress != "" {
		serverCfg.Address = serveAddress
	}
	keysCfg := config.GetKeysConfig()

	srv, err := server.New(server.Dependencies{
		Navigator: nav,
		Keymap:    keys.New(keysCfg.Next, keysCfg.Previous),
		Display:   hub,
		Storage:   backend,
		Autosave:  storageCfg.Autosave,
		CSV:       csvOpts,
		Server:    serverCfg,
		Map:       mapCfg,
		Logger:    Logger,
	})
	if err != nil {
		return err
	}

	if monCfg := config.GetMonitorConfig(); monCfg.Enabled {
		mon := monitor.NewService(monitor.Dependencies{
			LogManager: SlogManager,
			Status: func() monitor.Status {
				p := srv.Progress()
				return monitor.Status{
					FileName:  p.FileName,
					Cursor:    p.Cursor,
					Total:     p.Total,
					Labeled:   p.Labeled,
					Validated: p.Validated,
					Clients:   hub.Clients(),
				}
			},
			Interval:   monCfg.Interval,
			StatusFile: filepath.Join(config.GetString("logsDir"), "status.json"),
		})
		if err := mon.Start(); err != nil {
			Logger.Warn("Status monitor not started", "error", err)
		} else {
			defer mon.Stop()
		}
	}

	go announce(ctx, cmd, srv)
	return srv.Start(ctx)
}

// mapConfig returns the map section with --center applied.
func mapConfig() (config.MapConfig, error) {
	cfg := config.GetMapConfig()
	if serveCenter == "" {
		return cfg, nil
	}
	c, err := geo.CoordinateFromString(serveCenter)
	if err != nil {
		return cfg, fmt.Errorf("invalid --center %q: %w", serveCenter, err)
	}
	cfg.CenterLat, cfg.CenterLng = c.Lat, c.Lng
	return cfg, nil
}

func announce(ctx context.Context, cmd *cobra.Command, srv *server.Server) {
	addr := srv.Addr()
	if addr == nil {
		return
	}
	select {
	case <-ctx.Done():
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Labeler running at http://%s (Ctrl+C to stop)\n", addr)
	}
}

func preload(nav *navigator.Navigator, path string, opts samplecsv.Options) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	opts.Logger = Logger.With("file", path)
	set, err := samplecsv.Decode(f, opts)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	nav.Load(set, filepath.Base(path))
	Logger.Info("Loaded sample file", "file", path, "samples", set.Len())
	return nil
}

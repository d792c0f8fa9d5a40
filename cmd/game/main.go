package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/tilestage/internal/bridge"
	"github.com/Garsondee/tilestage/internal/engine"
	"github.com/Garsondee/tilestage/internal/world"
)

func main() {
	var configPath, mapsDir, assetsDir, bridgeAddr, startMap string
	var debug, verbose bool
	var width, height int

	flag.StringVar(&configPath, "config", "game.hcl", "game config (.hcl or .json)")
	flag.StringVar(&mapsDir, "maps", "maps", "directory holding <id>.json map documents")
	flag.StringVar(&assetsDir, "assets", "assets", "directory textures and page content are read from")
	flag.StringVar(&bridgeAddr, "bridge", "", "listen address for the editor WebSocket bridge (off when empty)")
	flag.StringVar(&startMap, "map", "", "start map id, overriding the config")
	flag.BoolVar(&debug, "debug", false, "start with the debug overlays on")
	flag.BoolVar(&verbose, "v", false, "log at debug level")
	flag.IntVar(&width, "width", 1280, "window width")
	flag.IntVar(&height, "height", 720, "window height")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	cfg, err := world.LoadGameConfig(configPath, assetsDir)
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}
	if startMap != "" {
		cfg.StartMap = startMap
	}
	if debug {
		cfg.Debug = world.DebugConfig{Enabled: true, Navmesh: true, Grid: true}
	}

	g := engine.New(*cfg,
		engine.WithLogger(log),
		engine.WithStore(world.NewMapStore(mapsDir)),
		engine.WithAssets(os.DirFS(assetsDir)),
		engine.WithInput(engine.NewEbitenInput()),
		engine.WithViewport(width, height),
	)

	var srv *http.Server
	if bridgeAddr != "" {
		hub := bridge.NewHub(g, log)
		defer hub.Close()
		srv = &http.Server{Addr: bridgeAddr, Handler: hub, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("bridge listening", "addr", bridgeAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("bridge stopped", "err", err)
			}
		}()
	}

	ebiten.SetWindowTitle("Tilestage")
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	runErr := ebiten.RunGame(g)

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	if runErr != nil {
		log.Error("game exited", "err", runErr)
		os.Exit(1)
	}
}

// Command linkdripd runs the LinkDrip API server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/linkdripai/linkdrip"
	"github.com/linkdripai/linkdrip/crawler"
	"github.com/linkdripai/linkdrip/db"
	"github.com/linkdripai/linkdrip/lemonsqueezy"
	"github.com/linkdripai/linkdrip/moz"
	"github.com/linkdripai/linkdrip/server"
)

var (
	configDir = flag.String("config", defaultConfigDir(), "configuration directory")
	dbPath    = flag.String("db", "", "sqlite database path (defaults to linkdrip.db in the config dir)")
	address   = flag.String("address", "", "listen address (overrides the config file)")
	port      = flag.String("port", "", "listen port (overrides the config file)")
	script    = flag.String("script", "", "path to a lua scoring script")
)

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".linkdrip"
	}
	return filepath.Join(home, ".linkdrip")
}

func main() {
	flag.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(logger); err != nil {
		logger.Error("linkdripd exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	options := []func(*linkdrip.App) error{
		linkdrip.WithLogger(logger),
		linkdrip.WithConfigDir(*configDir),
		linkdrip.WithCrawler(crawler.New()),
	}

	if token := os.Getenv("LINKDRIP_MOZ_TOKEN"); token != "" {
		options = append(options, linkdrip.WithMozClient(moz.NewClient(token)))
	} else {
		logger.Warn("LINKDRIP_MOZ_TOKEN not set, domain metrics disabled")
	}
	if apiKey := os.Getenv("LINKDRIP_LS_API_KEY"); apiKey != "" {
		storeID := os.Getenv("LINKDRIP_LS_STORE_ID")
		options = append(options, linkdrip.WithBilling(lemonsqueezy.NewClient(apiKey, storeID)))
	} else {
		logger.Warn("LINKDRIP_LS_API_KEY not set, checkout disabled")
	}
	if *script != "" {
		source, err := os.ReadFile(*script)
		if err != nil {
			return err
		}
		options = append(options, linkdrip.WithScript(filepath.Base(*script), string(source)))
	}

	app, err := linkdrip.New(options...)
	if err != nil {
		return err
	}

	path := *dbPath
	if path == "" {
		path = filepath.Join(app.ConfigDir, "linkdrip.db")
	}
	dbConn, err := db.New(path)
	if err != nil {
		return err
	}
	if err := app.WithOptions(linkdrip.WithRepo(db.NewRepo(dbConn))); err != nil {
		return err
	}
	go app.WriteToDB()
	defer app.Close()

	jwtSecret := os.Getenv("LINKDRIP_JWT_SECRET")
	if jwtSecret == "" {
		return errors.New("LINKDRIP_JWT_SECRET is required")
	}
	webhookSecret := os.Getenv("LINKDRIP_LS_WEBHOOK_SECRET")
	if webhookSecret == "" {
		logger.Warn("LINKDRIP_LS_WEBHOOK_SECRET not set, webhook deliveries will be refused")
	}
	api, err := server.New(app,
		server.WithLogger(logger),
		server.WithJWTSecret([]byte(jwtSecret)),
		server.WithWebhookSecret(webhookSecret),
	)
	if err != nil {
		return err
	}

	listenAddress := app.Config.DefaultAddress
	listenPort := app.Config.DefaultPort
	if *address != "" {
		listenAddress = *address
	}
	if *port != "" {
		listenPort = *port
	}

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(listenAddress, listenPort),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("linkdripd listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errs:
		return err
	case <-stop:
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

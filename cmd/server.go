package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/revlens/internal/journal"
	"github.com/ziadkadry99/revlens/internal/links"
	"github.com/ziadkadry99/revlens/internal/notifications"
	"github.com/ziadkadry99/revlens/internal/server"
	"github.com/ziadkadry99/revlens/internal/viewer"
)

var (
	serverPort     int
	serverAllowAll bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the viewing session server",
	Long: `Starts the revlens HTTP server: link resolution endpoints, the page
viewer with its session and websocket driver, the session journal and
failure notifications.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a.ensureSiteInfo(ctx)

		journalStore := journal.NewStore(a.db, a.logger)
		notifStore := notifications.NewStore(a.db)
		dispatcher := notifications.NewDispatcher(notifStore, notifications.Options{
			WebhookURL:  a.cfg.Notifications.WebhookURL,
			MinSeverity: notifications.Severity(a.cfg.Notifications.MinSeverity),
			Timeout:     a.cfg.FetchTimeout(),
			Logger:      a.logger,
		})

		filter := links.NewFilter(a.cfg.Links.Include, a.cfg.Links.Exclude)
		vcfg := viewer.Config{
			Resolver:  a.resolver,
			Fetcher:   a.client,
			Validator: a.client,
			Filter:    filter,
			Lazy:      a.cfg.Links.Lazy,
			Margin:    a.cfg.Links.ViewportMargin,
			Scan:      a.scanOptions(),
			Events:    journalStore,
			Notifier:  dispatcher,
			Logger:    a.logger,
		}
		if !offline {
			vcfg.Dependencies = a.loader
		}
		v := viewer.New(vcfg)

		port := a.cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = serverPort
		}
		srv := server.New(server.Config{
			Port:     port,
			AllowAll: serverAllowAll,
			Logger:   a.logger,
		}, server.Deps{
			DB:            a.db,
			Resolver:      a.resolver,
			Builder:       a.builder,
			Viewer:        v,
			Journal:       journalStore,
			Notifications: notifStore,
			Dispatcher:    dispatcher,
		})

		go func() {
			<-ctx.Done()
			a.logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		a.logger.Info("revlens server starting",
			"version", Version,
			"port", port,
			"wiki", a.cfg.Site.Server,
			"database", a.cfg.DBPath(),
			"lazy", a.cfg.Links.Lazy,
		)
		return srv.Start()
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "port to listen on (overrides server.port)")
	serverCmd.Flags().BoolVar(&serverAllowAll, "allow-all-origins", false, "allow every CORS origin")
	rootCmd.AddCommand(serverCmd)
}

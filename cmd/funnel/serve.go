package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/funnelworks/funnel"
	"github.com/funnelworks/funnel/internal/logging"
	"github.com/funnelworks/funnel/pkg/adapters/httpapi"
	"github.com/funnelworks/funnel/pkg/adapters/memory"
	redisAdapter "github.com/funnelworks/funnel/pkg/adapters/redis"
	"github.com/funnelworks/funnel/pkg/adapters/webhook"
	"github.com/funnelworks/funnel/pkg/adapters/yamlcatalog"
	"github.com/funnelworks/funnel/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the funnel HTTP server",
	Long:  `Starts the funnel engine in server mode, exposing a JSON API with per-session SSE streams over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("definition")
		port, _ := cmd.Flags().GetString("port")
		redisAddr, _ := cmd.Flags().GetString("redis")

		logger := logging.New(slog.LevelInfo)
		ctx := cmd.Context()

		definition, err := yamlcatalog.New(path).Load(ctx)
		if err != nil {
			fmt.Printf("Error loading funnel definition: %v\n", err)
			os.Exit(1)
		}

		var store ports.StateStore = memory.NewStore()
		var locker ports.DistributedLocker
		if redisAddr != "" {
			client := backend.NewClient(&backend.Options{Addr: redisAddr})
			rstore := redisAdapter.NewFromClient(client, redisAdapter.WithTTL(24*time.Hour))
			defer rstore.Close()
			store = rstore
			locker = redisAdapter.NewLocker(client, "funnel:session:")
		}

		streams := httpapi.NewStreamManager(logger)

		engineOpts := []funnel.Option{
			funnel.WithLogger(logger),
			funnel.WithNotifier(webhook.New(definition.Completion.WebhookURL, webhook.WithLogger(logger))),
			funnel.WithRedirectBroker(streams),
			funnel.WithRedirectFallback(func(url string) {
				// Top-level sessions fetch the final view themselves;
				// the redirect target is surfaced in the log only.
				logger.Info("session completed, direct redirect", "url", url)
			}),
			funnel.WithChangeListener(streams.BroadcastView),
		}
		if locker != nil {
			engineOpts = append(engineOpts, funnel.WithSessionLocker(locker))
		}

		engine, err := funnel.New(ctx, memory.NewCatalogLoader(definition), store, engineOpts...)
		if err != nil {
			fmt.Printf("Error initializing funnel engine: %v\n", err)
			os.Exit(1)
		}
		defer engine.Close()

		handler := httpapi.NewHandler(engine, streams, httpapi.WithLogger(logger))

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Funnel Server on %s\n", srv.Addr)
			fmt.Printf("Serving definition: %s\n", path)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Funnel Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for session persistence (empty = in-memory)")
}

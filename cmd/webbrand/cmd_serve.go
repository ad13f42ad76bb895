package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/battlewithbytes/webbrand/internal/distribute"
	"github.com/battlewithbytes/webbrand/internal/events"
	"github.com/battlewithbytes/webbrand/internal/intercept"
	"github.com/battlewithbytes/webbrand/internal/metrics"
	"github.com/battlewithbytes/webbrand/internal/server"
)

const (
	shutdownTimeout = 10 * time.Second
	historyKeep     = 1000
)

func getPrimaryIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
			return ipNet.IP.String()
		}
	}
	return ""
}

var serveNoStartup bool

func init() {
	serveCmd.Flags().BoolVar(&serveNoStartup, "no-startup-copy", false, "skip the startup distribution in push mode")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the upload endpoint and logo interceptor",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		cfg := a.cfg

		fmt.Printf("webbrand starting...\n")
		fmt.Printf("  listen:    %s\n", cfg.Addr())
		fmt.Printf("  mode:      %s\n", cfg.Mode)
		fmt.Printf("  web:       %s\n", cfg.WebDir)
		fmt.Printf("  overrides: %s\n", cfg.OverrideDir)

		if err := a.openHistory(); err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		if a.history != nil {
			if n, err := a.history.Prune(ctx, historyKeep); err != nil {
				a.log.Warn().Err(err).Msg("pruning history")
			} else if n > 0 {
				a.log.Debug().Int64("removed", n).Msg("pruned history")
			}
			fmt.Printf("  history:   %s\n", cfg.HistoryPath())
		}

		m := metrics.New()
		hub := events.NewHub(a.log, events.WithOriginPatterns(originPatterns(cfg.Server.AllowedOrigins)...))
		defer hub.Close()

		opts := []server.Option{server.WithMetrics(m), server.WithHub(hub), server.WithLogger(a.log)}
		if a.history != nil {
			opts = append(opts, server.WithHistory(a.history))
		}

		var dist *distribute.Distributor
		if cfg.PushEnabled() {
			dist = a.distributor(m.ObserveReport, hub.Observer())
			fmt.Printf("  push:      enabled (backups: %s)\n", orNone(cfg.BackupDir()))
		}
		var icpt *intercept.Interceptor
		if cfg.InterceptEnabled() {
			icpt = intercept.New(a.store, intercept.Options{
				WebDir:    cfg.WebDir,
				BackupDir: cfg.BackupDir(),
				Prefix:    cfg.Intercept.Prefix,
				Logger:    a.log,
				OnServe:   m.ObserveIntercept,
			})
			fmt.Printf("  intercept: %s/*\n", strings.TrimSuffix(cfg.Intercept.Prefix, "/"))
		}

		srv := server.New(cfg, a.store, dist, icpt, opts...)

		var svc *distribute.Service
		if dist != nil {
			svc = distribute.NewService(dist, !serveNoStartup)
			svc.OnStart(ctx)
		}

		errCh := make(chan error, 1)
		go func() {
			addr := srv.Addr()
			if strings.HasPrefix(addr, "0.0.0.0:") {
				if ip := getPrimaryIP(); ip != "" {
					fmt.Printf("\nListening on http://%s (http://%s)\n", addr, ip+addr[len("0.0.0.0"):])
				} else {
					fmt.Printf("\nListening on http://%s\n", addr)
				}
			} else {
				fmt.Printf("\nListening on http://%s\n", addr)
			}
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case <-ctx.Done():
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		}
		fmt.Println("\nShutting down...")

		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		hub.Close()
		if err := srv.Shutdown(shutCtx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		}
		if svc != nil {
			return svc.OnStop(shutCtx)
		}
		return nil
	},
}

// originPatterns converts allowed origins to the host patterns the
// websocket handshake checks.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

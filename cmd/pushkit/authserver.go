package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/pushkit-dev/pushkit/internal/errors"
	"github.com/pushkit-dev/pushkit/pkg/authtest"
)

func authServerCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		key        string
		secret     string
	)

	cmd := &cobra.Command{
		Use:   "authserver",
		Short: "Run a local channel auth endpoint",
		Long: `Run a local HTTP server that signs channel subscriptions.

The server exposes /pusher/auth and /pusher/user-auth and signs
requests with the app secret, standing in for your application
backend during development. Every request is allowed; never expose
it publicly.

Examples:
  pushkit authserver
  pushkit authserver --addr=:9000 --key=app-key --secret=app-secret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthServer(configPath, addr, key, secret)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to pushkit.json (default ./pushkit.json)")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from pushkit.json)")
	cmd.Flags().StringVarP(&key, "key", "k", "", "App key (default from pushkit.json)")
	cmd.Flags().StringVar(&secret, "secret", "", "App secret (default from pushkit.json)")

	return cmd
}

func runAuthServer(configPath, addr, key, secret string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.AuthServer.Addr = addr
	}
	if key != "" {
		cfg.Key = key
	}
	if secret != "" {
		cfg.Secret = secret
	}

	if cfg.Key == "" {
		return errors.New("E003").
			WithSuggestion("Pass --key or set \"key\" in pushkit.json")
	}
	if cfg.Secret == "" {
		return errors.New("E004").
			WithSuggestion("Pass --secret or set \"secret\" in pushkit.json")
	}

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Mount("/", authtest.Handler(cfg.Key, cfg.Secret))

	printBanner()
	success("Auth server on http://%s", displayAddr(cfg.AuthServer.Addr))
	info("Channel auth:  POST /pusher/auth")
	info("User auth:     POST /pusher/user-auth")

	return http.ListenAndServe(cfg.AuthServer.Addr, r)
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

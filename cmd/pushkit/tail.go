package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pushkit-dev/pushkit/internal/config"
	"github.com/pushkit-dev/pushkit/internal/errors"
	"github.com/pushkit-dev/pushkit/pkg/client"
	"github.com/pushkit-dev/pushkit/pkg/metrics"
	"github.com/pushkit-dev/pushkit/pkg/protocol"
)

type tailOptions struct {
	configPath  string
	key         string
	cluster     string
	host        string
	port        int
	insecure    bool
	authURL     string
	userAuthURL string
	signin      bool
	events      []string
	jsonOut     bool
	metricsAddr string
	verbose     bool
}

func tailCmd() *cobra.Command {
	var o tailOptions

	cmd := &cobra.Command{
		Use:   "tail [channel...]",
		Short: "Subscribe to channels and print events as they arrive",
		Long: `Subscribe to one or more channels and print their events.

The connection reconnects automatically with backoff, and every
subscription is replayed after a reconnect. Private and presence
channels need an auth endpoint (--auth or pushkit.json).

Examples:
  pushkit tail orders
  pushkit tail orders shipments --event=status-changed
  pushkit tail private-orders --auth=https://example.com/pusher/auth
  pushkit tail presence-room --json
  pushkit tail orders --metrics=:9100`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTail(o, args)
		},
	}

	cmd.Flags().StringVarP(&o.configPath, "config", "c", "", "Path to pushkit.json (default ./pushkit.json)")
	cmd.Flags().StringVarP(&o.key, "key", "k", "", "App key (default from pushkit.json)")
	cmd.Flags().StringVar(&o.cluster, "cluster", "", "Cluster name, e.g. eu")
	cmd.Flags().StringVar(&o.host, "host", "", "Server host override")
	cmd.Flags().IntVar(&o.port, "port", 0, "Server port override")
	cmd.Flags().BoolVar(&o.insecure, "insecure", false, "Connect over ws:// instead of wss://")
	cmd.Flags().StringVar(&o.authURL, "auth", "", "Channel authorization endpoint")
	cmd.Flags().StringVar(&o.userAuthURL, "user-auth", "", "User authentication endpoint")
	cmd.Flags().BoolVar(&o.signin, "signin", false, "Sign the connection in after connecting")
	cmd.Flags().StringSliceVarP(&o.events, "event", "e", nil, "Only print these events (repeatable)")
	cmd.Flags().BoolVar(&o.jsonOut, "json", false, "Print events as JSON lines")
	cmd.Flags().StringVar(&o.metricsAddr, "metrics", "", "Expose Prometheus metrics on this address")
	cmd.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "Log frame traffic")

	return cmd
}

func runTail(o tailOptions, channels []string) error {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}
	applyTailFlags(cfg, &o)

	if cfg.Key == "" {
		return errors.New("E003").
			WithSuggestion("Pass --key or set \"key\" in pushkit.json")
	}
	for _, name := range channels {
		if err := protocol.ValidateChannelName(name); err != nil {
			return errors.New("E060").Wrap(err)
		}
	}

	opts, err := clientOptions(cfg, o.verbose)
	if err != nil {
		return err
	}

	var c *client.Client
	opts.OnStateChange = func(old, now client.State) {
		switch now {
		case client.StateConnected:
			success("Connected (socket %s)", c.SocketID())
		case client.StateReconnecting:
			warn("Connection lost, reconnecting")
		case client.StateDisconnected:
			info("Disconnected")
		}
	}
	opts.OnError = func(err error) {
		if o.verbose {
			warn("%v", err)
		}
	}

	c, err = client.New(cfg.Key, opts)
	if err != nil {
		return err
	}
	defer c.Disconnect()

	emit := printer(o, channels)
	for _, name := range channels {
		if len(o.events) == 0 {
			c.BindGlobal(name, emit)
			continue
		}
		for _, event := range o.events {
			c.Bind(name, event, emit)
		}
	}

	if o.metricsAddr != "" {
		go serveMetrics(o.metricsAddr, c)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Connect(ctx); err != nil {
		var fatal *client.FatalError
		if stderrors.As(err, &fatal) {
			return errors.New("E021").Wrap(err)
		}
		return errors.New("E020").Wrap(err)
	}
	if o.signin {
		if err := c.SignIn(ctx); err != nil {
			return err
		}
	}

	for _, name := range channels {
		if _, err := c.Subscribe(name); err != nil {
			var authErr *client.AuthError
			if stderrors.As(err, &authErr) {
				return errors.New("E040").Wrap(err)
			}
			return err
		}
		info("Subscribed to %s", name)
	}

	<-ctx.Done()
	fmt.Println()
	info("Shutting down")
	return nil
}

// loadConfig reads pushkit.json, tolerating a missing file when no
// explicit path was given (flags may carry everything).
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	cfg, err := config.Load(".")
	if err != nil {
		if ce, ok := err.(*errors.CLIError); ok && ce.Code == "E001" {
			return config.New(), nil
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyTailFlags(cfg *config.Config, o *tailOptions) {
	if o.key != "" {
		cfg.Key = o.key
	}
	if o.cluster != "" {
		cfg.Cluster = o.cluster
	}
	if o.host != "" {
		cfg.Host = o.host
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.insecure {
		cfg.Insecure = true
	}
	if o.authURL != "" {
		cfg.Auth.Endpoint = o.authURL
	}
	if o.userAuthURL != "" {
		cfg.UserAuth.Endpoint = o.userAuthURL
	}
}

// clientOptions maps file configuration onto client options.
func clientOptions(cfg *config.Config, verbose bool) (*client.Options, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := client.DefaultOptions()
	opts.Cluster = cfg.Cluster
	if cfg.Host != "" {
		opts.Host = cfg.Host
	}
	opts.Port = cfg.Port
	opts.Insecure = cfg.Insecure
	opts.Logger = logger
	opts.AuthEndpoint = cfg.Auth.Endpoint
	opts.AuthHeaders = toHeader(cfg.Auth.Headers)
	opts.UserAuthEndpoint = cfg.UserAuth.Endpoint
	opts.UserAuthHeaders = toHeader(cfg.UserAuth.Headers)

	min, err := cfg.MinDelay()
	if err != nil {
		return nil, errors.Newf(errors.CategoryConfig, "reconnect.minDelay: %v", err)
	}
	max, err := cfg.MaxDelay()
	if err != nil {
		return nil, errors.Newf(errors.CategoryConfig, "reconnect.maxDelay: %v", err)
	}
	opts.Backoff.MinDelay = min
	opts.Backoff.MaxDelay = max
	opts.Backoff.MaxAttempts = cfg.Reconnect.MaxAttempts

	return opts, nil
}

func toHeader(m map[string]string) http.Header {
	if len(m) == 0 {
		return nil
	}
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

// printer renders inbound events to stdout.
func printer(o tailOptions, channels []string) client.EventHandler {
	if o.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		return func(e client.Event) {
			enc.Encode(struct {
				Time    time.Time       `json:"time"`
				Channel string          `json:"channel"`
				Event   string          `json:"event"`
				Data    json.RawMessage `json:"data,omitempty"`
			}{time.Now().UTC(), e.Channel, e.Name, e.Data})
		}
	}

	showChannel := len(channels) > 1
	return func(e client.Event) {
		ts := time.Now().Format("15:04:05")
		if showChannel {
			fmt.Printf("%s  %s  %s  %s\n", ts, e.Channel, e.Name, e.Data)
			return
		}
		fmt.Printf("%s  %s  %s\n", ts, e.Name, e.Data)
	}
}

// serveMetrics exposes the client's counters for Prometheus scrapes.
func serveMetrics(addr string, c *client.Client) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(c))

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	info("Metrics on http://%s/metrics", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		warn("metrics server: %v", err)
	}
}

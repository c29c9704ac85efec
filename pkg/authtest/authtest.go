// Package authtest provides an in-process auth endpoint for
// exercising clients that subscribe to private or presence channels.
//
// Handler serves the two form-POST routes a hosted app would expose
// and signs responses the same way the server SDKs do, so a client
// pointed at it completes real subscription handshakes:
//
//	srv := authtest.NewServer("app-key", "app-secret")
//	defer srv.Close()
//
//	opts := client.DefaultOptions()
//	opts.AuthEndpoint = srv.ChannelURL()
//	opts.UserAuthEndpoint = srv.UserURL()
//
// The same handler backs `pushkit authserver` for local development.
package authtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"

	"github.com/pushkit-dev/pushkit/internal/signature"
	"github.com/pushkit-dev/pushkit/pkg/protocol"
)

// Config configures the auth handler.
type Config struct {
	// ChannelAuthPath is the channel authorization route.
	// Default: "/pusher/auth"
	ChannelAuthPath string

	// UserAuthPath is the user authentication route.
	// Default: "/pusher/user-auth"
	UserAuthPath string

	// Authorize vets a channel subscription before signing. Returning
	// an error denies it with 403.
	// Default: allow everything.
	Authorize func(r *http.Request, socketID, channel string) error

	// Member produces the presence member for a subscription: the
	// member id and optional info payload.
	// Default: the socket id with no info.
	Member func(r *http.Request, socketID, channel string) (id string, info any)

	// User produces the signin payload for a socket. It must marshal
	// to an object carrying the user id.
	// Default: {"id": socketID}.
	User func(r *http.Request, socketID string) any
}

// Option configures the auth handler.
type Option func(*Config)

// WithChannelAuthPath sets the channel authorization route.
func WithChannelAuthPath(path string) Option {
	return func(c *Config) {
		c.ChannelAuthPath = path
	}
}

// WithUserAuthPath sets the user authentication route.
func WithUserAuthPath(path string) Option {
	return func(c *Config) {
		c.UserAuthPath = path
	}
}

// WithAuthorize sets the subscription gate.
func WithAuthorize(fn func(r *http.Request, socketID, channel string) error) Option {
	return func(c *Config) {
		c.Authorize = fn
	}
}

// WithMember sets the presence member producer.
func WithMember(fn func(r *http.Request, socketID, channel string) (string, any)) Option {
	return func(c *Config) {
		c.Member = fn
	}
}

// WithUser sets the signin payload producer.
func WithUser(fn func(r *http.Request, socketID string) any) Option {
	return func(c *Config) {
		c.User = fn
	}
}

func defaultConfig() Config {
	return Config{
		ChannelAuthPath: "/pusher/auth",
		UserAuthPath:    "/pusher/user-auth",
		Member: func(r *http.Request, socketID, channel string) (string, any) {
			return socketID, nil
		},
		User: func(r *http.Request, socketID string) any {
			return map[string]string{"id": socketID}
		},
	}
}

// Handler returns an http.Handler serving the channel and user auth
// routes, signing with the given app key and secret.
func Handler(key, secret string, opts ...Option) http.Handler {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	r := chi.NewRouter()
	r.Post(config.ChannelAuthPath, channelAuth(key, secret, config))
	r.Post(config.UserAuthPath, userAuth(key, secret, config))
	return r
}

type member struct {
	UserID   string `json:"user_id"`
	UserInfo any    `json:"user_info,omitempty"`
}

func channelAuth(key, secret string, config Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		socketID := r.PostFormValue("socket_id")
		channel := r.PostFormValue("channel_name")
		if socketID == "" || channel == "" {
			httpError(w, http.StatusBadRequest, "socket_id and channel_name are required")
			return
		}

		if config.Authorize != nil {
			if err := config.Authorize(r, socketID, channel); err != nil {
				httpError(w, http.StatusForbidden, err.Error())
				return
			}
		}

		var channelData string
		if protocol.KindOf(channel) == protocol.KindPresence {
			id, info := config.Member(r, socketID, channel)
			data, err := json.Marshal(member{UserID: id, UserInfo: info})
			if err != nil {
				httpError(w, http.StatusInternalServerError, "encode member: "+err.Error())
				return
			}
			channelData = string(data)
		}

		resp := map[string]string{
			"auth": signature.Channel(key, secret, socketID, channel, channelData),
		}
		if channelData != "" {
			resp["channel_data"] = channelData
		}
		writeJSON(w, resp)
	}
}

func userAuth(key, secret string, config Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		socketID := r.PostFormValue("socket_id")
		if socketID == "" {
			httpError(w, http.StatusBadRequest, "socket_id is required")
			return
		}

		data, err := json.Marshal(config.User(r, socketID))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "encode user: "+err.Error())
			return
		}
		userData := string(data)

		writeJSON(w, map[string]string{
			"auth":      signature.User(key, secret, socketID, userData),
			"user_data": userData,
		})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func httpError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Server is an httptest.Server running the auth handler.
type Server struct {
	*httptest.Server

	config Config
}

// NewServer starts a Server signing with the given app key and
// secret. Close it when done.
func NewServer(key, secret string, opts ...Option) *Server {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Server{
		Server: httptest.NewServer(Handler(key, secret, opts...)),
		config: config,
	}
}

// ChannelURL returns the absolute channel authorization URL.
func (s *Server) ChannelURL() string {
	return s.URL + s.config.ChannelAuthPath
}

// UserURL returns the absolute user authentication URL.
func (s *Server) UserURL() string {
	return s.URL + s.config.UserAuthPath
}

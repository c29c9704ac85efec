// Package client implements a Pusher Channels client: one persistent
// WebSocket session with channel subscriptions, event callbacks,
// heartbeat liveness, and automatic reconnection.
//
// # Lifecycle
//
// A Client moves between four states:
//
//	Disconnected ──Connect──> Connecting ──established──> Connected
//	     ^                        │                           │
//	     │     fatal error or Disconnect                 connection
//	     │                        │                         lost
//	     └────────────────────────┴──────<──Reconnecting──────┘
//
// Connect blocks until the server acknowledges the session with a socket
// id. From Connected, a read failure, server close, or missed pong moves
// the client to Reconnecting: it redials with capped exponential backoff
// and jitter, then replays every registered channel through the full
// subscribe path, resolving fresh auth for private and presence channels.
// Server close codes in the 4000-4099 range are permanent; the client
// reports them and stays down. Disconnect always wins over any in-flight
// connect or retry.
//
// # Channels and Bindings
//
// Subscribe registers a channel by name; the name prefix selects the
// kind (private-, presence-, anything else is public). Callbacks are
// bound per channel and event, in insertion order, and may be registered
// before subscribing or connecting. Bindings survive unsubscribe and
// reconnect cycles until unbound.
//
// Callbacks run on the read loop: a slow callback delays later frames,
// and a panicking callback is isolated, reported through OnError, and
// never stops dispatch.
//
// # Usage
//
//	c, err := client.New("app-key", client.DefaultOptions().
//		WithCluster("eu").
//		WithAuthEndpoint("https://example.test/pusher/auth"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := c.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer c.Disconnect()
//
//	orders, err := c.Subscribe("private-orders")
//	if err != nil {
//		log.Fatal(err)
//	}
//	orders.Bind("created", func(evt client.Event) {
//		fmt.Printf("order: %s\n", evt.Data)
//	})
//
// # Presence
//
// Presence channels track their member roster. The roster is seeded from
// the subscription acknowledgment and updated by member_added and
// member_removed frames before the corresponding callbacks fire, so a
// callback always observes the post-event roster.
package client

package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const channel = "storefront_changes"

// PGNotifier announces changes through pg_notify so every instance running a
// Listener on the same database sees them.
type PGNotifier struct {
	pool *pgxpool.Pool
}

func NewPGNotifier(pool *pgxpool.Pool) *PGNotifier {
	return &PGNotifier{pool: pool}
}

func (n *PGNotifier) Notify(ctx context.Context, topics ...string) error {
	for _, topic := range topics {
		if _, err := n.pool.Exec(ctx, "SELECT pg_notify($1, $2)", channel, topic); err != nil {
			return fmt.Errorf("realtime: failed to notify %s: %w", topic, err)
		}
	}
	return nil
}

// Listener relays pg_notify signals into a Hub.
type Listener struct {
	pool    *pgxpool.Pool
	hub     *Hub
	backoff time.Duration
}

func NewListener(pool *pgxpool.Pool, hub *Hub) *Listener {
	return &Listener{pool: pool, hub: hub, backoff: 2 * time.Second}
}

// Run blocks until ctx is done, reconnecting after failures. Subscribers see
// each connection failure through their error callback and a fresh update
// once the connection is back.
func (l *Listener) Run(ctx context.Context) {
	for reconnect := false; ; reconnect = true {
		err := l.listen(ctx, reconnect)
		if ctx.Err() != nil {
			return
		}

		log.Error().Err(err).Dur("backoff", l.backoff).Msg("realtime: listener failed, reconnecting")
		l.hub.Fail(fmt.Errorf("realtime: change feed interrupted: %w", err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.backoff):
		}
	}
}

func (l *Listener) listen(ctx context.Context, reconnect bool) error {
	pooled, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	// a connection that was LISTENing must not go back to the pool
	conn := pooled.Hijack()
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	log.Info().Str("channel", channel).Bool("reconnect", reconnect).Msg("realtime: listening for changes")
	if reconnect {
		l.hub.Resync()
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		l.hub.Publish(n.Payload)
	}
}

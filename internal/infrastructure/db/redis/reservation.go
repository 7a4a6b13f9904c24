package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultReservationTTL = 10 * time.Second

// EmailReservations claims an email for the duration of one user creation so
// concurrent creators in other processes back off before touching the store.
// Key format: email:reserve:<email>
//
// A reservation only narrows the race; the conditional index insert remains
// the authority on uniqueness. The TTL bounds how long a crashed creator can
// block the address.
type EmailReservations struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEmailReservations wraps client. A non-positive ttl selects the default.
func NewEmailReservations(client *redis.Client, ttl time.Duration) *EmailReservations {
	if ttl <= 0 {
		ttl = defaultReservationTTL
	}
	return &EmailReservations{client: client, ttl: ttl}
}

// Reserve reports false when another creator holds the email.
func (r *EmailReservations) Reserve(ctx context.Context, email string) (bool, error) {
	ok, err := r.client.SetNX(ctx, reservationKey(email), "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve email: %w", err)
	}
	return ok, nil
}

// Release drops the reservation early.
func (r *EmailReservations) Release(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, reservationKey(email)).Err(); err != nil {
		return fmt.Errorf("release email: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (r *EmailReservations) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func reservationKey(email string) string {
	return "email:reserve:" + email
}

package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
	RetryDelay     = 5 * time.Second
)

// Connect dials MongoDB and pings the primary. A failed attempt is retried after
// delay until attempts are used up or ctx is cancelled.
func Connect(ctx context.Context, uri string, attempts int, delay time.Duration, logger *logrus.Logger) (*mongo.Client, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		client, err := connectOnce(ctx, uri)
		if err == nil {
			if logger != nil {
				logger.WithField("attempt", i).Info("mongodb connected")
			}
			return client, nil
		}
		lastErr = err
		if i == attempts {
			break
		}
		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{"attempt": i, "retry_in": delay.String()}).Warn("mongodb connection failed, retrying")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("connect to mongodb after %d attempts: %w", attempts, lastErr)
}

func connectOnce(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pingCtx, cancelPing := context.WithTimeout(ctx, pingTimeout)
	defer cancelPing()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

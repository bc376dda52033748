package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

const valkeyRetries = 3

type ValkeyOptions struct {
	Addr     string
	Password string
	TLS      bool
	TTL      time.Duration // lifetime of cached scores, 0 keeps them forever
}

// ValkeyClient caches sentiment scores. It satisfies sentiment.ResultCache.
type ValkeyClient struct {
	Client valkey.Client
	opts   ValkeyOptions
	mu     sync.Mutex
}

func NewValkeyClient(opts ValkeyOptions) (*ValkeyClient, error) {
	client, err := connectValkey(opts)
	if err != nil {
		return nil, err
	}
	return &ValkeyClient{Client: client, opts: opts}, nil
}

func connectValkey(opts ValkeyOptions) (valkey.Client, error) {
	clientOpts := valkey.ClientOption{
		InitAddress:      []string{opts.Addr},
		Password:         opts.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if opts.TLS {
		clientOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey", slog.String("addr", opts.Addr))
	return client, nil
}

func (vc *ValkeyClient) client() valkey.Client {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.Client
}

func (vc *ValkeyClient) recreateClient() {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	client, err := connectValkey(vc.opts)
	if err != nil {
		slog.Error("[ValkeyClient] Recreate failed", slog.String("error", err.Error()))
		return
	}
	vc.Client.Close()
	vc.Client = client
}

func (vc *ValkeyClient) Close() {
	vc.client().Close()
}

// GetScore returns a cached score. A missing key is a miss, not an error.
func (vc *ValkeyClient) GetScore(ctx context.Context, key string) (float64, bool, error) {
	c := vc.client()
	res := vc.DoWithRetry(ctx, c.B().Get().Key(key).Build(), valkeyRetries)

	score, err := res.AsFloat64()
	if valkey.IsValkeyNil(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("[ValkeyClient] failed to read %s: %w", key, err)
	}
	return score, true, nil
}

func (vc *ValkeyClient) SetScore(ctx context.Context, key string, score float64) error {
	c := vc.client()
	value := strconv.FormatFloat(score, 'g', -1, 64)

	cmd := c.B().Set().Key(key).Value(value).Build()
	if vc.opts.TTL > 0 {
		cmd = c.B().Set().Key(key).Value(value).ExSeconds(int64(vc.opts.TTL / time.Second)).Build()
	}

	if err := vc.DoWithRetry(ctx, cmd, valkeyRetries).Error(); err != nil {
		return fmt.Errorf("[ValkeyClient] failed to write %s: %w", key, err)
	}
	return nil
}

// DoWithRetry retries failed commands. A nil reply is a result, not a failure.
func (vc *ValkeyClient) DoWithRetry(ctx context.Context, completed valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.client().Do(ctx, completed)
		err := result.Error()
		if err == nil || valkey.IsValkeyNil(err) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))

		if isConnectionError(err) {
			vc.recreateClient()
		}
		if ctx.Err() != nil {
			break
		}
		time.Sleep(250 * time.Millisecond)
	}

	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}

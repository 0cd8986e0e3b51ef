package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"
)

const (
	valkeyConnectTimeout = 5 * time.Second
	keyPrefix            = "postbot:session:"
)

// ValkeyConfig configures the Valkey backend.
type ValkeyConfig struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// Valkey stores sessions as JSON strings with an expiry.
type Valkey struct {
	client valkeylib.Client
	ttl    time.Duration
}

// NewValkey connects and pings the server.
func NewValkey(cfg ValkeyConfig) (*Valkey, error) {
	opts := valkeylib.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	client, err := valkeylib.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), valkeyConnectTimeout)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Valkey{client: client, ttl: ttl}, nil
}

func sessionKey(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

func (v *Valkey) Get(ctx context.Context, userID int64) (*Session, error) {
	data, err := v.client.Do(ctx, v.client.B().Get().Key(sessionKey(userID)).Build()).AsBytes()
	if err != nil {
		if valkeylib.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (v *Valkey) Put(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	cmd := v.client.B().Set().Key(sessionKey(s.UserID)).Value(string(data)).Ex(v.ttl).Build()
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (v *Valkey) Delete(ctx context.Context, userID int64) error {
	if err := v.client.Do(ctx, v.client.B().Del().Key(sessionKey(userID)).Build()).Error(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Close releases the connection.
func (v *Valkey) Close() {
	v.client.Close()
}

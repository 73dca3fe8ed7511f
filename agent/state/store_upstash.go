package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	logx "github.com/tanpawarit/laia-quote-agent/pkg/logger"
)

const (
	defaultStoreKeyPrefix = "laia:session:"
	defaultStoreTTL       = 24 * time.Hour
	defaultStoreTimeout   = 10 * time.Second

	// Replies carry the document JSON-encoded, so they get more room.
	maxDocumentBytes     = 1 << 20
	maxResponseSizeBytes = 8 << 20
)

type UpstashRedisConfig struct {
	URL       string        `envconfig:"URL" split_words:"true" required:"true"`
	Token     string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout   time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	KeyPrefix string        `envconfig:"KEY_PREFIX" split_words:"true" default:"laia:session:"`
	TTL       time.Duration `envconfig:"TTL" split_words:"true" default:"24h"`
}

// StoreOption customizes UpstashRedisStore.
type StoreOption func(*UpstashRedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *UpstashRedisStore) {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

// WithTTL sets the key expiry; zero keeps sessions forever.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *UpstashRedisStore) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashRedisStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashRedisStore keeps one JSON document per session in Upstash Redis,
// talking to its REST endpoint. Every command is a JSON array POSTed to the
// base URL, e.g. ["SET", key, payload, "EX", 86400].
type UpstashRedisStore struct {
	endpoint   string
	token      string
	keyPrefix  string
	ttl        time.Duration
	httpClient *http.Client

	maxDocument int
	maxResponse int64
}

var _ Store = (*UpstashRedisStore)(nil)

// RedisError is an error reply from Redis itself, as opposed to a transport
// failure.
type RedisError struct {
	Message string
}

func (e *RedisError) Error() string { return e.Message }

type upstashReply struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if endpoint == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid upstash redis url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	s := &UpstashRedisStore{
		endpoint:   endpoint,
		token:      token,
		keyPrefix:  defaultStoreKeyPrefix,
		ttl:        defaultStoreTTL,
		httpClient: &http.Client{Timeout: timeout},

		maxDocument: maxDocumentBytes,
		maxResponse: maxResponseSizeBytes,
	}
	if cfg.TTL > 0 {
		s.ttl = cfg.TTL
	}
	WithKeyPrefix(cfg.KeyPrefix)(s)

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return s, nil
}

func (s *UpstashRedisStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return nil, err
	}

	result, err := s.command(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrStateNotFound
	}

	// GET returns the stored document as a JSON string.
	var doc string
	if err := json.Unmarshal(result, &doc); err != nil {
		return nil, fmt.Errorf("decode session payload: %w", err)
	}
	var st SessionState
	if err := json.Unmarshal([]byte(doc), &st); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("stored session %s: %w", key, err)
	}

	log.Debug().Str("session_id", st.SessionID).Int("history", len(st.History)).Msg("session loaded")
	return &st, nil
}

func (s *UpstashRedisStore) Save(ctx context.Context, st *SessionState) error {
	if st == nil {
		return ErrNilSessionState
	}
	key, err := s.redisKey(st.SessionID)
	if err != nil {
		return err
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	st.UpdatedAt = st.UpdatedAt.UTC()

	doc, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	if len(doc) > s.maxDocument {
		return fmt.Errorf("%w: session %s is %d bytes, limit %d",
			ErrSessionTooLarge, st.SessionID, len(doc), s.maxDocument)
	}

	args := []any{"SET", key, string(doc)}
	if s.ttl > 0 {
		args = append(args, "EX", expirySeconds(s.ttl))
	}
	_, err = s.command(ctx, args...)
	return err
}

func (s *UpstashRedisStore) Delete(ctx context.Context, sessionID string) error {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return err
	}
	_, err = s.command(ctx, "DEL", key)
	return err
}

func (s *UpstashRedisStore) redisKey(sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return "", ErrInvalidSession
	}
	return s.keyPrefix + id, nil
}

// command runs one Redis command. Transport and HTTP failures wrap
// ErrStoreUnavailable; Redis error replies come back as *RedisError.
func (s *UpstashRedisStore) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, s.maxResponse+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrStoreUnavailable, err)
	}
	if int64(len(raw)) > s.maxResponse {
		return nil, fmt.Errorf("%w: %s reply over %d bytes", ErrResponseTooLarge, args[0], s.maxResponse)
	}

	var reply upstashReply
	decodeErr := json.Unmarshal(raw, &reply)
	if decodeErr == nil && reply.Error != "" {
		return nil, &RedisError{Message: reply.Error}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrStoreUnavailable, resp.StatusCode,
			logx.Truncate(logx.MaskString(string(raw)), 200))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode redis response: %w", decodeErr)
	}
	return bytes.TrimSpace(reply.Result), nil
}

// expirySeconds rounds ttl up to whole seconds, minimum one.
func expirySeconds(ttl time.Duration) int64 {
	secs := int64((ttl + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

package cmd

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
)

const (
	SessionStoreMemory  = "memory"
	SessionStoreUpstash = "upstash"
)

// AppConfig is read from LAIA_* variables.
type AppConfig struct {
	AgentToken      string        `envconfig:"AGENT_TOKEN" split_words:"true"`
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	UploadDir       string        `envconfig:"UPLOAD_DIR" split_words:"true" default:"storage"`
	CatalogFile     string        `envconfig:"CATALOG_FILE" split_words:"true"`
	Timezone        string        `envconfig:"TIMEZONE" split_words:"true" default:"America/Bogota"`
	SessionStore    string        `envconfig:"SESSION_STORE" split_words:"true" default:"memory"`
	MaxMessageChars int           `envconfig:"MAX_MESSAGE_CHARS" split_words:"true" default:"4000"`
	MaxToolRounds   int           `envconfig:"MAX_TOOL_ROUNDS" split_words:"true" default:"3"`
	MaxHistoryTurns int           `envconfig:"MAX_HISTORY_TURNS" split_words:"true" default:"30"`
	MaxBodyBytes    int64         `envconfig:"MAX_BODY_BYTES" split_words:"true" default:"65536"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" split_words:"true" default:"90s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"15s"`
}

func (c *AppConfig) Validate() error {
	c.SessionStore = strings.ToLower(strings.TrimSpace(c.SessionStore))
	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreUpstash:
	default:
		return fmt.Errorf("%w: unknown session store %q", contractx.ErrValidation, c.SessionStore)
	}
	if c.MaxMessageChars <= 0 {
		return fmt.Errorf("%w: max message chars must be > 0", contractx.ErrValidation)
	}
	if c.MaxToolRounds <= 0 {
		return fmt.Errorf("%w: max tool rounds must be > 0", contractx.ErrValidation)
	}
	if c.MaxHistoryTurns <= 0 {
		return fmt.Errorf("%w: max history turns must be > 0", contractx.ErrValidation)
	}
	return nil
}

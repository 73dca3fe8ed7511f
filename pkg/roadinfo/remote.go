package roadinfo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	logx "github.com/tanpawarit/laia-quote-agent/pkg/logger"
)

const defaultMapInfoPath = "webhook/map-info"

// Caller posts a JSON payload to a workflow endpoint.
type Caller interface {
	Call(ctx context.Context, endpoint string, payload any, out any) error
}

type RemoteConfig struct {
	MapInfoPath string `envconfig:"MAP_INFO_PATH" split_words:"true" default:"webhook/map-info"`
	Enabled     bool   `envconfig:"MAP_INFO_ENABLED" split_words:"true" default:"false"`
}

// Remote asks the map-info workflow for the road context of an address.
type Remote struct {
	caller Caller
	path   string
}

var _ contractx.AddressInferer = (*Remote)(nil)

func NewRemote(caller Caller, cfg RemoteConfig) (*Remote, error) {
	if caller == nil {
		return nil, errors.New("workflow caller is required")
	}
	path := strings.TrimSpace(cfg.MapInfoPath)
	if path == "" {
		path = defaultMapInfoPath
	}
	return &Remote{caller: caller, path: path}, nil
}

func (r *Remote) Infer(ctx context.Context, address string) (contractx.Inference, error) {
	var out contractx.Inference
	if err := r.caller.Call(ctx, r.path, map[string]any{"address": address}, &out); err != nil {
		return contractx.Inference{}, fmt.Errorf("%w: map-info: %v", contractx.ErrCollaborator, err)
	}
	if out.Status != StatusOK || out.Data == nil {
		return contractx.Inference{Status: StatusNoData}, nil
	}
	return out, nil
}

// Chain tries each inferer in order and returns the first ok inference.
// Failures are logged and skipped; the last failure is returned only when no
// inferer produced an answer.
type Chain []contractx.AddressInferer

var _ contractx.AddressInferer = Chain(nil)

func (c Chain) Infer(ctx context.Context, address string) (contractx.Inference, error) {
	var lastErr error
	answered := false
	for _, inf := range c {
		if inf == nil {
			continue
		}
		res, err := inf.Infer(ctx, address)
		if err != nil {
			lastErr = err
			log.Warn().
				Str("error", logx.Truncate(logx.MaskString(err.Error()), 200)).
				Msg("address inferer failed, trying next")
			continue
		}
		answered = true
		if res.Status == StatusOK && res.Data != nil {
			return res, nil
		}
	}
	if !answered && lastErr != nil {
		return contractx.Inference{}, lastErr
	}
	return contractx.Inference{Status: StatusNoData}, nil
}

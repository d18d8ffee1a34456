package synth

import (
	"fmt"
	"log/slog"

	"github.com/30Piraten/pipeline-iac/config"
	"github.com/30Piraten/pipeline-iac/identity"
	"github.com/30Piraten/pipeline-iac/topology"
)

// FromConfig resolves the identity in cfg and synthesizes with its
// overrides. A nil logger discards output.
func FromConfig(cfg config.Config, logger *slog.Logger) (*Definition, error) {
	id, err := identity.Resolve(cfg.Params)
	if err != nil {
		return nil, err
	}
	events, err := topology.ParseEvents(cfg.NotifyEvents)
	if err != nil {
		return nil, err
	}
	if cfg.NotifyEvents != nil && len(events) == 0 {
		return nil, fmt.Errorf("%w: %s lists no events", identity.ErrInvalidParameter, config.EnvNotifyEvents)
	}
	return Synthesize(id,
		WithBuildImage(cfg.BuildImage),
		WithEvents(events...),
		WithNotificationTopic(cfg.TopicName),
		WithLogger(logger),
	)
}

package tokenstore

import (
	"fmt"

	"github.com/noah-isme/sma-professor-gateway/pkg/cache"
	"github.com/noah-isme/sma-professor-gateway/pkg/config"
)

// FromConfig builds the store selected by cfg.Token.Source. The returned
// close func releases any connection the store holds.
func FromConfig(cfg *config.Config) (Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Token.Source {
	case "", config.TokenSourceStatic:
		return NewStatic(cfg.Token.Value), noop, nil
	case config.TokenSourceFile:
		if cfg.Token.File == "" {
			return nil, noop, fmt.Errorf("TOKEN_FILE is required for token source %q", cfg.Token.Source)
		}
		return NewFile(cfg.Token.File), noop, nil
	case config.TokenSourceRedis:
		client, err := cache.NewTokenClient(cfg.Redis, cfg.Token.RedisKey)
		if err != nil {
			return nil, noop, err
		}
		return NewRedis(client, cfg.Token.RedisKey), client.Close, nil
	case config.TokenSourceRequest:
		var fallback Store
		if cfg.Token.Value != "" {
			fallback = NewStatic(cfg.Token.Value)
		}
		return NewRequest(fallback), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown token source %q", cfg.Token.Source)
	}
}

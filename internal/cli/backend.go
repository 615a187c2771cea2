package cli

import (
	"log/slog"

	"github.com/roach88/exprgen/internal/lower"
)

// newBackend builds the lowering backend described by the configuration:
// the closure compiler, restricted to lowering.supported when set and
// wrapped in a cache when lowering.cache is on.
func (o *RootOptions) newBackend(res *LoadResult, logger *slog.Logger) (lower.Backend, error) {
	cfg := o.config()
	kinds, err := cfg.Kinds()
	if err != nil {
		return nil, err
	}

	opts := []lower.Option{lower.WithLogger(logger)}
	if len(kinds) > 0 {
		opts = append(opts, lower.WithSupported(kinds...))
	}
	var backend lower.Backend = lower.NewCompiler(res.Registry, res.Methods, opts...)
	if cfg.Lowering.Cache {
		backend = lower.NewCache(backend, logger)
	}
	return backend, nil
}

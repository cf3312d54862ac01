package mapping

import (
	"fmt"
	"slices"

	"github.com/born-ml/batchfn/internal/parallel"
)

// Options holds construction options by name.
//
// Recognized options:
//   - "verbose" (bool): log every evaluation at Info level.
//   - "num_threads" (int > 0): maximum number of concurrent instances.
//   - "parallel" (bool): override the detected parallel runtime capability.
type Options map[string]any

// Config is the decoded form of Options.
type Config struct {
	Verbose  bool
	Parallel parallel.Config
}

// DefaultConfig returns the configuration used for empty Options.
func DefaultConfig() Config {
	return Config{Parallel: parallel.DefaultConfig()}
}

// Decode validates the options and applies them on top of DefaultConfig.
// Keys are processed in sorted order so the reported error is deterministic.
func (o Options) Decode() (Config, error) {
	cfg := DefaultConfig()
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, key := range keys {
		val := o[key]
		switch key {
		case "verbose":
			b, ok := val.(bool)
			if !ok {
				return cfg, optionTypeError(key, "bool", val)
			}
			cfg.Verbose = b
		case "parallel":
			b, ok := val.(bool)
			if !ok {
				return cfg, optionTypeError(key, "bool", val)
			}
			cfg.Parallel.Enabled = b
		case "num_threads":
			n, ok := val.(int)
			if !ok || n < 1 {
				return cfg, optionTypeError(key, "positive int", val)
			}
			cfg.Parallel.NumWorkers = n
		default:
			return cfg, fmt.Errorf("%w: %q", ErrUnknownOption, key)
		}
	}
	return cfg, nil
}

func optionTypeError(key, want string, got any) error {
	return fmt.Errorf("%w: option %q wants %s, got %T(%v)", ErrOptionType, key, want, got, got)
}

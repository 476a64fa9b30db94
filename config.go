package runner

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/allegro/nightly-runner/runctx"
	"github.com/allegro/nightly-runner/runenv"
	"github.com/allegro/nightly-runner/seed"
)

// EnvironmentPrefix is the envconfig prefix of Config.
const EnvironmentPrefix = "runner"

// Config settable from the environment
type Config struct {
	// Sets logging level to `debug` when true, `info` otherwise
	Debug bool `default:"false" split_words:"true"`
	// Seed of the run; generated when empty
	Seed string `split_words:"true"`
	// Execution mode, `normal` or `nightly`; inferred from the environment when empty
	Mode string `split_words:"true"`
	// Multiplier used in nightly mode instead of NightlyMultiplier; unset when 0
	Multiplier float64 `split_words:"true"`
	// Policy multiplier of nightly mode
	NightlyMultiplier float64 `default:"2" split_words:"true"`
	// Absolute bound of scaled spans; unbounded when 0
	MaxSpan uint64 `split_words:"true"`
	// Number of units executed concurrently
	Workers int `default:"1"`
	// Time after which a unit body is abandoned and the unit fails; no limit when 0
	UnitTimeout time.Duration `default:"0" split_words:"true"`
	// Number of report entries to keep in buffer
	ReportBufferSize int `default:"1024" split_words:"true"`
	// Timeout for flushing buffered report entries at the end of the run
	ReportWaitTimeout time.Duration `default:"5s" split_words:"true"`
	// Report format, `logfmt` or `json`
	Format string `default:"logfmt"`

	// SentryDSN is an address used for sending logs to Sentry
	SentryDSN string `split_words:"true"`
}

// Params converts the configuration into run parameters. When no mode is
// configured, the environment decides.
func (c Config) Params() (runctx.Params, error) {
	params := runctx.Params{
		NightlyMultiplier: c.NightlyMultiplier,
		MaxSpan:           c.MaxSpan,
	}

	if c.Seed != "" {
		s, err := seed.Parse(c.Seed)
		if err != nil {
			return params, errors.Wrap(err, "invalid seed configuration")
		}
		params.Seed = &s
	}

	if c.Mode != "" {
		mode, err := runctx.ParseMode(c.Mode)
		if err != nil {
			return params, errors.Wrap(err, "invalid mode configuration")
		}
		params.Mode = &mode
	} else if nightly, reason := runenv.NightlyHint(); nightly {
		log.WithField("Reason", reason).Info("Environment requests nightly mode")
		mode := runctx.Nightly
		params.Mode = &mode
	}

	if c.Multiplier != 0 {
		m := c.Multiplier
		params.Multiplier = &m
	}
	return params, nil
}

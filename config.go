package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind    string
	port    int
	prefix  string
	profile bool
	tlsCert string
	tlsKey  string
	verbose bool

	vocabulary    string
	totalRounds   int
	minDifficulty int
	answerTimeout time.Duration
	roundGrace    time.Duration
	probeTimeout  time.Duration

	quickTime    time.Duration
	quickScore   float64
	slowTime     time.Duration
	slowScore    float64
	baseScore    float64
	timeDiffRate float64
	maxScoreDiff float64
	roundBonuses []string

	// derived by validate()
	scoring scoringParams
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.vocabulary == "" {
		return errors.New("a vocabulary file must be provided via --vocabulary")
	}
	if c.totalRounds < 1 {
		return fmt.Errorf("invalid round count: %d", c.totalRounds)
	}
	if c.answerTimeout <= 0 {
		return fmt.Errorf("invalid answer timeout: %s", c.answerTimeout)
	}
	if c.roundGrace < 0 {
		return fmt.Errorf("invalid round grace period: %s", c.roundGrace)
	}
	if c.probeTimeout <= 0 {
		return fmt.Errorf("invalid probe timeout: %s", c.probeTimeout)
	}
	if c.quickTime >= c.slowTime {
		return fmt.Errorf("quick answer threshold (%s) must be below slow answer threshold (%s)", c.quickTime, c.slowTime)
	}

	bonuses := make([]roundBonus, 0, len(c.roundBonuses))
	for _, raw := range c.roundBonuses {
		bonus, err := parseRoundBonus(raw)
		if err != nil {
			return err
		}
		bonuses = append(bonuses, bonus)
	}

	c.scoring = scoringParams{
		totalRounds:        c.totalRounds,
		quickAnswerTime:    int(c.quickTime.Milliseconds()),
		quickAnswerScore:   c.quickScore,
		slowAnswerTime:     int(c.slowTime.Milliseconds()),
		slowAnswerScore:    c.slowScore,
		baseScore:          c.baseScore,
		timeDiffMultiplier: c.timeDiffRate,
		maxScoreDiff:       c.maxScoreDiff,
		bonuses:            bonuses,
	}

	return nil
}

// parseRoundBonus parses an INDEX=MULTIPLIER pair, e.g. "-1=1.6".
// Non-negative indices are zero-based round numbers; negative indices
// count back from the final round.
func parseRoundBonus(raw string) (roundBonus, error) {
	left, right, found := strings.Cut(raw, "=")
	if !found {
		return roundBonus{}, fmt.Errorf("invalid round bonus %q (expected INDEX=MULTIPLIER)", raw)
	}

	index, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return roundBonus{}, fmt.Errorf("invalid round bonus index %q: %w", left, err)
	}

	multiplier, err := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if err != nil {
		return roundBonus{}, fmt.Errorf("invalid round bonus multiplier %q: %w", right, err)
	}
	if multiplier <= 0 {
		return roundBonus{}, fmt.Errorf("round bonus multiplier must be positive: %s", right)
	}

	return roundBonus{index: index, multiplier: multiplier}, nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WORDPK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "wordpk",
		Short:         "An authoritative session server for two-player vocabulary battles.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePK(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: WORDPK_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8766, "port to listen on (env: WORDPK_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: WORDPK_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: WORDPK_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: WORDPK_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: WORDPK_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: WORDPK_VERBOSE)")

	fs.StringVar(&cfg.vocabulary, "vocabulary", "vocabulary.json", "path to the vocabulary catalog (env: WORDPK_VOCABULARY)")
	fs.IntVar(&cfg.totalRounds, "total-rounds", 9, "rounds per match (env: WORDPK_TOTAL_ROUNDS)")
	fs.IntVar(&cfg.minDifficulty, "min-difficulty", 1, "only ask words above this difficulty (env: WORDPK_MIN_DIFFICULTY)")
	fs.DurationVar(&cfg.answerTimeout, "answer-timeout", 10*time.Second, "time players have to answer each round (env: WORDPK_ANSWER_TIMEOUT)")
	fs.DurationVar(&cfg.roundGrace, "round-grace", 10*time.Second, "extra time before the server gives up on a round (env: WORDPK_ROUND_GRACE)")
	fs.DurationVar(&cfg.probeTimeout, "probe-timeout", time.Second, "how long to wait on a liveness probe (env: WORDPK_PROBE_TIMEOUT)")

	fs.DurationVar(&cfg.quickTime, "quick-time", time.Second, "answers at or below this latency score full points (env: WORDPK_QUICK_TIME)")
	fs.Float64Var(&cfg.quickScore, "quick-score", 120, "points for a quick lone-correct answer (env: WORDPK_QUICK_SCORE)")
	fs.DurationVar(&cfg.slowTime, "slow-time", 8*time.Second, "answers at or above this latency score minimum points (env: WORDPK_SLOW_TIME)")
	fs.Float64Var(&cfg.slowScore, "slow-score", 50, "points for a slow lone-correct answer (env: WORDPK_SLOW_SCORE)")
	fs.Float64Var(&cfg.baseScore, "base-score", 30, "base points when both players answer correctly (env: WORDPK_BASE_SCORE)")
	fs.Float64Var(&cfg.timeDiffRate, "time-diff-rate", 7, "bonus points per second of latency difference (env: WORDPK_TIME_DIFF_RATE)")
	fs.Float64Var(&cfg.maxScoreDiff, "max-score-diff", 42, "cap on the latency-difference bonus (env: WORDPK_MAX_SCORE_DIFF)")
	fs.StringSliceVar(&cfg.roundBonuses, "round-bonus", []string{"-1=1.6"}, "INDEX=MULTIPLIER score bonus, negative indices count from the last round (env: WORDPK_ROUND_BONUS)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("wordpk v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

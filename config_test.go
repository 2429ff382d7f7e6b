package main

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		bind:          "0.0.0.0",
		port:          8766,
		vocabulary:    "vocabulary.json",
		totalRounds:   9,
		minDifficulty: 1,
		answerTimeout: 10 * time.Second,
		roundGrace:    10 * time.Second,
		probeTimeout:  time.Second,
		quickTime:     time.Second,
		quickScore:    120,
		slowTime:      8 * time.Second,
		slowScore:     50,
		baseScore:     30,
		timeDiffRate:  7,
		maxScoreDiff:  42,
		roundBonuses:  []string{"-1=1.6"},
	}
}

func TestValidateDerivesScoringParams(t *testing.T) {
	cfg := validConfig()

	if err := cfg.validate(); err != nil {
		t.Fatal(err)
	}

	s := cfg.scoring
	if s.totalRounds != 9 || s.quickAnswerTime != 1000 || s.slowAnswerTime != 8000 {
		t.Errorf("unexpected scoring params: %+v", s)
	}
	if len(s.bonuses) != 1 || s.bonuses[0].index != -1 || s.bonuses[0].multiplier != 1.6 {
		t.Errorf("unexpected bonuses: %+v", s.bonuses)
	}
	if got := s.roundMultiplier(9); got != 1.6 {
		t.Errorf("roundMultiplier(9) = %v, want 1.6", got)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.port = 0 }},
		{"tls cert without key", func(c *Config) { c.tlsCert = "cert.pem" }},
		{"missing vocabulary", func(c *Config) { c.vocabulary = "" }},
		{"zero rounds", func(c *Config) { c.totalRounds = 0 }},
		{"zero answer timeout", func(c *Config) { c.answerTimeout = 0 }},
		{"negative grace", func(c *Config) { c.roundGrace = -time.Second }},
		{"zero probe timeout", func(c *Config) { c.probeTimeout = 0 }},
		{"quick above slow", func(c *Config) { c.quickTime = 9 * time.Second }},
		{"malformed bonus", func(c *Config) { c.roundBonuses = []string{"oops"} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			if err := cfg.validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestParseRoundBonus(t *testing.T) {
	bonus, err := parseRoundBonus("-1=1.6")
	if err != nil {
		t.Fatal(err)
	}
	if bonus.index != -1 || bonus.multiplier != 1.6 {
		t.Errorf("parsed %+v, want {-1 1.6}", bonus)
	}

	bonus, err = parseRoundBonus(" 0 = 2.0 ")
	if err != nil {
		t.Fatal(err)
	}
	if bonus.index != 0 || bonus.multiplier != 2.0 {
		t.Errorf("parsed %+v, want {0 2}", bonus)
	}

	for _, raw := range []string{"", "nope", "x=1", "1=y", "2=-1"} {
		if _, err := parseRoundBonus(raw); err == nil {
			t.Errorf("parseRoundBonus(%q) succeeded, expected an error", raw)
		}
	}
}

package main

import (
	"math"
	"sort"
)

// roundBonus scales the score of one round. Non-negative indices are
// zero-based round numbers; negative indices count back from the final
// round, so {-1, 1.6} always targets the last round.
type roundBonus struct {
	index      int
	multiplier float64
}

type scoringParams struct {
	totalRounds        int
	quickAnswerTime    int // ms
	quickAnswerScore   float64
	slowAnswerTime     int // ms
	slowAnswerScore    float64
	baseScore          float64
	timeDiffMultiplier float64 // per second of latency difference
	maxScoreDiff       float64
	bonuses            []roundBonus
}

func defaultScoringParams(totalRounds int) scoringParams {
	return scoringParams{
		totalRounds:        totalRounds,
		quickAnswerTime:    1000,
		quickAnswerScore:   120,
		slowAnswerTime:     8000,
		slowAnswerScore:    50,
		baseScore:          30,
		timeDiffMultiplier: 7,
		maxScoreDiff:       42,
		bonuses:            []roundBonus{{index: -1, multiplier: 1.6}},
	}
}

// roundMultiplier looks up the score multiplier for a 1-based round number.
func (p scoringParams) roundMultiplier(round int) float64 {
	zeroBased := round - 1
	for _, b := range p.bonuses {
		actual := b.index
		if actual < 0 {
			actual = p.totalRounds + b.index
		}
		if zeroBased == actual {
			return b.multiplier
		}
	}
	return 1.0
}

// interpolatedScore converts a lone-correct answer's latency into points:
// full points up to the quick threshold, minimum points past the slow
// threshold, linear in between.
func (p scoringParams) interpolatedScore(latencyMs int) float64 {
	switch {
	case latencyMs <= p.quickAnswerTime:
		return p.quickAnswerScore
	case latencyMs >= p.slowAnswerTime:
		return p.slowAnswerScore
	default:
		span := float64(p.slowAnswerTime - p.quickAnswerTime)
		elapsed := float64(latencyMs - p.quickAnswerTime)
		return p.quickAnswerScore - elapsed/span*(p.quickAnswerScore-p.slowAnswerScore)
	}
}

// answerEntry is one player's recorded answer for a round.
type answerEntry struct {
	name      string
	answer    string
	latencyMs int
}

type roundOutcome struct {
	bothCorrect bool
	winner      string // empty when the round had no winner
	scoreAdded  int
	wrongAnswer string
}

// resolveRound computes a round's verdict from the recorded answers.
// It is a pure function: scores are applied by the caller.
func (p scoringParams) resolveRound(entries []answerEntry, correct string, multiplier float64) roundOutcome {
	var right, wrong []answerEntry
	for _, e := range entries {
		if e.answer == correct {
			right = append(right, e)
		} else {
			wrong = append(wrong, e)
		}
	}

	switch len(right) {
	case 2:
		sort.Slice(right, func(i, j int) bool {
			return right[i].latencyMs < right[j].latencyMs
		})

		// Identical latencies cancel out: nobody scores.
		if right[0].latencyMs == right[1].latencyMs {
			return roundOutcome{bothCorrect: true}
		}

		diffSeconds := float64(right[1].latencyMs-right[0].latencyMs) / 1000
		delta := math.Min(
			p.baseScore+diffSeconds*p.timeDiffMultiplier,
			p.baseScore+p.maxScoreDiff,
		)

		return roundOutcome{
			bothCorrect: true,
			winner:      right[0].name,
			scoreAdded:  int(math.Round(delta * multiplier)),
		}

	case 1:
		outcome := roundOutcome{
			winner:     right[0].name,
			scoreAdded: int(math.Round(p.interpolatedScore(right[0].latencyMs) * multiplier)),
		}
		if len(wrong) > 0 {
			outcome.wrongAnswer = wrong[0].answer
		}
		return outcome

	default:
		return roundOutcome{}
	}
}

// clampLatency bounds a client-reported latency to [0, maxMs]. Reported
// values past the timeout are a timing anomaly, not an error.
func clampLatency(latencyMs, maxMs int) int {
	if latencyMs < 0 {
		return 0
	}
	if latencyMs > maxMs {
		return maxMs
	}
	return latencyMs
}

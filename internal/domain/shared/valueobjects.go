package shared

import (
	"math"
)

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents cumulative experience points. XP only grows.
type XP int

// MinXP is the lower bound for any XP value.
const MinXP XP = 0

// IsValid checks if the XP value is within valid range.
func (x XP) IsValid() bool {
	return x >= MinXP
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add returns x plus amount. Negative amounts are rejected.
func (x XP) Add(amount int) (XP, error) {
	if amount < 0 {
		return x, ErrNegativeXP
	}
	return x + XP(amount), nil
}

// Level maps cumulative XP to a level.
// Below 100 XP the level is 1, otherwise floor(sqrt(xp/100)) + 1.
func (x XP) Level() Level {
	if x < 100 {
		return MinLevel
	}
	return Level(isqrt(int(x)/100) + 1)
}

// ProgressPercent returns progress from the level's threshold to the next
// one, clamped to [0, 100]. At or past the next threshold it is 100.
func (x XP) ProgressPercent(level Level) float64 {
	current := level.Threshold()
	next := level.Next().Threshold()
	if int(x) >= next {
		return 100
	}
	span := next - current
	if span <= 0 {
		return 100
	}
	p := float64(int(x)-current) / float64(span) * 100
	return math.Max(0, math.Min(100, p))
}

// ToNextLevel returns XP left until the level after the given one.
// It is negative only while a stale level has not been recomputed yet.
func (x XP) ToNextLevel(level Level) int {
	return level.Next().Threshold() - int(x)
}

// isqrt returns floor(sqrt(n)) for n >= 0 without float rounding surprises.
func isqrt(n int) int {
	if n < 2 {
		return n
	}
	r := int(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Level is a tier derived from XP via quadratic thresholds.
type Level int

// MinLevel is the level every user starts at.
const MinLevel Level = 1

// IsValid checks if the level is within valid range.
func (l Level) IsValid() bool {
	return l >= MinLevel
}

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// Next returns the following level.
func (l Level) Next() Level {
	return l + 1
}

// Threshold returns the XP at which this level begins: (n-1)^2 * 100.
func (l Level) Threshold() int {
	if l <= MinLevel {
		return 0
	}
	n := int(l) - 1
	return n * n * 100
}

// ═══════════════════════════════════════════════════════════════════════════
// Accuracy Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Accuracy is a percentage in [0, 100].
type Accuracy float64

// AccuracyOf returns correct/total as a percentage; 0 when total is 0.
func AccuracyOf(correct, total int) Accuracy {
	if total <= 0 {
		return 0
	}
	return Accuracy(float64(correct) / float64(total) * 100)
}

// Rounded returns the accuracy rounded to one decimal place for display.
func (a Accuracy) Rounded() float64 {
	return Round1(float64(a))
}

// Float64 returns the raw percentage.
func (a Accuracy) Float64() float64 {
	return float64(a)
}

// Round1 rounds half away from zero to one decimal.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

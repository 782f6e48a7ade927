package backoff

import (
	"math/rand"
	"time"
)

type Config struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

func (c Config) normalized() Config {
	if c.Initial <= 0 {
		c.Initial = 200 * time.Millisecond
	}
	if c.Max <= 0 {
		c.Max = 30 * time.Second
	}
	if c.Max < c.Initial {
		c.Max = c.Initial
	}
	if c.Multiplier <= 1 {
		c.Multiplier = 2
	}
	return c
}

// Delay returns the wait before the given attempt (1-based): Initial for the
// first attempt, multiplied for each further one and capped at Max.
func (c Config) Delay(attempt int) time.Duration {
	c = c.normalized()
	if attempt < 1 {
		attempt = 1
	}
	current := float64(c.Initial)
	for i := 1; i < attempt; i++ {
		current *= c.Multiplier
		if current >= float64(c.Max) {
			current = float64(c.Max)
			break
		}
	}
	interval := time.Duration(current)
	if c.Jitter > 0 {
		span := float64(interval) * c.Jitter
		interval = interval + time.Duration((rand.Float64()*2-1)*span)
		if interval < 0 {
			interval = c.Initial
		}
	}
	return interval
}

package auth

import (
	"crypto/rand"
	"math/big"
	"time"
)

// TimingConfig holds the minimum duration of a failed credential check
type TimingConfig struct {
	BaseDelay      time.Duration
	RandomDelay    time.Duration // upper bound of the random jitter
	DelayOnSuccess bool
}

// TimingDelay pads credential checks so "unknown email" and "wrong password"
// take about the same time.
type TimingDelay struct {
	config TimingConfig
	sleep  func(time.Duration)
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
		sleep:  time.Sleep,
	}
}

// WaitFrom sleeps until at least BaseDelay plus jitter has passed since startTime
func (td *TimingDelay) WaitFrom(startTime time.Time, success bool) {
	if success && !td.config.DelayOnSuccess {
		return
	}

	target := td.config.BaseDelay + td.jitter()
	if elapsed := time.Since(startTime); elapsed < target {
		td.sleep(target - elapsed)
	}
}

func (td *TimingDelay) jitter() time.Duration {
	if td.config.RandomDelay <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(td.config.RandomDelay)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}

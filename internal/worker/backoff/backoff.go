package backoff

import (
	"math"
	"time"
)

// Base is the delay before the first retry.
const Base = 30 * time.Second

// Delay returns the delay before the given retry: 30s, 60s, 120s, 240s and so on.
func Delay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}

	return time.Duration(math.Pow(2, float64(retryCount))) * Base
}

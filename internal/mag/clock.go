package mag

import "time"

// Clock abstracts the inter-sample delay so calibration runs are testable
// without real wall-clock waits.
type Clock interface {
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

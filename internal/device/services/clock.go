package services

import "time"

// Clock supplies the current time to the throttle and trigger pipeline.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

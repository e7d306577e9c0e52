package core

import "time"

// Observer receives controller activity for metrics.
type Observer interface {
	ControlChanged(control string)
	ViewComputed(size int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ControlChanged(string)           {}
func (nopObserver) ViewComputed(int, time.Duration) {}

package service

import "time"

// Scheduler runs deferred work. The only deferred work in the bot is channel deletion
// after a close, which is never cancelled.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// TimerScheduler runs fn on its own goroutine once d elapses.
type TimerScheduler struct{}

func (TimerScheduler) After(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

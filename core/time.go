// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"
)

// NewTime creates a new time service
func NewTime(cfg TimeConfiguration) *Time {
	t := &Time{
		fps:            cfg.FramesPerSecond,
		eventPollDelay: time.Duration(cfg.EventPollDelay) * time.Millisecond,
	}
	if cfg.FramesPerSecond > 0 {
		t.fpsTicker = time.NewTicker(time.Second / time.Duration(cfg.FramesPerSecond))
	}
	if t.eventPollDelay > 0 {
		t.eventTicker = time.NewTicker(t.eventPollDelay)
	}
	return t
}

// Time contains all the time services and tickers
type Time struct {
	fps       int
	fpsTicker *time.Ticker

	eventPollDelay time.Duration
	eventTicker    *time.Ticker
}

// Fps gets the set frames per second, zero is unlimited.
func (t *Time) Fps() int {
	return t.fps
}

// FrameTick returns the channel frames are paced by. It is nil when the
// frame rate is unlimited.
func (t *Time) FrameTick() <-chan time.Time {
	if t.fpsTicker == nil {
		return nil
	}
	return t.fpsTicker.C
}

// EventTick returns the channel window events are polled by, nil when
// events are polled between every frame.
func (t *Time) EventTick() <-chan time.Time {
	if t.eventTicker == nil {
		return nil
	}
	return t.eventTicker.C
}

// EventPollDelay returns the delay between event polls.
func (t *Time) EventPollDelay() time.Duration {
	return t.eventPollDelay
}

// Stop stops the tickers.
func (t *Time) Stop() {
	if t.fpsTicker != nil {
		t.fpsTicker.Stop()
	}
	if t.eventTicker != nil {
		t.eventTicker.Stop()
	}
}

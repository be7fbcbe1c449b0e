package main

import (
	"context"
	"log/slog"

	"github.com/eiannone/keyboard"
)

// watchKeys reads the terminal in raw mode until ctx ends or the returned
// cleanup runs. "r" requests a poll through wake; "q" and Ctrl-C call stop,
// since raw mode swallows the interrupt signal. cleanup restores the
// terminal and must run before the process exits.
func watchKeys(ctx context.Context, stop context.CancelFunc, wake chan<- struct{}) (cleanup func(), err error) {
	keys, err := keyboard.GetKeys(10)
	if err != nil {
		return nil, err
	}

	quit := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		for {
			select {
			case <-ctx.Done():
				return
			case <-quit:
				return
			case ev, ok := <-keys:
				if !ok {
					return
				}
				if ev.Err != nil {
					slog.Warn("keyboard read failed", "error", ev.Err)
					return
				}
				if !handleKey(ev, stop, wake) {
					return
				}
			}
		}
	}()

	return func() {
		close(quit)
		<-exited
		if err := keyboard.Close(); err != nil {
			slog.Warn("restoring terminal failed", "error", err)
		}
	}, nil
}

// handleKey acts on one key press and reports whether to keep reading.
func handleKey(ev keyboard.KeyEvent, stop context.CancelFunc, wake chan<- struct{}) bool {
	switch {
	case ev.Key == keyboard.KeyCtrlC, ev.Rune == 'q', ev.Rune == 'Q':
		stop()
		return false
	case ev.Rune == 'r', ev.Rune == 'R':
		requestPoll(wake)
	}
	return true
}

// requestPoll never blocks; a request already queued is enough.
func requestPoll(wake chan<- struct{}) {
	select {
	case wake <- struct{}{}:
	default:
	}
}

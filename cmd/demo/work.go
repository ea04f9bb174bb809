//go:build ignore

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// pause models a fixed unit of work.
//instrument:INFO
func pause() {
	time.Sleep(10 * time.Millisecond)
}

// greet returns the canonical demo payload.
//instrument:INFO
func greet() (string, error) {
	time.Sleep(10 * time.Millisecond)
	return "hello world", nil
}

// fetchMissing always fails, feeding the error counter.
//instrument:INFO ctx=my_context
func fetchMissing() (string, error) {
	time.Sleep(10 * time.Millisecond)
	return "", errors.New("no such feed")
}

// refreshFeed simulates refreshing one feed URL, rejecting anything that
// is not http or https.
//instrument:WARN err=ERROR ctx=feeds fmt="refresh feed => %v"
func refreshFeed(url string) error {
	time.Sleep(5 * time.Millisecond)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("unsupported feed url %q", url)
	}
	return nil
}

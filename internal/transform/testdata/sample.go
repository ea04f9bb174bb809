//go:build ignore

package sample

import (
	"errors"
	"time"
)

var errUnavailable = errors.New("feed unavailable")

// Store caches resolved feeds.
type Store struct {
	feeds map[string]string
}

// resolveFeed resolves the upstream URL for a feed id.
//instrument:INFO
func resolveFeed(id string) (string, error) {
	time.Sleep(10 * time.Millisecond)
	if id == "" {
		return "", errUnavailable
	}
	return "https://feeds.example.com/" + id, nil
}

// pruneCache drops expired entries and reports how many were removed.
//instrument:DEBUG ctx=housekeeping
func pruneCache() (removed int) {
	removed = 3
	return
}

//instrument:WARN err=ERROR fmt="store refresh => %v"
func (s *Store) Refresh(id string) error {
	url, err := resolveFeed(id)
	if err != nil {
		return err
	}
	s.feeds[id] = url
	return nil
}

// tick advances the clock without logging.
//instrument:ctx=ticker
func tick() {
	time.Sleep(time.Millisecond)
}

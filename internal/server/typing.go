package server

import (
	"sort"
	"sync"
)

// TypingTracker holds the transient set of usernames typing in each
// channel. The server relays raw start/stop events without debouncing, so
// both operations tolerate redundant calls; the returned bool reports
// whether membership actually changed and gates re-broadcast.
type TypingTracker struct {
	mu       sync.Mutex
	channels map[string]map[string]struct{}
}

func NewTypingTracker() *TypingTracker {
	return &TypingTracker{
		channels: make(map[string]map[string]struct{}),
	}
}

func (tt *TypingTracker) Start(chatId, username string) bool {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	typists, ok := tt.channels[chatId]
	if !ok {
		typists = make(map[string]struct{})
		tt.channels[chatId] = typists
	}

	if _, present := typists[username]; present {
		return false
	}

	typists[username] = struct{}{}
	return true
}

func (tt *TypingTracker) Stop(chatId, username string) bool {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	return tt.stopLocked(chatId, username)
}

func (tt *TypingTracker) stopLocked(chatId, username string) bool {
	typists, ok := tt.channels[chatId]
	if !ok {
		return false
	}

	if _, present := typists[username]; !present {
		return false
	}

	delete(typists, username)
	if len(typists) == 0 {
		delete(tt.channels, chatId)
	}

	return true
}

// StopAll clears the username from every channel and returns the ids of
// the channels it was removed from. Used when a connection drops.
func (tt *TypingTracker) StopAll(username string) []string {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	var cleared []string
	for chatId := range tt.channels {
		if tt.stopLocked(chatId, username) {
			cleared = append(cleared, chatId)
		}
	}

	sort.Strings(cleared)
	return cleared
}

// Typists returns the usernames typing in a channel, sorted.
func (tt *TypingTracker) Typists(chatId string) []string {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	typists := make([]string, 0, len(tt.channels[chatId]))
	for username := range tt.channels[chatId] {
		typists = append(typists, username)
	}

	sort.Strings(typists)
	return typists
}

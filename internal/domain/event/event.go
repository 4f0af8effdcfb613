package event

// Package event contains the read models for the campus events and
// notifications feeds, plus their small pure derivations.

import (
	"sort"
	"time"
)

// Event is one campus event record.
type Event struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"startsAt"`
	Location string    `json:"location"`
	Category string    `json:"category"`
}

// Partition splits events into upcoming and past relative to now, each
// ordered soonest-first.
func Partition(events []Event, now time.Time) (upcoming, past []Event) {
	for _, e := range events {
		if e.StartsAt.Before(now) {
			past = append(past, e)
		} else {
			upcoming = append(upcoming, e)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].StartsAt.Before(upcoming[j].StartsAt) })
	sort.SliceStable(past, func(i, j int) bool { return past[i].StartsAt.After(past[j].StartsAt) })
	return upcoming, past
}

// Notice is one in-app notification feed entry.
type Notice struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
	Read    bool      `json:"read"`
}

// UnreadCount returns the number of unread notices.
func UnreadCount(notices []Notice) int {
	n := 0
	for _, nt := range notices {
		if !nt.Read {
			n++
		}
	}
	return n
}

// MarkRead returns a copy of notices with the matching notice marked read.
// An unknown id returns the input unchanged.
func MarkRead(notices []Notice, id string) []Notice {
	out := make([]Notice, len(notices))
	copy(out, notices)
	for i := range out {
		if out[i].ID == id {
			out[i].Read = true
			break
		}
	}
	return out
}

// MarkAllRead returns a copy of notices with every notice marked read.
func MarkAllRead(notices []Notice) []Notice {
	out := make([]Notice, len(notices))
	copy(out, notices)
	for i := range out {
		out[i].Read = true
	}
	return out
}

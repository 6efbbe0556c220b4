// Package view composes normalized threads and messages into the shapes the
// client renders: filtered and sorted thread lists, conversation/system
// grouping, and per-thread message views with institutional blocks and a
// pinned area for critical notices.
package view

import (
	"sort"
	"strings"

	"arenachat/pkg/models"
)

// FilterAll is the catch-all kind filter.
const FilterAll = "all"

// pinnedMax caps the pinned critical-notice area.
const pinnedMax = 3

// Filter selects which threads are visible.
type Filter struct {
	// Kind is a thread kind name or FilterAll.
	Kind string
	// Query is matched as a case-insensitive substring against title, kind,
	// context label, participant labels, and preview. Empty matches all.
	Query string
}

// Visible returns the threads matching the filter, in input order.
func Visible(threads []models.Thread, f Filter) []models.Thread {
	kind := strings.ToLower(strings.TrimSpace(f.Kind))
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]models.Thread, 0, len(threads))
	for _, th := range threads {
		if kind != "" && kind != FilterAll && string(th.Kind) != kind {
			continue
		}
		if query != "" && !matches(th, query) {
			continue
		}
		out = append(out, th)
	}
	return out
}

func matches(th models.Thread, query string) bool {
	haystacks := []string{th.Title, string(th.Kind), th.ContextLabel, th.Preview}
	haystacks = append(haystacks, th.Participants...)
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), query) {
			return true
		}
	}
	return false
}

// SortThreads orders threads by most recent activity first. Threads with no
// timestamps at all sink to the bottom; ties keep their input order.
func SortThreads(threads []models.Thread) []models.Thread {
	out := make([]models.Thread, len(threads))
	copy(out, threads)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ActivityTS() > out[j].ActivityTS()
	})
	return out
}

// Grouped is a thread list split for rendering: interpersonal and
// operational conversations first, system threads subordinate.
type Grouped struct {
	Conversations []models.Thread `json:"conversations"`
	System        []models.Thread `json:"system"`
}

// Group filters, splits, and sorts threads for display. System-kind threads
// form their own independently ordered group.
func Group(threads []models.Thread, f Filter) Grouped {
	var g Grouped
	for _, th := range Visible(threads, f) {
		if th.Kind == models.ThreadKindSystem {
			g.System = append(g.System, th)
		} else {
			g.Conversations = append(g.Conversations, th)
		}
	}
	g.Conversations = SortThreads(g.Conversations)
	g.System = SortThreads(g.System)
	return g
}

// Item is one rendered message. Institutional items carry kind and severity
// badges instead of a personal chat bubble; Mine marks the viewer's own
// bubbles.
type Item struct {
	models.Message
	Mine          bool `json:"mine"`
	Institutional bool `json:"institutional"`
}

// Thread is a fully composed per-thread view: the scrollable history in
// chronological order, the pinned critical notices above it, and the
// composer gate.
type Thread struct {
	Items  []Item `json:"items"`
	Pinned []Item `json:"pinned"`
	// CanCompose is false when the thread rejects sends; Notice then carries
	// the standing read-only reason.
	CanCompose bool   `json:"can_compose"`
	Notice     string `json:"notice,omitempty"`
}

// Viewer is the identity composition runs for.
type Viewer struct {
	ID   string
	Kind models.AuthorKind
}

// Compose builds the message view for one thread. Critical institutional
// messages not authored by the viewer's own kind are pinned, newest first,
// capped at the three most recent.
func Compose(th models.Thread, msgs []models.Message, viewer Viewer) Thread {
	items := make([]Item, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, Item{
			Message:       m,
			Mine:          m.Kind == models.MessageUser && viewer.ID != "" && m.SenderID == viewer.ID,
			Institutional: m.Institutional(),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedTS < items[j].CreatedTS
	})

	var pinned []Item
	for _, it := range items {
		if it.Institutional && it.Severity == models.SeverityCritical && it.AuthorKind != viewer.Kind {
			pinned = append(pinned, it)
		}
	}
	if len(pinned) > pinnedMax {
		pinned = pinned[len(pinned)-pinnedMax:]
	}
	// newest first in the pinned area
	for i, j := 0, len(pinned)-1; i < j; i, j = i+1, j-1 {
		pinned[i], pinned[j] = pinned[j], pinned[i]
	}

	v := Thread{Items: items, Pinned: pinned}
	v.CanCompose, v.Notice = th.AcceptsMessages()
	if v.CanCompose {
		v.Notice = ""
	}
	return v
}

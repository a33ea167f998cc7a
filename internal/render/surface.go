// Package render keeps the in-memory mirror of what a view should display:
// one card per participant, media elements tagged by track id. Surfaces are
// mutated only by the media controller and its transport observers; the
// console reads snapshots.
package render

import (
	"sync"

	"github.com/calixio/calixio-client/internal/domain"
)

const unknownParticipant = "unknown"

// ParticipantKey resolves the stable container key for a participant:
// session id, then identity, then the "unknown" sentinel.
func ParticipantKey(sid, identity string) string {
	if sid != "" {
		return sid
	}
	if identity != "" {
		return identity
	}
	return unknownParticipant
}

// Element is one rendered audio/video element.
type Element struct {
	TrackID domain.TrackID
	Kind    domain.TrackKind
	Volume  float64
}

// Card is one participant's visual container.
type Card struct {
	Key      string
	Header   string
	Elements []Element
}

type Surface struct {
	mu    sync.Mutex
	cards map[string]*Card
	order []string
}

func NewSurface() *Surface {
	return &Surface{cards: make(map[string]*Card)}
}

// Attach resolves or creates the participant's card and appends the element.
func (s *Surface) Attach(sid, identity string, el Element) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ParticipantKey(sid, identity)
	card, ok := s.cards[key]
	if !ok {
		header := identity
		if header == "" {
			header = key
		}
		card = &Card{Key: key, Header: header}
		s.cards[key] = card
		s.order = append(s.order, key)
	}
	card.Elements = append(card.Elements, el)
}

// RemoveTrack detaches every element tagged with the track id and drops any
// card left without media children.
func (s *Surface) RemoveTrack(id domain.TrackID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, card := range s.cards {
		kept := card.Elements[:0]
		for _, el := range card.Elements {
			if el.TrackID != id {
				kept = append(kept, el)
			}
		}
		card.Elements = kept
		if len(card.Elements) == 0 {
			s.dropCard(key)
		}
	}
}

// RemoveParticipant removes the participant's card outright, regardless of
// remaining children.
func (s *Surface) RemoveParticipant(sid, identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropCard(ParticipantKey(sid, identity))
}

func (s *Surface) dropCard(key string) {
	if _, ok := s.cards[key]; !ok {
		return
	}
	delete(s.cards, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = make(map[string]*Card)
	s.order = nil
}

// SetVolumeAll updates the volume of every rendered element.
func (s *Surface) SetVolumeAll(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, card := range s.cards {
		for i := range card.Elements {
			card.Elements[i].Volume = volume
		}
	}
}

// Snapshot returns a deep copy in attach order for rendering or assertions.
func (s *Surface) Snapshot() []Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Card, 0, len(s.order))
	for _, key := range s.order {
		card := s.cards[key]
		cp := Card{Key: card.Key, Header: card.Header}
		cp.Elements = append(cp.Elements, card.Elements...)
		out = append(out, cp)
	}
	return out
}

func (s *Surface) CardCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cards)
}

func (s *Surface) HasCard(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cards[key]
	return ok
}

package card

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"
)

type ShoeOpt func(*Shoe)

// Shoe is a self-replenishing 52-card source. Drawing from an empty shoe
// refills it with a freshly shuffled deck first.
type Shoe struct {
	mu    sync.Mutex
	rng   *rand.Rand
	stack []Card
	cards []Card
}

func NewShoe(opts ...ShoeOpt) *Shoe {
	s := &Shoe{}
	for _, opt := range opts {
		opt(s)
	}

	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(newSeed()))
	}

	s.Reset()
	return s
}

func WithRand(rng *rand.Rand) ShoeOpt {
	return func(s *Shoe) {
		s.rng = rng
	}
}

// WithStack fixes the draw order after every reset: the stacked cards come
// first, followed by the rest of the deck in canonical order.
func WithStack(cards ...Card) ShoeOpt {
	return func(s *Shoe) {
		s.stack = append([]Card{}, cards...)
	}
}

// NewDeck returns the 52 cards in canonical order.
func NewDeck() []Card {
	cards := make([]Card, 0, len(Suits)*len(Ranks))
	for _, suit := range Suits {
		for _, rank := range Ranks {
			cards = append(cards, NewCard(rank, suit))
		}
	}
	return cards
}

func (s *Shoe) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
}

func (s *Shoe) Draw() Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cards) == 0 {
		s.reset()
	}

	c := s.cards[0]
	s.cards = s.cards[1:]
	return c
}

func (s *Shoe) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.cards)
}

func (s *Shoe) reset() {
	if s.stack != nil {
		s.cards = stackedDeck(s.stack)
		return
	}

	cards := NewDeck()

	// Fisher-Yates
	for i := len(cards) - 1; i > 0; i-- {
		j := s.rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}

	s.cards = cards
}

func stackedDeck(stack []Card) []Card {
	used := make(map[Card]bool, len(stack))
	cards := make([]Card, 0, 52)
	for _, c := range stack {
		if used[c] {
			continue
		}
		used[c] = true
		cards = append(cards, c)
	}

	for _, c := range NewDeck() {
		if !used[c] {
			cards = append(cards, c)
		}
	}

	return cards
}

func newSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

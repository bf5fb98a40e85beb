package card

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCard = errors.New("card: invalid card")
)

type Rank byte
type Suit byte

var (
	Ranks = []Rank{'2', '3', '4', '5', '6', '7', '8', '9', 'T', 'J', 'Q', 'K', 'A'}
	Suits = []Suit{'C', 'D', 'H', 'S'}
)

// Card is a rank-suit pair such as "AS" or "TD".
type Card struct {
	Rank Rank
	Suit Suit
}

func NewCard(r Rank, s Suit) Card {
	return Card{Rank: r, Suit: s}
}

func ParseCard(s string) (Card, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) == 3 && strings.HasPrefix(s, "10") {
		s = "T" + s[2:]
	}

	if len(s) != 2 {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}

	c := Card{Rank: Rank(s[0]), Suit: Suit(s[1])}
	if !c.IsValid() {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}

	return c, nil
}

// MustParseCards parses space separated cards and panics on failure.
func MustParseCards(s string) []Card {
	fields := strings.Fields(s)
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			panic(err)
		}
		cards = append(cards, c)
	}
	return cards
}

func (c Card) IsValid() bool {
	return validRank(c.Rank) && validSuit(c.Suit)
}

// Value returns the blackjack value of the card with aces counted as 11.
func (c Card) Value() int {
	switch c.Rank {
	case 'A':
		return 11
	case 'T', 'J', 'Q', 'K':
		return 10
	default:
		return int(c.Rank - '0')
	}
}

func (c Card) IsAce() bool {
	return c.Rank == 'A'
}

func (c Card) String() string {
	return string([]byte{byte(c.Rank), byte(c.Suit)})
}

func (c Card) MarshalText() ([]byte, error) {
	if !c.IsValid() {
		return nil, ErrInvalidCard
	}
	return []byte(c.String()), nil
}

func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func validRank(r Rank) bool {
	for _, rank := range Ranks {
		if rank == r {
			return true
		}
	}
	return false
}

func validSuit(s Suit) bool {
	for _, suit := range Suits {
		if suit == s {
			return true
		}
	}
	return false
}

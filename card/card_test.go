package card

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	testCases := []struct {
		cards    string
		expected int
	}{
		{"", 0},
		{"AS AD 9C", 21},
		{"AS AD AC", 13},
		{"KS QD", 20},
		{"AS KD", 21},
		{"AS 6D", 17},
		{"AS 6D TC", 17},
		{"9S 9D 9C", 27},
		{"AS AD AC AH", 14},
		{"2C 3D 4H 5S", 14},
		{"TS JD QC KH", 40},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Score(MustParseCards(tc.cards)), tc.cards)
	}
}

func TestScore_Bounds(t *testing.T) {
	// a seat may keep hitting only while below 21
	shoe := NewShoe(WithRand(rand.New(rand.NewSource(7))))
	for round := 0; round < 500; round++ {
		var hand Hand
		for hand.Score() < 21 {
			hand = append(hand, shoe.Draw())
			score := hand.Score()
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 30)
		}
	}
}

func TestHand_Natural(t *testing.T) {
	assert.True(t, Hand(MustParseCards("AS KD")).IsNatural())
	assert.False(t, Hand(MustParseCards("7S 7D 7C")).IsNatural())
	assert.False(t, Hand(MustParseCards("AS 9D")).IsNatural())
	assert.True(t, Hand(MustParseCards("KS QD 2C")).IsBust())
}

func TestParseCard(t *testing.T) {
	c, err := ParseCard("10h")
	require.NoError(t, err)
	assert.Equal(t, "TH", c.String())
	assert.Equal(t, 10, c.Value())

	_, err = ParseCard("1X")
	assert.ErrorIs(t, err, ErrInvalidCard)
}

func TestCard_JSON(t *testing.T) {
	hand := Hand(MustParseCards("AS TD 7C"))
	data, err := json.Marshal(hand)
	require.NoError(t, err)
	assert.JSONEq(t, `["AS","TD","7C"]`, string(data))
}

func TestShoe_DrawAllUnique(t *testing.T) {
	shoe := NewShoe()
	assert.Equal(t, 52, shoe.Remaining())

	seen := make(map[Card]bool)
	for i := 0; i < 52; i++ {
		c := shoe.Draw()
		assert.True(t, c.IsValid())
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, 52)
	assert.Equal(t, 0, shoe.Remaining())

	// refills transparently
	shoe.Draw()
	assert.Equal(t, 51, shoe.Remaining())
}

func TestShoe_ResetIsPermutation(t *testing.T) {
	shoe := NewShoe(WithRand(rand.New(rand.NewSource(42))))
	before := shoe.cards
	shoe.Reset()
	after := shoe.cards

	assert.ElementsMatch(t, NewDeck(), before)
	assert.ElementsMatch(t, NewDeck(), after)
}

func TestShoe_Stack(t *testing.T) {
	stack := MustParseCards("AS KD 9C")
	shoe := NewShoe(WithStack(stack...))

	assert.Equal(t, stack[0], shoe.Draw())
	assert.Equal(t, stack[1], shoe.Draw())
	shoe.Reset()
	assert.Equal(t, stack[0], shoe.Draw())
	assert.Equal(t, 51, shoe.Remaining())
	assert.ElementsMatch(t, NewDeck(), append([]Card{stack[0]}, shoe.cards...))
}

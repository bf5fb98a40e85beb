package card

// Hand is an ordered sequence of cards held by a seat or the dealer.
type Hand []Card

/*
Score 計算手牌點數
  - 人頭牌與 10 計 10 點, A 預設計 11 點
  - 超過 21 點時, 逐張將 A 改計 1 點直到不超過 21 或沒有可降的 A
*/
func Score(cards []Card) int {
	score := 0
	aces := 0
	for _, c := range cards {
		if c.IsAce() {
			aces++
		}
		score += c.Value()
	}

	for score > 21 && aces > 0 {
		score -= 10
		aces--
	}

	return score
}

func (h Hand) Score() int {
	return Score(h)
}

// IsNatural reports a two-card 21.
func (h Hand) IsNatural() bool {
	return len(h) == 2 && h.Score() == 21
}

func (h Hand) IsBust() bool {
	return h.Score() > 21
}

func (h Hand) Strings() []string {
	cards := make([]string, 0, len(h))
	for _, c := range h {
		cards = append(cards, c.String())
	}
	return cards
}

func (h Hand) Clone() Hand {
	if h == nil {
		return nil
	}
	cloned := make(Hand, len(h))
	copy(cloned, h)
	return cloned
}

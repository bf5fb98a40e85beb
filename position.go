package cardtable

/*
newPositions 依人數產生從 Dealer 起算的位置
  - 兩人時 Dealer 兼任小盲
  - 三人以上只標記 Dealer, SB, BB, 其餘無位置
*/
func newPositions(playerCount int) [][]string {
	if playerCount < 2 {
		return make([][]string, 0)
	}

	if playerCount == 2 {
		return [][]string{
			{Position_Dealer, Position_SB},
			{Position_BB},
		}
	}

	positions := [][]string{
		{Position_Dealer},
		{Position_SB},
		{Position_BB},
	}
	for i := 3; i < playerCount; i++ {
		positions = append(positions, make([]string, 0))
	}
	return positions
}

// rotateIntArray returns source starting at startIndex, e.g. [0 1 2 3 4] from 2 is [2 3 4 0 1].
func rotateIntArray(source []int, startIndex int) []int {
	if len(source) == 0 {
		return source
	}
	startIndex = startIndex % len(source)

	rotated := make([]int, 0, len(source))
	rotated = append(rotated, source[startIndex:]...)
	return append(rotated, source[:startIndex]...)
}

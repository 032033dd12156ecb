package poker

import "slices"

// Compare orders two hands by strength. It returns a positive number when a
// beats b, a negative number when b beats a and zero on a tie.
func Compare(a, b Hand) int {
	if a.Type != b.Type {
		return a.Rank() - b.Rank()
	}

	switch a.Type {
	case RoyalFlush:
		return 0
	case HighCard, OnePair, TwoPair, ThreeOfAKind, FourOfAKind, FullHouse:
		n := min(len(a.Cards), len(b.Cards))
		for i := range n {
			if diff := -compareAceHigh(a.Cards[i], b.Cards[i]); diff != 0 {
				return diff
			}
		}
		return 0
	default:
		// Straights and flushes are decided by their top card.
		if len(a.Cards) == 0 || len(b.Cards) == 0 {
			return 0
		}
		return -compareAceHigh(a.Cards[0], b.Cards[0])
	}
}

// RankHands returns the hands ordered best first. Tied hands keep their input order.
func RankHands(hands []Hand) []Hand {
	ranked := slices.Clone(hands)
	slices.SortStableFunc(ranked, func(a, b Hand) int {
		return Compare(b, a)
	})
	return ranked
}

// Best returns the indices of the strongest hands; more than one on a tie.
func Best(hands []Hand) []int {
	var best []int
	for i, h := range hands {
		if len(best) == 0 {
			best = append(best, i)
			continue
		}
		switch c := Compare(h, hands[best[0]]); {
		case c > 0:
			best = []int{i}
		case c == 0:
			best = append(best, i)
		}
	}
	return best
}

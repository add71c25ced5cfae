package domain

import "math/rand"

// ReserveSize is the number of bottom cards set aside for the dealer at
// the end of the draw phase.
const ReserveSize = 8

// NewDeck builds the round's draw pile: one 54-card pack (52 cards plus
// both jokers) per pair of players, filtered through card validity.
func NewDeck(players int) []Card {
	packs := (players + 1) / 2
	deck := make([]Card, 0, packs*54)
	for i := 0; i < packs; i++ {
		for _, suit := range Suits {
			if suit == SuitJokers {
				continue
			}
			for rank := 2; rank <= RankAce; rank++ {
				if c := (Card{Suit: suit, Rank: rank}); ValidateCard(c) {
					deck = append(deck, c)
				}
			}
		}
		for _, rank := range []int{RankSmallJoker, RankBigJoker} {
			if c := (Card{Suit: SuitJokers, Rank: rank}); ValidateCard(c) {
				deck = append(deck, c)
			}
		}
	}
	return deck
}

// ShuffleDeck shuffles the deck in place with the provided rng.
func ShuffleDeck(deck []Card, rng *rand.Rand) {
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
}

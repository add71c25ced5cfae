package domain

// Hand is a per-player card multiset: suit -> rank -> copies held.
// Multi-deck play makes duplicate physical cards routine, so hands track
// counts rather than card object lists.
type Hand map[Suit]map[int]int

// NewHand returns an empty hand.
func NewHand() Hand {
	return make(Hand)
}

// Add puts one copy of the card into the hand.
func (h Hand) Add(c Card) {
	ranks, ok := h[c.Suit]
	if !ok {
		ranks = make(map[int]int)
		h[c.Suit] = ranks
	}
	ranks[c.Rank]++
}

// Remove takes one copy of the card out of the hand, clamping at zero.
// Callers are expected to have verified the count beforehand.
func (h Hand) Remove(c Card) {
	ranks, ok := h[c.Suit]
	if !ok {
		return
	}
	if ranks[c.Rank] > 0 {
		ranks[c.Rank]--
	}
	if ranks[c.Rank] == 0 {
		delete(ranks, c.Rank)
	}
	if len(ranks) == 0 {
		delete(h, c.Suit)
	}
}

// Count returns how many copies of the card the hand holds.
func (h Hand) Count(c Card) int {
	return h[c.Suit][c.Rank]
}

// Size returns the total number of cards in the hand.
func (h Hand) Size() int {
	n := 0
	for _, ranks := range h {
		for _, count := range ranks {
			n += count
		}
	}
	return n
}

// Cards flattens the hand to a card list, one entry per physical copy.
func (h Hand) Cards() []Card {
	out := make([]Card, 0, h.Size())
	for suit, ranks := range h {
		for rank, count := range ranks {
			for i := 0; i < count; i++ {
				out = append(out, Card{Suit: suit, Rank: rank})
			}
		}
	}
	return out
}

// GetTrickCount buckets the hand's cards that may follow the led card,
// indexed by how many copies of each distinct card the hand holds. A led
// main-line card makes every main-line card eligible; a led off-suit card
// makes only that suit's plain cards eligible. The legality checker uses
// the buckets to reason separately about singles, pairs and triples.
func GetTrickCount(h Hand, lead Card, t Trump) map[int][]Card {
	buckets := make(map[int][]Card)
	mainLead := IsMainLine(lead, t)
	for _, suit := range Suits {
		ranks := h[suit]
		for rank, count := range ranks {
			if count == 0 {
				continue
			}
			c := Card{Suit: suit, Rank: rank}
			if IsMainLine(c, t) != mainLead {
				continue
			}
			if !mainLead && c.Suit != lead.Suit {
				continue
			}
			buckets[count] = append(buckets[count], c)
		}
	}
	return buckets
}

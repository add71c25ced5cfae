package domain

import "sort"

// Trump is the round's trump declaration. Rank is always meaningful; Suit
// is SuitNone until a suit has been declared. JokerCall marks a joker-bomb
// declaration, which fixes the round to a rank-and-jokers-only trump with
// no trump suit.
type Trump struct {
	Suit      Suit `json:"suit"`
	Rank      int  `json:"rank"`
	JokerCall bool `json:"jokerCall"`
}

// trumpRankSlot is the effective rank shared by every trump-rank card.
// It sits above the ace so the small-trump tier outranks any plain rank.
const trumpRankSlot = RankAce + 1

// CardData is the trump-relative order key of a card. Keys compare
// lexicographically field by field; it is the single source of truth
// for "bigger than" across the engine.
type CardData struct {
	Joker      bool
	SmallTrump bool
	TrumpSuit  bool
	Rank       int
}

// GetCardData maps a card to its order key under the given trump.
func GetCardData(c Card, t Trump) CardData {
	if c.Suit == SuitJokers {
		return CardData{Joker: true, Rank: c.Rank}
	}
	if c.Rank == t.Rank {
		// All trump-rank cards share one slot; the copy in the trump
		// suit itself outranks the off-suit copies.
		return CardData{SmallTrump: true, TrumpSuit: c.Suit == t.Suit, Rank: trumpRankSlot}
	}
	return CardData{TrumpSuit: c.Suit == t.Suit, Rank: c.Rank}
}

func less(a, b CardData) bool {
	if a.Joker != b.Joker {
		return b.Joker
	}
	if a.SmallTrump != b.SmallTrump {
		return b.SmallTrump
	}
	if a.TrumpSuit != b.TrumpSuit {
		return b.TrumpSuit
	}
	return a.Rank < b.Rank
}

// IsMainLine reports whether the card sits in the trump hierarchy:
// jokers, trump-rank cards and trump-suit cards all follow as one suit.
func IsMainLine(c Card, t Trump) bool {
	if c.Suit == SuitJokers || c.Rank == t.Rank {
		return true
	}
	return t.Suit != SuitNone && c.Suit == t.Suit
}

// GetNextCardData returns the order key one step above c in the playable
// sequence. The second return is false when no card follows: the big
// joker tops the order, off-suit aces do not wrap, and the off-suit
// trump-rank copies dead-end below the trump-suit copy.
func GetNextCardData(c Card, t Trump) (CardData, bool) {
	d := GetCardData(c, t)

	if d.Joker {
		if c.Rank == RankBigJoker {
			return CardData{}, false
		}
		return CardData{Joker: true, Rank: RankBigJoker}, true
	}

	if d.SmallTrump {
		if d.TrumpSuit {
			// Big trump steps into the joker tier.
			return CardData{Joker: true, Rank: RankSmallJoker}, true
		}
		return CardData{}, false
	}

	next := d.Rank + 1
	if next == t.Rank {
		// The trump rank lives in the small-trump slot, not in the run.
		next++
	}
	if next > RankAce {
		if d.TrumpSuit {
			return CardData{SmallTrump: true, TrumpSuit: true, Rank: trumpRankSlot}, true
		}
		return CardData{}, false
	}
	return CardData{TrumpSuit: d.TrumpSuit, Rank: next}, true
}

// IsCardAdjacent reports whether a is exactly one step above b. Cards in
// different off-suits are never adjacent even when their keys line up.
func IsCardAdjacent(a, b Card, t Trump) bool {
	next, ok := GetNextCardData(b, t)
	if !ok || GetCardData(a, t) != next {
		return false
	}
	if IsMainLine(a, t) && IsMainLine(b, t) {
		return true
	}
	return a.Suit == b.Suit
}

// IsCardBigger reports whether a strictly outranks b under the trump.
// Equal keys (duplicate cards, or small trumps from different off-suits)
// are not bigger; the earlier-established play wins ties.
func IsCardBigger(a, b Card, t Trump) bool {
	return less(GetCardData(b, t), GetCardData(a, t))
}

// SortCards orders cards descending by trump-relative rank, in place.
func SortCards(cards []Card, t Trump) {
	sort.SliceStable(cards, func(i, j int) bool {
		return IsCardBigger(cards[i], cards[j], t)
	})
}

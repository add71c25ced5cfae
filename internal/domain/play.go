package domain

// Play is one player's contribution to a trick. Suit records the play's
// leading suit for follow-suit checks once it heads a trick; main-line
// plays record the trump suit, or the joker pseudo-suit under a joker
// call.
type Play struct {
	Cards []Card `json:"cards"`
	Suit  Suit   `json:"suit"`
}

// NewPlay builds a play from the given cards, sorted descending, with
// its leading suit derived from the strongest card.
func NewPlay(cards []Card, t Trump) Play {
	sorted := append([]Card(nil), cards...)
	SortCards(sorted, t)
	p := Play{Cards: sorted}
	if len(sorted) > 0 {
		p.Suit = EffectiveSuit(sorted[0], t)
	}
	return p
}

// EffectiveSuit returns the suit a card follows as: main-line cards all
// follow as the trump suit (the joker pseudo-suit when no trump suit is
// in force), plain cards follow as their own suit.
func EffectiveSuit(c Card, t Trump) Suit {
	if !IsMainLine(c, t) {
		return c.Suit
	}
	if t.Suit != SuitNone {
		return t.Suit
	}
	return SuitJokers
}

// Points sums the trick-point value of the played cards.
func (p Play) Points() int {
	total := 0
	for _, c := range p.Cards {
		total += c.Points()
	}
	return total
}

// PlayStruct is the shape of a play: Count is the per-card multiplicity
// (1 singles, 2 pairs, 3 triples), Len the number of distinct cards.
// Len > 1 marks a candidate tractor, which must additionally pass the
// consecutiveness check to be genuine.
type PlayStruct struct {
	Count int
	Len   int
	List  []Card // distinct cards, sorted descending
}

// GetPlayStruct classifies a set of cards. Every distinct card must
// appear at the same multiplicity; anything else has no structure and
// yields the zero PlayStruct.
func GetPlayStruct(cards []Card, t Trump) PlayStruct {
	if len(cards) == 0 {
		return PlayStruct{}
	}

	counts := NewHand()
	for _, c := range cards {
		counts.Add(c)
	}

	maxCount := 0
	distinct := make([]Card, 0, len(cards))
	for suit, ranks := range counts {
		for rank, count := range ranks {
			distinct = append(distinct, Card{Suit: suit, Rank: rank})
			if count > maxCount {
				maxCount = count
			}
		}
	}
	for _, c := range distinct {
		if counts.Count(c) != maxCount {
			return PlayStruct{}
		}
	}

	SortCards(distinct, t)
	return PlayStruct{Count: maxCount, Len: len(distinct), List: distinct}
}

// IsConsecutiveCards reports whether the distinct cards form one
// unbroken run under the adjacency relation.
func IsConsecutiveCards(cards []Card, t Trump) bool {
	if len(cards) == 0 {
		return false
	}
	sorted := append([]Card(nil), cards...)
	SortCards(sorted, t)
	for i := 0; i+1 < len(sorted); i++ {
		if !IsCardAdjacent(sorted[i], sorted[i+1], t) {
			return false
		}
	}
	return true
}

// FindMaxConsecutive segments distinct cards into maximal adjacent runs
// and returns the run lengths, longest first.
func FindMaxConsecutive(cards []Card, t Trump) []int {
	if len(cards) == 0 {
		return nil
	}
	sorted := append([]Card(nil), cards...)
	SortCards(sorted, t)

	var runs []int
	run := 1
	for i := 0; i+1 < len(sorted); i++ {
		if IsCardAdjacent(sorted[i], sorted[i+1], t) {
			run++
			continue
		}
		runs = append(runs, run)
		run = 1
	}
	runs = append(runs, run)

	// Longest first so the legality checker surrenders big tractors
	// before loose material.
	for i := 0; i < len(runs); i++ {
		for j := i + 1; j < len(runs); j++ {
			if runs[j] > runs[i] {
				runs[i], runs[j] = runs[j], runs[i]
			}
		}
	}
	return runs
}

// IsPlayValid checks a candidate play against the trick's lead and the
// player's hand. A nil lead means the play opens the trick and only
// needs ownership plus a coherent shape. A response must match the
// lead's size, exhaust the matching suit before discarding, and
// surrender whole tractors tier by tier before breaking them up.
func IsPlayValid(play Play, lead *Play, h Hand, t Trump) bool {
	if len(play.Cards) == 0 {
		return false
	}

	// The play must be a literal sub-multiset of the hand.
	needed := NewHand()
	for _, c := range play.Cards {
		needed.Add(c)
	}
	for _, c := range needed.Cards() {
		if h.Count(c) < needed.Count(c) {
			return false
		}
	}

	if lead == nil {
		ps := GetPlayStruct(play.Cards, t)
		if ps.Count == 0 {
			return false
		}
		return ps.Len == 1 || IsConsecutiveCards(ps.List, t)
	}

	if len(play.Cards) != len(lead.Cards) {
		return false
	}

	// The lead is assumed valid by precondition; a structureless lead
	// degrades to no tier obligations.
	leadStruct := GetPlayStruct(lead.Cards, t)
	leadCard := lead.Cards[0]

	handBuckets := GetTrickCount(h, leadCard, t)
	playBuckets := GetTrickCount(needed, leadCard, t)

	// Suit exhaustion: matching cards may not be withheld in favor of
	// off-suit discards while enough remain to cover the play.
	avail := 0
	for count, cards := range handBuckets {
		avail += count * len(cards)
	}
	used := 0
	for count, cards := range playBuckets {
		used += count * len(cards)
	}
	required := avail
	if required > len(play.Cards) {
		required = len(play.Cards)
	}
	if used < required {
		return false
	}

	// Tier by tier, from the lead's multiplicity down to pairs: runs
	// available in the hand must be covered by runs actually played,
	// up to the tractor slots the lead demands.
	for tier := leadStruct.Count; tier >= 2; tier-- {
		var handTier, playTier []Card
		for count, cards := range handBuckets {
			if count >= tier {
				handTier = append(handTier, cards...)
			}
		}
		for count, cards := range playBuckets {
			if count >= tier {
				playTier = append(playTier, cards...)
			}
		}

		handRuns := FindMaxConsecutive(handTier, t)
		playRuns := FindMaxConsecutive(playTier, t)

		remaining := leadStruct.Len
		for i, hr := range handRuns {
			if remaining <= 0 {
				break
			}
			want := hr
			if want > remaining {
				want = remaining
			}
			got := 0
			if i < len(playRuns) {
				got = playRuns[i]
			}
			if got < want {
				return false
			}
			remaining -= want
		}
	}

	return true
}

// IsPlayFormatted reports whether two plays share the same shape.
func IsPlayFormatted(a, b PlayStruct) bool {
	return a.Count == b.Count && a.Len == b.Len
}

// IsPlayBigger reports whether play a beats play b. Both plays are
// assumed individually valid; a must match b's shape and leading suit
// and strictly outrank it card for card. A malformed or incomparable
// challenge never beats the lead.
func IsPlayBigger(a, b Play, t Trump) bool {
	pa := GetPlayStruct(a.Cards, t)
	pb := GetPlayStruct(b.Cards, t)
	if pa.Count == 0 || !IsPlayFormatted(pa, pb) {
		return false
	}
	if a.Suit != b.Suit {
		return false
	}
	if pa.Len > 1 && !IsConsecutiveCards(pa.List, t) {
		return false
	}
	for i := range pa.List {
		if !IsCardBigger(pa.List[i], pb.List[i], t) {
			return false
		}
	}
	return true
}

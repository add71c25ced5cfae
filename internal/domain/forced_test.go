package domain

import "testing"

func TestForcedPlayLead(t *testing.T) {
	trump := Trump{Suit: SuitSpades, Rank: 2}
	h := handOf(
		group(Card{Suit: SuitHearts, Rank: 4}, 1),
		group(Card{Suit: SuitSpades, Rank: RankKing}, 2),
		group(Card{Suit: SuitJokers, Rank: RankBigJoker}, 1),
	)

	got := ForcedPlay(h, nil, trump)
	if len(got) != 1 || got[0] != (Card{Suit: SuitHearts, Rank: 4}) {
		t.Fatalf("forced lead = %v, want the weakest single", got)
	}
	if !IsPlayValid(NewPlay(got, trump), nil, h, trump) {
		t.Fatalf("forced lead %v is not a legal lead", got)
	}

	if got := ForcedPlay(NewHand(), nil, trump); got != nil {
		t.Fatalf("empty hand produced %v", got)
	}
}

func TestForcedPlayExhaustsShortLine(t *testing.T) {
	trump := Trump{Suit: SuitSpades, Rank: 2}
	lead := NewPlay([]Card{
		{Suit: SuitDiamonds, Rank: 9},
		{Suit: SuitDiamonds, Rank: 9},
		{Suit: SuitDiamonds, Rank: 8},
		{Suit: SuitDiamonds, Rank: 8},
	}, trump)

	h := handOf(
		group(Card{Suit: SuitDiamonds, Rank: 3}, 1),
		group(Card{Suit: SuitClubs, Rank: 4}, 3),
		group(Card{Suit: SuitHearts, Rank: RankAce}, 2),
	)

	got := ForcedPlay(h, &lead, trump)
	if len(got) != 4 {
		t.Fatalf("forced follow = %v, want 4 cards", got)
	}
	if !IsPlayValid(NewPlay(got, trump), &lead, h, trump) {
		t.Fatalf("forced follow %v is not legal", got)
	}

	picked := NewHand()
	for _, c := range got {
		picked.Add(c)
	}
	if picked.Count(Card{Suit: SuitDiamonds, Rank: 3}) != 1 {
		t.Fatalf("forced follow %v withheld the last diamond", got)
	}
	if picked.Count(Card{Suit: SuitHearts, Rank: RankAce}) != 0 {
		t.Fatalf("forced follow %v discarded aces before the weak clubs", got)
	}
}

func TestForcedPlaySatisfiesPairObligation(t *testing.T) {
	trump := Trump{Suit: SuitSpades, Rank: 2}
	lead := NewPlay([]Card{
		{Suit: SuitHearts, Rank: 10},
		{Suit: SuitHearts, Rank: 10},
	}, trump)

	h := handOf(
		group(Card{Suit: SuitHearts, Rank: 5}, 2),
		group(Card{Suit: SuitHearts, Rank: RankKing}, 1),
		group(Card{Suit: SuitClubs, Rank: 3}, 2),
	)

	got := ForcedPlay(h, &lead, trump)
	if !IsPlayValid(NewPlay(got, trump), &lead, h, trump) {
		t.Fatalf("forced follow %v is not legal", got)
	}
	picked := NewHand()
	for _, c := range got {
		picked.Add(c)
	}
	if picked.Count(Card{Suit: SuitHearts, Rank: 5}) != 2 {
		t.Fatalf("forced follow %v broke the held pair", got)
	}
}

func TestForcedPlayTractorSurrender(t *testing.T) {
	trump := Trump{Suit: SuitSpades, Rank: 2}
	lead := NewPlay([]Card{
		{Suit: SuitSpades, Rank: 9}, {Suit: SuitSpades, Rank: 9},
		{Suit: SuitSpades, Rank: 10}, {Suit: SuitSpades, Rank: 10},
		{Suit: SuitSpades, Rank: RankJack}, {Suit: SuitSpades, Rank: RankJack},
	}, trump)

	h := handOf(
		group(Card{Suit: SuitSpades, Rank: 5}, 2),
		group(Card{Suit: SuitSpades, Rank: 6}, 2),
		group(Card{Suit: SuitSpades, Rank: 7}, 2),
		group(Card{Suit: SuitSpades, Rank: RankQueen}, 2),
		group(Card{Suit: SuitSpades, Rank: RankAce}, 1),
	)

	got := ForcedPlay(h, &lead, trump)
	if len(got) != 6 {
		t.Fatalf("forced follow = %v, want 6 cards", got)
	}
	if !IsPlayValid(NewPlay(got, trump), &lead, h, trump) {
		t.Fatalf("forced follow %v is not legal", got)
	}

	// The held 5-6-7 tractor must be surrendered whole.
	picked := NewHand()
	for _, c := range got {
		picked.Add(c)
	}
	for _, rank := range []int{5, 6, 7} {
		if picked.Count(Card{Suit: SuitSpades, Rank: rank}) != 2 {
			t.Fatalf("forced follow %v broke the 5-6-7 tractor", got)
		}
	}
}

func TestForcedPlayAlwaysLegalThroughTrick(t *testing.T) {
	trump := Trump{Suit: SuitSpades, Rank: 2}
	leads := [][]Card{
		{{Suit: SuitHearts, Rank: 7}},
		{{Suit: SuitHearts, Rank: 7}, {Suit: SuitHearts, Rank: 7}},
		{{Suit: SuitSpades, Rank: 4}, {Suit: SuitSpades, Rank: 4}, {Suit: SuitSpades, Rank: 5}, {Suit: SuitSpades, Rank: 5}},
	}
	h := handOf(
		group(Card{Suit: SuitHearts, Rank: 3}, 1),
		group(Card{Suit: SuitSpades, Rank: 8}, 2),
		group(Card{Suit: SuitSpades, Rank: 9}, 2),
		group(Card{Suit: SuitHearts, Rank: 2}, 1),
		group(Card{Suit: SuitClubs, Rank: RankKing}, 1),
		group(Card{Suit: SuitDiamonds, Rank: 6}, 3),
	)

	for _, cards := range leads {
		lead := NewPlay(cards, trump)
		got := ForcedPlay(h, &lead, trump)
		if got == nil {
			t.Fatalf("no forced play against %v", cards)
		}
		if len(got) != len(cards) {
			t.Fatalf("forced play %v size mismatch against %v", got, cards)
		}
		if !IsPlayValid(NewPlay(got, trump), &lead, h, trump) {
			t.Fatalf("forced play %v is not legal against %v", got, cards)
		}
	}
}

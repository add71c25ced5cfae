package domain

// ForcedPlay picks cards a stalled seat can legally put down, preferring
// the weakest material. Leading yields the weakest single. Following
// plays every card of the led line when the hand cannot cover the lead,
// padded with the weakest discards; otherwise it searches the led line
// for the cheapest combination the lead's shape obligations accept.
// Returns nil only when the hand is empty or smaller than the lead.
func ForcedPlay(h Hand, lead *Play, t Trump) []Card {
	all := h.Cards()
	if len(all) == 0 {
		return nil
	}
	SortCards(all, t)

	if lead == nil {
		return []Card{all[len(all)-1]}
	}

	n := len(lead.Cards)
	if n > len(all) {
		return nil
	}

	leadCard := lead.Cards[0]
	buckets := GetTrickCount(h, leadCard, t)

	avail := 0
	for count, cards := range buckets {
		avail += count * len(cards)
	}

	// Short line: the whole line must go, so any padding is legal.
	if avail <= n {
		pick := make([]Card, 0, n)
		rest := NewHand()
		for _, c := range all {
			rest.Add(c)
		}
		for count, cards := range buckets {
			for _, c := range cards {
				for i := 0; i < count; i++ {
					pick = append(pick, c)
					rest.Remove(c)
				}
			}
		}
		fillers := rest.Cards()
		SortCards(fillers, t)
		for i := len(fillers) - 1; i >= 0 && len(pick) < n; i-- {
			pick = append(pick, fillers[i])
		}
		return pick
	}

	// The line covers the lead, so every played card must come from it.
	// Search usage counts per distinct card, weakest first and taking
	// many copies before few so pairs stay together.
	type entry struct {
		card  Card
		count int
	}
	var entries []entry
	for count, cards := range buckets {
		for _, c := range cards {
			entries = append(entries, entry{card: c, count: count})
		}
	}
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if IsCardBigger(entries[i].card, entries[j].card, t) {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}
	suffix := make([]int, len(entries)+1)
	for i := len(entries) - 1; i >= 0; i-- {
		suffix[i] = suffix[i+1] + entries[i].count
	}

	pick := make([]Card, 0, n)
	var search func(idx, need int) []Card
	search = func(idx, need int) []Card {
		if need == 0 {
			cand := append([]Card(nil), pick...)
			if IsPlayValid(NewPlay(cand, t), lead, h, t) {
				return cand
			}
			return nil
		}
		if idx >= len(entries) || suffix[idx] < need {
			return nil
		}
		use := entries[idx].count
		if use > need {
			use = need
		}
		for ; use >= 0; use-- {
			for i := 0; i < use; i++ {
				pick = append(pick, entries[idx].card)
			}
			if got := search(idx+1, need-use); got != nil {
				return got
			}
			pick = pick[:len(pick)-use]
		}
		return nil
	}
	return search(0, n)
}

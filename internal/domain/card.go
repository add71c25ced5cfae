package domain

import "strconv"

// Suit identifies one of the four french suits or the joker pseudo-suit.
type Suit string

const (
	SuitSpades   Suit = "S"
	SuitHearts   Suit = "H"
	SuitDiamonds Suit = "D"
	SuitClubs    Suit = "C"
	SuitJokers   Suit = "J"

	// SuitNone marks the absence of a trump suit before any declaration
	// has been made this round.
	SuitNone Suit = ""
)

// Suits lists the playable suits in deck-building order.
var Suits = []Suit{SuitSpades, SuitHearts, SuitDiamonds, SuitClubs, SuitJokers}

// Ranks. Non-joker cards use 2..14 (J=11, Q=12, K=13, A=14); joker cards
// use 1 for the small joker and 2 for the big joker.
const (
	RankSmallJoker = 1
	RankBigJoker   = 2
	RankJack       = 11
	RankQueen      = 12
	RankKing       = 13
	RankAce        = 14
)

// Card is an immutable playing card value. Cards compare by structural
// equality; duplicates across physical decks are indistinguishable.
type Card struct {
	Suit Suit `json:"suit"`
	Rank int  `json:"rank"`
}

// ValidateCard reports whether the suit/rank pair denotes a real card.
func ValidateCard(c Card) bool {
	switch c.Suit {
	case SuitSpades, SuitHearts, SuitDiamonds, SuitClubs:
		return c.Rank >= 2 && c.Rank <= RankAce
	case SuitJokers:
		return c.Rank == RankSmallJoker || c.Rank == RankBigJoker
	default:
		return false
	}
}

// IsJoker reports whether the card belongs to the joker pseudo-suit.
func (c Card) IsJoker() bool {
	return c.Suit == SuitJokers
}

// Points returns the trick-point value of the card: fives are worth 5,
// tens and kings are worth 10, everything else is worth nothing.
func (c Card) Points() int {
	if c.Suit == SuitJokers {
		return 0
	}
	switch c.Rank {
	case 5:
		return 5
	case 10, RankKing:
		return 10
	default:
		return 0
	}
}

func (c Card) String() string {
	if c.Suit == SuitJokers {
		if c.Rank == RankBigJoker {
			return "BJ"
		}
		return "SJ"
	}
	var r string
	switch c.Rank {
	case RankJack:
		r = "J"
	case RankQueen:
		r = "Q"
	case RankKing:
		r = "K"
	case RankAce:
		r = "A"
	default:
		r = strconv.Itoa(c.Rank)
	}
	return r + string(c.Suit)
}

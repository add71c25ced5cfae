package domain

import (
	"math/rand"
	"time"
)

// StartingTrumpRank is the rank both teams open the game playing toward.
const StartingTrumpRank = 2

// Game is the authoritative aggregate for one table. It is mutated in
// place by accepted actions and must only be touched by a single writer
// at a time; the match loop serializes callers per room.
//
// Seats alternate teams: even seats against odd seats. Atk holds the
// parity of the side currently attacking the dealer.
type Game struct {
	Players []string `json:"players"`
	Hands   []Hand   `json:"hands"`
	Deck    []Card   `json:"deck"`
	Round   int      `json:"round"`

	Trump   Trump `json:"trump"`
	Alt     int   `json:"alt"`     // rank swapped in the next time teams trade roles
	Declare int   `json:"declare"` // strength of the standing trump declaration
	Draw    bool  `json:"draw"`    // true while cards are being dealt
	Zhuang  int   `json:"zhuang"`  // dealer seat
	Atk     int   `json:"atk"`     // parity of the attacking team

	Dipai  []Card `json:"dipai"` // dealer's reserve, scored at round end
	Turn   int    `json:"turn"`
	Chu    int    `json:"chu"` // seat that opened the running trick
	Big    int    `json:"big"` // seat holding the winning play of the running trick
	Lead   *Play  `json:"lead"`
	Score  int    `json:"score"`  // attacker points banked this round
	Points int    `json:"points"` // points riding on the open trick
	Count  int    `json:"count"`  // cards each seat has left to play this round
	Over   bool   `json:"over"`

	rng *rand.Rand
}

// InitializeGame sets up a table for the given seating order. The table
// must seat an even number of players, at least four; anything else is
// rejected with a nil game. A nil rng falls back to a time-seeded one.
func InitializeGame(players []string, rng *rand.Rand) *Game {
	if len(players) < 4 || len(players)%2 != 0 {
		return nil
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	g := &Game{
		Players: append([]string(nil), players...),
		Hands:   make([]Hand, len(players)),
		Round:   1,
		Trump:   Trump{Rank: StartingTrumpRank},
		Alt:     StartingTrumpRank,
		Draw:    true,
		rng:     rng,
	}
	for i := range g.Hands {
		g.Hands[i] = NewHand()
	}
	g.Deck = NewDeck(len(players))
	ShuffleDeck(g.Deck, g.rng)
	g.Atk = (g.Zhuang + 1) % 2
	return g
}

// HandOf returns the hand at the given seat, or nil for a bad seat.
func (g *Game) HandOf(seat int) Hand {
	if seat < 0 || seat >= len(g.Hands) {
		return nil
	}
	return g.Hands[seat]
}

func (g *Game) seatValid(seat int) bool {
	return seat >= 0 && seat < len(g.Players)
}

// DrawCard deals the top deck card to the seat whose turn it is. Once
// the rotation wraps to seat 0 with only the dealer's reserve left, the
// draw phase closes: the remainder becomes the dipai and trick play
// starts at the dealer.
func (g *Game) DrawCard(seat int) bool {
	if g.Over || !g.Draw || !g.seatValid(seat) {
		return false
	}
	if seat != g.Turn || len(g.Deck) == 0 {
		return false
	}

	c := g.Deck[len(g.Deck)-1]
	g.Deck = g.Deck[:len(g.Deck)-1]
	g.Hands[seat].Add(c)
	g.Turn = (g.Turn + 1) % len(g.Players)

	if g.Turn == 0 && len(g.Deck) <= ReserveSize {
		g.finishDraw()
	}
	return true
}

func (g *Game) finishDraw() {
	g.Dipai = append([]Card(nil), g.Deck...)
	g.Deck = nil
	g.Draw = false
	g.Declare = 0

	g.Turn = g.Zhuang
	g.Chu = g.Zhuang
	g.Big = g.Zhuang
	g.Atk = (g.Zhuang + 1) % 2
	g.Lead = nil
	g.Points = 0

	// Every seat plays the same number of cards per trick, so the
	// round counter tracks one seat's remaining cards.
	g.Count = g.Hands[g.Zhuang].Size()
}

// CallTrump records a trump declaration during the draw phase. A suit
// call must match the fixed trump rank and be backed by strictly more
// trump-rank cards of that suit than the standing declaration. A joker
// call (trump with no suit) needs a joker pair at a four-player table,
// or three jokers in total at bigger tables, and outranks any suit call;
// among joker calls more jokers win. In the first round the successful
// caller becomes the dealer.
func (g *Game) CallTrump(seat int, t Trump) bool {
	if g.Over || !g.Draw || !g.seatValid(seat) {
		return false
	}

	hand := g.Hands[seat]

	if t.JokerCall || t.Suit == SuitNone {
		big := hand.Count(Card{Suit: SuitJokers, Rank: RankBigJoker})
		small := hand.Count(Card{Suit: SuitJokers, Rank: RankSmallJoker})
		if len(g.Players) == 4 {
			if big < 2 && small < 2 {
				return false
			}
		} else if big+small < 3 {
			return false
		}
		strength := big + small
		if g.Trump.JokerCall && strength <= g.Declare {
			return false
		}
		g.Trump.Suit = SuitNone
		g.Trump.JokerCall = true
		g.Declare = strength
		if g.Round == 1 {
			g.Zhuang = seat
		}
		return true
	}

	switch t.Suit {
	case SuitSpades, SuitHearts, SuitDiamonds, SuitClubs:
	default:
		return false
	}
	if t.Rank != g.Trump.Rank {
		return false
	}
	if g.Trump.JokerCall {
		return false
	}
	support := hand.Count(Card{Suit: t.Suit, Rank: g.Trump.Rank})
	if support <= g.Declare {
		return false
	}

	g.Trump.Suit = t.Suit
	g.Declare = support
	if g.Round == 1 {
		g.Zhuang = seat
	}
	return true
}

// TryPlay applies one seat's contribution to the running trick. The
// first play of an empty trick becomes the lead; responses are checked
// against the lead and the player's hand, and a winning response takes
// over the lead. When the turn wraps back to the trick opener the trick
// settles.
func (g *Game) TryPlay(seat int, cards []Card) bool {
	if g.Over || g.Draw || !g.seatValid(seat) {
		return false
	}
	if seat != g.Turn {
		return false
	}

	hand := g.Hands[seat]
	play := NewPlay(cards, g.Trump)

	if g.Lead == nil {
		if !IsPlayValid(play, nil, hand, g.Trump) {
			return false
		}
		g.Lead = &play
		g.Big = seat
		g.Chu = seat
	} else {
		if !IsPlayValid(play, g.Lead, hand, g.Trump) {
			return false
		}
		if IsPlayBigger(play, *g.Lead, g.Trump) {
			g.Lead = &play
			g.Big = seat
		}
	}

	for _, c := range cards {
		hand.Remove(c)
	}
	g.Points += play.Points()
	g.Turn = (g.Turn + 1) % len(g.Players)
	if g.Turn == g.Chu {
		g.endTrick()
	}
	return true
}

func (g *Game) endTrick() {
	attackerWon := g.Big%2 == g.Atk
	if attackerWon {
		g.Score += g.Points
	}
	g.Points = 0
	g.Count -= len(g.Lead.Cards)

	final := g.Count <= 0
	dmult := 0
	if final && attackerWon {
		// Last-trick sweep bonus scales with the winning play's size.
		dmult = 2 * len(g.Lead.Cards)
	}

	g.Turn = g.Big
	g.Chu = g.Big
	g.Lead = nil

	if final {
		g.endRound(dmult)
	}
}

func (g *Game) endRound(dmult int) {
	for _, c := range g.Dipai {
		g.Score += c.Points() * dmult
	}

	mult := len(g.Players) / 2
	if g.Score >= 40*mult {
		// Attackers took the round: roles swap and the incoming
		// attacking side's reserved rank comes into play, advanced one
		// step per 20*mult banked from 60*mult up.
		steps := (g.Score - 40*mult) / (20 * mult)
		if steps > 3 {
			steps = 3
		}
		next := g.Alt + steps
		g.Alt = g.Trump.Rank
		g.Trump.Rank = next
		g.Zhuang++
	} else {
		// Defenders held: always one step, another below 20*mult, and a
		// third for a shut-out. The deal skips to the dealer's partner.
		steps := 1
		if g.Score < 20*mult {
			steps++
		}
		if g.Score == 0 {
			steps++
		}
		g.Trump.Rank += steps
		g.Zhuang += 2
	}

	if g.Trump.Rank > RankAce {
		g.Over = true
		return
	}

	g.Round++
	g.Zhuang %= len(g.Players)
	g.Atk = (g.Zhuang + 1) % 2
	g.Score = 0
	g.Points = 0
	g.Declare = 0
	g.Trump.Suit = SuitNone
	g.Trump.JokerCall = false
	g.Dipai = nil
	g.Lead = nil
	g.Count = 0

	for i := range g.Hands {
		g.Hands[i] = NewHand()
	}
	g.Deck = NewDeck(len(g.Players))
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	ShuffleDeck(g.Deck, g.rng)
	g.Draw = true
	g.Turn = 0
	g.Chu = g.Zhuang
	g.Big = g.Zhuang
}

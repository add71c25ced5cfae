package app

import (
	"errors"
	"math/rand"
	"time"

	"shengji/internal/domain"
)

// Service contains the game use-cases operating on domain state. It is
// stateless apart from its rng; one Service may drive any number of
// rooms as long as each room's Game is mutated by a single caller at a
// time.
type Service struct {
	rng *rand.Rand
}

// NewService constructs a Service with the provided rng or a time-seeded
// default.
func NewService(rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{rng: rng}
}

var (
	ErrBadTableSize = errors.New("table must seat an even number of players, at least four")
	ErrUnknownSeat  = errors.New("seat not at this table")
	ErrGameOver     = errors.New("game is over")
	ErrWrongPhase   = errors.New("action not allowed in this phase")
	ErrOutOfTurn    = errors.New("not this seat's turn")
	ErrIllegalPlay  = errors.New("play is not legal against the lead")
	ErrIllegalCall  = errors.New("trump declaration not strong enough")
)

// CreateGame sets up a fresh game for the given seat order.
func (s *Service) CreateGame(playerIDs []string) (*domain.Game, []Event, error) {
	game := domain.InitializeGame(playerIDs, s.rng)
	if game == nil {
		return nil, nil, ErrBadTableSize
	}

	events := []Event{{
		Kind:    EventGameStarted,
		Payload: GameStartedPayload{Players: game.Players, Round: game.Round},
	}}
	return game, events, nil
}

// Draw deals one card to the seat. The drawn card is delivered privately;
// the close of the draw phase is broadcast.
func (s *Service) Draw(game *domain.Game, seat int) ([]Event, error) {
	if err := checkSeat(game, seat); err != nil {
		return nil, err
	}
	if !game.Draw {
		return nil, ErrWrongPhase
	}
	if seat != game.Turn {
		return nil, ErrOutOfTurn
	}

	if len(game.Deck) == 0 {
		return nil, ErrWrongPhase
	}
	drawn := game.Deck[len(game.Deck)-1]
	if !game.DrawCard(seat) {
		return nil, ErrWrongPhase
	}

	events := []Event{{
		Kind: EventCardDrawn,
		Payload: CardDrawnPayload{
			UserID:   game.Players[seat],
			Seat:     seat,
			Card:     drawn,
			NextTurn: game.Turn,
		},
		Recipients: []string{game.Players[seat]},
	}}

	if !game.Draw {
		events = append(events, Event{
			Kind: EventDrawFinished,
			Payload: DrawFinishedPayload{
				Zhuang: game.Zhuang,
				Trump:  game.Trump,
				Count:  game.Count,
			},
		})
	}
	return events, nil
}

// CallTrump applies a trump declaration during the draw phase.
func (s *Service) CallTrump(game *domain.Game, seat int, t domain.Trump) ([]Event, error) {
	if err := checkSeat(game, seat); err != nil {
		return nil, err
	}
	if !game.Draw {
		return nil, ErrWrongPhase
	}

	if !game.CallTrump(seat, t) {
		return nil, ErrIllegalCall
	}

	return []Event{{
		Kind: EventTrumpDeclared,
		Payload: TrumpDeclaredPayload{
			Seat:    seat,
			Trump:   game.Trump,
			Declare: game.Declare,
		},
	}}, nil
}

// PlayCards applies one seat's trick contribution and emits the play
// plus any trick, round or game settlement it triggered.
func (s *Service) PlayCards(game *domain.Game, seat int, cards []domain.Card) ([]Event, error) {
	if err := checkSeat(game, seat); err != nil {
		return nil, err
	}
	if game.Draw {
		return nil, ErrWrongPhase
	}
	if seat != game.Turn {
		return nil, ErrOutOfTurn
	}

	prevRound := game.Round
	prevPoints := game.Points
	play := domain.NewPlay(cards, game.Trump)
	if !game.TryPlay(seat, cards) {
		return nil, ErrIllegalPlay
	}

	events := []Event{{
		Kind: EventCardPlayed,
		Payload: CardPlayedPayload{
			Seat:     seat,
			Cards:    cards,
			BigSeat:  game.Big,
			NextTurn: game.Turn,
		},
	}}

	trickEnded := game.Lead == nil
	if trickEnded {
		events = append(events, Event{
			Kind: EventTrickWon,
			Payload: TrickWonPayload{
				Seat:   game.Big,
				Score:  game.Score,
				Points: prevPoints + play.Points(),
			},
		})
	}

	if game.Over {
		events = append(events, Event{
			Kind:    EventGameEnded,
			Payload: GameEndedPayload{Trump: game.Trump, Zhuang: game.Zhuang},
		})
	} else if game.Round != prevRound {
		events = append(events, Event{
			Kind: EventRoundSettled,
			Payload: RoundSettledPayload{
				Round:  game.Round,
				Trump:  game.Trump,
				Zhuang: game.Zhuang,
				Atk:    game.Atk,
			},
		})
	}
	return events, nil
}

// AutoPlay puts down the weakest legal cards for a stalled seat. It is
// the play-phase counterpart of the forced draw: the match loop calls it
// when the seat on turn outlives its turn clock.
func (s *Service) AutoPlay(game *domain.Game, seat int) ([]Event, error) {
	if err := checkSeat(game, seat); err != nil {
		return nil, err
	}
	if game.Draw {
		return nil, ErrWrongPhase
	}
	if seat != game.Turn {
		return nil, ErrOutOfTurn
	}

	cards := domain.ForcedPlay(game.HandOf(seat), game.Lead, game.Trump)
	if len(cards) == 0 {
		return nil, ErrIllegalPlay
	}
	return s.PlayCards(game, seat, cards)
}

func checkSeat(game *domain.Game, seat int) error {
	if game.Over {
		return ErrGameOver
	}
	if seat < 0 || seat >= len(game.Players) {
		return ErrUnknownSeat
	}
	return nil
}

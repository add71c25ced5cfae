package app

import "shengji/internal/domain"

// EventKind identifies emitted game events for transport dispatch.
type EventKind string

const (
	EventGameStarted   EventKind = "game_started"
	EventCardDrawn     EventKind = "card_drawn"
	EventDrawFinished  EventKind = "draw_finished"
	EventTrumpDeclared EventKind = "trump_declared"
	EventCardPlayed    EventKind = "card_played"
	EventTrickWon      EventKind = "trick_won"
	EventRoundSettled  EventKind = "round_settled"
	EventGameEnded     EventKind = "game_ended"
)

// Event is a game event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

type GameStartedPayload struct {
	Players []string
	Round   int
}

// CardDrawnPayload is sent privately to the drawing player; the table
// only learns whose turn advanced.
type CardDrawnPayload struct {
	UserID   string
	Seat     int
	Card     domain.Card
	NextTurn int
}

type DrawFinishedPayload struct {
	Zhuang int
	Trump  domain.Trump
	Count  int
}

type TrumpDeclaredPayload struct {
	Seat    int
	Trump   domain.Trump
	Declare int
}

type CardPlayedPayload struct {
	Seat     int
	Cards    []domain.Card
	BigSeat  int
	NextTurn int
}

type TrickWonPayload struct {
	Seat   int
	Score  int
	Points int
}

type RoundSettledPayload struct {
	Round  int
	Trump  domain.Trump
	Zhuang int
	Atk    int
}

type GameEndedPayload struct {
	Trump  domain.Trump
	Zhuang int
}

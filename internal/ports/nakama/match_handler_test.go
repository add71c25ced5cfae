package nakama

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"shengji/internal/app"
	"shengji/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	broadcasts   []mockBroadcast
	labelUpdates []string
}

type mockBroadcast struct {
	opCode     int64
	data       []byte
	recipients []runtime.Presence
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.broadcasts = append(md.broadcasts, mockBroadcast{
		opCode:     opCode,
		data:       append([]byte(nil), data...),
		recipients: presences,
	})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates = append(md.labelUpdates, label)
	return nil
}

func (md *mockDispatcher) lastOp(opCode int64) *mockBroadcast {
	for i := len(md.broadcasts) - 1; i >= 0; i-- {
		if md.broadcasts[i].opCode == opCode {
			return &md.broadcasts[i]
		}
	}
	return nil
}

// mockPresence is a minimal runtime.Presence for seat bookkeeping.
type mockPresence struct {
	userID string
}

func (mp mockPresence) GetUserId() string    { return mp.userID }
func (mp mockPresence) GetSessionId() string { return "session-" + mp.userID }
func (mp mockPresence) GetNodeId() string    { return "node" }
func (mp mockPresence) GetHidden() bool      { return false }
func (mp mockPresence) GetPersistence() bool { return true }
func (mp mockPresence) GetUsername() string  { return mp.userID }
func (mp mockPresence) GetReason() runtime.PresenceReason {
	return runtime.PresenceReasonJoin
}
func (mp mockPresence) GetStatus() string { return "" }

func newTestMatchState(seats ...string) *MatchState {
	state := &MatchState{
		Seats:     append([]string(nil), seats...),
		Presences: make(map[string]runtime.Presence),
		App:       app.NewService(nil),
		RoomID:    "room-test",
	}
	for _, id := range seats {
		if id != "" {
			state.Presences[id] = mockPresence{userID: id}
		}
	}
	return state
}

func TestGetOpenSeatsCount(t *testing.T) {
	tests := []struct {
		name  string
		seats []string
		want  int
	}{
		{"AllEmpty", []string{"", "", "", ""}, 4},
		{"Partial", []string{"u0", "", "u2", ""}, 2},
		{"Full", []string{"u0", "u1", "u2", "u3"}, 0},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			state := &MatchState{Seats: test.seats}
			if got := state.GetOpenSeatsCount(); got != test.want {
				t.Fatalf("GetOpenSeatsCount() = %d, want %d", got, test.want)
			}
		})
	}
}

func TestSeatOf(t *testing.T) {
	state := &MatchState{Seats: []string{"u0", "", "u2", ""}}
	if got := state.seatOf("u2"); got != 2 {
		t.Fatalf("seatOf(u2) = %d, want 2", got)
	}
	if got := state.seatOf("stranger"); got != -1 {
		t.Fatalf("seatOf(stranger) = %d, want -1", got)
	}
	if got := state.seatOf(""); got != -1 {
		t.Fatalf("seatOf(empty) = %d, want -1", got)
	}
}

func TestLabelMarshal(t *testing.T) {
	state := newTestMatchState("u0", "", "", "")

	labelBytes, err := marshalWire(labelStruct(state))
	if err != nil {
		t.Fatalf("Failed to marshal label: %v", err)
	}

	var label struct {
		Open  float64 `json:"open"`
		State string  `json:"state"`
		Game  string  `json:"game"`
	}
	if err := json.Unmarshal(labelBytes, &label); err != nil {
		t.Fatalf("Label is not valid JSON: %v", err)
	}
	if label.Open != 3 || label.State != "lobby" || label.Game != "shengji" {
		t.Fatalf("label = %+v", label)
	}

	state.Game = &domain.Game{Draw: true}
	labelBytes, err = marshalWire(labelStruct(state))
	if err != nil {
		t.Fatalf("Failed to marshal dealing label: %v", err)
	}
	if err := json.Unmarshal(labelBytes, &label); err != nil {
		t.Fatalf("Dealing label is not valid JSON: %v", err)
	}
	if label.State != "dealing" {
		t.Fatalf("dealing label state = %q", label.State)
	}
}

func TestDispatchEventsRecipients(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestMatchState("u0", "u1", "u2", "u3")

	events := []app.Event{
		{
			Kind:    app.EventCardDrawn,
			Payload: app.CardDrawnPayload{Seat: 1, Card: domain.Card{Suit: domain.SuitSpades, Rank: 9}, NextTurn: 2},
			// Private to the drawer.
			Recipients: []string{"u1"},
		},
		{
			Kind:    app.EventTrumpDeclared,
			Payload: app.TrumpDeclaredPayload{Seat: 1, Trump: domain.Trump{Suit: domain.SuitSpades, Rank: 2}, Declare: 1},
		},
	}

	handler.dispatchEvents(state, dispatcher, noopLogger{}, events)

	drawn := dispatcher.lastOp(OpCardDrawn)
	if drawn == nil {
		t.Fatal("card_drawn not dispatched")
	}
	if len(drawn.recipients) != 1 || drawn.recipients[0].GetUserId() != "u1" {
		t.Fatalf("card_drawn recipients = %v, want only u1", drawn.recipients)
	}

	declared := dispatcher.lastOp(OpTrumpDeclared)
	if declared == nil {
		t.Fatal("trump_declared not dispatched")
	}
	if declared.recipients != nil {
		t.Fatalf("trump_declared recipients = %v, want broadcast", declared.recipients)
	}
}

func TestDispatchEventsNeverWidensPrivateEvents(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestMatchState("u0", "u1", "u2", "u3")
	delete(state.Presences, "u1") // u1 disconnected

	handler.dispatchEvents(state, dispatcher, noopLogger{}, []app.Event{{
		Kind:       app.EventCardDrawn,
		Payload:    app.CardDrawnPayload{Seat: 1, Card: domain.Card{Suit: domain.SuitSpades, Rank: 9}},
		Recipients: []string{"u1"},
	}})

	if got := dispatcher.lastOp(OpCardDrawn); got != nil {
		t.Fatalf("private event for a disconnected user was dispatched to %v", got.recipients)
	}
}

func TestSendErrorCodes(t *testing.T) {
	handler := &matchHandler{}
	state := newTestMatchState("u0", "u1", "u2", "u3")

	tests := []struct {
		name string
		err  error
		want float64
	}{
		{"IllegalPlay", app.ErrIllegalPlay, 3},
		{"IllegalCall", app.ErrIllegalCall, 3},
		{"OutOfTurn", app.ErrOutOfTurn, 9},
		{"WrongPhase", app.ErrWrongPhase, 9},
		{"GameOver", app.ErrGameOver, 9},
		{"UnknownSeat", app.ErrUnknownSeat, 5},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			dispatcher := &mockDispatcher{}
			handler.sendError(state, dispatcher, noopLogger{}, "u0", test.err)

			sent := dispatcher.lastOp(OpGameError)
			if sent == nil {
				t.Fatal("no error dispatched")
			}
			if len(sent.recipients) != 1 || sent.recipients[0].GetUserId() != "u0" {
				t.Fatalf("error recipients = %v", sent.recipients)
			}

			var payload struct {
				Code    float64 `json:"code"`
				Message string  `json:"message"`
			}
			if err := json.Unmarshal(sent.data, &payload); err != nil {
				t.Fatalf("error payload: %v", err)
			}
			if payload.Code != test.want {
				t.Fatalf("code = %v, want %v", payload.Code, test.want)
			}
			if payload.Message == "" {
				t.Fatal("empty error message")
			}
		})
	}
}

// stubStatePort is an in-memory StatePort for handler tests.
type stubStatePort struct {
	stored  *domain.Game
	loadErr error
	loads   int
	saves   int
	deletes int
}

func (sp *stubStatePort) SaveState(ctx context.Context, roomID string, game *domain.Game) error {
	sp.saves++
	sp.stored = game
	return nil
}

func (sp *stubStatePort) LoadState(ctx context.Context, roomID string) (*domain.Game, error) {
	sp.loads++
	return sp.stored, sp.loadErr
}

func (sp *stubStatePort) DeleteState(ctx context.Context, roomID string) error {
	sp.deletes++
	sp.stored = nil
	return nil
}

// midPlayGame builds a game past the draw phase with seat 0 on turn, so
// handler tests can exercise the play path with known hands.
func midPlayGame(players []string) *domain.Game {
	g := domain.InitializeGame(players, rand.New(rand.NewSource(11)))
	g.Deck = nil
	g.Draw = false
	g.Trump = domain.Trump{Suit: domain.SuitSpades, Rank: 2}
	g.Zhuang, g.Turn, g.Chu, g.Big = 0, 0, 0, 0
	g.Atk = 1
	g.Count = 2
	hands := [][]domain.Card{
		{{Suit: domain.SuitHearts, Rank: 9}, {Suit: domain.SuitHearts, Rank: 3}},
		{{Suit: domain.SuitHearts, Rank: domain.RankKing}, {Suit: domain.SuitClubs, Rank: 4}},
		{{Suit: domain.SuitHearts, Rank: 7}, {Suit: domain.SuitClubs, Rank: 5}},
		{{Suit: domain.SuitHearts, Rank: 8}, {Suit: domain.SuitClubs, Rank: 6}},
	}
	for i, cards := range hands {
		g.Hands[i] = domain.NewHand()
		for _, c := range cards {
			g.Hands[i].Add(c)
		}
	}
	return g
}

func TestRestoreState(t *testing.T) {
	handler := &matchHandler{}
	stored := midPlayGame([]string{"u0", "u1", "u2", "u3"})

	state := newTestMatchState("", "", "", "")
	storage := &stubStatePort{stored: stored}
	state.Storage = storage

	handler.restoreState(context.Background(), state, noopLogger{})

	if state.Game != stored {
		t.Fatal("stored game was not restored")
	}
	if len(state.Seats) != 4 || state.Seats[2] != "u2" {
		t.Fatalf("restored seats = %v", state.Seats)
	}
	if state.DrawDue <= 0 || state.TurnDue <= 0 {
		t.Fatalf("timers not armed: draw_due=%d turn_due=%d", state.DrawDue, state.TurnDue)
	}
}

func TestRestoreStateNoStoredGame(t *testing.T) {
	handler := &matchHandler{}

	state := newTestMatchState("", "", "", "")
	storage := &stubStatePort{}
	state.Storage = storage

	handler.restoreState(context.Background(), state, noopLogger{})
	if state.Game != nil {
		t.Fatal("empty storage produced a game")
	}
	if storage.loads != 1 {
		t.Fatalf("loads = %d, want 1", storage.loads)
	}

	// Without a room id there is nothing to look up.
	state.RoomID = ""
	handler.restoreState(context.Background(), state, noopLogger{})
	if storage.loads != 1 {
		t.Fatalf("loads = %d, want no lookup without a room id", storage.loads)
	}
}

func TestMatchJoinAttemptTokens(t *testing.T) {
	handler := &matchHandler{}
	ctx := context.Background()

	state := newTestMatchState("u0", "u1", "", "")
	tokens := app.NewRoomTokenService("test-secret", "shengji", time.Minute)
	state.Tokens = tokens

	goodToken, err := tokens.GenerateToken("u1", state.RoomID, 1)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	wrongSeatToken, err := tokens.GenerateToken("u1", state.RoomID, 3)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	tests := []struct {
		name     string
		user     string
		metadata map[string]string
		want     bool
	}{
		{"FreshJoinNeedsNoToken", "newcomer", nil, true},
		{"ReconnectWithToken", "u1", map[string]string{"token": goodToken}, true},
		{"ReconnectWithoutToken", "u1", nil, false},
		{"ReconnectGarbageToken", "u1", map[string]string{"token": "not-a-jwt"}, false},
		{"ReconnectWrongSeat", "u1", map[string]string{"token": wrongSeatToken}, false},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			_, allowed, reason := handler.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, nil, 0, state, mockPresence{userID: test.user}, test.metadata)
			if allowed != test.want {
				t.Fatalf("allowed = %v (%q), want %v", allowed, reason, test.want)
			}
		})
	}

	full := newTestMatchState("u0", "u1", "u2", "u3")
	full.Tokens = tokens
	if _, allowed, _ := handler.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, nil, 0, full, mockPresence{userID: "stranger"}, nil); allowed {
		t.Fatal("stranger admitted to a full table")
	}

	// With no signing secret configured, reconnects are not challenged.
	state.Tokens = nil
	if _, allowed, reason := handler.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, nil, 0, state, mockPresence{userID: "u1"}, nil); !allowed {
		t.Fatalf("unsigned reconnect rejected: %q", reason)
	}
}

func TestMatchLoopForcedPlayOnStall(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}

	state := newTestMatchState("u0", "u1", "u2", "u3")
	storage := &stubStatePort{}
	state.Storage = storage
	state.Game = midPlayGame(state.Seats)
	state.TurnDue = 5

	// Before the turn clock runs out the seat keeps its turn.
	handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 4, state, nil)
	if got := dispatcher.lastOp(OpCardPlayed); got != nil {
		t.Fatal("forced play before the turn clock expired")
	}

	handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 5, state, nil)

	played := dispatcher.lastOp(OpCardPlayed)
	if played == nil {
		t.Fatal("stalled seat was not forced to play")
	}
	var payload struct {
		Seat     float64 `json:"seat"`
		NextTurn float64 `json:"next_turn"`
	}
	if err := json.Unmarshal(played.data, &payload); err != nil {
		t.Fatalf("play payload: %v", err)
	}
	if payload.Seat != 0 || payload.NextTurn != 1 {
		t.Fatalf("forced play payload = %+v, want seat 0 passing to 1", payload)
	}

	if state.TurnDue <= 5 {
		t.Fatalf("turn clock not re-armed: turn_due = %d", state.TurnDue)
	}
	if storage.saves == 0 {
		t.Fatal("forced play was not persisted")
	}
}

func TestBroadcastSeats(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestMatchState("u0", "u1", "", "")

	handler.broadcastSeats(state, dispatcher, noopLogger{}, OpPlayerJoined)

	sent := dispatcher.lastOp(OpPlayerJoined)
	if sent == nil {
		t.Fatal("seat update not dispatched")
	}

	var payload struct {
		Seats []string `json:"seats"`
		Open  float64  `json:"open"`
	}
	if err := json.Unmarshal(sent.data, &payload); err != nil {
		t.Fatalf("seat payload: %v", err)
	}
	if len(payload.Seats) != 4 || payload.Seats[1] != "u1" {
		t.Fatalf("seats = %v", payload.Seats)
	}
	if payload.Open != 2 {
		t.Fatalf("open = %v, want 2", payload.Open)
	}
}

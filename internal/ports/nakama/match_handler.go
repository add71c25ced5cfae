package nakama

import (
	"context"
	"database/sql"
	"errors"

	"shengji/internal/app"
	"shengji/internal/config"
	"shengji/internal/domain"
	"shengji/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/types/known/structpb"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Seats     []string                    `json:"seats"` // user IDs, empty string means the seat is open
	Presences map[string]runtime.Presence `json:"-"`
	App       *app.Service                `json:"-"`
	Game      *domain.Game                `json:"-"` // nil while the table is filling
	Storage   ports.StatePort             `json:"-"`
	Tokens    *app.RoomTokenService       `json:"-"` // nil when no signing secret is configured
	RoomID    string                      `json:"room_id"`
	Tick      int64                       `json:"tick"`
	DrawDue   int64                       `json:"draw_due"` // tick when the current seat is dealt for automatically
	TurnDue   int64                       `json:"turn_due"` // tick when the seat on turn forfeits to a forced play
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) seatOf(userID string) int {
	for i, id := range ms.Seats {
		if id != "" && id == userID {
			return i
		}
	}
	return -1
}

func newMatchHandler() runtime.Match {
	return &matchHandler{}
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}

	state := &MatchState{
		Seats:     make([]string, config.GetTableSize()),
		Presences: make(map[string]runtime.Presence),
		App:       app.NewService(nil),
		Storage:   NewNakamaStateAdapter(nk),
	}
	if id, ok := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string); ok {
		state.RoomID = id
	}
	state.Tokens = newRoomTokenService(ctx)

	mh.restoreState(ctx, state, logger)

	labelBytes, err := marshalWire(labelStruct(state))
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, string(labelBytes)
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Fresh joins need an open seat.
	seat := matchState.seatOf(presence.GetUserId())
	if seat < 0 {
		if matchState.GetOpenSeatsCount() <= 0 {
			return state, false, "match full"
		}
		return state, true, ""
	}

	// Reconnects keep their seat, but with token signing configured the
	// seat must be reclaimed with a valid admission token bound to this
	// user, room and seat.
	if matchState.Tokens != nil {
		claims, err := matchState.Tokens.VerifyToken(metadata["token"])
		if err != nil {
			return state, false, "invalid room token"
		}
		if claims.UserID != presence.GetUserId() || claims.RoomID != matchState.RoomID || claims.Seat != seat {
			return state, false, "room token mismatch"
		}
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p

		seat := matchState.seatOf(p.GetUserId())
		if seat < 0 {
			for i, id := range matchState.Seats {
				if id == "" {
					matchState.Seats[i] = p.GetUserId()
					seat = i
					break
				}
			}
		}
		if seat < 0 {
			logger.Warn("MatchJoin: User %s joined but no seat was available.", p.GetUserId())
			continue
		}

		if matchState.Game != nil {
			mh.sendSnapshot(matchState, dispatcher, logger, p, seat)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastSeats(matchState, dispatcher, logger, OpPlayerJoined)

	if matchState.Game == nil && matchState.GetOpenSeatsCount() == 0 {
		mh.startGame(ctx, matchState, dispatcher, logger, tick)
	}

	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())

		// Seats are only freed before the game starts; a mid-game leaver
		// keeps the seat so a reconnect resumes in place.
		if matchState.Game == nil {
			for i, id := range matchState.Seats {
				if id == p.GetUserId() {
					matchState.Seats[i] = ""
					logger.Debug("MatchLeave: User %s left, seat %d freed.", p.GetUserId(), i)
					break
				}
			}
		}
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Terminating empty match.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastSeats(matchState, dispatcher, logger, OpPlayerLeft)

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick
	mutated := false

	for _, msg := range messages {
		if matchState.Game == nil {
			logger.Warn("MatchLoop: Message before game start from %s.", msg.GetUserId())
			continue
		}

		seat := matchState.seatOf(msg.GetUserId())
		if seat < 0 {
			logger.Warn("MatchLoop: Message from non-seated user %s.", msg.GetUserId())
			continue
		}

		var events []app.Event
		var err error
		switch msg.GetOpCode() {
		case OpDrawCard:
			events, err = matchState.App.Draw(matchState.Game, seat)
		case OpCallTrump:
			events, err = mh.handleCallTrump(matchState, seat, msg.GetData())
		case OpPlayCards:
			events, err = mh.handlePlayCards(matchState, seat, msg.GetData())
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
			continue
		}

		if err != nil {
			logger.Warn("MatchLoop: Seat %d (%s) action %d rejected: %v", seat, msg.GetUserId(), msg.GetOpCode(), err)
			mh.sendError(matchState, dispatcher, logger, msg.GetUserId(), err)
			continue
		}

		mh.dispatchEvents(matchState, dispatcher, logger, events)
		mutated = true
	}

	// Keep the game moving when the seat on turn stalls: deal for it
	// during the draw phase, force the weakest legal play afterwards.
	if matchState.Game != nil && !matchState.Game.Over {
		if matchState.Game.Draw && tick >= matchState.DrawDue {
			events, err := matchState.App.Draw(matchState.Game, matchState.Game.Turn)
			if err == nil {
				mh.dispatchEvents(matchState, dispatcher, logger, events)
				mutated = true
			}
		} else if !matchState.Game.Draw && tick >= matchState.TurnDue {
			stalled := matchState.Game.Turn
			events, err := matchState.App.AutoPlay(matchState.Game, stalled)
			if err != nil {
				logger.Error("MatchLoop: Forced play failed for seat %d: %v", stalled, err)
			} else {
				logger.Info("MatchLoop: Seat %d timed out, forced play applied.", stalled)
				mh.dispatchEvents(matchState, dispatcher, logger, events)
				mutated = true
			}
		}
	}

	if mutated {
		matchState.DrawDue = tick + int64(config.GetDrawIntervalTicks())
		matchState.TurnDue = tick + int64(config.GetTurnDurationSeconds())
		mh.persist(ctx, matchState, logger)
		mh.updateLabel(matchState, dispatcher, logger)

		if matchState.Game != nil && matchState.Game.Over {
			if err := matchState.Storage.DeleteState(ctx, matchState.RoomID); err != nil {
				logger.Warn("MatchLoop: Failed to clear stored state: %v", err)
			}
			matchState.Game = nil
			mh.updateLabel(matchState, dispatcher, logger)
		}
	}

	return matchState
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	matchState, ok := state.(*MatchState)
	if ok && matchState.Game != nil {
		mh.persist(ctx, matchState, logger)
	}
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

// restoreState reloads a stored room snapshot so a rescheduled match
// handler resumes the table instead of starting over. Seats are rebuilt
// from the game's seating order; occupants re-enter through the normal
// reconnect path.
func (mh *matchHandler) restoreState(ctx context.Context, state *MatchState, logger runtime.Logger) {
	if state.Storage == nil || state.RoomID == "" {
		return
	}

	game, err := state.Storage.LoadState(ctx, state.RoomID)
	if err != nil {
		logger.Warn("restoreState: Could not load stored state: %v", err)
		return
	}
	if game == nil {
		return
	}

	state.Game = game
	state.Seats = append([]string(nil), game.Players...)
	state.DrawDue = int64(config.GetDrawIntervalTicks())
	state.TurnDue = int64(config.GetTurnDurationSeconds())
	logger.Info("restoreState: Restored running game for room %s.", state.RoomID)
}

func (mh *matchHandler) startGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, tick int64) {
	game, events, err := state.App.CreateGame(state.Seats)
	if err != nil {
		logger.Error("startGame: Failed to start game: %v", err)
		return
	}
	state.Game = game
	state.DrawDue = tick + int64(config.GetDrawIntervalTicks())
	state.TurnDue = tick + int64(config.GetTurnDurationSeconds())

	mh.updateLabel(state, dispatcher, logger)
	mh.dispatchEvents(state, dispatcher, logger, events)
	for seat, userID := range state.Seats {
		if p, ok := state.Presences[userID]; ok {
			mh.sendSnapshot(state, dispatcher, logger, p, seat)
		}
	}
	mh.persist(ctx, state, logger)

	logger.Info("startGame: Game started with %d players.", len(state.Seats))
}

func (mh *matchHandler) handleCallTrump(state *MatchState, seat int, data []byte) ([]app.Event, error) {
	s, err := unmarshalWire(data)
	if err != nil {
		return nil, err
	}
	return state.App.CallTrump(state.Game, seat, trumpFromStruct(s))
}

func (mh *matchHandler) handlePlayCards(state *MatchState, seat int, data []byte) ([]app.Event, error) {
	s, err := unmarshalWire(data)
	if err != nil {
		return nil, err
	}
	cards, err := cardsFromValue(s.Fields["cards"])
	if err != nil {
		return nil, err
	}
	return state.App.PlayCards(state.Game, seat, cards)
}

// dispatchEvents converts app events to wire messages. Events with
// intended recipients are only delivered to connected ones; they are
// never widened to a broadcast.
func (mh *matchHandler) dispatchEvents(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		opCode, ok := eventOpCode(ev.Kind)
		if !ok {
			logger.Warn("Unknown event kind: %v", ev.Kind)
			continue
		}

		payload, err := eventStruct(ev)
		if err != nil {
			logger.Error("Failed to convert event %v: %v", ev.Kind, err)
			continue
		}
		data, err := marshalWire(payload)
		if err != nil {
			logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
			continue
		}

		var recipients []runtime.Presence
		if len(ev.Recipients) > 0 {
			for _, uid := range ev.Recipients {
				if p, ok := state.Presences[uid]; ok {
					recipients = append(recipients, p)
				}
			}
			if len(recipients) == 0 {
				continue
			}
		}

		dispatcher.BroadcastMessage(opCode, data, recipients, nil, true)
	}
}

func (mh *matchHandler) sendSnapshot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, presence runtime.Presence, seat int) {
	data, err := marshalWire(gameView(state.Game, seat))
	if err != nil {
		logger.Error("Failed to marshal snapshot for seat %d: %v", seat, err)
		return
	}
	dispatcher.BroadcastMessage(OpStateSnapshot, data, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) broadcastSeats(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, opCode int64) {
	seats := make([]*structpb.Value, len(state.Seats))
	for i, id := range state.Seats {
		seats[i] = structpb.NewStringValue(id)
	}
	data, err := marshalWire(fields(map[string]*structpb.Value{
		"seats": structpb.NewListValue(&structpb.ListValue{Values: seats}),
		"open":  structpb.NewNumberValue(float64(state.GetOpenSeatsCount())),
	}))
	if err != nil {
		logger.Error("Failed to marshal seat update: %v", err)
		return
	}
	dispatcher.BroadcastMessage(opCode, data, nil, nil, true)
}

// sendError sends a rejection to a specific user with a gRPC-style code.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, actionErr error) {
	code := 13 // INTERNAL
	switch {
	case errors.Is(actionErr, app.ErrIllegalPlay), errors.Is(actionErr, app.ErrIllegalCall), errors.Is(actionErr, app.ErrBadTableSize):
		code = 3 // INVALID_ARGUMENT
	case errors.Is(actionErr, app.ErrUnknownSeat):
		code = 5 // NOT_FOUND
	case errors.Is(actionErr, app.ErrOutOfTurn), errors.Is(actionErr, app.ErrWrongPhase), errors.Is(actionErr, app.ErrGameOver):
		code = 9 // FAILED_PRECONDITION
	}

	data, err := marshalWire(fields(map[string]*structpb.Value{
		"code":    structpb.NewNumberValue(float64(code)),
		"message": structpb.NewStringValue(actionErr.Error()),
	}))
	if err != nil {
		logger.Error("Failed to marshal error event: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}
	dispatcher.BroadcastMessage(OpGameError, data, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) persist(ctx context.Context, state *MatchState, logger runtime.Logger) {
	if state.Game == nil || state.Storage == nil || state.RoomID == "" {
		return
	}
	if err := state.Storage.SaveState(ctx, state.RoomID, state.Game); err != nil {
		logger.Error("Failed to persist game state: %v", err)
	}
}

func labelStruct(state *MatchState) *structpb.Struct {
	phase := "lobby"
	if state.Game != nil {
		if state.Game.Draw {
			phase = "dealing"
		} else {
			phase = "playing"
		}
	}
	return fields(map[string]*structpb.Value{
		"open":  structpb.NewNumberValue(float64(state.GetOpenSeatsCount())),
		"state": structpb.NewStringValue(phase),
		"game":  structpb.NewStringValue("shengji"),
	})
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	labelBytes, err := marshalWire(labelStruct(state))
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

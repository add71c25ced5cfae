package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"shengji/internal/app"
	"shengji/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

// FindMatchResponse is the payload returned to clients looking for a table.
type FindMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcFindMatch, rpcFindMatch); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcRoomToken, rpcRoomToken)
}

// rpcFindMatch returns an open table, creating one when none exists.
func rpcFindMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	query := "+label.game:shengji +label.state:lobby +label.open:>=1"
	limit := 10
	authoritative := true
	minSize := 0
	maxSize := config.GetTableSize() - 1

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("rpcFindMatch [User:%s]: Failed to list matches: %v", userID, err)
		return "", runtime.NewError("match listing failed", 13)
	}

	if len(matches) > 0 {
		resp := FindMatchResponse{MatchID: matches[0].MatchId, IsNew: false}
		b, _ := json.Marshal(resp)
		return string(b), nil
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameShengJi, map[string]interface{}{})
	if err != nil {
		logger.Error("rpcFindMatch [User:%s]: Failed to create match: %v", userID, err)
		return "", runtime.NewError("match creation failed", 13)
	}

	logger.Info("rpcFindMatch [User:%s]: Created new match %s", userID, matchID)
	resp := FindMatchResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

// rpcRoomToken mints a signed admission token binding the caller to a
// room and seat.
// Payload: {"room_id": "...", "seat": 0}
func rpcRoomToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("authentication required", 16)
	}

	var req struct {
		RoomID string `json:"room_id"`
		Seat   int    `json:"seat"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}
	if req.RoomID == "" {
		return "", runtime.NewError("room_id required", 3)
	}

	tokens := newRoomTokenService(ctx)
	if tokens == nil {
		logger.Error("rpcRoomToken: No token secret configured.")
		return "", runtime.NewError("token signing unavailable", 13)
	}

	token, err := tokens.GenerateToken(userID, req.RoomID, req.Seat)
	if err != nil {
		logger.Error("rpcRoomToken [User:%s]: %v", userID, err)
		return "", runtime.NewError("token generation failed", 13)
	}

	b, _ := json.Marshal(map[string]string{"token": token})
	return string(b), nil
}

// newRoomTokenService builds the admission token service from config,
// falling back to the runtime environment for the signing secret. A nil
// service means no secret is configured anywhere.
func newRoomTokenService(ctx context.Context) *app.RoomTokenService {
	secret := config.GetRoomTokenSecret()
	if secret == "" {
		env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
		secret = env["shengji_room_token_secret"]
	}
	if secret == "" {
		return nil
	}

	ttl := time.Duration(config.GetRoomTokenTTLSeconds()) * time.Second
	return app.NewRoomTokenService(secret, config.GetRoomTokenIssuer(), ttl)
}

package nakama

const (
	// RpcFindMatch is the Nakama RPC id clients call to find or create a table.
	RpcFindMatch = "find_match"

	// RpcRoomToken is the Nakama RPC id clients call to mint a room admission token.
	RpcRoomToken = "room_token"

	// MatchNameShengJi is the authoritative match handler name registered with Nakama.
	MatchNameShengJi = "shengji_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpDrawCard  int64 = 1
	OpCallTrump int64 = 2
	OpPlayCards int64 = 3

	// Server -> Client events
	OpPlayerJoined  int64 = 101
	OpPlayerLeft    int64 = 102
	OpGameStarted   int64 = 103
	OpCardDrawn     int64 = 104 // send privately
	OpDrawFinished  int64 = 105
	OpTrumpDeclared int64 = 106
	OpCardPlayed    int64 = 107
	OpTrickWon      int64 = 108
	OpRoundSettled  int64 = 109
	OpGameEnded     int64 = 110
	OpGameError     int64 = 111
	OpStateSnapshot int64 = 112 // per-seat view, sent on join and reconnect
)

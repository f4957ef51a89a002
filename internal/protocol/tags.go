// internal/protocol/tags.go
package protocol

// Inbound top-level categories.
const (
	CategoryServer byte = 0
	CategoryLobby  byte = 1
	CategoryGame   byte = 2
	CategoryPlayer byte = 3
)

// Server sub-actions.
const (
	ServerQuit        byte = 0
	ServerJoinLobby   byte = 1
	ServerCreateLobby byte = 2
	ServerList        byte = 3
	ServerLogin       byte = 4
	ServerTokenLogin  byte = 5
)

// Lobby sub-actions.
const (
	LobbyActionLeave byte = 0
	LobbyActionReady byte = 1
	LobbyActionStart byte = 2
)

// Game sub-actions. These are parsed by the match, never by the dispatcher.
const (
	GameLevelLoaded     byte = 0
	GameCardActivation  byte = 1
	GameMonsterMovement byte = 2
	GameEndTurn         byte = 3
)

// Player sub-actions.
const (
	PlayerChangeDeck byte = 0
	PlayerAddDeck    byte = 1
	PlayerRemoveDeck byte = 2
)

// Outbound top-level categories.
const (
	ClientMain      byte = 0
	ClientGame      byte = 1
	ClientGameState byte = 2
	ClientPing      byte = 3
)

// Outbound ClientMain sub-tags.
const (
	MainList            byte = 0
	MainLobbyFull       byte = 1
	MainLobbyIDNotFound byte = 2
	MainLobbyJoin       byte = 3
	MainLobbyLeave      byte = 4
	MainLoginAccept     byte = 5
	MainLoginReject     byte = 6
	MainLobbyOtherJoin  byte = 7
	MainPlayerReady     byte = 8
	MainDeckChanged     byte = 9
)

// Outbound ClientGame sub-tags.
const (
	GameMeta         byte = 0
	GameMapRow       byte = 1
	GameStart        byte = 2
	GameCardInit     byte = 3
	GameCardFaceInit byte = 4
)

// Outbound ClientGameState sub-tags.
const (
	StateTurnChange     byte = 0
	StateCardMovement   byte = 1
	StateMonsterSpawn   byte = 2
	StateMonsterMove    byte = 3
	StateActionRejected byte = 4
	StateGameOver       byte = 5
)

// Login rejection reasons.
const (
	LoginWrongCredentials byte = 0
	LoginBadToken         byte = 1
)

// UnknownCoord replaces both coordinates of a position the receiving seat cannot see.
const UnknownCoord int32 = -1

// Fixed payload lengths checked by the dispatcher and the match parser.
const (
	LenTagPair        = 2
	LenJoinLobby      = 6
	LenReady          = 3
	LenChangeDeck     = 3
	LenLoginHeader    = 10
	LenTokenHeader    = 6
	LenCardActivation = 14
	LenMovementHeader = 10
	LenPathStep       = 8
)

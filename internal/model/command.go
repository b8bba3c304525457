package model

// Inbound protocol actions
const (
	ActionCreateGame = "create_game"
	ActionGetGames   = "get_games"
	ActionJoinGame   = "join_game"
	ActionSetName    = "set_name"
	ActionPing       = "ping"
)

// Outbound protocol actions
const (
	ActionGameCreated  = "game_created"
	ActionGamesUpdated = "games_updated"
	ActionGamesList    = "games_list"
	ActionPlayerJoined = "player_joined"
	ActionGameJoined   = "game_joined"
	ActionNameSet      = "name_set"
	ActionPong         = "pong"
	ActionError        = "error"
)

// Command is one decoded inbound frame
type Command struct {
	Action string `json:"action"`
	Data   string `json:"data,omitempty"`
	GameID string `json:"gameId,omitempty"`
}

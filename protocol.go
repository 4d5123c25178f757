package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin     = "join"
	MsgLeave    = "leave"
	MsgMove     = "move"    // owner-reported movement state
	MsgHit      = "hit"     // owner-reported damage
	MsgPick     = "pick"    // spawn point selection
	MsgQueue    = "queue"   // ask for a server of a given type
	MsgList     = "list"    // list directory entries
	MsgRegister = "register"
	MsgLogin    = "login"
	MsgAuth     = "auth"
	MsgLoadout  = "loadout"
)

// Server -> Client message types
const (
	MsgWelcome     = "welcome"
	MsgJoined      = "joined"
	MsgCountdown   = "countdown"
	MsgFlyIn       = "flyin"
	MsgSpawnSelect = "spawnsel" // unicast: own team bounds + deadline
	MsgRoundResult = "round"
	MsgMatchEnd    = "matchend"
	MsgDespawn     = "despawn"
	MsgSpawned     = "spawned"
	MsgSessions    = "sessions"
	MsgMatched     = "matched"
	MsgError       = "error"
	MsgAuthOK      = "auth_ok"
	MsgLoadoutData = "loadout_data"
)

// Envelope wraps all outgoing JSON messages with a type field.
// Replicated field batches travel separately as binary msgpack frames.
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg is sent when a player wants to enter the hosted match
type JoinMsg struct {
	Name string `json:"name"`
}

// MoveMsg is the owner's trusted movement report, sent every other physics step
type MoveMsg struct {
	Pos     Vec3    `json:"p"`
	Yaw     float64 `json:"yaw"`
	Vel     Vec3    `json:"v"`
	Dashing bool    `json:"dash,omitempty"`
}

// HitMsg reports damage dealt to a target entity
type HitMsg struct {
	TargetID string `json:"tid"`
	Amount   int    `json:"amt"`
}

// PickMsg carries a spawn point selection
type PickMsg struct {
	Point Vec3 `json:"pt"`
}

// QueueMsg asks the hub for a joinable server of the given type
type QueueMsg struct {
	ServerType string `json:"type"`
}

// WelcomeMsg is sent to a player after joining
type WelcomeMsg struct {
	ID    string        `json:"id"`
	Team  int           `json:"team"`
	Rules MovementRules `json:"rules"`
}

// CountdownMsg carries the descending pre-round counter; zero clears the display
type CountdownMsg struct {
	Seconds int `json:"s"`
}

// FlyInMsg announces the scripted intro sequence and its duration
type FlyInMsg struct {
	Duration float64 `json:"dur"`
}

// SpawnSelectMsg is unicast per client with its own team's spawn region
type SpawnSelectMsg struct {
	Bounds   Rect    `json:"bounds"`
	Deadline float64 `json:"deadline"` // seconds to choose
	Round    int     `json:"round"`
}

// SpawnedMsg announces a placed entity to every client
type SpawnedMsg struct {
	ID   string  `json:"id"`
	Team int     `json:"team"`
	Pos  Vec3    `json:"p"`
	Yaw  float64 `json:"yaw"`
}

// RoundResultMsg is broadcast when a round ends
type RoundResultMsg struct {
	Round   int  `json:"round"`
	Winner  int  `json:"winner"` // TeamNone on draw
	WinsA   int  `json:"winsA"`
	WinsB   int  `json:"winsB"`
	Elim    bool `json:"elim"` // won by elimination rather than timer
}

// MatchEndMsg is broadcast once when the match ends
type MatchEndMsg struct {
	Winner int    `json:"winner"`
	Score  string `json:"score"` // "{winsA} - {winsB}"
}

// MatchedMsg is the response to a queue request
type MatchedMsg struct {
	Found         bool   `json:"found"`
	TransportCode string `json:"code,omitempty"`
	FriendlyName  string `json:"name,omitempty"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// RegisterMsg creates an account
type RegisterMsg struct {
	Username string `json:"u"`
	Password string `json:"p"`
}

// LoginMsg authenticates an account
type LoginMsg struct {
	Username string `json:"u"`
	Password string `json:"p"`
}

// AuthMsg resumes a session from a token
type AuthMsg struct {
	Token string `json:"tok"`
}

// AuthOKMsg confirms authentication
type AuthOKMsg struct {
	Token    string `json:"tok"`
	Username string `json:"u"`
	PlayerID int64  `json:"pid"`
}

// LoadoutDataMsg returns the opaque loadout blob read at session start.
// Match logic never interprets it.
type LoadoutDataMsg struct {
	Loadout json.RawMessage `json:"loadout"`
}

package main

// Wire protocol: JSON text frames with a "type" discriminator, except for
// the very first client frame, which is the player's raw chosen name.

// clientMessage is the single inbound shape. Type is one of "ready",
// "answer", or "disconnect"; anything else drops the connection.
type clientMessage struct {
	Type   string `json:"type"`
	Answer string `json:"answer"`         // chosen option; empty means no answer
	Time   int    `json:"time,omitempty"` // client-measured latency in ms
}

const (
	msgReady      = "ready"
	msgAnswer     = "answer"
	msgDisconnect = "disconnect"
)

// gameConfigMessage is sent to each client immediately after admission.
type gameConfigMessage struct {
	Type          string `json:"type"` // "game_config"
	TotalRounds   int    `json:"total_rounds"`
	AnswerTimeout int    `json:"answer_timeout"` // milliseconds
}

// playersUpdateMessage keeps every client's roster in sync.
type playersUpdateMessage struct {
	Type    string   `json:"type"` // "players_update"
	Players []string `json:"players"`
}

type playerReadyMessage struct {
	Type   string `json:"type"` // "player_ready"
	Player string `json:"player"`
}

type gameStartMessage struct {
	Type string `json:"type"` // "game_start"
}

type newRoundMessage struct {
	Type       string         `json:"type"` // "new_round"
	Round      int            `json:"round"`
	Word       string         `json:"word"`
	Options    []string       `json:"options"` // exactly 4, one correct
	Scores     map[string]int `json:"scores"`
	Multiplier float64        `json:"multiplier"`
}

// answerFeedbackMessage goes only to the client that submitted the answer.
type answerFeedbackMessage struct {
	Type      string `json:"type"` // "answer_feedback"
	Answer    string `json:"answer"`
	IsCorrect bool   `json:"is_correct"`
}

type roundResultMessage struct {
	Type          string `json:"type"` // "round_result"
	BothCorrect   bool   `json:"both_correct"`
	Winner        string `json:"winner,omitempty"` // empty when nobody scored
	ScoreAdded    int    `json:"score_added"`
	CorrectAnswer string `json:"correct_answer"`
	WrongAnswer   string `json:"wrong_answer,omitempty"`
	Word          string `json:"word"`
	IsLastRound   bool   `json:"is_last_round"`
}

// gameOverMessage ends a match: either with final standings, or with a
// Reason when a player dropped and the room was reset.
type gameOverMessage struct {
	Type      string         `json:"type"` // "game_over"
	Scores    map[string]int `json:"scores"`
	Winners   []string       `json:"winners,omitempty"`
	IsTie     bool           `json:"is_tie,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	ResetGame bool           `json:"reset_game,omitempty"`
}

// nameTakenMessage rejects an admission attempt (duplicate name, invalid
// name, or a full room) before the connection is closed.
type nameTakenMessage struct {
	Type    string `json:"type"` // "name_taken"
	Message string `json:"message"`
}

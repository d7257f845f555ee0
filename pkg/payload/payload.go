package payload

import (
	"fmt"
	"math"
	"time"

	"blackjack-server/pkg/deck"

	"github.com/google/uuid"
)

// keys of outgoing messages
const (
	KeyStatus           = "status"
	KeyError            = "error"
	KeyTableUpdate      = "tableUpdate"
	KeyGameOver         = "gameOver"
	KeyGameStatusChange = "gameStatusChange"
	KeyTableClosed      = "tableClosed"
)

// Response is a message sent to a client
// Context echoes the context of the request it answers, if any
type Response struct {
	Key     string      `json:"key"`
	Value   string      `json:"value"`
	Data    interface{} `json:"data"`
	Context string      `json:"context"`
}

// OK returns a generic success response
func OK(ctx ...string) *Response {
	res := &Response{
		Key:   KeyStatus,
		Value: "OK",
	}

	if len(ctx) == 1 {
		res.Context = ctx[0]
	}

	return res
}

// Error returns an error response for the request with the context
func Error(ctx string, err error) *Response {
	return &Response{
		Key:     KeyError,
		Value:   err.Error(),
		Context: ctx,
	}
}

// PayloadIn is the format we expect from the JS client
type PayloadIn struct {
	Action         string         `json:"action"`
	Subject        string         `json:"subject"`
	AdditionalData AdditionalData `json:"additionalData"`
	// Context will be passed back on any outgoing message
	Context string `json:"context"`
}

// AdditionalData provides additional data in a payload
type AdditionalData map[string]interface{}

// GetString returns a string for the given key
func (a AdditionalData) GetString(key string) (string, bool) {
	s, ok := a[key].(string)
	return s, ok
}

// GetInt returns an integer value for the given key
// A number with a fraction is not an integer.
func (a AdditionalData) GetInt(key string) (int, bool) {
	floatVal, ok := a[key].(float64)
	if !ok || floatVal != math.Trunc(floatVal) || math.Abs(floatVal) > math.MaxInt32 {
		return 0, false
	}

	return int(floatVal), true
}

// GetBool returns a boolean value for the given key
func (a AdditionalData) GetBool(key string) (bool, bool) {
	boolVal, ok := a[key].(bool)
	return boolVal, ok
}

// LogMessage is a line of the table's activity log
// If PlayerIDs is empty the message is about the table, otherwise it reads as "{player} did X"
type LogMessage struct {
	UUID      string       `json:"uuid"`
	PlayerIDs []string     `json:"playerIds"`
	Cards     []*deck.Card `json:"cards"`
	Message   string       `json:"message"`
	Time      time.Time    `json:"time"`
}

// SimpleLogMessage returns a new LogMessage
func SimpleLogMessage(playerID string, format string, a ...interface{}) *LogMessage {
	var playerIDs []string
	if playerID != "" {
		playerIDs = []string{playerID}
	}

	return &LogMessage{
		UUID:      uuid.New().String(),
		PlayerIDs: playerIDs,
		Message:   fmt.Sprintf(format, a...),
		Time:      time.Now(),
	}
}

// WithCards attaches cards to the message
func (l *LogMessage) WithCards(cards ...*deck.Card) *LogMessage {
	l.Cards = cards
	return l
}

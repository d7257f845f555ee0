package payload

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"blackjack-server/pkg/deck"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOK(t *testing.T) {
	assert.Equal(t, &Response{Key: "status", Value: "OK"}, OK())
	assert.Equal(t, &Response{Key: "status", Value: "OK", Context: "abc"}, OK("abc"))
}

func TestError(t *testing.T) {
	assert.Equal(t, &Response{Key: "error", Value: "boom", Context: "abc"}, Error("abc", errors.New("boom")))
}

func TestPayloadIn_unmarshal(t *testing.T) {
	a := assert.New(t)

	var msg PayloadIn
	require.NoError(t, json.Unmarshal([]byte(`{"action":"placeBet","additionalData":{"amount":25,"half":2.5,"note":"hi","all":true},"context":"c1"}`), &msg))
	a.Equal("placeBet", msg.Action)
	a.Equal("c1", msg.Context)

	amount, ok := msg.AdditionalData.GetInt("amount")
	a.True(ok)
	a.Equal(25, amount)

	_, ok = msg.AdditionalData.GetInt("half")
	a.False(ok)

	_, ok = msg.AdditionalData.GetInt("note")
	a.False(ok)

	_, ok = msg.AdditionalData.GetInt("missing")
	a.False(ok)

	note, ok := msg.AdditionalData.GetString("note")
	a.True(ok)
	a.Equal("hi", note)

	all, ok := msg.AdditionalData.GetBool("all")
	a.True(ok)
	a.True(all)

	_, ok = msg.AdditionalData.GetBool("note")
	a.False(ok)
}

func TestSimpleLogMessage(t *testing.T) {
	before := time.Now()
	lm := SimpleLogMessage("", "test %d", 5)
	assert.Equal(t, "test 5", lm.Message)
	assert.Nil(t, lm.PlayerIDs)
	assert.NotEmpty(t, lm.UUID)
	assert.False(t, lm.Time.Before(before))
	assert.Nil(t, lm.Cards)
}

func TestSimpleLogMessage_withPlayerID(t *testing.T) {
	lm := SimpleLogMessage("p1", "hit").WithCards(deck.CardFromString("14s"))
	assert.Equal(t, []string{"p1"}, lm.PlayerIDs)
	assert.Equal(t, "14s", deck.CardsToString(lm.Cards))
}

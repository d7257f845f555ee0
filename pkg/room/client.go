package room

import (
	"context"
	"fmt"
	"sync"

	"blackjack-server/pkg/payload"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// sendBuffer is how many messages can wait for a slow client before they're dropped
const sendBuffer = 256

// Client is a client connected to the server via websockets
type Client struct {
	// Conn is the underlying websocket connection
	Conn *websocket.Conn

	// send is a channel for sending messages to the client
	send chan interface{}

	// Close receives the reason the server wants the connection closed
	Close chan string

	// CloseError contains the reason why the connection was closed
	CloseError error

	PlayerID    string
	DisplayName string

	lock      sync.Mutex
	dealer    *Dealer
	closeOnce sync.Once
}

// NewClient returns a new client object
func NewClient(conn *websocket.Conn, playerID, displayName string) *Client {
	return &Client{
		send:        make(chan interface{}, sendBuffer),
		Close:       make(chan string, 1),
		Conn:        conn,
		PlayerID:    playerID,
		DisplayName: displayName,
	}
}

// Send send a message to the web client
// Returns false if the client is not keeping up and the message was dropped
func (c *Client) Send(msg interface{}) bool {
	select {
	case c.send <- msg:
		return true
	default:
		logrus.WithField("client", c.String()).Warn("client send buffer is full, dropping message")
		return false
	}
}

// SendChan returns a read-only channel
func (c *Client) SendChan() <-chan interface{} {
	return c.send
}

// String returns a traceable identifier for the player and table
func (c *Client) String() string {
	if d := c.Dealer(); d != nil {
		return fmt.Sprintf("%s:%s", c.PlayerID, d.ID())
	}

	return c.PlayerID
}

// Dealer returns the dealer of the table the client is seated at
func (c *Client) Dealer() *Dealer {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.dealer
}

func (c *Client) setDealer(d *Dealer) {
	c.lock.Lock()
	c.dealer = d
	c.lock.Unlock()
}

// kick asks the transport to close the connection
func (c *Client) kick(reason string) {
	c.closeOnce.Do(func() {
		c.Close <- reason
	})
}

// ReceivedMessage is called when the server receives a message from a connected client
func (c *Client) ReceivedMessage(ctx context.Context, msg *payload.PayloadIn) {
	d := c.Dealer()
	if d == nil {
		logrus.WithField("msg", msg).Warn("received message, but dealer not found")
		c.Send(payload.Error(msg.Context, ErrTableNotFound))
		return
	}

	d.ReceivedMessage(ctx, c, msg)
}

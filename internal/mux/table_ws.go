package mux

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"blackjack-server/pkg/blackjack"
	"blackjack-server/pkg/payload"
	"blackjack-server/pkg/room"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = time.Second * 10
const pongWait = time.Second * 60
const pingPeriod = pongWait * 9 / 10
const messageTimeout = time.Second * 10

func (m *Mux) getTableUUIDWS() http.HandlerFunc {
	upgrader := &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logrus.WithError(err).Error("could not upgrade connected")
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		d := tableFrom(r)
		player := playerFrom(r)
		client := room.NewClient(conn, player.ID, player.Name)

		if err := m.pitBoss.ClientConnected(r.Context(), client, d.ID()); err != nil {
			logrus.WithError(err).WithField("client", client.String()).Info("could not seat player")
			rejectClient(conn, err)
			return
		}

		waitForCloseFrame := make(chan bool)
		defer func() {
			m.pitBoss.ClientDisconnected(client)
			_ = conn.Close()
			close(waitForCloseFrame)
		}()

		go m.webSocketWriteLoop(client, waitForCloseFrame)
		m.webSocketReadLoop(r.Context(), client)
	}
}

// rejectClient tells the client why they could not sit down and closes the connection
func rejectClient(conn *websocket.Conn, err error) {
	var ue blackjack.UserError
	if !errors.As(err, &ue) {
		err = room.ErrInternal
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(payload.Error("", err))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
	_ = conn.Close()
}

func (m *Mux) webSocketWriteLoop(client *room.Client, waitForCloseFrame chan bool) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.Conn.Close()
	}()

	for {
		select {
		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case reason := <-client.Close:
			// send whatever was queued before the close
			drainClient(client)

			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = client.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))

			// wait for the close frame
			select {
			case <-waitForCloseFrame:
			case <-time.After(time.Second):
			}
			return
		case msg := <-client.SendChan():
			if err := writeClientMessage(client, msg); err != nil {
				return
			}
		}
	}
}

func drainClient(client *room.Client) {
	for {
		select {
		case msg := <-client.SendChan():
			if err := writeClientMessage(client, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func writeClientMessage(client *room.Client, msg interface{}) error {
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		msgBytes, _ := json.Marshal(msg)
		logrus.WithField("message", string(msgBytes)).WithField("client", client.String()).Trace("sending message to client")
	}

	_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.Conn.WriteJSON(msg); err != nil {
		logrus.WithError(err).WithField("client", client.String()).Error("could not write message")
		return err
	}

	return nil
}

func (m *Mux) webSocketReadLoop(ctx context.Context, client *room.Client) {
	for {
		var msg payload.PayloadIn
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logrus.WithError(err).WithField("client", client.String()).Error("could not read message")
			}

			client.CloseError = err
			return
		}

		msgCtx, cancel := context.WithTimeout(ctx, messageTimeout)
		client.ReceivedMessage(msgCtx, &msg)
		cancel()
	}
}

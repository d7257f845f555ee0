package mux

import (
	"net/http"
	"time"
)

type playerMeResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Balance     int       `json:"balance"`
	TableID     *string   `json:"tableId"`
	Created     time.Time `json:"created"`
}

func (m *Mux) getPlayerMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player := playerFrom(r)
		record, err := m.pitBoss.Player(r.Context(), player.ID, player.Name)
		if err != nil {
			writeError(w, err)
			return
		}

		resp := playerMeResponse{
			ID:          record.ID,
			DisplayName: record.DisplayName,
			Balance:     record.Balance,
			Created:     record.Created,
		}

		if tableID, ok := m.pitBoss.SeatOf(player.ID); ok {
			resp.TableID = &tableID
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

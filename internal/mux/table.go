package mux

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"blackjack-server/internal/util"
	"blackjack-server/pkg/blackjack"

	gmux "github.com/gorilla/mux"
)

const maxTableName = 40

func (m *Mux) getTable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.pitBoss.Tables())
	}
}

type postTablePayload struct {
	Name string `json:"name"`
}

func (m *Mux) postTable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var pp postTablePayload
		if !decodeRequest(w, r, &pp) {
			return
		}

		name := strings.TrimSpace(pp.Name)
		if name == "" {
			name = util.GetRandomName()
		}

		if utf8.RuneCountInString(name) > maxTableName {
			writeJSONError(w, http.StatusBadRequest, errors.New("name cannot be more than 40 characters"))
			return
		}

		d, err := m.pitBoss.CreateTable(name, playerFrom(r).ID)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, d.Summary())
	}
}

func (m *Mux) getTableUUID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := tableFrom(r).Snapshot(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, snapshot)
	}
}

func (m *Mux) deleteTableUUID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := m.pitBoss.DeleteTable(r.Context(), tableFrom(r).ID(), playerFrom(r).ID); err != nil {
			writeError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (m *Mux) getTableUUIDRounds() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := parseRows(r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err)
			return
		}

		rounds, err := m.pitBoss.Rounds(r.Context(), strings.ToLower(gmux.Vars(r)["uuid"]), rows)
		if err != nil {
			writeError(w, err)
			return
		}

		if rounds == nil {
			rounds = []*blackjack.RoundResult{}
		}

		writeJSON(w, http.StatusOK, rounds)
	}
}

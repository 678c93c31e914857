// internal/handlers/table.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pairs/internal/auth"
	"github.com/jason-s-yu/pairs/internal/game"
	"github.com/jason-s-yu/pairs/internal/models"
)

// ThemesHandler lists the catalog themes and the supported card counts.
func ThemesHandler(ts *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"themes":     ts.Builder.Catalog().Themes(),
			"cardCounts": game.SupportedCardCounts,
			"maxPlayers": ts.MaxPlayers,
		})
	}
}

// CreateTableHandler creates a table from the setup body, deals the first
// round and hands the caller the table token as a cookie.
func CreateTableHandler(ts *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "bad table request payload", http.StatusBadRequest)
			return
		}
		cfg, err := game.ParseConfig(body, game.DefaultTableConfig())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		t, err := ts.CreateTable(cfg)
		if err != nil {
			writeTableError(w, err)
			return
		}

		token, err := auth.CreateTableToken(t.ID)
		if err != nil {
			ts.Logger.Errorf("Failed to sign token for table %s: %v", t.ID, err)
			ts.RemoveTable(t.ID)
			http.Error(w, "failed to create table token", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     auth.TokenCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Expires:  time.Now().Add(24 * time.Hour),
		})

		ts.Logger.Infof("Created table %s (%s, %d cards, %d players)", t.ID, cfg.Theme, cfg.TotalCards, cfg.PlayerCount)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"table_id": t.ID,
			"token":    token,
			"state":    t.Snapshot(),
		})
	}
}

// TableStateHandler returns the snapshot of GET /table/{id}.
func TableStateHandler(ts *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := lookupTable(w, r, ts)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, t.Snapshot())
	}
}

// RestartTableHandler deals a new round for POST /table/{id}/restart. An
// optional body with setup keys changes the config first.
func RestartTableHandler(ts *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := lookupTable(w, r, ts)
		if !ok {
			return
		}
		if !authorizeTable(r, t.ID) {
			http.Error(w, "invalid table token", http.StatusForbidden)
			return
		}

		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "bad restart payload", http.StatusBadRequest)
			return
		}
		if err := ts.RestartTable(t, body); err != nil {
			writeTableError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t.Snapshot())
	}
}

// lookupTable resolves the {id} path value, writing 400/404 on failure.
func lookupTable(w http.ResponseWriter, r *http.Request, ts *TableServer) (*game.Table, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid table_id format", http.StatusBadRequest)
		return nil, false
	}
	t, ok := ts.Store.GetTable(id)
	if !ok {
		http.Error(w, "table not found", http.StatusNotFound)
		return nil, false
	}
	return t, true
}

// writeTableError maps configuration errors to 400 and anything else to 500.
func writeTableError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUnknownTheme), errors.Is(err, models.ErrInvalidConfiguration):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

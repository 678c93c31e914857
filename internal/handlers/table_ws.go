// internal/handlers/table_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/pairs/internal/game"
	"github.com/jason-s-yu/pairs/internal/middleware"
	"github.com/jason-s-yu/pairs/internal/models"
	"github.com/sirupsen/logrus"
)

// TableSubprotocol is the websocket subprotocol clients must request.
const TableSubprotocol = "table"

// TableWSHandler upgrades GET /table/ws/{id} to a websocket. The caller must
// hold the table's token. The current snapshot is sent on connect, then
// client actions are read until the socket closes.
func TableWSHandler(logger *logrus.Logger, ts *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "Invalid table_id format", http.StatusBadRequest)
			return
		}
		t, ok := ts.Store.GetTable(tableID)
		if !ok {
			http.Error(w, "Table not found", http.StatusNotFound)
			return
		}
		hub, ok := ts.hub(tableID)
		if !ok {
			http.Error(w, "Table not found", http.StatusNotFound)
			return
		}
		if !authorizeTable(r, tableID) {
			http.Error(w, "Invalid table token", http.StatusForbidden)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{TableSubprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for table %s: %v", tableID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != TableSubprotocol {
			logger.Warnf("Client for table %s connected with invalid subprotocol: %q", tableID, c.Subprotocol())
			c.Close(BadSubprotocolError, "Client must use the 'table' subprotocol.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, tableID.String())

		client := hub.join(c)
		defer hub.leave(client)
		t.SendSyncState()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		err = readTableMessages(ctx, c, ts, t, logger)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, tableID.String(), err)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readTableMessages reads client actions until the socket closes. It returns
// nil on a normal closure.
func readTableMessages(ctx context.Context, c *websocket.Conn, ts *TableServer, t *game.Table, logger *logrus.Logger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d on table %s. Ignoring.", msgType, t.ID)
			continue
		}

		var action models.GameAction
		if err := json.Unmarshal(data, &action); err != nil {
			logger.Warnf("Invalid JSON received on table %s: %v", t.ID, err)
			sendWsError(c, "Invalid JSON format.")
			continue
		}
		handleTableAction(c, ts, t, action, logger)
	}
}

// handleTableAction routes one client action to the table.
func handleTableAction(c *websocket.Conn, ts *TableServer, t *game.Table, action models.GameAction, logger *logrus.Logger) {
	logger.Debugf("Received action '%s' on table %s.", action.ActionType, t.ID)

	switch action.ActionType {
	case "select_card":
		cardID, ok := action.IntPayload("card_id")
		if !ok {
			sendWsError(c, "select_card requires an integer card_id.")
			return
		}
		// rejected taps are silent; the client keeps its last snapshot
		t.SelectCard(cardID)

	case "new_round":
		if err := ts.RestartTable(t, action.Payload); err != nil {
			logger.Warnf("Failed to restart table %s: %v", t.ID, err)
			sendWsError(c, err.Error())
		}

	case "ping":
		sendWsMessage(c, map[string]string{"type": "pong"})

	default:
		logger.Warnf("Unknown action type '%s' on table %s.", action.ActionType, t.ID)
		sendWsError(c, "Unknown action type: "+action.ActionType)
	}
}

// sendWsMessage writes a direct reply to one client.
func sendWsMessage(c *websocket.Conn, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("Error marshaling WebSocket message: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := c.Write(ctx, websocket.MessageText, data); err != nil {
		logrus.Debugf("Error writing WebSocket message: %v", err)
	}
}

func sendWsError(c *websocket.Conn, msg string) {
	sendWsMessage(c, map[string]interface{}{
		"type":    "error",
		"message": msg,
	})
}

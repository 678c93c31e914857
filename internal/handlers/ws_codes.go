// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the table socket.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Table token missing, expired, or issued for another table.
	InvalidTableIDError   = 3003 // Target table in the WS URL does not exist or was pruned.
	SlowConsumerError     = 3004 // Client fell too far behind on table events.
)

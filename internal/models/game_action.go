package models

// GameAction captures a message sent by the client driving a table, e.g.
// {"type":"select_card","payload":{"card_id":3}}.
type GameAction struct {
	ActionType string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// IntPayload reads an integral number from the payload. JSON numbers decode
// as float64, so fractional values are rejected.
func (a GameAction) IntPayload(key string) (int, bool) {
	if a.Payload == nil {
		return 0, false
	}
	switch v := a.Payload[key].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

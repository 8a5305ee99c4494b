package ws

import (
	"encoding/json"

	"zentari/internal/entitlement"
)

// Envelope frames every message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// server → client
type StatusPayload struct {
	Operation string              `json:"operation,omitempty"`
	Status    *entitlement.Status `json:"status"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func encode(typ string, payload any) []byte {
	env := Envelope{Type: typ}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			raw, _ = json.Marshal(ErrorPayload{Message: "encode failed"})
			env.Type = MsgError
		}
		env.Payload = raw
	}
	b, _ := json.Marshal(env)
	return b
}

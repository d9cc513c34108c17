package models

import "encoding/json"

// Real-time channel event names
const (
	EventSendMessage    = "send-message"
	EventReceiveMessage = "receive-message"
	EventError          = "error"
	EventPing           = "ping"
	EventPong           = "pong"
)

// Event is the envelope of every frame on the real-time channel
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SendMessagePayload is the data of an inbound send-message event
type SendMessagePayload struct {
	Content string `json:"content"`
	Sender  string `json:"sender"`
}

// ErrorPayload is the data of an outbound error event
type ErrorPayload struct {
	Message string `json:"message"`
}

// EncodeEvent marshals data into an event frame
func EncodeEvent(name string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return json.Marshal(Event{Event: name, Data: raw})
}

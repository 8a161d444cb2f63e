// Package message defines the cliip-show control protocol.
//
// All messages are newline-delimited JSON, one message per line: <json>\n
package message

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies the kind of message.
type Type string

const (
	TypeStatus         Type = "STATUS"
	TypeStatusResponse Type = "STATUS_RESPONSE"
	TypeShow           Type = "SHOW"
	TypeOK             Type = "OK"
	TypeError          Type = "ERROR"
)

// Session describes the visible HUD, if any.
type Session struct {
	ID        string    `json:"id"`
	Lines     int       `json:"lines"`
	Truncated bool      `json:"truncated"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Shown     time.Time `json:"shown"`
	Deadline  time.Time `json:"deadline"`
}

// Status carries daemon state in STATUS_RESPONSE messages.
type Status struct {
	PID        int       `json:"pid"`
	Version    string    `json:"version"`
	StartedAt  time.Time `json:"started_at"`
	Backend    string    `json:"backend"`
	Presenter  string    `json:"presenter"`
	ConfigPath string    `json:"config_path"`
	State      string    `json:"state"`
	Shown      uint64    `json:"shown"`
	Session    *Session  `json:"session,omitempty"`
	// Settings holds the effective configuration as "key = value" lines.
	Settings []string `json:"settings"`
}

// Message is the top-level wire envelope.
type Message struct {
	// Always present
	Type   Type   `json:"type"`
	Source string `json:"source,omitempty"`

	// SHOW
	Text string `json:"text,omitempty"`

	// STATUS_RESPONSE
	Status *Status `json:"status,omitempty"`

	// ERROR
	Error string `json:"error,omitempty"`
}

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("message decode: missing type")
	}
	return &m, nil
}

// Errorf builds an ERROR reply.
func Errorf(format string, args ...any) *Message {
	return &Message{Type: TypeError, Error: fmt.Sprintf(format, args...)}
}

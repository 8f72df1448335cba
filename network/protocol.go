package network

import (
	"bytes"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Spectator frame types.
const (
	MsgTypeWelcome  = "welcome"
	MsgTypeSnapshot = "snapshot"
	MsgTypeClosed   = "closed"
)

// Message is a decoded JSON frame.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// frame is the envelope every codec writes.
type frame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Codec turns an envelope into the bytes of one websocket frame.
type Codec interface {
	Name() string
	// Binary reports whether frames go out as binary websocket messages.
	Binary() bool
	Encode(msgType string, payload any) ([]byte, error)
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// CodecByName resolves a codec query parameter; empty means JSON.
func CodecByName(name string) (Codec, bool) {
	switch name {
	case "", "json":
		return JSON, true
	case "msgpack":
		return Msgpack, true
	}
	return nil, false
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Encode(msgType string, payload any) ([]byte, error) {
	return json.Marshal(frame{Type: msgType, Data: payload})
}

// msgpackCodec reuses the json field names so both encodings carry the
// same keys.
type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }
func (msgpackCodec) Binary() bool { return true }

func (msgpackCodec) Encode(msgType string, payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(frame{Type: msgType, Data: payload}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

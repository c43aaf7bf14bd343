package wsnotify

import "fmt"

// MessageType mirrors the websocket opcode of a frame.
type MessageType byte

const (
	TextMessage   MessageType = 1
	BinaryMessage MessageType = 2
	CloseMessage  MessageType = 8
	PingMessage   MessageType = 9
	PongMessage   MessageType = 10
)

func (t MessageType) IsText() bool {
	return t == TextMessage
}

func (t MessageType) IsControl() bool {
	return t >= CloseMessage
}

func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	case CloseMessage:
		return "close"
	case PingMessage:
		return "ping"
	case PongMessage:
		return "pong"
	default:
		return fmt.Sprintf("opcode(%d)", byte(t))
	}
}

// Message is a single frame read from or written to a Connection.
type Message interface {
	Type() MessageType
	Data() []byte
	String() string
}

type message struct {
	kind MessageType
	data []byte
}

func (m message) Type() MessageType {
	return m.kind
}

func (m message) Data() []byte {
	return m.data
}

func (m message) String() string {
	return fmt.Sprintf("Message{type=%s,data=%s}", m.kind, m.data)
}

type closeMessage struct {
	message
	Code int
}

func (m closeMessage) String() string {
	return fmt.Sprintf("Message{type=%s,code=%d,data=%s}", m.kind, m.Code, m.data)
}

func NewMessage(mt MessageType, data []byte) Message {
	return message{kind: mt, data: data}
}

func NewTextMessage(data []byte) Message {
	return NewMessage(TextMessage, data)
}

func NewBinaryMessage(data []byte) Message {
	return NewMessage(BinaryMessage, data)
}

func NewPingMessage(data []byte) Message {
	return NewMessage(PingMessage, data)
}

func NewPongMessage(data []byte) Message {
	return NewMessage(PongMessage, data)
}

func NewCloseMessage(code int, data []byte) Message {
	return closeMessage{
		message: message{kind: CloseMessage, data: data},
		Code:    code,
	}
}

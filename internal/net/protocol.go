package net

import (
	"CollabCanvas/internal/presence"
	"CollabCanvas/internal/state"
)

// MessageType tags a frame on the room socket.
type MessageType string

const (
	// MsgWelcome is the first frame a client receives: its connection id,
	// the room's document and sequence number, and everyone else's presence.
	MsgWelcome MessageType = "welcome"
	// MsgTx carries a transaction. Clients send it unsequenced; the hub
	// echoes it to everyone with Seq set.
	MsgTx MessageType = "tx"
	// MsgAck tells the sender that a transaction it resent had already been
	// sequenced.
	MsgAck MessageType = "ack"
	// MsgPresence carries a full presence record.
	MsgPresence MessageType = "presence"
	// MsgLeave reports that a connection left the room.
	MsgLeave MessageType = "leave"
)

// Message is one JSON frame. Only the fields of its Type are set.
type Message struct {
	Type      MessageType                         `json:"type"`
	Conn      presence.ConnID                     `json:"conn,omitempty"`
	Seq       uint64                              `json:"seq,omitempty"`
	Tx        *state.Transaction                  `json:"tx,omitempty"`
	TxID      string                              `json:"txId,omitempty"`
	Document  *state.Document                     `json:"document,omitempty"`
	Presence  *presence.Record                    `json:"presence,omitempty"`
	Presences map[presence.ConnID]presence.Record `json:"presences,omitempty"`
}

// Snapshot is the body of GET /rooms/{id}/snapshot.
type Snapshot struct {
	Room     string          `json:"room"`
	Seq      uint64          `json:"seq"`
	Peers    int             `json:"peers"`
	Document *state.Document `json:"document"`
}

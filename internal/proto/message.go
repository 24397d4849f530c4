package proto

import "encoding/json"

// Inbound is the envelope for actions coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeSendDM      = "send_dm"
	InboundTypeTypingStart = "typing_start"
	InboundTypeTypingStop  = "typing_stop"
	InboundTypePollVote    = "poll_vote"
	InboundTypeOnlineUsers = "request_online_users"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// SendDMData asks the server to deliver a direct message. At least one of
// text and gif_url must be non-empty.
type SendDMData struct {
	ToUserID int64  `json:"to_user_id"`
	Text     string `json:"text,omitempty"`
	GifURL   string `json:"gif_url,omitempty"`
}

// TypingData targets a typing indicator at one recipient.
type TypingData struct {
	ToUserID int64 `json:"to_user_id"`
}

// PollVoteData casts a vote for one option of a poll.
type PollVoteData struct {
	PollID   int64 `json:"poll_id"`
	OptionID int64 `json:"option_id"`
}

// Outbound is the envelope for events and errors sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

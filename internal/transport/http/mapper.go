package http

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/avelichko/flock-server/internal/proto"
	"github.com/avelichko/flock-server/internal/realtime"
	"github.com/avelichko/flock-server/internal/store"
)

// handleInbound dispatches one client action. The returned outbound, if any,
// goes back to the originating connection only; fan-out to everyone else
// happens inside the action handlers.
func (h *WSHandler) handleInbound(ctx context.Context, client *realtime.Client, user *store.User, inbound proto.Inbound) (*proto.Outbound, error) {
	switch inbound.Type {
	case proto.InboundTypeSendDM:
		var data proto.SendDMData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return malformed(), nil
		}
		_, err := h.actions.SendDirectMessage(ctx, user, data.ToUserID, data.Text, data.GifURL)
		return scopedError(err, realtime.EventDMError)

	case proto.InboundTypeTypingStart:
		var data proto.TypingData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return malformed(), nil
		}
		return scopedError(h.actions.TypingStart(user, data.ToUserID), "")

	case proto.InboundTypeTypingStop:
		var data proto.TypingData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return malformed(), nil
		}
		return scopedError(h.actions.TypingStop(user, data.ToUserID), "")

	case proto.InboundTypePollVote:
		var data proto.PollVoteData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return malformed(), nil
		}
		_, err := h.actions.CastPollVote(ctx, user, data.PollID, data.OptionID)
		return scopedError(err, realtime.EventPollError)

	case proto.InboundTypeOnlineUsers:
		h.actions.SendOnlineSnapshot(client)
		return nil, nil

	default:
		return &proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: "invalid_message", Msg: "unknown message type"},
		}, nil
	}
}

// scopedError converts an action result into the outbound for the originator.
// Validation failures of dm and poll actions surface as their dedicated error
// events; everything else uses the generic error envelope. Internal errors
// pass through for the read loop to log.
func scopedError(err error, errorEvent string) (*proto.Outbound, error) {
	if err == nil {
		return nil, nil
	}
	var actionErr *realtime.ActionError
	if !errors.As(err, &actionErr) {
		return nil, err
	}
	if errorEvent != "" {
		return &proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: errorEvent,
			Data:  realtime.ErrorPayload{Message: actionErr.Message},
		}, nil
	}
	return &proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: actionErr.Code, Msg: actionErr.Message},
	}, nil
}

func malformed() *proto.Outbound {
	return &proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: realtime.CodeBadRequest, Msg: "malformed payload"},
	}
}

func outboundFromEvent(event *realtime.Event) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: event.Name,
		Data:  event.Payload,
	}
}

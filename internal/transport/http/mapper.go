package http

import (
	"encoding/json"

	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto"
)

func inboundToMessage(inbound proto.Inbound) (core.Message, *proto.Error) {
	switch inbound.Event {
	case proto.InboundEventMessage:
		var data proto.MessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return core.Message{}, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "malformed message payload"}
		}
		// Receipt time and id are assigned by the hub.
		return core.Message{User: data.User, Text: data.Msg}, nil
	default:
		return core.Message{}, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown event"}
	}
}

// outboundsFromEvent maps a core event to wire frames. History expands to one
// chat frame per message.
func outboundsFromEvent(event *core.Event) []proto.Outbound {
	switch event.Kind {
	case core.EventChat:
		return []proto.Outbound{chatFrame(event.Message)}
	case core.EventHistory:
		frames := make([]proto.Outbound, 0, len(event.Messages))
		for _, msg := range event.Messages {
			frames = append(frames, chatFrame(msg))
		}
		return frames
	case core.EventError:
		if event.Error == nil {
			return []proto.Outbound{{Event: proto.OutboundEventError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}}
		}
		return []proto.Outbound{{
			Event: proto.OutboundEventError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}}
	default:
		return nil
	}
}

func chatFrame(msg core.Message) proto.Outbound {
	return proto.Outbound{
		Event: proto.OutboundEventChat,
		Data: proto.ChatData{
			User: msg.User,
			Msg:  msg.Text,
			Time: msg.Time.UnixMilli(),
		},
	}
}

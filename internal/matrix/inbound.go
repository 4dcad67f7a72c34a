// ABOUTME: Maps Matrix message events to conversation inputs
// ABOUTME: Images become attachments, "!payload" a button press and "tel:" a shared contact

package matrix

import (
	"strings"

	"maunium.net/go/mautrix/event"

	"github.com/2389/raketa/internal/conversation"
)

const contactPrefix = "tel:"

// ToInbound converts a message to an engine input. ok is false for message
// types the bot does not understand.
func ToInbound(content *event.MessageEventContent) (conversation.Inbound, bool) {
	if content == nil {
		return conversation.Inbound{}, false
	}

	switch content.MsgType {
	case event.MsgImage:
		ref := string(content.URL)
		if ref == "" && content.File != nil {
			ref = string(content.File.URL)
		}
		if ref == "" {
			return conversation.Inbound{}, false
		}
		return conversation.Attachment(ref), true

	case event.MsgText, event.MsgNotice:
		body := strings.TrimSpace(content.Body)
		switch {
		case strings.HasPrefix(body, ButtonPrefix) && len(body) > len(ButtonPrefix):
			return conversation.Button(strings.TrimSpace(body[len(ButtonPrefix):])), true
		case strings.HasPrefix(strings.ToLower(body), contactPrefix):
			return conversation.Contact(strings.TrimSpace(body[len(contactPrefix):])), true
		default:
			return conversation.Text(content.Body), true
		}

	default:
		return conversation.Inbound{}, false
	}
}

package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"rental-bot/utils"
)

const (
	// maxMessagesPerCall is the LINE limit for one reply or push.
	maxMessagesPerCall = 5

	// replyTokenTTL is kept under LINE's one minute reply token lifetime.
	replyTokenTTL = 50 * time.Second
)

// Target addresses a conversation. ReplyToken is empty for pushes the bot
// starts on its own, such as scheduled searches.
type Target struct {
	ConversationID string
	ReplyToken     string
	ReceivedAt     time.Time
}

// Messenger delivers messages to a conversation.
type Messenger interface {
	Send(ctx context.Context, to Target, messages ...linebot.SendingMessage) error
}

// LineMessenger sends through the LINE Messaging API. It replies while the
// reply token is fresh and pushes otherwise.
type LineMessenger struct {
	client *linebot.Client
	logger *utils.Logger
	now    func() time.Time
}

func NewLineMessenger(client *linebot.Client, logger *utils.Logger) *LineMessenger {
	return &LineMessenger{client: client, logger: logger, now: time.Now}
}

func (m *LineMessenger) Send(ctx context.Context, to Target, messages ...linebot.SendingMessage) error {
	useReply := to.ReplyToken != "" && m.now().Sub(to.ReceivedAt) < replyTokenTTL

	for len(messages) > 0 {
		n := len(messages)
		if n > maxMessagesPerCall {
			n = maxMessagesPerCall
		}
		chunk := messages[:n]
		messages = messages[n:]

		if useReply {
			// A reply token is single use.
			useReply = false
			_, err := m.client.ReplyMessage(to.ReplyToken, chunk...).WithContext(ctx).Do()
			if err == nil {
				continue
			}
			m.logger.Warn("[line] Reply to %s failed, pushing instead: %v", to.ConversationID, err)
		}

		if _, err := m.client.PushMessage(to.ConversationID, chunk...).WithContext(ctx).Do(); err != nil {
			return fmt.Errorf("line: push to %s: %w", to.ConversationID, err)
		}
	}
	return nil
}

package telegram

import "gopkg.in/telebot.v3"

// Client sends a message to a chat. The digest job depends on this rather
// than on the bot so it can run against a recording fake.
type Client interface {
	SendMessage(chatID int64, text string, options *telebot.SendOptions) error
}

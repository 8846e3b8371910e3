package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier sends escalation alerts to a support-team chat.
type TelegramNotifier struct {
	Bot    *tgbotapi.BotAPI
	ChatID int64
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Telegram notifier authorized on account %s", bot.Self.UserName)

	return &TelegramNotifier{Bot: bot, ChatID: chatID}, nil
}

func (t *TelegramNotifier) Notify(text string) error {
	if t.ChatID == 0 {
		return fmt.Errorf("invalid telegram chat ID")
	}
	msg := tgbotapi.NewMessage(t.ChatID, text)
	msg.ParseMode = "Markdown" // Enable markdown for better alerts
	_, err := t.Bot.Send(msg)
	return err
}

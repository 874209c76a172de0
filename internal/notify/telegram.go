package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"
)

type messageSender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Telegram 通过机器人把通知发送到指定会话。
type Telegram struct {
	bot    messageSender
	chatID int64
	logger *zap.Logger
}

// NewTelegram 使用机器人 token 创建 Telegram 通知器。
func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	if token == "" {
		return nil, errors.New("notify: telegram token 不能为空")
	}
	if chatID == 0 {
		return nil, errors.New("notify: telegram chat_id 不能为空")
	}
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("notify: 创建 telegram 机器人失败: %w", err)
	}
	return newTelegram(bot, chatID, logger), nil
}

func newTelegram(bot messageSender, chatID int64, logger *zap.Logger) *Telegram {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Telegram{bot: bot, chatID: chatID, logger: logger}
}

func (t *Telegram) Notify(ctx context.Context, msg Message) error {
	_, err := t.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: t.chatID},
		Text:   msg.String(),
	})
	if err != nil {
		t.logger.Warn("发送 telegram 通知失败", zap.Int64("chat_id", t.chatID), zap.Error(err))
		return fmt.Errorf("notify: 发送 telegram 通知失败: %w", err)
	}
	return nil
}

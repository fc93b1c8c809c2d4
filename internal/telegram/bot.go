package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"intent-chatter/internal/analytics"
	"intent-chatter/internal/auth"
	"intent-chatter/internal/chat"
	"intent-chatter/internal/storage"
)

// Telegram rejects longer messages.
const maxMessageLen = 4096

type Bot struct {
	api          *tgbotapi.BotAPI
	s            sender
	authSvc      *auth.Service
	engine       *chat.Engine
	historyLimit int
	logger       *zap.Logger
	now          func() time.Time

	mu       sync.Mutex
	sessions map[int64]*chat.Session
}

func New(botToken string, authSvc *auth.Service, engine *chat.Engine, historyLimit int, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))
	return &Bot{
		api:          api,
		s:            botAPISender{api: api},
		authSvc:      authSvc,
		engine:       engine,
		historyLimit: historyLimit,
		logger:       logger,
		now:          time.Now,
		sessions:     make(map[int64]*chat.Session),
	}, nil
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				b.handleIncomingMessage(update.Message)
			}
		}
	}
}

func (b *Bot) handleIncomingMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !b.authSvc.IsAllowed(msg.From.ID) {
		b.logger.Warn("unauthorized access attempt",
			zap.Int64("user_id", msg.From.ID),
			zap.String("username", msg.From.UserName))
		b.sendMessage(msg.Chat.ID, "Sorry, you are not allowed to use this bot.")
		return
	}
	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	session := b.sessionFor(msg.Chat.ID)
	reply, err := session.Submit(msg.Text)
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		return
	case err != nil:
		b.logger.Error("failed to answer", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, "Sorry, something went wrong.")
		return
	}

	b.logger.Info("turn",
		zap.Int64("chat_id", msg.Chat.ID),
		zap.String("session", session.Transcript().ID()),
		zap.String("tag", reply.Tag))

	b.sendMessage(msg.Chat.ID, reply.Response)
	if reply.LogErr != nil {
		b.sendMessage(msg.Chat.ID, "Note: this conversation could not be saved ("+reply.LogErr.Error()+").")
	}
	if reply.Ended {
		b.sendMessage(msg.Chat.ID, chat.Farewell)
		b.endSession(msg.Chat.ID)
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.endSession(msg.Chat.ID)
		b.sendMessage(msg.Chat.ID, chat.Welcome)
	case "history":
		b.sendMessage(msg.Chat.ID, b.renderHistory())
	case "about":
		b.sendMessage(msg.Chat.ID, chat.About)
	case "stats":
		if !b.authSvc.IsAdmin(msg.From.ID) {
			b.sendMessage(msg.Chat.ID, "This command is available to the administrator only.")
			return
		}
		text, err := b.dailyReport(b.now())
		if err != nil {
			b.logger.Error("failed to build stats", zap.Error(err))
			b.sendMessage(msg.Chat.ID, "Could not read the conversation log.")
			return
		}
		b.sendMessage(msg.Chat.ID, text)
	default:
		b.sendMessage(msg.Chat.ID, "Unknown command. Try /start, /history or /about.")
	}
}

func (b *Bot) sessionFor(chatID int64) *chat.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[chatID]
	if !ok {
		s = chat.NewSession(b.engine)
		b.sessions[chatID] = s
	}
	return s
}

func (b *Bot) endSession(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, chatID)
}

func (b *Bot) renderHistory() string {
	turns, err := storage.Collect(b.engine.History())
	if err != nil {
		b.logger.Error("failed to read history", zap.Error(err))
		return "Could not read the conversation log."
	}
	if len(turns) == 0 {
		return "No conversation history available."
	}
	if b.historyLimit > 0 && len(turns) > b.historyLimit {
		turns = turns[len(turns)-b.historyLimit:]
	}
	blocks := make([]string, 0, len(turns))
	for _, t := range turns {
		blocks = append(blocks, fmt.Sprintf("User: %s\nChatbot: %s\nTimestamp: %s", t.UserInput, t.Response, t.FormattedTimestamp()))
	}
	// keep the most recent turns when the message is too long
	for len(blocks) > 1 && len(strings.Join(blocks, "\n---\n")) > maxMessageLen {
		blocks = blocks[1:]
	}
	return truncate(strings.Join(blocks, "\n---\n"), maxMessageLen)
}

func (b *Bot) dailyReport(day time.Time) (string, error) {
	stats, err := analytics.FromEngine(b.engine, day)
	if err != nil {
		return "", err
	}
	return stats.GenerateReportSummary(), nil
}

// SendDailyReport sends the statistics of the current day to the admin.
func (b *Bot) SendDailyReport(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	admin := b.authSvc.AdminID()
	if admin == 0 {
		return errors.New("no admin configured")
	}
	text, err := b.dailyReport(b.now())
	if err != nil {
		return err
	}
	_, err = b.s.Send(tgbotapi.NewMessage(admin, text))
	return err
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, truncate(text, maxMessageLen))
	if _, err := b.s.Send(msg); err != nil {
		b.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

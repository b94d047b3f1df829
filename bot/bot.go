// Package bot runs the Telegram side of the service: a long-polling
// worker that answers seller-verification commands.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"verifybot/metrics"
	"verifybot/registry"
	"verifybot/utils"
)

// Wait between connection attempts and before re-opening the updates
// channel after a transport failure
var reconnectDelay = 10 * time.Second

const escrowFooterVerified = "*💬 We still recommend using escrow:*\n" +
	"[Scrizon](https://t.me/scrizon) \\| [Cupid](https://t.me/cupid)"

const escrowFooterUnverified = "*⚠️ We highly recommend using escrow:*\n" +
	"[Scrizon](https://t.me/scrizon) \\| [Cupid](https://t.me/cupid)"

const helpText = `Seller verification bot.

/check username - check if a seller is verified (or reply to their message with /check)
/ping - check the bot is alive

Admin commands:
/add username - Service
/remove username`

// API is the slice of the Telegram client the bot needs. *tgbotapi.BotAPI
// satisfies it; tests substitute a fake.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Directory is the registry surface the command handlers use.
type Directory interface {
	Lookup(ctx context.Context, username string) (registry.VerifiedUser, bool, error)
	Upsert(ctx context.Context, username, service string, addedBy int64) (registry.VerifiedUser, error)
	Remove(ctx context.Context, username string, actorID int64) (bool, error)
}

// Admins is the authorization surface for privileged commands.
type Admins interface {
	IsAdmin(ctx context.Context, telegramID int64) (bool, error)
	Promote(ctx context.Context, telegramID int64, username string) error
	Demote(ctx context.Context, telegramID int64) (bool, error)
	OwnerID() int64
}

// Bot dispatches Telegram updates to command handlers.
type Bot struct {
	api     API
	connect func() (API, error)
	dir     Directory
	admins  Admins

	// OnReady is invoked once the first updates channel is open
	OnReady func()

	offset int
}

// New builds a Bot around an established API client.
func New(api API, dir Directory, admins Admins) *Bot {
	return &Bot{api: api, dir: dir, admins: admins}
}

// NewWithToken builds a Bot that authenticates inside Run, retrying until
// Telegram is reachable. A Telegram outage at startup must not take the
// rest of the service down with it.
func NewWithToken(token string, dir Directory, admins Admins) *Bot {
	b := &Bot{dir: dir, admins: admins}
	b.connect = func() (API, error) { return Connect(token) }
	return b
}

// Connect authenticates against the Telegram Bot API.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram authentication failed: %w", err)
	}
	utils.LogInfo("Telegram bot authorized", "username", api.Self.UserName)
	return api, nil
}

// Run polls for updates until ctx is cancelled. Transport failures close the
// updates channel; Run re-opens it after a delay rather than exiting.
func (b *Bot) Run(ctx context.Context) {
	for b.api == nil {
		api, err := b.connect()
		if err == nil {
			b.api = api
			break
		}
		metrics.IncrementBotReconnect()
		utils.LogError("TELEGRAM_CONNECT_FAILED", err, "retry_in", reconnectDelay.String())
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			utils.LogInfo("Telegram polling stopped")
			return
		}
	}

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for {
		cfg := tgbotapi.NewUpdate(b.offset)
		cfg.Timeout = 60
		updates := b.api.GetUpdatesChan(cfg)

		if b.OnReady != nil {
			b.OnReady()
			b.OnReady = nil
		}

		for update := range updates {
			if update.UpdateID >= b.offset {
				b.offset = update.UpdateID + 1
			}
			b.handleUpdate(ctx, update)
		}

		if ctx.Err() != nil {
			utils.LogInfo("Telegram polling stopped")
			return
		}

		metrics.IncrementBotReconnect()
		utils.LogInfo("Telegram updates channel closed, reconnecting", "delay", reconnectDelay.String())
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			utils.LogInfo("Telegram polling stopped")
			return
		}
	}
}

// handleUpdate routes one update. A panicking handler must not take the
// poll loop down with it.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			utils.LogError("BOT PANIC RECOVERED", fmt.Errorf("%v", r))
			metrics.IncrementError("panic", "telegram")
		}
	}()

	m := update.Message
	if m == nil || m.From == nil || !m.IsCommand() {
		return
	}

	switch m.Command() {
	case "check":
		b.handleCheck(ctx, m)
	case "add":
		b.handleAdd(ctx, m)
	case "remove":
		b.handleRemove(ctx, m)
	case "promote":
		b.handlePromote(ctx, m)
	case "demote":
		b.handleDemote(ctx, m)
	case "ping":
		metrics.IncrementBotCommand("ping", "ok")
		b.reply(m, "Pong! Bot is working!")
	case "start", "help":
		metrics.IncrementBotCommand("help", "ok")
		b.reply(m, helpText)
	}
}

func (b *Bot) handleCheck(ctx context.Context, m *tgbotapi.Message) {
	username := strings.TrimSpace(m.CommandArguments())
	if username == "" && m.ReplyToMessage != nil && m.ReplyToMessage.From != nil {
		username = m.ReplyToMessage.From.UserName
	}
	if username == "" {
		metrics.IncrementBotCommand("check", "usage")
		b.reply(m, "Usage:\n1. Reply to a message with /check\n2. Or use: /check username")
		return
	}
	if idx := strings.IndexByte(username, ' '); idx > 0 {
		username = username[:idx]
	}

	user, found, err := b.dir.Lookup(ctx, username)
	if err != nil {
		metrics.IncrementBotCommand("check", "error")
		utils.LogError("CHECK_LOOKUP_FAILED", err, "username", username)
		b.reply(m, "Something went wrong, please try again later.")
		return
	}

	displayName := strings.ToUpper(registry.Normalize(username))
	var response string
	if found {
		response = fmt.Sprintf(
			"*🟢 %s is verified for:*\n\n%s\n\n%s",
			utils.EscapeMarkdownV2(displayName),
			utils.EscapeMarkdownV2(strings.ToUpper(user.Service)),
			escrowFooterVerified,
		)
	} else {
		response = fmt.Sprintf(
			"*🔴 %s is not verified\\!*\n\n%s",
			utils.EscapeMarkdownV2(displayName),
			escrowFooterUnverified,
		)
	}

	metrics.IncrementBotCommand("check", "ok")
	b.replyMarkdown(m, response)
}

func (b *Bot) handleAdd(ctx context.Context, m *tgbotapi.Message) {
	if !b.authorize(ctx, m, "add") {
		return
	}

	username, service, ok := parseAddArguments(m.CommandArguments())
	if !ok {
		metrics.IncrementBotCommand("add", "usage")
		b.reply(m, "Usage: /add username - Service")
		return
	}

	user, err := b.dir.Upsert(ctx, username, service, m.From.ID)
	if err != nil {
		metrics.IncrementBotCommand("add", "error")
		utils.LogError("ADD_FAILED", err, "username", username)
		b.reply(m, "Something went wrong, please try again later.")
		return
	}

	metrics.IncrementBotCommand("add", "ok")
	b.reply(m, fmt.Sprintf("%s has been added as verified for %s.", user.Username, user.Service))
}

func (b *Bot) handleRemove(ctx context.Context, m *tgbotapi.Message) {
	if !b.authorize(ctx, m, "remove") {
		return
	}

	fields := strings.Fields(m.CommandArguments())
	if len(fields) != 1 {
		metrics.IncrementBotCommand("remove", "usage")
		b.reply(m, "Usage: /remove username")
		return
	}
	username := registry.Normalize(fields[0])

	removed, err := b.dir.Remove(ctx, username, m.From.ID)
	if err != nil {
		metrics.IncrementBotCommand("remove", "error")
		utils.LogError("REMOVE_FAILED", err, "username", username)
		b.reply(m, "Something went wrong, please try again later.")
		return
	}

	metrics.IncrementBotCommand("remove", "ok")
	if removed {
		b.reply(m, fmt.Sprintf("%s has been removed from verified users.", username))
	} else {
		b.reply(m, fmt.Sprintf("%s is not a verified user.", username))
	}
}

func (b *Bot) handlePromote(ctx context.Context, m *tgbotapi.Message) {
	if !b.requireOwner(m, "promote") {
		return
	}

	fields := strings.Fields(m.CommandArguments())
	if len(fields) < 1 || len(fields) > 2 {
		metrics.IncrementBotCommand("promote", "usage")
		b.reply(m, "Usage: /promote telegram_id [username]")
		return
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id <= 0 {
		metrics.IncrementBotCommand("promote", "usage")
		b.reply(m, "Usage: /promote telegram_id [username]")
		return
	}
	username := ""
	if len(fields) == 2 {
		username = registry.Normalize(fields[1])
	}

	if err := b.admins.Promote(ctx, id, username); err != nil {
		metrics.IncrementBotCommand("promote", "error")
		utils.LogError("PROMOTE_FAILED", err, "telegram_id", id)
		b.reply(m, "Something went wrong, please try again later.")
		return
	}

	metrics.IncrementBotCommand("promote", "ok")
	b.reply(m, fmt.Sprintf("%d can now manage verified users.", id))
}

func (b *Bot) handleDemote(ctx context.Context, m *tgbotapi.Message) {
	if !b.requireOwner(m, "demote") {
		return
	}

	fields := strings.Fields(m.CommandArguments())
	if len(fields) != 1 {
		metrics.IncrementBotCommand("demote", "usage")
		b.reply(m, "Usage: /demote telegram_id")
		return
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id <= 0 {
		metrics.IncrementBotCommand("demote", "usage")
		b.reply(m, "Usage: /demote telegram_id")
		return
	}

	removed, err := b.admins.Demote(ctx, id)
	if err != nil {
		metrics.IncrementBotCommand("demote", "error")
		utils.LogError("DEMOTE_FAILED", err, "telegram_id", id)
		b.reply(m, "Something went wrong, please try again later.")
		return
	}

	metrics.IncrementBotCommand("demote", "ok")
	if removed {
		b.reply(m, fmt.Sprintf("%d can no longer manage verified users.", id))
	} else {
		b.reply(m, fmt.Sprintf("%d is not an admin.", id))
	}
}

// authorize checks admin rights and replies with the uniform denial when
// the check fails. Every privileged command must produce the same denial.
func (b *Bot) authorize(ctx context.Context, m *tgbotapi.Message, command string) bool {
	ok, err := b.admins.IsAdmin(ctx, m.From.ID)
	if err != nil {
		utils.LogError("ADMIN_CHECK_FAILED", err, "telegram_id", m.From.ID)
		ok = false
	}
	if !ok {
		metrics.IncrementBotCommand(command, "denied")
		b.reply(m, "You are not authorized to use this command.")
		return false
	}
	return true
}

func (b *Bot) requireOwner(m *tgbotapi.Message, command string) bool {
	if m.From.ID != b.admins.OwnerID() {
		metrics.IncrementBotCommand(command, "denied")
		b.reply(m, "You are not authorized to use this command.")
		return false
	}
	return true
}

// parseAddArguments splits "/add username - Service" arguments into the
// username and the service label. The "-" separator is optional.
func parseAddArguments(args string) (username, service string, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	username = registry.Normalize(parts[0])
	service = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[1]), "-"))
	if username == "" || service == "" {
		return "", "", false
	}
	return username, service, true
}

func (b *Bot) reply(m *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(m.Chat.ID, text)
	msg.ReplyToMessageID = m.MessageID
	if _, err := b.api.Send(msg); err != nil {
		utils.LogError("TELEGRAM_SEND_FAILED", err, "chat_id", m.Chat.ID)
		metrics.IncrementError("send", "telegram")
	}
}

func (b *Bot) replyMarkdown(m *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(m.Chat.ID, text)
	msg.ReplyToMessageID = m.MessageID
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		utils.LogError("TELEGRAM_SEND_FAILED", err, "chat_id", m.Chat.ID)
		metrics.IncrementError("send", "telegram")
	}
}

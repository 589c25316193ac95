package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"dostyq-support/internal/config"
	"dostyq-support/internal/knowledge"
	"dostyq-support/internal/logger"
	"dostyq-support/internal/model"
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type UserStore interface {
	UpsertFromTelegram(ctx context.Context, telegramID int64, firstName, lastName, username string, seenAt time.Time) (*model.User, error)
}

type TicketService interface {
	Create(ctx context.Context, userID int64, message, category string) (*model.Ticket, error)
	ListRecent(ctx context.Context, userID int64) ([]model.Ticket, error)
}

type StatsService interface {
	Report(ctx context.Context) (string, error)
	CountMessage(ctx context.Context) error
}

type Generator interface {
	Generate(ctx context.Context, message string) string
}

// Deps groups the collaborators of the bot.
type Deps struct {
	Users     UserStore
	Tickets   TicketService
	Stats     StatsService
	Generator Generator
	Knowledge *knowledge.Base
	Log       *logger.Logger
	Now       func() time.Time
}

// Bot routes Telegram updates to the support services.
type Bot struct {
	api       API
	users     UserStore
	tickets   TicketService
	stats     StatsService
	generator Generator
	kb        *knowledge.Base
	config    *config.Config
	log       *logger.Logger
	now       func() time.Time
}

// New authorizes against the Bot API with token and builds the bot.
func New(token string, deps Deps, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	deps.Log.Info("bot authorized", "account", api.Self.UserName)
	return NewWithAPI(api, deps, cfg), nil
}

func NewWithAPI(api API, deps Deps, cfg *config.Config) *Bot {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Bot{
		api:       api,
		users:     deps.Users,
		tickets:   deps.Tickets,
		stats:     deps.Stats,
		generator: deps.Generator,
		kb:        deps.Knowledge,
		config:    cfg,
		log:       deps.Log,
		now:       now,
	}
}

// RegisterCommands publishes the command menu.
func (b *Bot) RegisterCommands() error {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(menuCommands...)); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	return nil
}

// Start polls updates until ctx is cancelled. Updates are handled by a pool
// of config.Workers goroutines; Start returns after in-flight updates finish.
// Cancelling ctx only stops polling: updates already received were confirmed
// to Telegram and are still answered.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	workers := 1
	if b.config != nil && b.config.Workers > 0 {
		workers = b.config.Workers
	}
	b.log.Info("start polling updates", "workers", workers)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
		case <-done:
		}
	}()

	handleCtx := context.WithoutCancel(ctx)
	p := pool.New().WithMaxGoroutines(workers)
	for update := range updates {
		p.Go(func() {
			b.handleUpdate(handleCtx, update)
		})
	}
	p.Wait()

	return ctx.Err()
}

// handleUpdate processes one update. Failures and panics are logged and stay
// confined to this update.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	log := b.log.With("update_id", update.UpdateID, "trace_id", uuid.NewString())
	ctx = logger.IntoContext(ctx, log)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling update", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	var err error
	switch {
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		err = b.handleMessage(ctx, update.Message)
	}
	if err != nil {
		log.Error("handle update", "error", err)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	if msg.IsCommand() {
		logger.FromContext(ctx, b.log).Info("command", "user_id", msg.From.ID, "command", msg.Command())
		return b.handleCommand(ctx, msg)
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	return b.handleText(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	var (
		r   reply
		err error
	)
	switch parseCommand(msg.Command()) {
	case commandStart:
		r = welcomeReply(msg.From.FirstName)
	case commandHelp:
		r = helpReply()
	case commandSchedule:
		r = b.scheduleReply()
	case commandContact:
		r = b.contactsReply()
	case commandFAQ:
		r = b.faqReply()
	case commandTicket:
		r, err = b.createTicket(ctx, msg.From.ID, msg.CommandArguments())
	case commandStatus:
		r, err = b.ticketStatus(ctx, msg.From.ID)
	case commandStats:
		r, err = b.statsReport(ctx, msg.From.ID)
	case commandUnknown:
		r = reply{text: textUnknownCmd}
	}
	if err != nil {
		return err
	}
	return b.send(ctx, msg.Chat.ID, r)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	log := logger.FromContext(ctx, b.log)
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Warn("callback ack", "error", err)
	}
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if err := b.ensureUser(ctx, cb.From); err != nil {
		return err
	}

	a, ok := parseAction(cb.Data)
	if !ok {
		log.Warn("unknown callback", "user_id", cb.From.ID, "data", cb.Data)
		return nil
	}
	log.Info("callback", "user_id", cb.From.ID, "data", cb.Data)

	var (
		r   reply
		err error
	)
	switch a {
	case actionSchedule:
		r = b.scheduleReply()
	case actionTechSupport:
		r = b.techSupportReply()
	case actionContacts:
		r = b.contactsReply()
	case actionFAQ:
		r = b.faqReply()
	case actionCreateTicket:
		r, err = b.createTicket(ctx, cb.From.ID, "")
	}
	if err != nil {
		return err
	}
	return b.edit(cb.Message.Chat.ID, cb.Message.MessageID, r)
}

// handleText answers a free-text question with generated or fallback content.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) error {
	log := logger.FromContext(ctx, b.log)
	if err := b.stats.CountMessage(ctx); err != nil {
		log.Warn("count message", "error", err)
	}
	if _, err := b.api.Request(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)); err != nil {
		log.Warn("send typing action", "error", err)
	}

	answer := b.generator.Generate(ctx, msg.Text)
	return b.send(ctx, msg.Chat.ID, reply{
		text:      answer,
		markup:    followUpKeyboard(),
		parseMode: tgbotapi.ModeMarkdown,
	})
}

func (b *Bot) createTicket(ctx context.Context, userID int64, message string) (reply, error) {
	ticket, err := b.tickets.Create(ctx, userID, message, model.DefaultTicketCategory)
	if err != nil {
		return reply{}, err
	}
	logger.FromContext(ctx, b.log).Info("ticket created", "ticket_id", ticket.ID, "user_id", userID)
	return ticketCreatedReply(ticket), nil
}

func (b *Bot) ticketStatus(ctx context.Context, userID int64) (reply, error) {
	tickets, err := b.tickets.ListRecent(ctx, userID)
	if err != nil {
		return reply{}, err
	}
	return ticketStatusReply(tickets), nil
}

// statsReport answers /stats. Non-admins are denied before any store query.
func (b *Bot) statsReport(ctx context.Context, userID int64) (reply, error) {
	if b.config == nil || !b.config.IsAdmin(userID) {
		logger.FromContext(ctx, b.log).Warn("stats denied", "user_id", userID)
		return reply{text: textStatsDenied}, nil
	}
	text, err := b.stats.Report(ctx)
	if err != nil {
		return reply{}, err
	}
	return reply{text: text}, nil
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) error {
	_, err := b.users.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName, b.now())
	return err
}

// send posts r as a new message. Generated text may contain Markdown that
// Telegram refuses to parse; such a message is re-sent as plain text.
func (b *Bot) send(ctx context.Context, chatID int64, r reply) error {
	msg := tgbotapi.NewMessage(chatID, r.text)
	msg.ParseMode = r.parseMode
	if r.markup != nil {
		msg.ReplyMarkup = *r.markup
	}
	_, err := b.api.Send(msg)
	if err != nil && msg.ParseMode != "" && isParseError(err) {
		logger.FromContext(ctx, b.log).Warn("markdown rejected, sending plain text", "error", err)
		msg.ParseMode = ""
		_, err = b.api.Send(msg)
	}
	return err
}

// edit replaces the text of the message that carried a pressed button.
func (b *Bot) edit(chatID int64, messageID int, r reply) error {
	var edit tgbotapi.EditMessageTextConfig
	if r.markup != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, r.text, *r.markup)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, r.text)
	}
	edit.ParseMode = r.parseMode
	_, err := b.api.Send(edit)
	return err
}

func isParseError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "can't parse entities")
}

package bot

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

type command int

const (
	commandUnknown command = iota
	commandStart
	commandHelp
	commandSchedule
	commandContact
	commandFAQ
	commandTicket
	commandStatus
	commandStats
)

var commandNames = map[string]command{
	"start":    commandStart,
	"help":     commandHelp,
	"schedule": commandSchedule,
	"contact":  commandContact,
	"faq":      commandFAQ,
	"ticket":   commandTicket,
	"status":   commandStatus,
	"stats":    commandStats,
}

func parseCommand(name string) command {
	if cmd, ok := commandNames[name]; ok {
		return cmd
	}
	return commandUnknown
}

// menuCommands is the public command menu. /stats is admin-only and stays out of it.
var menuCommands = []tgbotapi.BotCommand{
	{Command: "start", Description: "🚀 Начать работу с ботом"},
	{Command: "help", Description: "❓ Помощь и список команд"},
	{Command: "schedule", Description: "📺 Программа передач"},
	{Command: "contact", Description: "📞 Контактная информация"},
	{Command: "faq", Description: "❓ Часто задаваемые вопросы"},
	{Command: "ticket", Description: "📋 Создать обращение"},
	{Command: "status", Description: "🔎 Статус обращений"},
}

// action identifies an inline button. The callback data sent to Telegram is
// derived from it, so buttons can only carry actions the router handles.
type action int

const (
	actionSchedule action = iota + 1
	actionTechSupport
	actionContacts
	actionFAQ
	actionCreateTicket
)

var actionData = map[action]string{
	actionSchedule:     "schedule",
	actionTechSupport:  "tech_support",
	actionContacts:     "contacts",
	actionFAQ:          "faq",
	actionCreateTicket: "create_ticket",
}

var actionsByData = func() map[string]action {
	out := make(map[string]action, len(actionData))
	for a, data := range actionData {
		out[data] = a
	}
	return out
}()

func parseAction(data string) (action, bool) {
	a, ok := actionsByData[data]
	return a, ok
}

func (a action) button(label string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(label, actionData[a])
}

package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dostyq-support/internal/knowledge"
	"dostyq-support/internal/model"
)

const (
	btnSchedule      = "📺 Программа передач"
	btnTechSupport   = "🔧 Техническая поддержка"
	btnContacts      = "📞 Контакты"
	btnFAQ           = "📋 FAQ"
	btnContactAgent  = "📞 Связаться с поддержкой"
	btnCreateTicket  = "📋 Создать обращение"
	textStatsDenied  = "❌ У вас нет прав для просмотра статистики"
	textUnknownCmd   = "Команда не поддерживается. Загляните в /help."
	textNoTickets    = "📭 У вас пока нет обращений. Создать новое можно командой /ticket."
	defaultFirstName = "друг"
)

// reply is rendered content. Commands send it as a new message, callbacks
// edit the message that carried the button.
type reply struct {
	text      string
	markup    *tgbotapi.InlineKeyboardMarkup
	parseMode string
}

func startKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(actionSchedule.button(btnSchedule)),
		tgbotapi.NewInlineKeyboardRow(actionTechSupport.button(btnTechSupport)),
		tgbotapi.NewInlineKeyboardRow(actionContacts.button(btnContacts)),
		tgbotapi.NewInlineKeyboardRow(actionFAQ.button(btnFAQ)),
	)
	return &kb
}

func followUpKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(actionContacts.button(btnContactAgent)),
		tgbotapi.NewInlineKeyboardRow(actionCreateTicket.button(btnCreateTicket)),
	)
	return &kb
}

func welcomeReply(firstName string) reply {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = defaultFirstName
	}
	text := fmt.Sprintf("👋 Добро пожаловать в службу поддержки DostyqTV!\n\n"+
		"Привет, %s! Я ваш виртуальный помощник. Помогу решить любые вопросы связанные с просмотром DostyqTV.\n\n"+
		"🔥 Что я умею:\n"+
		"• Отвечать на вопросы о программах передач\n"+
		"• Помогать с техническими проблемами\n"+
		"• Предоставлять контактную информацию\n"+
		"• Создавать обращения в службу поддержки\n\n"+
		"💡 Просто напишите ваш вопрос или используйте команды ниже:", name)
	return reply{text: text, markup: startKeyboard()}
}

func helpReply() reply {
	text := "🤖 Команды бота DostyqTV:\n\n" +
		"/start - Начать работу с ботом\n" +
		"/help - Показать это сообщение\n" +
		"/schedule - Программа передач\n" +
		"/contact - Контактная информация\n" +
		"/faq - Часто задаваемые вопросы\n" +
		"/ticket - Создать обращение в поддержку\n" +
		"/status - Проверить статус обращения\n\n" +
		"💬 Вы также можете просто написать ваш вопрос, и я постараюсь помочь!"
	return reply{text: text}
}

func (b *Bot) scheduleReply() reply {
	answer, _ := b.kb.FAQAnswer(knowledge.FAQSchedule)
	return reply{text: "📅 Расписание программ:\n\n" + answer}
}

func (b *Bot) techSupportReply() reply {
	answer, _ := b.kb.FAQAnswer(knowledge.FAQQuality)
	return reply{text: "🔧 Техническая поддержка:\n\n" + answer}
}

func (b *Bot) contactsReply() reply {
	c := b.kb.ContactDetails()
	return reply{text: fmt.Sprintf("📞 Контакты:\n\nТелефон: %s\nEmail: %s\nСайт: %s", c.Phone, c.Email, c.Site)}
}

func (b *Bot) faqReply() reply {
	items := make([]string, 0, len(b.kb.FAQ))
	for _, entry := range b.kb.FAQ {
		items = append(items, fmt.Sprintf("❓ %s\n✅ %s", entry.Question, entry.Answer))
	}
	return reply{text: "📋 Часто задаваемые вопросы:\n\n" + strings.Join(items, "\n\n")}
}

func ticketCreatedReply(ticket *model.Ticket) reply {
	return reply{text: fmt.Sprintf("📋 Ваше обращение #%d создано!\n\n"+
		"Наши специалисты скоро свяжутся с вами. "+
		"Пожалуйста, опишите вашу проблему подробнее в следующем сообщении.", ticket.ID)}
}

func ticketStatusReply(tickets []model.Ticket) reply {
	if len(tickets) == 0 {
		return reply{text: textNoTickets}
	}
	var sb strings.Builder
	sb.WriteString("🔎 Ваши обращения:\n")
	for _, t := range tickets {
		sb.WriteString(fmt.Sprintf("\n#%d · %s · %s · %s", t.ID, statusLabel(t.Status), t.CreatedAt.Local().Format("02.01.2006"), t.Category))
	}
	return reply{text: sb.String()}
}

func statusLabel(status model.TicketStatus) string {
	switch status {
	case model.TicketStatusOpen:
		return "🟡 открыто"
	case model.TicketStatusResolved:
		return "✅ решено"
	default:
		return string(status)
	}
}

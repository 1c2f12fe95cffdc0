// Package bot owns the Telegram surface: the long-poll update loop, command
// and callback handlers, and the transport adapter behind service.Messenger.
package bot

import (
	"context"
	"fmt"

	"doorman/events"
	"doorman/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Bot routes Telegram updates to the service layer.
type Bot struct {
	api         *tgbotapi.BotAPI
	messenger   *Messenger
	subscribers service.SubscriberService
	referrals   service.ReferralService
	payments    service.PaymentService
	access      service.AccessService
	admins      service.AdminService
}

// New creates a bot wired to the given services and subscribes the audit
// fan-out so every admin sees claim outcomes, not just the reviewer.
func New(
	api *tgbotapi.BotAPI,
	messenger *Messenger,
	subscribers service.SubscriberService,
	referrals service.ReferralService,
	payments service.PaymentService,
	access service.AccessService,
	admins service.AdminService,
	eventBus *events.Bus,
) *Bot {
	bot := &Bot{
		api:         api,
		messenger:   messenger,
		subscribers: subscribers,
		referrals:   referrals,
		payments:    payments,
		access:      access,
		admins:      admins,
	}

	eventBus.Subscribe(events.EventTypeClaimApproved, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.ClaimApprovedEvent); ok {
			bot.broadcastToAdmins(ctx, fmt.Sprintf("Claim #%d approved: user %d subscribed until %s (%s plan).",
				e.ClaimID, e.TelegramID, e.SubscriptionEnd.Format("2006-01-02"), e.PlanName))
		}
	})
	eventBus.Subscribe(events.EventTypeClaimRejected, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.ClaimRejectedEvent); ok {
			bot.broadcastToAdmins(ctx, fmt.Sprintf("Claim #%d (%s plan) from user %d was rejected.",
				e.ClaimID, e.PlanName, e.TelegramID))
		}
	})
	eventBus.Subscribe(events.EventTypeUserErased, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.UserErasedEvent); ok {
			bot.broadcastToAdmins(ctx, fmt.Sprintf("User %d and all their data were erased by %d.",
				e.TelegramID, e.ErasedBy))
		}
	})

	return bot
}

// broadcastToAdmins delivers an audit line to the whole roster.
func (b *Bot) broadcastToAdmins(ctx context.Context, text string) {
	roster, err := b.admins.Admins(ctx)
	if err != nil {
		log.Errorf("Failed to list admins for audit broadcast: %v", err)
		return
	}
	for _, admin := range roster {
		service.Notify(ctx, b.messenger, admin.TelegramID, text)
	}
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "callback_query", "chat_join_request"}

	updates := b.api.GetUpdatesChan(u)
	log.Infof("Bot authorized as @%s, consuming updates", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			log.Info("Bot update loop shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Panic handling update %d (recovered): %v", update.UpdateID, r)
		}
	}()

	switch {
	case update.ChatJoinRequest != nil:
		b.handleJoinRequest(ctx, update.ChatJoinRequest)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if len(msg.NewChatMembers) > 0 {
		b.handleNewMembers(ctx, msg)
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
	}
}

// reply sends a plain text response into the originating chat. Failures are
// logged, never surfaced to the user.
func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Warnf("Failed to send reply to %d: %v", chatID, err)
	}
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		log.Warnf("Failed to send reply to %d: %v", chatID, err)
	}
}

// genericFailure is the only error surface non-admin users ever see.
func (b *Bot) genericFailure(chatID int64) {
	b.reply(chatID, "Something went wrong, please try again.")
}

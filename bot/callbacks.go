package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"doorman/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Ack first so the client stops its spinner regardless of outcome.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Warnf("Failed to ack callback %s: %v", cb.ID, err)
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	action, arg, _ := strings.Cut(cb.Data, ":")
	switch action {
	case "status":
		b.sendStatus(ctx, chatID, cb.From.ID)
	case "referral":
		b.sendReferral(ctx, chatID, cb.From.ID)
	case "plan":
		b.showPlanInstructions(ctx, chatID, arg)
	case "claim":
		b.submitClaim(ctx, cb, arg)
	case "approve":
		b.resolveClaim(ctx, cb, arg, true)
	case "reject":
		b.resolveClaim(ctx, cb, arg, false)
	}
}

// showPlanInstructions walks a user from plan choice to the payment step.
func (b *Bot) showPlanInstructions(ctx context.Context, chatID int64, planKey string) {
	plan := service.PlanByKey(planKey)
	if plan == nil {
		b.genericFailure(chatID)
		return
	}

	text := fmt.Sprintf("%s plan: %s for %d days.\n\nPay using the details below, then press \"I paid\".",
		plan.Name, plan.Price, plan.Days)
	b.reply(chatID, text)
	b.sendPaymentInfo(ctx, chatID)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("I paid", "claim:"+plan.Key)))
	b.replyWithKeyboard(chatID, "Once the transfer is done:", keyboard)
}

func (b *Bot) submitClaim(ctx context.Context, cb *tgbotapi.CallbackQuery, planKey string) {
	from := cb.From
	claim, err := b.payments.Submit(ctx, from.ID, from.UserName, displayName(from), planKey)
	if err != nil {
		log.Errorf("Error submitting claim for %d: %v", from.ID, err)
		b.genericFailure(cb.Message.Chat.ID)
		return
	}

	b.reply(cb.Message.Chat.ID, fmt.Sprintf(
		"Thanks! Claim #%d for the %s plan is awaiting review. You will be notified once an admin confirms the payment.",
		claim.ID, claim.PlanName))
}

func (b *Bot) resolveClaim(ctx context.Context, cb *tgbotapi.CallbackQuery, arg string, approve bool) {
	chatID := cb.Message.Chat.ID
	targetID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		b.genericFailure(chatID)
		return
	}

	if approve {
		resolved, err := b.payments.Approve(ctx, cb.From.ID, targetID)
		if err != nil {
			b.reportResolveError(chatID, err)
			return
		}
		b.reply(chatID, fmt.Sprintf("Claim #%d approved, user %d activated.", resolved.ID, targetID))
		return
	}

	resolved, err := b.payments.Reject(ctx, cb.From.ID, targetID)
	if err != nil {
		b.reportResolveError(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Claim #%d rejected.", resolved.ID))
}

func (b *Bot) reportResolveError(chatID int64, err error) {
	switch {
	case errors.Is(err, service.ErrNoPendingClaim):
		// A colleague got there first; the first outcome stands.
		b.reply(chatID, "Already handled: that user has no pending claim.")
	case errors.Is(err, service.ErrUnauthorized):
		b.genericFailure(chatID)
	default:
		log.Errorf("Error resolving claim: %v", err)
		b.genericFailure(chatID)
	}
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"doorman/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.cmdStart(ctx, msg)
	case "help":
		b.cmdHelp(ctx, msg)
	case "status":
		b.cmdStatus(ctx, msg)
	case "referral":
		b.cmdReferral(ctx, msg)
	case "payment_info":
		b.cmdPaymentInfo(ctx, msg)
	case "payments":
		b.cmdPayments(ctx, msg)
	case "add_admin":
		b.cmdAddAdmin(ctx, msg)
	case "remove_admin":
		b.cmdRemoveAdmin(ctx, msg)
	case "set_main_admin":
		b.cmdSetMainAdmin(ctx, msg)
	case "set_admin_username":
		b.cmdSetAdminUsername(ctx, msg)
	case "set_payment_info":
		b.cmdSetPaymentInfo(ctx, msg)
	case "link_group":
		b.cmdLinkGroup(ctx, msg)
	case "check_group":
		b.cmdCheckGroup(ctx, msg)
	case "announce":
		b.cmdAnnounce(ctx, msg)
	case "cleanup_group":
		b.cmdCleanupGroup(ctx, msg)
	case "extend":
		b.cmdExtend(ctx, msg)
	case "renew":
		b.cmdRenew(ctx, msg)
	case "suspend":
		b.cmdSuspend(ctx, msg)
	case "erase_user":
		b.cmdEraseUser(ctx, msg)
	case "stats":
		b.cmdStats(ctx, msg)
	}
}

func displayName(user *tgbotapi.User) string {
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	return name
}

// cmdStart registers the user, captures an optional referral payload and
// shows the plan menu.
func (b *Bot) cmdStart(ctx context.Context, msg *tgbotapi.Message) {
	from := msg.From
	if _, err := b.subscribers.Upsert(ctx, from.ID, from.UserName, displayName(from)); err != nil {
		log.Errorf("Error upserting user %d: %v", from.ID, err)
		b.genericFailure(msg.Chat.ID)
		return
	}

	if payload := msg.CommandArguments(); payload != "" {
		b.captureReferral(ctx, from.ID, payload)
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(service.Plans())+1)
	for _, plan := range service.Plans() {
		label := fmt.Sprintf("%s - %s", plan.Name, plan.Price)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "plan:"+plan.Key)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("My status", "status"),
		tgbotapi.NewInlineKeyboardButtonData("Referrals", "referral"),
	))

	b.replyWithKeyboard(msg.Chat.ID,
		"Welcome! Pick a subscription plan to join the group:",
		tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) captureReferral(ctx context.Context, newUserID int64, payload string) {
	referrerID, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return
	}

	recorded, err := b.referrals.Record(ctx, referrerID, newUserID)
	if err != nil {
		log.Warnf("Failed to record referral %d->%d: %v", referrerID, newUserID, err)
		return
	}
	if recorded {
		// Courtesy only; the referrer may have blocked the bot.
		service.Notify(ctx, b.messenger, referrerID,
			"Someone joined through your referral link. Active referrals earn you free days!")
	}
}

func (b *Bot) cmdHelp(ctx context.Context, msg *tgbotapi.Message) {
	help := `/start - choose a plan and subscribe
/status - your subscription status
/referral - your referral link and credits
/payment_info - how to pay
/help - this message`

	role, err := b.admins.RoleOf(ctx, msg.From.ID)
	if err == nil && role.CanReviewClaims() {
		help += `

Admin commands:
/payments - review pending claims
/stats - community snapshot
/announce <text> - message all active subscribers
/extend <user_id> <days>, /renew <user_id> <days>, /suspend <user_id>
/link_group, /check_group, /cleanup_group
/set_payment_info, /payment_info, /set_admin_username <handle>
/add_admin <user_id>, /remove_admin <user_id>, /set_main_admin
/erase_user <user_id>`
	}
	b.reply(msg.Chat.ID, help)
}

func (b *Bot) cmdStatus(ctx context.Context, msg *tgbotapi.Message) {
	b.sendStatus(ctx, msg.Chat.ID, msg.From.ID)
}

func (b *Bot) sendStatus(ctx context.Context, chatID, userID int64) {
	user, err := b.subscribers.Get(ctx, userID)
	if err != nil {
		log.Errorf("Error loading status for %d: %v", userID, err)
		b.genericFailure(chatID)
		return
	}
	if user == nil || !user.HasSubscription {
		b.reply(chatID, "You have no active subscription. Use /start to pick a plan.")
		return
	}

	text := "Your subscription is active."
	if user.SubscriptionEnd != nil {
		text = fmt.Sprintf("Your subscription is active until %s.", user.SubscriptionEnd.Format("2006-01-02"))
	}
	if stats, err := b.referrals.Stats(ctx, userID); err == nil && stats.FreeDays > 0 {
		text += fmt.Sprintf("\nReferral credits: %d free days earned.", stats.FreeDays)
	}
	b.reply(chatID, text)
}

func (b *Bot) cmdReferral(ctx context.Context, msg *tgbotapi.Message) {
	b.sendReferral(ctx, msg.Chat.ID, msg.From.ID)
}

func (b *Bot) sendReferral(ctx context.Context, chatID, userID int64) {
	stats, err := b.referrals.Stats(ctx, userID)
	if err != nil {
		log.Errorf("Error loading referral stats for %d: %v", userID, err)
		b.genericFailure(chatID)
		return
	}

	link := fmt.Sprintf("https://t.me/%s?start=%d", b.api.Self.UserName, userID)
	b.reply(chatID, fmt.Sprintf(
		"Your referral link:\n%s\n\nReferrals: %d total, %d active.\nEarned: %d free days.",
		link, stats.TotalReferrals, stats.ActiveReferrals, stats.FreeDays))
}

func (b *Bot) cmdPaymentInfo(ctx context.Context, msg *tgbotapi.Message) {
	b.sendPaymentInfo(ctx, msg.Chat.ID)
}

func (b *Bot) sendPaymentInfo(ctx context.Context, chatID int64) {
	info, err := b.admins.GetPaymentInfo(ctx)
	if err != nil {
		log.Errorf("Error loading payment info: %v", err)
		b.genericFailure(chatID)
		return
	}

	var sb strings.Builder
	sb.WriteString("Payment details:\n")
	if info.CCPNumber != "" {
		sb.WriteString("CCP: " + info.CCPNumber + "\n")
	}
	if info.BaridimobNumber != "" {
		sb.WriteString("Baridimob: " + info.BaridimobNumber + "\n")
	}
	if info.BaridiMoneyNum != "" {
		sb.WriteString("BaridiMoney: " + info.BaridiMoneyNum + "\n")
	}
	if info.BeneficiaryName != "" {
		sb.WriteString("Beneficiary: " + info.BeneficiaryName + "\n")
	}
	if username, err := b.admins.AdminUsername(ctx); err == nil && username != "" {
		sb.WriteString("\nQuestions? Contact @" + username)
	}
	b.reply(chatID, sb.String())
}

// requireReviewer gates a handler on claim-review capability. Unauthorized
// callers get the generic failure so admin commands stay undiscoverable.
func (b *Bot) requireReviewer(ctx context.Context, msg *tgbotapi.Message) bool {
	role, err := b.admins.RoleOf(ctx, msg.From.ID)
	if err != nil || !role.CanReviewClaims() {
		b.genericFailure(msg.Chat.ID)
		return false
	}
	return true
}

func (b *Bot) cmdPayments(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireReviewer(ctx, msg) {
		return
	}

	pending, err := b.payments.Pending(ctx)
	if err != nil {
		log.Errorf("Error listing pending claims: %v", err)
		b.genericFailure(msg.Chat.ID)
		return
	}
	if len(pending) == 0 {
		b.reply(msg.Chat.ID, "No pending payment claims.")
		return
	}

	for _, claim := range pending {
		text := fmt.Sprintf("Claim #%d\n%s (@%s)\nPlan: %s (%s)\nSubmitted: %s",
			claim.ID, claim.FullName, claim.Username, claim.PlanName, claim.Amount,
			claim.CreatedAt.Format("2006-01-02 15:04"))
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Approve", fmt.Sprintf("approve:%d", claim.TelegramID)),
				tgbotapi.NewInlineKeyboardButtonData("Reject", fmt.Sprintf("reject:%d", claim.TelegramID)),
			),
		)
		b.replyWithKeyboard(msg.Chat.ID, text, keyboard)
	}
}

func parseIDArg(msg *tgbotapi.Message) (int64, bool) {
	arg := strings.Fields(msg.CommandArguments())
	if len(arg) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(arg[0], 10, 64)
	return id, err == nil
}

func (b *Bot) cmdAddAdmin(ctx context.Context, msg *tgbotapi.Message) {
	targetID, ok := parseIDArg(msg)
	if !ok {
		b.reply(msg.Chat.ID, "Usage: /add_admin <user_id>")
		return
	}

	promoted, err := b.admins.Promote(ctx, msg.From.ID, targetID)
	if err != nil {
		b.reportAdminError(msg.Chat.ID, err)
		return
	}
	if !promoted {
		b.reply(msg.Chat.ID, "That user is already an admin.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("User %d is now an admin.", targetID))
}

func (b *Bot) cmdRemoveAdmin(ctx context.Context, msg *tgbotapi.Message) {
	targetID, ok := parseIDArg(msg)
	if !ok {
		b.reply(msg.Chat.ID, "Usage: /remove_admin <user_id>")
		return
	}

	demoted, err := b.admins.Demote(ctx, msg.From.ID, targetID)
	if err != nil {
		b.reportAdminError(msg.Chat.ID, err)
		return
	}
	if !demoted {
		b.reply(msg.Chat.ID, "That user is not an admin.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("User %d is no longer an admin.", targetID))
}

func (b *Bot) cmdSetMainAdmin(ctx context.Context, msg *tgbotapi.Message) {
	targetID, ok := parseIDArg(msg)
	if !ok {
		// Claiming for yourself is the common bootstrap path.
		targetID = msg.From.ID
	}

	if err := b.admins.SetMainAdmin(ctx, msg.From.ID, targetID); err != nil {
		b.reportAdminError(msg.Chat.ID, err)
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("User %d is now the main admin.", targetID))
}

func (b *Bot) cmdSetAdminUsername(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireReviewer(ctx, msg) {
		return
	}

	username := strings.TrimPrefix(strings.TrimSpace(msg.CommandArguments()), "@")
	if username == "" {
		b.reply(msg.Chat.ID, "Usage: /set_admin_username <handle>")
		return
	}
	if err := b.admins.SetAdminUsername(ctx, username); err != nil {
		log.Errorf("Error setting admin username: %v", err)
		b.genericFailure(msg.Chat.ID)
		return
	}
	b.reply(msg.Chat.ID, "Contact handle updated to @"+username)
}

func (b *Bot) cmdSetPaymentInfo(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireReviewer(ctx, msg) {
		return
	}

	fields := strings.Fields(msg.CommandArguments())
	if len(fields) < 4 {
		b.reply(msg.Chat.ID, "Usage: /set_payment_info <ccp> <baridimob> <baridimoney> <beneficiary name>")
		return
	}

	info := service.PaymentInfo{
		CCPNumber:       fields[0],
		BaridimobNumber: fields[1],
		BaridiMoneyNum:  fields[2],
		BeneficiaryName: strings.Join(fields[3:], " "),
	}
	if err := b.admins.SetPaymentInfo(ctx, info); err != nil {
		log.Errorf("Error setting payment info: %v", err)
		b.genericFailure(msg.Chat.ID)
		return
	}
	b.reply(msg.Chat.ID, "Payment details updated.")
}

// cmdLinkGroup must be issued inside the group the bot should manage.
func (b *Bot) cmdLinkGroup(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireReviewer(ctx, msg) {
		return
	}
	if msg.Chat.IsPrivate() {
		b.reply(msg.Chat.ID, "Run /link_group inside the group you want to manage.")
		return
	}

	if err := b.admins.LinkGroup(ctx, msg.Chat.ID, msg.Chat.Title); err != nil {
		log.Errorf("Error linking group %d: %v", msg.Chat.ID, err)
		b.genericFailure(msg.Chat.ID)
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Linked. Access to %q is now managed by subscriptions.", msg.Chat.Title))
}

func (b *Bot) cmdCheckGroup(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireReviewer(ctx, msg) {
		return
	}

	groupID, title, err := b.admins.LinkedGroup(ctx)
	if errors.Is(err, service.ErrNoLinkedGroup) {
		b.reply(msg.Chat.ID, "No group is linked yet. Use /link_group inside the group.")
		return
	}
	if err != nil {
		log.Errorf("Error reading linked group: %v", err)
		b.genericFailure(msg.Chat.ID)
		return
	}

	count, err := b.access.MemberCount(ctx)
	if err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("Linked group: %q (%d), member count unavailable.", title, groupID))
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Linked group: %q (%d), %d members.", title, groupID, count))
}

func (b *Bot) cmdAnnounce(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireReviewer(ctx, msg) {
		return
	}

	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.reply(msg.Chat.ID, "Usage: /announce <text>")
		return
	}

	active, err := b.subscribers.AllActive(ctx)
	if err != nil {
		log.Errorf("Error listing active subscribers: %v", err)
		b.genericFailure(msg.Chat.ID)
		return
	}

	var delivered int
	for _, user := range active {
		if _, result := service.Notify(ctx, b.messenger, user.TelegramID, text); result == service.Delivered {
			delivered++
		}
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Announcement delivered to %d of %d subscribers.", delivered, len(active)))
}

// cmdCleanupGroup runs the expiry sweep on demand and prunes old resolved
// claims.
func (b *Bot) cmdCleanupGroup(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireReviewer(ctx, msg) {
		return
	}

	report, err := b.access.ReconcileExpired(ctx)
	if err != nil {
		b.reportAdminError(msg.Chat.ID, err)
		return
	}

	pruned, err := b.payments.CleanupResolved(ctx, time.Now().AddDate(0, 0, -90))
	if err != nil {
		log.Warnf("Failed to prune resolved claims: %v", err)
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Sweep done: %d expired, %d removed, %d notified, %d failures. Pruned %d old claims.",
		report.Expired, report.Removed, report.Notified, report.Failed, pruned))
}

func (b *Bot) cmdExtend(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireReviewer(ctx, msg) {
		return
	}

	fields := strings.Fields(msg.CommandArguments())
	if len(fields) != 2 {
		b.reply(msg.Chat.ID, "Usage: /extend <user_id> <days>")
		return
	}
	targetID, err1 := strconv.ParseInt(fields[0], 10, 64)
	days, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil || days <= 0 {
		b.reply(msg.Chat.ID, "Usage: /extend <user_id> <days>")
		return
	}

	end, err := b.subscribers.Extend(ctx, targetID, days)
	if err != nil {
		b.reportAdminError(msg.Chat.ID, err)
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Extended. User %d is now subscribed until %s.", targetID, end.Format("2006-01-02")))
	service.Notify(ctx, b.messenger, targetID,
		fmt.Sprintf("Good news: your subscription was extended until %s.", end.Format("2006-01-02")))
}

// cmdRenew restarts a term from today, unlike /extend which stacks on the
// current end date.
func (b *Bot) cmdRenew(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireReviewer(ctx, msg) {
		return
	}

	fields := strings.Fields(msg.CommandArguments())
	if len(fields) != 2 {
		b.reply(msg.Chat.ID, "Usage: /renew <user_id> <days>")
		return
	}
	targetID, err1 := strconv.ParseInt(fields[0], 10, 64)
	days, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil || days <= 0 {
		b.reply(msg.Chat.ID, "Usage: /renew <user_id> <days>")
		return
	}

	end, err := b.subscribers.Renew(ctx, targetID, days)
	if err != nil {
		b.reportAdminError(msg.Chat.ID, err)
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Renewed. User %d is now subscribed until %s.", targetID, end.Format("2006-01-02")))
	service.Notify(ctx, b.messenger, targetID,
		fmt.Sprintf("Your subscription was renewed and now runs until %s.", end.Format("2006-01-02")))
}

func (b *Bot) cmdSuspend(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireReviewer(ctx, msg) {
		return
	}

	targetID, ok := parseIDArg(msg)
	if !ok {
		b.reply(msg.Chat.ID, "Usage: /suspend <user_id>")
		return
	}

	if err := b.access.Suspend(ctx, targetID); err != nil {
		b.reportAdminError(msg.Chat.ID, err)
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("User %d suspended and removed from the group.", targetID))
}

func (b *Bot) cmdEraseUser(ctx context.Context, msg *tgbotapi.Message) {
	targetID, ok := parseIDArg(msg)
	if !ok {
		b.reply(msg.Chat.ID, "Usage: /erase_user <user_id>")
		return
	}

	// Authorization lives in EraseUser, so the group removal must not run
	// until the erase itself has succeeded.
	if err := b.admins.EraseUser(ctx, msg.From.ID, targetID); err != nil {
		b.reportAdminError(msg.Chat.ID, err)
		return
	}
	if err := b.access.RemoveFromGroup(ctx, targetID); err != nil && !errors.Is(err, service.ErrNoLinkedGroup) {
		log.Warnf("Failed to remove erased user %d from group: %v", targetID, err)
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("User %d and all their data erased.", targetID))
}

func (b *Bot) cmdStats(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireReviewer(ctx, msg) {
		return
	}

	stats, err := b.subscribers.Stats(ctx)
	if err != nil {
		log.Errorf("Error loading stats: %v", err)
		b.genericFailure(msg.Chat.ID)
		return
	}

	text := fmt.Sprintf("Users: %d total, %d active subscribers, %d new this week.\nPending claims: %d.",
		stats.TotalUsers, stats.ActiveSubscribers, stats.NewThisWeek, stats.PendingClaims)

	if quiz, err := b.admins.QuizStats(ctx); err == nil && quiz.TotalAttempts > 0 {
		text += fmt.Sprintf("\nQuizzes: %d attempts, %.0f%% average, %d participants this week.",
			quiz.TotalAttempts, quiz.AverageScore, quiz.WeeklyParticipants)
	}
	b.reply(msg.Chat.ID, text)
}

// reportAdminError translates service sentinels into admin-readable text.
func (b *Bot) reportAdminError(chatID int64, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		b.genericFailure(chatID)
	case errors.Is(err, service.ErrUserNotFound):
		b.reply(chatID, "No such user. They need to /start the bot first.")
	case errors.Is(err, service.ErrNoPendingClaim):
		b.reply(chatID, "That user has no pending payment claim.")
	case errors.Is(err, service.ErrNoLinkedGroup):
		b.reply(chatID, "No group is linked yet. Use /link_group inside the group.")
	default:
		log.Errorf("Admin command failed: %v", err)
		b.genericFailure(chatID)
	}
}

package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// handleNewMembers fires when users enter the group. Invites we brokered
// are torn down; everyone else is left alone.
func (b *Bot) handleNewMembers(ctx context.Context, msg *tgbotapi.Message) {
	for _, member := range msg.NewChatMembers {
		if member.IsBot {
			continue
		}
		if err := b.access.HandleJoin(ctx, msg.Chat.ID, member.ID); err != nil {
			log.Warnf("Failed to process join of %d: %v", member.ID, err)
		}
	}
}

// handleJoinRequest auto-approves active subscribers and declines the rest.
func (b *Bot) handleJoinRequest(ctx context.Context, req *tgbotapi.ChatJoinRequest) {
	approved, err := b.access.HandleJoinRequest(ctx, req.Chat.ID, req.From.ID)
	if err != nil {
		log.Warnf("Failed to process join request of %d: %v", req.From.ID, err)
		return
	}
	log.WithFields(log.Fields{
		"userID":   req.From.ID,
		"approved": approved,
	}).Info("Processed join request")
}

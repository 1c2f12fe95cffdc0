package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"doorman/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Messenger adapts the Telegram Bot API to the service.Messenger interface.
// Forbidden responses (blocked bot, deactivated account) are wrapped with
// service.ErrRecipientUnreachable so callers can skip retries.
type Messenger struct {
	api *tgbotapi.BotAPI
}

// NewMessenger creates a messenger over an authorized bot API client
func NewMessenger(api *tgbotapi.BotAPI) *Messenger {
	return &Messenger{api: api}
}

func wrapSendError(chatID int64, err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 403 {
		return fmt.Errorf("send to %d: %w", chatID, service.ErrRecipientUnreachable)
	}
	return fmt.Errorf("send to %d: %w", chatID, err)
}

// SendMessage delivers text to a chat and returns the message id
func (m *Messenger) SendMessage(_ context.Context, chatID int64, text string) (int, error) {
	msg, err := m.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, wrapSendError(chatID, err)
	}
	return msg.MessageID, nil
}

// CreateOneTimeInvite creates a single-use invite link valid for ttl
func (m *Messenger) CreateOneTimeInvite(_ context.Context, groupID int64, ttl time.Duration) (string, error) {
	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: groupID},
		ExpireDate:  int(time.Now().Add(ttl).Unix()),
		MemberLimit: 1,
	}

	resp, err := m.api.Request(cfg)
	if err != nil {
		return "", fmt.Errorf("create invite link for %d: %w", groupID, err)
	}

	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("decode invite link response: %w", err)
	}
	return link.InviteLink, nil
}

// RevokeInvite invalidates an invite link
func (m *Messenger) RevokeInvite(_ context.Context, groupID int64, inviteLink string) error {
	cfg := tgbotapi.RevokeChatInviteLinkConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: groupID},
		InviteLink: inviteLink,
	}

	if _, err := m.api.Request(cfg); err != nil {
		return fmt.Errorf("revoke invite link for %d: %w", groupID, err)
	}
	return nil
}

// DeleteMessage removes a previously sent message
func (m *Messenger) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	if _, err := m.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message %d in %d: %w", messageID, chatID, err)
	}
	return nil
}

// IsMember reports whether the user currently belongs to the group
func (m *Messenger) IsMember(_ context.Context, groupID, userID int64) (bool, error) {
	member, err := m.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: groupID,
			UserID: userID,
		},
	})
	if err != nil {
		return false, fmt.Errorf("get chat member %d in %d: %w", userID, groupID, err)
	}

	switch member.Status {
	case "creator", "administrator", "member", "restricted":
		return true, nil
	default:
		return false, nil
	}
}

// BanMember removes the user from the group
func (m *Messenger) BanMember(_ context.Context, groupID, userID int64) error {
	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: groupID,
			UserID: userID,
		},
	}

	if _, err := m.api.Request(cfg); err != nil {
		return fmt.Errorf("ban member %d in %d: %w", userID, groupID, err)
	}
	return nil
}

// UnbanMember lifts a ban so the user may rejoin later through a fresh invite
func (m *Messenger) UnbanMember(_ context.Context, groupID, userID int64) error {
	cfg := tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: groupID,
			UserID: userID,
		},
		OnlyIfBanned: true,
	}

	if _, err := m.api.Request(cfg); err != nil {
		return fmt.Errorf("unban member %d in %d: %w", userID, groupID, err)
	}
	return nil
}

// MemberCount returns the group's member count
func (m *Messenger) MemberCount(_ context.Context, groupID int64) (int, error) {
	count, err := m.api.GetChatMembersCount(tgbotapi.ChatMemberCountConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: groupID},
	})
	if err != nil {
		return 0, fmt.Errorf("count members of %d: %w", groupID, err)
	}
	return count, nil
}

// ApproveJoinRequest accepts a pending join request
func (m *Messenger) ApproveJoinRequest(_ context.Context, groupID, userID int64) error {
	cfg := tgbotapi.ApproveChatJoinRequestConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: groupID},
		UserID:     userID,
	}

	if _, err := m.api.Request(cfg); err != nil {
		return fmt.Errorf("approve join request %d in %d: %w", userID, groupID, err)
	}
	return nil
}

// DeclineJoinRequest refuses a pending join request
func (m *Messenger) DeclineJoinRequest(_ context.Context, groupID, userID int64) error {
	// Upstream drops the Config suffix on this one type.
	cfg := tgbotapi.DeclineChatJoinRequest{
		ChatConfig: tgbotapi.ChatConfig{ChatID: groupID},
		UserID:     userID,
	}

	if _, err := m.api.Request(cfg); err != nil {
		return fmt.Errorf("decline join request %d in %d: %w", userID, groupID, err)
	}
	return nil
}

package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"faucet-gateway/faucet/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ChatMemberGetter é o subconjunto de *tgbotapi.BotAPI usado aqui.
type ChatMemberGetter interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// ChannelMembership considera membro quem está no canal como member,
// administrator ou creator.
type ChannelMembership struct {
	api     ChatMemberGetter
	channel string
}

// NewChannelMembership aceita "@canal" ou o id numérico do chat.
func NewChannelMembership(api ChatMemberGetter, channel string) *ChannelMembership {
	return &ChannelMembership{api: api, channel: strings.TrimSpace(channel)}
}

func (m *ChannelMembership) IsMember(_ context.Context, userID string) (bool, error) {
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return false, fmt.Errorf("user id %q is not a telegram id: %w", userID, err)
	}

	cfg := tgbotapi.ChatConfigWithUser{UserID: uid}
	if id, err := strconv.ParseInt(m.channel, 10, 64); err == nil {
		cfg.ChatID = id
	} else {
		cfg.SuperGroupUsername = m.channel
	}

	member, err := m.api.GetChatMember(tgbotapi.GetChatMemberConfig{ChatConfigWithUser: cfg})
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}
	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	}
	return false, nil
}

// JoinURL devolve o link público do canal, ou "" para canais por id.
func (m *ChannelMembership) JoinURL() string {
	if !strings.HasPrefix(m.channel, "@") {
		return ""
	}
	return "https://t.me/" + strings.TrimPrefix(m.channel, "@")
}

var _ domain.Membership = (*ChannelMembership)(nil)

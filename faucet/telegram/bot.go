package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"faucet-gateway/faucet"
	"faucet-gateway/faucet/application"
	"faucet-gateway/faucet/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Sender é o subconjunto de *tgbotapi.BotAPI usado para responder.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot traduz comandos de chat em claims.
type Bot struct {
	api      Sender
	claimer  faucet.Claimer
	renderer faucet.Renderer
	cooldown time.Duration
	joinURL  string
	timeout  time.Duration
	log      logrus.FieldLogger
}

type BotOption func(*Bot)

func WithRenderer(r faucet.Renderer) BotOption {
	return func(b *Bot) { b.renderer = r }
}

// WithCooldown só afeta o texto de /start.
func WithCooldown(d time.Duration) BotOption {
	return func(b *Bot) { b.cooldown = d }
}

// WithJoinURL adiciona o botão "Join Channel" na resposta de não-membro.
func WithJoinURL(u string) BotOption {
	return func(b *Bot) { b.joinURL = u }
}

// WithClaimTimeout limita a espera pelo gate e pelo ledger de cada comando.
func WithClaimTimeout(d time.Duration) BotOption {
	return func(b *Bot) { b.timeout = d }
}

func WithBotLogger(l logrus.FieldLogger) BotOption {
	return func(b *Bot) { b.log = l }
}

func NewBot(api Sender, claimer faucet.Claimer, opts ...BotOption) *Bot {
	b := &Bot{
		api:      api,
		claimer:  claimer,
		cooldown: application.DefaultCooldown,
		timeout:  2 * time.Minute,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run consome updates até ctx cancelar ou o canal fechar. Cada update roda na
// sua própria goroutine; Run só retorna depois que todas terminaram.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.Handle(ctx, upd)
			}()
		}
	}
}

func (b *Bot) Handle(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil || !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "start":
		b.reply(msg, b.welcome(msg.From.FirstName), nil)
	case "faucet":
		b.handleFaucet(ctx, msg)
	}
}

func (b *Bot) handleFaucet(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.reply(msg, faucet.MsgIncorrectFormat, nil)
		return
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	req := application.ClaimRequest{
		UserID:        strconv.FormatInt(msg.From.ID, 10),
		WalletAddress: args[0],
		Username:      msg.From.UserName,
		FirstName:     msg.From.FirstName,
		LastName:      msg.From.LastName,
	}
	rcpt, err := b.claimer.Claim(ctx, req)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// desligando
		return
	}

	var markup any
	if errors.Is(err, domain.ErrNotMember) && b.joinURL != "" {
		markup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("📢 Join Channel Here", b.joinURL)),
		)
	}
	b.reply(msg, b.renderer.Message(rcpt, err), markup)
}

func (b *Bot) welcome(firstName string) string {
	hours := int(b.cooldown / time.Hour)
	return fmt.Sprintf("👋 Hello %s!\n\n"+
		"🚀 Use /faucet followed by your wallet address to get testnet coins.\n"+
		"📢 Make sure you have joined our channel first!\n\n"+
		"Rules:\n"+
		"1. Max 1 request per %d hours\n"+
		"2. 1 wallet address can only be used once\n"+
		"3. 1 User ID can only use 1 wallet address\n\n"+
		"Example: /faucet 0x123...abc", firstName, hours)
}

func (b *Bot) reply(to *tgbotapi.Message, text string, markup any) {
	out := tgbotapi.NewMessage(to.Chat.ID, text)
	out.ReplyToMessageID = to.MessageID
	if markup != nil {
		out.ReplyMarkup = markup
	}
	if _, err := b.api.Send(out); err != nil {
		b.log.WithError(err).WithFields(logrus.Fields{
			"event":   "telegram_send_failed",
			"chat_id": to.Chat.ID,
		}).Warn("could not deliver reply")
	}
}

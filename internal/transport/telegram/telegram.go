package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/Habibullo22/Kinouz/internal/transport"
	"github.com/Habibullo22/Kinouz/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

// Adapter bridges telebot long-polling to the transport.Update channel and
// implements transport.Transport for outbound calls.
type Adapter struct {
	cfg Config
	log logx.Logger

	bot       *tele.Bot
	out       chan<- transport.Update
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
	runMu     sync.Mutex
	running   bool

	// droppedUpdates counts updates dropped because the consumer was slower
	// than the Telegram poll loop. Logged periodically to avoid per-update spam.
	droppedUpdates uint64
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Adapter{cfg: cfg, log: log, bot: b}
	a.registerHandlers()
	return a, nil
}

// Me returns the bot's own user id.
func (a *Adapter) Me() int64 {
	if a.bot == nil || a.bot.Me == nil {
		return 0
	}
	return a.bot.Me.ID
}

func (a *Adapter) registerHandlers() {
	forwardMessage := func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Sender == nil {
			return nil
		}
		msg := &transport.Message{
			ID:           m.ID,
			ChatID:       m.Chat.ID,
			FromID:       m.Sender.ID,
			FromUsername: m.Sender.Username,
			Text:         m.Text,
		}
		if m.Video != nil {
			msg.VideoFileID = m.Video.FileID
		}
		if m.Photo != nil {
			msg.PhotoFileID = m.Photo.FileID
		}
		a.sendUpdate(transport.Update{Kind: transport.UpdateMessage, Message: msg})
		return nil
	}

	a.bot.Handle(tele.OnText, forwardMessage)
	a.bot.Handle(tele.OnVideo, forwardMessage)
	a.bot.Handle(tele.OnPhoto, forwardMessage)

	a.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		cb := c.Callback()
		m := c.Message()
		if cb == nil || m == nil {
			return nil
		}
		a.sendUpdate(transport.Update{
			Kind: transport.UpdateCallback,
			Callback: &transport.Callback{
				ID:        cb.ID,
				FromID:    cb.Sender.ID,
				ChatID:    m.Chat.ID,
				MessageID: m.ID,
				Data:      strings.TrimSpace(cb.Data),
			},
		})
		return nil
	})

	a.bot.Handle(tele.OnMyChatMember, func(c tele.Context) error {
		cm := c.ChatMember()
		if cm == nil || cm.NewChatMember == nil || cm.Chat == nil {
			return nil
		}
		// Only the bot's own membership transitions into the chat matter.
		if cm.NewChatMember.User == nil || cm.NewChatMember.User.ID != a.Me() {
			return nil
		}
		switch cm.NewChatMember.Role {
		case tele.Member, tele.Administrator, tele.Creator:
		default:
			return nil
		}
		a.sendUpdate(transport.Update{
			Kind: transport.UpdateChatJoin,
			ChatJoin: &transport.ChatJoin{
				ChatID: cm.Chat.ID,
				Title:  chatTitle(cm.Chat),
				Type:   string(cm.Chat.Type),
			},
		})
		return nil
	})
}

func chatTitle(c *tele.Chat) string {
	if c.Title != "" {
		return c.Title
	}
	if c.Username != "" {
		return c.Username
	}
	return "unknown"
}

func (a *Adapter) sendUpdate(up transport.Update) {
	a.runMu.Lock()
	out := a.out
	a.runMu.Unlock()
	if out == nil {
		return
	}
	select {
	case out <- up:
	default:
		atomic.AddUint64(&a.droppedUpdates, 1)
	}
}

func (a *Adapter) Start(ctx context.Context, out chan<- transport.Update) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.out = out
	rctx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.runWG.Add(2)
	a.runMu.Unlock()

	// Periodic summary for dropped updates (avoid noisy per-update logs).
	go func() {
		defer a.runWG.Done()
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-rctx.Done():
				// Final flush.
				if n := atomic.SwapUint64(&a.droppedUpdates, 0); n > 0 {
					a.log.Warn("incoming updates dropped (channel full)", logx.Uint64("count", n), logx.Int("chan_cap", cap(out)))
				}
				return
			case <-ticker.C:
				if n := atomic.SwapUint64(&a.droppedUpdates, 0); n > 0 {
					a.log.Warn("incoming updates dropped (channel full)", logx.Uint64("count", n), logx.Int("chan_cap", cap(out)))
				}
			}
		}
	}()

	go func() {
		defer a.runWG.Done()
		// Ensure we stop telebot when context is cancelled.
		go func() {
			<-rctx.Done()
			a.bot.Stop()
		}()
		a.log.Info("polling started")
		a.bot.Start() // blocks until Stop() called
	}()

	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	// Best-effort graceful stop. Never block shutdown for too long on Telegram long-poll.
	a.runMu.Lock()
	cancel := a.runCancel
	a.runCancel = nil
	wasRunning := a.running
	a.running = false
	a.out = nil
	a.runMu.Unlock()

	if !wasRunning {
		a.log.Debug("telegram stop called but not running")
		return nil
	}

	if cancel != nil {
		cancel()
	}

	// telebot Stop is expected to be fast; run it async just in case.
	if a.bot != nil {
		go a.bot.Stop()
	}

	done := make(chan struct{})
	go func() {
		a.runWG.Wait()
		close(done)
	}()

	// Grace window: keep shutdown snappy even if getUpdates long-poll is still waiting.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		rem := time.Until(dl)
		if rem > 0 && rem < grace {
			grace = rem
		}
	}
	t := time.NewTimer(grace)
	defer t.Stop()

	select {
	case <-done:
		a.log.Info("polling stopped")
		return nil
	case <-ctx.Done():
		a.log.Warn("telegram stop cancelled", logx.Err(ctx.Err()))
		return ctx.Err()
	case <-t.C:
		a.log.Warn("telegram stop grace elapsed; continuing shutdown")
		return nil
	}
}

// ---- Outbound (transport.Transport) ----

func (a *Adapter) SendText(ctx context.Context, chatID int64, text string, opt *transport.SendOptions) error {
	_, err := a.bot.Send(tele.ChatID(chatID), text, sendOptions(opt))
	return err
}

func (a *Adapter) SendVideo(ctx context.Context, chatID int64, fileID, caption string, opt *transport.SendOptions) error {
	v := &tele.Video{File: tele.File{FileID: fileID}, Caption: caption}
	_, err := a.bot.Send(tele.ChatID(chatID), v, sendOptions(opt))
	return err
}

func (a *Adapter) EditText(ctx context.Context, chatID int64, messageID int, text string, opt *transport.SendOptions) error {
	m := &tele.Message{ID: messageID, Chat: &tele.Chat{ID: chatID}}
	_, err := a.bot.Edit(m, text, sendOptions(opt))
	return err
}

func (a *Adapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return a.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
}

func (a *Adapter) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) error {
	src := tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: fromChatID}
	_, err := a.bot.Copy(tele.ChatID(toChatID), src)
	return err
}

func (a *Adapter) MemberStatus(ctx context.Context, channel string, userID int64) (transport.MemberStatus, error) {
	member, err := a.bot.ChatMemberOf(chatRecipient(channel), &tele.User{ID: userID})
	if err != nil {
		return transport.StatusUnknown, err
	}
	switch member.Role {
	case tele.Creator:
		return transport.StatusCreator, nil
	case tele.Administrator:
		return transport.StatusAdministrator, nil
	case tele.Member:
		return transport.StatusMember, nil
	case tele.Restricted:
		return transport.StatusRestricted, nil
	case tele.Left:
		return transport.StatusLeft, nil
	case tele.Kicked:
		return transport.StatusKicked, nil
	default:
		return transport.StatusUnknown, nil
	}
}

// chatRecipient addresses a chat by "@username" or a numeric id string, both
// of which the Bot API accepts as chat_id.
type chatRecipient string

func (r chatRecipient) Recipient() string { return string(r) }

func sendOptions(opt *transport.SendOptions) *tele.SendOptions {
	if opt == nil {
		return &tele.SendOptions{}
	}
	so := &tele.SendOptions{
		ParseMode:             opt.ParseMode,
		DisableWebPagePreview: opt.DisablePreview,
	}
	if opt.Markup != nil {
		so.ReplyMarkup = replyMarkup(opt.Markup)
	}
	return so
}

func replyMarkup(m *transport.Markup) *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{ResizeKeyboard: m.Resize}
	if len(m.Inline) > 0 {
		rows := make([]tele.Row, 0, len(m.Inline))
		for _, row := range m.Inline {
			btns := make([]tele.Btn, 0, len(row))
			for _, b := range row {
				btns = append(btns, tele.Btn{Text: b.Text, URL: b.URL, Data: b.Data})
			}
			rows = append(rows, rm.Row(btns...))
		}
		rm.Inline(rows...)
		return rm
	}
	rows := make([]tele.Row, 0, len(m.Reply))
	for _, row := range m.Reply {
		btns := make([]tele.Btn, 0, len(row))
		for _, label := range row {
			btns = append(btns, rm.Text(label))
		}
		rows = append(rows, rm.Row(btns...))
	}
	rm.Reply(rows...)
	return rm
}

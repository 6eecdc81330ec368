package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Telegram 长轮询适配器
// 把平台更新翻译成状态机事件，按会话键串行处理，跨会话并发
type Telegram struct {
	api         *tgbotapi.BotAPI
	log         *logrus.Logger
	machine     *Machine
	pollTimeout int
	locks       sync.Map
}

func NewTelegram(api *tgbotapi.BotAPI, log *logrus.Logger, machine *Machine, pollTimeoutSec int) *Telegram {
	if pollTimeoutSec <= 0 {
		pollTimeoutSec = 60
	}
	return &Telegram{
		api:         api,
		log:         log,
		machine:     machine,
		pollTimeout: pollTimeoutSec,
	}
}

// Run 启动长轮询循环，ctx 取消后停止拉取并等待在途事件处理完
func (t *Telegram) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.pollTimeout
	updates := t.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		t.api.StopReceivingUpdates()
	}()

	t.log.Infof("Telegram 轮询已启动: bot=%s", t.api.Self.UserName)

	var wg sync.WaitGroup
	for update := range updates {
		ev, chatID, ok := t.toEvent(update)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(update tgbotapi.Update, ev Event, chatID int64) {
			defer wg.Done()
			t.dispatch(ctx, update, ev, chatID)
		}(update, ev, chatID)
	}
	wg.Wait()
}

// toEvent 翻译平台更新，无法处理的更新丢弃
func (t *Telegram) toEvent(update tgbotapi.Update) (Event, int64, bool) {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		q := update.CallbackQuery
		chatID := q.From.ID
		if q.Message != nil && q.Message.Chat != nil {
			chatID = q.Message.Chat.ID
		}
		return Event{
			SessionKey: q.From.ID,
			Kind:       EventSelection,
			Payload:    q.Data,
			Username:   q.From.UserName,
			FirstName:  q.From.FirstName,
		}, chatID, true

	case update.Message != nil && update.Message.From != nil && update.Message.Text != "":
		msg := update.Message
		return Event{
			SessionKey: msg.From.ID,
			Kind:       EventText,
			Payload:    msg.Text,
			Username:   msg.From.UserName,
			FirstName:  msg.From.FirstName,
		}, msg.Chat.ID, true
	}
	return Event{}, 0, false
}

// dispatch 单条事件的处理：按会话键加锁保证同一会话串行
func (t *Telegram) dispatch(ctx context.Context, update tgbotapi.Update, ev Event, chatID int64) {
	muVal, _ := t.locks.LoadOrStore(ev.SessionKey, &sync.Mutex{})
	mu := muVal.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	if update.CallbackQuery != nil {
		if _, err := t.api.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
			t.log.Warnf("回调应答失败: err=%v", err)
		}
	}

	resp := t.machine.HandleEvent(ctx, ev)
	if resp.Text == "" {
		return
	}

	msg := tgbotapi.NewMessage(chatID, resp.Text)
	if markup, ok := renderButtons(resp.Buttons); ok {
		msg.ReplyMarkup = markup
	}
	if _, err := t.api.Send(msg); err != nil {
		t.log.Errorf("消息发送失败: chat=%d err=%v", chatID, err)
	}
}

func renderButtons(rows [][]Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var line []tgbotapi.InlineKeyboardButton
		for _, btn := range row {
			if btn.URL != "" {
				line = append(line, tgbotapi.NewInlineKeyboardButtonURL(btn.Label, btn.URL))
			} else {
				line = append(line, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Token))
			}
		}
		if len(line) > 0 {
			keyboard = append(keyboard, line)
		}
	}
	if len(keyboard) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...), true
}

// TelegramNotifier 平台推送器，服务层通过它给用户发尽力而为的通知
type TelegramNotifier struct {
	api *tgbotapi.BotAPI
}

func NewTelegramNotifier(api *tgbotapi.BotAPI) *TelegramNotifier {
	return &TelegramNotifier{api: api}
}

func (n *TelegramNotifier) Notify(_ context.Context, userID int64, text string) error {
	_, err := n.api.Send(tgbotapi.NewMessage(userID, text))
	return err
}

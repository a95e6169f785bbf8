// README: Telegram implementation of the chat gateway: pool limit, rate limit and retry with backoff.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"dishbee/internal/metrics"
)

// Requester is the subset of the bot API the gateway needs.
type Requester interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type TelegramOptions struct {
	PoolSize    int
	RatePerSec  float64
	Attempts    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	CallTimeout time.Duration
}

func DefaultTelegramOptions() TelegramOptions {
	return TelegramOptions{
		PoolSize:    32,
		RatePerSec:  25,
		Attempts:    3,
		BaseBackoff: time.Second,
		MaxBackoff:  2 * time.Second,
		CallTimeout: 30 * time.Second,
	}
}

type Telegram struct {
	api     Requester
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	opts    TelegramOptions
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewTelegram(api Requester, opts TelegramOptions, log *zap.Logger, m *metrics.Metrics) *Telegram {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 32
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Telegram{
		api:     api,
		sem:     semaphore.NewWeighted(int64(opts.PoolSize)),
		limiter: rate.NewLimiter(limit, opts.PoolSize),
		opts:    opts,
		log:     log,
		metrics: m,
	}
}

func (g *Telegram) Send(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if len(kb) > 0 {
		msg.ReplyMarkup = toMarkup(kb)
	}
	resp, err := g.call(ctx, "send", msg)
	if err != nil {
		return 0, err
	}
	var sent tgbotapi.Message
	if err := unmarshalResult(resp, &sent); err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (g *Telegram) Edit(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.DisableWebPagePreview = true
	// an empty markup removes the keyboard
	markup := toMarkup(kb)
	edit.ReplyMarkup = &markup
	_, err := g.call(ctx, "edit", edit)
	return err
}

func (g *Telegram) Delete(ctx context.Context, chatID int64, messageID int) error {
	_, err := g.call(ctx, "delete", tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func (g *Telegram) Answer(ctx context.Context, callbackID, text string) error {
	_, err := g.call(ctx, "answer", tgbotapi.NewCallback(callbackID, text))
	return err
}

func (g *Telegram) call(ctx context.Context, op string, c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer g.sem.Release(1)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.opts.BaseBackoff
	b.MaxInterval = g.opts.MaxBackoff
	b.Multiplier = 2

	attempt := 0
	resp, err := backoff.Retry(ctx, func() (*tgbotapi.APIResponse, error) {
		attempt++
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := g.do(ctx, c)
		if err == nil {
			return resp, nil
		}
		if notModified(err) {
			return &tgbotapi.APIResponse{Ok: true}, nil
		}
		if tgErr, ok := apiError(err); ok {
			if tgErr.RetryAfter > 0 {
				return nil, backoff.RetryAfter(tgErr.RetryAfter)
			}
			if tgErr.Code >= 400 && tgErr.Code < 500 && tgErr.Code != 429 {
				return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrPermanent, tgErr.Message))
			}
		}
		g.log.Debug("chat call failed, retrying", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
		return nil, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(g.opts.Attempts)))

	result := "ok"
	if err != nil {
		result = "error"
	}
	g.metrics.ChatCall(op, result)
	if err != nil {
		return nil, fmt.Errorf("chat %s: %w", op, err)
	}
	return resp, nil
}

// do runs one request bounded by the per-call timeout.
func (g *Telegram) do(ctx context.Context, c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	type result struct {
		resp *tgbotapi.APIResponse
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := g.api.Request(c)
		ch <- result{resp, err}
	}()
	timer := time.NewTimer(g.opts.CallTimeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r.resp, r.err
	case <-timer.C:
		return nil, fmt.Errorf("chat call timed out after %s", g.opts.CallTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func apiError(err error) (*tgbotapi.Error, bool) {
	var p *tgbotapi.Error
	if errors.As(err, &p) {
		return p, true
	}
	var v tgbotapi.Error
	if errors.As(err, &v) {
		return &v, true
	}
	return nil, false
}

func notModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

func unmarshalResult(resp *tgbotapi.APIResponse, v any) error {
	if resp == nil || len(resp.Result) == 0 {
		return fmt.Errorf("chat: empty result")
	}
	return json.Unmarshal(resp.Result, v)
}

func toMarkup(kb Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			if b.URL != "" {
				row = append(row, tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.URL))
				continue
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// Package notify delivers outbound chat messages.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tbourn/cptrainer/internal/config"
	"github.com/tbourn/cptrainer/internal/observability"
)

// ErrDeliveryFailed wraps every failed delivery.
var ErrDeliveryFailed = errors.New("delivery failed")

// Notifier sends a text message to a chat endpoint.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// New returns a BotAPI notifier when a token is configured and a LogNotifier
// otherwise.
func New(cfg config.BotConfig) Notifier {
	if strings.TrimSpace(cfg.Token) == "" {
		log.Warn().Str("component", "notify").Msg("BOT_TOKEN not set; notifications are only logged")
		return LogNotifier{}
	}
	return NewBotAPI(cfg.APIURL, cfg.Token)
}

// BotAPI posts messages to a Telegram-compatible Bot API.
type BotAPI struct {
	APIURL string
	Token  string
	HTTP   *http.Client
}

// NewBotAPI returns a BotAPI with a bounded HTTP client.
func NewBotAPI(apiURL, token string) *BotAPI {
	return &BotAPI{
		APIURL: strings.TrimRight(apiURL, "/"),
		Token:  token,
		HTTP:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SendMessage is the sendMessage request body.
type SendMessage struct {
	Method string `json:"method,omitempty"`
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify sends text to chatID.
func (b *BotAPI) Notify(ctx context.Context, chatID int64, text string) (err error) {
	ctx, span := observability.Tracer("notify").Start(ctx, "notify.sendMessage")
	span.SetAttributes(attribute.Int64("chat.id", chatID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(SendMessage{ChatID: chatID, Text: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.APIURL+"/bot"+b.Token+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.HTTP.Do(req)
	if err != nil {
		// The URL carries the token; keep it out of the error.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	var out apiResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d: %s", ErrDeliveryFailed, resp.StatusCode, out.Description)
	}
	if !out.OK {
		return fmt.Errorf("%w: %s", ErrDeliveryFailed, out.Description)
	}
	return nil
}

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, chatID int64, text string) error {
	log.Info().Str("component", "notify").Int64("chat_id", chatID).Str("text", text).Msg("notification")
	return nil
}

// Chat webhook.
//
//   - POST /webhook   (one update per request, Telegram Bot API format)
//
// Replies are returned inline as a sendMessage method call in the response
// body, so no separate outbound request is made per command.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/cptrainer/internal/http/middleware"
	"github.com/tbourn/cptrainer/internal/notify"
	"github.com/tbourn/cptrainer/internal/repo"
)

// Update is the subset of a chat platform update the bot consumes.
type Update struct {
	UpdateID int64          `json:"update_id" example:"10000"`
	Message  *UpdateMessage `json:"message,omitempty"`
}

// UpdateMessage is an incoming chat message.
type UpdateMessage struct {
	MessageID int64      `json:"message_id"`
	Chat      UpdateChat `json:"chat"`
	Text      string     `json:"text" example:"/current tourist"`
}

// UpdateChat identifies the chat a message came from.
type UpdateChat struct {
	ID   int64  `json:"id" example:"123456789"`
	Type string `json:"type,omitempty" example:"private"`
}

// Webhook godoc
// @Summary      Receive a chat update
// @Description  Runs the bot command in the update and replies inline. Redelivered updates are acknowledged without side effects.
// @Tags         webhook
// @Accept       json
// @Produce      json
// @Param        X-Telegram-Bot-Api-Secret-Token  header  string  false  "Webhook secret"
// @Param        body  body      Update  true  "Update"
// @Success      200   {object}  notify.SendMessage
// @Success      204   "No reply"
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Router       /webhook [post]
func (h *Handlers) Webhook(c *gin.Context) {
	var u Update
	if err := c.ShouldBindJSON(&u); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid update payload")
		return
	}
	// Updates without a text message (joins, edits, stickers) need no work.
	if u.Message == nil || u.Message.Text == "" {
		noContent(c)
		return
	}

	lg := middleware.LoggerFrom(c)
	chatID := u.Message.Chat.ID

	if h.dedupe != nil {
		if err := h.dedupe.MarkProcessed(c.Request.Context(), chatID, u.UpdateID); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				lg.Info().Int64("update_id", u.UpdateID).Msg("duplicate update ignored")
				noContent(c)
				return
			}
			// Processing twice is better than dropping the command.
			lg.Warn().Err(err).Int64("update_id", u.UpdateID).Msg("update dedupe unavailable")
		}
	}

	reply, ok := h.bot.Handle(c.Request.Context(), chatID, u.Message.Text)
	if !ok {
		noContent(c)
		return
	}
	c.JSON(http.StatusOK, notify.SendMessage{Method: "sendMessage", ChatID: chatID, Text: reply})
}

// Package bot implements the chat command surface. It is independent of the
// transport: callers hand in the chat id and the message text and deliver the
// returned reply however their transport does.
package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/cptrainer/internal/domain"
	"github.com/tbourn/cptrainer/internal/observability"
	"github.com/tbourn/cptrainer/internal/services"
)

// Verifier runs handle verification.
type Verifier interface {
	Begin(ctx context.Context, handle string, chatID int64) (*services.Challenge, error)
	Complete(ctx context.Context, handle string, chatID int64) (domain.Assignment, error)
}

// AssignmentQuerier reports the state of today's assignment.
type AssignmentQuerier interface {
	QueryStatus(ctx context.Context, handle string) (services.Status, string, error)
}

// Directory answers streak and leaderboard queries.
type Directory interface {
	Streak(ctx context.Context, handle string) (int, error)
	StreakForChat(ctx context.Context, chatID int64) (*domain.User, error)
	Leaderboard(ctx context.Context, n int) ([]domain.User, error)
}

// Bot dispatches slash commands.
type Bot struct {
	Verify      Verifier
	Assignments AssignmentQuerier
	Users       Directory
	// Username is the bot's own name; "/cmd@Other" addressed elsewhere is ignored.
	Username string
}

// New returns a Bot.
func New(v Verifier, a AssignmentQuerier, u Directory, username string) *Bot {
	return &Bot{Verify: v, Assignments: a, Users: u, Username: strings.TrimPrefix(username, "@")}
}

// Command is a parsed slash command.
type Command struct {
	Name string
	Args []string
}

// Parse extracts the command from text. ok is false when text is not a
// command or is addressed to another bot.
func (b *Bot) Parse(text string) (Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return Command{}, false
	}
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		if b.Username != "" && !strings.EqualFold(name[at+1:], b.Username) {
			return Command{}, false
		}
		name = name[:at]
	}
	if name == "" {
		return Command{}, false
	}
	return Command{Name: strings.ToLower(name), Args: fields[1:]}, true
}

// Handle runs the command in text for chatID and returns the reply. ok is
// false when the message is not for the bot and needs no reply.
func (b *Bot) Handle(ctx context.Context, chatID int64, text string) (reply string, ok bool) {
	cmd, ok := b.Parse(text)
	if !ok {
		return "", false
	}

	ctx, span := observability.Tracer("bot").Start(ctx, "bot."+cmd.Name)
	span.SetAttributes(attribute.Int64("chat.id", chatID), attribute.Int("args", len(cmd.Args)))
	defer span.End()

	l := log.With().Str("component", "bot").Str("command", cmd.Name).Int64("chat_id", chatID).Logger()
	l.Debug().Msg("command received")

	switch cmd.Name {
	case "start":
		return startText, true
	case "help":
		return helpText, true
	case "about":
		return aboutText, true
	case "verify":
		return b.verify(ctx, chatID, cmd.Args), true
	case "complete_verification":
		return b.complete(ctx, chatID, cmd.Args), true
	case "current":
		return b.current(ctx, cmd.Args), true
	case "my_streak":
		return b.myStreak(ctx, chatID, cmd.Args), true
	case "leaderboard":
		return b.leaderboard(ctx), true
	default:
		return unknownText, true
	}
}

func (b *Bot) verify(ctx context.Context, chatID int64, args []string) string {
	if len(args) != 1 {
		return usageVerify
	}
	ch, err := b.Verify.Begin(ctx, args[0], chatID)
	if err != nil {
		return errorReply(err)
	}
	return challengeText(ch)
}

func (b *Bot) complete(ctx context.Context, chatID int64, args []string) string {
	if len(args) != 1 {
		return usageComplete
	}
	a, err := b.Verify.Complete(ctx, args[0], chatID)
	if err != nil {
		return errorReply(err)
	}
	return verifiedPrefix + a.Text
}

func (b *Bot) current(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return usageCurrent
	}
	handle, err := services.NormalizeHandle(args[0])
	if err != nil {
		return errorReply(err)
	}
	st, text, err := b.Assignments.QueryStatus(ctx, handle)
	if err != nil {
		return errorReply(err)
	}
	switch st {
	case services.StatusSolved:
		return solvedText
	case services.StatusPending:
		return pendingPrefix + text
	default:
		return completedText
	}
}

func (b *Bot) myStreak(ctx context.Context, chatID int64, args []string) string {
	switch len(args) {
	case 0:
		u, err := b.Users.StreakForChat(ctx, chatID)
		if errors.Is(err, services.ErrNotRegistered) {
			return chatUnknownText
		}
		if err != nil {
			return errorReply(err)
		}
		return ownStreakText(u)
	case 1:
		handle, err := services.NormalizeHandle(args[0])
		if err != nil {
			return errorReply(err)
		}
		n, err := b.Users.Streak(ctx, handle)
		if err != nil {
			return errorReply(err)
		}
		return handleStreakText(handle, n)
	default:
		return usageStreak
	}
}

func (b *Bot) leaderboard(ctx context.Context) string {
	users, err := b.Users.Leaderboard(ctx, 0)
	if err != nil {
		return errorReply(err)
	}
	return leaderboardText(users)
}

// errorReply maps a service error to its user-facing reply.
func errorReply(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidHandle):
		return invalidHandleText
	case errors.Is(err, services.ErrNotRegistered):
		return notRegisteredText
	case errors.Is(err, services.ErrDuplicateUser):
		return duplicateText
	case errors.Is(err, services.ErrCatalogUnavailable):
		return catalogDownText
	case errors.Is(err, services.ErrNoPendingVerification):
		return noPendingText
	case errors.Is(err, services.ErrVerificationExpired):
		return expiredText
	case errors.Is(err, services.ErrVerificationNotYetSatisfied):
		return notSatisfiedText
	default:
		log.Error().Str("component", "bot").Err(err).Msg("command failed")
		return internalFailureText
	}
}

package bot

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/cptrainer/internal/domain"
	"github.com/tbourn/cptrainer/internal/services"
)

const (
	startText = "Welcome to MyCPTrainer, your very own personal tutor for competitive programming! " +
		"Please type /help to see the available commands.\n\n" +
		"To use this bot you first need to verify your Codeforces handle. Send /verify <your_codeforces_username> to do so.\n" +
		"Example usage - /verify naivedyam."

	helpText = "Here are the commands you can use:\n" +
		"/start - Begin your training\n" +
		"/help - Check for available commands.\n" +
		"/about - Know about our purpose.\n" +
		"/leaderboard - See the most consistent competitive programmers.\n" +
		"/my_streak [handle] - Look at your current streak.\n" +
		"/verify <handle> - Verify your Codeforces handle.\n" +
		"/complete_verification <handle> - Complete your verification if you tried verifying before.\n" +
		"/current <handle> - Check today's problems."

	aboutText = "Welcome to MyCPTrainer - your own personal trainer to train your way to your dream titles on Codeforces. " +
		"My main job is to provide you the right kind of problems for you to improve and your job is to try to maintain your streak ethically. " +
		"Each day you solve the two problems I give you, your daily streak increases by one. But a day missed and the streak is gone! " +
		"Be honest with yourself through the journey and try not to see the editorial or copy paste the code until you have given the problems a fair try of at least 2 hours each. " +
		"Try to solve the easier ones in 30 mins and the harder ones in an hour or two."

	unknownText = "Sorry, I don't know that command. Type /help to see the available commands."

	usageVerify   = "Usage: /verify <your handle>\nFor example: /verify naivedyam"
	usageComplete = "Usage: /complete_verification <handle>\nExample: /complete_verification naivedyam"
	usageCurrent  = "Usage: /current <codeforces_handle>"
	usageStreak   = "Usage: /my_streak [codeforces_handle]"

	verifiedPrefix = "Verification Successful! You can now use the bot.\n\n"

	completedText = "Congratulations! You solved today's problems! New problems will be assigned at midnight."
	solvedText    = "Congratulations, you solved today's problems!"
	pendingPrefix = "Today's problems:\n"

	emptyLeaderboardText = "No one is on the leaderboard yet. Verify your handle with /verify to be the first!"

	invalidHandleText   = "That does not look like a valid Codeforces handle."
	notRegisteredText   = "User not registered with us. Please verify this handle first to get your daily problems."
	chatUnknownText     = "This chat has no verified handle yet. Send /verify <handle> first, or use /my_streak <handle>."
	duplicateText       = "This handle or chat is already registered. Use /current <handle> to see today's problems."
	catalogDownText     = "Error getting a problem. Please try later."
	noPendingText       = "No pending verification found. Please use /verify first."
	expiredText         = "Verification timed out. Please try verifying again."
	notSatisfiedText    = "Verification Failed! Please try again by submitting a compile error with the provided token."
	internalFailureText = "Something went wrong on our side. Please try again later."
)

func challengeText(ch *services.Challenge) string {
	return fmt.Sprintf("To verify your handle, please submit a compile error on this problem:\n%s\n\n"+
		"Include the following token in your submission:\n\n%s\n\n"+
		"You have %s to do this.\n\n"+
		"After you are done with sending the compilation error with the given code, "+
		"send a command /complete_verification %s.",
		ch.URL, ch.Token, humanDuration(ch.TTL), ch.Handle)
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Minute:
		return "1 minute"
	case d > 0 && d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}

func leaderboardText(users []domain.User) string {
	if len(users) == 0 {
		return emptyLeaderboardText
	}
	var b strings.Builder
	b.WriteString("Most Consistent Performers:\n\n")
	for i, u := range users {
		fmt.Fprintf(&b, "%d. %s - %d\n", i+1, u.Handle, u.Streak)
	}
	return strings.TrimRight(b.String(), "\n")
}

// rankLabel turns "candidate master" into "Candidate Master". A Caser is
// stateful, so each call builds its own.
func rankLabel(rank string) string {
	rank = strings.TrimSpace(rank)
	if rank == "" {
		return ""
	}
	return cases.Title(language.English).String(rank)
}

func ownStreakText(u *domain.User) string {
	if r := rankLabel(u.Rank); r != "" {
		return fmt.Sprintf("Your current streak is %d (%s, %s)", u.Streak, u.Handle, r)
	}
	return fmt.Sprintf("Your current streak is %d (%s)", u.Streak, u.Handle)
}

func handleStreakText(handle string, streak int) string {
	return fmt.Sprintf("The current streak of %s is %d", handle, streak)
}

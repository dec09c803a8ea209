package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tbourn/cptrainer/internal/app"
	"github.com/tbourn/cptrainer/internal/domain"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect and administer the user directory",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		users, err := a.Users.List(cmd.Context())
		if err != nil {
			return err
		}
		printUsers(users, false)
		return nil
	},
}

var usersRemoveCmd = &cobra.Command{
	Use:   "remove <handle>",
	Short: "Remove a user from the directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Users.Remove(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("remove %s: %w", args[0], err)
		}
		fmt.Printf("✓ Removed %s\n", args[0])
		return nil
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Print the streak leaderboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		users, err := a.Users.Leaderboard(cmd.Context(), limit)
		if err != nil {
			return err
		}
		printUsers(users, true)
		return nil
	},
}

func init() {
	leaderboardCmd.Flags().Int("limit", 0, "number of entries (0 = configured default)")

	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersRemoveCmd)
}

func printUsers(users []domain.User, ranked bool) {
	if len(users) == 0 {
		fmt.Println("No users registered.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if ranked {
		fmt.Fprintln(w, "#\tHANDLE\tSTREAK\tRANK")
		for i, u := range users {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", i+1, u.Handle, u.Streak, u.Rank)
		}
	} else {
		fmt.Fprintln(w, "HANDLE\tCHAT\tRATING\tRANK\tSTREAK\tSINCE")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%d\t%s\n",
				u.Handle, u.ChatID, u.Rating, u.Rank, u.Streak, u.CreatedAt.Format("2006-01-02"))
		}
	}
	_ = w.Flush()
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/actprep/internal/app"
	"github.com/abhisek/actprep/internal/ui/theme"
)

var answerCmd = &cobra.Command{
	Use:       "answer <subject> <correct|incorrect>",
	Short:     "Record a single answer",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"correct", "incorrect"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var correct bool
		switch strings.ToLower(args[1]) {
		case "correct", "right", "true":
			correct = true
		case "incorrect", "wrong", "false":
		default:
			return fmt.Errorf("outcome must be correct or incorrect, got %q", args[1])
		}
		difficulty, _ := cmd.Flags().GetString("difficulty")
		set, _ := cmd.Flags().GetInt("set")

		e, err := newEnv(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		ev, err := e.app.RecordAnswer(cmd.Context(), app.Answer{
			Subject:    args[0],
			Difficulty: difficulty,
			Correct:    correct,
			SetNumber:  set,
		})
		if err != nil {
			return err
		}
		fmt.Println(theme.Correct.Render("Recorded"), theme.Hint.Render(fmt.Sprintf("%s %s (%s)", ev.Subject, args[1], ev.Difficulty)))
		return nil
	},
}

func init() {
	answerCmd.Flags().StringP("difficulty", "d", "Medium", "Question difficulty: Easy, Medium or Hard")
	answerCmd.Flags().Int("set", 1, "Set number stored with the answer")
}

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/actprep/internal/app"
	"github.com/abhisek/actprep/internal/questiongen"
	"github.com/abhisek/actprep/internal/subject"
	"github.com/abhisek/actprep/internal/ui/components"
	"github.com/abhisek/actprep/internal/ui/theme"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a batch of practice questions",
	Example: `  actprep generate --user Mathematics=18,Reading=24,Science=20,English=22 \
    --regional Mathematics=21,Reading=22,Science=21,English=20 --interactive`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetStringToInt("user")
		regional, _ := cmd.Flags().GetStringToInt("regional")
		interactive, _ := cmd.Flags().GetBool("interactive")
		set, _ := cmd.Flags().GetInt("set")

		personal, err := parseScores(user)
		if err != nil {
			return fmt.Errorf("--user: %w", err)
		}
		region, err := parseScores(regional)
		if err != nil {
			return fmt.Errorf("--regional: %w", err)
		}

		e, err := newEnv(cmd, envOptions{withLLM: true})
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := e.app.Generate(cmd.Context(), app.GenerateRequest{
			Personal: personal,
			Regional: region,
		})
		var cd *app.CoolingDownError
		switch {
		case errors.As(err, &cd):
			fmt.Println(theme.Warning.Render(fmt.Sprintf("Please wait %s before generating new questions.", cd.Remaining.Round(time.Second))))
			return nil
		case errors.Is(err, app.ErrNoGenerator):
			return err
		case err != nil:
			if res != nil {
				for _, q := range res.Questions {
					fmt.Println(components.QuestionCard{Question: q}.View())
				}
			}
			return err
		}

		fmt.Println(theme.Subtitle.Render(fmt.Sprintf("%d questions (%s)", len(res.Questions), res.Source)))
		if !interactive {
			for i, q := range res.Questions {
				fmt.Println(components.QuestionCard{Index: i + 1, Question: q}.View())
			}
			return nil
		}
		return quiz(cmd, e.app, res.Questions, set, os.Stdin)
	},
}

// quiz asks each question in turn and records every answer given.
func quiz(cmd *cobra.Command, a *app.App, questions []questiongen.Question, set int, in io.Reader) error {
	reader := bufio.NewReader(in)
	var correct, answered int

	for i, q := range questions {
		fmt.Println(components.QuestionCard{Index: i + 1, Question: q}.View())

		choice, err := readChoice(reader)
		if err != nil {
			return err
		}
		if choice == "" {
			fmt.Println(theme.Hint.Render("Skipped."))
			continue
		}

		fmt.Println(components.QuestionCard{Index: i + 1, Question: q, Chosen: choice}.View())

		ok := q.Correct(choice)
		answered++
		if ok {
			correct++
		}
		if _, err := a.RecordAnswer(cmd.Context(), app.Answer{
			Subject:    q.Category,
			Difficulty: q.Difficulty,
			Correct:    ok,
			SetNumber:  set,
		}); err != nil {
			fmt.Println(theme.Warning.Render("Could not save answer: " + err.Error()))
		}
	}

	fmt.Println(theme.Title.Render(fmt.Sprintf("Score: %d/%d", correct, answered)))
	return nil
}

// readChoice reads an option label. An empty line or "s" skips; EOF ends
// the quiz as a skip.
func readChoice(r *bufio.Reader) (string, error) {
	for {
		fmt.Print(theme.Hint.Render("Your answer (A-D, s to skip): "))
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		choice := strings.ToUpper(strings.TrimSpace(line))
		switch choice {
		case "A", "B", "C", "D":
			return choice, nil
		case "", "S":
			return "", nil
		}
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		fmt.Println(theme.Incorrect.Render("Enter A, B, C or D."))
	}
}

func parseScores(in map[string]int) (map[subject.Subject]int, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[subject.Subject]int, len(in))
	for k, v := range in {
		s, err := subject.Parse(k)
		if err != nil {
			return nil, err
		}
		if v < 0 || v > 36 {
			return nil, fmt.Errorf("%s score %d out of range 0-36", s, v)
		}
		out[s] = v
	}
	return out, nil
}

func init() {
	generateCmd.Flags().StringToInt("user", nil, "Your ACT scores, e.g. Mathematics=18,Reading=24")
	generateCmd.Flags().StringToInt("regional", nil, "Regional median ACT scores")
	generateCmd.Flags().BoolP("interactive", "i", false, "Answer the questions and record the results")
	generateCmd.Flags().Int("set", 1, "Set number stored with each answer")
}

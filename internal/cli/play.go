package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pack-quiz/internal/app"
	"pack-quiz/internal/config"
	"pack-quiz/internal/domain"
	"github.com/spf13/cobra"
)

// NewPlayCmd runs an interactive quiz in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play question packs in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := config.InitLogger(cfg.Log)
			in, err := openInfra(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer in.Close()
			quiz := in.appFactory(cfg)(log)
			return newTerminal(quiz, cmd.InOrStdin(), cmd.OutOrStdout()).run(cmd.Context())
		},
	}
}

const playHelp = `commands: packs | start <id> | <n> | next | prev | finish | reset
          login <user> <password> | logout | status | dismiss | quit`

// terminal renders a QuizApp as line-oriented text.
type terminal struct {
	quiz *app.QuizApp
	in   io.Reader
	out  io.Writer
}

func newTerminal(quiz *app.QuizApp, in io.Reader, out io.Writer) *terminal {
	return &terminal{quiz: quiz, in: in, out: out}
}

func (t *terminal) run(ctx context.Context) error {
	fmt.Fprintln(t.out, playHelp)
	t.printCatalog()

	scanner := bufio.NewScanner(t.in)
	for {
		fmt.Fprint(t.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		t.exec(ctx, fields)
	}
}

func (t *terminal) exec(ctx context.Context, fields []string) {
	session := t.quiz.Session()
	switch cmd := fields[0]; cmd {
	case "packs":
		t.printCatalog()
	case "start":
		if len(fields) < 2 {
			fmt.Fprintln(t.out, "usage: start <pack id>")
			return
		}
		if err := t.quiz.StartPack(ctx, fields[1]); err != nil {
			t.printError(err)
			return
		}
		t.printQuestion()
	case "next":
		summary, err := t.quiz.Advance(ctx)
		if err != nil {
			t.printError(err)
			return
		}
		if summary != nil {
			t.printSummary(*summary)
			return
		}
		t.printQuestion()
	case "prev":
		if err := session.Retreat(); err != nil {
			t.printError(err)
			return
		}
		t.printQuestion()
	case "finish":
		summary, err := t.quiz.Finish(ctx)
		if err != nil {
			t.printError(err)
			return
		}
		t.printSummary(*summary)
	case "reset":
		session.Reset()
		t.printCatalog()
	case "login":
		if len(fields) < 3 {
			fmt.Fprintln(t.out, "usage: login <user> <password>")
			return
		}
		user, err := t.quiz.SignIn(ctx, fields[1], fields[2])
		if err != nil {
			t.printError(err)
			return
		}
		fmt.Fprintf(t.out, "Signed in as %s.\n", user.Email)
		t.printNotice()
		t.printStatus()
	case "logout":
		if err := t.quiz.SignOut(ctx); err != nil {
			t.printError(err)
			return
		}
		fmt.Fprintln(t.out, "Signed out.")
	case "status":
		t.printStatus()
	case "dismiss":
		t.quiz.Profile().DismissNotice()
		fmt.Fprintln(t.out, "Notice dismissed.")
	default:
		n, err := strconv.Atoi(cmd)
		if err != nil {
			fmt.Fprintln(t.out, playHelp)
			return
		}
		if err := session.SelectAnswer(n - 1); err != nil {
			t.printError(err)
			return
		}
		t.printQuestion()
	}
}

func (t *terminal) printCatalog() {
	fmt.Fprintln(t.out, "Question packs:")
	for _, entry := range t.quiz.Catalog() {
		fmt.Fprintf(t.out, "  %s  %s", entry.ID, entry.Name)
		if entry.Description != "" {
			fmt.Fprintf(t.out, " - %s", entry.Description)
		}
		fmt.Fprintln(t.out)
	}
}

func (t *terminal) printQuestion() {
	session := t.quiz.Session()
	q, ok := session.CurrentQuestion()
	if !ok {
		return
	}
	progress := session.Progress()
	fmt.Fprintf(t.out, "\nQuestion %d of %d\n%s\n", progress.Index+1, progress.Total, q.Question)
	selected := session.Answer()
	for i, option := range q.Options {
		marker := " "
		if i == selected {
			marker = "*"
		}
		fmt.Fprintf(t.out, " %s %d) %s\n", marker, i+1, option)
	}
	if progress.IsLast {
		fmt.Fprintln(t.out, "(last question: finish to see your result)")
	}
}

func (t *terminal) printSummary(summary domain.Summary) {
	fmt.Fprintf(t.out, "\n%s\n%s (%d of %d)\n", app.SummaryLine(summary), app.ResultLabel(summary), summary.Score, summary.TotalQuestions)
	for _, row := range summary.Review {
		mark := "x"
		if row.IsCorrect {
			mark = "+"
		}
		fmt.Fprintf(t.out, " [%s] %d. %s\n     yours: %s | correct: %s\n", mark, row.QuestionIndex+1, row.Question, row.UserAnswerText, row.CorrectAnswerText)
		if row.Explanation != "" {
			fmt.Fprintf(t.out, "     %s\n", row.Explanation)
		}
	}
	t.printNotice()
}

func (t *terminal) printStatus() {
	for _, entry := range t.quiz.Catalog() {
		status := t.quiz.Status(entry.ID)
		fmt.Fprintf(t.out, "  %s: %s [%s]\n", entry.ID, status.Detail, status.Action)
	}
	if _, ok := t.quiz.User(); !ok {
		return
	}
	highlight := t.quiz.Highlight()
	if highlight.Latest != nil {
		fmt.Fprintf(t.out, "Latest: %s, %d of %d. Packs passed: %d\n",
			highlight.Latest.PackID, highlight.Latest.Score, highlight.Latest.TotalQuestions, highlight.PassedCount)
	}
}

func (t *terminal) printNotice() {
	if notice := t.quiz.Profile().Notice(); notice != "" {
		fmt.Fprintf(t.out, "Note: %s\n", notice)
	}
}

func (t *terminal) printError(err error) {
	fmt.Fprintln(t.out, app.UserMessage(err))
}

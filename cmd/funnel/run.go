package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/funnelworks/funnel"
	"github.com/funnelworks/funnel/internal/presentation/tui"
	"github.com/funnelworks/funnel/pkg/adapters/memory"
	"github.com/funnelworks/funnel/pkg/adapters/webhook"
	"github.com/funnelworks/funnel/pkg/adapters/yamlcatalog"
	"github.com/funnelworks/funnel/pkg/domain"
)

// runCmd drives the funnel interactively in the terminal.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the funnel interactively in the terminal",
	Long:  `Walks through the questionnaire in the terminal: answer with the option number, 'b' to go back, 'q' to quit.`,
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("definition")
		if len(args) > 0 {
			path = args[0]
		}
		if err := runInteractive(cmd.Context(), path); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runInteractive(ctx context.Context, path string) error {
	definition, err := yamlcatalog.New(path).Load(ctx)
	if err != nil {
		return err
	}

	var redirectURL string
	engine, err := funnel.New(ctx, memory.NewCatalogLoader(definition), memory.NewStore(),
		// Terminal cards have no fade; transitions settle inline.
		funnel.WithSynchronousTransitions(),
		funnel.WithNotifier(webhook.New(definition.Completion.WebhookURL)),
		funnel.WithRedirectFallback(func(url string) {
			redirectURL = url
		}),
	)
	if err != nil {
		return err
	}
	defer engine.Close()

	render := tui.NewRenderer()
	reader := bufio.NewReader(os.Stdin)

	view, err := engine.StartSession(ctx, "local")
	if err != nil {
		return err
	}

	for {
		switch view.Stage {
		case domain.StageCompleting:
			out, _ := render("# Thanks!\n\nYour answers have been recorded.")
			fmt.Print(out)
			if redirectURL != "" {
				fmt.Printf("Continue here: %s\n", redirectURL)
			}
			return nil

		case domain.StageInterstitial:
			out, _ := render(interstitialCard(view.Interstitial))
			fmt.Print(out)
			fmt.Print("[enter] continue, [b] back > ")

			input, err := readLine(reader)
			if err != nil {
				return err
			}
			switch input {
			case "b":
				view, err = engine.Retreat(ctx, "local")
			case "q":
				return nil
			default:
				view, err = engine.ExitInterstitialForward(ctx, "local")
			}
			if err != nil {
				return err
			}

		case domain.StageQuestions:
			if view.Question == nil {
				return fmt.Errorf("no active question")
			}
			q := *view.Question

			fmt.Println(tui.ProgressBar(view.Progress, 20))
			out, _ := render("## " + q.Prompt)
			fmt.Print(out)
			for i, opt := range q.Options {
				marker := " "
				if view.Answer == opt.Value {
					marker = "*"
				}
				fmt.Printf(" %s %d) %s\n", marker, i+1, opt.Label)
			}
			if view.CanGoBack {
				fmt.Print("[1-n] answer, [b] back, [q] quit > ")
			} else {
				fmt.Print("[1-n] answer, [q] quit > ")
			}

			input, err := readLine(reader)
			if err != nil {
				return err
			}
			switch {
			case input == "q":
				return nil
			case input == "b":
				view, err = engine.Retreat(ctx, "local")
			default:
				n, convErr := strconv.Atoi(input)
				if convErr != nil || n < 1 || n > len(q.Options) {
					fmt.Println("Please pick an option number.")
					continue
				}
				if _, err = engine.RecordAnswer(ctx, "local", q.ID, q.Options[n-1].Value); err != nil {
					return err
				}
				view, err = engine.Advance(ctx, "local")
			}
			if err != nil {
				return err
			}
		}
	}
}

func interstitialCard(kind domain.Kind) string {
	return fmt.Sprintf("# One moment\n\nA quick note before the next question. *(card %s)*", kind)
}

func readLine(reader *bufio.Reader) (string, error) {
	text, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(text)), nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
)

// runWithApp wires the application for one command invocation.
func runWithApp(fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, release, err := loadConfig()
		if err != nil {
			return err
		}
		defer release()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, cmd, a, args)
	}
}

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage requirement sessions",
	}

	var title string
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new session",
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			s, err := a.workflow.NewSession(ctx, title)
			if err != nil {
				return err
			}
			printSessionHeader(cmd.OutOrStdout(), s)
			return nil
		}),
	}
	newCmd.Flags().StringVarP(&title, "title", "t", "", "session title")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			list, err := a.workflow.Sessions(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, hintStyle.Render("no sessions"))
				return nil
			}
			for _, s := range list {
				fmt.Fprintf(out, "%s  %-30s %s\n", s.ID, s.Title, phaseBadge(s.Phase))
			}
			return nil
		}),
	}

	var history bool
	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a session's current requirement and review",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			s, err := a.workflow.Session(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if history {
				for _, m := range s.History {
					fmt.Fprintf(out, "%s %s\n", labelStyle.Render(string(m.Role)), m.Timestamp.Format("15:04:05"))
					fmt.Fprint(out, renderMarkdown(m.Content))
				}
			}
			printSession(out, s)
			return nil
		}),
	}
	showCmd.Flags().BoolVar(&history, "history", false, "print the conversation")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			if err := a.workflow.DeleteSession(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("deleted ")+args[0])
			return nil
		}),
	}

	cmd.AddCommand(newCmd, listCmd, showCmd, deleteCmd)
	return cmd
}

// turnCmds are the workflow steps on one session.
func turnCmds() []*cobra.Command {
	enhance := &cobra.Command{
		Use:   "enhance <session-id> [requirement...]",
		Short: "Submit the initial requirement and enhance it",
		Long:  "Submit the initial requirement and enhance it. After a failed attempt, omit the requirement to retry with the one already submitted.",
		Args:  cobra.MinimumNArgs(1),
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			s, res, err := a.workflow.Submit(ctx, args[0], strings.Join(args[1:], " "), a.model())
			if err != nil {
				return turnError(s, err)
			}
			out := cmd.OutOrStdout()
			printSession(out, s)
			printList(out, "Clarification questions", res.ClarificationQuestions)
			printList(out, "Knowledge base suggestions", res.KBSuggestions)
			return nil
		}),
	}

	clarify := &cobra.Command{
		Use:   "clarify <session-id> <answer...>",
		Short: "Refine the current requirement with more information",
		Args:  cobra.MinimumNArgs(2),
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			s, res, err := a.workflow.Clarify(ctx, args[0], strings.Join(args[1:], " "), a.model())
			if err != nil {
				return turnError(s, err)
			}
			out := cmd.OutOrStdout()
			printSession(out, s)
			printList(out, "Additional insights", res.AdditionalSuggestions)
			return nil
		}),
	}

	review := &cobra.Command{
		Use:   "review <session-id>",
		Short: "Review the current requirement",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			s, res, err := a.workflow.Review(ctx, args[0], a.model())
			if err != nil {
				return turnError(s, err)
			}
			out := cmd.OutOrStdout()
			printSessionHeader(out, s)
			if !res.Structured {
				fmt.Fprintln(out, warnStyle.Render("model output was not structured JSON, showing fallback review"))
			}
			printReview(out, *res.Review)
			return nil
		}),
	}

	back := &cobra.Command{
		Use:   "back <session-id>",
		Short: "Return from review to enhancement",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			s, err := a.workflow.BackToEnhance(ctx, args[0])
			if err != nil {
				return err
			}
			printSessionHeader(cmd.OutOrStdout(), s)
			return nil
		}),
	}

	improvements := &cobra.Command{
		Use:   "improvements <session-id>",
		Short: "Assess completeness and suggest improvements",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			report, err := a.workflow.Improvements(ctx, args[0])
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		}),
	}

	highlighted := &cobra.Command{
		Use:   "highlighted <session-id>",
		Short: "Show the requirement with review issues highlighted",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			text, err := a.workflow.Highlighted(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), terminalHighlights(text))
			return nil
		}),
	}

	return []*cobra.Command{enhance, clarify, review, back, improvements, highlighted}
}

// turnError keeps the provider failure visible while noting that the
// session itself was saved.
func turnError(s *entities.RequirementSession, err error) error {
	if s != nil && errors.Is(err, entities.ErrProviderCallFailed) {
		return fmt.Errorf("%w (session %s kept in %s phase)", err, s.ID, s.Phase)
	}
	return err
}

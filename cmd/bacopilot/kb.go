package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
)

func kbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage the knowledge base",
	}

	add := &cobra.Command{
		Use:   "add <file...>",
		Short: "Add documents (txt, md, pdf, docx)",
		Args:  cobra.MinimumNArgs(1),
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			out := cmd.OutOrStdout()
			var failed int
			for _, path := range args {
				f, err := a.loader.Load(ctx, path)
				if err != nil {
					fmt.Fprintf(out, "%s %s: %v\n", errorStyle.Render("skip"), path, err)
					failed++
					continue
				}
				res := a.knowledge.AddDocument(ctx, f.Name, f.Content)
				switch {
				case res.Success:
					fmt.Fprintf(out, "%s %s\n", okStyle.Render("added"), f.Name)
				case res.Duplicate:
					fmt.Fprintf(out, "%s %s: %s\n", warnStyle.Render("duplicate"), f.Name, res.Error)
				default:
					fmt.Fprintf(out, "%s %s: %s\n", errorStyle.Render("failed"), f.Name, res.Error)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files not added", failed, len(args))
			}
			return nil
		}),
	}

	var byHash bool
	remove := &cobra.Command{
		Use:   "remove <filename>",
		Short: "Remove a document by filename, or by content hash with --hash",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			var res entities.RemoveResult
			if byHash {
				res = a.knowledge.RemoveDocumentByHash(ctx, args[0])
			} else {
				res = a.knowledge.RemoveDocument(ctx, args[0])
			}
			if !res.Success {
				return res.Err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", okStyle.Render("removed"), res.Document.Filename)
			if a.knowledge.IsIndexStale() {
				fmt.Fprintln(out, hintStyle.Render("index is stale, run `bacopilot kb rebuild`"))
			}
			return nil
		}),
	}
	remove.Flags().BoolVar(&byHash, "hash", false, "treat the argument as a content hash")

	list := &cobra.Command{
		Use:   "list",
		Short: "List uploaded documents",
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			out := cmd.OutOrStdout()
			docs := a.knowledge.UploadedDocuments()
			if len(docs) == 0 {
				fmt.Fprintln(out, hintStyle.Render("no documents"))
				return nil
			}
			for _, d := range docs {
				fmt.Fprintf(out, "%-32s %-5s %8d  %s  %s\n",
					d.Filename, d.FileType, d.FileSizeBytes,
					d.UploadTime.Format("2006-01-02 15:04"), labelStyle.Render(d.ContentHash[:12]))
			}
			return nil
		}),
	}

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Summarise the knowledge base",
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			printSummary(cmd, a.knowledge.Summary())
			return nil
		}),
	}

	rebuild := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the index from the stored documents",
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			if err := a.knowledge.Rebuild(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("index rebuilt"))
			return nil
		}),
	}

	var mode string
	query := &cobra.Command{
		Use:   "query <requirement...>",
		Short: "Ask the knowledge base for suggestions on a requirement",
		Args:  cobra.MinimumNArgs(1),
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			res := a.knowledge.Query(ctx, strings.Join(args, " "), mode)
			if !res.Success {
				return fmt.Errorf("knowledge query failed: %s", res.Error)
			}
			out := cmd.OutOrStdout()
			printList(out, "Suggestions", res.Suggestions)
			printList(out, "Questions", res.Questions)
			return nil
		}),
	}
	query.Flags().StringVar(&mode, "mode", "", "retrieval mode: local, global or hybrid")

	cmd.AddCommand(add, remove, list, summary, rebuild, query)
	return cmd
}

func printSummary(cmd *cobra.Command, s entities.DocumentsSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Knowledge base"))
	fmt.Fprintf(out, "  %s %d (%d bytes)\n", labelStyle.Render("documents"), s.TotalDocuments, s.TotalSizeBytes)
	for t, n := range s.FileTypes {
		fmt.Fprintf(out, "  %s %d\n", labelStyle.Render(t), n)
	}
	if s.LatestUpload != nil {
		fmt.Fprintf(out, "  %s %s (%s)\n", labelStyle.Render("latest"), s.LatestFilename, s.LatestUpload.Format("2006-01-02 15:04"))
	}
	switch {
	case !s.Initialized:
		fmt.Fprintln(out, "  "+errorStyle.Render("index unavailable"))
	case s.IndexStale:
		fmt.Fprintln(out, "  "+warnStyle.Render("index stale"))
	default:
		fmt.Fprintln(out, "  "+okStyle.Render("index up to date"))
	}
}

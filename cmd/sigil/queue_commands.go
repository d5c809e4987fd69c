package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sigil/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage the rendition job queue",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))

	return queueCmd
}

func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var flags processFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Enqueue a rendition job for the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(flags.source) == "" {
				return errors.New("--source is required")
			}
			if strings.TrimSpace(flags.rendition) == "" {
				return errors.New("--rendition is required")
			}

			instructions := map[string]any{
				"useLocalSigner":    !flags.remote,
				"addSourceManifest": flags.propagate,
				"c2paSignParams": map[string]any{
					"clientSecret":       flags.clientSecret,
					"accessCode":         flags.accessCode,
					"tier":               flags.tier,
					"useInternalTooling": flags.internalTooling,
					"cleanUpTmpFiles":    !flags.keepTmpFiles,
				},
			}

			return ctx.withStore(func(store *queue.Store) error {
				job, err := store.Enqueue(cmd.Context(), queue.NewJob{
					SourcePath:    flags.source,
					SourceName:    flags.sourceName,
					SourceMime:    flags.mimeType,
					RenditionPath: flags.rendition,
					RenditionName: flags.renditionName,
					Instructions:  instructions,
				})
				if err != nil {
					return fmt.Errorf("enqueue job: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enqueued job %d (token %s)\n", job.ID, job.Token)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags.source, "source", "", "Path to the source asset")
	cmd.Flags().StringVar(&flags.sourceName, "source-name", "", "Display name for the source asset")
	cmd.Flags().StringVar(&flags.mimeType, "mime", "", "MIME type of the source asset")
	cmd.Flags().StringVar(&flags.rendition, "rendition", "", "Path for the signed rendition output")
	cmd.Flags().StringVar(&flags.renditionName, "rendition-name", "", "Display name for the rendition")
	cmd.Flags().BoolVar(&flags.remote, "remote", false, "Sign through the remote signing service instead of local credentials")
	cmd.Flags().BoolVar(&flags.propagate, "propagate", false, "Propagate the source's active manifest onto the rendition")
	cmd.Flags().BoolVar(&flags.internalTooling, "internal-tooling", false, "Use the internal provenance tool with an exchanged auth token")
	cmd.Flags().StringVar(&flags.clientSecret, "client-secret", "", "Client secret for token exchange")
	cmd.Flags().StringVar(&flags.accessCode, "access-code", "", "Access code for token exchange")
	cmd.Flags().StringVar(&flags.tier, "tier", "", "Identity environment tier (STAGE or PROD)")
	cmd.Flags().BoolVar(&flags.keepTmpFiles, "keep-tmp", false, "Keep scratch manifest files instead of removing them")

	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rendition jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				status, ok := queue.ParseStatus(trimmed)
				if !ok {
					return fmt.Errorf("unknown status %q", trimmed)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(store *queue.Store) error {
				jobs, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return fmt.Errorf("list jobs: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						string(job.Status),
						job.SourcePath,
						job.RenditionPath,
						job.ErrorMessage,
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"ID", "Status", "Source", "Rendition", "Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (pending, processing, completed, failed)")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Return a failed job to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			return ctx.withStore(func(store *queue.Store) error {
				if err := store.RetryFailed(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d returned to pending\n", id)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove completed jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				removed, err := store.Clear(cmd.Context(), all)
				if err != nil {
					return fmt.Errorf("clear queue: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every job regardless of status")
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return fmt.Errorf("queue stats: %w", err)
				}

				rows := make([][]string, 0, len(stats))
				total := 0
				for _, status := range queue.AllStatuses() {
					count := stats[status]
					total += count
					rows = append(rows, []string{string(status), strconv.Itoa(count)})
				}
				rows = append(rows, []string{"total", strconv.Itoa(total)})

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out,
					[]string{"Status", "Jobs"},
					rows,
					[]columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

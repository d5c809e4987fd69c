package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sigil/internal/c2patool"
	"sigil/internal/logging"
	"sigil/internal/worker"
)

type processFlags struct {
	source          string
	sourceName      string
	mimeType        string
	rendition       string
	renditionName   string
	remote          bool
	propagate       bool
	internalTooling bool
	clientSecret    string
	accessCode      string
	tier            string
	keepTmpFiles    bool
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var flags processFlags

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Sign a single rendition immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(flags.source) == "" {
				return errors.New("--source is required")
			}
			if strings.TrimSpace(flags.rendition) == "" {
				return errors.New("--rendition is required")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			instructions := worker.Instructions{
				UseLocalSigner:    !flags.remote,
				AddSourceManifest: flags.propagate,
				SignParams: c2patool.SignParams{
					ClientSecret:       flags.clientSecret,
					AccessCode:         flags.accessCode,
					Tier:               flags.tier,
					UseInternalTooling: flags.internalTooling,
					CleanUpTmpFiles:    !flags.keepTmpFiles,
				},
			}

			w := worker.New(cfg, logger)
			if err := w.Process(cmd.Context(),
				worker.Source{
					Path:     flags.source,
					Name:     flags.sourceName,
					MimeType: flags.mimeType,
				},
				worker.Rendition{
					Path:         flags.rendition,
					Name:         flags.renditionName,
					Instructions: instructions,
				},
			); err != nil {
				return fmt.Errorf("process rendition: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote signed rendition to %s\n", flags.rendition)
			return nil
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

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tapevault/internal/catalog"
	"tapevault/internal/ingest"
	"tapevault/internal/media"
	"tapevault/internal/sourcepolicy"
)

func newMediaCommand(ctx *commandContext) *cobra.Command {
	mediaCmd := &cobra.Command{
		Use:   "media",
		Short: "Manage catalogued media",
	}

	mediaCmd.AddCommand(newMediaIngestCommand(ctx))
	mediaCmd.AddCommand(newMediaListCommand(ctx))
	mediaCmd.AddCommand(newMediaRemoveCommand(ctx))

	return mediaCmd
}

func newMediaIngestCommand(ctx *commandContext) *cobra.Command {
	var (
		kindFlag       string
		sourceFlag     string
		titleFlag      string
		descFlag       string
		capturedFlag   string
		tapeNumberFlag string
		mimeFlag       string
		userFlag       string
		privateFlag    bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a media file into the gallery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := media.ParseKind(kindFlag)
			if !ok {
				return fmt.Errorf("kind must be PHOTO or VIDEO, got %q", kindFlag)
			}
			sourceKind, ok := media.ParseSourceKind(sourceFlag)
			if !ok {
				return fmt.Errorf("unknown source kind %q", sourceFlag)
			}

			meta := sourcepolicy.Metadata{
				Kind:         kind,
				SourceKind:   sourceKind,
				Title:        titleFlag,
				Description:  descFlag,
				TapeNumber:   tapeNumberFlag,
				DeclaredMIME: mimeFlag,
			}
			if capturedFlag != "" {
				captured, err := time.Parse(time.RFC3339, capturedFlag)
				if err != nil {
					return fmt.Errorf("captured-at must be RFC 3339: %w", err)
				}
				meta.CapturedAt = &captured
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open source file: %w", err)
			}
			defer file.Close()

			p, err := ctx.openPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.close()

			asset, err := p.coordinator.Ingest(cmd.Context(), ingest.Request{
				Meta:       meta,
				Body:       file,
				UploadedBy: userFlag,
				Visibility: visibilityFor(privateFlag),
			})
			if err != nil {
				printStatus(cmd.OutOrStdout(), statusError, fmt.Sprintf("ingest failed: %v", err))
				return err
			}

			printStatus(cmd.OutOrStdout(), statusSuccess,
				fmt.Sprintf("ingested %s (%d bytes, fingerprint %s)", asset.ID, asset.ByteSize, asset.Fingerprint))
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "", "Media kind: PHOTO or VIDEO")
	cmd.Flags().StringVar(&sourceFlag, "source", "", "Source kind, e.g. VIDEOTAPE or USER_UPLOAD")
	cmd.Flags().StringVar(&titleFlag, "title", "", "Asset title")
	cmd.Flags().StringVar(&descFlag, "description", "", "Asset description")
	cmd.Flags().StringVar(&capturedFlag, "captured-at", "", "Capture timestamp (RFC 3339)")
	cmd.Flags().StringVar(&tapeNumberFlag, "tape-number", "", "Tape number (required for VIDEOTAPE)")
	cmd.Flags().StringVar(&mimeFlag, "mime", "", "Declared MIME type (sniffed when omitted)")
	cmd.Flags().StringVar(&userFlag, "user", "", "Uploading user id")
	cmd.Flags().BoolVar(&privateFlag, "private", false, "Mark the asset private")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func visibilityFor(private bool) media.Visibility {
	if private {
		return media.VisibilityPrivate
	}
	return media.VisibilityFamily
}

func newMediaListCommand(ctx *commandContext) *cobra.Command {
	var (
		sourceFlag     string
		tapeNumberFlag string
		fromFlag       string
		toFlag         string
		limitFlag      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalogued media",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := catalog.AssetFilter{
				TapeNumber: tapeNumberFlag,
				Limit:      limitFlag,
			}
			if sourceFlag != "" {
				kind, ok := media.ParseSourceKind(sourceFlag)
				if !ok {
					return fmt.Errorf("unknown source kind %q", sourceFlag)
				}
				filter.SourceKind = kind
			}
			if fromFlag != "" {
				from, err := time.Parse(time.RFC3339, fromFlag)
				if err != nil {
					return fmt.Errorf("from must be RFC 3339: %w", err)
				}
				filter.DateFrom = &from
			}
			if toFlag != "" {
				to, err := time.Parse(time.RFC3339, toFlag)
				if err != nil {
					return fmt.Errorf("to must be RFC 3339: %w", err)
				}
				filter.DateTo = &to
			}

			p, err := ctx.openPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.close()

			assets, err := p.store.ListAssets(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(assets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No media found")
				return nil
			}

			rows := make([][]string, 0, len(assets))
			for _, asset := range assets {
				rows = append(rows, []string{
					asset.ID,
					string(asset.Kind),
					string(asset.SourceKind),
					asset.TapeNumber,
					string(asset.Status),
					fmt.Sprintf("%d", asset.ByteSize),
					asset.CreatedAt.Format(time.RFC3339),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Kind", "Source", "Tape", "Status", "Bytes", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceFlag, "source", "", "Filter by source kind")
	cmd.Flags().StringVar(&tapeNumberFlag, "tape-number", "", "Filter by tape number")
	cmd.Flags().StringVar(&fromFlag, "from", "", "Captured-at lower bound (RFC 3339)")
	cmd.Flags().StringVar(&toFlag, "to", "", "Captured-at upper bound (RFC 3339)")
	cmd.Flags().IntVar(&limitFlag, "limit", 0, "Maximum rows to return")

	return cmd
}

func newMediaRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Soft-delete an asset and remove its bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.openPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.close()

			if err := p.coordinator.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), statusSuccess, fmt.Sprintf("deleted %s", args[0]))
			return nil
		},
	}
}

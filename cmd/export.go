package cmd

import (
	"fmt"

	"duplicalis/internal/qdrant"
	"duplicalis/internal/runner"
	"duplicalis/internal/utils"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [target]",
	Short: "Scan and upsert every component's fused vector into Qdrant",
	Long: `Runs a scan and writes one point per component into a Qdrant collection
(QDRANT_URL, QDRANT_API_KEY). The collection defaults to duplicalis_<project-id>
and is recreated when its vector size no longer matches.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}

		collection := cfg.Qdrant.Collection
		if collection == "" {
			projectID, err := utils.ComputeProjectID(cfg.Root)
			if err != nil {
				return fmt.Errorf("failed to compute project id: %w", err)
			}
			collection = qdrant.CollectionName(projectID)
		}

		res, err := runner.Run(cmd.Context(), cfg, runner.Options{Progress: progressWriter(cfg)})
		if err != nil {
			return err
		}

		qc, err := qdrant.NewClient(cfg.Qdrant)
		if err != nil {
			return err
		}
		defer qc.Close()

		fmt.Printf("→ Using collection: %s\n", collection)
		n, err := qc.Export(cmd.Context(), collection, res.Entries, cfg.Root, cfg.Weight)
		if err != nil {
			return err
		}
		fmt.Println(color.GreenString("✓ Exported %d components (%d pairs above threshold)", n, len(res.Report.Pairs)))
		return nil
	},
}

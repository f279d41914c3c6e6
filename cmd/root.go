package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zonemap/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "zonemap",
	Short:        "Parcel zoning assignment and choropleth mapping",
	SilenceUsage: true,
	Long: `zonemap joins land parcels to zoning districts and maps the results.

  assign  gives each parcel the district it overlaps most (or the first one
          it touches) and writes the joined table as GeoJSON, CSV or XLSX.
  map     classifies a numeric column into natural-break classes and draws
          a choropleth with optional station and buffer overlays, previewed
          in the terminal and optionally saved as PDF.
  runs    lists and shows assignment runs recorded in the run history
          (Postgres or SQLite, enabled with store.driver).

Settings come from zonemap.yaml or ZONEMAP_* environment variables.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zonemap/internal/crs"
	"github.com/sells-group/zonemap/internal/feature"
	"github.com/sells-group/zonemap/internal/geo"
	"github.com/sells-group/zonemap/internal/store"
)

type assignFlags struct {
	parcels    string
	zoning     string
	policy     string
	out        string
	parcelsCRS string
	zoningCRS  string
}

var assignOpts assignFlags

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign each parcel to a zoning district",
	Long: `Joins parcels to zoning districts. With --policy largest (default) each
parcel gets the district with the greatest overlap area; with --policy first
it gets the lowest-indexed intersecting district. The joined table is written
to --out (.geojson, .csv or .xlsx) or as GeoJSON to stdout.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Flags().Changed("policy") {
			cfg.Assign.Policy = assignOpts.policy
		}
		if err := cfg.Validate("assign"); err != nil {
			return err
		}
		opts := assignOpts
		opts.policy = cfg.Assign.Policy
		_, err := runAssign(cmd.Context(), cmd.OutOrStdout(), opts)
		return err
	},
}

func init() {
	f := assignCmd.Flags()
	f.StringVar(&assignOpts.parcels, "parcels", "", "parcel features (.geojson or .shp)")
	f.StringVar(&assignOpts.zoning, "zoning", "", "zoning district features (.geojson or .shp)")
	f.StringVar(&assignOpts.policy, "policy", string(geo.PolicyLargest), "assignment policy: largest or first")
	f.StringVar(&assignOpts.out, "out", "", "output file (.geojson, .csv, .xlsx); stdout when empty")
	f.StringVar(&assignOpts.parcelsCRS, "parcels-crs", "", "override the parcels CRS (e.g. EPSG:2263)")
	f.StringVar(&assignOpts.zoningCRS, "zoning-crs", "", "override the zoning CRS")
	_ = assignCmd.MarkFlagRequired("parcels")
	_ = assignCmd.MarkFlagRequired("zoning")

	rootCmd.AddCommand(assignCmd)
}

func runAssign(ctx context.Context, out io.Writer, opts assignFlags) (*geo.Result, error) {
	parcels, err := readLayer(opts.parcels, opts.parcelsCRS)
	if err != nil {
		return nil, err
	}
	zones, err := readLayer(opts.zoning, opts.zoningCRS)
	if err != nil {
		return nil, err
	}

	res, err := geo.Assign(parcels, zones, opts.policy)
	if err != nil {
		return nil, err
	}
	zap.L().Info("assign: complete",
		zap.String("policy", string(res.Policy)),
		zap.Int("parcels", parcels.Len()),
		zap.Int("districts", zones.Len()),
		zap.Int("matched", res.Matched()),
	)

	joined := res.Joined()
	if opts.out != "" {
		if err := feature.Write(opts.out, joined); err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "Assigned %d of %d parcels, written to %s\n", res.Matched(), parcels.Len(), opts.out) //nolint:errcheck
	} else if err := feature.WriteGeoJSON(out, joined); err != nil {
		return nil, err
	}

	if cfg.Store.Enabled() {
		if err := saveRun(ctx, res, opts); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func saveRun(ctx context.Context, res *geo.Result, opts assignFlags) error {
	st, err := initStore(ctx)
	if err != nil {
		return eris.Wrap(err, "assign: open store")
	}
	defer st.Close() //nolint:errcheck

	run := store.NewRun(res, opts.parcels, opts.zoning)
	if err := st.SaveRun(ctx, run); err != nil {
		return eris.Wrap(err, "assign: save run")
	}
	zap.L().Info("assign: run recorded", zap.String("run_id", run.ID))
	return nil
}

// readLayer loads a feature file, applying an optional CRS override.
func readLayer(path, crsFlag string) (*feature.Collection, error) {
	var override crs.CRS
	if crsFlag != "" {
		c, err := crs.Parse(crsFlag)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid CRS %q", crsFlag)
		}
		override = c
	}
	return feature.Read(path, override)
}

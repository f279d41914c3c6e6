package main

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"

	"github.com/sells-group/zonemap/internal/choropleth"
	"github.com/sells-group/zonemap/internal/feature"
	"github.com/sells-group/zonemap/internal/preview"
)

type mapFlags struct {
	in       string
	column   string
	title    string
	k        int
	cmap     string
	stations string
	buffer   string
	save     bool
	out      string
	notes    string
	crs      string
}

var mapOpts mapFlags

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Render a choropleth map of a numeric column",
	Long: `Classifies --column into natural-breaks classes and draws each feature in
its class colour, with optional station points and buffer outlines on top.
The figure is previewed in the terminal and, with --save, written as PDF.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		if f.Changed("k") {
			cfg.Map.K = mapOpts.k
		}
		if f.Changed("cmap") {
			cfg.Map.Colormap = mapOpts.cmap
		}
		if f.Changed("out") {
			cfg.Map.Output = mapOpts.out
		}
		if err := cfg.Validate("map"); err != nil {
			return err
		}
		opts := mapOpts
		opts.k = cfg.Map.K
		opts.cmap = cfg.Map.Colormap
		opts.out = cfg.Map.Output
		_, err := runMap(cmd.OutOrStdout(), opts)
		return err
	},
}

func init() {
	f := mapCmd.Flags()
	f.StringVar(&mapOpts.in, "in", "", "input features (.geojson or .shp)")
	f.StringVar(&mapOpts.column, "column", "", "numeric column to classify")
	f.StringVar(&mapOpts.title, "title", "", "figure title")
	f.IntVar(&mapOpts.k, "k", choropleth.DefaultK, "number of classes")
	f.StringVar(&mapOpts.cmap, "cmap", choropleth.DefaultColormap, "colormap name")
	f.StringVar(&mapOpts.stations, "stations", "", "station point features to overlay")
	f.StringVar(&mapOpts.buffer, "buffer", "", "buffer polygon features to outline")
	f.BoolVar(&mapOpts.save, "save", false, "write the figure as PDF")
	f.StringVar(&mapOpts.out, "out", choropleth.DefaultPath, "PDF output path")
	f.StringVar(&mapOpts.notes, "notes", "", "note text below the map")
	f.StringVar(&mapOpts.crs, "crs", "", "override the input CRS")
	_ = mapCmd.MarkFlagRequired("in")
	_ = mapCmd.MarkFlagRequired("column")

	rootCmd.AddCommand(mapCmd)
}

func runMap(out io.Writer, opts mapFlags) (*choropleth.Figure, error) {
	features, err := readLayer(opts.in, opts.crs)
	if err != nil {
		return nil, err
	}

	ropts := choropleth.Options{
		K:        opts.k,
		Colormap: opts.cmap,
		Save:     opts.save,
		Path:     opts.out,
		Notes:    opts.notes,
	}
	if ropts.Stations, err = readOverlay(opts.stations); err != nil {
		return nil, eris.Wrap(err, "map: stations")
	}
	if ropts.Buffers, err = readOverlay(opts.buffer); err != nil {
		return nil, eris.Wrap(err, "map: buffers")
	}

	renderOpts := []choropleth.RendererOption{
		choropleth.WithWidth(vg.Length(cfg.Map.WidthIn) * vg.Inch),
	}
	if cfg.Preview.Enabled {
		renderOpts = append(renderOpts, choropleth.WithViewer(
			preview.New(out, preview.WithSize(cfg.Preview.Width, cfg.Preview.Height)),
		))
	}

	fig, err := choropleth.NewRenderer(renderOpts...).Render(features, opts.column, opts.title, ropts)
	if err != nil {
		return nil, err
	}
	zap.L().Info("map: rendered",
		zap.String("column", opts.column),
		zap.Int("classes", fig.Classes.K()),
		zap.Bool("saved", fig.Path != ""),
	)
	return fig, nil
}

func readOverlay(path string) (*feature.Collection, error) {
	if path == "" {
		return nil, nil
	}
	return readLayer(path, "")
}

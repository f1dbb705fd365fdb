package cli

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"dxf-normalizer/internal/common/config"
	"dxf-normalizer/internal/normalizer/assembler"
	"dxf-normalizer/internal/normalizer/graph"
	"dxf-normalizer/internal/normalizer/mapper"
)

var (
	configPath string
	quiet      bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dxfnorm",
	Short: "Turn closed outlines in DXF drawings into polylines",
	Long: `dxfnorm flattens circles into arcs, finds closed loops of lines and
arcs, and replaces each loop with a single closed polyline.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if quiet {
			log.SetOutput(io.Discard)
		}
		path := configPath
		if path == "" {
			path = os.Getenv(config.EnvConfigPath)
		}
		loaded, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "discard log output")
}

// Execute runs the command line.
func Execute() error {
	return rootCmd.Execute()
}

// normalizerOptions converts the configured knobs into run options.
func normalizerOptions(n config.Normalizer) (mapper.Options, error) {
	opts := mapper.Options{
		Tolerance:      n.Tolerance,
		ChordRatio:     n.ChordRatio,
		KeepCircleArcs: n.KeepCircleArcs,
		Strict:         n.Strict,
		Limits: graph.Limits{
			MaxLoops: n.Limits.MaxLoops,
			MaxDepth: n.Limits.MaxDepth,
			MaxSteps: n.Limits.MaxSteps,
		},
	}
	if n.ArcMode != "" {
		mode, err := assembler.ParseArcMode(n.ArcMode)
		if err != nil {
			return opts, err
		}
		opts.ArcMode = mode
	}
	return opts, nil
}

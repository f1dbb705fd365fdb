package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dxf-normalizer/internal/normalizer/assembler"
	"dxf-normalizer/internal/normalizer/history"
	"dxf-normalizer/internal/normalizer/mapper"
	"dxf-normalizer/internal/normalizer/store"
)

var (
	flagStrict         bool
	flagRecord         bool
	flagKeepCircleArcs bool
	flagArcMode        string
	flagChordRatio     float64
	flagTolerance      float64
)

// isTerminal reports whether prompts can be shown. Replaced in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize [input] [output]",
	Short: "Replace closed outlines in a drawing with polylines",
	Long: `Reads a DXF or SVG drawing, flattens its circles into arcs, replaces
every closed loop of lines and arcs with a closed polyline and writes
the result as DXF. Missing paths are prompted for on a terminal.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runNormalize,
}

func init() {
	f := normalizeCmd.Flags()
	f.BoolVar(&flagStrict, "strict", false, "fail on unsupported entity types")
	f.BoolVar(&flagRecord, "record", false, "record the run in the history database")
	f.BoolVar(&flagKeepCircleArcs, "keep-circle-arcs", false, "insert circle arcs as arcs instead of closing them")
	f.StringVar(&flagArcMode, "arc-mode", "", "arc representation in polylines: flatten or bulge")
	f.Float64Var(&flagChordRatio, "chord-ratio", 0, "flattening sagitta as a fraction of the radius")
	f.Float64Var(&flagTolerance, "tolerance", 0, "endpoint matching distance")
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	opts, err := normalizeOptions(cmd)
	if err != nil {
		return err
	}

	in := bufio.NewReader(cmd.InOrStdin())
	input, err := pathArg(cmd, in, args, 0, "Input drawing")
	if err != nil {
		return err
	}
	output, err := pathArg(cmd, in, args, 1, "Output DXF")
	if err != nil {
		return err
	}
	output = store.OutputPath(output)

	doc, err := store.Load(input)
	if err != nil {
		return err
	}

	report, err := mapper.New(opts).Normalize(doc)
	if err != nil {
		return err
	}
	for _, w := range doc.Warnings {
		report.Warnings = append(report.Warnings, w.Error())
	}

	if err := store.Save(doc, output); err != nil {
		return err
	}

	printReport(cmd, output, report)

	if flagRecord {
		if err := recordRun(cmd.Context(), filepath.Base(input), report); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	return nil
}

// normalizeOptions applies the flags that were set on top of the config.
func normalizeOptions(cmd *cobra.Command) (mapper.Options, error) {
	opts, err := normalizerOptions(cfg.Normalizer)
	if err != nil {
		return opts, err
	}

	f := cmd.Flags()
	if f.Changed("strict") {
		opts.Strict = flagStrict
	}
	if f.Changed("keep-circle-arcs") {
		opts.KeepCircleArcs = flagKeepCircleArcs
	}
	if f.Changed("arc-mode") {
		mode, err := assembler.ParseArcMode(flagArcMode)
		if err != nil {
			return opts, err
		}
		opts.ArcMode = mode
	}
	if f.Changed("chord-ratio") {
		if !(flagChordRatio > 0) {
			return opts, errors.New("--chord-ratio must be positive")
		}
		opts.ChordRatio = flagChordRatio
	}
	if f.Changed("tolerance") {
		if !(flagTolerance > 0) {
			return opts, errors.New("--tolerance must be positive")
		}
		opts.Tolerance = flagTolerance
	}
	return opts, nil
}

// pathArg returns args[i], prompting for it when stdin is a terminal.
func pathArg(cmd *cobra.Command, in *bufio.Reader, args []string, i int, label string) (string, error) {
	if i < len(args) {
		return args[i], nil
	}
	if !isTerminal() {
		return "", fmt.Errorf("%s path required", strings.ToLower(label))
	}

	cmd.Printf("%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	path := strings.TrimSpace(line)
	if path == "" {
		return "", fmt.Errorf("%s path required", strings.ToLower(label))
	}
	return path, nil
}

func printReport(cmd *cobra.Command, output string, r *mapper.Report) {
	cmd.Printf("Wrote %s\n", output)
	cmd.Printf("  Circles:   %d (%d arcs)\n", r.Circles, r.Arcs)
	cmd.Printf("  Loops:     %d\n", r.Loops)
	cmd.Printf("  Polylines: %d\n", len(r.Polylines))
	cmd.Printf("  Deleted:   %d\n", r.Deleted)
	cmd.Printf("  Inserted:  %d\n", r.Inserted)
	if r.Truncated {
		cmd.Println("  Loop search stopped early; results are partial.")
	}
	if len(r.Warnings) > 0 {
		cmd.Printf("  Warnings:  %d\n", len(r.Warnings))
		for _, w := range r.Warnings {
			cmd.Printf("    - %s\n", w)
		}
	}
}

func recordRun(ctx context.Context, inputName string, report *mapper.Report) error {
	repo, closeDB, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	run, err := repo.Record(ctx, history.RunFromReport(inputName, "cli", report))
	if err != nil {
		return err
	}
	log.Printf("[HISTORY] Recorded run %s", run.ID)
	return nil
}

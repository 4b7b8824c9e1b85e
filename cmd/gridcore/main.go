// Package main provides the CLI entry point for gridcore-go.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/ukaji3/gridcore-go/pkg/gridcore"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/layout"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/models"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/stream"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/workbook"
)

var (
	configPath string
	logLevel   string
	outputPath string
	pretty     bool
	sheetKey   string

	scrollTop  float64
	scrollLeft float64
	width      float64
	height     float64
	bufferRows int
	bufferCols int

	cfg    gridcore.Options
	logger *slog.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gridcore",
		Short: "Evaluate, stream into and convert spreadsheet workbooks",
		Long: `gridcore-go works on workbook JSON documents: it evaluates formulas,
streams cell writes into a sheet, computes visible viewport windows and
converts workbooks to and from xlsx.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/gridcore/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	evalCmd := &cobra.Command{
		Use:   "eval [workbook.json] [formula]",
		Short: "Evaluate a formula against a sheet",
		Args:  cobra.ExactArgs(2),
		RunE:  runEval,
	}
	evalCmd.Flags().StringVar(&sheetKey, "sheet", "", "Sheet ID or name (default: active sheet)")

	streamCmd := &cobra.Command{
		Use:   "stream [workbook.json] [entries.jsonl]",
		Short: "Stream JSONL cell writes into a sheet",
		Long: `Reads one JSON object per line, {"cell":"B2","value":"4","delayMs":50}
or {"row":1,"col":1,"value":"=SUM(A1:A3)"}, and writes it into the sheet.
Use - to read entries from stdin.`,
		Args: cobra.ExactArgs(2),
		RunE: runStream,
	}
	streamCmd.Flags().StringVar(&sheetKey, "sheet", "", "Sheet ID or name (default: active sheet)")
	streamCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	streamCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")

	viewportCmd := &cobra.Command{
		Use:   "viewport [workbook.json]",
		Short: "Print the rows and columns visible in a viewport",
		Args:  cobra.ExactArgs(1),
		RunE:  runViewport,
	}
	viewportCmd.Flags().StringVar(&sheetKey, "sheet", "", "Sheet ID or name (default: active sheet)")
	viewportCmd.Flags().Float64Var(&scrollTop, "scroll-top", 0, "Vertical scroll offset in pixels")
	viewportCmd.Flags().Float64Var(&scrollLeft, "scroll-left", 0, "Horizontal scroll offset in pixels")
	viewportCmd.Flags().Float64Var(&width, "width", 1280, "Viewport width in pixels")
	viewportCmd.Flags().Float64Var(&height, "height", 720, "Viewport height in pixels")
	viewportCmd.Flags().IntVar(&bufferRows, "buffer-rows", 5, "Extra rows rendered around the viewport")
	viewportCmd.Flags().IntVar(&bufferCols, "buffer-cols", 3, "Extra columns rendered around the viewport")
	viewportCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")

	exportCmd := &cobra.Command{
		Use:   "export [workbook.json]",
		Short: "Convert a workbook JSON document to xlsx",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output xlsx path")
	_ = exportCmd.MarkFlagRequired("output")

	importCmd := &cobra.Command{
		Use:   "import [input.xlsx]",
		Short: "Convert an xlsx file to a workbook JSON document",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	importCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	importCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")

	rootCmd.AddCommand(evalCmd, streamCmd, viewportCmd, exportCmd, importCmd)
	return rootCmd
}

func setup(cmd *cobra.Command, args []string) error {
	opts, err := gridcore.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		opts.Log.Level = logLevel
	}
	level, err := gridcore.ParseLevel(opts.Log.Level)
	if err != nil {
		return err
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	opts.Logger = logger
	cfg = opts
	return nil
}

func runEval(cmd *cobra.Command, args []string) error {
	wb, err := loadWorkbook(args[0])
	if err != nil {
		return err
	}
	session, _, err := openSheet(wb, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), session.Evaluator().Evaluate(args[1]))
	return nil
}

func runStream(cmd *cobra.Command, args []string) error {
	wb, err := loadWorkbook(args[0])
	if err != nil {
		return err
	}

	in, err := openInput(args[1])
	if err != nil {
		return err
	}
	defer in.Close()

	opts := cfg
	opts.Observer = func(e stream.Event) {
		switch e.Kind {
		case stream.EventCommit:
			logger.Debug("cell committed", slog.String("cell", e.Ref.String()), slog.String("value", e.Text))
		case stream.EventStatus:
			logger.Info("stream status", slog.String("status", string(e.Status)))
		}
	}
	session, sheet, err := openSheet(wb, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if err := session.RunStream(ctx, stream.NewJSONLSource(in, cfg.Stream.DefaultDelay)); err != nil {
		return fmt.Errorf("stream failed: %w", err)
	}

	*sheet = session.SheetData()
	jsonData, err := workbook.ToJSON(wb, pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	return writeOutput(cmd.OutOrStdout(), jsonData)
}

// viewportReport is printed by the viewport command.
type viewportReport struct {
	Sheet       string         `json:"sheet"`
	Window      layout.Window  `json:"window"`
	TotalWidth  float64        `json:"totalWidth"`
	TotalHeight float64        `json:"totalHeight"`
	Stats       gridcore.Stats `json:"stats"`
}

func runViewport(cmd *cobra.Command, args []string) error {
	wb, err := loadWorkbook(args[0])
	if err != nil {
		return err
	}
	session, sheet, err := openSheet(wb, cfg)
	if err != nil {
		return err
	}

	ix := session.Index()
	report := viewportReport{
		Sheet:       sheet.Name,
		Window:      session.VisibleWindow(scrollTop, scrollLeft, width, height, bufferRows, bufferCols),
		TotalWidth:  ix.TotalWidth(),
		TotalHeight: ix.TotalHeight(),
		Stats:       session.Stats(),
	}
	var jsonData []byte
	if pretty {
		jsonData, err = json.MarshalIndent(report, "", "  ")
	} else {
		jsonData, err = json.Marshal(report)
	}
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	return writeOutput(cmd.OutOrStdout(), jsonData)
}

func runExport(cmd *cobra.Command, args []string) error {
	wb, err := loadWorkbook(args[0])
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	opts := workbook.XLSXOptions{Layout: layoutDefaults(cfg), Logger: logger}
	if err := workbook.ExportXLSX(wb, f, opts); err != nil {
		f.Close()
		return fmt.Errorf("export failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	logger.Info("workbook exported", slog.String("path", outputPath), slog.Int("sheets", len(wb.Sheets)))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	// Validate input file exists
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", inputPath)
	}
	f, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	opts := workbook.XLSXOptions{Layout: layoutDefaults(cfg), Logger: logger}
	wb, err := workbook.ImportXLSX(f, opts)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	jsonData, err := workbook.ToJSON(wb, pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	return writeOutput(cmd.OutOrStdout(), jsonData)
}

// openSheet loads the selected sheet of wb into a new session.
func openSheet(wb *models.Workbook, opts gridcore.Options) (*gridcore.Session, *models.Sheet, error) {
	sheet, err := selectSheet(wb)
	if err != nil {
		return nil, nil, err
	}
	session, err := gridcore.NewSession(opts)
	if err != nil {
		return nil, nil, err
	}
	if err := session.LoadSheet(*sheet); err != nil {
		return nil, nil, err
	}
	return session, sheet, nil
}

func selectSheet(wb *models.Workbook) (*models.Sheet, error) {
	if sheetKey != "" {
		return workbook.FindSheet(wb, sheetKey)
	}
	sheet, ok := wb.Active()
	if !ok {
		return nil, fmt.Errorf("%w: no sheets", workbook.ErrInvalidFormat)
	}
	return sheet, nil
}

func loadWorkbook(path string) (*models.Workbook, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	wb, err := workbook.Load(in)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return wb, nil
}

// openInput opens path for reading; - means stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return f, err
}

func writeOutput(stdout io.Writer, data []byte) error {
	if outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	_, err := fmt.Fprintln(stdout, string(data))
	return err
}

func layoutDefaults(opts gridcore.Options) layout.Options {
	return layout.Options{RowHeight: opts.Layout.RowHeight, ColWidth: opts.Layout.ColWidth}
}

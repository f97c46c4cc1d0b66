package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jmorganca/ollama-export/envconfig"
	"github.com/jmorganca/ollama-export/format"
	"github.com/jmorganca/ollama-export/logutil"
	"github.com/jmorganca/ollama-export/progress"
	"github.com/jmorganca/ollama-export/store"
	"github.com/jmorganca/ollama-export/version"
)

func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:     "ollama-export [MODEL...]",
		Short:   "Copy installed Ollama models into a portable tree",
		Long:    long(),
		Version: version.Version,
		Args:    cobra.ArbitraryArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true

			level := slog.LevelInfo
			if envconfig.Debug() {
				level = slog.LevelDebug
			}
			slog.SetDefault(logutil.NewLogger(os.Stderr, level))
		},
		RunE: ExportHandler,
	}

	rootCmd.PersistentFlags().String("models", "", "Model store directory (default autodetected)")
	rootCmd.Flags().StringP("output", "o", "", "Output directory or archive path (default \"./ollama\")")
	rootCmd.Flags().Bool("all", false, "Export every installed model")
	rootCmd.Flags().String("format", "", "Output format: dir, tar or tar.gz (default inferred from --output)")

	listCmd := &cobra.Command{
		Use:     "list [PREFIX]",
		Aliases: []string{"ls"},
		Short:   "List models in the local store",
		Args:    cobra.MaximumNArgs(1),
		RunE:    ListHandler,
	}

	rootCmd.AddCommand(listCmd)

	return rootCmd
}

func long() string {
	var sb strings.Builder
	sb.WriteString("Copy the manifests and blobs of installed Ollama models into a\n")
	sb.WriteString("directory tree (or tar archive) with the store's exact relative\n")
	sb.WriteString("layout, ready to drop into the models directory on another machine.\n")
	sb.WriteString("\nEnvironment Variables:\n")

	envs := envconfig.AsMap()
	names := make([]string, 0, len(envs))
	for name := range envs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(&sb, "  %-18s %s\n", name, envs[name].Description)
	}

	return sb.String()
}

func resolveBaseDir(cmd *cobra.Command) (string, error) {
	override, _ := cmd.Flags().GetString("models")

	baseDir, err := store.ResolveBaseDir(cmpOr(override, envconfig.Models()), store.DetectPlatform())
	if errors.Is(err, store.ErrNoBaseDir) {
		return "", errors.New("could not find the ollama models directory; set OLLAMA_MODELS or pass --models")
	}

	return baseDir, err
}

// detectFormat infers the output format from the destination path when
// no explicit format was given.
func detectFormat(flag, output string) string {
	if flag != "" {
		return flag
	}

	switch {
	case strings.HasSuffix(output, ".tar.gz"), strings.HasSuffix(output, ".tgz"):
		return "tar.gz"
	case strings.HasSuffix(output, ".tar"):
		return "tar"
	default:
		return "dir"
	}
}

func ExportHandler(cmd *cobra.Command, args []string) error {
	baseDir, err := resolveBaseDir(cmd)
	if err != nil {
		return err
	}

	models, err := store.ListModels(baseDir)
	if err != nil {
		return err
	}

	if len(models) == 0 {
		fmt.Printf("no models found in %s\n", baseDir)
		return nil
	}

	all, _ := cmd.Flags().GetBool("all")
	selected, err := selectModels(baseDir, args, models, all)
	if err != nil {
		return err
	}

	if len(selected) == 0 {
		fmt.Println("no models selected")
		return nil
	}

	var sets []*store.TransferSet
	for _, mp := range selected {
		ts, err := store.BuildTransferSet(baseDir, mp)
		if err != nil {
			if errors.Is(err, store.ErrManifestNotFound) || errors.Is(err, store.ErrManifestInvalid) {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", mp.ShortName(), err)
				continue
			}
			return err
		}

		sets = append(sets, ts)
	}

	if len(sets) == 0 {
		return errors.New("no exportable models")
	}

	output, _ := cmd.Flags().GetString("output")
	output = cmpOr(output, envconfig.ExportDir(), "ollama")

	formatFlag, _ := cmd.Flags().GetString("format")

	var report *store.CopyReport
	switch outFormat := detectFormat(formatFlag, output); outFormat {
	case "dir":
		report, err = exportToDir(baseDir, sets, output)
	case "tar", "tar.gz":
		report, err = exportToArchive(baseDir, sets, output, outFormat == "tar.gz")
	default:
		return fmt.Errorf("unsupported format %q (expected dir, tar or tar.gz)", outFormat)
	}

	if report != nil {
		printReport(report, output)
	}

	return err
}

func exportToDir(baseDir string, sets []*store.TransferSet, output string) (*store.CopyReport, error) {
	p := progress.NewProgress(os.Stderr)
	defer p.Stop()

	combined := &store.CopyReport{}
	for _, ts := range sets {
		bar := progress.NewBar(fmt.Sprintf("copying %s", ts.Model.ShortName()), ts.Size, 0)
		p.Add(bar)

		report, err := store.CopyTransferSet(baseDir, ts, output, func(u store.ProgressUpdate) {
			bar.Set(u.Completed)
		})

		combined.Copied = append(combined.Copied, report.Copied...)
		combined.Missing = append(combined.Missing, report.Missing...)
		if err != nil {
			return combined, err
		}
	}

	return combined, nil
}

func exportToArchive(baseDir string, sets []*store.TransferSet, output string, compress bool) (*store.CopyReport, error) {
	f, err := os.Create(output)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, ts := range sets {
		total += ts.Size
	}

	p := progress.NewProgress(os.Stderr)
	defer p.Stop()

	bar := progress.NewBar(fmt.Sprintf("archiving %d model(s)", len(sets)), total, 0)
	p.Add(bar)

	report, err := store.ArchiveTransferSets(baseDir, sets, f, compress, func(u store.ProgressUpdate) {
		bar.Set(u.Completed)
	})
	if err != nil {
		f.Close()
		return report, err
	}

	return report, f.Close()
}

func printReport(report *store.CopyReport, output string) {
	for _, missing := range report.Missing {
		fmt.Fprintf(os.Stderr, "missing %s: %v\n", missing.Path, missing.Err)
	}

	fmt.Printf("exported %d file(s) to %s", len(report.Copied), output)
	if len(report.Missing) > 0 {
		fmt.Printf(" (%d missing)", len(report.Missing))
	}
	fmt.Println()
}

// selectModelsFn is swapped out in tests to avoid the interactive
// picker.
var selectModelsFn = func(items []SelectItem) ([]string, error) {
	return MultiSelect("Select models to export:", items)
}

func selectModels(baseDir string, args []string, models []store.ModelPath, all bool) ([]store.ModelPath, error) {
	if all {
		return models, nil
	}

	if len(args) > 0 {
		var selected []store.ModelPath
		for _, arg := range args {
			want := store.ParseModelPath(arg)

			found := false
			for _, mp := range models {
				if mp == want {
					selected = append(selected, mp)
					found = true
					break
				}
			}

			if !found {
				fmt.Fprintf(os.Stderr, "skipping %s: not in local store\n", want.ShortName())
			}
		}

		return selected, nil
	}

	items := make([]SelectItem, len(models))
	for i, mp := range models {
		items[i] = SelectItem{Name: mp.ShortName()}
		if m, err := store.ReadManifest(baseDir, mp); err == nil {
			items[i].Description = format.HumanBytes(m.Size())
		}
	}

	names, err := selectModelsFn(items)
	if errors.Is(err, ErrCancelled) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	chosen := make(map[string]bool, len(names))
	for _, name := range names {
		chosen[name] = true
	}

	var selected []store.ModelPath
	for _, mp := range models {
		if chosen[mp.ShortName()] {
			selected = append(selected, mp)
		}
	}

	return selected, nil
}

func ListHandler(cmd *cobra.Command, args []string) error {
	baseDir, err := resolveBaseDir(cmd)
	if err != nil {
		return err
	}

	models, err := store.ListModels(baseDir)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"NAME", "ID", "SIZE", "MODIFIED"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(listRows(baseDir, models, args))
	table.Render()

	return nil
}

func listRows(baseDir string, models []store.ModelPath, args []string) [][]string {
	var rows [][]string
	for _, mp := range models {
		name := mp.ShortName()
		if len(args) > 0 && !strings.HasPrefix(strings.ToLower(name), strings.ToLower(args[0])) {
			continue
		}

		m, err := store.ReadManifest(baseDir, mp)
		if err != nil {
			slog.Warn("bad manifest", "model", name, "error", err)
			continue
		}

		rows = append(rows, []string{name, m.Digest()[:12], format.HumanBytes(m.Size()), format.HumanTime(m.Modified(), "Never")})
	}

	return rows
}

// cmpOr mirrors cmp.Or from the Go 1.22 standard library for use with
// the Go 1.21 toolchain: it returns the first non-zero argument.
func cmpOr[T comparable](vals ...T) T {
	var zero T
	for _, val := range vals {
		if val != zero {
			return val
		}
	}
	return zero
}

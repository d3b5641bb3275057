package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mdepub/internal/converter"
)

var rootCmd = &cobra.Command{
	Use:   "mdepub <markdown-dir> [markdown-dir...]",
	Short: "Package directories of Markdown files as EPUB books",
	Long: `mdepub converts a directory of Markdown documents (with an images/
subdirectory) into a single valid EPUB package: chapters split at
heading boundaries, images optimized and relocated, navigation and
manifest generated.

Each input directory becomes one EPUB. Multiple directories are
converted in parallel.`,
	Args: cobra.MinimumNArgs(1),
	RunE: run,
}

func init() {
	rootCmd.Flags().StringP("output", "o", "", "Output file path (single input only; default: input directory with .epub extension)")
	rootCmd.Flags().Int("split-level", 0, "Heading level that starts a new chapter (0: per-document minimum)")
	rootCmd.Flags().Int("max-image-dim", 0, "Maximum image dimension in pixels (0: default)")
	rootCmd.Flags().Int("jpeg-quality", 0, "JPEG re-encode quality (0: default)")
	rootCmd.Flags().String("metadata", "", "Metadata sidecar path (default: <dir>/metadata.json)")
	rootCmd.Flags().Int("workers", 4, "Parallel conversions when multiple directories are given")
	rootCmd.Flags().Bool("no-prompt", false, "Never prompt for missing metadata; use defaults")
}

func run(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	splitLevel, _ := cmd.Flags().GetInt("split-level")
	maxImageDim, _ := cmd.Flags().GetInt("max-image-dim")
	jpegQuality, _ := cmd.Flags().GetInt("jpeg-quality")
	metadataPath, _ := cmd.Flags().GetString("metadata")
	workers, _ := cmd.Flags().GetInt("workers")
	noPrompt, _ := cmd.Flags().GetBool("no-prompt")

	if output != "" && len(args) > 1 {
		return fmt.Errorf("--output is only valid with a single input directory")
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	// Prompting from parallel workers would interleave on one terminal,
	// so it is only offered for a single input.
	var prompter converter.Prompter
	if !noPrompt && len(args) == 1 {
		prompter = &stdinPrompter{r: bufio.NewReader(os.Stdin)}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if workers <= 0 {
		workers = 1
	}
	if workers > len(args) {
		workers = len(args)
	}

	jobs := make(chan string)
	errs := make([]error, 0, len(args))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for dir := range jobs {
				p := converter.NewPipeline(converter.ConvertOptions{
					InputDir:     dir,
					OutputPath:   output,
					SplitLevel:   splitLevel,
					MaxImageDim:  maxImageDim,
					JPEGQuality:  jpegQuality,
					MetadataPath: metadataPath,
					Prompter:     prompter,
					Logger:       log.With("input", dir),
				})
				if err := p.Convert(ctx); err != nil {
					log.Error("conversion failed", "input", dir, "error", err)
					mu.Lock()
					errs = append(errs, fmt.Errorf("%s: %w", dir, err))
					mu.Unlock()
				}
			}
		}()
	}

	for _, dir := range args {
		jobs <- strings.TrimSuffix(dir, string(os.PathSeparator))
	}
	close(jobs)
	wg.Wait()

	return errors.Join(errs...)
}

// stdinPrompter asks the operator for missing metadata fields on the
// controlling terminal.
type stdinPrompter struct {
	r *bufio.Reader
}

func (p *stdinPrompter) Prompt(field, label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s (leave blank for default): ", label)
	line, err := p.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package driver runs the unrolling pass over design files: single files,
// directory trees processed concurrently, and watched paths.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnoswap-labs/unroll/internal/loader"
	tt "github.com/gnoswap-labs/unroll/internal/types"
)

// Options control how paths are processed.
type Options struct {
	// Concurrency bounds the files processed at once. Zero means one per CPU.
	Concurrency int
	// Progress receives a progress bar for directory runs. Nil disables it.
	Progress io.Writer
}

// ProcessFiles processes every path in order. Files that fail are logged
// and skipped; their errors are joined into the returned error, which
// accompanies the reports of the files that succeeded.
func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	runner Runner,
	paths []string,
	opts Options,
) ([]*tt.Report, error) {
	var (
		reports []*tt.Report
		errs    []error
	)
	for _, path := range paths {
		rs, err := ProcessPath(ctx, logger, runner, path, opts)
		reports = append(reports, rs...)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return reports, err
			}
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

// ProcessPath processes a design file, or every design file below a
// directory.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	runner Runner,
	path string,
	opts Options,
) ([]*tt.Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}
	if !info.IsDir() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report, err := runner.Run(path)
		if err != nil {
			logger.Error("Error processing file", zap.String("file", path), zap.Error(err))
			return nil, err
		}
		return []*tt.Report{report}, nil
	}

	files, err := collectDesigns(path)
	if err != nil {
		return nil, err
	}
	return processConcurrently(ctx, logger, runner, path, files, opts)
}

// collectDesigns lists the design files below dir in lexical order.
func collectDesigns(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && loader.HasDesignExtension(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func processConcurrently(
	ctx context.Context,
	logger *zap.Logger,
	runner Runner,
	dir string,
	files []string,
	opts Options,
) ([]*tt.Report, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription(dir),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	// slots keep the reports in file order
	reports := make([]*tt.Report, len(files))
	fileErrs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, fp := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := runner.Run(fp)
			if err != nil {
				logger.Error("Error processing file", zap.String("file", fp), zap.Error(err))
				fileErrs[i] = err
			} else {
				reports[i] = report
			}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return compact(reports), err
	}
	return compact(reports), errors.Join(fileErrs...)
}

func compact(reports []*tt.Report) []*tt.Report {
	out := reports[:0]
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

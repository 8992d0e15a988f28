package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fontintel/fontintel/internal/ingest"
)

var (
	processOwner  string
	processOutput string
)

var processCmd = &cobra.Command{
	Use:   "process FILE...",
	Short: "Run the pipeline on one or more font files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, live)
		if err != nil {
			return err
		}
		defer env.Close()

		reports, err := processFiles(ctx, env.Service, processOwner, args, live.Current().Batch.MaxConcurrentFiles)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), processOutput, reports)
	},
}

// processFiles submits every path with at most limit files in flight. A file
// that cannot be read or submitted is reported with its error and does not
// stop the batch. Reports keep the order of paths.
func processFiles(ctx context.Context, svc *ingest.Service, owner string, paths []string, limit int) ([]fileReport, error) {
	if owner == "" {
		return nil, eris.New("owner is required")
	}

	reports := make([]fileReport, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, path := range paths {
		g.Go(func() error {
			log := zap.L().With(zap.String("file", path))

			data, err := os.ReadFile(path)
			if err != nil {
				log.Error("process: read file failed", zap.Error(err))
				reports[i] = fileReport{File: path, Error: err.Error()}
				return nil
			}

			receipt, err := svc.Submit(gctx, ingest.Submission{
				Owner:    owner,
				Filename: filepath.Base(path),
				Data:     data,
			})
			if err != nil {
				log.Error("process: submit failed", zap.Error(err))
				reports[i] = fileReport{File: path, Error: err.Error()}
				return nil
			}

			reports[i] = newFileReport(path, receipt.Record, receipt.Duplicate, receipt.Result)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "process files")
	}
	return reports, nil
}

func init() {
	processCmd.Flags().StringVar(&processOwner, "owner", "", "owner ID recorded on every upload")
	processCmd.Flags().StringVarP(&processOutput, "output", "o", "json", "output format (json or yaml)")
	_ = processCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(processCmd)
}

package main

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/store"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

var (
	statusOutput string
	listOwner    string
	listState    string
	listLimit    int
)

// ingestStatus is a stored record plus its result when one was saved.
type ingestStatus struct {
	Record        *model.IngestRecord   `json:"record" yaml:"record"`
	Authoritative bool                  `json:"authoritative" yaml:"authoritative"`
	Result        *model.PipelineResult `json:"result,omitempty" yaml:"result,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status PROCESSING_ID",
	Short: "Show the state and result of an upload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, err := loadStatus(ctx, st, args[0])
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), statusOutput, status)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent uploads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if listState != "" && !taxonomy.UploadState(listState).Valid() {
			return eris.Errorf("unknown upload state %q", listState)
		}
		recs, err := st.ListIngests(ctx, store.IngestFilter{
			OwnerID: listOwner,
			State:   taxonomy.UploadState(listState),
			Limit:   listLimit,
		})
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), statusOutput, recs)
	},
}

// loadStatus fetches the record and, when present, the stored result.
func loadStatus(ctx context.Context, st store.IngestStore, processingID string) (*ingestStatus, error) {
	rec, err := st.GetIngest(ctx, processingID)
	if err != nil {
		return nil, eris.Wrapf(err, "get ingest %s", processingID)
	}
	status := &ingestStatus{Record: rec}

	stored, err := st.GetResult(ctx, processingID)
	switch {
	case err == nil:
		status.Authoritative = stored.Authoritative
		status.Result = stored.Result
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, eris.Wrapf(err, "get result %s", processingID)
	}
	return status, nil
}

func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx, live.Current().Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func init() {
	for _, c := range []*cobra.Command{statusCmd, listCmd} {
		c.Flags().StringVarP(&statusOutput, "output", "o", "json", "output format (json or yaml)")
	}
	listCmd.Flags().StringVar(&listOwner, "owner", "", "only uploads from this owner")
	listCmd.Flags().StringVar(&listState, "state", "", "only uploads in this state")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "maximum records to list")
	rootCmd.AddCommand(statusCmd, listCmd)
}

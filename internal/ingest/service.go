package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fontintel/fontintel/internal/model"
	"github.com/fontintel/fontintel/internal/store"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

// quickHashWindow is the size of the head and tail sampled by QuickHash.
const quickHashWindow = 64 << 10

// DefaultMaxFileBytes bounds accepted uploads when no limit is configured.
const DefaultMaxFileBytes = 20 << 20

// Job is one accepted file handed to a Runner.
type Job struct {
	ProcessingID string
	OwnerID      string
	Filename     string
	Data         []byte
	Tracker      *Tracker
}

// Runner executes the pipeline for an accepted job. It never fails; every
// outcome is reported on the returned result.
type Runner interface {
	Run(ctx context.Context, job Job) *model.PipelineResult
}

// Submission is an uploaded file awaiting intake.
type Submission struct {
	Owner    string
	Filename string
	Data     []byte
}

// Receipt describes what intake did with a submission.
type Receipt struct {
	Record    *model.IngestRecord
	Duplicate bool
	Result    *model.PipelineResult

	job *Job
}

// Runnable reports whether the receipt still needs a pipeline run.
func (r *Receipt) Runnable() bool { return r.job != nil }

// Service accepts uploads, deduplicates them and creates ingest records.
type Service struct {
	store        store.IngestStore
	runner       Runner
	maxFileBytes func() int64
	now          func() time.Time
}

// NewService creates a Service. maxFileBytes is read per submission; a
// non-positive value falls back to DefaultMaxFileBytes.
func NewService(st store.IngestStore, runner Runner, maxFileBytes func() int64) *Service {
	return &Service{store: st, runner: runner, maxFileBytes: maxFileBytes, now: time.Now}
}

// Submit accepts sub and, when it is not a duplicate or quarantined, runs the
// pipeline to completion before returning.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	rec, err := s.Accept(ctx, sub)
	if err != nil {
		return nil, err
	}
	if rec.Runnable() {
		s.Run(ctx, rec)
	}
	return rec, nil
}

// Accept creates the ingest record for sub without running the pipeline.
func (s *Service) Accept(ctx context.Context, sub Submission) (*Receipt, error) {
	owner := strings.TrimSpace(sub.Owner)
	if owner == "" {
		return nil, eris.New("ingest: owner is required")
	}
	if strings.TrimSpace(sub.Filename) == "" {
		return nil, eris.New("ingest: filename is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest: accept")
	}

	log := zap.L().With(zap.String("owner_id", owner), zap.String("filename", sub.Filename))
	contentHash := ContentHash(sub.Data)

	if len(sub.Data) > 0 {
		prior, err := s.store.FindByHash(ctx, owner, contentHash)
		if err != nil {
			log.Warn("ingest: duplicate lookup failed", zap.Error(err))
		}
		if prior != nil && prior.UploadState == taxonomy.StateCompleted {
			log.Info("ingest: duplicate of completed upload", zap.String("processing_id", prior.ProcessingID))
			dup := *prior
			dup.JobOutcome = taxonomy.OutcomeSkippedDuplicate
			return &Receipt{Record: &dup, Duplicate: true}, nil
		}
	}

	now := s.now().UTC()
	rec := &model.IngestRecord{
		IngestID:     uuid.NewString(),
		OwnerID:      owner,
		ProcessingID: uuid.NewString(),
		OriginalName: sub.Filename,
		ContentHash:  contentHash,
		QuickHash:    QuickHash(sub.Data),
		UploadState:  taxonomy.StateQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if code, msg := s.quarantineReason(sub.Data); code != "" {
		rec.UploadState = taxonomy.StateQuarantined
		rec.JobOutcome = taxonomy.OutcomeFailed
		rec.Error = msg
		rec.ErrorCode = code
		if err := s.store.CreateIngest(ctx, rec); err != nil {
			log.Warn("ingest: failed to persist quarantined record", zap.Error(err))
		}
		log.Warn("ingest: quarantined", zap.String("error_code", code))
		return &Receipt{Record: rec}, nil
	}

	if err := s.store.CreateIngest(ctx, rec); err != nil {
		log.Warn("ingest: failed to persist record", zap.Error(err))
	}
	return &Receipt{
		Record: rec,
		job: &Job{
			ProcessingID: rec.ProcessingID,
			OwnerID:      owner,
			Filename:     sub.Filename,
			Data:         sub.Data,
			Tracker:      NewTracker(s.store, rec.ProcessingID, taxonomy.StateQueued),
		},
	}, nil
}

// Run executes the pipeline for an accepted receipt and records the result
// on it. It is a no-op for receipts that are not runnable.
func (s *Service) Run(ctx context.Context, rec *Receipt) {
	if !rec.Runnable() {
		return
	}
	job := *rec.job
	rec.job = nil

	res := s.runner.Run(ctx, job)
	rec.Result = res
	if res != nil {
		rec.Record.UploadState = res.UploadState
		rec.Record.JobOutcome = res.JobOutcome
		rec.Record.FamilyID = res.FamilyID
		rec.Record.UpdatedAt = s.now().UTC()
	}
}

func (s *Service) quarantineReason(data []byte) (code, msg string) {
	limit := int64(DefaultMaxFileBytes)
	if s.maxFileBytes != nil {
		if v := s.maxFileBytes(); v > 0 {
			limit = v
		}
	}
	switch {
	case len(data) == 0:
		return model.ErrorCodeEmptyFile, "file is empty"
	case int64(len(data)) > limit:
		return model.ErrorCodeTooLarge, "file exceeds " + strconv.FormatInt(limit, 10) + " bytes"
	}
	return "", ""
}

// ContentHash is the hex sha256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// QuickHash hashes the size and the first and last 64 KiB of data. Files
// smaller than two windows are hashed whole.
func QuickHash(data []byte) string {
	h := sha256.New()
	_, _ = h.Write([]byte(strconv.Itoa(len(data))))
	_, _ = h.Write([]byte{0})
	if len(data) <= 2*quickHashWindow {
		_, _ = h.Write(data)
	} else {
		_, _ = h.Write(data[:quickHashWindow])
		_, _ = h.Write(data[len(data)-quickHashWindow:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

package bulkimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"internhub/certificate-portal/certificate-backend/internal/certificates"
)

// DuplicatePolicy controls how the coordinator treats rows whose certificate
// ID already exists in the record store. The policy is an explicit parameter
// of every batch; records are never silently overwritten.
type DuplicatePolicy string

const (
	// DuplicateReject reports the duplicate as a skipped row.
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateSkip also skips the row but words the reason as an expected
	// re-import rather than a conflict.
	DuplicateSkip DuplicatePolicy = "skip"
	// DuplicateOverwrite deletes the existing record and recreates it from
	// the row.
	DuplicateOverwrite DuplicatePolicy = "overwrite"
)

// Options configure one batch import.
type Options struct {
	OnDuplicate DuplicatePolicy // defaults to DuplicateReject
	Workers     int             // <=1 processes rows sequentially
}

// SkippedRow names one row that produced no certificate and why. Row numbers
// are 1-based over the sheet's data rows, in input order; dropped blank rows
// keep their place in the numbering so the report matches the spreadsheet.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Summary is the aggregated outcome of a batch import. Partial success is
// the expected shape of a batch, not a failure mode.
type Summary struct {
	BatchID     uuid.UUID    `json:"batch_id"`
	Successful  int          `json:"successful"`
	Failed      int          `json:"failed"`
	Total       int          `json:"total"`
	SkippedRows []SkippedRow `json:"skipped_rows,omitempty"`
}

// Generator is the subset of the certificate service the coordinator drives.
type Generator interface {
	Generate(ctx context.Context, req certificates.GenerateRequest) (*certificates.CertificateRecord, error)
	Delete(ctx context.Context, certificateID string) error
}

// Coordinator drives validation and generation over a batch of rows.
type Coordinator struct {
	generator Generator
	logger    *zap.Logger
}

func NewCoordinator(generator Generator, logger *zap.Logger) *Coordinator {
	return &Coordinator{generator: generator, logger: logger}
}

const (
	outcomePending = iota
	outcomeSuccess
	outcomeSkipped
)

type rowOutcome struct {
	state  int
	reason string
}

func skipped(reason string) rowOutcome {
	return rowOutcome{state: outcomeSkipped, reason: reason}
}

// ImportWorkbook parses an xlsx workbook and imports its rows.
func (c *Coordinator) ImportWorkbook(ctx context.Context, r io.Reader, opts Options) (*Summary, error) {
	rows, err := ParseWorkbook(r)
	if err != nil {
		return nil, err
	}
	return c.ImportBatch(ctx, rows, opts)
}

// ImportBatch processes rows independently, in input order for the report.
// Row-level problems (validation failures, duplicates, artifact errors)
// become skip reasons and never abort the batch; only infrastructure
// failures, including a missing certificate template, propagate as errors.
// Cancellation is cooperative and takes effect between rows: in-flight rows
// finish, no new rows start, and unprocessed rows are reported as skipped.
func (c *Coordinator) ImportBatch(ctx context.Context, rows []Row, opts Options) (*Summary, error) {
	if opts.OnDuplicate == "" {
		opts.OnDuplicate = DuplicateReject
	}

	outcomes := make([]rowOutcome, len(rows))
	var err error
	if opts.Workers > 1 {
		err = c.runParallel(ctx, rows, opts, outcomes)
	} else {
		err = c.runSequential(ctx, rows, opts, outcomes)
	}
	if err != nil {
		return nil, err
	}

	summary := &Summary{BatchID: uuid.New(), Total: len(rows)}
	for i, o := range outcomes {
		line := rows[i].Line
		if line == 0 {
			line = i + 1
		}
		switch o.state {
		case outcomeSuccess:
			summary.Successful++
		case outcomeSkipped:
			summary.Failed++
			summary.SkippedRows = append(summary.SkippedRows, SkippedRow{Row: line, Reason: o.reason})
		case outcomePending:
			summary.Failed++
			summary.SkippedRows = append(summary.SkippedRows, SkippedRow{Row: line, Reason: "not processed: import cancelled"})
		}
	}

	c.logger.Info("bulk import finished",
		zap.String("batch_id", summary.BatchID.String()),
		zap.Int("total", summary.Total),
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed))
	return summary, ctx.Err()
}

func (c *Coordinator) runSequential(ctx context.Context, rows []Row, opts Options, outcomes []rowOutcome) error {
	for i := range rows {
		if ctx.Err() != nil {
			return nil
		}
		outcome, err := c.processRow(ctx, rows[i], opts)
		if err != nil {
			return err
		}
		outcomes[i] = outcome
	}
	return nil
}

func (c *Coordinator) runParallel(ctx context.Context, rows []Row, opts Options, outcomes []rowOutcome) error {
	gctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, opts.Workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var fatal error

	for i := range rows {
		if gctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			outcome, err := c.processRow(gctx, rows[i], opts)
			if err != nil {
				mu.Lock()
				if fatal == nil {
					fatal = err
				}
				mu.Unlock()
				cancel()
				return
			}
			mu.Lock()
			outcomes[i] = outcome
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	return fatal
}

// processRow validates and imports one row. The returned error is reserved
// for infrastructure failures that must abort the batch; every expected
// outcome, good or bad, is expressed in the rowOutcome.
func (c *Coordinator) processRow(ctx context.Context, row Row, opts Options) (rowOutcome, error) {
	res := Validate(row)
	if !res.Accepted {
		return skipped(res.Reason), nil
	}

	_, err := c.generator.Generate(ctx, res.Record)
	if err != nil && errors.Is(err, certificates.ErrDuplicateCertificate) && opts.OnDuplicate == DuplicateOverwrite {
		if delErr := c.generator.Delete(ctx, res.Record.CertificateID); delErr != nil {
			return skipped(fmt.Sprintf("could not replace existing certificate %s: %v", res.Record.CertificateID, delErr)), nil
		}
		c.logger.Info("overwriting existing certificate",
			zap.String("certificate_id", res.Record.CertificateID))
		_, err = c.generator.Generate(ctx, res.Record)
	}

	switch {
	case err == nil:
		return rowOutcome{state: outcomeSuccess}, nil

	case errors.Is(err, certificates.ErrDuplicateCertificate):
		if opts.OnDuplicate == DuplicateSkip {
			return skipped(fmt.Sprintf("certificate %s already exists, skipped", res.Record.CertificateID)), nil
		}
		return skipped(fmt.Sprintf("certificate %s already exists", res.Record.CertificateID)), nil

	case errors.Is(err, certificates.ErrTemplateUnavailable):
		// Misconfiguration, not a row problem: every subsequent row would
		// fail identically.
		return rowOutcome{}, err

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return rowOutcome{}, nil

	default:
		var artifactErr *certificates.ArtifactError
		if errors.As(err, &artifactErr) {
			return skipped(fmt.Sprintf("certificate %s created but %s artifact generation failed (repairable): %v",
				res.Record.CertificateID, artifactErr.Stage, artifactErr.Err)), nil
		}
		return rowOutcome{}, fmt.Errorf("import certificate %s: %w", res.Record.CertificateID, err)
	}
}

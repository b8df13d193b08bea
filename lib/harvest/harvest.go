// Package harvest fetches and parses a batch of licences with a pool of
// workers.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"erulicence/lib/licence"
	"erulicence/lib/scrapers/eru"
	"erulicence/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

var (
	tracer = telemetry.Tracer("erulicence.lib.harvest")
	meter  = telemetry.Meter("erulicence.lib.harvest")
)

const progressInterval = 500

// Policy decides what happens to a batch when one licence fails.
type Policy string

const (
	// PolicyAbort stops the batch at the first failure.
	PolicyAbort Policy = "abort"
	// PolicySkip records the failure and carries on.
	PolicySkip Policy = "skip"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAbort, PolicySkip:
		return Policy(s), nil
	case "":
		return PolicyAbort, nil
	}
	return "", fmt.Errorf("unknown failure policy %q", s)
}

type Options struct {
	// IDs is the roster, Start and End select the slice [Start:End] of it.
	// End == 0 means the end of the roster, both are clamped to its bounds.
	IDs   []string
	Start int
	End   int

	// Business is the czech label stored on each licence.
	Business string
	Fetcher  eru.Fetcher
	// Workers <= 0 means a single worker.
	Workers int
	Policy  Policy
}

type Failure struct {
	// Index is the position of the licence in the roster.
	Index     int
	LicenceID string
	Err       error
}

type Result struct {
	// Licences is in roster order. When Run fails it holds the unbroken run
	// of licences parsed from the start of the window, so a rerun can pick up
	// at Start + len(Licences).
	Licences []licence.Licence
	Failures []Failure
}

type instruments struct {
	parsed   metric.Int64Counter
	failed   metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments() (instruments, error) {
	parsed, err := meter.Int64Counter(
		"licences_parsed",
		metric.WithDescription("licences fetched and parsed successfully"),
	)
	if err != nil {
		return instruments{}, err
	}
	failed, err := meter.Int64Counter(
		"licences_failed",
		metric.WithDescription("licences that could not be fetched or parsed"),
	)
	if err != nil {
		return instruments{}, err
	}
	duration, err := meter.Float64Histogram(
		"licence_parse_duration",
		metric.WithUnit("s"),
		metric.WithDescription("time to fetch and parse one licence"),
	)
	if err != nil {
		return instruments{}, err
	}
	return instruments{parsed: parsed, failed: failed, duration: duration}, nil
}

// Window returns the part of `ids` selected by start and end, following the
// rules of Options.
func Window(ids []string, start, end int) ([]string, int) {
	if end <= 0 || end > len(ids) {
		end = len(ids)
	}
	if start < 0 {
		start = 0
	}
	if start > end {
		start = end
	}
	return ids[start:end], start
}

type outcome struct {
	licence licence.Licence
	done    bool
}

// parsedPrefix returns the licences parsed before the first gap in outcomes.
func parsedPrefix(outcomes []outcome) []licence.Licence {
	var out []licence.Licence
	for _, o := range outcomes {
		if !o.done {
			break
		}
		out = append(out, o.licence)
	}
	return out
}

func Run(ctx context.Context, opts Options) (Result, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	if opts.Fetcher == nil {
		return Result{}, errors.New("harvest: no fetcher")
	}
	policy, err := ParsePolicy(string(opts.Policy))
	if err != nil {
		return Result{}, err
	}
	inst, err := newInstruments()
	if err != nil {
		return Result{}, err
	}

	ids, offset := Window(opts.IDs, opts.Start, opts.End)
	span.SetAttributes(
		attribute.Int("licences", len(ids)),
		attribute.String("business", opts.Business),
	)

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	outcomes := make([]outcome, len(ids))
	var done atomic.Int64
	var failuresLock sync.Mutex
	var failures []Failure

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for i, id := range ids {
		if gctx.Err() != nil {
			break
		}

		group.Go(func() error {
			start := time.Now()
			lic, err := harvestOne(gctx, opts.Fetcher, opts.Business, id)
			inst.duration.Record(gctx, time.Since(start).Seconds())

			n := done.Add(1)
			if n%progressInterval == 0 {
				slog.InfoContext(gctx, "harvest progress", "done", n, "total", len(ids))
			}

			if err != nil {
				inst.failed.Add(gctx, 1)
				index := offset + i
				if policy == PolicyAbort {
					return fmt.Errorf("licence %s (#%d): %w", id, index, err)
				}
				slog.WarnContext(gctx, "skipping licence", "id", id, "index", index, "err", err)

				failuresLock.Lock()
				failures = append(failures, Failure{Index: index, LicenceID: id, Err: err})
				failuresLock.Unlock()
				return nil
			}

			inst.parsed.Add(gctx, 1)
			outcomes[i] = outcome{licence: lic, done: true}
			return nil
		})
	}

	err = group.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "harvest aborted")
		partial := parsedPrefix(outcomes)
		slog.WarnContext(ctx, "harvest aborted", "parsed", len(partial), "resume_at", offset+len(partial))
		return Result{Licences: partial}, err
	}

	result := Result{Failures: failures}
	for _, o := range outcomes {
		if o.done {
			result.Licences = append(result.Licences, o.licence)
		}
	}
	sortFailures(result.Failures)

	slog.InfoContext(ctx, "harvest done", "parsed", len(result.Licences), "failed", len(result.Failures))
	return result, nil
}

func harvestOne(ctx context.Context, fetcher eru.Fetcher, business, id string) (licence.Licence, error) {
	doc, err := fetcher.FetchLicence(ctx, id)
	if err != nil {
		return licence.Licence{}, err
	}
	return licence.ParsePage(doc.Selection, business, id)
}

func sortFailures(failures []Failure) {
	slices.SortFunc(failures, func(a, b Failure) int {
		return a.Index - b.Index
	})
}

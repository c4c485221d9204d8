// Package rollback sequences a PROD rollback: validate the target
// against the eligible set, invoke the registry rollback, quarantine
// the target, and reassign the "latest" tag to a successor when the
// target held it. Tag overwrites always back up the prior value first.
package rollback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/bookverse/apptrust-rollback/internal/apptrust"
	"github.com/bookverse/apptrust-rollback/internal/release"
)

// ErrTargetNotFound means the target version is absent from the
// eligible PROD set. It is raised before any mutating call.
var ErrTargetNotFound = errors.New("rollback: target version not found in eligible PROD set")

// FromStage is the release stage this orchestrator always operates
// from.
const FromStage = "PROD"

// stageLifecycle is the ordered stage progression used to guess the
// post-rollback stage when the registry cannot be queried.
var stageLifecycle = []string{"UNASSIGNED", "DEV", "QA", "STAGING", "PROD"}

// RegistryClient is the registry capability the orchestrator consumes.
// *apptrust.Client satisfies it; tests substitute a fake.
type RegistryClient interface {
	ListVersions(ctx context.Context, appKey string) ([]release.Record, error)
	GetVersion(ctx context.Context, appKey, version string) (apptrust.VersionDetail, error)
	PatchVersion(ctx context.Context, appKey, version string, patch apptrust.PatchRequest) error
	InvokeRollback(ctx context.Context, appKey, version, fromStage string) error
}

// Options selects the rollback target for one invocation.
type Options struct {
	AppKey        string
	TargetVersion string
	DryRun        bool
}

// Outcome is the terminal state of the latest-tag handling.
type Outcome string

const (
	// OutcomeLatestReassigned: the target held "latest" and a
	// successor inherited it.
	OutcomeLatestReassigned Outcome = "LATEST_REASSIGNED"
	// OutcomeNoSuccessor: the target held "latest" but no eligible
	// successor exists; nothing holds "latest" until the next
	// promotion. A normal outcome, not an error.
	OutcomeNoSuccessor Outcome = "NO_SUCCESSOR"
	// OutcomeLatestUnchanged: the target did not hold "latest".
	OutcomeLatestUnchanged Outcome = "LATEST_UNCHANGED"
)

// Result summarizes a completed run.
type Result struct {
	RunID            string
	AppKey           string
	TargetVersion    string
	PriorTag         string
	StageBefore      string
	StageAfter       string
	HadLatest        bool
	SuccessorVersion string
	Outcome          Outcome
	DryRun           bool
	Elapsed          time.Duration
}

// stageQuery is the explicit result of a best-effort stage lookup: a
// failed lookup yields the supplied fallback rather than an error.
type stageQuery struct {
	stage        string
	fromFallback bool
}

// Orchestrator runs rollbacks against one registry. Progress lines,
// including the WORKFLOW_STAGE_* markers consumed by pipeline tooling,
// go to out.
type Orchestrator struct {
	client RegistryClient
	out    io.Writer
}

func New(client RegistryClient, out io.Writer) *Orchestrator {
	return &Orchestrator{client: client, out: out}
}

// Run performs one rollback. The eligible set is snapshotted once up
// front; successor selection uses that pre-rollback snapshot. Failures
// of the mandatory rollback call are fatal; stage lookups fall back
// instead of failing. A quarantine that succeeds is not reverted if a
// later step fails.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	result := &Result{
		RunID:         uuid.New().String(),
		AppKey:        opts.AppKey,
		TargetVersion: opts.TargetVersion,
		DryRun:        opts.DryRun,
	}

	records, err := o.client.ListVersions(ctx, opts.AppKey)
	if err != nil {
		return nil, fmt.Errorf("rollback: list versions: %w", err)
	}
	eligible := release.Eligible(records)

	var target release.Record
	found := false
	for _, r := range eligible {
		if r.Version == opts.TargetVersion {
			target = r
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, opts.TargetVersion)
	}
	result.PriorTag = target.Tag

	before := o.queryStage(ctx, opts, FromStage)
	result.StageBefore = before.stage
	if before.fromFallback {
		fmt.Fprintf(o.out, "could not read current stage; assuming %s\n", before.stage)
	}
	fmt.Fprintf(o.out, "WORKFLOW_STAGE_BEFORE=%s\n", before.stage)

	if opts.DryRun {
		fmt.Fprintf(o.out, "[dry-run] would call POST /applications/%s/versions/%s/rollback with from_stage=%s\n",
			opts.AppKey, opts.TargetVersion, FromStage)
	} else {
		fmt.Fprintf(o.out, "calling POST /applications/%s/versions/%s/rollback with from_stage=%s\n",
			opts.AppKey, opts.TargetVersion, FromStage)
		if err := o.client.InvokeRollback(ctx, opts.AppKey, opts.TargetVersion, FromStage); err != nil {
			return nil, fmt.Errorf("rollback: invoke: %w", err)
		}
		fmt.Fprintf(o.out, "invoked rollback for %s@%s from %s\n", opts.AppKey, opts.TargetVersion, FromStage)
	}

	after := o.queryStage(ctx, opts, stageBeforeProd())
	result.StageAfter = after.stage
	if after.fromFallback {
		fmt.Fprintf(o.out, "could not read post-rollback stage; assuming %s\n", after.stage)
	}
	fmt.Fprintf(o.out, "WORKFLOW_STAGE_AFTER=%s\n", after.stage)

	result.HadLatest = target.Tag == release.TagLatest

	if err := o.backupThenRetag(ctx, opts, opts.TargetVersion, release.PropBackupBeforeQuarantine, release.TagQuarantine, target.Tag); err != nil {
		return nil, err
	}

	switch {
	case !result.HadLatest:
		result.Outcome = OutcomeLatestUnchanged
		fmt.Fprintln(o.out, "rolled back non-latest version; 'latest' unchanged")
	default:
		successor, ok := release.PickSuccessor(eligible, opts.TargetVersion)
		if !ok {
			result.Outcome = OutcomeNoSuccessor
			fmt.Fprintln(o.out, "no successor for latest; no version holds 'latest' until the next promotion")
			break
		}
		if err := o.backupThenRetag(ctx, opts, successor.Version, release.PropBackupBeforeLatest, release.TagLatest, successor.Tag); err != nil {
			return nil, err
		}
		result.SuccessorVersion = successor.Version
		result.Outcome = OutcomeLatestReassigned
		fmt.Fprintf(o.out, "reassigned latest to %s\n", successor.Version)
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

// queryStage looks up the target's current stage. The lookup is best
// effort: on failure the supplied fallback is reported instead.
func (o *Orchestrator) queryStage(ctx context.Context, opts Options, fallback string) stageQuery {
	detail, err := o.client.GetVersion(ctx, opts.AppKey, opts.TargetVersion)
	if err != nil {
		return stageQuery{stage: fallback, fromFallback: true}
	}
	return stageQuery{stage: detail.CurrentStage}
}

// stageBeforeProd returns the lifecycle stage immediately preceding
// PROD, or UNASSIGNED when PROD has no predecessor.
func stageBeforeProd() string {
	for i, s := range stageLifecycle {
		if s == FromStage && i > 0 {
			return stageLifecycle[i-1]
		}
	}
	return stageLifecycle[0]
}

// backupThenRetag snapshots the current tag into backupProp, then sets
// the new tag, in a single PATCH. The backup property is overwritten
// on every run. Under dry-run the intended call is only logged.
func (o *Orchestrator) backupThenRetag(ctx context.Context, opts Options, version, backupProp, newTag, currentTag string) error {
	if opts.DryRun {
		fmt.Fprintf(o.out, "[dry-run] would patch %s@%s: %s=%q tag=%q\n",
			opts.AppKey, version, backupProp, currentTag, newTag)
		return nil
	}
	patch := apptrust.PatchRequest{
		Tag:        &newTag,
		Properties: map[string][]string{backupProp: {currentTag}},
	}
	if err := o.client.PatchVersion(ctx, opts.AppKey, version, patch); err != nil {
		return fmt.Errorf("rollback: patch %s tag to %q: %w", version, newTag, err)
	}
	return nil
}

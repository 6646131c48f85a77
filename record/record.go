// Package record holds the normalized delivery records every calculator
// consumes. The fetch layer produces them, the store caches them, and from
// that point on they are read-only: no calculator mutates a record.
package record

import (
	"fmt"
	"time"
)

// PRState is the lifecycle state of a pull request.
type PRState string

const (
	PROpen   PRState = "open"
	PRClosed PRState = "closed"
)

// Commit is one commit attached to a pull request.
type Commit struct {
	SHA         string    `json:"sha"`
	CommittedAt time.Time `json:"committed_at"`
}

// Review is one submitted review on a pull request. Pending reviews and
// self-reviews are filtered out upstream and never appear here.
type Review struct {
	Author      string    `json:"author"`
	State       string    `json:"state"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// PullRequest is an immutable snapshot of a GitHub pull request together
// with the detail needed by the per-PR calculators. MergedAt being non-nil
// is the single gate for "this change shipped"; everything else is detail.
type PullRequest struct {
	Number         int        `json:"number"`
	Title          string     `json:"title"`
	State          PRState    `json:"state"`
	Author         string     `json:"author"`
	BaseBranch     string     `json:"base_branch"`
	HeadBranch     string     `json:"head_branch"`
	MergeCommitSHA string     `json:"merge_commit_sha,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	MergedAt       *time.Time `json:"merged_at,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	Additions      int        `json:"additions"`
	Deletions      int        `json:"deletions"`
	ChangedFiles   int        `json:"changed_files"`
	ForcePushCount int        `json:"force_push_count"`
	FirstReviewAt  *time.Time `json:"first_review_at,omitempty"`
	Commits        []Commit   `json:"commits,omitempty"`
	Reviews        []Review   `json:"reviews,omitempty"`
	Repository     string     `json:"repository"`
}

// Merged reports whether the pull request was merged.
func (pr PullRequest) Merged() bool { return pr.MergedAt != nil }

// DeploymentStatus is the latest reported state of a deployment.
// StatusUnknown means the status was never fetched; filters must treat it
// as absent evidence, never as a success or a failure.
type DeploymentStatus string

const (
	StatusUnknown    DeploymentStatus = ""
	StatusSuccess    DeploymentStatus = "success"
	StatusFailure    DeploymentStatus = "failure"
	StatusError      DeploymentStatus = "error"
	StatusInactive   DeploymentStatus = "inactive"
	StatusInProgress DeploymentStatus = "in_progress"
	StatusQueued     DeploymentStatus = "queued"
	StatusPending    DeploymentStatus = "pending"
)

// Known reports whether a status was actually fetched.
func (s DeploymentStatus) Known() bool { return s != StatusUnknown }

// Failed reports whether the status counts as a failed deployment.
func (s DeploymentStatus) Failed() bool { return s == StatusFailure || s == StatusError }

// Deployment is one GitHub deployment event.
type Deployment struct {
	ID          int64            `json:"id"`
	SHA         string           `json:"sha"`
	Environment string           `json:"environment"`
	CreatedAt   time.Time        `json:"created_at"`
	Status      DeploymentStatus `json:"status,omitempty"`
	Repository  string           `json:"repository"`
}

// WorkflowRun is one CI workflow run. Runs are fallback evidence only,
// consulted when a repository has no deployment data.
type WorkflowRun struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Repository string    `json:"repository"`
}

// Succeeded reports whether the run finished with a success conclusion.
func (w WorkflowRun) Succeeded() bool { return w.Conclusion == "success" }

// Incident is a GitHub issue labeled as an operational incident. It is a
// proxy: the issue lifecycle stands in for detection and recovery times.
type Incident struct {
	ID         int64      `json:"id"`
	Number     int        `json:"number"`
	Title      string     `json:"title"`
	State      string     `json:"state"`
	CreatedAt  time.Time  `json:"created_at"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
	Labels     []string   `json:"labels,omitempty"`
	Repository string     `json:"repository"`
}

// Closed reports whether the incident has been resolved.
func (i Incident) Closed() bool { return i.State == "closed" && i.ClosedAt != nil }

// Issue is a planning issue with its first linked pull request, the anchor
// for cycle-time and coding-time measurement. FirstLinkedPR is nil when no
// pull request ever referenced the issue.
type Issue struct {
	Number        int        `json:"number"`
	Title         string     `json:"title"`
	CreatedAt     time.Time  `json:"created_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	FirstLinkedPR *int       `json:"first_linked_pr,omitempty"`
	Repository    string     `json:"repository"`
}

// Period is a reporting window, inclusive at both ends.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LastDays returns a period covering the given number of days ending at end.
func LastDays(end time.Time, days int) Period {
	return Period{Start: end.AddDate(0, 0, -days), End: end}
}

// Days returns the period length in days, never less than 1 so that
// per-day rates stay finite.
func (p Period) Days() float64 {
	d := p.End.Sub(p.Start).Hours() / 24
	if d < 1 {
		return 1
	}
	return d
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

func (p Period) String() string {
	return fmt.Sprintf("%s..%s", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

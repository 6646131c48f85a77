// Package store persists raw fetched records between collector runs so that
// reports can be computed without refetching. Computed metrics are never
// stored; every report recomputes from these snapshots.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ip-san/devsync/record"
	"github.com/ip-san/devsync/trace"
)

// ErrNotFound marks lookups whose subject does not exist in the snapshot.
var ErrNotFound = errors.New("not found")

// Store is the snapshot persistence surface used by the collector (saves)
// and the report builder (reads).
type Store interface {
	Close()

	SavePullRequests(ctx context.Context, prs []record.PullRequest) error
	SaveDeployments(ctx context.Context, deployments []record.Deployment) error
	SaveWorkflowRuns(ctx context.Context, runs []record.WorkflowRun) error
	SaveIncidents(ctx context.Context, incidents []record.Incident) error
	SaveIssues(ctx context.Context, issues []record.Issue) error

	// LastPullRequestUpdate returns the creation time of the newest stored
	// pull request, the watermark for incremental fetching. Repositories
	// never collected before get a two year lookback.
	LastPullRequestUpdate(ctx context.Context, repo string) time.Time

	PullRequests(ctx context.Context, repo string, period record.Period) ([]record.PullRequest, error)
	Deployments(ctx context.Context, repo string, period record.Period) ([]record.Deployment, error)
	WorkflowRuns(ctx context.Context, repo string, period record.Period) ([]record.WorkflowRun, error)
	Incidents(ctx context.Context, repo string, period record.Period) ([]record.Incident, error)
	Issues(ctx context.Context, repo string, period record.Period) ([]record.Issue, error)

	// Repositories lists every repository with stored pull requests.
	Repositories(ctx context.Context) ([]string, error)

	// TraceSource exposes the stored pull requests as a trace.Source so
	// chains resolve from snapshots instead of live API calls.
	TraceSource() trace.Source
}

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ Store = (*Postgres)(nil)

// New connects to the database and verifies the connection.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool, logger: logger}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

const upsertPullRequest = `
INSERT INTO pull_requests (
	repository, number, title, state, author, base_branch, head_branch,
	merge_commit_sha, created_at, merged_at, closed_at, additions, deletions,
	changed_files, force_push_count, first_review_at, commits, reviews
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
ON CONFLICT (repository, number) DO UPDATE SET
	title = EXCLUDED.title,
	state = EXCLUDED.state,
	author = EXCLUDED.author,
	base_branch = EXCLUDED.base_branch,
	head_branch = EXCLUDED.head_branch,
	merge_commit_sha = EXCLUDED.merge_commit_sha,
	created_at = EXCLUDED.created_at,
	merged_at = EXCLUDED.merged_at,
	closed_at = EXCLUDED.closed_at,
	additions = EXCLUDED.additions,
	deletions = EXCLUDED.deletions,
	changed_files = EXCLUDED.changed_files,
	force_push_count = EXCLUDED.force_push_count,
	first_review_at = EXCLUDED.first_review_at,
	commits = EXCLUDED.commits,
	reviews = EXCLUDED.reviews`

func (p *Postgres) SavePullRequests(ctx context.Context, prs []record.PullRequest) error {
	if len(prs) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, pr := range prs {
		commits := pr.Commits
		if commits == nil {
			commits = []record.Commit{}
		}
		reviews := pr.Reviews
		if reviews == nil {
			reviews = []record.Review{}
		}
		if _, err := tx.Exec(ctx, upsertPullRequest,
			pr.Repository, pr.Number, pr.Title, string(pr.State), pr.Author,
			pr.BaseBranch, pr.HeadBranch, pr.MergeCommitSHA,
			pr.CreatedAt, pr.MergedAt, pr.ClosedAt,
			pr.Additions, pr.Deletions, pr.ChangedFiles, pr.ForcePushCount,
			pr.FirstReviewAt, commits, reviews,
		); err != nil {
			return fmt.Errorf("upsert pull request %s#%d: %w", pr.Repository, pr.Number, err)
		}
	}

	p.logger.Debug("saved pull requests", "count", len(prs))
	return tx.Commit(ctx)
}

const upsertDeployment = `
INSERT INTO deployments (repository, id, sha, environment, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (repository, id) DO UPDATE SET
	sha = EXCLUDED.sha,
	environment = EXCLUDED.environment,
	status = EXCLUDED.status,
	created_at = EXCLUDED.created_at`

func (p *Postgres) SaveDeployments(ctx context.Context, deployments []record.Deployment) error {
	if len(deployments) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, d := range deployments {
		if _, err := tx.Exec(ctx, upsertDeployment,
			d.Repository, d.ID, d.SHA, d.Environment, string(d.Status), d.CreatedAt,
		); err != nil {
			return fmt.Errorf("upsert deployment %s/%d: %w", d.Repository, d.ID, err)
		}
	}

	p.logger.Debug("saved deployments", "count", len(deployments))
	return tx.Commit(ctx)
}

const upsertWorkflowRun = `
INSERT INTO workflow_runs (repository, id, name, status, conclusion, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (repository, id) DO UPDATE SET
	name = EXCLUDED.name,
	status = EXCLUDED.status,
	conclusion = EXCLUDED.conclusion,
	created_at = EXCLUDED.created_at`

func (p *Postgres) SaveWorkflowRuns(ctx context.Context, runs []record.WorkflowRun) error {
	if len(runs) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range runs {
		if _, err := tx.Exec(ctx, upsertWorkflowRun,
			r.Repository, r.ID, r.Name, r.Status, r.Conclusion, r.CreatedAt,
		); err != nil {
			return fmt.Errorf("upsert workflow run %s/%d: %w", r.Repository, r.ID, err)
		}
	}

	p.logger.Debug("saved workflow runs", "count", len(runs))
	return tx.Commit(ctx)
}

const upsertIncident = `
INSERT INTO incidents (repository, id, number, title, state, created_at, closed_at, labels)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (repository, id) DO UPDATE SET
	number = EXCLUDED.number,
	title = EXCLUDED.title,
	state = EXCLUDED.state,
	created_at = EXCLUDED.created_at,
	closed_at = EXCLUDED.closed_at,
	labels = EXCLUDED.labels`

func (p *Postgres) SaveIncidents(ctx context.Context, incidents []record.Incident) error {
	if len(incidents) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, inc := range incidents {
		labels := inc.Labels
		if labels == nil {
			labels = []string{}
		}
		if _, err := tx.Exec(ctx, upsertIncident,
			inc.Repository, inc.ID, inc.Number, inc.Title, inc.State,
			inc.CreatedAt, inc.ClosedAt, labels,
		); err != nil {
			return fmt.Errorf("upsert incident %s#%d: %w", inc.Repository, inc.Number, err)
		}
	}

	p.logger.Debug("saved incidents", "count", len(incidents))
	return tx.Commit(ctx)
}

const upsertIssue = `
INSERT INTO issues (repository, number, title, created_at, closed_at, first_linked_pr)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (repository, number) DO UPDATE SET
	title = EXCLUDED.title,
	created_at = EXCLUDED.created_at,
	closed_at = EXCLUDED.closed_at,
	first_linked_pr = EXCLUDED.first_linked_pr`

func (p *Postgres) SaveIssues(ctx context.Context, issues []record.Issue) error {
	if len(issues) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, issue := range issues {
		if _, err := tx.Exec(ctx, upsertIssue,
			issue.Repository, issue.Number, issue.Title,
			issue.CreatedAt, issue.ClosedAt, issue.FirstLinkedPR,
		); err != nil {
			return fmt.Errorf("upsert issue %s#%d: %w", issue.Repository, issue.Number, err)
		}
	}

	p.logger.Debug("saved issues", "count", len(issues))
	return tx.Commit(ctx)
}

func (p *Postgres) LastPullRequestUpdate(ctx context.Context, repo string) time.Time {
	defaultTime := time.Now().AddDate(-2, 0, 0)

	var last *time.Time
	err := p.pool.QueryRow(ctx,
		`SELECT MAX(created_at) FROM pull_requests WHERE repository = $1`, repo,
	).Scan(&last)
	if err != nil {
		p.logger.Error("cannot fetch pull request watermark", "repository", repo, "error", err)
		return defaultTime
	}
	if last == nil {
		p.logger.Debug("no stored pull requests, using default lookback", "repository", repo)
		return defaultTime
	}
	return *last
}

const selectPullRequests = `
SELECT repository, number, title, state, author, base_branch, head_branch,
       merge_commit_sha, created_at, merged_at, closed_at, additions, deletions,
       changed_files, force_push_count, first_review_at, commits, reviews
FROM pull_requests
WHERE repository = $1
  AND created_at <= $3
  AND COALESCE(closed_at, 'infinity'::timestamptz) >= $2
ORDER BY number`

// PullRequests returns pull requests whose lifetime overlaps the period:
// created before its end and not closed before its start.
func (p *Postgres) PullRequests(ctx context.Context, repo string, period record.Period) ([]record.PullRequest, error) {
	rows, err := p.pool.Query(ctx, selectPullRequests, repo, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("select pull requests for %s: %w", repo, err)
	}
	defer rows.Close()

	var prs []record.PullRequest
	for rows.Next() {
		var pr record.PullRequest
		var state string
		if err := rows.Scan(
			&pr.Repository, &pr.Number, &pr.Title, &state, &pr.Author,
			&pr.BaseBranch, &pr.HeadBranch, &pr.MergeCommitSHA,
			&pr.CreatedAt, &pr.MergedAt, &pr.ClosedAt,
			&pr.Additions, &pr.Deletions, &pr.ChangedFiles, &pr.ForcePushCount,
			&pr.FirstReviewAt, &pr.Commits, &pr.Reviews,
		); err != nil {
			return nil, fmt.Errorf("scan pull request: %w", err)
		}
		pr.State = record.PRState(state)
		prs = append(prs, pr)
	}
	return prs, rows.Err()
}

func (p *Postgres) Deployments(ctx context.Context, repo string, period record.Period) ([]record.Deployment, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT repository, id, sha, environment, status, created_at
		 FROM deployments
		 WHERE repository = $1 AND created_at BETWEEN $2 AND $3
		 ORDER BY created_at`, repo, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("select deployments for %s: %w", repo, err)
	}
	defer rows.Close()

	var deployments []record.Deployment
	for rows.Next() {
		var d record.Deployment
		var status string
		if err := rows.Scan(&d.Repository, &d.ID, &d.SHA, &d.Environment, &status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		d.Status = record.DeploymentStatus(status)
		deployments = append(deployments, d)
	}
	return deployments, rows.Err()
}

func (p *Postgres) WorkflowRuns(ctx context.Context, repo string, period record.Period) ([]record.WorkflowRun, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT repository, id, name, status, conclusion, created_at
		 FROM workflow_runs
		 WHERE repository = $1 AND created_at BETWEEN $2 AND $3
		 ORDER BY created_at`, repo, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("select workflow runs for %s: %w", repo, err)
	}
	defer rows.Close()

	var runs []record.WorkflowRun
	for rows.Next() {
		var r record.WorkflowRun
		if err := rows.Scan(&r.Repository, &r.ID, &r.Name, &r.Status, &r.Conclusion, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan workflow run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (p *Postgres) Incidents(ctx context.Context, repo string, period record.Period) ([]record.Incident, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT repository, id, number, title, state, created_at, closed_at, labels
		 FROM incidents
		 WHERE repository = $1 AND created_at BETWEEN $2 AND $3
		 ORDER BY number`, repo, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("select incidents for %s: %w", repo, err)
	}
	defer rows.Close()

	var incidents []record.Incident
	for rows.Next() {
		var inc record.Incident
		if err := rows.Scan(&inc.Repository, &inc.ID, &inc.Number, &inc.Title, &inc.State,
			&inc.CreatedAt, &inc.ClosedAt, &inc.Labels); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

func (p *Postgres) Issues(ctx context.Context, repo string, period record.Period) ([]record.Issue, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT repository, number, title, created_at, closed_at, first_linked_pr
		 FROM issues
		 WHERE repository = $1 AND created_at BETWEEN $2 AND $3
		 ORDER BY number`, repo, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("select issues for %s: %w", repo, err)
	}
	defer rows.Close()

	var issues []record.Issue
	for rows.Next() {
		var issue record.Issue
		if err := rows.Scan(&issue.Repository, &issue.Number, &issue.Title,
			&issue.CreatedAt, &issue.ClosedAt, &issue.FirstLinkedPR); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

func (p *Postgres) Repositories(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT DISTINCT repository FROM pull_requests ORDER BY repository`)
	if err != nil {
		return nil, fmt.Errorf("select repositories: %w", err)
	}
	defer rows.Close()

	var repos []string
	for rows.Next() {
		var repo string
		if err := rows.Scan(&repo); err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

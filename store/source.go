package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ip-san/devsync/trace"
)

// dbSource resolves merge chains from stored pull requests. Commit
// containment walks the commits JSONB column so tracing never touches the
// GitHub API.
type dbSource struct {
	pool *pgxpool.Pool
}

func (p *Postgres) TraceSource() trace.Source {
	return &dbSource{pool: p.pool}
}

func (s *dbSource) PullRequest(ctx context.Context, repo string, number int) (trace.PRRef, error) {
	var ref trace.PRRef
	err := s.pool.QueryRow(ctx,
		`SELECT number, base_branch, head_branch, merge_commit_sha, merged_at
		 FROM pull_requests
		 WHERE repository = $1 AND number = $2`,
		repo, number,
	).Scan(&ref.Number, &ref.BaseBranch, &ref.HeadBranch, &ref.MergeCommitSHA, &ref.MergedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return trace.PRRef{}, fmt.Errorf("pull request %s#%d: %w", repo, number, ErrNotFound)
	}
	if err != nil {
		return trace.PRRef{}, fmt.Errorf("pull request %s#%d: %w", repo, number, err)
	}
	return ref, nil
}

func (s *dbSource) ContainingPulls(ctx context.Context, repo, sha string) ([]trace.PRRef, error) {
	needle, err := json.Marshal([]map[string]string{{"sha": sha}})
	if err != nil {
		return nil, fmt.Errorf("containment needle for %s: %w", sha, err)
	}

	// A pull request contains the commit when its commit list includes the
	// SHA. The pull request whose own merge produced the SHA is excluded;
	// earliest merge first matches the hop that actually moved the commit
	// upstream.
	rows, err := s.pool.Query(ctx,
		`SELECT number, base_branch, head_branch, merge_commit_sha, merged_at
		 FROM pull_requests
		 WHERE repository = $1
		   AND commits @> $2::jsonb
		   AND merge_commit_sha <> $3
		 ORDER BY merged_at NULLS LAST, number`,
		repo, needle, sha)
	if err != nil {
		return nil, fmt.Errorf("pull requests containing %s in %s: %w", sha, repo, err)
	}
	defer rows.Close()

	var refs []trace.PRRef
	for rows.Next() {
		var ref trace.PRRef
		if err := rows.Scan(&ref.Number, &ref.BaseBranch, &ref.HeadBranch, &ref.MergeCommitSHA, &ref.MergedAt); err != nil {
			return nil, fmt.Errorf("scan containing pull request: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

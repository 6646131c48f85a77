package deployments

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-github/v39/github"

	"github.com/ip-san/devsync/record"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeService struct {
	pages    [][]*github.Deployment
	statuses map[int64][]*github.DeploymentStatus
	listErr  error

	listCalls   int
	statusCalls int
}

func (f *fakeService) ListDeployments(_ context.Context, _, _ string, opts *github.DeploymentsListOptions) ([]*github.Deployment, *github.Response, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, nil, f.listErr
	}
	page := opts.Page
	if page == 0 {
		page = 1
	}
	resp := &github.Response{}
	if page < len(f.pages) {
		resp.NextPage = page + 1
	}
	return f.pages[page-1], resp, nil
}

func (f *fakeService) ListDeploymentStatuses(_ context.Context, _, _ string, deployment int64, _ *github.ListOptions) ([]*github.DeploymentStatus, *github.Response, error) {
	f.statusCalls++
	return f.statuses[deployment], &github.Response{}, nil
}

func deployment(id int64, env string, createdAt time.Time) *github.Deployment {
	return &github.Deployment{
		ID:          github.Int64(id),
		SHA:         github.String("sha-" + env),
		Environment: github.String(env),
		CreatedAt:   &github.Timestamp{Time: createdAt},
	}
}

func status(state string) *github.DeploymentStatus {
	return &github.DeploymentStatus{State: github.String(state)}
}

func TestGetResolvesLatestStatus(t *testing.T) {
	created := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc := &fakeService{
		pages: [][]*github.Deployment{{
			deployment(1, "production", created),
			deployment(2, "staging", created.Add(-time.Hour)),
			deployment(3, "production", created.Add(-2*time.Hour)),
		}},
		statuses: map[int64][]*github.DeploymentStatus{
			1: {status("success")},
			2: {status("failure")},
			// deployment 3 has no statuses at all
		},
	}

	deps, err := Get(context.Background(), svc, "acme/api", time.Time{}, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 3 {
		t.Fatalf("len(deps) = %d, want 3", len(deps))
	}

	if deps[0].Status != record.StatusSuccess || deps[0].Environment != "production" {
		t.Errorf("deps[0] = %+v", deps[0])
	}
	if deps[1].Status != record.StatusFailure {
		t.Errorf("deps[1].Status = %q, want failure", deps[1].Status)
	}
	if deps[2].Status != record.StatusUnknown {
		t.Errorf("deps[2].Status = %q, want unknown for a deployment without statuses", deps[2].Status)
	}
	if !deps[0].CreatedAt.Equal(created) || deps[0].SHA != "sha-production" {
		t.Errorf("deps[0] metadata = %+v", deps[0])
	}
}

func TestGetPaginates(t *testing.T) {
	created := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc := &fakeService{
		pages: [][]*github.Deployment{
			{deployment(1, "production", created)},
			{deployment(2, "production", created.Add(-time.Hour))},
		},
		statuses: map[int64][]*github.DeploymentStatus{
			1: {status("success")},
			2: {status("success")},
		},
	}

	deps, err := Get(context.Background(), svc, "acme/api", time.Time{}, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 2 || svc.listCalls != 2 {
		t.Errorf("len(deps) = %d listCalls = %d, want 2 and 2", len(deps), svc.listCalls)
	}
}

func TestGetStopsAtWatermark(t *testing.T) {
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := &fakeService{
		pages: [][]*github.Deployment{
			{
				deployment(1, "production", since.Add(time.Hour)),
				deployment(2, "production", since.Add(-time.Hour)),
			},
			{deployment(3, "production", since.Add(-2*time.Hour))},
		},
		statuses: map[int64][]*github.DeploymentStatus{1: {status("success")}},
	}

	deps, err := Get(context.Background(), svc, "acme/api", since, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 1 {
		t.Errorf("len(deps) = %d, want 1", len(deps))
	}
	if svc.listCalls != 1 {
		t.Errorf("listCalls = %d, want 1", svc.listCalls)
	}
	if svc.statusCalls != 1 {
		t.Errorf("statusCalls = %d, want 1 (no status lookups past the watermark)", svc.statusCalls)
	}
}

func TestGetListError(t *testing.T) {
	cause := errors.New("boom")
	svc := &fakeService{listErr: cause}

	if _, err := Get(context.Background(), svc, "acme/api", time.Time{}, testLogger); !errors.Is(err, cause) {
		t.Errorf("err = %v, want wrapped %v", err, cause)
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		state string
		want  record.DeploymentStatus
	}{
		{"success", record.StatusSuccess},
		{"failure", record.StatusFailure},
		{"error", record.StatusError},
		{"in_progress", record.StatusInProgress},
		{"queued", record.StatusQueued},
		{"pending", record.StatusPending},
		{"inactive", record.StatusInactive},
		{"", record.StatusUnknown},
		{"someday_state", record.StatusUnknown},
	}
	for _, tt := range tests {
		if got := normalizeStatus(tt.state); got != tt.want {
			t.Errorf("normalizeStatus(%q) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

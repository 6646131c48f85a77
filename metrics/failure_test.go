package metrics

import (
	"testing"
	"time"

	"github.com/ip-san/devsync/record"
)

func TestChangeFailureRate(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	deployments := []record.Deployment{
		{ID: 1, CreatedAt: base, Status: record.StatusSuccess},
		{ID: 2, CreatedAt: base, Status: record.StatusSuccess},
		{ID: 3, CreatedAt: base, Status: record.StatusFailure},
		{ID: 4, CreatedAt: base, Status: record.StatusError},
		{ID: 5, CreatedAt: base, Status: record.StatusUnknown},
		{ID: 6, CreatedAt: base, Status: record.StatusUnknown},
	}

	cf := ChangeFailureRate(deployments, nil, deployPatterns)
	if cf.Total != 4 {
		t.Errorf("Total = %d, want 4 (unknown statuses excluded from the denominator)", cf.Total)
	}
	if cf.Failed != 2 {
		t.Errorf("Failed = %d, want 2 (failure and error)", cf.Failed)
	}
	if cf.Rate != 50.0 {
		t.Errorf("Rate = %v, want 50.0", cf.Rate)
	}
}

func TestChangeFailureRateAllUnknownEngagesFallback(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	deployments := []record.Deployment{
		{ID: 1, CreatedAt: base, Status: record.StatusUnknown},
		{ID: 2, CreatedAt: base, Status: record.StatusUnknown},
	}
	runs := []record.WorkflowRun{
		{ID: 1, Name: "deploy", Conclusion: "success", CreatedAt: base},
		{ID: 2, Name: "deploy", Conclusion: "failure", CreatedAt: base},
		{ID: 3, Name: "deploy", Conclusion: "", CreatedAt: base},
		{ID: 4, Name: "lint", Conclusion: "failure", CreatedAt: base},
	}

	cf := ChangeFailureRate(deployments, runs, deployPatterns)
	if cf.Total != 2 || cf.Failed != 1 {
		t.Fatalf("fallback = %d/%d, want 1 failed of 2", cf.Failed, cf.Total)
	}
	if cf.Rate != 50.0 {
		t.Errorf("Rate = %v, want 50.0", cf.Rate)
	}
}

func TestChangeFailureRateRounding(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	deployments := []record.Deployment{
		{ID: 1, CreatedAt: base, Status: record.StatusFailure},
		{ID: 2, CreatedAt: base, Status: record.StatusSuccess},
		{ID: 3, CreatedAt: base, Status: record.StatusSuccess},
	}

	cf := ChangeFailureRate(deployments, nil, deployPatterns)
	if cf.Rate != 33.3 {
		t.Errorf("Rate = %v, want 33.3", cf.Rate)
	}
}

func TestChangeFailureRateNoEvidence(t *testing.T) {
	cf := ChangeFailureRate(nil, nil, deployPatterns)
	if cf.Total != 0 || cf.Failed != 0 || cf.Rate != 0 {
		t.Errorf("empty input = %+v, want zeros", cf)
	}
}

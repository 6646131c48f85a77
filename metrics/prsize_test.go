package metrics

import (
	"testing"

	"github.com/ip-san/devsync/record"
)

func TestPRSize(t *testing.T) {
	prs := []record.PullRequest{
		{Number: 1, Additions: 10, Deletions: 2, ChangedFiles: 1},
		{Number: 2, Additions: 30, Deletions: 8, ChangedFiles: 3},
	}

	size := PRSize(prs)
	if size.TotalPRs != 2 {
		t.Errorf("TotalPRs = %d, want 2", size.TotalPRs)
	}
	if size.TotalAdditions != 40 || size.TotalDeletions != 10 {
		t.Errorf("totals = +%d/-%d, want +40/-10", size.TotalAdditions, size.TotalDeletions)
	}
	if size.TotalLinesOfCode != 50 || size.TotalFilesChanged != 4 {
		t.Errorf("lines/files = %d/%d, want 50/4", size.TotalLinesOfCode, size.TotalFilesChanged)
	}

	wantFloat(t, "Additions.Avg", size.Additions.Avg, 20.0)
	wantFloat(t, "Deletions.Avg", size.Deletions.Avg, 5.0)
	wantFloat(t, "LinesOfCode.Avg", size.LinesOfCode.Avg, 25.0)
	wantFloat(t, "LinesOfCode.Max", size.LinesOfCode.Max, 38.0)
	wantFloat(t, "FilesChanged.Median", size.FilesChanged.Median, 2.0)
}

func TestPRSizeEmpty(t *testing.T) {
	size := PRSize(nil)
	if size.TotalPRs != 0 || size.TotalLinesOfCode != 0 {
		t.Errorf("empty input = %+v, want zeros", size)
	}
	wantNil(t, "Additions.Avg", size.Additions.Avg)
}

package metrics

import "github.com/ip-san/devsync/record"

// PRSizeMetrics describes how large pull requests run, in changed lines
// and files.
type PRSizeMetrics struct {
	TotalPRs          int     `json:"total_prs"`
	TotalAdditions    int     `json:"total_additions"`
	TotalDeletions    int     `json:"total_deletions"`
	TotalLinesOfCode  int     `json:"total_lines_of_code"`
	TotalFilesChanged int     `json:"total_files_changed"`
	Additions         Summary `json:"additions"`
	Deletions         Summary `json:"deletions"`
	LinesOfCode       Summary `json:"lines_of_code"`
	FilesChanged      Summary `json:"files_changed"`
}

// PRSize totals and summarizes pull request sizes. Lines of code is
// additions plus deletions.
func PRSize(prs []record.PullRequest) PRSizeMetrics {
	out := PRSizeMetrics{TotalPRs: len(prs)}
	var additions, deletions, lines, files []float64
	for _, pr := range prs {
		loc := pr.Additions + pr.Deletions
		out.TotalAdditions += pr.Additions
		out.TotalDeletions += pr.Deletions
		out.TotalLinesOfCode += loc
		out.TotalFilesChanged += pr.ChangedFiles

		additions = append(additions, float64(pr.Additions))
		deletions = append(deletions, float64(pr.Deletions))
		lines = append(lines, float64(loc))
		files = append(files, float64(pr.ChangedFiles))
	}

	out.Additions = Summarize(additions)
	out.Deletions = Summarize(deletions)
	out.LinesOfCode = Summarize(lines)
	out.FilesChanged = Summarize(files)
	return out
}

package metrics

import "github.com/ip-san/devsync/record"

// ChangeFailure is the change-failure-rate figure: how many deployments
// were attempted, how many failed, and the failed share as a percentage.
type ChangeFailure struct {
	Total  int     `json:"total"`
	Failed int     `json:"failed"`
	Rate   float64 `json:"rate"`
}

// ChangeFailureRate computes failed/total over deployments with a known
// status; an unknown status is absent evidence and leaves both the
// numerator and the denominator. When no deployment has a known status the
// deploy-named workflow runs stand in, counting completed runs with a
// failure conclusion as failed. An empty total yields rate 0.
func ChangeFailureRate(deployments []record.Deployment, runs []record.WorkflowRun, patterns []string) ChangeFailure {
	var cf ChangeFailure
	for _, d := range deployments {
		if !d.Status.Known() {
			continue
		}
		cf.Total++
		if d.Status.Failed() {
			cf.Failed++
		}
	}

	if cf.Total == 0 {
		for _, r := range runs {
			if !matchesAny(r.Name, patterns) {
				continue
			}
			switch r.Conclusion {
			case "success":
				cf.Total++
			case "failure":
				cf.Total++
				cf.Failed++
			}
		}
	}

	if cf.Total > 0 {
		cf.Rate = Round1(float64(cf.Failed) / float64(cf.Total) * 100)
	}
	return cf
}

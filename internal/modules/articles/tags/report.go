package tags

import "github.com/yungbote/articleforge-backend/internal/modules/articles/charts"

// Codes recorded for charts that are not rejected by validation itself.
const (
	CodeDescriptorNotFound charts.RejectionCode = "descriptor_not_found"
	CodePersistenceFailed  charts.RejectionCode = "artifact_persistence_failed"
	CodeRenderFailed       charts.RejectionCode = "render_failed"
)

type ChartRejection struct {
	ID     string               `json:"id"`
	Code   charts.RejectionCode `json:"code"`
	Reason string               `json:"reason"`
}

// Resolution records how one distinct tag was replaced.
type Resolution struct {
	Tag      string `json:"tag"`
	Kind     string `json:"kind"`
	Target   string `json:"target"`
	Strategy string `json:"strategy,omitempty"`
}

// Report summarizes one ResolveDocument call. ResolvedCount counts
// distinct tags, not occurrences.
type Report struct {
	ResolvedCount      int              `json:"resolved_count"`
	UnresolvedRequests []string         `json:"unresolved_requests"`
	RejectedCharts     []ChartRejection `json:"rejected_charts"`
	Resolutions        []Resolution     `json:"resolutions"`
}

func newReport() Report {
	return Report{
		UnresolvedRequests: []string{},
		RejectedCharts:     []ChartRejection{},
		Resolutions:        []Resolution{},
	}
}

func (r *Report) unresolved(req string, seen map[string]bool) {
	if seen[req] {
		return
	}
	seen[req] = true
	r.UnresolvedRequests = append(r.UnresolvedRequests, req)
}

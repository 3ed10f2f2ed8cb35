package api

// CheckResponse is the response for a permission check.
type CheckResponse struct {
	Allowed    bool        `json:"allowed" description:"Whether the request is allowed"`
	Decision   string      `json:"decision" description:"Decision code"`
	Reason     string      `json:"reason,omitempty" description:"Human-readable reason"`
	MatchedBy  []MatchInfo `json:"matched_by,omitempty" description:"What granted during evaluation"`
	EvalTimeNs int64       `json:"eval_time_ns" description:"Evaluation time in nanoseconds"`
}

// MatchInfo identifies what granted during evaluation.
type MatchInfo struct {
	Source string `json:"source" description:"Grant source (admin, acl, condition)"`
	RuleID string `json:"rule_id,omitempty" description:"Rule identifier"`
	Detail string `json:"detail,omitempty" description:"Match detail"`
}

// BatchCheckResponse contains results for multiple checks.
type BatchCheckResponse struct {
	Results []CheckResponse `json:"results" description:"Check results in order"`
}

// SyncJobResponse is the externally visible view of a sync job.
type SyncJobResponse struct {
	ID             string           `json:"id" description:"Job ID"`
	Kind           string           `json:"kind" description:"Job kind"`
	State          string           `json:"state" description:"Job state"`
	Results        []SyncJobResult  `json:"results,omitempty" description:"Per-object outcomes"`
	RequesterEmail string           `json:"requester_email" description:"Notification recipient"`
}

// SyncJobResult is one object's outcome within a job.
type SyncJobResult struct {
	Type       string `json:"type" description:"Object type"`
	ID         string `json:"id" description:"Object identifier"`
	ExternalID string `json:"external_id,omitempty" description:"Remote ticket ID"`
	Err        string `json:"error,omitempty" description:"Failure detail, empty on success"`
	Code       string `json:"code,omitempty" description:"Failure classification"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}

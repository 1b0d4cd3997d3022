package domain

// JobRecord is the normalized posting every source produces. ID is only
// unique within the source that emitted it.
type JobRecord struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	Location     string `json:"location"`
	Department   string `json:"department"`
	Type         string `json:"type"`
	PostedDate   string `json:"postedDate"`
	SalaryRange  string `json:"salaryRange,omitempty"`
	SalarySource string `json:"salarySource,omitempty"`
}

// SourceResult is one source's section of the artifact.
type SourceResult struct {
	Name       string      `json:"name"`
	TargetRole string      `json:"targetRole"`
	CareersURL string      `json:"careersUrl"`
	Jobs       []JobRecord `json:"jobs"`
}

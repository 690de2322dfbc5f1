package dayaml

// Report is the JSON form of a Result used by the HTTP and tool servers.
type Report struct {
	Valid  bool          `json:"valid"`
	Jinja  bool          `json:"jinja,omitempty"`
	Errors []ReportError `json:"errors"`
}

// ReportError is one finding in a Report.
type ReportError struct {
	Message      string `json:"message"`
	Line         int    `json:"line"`
	Filename     string `json:"filename"`
	Experimental bool   `json:"experimental"`
	Type         string `json:"type"`
	Suggestion   string `json:"suggestion,omitempty"`
}

// Report converts r to its JSON form. Errors is never nil.
func (r *Result) Report() Report {
	report := Report{
		Valid:  !r.HasErrors(),
		Jinja:  r.Jinja,
		Errors: make([]ReportError, 0, len(r.Errors)),
	}
	for _, e := range r.Errors {
		report.Errors = append(report.Errors, ReportError{
			Message:      e.Message,
			Line:         e.Location.Line,
			Filename:     e.Location.File,
			Experimental: e.Experimental,
			Type:         string(e.Type),
			Suggestion:   e.Suggestion,
		})
	}
	return report
}

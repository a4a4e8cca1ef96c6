package check

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Result is a single measured value compared against optional bounds. A
// nil bound means that side is unconstrained.
type Result struct {
	Name       string   `json:"name"`
	Value      float64  `json:"value"`
	Unit       string   `json:"unit,omitempty"`
	LowerLimit *float64 `json:"lower_limit,omitempty"`
	UpperLimit *float64 `json:"upper_limit,omitempty"`
	Passed     bool     `json:"passed"`
}

// Report is the outcome of one check: its results plus identifying
// metadata for the device and station that produced it.
type Report struct {
	Name         string    `json:"check"`
	SerialNumber string    `json:"serial_number,omitempty"`
	StationID    string    `json:"station_id,omitempty"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Results      []Result  `json:"results"`
	Error        string    `json:"error,omitempty"`
	Passed       bool      `json:"passed"`
}

// NewReport starts a timed report for the named check.
func NewReport(name string) *Report {
	return &Report{Name: name, StartTime: time.Now()}
}

// Add records a measured value, evaluating it against the given bounds.
func (r *Report) Add(name string, value float64, unit string, lower, upper *float64) {
	res := Result{
		Name:       name,
		Value:      value,
		Unit:       unit,
		LowerLimit: lower,
		UpperLimit: upper,
		Passed:     true,
	}
	if lower != nil && value < *lower {
		res.Passed = false
	}
	if upper != nil && value > *upper {
		res.Passed = false
	}
	r.Results = append(r.Results, res)
}

// Fail aborts the report with an error message. A failed report passes
// no results.
func (r *Report) Fail(err error) *Report {
	r.Error = err.Error()
	r.Finish()
	return r
}

// Finish stamps the end time and rolls the per-result outcomes up into
// the report verdict. A report with an error or no results fails.
func (r *Report) Finish() {
	r.EndTime = time.Now()
	if r.Error != "" || len(r.Results) == 0 {
		r.Passed = false
		return
	}
	r.Passed = true
	for _, res := range r.Results {
		if !res.Passed {
			r.Passed = false
			return
		}
	}
}

// WriteFile stores the report as indented JSON under dir, named after
// the check and its start time. Returns the written path.
func (r *Report) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating results dir %v: %w", dir, err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}

	name := fmt.Sprintf("%v_%v.json", r.Name, r.StartTime.Format("20060102_150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report %v: %w", path, err)
	}
	return path, nil
}

// limit returns a bound pointer for Report.Add.
func limit(v float64) *float64 { return &v }

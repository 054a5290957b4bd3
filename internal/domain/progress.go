package domain

import (
	"fmt"
	"strings"
)

// ProgressView is the progress line shown for the active job
type ProgressView struct {
	Visible  bool
	JobID    string
	Status   BookStatus
	StepName string
	Percent  int
}

// Text renders the line as "STATUS | step | N%", or QUEUED for acknowledged jobs
func (p ProgressView) Text() string {
	if p.Status == StatusQueued {
		return "QUEUED"
	}
	step := p.StepName
	if step == "" {
		step = "-"
	}
	return fmt.Sprintf("%s | %s | %d%%", strings.ToUpper(string(p.Status)), step, p.Percent)
}

// Fraction returns the percent as a 0..1 value for progress bars
func (p ProgressView) Fraction() float64 {
	switch {
	case p.Percent <= 0:
		return 0
	case p.Percent >= 100:
		return 1
	default:
		return float64(p.Percent) / 100
	}
}

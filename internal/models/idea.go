package models

import "time"

type Subject string

const (
	SubjectDev          Subject = "Dev"
	SubjectFinance      Subject = "Finance"
	SubjectMarketing    Subject = "Marketing"
	SubjectHR           Subject = "HR"
	SubjectLegal        Subject = "Legal"
	SubjectBusiness     Subject = "Business"
	SubjectSaaS         Subject = "SaaS"
	SubjectProductivity Subject = "Productivity"
	SubjectIdeas        Subject = "Ideas"
	SubjectB2B          Subject = "B2B"
	SubjectEcommerce    Subject = "Ecommerce"
	SubjectConsulting   Subject = "Consulting"
	SubjectFreelance    Subject = "Freelance"
	SubjectOther        Subject = "Other"
)

var AllSubjects = []Subject{
	SubjectDev, SubjectFinance, SubjectMarketing, SubjectHR, SubjectLegal,
	SubjectBusiness, SubjectSaaS, SubjectProductivity, SubjectIdeas,
	SubjectB2B, SubjectEcommerce, SubjectConsulting, SubjectFreelance,
	SubjectOther,
}

func (s Subject) Valid() bool {
	for _, known := range AllSubjects {
		if s == known {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusBacklog     Status = "Backlog"
	StatusResearching Status = "Researching"
	StatusPrototyping Status = "Prototyping"
	StatusValidated   Status = "Validated"
	StatusArchived    Status = "Archived"
)

var statusOrder = map[Status]int{
	StatusBacklog:     0,
	StatusResearching: 1,
	StatusPrototyping: 2,
	StatusValidated:   3,
	StatusArchived:    4,
}

// CanTransition reports whether a status change moves the lifecycle forward.
// The pipeline never moves an idea backward.
func CanTransition(from, to Status) bool {
	fromOrder, ok := statusOrder[from]
	if !ok {
		return false
	}
	toOrder, ok := statusOrder[to]
	if !ok {
		return false
	}
	return toOrder > fromOrder
}

const (
	DataSourceReddit = "Reddit"
	DataSourceManual = "Manual"
)

// Idea is the canonical persisted record for a discovered pain-point signal.
type Idea struct {
	ID               int64     `json:"id,omitempty"`
	Title            string    `json:"title"`
	ProblemStatement string    `json:"problem_statement"`
	DataSource       string    `json:"data_source"`
	SourceName       string    `json:"source_name"`
	SourceURL        string    `json:"source_url"`
	DedupKey         string    `json:"dedup_key"`
	Subject          string    `json:"subject,omitempty"`
	Status           Status    `json:"status"`
	Score            int       `json:"score"`
	Comments         int       `json:"comments"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
}

// EngagementScore is derived for in-pass ranking only and never stored.
func (i Idea) EngagementScore() int {
	return i.Score + i.Comments
}

// Package taxonomy holds the static crawl configuration: which subreddits to
// scan, which pain-point queries to search, and the lookup tables the
// classifier resolves subjects from. All of it is data; the only logic is
// defensive copying so no caller can mutate the shared tables.
package taxonomy

import "ideaengine/internal/models"

// KeywordRule maps a keyword set to a subject. Rules are ordered; the first
// rule with any match wins.
type KeywordRule struct {
	Keywords []string
	Subject  models.Subject
}

type Taxonomy struct {
	Sources        []string
	Queries        []string
	SourceSubjects map[string]models.Subject
	KeywordRules   []KeywordRule
	PainLexicon    []string
}

// Subreddits where professionals gather and discuss problems.
var targetSubreddits = []string{
	// Business & Entrepreneurship
	"smallbusiness", "Entrepreneur", "startups", "sidehustle", "indiehackers",
	"solopreneur", "microsaas", "saas", "agency", "consulting", "freelance", "B2B",
	// Niche Professional & B2B
	"sysadmin", "marketing", "sales", "ecommerce", "accounting", "bookkeeping",
	"humanresources", "recruiting", "projectmanagement", "productmanagement",
	"CustomerSuccess", "paralegal",
	// Development & Tech
	"webdev", "programming", "nocode", "shopify", "salesforce", "aws", "devops", "UXDesign",
	// General Productivity & Ideas
	"productivity", "SomebodyMakeThis", "AppIdeas", "Business_Ideas",
}

// Phrases that indicate a user is looking for a solution or experiencing pain.
var searchQueries = []string{
	`"is there a tool for"`,
	`"how do you solve"`,
	`"i hate doing this"`,
	`"manual process for"`,
	`"looking for a solution"`,
	`"frustrated with"`,
	`"wish there was a way"`,
	`"tired of manually"`,
	`"automate this process"`,
	`"pain point"`,
	`"workflow problem"`,
	`"inefficient process"`,
}

// Keys are lowercased subreddit names.
var sourceSubjects = map[string]models.Subject{
	"webdev":            models.SubjectDev,
	"programming":       models.SubjectDev,
	"devops":            models.SubjectDev,
	"aws":               models.SubjectDev,
	"uxdesign":          models.SubjectDev,
	"nocode":            models.SubjectDev,
	"shopify":           models.SubjectDev,
	"sysadmin":          models.SubjectDev,
	"salesforce":        models.SubjectDev,
	"finance":           models.SubjectFinance,
	"accounting":        models.SubjectFinance,
	"bookkeeping":       models.SubjectFinance,
	"marketing":         models.SubjectMarketing,
	"sales":             models.SubjectMarketing,
	"humanresources":    models.SubjectHR,
	"recruiting":        models.SubjectHR,
	"projectmanagement": models.SubjectHR,
	"customersuccess":   models.SubjectHR,
	"paralegal":         models.SubjectLegal,
	"smallbusiness":     models.SubjectBusiness,
	"entrepreneur":      models.SubjectBusiness,
	"startups":          models.SubjectBusiness,
	"sidehustle":        models.SubjectBusiness,
	"indiehackers":      models.SubjectBusiness,
	"solopreneur":       models.SubjectBusiness,
	"agency":            models.SubjectBusiness,
	"productmanagement": models.SubjectHR,
	"saas":              models.SubjectSaaS,
	"microsaas":         models.SubjectSaaS,
	"productivity":      models.SubjectProductivity,
	"somebodymakethis":  models.SubjectIdeas,
	"appideas":          models.SubjectIdeas,
	"business_ideas":    models.SubjectIdeas,
	"b2b":               models.SubjectB2B,
	"ecommerce":         models.SubjectEcommerce,
	"consulting":        models.SubjectConsulting,
	"freelance":         models.SubjectFreelance,
}

// Ordered: earlier rules take priority when keywords overlap (e.g. "shopify"
// resolves to Dev, not Ecommerce).
var keywordRules = []KeywordRule{
	{Keywords: []string{"devops", "developer", "webdev", "programming", "code", "software", "engineer", "ux", "design", "sysadmin", "cloud", "aws", "shopify", "nocode"}, Subject: models.SubjectDev},
	{Keywords: []string{"finance", "accounting", "bookkeeping", "invoice", "payment", "payroll", "tax"}, Subject: models.SubjectFinance},
	{Keywords: []string{"marketing", "sales", "advertising", "campaign", "leadgen"}, Subject: models.SubjectMarketing},
	{Keywords: []string{"hr", "recruit", "human resource", "project management", "customer success"}, Subject: models.SubjectHR},
	{Keywords: []string{"legal", "paralegal", "law", "contract"}, Subject: models.SubjectLegal},
	{Keywords: []string{"business", "startup", "entrepreneur", "sidehustle", "agency", "solopreneur", "indiehackers", "smallbusiness"}, Subject: models.SubjectBusiness},
	{Keywords: []string{"saas", "microsaas"}, Subject: models.SubjectSaaS},
	{Keywords: []string{"productivity", "workflow", "efficiency"}, Subject: models.SubjectProductivity},
	{Keywords: []string{"idea", "somebodymakethis", "appideas", "business_ideas"}, Subject: models.SubjectIdeas},
	{Keywords: []string{"b2b"}, Subject: models.SubjectB2B},
	{Keywords: []string{"ecommerce", "shopify"}, Subject: models.SubjectEcommerce},
	{Keywords: []string{"consulting", "consultant"}, Subject: models.SubjectConsulting},
	{Keywords: []string{"freelance", "freelancer"}, Subject: models.SubjectFreelance},
}

// Terms that indicate a post describes an unsolved problem.
var painLexicon = []string{
	"help", "problem", "issue", "frustrated", "hate", "tired", "manual",
	"automate", "looking for a solution", "pain point", "inefficient",
	"wish there was", "workaround", "tedious",
}

// Default returns a snapshot of the configured taxonomy. Every call returns
// fresh copies so the package-level tables stay immutable.
func Default() Taxonomy {
	t := Taxonomy{
		Sources:        append([]string(nil), targetSubreddits...),
		Queries:        append([]string(nil), searchQueries...),
		SourceSubjects: make(map[string]models.Subject, len(sourceSubjects)),
		KeywordRules:   make([]KeywordRule, 0, len(keywordRules)),
		PainLexicon:    append([]string(nil), painLexicon...),
	}
	for source, subject := range sourceSubjects {
		t.SourceSubjects[source] = subject
	}
	for _, rule := range keywordRules {
		t.KeywordRules = append(t.KeywordRules, KeywordRule{
			Keywords: append([]string(nil), rule.Keywords...),
			Subject:  rule.Subject,
		})
	}
	return t
}

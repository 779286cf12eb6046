// Package usecases - classifier.go detects project domains and the risks and missing elements of a requirement.
package usecases

import "github.com/0xcro3dile/bacopilot-go/internal/domain/ports"

// Domain categories recognized by the keyword classifier.
const (
	DomainWeb        = "web"
	DomainMobile     = "mobile"
	DomainEcommerce  = "ecommerce"
	DomainManagement = "management"
)

// DomainProfile binds a category to its trigger keywords and the content
// blocks contributed when it matches.
type DomainProfile struct {
	Name          string
	Triggers      []string
	Questions     []string
	BestPractices []string
}

// KeywordClassifier detects domains by word-start keyword matches.
type KeywordClassifier struct {
	profiles []DomainProfile
}

// NewKeywordClassifier creates a classifier over the given profiles.
// With no profiles, DefaultProfiles is used.
func NewKeywordClassifier(profiles ...DomainProfile) *KeywordClassifier {
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}
	return &KeywordClassifier{profiles: profiles}
}

// Classify returns matched category names in profile order.
func (c *KeywordClassifier) Classify(text string) []string {
	var matched []string
	for _, p := range c.profiles {
		if hasAnyKeyword(text, p.Triggers) {
			matched = append(matched, p.Name)
		}
	}
	return matched
}

// Taxonomy pairs a classifier with the content blocks of each category.
// Swapping Classifier leaves callers untouched.
type Taxonomy struct {
	Classifier ports.Classifier
	Profiles   map[string]DomainProfile
}

// DefaultTaxonomy uses the keyword classifier over DefaultProfiles.
func DefaultTaxonomy() Taxonomy {
	profiles := DefaultProfiles()
	byName := make(map[string]DomainProfile, len(profiles))
	for _, p := range profiles {
		byName[p.Name] = p
	}
	return Taxonomy{Classifier: NewKeywordClassifier(profiles...), Profiles: byName}
}

// Questions concatenates the questions of every matched category.
func (t Taxonomy) Questions(text string) []string {
	var out []string
	for _, name := range t.Classifier.Classify(text) {
		out = append(out, t.Profiles[name].Questions...)
	}
	return out
}

// BestPractices concatenates the best practices of every matched category.
func (t Taxonomy) BestPractices(text string) []string {
	var out []string
	for _, name := range t.Classifier.Classify(text) {
		out = append(out, t.Profiles[name].BestPractices...)
	}
	return out
}

// DefaultProfiles returns the built-in domain taxonomy.
func DefaultProfiles() []DomainProfile {
	return []DomainProfile{
		{
			Name:     DomainWeb,
			Triggers: []string{"web", "website"},
			Questions: []string{
				"Who are the primary users of this web application?",
				"What is the expected number of concurrent users?",
				"Which browsers and devices must be supported?",
				"Is mobile adaptation required?",
			},
			BestPractices: []string{
				"Responsive design for mobile compatibility",
				"SEO optimization for search visibility",
				"Progressive web app features",
			},
		},
		{
			Name:     DomainMobile,
			Triggers: []string{"mobile", "app"},
			Questions: []string{
				"Should the app target iOS, Android or be cross-platform?",
				"Does the app need offline functionality?",
				"Which device features must be integrated (camera, GPS, push notifications)?",
			},
			BestPractices: []string{
				"Cross-platform compatibility consideration",
				"Offline functionality for poor network areas",
				"Battery optimization design",
			},
		},
		{
			Name:     DomainEcommerce,
			Triggers: []string{"ecommerce", "e-commerce", "shopping"},
			Questions: []string{
				"Which payment methods must be supported?",
				"What is the delivery coverage area?",
				"Is multi-merchant onboarding required?",
				"Which promotion types must be supported?",
			},
			BestPractices: []string{
				"PCI DSS compliance for payment security",
				"Multi-payment gateway integration",
				"Inventory management system",
			},
		},
		{
			Name:     DomainManagement,
			Triggers: []string{"management"},
			Questions: []string{
				"How many users will use the system at the same time?",
				"Which user roles and permissions are needed?",
				"Is mobile management functionality required?",
				"What are the data import and export requirements?",
			},
		},
	}
}

var genericQuestions = []string{
	"What is the main goal of this system?",
	"Who are the primary users?",
	"Are there any special security or compliance requirements?",
	"What is the expected number of users and data volume?",
	"Which existing systems need to be integrated?",
}

var genericSuggestions = []string{
	"Clarify the target user groups and usage scenarios",
	"Describe the core functions and user flows in detail",
	"Consider non-functional requirements such as performance, security and scalability",
	"Specify the technology stack and deployment environment",
}

var genericBestPractices = []string{
	"User-centered design approach",
	"Scalable architecture design",
	"Comprehensive testing strategy",
}

// riskRule adds Risk when any trigger matches.
type riskRule struct {
	Triggers []string
	Risk     string
}

var riskRules = []riskRule{
	{Triggers: []string{"complex", "integration"}, Risk: "Technical integration complexity"},
	{Triggers: []string{"real-time", "live"}, Risk: "Real-time performance challenges"},
	{Triggers: []string{"payment", "financial"}, Risk: "Financial transaction security risks"},
	{Triggers: []string{"scale", "large"}, Risk: "Scalability and performance bottlenecks"},
}

var genericRisks = []string{
	"User adoption and change management",
	"Data privacy and compliance requirements",
	"Technical debt accumulation",
}

// completenessRules each add one point when any of their keywords match.
var completenessRules = [][]string{
	{"user", "function", "feature"},
	{"performance", "security", "scalability"},
	{"interface", "ui", "ux"},
	{"technology", "platform", "system"},
}

// detailedWordCount is the word count above which a description counts as detailed.
const detailedWordCount = 50

type elementRule struct {
	Element  string
	Keywords []string
}

var elementRules = []elementRule{
	{Element: "Target user identification", Keywords: []string{"user", "customer", "client"}},
	{Element: "Core functionality description", Keywords: []string{"function", "feature", "capability"}},
	{Element: "Performance requirements", Keywords: []string{"performance", "speed", "load"}},
	{Element: "Security requirements", Keywords: []string{"security", "authentication", "authorization"}},
	{Element: "User interface requirements", Keywords: []string{"interface", "ui", "design"}},
}

// Package llm provides the offline demo completion adapter.
// Clean Architecture: Adapter implementing ports.CompletionProvider.
package llm

import (
	"context"
	"strings"
	"time"
)

const demoEnhancement = `## Enhanced Requirements Document

### Project Overview
Based on your provided requirements, I recommend creating a comprehensive application system.

### Functional Requirements
1. **User Interface Design**
   - Modern, responsive design
   - Intuitive user experience
   - Mobile device support

2. **Core Feature Modules**
   - Data management functionality
   - User authentication system
   - Data analysis and reporting

3. **Technical Requirements**
   - Use modern technology stack
   - Ensure system security
   - Support scalable design

### Non-Functional Requirements
- **Performance Requirements**: Page load time < 3 seconds
- **Security Requirements**: Encrypted data storage, user authentication
- **Availability Requirements**: 99.9% system availability

### Acceptance Criteria
- All core functions operate normally
- Pass security testing
- User-friendly interface

### Recommended Technology Stack
- Frontend: Modern web framework
- Backend: Stable server technology
- Database: Relational database

This is a demo mode response. Please configure real API keys for more accurate requirement analysis.`

const demoReview = `{
    "issues": [
        {
            "type": "warning",
            "text": "Requirements description may not be specific enough",
            "location": "Functional requirements section",
            "suggestion": "Recommend adding more detailed functional descriptions and user scenarios"
        },
        {
            "type": "suggestion",
            "text": "Recommend adding performance metrics",
            "location": "Non-functional requirements",
            "suggestion": "Specify concrete performance requirements such as response time and concurrent users"
        }
    ],
    "summary": "Overall requirement structure is good, but there is room for improvement in specificity and testability. Recommend adding more detailed acceptance criteria.",
    "score": 7
}`

const demoGeneric = "This is a demo mode response. Please configure API keys for real AI responses."

// DemoAdapter answers without any network access. The response is chosen
// from the system prompt: enhancement prompts get a requirements skeleton,
// review prompts get a JSON review.
type DemoAdapter struct {
	delay time.Duration
}

// NewDemoAdapter creates a demo backend that waits delay before answering.
func NewDemoAdapter(delay time.Duration) *DemoAdapter {
	return &DemoAdapter{delay: delay}
}

// Complete returns a canned response. It only fails when ctx ends during
// the simulated delay.
func (d *DemoAdapter) Complete(ctx context.Context, prompt, _, systemPrompt string) (string, error) {
	if d.delay > 0 {
		t := time.NewTimer(d.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return DemoResponse(prompt, systemPrompt), nil
}

// DemoResponse is the canned response selection without the delay.
func DemoResponse(prompt, systemPrompt string) string {
	system := strings.ToLower(systemPrompt)
	switch {
	case strings.Contains(strings.ToLower(prompt), "requirement") && strings.Contains(system, "enhance"):
		return demoEnhancement
	case strings.Contains(system, "review"):
		return demoReview
	default:
		return demoGeneric
	}
}

package discovery

import (
	"github.com/bryanwahyu/mailguard/internal/domain/grading"
	"github.com/bryanwahyu/mailguard/internal/domain/mailbox"
)

// Service is a discovered signup: a sample email joined with its security profile.
type Service struct {
	ID          mailbox.EmailID  `json:"id"`
	Company     string           `json:"company"`
	Grade       grading.Grade    `json:"grade"`
	LastAccess  string           `json:"lastAccess"`
	Email       string           `json:"email"`
	RiskFactors []string         `json:"riskFactors"`
	Reason      string           `json:"reason"`
	Category    string           `json:"category"`
	Domain      string           `json:"domain"`
	Score       int              `json:"securityScore"`
	Features    grading.Features `json:"securityFeatures"`
}

// Role enum
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the append-only transcript.
type ChatMessage struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Snapshot is a point-in-time copy of the analysis store.
type Snapshot struct {
	Services  []Service     `json:"services"`
	Analyzing bool          `json:"analyzing"`
	Progress  float64       `json:"progress"`
	Warnings  []string      `json:"warnings"`
	Chat      []ChatMessage `json:"chat"`
	Selected  *Service      `json:"selected"`
}

// Grades lists the grade of every service, in order.
func Grades(services []Service) []grading.Grade {
	out := make([]grading.Grade, len(services))
	for i, s := range services {
		out[i] = s.Grade
	}
	return out
}

// CountGrade counts services carrying grade g.
func CountGrade(services []Service, g grading.Grade) int {
	n := 0
	for _, s := range services {
		if s.Grade == g {
			n++
		}
	}
	return n
}

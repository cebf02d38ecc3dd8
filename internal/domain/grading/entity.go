package grading

import (
	"fmt"
	"strings"
)

// Grade enum, A is best
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"

	// GradeNone is shown when there is nothing to grade.
	GradeNone Grade = "-"
)

// Worst is the grade that triggers a withdrawal warning.
const Worst = GradeF

var rank = map[Grade]int{GradeA: 0, GradeB: 1, GradeC: 2, GradeD: 3, GradeF: 4}

// ParseGrade accepts a single letter A-F in any case.
func ParseGrade(s string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := rank[g]; !ok {
		return "", fmt.Errorf("invalid grade: %q (allowed: A, B, C, D, F)", s)
	}
	return g, nil
}

// Rank orders grades from 0 (A) to 4 (F). Unknown grades sort last.
func (g Grade) Rank() int {
	if r, ok := rank[g]; ok {
		return r
	}
	return len(rank)
}

// Features value object
type Features struct {
	TwoFactor     bool `json:"twoFactor"`
	Encryption    bool `json:"encryption"`
	DataBackup    bool `json:"dataBackup"`
	PrivacyPolicy bool `json:"privacyPolicy"`
}

// Profile is the pre-written security assessment of one company.
type Profile struct {
	Grade       Grade    `json:"grade"`
	Reason      string   `json:"reason"`
	RiskFactors []string `json:"riskFactors"`
	Category    string   `json:"category"`
	Score       int      `json:"securityScore"`
	Features    Features `json:"securityFeatures"`
}

// DefaultProfile is used for companies missing from the directory.
func DefaultProfile() Profile {
	return Profile{
		Grade:       GradeB,
		Reason:      "보안 정보 수집 중",
		RiskFactors: []string{},
		Category:    "기타",
		Score:       70,
		Features:    Features{Encryption: true, PrivacyPolicy: true},
	}
}

package grading

import "math"

var points = map[Grade]int{GradeA: 100, GradeB: 80, GradeC: 60, GradeD: 40, GradeF: 20}

var descriptions = map[Grade]string{
	GradeA:    "매우 안전",
	GradeB:    "안전",
	GradeC:    "보통",
	GradeD:    "주의 필요",
	GradeF:    "위험",
	GradeNone: "분석 전",
}

// Overview is the dashboard header: bucket counts plus the weighted grade.
type Overview struct {
	Safe        int    `json:"safe"`
	Warning     int    `json:"warning"`
	Danger      int    `json:"danger"`
	Total       int    `json:"total"`
	Score       int    `json:"score"`
	Grade       Grade  `json:"grade"`
	Description string `json:"description"`
}

// Summarize buckets grades (A+B safe, C+D warning, F danger) and averages their points.
func Summarize(grades []Grade) Overview {
	o := Overview{Total: len(grades)}
	sum := 0
	for _, g := range grades {
		switch g {
		case GradeA, GradeB:
			o.Safe++
		case GradeC, GradeD:
			o.Warning++
		case GradeF:
			o.Danger++
		}
		sum += points[g]
	}

	if len(grades) == 0 {
		o.Grade = GradeNone
	} else {
		o.Score = int(math.Round(float64(sum) / float64(len(grades))))
		o.Grade = LetterFor(o.Score)
	}
	o.Description = Describe(o.Grade)
	return o
}

// LetterFor maps an averaged score onto a grade.
func LetterFor(score int) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 70:
		return GradeB
	case score >= 50:
		return GradeC
	case score >= 30:
		return GradeD
	default:
		return GradeF
	}
}

func Describe(g Grade) string {
	return descriptions[g]
}

// Package catalog holds the fixed inbox and the pre-written security profiles
// the simulated analysis runs against.
package catalog

import (
	"context"

	"github.com/bryanwahyu/mailguard/internal/domain/grading"
	"github.com/bryanwahyu/mailguard/internal/domain/mailbox"
)

// Keywords mark an email as a signup notice.
var Keywords = []string{"환영", "Welcome", "가입", "계정 생성"}

var sampleEmails = []mailbox.Email{
	{ID: "1", Sender: "Coupang", Subject: "쿠팡에 가입을 환영합니다!", Date: "2024.01.09", Company: "쿠팡"},
	{ID: "2", Sender: "Naver", Subject: "네이버 계정 생성이 완료되었습니다", Date: "2024.01.08", Company: "네이버"},
	{ID: "3", Sender: "Kakao", Subject: "카카오 Welcome! 가입을 축하합니다", Date: "2024.01.07", Company: "카카오"},
	{ID: "4", Sender: "Facebook", Subject: "Welcome to Facebook! 계정 생성", Date: "2023.12.15", Company: "페이스북"},
	{ID: "5", Sender: "Toss", Subject: "토스 가입을 환영합니다", Date: "2024.01.05", Company: "토스"},
	{ID: "6", Sender: "LegacyMall", Subject: "레거시쇼핑몰 회원가입 완료", Date: "2023.06.01", Company: "레거시쇼핑몰"},
	{ID: "7", Sender: "BreachedSite", Subject: "환영합니다! 해킹피해사이트 가입", Date: "2023.03.15", Company: "해킹피해사이트"},
	{ID: "8", Sender: "Netflix", Subject: "이번 달 결제 영수증", Date: "2024.01.03", Company: "넷플릭스"},
	{ID: "9", Sender: "GitHub", Subject: "Welcome to GitHub", Date: "2023.11.20", Company: "GitHub"},
}

var profiles = map[string]grading.Profile{
	"쿠팡": {
		Grade:       grading.GradeF,
		Reason:      "최근 대규모 개인정보 유출 사고 발생",
		RiskFactors: []string{"개인정보 유출 이력", "보안 시스템 취약점 발견"},
		Category:    "쇼핑",
		Score:       23,
	},
	"네이버": {
		Grade:       grading.GradeA,
		Reason:      "강력한 보안 인프라 및 2단계 인증 지원",
		RiskFactors: []string{},
		Category:    "포털",
		Score:       95,
		Features:    grading.Features{TwoFactor: true, Encryption: true, DataBackup: true, PrivacyPolicy: true},
	},
	"카카오": {
		Grade:       grading.GradeA,
		Reason:      "국내 최고 수준의 보안 시스템 운영",
		RiskFactors: []string{},
		Category:    "커뮤니케이션",
		Score:       92,
		Features:    grading.Features{TwoFactor: true, Encryption: true, DataBackup: true, PrivacyPolicy: true},
	},
	"페이스북": {
		Grade:       grading.GradeC,
		Reason:      "과거 개인정보 취급 논란 및 비밀번호 장기 미변경",
		RiskFactors: []string{"비밀번호 변경 권장", "2단계 인증 미설정"},
		Category:    "소셜 미디어",
		Score:       58,
		Features:    grading.Features{Encryption: true, PrivacyPolicy: true},
	},
	"토스": {
		Grade:       grading.GradeA,
		Reason:      "금융 보안 최고 등급, 실시간 이상거래 탐지",
		RiskFactors: []string{},
		Category:    "금융",
		Score:       98,
		Features:    grading.Features{TwoFactor: true, Encryption: true, DataBackup: true, PrivacyPolicy: true},
	},
	"레거시쇼핑몰": {
		Grade:       grading.GradeF,
		Reason:      "서비스 폐업 후 개인정보 관리 부재",
		RiskFactors: []string{"개인정보 유출 이력", "폐업 서비스"},
		Category:    "쇼핑",
		Score:       12,
	},
	"해킹피해사이트": {
		Grade:       grading.GradeF,
		Reason:      "대규모 해킹 사고로 인한 개인정보 유출 확인",
		RiskFactors: []string{"대규모 해킹 사고", "개인정보 유출 확인"},
		Category:    "기타",
		Score:       5,
	},
}

// Inbox implements mailbox.Source over the fixed sample set.
type Inbox struct{}

func (Inbox) List(_ context.Context) ([]mailbox.Email, error) {
	return append([]mailbox.Email(nil), sampleEmails...), nil
}

// Directory implements grading.Directory over the fixed profile table.
type Directory struct{}

func (Directory) Lookup(company string) (grading.Profile, bool) {
	p, ok := profiles[company]
	if !ok {
		return grading.Profile{}, false
	}
	p.RiskFactors = append([]string{}, p.RiskFactors...)
	return p, true
}

package chat

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/mailguard/internal/domain/discovery"
	"github.com/bryanwahyu/mailguard/internal/domain/grading"
)

// Canned is a fixed reply for input mentioning Key.
type Canned struct {
	Key   string
	Reply string
}

// Table is the full set of canned replies.
type Table struct {
	Companies []Canned
	Default   string
}

type topic int

const (
	topicNone topic = iota
	topicSecurity
	topicDanger
	topicAnalyze
)

// checked in this order; first hit wins
var topicKeywords = []struct {
	topic    topic
	keywords []string
}{
	{topicSecurity, []string{"보안", "점수", "security", "score"}},
	{topicDanger, []string{"위험", "f등급", "danger", "f-grade"}},
	{topicAnalyze, []string{"분석", "스캔", "analy", "scan"}},
}

// Responder answers chat input from the canned table. It keeps no state.
type Responder struct {
	table Table
}

func NewResponder(table Table) *Responder {
	return &Responder{table: table}
}

// Respond picks the reply for text given the currently discovered services.
func (r *Responder) Respond(text string, services []discovery.Service) string {
	lowered := strings.ToLower(text)

	if reply, ok := r.companyReply(lowered); ok {
		return reply
	}

	switch detectTopic(lowered) {
	case topicSecurity:
		if len(services) == 0 {
			return "아직 이메일 분석이 완료되지 않았습니다. 'Gmail 분석' 버튼을 클릭하여 가입된 서비스를 확인해 주세요."
		}
		danger := discovery.CountGrade(services, grading.Worst)
		return fmt.Sprintf("현재 %d개의 서비스가 분석되었습니다. %d개의 위험(F등급) 서비스가 발견되어 즉각적인 조치가 필요합니다.", len(services), danger)
	case topicDanger:
		var parts []string
		for _, s := range services {
			if s.Grade == grading.Worst {
				parts = append(parts, fmt.Sprintf("%s(%s)", s.Company, s.Reason))
			}
		}
		if len(parts) == 0 {
			return "현재 위험 등급(F)으로 분류된 서비스가 없습니다."
		}
		return fmt.Sprintf("현재 F등급 위험 서비스는 %d개입니다: %s. 모든 서비스에서 즉시 탈퇴를 권고합니다.", len(parts), strings.Join(parts, ", "))
	case topicAnalyze:
		return "Gmail 받은편지함을 분석하여 '환영', 'Welcome', '가입', '계정 생성' 키워드가 포함된 이메일을 검색합니다. 발견된 서비스는 자동으로 보안 등급이 평가됩니다."
	}

	return r.table.Default
}

// companyReply returns the reply of the longest key contained in lowered.
func (r *Responder) companyReply(lowered string) (string, bool) {
	best, bestLen := -1, 0
	for i, c := range r.table.Companies {
		key := strings.ToLower(c.Key)
		if key == "" || !strings.Contains(lowered, key) {
			continue
		}
		if len(key) > bestLen {
			best, bestLen = i, len(key)
		}
	}
	if best < 0 {
		return "", false
	}
	return r.table.Companies[best].Reply, true
}

func detectTopic(lowered string) topic {
	for _, t := range topicKeywords {
		for _, k := range t.keywords {
			if strings.Contains(lowered, k) {
				return t.topic
			}
		}
	}
	return topicNone
}

package catalog

import "github.com/bryanwahyu/mailguard/internal/application/chat"

// Responses is the canned chat table. Order matters for equal-length key matches.
func Responses() chat.Table {
	return chat.Table{
		Companies: []chat.Canned{
			{Key: "쿠팡", Reply: "구글 메일 분석 결과, 쿠팡에 가입하신 것을 확인했습니다. 해당 기업의 보안 등급은 F입니다. 최근 대규모 개인정보 유출 사고가 발생했습니다. 즉시 탈퇴를 권고합니다."},
			{Key: "레거시쇼핑몰", Reply: "이 기업은 개인정보 유출 이력이 있어 F등급입니다. 서비스가 폐업 상태이므로 즉시 탈퇴를 권고합니다. 개인정보 삭제 요청도 함께 진행하시기 바랍니다."},
			{Key: "해킹피해사이트", Reply: "이 사이트는 대규모 해킹 사고로 인해 F등급입니다. 귀하의 이메일과 비밀번호가 유출되었을 가능성이 높습니다. 탈퇴를 권고하며, 동일 비밀번호를 사용하는 다른 서비스의 비밀번호도 변경하시기 바랍니다."},
			{Key: "페이스북", Reply: "페이스북은 현재 C등급입니다. 비밀번호를 90일 이상 변경하지 않았으며, 2단계 인증이 설정되어 있지 않습니다. 보안 강화를 위해 비밀번호 변경과 2단계 인증 설정을 추천합니다."},
			{Key: "네이버", Reply: "네이버는 A등급으로 매우 안전한 상태입니다. 2단계 인증이 활성화되어 있고, 최근 보안 점검을 완료했습니다."},
			{Key: "카카오", Reply: "카카오는 A등급으로 국내 최고 수준의 보안 시스템을 운영하고 있습니다. 안심하고 사용하셔도 됩니다."},
			{Key: "토스", Reply: "토스는 A등급입니다. 금융 보안 최고 등급을 유지하며 실시간 이상거래 탐지 시스템이 작동 중입니다."},
		},
		Default: "해당 서비스에 대한 구체적인 정보를 분석 중입니다. 다른 서비스에 대해 궁금하신 점이 있으시면 말씀해 주세요.",
	}
}

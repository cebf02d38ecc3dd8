package mailbox

import "strings"

// Matcher decides whether an email looks like a signup notice.
type Matcher struct {
	keywords []string
}

func NewMatcher(keywords []string) Matcher {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return Matcher{keywords: lowered}
}

// Matches reports whether subject or sender contains any keyword, ignoring case.
func (m Matcher) Matches(e Email) bool {
	subject := strings.ToLower(e.Subject)
	sender := strings.ToLower(e.Sender)
	for _, k := range m.keywords {
		if strings.Contains(subject, k) || strings.Contains(sender, k) {
			return true
		}
	}
	return false
}

// Classify maps Matches onto the REGISTER/OTHER labels.
func (m Matcher) Classify(e Email) Classification {
	if m.Matches(e) {
		return ClassRegister
	}
	return ClassOther
}

func (m Matcher) Keywords() []string {
	return append([]string(nil), m.keywords...)
}

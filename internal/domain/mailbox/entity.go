package mailbox

// EmailID identifier type, stable across analysis runs
type EmailID string

// Email is one message in the simulated inbox. Entries are never mutated.
type Email struct {
	ID      EmailID `json:"id"`
	Sender  string  `json:"sender"`
	Subject string  `json:"subject"`
	Date    string  `json:"date"` // yyyy.mm.dd, as shown in the inbox
	Company string  `json:"company"`
}

// Classification enum
type Classification string

const (
	ClassRegister Classification = "REGISTER"
	ClassOther    Classification = "OTHER"
)

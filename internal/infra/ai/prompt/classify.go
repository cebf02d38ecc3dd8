package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/mailguard/internal/domain/ai"
	"github.com/bryanwahyu/mailguard/internal/domain/mailbox"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You classify mailbox messages. For every email decide whether it confirms that the mailbox owner signed up for, registered with, or created an account on a service. You must produce one valid JSON object only (no markdown, no commentary). Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Use uppercase labels only: REGISTER or OTHER.
- Return exactly one result per input id. Never invent ids.
- Welcome mails, account-created notices and signup confirmations are REGISTER. Receipts, newsletters and login alerts are OTHER.

Schema (example with empty values):
{
  "results": [
    {"id": "<string>", "classification": "<REGISTER|OTHER>"}
  ]
}`
}

type emailInput struct {
	ID      mailbox.EmailID `json:"id"`
	Sender  string          `json:"sender"`
	Subject string          `json:"subject"`
}

// GetUserPrompt embeds the emails as a compact JSON array.
func GetUserPrompt(emails []mailbox.Email) (string, error) {
	in := make([]emailInput, 0, len(emails))
	for _, e := range emails {
		in = append(in, emailInput{ID: e.ID, Sender: e.Sender, Subject: e.Subject})
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("failed to marshal emails: %w", err)
	}
	return "Classify these emails and respond with the JSON per schema. Emails: " + string(b), nil
}

type response struct {
	Results []struct {
		ID             mailbox.EmailID `json:"id"`
		Classification string          `json:"classification"`
	} `json:"results"`
}

// ParseResponse decodes the model output, keeping only known ids with a valid label.
func ParseResponse(content string, emails []mailbox.Email) ([]ai.Result, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var resp response
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, fmt.Errorf("invalid classifier output: %w", err)
	}

	known := make(map[mailbox.EmailID]bool, len(emails))
	for _, e := range emails {
		known[e.ID] = true
	}

	out := make([]ai.Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		if !known[r.ID] {
			continue
		}
		switch c := mailbox.Classification(strings.ToUpper(strings.TrimSpace(r.Classification))); c {
		case mailbox.ClassRegister, mailbox.ClassOther:
			out = append(out, ai.Result{ID: r.ID, Classification: c})
			delete(known, r.ID) // first answer wins
		}
	}
	return out, nil
}

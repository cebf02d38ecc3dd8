package ai

import (
	"context"

	"github.com/bryanwahyu/mailguard/internal/domain/mailbox"
)

// Result is the label assigned to one email.
type Result struct {
	ID             mailbox.EmailID        `json:"id"`
	Classification mailbox.Classification `json:"classification"`
}

// Classifier labels emails as signup notices or not.
type Classifier interface {
	Classify(ctx context.Context, emails []mailbox.Email) ([]Result, error)
}

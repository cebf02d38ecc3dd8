package inbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/mailguard/internal/domain/ai"
	"github.com/bryanwahyu/mailguard/internal/domain/mailbox"
	"github.com/bryanwahyu/mailguard/internal/logger"
)

const (
	defaultLimit = 50
	maxLimit     = 100
	dateLayout   = "2006.01.02"
)

// EmailItem is one row of the email listing.
type EmailItem struct {
	ID             mailbox.EmailID         `json:"id"`
	Subject        string                  `json:"subject"`
	Sender         string                  `json:"sender"`
	ReceivedAt     time.Time               `json:"received_at"`
	Classification *mailbox.Classification `json:"classification"`
}

// EmailList is a page of synced emails.
type EmailList struct {
	TotalCount int         `json:"total_count"`
	Emails     []EmailItem `json:"emails"`
}

// ClassifyResponse reports labels plus the ids the primary classifier could not handle.
type ClassifyResponse struct {
	Results   []ai.Result       `json:"results"`
	FailedIDs []mailbox.EmailID `json:"failed_ids"`
}

// Service syncs the inbox and classifies emails.
// Primary is optional (e.g. an LLM); Fallback must always be set.
type Service struct {
	source   mailbox.Source
	primary  ai.Classifier
	fallback ai.Classifier

	mu     sync.Mutex
	emails []mailbox.Email
	labels map[mailbox.EmailID]mailbox.Classification
}

func NewService(source mailbox.Source, primary, fallback ai.Classifier) *Service {
	return &Service{
		source:   source,
		primary:  primary,
		fallback: fallback,
		labels:   make(map[mailbox.EmailID]mailbox.Classification),
	}
}

// Sync reloads the inbox and returns how many emails it holds.
func (s *Service) Sync(ctx context.Context) (int, error) {
	emails, err := s.source.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("sync inbox: %w", err)
	}
	s.mu.Lock()
	s.emails = emails
	s.mu.Unlock()
	logger.Info("inbox synced", zap.Int("count", len(emails)))
	return len(emails), nil
}

// List returns synced emails newest first.
func (s *Service) List(skip, limit int) EmailList {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	s.mu.Lock()
	items := make([]EmailItem, 0, len(s.emails))
	for _, e := range s.emails {
		item := EmailItem{ID: e.ID, Subject: e.Subject, Sender: e.Sender, ReceivedAt: parseDate(e.Date)}
		if c, ok := s.labels[e.ID]; ok {
			c := c
			item.Classification = &c
		}
		items = append(items, item)
	}
	s.mu.Unlock()

	sort.SliceStable(items, func(i, j int) bool { return items[i].ReceivedAt.After(items[j].ReceivedAt) })

	out := EmailList{TotalCount: len(items), Emails: []EmailItem{}}
	if skip >= len(items) {
		return out
	}
	end := skip + limit
	if end > len(items) {
		end = len(items)
	}
	out.Emails = items[skip:end]
	return out
}

// Classify labels emails, falling back to the keyword classifier for anything
// the primary classifier fails on.
func (s *Service) Classify(ctx context.Context, emails []mailbox.Email) (ClassifyResponse, error) {
	resp := ClassifyResponse{Results: []ai.Result{}, FailedIDs: []mailbox.EmailID{}}
	if len(emails) == 0 {
		return resp, nil
	}

	byID := map[mailbox.EmailID]mailbox.Classification{}
	pending := emails
	if s.primary != nil {
		results, err := s.primary.Classify(ctx, emails)
		switch {
		case errors.Is(err, ai.ErrQuotaExceeded):
			logger.Warn("classifier quota exceeded, using keyword fallback", zap.Error(err), zap.Int("emails", len(emails)))
		case err != nil:
			logger.Warn("primary classifier failed, using keyword fallback", zap.Error(err), zap.Int("emails", len(emails)))
		default:
			for _, r := range results {
				byID[r.ID] = r.Classification
			}
		}
		pending = nil
		for _, e := range emails {
			if _, ok := byID[e.ID]; !ok {
				pending = append(pending, e)
				resp.FailedIDs = append(resp.FailedIDs, e.ID)
			}
		}
	}

	if len(pending) > 0 {
		results, err := s.fallback.Classify(ctx, pending)
		if err != nil {
			return ClassifyResponse{}, fmt.Errorf("fallback classifier: %w", err)
		}
		for _, r := range results {
			byID[r.ID] = r.Classification
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range emails {
		c, ok := byID[e.ID]
		if !ok {
			continue
		}
		resp.Results = append(resp.Results, ai.Result{ID: e.ID, Classification: c})
		s.labels[e.ID] = c
	}
	return resp, nil
}

// KeywordClassifier implements ai.Classifier with the signup keyword matcher.
type KeywordClassifier struct {
	Matcher mailbox.Matcher
}

func (k KeywordClassifier) Classify(_ context.Context, emails []mailbox.Email) ([]ai.Result, error) {
	out := make([]ai.Result, 0, len(emails))
	for _, e := range emails {
		out = append(out, ai.Result{ID: e.ID, Classification: k.Matcher.Classify(e)})
	}
	return out, nil
}

func parseDate(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

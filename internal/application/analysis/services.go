package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/mailguard/internal/application"
	"github.com/bryanwahyu/mailguard/internal/domain/discovery"
	"github.com/bryanwahyu/mailguard/internal/domain/grading"
	"github.com/bryanwahyu/mailguard/internal/domain/mailbox"
	"github.com/bryanwahyu/mailguard/internal/logger"
	"github.com/bryanwahyu/mailguard/internal/metrics"
)

const greeting = "안녕하세요! PrivacyGuard AI입니다. '분석' 버튼을 클릭하여 Gmail 받은편지함을 스캔하고 가입된 서비스를 확인하세요."

// Responder produces the assistant reply for a chat message.
type Responder interface {
	Respond(text string, services []discovery.Service) string
}

// Deps are the collaborators of a Store. Recorder is optional.
type Deps struct {
	Source    mailbox.Source
	Directory grading.Directory
	Matcher   mailbox.Matcher
	Responder Responder
	Recorder  discovery.Recorder
	Clock     application.Clock
}

type Options struct {
	ItemDelay    time.Duration
	SummaryDelay time.Duration
	Owner        string // mailbox address copied onto every discovered service
}

// Store holds the dashboard state and runs the simulated inbox analysis.
// Store is safe for concurrent use; at most one analysis runs at a time.
type Store struct {
	deps Deps
	opts Options

	wg sync.WaitGroup

	mu        sync.Mutex
	services  []discovery.Service
	analyzing bool
	progress  float64
	warnings  []string
	chat      []discovery.ChatMessage
	selected  mailbox.EmailID
}

func NewStore(deps Deps, opts Options) *Store {
	if deps.Clock == nil {
		deps.Clock = application.SystemClock{}
	}
	s := &Store{deps: deps, opts: opts}
	s.appendChat(discovery.RoleAssistant, greeting)
	return s
}

//
// ==== USE CASES ====
//

// Analyze runs one analysis to completion on the calling goroutine.
func (s *Store) Analyze(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	s.wg.Add(1)
	defer s.wg.Done()
	return s.run(ctx)
}

// Start launches an analysis in the background, detached from any request context.
func (s *Store) Start() error {
	if err := s.begin(); err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.run(context.Background()); err != nil {
			logger.Error("background analysis failed", zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until no analysis is running.
func (s *Store) Wait() {
	s.wg.Wait()
}

// begin moves idle -> analyzing and resets the previous run.
func (s *Store) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analyzing {
		return discovery.ErrAlreadyAnalyzing
	}
	s.analyzing = true
	s.progress = 0
	s.services = nil
	s.warnings = nil
	s.selected = ""
	metrics.AnalysesRunning.Inc()
	return nil
}

func (s *Store) run(ctx context.Context) (err error) {
	started := s.deps.Clock.Now()
	defer func() {
		if err != nil {
			s.mu.Lock()
			s.analyzing = false
			s.mu.Unlock()
			metrics.AnalysesRunning.Dec()
			metrics.AnalysesTotal.WithLabelValues("failed").Inc()
		}
	}()

	emails, err := s.deps.Source.List(ctx)
	if err != nil {
		return fmt.Errorf("list inbox: %w", err)
	}
	logger.Info("analysis started", zap.Int("emails", len(emails)))

	for i, e := range emails {
		if err := s.deps.Clock.Sleep(ctx, s.opts.ItemDelay); err != nil {
			return fmt.Errorf("analysis interrupted at email %s: %w", e.ID, err)
		}

		s.mu.Lock()
		if s.deps.Matcher.Matches(e) {
			profile := grading.Resolve(s.deps.Directory, e.Company)
			s.services = append(s.services, s.discover(e, profile))
			metrics.ServicesDiscovered.WithLabelValues(string(profile.Grade)).Inc()

			if profile.Grade == grading.Worst {
				msg := fmt.Sprintf("구글 메일을 분석한 결과, %s에 가입하신 것을 확인했습니다. 해당 기업의 보안 등급은 F입니다. 사유: %s. 탈퇴를 권고합니다.", e.Company, profile.Reason)
				s.warnings = append(s.warnings, msg)
				s.appendChatLocked(discovery.RoleAssistant, msg)
			}
		}
		s.progress = float64(i+1) / float64(len(emails)) * 100
		s.mu.Unlock()
	}

	if err := s.deps.Clock.Sleep(ctx, s.opts.SummaryDelay); err != nil {
		return fmt.Errorf("analysis interrupted before summary: %w", err)
	}

	s.mu.Lock()
	s.progress = 100
	found := copyServices(s.services)
	dangerous := discovery.CountGrade(found, grading.Worst)
	s.appendChatLocked(discovery.RoleAssistant, fmt.Sprintf(
		"분석 완료! 총 %d개의 가입 서비스를 발견했습니다. %d개의 위험(F등급) 서비스가 있어 즉각적인 조치가 필요합니다.",
		len(found), dangerous))
	s.analyzing = false
	s.mu.Unlock()

	metrics.AnalysesRunning.Dec()
	metrics.AnalysesTotal.WithLabelValues("completed").Inc()
	logger.Info("analysis finished",
		zap.Int("scanned", len(emails)),
		zap.Int("discovered", len(found)),
		zap.Int("dangerous", dangerous),
	)

	s.record(ctx, discovery.Run{
		StartedAt:  started,
		FinishedAt: s.deps.Clock.Now(),
		Scanned:    len(emails),
		Services:   found,
	})
	return nil
}

func (s *Store) discover(e mailbox.Email, p grading.Profile) discovery.Service {
	return discovery.Service{
		ID:          e.ID,
		Company:     e.Company,
		Grade:       p.Grade,
		LastAccess:  e.Date,
		Email:       s.opts.Owner,
		RiskFactors: append([]string{}, p.RiskFactors...),
		Reason:      p.Reason,
		Category:    p.Category,
		Domain:      strings.ToLower(e.Sender) + ".com",
		Score:       p.Score,
		Features:    p.Features,
	}
}

// record hands a finished run to the recorder; failures never touch store state.
func (s *Store) record(ctx context.Context, run discovery.Run) {
	if s.deps.Recorder == nil {
		return
	}
	if _, err := s.deps.Recorder.Record(ctx, run); err != nil {
		metrics.ReportsRecorded.WithLabelValues("error").Inc()
		logger.Warn("failed to record analysis report", zap.Error(err))
		return
	}
	metrics.ReportsRecorded.WithLabelValues("ok").Inc()
}

// Ask appends the user's message and the canned reply to the transcript.
func (s *Store) Ask(text string) (discovery.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return discovery.ChatMessage{}, discovery.ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendChatLocked(discovery.RoleUser, text)
	reply := s.deps.Responder.Respond(text, copyServices(s.services))
	return s.appendChatLocked(discovery.RoleAssistant, reply), nil
}

// Select marks a discovered service for the detail view.
func (s *Store) Select(id mailbox.EmailID) (discovery.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, svc := range s.services {
		if svc.ID == id {
			s.selected = id
			return copyService(svc), nil
		}
	}
	return discovery.Service{}, fmt.Errorf("service %s: %w", id, discovery.ErrNotFound)
}

func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
}

//
// ==== QUERIES ====
//

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() discovery.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := discovery.Snapshot{
		Services:  copyServices(s.services),
		Analyzing: s.analyzing,
		Progress:  s.progress,
		Warnings:  append([]string{}, s.warnings...),
		Chat:      append([]discovery.ChatMessage{}, s.chat...),
	}
	if sel, ok := s.findLocked(s.selected); ok {
		snap.Selected = &sel
	}
	return snap
}

// Service returns one discovered service by id.
func (s *Store) Service(id mailbox.EmailID) (discovery.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc, ok := s.findLocked(id); ok {
		return svc, nil
	}
	return discovery.Service{}, fmt.Errorf("service %s: %w", id, discovery.ErrNotFound)
}

// Chat returns the transcript in order.
func (s *Store) Chat() []discovery.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]discovery.ChatMessage{}, s.chat...)
}

// Overview aggregates the discovered services for the dashboard header.
func (s *Store) Overview() grading.Overview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return grading.Summarize(discovery.Grades(s.services))
}

// helpers

func (s *Store) findLocked(id mailbox.EmailID) (discovery.Service, bool) {
	if id == "" {
		return discovery.Service{}, false
	}
	for _, svc := range s.services {
		if svc.ID == id {
			return copyService(svc), true
		}
	}
	return discovery.Service{}, false
}

func (s *Store) appendChat(role discovery.Role, content string) discovery.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendChatLocked(role, content)
}

func (s *Store) appendChatLocked(role discovery.Role, content string) discovery.ChatMessage {
	msg := discovery.ChatMessage{ID: uuid.NewString(), Role: role, Content: content}
	s.chat = append(s.chat, msg)
	metrics.ChatMessages.WithLabelValues(string(role)).Inc()
	return msg
}

func copyService(svc discovery.Service) discovery.Service {
	svc.RiskFactors = append([]string{}, svc.RiskFactors...)
	return svc
}

func copyServices(in []discovery.Service) []discovery.Service {
	out := make([]discovery.Service, len(in))
	for i, svc := range in {
		out[i] = copyService(svc)
	}
	return out
}

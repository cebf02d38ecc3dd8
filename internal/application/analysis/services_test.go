package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/mailguard/internal/application/chat"
	"github.com/bryanwahyu/mailguard/internal/domain/discovery"
	"github.com/bryanwahyu/mailguard/internal/domain/grading"
	"github.com/bryanwahyu/mailguard/internal/domain/mailbox"
	"github.com/bryanwahyu/mailguard/internal/infra/catalog"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	onSleep func()
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	hook := c.onSleep
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	return ctx.Err()
}

type fakeRecorder struct {
	runs []discovery.Run
	err  error
}

func (r *fakeRecorder) Record(_ context.Context, run discovery.Run) (*discovery.Report, error) {
	r.runs = append(r.runs, run)
	if r.err != nil {
		return nil, r.err
	}
	return &discovery.Report{ID: "r1"}, nil
}

type failingSource struct{}

func (failingSource) List(context.Context) ([]mailbox.Email, error) {
	return nil, errors.New("inbox offline")
}

func newTestStore(clock *fakeClock, rec discovery.Recorder) *Store {
	deps := Deps{
		Source:    catalog.Inbox{},
		Directory: catalog.Directory{},
		Matcher:   mailbox.NewMatcher(catalog.Keywords),
		Responder: chat.NewResponder(catalog.Responses()),
		Clock:     clock,
	}
	if rec != nil {
		deps.Recorder = rec
	}
	return NewStore(deps, Options{
		ItemDelay:    800 * time.Millisecond,
		SummaryDelay: 500 * time.Millisecond,
		Owner:        "user@gmail.com",
	})
}

func TestNewStore_Greeting(t *testing.T) {
	s := newTestStore(&fakeClock{}, nil)

	snap := s.Snapshot()
	require.Len(t, snap.Chat, 1)
	assert.Equal(t, discovery.RoleAssistant, snap.Chat[0].Role)
	assert.False(t, snap.Analyzing)
	assert.Zero(t, snap.Progress)
	assert.Empty(t, snap.Services)
}

func TestAnalyze_DiscoversKeywordSubsetInOrder(t *testing.T) {
	clock := &fakeClock{}
	s := newTestStore(clock, nil)

	require.NoError(t, s.Analyze(context.Background()))

	emails, _ := catalog.Inbox{}.List(context.Background())
	matcher := mailbox.NewMatcher(catalog.Keywords)
	var want []mailbox.EmailID
	for _, e := range emails {
		if matcher.Matches(e) {
			want = append(want, e.ID)
		}
	}

	snap := s.Snapshot()
	var got []mailbox.EmailID
	for _, svc := range snap.Services {
		got = append(got, svc.ID)
	}
	assert.Equal(t, want, got)
	assert.False(t, snap.Analyzing)
	assert.Equal(t, float64(100), snap.Progress)

	// one delay per email plus the summary delay
	require.Len(t, clock.sleeps, len(emails)+1)
	assert.Equal(t, 800*time.Millisecond, clock.sleeps[0])
	assert.Equal(t, 500*time.Millisecond, clock.sleeps[len(emails)])
}

func TestAnalyze_GradesFollowProfilesOrDefault(t *testing.T) {
	s := newTestStore(&fakeClock{}, nil)
	require.NoError(t, s.Analyze(context.Background()))

	for _, svc := range s.Snapshot().Services {
		want := grading.DefaultProfile()
		if p, ok := (catalog.Directory{}).Lookup(svc.Company); ok {
			want = p
		}
		assert.Equal(t, want.Grade, svc.Grade, svc.Company)
		assert.Equal(t, want.Score, svc.Score, svc.Company)
		assert.Equal(t, "user@gmail.com", svc.Email)
	}

	gh, err := s.Service("9")
	require.NoError(t, err)
	assert.Equal(t, grading.GradeB, gh.Grade)
	assert.Equal(t, "github.com", gh.Domain)
	assert.Equal(t, "보안 정보 수집 중", gh.Reason)
}

func TestAnalyze_WarningsAndSummary(t *testing.T) {
	s := newTestStore(&fakeClock{}, nil)
	require.NoError(t, s.Analyze(context.Background()))

	snap := s.Snapshot()
	require.Len(t, snap.Warnings, 3)
	assert.Contains(t, snap.Warnings[0], "쿠팡")
	assert.Contains(t, snap.Warnings[1], "레거시쇼핑몰")
	assert.Contains(t, snap.Warnings[2], "해킹피해사이트")

	// greeting + 3 warnings + summary
	require.Len(t, snap.Chat, 5)
	assert.Equal(t, snap.Warnings[0], snap.Chat[1].Content)
	assert.Equal(t,
		"분석 완료! 총 8개의 가입 서비스를 발견했습니다. 3개의 위험(F등급) 서비스가 있어 즉각적인 조치가 필요합니다.",
		snap.Chat[4].Content)
}

func TestAnalyze_ProgressReaches100OnlyAtEnd(t *testing.T) {
	clock := &fakeClock{}
	s := newTestStore(clock, nil)

	var observed []float64
	clock.onSleep = func() { observed = append(observed, s.Snapshot().Progress) }

	require.NoError(t, s.Analyze(context.Background()))

	emails, _ := catalog.Inbox{}.List(context.Background())
	require.Len(t, observed, len(emails)+1)
	for i := 0; i < len(emails); i++ {
		assert.Less(t, observed[i], float64(100), "before item %d", i)
		if i > 0 {
			assert.Greater(t, observed[i], observed[i-1])
		}
	}
	assert.Equal(t, float64(100), observed[len(emails)])
}

func TestAnalyze_RejectsConcurrentRun(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 16)
	clock := &fakeClock{}
	clock.onSleep = func() {
		entered <- struct{}{}
		<-release
	}
	s := newTestStore(clock, nil)

	require.NoError(t, s.Start())
	<-entered

	assert.True(t, s.Snapshot().Analyzing)
	assert.ErrorIs(t, s.Start(), discovery.ErrAlreadyAnalyzing)
	assert.ErrorIs(t, s.Analyze(context.Background()), discovery.ErrAlreadyAnalyzing)

	close(release)
	s.Wait()
	assert.False(t, s.Snapshot().Analyzing)
	assert.Len(t, s.Snapshot().Services, 8)
}

func TestAnalyze_ResetsPreviousRun(t *testing.T) {
	s := newTestStore(&fakeClock{}, nil)
	require.NoError(t, s.Analyze(context.Background()))
	_, err := s.Select("2")
	require.NoError(t, err)

	require.NoError(t, s.Analyze(context.Background()))

	snap := s.Snapshot()
	assert.Len(t, snap.Services, 8, "services are not duplicated across runs")
	assert.Len(t, snap.Warnings, 3)
	assert.Nil(t, snap.Selected)
	// transcript keeps growing: greeting + 2 * (3 warnings + summary)
	assert.Len(t, snap.Chat, 9)
}

func TestAnalyze_CancelledContextStopsRun(t *testing.T) {
	s := newTestStore(&fakeClock{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Analyze(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, s.Snapshot().Analyzing)
	assert.NoError(t, s.Analyze(context.Background()), "store returns to idle")
}

func TestAnalyze_SourceError(t *testing.T) {
	s := NewStore(Deps{
		Source:    failingSource{},
		Matcher:   mailbox.NewMatcher(catalog.Keywords),
		Responder: chat.NewResponder(catalog.Responses()),
		Clock:     &fakeClock{},
	}, Options{})

	assert.ErrorContains(t, s.Analyze(context.Background()), "inbox offline")
	assert.False(t, s.Snapshot().Analyzing)
}

func TestAnalyze_RecordsRun(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestStore(&fakeClock{}, rec)

	require.NoError(t, s.Analyze(context.Background()))

	require.Len(t, rec.runs, 1)
	assert.Equal(t, 9, rec.runs[0].Scanned)
	assert.Len(t, rec.runs[0].Services, 8)
	assert.True(t, rec.runs[0].FinishedAt.After(rec.runs[0].StartedAt))
}

func TestAnalyze_RecorderFailureIsNotFatal(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("db down")}
	s := newTestStore(&fakeClock{}, rec)

	require.NoError(t, s.Analyze(context.Background()))
	assert.Len(t, s.Snapshot().Services, 8)
}

func TestAsk(t *testing.T) {
	s := newTestStore(&fakeClock{}, nil)

	_, err := s.Ask("   ")
	assert.ErrorIs(t, err, discovery.ErrEmptyMessage)

	reply, err := s.Ask("쿠팡 어때?")
	require.NoError(t, err)
	assert.Equal(t, discovery.RoleAssistant, reply.Role)
	assert.Contains(t, reply.Content, "쿠팡")

	chatLog := s.Chat()
	require.Len(t, chatLog, 3)
	assert.Equal(t, discovery.RoleUser, chatLog[1].Role)
	assert.Equal(t, "쿠팡 어때?", chatLog[1].Content)
	assert.Equal(t, reply, chatLog[2])
	assert.NotEqual(t, chatLog[1].ID, chatLog[2].ID)
}

func TestAsk_UsesCurrentServices(t *testing.T) {
	s := newTestStore(&fakeClock{}, nil)
	require.NoError(t, s.Analyze(context.Background()))

	reply, err := s.Ask("위험한 서비스 알려줘")
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "3개")
}

func TestSelect(t *testing.T) {
	s := newTestStore(&fakeClock{}, nil)

	_, err := s.Select("1")
	assert.ErrorIs(t, err, discovery.ErrNotFound)

	require.NoError(t, s.Analyze(context.Background()))
	svc, err := s.Select("4")
	require.NoError(t, err)
	assert.Equal(t, "페이스북", svc.Company)
	require.NotNil(t, s.Snapshot().Selected)
	assert.Equal(t, mailbox.EmailID("4"), s.Snapshot().Selected.ID)

	s.ClearSelection()
	assert.Nil(t, s.Snapshot().Selected)

	_, err = s.Service("8")
	assert.ErrorIs(t, err, discovery.ErrNotFound, "non-matching email is never discovered")
}

func TestOverview(t *testing.T) {
	s := newTestStore(&fakeClock{}, nil)
	assert.Equal(t, grading.GradeNone, s.Overview().Grade)

	require.NoError(t, s.Analyze(context.Background()))
	o := s.Overview()
	// F,A,A,C,A,F,F,B = 20+100+100+60+100+20+20+80 = 500 / 8 = 62.5 -> 63
	assert.Equal(t, 8, o.Total)
	assert.Equal(t, 4, o.Safe)
	assert.Equal(t, 1, o.Warning)
	assert.Equal(t, 3, o.Danger)
	assert.Equal(t, 63, o.Score)
	assert.Equal(t, grading.GradeC, o.Grade)
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := newTestStore(&fakeClock{}, nil)
	require.NoError(t, s.Analyze(context.Background()))

	snap := s.Snapshot()
	snap.Services[0].RiskFactors[0] = "mutated"
	snap.Chat[0].Content = "mutated"

	again := s.Snapshot()
	assert.NotEqual(t, "mutated", again.Services[0].RiskFactors[0])
	assert.NotEqual(t, "mutated", again.Chat[0].Content)
}

package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jjudge-oj/contestjudge/internal/executor"
	"github.com/jjudge-oj/contestjudge/internal/store"
	"github.com/jjudge-oj/contestjudge/types"
)

type fakeContests struct {
	mu       sync.Mutex
	nextID   int
	contests map[int]types.Contest
}

func newFakeContests(contests ...types.Contest) *fakeContests {
	f := &fakeContests{contests: make(map[int]types.Contest)}
	for _, c := range contests {
		f.contests[c.ID] = c
		if c.ID > f.nextID {
			f.nextID = c.ID
		}
	}
	return f
}

func (f *fakeContests) List(_ context.Context, offset, limit int) ([]types.Contest, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0, len(f.contests))
	for id := range f.contests {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var out []types.Contest
	for i, id := range ids {
		if i >= offset && len(out) < limit {
			out = append(out, f.contests[id])
		}
	}
	return out, len(ids), nil
}

func (f *fakeContests) Get(_ context.Context, id int) (types.Contest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contests[id]
	if !ok {
		return types.Contest{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeContests) Create(_ context.Context, c types.Contest) (types.Contest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	f.contests[c.ID] = c
	return c, nil
}

func (f *fakeContests) Update(_ context.Context, c types.Contest) (types.Contest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.contests[c.ID]; !ok {
		return types.Contest{}, store.ErrNotFound
	}
	f.contests[c.ID] = c
	return c, nil
}

func (f *fakeContests) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.contests[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.contests, id)
	return nil
}

type fakeQuestions struct {
	mu        sync.Mutex
	nextID    int
	questions map[int]types.Question
}

func newFakeQuestions(questions ...types.Question) *fakeQuestions {
	f := &fakeQuestions{questions: make(map[int]types.Question)}
	for _, q := range questions {
		f.questions[q.ID] = q
		if q.ID > f.nextID {
			f.nextID = q.ID
		}
	}
	return f
}

func (f *fakeQuestions) ListByContest(_ context.Context, contestID int) ([]types.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Question
	for _, q := range f.questions {
		if q.ContestID == contestID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeQuestions) Get(_ context.Context, id int) (types.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return types.Question{}, store.ErrNotFound
	}
	return q, nil
}

func (f *fakeQuestions) Create(_ context.Context, q types.Question) (types.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	q.ID = f.nextID
	f.questions[q.ID] = q
	return q, nil
}

func (f *fakeQuestions) Update(_ context.Context, q types.Question) (types.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.questions[q.ID]; !ok {
		return types.Question{}, store.ErrNotFound
	}
	f.questions[q.ID] = q
	return q, nil
}

func (f *fakeQuestions) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.questions, id)
	return nil
}

type sessionKey struct{ userID, contestID int }

type fakeSessions struct {
	mu      sync.Mutex
	records map[sessionKey]types.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{records: make(map[sessionKey]types.Session)}
}

func (f *fakeSessions) Get(_ context.Context, userID, contestID int) (types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[sessionKey{userID, contestID}]
	if !ok {
		return types.Session{}, store.ErrNotFound
	}
	return rec, nil
}

func (f *fakeSessions) Start(_ context.Context, s types.Session) (types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := sessionKey{s.UserID, s.ContestID}
	if rec, ok := f.records[key]; ok && rec.Status == types.SessionEnded {
		return types.Session{}, store.ErrConflict
	}
	s.Status = types.SessionStarted
	f.records[key] = s
	return s, nil
}

func (f *fakeSessions) End(_ context.Context, userID, contestID int, reason types.EndReason, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := sessionKey{userID, contestID}
	rec, ok := f.records[key]
	if !ok {
		return false, store.ErrNotFound
	}
	if rec.Status == types.SessionEnded {
		return false, nil
	}
	rec.Status = types.SessionEnded
	rec.EndReason = reason
	rec.EndedAt = &at
	f.records[key] = rec
	return true, nil
}

func (f *fakeSessions) ListRunning(_ context.Context) ([]types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Session
	for _, rec := range f.records {
		if rec.Status == types.SessionStarted {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeSessions) put(s types.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[sessionKey{s.UserID, s.ContestID}] = s
}

type fakeSubmissions struct {
	mu      sync.Mutex
	records []types.Submission
}

func (f *fakeSubmissions) Create(_ context.Context, s types.Submission) (types.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = len(f.records) + 1
	f.records = append(f.records, s)
	return s, nil
}

func (f *fakeSubmissions) ListByParticipant(_ context.Context, contestID, userID int) ([]types.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Submission
	for _, s := range f.records {
		if s.ContestID == contestID && s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubmissions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeExecutor answers each request through fn and records it.
type fakeExecutor struct {
	mu       sync.Mutex
	requests []executor.Request
	fn       func(req executor.Request) (executor.Result, error)
}

func (f *fakeExecutor) Execute(_ context.Context, req executor.Request) (executor.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.fn(req)
}

func stdout(s string) executor.Result {
	return executor.Result{Run: &executor.RunResult{Stdout: &s}}
}

type fakeUsers struct {
	users map[int]types.User
}

func (f *fakeUsers) GetByID(_ context.Context, id int) (types.User, error) {
	u, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, u types.User) (types.User, error) {
	if _, err := f.GetByEmail(context.Background(), u.Email); err == nil {
		return types.User{}, store.ErrConflict
	}
	u.ID = len(f.users) + 1
	f.users[u.ID] = u
	return u, nil
}

type fakeAttempts struct {
	byUser map[int][]types.Session
}

func (f *fakeAttempts) ListByUser(_ context.Context, userID int) ([]types.Session, error) {
	return f.byUser[userID], nil
}

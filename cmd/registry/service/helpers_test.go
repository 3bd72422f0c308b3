package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/qldp/registry/common/config"
	"github.com/qldp/registry/common/filter"
	"github.com/qldp/registry/common/indexsync"
	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/models"
	"github.com/qldp/registry/common/queue"
	"github.com/qldp/registry/common/repository"
	"github.com/qldp/registry/common/search"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// recordingDispatcher captures synchronizations instead of publishing them
type recordingDispatcher struct {
	mu       sync.Mutex
	people   []int64
	statuses []string
	replies  []int64
}

func (d *recordingDispatcher) PersonSaved(_ context.Context, p *models.Person) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.people = append(d.people, p.ID)
}

func (d *recordingDispatcher) PetitionStatusChanged(_ context.Context, p *models.Petition) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses = append(d.statuses, "petition:"+p.Body.Status.String())
}

func (d *recordingDispatcher) ReplyCreated(_ context.Context, r *models.Reply) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replies = append(d.replies, r.ID)
}

func (d *recordingDispatcher) ReplyStatusChanged(_ context.Context, r *models.Reply) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses = append(d.statuses, "reply:"+r.Body.Status.String())
}

var errIndexDown = errors.New("index unavailable")

// failingIndex rejects every call
type failingIndex struct {
	mu    sync.Mutex
	calls int
}

func (f *failingIndex) Get(context.Context, string, int64) ([]byte, bool, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return nil, false, errIndexDown
}

func (f *failingIndex) Save(context.Context, string, int64, []byte) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return errIndexDown
}

func (f *failingIndex) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// unreachableQueue stalls each publish until released, then fails it
type unreachableQueue struct {
	gate chan struct{}
}

func newUnreachableQueue() *unreachableQueue {
	return &unreachableQueue{gate: make(chan struct{})}
}

func (q *unreachableQueue) Publish(ctx context.Context, _ string, _ string, _ []byte) error {
	select {
	case <-q.gate:
		return errors.New("connection refused")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *unreachableQueue) Subscribe(context.Context, string, queue.MessageHandler) error { return nil }
func (q *unreachableQueue) Close() error                                                  { return nil }

// startPipeline runs a real synchronizer and worker over idx
func startPipeline(t *testing.T, idx search.Index) indexsync.Dispatcher {
	t.Helper()
	q := queue.NewMemoryQueue(64, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	s := indexsync.NewSynchronizer(q, 64, logger.Discard(), nil)
	t.Cleanup(func() {
		s.Close()
		cancel()
		_ = q.Close()
	})

	w := indexsync.NewWorker(idx, q, 1, logger.Discard(), nil)
	require.NoError(t, w.Start(ctx))
	return s
}

// sequenceGenerator returns codes in order, then repeats the last one
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	calls int
}

func (g *sequenceGenerator) Generate(int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	if i >= len(g.codes) {
		i = len(g.codes) - 1
	}
	g.calls++
	return g.codes[i]
}

var defaultCodes = config.CodeConfig{Length: 8, MaxAttempts: 3}

func newTempAbsentService(t *testing.T, store repository.Store, codes CodeGenerator, sync indexsync.Dispatcher, cfg config.CodeConfig) *TempAbsentService {
	t.Helper()
	evaluator, err := filter.NewEvaluator()
	require.NoError(t, err)
	return NewTempAbsentService(store, codes, cfg, evaluator, sync, logger.Discard(), nil)
}

// household seeds a household with one resident holding cardNumber
func household(store *repository.MemoryStore, cardNumber string) (*models.Household, *models.Person) {
	h := store.AddHousehold(models.Household{HouseholdCode: "H-" + cardNumber})
	p := store.AddPerson(models.Person{PeopleCode: "P-" + cardNumber, FullName: "Resident " + cardNumber})
	store.AddIDCard(cardNumber, p.ID)
	store.AddFamilyMember(models.FamilyMember{PersonID: p.ID, HouseholdID: h.ID, HostRelation: "host"})
	return h, p
}

// view runs fn in a read transaction
func view(t *testing.T, store repository.Store, fn func(r *repository.Repositories)) {
	t.Helper()
	require.NoError(t, store.RunInTx(context.Background(), func(r *repository.Repositories) error {
		fn(r)
		return nil
	}))
}

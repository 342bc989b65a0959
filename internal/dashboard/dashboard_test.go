package dashboard_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/dashboard"
	"github.com/dharsanguruparan/CircularNest/internal/model"
	"github.com/dharsanguruparan/CircularNest/internal/notify"
)

// fakeAPI serves canned lists and records mutating calls.
type fakeAPI struct {
	mu       sync.Mutex
	pending  []model.Circular
	approved []model.Circular
	rejected []model.Circular
	mine     []model.Circular

	pendingErr  error
	approvedErr error
	actionErr   error

	calls []string
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) ListPending(_ context.Context, status model.Status) ([]model.PendingUpload, error) {
	f.record("list pending " + string(status))
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Circular(nil), f.pending...), f.pendingErr
}

func (f *fakeAPI) ListCirculars(_ context.Context, q apiclient.CircularQuery) (*apiclient.CircularList, error) {
	f.record("list circulars " + string(q.Status))
	f.mu.Lock()
	defer f.mu.Unlock()
	switch q.Status {
	case model.StatusApproved:
		if f.approvedErr != nil {
			return nil, f.approvedErr
		}
		return &apiclient.CircularList{Circulars: append([]model.Circular(nil), f.approved...)}, nil
	case model.StatusRejected:
		return &apiclient.CircularList{Circulars: append([]model.Circular(nil), f.rejected...)}, nil
	}
	return &apiclient.CircularList{}, nil
}

func (f *fakeAPI) MySubmissions(context.Context) ([]model.PendingUpload, error) {
	f.record("my submissions")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Circular(nil), f.mine...), nil
}

func (f *fakeAPI) ApprovePending(_ context.Context, id, _ string) error {
	f.record("approve " + id)
	return f.actionErr
}

func (f *fakeAPI) RejectPending(_ context.Context, id, _ string) error {
	f.record("reject " + id)
	return f.actionErr
}

func (f *fakeAPI) DeletePending(_ context.Context, id string) error {
	f.record("delete pending " + id)
	return f.actionErr
}

func (f *fakeAPI) DeleteCircular(_ context.Context, id string) error {
	f.record("delete circular " + id)
	return f.actionErr
}

func rec(id string, status model.Status) model.Circular {
	return model.Circular{ID: id, Title: "Notice " + id, Status: status, Category: model.CategoryEducation}
}

func ids(records []model.Circular) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestAdmin_Load(t *testing.T) {
	t.Run("should reconcile three sections with pending precedence", func(t *testing.T) {
		// given
		api := &fakeAPI{
			pending:  []model.Circular{rec("x", model.StatusPending), rec("p1", "")},
			approved: []model.Circular{rec("x", model.StatusApproved), rec("a1", model.StatusApproved), rec("legacy", "")},
			rejected: []model.Circular{rec("x", model.StatusRejected), rec("r1", model.StatusRejected)},
		}
		admin := dashboard.NewAdmin(api, nil)

		// when
		err := admin.Load(context.Background())

		// then
		require.NoError(t, err)
		b := admin.Buckets()
		require.Equal(t, []string{"x", "p1"}, ids(b.Pending))
		require.Equal(t, []string{"a1", "legacy"}, ids(b.Approved))
		require.Equal(t, []string{"r1"}, ids(b.Rejected))
		require.Equal(t, dashboard.Stats{Total: 5, Pending: 2, Approved: 2, Rejected: 1}, admin.Stats())
		require.True(t, admin.Loaded())
	})

	t.Run("should render other sections when one fails", func(t *testing.T) {
		// given
		api := &fakeAPI{
			pendingErr: &apiclient.APIError{StatusCode: 500, Message: "pending store down"},
			approved:   []model.Circular{rec("a1", model.StatusApproved)},
			rejected:   []model.Circular{rec("r1", model.StatusRejected)},
		}
		notes := notify.NewRecorder()
		admin := dashboard.NewAdmin(api, notes)

		// when
		err := admin.Load(context.Background())

		// then
		require.Error(t, err)
		b := admin.Buckets()
		require.Empty(t, b.Pending)
		require.Equal(t, []string{"a1"}, ids(b.Approved))
		require.Equal(t, []string{"r1"}, ids(b.Rejected))
		require.Equal(t, []string{"pending store down"}, notes.Errors())
	})

	t.Run("should not notify on session expiry", func(t *testing.T) {
		api := &fakeAPI{pendingErr: apiclient.ErrUnauthorized, approvedErr: apiclient.ErrUnauthorized}
		notes := notify.NewRecorder()
		admin := dashboard.NewAdmin(api, notes)

		require.Error(t, admin.Load(context.Background()))
		require.Empty(t, notes.Errors())
	})
}

func TestAdmin_Delete(t *testing.T) {
	api := &fakeAPI{
		pending:  []model.Circular{rec("p1", model.StatusPending)},
		approved: []model.Circular{rec("a1", model.StatusApproved)},
	}
	admin := dashboard.NewAdmin(api, nil)
	require.NoError(t, admin.Load(context.Background()))

	require.NoError(t, admin.Delete(context.Background(), "p1"))
	require.NoError(t, admin.Delete(context.Background(), "a1"))
	require.ErrorIs(t, admin.Delete(context.Background(), "ghost"), dashboard.ErrUnknownRecord)

	require.Zero(t, admin.Stats().Total)
	require.Contains(t, api.Calls(), "delete pending p1")
	require.Contains(t, api.Calls(), "delete circular a1")
}

func TestReview_ApproveRemovesOptimistically(t *testing.T) {
	// given
	api := &fakeAPI{pending: []model.Circular{rec("p1", model.StatusPending), rec("y", model.StatusPending), rec("p3", model.StatusPending)}}
	notes := notify.NewRecorder()
	review := dashboard.NewReview(api, notes)
	require.NoError(t, review.Load(context.Background()))
	require.Len(t, review.Queue(), 3)

	// when
	err := review.Approve(context.Background(), "y", "Looks good")

	// then
	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p3"}, ids(review.Queue()))
	require.Equal(t, []string{"list pending pending", "approve y"}, api.Calls())
	require.Equal(t, []notify.Message{{Level: notify.LevelSuccess, Text: "Circular approved and published"}}, notes.Messages())
}

func TestReview_FailedActionKeepsRecord(t *testing.T) {
	api := &fakeAPI{pending: []model.Circular{rec("p1", model.StatusPending)}}
	notes := notify.NewRecorder()
	review := dashboard.NewReview(api, notes)
	require.NoError(t, review.Load(context.Background()))

	api.actionErr = &apiclient.APIError{StatusCode: 409, Message: "already reviewed"}
	err := review.Reject(context.Background(), "p1", "")

	require.Error(t, err)
	require.Equal(t, []string{"p1"}, ids(review.Queue()))
	require.Equal(t, []string{"already reviewed"}, notes.Errors())
}

func TestReview_NextLoadReplacesOptimisticState(t *testing.T) {
	t.Run("should bring back a record the server still reports pending", func(t *testing.T) {
		// given
		api := &fakeAPI{pending: []model.Circular{rec("p1", model.StatusPending), rec("p2", model.StatusPending)}}
		review := dashboard.NewReview(api, nil)
		require.NoError(t, review.Load(context.Background()))
		require.NoError(t, review.Approve(context.Background(), "p1", ""))
		require.Equal(t, []string{"p2"}, ids(review.Queue()))

		// when the server has not caught up yet
		require.NoError(t, review.Load(context.Background()))

		// then the server's view wins
		require.Equal(t, []string{"p1", "p2"}, ids(review.Queue()))
	})

	t.Run("should keep the record gone once the server agrees", func(t *testing.T) {
		api := &fakeAPI{pending: []model.Circular{rec("p1", model.StatusPending), rec("p2", model.StatusPending)}}
		review := dashboard.NewReview(api, nil)
		require.NoError(t, review.Load(context.Background()))
		require.NoError(t, review.Approve(context.Background(), "p1", ""))

		api.mu.Lock()
		api.pending = []model.Circular{rec("p2", model.StatusPending)}
		api.mu.Unlock()
		require.NoError(t, review.Load(context.Background()))

		require.Equal(t, []string{"p2"}, ids(review.Queue()))
	})

	t.Run("should drop records that are no longer pending", func(t *testing.T) {
		api := &fakeAPI{pending: []model.Circular{rec("p1", model.StatusPending), rec("done", model.StatusApproved)}}
		review := dashboard.NewReview(api, nil)
		require.NoError(t, review.Load(context.Background()))
		require.Equal(t, []string{"p1"}, ids(review.Queue()))
	})
}

func TestUser_Dashboard(t *testing.T) {
	// given
	mineRejected := rec("m2", model.StatusRejected)
	mineRejected.ReviewNotes = "Blurry scan"
	api := &fakeAPI{
		mine: []model.Circular{rec("m1", model.StatusPending), mineRejected, rec("m3", model.StatusApproved)},
		approved: []model.Circular{
			rec("m3", model.StatusApproved),
			{ID: "a1", Title: "Fire drill", Status: model.StatusApproved, Category: model.CategoryFireDepartment},
			{ID: "a2", Title: "Bus routes", Description: "Revised school bus timings", Status: model.StatusApproved, Category: model.CategoryTransport},
		},
	}
	notes := notify.NewRecorder()
	user := dashboard.NewUser(api, notes)

	// when
	require.NoError(t, user.Load(context.Background()))

	// then
	b := user.Visible()
	require.Equal(t, []string{"m1"}, ids(b.Pending))
	require.Equal(t, []string{"m3", "a1", "a2"}, ids(b.Approved))
	require.Equal(t, []string{"m2"}, ids(b.Rejected))
	require.Equal(t, "Blurry scan", b.Rejected[0].ReviewNotes)

	counts := user.Counts()
	require.Equal(t, 1, counts[model.CategoryEducation])
	require.Equal(t, 1, counts[model.CategoryFireDepartment])
	require.Equal(t, 0, counts[model.CategoryRevenue])

	t.Run("should filter by category and search", func(t *testing.T) {
		user.SetFilter(model.CategoryTransport, "TIMINGS")
		require.Equal(t, []string{"a2"}, ids(user.Visible().Approved))
		user.SetFilter("", "")
		require.Len(t, user.Visible().Approved, 3)
	})

	t.Run("should refuse to delete approved records locally", func(t *testing.T) {
		err := user.DeleteSubmission(context.Background(), "m3")
		require.ErrorIs(t, err, dashboard.ErrApprovedImmutable)
		require.NotContains(t, api.Calls(), "delete pending m3")
		require.Equal(t, []string{"Cannot delete approved circulars. Only administrators can manage published circulars."}, notes.Errors())
	})

	t.Run("should delete a pending submission", func(t *testing.T) {
		require.NoError(t, user.DeleteSubmission(context.Background(), "m1"))
		require.Contains(t, api.Calls(), "delete pending m1")
		require.Empty(t, user.Visible().Pending)
	})
}

type countingLoader struct {
	n     atomic.Int32
	block chan struct{}
}

func (c *countingLoader) Load(ctx context.Context) error {
	c.n.Add(1)
	if c.block != nil {
		<-c.block
	}
	return nil
}

func TestPoller(t *testing.T) {
	t.Run("should refresh on interval while enabled", func(t *testing.T) {
		loader := &countingLoader{}
		p := dashboard.NewPoller(loader, 5*time.Millisecond)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- p.Run(ctx) }()

		require.Eventually(t, func() bool { return loader.n.Load() >= 3 }, time.Second, time.Millisecond)
		cancel()
		require.ErrorIs(t, <-done, context.Canceled)
	})

	t.Run("should stop scheduling when disabled", func(t *testing.T) {
		loader := &countingLoader{}
		p := dashboard.NewPoller(loader, 5*time.Millisecond)
		p.SetEnabled(false)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		require.ErrorIs(t, p.Run(ctx), context.DeadlineExceeded)
		require.Zero(t, loader.n.Load())
	})

	t.Run("should refresh manually regardless of the flag", func(t *testing.T) {
		loader := &countingLoader{}
		p := dashboard.NewPoller(loader, time.Hour)
		p.SetEnabled(false)
		var seen []error
		p.OnLoad(func(err error) { seen = append(seen, err) })

		require.NoError(t, p.Refresh(context.Background()))
		require.EqualValues(t, 1, loader.n.Load())
		require.Equal(t, []error{nil}, seen)
	})

	t.Run("should let an in-flight load finish after disabling", func(t *testing.T) {
		loader := &countingLoader{block: make(chan struct{})}
		p := dashboard.NewPoller(loader, time.Hour)
		finished := make(chan error, 1)
		go func() { finished <- p.Refresh(context.Background()) }()
		require.Eventually(t, func() bool { return loader.n.Load() == 1 }, time.Second, time.Millisecond)

		p.SetEnabled(false)
		close(loader.block)

		require.NoError(t, <-finished)
		require.False(t, p.Enabled())
	})

	t.Run("should default the interval", func(t *testing.T) {
		require.NotNil(t, dashboard.NewPoller(&countingLoader{}, 0))
		require.Equal(t, 10*time.Second, dashboard.DefaultInterval)
	})
}

func TestFetchErrorsAreJoined(t *testing.T) {
	boom := errors.New("boom")
	api := &fakeAPI{pendingErr: boom, approvedErr: boom}
	admin := dashboard.NewAdmin(api, nil)

	err := admin.Load(context.Background())

	require.ErrorIs(t, err, boom)
}

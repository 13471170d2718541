package notify

import (
	"context"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orderdesk/orderdesk/internal/actors"
	"github.com/orderdesk/orderdesk/internal/orders"
	"github.com/orderdesk/orderdesk/internal/platform/httpx"
)

type memoryRepo struct {
	notifications []Notification
	// orderStatus stands in for the join against the orders table
	orderStatus map[int64]string
	nextID      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orderStatus: map[int64]string{}}
}

func (r *memoryRepo) InsertBatch(ctx context.Context, batch []Notification) error {
	for _, n := range batch {
		r.nextID++
		n.ID = r.nextID
		r.notifications = append(r.notifications, n)
	}
	return nil
}

func (r *memoryRepo) ListForUser(ctx context.Context, userID int64, orderStatuses []string, now time.Time) ([]Notification, error) {
	out := []Notification{}
	if len(orderStatuses) == 0 {
		return out, nil
	}
	for _, n := range r.notifications {
		if n.UserID != userID || !n.ExpiresAt.After(now) {
			continue
		}
		if slices.Contains(orderStatuses, r.orderStatus[n.OrderID]) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memoryRepo) MarkRead(ctx context.Context, userID, id int64) error {
	for i := range r.notifications {
		if r.notifications[i].ID == id && r.notifications[i].UserID == userID {
			r.notifications[i].Read = true
			return nil
		}
	}
	return ErrNotificationNotFound
}

func (r *memoryRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	kept := r.notifications[:0]
	var removed int64
	for _, n := range r.notifications {
		if n.ExpiresAt.After(now) {
			kept = append(kept, n)
		} else {
			removed++
		}
	}
	r.notifications = kept
	return removed, nil
}

type fakeActors struct {
	active []int64
}

func (f *fakeActors) Get(ctx context.Context, id int64) (*actors.Actor, error) {
	return &actors.Actor{ID: id, IsActive: true}, nil
}

func (f *fakeActors) ListActiveIDs(ctx context.Context, exceptID int64) ([]int64, error) {
	out := []int64{}
	for _, id := range f.active {
		if id != exceptID {
			out = append(out, id)
		}
	}
	return out, nil
}

var testClock = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	svc := NewService(repo, &fakeActors{active: []int64{1, 2, 3, 4}}, slog.New(slog.DiscardHandler))
	svc.now = func() time.Time { return testClock }
	return svc, repo
}

func TestBroadcastFansOutToOtherActors(t *testing.T) {
	svc, repo := newTestService()
	sender := actors.Actor{ID: 2, Department: actors.DepartmentSales, IsActive: true}
	order := orders.Order{ID: 7, OrderNumber: "SH-260314093000-ABCD", Status: orders.StatusPending}

	svc.Broadcast(context.Background(), order, sender, "order.status", "Order moved")

	require.Len(t, repo.notifications, 3)
	for _, n := range repo.notifications {
		require.NotEqual(t, sender.ID, n.UserID)
		require.Equal(t, sender.ID, n.SenderID)
		require.Equal(t, order.ID, n.OrderID)
		require.Equal(t, "order.status", n.Type)
		require.Equal(t, testClock.Add(TTL), n.ExpiresAt)
	}
}

func TestListFiltersByDeskPolicy(t *testing.T) {
	svc, repo := newTestService()
	repo.orderStatus[7] = string(orders.StatusPending)
	repo.orderStatus[8] = string(orders.StatusDraft)

	sender := actors.Actor{ID: 1, IsActive: true}
	svc.Broadcast(context.Background(), orders.Order{ID: 7, Status: orders.StatusPending}, sender, "order.status", "submitted")
	svc.Broadcast(context.Background(), orders.Order{ID: 8, Status: orders.StatusDraft}, sender, "order.status", "returned")

	procurementManager := actors.Actor{ID: 3, Role: actors.RoleManager, Department: actors.DepartmentProcurement, IsActive: true}
	list, err := svc.List(context.Background(), procurementManager)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(7), list[0].OrderID)

	salesClerk := actors.Actor{ID: 2, Role: actors.RoleEmployee, Department: actors.DepartmentSales, IsActive: true}
	list, err = svc.List(context.Background(), salesClerk)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(8), list[0].OrderID)

	// a procurement employee works no notification stage
	procurementClerk := actors.Actor{ID: 4, Role: actors.RoleEmployee, Department: actors.DepartmentProcurement, IsActive: true}
	list, err = svc.List(context.Background(), procurementClerk)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestListSkipsExpired(t *testing.T) {
	svc, repo := newTestService()
	repo.orderStatus[7] = string(orders.StatusApproved)
	repo.notifications = append(repo.notifications, Notification{
		ID: 1, UserID: 4, OrderID: 7, ExpiresAt: testClock.Add(-time.Minute),
	})

	director := actors.Actor{ID: 4, Role: actors.RoleDirector, IsActive: true}
	list, err := svc.List(context.Background(), director)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestMarkRead(t *testing.T) {
	svc, repo := newTestService()
	repo.notifications = append(repo.notifications, Notification{ID: 1, UserID: 4})

	owner := actors.Actor{ID: 4, IsActive: true}
	require.NoError(t, svc.MarkRead(context.Background(), owner, 1))
	require.True(t, repo.notifications[0].Read)

	// someone else's notification reads as missing
	stranger := actors.Actor{ID: 2, IsActive: true}
	err := svc.MarkRead(context.Background(), stranger, 1)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestPurgeExpired(t *testing.T) {
	svc, repo := newTestService()
	repo.notifications = append(repo.notifications,
		Notification{ID: 1, UserID: 2, ExpiresAt: testClock.Add(-time.Minute)},
		Notification{ID: 2, UserID: 2, ExpiresAt: testClock.Add(time.Minute)},
	)

	removed, err := svc.PurgeExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	require.Len(t, repo.notifications, 1)
	require.Equal(t, int64(2), repo.notifications[0].ID)
}

package orders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orderdesk/orderdesk/internal/actors"
	"github.com/orderdesk/orderdesk/internal/platform/httpx"
)

func TestCreateComputesTotalsAndNumber(t *testing.T) {
	svc, _, cat, _ := newTestService()
	fixtureProducts(cat)

	order, err := svc.Create(context.Background(), salesManager, CreateInput{
		SupplierName:    "Acme Textiles",
		ShippingAddress: "12 Mill Road",
		Shipping:        5,
		Items: []ItemInput{
			{Code: "SHIRT-01", Quantity: 3},
			{Code: "SHIRT-02", Quantity: 2},
		},
	})
	require.NoError(t, err)

	require.Equal(t, StatusDraft, order.Status)
	require.Equal(t, PaymentPending, order.PaymentStatus)
	require.Equal(t, 81.0, order.Subtotal) // 3*10 + 2*25.5
	require.Equal(t, 6.48, order.Tax)
	require.Equal(t, 92.48, order.TotalAmount)
	require.True(t, strings.HasPrefix(order.OrderNumber, "SH-"), order.OrderNumber)
	require.Len(t, order.Items, 2)
	require.Equal(t, "Shirt", order.Items[0].ProductName)
	require.Equal(t, 30.0, order.Items[0].LineTotal)
}

func TestCreateOnlySales(t *testing.T) {
	svc, _, cat, _ := newTestService()
	fixtureProducts(cat)

	_, err := svc.Create(context.Background(), procurement, CreateInput{
		SupplierName: "Acme", ShippingAddress: "12 Mill Road",
		Items: []ItemInput{{Code: "SHIRT-01", Quantity: 1}},
	})
	require.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = svc.Create(context.Background(), director, CreateInput{
		SupplierName: "Acme", ShippingAddress: "12 Mill Road",
		Items: []ItemInput{{Code: "SHIRT-01", Quantity: 1}},
	})
	require.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestCreateRejectsMixedCategories(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	fixtureProducts(cat)

	_, err := svc.Create(context.Background(), salesManager, CreateInput{
		SupplierName: "Acme", ShippingAddress: "12 Mill Road",
		Items: []ItemInput{
			{Code: "SHIRT-01", Quantity: 1},
			{Code: "SHOE-01", Quantity: 1},
		},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Empty(t, repo.orders)
}

func TestCreateEmployeeCategoryScope(t *testing.T) {
	svc, _, cat, _ := newTestService()
	fixtureProducts(cat)

	// category 1 is inside the clerk's scope, category 2 is not
	_, err := svc.Create(context.Background(), salesClerk, CreateInput{
		SupplierName: "Acme", ShippingAddress: "12 Mill Road",
		Items: []ItemInput{{Code: "SHOE-01", Quantity: 1}},
	})
	require.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = svc.Create(context.Background(), salesClerk, CreateInput{
		SupplierName: "Acme", ShippingAddress: "12 Mill Road",
		Items: []ItemInput{{Code: "SHIRT-01", Quantity: 1}},
	})
	require.NoError(t, err)
}

func TestCreateUnknownProduct(t *testing.T) {
	svc, _, cat, _ := newTestService()
	fixtureProducts(cat)

	_, err := svc.Create(context.Background(), salesManager, CreateInput{
		SupplierName: "Acme", ShippingAddress: "12 Mill Road",
		Items: []ItemInput{{Code: "NOPE-01", Quantity: 1}},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func seedOrder(t *testing.T, svc *Service, repo *memoryRepo, status Status, payment PaymentStatus) Order {
	t.Helper()
	order, err := svc.Create(context.Background(), salesManager, CreateInput{
		SupplierName: "Acme", ShippingAddress: "12 Mill Road",
		Items: []ItemInput{
			{Code: "SHIRT-01", Quantity: 3},
			{Code: "SHIRT-02", Quantity: 2},
		},
	})
	require.NoError(t, err)
	order.Status = status
	order.PaymentStatus = payment
	require.NoError(t, repo.Update(context.Background(), &order))
	return order
}

func TestUpdateIllegalTransitionForbidden(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	fixtureProducts(cat)
	order := seedOrder(t, svc, repo, StatusDraft, PaymentPending)

	_, err := svc.Update(context.Background(), salesManager, order.OrderNumber, UpdateInput{Status: StatusApproved})
	require.ErrorIs(t, err, httpx.ErrForbidden)

	unchanged, err := repo.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, unchanged.Status)
}

func TestUpdateNoopKeepsStatus(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	fixtureProducts(cat)
	order := seedOrder(t, svc, repo, StatusPending, PaymentPending)

	// procurement resubmits pending with a quantity change only
	updated, err := svc.Update(context.Background(), procurement, order.OrderNumber, UpdateInput{
		Status: StatusPending,
		Items: []ItemInput{
			{Code: "SHIRT-01", Quantity: 10},
			{Code: "SHIRT-02", Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, updated.Status)
	require.Equal(t, 151.0, updated.Subtotal) // 10*10 + 2*25.5
}

func TestUpdatePartialKeepsShippingAndNotes(t *testing.T) {
	svc, _, cat, _ := newTestService()
	fixtureProducts(cat)

	order, err := svc.Create(context.Background(), salesManager, CreateInput{
		SupplierName: "Acme", ShippingAddress: "12 Mill Road",
		Notes: "rush delivery", Shipping: 5,
		Items: []ItemInput{
			{Code: "SHIRT-01", Quantity: 3},
			{Code: "SHIRT-02", Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 92.48, order.TotalAmount)

	// a notes-only edit must not reset shipping
	notes := "call first"
	updated, err := svc.Update(context.Background(), salesManager, order.OrderNumber, UpdateInput{Notes: &notes})
	require.NoError(t, err)
	require.Equal(t, 5.0, updated.Shipping)
	require.Equal(t, 92.48, updated.TotalAmount)
	require.Equal(t, "call first", updated.Notes)

	// and a shipping-only edit must not wipe notes
	shipping := 2.0
	updated, err = svc.Update(context.Background(), salesManager, order.OrderNumber, UpdateInput{Shipping: &shipping})
	require.NoError(t, err)
	require.Equal(t, "call first", updated.Notes)
	require.Equal(t, 89.48, updated.TotalAmount)
}

func TestApprovalGate(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	fixtureProducts(cat)

	// missing delivery estimate
	order := seedOrder(t, svc, repo, StatusPending, PaymentPaid)
	_, err := svc.Update(context.Background(), procurement, order.OrderNumber, UpdateInput{Status: StatusApproved})
	require.ErrorIs(t, err, httpx.ErrValidation)

	// unpaid
	order2 := seedOrder(t, svc, repo, StatusPending, PaymentPending)
	eta := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Update(context.Background(), procurement, order2.OrderNumber, UpdateInput{
		Status: StatusApproved, EstimatedDelivery: &eta,
	})
	require.ErrorIs(t, err, httpx.ErrValidation)

	// both present
	updated, err := svc.Update(context.Background(), procurement, order.OrderNumber, UpdateInput{
		Status: StatusApproved, EstimatedDelivery: &eta,
	})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, updated.Status)
	require.NotNil(t, updated.EstimatedDelivery)
	require.Equal(t, eta, *updated.EstimatedDelivery)
}

func TestEstimatedDeliveryDiscardedOutsideApproval(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	fixtureProducts(cat)
	order := seedOrder(t, svc, repo, StatusDraft, PaymentPending)

	eta := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	updated, err := svc.Update(context.Background(), salesManager, order.OrderNumber, UpdateInput{
		EstimatedDelivery: &eta,
	})
	require.NoError(t, err)
	require.Nil(t, updated.EstimatedDelivery)
}

func TestQuantityOnlyEdit(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	fixtureProducts(cat)
	order := seedOrder(t, svc, repo, StatusPending, PaymentPending)

	// a different product set is forbidden
	_, err := svc.Update(context.Background(), procurement, order.OrderNumber, UpdateInput{
		Items: []ItemInput{
			{Code: "SHIRT-01", Quantity: 3},
			{Code: "SHOE-01", Quantity: 2},
		},
	})
	require.ErrorIs(t, err, httpx.ErrForbidden)

	// same codes with new quantities succeeds and recomputes totals
	updated, err := svc.Update(context.Background(), procurement, order.OrderNumber, UpdateInput{
		Items: []ItemInput{
			{Code: "SHIRT-01", Quantity: 5},
			{Code: "SHIRT-02", Quantity: 4},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 152.0, updated.Subtotal) // 5*10 + 4*25.5
	require.Equal(t, round2(152*TaxRate), updated.Tax)
}

func TestQuantityEditRejectsDuplicateCodes(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	fixtureProducts(cat)
	order := seedOrder(t, svc, repo, StatusPending, PaymentPending)

	// same length as the existing items, but one code repeated: this must
	// not slip past the item-set check
	_, err := svc.Update(context.Background(), procurement, order.OrderNumber, UpdateInput{
		Items: []ItemInput{
			{Code: "SHIRT-01", Quantity: 2},
			{Code: "SHIRT-01", Quantity: 3},
		},
	})
	require.ErrorIs(t, err, httpx.ErrForbidden)

	unchanged, err := repo.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, 81.0, unchanged.Subtotal)
}

func TestUpdateBroadcastsEveryEdit(t *testing.T) {
	svc, repo, cat, notifier := newTestService()
	fixtureProducts(cat)
	order := seedOrder(t, svc, repo, StatusDraft, PaymentPending)

	_, err := svc.Update(context.Background(), salesManager, order.OrderNumber, UpdateInput{Status: StatusPending})
	require.NoError(t, err)
	require.Equal(t, []string{"order.status"}, notifier.events)

	// a quantity-only edit on the same status still notifies
	_, err = svc.Update(context.Background(), procurement, order.OrderNumber, UpdateInput{
		Items: []ItemInput{
			{Code: "SHIRT-01", Quantity: 4},
			{Code: "SHIRT-02", Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"order.status", "order.updated"}, notifier.events)

	// a rejected edit does not
	_, err = svc.Update(context.Background(), salesManager, order.OrderNumber, UpdateInput{Status: StatusApproved})
	require.ErrorIs(t, err, httpx.ErrForbidden)
	require.Len(t, notifier.events, 2)
}

func TestUpdateMergedOrderReadOnly(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	fixtureProducts(cat)
	order := seedOrder(t, svc, repo, StatusDraft, PaymentPending)
	order.Merged = true
	require.NoError(t, repo.Update(context.Background(), &order))

	notes := "still here?"
	_, err := svc.Update(context.Background(), salesManager, order.OrderNumber, UpdateInput{Notes: &notes})
	require.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestDeleteDraftOnly(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	fixtureProducts(cat)

	draft := seedOrder(t, svc, repo, StatusDraft, PaymentPending)
	pending := seedOrder(t, svc, repo, StatusPending, PaymentPending)

	require.ErrorIs(t, svc.Delete(context.Background(), procurement, draft.OrderNumber), httpx.ErrForbidden)
	require.ErrorIs(t, svc.Delete(context.Background(), salesManager, pending.OrderNumber), httpx.ErrForbidden)

	require.NoError(t, svc.Delete(context.Background(), salesManager, draft.OrderNumber))
	_, err := repo.Get(context.Background(), draft.ID)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListVisibilityAndMergedExcluded(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	fixtureProducts(cat)

	seedOrder(t, svc, repo, StatusDraft, PaymentPending)
	seedOrder(t, svc, repo, StatusPending, PaymentPending)
	approved := seedOrder(t, svc, repo, StatusApproved, PaymentPaid)
	merged := seedOrder(t, svc, repo, StatusPending, PaymentPending)
	merged.Merged = true
	require.NoError(t, repo.Update(context.Background(), &merged))

	sales, err := svc.List(context.Background(), salesManager, ListInput{})
	require.NoError(t, err)
	require.Len(t, sales.Orders, 2) // draft + pending, merged hidden

	dir, err := svc.List(context.Background(), director, ListInput{})
	require.NoError(t, err)
	require.Len(t, dir.Orders, 1)
	require.Equal(t, approved.ID, dir.Orders[0].ID)

	outsider := actors.Actor{ID: 9, Name: "Hoa", Role: actors.RoleEmployee, IsActive: true}
	_, err = svc.List(context.Background(), outsider, ListInput{})
	require.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestGetEnforcesVisibility(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	fixtureProducts(cat)
	order := seedOrder(t, svc, repo, StatusDraft, PaymentPending)

	_, err := svc.Get(context.Background(), director, order.OrderNumber)
	require.ErrorIs(t, err, httpx.ErrForbidden)

	got, err := svc.Get(context.Background(), salesManager, order.OrderNumber)
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)
}

package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/orderdesk/orderdesk/internal/actors"
	"github.com/orderdesk/orderdesk/internal/catalog"
	"github.com/orderdesk/orderdesk/internal/platform/httpx"
	"github.com/orderdesk/orderdesk/internal/shared"
)

// Catalog is the product lookup surface the order core needs. It is
// satisfied by *catalog.Service.
type Catalog interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
	FindByCode(ctx context.Context, code string) (catalog.Product, error)
	FindByBarcodeColor(ctx context.Context, barcode, color string) (catalog.Product, error)
	CategoryPrefix(ctx context.Context, id int64) (string, error)
}

// Notifier fans a workflow event out to the other actors. Implemented by
// the notify package; a nil Notifier disables notifications.
type Notifier interface {
	Broadcast(ctx context.Context, o Order, sender actors.Actor, event, message string)
}

// Auditor records workflow actions. Satisfied by *shared.AuditLogger.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements the order workflow on top of the repository.
type Service struct {
	repo     Repository
	catalog  Catalog
	notifier Notifier
	audit    Auditor
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs Service. notifier and audit may be nil.
func NewService(repo Repository, cat Catalog, notifier Notifier, audit Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, catalog: cat, notifier: notifier, audit: audit, logger: logger, now: time.Now}
}

// ItemInput is one requested line item, referencing a product by its
// catalog code.
type ItemInput struct {
	Code     string `json:"code" validate:"required"`
	Quantity int64  `json:"quantity" validate:"required,gt=0"`
}

// CreateInput carries the fields of a new order.
type CreateInput struct {
	SupplierName    string        `json:"supplier_name" validate:"required"`
	ShippingAddress string        `json:"shipping_address" validate:"required"`
	OrderDate       time.Time     `json:"order_date"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	Notes           string        `json:"notes"`
	Shipping        float64       `json:"shipping" validate:"gte=0"`
	Items           []ItemInput   `json:"items" validate:"required,min=1,dive"`
}

// UpdateInput carries an order edit. Status may request a transition; the
// zero value keeps the current status. Notes and Shipping are pointers so
// that an omitted field leaves the stored value alone.
type UpdateInput struct {
	Status            Status        `json:"status"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	SupplierName      string        `json:"supplier_name"`
	ShippingAddress   string        `json:"shipping_address"`
	EstimatedDelivery *time.Time    `json:"estimated_delivery"`
	Notes             *string       `json:"notes"`
	Shipping          *float64      `json:"shipping" validate:"omitempty,gte=0"`
	Items             []ItemInput   `json:"items" validate:"omitempty,min=1,dive"`
}

// ListInput narrows a listing request.
type ListInput struct {
	Search string
	Page   int
	Limit  int
}

// ListResult is a page of orders.
type ListResult struct {
	Orders []Order `json:"orders"`
	Total  int64   `json:"total"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

const numberAttempts = 3

// Create builds a new draft order for actor. Orders always start in draft;
// the order number is derived from the first item's category prefix.
func (s *Service) Create(ctx context.Context, actor actors.Actor, in CreateInput) (Order, error) {
	if !CanCreate(actor) {
		return Order{}, fmt.Errorf("%w: only sales may create orders", httpx.ErrForbidden)
	}
	if len(in.Items) == 0 {
		return Order{}, fmt.Errorf("%w: order requires at least one item", httpx.ErrValidation)
	}
	items, categoryID, err := s.resolveItems(ctx, actor, in.Items)
	if err != nil {
		return Order{}, err
	}

	orderDate := in.OrderDate
	if orderDate.IsZero() {
		orderDate = s.now()
	}
	payment := in.PaymentStatus
	if payment == "" {
		payment = PaymentPending
	}
	if !ValidPaymentStatus(payment) {
		return Order{}, fmt.Errorf("%w: unknown payment status %q", httpx.ErrValidation, payment)
	}
	totals := ComputeTotals(sumLines(items), in.Shipping)
	order := Order{
		Status:          StatusDraft,
		PaymentStatus:   payment,
		SupplierName:    in.SupplierName,
		ShippingAddress: in.ShippingAddress,
		OrderDate:       orderDate,
		Notes:           in.Notes,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Shipping:        totals.Shipping,
		TotalAmount:     totals.Total,
		CreatedBy:       actor.ID,
		Items:           items,
	}

	prefix, err := s.catalog.CategoryPrefix(ctx, categoryID)
	if err != nil {
		return Order{}, err
	}
	if err := s.createNumbered(ctx, &order, prefix); err != nil {
		return Order{}, err
	}

	s.recordAudit(ctx, actor, "order.create", order, nil)
	s.logger.Info("order created", "order_id", order.ID, "order_number", order.OrderNumber, "actor_id", actor.ID)
	return order, nil
}

// createNumbered assigns an order number and inserts, retrying on a unique
// violation since the random suffix can collide within one second.
func (s *Service) createNumbered(ctx context.Context, order *Order, prefix string) error {
	var err error
	for attempt := 0; attempt < numberAttempts; attempt++ {
		order.OrderNumber = NewOrderNumber(prefix, s.now())
		if err = s.repo.Create(ctx, order); !errors.Is(err, ErrNumberConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: order number", httpx.ErrDuplicate)
}

// Get loads one order by its number, enforcing the visibility matrix and
// employee category scope.
func (s *Service) Get(ctx context.Context, actor actors.Actor, orderNumber string) (Order, error) {
	order, err := s.repo.GetByNumber(ctx, orderNumber)
	if err != nil {
		return Order{}, mapRepoError(err)
	}
	if err := s.authorizeView(ctx, actor, order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// List returns the page of orders actor may see. Merged orders are always
// excluded from listings.
func (s *Service) List(ctx context.Context, actor actors.Actor, in ListInput) (ListResult, error) {
	visible := VisibleStatuses(actor)
	if len(visible) == 0 {
		return ListResult{}, fmt.Errorf("%w: no order visibility for this role", httpx.ErrForbidden)
	}
	filter := Filter{
		Statuses:      visible,
		ExcludeMerged: true,
		Search:        in.Search,
		Page:          in.Page,
		Limit:         in.Limit,
	}
	if actor.IsEmployee() {
		filter.CategoryIDs = actor.CategoryIDs
	}
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}
	page := in.Page
	if page <= 0 {
		page = 1
	}
	limit := in.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return ListResult{Orders: list, Total: total, Page: page, Limit: limit}, nil
}

// Search matches orders on number, supplier, item product name, barcode,
// color or category name, within the caller's visibility.
func (s *Service) Search(ctx context.Context, actor actors.Actor, query string, in ListInput) (ListResult, error) {
	visible := VisibleStatuses(actor)
	if len(visible) == 0 {
		return ListResult{}, fmt.Errorf("%w: no order visibility for this role", httpx.ErrForbidden)
	}
	filter := Filter{
		Statuses:      visible,
		ExcludeMerged: true,
		Search:        query,
		Page:          in.Page,
		Limit:         in.Limit,
	}
	if actor.IsEmployee() {
		filter.CategoryIDs = actor.CategoryIDs
	}
	list, total, err := s.repo.Search(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}
	page := in.Page
	if page <= 0 {
		page = 1
	}
	limit := in.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return ListResult{Orders: list, Total: total, Page: page, Limit: limit}, nil
}

// Update edits an order. How much may change depends on the actor and the
// order's current status; a status change additionally goes through the
// transition table.
func (s *Service) Update(ctx context.Context, actor actors.Actor, orderNumber string, in UpdateInput) (Order, error) {
	order, err := s.repo.GetByNumber(ctx, orderNumber)
	if err != nil {
		return Order{}, mapRepoError(err)
	}
	if err := s.authorizeView(ctx, actor, order); err != nil {
		return Order{}, err
	}
	if order.Merged {
		return Order{}, fmt.Errorf("%w: merged orders are read-only", httpx.ErrForbidden)
	}

	target := order.Status
	if in.Status != "" {
		if !ValidStatus(in.Status) {
			return Order{}, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, in.Status)
		}
		target = in.Status
	}
	if !CanTransition(actor, order.Status, target) {
		return Order{}, fmt.Errorf("%w: %s may not move %s to %s", httpx.ErrForbidden, actor.Role, order.Status, target)
	}

	capability := EditCapabilityFor(actor, order.Status)
	if capability == EditNone && target == order.Status {
		return Order{}, fmt.Errorf("%w: no edit rights on this order", httpx.ErrForbidden)
	}

	switch capability {
	case EditFull:
		if err := s.applyFullEdit(ctx, actor, &order, in); err != nil {
			return Order{}, err
		}
	case EditQuantities:
		if err := s.applyQuantityEdit(&order, in); err != nil {
			return Order{}, err
		}
	}

	if in.PaymentStatus != "" {
		if !ValidPaymentStatus(in.PaymentStatus) {
			return Order{}, fmt.Errorf("%w: unknown payment status %q", httpx.ErrValidation, in.PaymentStatus)
		}
		order.PaymentStatus = in.PaymentStatus
	}

	// A delivery estimate is only accepted on the procurement approval
	// move; on any other update the field is discarded.
	approving := actor.InDepartment(actors.DepartmentProcurement) &&
		order.Status == StatusPending && target == StatusApproved
	if approving && in.EstimatedDelivery != nil {
		order.EstimatedDelivery = in.EstimatedDelivery
	}

	statusChanged := target != order.Status
	if approving && !ApprovalGateMet(order) {
		return Order{}, fmt.Errorf("%w: approval requires a delivery estimate and settled payment", httpx.ErrValidation)
	}
	order.Status = target

	totals := ComputeTotals(sumLines(order.Items), order.Shipping)
	order.Subtotal = totals.Subtotal
	order.Tax = totals.Tax
	order.TotalAmount = totals.Total

	if err := s.repo.Update(ctx, &order); err != nil {
		return Order{}, mapRepoError(err)
	}

	// Every committed edit notifies the other actors, not just a status
	// move. The event name distinguishes the two.
	if s.notifier != nil {
		event := "order.updated"
		message := fmt.Sprintf("Order %s was updated", order.OrderNumber)
		if statusChanged {
			event = "order.status"
			message = fmt.Sprintf("Order %s moved to %s", order.OrderNumber, order.Status)
		}
		s.notifier.Broadcast(ctx, order, actor, event, message)
	}
	s.recordAudit(ctx, actor, "order.update", order, map[string]any{"status": string(order.Status)})
	s.logger.Info("order updated", "order_id", order.ID, "status", order.Status, "actor_id", actor.ID)
	return order, nil
}

// Delete removes a draft order, addressed by its human-readable number.
// Items cascade with the header.
func (s *Service) Delete(ctx context.Context, actor actors.Actor, orderNumber string) error {
	order, err := s.repo.GetByNumber(ctx, orderNumber)
	if err != nil {
		return mapRepoError(err)
	}
	if !CanDelete(actor, order.Status) {
		return fmt.Errorf("%w: only sales may delete drafts", httpx.ErrForbidden)
	}
	if err := s.repo.Delete(ctx, order.ID); err != nil {
		return mapRepoError(err)
	}
	s.recordAudit(ctx, actor, "order.delete", order, nil)
	s.logger.Info("order deleted", "order_id", order.ID, "order_number", order.OrderNumber, "actor_id", actor.ID)
	return nil
}

func (s *Service) applyFullEdit(ctx context.Context, actor actors.Actor, order *Order, in UpdateInput) error {
	if in.SupplierName != "" {
		order.SupplierName = in.SupplierName
	}
	if in.ShippingAddress != "" {
		order.ShippingAddress = in.ShippingAddress
	}
	if in.Notes != nil {
		order.Notes = *in.Notes
	}
	if in.Shipping != nil {
		order.Shipping = *in.Shipping
	}
	if len(in.Items) > 0 {
		items, _, err := s.resolveItems(ctx, actor, in.Items)
		if err != nil {
			return err
		}
		order.Items = items
	}
	return nil
}

// applyQuantityEdit applies the restricted edit available outside the sales
// draft stage: item quantities may change but the multiset of product codes
// must stay identical to the existing items. A submission repeating one code
// while dropping another has the same length, so the codes are compared as
// sorted lists rather than by map membership.
func (s *Service) applyQuantityEdit(order *Order, in UpdateInput) error {
	if len(in.Items) == 0 {
		return nil
	}
	submitted := make([]string, len(in.Items))
	for i, line := range in.Items {
		submitted[i] = line.Code
	}
	existing := make([]string, len(order.Items))
	for i := range order.Items {
		existing[i] = order.Items[i].ProductCode
	}
	slices.Sort(submitted)
	slices.Sort(existing)
	if !slices.Equal(submitted, existing) {
		return fmt.Errorf("%w: item set may not change at this stage", httpx.ErrForbidden)
	}
	byCode := make(map[string][]*Item, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		byCode[item.ProductCode] = append(byCode[item.ProductCode], item)
	}
	for _, line := range in.Items {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive", httpx.ErrValidation)
		}
		item := byCode[line.Code][0]
		byCode[line.Code] = byCode[line.Code][1:]
		item.Quantity = line.Quantity
		item.LineTotal = round2(item.UnitPrice * float64(line.Quantity))
	}
	return nil
}

// resolveItems snapshots product data into line items and returns the
// shared category of the items. Every product must exist, be active and lie
// inside the actor's category scope, and all items must belong to one
// category.
func (s *Service) resolveItems(ctx context.Context, actor actors.Actor, inputs []ItemInput) ([]Item, int64, error) {
	items := make([]Item, 0, len(inputs))
	var categoryID int64
	for i, in := range inputs {
		if in.Quantity <= 0 {
			return nil, 0, fmt.Errorf("%w: item %d quantity must be positive", httpx.ErrValidation, i)
		}
		product, err := s.catalog.FindByCode(ctx, in.Code)
		if err != nil {
			if errors.Is(err, httpx.ErrNotFound) {
				return nil, 0, fmt.Errorf("%w: item %d references unknown product %q", httpx.ErrValidation, i, in.Code)
			}
			return nil, 0, err
		}
		if !product.IsActive {
			return nil, 0, fmt.Errorf("%w: product %s is inactive", httpx.ErrValidation, product.Code)
		}
		if !actor.CategoryAllowed(product.CategoryID) {
			return nil, 0, fmt.Errorf("%w: product %s is outside your categories", httpx.ErrForbidden, product.Code)
		}
		if i == 0 {
			categoryID = product.CategoryID
		} else if product.CategoryID != categoryID {
			return nil, 0, fmt.Errorf("%w: all items must belong to one category", httpx.ErrValidation)
		}
		items = append(items, Item{
			ProductID:   product.ID,
			ProductCode: product.Code,
			ProductName: product.Name,
			Barcode:     product.Barcode,
			Color:       product.Color,
			UnitPrice:   product.Price,
			Quantity:    in.Quantity,
			LineTotal:   round2(product.Price * float64(in.Quantity)),
		})
	}
	return items, categoryID, nil
}

func (s *Service) authorizeView(ctx context.Context, actor actors.Actor, order Order) error {
	if !CanView(actor, order.Status) {
		return fmt.Errorf("%w: order not visible to this role", httpx.ErrForbidden)
	}
	if actor.IsEmployee() && len(order.Items) > 0 {
		product, err := s.catalog.Get(ctx, order.Items[0].ProductID)
		if err == nil && !actor.CategoryAllowed(product.CategoryID) {
			return fmt.Errorf("%w: order outside your categories", httpx.ErrForbidden)
		}
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actor actors.Actor, action string, order Order, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "order",
		EntityID: strconv.FormatInt(order.ID, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit record failed", "action", action, "err", err)
	}
}

func sumLines(items []Item) float64 {
	var subtotal float64
	for _, it := range items {
		subtotal += it.LineTotal
	}
	return round2(subtotal)
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		return fmt.Errorf("%w: order", httpx.ErrNotFound)
	case errors.Is(err, ErrNumberConflict):
		return fmt.Errorf("%w: order number", httpx.ErrDuplicate)
	default:
		return err
	}
}

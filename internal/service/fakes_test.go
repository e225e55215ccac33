package service

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"distribuidora/internal/lock"
	"distribuidora/internal/model"
	"distribuidora/internal/repository"
	"distribuidora/pkg/token"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// fakeStore is the shared in-memory state behind the repository fakes.
type fakeStore struct {
	nextID    uint
	users     map[uint]model.User
	refresh   map[string]model.RefreshToken
	customers map[uint]model.Customer
	products  map[uint]model.Product
	orders    map[uint]model.Order
	returns   map[uint]model.Return
	movements []model.StockMovement
	audits    []model.AuditLog

	// errors returned by the next order/return inserts, consumed in order
	orderCreateErrs  []error
	returnCreateErrs []error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[uint]model.User{},
		refresh:   map[string]model.RefreshToken{},
		customers: map[uint]model.Customer{},
		products:  map[uint]model.Product{},
		orders:    map[uint]model.Order{},
		returns:   map[uint]model.Return{},
	}
}

func (s *fakeStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) clone() fakeStore {
	c := *s
	c.users = copyMap(s.users)
	c.refresh = copyMap(s.refresh)
	c.customers = copyMap(s.customers)
	c.products = copyMap(s.products)
	c.orders = make(map[uint]model.Order, len(s.orders))
	for id, o := range s.orders {
		o.Lines = append([]model.OrderLine(nil), o.Lines...)
		c.orders[id] = o
	}
	c.returns = make(map[uint]model.Return, len(s.returns))
	for id, r := range s.returns {
		r.Lines = append([]model.ReturnLine(nil), r.Lines...)
		c.returns[id] = r
	}
	c.movements = append([]model.StockMovement(nil), s.movements...)
	c.audits = append([]model.AuditLog(nil), s.audits...)
	return c
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func window[T any](items []T, p repository.Page) []T {
	if p.Limit <= 0 {
		return items
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * p.Limit
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func popErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && !t.Before(*to) {
		return false
	}
	return true
}

// --- transactions ---

type fakeTxKey struct{}

// fakeTx snapshots the store when the outermost transaction starts and restores it on error.
type fakeTx struct {
	store   *fakeStore
	commits int
}

func (t *fakeTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	snapshot := t.store.clone()
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		// injected failures are not part of the rolled back state
		orderErrs, returnErrs := t.store.orderCreateErrs, t.store.returnCreateErrs
		*t.store = snapshot
		t.store.orderCreateErrs, t.store.returnCreateErrs = orderErrs, returnErrs
		return err
	}
	t.commits++
	return nil
}

// --- products ---

type fakeProducts struct{ *fakeStore }

func (r fakeProducts) Create(_ context.Context, p *model.Product) error {
	if p.Code != nil {
		if taken, _ := r.ExistsByCode(context.Background(), *p.Code, 0); taken {
			return gorm.ErrDuplicatedKey
		}
	}
	p.ID = r.id()
	r.products[p.ID] = *p
	return nil
}

func (r fakeProducts) Update(_ context.Context, p *model.Product) error {
	r.products[p.ID] = *p
	return nil
}

func (r fakeProducts) Delete(_ context.Context, id uint) error {
	delete(r.products, id)
	return nil
}

func (r fakeProducts) FindByID(_ context.Context, id uint) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r fakeProducts) FindByIDForUpdate(ctx context.Context, id uint) (*model.Product, error) {
	return r.FindByID(ctx, id)
}

func (r fakeProducts) ExistsByCode(_ context.Context, code string, excludeID uint) (bool, error) {
	for _, p := range r.products {
		if p.ID != excludeID && p.Code != nil && *p.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeProducts) ExistsByName(_ context.Context, name string, excludeID uint) (bool, error) {
	for _, p := range r.products {
		if p.ID != excludeID && strings.EqualFold(p.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeProducts) sorted(keep func(model.Product) bool) []model.Product {
	out := []model.Product{}
	for _, p := range r.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r fakeProducts) List(_ context.Context, f repository.ProductFilter) ([]model.Product, int64, error) {
	all := r.sorted(func(p model.Product) bool {
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			return false
		}
		if f.Unit != "" && p.Unit != f.Unit {
			return false
		}
		if f.Active != nil && p.Active != *f.Active {
			return false
		}
		return !f.LowStock || p.IsLowStock()
	})
	return window(all, f.Page), int64(len(all)), nil
}

func (r fakeProducts) ListActive(context.Context) ([]model.Product, error) {
	return r.sorted(func(p model.Product) bool { return p.Active }), nil
}

func (r fakeProducts) ListLowStock(context.Context) ([]model.Product, error) {
	out := r.sorted(func(p model.Product) bool { return p.Active && p.IsLowStock() })
	sort.SliceStable(out, func(i, j int) bool { return out[i].StockOnHand < out[j].StockOnHand })
	return out, nil
}

func (r fakeProducts) UpdateStock(_ context.Context, id uint, stock int) error {
	p, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.StockOnHand = stock
	r.products[id] = p
	return nil
}

func (r fakeProducts) CountReferences(_ context.Context, id uint) (int64, error) {
	var n int64
	for _, o := range r.orders {
		for _, l := range o.Lines {
			if l.ProductID == id {
				n++
			}
		}
	}
	for _, ret := range r.returns {
		for _, l := range ret.Lines {
			if l.ProductID == id || (l.ReplacementProductID != nil && *l.ReplacementProductID == id) {
				n++
			}
		}
	}
	return n, nil
}

func (r fakeProducts) sales() map[uint]*model.ProductSales {
	out := map[uint]*model.ProductSales{}
	for _, o := range r.orders {
		if o.Status == model.OrderStatusCancelled {
			continue
		}
		for _, l := range o.Lines {
			s, ok := out[l.ProductID]
			if !ok {
				s = &model.ProductSales{Product: r.products[l.ProductID]}
				out[l.ProductID] = s
			}
			s.TotalQuantity = s.TotalQuantity.Add(l.Quantity)
			s.TotalValue = s.TotalValue.Add(l.Subtotal)
		}
	}
	return out
}

func (r fakeProducts) TopSelling(_ context.Context, limit int) ([]model.ProductSales, error) {
	out := []model.ProductSales{}
	for _, s := range r.sales() {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalQuantity.GreaterThan(out[j].TotalQuantity) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeProducts) Sales(ctx context.Context, id uint) (model.ProductSales, error) {
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return model.ProductSales{}, err
	}
	if s, ok := r.sales()[id]; ok {
		return *s, nil
	}
	return model.ProductSales{Product: *p, TotalQuantity: decimal.Zero, TotalValue: decimal.Zero}, nil
}

// --- customers ---

type fakeCustomers struct{ *fakeStore }

func (r fakeCustomers) Create(_ context.Context, c *model.Customer) error {
	c.ID = r.id()
	r.customers[c.ID] = *c
	return nil
}

func (r fakeCustomers) Update(_ context.Context, c *model.Customer) error {
	r.customers[c.ID] = *c
	return nil
}

func (r fakeCustomers) Delete(_ context.Context, id uint) error {
	delete(r.customers, id)
	return nil
}

func (r fakeCustomers) FindByID(_ context.Context, id uint) (*model.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r fakeCustomers) ExistsByName(_ context.Context, name string, excludeID uint) (bool, error) {
	for _, c := range r.customers {
		if c.ID != excludeID && strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeCustomers) List(_ context.Context, f repository.CustomerFilter) ([]model.Customer, int64, error) {
	out := []model.Customer{}
	for _, c := range r.customers {
		if f.Zone != "" && c.Zone != f.Zone {
			continue
		}
		if f.Active != nil && c.Active != *f.Active {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return window(out, f.Page), int64(len(out)), nil
}

func (r fakeCustomers) ListActive(ctx context.Context) ([]model.Customer, error) {
	active := true
	out, _, err := r.List(ctx, repository.CustomerFilter{Active: &active})
	return out, err
}

func (r fakeCustomers) distinct(field func(model.Customer) string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, c := range r.customers {
		if v := field(c); v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func (r fakeCustomers) Zones(context.Context) ([]string, error) {
	return r.distinct(func(c model.Customer) string { return c.Zone }), nil
}

func (r fakeCustomers) Cities(context.Context) ([]string, error) {
	return r.distinct(func(c model.Customer) string { return c.City }), nil
}

func (r fakeCustomers) Counts(context.Context) (model.CustomerCounts, error) {
	var counts model.CustomerCounts
	for _, c := range r.customers {
		counts.Total++
		if c.Active {
			counts.Active++
		}
	}
	counts.Inactive = counts.Total - counts.Active
	return counts, nil
}

func (r fakeCustomers) Statistics(_ context.Context, id uint) (model.CustomerStatistics, error) {
	stats := model.CustomerStatistics{DeliveredTotal: decimal.Zero}
	for _, o := range r.orders {
		if o.CustomerID != id {
			continue
		}
		stats.Orders++
		if o.Status == model.OrderStatusDelivered {
			stats.DeliveredTotal = stats.DeliveredTotal.Add(o.Total)
		}
		if stats.LastOrder == nil || o.OrderedAt.After(stats.LastOrder.OrderedAt) {
			last := o
			stats.LastOrder = &last
		}
	}
	for _, ret := range r.returns {
		if ret.CustomerID == id {
			stats.Returns++
		}
	}
	return stats, nil
}

// --- orders ---

type fakeOrders struct{ *fakeStore }

func (r fakeOrders) Create(_ context.Context, o *model.Order) error {
	if err := popErr(&r.orderCreateErrs); err != nil {
		return err
	}
	for _, existing := range r.orders {
		if existing.OrderNumber == o.OrderNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	o.ID = r.id()
	r.assignLines(o, o.Lines)
	return nil
}

func (r fakeOrders) assignLines(o *model.Order, lines []model.OrderLine) {
	for i := range lines {
		lines[i].ID = r.id()
		lines[i].OrderID = o.ID
	}
	o.Lines = lines
	stored := *o
	stored.Customer, stored.CreatedBy = nil, nil
	stored.Lines = append([]model.OrderLine(nil), lines...)
	r.orders[o.ID] = stored
}

func (r fakeOrders) Update(_ context.Context, o *model.Order) error {
	stored := *o
	stored.Customer, stored.CreatedBy = nil, nil
	stored.Lines = r.orders[o.ID].Lines
	r.orders[o.ID] = stored
	return nil
}

func (r fakeOrders) ReplaceLines(_ context.Context, o *model.Order, lines []model.OrderLine) error {
	r.assignLines(o, lines)
	return nil
}

func (r fakeOrders) Delete(_ context.Context, id uint) error {
	delete(r.orders, id)
	return nil
}

func (r fakeOrders) hydrate(o model.Order) model.Order {
	if c, ok := r.customers[o.CustomerID]; ok {
		o.Customer = &c
	}
	lines := make([]model.OrderLine, len(o.Lines))
	for i, l := range o.Lines {
		if p, ok := r.products[l.ProductID]; ok {
			l.Product = &p
		}
		lines[i] = l
	}
	o.Lines = lines
	return o
}

func (r fakeOrders) FindByID(_ context.Context, id uint) (*model.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	o = r.hydrate(o)
	return &o, nil
}

func (r fakeOrders) FindByIDForUpdate(ctx context.Context, id uint) (*model.Order, error) {
	return r.FindByID(ctx, id)
}

func (r fakeOrders) LatestNumberWithPrefix(_ context.Context, prefix string) (string, error) {
	var latest model.Order
	for _, o := range r.orders {
		if strings.HasPrefix(o.OrderNumber, prefix) && o.ID > latest.ID {
			latest = o
		}
	}
	return latest.OrderNumber, nil
}

func (r fakeOrders) List(_ context.Context, f repository.OrderFilter) ([]model.Order, int64, error) {
	out := []model.Order{}
	for _, o := range r.orders {
		if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if !inRange(o.OrderedAt, f.From, f.To) {
			continue
		}
		if f.Search != "" && !strings.Contains(o.OrderNumber, f.Search) {
			continue
		}
		out = append(out, r.hydrate(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return window(out, f.Page), int64(len(out)), nil
}

func (r fakeOrders) ListBetween(_ context.Context, from, to time.Time) ([]model.Order, error) {
	out := []model.Order{}
	for _, o := range r.orders {
		if inRange(o.OrderedAt, &from, &to) {
			out = append(out, r.hydrate(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeOrders) Statistics(_ context.Context, rng model.DateRange) (model.OrderStatistics, error) {
	stats := model.OrderStatistics{DeliveredTotal: decimal.Zero}
	for _, o := range r.orders {
		if !inRange(o.OrderedAt, rng.From, rng.To) {
			continue
		}
		stats.Total++
		switch o.Status {
		case model.OrderStatusPending:
			stats.Pending++
		case model.OrderStatusDelivered:
			stats.Delivered++
			stats.DeliveredTotal = stats.DeliveredTotal.Add(o.Total)
		case model.OrderStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

func (r fakeOrders) CountByCreator(_ context.Context, userID uint) (int64, error) {
	var n int64
	for _, o := range r.orders {
		if o.CreatedByID == userID {
			n++
		}
	}
	return n, nil
}

// --- returns ---

type fakeReturns struct{ *fakeStore }

func (r fakeReturns) Create(_ context.Context, ret *model.Return) error {
	if err := popErr(&r.returnCreateErrs); err != nil {
		return err
	}
	for _, existing := range r.returns {
		if existing.ReturnNumber == ret.ReturnNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	ret.ID = r.id()
	r.assignLines(ret, ret.Lines)
	return nil
}

func (r fakeReturns) assignLines(ret *model.Return, lines []model.ReturnLine) {
	for i := range lines {
		lines[i].ID = r.id()
		lines[i].ReturnID = ret.ID
	}
	ret.Lines = lines
	stored := *ret
	stored.Customer, stored.CreatedBy, stored.OriginOrder, stored.CompensationOrder = nil, nil, nil, nil
	stored.Lines = append([]model.ReturnLine(nil), lines...)
	r.returns[ret.ID] = stored
}

func (r fakeReturns) Update(_ context.Context, ret *model.Return) error {
	stored := *ret
	stored.Customer, stored.CreatedBy, stored.OriginOrder, stored.CompensationOrder = nil, nil, nil, nil
	stored.Lines = r.returns[ret.ID].Lines
	r.returns[ret.ID] = stored
	return nil
}

func (r fakeReturns) ReplaceLines(_ context.Context, ret *model.Return, lines []model.ReturnLine) error {
	r.assignLines(ret, lines)
	return nil
}

func (r fakeReturns) Delete(_ context.Context, id uint) error {
	delete(r.returns, id)
	return nil
}

func (r fakeReturns) FindByID(_ context.Context, id uint) (*model.Return, error) {
	ret, ok := r.returns[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if c, ok := r.customers[ret.CustomerID]; ok {
		ret.Customer = &c
	}
	ret.Lines = append([]model.ReturnLine(nil), ret.Lines...)
	return &ret, nil
}

func (r fakeReturns) FindByIDForUpdate(ctx context.Context, id uint) (*model.Return, error) {
	return r.FindByID(ctx, id)
}

func (r fakeReturns) LatestNumberWithPrefix(_ context.Context, prefix string) (string, error) {
	var latest model.Return
	for _, ret := range r.returns {
		if strings.HasPrefix(ret.ReturnNumber, prefix) && ret.ID > latest.ID {
			latest = ret
		}
	}
	return latest.ReturnNumber, nil
}

func (r fakeReturns) List(_ context.Context, f repository.ReturnFilter) ([]model.Return, int64, error) {
	out := []model.Return{}
	for _, ret := range r.returns {
		if f.CustomerID != nil && ret.CustomerID != *f.CustomerID {
			continue
		}
		if f.Status != "" && ret.Status != f.Status {
			continue
		}
		if f.Reason != "" && ret.Reason != f.Reason {
			continue
		}
		if !inRange(ret.ReturnedAt, f.From, f.To) {
			continue
		}
		out = append(out, ret)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return window(out, f.Page), int64(len(out)), nil
}

func (r fakeReturns) ListPending(ctx context.Context, customerID *uint) ([]model.Return, error) {
	out, _, err := r.List(ctx, repository.ReturnFilter{CustomerID: customerID, Status: model.ReturnStatusPending})
	return out, err
}

func (r fakeReturns) CountByOrder(_ context.Context, orderID uint) (int64, error) {
	var n int64
	for _, ret := range r.returns {
		if (ret.OriginOrderID != nil && *ret.OriginOrderID == orderID) ||
			(ret.CompensationOrderID != nil && *ret.CompensationOrderID == orderID) {
			n++
		}
	}
	return n, nil
}

func (r fakeReturns) CountByCreator(_ context.Context, userID uint) (int64, error) {
	var n int64
	for _, ret := range r.returns {
		if ret.CreatedByID == userID {
			n++
		}
	}
	return n, nil
}

func (r fakeReturns) Statistics(_ context.Context, rng model.DateRange) (model.ReturnStatistics, error) {
	stats := model.ReturnStatistics{ByReason: map[string]int64{}}
	for _, reason := range model.ReturnReasons {
		stats.ByReason[reason.Value] = 0
	}
	for _, ret := range r.returns {
		if !inRange(ret.ReturnedAt, rng.From, rng.To) {
			continue
		}
		stats.Total++
		stats.ByReason[ret.Reason]++
		if ret.Status == model.ReturnStatusPending {
			stats.Pending++
		} else {
			stats.Compensated++
		}
	}
	return stats, nil
}

// --- movements, audit, users ---

type fakeMovements struct{ *fakeStore }

func (r fakeMovements) Create(_ context.Context, m *model.StockMovement) error {
	r.fakeStore.movements = append(r.fakeStore.movements, *m)
	return nil
}

func (r fakeMovements) ListByProduct(_ context.Context, productID uint, page repository.Page) ([]model.StockMovement, int64, error) {
	out := []model.StockMovement{}
	for i := len(r.fakeStore.movements) - 1; i >= 0; i-- {
		if m := r.fakeStore.movements[i]; m.ProductID == productID {
			out = append(out, m)
		}
	}
	return window(out, page), int64(len(out)), nil
}

type fakeAudit struct{ *fakeStore }

func (r fakeAudit) Log(_ context.Context, entry *model.AuditLog) error {
	r.audits = append(r.audits, *entry)
	return nil
}

func (r fakeAudit) List(_ context.Context, page repository.Page, action string) ([]model.AuditLog, int64, error) {
	out := []model.AuditLog{}
	for i := len(r.audits) - 1; i >= 0; i-- {
		if action == "" || r.audits[i].Action == action {
			out = append(out, r.audits[i])
		}
	}
	return window(out, page), int64(len(out)), nil
}

type fakeUsers struct{ *fakeStore }

func (r fakeUsers) Create(_ context.Context, u *model.User) error {
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	u.ID = r.id()
	r.users[u.ID] = *u
	return nil
}

func (r fakeUsers) GetByID(_ context.Context, id uint) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeUsers) List(_ context.Context, page repository.Page) ([]model.User, int64, error) {
	out := []model.User{}
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return window(out, page), int64(len(out)), nil
}

func (r fakeUsers) Update(_ context.Context, u *model.User) error {
	r.users[u.ID] = *u
	return nil
}

func (r fakeUsers) Delete(_ context.Context, id uint) error {
	delete(r.users, id)
	return nil
}

func (r fakeUsers) CreateRefreshToken(_ context.Context, t *model.RefreshToken) error {
	r.refresh[t.Token] = *t
	return nil
}

func (r fakeUsers) GetRefreshToken(_ context.Context, tok string) (*model.RefreshToken, error) {
	t, ok := r.refresh[tok]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r fakeUsers) DeleteRefreshToken(_ context.Context, tok string) error {
	delete(r.refresh, tok)
	return nil
}

func (r fakeUsers) DeleteRefreshTokensByUser(_ context.Context, userID uint) error {
	for k, t := range r.refresh {
		if t.UserID == userID {
			delete(r.refresh, k)
		}
	}
	return nil
}

// --- clock, notifier, environment ---

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time           { return c.now }
func (c *fixedClock) Location() *time.Location { return c.now.Location() }

type recordingNotifier struct{ batches [][]model.Product }

func (n *recordingNotifier) PublishStock(products []model.Product) {
	n.batches = append(n.batches, products)
}

var laPaz = time.FixedZone("BOT", -4*60*60)

type testEnv struct {
	store    *fakeStore
	tx       *fakeTx
	clock    *fixedClock
	notifier *recordingNotifier
	deps     Dependencies
	admin    Actor
	seller   Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	env := &testEnv{
		store:    store,
		tx:       &fakeTx{store: store},
		clock:    &fixedClock{now: time.Date(2025, 1, 1, 10, 30, 0, 0, laPaz)},
		notifier: &recordingNotifier{},
	}
	env.deps = Dependencies{
		TxManager:       env.tx,
		Users:           fakeUsers{store},
		Customers:       fakeCustomers{store},
		Products:        fakeProducts{store},
		Orders:          fakeOrders{store},
		Returns:         fakeReturns{store},
		Movements:       fakeMovements{store},
		Audit:           fakeAudit{store},
		Locker:          lock.Noop(),
		Clock:           env.clock,
		Notifier:        env.notifier,
		Tokens:          token.NewIssuer([]byte("test-secret"), time.Hour),
		RefreshTokenTTL: 24 * time.Hour,
	}
	env.admin = Actor{UserID: env.addUser("admin@distribuidora.bo", "secret1", model.RoleAdmin).ID, Role: model.RoleAdmin}
	env.seller = Actor{UserID: env.addUser("seller@distribuidora.bo", "secret2", model.RoleSeller).ID, Role: model.RoleSeller}
	return env
}

func (e *testEnv) addUser(email, password, role string) model.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u := model.User{Name: strings.Split(email, "@")[0], Email: email, Password: string(hash), Role: role, Active: true}
	_ = fakeUsers{e.store}.Create(context.Background(), &u)
	return u
}

func (e *testEnv) addCustomer(name string) model.Customer {
	c := model.Customer{Name: name, City: model.DefaultCity, Active: true}
	_ = fakeCustomers{e.store}.Create(context.Background(), &c)
	return c
}

func (e *testEnv) addProduct(name string, stock int, price string) model.Product {
	p := model.Product{
		Name:         name,
		Unit:         model.UnitPiece,
		SalePrice:    decimal.RequireFromString(price),
		StockOnHand:  stock,
		StockMinimum: model.DefaultStockMinimum,
		Active:       true,
	}
	_ = fakeProducts{e.store}.Create(context.Background(), &p)
	return p
}

func (e *testEnv) stock(productID uint) int {
	return e.store.products[productID].StockOnHand
}

func (e *testEnv) setStatus(orderID uint, status string) {
	o := e.store.orders[orderID]
	o.Status = status
	e.store.orders[orderID] = o
}

func qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

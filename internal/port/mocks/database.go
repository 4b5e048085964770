// Package mocks provides in-memory implementations of the ports for tests.
package mocks

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/rl1809/catalog-orders/internal/core/domain"
	"github.com/rl1809/catalog-orders/internal/port"
)

type state struct {
	users      map[int64]domain.User
	categories map[int64]domain.Category
	products   map[int64]domain.Product
	orders     map[int64]domain.Order
	details    map[int64]domain.OrderDetail
	coupons    map[int64]domain.Coupon
	nextID     int64
}

func newState() *state {
	return &state{
		users:      map[int64]domain.User{},
		categories: map[int64]domain.Category{},
		products:   map[int64]domain.Product{},
		orders:     map[int64]domain.Order{},
		details:    map[int64]domain.OrderDetail{},
		coupons:    map[int64]domain.Coupon{},
		nextID:     1000,
	}
}

func (s *state) clone() *state {
	c := &state{
		users:      make(map[int64]domain.User, len(s.users)),
		categories: make(map[int64]domain.Category, len(s.categories)),
		products:   make(map[int64]domain.Product, len(s.products)),
		orders:     make(map[int64]domain.Order, len(s.orders)),
		details:    make(map[int64]domain.OrderDetail, len(s.details)),
		coupons:    make(map[int64]domain.Coupon, len(s.coupons)),
		nextID:     s.nextID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.details {
		c.details[k] = v
	}
	for k, v := range s.coupons {
		c.coupons[k] = v
	}
	return c
}

func (s *state) id(requested int64) int64 {
	if requested != 0 {
		return requested
	}
	s.nextID++
	return s.nextID
}

// Database is an in-memory port.DatabaseRepository. Transactions are
// serialized and work on a private copy that replaces the committed state
// only when fn succeeds. Writes made outside a transaction while one is open
// are lost when it commits; tests seed data before running operations.
type Database struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state

	hookMu sync.Mutex
	hook   func(op string) error

	statsMu   sync.Mutex
	commits   int
	rollbacks int
}

func NewDatabase() *Database {
	return &Database{st: newState()}
}

// FailOn makes every write whose op name ("orders.insert",
// "order_details.insert", "products.update", ...) matches op return err.
func (d *Database) FailOn(op string, err error) {
	d.hookMu.Lock()
	defer d.hookMu.Unlock()
	d.hook = func(got string) error {
		if got == op {
			return err
		}
		return nil
	}
}

func (d *Database) check(op string) error {
	d.hookMu.Lock()
	defer d.hookMu.Unlock()
	if d.hook == nil {
		return nil
	}
	return d.hook(op)
}

func (d *Database) Commits() int {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.commits
}

func (d *Database) Rollbacks() int {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.rollbacks
}

func (d *Database) Repositories() port.Repositories {
	return d.reposFor(committed{db: d})
}

func (d *Database) WithinTx(ctx context.Context, fn func(ctx context.Context, repos port.Repositories) error) error {
	d.txMu.Lock()
	defer d.txMu.Unlock()

	d.mu.RLock()
	st := d.st.clone()
	d.mu.RUnlock()

	if err := fn(ctx, d.reposFor(staged{st: st})); err != nil {
		d.statsMu.Lock()
		d.rollbacks++
		d.statsMu.Unlock()
		return err
	}

	d.mu.Lock()
	d.st = st
	d.mu.Unlock()

	d.statsMu.Lock()
	d.commits++
	d.statsMu.Unlock()
	return nil
}

// Seeding helpers write straight into the committed state.

func (d *Database) AddUser(u domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.st.users[u.ID] = u
}

func (d *Database) AddCategory(c domain.Category) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.st.categories[c.ID] = c
}

func (d *Database) AddProduct(p domain.Product) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.st.products[p.ID] = p
}

func (d *Database) AddCoupon(c domain.Coupon) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.st.coupons[c.ID] = c
}

func (d *Database) Product(id int64) (domain.Product, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.st.products[id]
	return p, ok
}

func (d *Database) OrderCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.st.orders)
}

func (d *Database) DetailCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.st.details)
}

type access interface {
	read(fn func(s *state))
	write(fn func(s *state) error) error
}

type committed struct{ db *Database }

func (c committed) read(fn func(s *state)) {
	c.db.mu.RLock()
	defer c.db.mu.RUnlock()
	fn(c.db.st)
}

func (c committed) write(fn func(s *state) error) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	return fn(c.db.st)
}

type staged struct{ st *state }

func (s staged) read(fn func(s *state))              { fn(s.st) }
func (s staged) write(fn func(s *state) error) error { return fn(s.st) }

func (d *Database) reposFor(a access) port.Repositories {
	base := repo{db: d, a: a}
	return port.Repositories{
		Users:        userRepo{base},
		Categories:   categoryRepo{base},
		Products:     productRepo{base},
		Orders:       orderRepo{base},
		OrderDetails: detailRepo{base},
		Coupons:      couponRepo{base},
	}
}

type repo struct {
	db *Database
	a  access
}

func (r repo) write(op string, fn func(s *state) error) error {
	if err := r.db.check(op); err != nil {
		return err
	}
	return r.a.write(fn)
}

func paginate[T any](items []T, page port.Page) []T {
	size := page.Size
	if size <= 0 {
		return items
	}
	start := page.Number * size
	if start >= len(items) {
		return []T{}
	}
	return items[start:min(start+size, len(items))]
}

func containsFold(keyword string, fields ...string) bool {
	if keyword == "" {
		return true
	}
	k := strings.ToLower(keyword)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), k) {
			return true
		}
	}
	return false
}

type userRepo struct{ repo }

func (r userRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	var (
		u  domain.User
		ok bool
	)
	r.a.read(func(s *state) { u, ok = s.users[id] })
	if !ok {
		return nil, domain.NewNotFound("user", id)
	}
	return &u, nil
}

type categoryRepo struct{ repo }

func (r categoryRepo) FindByID(_ context.Context, id int64) (*domain.Category, error) {
	var (
		c  domain.Category
		ok bool
	)
	r.a.read(func(s *state) { c, ok = s.categories[id] })
	if !ok {
		return nil, domain.NewNotFound("category", id)
	}
	return &c, nil
}

func (r categoryRepo) FindAll(context.Context) ([]domain.Category, error) {
	var out []domain.Category
	r.a.read(func(s *state) {
		for _, c := range s.categories {
			out = append(out, c)
		}
	})
	slices.SortFunc(out, func(a, b domain.Category) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r categoryRepo) Insert(_ context.Context, c *domain.Category) error {
	return r.write("categories.insert", func(s *state) error {
		c.ID = s.id(c.ID)
		s.categories[c.ID] = *c
		return nil
	})
}

func (r categoryRepo) Update(_ context.Context, c *domain.Category) error {
	return r.write("categories.update", func(s *state) error {
		if _, ok := s.categories[c.ID]; !ok {
			return domain.NewNotFound("category", c.ID)
		}
		s.categories[c.ID] = *c
		return nil
	})
}

func (r categoryRepo) Delete(_ context.Context, id int64) error {
	return r.write("categories.delete", func(s *state) error {
		delete(s.categories, id)
		return nil
	})
}

type productRepo struct{ repo }

func (r productRepo) FindByID(_ context.Context, id int64) (*domain.Product, error) {
	var (
		p  domain.Product
		ok bool
	)
	r.a.read(func(s *state) { p, ok = s.products[id] })
	if !ok {
		return nil, domain.NewNotFound("product", id)
	}
	return &p, nil
}

func (r productRepo) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return r.FindByID(ctx, id)
}

func (r productRepo) FindByIDs(_ context.Context, ids []int64) ([]domain.Product, error) {
	var out []domain.Product
	r.a.read(func(s *state) {
		for _, id := range ids {
			if p, ok := s.products[id]; ok {
				out = append(out, p)
			}
		}
	})
	return out, nil
}

func (r productRepo) Search(_ context.Context, f port.ProductFilter) (*port.ProductPage, error) {
	var all []domain.Product
	r.a.read(func(s *state) {
		for _, p := range s.products {
			if f.CategoryID != 0 && p.CategoryID != f.CategoryID {
				continue
			}
			if !containsFold(f.Keyword, p.Name, p.Description) {
				continue
			}
			all = append(all, p)
		}
	})
	slices.SortFunc(all, func(a, b domain.Product) int {
		if f.Sort == port.SortDesc {
			return cmp.Compare(b.ID, a.ID)
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return &port.ProductPage{Products: paginate(all, f.Page), TotalCount: int64(len(all))}, nil
}

func (r productRepo) ExistsByName(_ context.Context, name string) (bool, error) {
	found := false
	r.a.read(func(s *state) {
		for _, p := range s.products {
			if p.Name == name {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (r productRepo) Insert(_ context.Context, p *domain.Product) error {
	return r.write("products.insert", func(s *state) error {
		p.ID = s.id(p.ID)
		s.products[p.ID] = *p
		return nil
	})
}

func (r productRepo) Update(_ context.Context, p *domain.Product) error {
	return r.write("products.update", func(s *state) error {
		if _, ok := s.products[p.ID]; !ok {
			return domain.NewNotFound("product", p.ID)
		}
		s.products[p.ID] = *p
		return nil
	})
}

func (r productRepo) Delete(_ context.Context, id int64) error {
	return r.write("products.delete", func(s *state) error {
		delete(s.products, id)
		return nil
	})
}

type orderRepo struct{ repo }

func (r orderRepo) FindByID(_ context.Context, id int64) (*domain.Order, error) {
	var (
		o  domain.Order
		ok bool
	)
	r.a.read(func(s *state) { o, ok = s.orders[id] })
	if !ok {
		return nil, domain.NewNotFound("order", id)
	}
	return &o, nil
}

func (r orderRepo) Insert(_ context.Context, o *domain.Order) error {
	return r.write("orders.insert", func(s *state) error {
		o.ID = s.id(o.ID)
		stored := *o
		stored.Details = nil
		s.orders[o.ID] = stored
		return nil
	})
}

func (r orderRepo) Update(_ context.Context, o *domain.Order) error {
	return r.write("orders.update", func(s *state) error {
		if _, ok := s.orders[o.ID]; !ok {
			return domain.NewNotFound("order", o.ID)
		}
		stored := *o
		stored.Details = nil
		s.orders[o.ID] = stored
		return nil
	})
}

func (r orderRepo) filter(keep func(o domain.Order) bool) []domain.Order {
	var out []domain.Order
	r.a.read(func(s *state) {
		for _, o := range s.orders {
			if o.Active && keep(o) {
				out = append(out, o)
			}
		}
	})
	slices.SortFunc(out, func(a, b domain.Order) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (r orderRepo) FindByUserID(_ context.Context, userID int64) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool { return o.UserID == userID }), nil
}

func (r orderRepo) FindByKeyword(_ context.Context, keyword string, page port.Page) (*port.OrderPage, error) {
	all := r.filter(func(o domain.Order) bool {
		return containsFold(keyword, o.FullName, o.Address, o.Note, o.Email)
	})
	return &port.OrderPage{Orders: paginate(all, page), TotalCount: int64(len(all))}, nil
}

func (r orderRepo) FindByUserIDAndKeyword(_ context.Context, userID int64, keyword string, page port.Page) (*port.OrderPage, error) {
	all := r.filter(func(o domain.Order) bool {
		return o.UserID == userID && containsFold(keyword, o.FullName, o.Address, o.Note, o.Email)
	})
	return &port.OrderPage{Orders: paginate(all, page), TotalCount: int64(len(all))}, nil
}

type detailRepo struct{ repo }

func (r detailRepo) FindByID(_ context.Context, id int64) (*domain.OrderDetail, error) {
	var (
		d  domain.OrderDetail
		ok bool
	)
	r.a.read(func(s *state) { d, ok = s.details[id] })
	if !ok {
		return nil, domain.NewNotFound("order detail", id)
	}
	return &d, nil
}

func (r detailRepo) FindByOrderID(_ context.Context, orderID int64) ([]domain.OrderDetail, error) {
	var out []domain.OrderDetail
	r.a.read(func(s *state) {
		for _, d := range s.details {
			if d.OrderID == orderID {
				out = append(out, d)
			}
		}
	})
	slices.SortFunc(out, func(a, b domain.OrderDetail) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r detailRepo) Insert(_ context.Context, d *domain.OrderDetail) error {
	return r.write("order_details.insert", func(s *state) error {
		d.ID = s.id(d.ID)
		s.details[d.ID] = *d
		return nil
	})
}

func (r detailRepo) Update(_ context.Context, d *domain.OrderDetail) error {
	return r.write("order_details.update", func(s *state) error {
		if _, ok := s.details[d.ID]; !ok {
			return domain.NewNotFound("order detail", d.ID)
		}
		s.details[d.ID] = *d
		return nil
	})
}

func (r detailRepo) Delete(_ context.Context, id int64) error {
	return r.write("order_details.delete", func(s *state) error {
		delete(s.details, id)
		return nil
	})
}

type couponRepo struct{ repo }

func (r couponRepo) FindByID(_ context.Context, id int64) (*domain.Coupon, error) {
	var (
		c  domain.Coupon
		ok bool
	)
	r.a.read(func(s *state) { c, ok = s.coupons[id] })
	if !ok {
		return nil, domain.NewNotFound("coupon", id)
	}
	return &c, nil
}

func (r couponRepo) FindByCode(_ context.Context, code string) (*domain.Coupon, error) {
	var (
		c  domain.Coupon
		ok bool
	)
	r.a.read(func(s *state) {
		for _, v := range s.coupons {
			if v.Code == code {
				c, ok = v, true
				return
			}
		}
	})
	if !ok {
		return nil, domain.NewNotFound("coupon", code)
	}
	return &c, nil
}

func (r couponRepo) FindAll(context.Context) ([]domain.Coupon, error) {
	var out []domain.Coupon
	r.a.read(func(s *state) {
		for _, c := range s.coupons {
			out = append(out, c)
		}
	})
	slices.SortFunc(out, func(a, b domain.Coupon) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r couponRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := r.FindByCode(ctx, code)
	return err == nil, nil
}

func (r couponRepo) Insert(_ context.Context, c *domain.Coupon) error {
	return r.write("coupons.insert", func(s *state) error {
		c.ID = s.id(c.ID)
		s.coupons[c.ID] = *c
		return nil
	})
}

func (r couponRepo) Update(_ context.Context, c *domain.Coupon) error {
	return r.write("coupons.update", func(s *state) error {
		if _, ok := s.coupons[c.ID]; !ok {
			return domain.NewNotFound("coupon", c.ID)
		}
		s.coupons[c.ID] = *c
		return nil
	})
}

func (r couponRepo) Delete(_ context.Context, id int64) error {
	return r.write("coupons.delete", func(s *state) error {
		delete(s.coupons, id)
		return nil
	})
}

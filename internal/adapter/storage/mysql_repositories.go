package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rl1809/catalog-orders/internal/core/domain"
	"github.com/rl1809/catalog-orders/internal/port"
)

type userStore struct{ q queryer }

func (s *userStore) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := s.q.QueryRowContext(ctx, `
		SELECT id, fullname, email, phone_number, is_active
		FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.FullName, &u.Email, &u.PhoneNumber, &u.Active)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return &u, nil
}

type categoryStore struct{ q queryer }

func (s *categoryStore) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	err := s.q.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, notFound(err, "category", id)
	}
	return &c, nil
}

func (s *categoryStore) FindAll(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *categoryStore) Insert(ctx context.Context, c *domain.Category) error {
	res, err := s.q.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, c.Name)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	c.ID, err = lastInsertID(res)
	return err
}

func (s *categoryStore) Update(ctx context.Context, c *domain.Category) error {
	res, err := s.q.ExecContext(ctx, `UPDATE categories SET name = ? WHERE id = ?`, c.Name, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return mustAffect(res, "category", c.ID)
}

func (s *categoryStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

const productColumns = `id, name, price, thumbnail, COALESCE(description, ''), category_id,
	quantity, stock_quantity, created_at, updated_at`

type productStore struct {
	q    queryer
	inTx bool
}

func scanProduct(r rowScanner) (*domain.Product, error) {
	var p domain.Product
	err := r.Scan(&p.ID, &p.Name, &p.Price, &p.Thumbnail, &p.Description, &p.CategoryID,
		&p.Quantity, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *productStore) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(s.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return p, nil
}

func (s *productStore) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	if !s.inTx {
		return s.FindByID(ctx, id)
	}
	p, err := scanProduct(s.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return p, nil
}

func (s *productStore) FindByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.list(ctx, `SELECT `+productColumns+` FROM products WHERE id IN (`+placeholders(len(ids))+`) ORDER BY id`, args...)
}

func (s *productStore) list(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *productStore) Search(ctx context.Context, f port.ProductFilter) (*port.ProductPage, error) {
	where := `WHERE (? = '' OR LOWER(name) LIKE ? OR LOWER(description) LIKE ?) AND (? = 0 OR category_id = ?)`
	pattern := containsPattern(f.Keyword)
	args := []any{f.Keyword, pattern, pattern, f.CategoryID, f.CategoryID}

	var total int64
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	direction := "ASC"
	if f.Sort == port.SortDesc {
		direction = "DESC"
	}
	query := `SELECT ` + productColumns + ` FROM products ` + where + ` ORDER BY id ` + direction
	if f.Page.Size > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Page.Size, offset(f.Page))
	}
	products, err := s.list(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return &port.ProductPage{Products: products, TotalCount: total}, nil
}

func (s *productStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE name = ?)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query product name: %w", err)
	}
	return exists, nil
}

func (s *productStore) Insert(ctx context.Context, p *domain.Product) error {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO products (name, price, thumbnail, description, category_id, quantity, stock_quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Price, p.Thumbnail, p.Description, p.CategoryID, p.Quantity, p.StockQuantity,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if duplicate(err) {
			return fmt.Errorf("product %q: %w", p.Name, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	p.ID, err = lastInsertID(res)
	return err
}

func (s *productStore) Update(ctx context.Context, p *domain.Product) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE products
		SET name = ?, price = ?, thumbnail = ?, description = ?, category_id = ?,
		    quantity = ?, stock_quantity = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Price, p.Thumbnail, p.Description, p.CategoryID,
		p.Quantity, p.StockQuantity, p.UpdatedAt, p.ID,
	)
	if err != nil {
		if duplicate(err) {
			return fmt.Errorf("product %q: %w", p.Name, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("update product: %w", err)
	}
	return mustAffect(res, "product", p.ID)
}

func (s *productStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

const orderColumns = `id, user_id, fullname, email, phone_number, address, note, status, order_date,
	shipping_method, shipping_address, shipping_date, payment_method, coupon_code, total_money, active`

// orderMatch is the keyword predicate shared by the order searches.
const orderMatch = `(? = '' OR LOWER(fullname) LIKE ? OR LOWER(address) LIKE ? OR LOWER(note) LIKE ? OR LOWER(email) LIKE ?)`

type orderStore struct{ q queryer }

func scanOrder(r rowScanner) (*domain.Order, error) {
	var (
		o      domain.Order
		status string
		coupon sql.NullString
	)
	err := r.Scan(&o.ID, &o.UserID, &o.FullName, &o.Email, &o.PhoneNumber, &o.Address, &o.Note, &status,
		&o.OrderDate, &o.ShippingMethod, &o.ShippingAddress, &o.ShippingDate, &o.PaymentMethod,
		&coupon, &o.TotalMoney, &o.Active)
	if err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	o.CouponCode = coupon.String
	return &o, nil
}

func (s *orderStore) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := scanOrder(s.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return o, nil
}

func (s *orderStore) Insert(ctx context.Context, o *domain.Order) error {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO orders (user_id, fullname, email, phone_number, address, note, status, order_date,
			shipping_method, shipping_address, shipping_date, payment_method, coupon_code, total_money, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.UserID, o.FullName, o.Email, o.PhoneNumber, o.Address, o.Note, string(o.Status), o.OrderDate,
		o.ShippingMethod, o.ShippingAddress, o.ShippingDate, o.PaymentMethod, nullString(o.CouponCode),
		o.TotalMoney, o.Active,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	o.ID, err = lastInsertID(res)
	return err
}

func (s *orderStore) Update(ctx context.Context, o *domain.Order) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE orders
		SET user_id = ?, fullname = ?, email = ?, phone_number = ?, address = ?, note = ?, status = ?,
		    shipping_method = ?, shipping_address = ?, shipping_date = ?, payment_method = ?,
		    coupon_code = ?, total_money = ?, active = ?
		WHERE id = ?`,
		o.UserID, o.FullName, o.Email, o.PhoneNumber, o.Address, o.Note, string(o.Status),
		o.ShippingMethod, o.ShippingAddress, o.ShippingDate, o.PaymentMethod,
		nullString(o.CouponCode), o.TotalMoney, o.Active, o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return mustAffect(res, "order", o.ID)
}

func (s *orderStore) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	out := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (s *orderStore) FindByUserID(ctx context.Context, userID int64) ([]domain.Order, error) {
	return s.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = ? AND active = 1 ORDER BY id`, userID)
}

func (s *orderStore) page(ctx context.Context, where string, args []any, page port.Page) (*port.OrderPage, error) {
	var total int64
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	args = append(args, page.Size, offset(page))
	orders, err := s.list(ctx, `SELECT `+orderColumns+` FROM orders `+where+` ORDER BY id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	return &port.OrderPage{Orders: orders, TotalCount: total}, nil
}

func keywordArgs(keyword string) []any {
	p := containsPattern(keyword)
	return []any{keyword, p, p, p, p}
}

func (s *orderStore) FindByKeyword(ctx context.Context, keyword string, page port.Page) (*port.OrderPage, error) {
	return s.page(ctx, `WHERE active = 1 AND `+orderMatch, keywordArgs(keyword), page)
}

func (s *orderStore) FindByUserIDAndKeyword(ctx context.Context, userID int64, keyword string, page port.Page) (*port.OrderPage, error) {
	args := append([]any{userID}, keywordArgs(keyword)...)
	return s.page(ctx, `WHERE user_id = ? AND active = 1 AND `+orderMatch, args, page)
}

const orderDetailColumns = `id, order_id, product_id, price, number_of_products, total_money, color`

type orderDetailStore struct{ q queryer }

func scanOrderDetail(r rowScanner) (*domain.OrderDetail, error) {
	var d domain.OrderDetail
	if err := r.Scan(&d.ID, &d.OrderID, &d.ProductID, &d.Price, &d.NumberOfProducts, &d.TotalMoney, &d.Color); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *orderDetailStore) FindByID(ctx context.Context, id int64) (*domain.OrderDetail, error) {
	d, err := scanOrderDetail(s.q.QueryRowContext(ctx, `SELECT `+orderDetailColumns+` FROM order_details WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "order detail", id)
	}
	return d, nil
}

func (s *orderDetailStore) FindByOrderID(ctx context.Context, orderID int64) ([]domain.OrderDetail, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+orderDetailColumns+` FROM order_details WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order details: %w", err)
	}
	defer rows.Close()

	out := []domain.OrderDetail{}
	for rows.Next() {
		d, err := scanOrderDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order detail: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *orderDetailStore) Insert(ctx context.Context, d *domain.OrderDetail) error {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO order_details (order_id, product_id, price, number_of_products, total_money, color)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.OrderID, d.ProductID, d.Price, d.NumberOfProducts, d.TotalMoney, d.Color,
	)
	if err != nil {
		return fmt.Errorf("insert order detail: %w", err)
	}
	d.ID, err = lastInsertID(res)
	return err
}

func (s *orderDetailStore) Update(ctx context.Context, d *domain.OrderDetail) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE order_details
		SET order_id = ?, product_id = ?, price = ?, number_of_products = ?, total_money = ?, color = ?
		WHERE id = ?`,
		d.OrderID, d.ProductID, d.Price, d.NumberOfProducts, d.TotalMoney, d.Color, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update order detail: %w", err)
	}
	return mustAffect(res, "order detail", d.ID)
}

func (s *orderDetailStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM order_details WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete order detail: %w", err)
	}
	return nil
}

const couponColumns = `id, code, description, discount_type, discount_value, min_purchase_amount,
	start_date, end_date, active`

type couponStore struct{ q queryer }

func scanCoupon(r rowScanner) (*domain.Coupon, error) {
	var (
		c  domain.Coupon
		dt string
	)
	err := r.Scan(&c.ID, &c.Code, &c.Description, &dt, &c.DiscountValue, &c.MinPurchaseAmount,
		&c.StartDate, &c.EndDate, &c.Active)
	if err != nil {
		return nil, err
	}
	c.DiscountType = domain.DiscountType(dt)
	return &c, nil
}

func (s *couponStore) FindByID(ctx context.Context, id int64) (*domain.Coupon, error) {
	c, err := scanCoupon(s.q.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "coupon", id)
	}
	return c, nil
}

func (s *couponStore) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	c, err := scanCoupon(s.q.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = ?`, code))
	if err != nil {
		return nil, notFound(err, "coupon", code)
	}
	return c, nil
}

func (s *couponStore) FindAll(ctx context.Context) ([]domain.Coupon, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query coupons: %w", err)
	}
	defer rows.Close()

	var out []domain.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *couponStore) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM coupons WHERE code = ?)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query coupon code: %w", err)
	}
	return exists, nil
}

func (s *couponStore) Insert(ctx context.Context, c *domain.Coupon) error {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO coupons (code, description, discount_type, discount_value, min_purchase_amount, start_date, end_date, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Code, c.Description, string(c.DiscountType), c.DiscountValue, c.MinPurchaseAmount,
		c.StartDate, c.EndDate, c.Active,
	)
	if err != nil {
		if duplicate(err) {
			return fmt.Errorf("coupon %q: %w", c.Code, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	c.ID, err = lastInsertID(res)
	return err
}

func (s *couponStore) Update(ctx context.Context, c *domain.Coupon) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE coupons
		SET code = ?, description = ?, discount_type = ?, discount_value = ?, min_purchase_amount = ?,
		    start_date = ?, end_date = ?, active = ?
		WHERE id = ?`,
		c.Code, c.Description, string(c.DiscountType), c.DiscountValue, c.MinPurchaseAmount,
		c.StartDate, c.EndDate, c.Active, c.ID,
	)
	if err != nil {
		if duplicate(err) {
			return fmt.Errorf("coupon %q: %w", c.Code, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("update coupon: %w", err)
	}
	return mustAffect(res, "coupon", c.ID)
}

func (s *couponStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM coupons WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	return nil
}

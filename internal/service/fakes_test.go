package service_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeStore — потокобезопасная in-memory реализация каталога, корзины и заказов.
// Списание остатка условное, как в SQL, поэтому годится для гонок оформления.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]*models.Product
	cart     map[int64]*models.CartItem
	orders   map[int64]*models.Order
	items    []*models.OrderItem
	numbers  map[string]bool

	// ошибки по имени метода
	fail map[string]error
}

var (
	_ storage.CartStorage    = (*fakeStore)(nil)
	_ storage.ProductStorage = (*fakeStore)(nil)
	_ storage.OrderStorage   = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:   100,
		products: make(map[int64]*models.Product),
		cart:     make(map[int64]*models.CartItem),
		orders:   make(map[int64]*models.Order),
		numbers:  make(map[string]bool),
		fail:     make(map[string]error),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addProduct(id int64, name, price string, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[id] = &models.Product{ID: id, Name: name, Price: money(price), Stock: stock, CreatedAt: time.Now()}
}

func (f *fakeStore) putInCart(userID, productID int64, quantity int) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.cart[id] = &models.CartItem{ID: id, UserID: userID, ProductID: productID, Quantity: quantity, CreatedAt: time.Now()}
	return id
}

func (f *fakeStore) stock(productID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[productID].Stock
}

func (f *fakeStore) setPrice(productID int64, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[productID].Price = money(price)
}

func (f *fakeStore) cartSize(userID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, item := range f.cart {
		if item.UserID == userID {
			n++
		}
	}
	return n
}

func (f *fakeStore) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

// withProduct дополняет строку корзины живыми данными товара, вызывать под mu
func (f *fakeStore) withProduct(item *models.CartItem) *models.CartItem {
	cp := *item
	if p, ok := f.products[item.ProductID]; ok {
		cp.ProductName = p.Name
		cp.UnitPrice = p.Price
		cp.Stock = p.Stock
	}
	return &cp
}

func (f *fakeStore) userItems(userID int64) []*models.CartItem {
	var items []*models.CartItem
	for _, item := range f.cart {
		if item.UserID == userID {
			items = append(items, f.withProduct(item))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// CartStorage

func (f *fakeStore) GetItemsByUserID(ctx context.Context, userID int64) ([]*models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["GetItemsByUserID"]; err != nil {
		return nil, err
	}
	items := f.userItems(userID)
	if items == nil {
		items = []*models.CartItem{}
	}
	return items, nil
}

func (f *fakeStore) GetItem(ctx context.Context, userID, itemID int64) (*models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.cart[itemID]
	if !ok || item.UserID != userID {
		return nil, storage.ErrCartItemNotFound
	}
	return f.withProduct(item), nil
}

func (f *fakeStore) GetItemByProduct(ctx context.Context, userID, productID int64) (*models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.cart {
		if item.UserID == userID && item.ProductID == productID {
			return f.withProduct(item), nil
		}
	}
	return nil, storage.ErrCartItemNotFound
}

func (f *fakeStore) AddItem(ctx context.Context, userID, productID int64, quantity int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["AddItem"]; err != nil {
		return 0, err
	}
	for _, item := range f.cart {
		if item.UserID == userID && item.ProductID == productID {
			item.Quantity += quantity
			return item.ID, nil
		}
	}
	id := f.id()
	f.cart[id] = &models.CartItem{ID: id, UserID: userID, ProductID: productID, Quantity: quantity, CreatedAt: time.Now()}
	return id, nil
}

func (f *fakeStore) UpdateItemQuantity(ctx context.Context, userID, itemID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.cart[itemID]
	if !ok || item.UserID != userID {
		return storage.ErrCartItemNotFound
	}
	item.Quantity = quantity
	return nil
}

func (f *fakeStore) DeleteItem(ctx context.Context, userID, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.cart[itemID]
	if !ok || item.UserID != userID {
		return storage.ErrCartItemNotFound
	}
	delete(f.cart, itemID)
	return nil
}

func (f *fakeStore) ClearByUserID(ctx context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for id, item := range f.cart {
		if item.UserID == userID {
			delete(f.cart, id)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeStore) LockCheckoutLinesTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CheckoutLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["LockCheckoutLinesTx"]; err != nil {
		return nil, err
	}
	var lines []*models.CheckoutLine
	for _, item := range f.userItems(userID) {
		lines = append(lines, &models.CheckoutLine{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			StockAvailable: item.Stock,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

func (f *fakeStore) ClearByUserIDTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	if err := f.fail["ClearByUserIDTx"]; err != nil {
		return err
	}
	_, err := f.ClearByUserID(ctx, userID)
	return err
}

// ProductStorage

func (f *fakeStore) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["ListProducts"]; err != nil {
		return nil, 0, err
	}
	var all []*models.Product
	for _, p := range f.products {
		if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
			continue
		}
		if filter.Featured && !p.IsFeatured {
			continue
		}
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := len(all)
	if filter.Offset >= total {
		return []*models.Product{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return all[filter.Offset:end], total, nil
}

func (f *fakeStore) SearchProducts(ctx context.Context, query string, limit int) ([]*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found []*models.Product
	for _, p := range f.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			cp := *p
			found = append(found, &cp)
		}
	}
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (f *fakeStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return []*models.Category{{ID: 1, Name: "Audio", Slug: "audio"}}, nil
}

func (f *fakeStore) DecrementStockTx(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["DecrementStockTx"]; err != nil {
		return err
	}
	p, ok := f.products[productID]
	if !ok || p.Stock < quantity {
		return storage.ErrStockConflict
	}
	p.Stock -= quantity
	return nil
}

// OrderStorage

func (f *fakeStore) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["CreateOrderTx"]; err != nil {
		return false, err
	}
	if f.numbers[order.OrderNumber] {
		return false, nil
	}
	f.numbers[order.OrderNumber] = true
	order.ID = f.id()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	cp := *order
	f.orders[order.ID] = &cp
	return true, nil
}

func (f *fakeStore) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["CreateOrderItemTx"]; err != nil {
		return err
	}
	item.ID = f.id()
	cp := *item
	f.items = append(f.items, &cp)
	return nil
}

func (f *fakeStore) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	orders := []*models.Order{}
	for _, o := range f.orders {
		if o.UserID == userID {
			cp := *o
			orders = append(orders, &cp)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return orders, nil
}

func (f *fakeStore) GetOrderByIDForUser(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, storage.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) GetOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := []*models.OrderItem{}
	for _, item := range f.items {
		if item.OrderID == orderID {
			cp := *item
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (f *fakeStore) LockOrderByIDTx(ctx context.Context, tx *sql.Tx, orderID int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["UpdateOrderStatusTx"]; err != nil {
		return err
	}
	o, ok := f.orders[orderID]
	if !ok {
		return storage.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

// fakeUserRepo хранит пользователей в памяти по email
type fakeUserRepo struct {
	users map[string]*models.User
	err   error
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if _, ok := f.users[user.Email]; ok {
		return nil, storage.ErrUserExists
	}
	user.ID = int64(len(f.users) + 1)
	user.CreatedAt = time.Now()
	f.users[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) UpdateUserRole(ctx context.Context, email string, role string) error {
	user, ok := f.users[email]
	if !ok {
		return storage.ErrUserNotFound
	}
	user.Role = role
	return nil
}

func (f *fakeStore) addOrder(userID int64, number, status string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.orders[id] = &models.Order{
		ID:            id,
		UserID:        userID,
		OrderNumber:   number,
		Status:        status,
		PaymentStatus: models.PaymentStatusPending,
		CreatedAt:     time.Now(),
	}
	return id
}

func (f *fakeStore) orderStatus(orderID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[orderID].Status
}

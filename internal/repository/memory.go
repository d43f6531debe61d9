package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"
)

// MemoryRepo is a concurrency-safe in-memory implementation of MarketDB
type MemoryRepo struct {
	mu            sync.RWMutex
	users         map[string]models.User           // key: userID
	emails        map[string]string                // key: lower-case email -> userID
	categories    map[string]models.Category       // key: categoryID
	products      map[string]models.Product        // key: productID
	bids          map[string][]models.Bid          // key: productID -> bids in placement order
	bidIndex      map[string]string                // key: bidID -> productID
	orders        map[string]models.Order          // key: orderID
	reviews       map[string]models.Review         // key: reviewID
	reviewedOrder map[string]string                // key: orderID -> reviewID
	notifications map[string][]models.Notification // key: userID
	marketPrices  map[string]models.MarketPrice    // key: commodity|market|date
	mspRates      map[string]models.MSPRate        // key: commodity|season|year
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:         make(map[string]models.User),
		emails:        make(map[string]string),
		categories:    make(map[string]models.Category),
		products:      make(map[string]models.Product),
		bids:          make(map[string][]models.Bid),
		bidIndex:      make(map[string]string),
		orders:        make(map[string]models.Order),
		reviews:       make(map[string]models.Review),
		reviewedOrder: make(map[string]string),
		notifications: make(map[string][]models.Notification),
		marketPrices:  make(map[string]models.MarketPrice),
		mspRates:      make(map[string]models.MSPRate),
	}
}

// Close is a no-op for the in-memory store
func (r *MemoryRepo) Close() {}

// ---------- users ----------

// CreateUser stores a new account; emails are unique case-insensitively
func (r *MemoryRepo) CreateUser(_ context.Context, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.UserID]; exists {
		return fmt.Errorf("create user %s: %w", user.UserID, marketerrors.ErrAlreadyExists)
	}
	key := strings.ToLower(user.Email)
	if _, taken := r.emails[key]; taken {
		return fmt.Errorf("create user %s: %w", user.Email, marketerrors.ErrEmailTaken)
	}
	r.users[user.UserID] = user
	r.emails[key] = user.UserID
	return nil
}

func (r *MemoryRepo) GetUserByID(_ context.Context, userID string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return models.User{}, fmt.Errorf("get user %s: %w", userID, marketerrors.ErrUserNotFound)
	}
	return u, nil
}

func (r *MemoryRepo) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.emails[strings.ToLower(email)]
	if !ok {
		return models.User{}, fmt.Errorf("get user by email %s: %w", email, marketerrors.ErrUserNotFound)
	}
	return r.users[id], nil
}

// UpdateUser applies mutate to the stored account atomically; the id and
// email cannot change
func (r *MemoryRepo) UpdateUser(_ context.Context, userID string, mutate UserMutation) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return models.User{}, fmt.Errorf("update user %s: %w", userID, marketerrors.ErrUserNotFound)
	}
	if err := mutate(&u); err != nil {
		return models.User{}, err
	}
	stored := r.users[userID]
	u.UserID, u.Email = stored.UserID, stored.Email
	r.users[userID] = u
	return u, nil
}

func (r *MemoryRepo) ListUsers(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(u.Name), q) && !strings.Contains(strings.ToLower(u.Email), q) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return models.PageSlice(out, filter.Page), len(out), nil
}

func (r *MemoryRepo) CountUsersByRole(_ context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, u := range r.users {
		counts[u.Role]++
	}
	return counts, nil
}

// ---------- catalog ----------

// CreateCategory stores a category; names are unique case-insensitively
func (r *MemoryRepo) CreateCategory(_ context.Context, category models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.categories {
		if strings.EqualFold(c.Name, category.Name) || c.CategoryID == category.CategoryID {
			return fmt.Errorf("create category %s: %w", category.Name, marketerrors.ErrAlreadyExists)
		}
	}
	r.categories[category.CategoryID] = category
	return nil
}

func (r *MemoryRepo) GetCategory(_ context.Context, categoryID string) (models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.categories[categoryID]
	if !ok {
		return models.Category{}, fmt.Errorf("get category %s: %w", categoryID, marketerrors.ErrCategoryNotFound)
	}
	return c, nil
}

func (r *MemoryRepo) ListCategories(_ context.Context) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) CreateProduct(_ context.Context, product models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[product.ProductID]; exists {
		return fmt.Errorf("create product %s: %w", product.ProductID, marketerrors.ErrAlreadyExists)
	}
	product.Images = append([]models.ProductImage(nil), product.Images...)
	r.products[product.ProductID] = product
	return nil
}

func (r *MemoryRepo) GetProduct(_ context.Context, productID string) (models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[productID]
	if !ok {
		return models.Product{}, fmt.Errorf("get product %s: %w", productID, marketerrors.ErrProductNotFound)
	}
	return copyProduct(p), nil
}

// UpdateProduct applies mutate to the stored product atomically. The id,
// owner and images are kept.
func (r *MemoryRepo) UpdateProduct(_ context.Context, productID string, mutate ProductMutation) (models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[productID]
	if !ok {
		return models.Product{}, fmt.Errorf("update product %s: %w", productID, marketerrors.ErrProductNotFound)
	}
	p := copyProduct(existing)
	if err := mutate(&p); err != nil {
		return models.Product{}, err
	}
	p.ProductID, p.FarmerID, p.Images = existing.ProductID, existing.FarmerID, existing.Images
	r.products[productID] = p
	return copyProduct(p), nil
}

func (r *MemoryRepo) DeleteProduct(_ context.Context, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[productID]; !ok {
		return fmt.Errorf("delete product %s: %w", productID, marketerrors.ErrProductNotFound)
	}
	delete(r.products, productID)
	return nil
}

func (r *MemoryRepo) ListProducts(_ context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if matchProduct(p, filter) {
			out = append(out, copyProduct(p))
		}
	}
	sortProducts(out, filter.Sort)
	return models.PageSlice(out, filter.Page), len(out), nil
}

// AddProductImage attaches an image; the first image of a product is primary
func (r *MemoryRepo) AddProductImage(_ context.Context, image models.ProductImage, maxImages int) (models.ProductImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[image.ProductID]
	if !ok {
		return models.ProductImage{}, fmt.Errorf("add image to product %s: %w", image.ProductID, marketerrors.ErrProductNotFound)
	}
	if maxImages > 0 && len(p.Images) >= maxImages {
		return models.ProductImage{}, fmt.Errorf("add image to product %s: %w", image.ProductID, marketerrors.ErrImageLimit)
	}
	image.Primary = len(p.Images) == 0
	p.Images = append(p.Images, image)
	r.products[p.ProductID] = p
	return image, nil
}

func (r *MemoryRepo) CountProductsByStatus(_ context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, p := range r.products {
		counts[p.Status]++
	}
	return counts, nil
}

func copyProduct(p models.Product) models.Product {
	p.Images = append([]models.ProductImage{}, p.Images...)
	return p
}

func matchProduct(p models.Product, f models.ProductFilter) bool {
	if len(f.Statuses) > 0 && !contains(f.Statuses, p.Status) {
		return false
	}
	if f.CategoryID != "" && p.CategoryID != f.CategoryID {
		return false
	}
	if f.FarmerID != "" && p.FarmerID != f.FarmerID {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.Bidding != nil && p.BiddingEnabled != *f.Bidding {
		return false
	}
	if f.Organic != nil && p.Organic != *f.Organic {
		return false
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(p.Location), strings.ToLower(f.Location)) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	return true
}

func sortProducts(list []models.Product, order string) {
	sort.SliceStable(list, func(i, j int) bool {
		switch order {
		case models.SortPriceAsc:
			if list[i].Price != list[j].Price {
				return list[i].Price < list[j].Price
			}
		case models.SortPriceDesc:
			if list[i].Price != list[j].Price {
				return list[i].Price > list[j].Price
			}
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ---------- bids ----------

// PlaceBid records a bid as the product's only active bid after check passes
func (r *MemoryRepo) PlaceBid(_ context.Context, bid models.Bid, check BidCheck) ([]models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[bid.ProductID]
	if !ok {
		return nil, fmt.Errorf("place bid on product %s: %w", bid.ProductID, marketerrors.ErrProductNotFound)
	}
	highest := r.highestActive(bid.ProductID)
	if check != nil {
		if err := check(copyProduct(product), highest); err != nil {
			return nil, err
		}
	}

	bids := r.bids[bid.ProductID]
	var outbid []models.Bid
	for i := range bids {
		if bids[i].Status == models.BidActive {
			bids[i].Status = models.BidOutbid
			bids[i].UpdatedAt = bid.CreatedAt
			outbid = append(outbid, bids[i])
		}
	}
	bid.FarmerID = product.FarmerID
	bid.Status = models.BidActive
	r.bids[bid.ProductID] = append(bids, bid)
	r.bidIndex[bid.BidID] = bid.ProductID
	return outbid, nil
}

func (r *MemoryRepo) GetBid(_ context.Context, bidID string) (models.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pid, idx, ok := r.findBid(bidID)
	if !ok {
		return models.Bid{}, fmt.Errorf("get bid %s: %w", bidID, marketerrors.ErrBidNotFound)
	}
	return r.bids[pid][idx], nil
}

// GetHighestBid returns the current active bid for a product
func (r *MemoryRepo) GetHighestBid(_ context.Context, productID string) (models.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	highest := r.highestActive(productID)
	if highest == nil {
		return models.Bid{}, fmt.Errorf("get highest bid for product %s: %w", productID, marketerrors.ErrNoBids)
	}
	return *highest, nil
}

// ListBidsByProduct returns all bids on a product, highest first
func (r *MemoryRepo) ListBidsByProduct(_ context.Context, productID string) ([]models.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.products[productID]; !ok {
		return nil, fmt.Errorf("list bids for product %s: %w", productID, marketerrors.ErrProductNotFound)
	}
	out := append([]models.Bid{}, r.bids[productID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Higher(out[j]) })
	return out, nil
}

// ListBids returns bids placed by a buyer or received by a farmer, newest first
func (r *MemoryRepo) ListBids(_ context.Context, filter models.BidFilter) ([]models.Bid, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Bid
	for _, bids := range r.bids {
		for _, b := range bids {
			if filter.BuyerID != "" && b.BuyerID != filter.BuyerID {
				continue
			}
			if filter.FarmerID != "" && b.FarmerID != filter.FarmerID {
				continue
			}
			if filter.Status != "" && b.Status != filter.Status {
				continue
			}
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return models.PageSlice(out, filter.Page), len(out), nil
}

// AcceptBid accepts a bid, rejects the other open bids on the product,
// takes the order quantity out of stock and stores the built order.
func (r *MemoryRepo) AcceptBid(_ context.Context, bidID string, build OrderBuilder) (models.Bid, models.Order, []models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pid, idx, ok := r.findBid(bidID)
	if !ok {
		return models.Bid{}, models.Order{}, nil, fmt.Errorf("accept bid %s: %w", bidID, marketerrors.ErrBidNotFound)
	}
	product, ok := r.products[pid]
	if !ok {
		return models.Bid{}, models.Order{}, nil, fmt.Errorf("accept bid %s: %w", bidID, marketerrors.ErrProductNotFound)
	}
	bids := r.bids[pid]

	order, err := build(bids[idx], copyProduct(product))
	if err != nil {
		return models.Bid{}, models.Order{}, nil, err
	}
	if order.Quantity > product.Quantity {
		return models.Bid{}, models.Order{}, nil, fmt.Errorf("accept bid %s: %w", bidID, marketerrors.ErrInsufficientStock)
	}

	bids[idx].Status = models.BidAccepted
	bids[idx].UpdatedAt = order.CreatedAt
	var closed []models.Bid
	for i := range bids {
		if i != idx && bids[i].Open() {
			bids[i].Status = models.BidRejected
			bids[i].UpdatedAt = order.CreatedAt
			closed = append(closed, bids[i])
		}
	}

	r.takeStock(&product, order.Quantity)
	product.UpdatedAt = order.CreatedAt
	r.products[pid] = product
	r.orders[order.OrderID] = order
	return bids[idx], order, closed, nil
}

// CloseBid applies mutate to an open bid. When the active bid is closed the
// highest remaining outbid bid becomes active again and is returned.
func (r *MemoryRepo) CloseBid(_ context.Context, bidID string, mutate BidMutation) (models.Bid, *models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pid, idx, ok := r.findBid(bidID)
	if !ok {
		return models.Bid{}, nil, fmt.Errorf("close bid %s: %w", bidID, marketerrors.ErrBidNotFound)
	}
	bids := r.bids[pid]
	bid := bids[idx]
	wasActive := bid.Status == models.BidActive
	if err := mutate(&bid); err != nil {
		return models.Bid{}, nil, err
	}
	bids[idx] = bid

	if !wasActive || bid.Status == models.BidActive {
		return bid, nil, nil
	}
	next := -1
	for i := range bids {
		if bids[i].Status != models.BidOutbid {
			continue
		}
		if next < 0 || bids[i].Higher(bids[next]) {
			next = i
		}
	}
	if next < 0 {
		return bid, nil, nil
	}
	bids[next].Status = models.BidActive
	bids[next].UpdatedAt = bid.UpdatedAt
	promoted := bids[next]
	return bid, &promoted, nil
}

func (r *MemoryRepo) findBid(bidID string) (string, int, bool) {
	pid, ok := r.bidIndex[bidID]
	if !ok {
		return "", 0, false
	}
	for i, b := range r.bids[pid] {
		if b.BidID == bidID {
			return pid, i, true
		}
	}
	return "", 0, false
}

func (r *MemoryRepo) highestActive(productID string) *models.Bid {
	var best *models.Bid
	for _, b := range r.bids[productID] {
		if b.Status != models.BidActive {
			continue
		}
		if best == nil || b.Higher(*best) {
			b := b
			best = &b
		}
	}
	return best
}

func (r *MemoryRepo) takeStock(p *models.Product, qty float64) {
	p.Quantity -= qty
	if p.Quantity <= 0 {
		p.Quantity = 0
		p.Status = models.ProductSold
	}
}

// ---------- orders ----------

// CreateOrder stores an order and takes its quantity out of stock after check passes
func (r *MemoryRepo) CreateOrder(_ context.Context, order models.Order, check ProductCheck) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[order.ProductID]
	if !ok {
		return models.Order{}, fmt.Errorf("create order for product %s: %w", order.ProductID, marketerrors.ErrProductNotFound)
	}
	if check != nil {
		if err := check(copyProduct(product), &order); err != nil {
			return models.Order{}, err
		}
	}
	if order.Quantity > product.Quantity {
		return models.Order{}, fmt.Errorf("create order for product %s: %w", order.ProductID, marketerrors.ErrInsufficientStock)
	}

	r.takeStock(&product, order.Quantity)
	product.UpdatedAt = order.CreatedAt
	r.products[product.ProductID] = product
	r.orders[order.OrderID] = order
	return order, nil
}

func (r *MemoryRepo) GetOrder(_ context.Context, orderID string) (models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[orderID]
	if !ok {
		return models.Order{}, fmt.Errorf("get order %s: %w", orderID, marketerrors.ErrOrderNotFound)
	}
	return o, nil
}

func (r *MemoryRepo) ListOrders(_ context.Context, filter models.OrderFilter) ([]models.Order, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Order, 0)
	for _, o := range r.orders {
		if filter.BuyerID != "" && o.BuyerID != filter.BuyerID {
			continue
		}
		if filter.FarmerID != "" && o.FarmerID != filter.FarmerID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && o.PaymentStatus != filter.PaymentStatus {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return models.PageSlice(out, filter.Page), len(out), nil
}

// UpdateOrder applies mutate atomically. An order entering cancelled returns
// its quantity to the product.
func (r *MemoryRepo) UpdateOrder(_ context.Context, orderID string, mutate OrderMutation) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return models.Order{}, fmt.Errorf("update order %s: %w", orderID, marketerrors.ErrOrderNotFound)
	}
	prev := o.Status
	if err := mutate(&o); err != nil {
		return models.Order{}, err
	}

	if prev != models.OrderCancelled && o.Status == models.OrderCancelled {
		if p, ok := r.products[o.ProductID]; ok {
			p.Quantity += o.Quantity
			if p.Status == models.ProductSold {
				p.Status = models.ProductActive
			}
			p.UpdatedAt = o.UpdatedAt
			r.products[p.ProductID] = p
		}
	}
	r.orders[orderID] = o
	return o, nil
}

// ProductHasActivity reports whether a product has any bids or orders
func (r *MemoryRepo) ProductHasActivity(_ context.Context, productID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.bids[productID]) > 0 {
		return true, nil
	}
	for _, o := range r.orders {
		if o.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

// ---------- reviews ----------

// CreateReview stores a review; each order can be reviewed once
func (r *MemoryRepo) CreateReview(_ context.Context, review models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, done := r.reviewedOrder[review.OrderID]; done {
		return fmt.Errorf("create review for order %s: %w", review.OrderID, marketerrors.ErrAlreadyReviewed)
	}
	r.reviews[review.ReviewID] = review
	r.reviewedOrder[review.OrderID] = review.ReviewID
	return nil
}

func (r *MemoryRepo) ListReviews(_ context.Context, filter models.ReviewFilter) ([]models.Review, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := r.matchReviews(filter)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return models.PageSlice(out, filter.Page), len(out), nil
}

// RatingSummary returns the average rating and review count for the filter
func (r *MemoryRepo) RatingSummary(_ context.Context, filter models.ReviewFilter) (float64, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.matchReviews(filter)
	if len(list) == 0 {
		return 0, 0, nil
	}
	sum := 0
	for _, rv := range list {
		sum += rv.Rating
	}
	return float64(sum) / float64(len(list)), len(list), nil
}

func (r *MemoryRepo) matchReviews(filter models.ReviewFilter) []models.Review {
	out := make([]models.Review, 0)
	for _, rv := range r.reviews {
		if filter.FarmerID != "" && rv.FarmerID != filter.FarmerID {
			continue
		}
		if filter.ProductID != "" && rv.ProductID != filter.ProductID {
			continue
		}
		out = append(out, rv)
	}
	return out
}

// ---------- notifications ----------

func (r *MemoryRepo) CreateNotification(_ context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifications[n.UserID] = append(r.notifications[n.UserID], n)
	return nil
}

// ListNotifications returns a user's notifications, newest first
func (r *MemoryRepo) ListNotifications(_ context.Context, userID string, unreadOnly bool, page models.Page) ([]models.Notification, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.notifications[userID]
	out := make([]models.Notification, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if unreadOnly && all[i].Read {
			continue
		}
		out = append(out, all[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return models.PageSlice(out, page), len(out), nil
}

func (r *MemoryRepo) MarkNotificationRead(_ context.Context, userID, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.notifications[userID]
	for i := range list {
		if list[i].NotificationID == notificationID {
			list[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("mark notification %s read: %w", notificationID, marketerrors.ErrNotificationNotFound)
}

// MarkAllNotificationsRead marks every unread notification and returns how many changed
func (r *MemoryRepo) MarkAllNotificationsRead(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := 0
	list := r.notifications[userID]
	for i := range list {
		if !list[i].Read {
			list[i].Read = true
			changed++
		}
	}
	return changed, nil
}

func (r *MemoryRepo) CountUnread(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, item := range r.notifications[userID] {
		if !item.Read {
			n++
		}
	}
	return n, nil
}

// ---------- prices ----------

// UpsertMarketPrice inserts or replaces the report for commodity, market and day
func (r *MemoryRepo) UpsertMarketPrice(_ context.Context, price models.MarketPrice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(price.Commodity + "|" + price.Market + "|" + price.ArrivalDate.Format("2006-01-02"))
	if existing, ok := r.marketPrices[key]; ok {
		price.PriceID = existing.PriceID
	}
	r.marketPrices[key] = price
	return nil
}

// UpsertMSP inserts or replaces the rate for commodity, season and year
func (r *MemoryRepo) UpsertMSP(_ context.Context, rate models.MSPRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(rate.Commodity + "|" + rate.Season + "|" + rate.Year)
	if existing, ok := r.mspRates[key]; ok {
		rate.MSPID = existing.MSPID
	}
	r.mspRates[key] = rate
	return nil
}

func (r *MemoryRepo) ListMarketPrices(_ context.Context, filter models.PriceFilter) ([]models.MarketPrice, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.MarketPrice, 0)
	for _, p := range r.marketPrices {
		if !equalFoldOrEmpty(filter.Commodity, p.Commodity) || !equalFoldOrEmpty(filter.State, p.State) || !equalFoldOrEmpty(filter.Market, p.Market) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ArrivalDate.Equal(out[j].ArrivalDate) {
			return out[i].ArrivalDate.After(out[j].ArrivalDate)
		}
		return out[i].Market < out[j].Market
	})
	return models.PageSlice(out, filter.Page), len(out), nil
}

func (r *MemoryRepo) ListMSP(_ context.Context, filter models.PriceFilter) ([]models.MSPRate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.MSPRate, 0)
	for _, m := range r.mspRates {
		if !equalFoldOrEmpty(filter.Commodity, m.Commodity) || !equalFoldOrEmpty(filter.Season, m.Season) || !equalFoldOrEmpty(filter.Year, m.Year) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Commodity != out[j].Commodity {
			return out[i].Commodity < out[j].Commodity
		}
		return out[i].Year > out[j].Year
	})
	return out, nil
}

func equalFoldOrEmpty(want, got string) bool {
	return want == "" || strings.EqualFold(want, got)
}

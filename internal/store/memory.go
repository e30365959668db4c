package store

import (
	"context"
	"sync"
	"time"

	"stockgate/internal/models"
)

// MemoryProductStore is a mutex-guarded in-memory ProductStore. The mutex
// serializes debits, which is what upholds the non-negativity invariant
// under concurrent consumers.
type MemoryProductStore struct {
	mu     sync.RWMutex
	nextID int
	m      map[int]models.Product
}

func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{nextID: 1, m: make(map[int]models.Product)}
}

func (s *MemoryProductStore) Create(_ context.Context, req models.CreateProductRequest) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := models.Product{
		ID:          s.nextID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		CreatedAt:   time.Now().UTC(),
	}
	s.nextID++
	s.m[p.ID] = p
	return &p, nil
}

func (s *MemoryProductStore) GetByID(_ context.Context, id int) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.m[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryProductStore) GetAll(_ context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]models.Product, 0, len(s.m))
	for id := 1; id < s.nextID; id++ {
		if p, ok := s.m[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func (s *MemoryProductStore) ValidateDemand(_ context.Context, items []models.OrderItemEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range items {
		p, ok := s.m[item.ProductID]
		if !ok || p.Quantity < item.Quantity {
			return &InsufficientStockError{ProductID: item.ProductID}
		}
	}
	return nil
}

func (s *MemoryProductStore) Debit(_ context.Context, productID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.m[productID]
	if !ok {
		return ErrNotFound
	}
	if p.Quantity < quantity {
		return &InsufficientStockError{ProductID: productID}
	}
	p.Quantity -= quantity
	s.m[productID] = p
	return nil
}

// MemoryOrderStore is the in-memory OrderStore counterpart.
type MemoryOrderStore struct {
	mu         sync.RWMutex
	nextID     int
	nextItemID int
	m          map[int]models.Order
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{nextID: 1, nextItemID: 1, m: make(map[int]models.Order)}
}

func (s *MemoryOrderStore) Create(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order.ID = s.nextID
	s.nextID++
	order.CreatedAt = time.Now().UTC()
	for i := range order.Items {
		order.Items[i].ID = s.nextItemID
		order.Items[i].OrderID = order.ID
		s.nextItemID++
	}
	s.m[order.ID] = cloneOrder(*order)
	return nil
}

func (s *MemoryOrderStore) GetByID(_ context.Context, id int) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.m[id]
	if !ok {
		return nil, nil
	}
	o = cloneOrder(o)
	return &o, nil
}

func cloneOrder(o models.Order) models.Order {
	items := make([]models.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

package repository

import (
	"context"
	"sync"

	"github.com/ventusgt/checkout-system/internal/model"
)

// MemoryStore хранит квитанции в памяти процесса. Используется, когда
// база данных не сконфигурирована, и в тестах.
type MemoryStore struct {
	mu       sync.Mutex
	receipts map[string]model.Receipt
}

// NewMemoryStore создаёт пустое хранилище квитанций в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		receipts: make(map[string]model.Receipt),
	}
}

// Close освобождает ресурсы хранилища. Для памяти — ничего не делает.
func (s *MemoryStore) Close() error {
	return nil
}

// SaveReceipt записывает квитанцию в слот сессии, заменяя прежнюю.
func (s *MemoryStore) SaveReceipt(_ context.Context, sessionID string, r model.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.receipts[sessionID] = r
	return nil
}

// TakeReceipt атомарно читает и удаляет квитанцию из слота сессии.
func (s *MemoryStore) TakeReceipt(_ context.Context, sessionID string) (model.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.receipts[sessionID]
	if !ok {
		return model.Receipt{}, ErrReceiptNotFound
	}
	delete(s.receipts, sessionID)

	return r, nil
}

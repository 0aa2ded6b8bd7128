package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ventusgt/checkout-system/internal/model"
	"github.com/ventusgt/checkout-system/internal/pricing"
)

// Manager владеет активными сессиями оформления заказа.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	terms    pricing.Terms
	ttl      time.Duration
}

// NewManager создаёт менеджер сессий с тарифами доставки и временем
// жизни неактивной сессии.
func NewManager(terms pricing.Terms, ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		terms:    terms,
		ttl:      ttl,
	}
}

// Terms возвращает тарифы доставки, с которыми считаются сессии.
func (m *Manager) Terms() pricing.Terms {
	return m.terms
}

// Create создаёт новую сессию для товара. Количество вне [1,10]
// приводится к ближайшей границе.
func (m *Manager) Create(product model.Product, addons []model.Product, quantity int) *Session {
	if quantity < model.MinQuantity {
		quantity = model.MinQuantity
	}
	if quantity > model.MaxQuantity {
		quantity = model.MaxQuantity
	}

	s := newSession(uuid.NewString(), product, addons, quantity, m.terms)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	return s
}

// Get возвращает активную сессию по идентификатору.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return s, true
}

// Dispose закрывает сессию и удаляет её из менеджера.
func (m *Manager) Dispose(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Dispose()
	}
}

// StartJanitor запускает фоновую уборку закрытых и простаивающих
// сессий. Горутина останавливается по отмене контекста.
func (m *Manager) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep(time.Now())
			}
		}
	}()
}

func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.sessions {
		s.mu.Lock()
		stale := s.state == model.StateDisposed || now.Sub(s.touchedAt) > m.ttl
		// Незавершённую отправку не трогаем: её колбэк сам разрулит состояние.
		if s.state == model.StateSubmitting {
			stale = false
		}
		if stale {
			s.state = model.StateDisposed
			delete(m.sessions, id)
		}
		s.mu.Unlock()
	}
}

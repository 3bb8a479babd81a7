package realtime

import (
	"sort"
	"sync"

	"github.com/karigarlink/rfq-service/internal/metrics"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Имена событий, которыми клиент и сервер обмениваются по websocket.
const (
	EventJoinRoom     = "join_room"
	EventOnlineUsers  = "get_online_users"
	EventNotification = "receive_notification"
	EventMessage      = "receive_message"
)

// Event - кадр, передаваемый по соединению.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Handle - канал доставки событий одному подключению.
// Deliver не блокируется и возвращает false, если событие не принято.
type Handle interface {
	Deliver(ev Event) bool
	Close()
}

// Presence - реестр подключенных пользователей и точечная доставка событий им.
type Presence interface {
	Connect(userId string, h Handle)
	Disconnect(h Handle)
	SendToUser(userId, event string, payload any) bool
	ListOnline() []string
}

// Hub хранит соответствие пользователь -> подключение в памяти процесса.
// Состояние теряется при перезапуске; для нескольких экземпляров сервиса
// реестр нужно вынести во внешнее хранилище за тем же интерфейсом Presence.
type Hub struct {
	mu      sync.RWMutex
	handles map[string]Handle
	closed  bool
	log     *zap.SugaredLogger
}

var _ Presence = (*Hub)(nil)

// NewHub создает пустой реестр.
func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		handles: make(map[string]Handle),
		log:     log,
	}
}

// Connect регистрирует (или заменяет) подключение пользователя и рассылает всем
// обновленный список пользователей онлайн. Замененное подключение закрывается.
func (h *Hub) Connect(userId string, handle Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		handle.Close()
		return
	}
	prev, replaced := h.handles[userId]
	h.handles[userId] = handle
	metrics.OnlineUsers.Set(float64(len(h.handles)))

	if replaced && prev != handle {
		h.log.Debugw("replacing realtime connection", "user", userId)
		prev.Close()
	}
	h.broadcastOnlineLocked()
}

// Disconnect удаляет запись, указывающую на это подключение, и рассылает обновленный список.
// Если пользователь уже переподключился, новая запись не трогается.
func (h *Hub) Disconnect(handle Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userId, current := range h.handles {
		if current == handle {
			delete(h.handles, userId)
			metrics.OnlineUsers.Set(float64(len(h.handles)))
			h.broadcastOnlineLocked()
			return
		}
	}
}

// SendToUser доставляет событие пользователю, если он подключен. Вызов не блокируется.
// Для отключенного пользователя событие молча отбрасывается.
func (h *Hub) SendToUser(userId, event string, payload any) bool {
	h.mu.RLock()
	handle, ok := h.handles[userId]
	h.mu.RUnlock()

	if !ok {
		metrics.RealtimeEvents.WithLabelValues(event, "offline").Inc()
		return false
	}
	if !handle.Deliver(Event{Name: event, Data: payload}) {
		metrics.RealtimeEvents.WithLabelValues(event, "dropped").Inc()
		h.log.Debugw("realtime event dropped", "user", userId, "event", event)
		return false
	}
	metrics.RealtimeEvents.WithLabelValues(event, "delivered").Inc()
	return true
}

// ListOnline возвращает отсортированные идентификаторы подключенных пользователей.
func (h *Hub) ListOnline() []string {
	h.mu.RLock()
	ids := lo.Keys(h.handles)
	h.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// broadcastOnlineLocked вызывается под h.mu, поэтому списки доходят до клиентов
// в том же порядке, в каком менялся реестр. Deliver не блокируется.
func (h *Hub) broadcastOnlineLocked() {
	online := lo.Keys(h.handles)
	sort.Strings(online)
	ev := Event{Name: EventOnlineUsers, Data: online}
	for _, handle := range h.handles {
		if !handle.Deliver(ev) {
			metrics.RealtimeEvents.WithLabelValues(EventOnlineUsers, "dropped").Inc()
		}
	}
}

// Close закрывает все подключения. После Close новые подключения сразу закрываются.
func (h *Hub) Close() {
	h.mu.Lock()
	handles := lo.Values(h.handles)
	h.handles = make(map[string]Handle)
	h.closed = true
	metrics.OnlineUsers.Set(0)
	h.mu.Unlock()

	for _, handle := range handles {
		handle.Close()
	}
}

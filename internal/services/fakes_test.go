package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/karigarlink/rfq-service/internal/models"
	"github.com/karigarlink/rfq-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memStore хранит все сущности в памяти и реализует интерфейсы репозиториев
// с той же семантикой, что и реализации для Postgres.
type memStore struct {
	mu       sync.Mutex
	clock    time.Time
	users    map[string]models.UserSummary
	rfqs     map[string]*models.RFQ
	bids     map[string]*models.Bid
	notes    []*models.Notification
	messages []models.Message
}

var (
	_ repository.RFQRepository          = (*memStore)(nil)
	_ repository.BidRepository          = (*memStore)(nil)
	_ repository.NotificationRepository = (*memStore)(nil)
	_ repository.MessageRepository      = (*memStore)(nil)
	_ repository.UserRepository         = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		users: map[string]models.UserSummary{},
		rfqs:  map[string]*models.RFQ{},
		bids:  map[string]*models.Bid{},
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) addUser(name string, role models.Role) models.Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.users[id] = models.UserSummary{ID: id, Name: name, Role: role}
	return models.Principal{ID: id, Name: name, Role: role}
}

func (m *memStore) summary(id string) *models.UserSummary {
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	return &u
}

func copyRFQ(r *models.RFQ) *models.RFQ {
	c := *r
	return &c
}

func copyBid(b *models.Bid) *models.Bid {
	c := *b
	return &c
}

func (m *memStore) CreateRFQ(_ context.Context, rfq *models.RFQ) (*models.RFQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[rfq.BuyerID]; !ok {
		return nil, repository.ErrUnknownReference
	}
	c := copyRFQ(rfq)
	c.ID = uuid.New().String()
	c.Status = models.ActiveRFQ
	c.CreatedAt = m.tick()
	c.UpdatedAt = c.CreatedAt
	if c.Attachments == nil {
		c.Attachments = []string{}
	}
	m.rfqs[c.ID] = c
	return copyRFQ(c), nil
}

func (m *memStore) GetRFQ(_ context.Context, rfqId string) (*models.RFQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rfqs[rfqId]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := copyRFQ(r)
	c.Buyer = m.summary(r.BuyerID)
	return c, nil
}

func (m *memStore) ListRFQs(_ context.Context, filter models.RFQFilter) ([]models.RFQ, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []models.RFQ
	for _, r := range m.rfqs {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Category != "" && r.Category != filter.Category {
			continue
		}
		if q := strings.ToLower(filter.Query); q != "" &&
			!strings.Contains(strings.ToLower(r.Title), q) && !strings.Contains(strings.ToLower(r.Description), q) {
			continue
		}
		if filter.MinQty != nil && r.Quantity < *filter.MinQty {
			continue
		}
		if filter.MaxQty != nil && r.Quantity > *filter.MaxQty {
			continue
		}
		matched = append(matched, *r)
	}
	sort.Slice(matched, func(i, j int) bool {
		switch filter.Sort {
		case models.SortOldest:
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		case models.SortQtyAsc:
			return matched[i].Quantity < matched[j].Quantity
		case models.SortQtyDesc:
			return matched[i].Quantity > matched[j].Quantity
		default:
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
	})
	total := len(matched)
	start := min(filter.Offset(), total)
	end := min(start+filter.Limit, total)
	return matched[start:end], total, nil
}

func (m *memStore) GetBuyerRFQs(_ context.Context, buyerId string) ([]models.RFQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rfqs := []models.RFQ{}
	for _, r := range m.rfqs {
		if r.BuyerID == buyerId {
			rfqs = append(rfqs, *r)
		}
	}
	sort.Slice(rfqs, func(i, j int) bool { return rfqs[i].CreatedAt.After(rfqs[j].CreatedAt) })
	return rfqs, nil
}

func (m *memStore) UpdateRFQ(_ context.Context, rfq *models.RFQ) (*models.RFQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rfqs[rfq.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !cur.IsActive() {
		return nil, repository.ErrRFQNotActive
	}
	c := copyRFQ(rfq)
	c.Buyer = nil
	c.Status = cur.Status
	c.CreatedAt = cur.CreatedAt
	c.UpdatedAt = m.tick()
	m.rfqs[c.ID] = c
	return copyRFQ(c), nil
}

func (m *memStore) DeleteRFQ(_ context.Context, rfqId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rfqs[rfqId]; !ok {
		return repository.ErrNotFound
	}
	for id, b := range m.bids {
		if b.RFQID == rfqId {
			delete(m.bids, id)
		}
	}
	delete(m.rfqs, rfqId)
	return nil
}

func (m *memStore) UpsertBid(_ context.Context, bid *models.Bid) (*models.Bid, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rfq, ok := m.rfqs[bid.RFQID]
	if !ok || !rfq.IsActive() {
		return nil, false, repository.ErrRFQNotActive
	}
	if _, ok := m.users[bid.ProviderID]; !ok {
		return nil, false, repository.ErrUnknownReference
	}
	now := m.tick()
	for _, b := range m.bids {
		if b.RFQID == bid.RFQID && b.ProviderID == bid.ProviderID {
			b.Amount = bid.Amount
			b.Message = bid.Message
			if bid.EtaDays != nil {
				b.EtaDays = bid.EtaDays
			}
			if len(bid.Attachments) > 0 {
				b.Attachments = bid.Attachments
			}
			b.Status = models.PendingBid
			b.RejectionReason = ""
			b.UpdatedAt = now
			return copyBid(b), false, nil
		}
	}
	c := copyBid(bid)
	c.ID = uuid.New().String()
	c.Status = models.PendingBid
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Attachments == nil {
		c.Attachments = []string{}
	}
	m.bids[c.ID] = c
	return copyBid(c), true, nil
}

func (m *memStore) GetBid(_ context.Context, bidId string) (*models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bids[bidId]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyBid(b), nil
}

func (m *memStore) GetRFQBids(_ context.Context, rfqId string) ([]models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bids := []models.Bid{}
	for _, b := range m.bids {
		if b.RFQID == rfqId {
			c := *b
			c.Provider = m.summary(b.ProviderID)
			bids = append(bids, c)
		}
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].Amount < bids[j].Amount })
	return bids, nil
}

func (m *memStore) GetProviderBids(_ context.Context, providerId string) ([]models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bids := []models.Bid{}
	for _, b := range m.bids {
		if b.ProviderID == providerId {
			c := *b
			if r, ok := m.rfqs[b.RFQID]; ok {
				c.RFQ = copyRFQ(r)
			}
			bids = append(bids, c)
		}
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].CreatedAt.After(bids[j].CreatedAt) })
	return bids, nil
}

func (m *memStore) EditBid(_ context.Context, bid *models.Bid) (*models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.bids[bid.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !cur.IsPending() {
		return nil, repository.ErrBidNotPending
	}
	cur.Amount = bid.Amount
	cur.Message = bid.Message
	cur.EtaDays = bid.EtaDays
	cur.Attachments = bid.Attachments
	cur.UpdatedAt = m.tick()
	return copyBid(cur), nil
}

func (m *memStore) AcceptBid(_ context.Context, bidId string) (*models.Bid, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bids[bidId]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	rfq := m.rfqs[b.RFQID]
	switch {
	case b.Status == models.AcceptedBid:
		rfq.Status = models.ClosedRFQ
		return copyBid(b), false, nil
	case b.Status != models.PendingBid:
		return nil, false, repository.ErrBidNotPending
	case !rfq.IsActive():
		return nil, false, repository.ErrRFQNotActive
	}
	now := m.tick()
	b.Status = models.AcceptedBid
	b.RejectionReason = ""
	b.UpdatedAt = now
	rfq.Status = models.ClosedRFQ
	rfq.UpdatedAt = now
	return copyBid(b), true, nil
}

func (m *memStore) RejectBid(_ context.Context, bidId, reason string) (*models.Bid, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bids[bidId]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	switch b.Status {
	case models.RejectedBid:
		return copyBid(b), false, nil
	case models.AcceptedBid:
		return nil, false, repository.ErrBidNotPending
	}
	b.Status = models.RejectedBid
	b.RejectionReason = reason
	b.UpdatedAt = m.tick()
	return copyBid(b), true, nil
}

func (m *memStore) DeleteBid(_ context.Context, bidId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bids[bidId]; !ok {
		return repository.ErrNotFound
	}
	delete(m.bids, bidId)
	return nil
}

func (m *memStore) CreateNotification(_ context.Context, req models.NotificationRequest) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[req.RecipientID]; !ok {
		return nil, repository.ErrUnknownReference
	}
	n := &models.Notification{
		ID:          uuid.New().String(),
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Type:        req.Type,
		Message:     req.Message,
		Link:        req.Link,
		CreatedAt:   m.tick(),
	}
	m.notes = append(m.notes, n)
	c := *n
	return &c, nil
}

func (m *memStore) GetNotifications(_ context.Context, recipientId string, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := []models.Notification{}
	for _, n := range m.notes {
		if n.RecipientID == recipientId {
			list = append(list, *n)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].IsRead != list[j].IsRead {
			return !list[i].IsRead
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *memStore) CountUnread(_ context.Context, recipientId string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notes {
		if n.RecipientID == recipientId && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *memStore) MarkRead(_ context.Context, recipientId, notificationId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notes {
		if n.ID == notificationId && n.RecipientID == recipientId {
			n.IsRead = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) MarkAllRead(_ context.Context, recipientId string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for _, n := range m.notes {
		if n.RecipientID == recipientId && !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (m *memStore) CreateMessage(_ context.Context, senderId, recipientId, content string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[recipientId]; !ok {
		return nil, repository.ErrUnknownReference
	}
	msg := models.Message{
		ID:          uuid.New().String(),
		SenderID:    senderId,
		RecipientID: recipientId,
		Content:     content,
		CreatedAt:   m.tick(),
	}
	m.messages = append(m.messages, msg)
	return &msg, nil
}

func (m *memStore) GetConversation(_ context.Context, userId, otherId string) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv := []models.Message{}
	for _, msg := range m.messages {
		if (msg.SenderID == userId && msg.RecipientID == otherId) || (msg.SenderID == otherId && msg.RecipientID == userId) {
			msg.Sender = m.summary(msg.SenderID)
			conv = append(conv, msg)
		}
	}
	return conv, nil
}

func (m *memStore) GetChatPartners(_ context.Context, userId string) ([]models.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	partners := []models.UserSummary{}
	seen := map[string]bool{}
	for i := len(m.messages) - 1; i >= 0; i-- {
		msg := m.messages[i]
		var other string
		switch userId {
		case msg.SenderID:
			other = msg.RecipientID
		case msg.RecipientID:
			other = msg.SenderID
		default:
			continue
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		if u := m.summary(other); u != nil {
			partners = append(partners, *u)
		}
	}
	return partners, nil
}

func (m *memStore) GetUserSummary(_ context.Context, userId string) (*models.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.summary(userId); u != nil {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

// pushed - событие, отправленное через recordingPusher.
type pushed struct {
	UserID  string
	Event   string
	Payload any
}

// recordingPusher запоминает события для подключенных пользователей.
type recordingPusher struct {
	mu     sync.Mutex
	online map[string]bool
	events []pushed
}

func newRecordingPusher(online ...string) *recordingPusher {
	p := &recordingPusher{online: map[string]bool{}}
	for _, id := range online {
		p.online[id] = true
	}
	return p
}

func (p *recordingPusher) SendToUser(userId, event string, payload any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.online[userId] {
		return false
	}
	p.events = append(p.events, pushed{UserID: userId, Event: event, Payload: payload})
	return true
}

func (p *recordingPusher) eventsFor(userId string) []pushed {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []pushed
	for _, e := range p.events {
		if e.UserID == userId {
			out = append(out, e)
		}
	}
	return out
}

// testEnv собирает сервисы поверх общего memStore.
type testEnv struct {
	store    *memStore
	pusher   *recordingPusher
	rfqs     *RFQService
	bids     *BidService
	notes    *NotificationService
	chat     *ChatService
	buyer    models.Principal
	provider models.Principal
	other    models.Principal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	env := &testEnv{
		store:    store,
		buyer:    store.addUser("Asha Textiles", models.Customer),
		provider: store.addUser("Ravi Weaves", models.Provider),
		other:    store.addUser("Meera Looms", models.Provider),
	}
	env.pusher = newRecordingPusher(env.buyer.ID, env.provider.ID, env.other.ID)
	log := zap.NewNop().Sugar()
	env.notes = NewNotificationService(store, env.pusher, log)
	env.rfqs = NewRFQService(store, store)
	env.bids = NewBidService(store, store, env.notes, log)
	env.chat = NewChatService(store, store, env.notes, env.pusher, log)
	return env
}

func (e *testEnv) notificationsOf(p models.Principal) []models.Notification {
	list, _ := e.store.GetNotifications(context.Background(), p.ID, 1000)
	return list
}

func (e *testEnv) createRFQ(t *testing.T, quantity int) *models.RFQ {
	t.Helper()
	deadline := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rfq, err := e.rfqs.CreateRFQ(context.Background(), e.buyer, models.RFQRequest{
		Title:       "Handwoven cotton sarees",
		Description: "Need handwoven cotton sarees with natural dyes",
		Category:    "textiles",
		Quantity:    quantity,
		Deadline:    &deadline,
	})
	if err != nil {
		t.Fatalf("create rfq: %v", err)
	}
	return rfq
}

func (e *testEnv) placeBid(t *testing.T, p models.Principal, rfqId string, amount float64) *models.Bid {
	t.Helper()
	bid, _, err := e.bids.CreateOrUpdateBid(context.Background(), p, models.BidRequest{RFQID: rfqId, Amount: amount})
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}
	return bid
}

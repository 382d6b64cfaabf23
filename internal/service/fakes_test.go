package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
)

const (
	testGuildID snowflake.ID = 1000
	testBotID   snowflake.ID = 1001
	testOwnerID snowflake.ID = 1002
	testStaffID snowflake.ID = 2000
	testAdminID snowflake.ID = 2001
)

type sentMessage struct {
	ID        snowflake.ID
	ChannelID snowflake.ID
	Msg       platform.Message
}

type fakePlatform struct {
	mu       sync.Mutex
	nextID   snowflake.ID
	roles    []platform.Role
	channels map[snowflake.ID]*platform.Channel
	sent     []sentMessage
	edits    map[snowflake.ID]platform.Message
	pins     []snowflake.ID
	deleted  []snowflake.ID
	history  map[snowflake.ID][]platform.HistoryMessage

	sendErr error
	pinErr  error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		nextID: 5000,
		roles: []platform.Role{
			{ID: testStaffID, Name: "Staff"},
			{ID: testAdminID, Name: "Admin"},
		},
		channels: make(map[snowflake.ID]*platform.Channel),
		edits:    make(map[snowflake.ID]platform.Message),
		history:  make(map[snowflake.ID][]platform.HistoryMessage),
	}
}

func (f *fakePlatform) id() snowflake.ID {
	f.nextID++
	return f.nextID
}

func (f *fakePlatform) BotUserID() snowflake.ID      { return testBotID }
func (f *fakePlatform) EveryoneRoleID() snowflake.ID { return testGuildID }

func (f *fakePlatform) GuildOwnerID(context.Context) (snowflake.ID, error) {
	return testOwnerID, nil
}

func (f *fakePlatform) RoleByName(_ context.Context, name string) (*platform.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.roles {
		if r.Name == name {
			role := r
			return &role, nil
		}
	}
	return nil, nil
}

func (f *fakePlatform) Channel(_ context.Context, id snowflake.ID) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[id]
	if !ok {
		return nil, errors.New("unknown channel")
	}
	out := *ch
	out.Overwrites = append([]platform.Overwrite(nil), ch.Overwrites...)
	return &out, nil
}

func (f *fakePlatform) FindChannel(_ context.Context, name string, kind platform.ChannelKind) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.channels {
		if ch.Name == name && ch.Kind == kind {
			out := *ch
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakePlatform) CreateChannel(_ context.Context, spec platform.ChannelSpec) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &platform.Channel{
		ID:         f.id(),
		ParentID:   spec.ParentID,
		Kind:       spec.Kind,
		Name:       spec.Name,
		Topic:      spec.Topic,
		Overwrites: append([]platform.Overwrite(nil), spec.Overwrites...),
	}
	f.channels[ch.ID] = ch
	out := *ch
	return &out, nil
}

func (f *fakePlatform) DeleteChannel(_ context.Context, id snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakePlatform) SetOverwrites(_ context.Context, channelID snowflake.ID, overwrites []platform.Overwrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return errors.New("unknown channel")
	}
	ch.Overwrites = append([]platform.Overwrite(nil), overwrites...)
	return nil
}

func (f *fakePlatform) SendMessage(_ context.Context, channelID snowflake.ID, msg platform.Message) (snowflake.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	id := f.id()
	f.sent = append(f.sent, sentMessage{ID: id, ChannelID: channelID, Msg: msg})
	return id, nil
}

func (f *fakePlatform) EditMessage(_ context.Context, _ snowflake.ID, messageID snowflake.ID, msg platform.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits[messageID] = msg
	return nil
}

func (f *fakePlatform) PinMessage(_ context.Context, _ snowflake.ID, messageID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pinErr != nil {
		return f.pinErr
	}
	f.pins = append(f.pins, messageID)
	return nil
}

func (f *fakePlatform) History(_ context.Context, channelID snowflake.ID, limit int) ([]platform.HistoryMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.history[channelID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]platform.HistoryMessage(nil), all...), nil
}

func (f *fakePlatform) channelByName(name string) *platform.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.channels {
		if ch.Name == name {
			out := *ch
			return &out
		}
	}
	return nil
}

func (f *fakePlatform) messagesIn(channelID snowflake.ID) []platform.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []platform.Message
	for _, m := range f.sent {
		if m.ChannelID == channelID {
			out = append(out, m.Msg)
		}
	}
	return out
}

func (f *fakePlatform) setTopic(channelID snowflake.ID, topic string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[channelID].Topic = topic
}

type fakeTicketRepo struct {
	mu        sync.Mutex
	seq       int64
	tickets   map[int64]*domain.Ticket
	createErr error
	// fails the next UpdatePriority, then clears
	priorityErr error
	// runs against the stored ticket before a close checks its status
	beforeClose func(*domain.Ticket)
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[int64]*domain.Ticket)}
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	out := *t
	return &out
}

func (r *fakeTicketRepo) NextTicketNumber(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq, nil
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.tickets[ticket.Number] = cloneTicket(ticket)
	return nil
}

func (r *fakeTicketRepo) GetByNumber(_ context.Context, number int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[number]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneTicket(t), nil
}

func (r *fakeTicketRepo) GetByChannel(_ context.Context, channelID snowflake.ID) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.ChannelID == channelID {
			return cloneTicket(t), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Ticket{}
	for _, t := range r.tickets {
		if filter.CreatorID != nil && t.CreatorID != *filter.CreatorID {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return out, nil
}

func (r *fakeTicketRepo) mutate(number int64, fn func(*domain.Ticket)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[number]
	if !ok {
		return pgx.ErrNoRows
	}
	fn(t)
	return nil
}

func (r *fakeTicketRepo) Assign(_ context.Context, number int64, assigneeID *snowflake.ID) error {
	return r.mutate(number, func(t *domain.Ticket) { t.AssigneeID = assigneeID })
}

func (r *fakeTicketRepo) UpdatePriority(_ context.Context, number int64, priority domain.TicketPriority) error {
	r.mu.Lock()
	err := r.priorityErr
	r.priorityErr = nil
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.mutate(number, func(t *domain.Ticket) { t.Priority = priority })
}

func (r *fakeTicketRepo) StorePaymentMethod(_ context.Context, number int64, method string) error {
	return r.mutate(number, func(t *domain.Ticket) { t.PaymentMethod = &method })
}

func (r *fakeTicketRepo) StoreTransaction(_ context.Context, number int64, record string) error {
	return r.mutate(number, func(t *domain.Ticket) { t.Transaction = &record })
}

func (r *fakeTicketRepo) SetSummaryMessage(_ context.Context, number int64, messageID snowflake.ID) error {
	return r.mutate(number, func(t *domain.Ticket) { t.SummaryMessageID = &messageID })
}

func (r *fakeTicketRepo) Lock(_ context.Context, number int64, at time.Time) error {
	return r.mutate(number, func(t *domain.Ticket) { t.LockedAt = &at })
}

func (r *fakeTicketRepo) Close(_ context.Context, number int64, at time.Time) error {
	return r.closeOpen(number, func(t *domain.Ticket) {
		t.Status = domain.TicketStatusClosed
		t.ClosedAt = &at
	})
}

func (r *fakeTicketRepo) CloseWithFeedback(_ context.Context, number int64, rating int, feedback string, at time.Time) error {
	return r.closeOpen(number, func(t *domain.Ticket) {
		t.Status = domain.TicketStatusClosed
		t.ClosedAt = &at
		t.Rating = &rating
		t.Feedback = &feedback
	})
}

func (r *fakeTicketRepo) closeOpen(number int64, fn func(*domain.Ticket)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[number]
	if !ok {
		return pgx.ErrNoRows
	}
	if r.beforeClose != nil {
		r.beforeClose(t)
	}
	if t.Status != domain.TicketStatusOpen {
		return repository.ErrTicketNotOpen
	}
	fn(t)
	return nil
}

type fakeCatalog struct {
	mu      sync.Mutex
	ranks   []domain.Rank
	methods []domain.PaymentMethod
	prices  []domain.Price
}

func (c *fakeCatalog) ListRanks(context.Context) ([]domain.Rank, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Rank(nil), c.ranks...), nil
}

func (c *fakeCatalog) AddRank(_ context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.ranks {
		if strings.EqualFold(r.Name, name) {
			return false, nil
		}
	}
	c.ranks = append(c.ranks, domain.Rank{Name: name})
	return true, nil
}

func (c *fakeCatalog) RemoveRank(_ context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.ranks {
		if strings.EqualFold(r.Name, name) {
			c.ranks = append(c.ranks[:i], c.ranks[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (c *fakeCatalog) ListPaymentMethods(context.Context) ([]domain.PaymentMethod, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.PaymentMethod(nil), c.methods...), nil
}

func (c *fakeCatalog) GetPaymentMethod(_ context.Context, name string) (*domain.PaymentMethod, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.methods {
		if strings.EqualFold(m.Name, name) {
			out := m
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (c *fakeCatalog) AddPaymentMethod(_ context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.methods {
		if strings.EqualFold(m.Name, name) {
			return false, nil
		}
	}
	c.methods = append(c.methods, domain.PaymentMethod{Name: name, Identifier: domain.NotSetYet, QR: domain.NotSetYet})
	return true, nil
}

func (c *fakeCatalog) SetPaymentDetails(_ context.Context, name, identifier, qr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.methods {
		if strings.EqualFold(m.Name, name) {
			c.methods[i].Identifier = identifier
			c.methods[i].QR = qr
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (c *fakeCatalog) SetPrice(_ context.Context, price domain.Price) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.prices {
		if p.Rank == price.Rank && p.Method == price.Method {
			c.prices[i] = price
			return nil
		}
	}
	c.prices = append(c.prices, price)
	return nil
}

func (c *fakeCatalog) ListPrices(_ context.Context, rank string) ([]domain.Price, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Price
	for _, p := range c.prices {
		if strings.EqualFold(p.Rank, rank) {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeControls struct {
	mu    sync.Mutex
	state map[string]domain.Control
}

func newFakeControls() *fakeControls {
	return &fakeControls{state: make(map[string]domain.Control)}
}

func (c *fakeControls) Get(_ context.Context, channelID snowflake.ID, kind domain.ControlKind) (domain.Control, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctl, ok := c.state[repository.ControlKey("test", channelID, kind)]; ok {
		return ctl, nil
	}
	return domain.NewControl(kind), nil
}

func (c *fakeControls) Update(_ context.Context, channelID snowflake.ID, kind domain.ControlKind, _ time.Duration, fn repository.ControlUpdate) (domain.Control, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := repository.ControlKey("test", channelID, kind)
	current, ok := c.state[key]
	if !ok {
		current = domain.NewControl(kind)
	}
	next, err := fn(current)
	if err != nil {
		return current, err
	}
	next.Kind = kind
	c.state[key] = next
	return next, nil
}

func (c *fakeControls) Clear(_ context.Context, channelID snowflake.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := repository.ControlKey("test", channelID, "")
	for k := range c.state {
		if strings.HasPrefix(k, prefix) {
			delete(c.state, k)
		}
	}
	return nil
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []domain.TicketHistory
}

func (h *fakeHistory) Create(_ context.Context, entry *domain.TicketHistory) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry.ID = int64(len(h.entries) + 1)
	h.entries = append(h.entries, *entry)
	return nil
}

func (h *fakeHistory) ListByTicket(_ context.Context, number int64) ([]domain.TicketHistory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []domain.TicketHistory{}
	for _, e := range h.entries {
		if e.TicketNumber == number {
			out = append(out, e)
		}
	}
	return out, nil
}

// syncScheduler runs deferred work immediately and remembers the delays asked for.
type syncScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *syncScheduler) After(d time.Duration, fn func()) {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	fn()
}

type harness struct {
	svc       *TicketService
	guild     *fakePlatform
	tickets   *fakeTicketRepo
	catalog   *fakeCatalog
	controls  *fakeControls
	history   *fakeHistory
	scheduler *syncScheduler
	events    *recordedEvents
}

type recordedEvents struct {
	mu    sync.Mutex
	types []events.EventType
}

func (r *recordedEvents) list() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.EventType(nil), r.types...)
}

func testTicketConfig() config.TicketConfig {
	return config.TicketConfig{
		StaffRoleName:       "Staff",
		AdminRoleName:       "Admin",
		PriorityChannelName: "priority",
		LogsChannelName:     "ticket-logs",
		FeedbackChannelName: "feedback",
		CloseDelaySeconds:   15,
		ConfirmTTLSeconds:   300,
	}
}

func newHarness() *harness {
	h := &harness{
		guild:     newFakePlatform(),
		tickets:   newFakeTicketRepo(),
		catalog:   &fakeCatalog{},
		controls:  newFakeControls(),
		history:   &fakeHistory{},
		scheduler: &syncScheduler{},
		events:    &recordedEvents{},
	}
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.SubscribeAll(func(_ context.Context, e events.Event) error {
		h.events.mu.Lock()
		defer h.events.mu.Unlock()
		h.events.types = append(h.events.types, e.Type)
		return nil
	})
	h.svc = NewTicketService(TicketDependencies{
		TicketRepo:  h.tickets,
		CatalogRepo: h.catalog,
		ControlRepo: h.controls,
		HistoryRepo: h.history,
		Platform:    h.guild,
		Dispatcher:  dispatcher,
		Scheduler:   h.scheduler,
		Logger:      zap.NewNop(),
		Tickets:     testTicketConfig(),
		Payments:    config.PaymentConfig{DefaultID: "shop@upi"},
	})
	return h
}

var (
	creator = domain.Actor{ID: 3000, Name: "alice"}
	staffer = domain.Actor{ID: 3001, Name: "sam", Staff: true}
	other   = domain.Actor{ID: 3002, Name: "olga", Staff: true}
	admin   = domain.Actor{ID: 3003, Name: "root", Admin: true}
)

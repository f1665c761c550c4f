package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/store"
	"github.com/vovakirdan/chatrelay/internal/utils"
)

// DiceRoller fetches a random value from the dice service.
type DiceRoller interface {
	Roll(ctx context.Context) (int, error)
}

const (
	DefaultDiceTimeout  = 3 * time.Second
	DefaultStoreTimeout = 5 * time.Second
)

type replayResult struct {
	client   *Client
	messages []*store.Message
	err      error
}

// Hub is the chat broadcaster. Run owns the registry and handles
// registrations and submissions one at a time in arrival order. Dice calls
// and store access happen on background goroutines that report back through
// channels, so a slow dependency never stalls other connections.
type Hub struct {
	store    store.MessageStore
	roller   DiceRoller
	registry Registry
	log      *zerolog.Logger

	diceTimeout  time.Duration
	storeTimeout time.Duration
	now          func() time.Time

	register   chan *Client
	unregister chan *Client
	commands   chan Command
	broadcasts chan *Event
	replays    chan replayResult

	done  chan struct{}
	tasks sync.WaitGroup
}

// Option customizes a Hub.
type Option func(*Hub)

// WithDiceTimeout bounds each dice service call.
func WithDiceTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.diceTimeout = d
		}
	}
}

// WithStoreTimeout bounds each store read and write.
func WithStoreTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.storeTimeout = d
		}
	}
}

// WithClock replaces time.Now for receipt timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHub creates a hub. st and roller may be nil: without a store nothing is
// persisted or replayed, without a roller every dice roll fails.
func NewHub(st store.MessageStore, roller DiceRoller, registry Registry, logger *zerolog.Logger, opts ...Option) *Hub {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	h := &Hub{
		store:        st,
		roller:       roller,
		registry:     registry,
		log:          logger,
		diceTimeout:  DefaultDiceTimeout,
		storeTimeout: DefaultStoreTimeout,
		now:          time.Now,
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		commands:     make(chan Command, 64),
		broadcasts:   make(chan *Event, 16),
		replays:      make(chan replayResult, 16),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes hub traffic until ctx is canceled. On exit every registered
// client is disconnected and its event channel closed.
func (h *Hub) Run(ctx context.Context) {
	defer h.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.handleRegister(ctx, c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case cmd := <-h.commands:
			h.handleCommand(ctx, cmd)
		case ev := <-h.broadcasts:
			h.broadcast(ev)
		case res := <-h.replays:
			h.finishReplay(res)
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until background dice calls and store writes finish.
// Call it only after Done is closed.
func (h *Hub) Wait() {
	h.tasks.Wait()
}

// RegisterClient admits a client and starts its history replay.
func (h *Hub) RegisterClient(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// UnregisterClient removes a client and closes its event channel.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Submit hands an inbound chat message to the hub.
func (h *Hub) Submit(ctx context.Context, c *Client, msg Message) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.commands <- Command{Client: c, Message: msg}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) handleRegister(ctx context.Context, c *Client) {
	if !h.registry.Add(c) {
		return
	}
	c.state = StateConnected
	metrics.ConnectedClients.Inc()
	h.log.Info().Str("client_id", c.ID).Stringer("state", c.state).Int("clients", h.registry.Len()).Msg("client connected")

	if h.store == nil {
		return
	}

	c.replaying = true
	h.tasks.Add(1)
	go h.loadHistory(ctx, c)
}

func (h *Hub) handleUnregister(c *Client) {
	if !h.registry.Remove(c) {
		return
	}
	c.state = StateDisconnected
	c.pending = nil
	close(c.Events)
	metrics.ConnectedClients.Dec()
	h.log.Info().Str("client_id", c.ID).Stringer("state", c.state).Int("clients", h.registry.Len()).Msg("client disconnected")
}

func (h *Hub) handleCommand(ctx context.Context, cmd Command) {
	msg := cmd.Message
	msg.Time = h.now()
	if msg.ID == "" {
		msg.ID = utils.NewID()
	}

	if err := msg.Validate(); err != nil {
		// Only bad requests are the sender's fault and reported back.
		if !errors.Is(err, ErrBadRequest) {
			h.log.Error().Err(err).Msg("submission validation failed")
			return
		}
		h.log.Debug().Err(err).Msg("rejected submission")
		var coreErr *CoreError
		if errors.As(err, &coreErr) && cmd.Client != nil && cmd.Client.state == StateConnected {
			cmd.Client.deliver(&Event{Kind: EventError, Error: coreErr})
		}
		return
	}

	h.log.Debug().Str("user", msg.User).Str("msg", msg.Text).Msg("chat submission")

	if msg.IsDiceRoll() {
		metrics.MessagesReceived.WithLabelValues("diceroll").Inc()
		h.tasks.Add(1)
		go h.rollDice(ctx, msg)
		return
	}

	metrics.MessagesReceived.WithLabelValues("chat").Inc()
	if h.store != nil {
		h.tasks.Add(1)
	}
	h.broadcast(&Event{Kind: EventChat, Message: msg})
	if h.store != nil {
		go h.persist(ctx, msg)
	}
}

func (h *Hub) broadcast(ev *Event) {
	if dropped := h.registry.Broadcast(ev); dropped > 0 {
		metrics.EventsDropped.Add(float64(dropped))
		h.log.Warn().Int("dropped", dropped).Msg("event dropped for slow clients")
	}
}

// persist is fire-and-forget: the event has already been broadcast and a
// failure is only logged.
func (h *Hub) persist(ctx context.Context, msg Message) {
	defer h.tasks.Done()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.storeTimeout)
	defer cancel()

	if err := h.store.AppendMessage(ctx, toStoreMessage(msg)); err != nil {
		metrics.StoreErrors.WithLabelValues("append").Inc()
		h.log.Error().Err(err).Str("message_id", msg.ID).Str("user", msg.User).Msg("failed to persist message")
	}
}

// rollDice drops the request silently on any failure; the requester gets no
// feedback.
func (h *Hub) rollDice(ctx context.Context, msg Message) {
	defer h.tasks.Done()

	value, err := h.roll(ctx)
	if err != nil {
		metrics.DiceRolls.WithLabelValues("error").Inc()
		h.log.Error().Err(err).Str("user", msg.User).Msg("dice roll failed, nothing broadcast")
		return
	}
	metrics.DiceRolls.WithLabelValues("ok").Inc()

	ev := &Event{
		Kind: EventChat,
		Message: Message{
			ID:   utils.NewID(),
			User: SystemUser,
			Text: fmt.Sprintf("%s requested a dice roll: %d", msg.User, value),
			Time: msg.Time,
		},
	}

	select {
	case h.broadcasts <- ev:
	case <-h.done:
	}
}

func (h *Hub) roll(ctx context.Context) (int, error) {
	if h.roller == nil {
		return 0, ErrNoDiceRoller
	}
	ctx, cancel := context.WithTimeout(ctx, h.diceTimeout)
	defer cancel()
	return h.roller.Roll(ctx)
}

func (h *Hub) loadHistory(ctx context.Context, c *Client) {
	defer h.tasks.Done()

	ctx, cancel := context.WithTimeout(ctx, h.storeTimeout)
	defer cancel()

	messages, err := h.store.ListMessages(ctx)
	select {
	case h.replays <- replayResult{client: c, messages: messages, err: err}:
	case <-h.done:
	}
}

// finishReplay sends history to the client, then whatever live events were
// held back meanwhile. Live events already contained in the history are
// skipped.
func (h *Hub) finishReplay(res replayResult) {
	c := res.client
	if c.state != StateConnected {
		return
	}

	pending := c.pending
	c.pending = nil
	c.replaying = false

	seen := make(map[string]struct{}, len(res.messages))
	history := make([]Message, 0, len(res.messages))
	if res.err != nil {
		metrics.StoreErrors.WithLabelValues("history").Inc()
		h.log.Error().Err(res.err).Str("client_id", c.ID).Msg("history replay failed, skipping")
	} else {
		for _, m := range res.messages {
			history = append(history, fromStoreMessage(m))
			if m.ID != "" {
				seen[m.ID] = struct{}{}
			}
		}
		h.log.Debug().Str("client_id", c.ID).Int("messages", len(history)).Msg("history replayed")
	}

	// Always sent, even when empty, so the client can tell replay is over.
	if !c.deliver(&Event{Kind: EventHistory, Messages: history}) {
		metrics.EventsDropped.Inc()
	}

	for _, ev := range pending {
		if _, dup := seen[ev.Message.ID]; dup && ev.Kind == EventChat {
			continue
		}
		if !c.deliver(ev) {
			metrics.EventsDropped.Inc()
		}
	}
}

func (h *Hub) stop() {
	close(h.done)
	for _, c := range h.registry.Drain() {
		c.state = StateDisconnected
		c.pending = nil
		close(c.Events)
		metrics.ConnectedClients.Dec()
	}
}

func toStoreMessage(msg Message) *store.Message {
	return &store.Message{
		ID:   msg.ID,
		User: msg.User,
		Msg:  msg.Text,
		Time: msg.Time.UnixMilli(),
	}
}

func fromStoreMessage(m *store.Message) Message {
	return Message{
		ID:   m.ID,
		User: m.User,
		Text: m.Msg,
		Time: time.UnixMilli(m.Time),
	}
}

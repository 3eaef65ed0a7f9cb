package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ovenfresh/bakeshop/internal/events"
	"github.com/ovenfresh/bakeshop/internal/models"
	"github.com/ovenfresh/bakeshop/internal/session"
)

// Store is the shopping cart with two modes keyed off the current session.
//
// Guest (no identity): all mutations touch only the in-memory line map, no
// network. Authenticated: every mutation is a remote upsert/update/delete
// followed by an authoritative refetch of the durable rows; nothing is applied
// optimistically. On the guest-to-authenticated transition a non-empty guest
// cart is merged into the durable one exactly once, then the durable cart is
// the source of truth. Sign-out discards all in-memory lines immediately.
type Store struct {
	session  *session.Store
	repo     *Repo
	producer *events.Producer
	log      *slog.Logger

	mu          sync.Mutex
	userID      uint // 0 means guest
	lines       map[uint]Line
	unsubscribe func()
}

func NewStore(sess *session.Store, repo *Repo, prod *events.Producer, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{
		session:  sess,
		repo:     repo,
		producer: prod,
		log:      log,
		lines:    make(map[uint]Line),
	}
	s.unsubscribe = sess.Subscribe(s.handleSession)

	// The session store replays its cached identity before this store exists,
	// so pick up whatever state it already resolved.
	if st := sess.State(); !st.Loading {
		s.handleSession(st)
	}
	return s
}

func (s *Store) Close() {
	s.unsubscribe()
}

// Items returns the current lines sorted by product id.
func (s *Store) Items() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Total is recomputed from the lines on every call, never stored.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, l := range s.lines {
		total += l.UnitPrice * float64(l.Quantity)
	}
	return total
}

func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID != 0
}

// AddItem puts one unit of the product in the cart, incrementing the quantity
// if a line already exists.
func (s *Store) AddItem(ctx context.Context, p models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := uint(1)
	if existing, ok := s.lines[p.ID]; ok {
		next = existing.Quantity + 1
	}

	if s.userID == 0 {
		s.lines[p.ID] = Line{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  next,
			ImageURL:  p.ImageURL,
		}
		return nil
	}

	if err := s.repo.Upsert(ctx, s.userID, p.ID, next); err != nil {
		return err
	}
	s.publish(ctx, map[string]any{
		"type":      "add_cart_items",
		"userID":    s.userID,
		"productID": p.ID,
		"quantity":  next,
	})
	return s.refetchLocked(ctx)
}

// UpdateQuantity sets the line's quantity; anything at or below zero removes
// the line.
func (s *Store) UpdateQuantity(ctx context.Context, productID uint, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == 0 {
		line, ok := s.lines[productID]
		if !ok {
			return nil
		}
		line.Quantity = uint(quantity)
		s.lines[productID] = line
		return nil
	}

	if err := s.repo.Upsert(ctx, s.userID, productID, uint(quantity)); err != nil {
		return err
	}
	s.publish(ctx, map[string]any{
		"type":      "cart_quantity_updated",
		"userID":    s.userID,
		"productID": productID,
		"quantity":  quantity,
	})
	return s.refetchLocked(ctx)
}

func (s *Store) RemoveItem(ctx context.Context, productID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == 0 {
		delete(s.lines, productID)
		return nil
	}

	if err := s.repo.Delete(ctx, s.userID, productID); err != nil {
		return err
	}
	s.publish(ctx, map[string]any{
		"type":      "cart_item_deleted",
		"userID":    s.userID,
		"productID": productID,
	})
	return s.refetchLocked(ctx)
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == 0 {
		s.lines = make(map[uint]Line)
		return nil
	}

	if err := s.repo.Clear(ctx, s.userID); err != nil {
		return err
	}
	s.publish(ctx, map[string]any{
		"type":   "cart_cleared",
		"userID": s.userID,
	})
	return s.refetchLocked(ctx)
}

func (s *Store) handleSession(st session.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()

	switch {
	case st.Identity == nil:
		// Sign-out: drop everything, guest mode starts empty.
		if s.userID != 0 || len(s.lines) > 0 {
			s.userID = 0
			s.lines = make(map[uint]Line)
		}
	case s.userID == st.Identity.UserID:
		// Token refresh for the same user, nothing to do.
	case s.userID == 0:
		guest := s.lines
		s.userID = st.Identity.UserID
		if len(guest) > 0 {
			s.mergeLocked(ctx, guest)
		} else if err := s.refetchLocked(ctx); err != nil {
			s.log.Error("cart fetch failed", "userID", s.userID, "error", err)
		}
	default:
		// Identity switched without an intervening sign-out.
		s.userID = st.Identity.UserID
		s.lines = make(map[uint]Line)
		if err := s.refetchLocked(ctx); err != nil {
			s.log.Error("cart fetch failed", "userID", s.userID, "error", err)
		}
	}
}

// mergeLocked reconciles the guest lines into the durable cart. The guest
// quantity overwrites any pre-existing durable quantity for the same product;
// durable-only rows are untouched. The first failed upsert aborts the rest and
// leaves the guest lines in memory, so nothing is lost on a flaky merge.
func (s *Store) mergeLocked(ctx context.Context, guest map[uint]Line) {
	ids := make([]uint, 0, len(guest))
	for id := range guest {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err := s.repo.Upsert(ctx, s.userID, id, guest[id].Quantity); err != nil {
			s.log.Error("cart merge failed", "userID", s.userID, "productID", id, "error", err)
			return
		}
	}

	s.lines = make(map[uint]Line)
	if err := s.refetchLocked(ctx); err != nil {
		s.log.Error("cart fetch after merge failed", "userID", s.userID, "error", err)
	}
}

// refetchLocked replaces the lines with the durable rows. The refetch is the
// consistency model: whatever the database holds now wins.
func (s *Store) refetchLocked(ctx context.Context) error {
	lines, err := s.repo.Fetch(ctx, s.userID)
	if err != nil {
		return err
	}
	fresh := make(map[uint]Line, len(lines))
	for _, l := range lines {
		fresh[l.ProductID] = l
	}
	s.lines = fresh
	return nil
}

func (s *Store) publish(ctx context.Context, event map[string]any) {
	if s.producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.producer.PublishEvent(ctx, "cart_events", fmt.Sprint(s.userID), event); err != nil {
		s.log.Error("kafka publish error", "error", err)
	}
}

// Package testutil provides in-memory implementations of the repositories and
// ports for service and handler tests.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	bookingDomain "github.com/trailhead-stays/service-booking/internal/domain/booking"
	campsiteDomain "github.com/trailhead-stays/service-booking/internal/domain/campsite"
	reviewDomain "github.com/trailhead-stays/service-booking/internal/domain/review"
	userDomain "github.com/trailhead-stays/service-booking/internal/domain/user"
	"github.com/trailhead-stays/service-booking/internal/platform/domain"
)

// Store holds every table. Transactions are serialized with txMu, which
// makes them trivially serializable; a failed transaction restores the
// snapshot taken when it began.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	bookings  map[uuid.UUID]*bookingDomain.Booking
	campsites map[uuid.UUID]*campsiteDomain.Campsite
	reviews   map[uuid.UUID]*reviewDomain.Review
	users     map[uuid.UUID]userDomain.User
	seq       map[uuid.UUID]int
	next      int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		bookings:  make(map[uuid.UUID]*bookingDomain.Booking),
		campsites: make(map[uuid.UUID]*campsiteDomain.Campsite),
		reviews:   make(map[uuid.UUID]*reviewDomain.Review),
		users:     make(map[uuid.UUID]userDomain.User),
		seq:       make(map[uuid.UUID]int),
	}
}

// Bookings returns the booking repository view of the store.
func (s *Store) Bookings() *BookingRepository { return &BookingRepository{s: s} }

// Campsites returns the campsite repository view of the store.
func (s *Store) Campsites() *CampsiteRepository { return &CampsiteRepository{s: s} }

// Reviews returns the review repository view of the store.
func (s *Store) Reviews() *ReviewRepository { return &ReviewRepository{s: s} }

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Transactor returns a transactor over the store.
func (s *Store) Transactor() *Transactor { return &Transactor{s: s} }

// order records insertion order so "newest first" is stable even when two
// rows share a timestamp.
func (s *Store) order(id uuid.UUID) {
	s.next++
	s.seq[id] = s.next
}

type snapshot struct {
	bookings  map[uuid.UUID]*bookingDomain.Booking
	campsites map[uuid.UUID]*campsiteDomain.Campsite
	reviews   map[uuid.UUID]*reviewDomain.Review
	users     map[uuid.UUID]userDomain.User
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		bookings:  make(map[uuid.UUID]*bookingDomain.Booking, len(s.bookings)),
		campsites: make(map[uuid.UUID]*campsiteDomain.Campsite, len(s.campsites)),
		reviews:   make(map[uuid.UUID]*reviewDomain.Review, len(s.reviews)),
		users:     make(map[uuid.UUID]userDomain.User, len(s.users)),
	}
	for k, v := range s.bookings {
		snap.bookings[k] = v
	}
	for k, v := range s.campsites {
		snap.campsites[k] = v
	}
	for k, v := range s.reviews {
		snap.reviews[k] = v
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings, s.campsites, s.reviews, s.users = snap.bookings, snap.campsites, snap.reviews, snap.users
}

// --- Transactor ---

type txKey struct{}

// Transactor implements application.Transactor over a Store.
type Transactor struct {
	s *Store
}

// WithinTransaction runs fn while holding the store's transaction lock.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	snap := t.s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}

// WithinLockingTransaction runs fn under the same lock as WithinTransaction.
func (t *Transactor) WithinLockingTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.WithinTransaction(ctx, fn)
}

// --- Bookings ---

// BookingRepository is an in-memory bookingDomain.BookingRepository.
type BookingRepository struct {
	s *Store
}

func cloneBooking(b *bookingDomain.Booking) *bookingDomain.Booking {
	return bookingDomain.ReconstructBooking(
		b.ID(), b.GuestID(), b.CampsiteID(), b.Stay(), b.Status(), b.TotalPriceCents(),
		b.PaidAt(), b.CancelledAt(), b.Version(), b.CreatedAt(), b.UpdatedAt(),
	)
}

// FindByID implements BookingRepository.
func (r *BookingRepository) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return cloneBooking(b), nil
}

// FindByIDForUpdate implements BookingRepository. Transactions are already
// serialized, so no extra locking is needed.
func (r *BookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r *BookingRepository) view(b *bookingDomain.Booking) bookingDomain.BookingView {
	v := bookingDomain.BookingView{Booking: cloneBooking(b), GuestName: r.s.users[b.GuestID()].Name}
	if c, ok := r.s.campsites[b.CampsiteID()]; ok {
		v.CampsiteTitle = c.Title()
		v.HostID = c.HostID()
	}
	return v
}

// FindView implements BookingRepository.
func (r *BookingRepository) FindView(_ context.Context, id uuid.UUID) (*bookingDomain.BookingView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	v := r.view(b)
	return &v, nil
}

func (r *BookingRepository) list(keep func(*bookingDomain.Booking) bool) []bookingDomain.BookingView {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []bookingDomain.BookingView
	for _, b := range r.s.bookings {
		if keep(b) {
			out = append(out, r.view(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.s.seq[out[i].Booking.ID()] > r.s.seq[out[j].Booking.ID()]
	})
	return out
}

// ListByGuest implements BookingRepository.
func (r *BookingRepository) ListByGuest(_ context.Context, guestID uuid.UUID) ([]bookingDomain.BookingView, error) {
	return r.list(func(b *bookingDomain.Booking) bool { return b.GuestID() == guestID }), nil
}

// ListByHost implements BookingRepository.
func (r *BookingRepository) ListByHost(_ context.Context, hostID uuid.UUID) ([]bookingDomain.BookingView, error) {
	return r.list(func(b *bookingDomain.Booking) bool {
		c, ok := r.s.campsites[b.CampsiteID()]
		return ok && c.HostID() == hostID
	}), nil
}

func (r *BookingRepository) available(campsiteID uuid.UUID, stay bookingDomain.Stay, excludeID *uuid.UUID) bool {
	for _, b := range r.s.bookings {
		if b.CampsiteID() != campsiteID || !b.Status().IsActive() {
			continue
		}
		if excludeID != nil && b.ID() == *excludeID {
			continue
		}
		if b.Stay().Overlaps(stay) {
			return false
		}
	}
	return true
}

// IsAvailable implements BookingRepository.
func (r *BookingRepository) IsAvailable(_ context.Context, campsiteID uuid.UUID, stay bookingDomain.Stay, excludeID *uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.available(campsiteID, stay, excludeID), nil
}

// HasPaidBooking implements BookingRepository.
func (r *BookingRepository) HasPaidBooking(_ context.Context, guestID, campsiteID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.GuestID() == guestID && b.CampsiteID() == campsiteID && b.Status() == bookingDomain.StatusPaid {
			return true, nil
		}
	}
	return false, nil
}

// HasActiveBookings implements BookingRepository.
func (r *BookingRepository) HasActiveBookings(_ context.Context, campsiteID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.CampsiteID() == campsiteID && b.Status().IsActive() {
			return true, nil
		}
	}
	return false, nil
}

// CountByStatus implements BookingRepository.
func (r *BookingRepository) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[string]int64)
	for _, b := range r.s.bookings {
		counts[b.Status().String()]++
	}
	return counts, nil
}

// Save implements BookingRepository and enforces the no-overlap rule the
// database constraint enforces.
func (r *BookingRepository) Save(_ context.Context, b *bookingDomain.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b.Status().IsActive() && !r.available(b.CampsiteID(), b.Stay(), nil) {
		return bookingDomain.NewUnavailableError()
	}
	r.s.bookings[b.ID()] = cloneBooking(b)
	r.s.order(b.ID())
	return nil
}

// Update implements BookingRepository with the same version check as the
// database repository.
func (r *BookingRepository) Update(_ context.Context, b *bookingDomain.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.bookings[b.ID()]
	if !ok || current.Version() != b.Version()-1 {
		return domain.NewConflictError("Booking was modified by another request")
	}
	r.s.bookings[b.ID()] = cloneBooking(b)
	return nil
}

// Put stores a booking as-is, bypassing the overlap check. Tests use it to
// seed bookings in states the services cannot reach directly, such as a stay
// that starts today.
func (r *BookingRepository) Put(b *bookingDomain.Booking) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.bookings[b.ID()] = cloneBooking(b)
	r.s.order(b.ID())
}

// --- Campsites ---

// CampsiteRepository is an in-memory campsiteDomain.CampsiteRepository.
type CampsiteRepository struct {
	s *Store
}

func cloneCampsite(c *campsiteDomain.Campsite) *campsiteDomain.Campsite {
	return campsiteDomain.Reconstruct(
		c.ID(), c.HostID(), c.Title(), c.Description(), c.Location(), c.ImageURL(),
		c.PriceCents(), c.Version(), c.CreatedAt(), c.UpdatedAt(),
	)
}

// FindByID implements CampsiteRepository.
func (r *CampsiteRepository) FindByID(_ context.Context, id uuid.UUID) (*campsiteDomain.Campsite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campsites[id]
	if !ok {
		return nil, domain.NewNotFoundError("Campsite", id.String())
	}
	return cloneCampsite(c), nil
}

// FindByIDForUpdate implements CampsiteRepository. Transactions already run
// one at a time, so there is no row lock to take.
func (r *CampsiteRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*campsiteDomain.Campsite, error) {
	return r.FindByID(ctx, id)
}

func (r *CampsiteRepository) view(c *campsiteDomain.Campsite) campsiteDomain.CampsiteView {
	var ratings []int
	for _, rv := range r.s.reviews {
		if rv.CampsiteID() == c.ID() {
			ratings = append(ratings, rv.Rating())
		}
	}
	summary := reviewDomain.Summarize(ratings)
	return campsiteDomain.CampsiteView{
		Campsite:      cloneCampsite(c),
		HostName:      r.s.users[c.HostID()].Name,
		AverageRating: summary.Average,
		ReviewCount:   summary.Total,
	}
}

// FindView implements CampsiteRepository.
func (r *CampsiteRepository) FindView(_ context.Context, id uuid.UUID) (*campsiteDomain.CampsiteView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campsites[id]
	if !ok {
		return nil, domain.NewNotFoundError("Campsite", id.String())
	}
	v := r.view(c)
	return &v, nil
}

// List implements CampsiteRepository.
func (r *CampsiteRepository) List(_ context.Context, f campsiteDomain.Filter) ([]campsiteDomain.CampsiteView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []campsiteDomain.CampsiteView{}
	for _, c := range r.s.campsites {
		if f.Location != "" && !strings.Contains(strings.ToLower(c.Location()), strings.ToLower(f.Location)) {
			continue
		}
		if f.MinPriceCents != nil && c.PriceCents() < *f.MinPriceCents {
			continue
		}
		if f.MaxPriceCents != nil && c.PriceCents() > *f.MaxPriceCents {
			continue
		}
		out = append(out, r.view(c))
	}
	sort.Slice(out, func(i, j int) bool {
		return r.s.seq[out[i].Campsite.ID()] > r.s.seq[out[j].Campsite.ID()]
	})
	return out, nil
}

// Save implements CampsiteRepository.
func (r *CampsiteRepository) Save(_ context.Context, c *campsiteDomain.Campsite) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.campsites[c.ID()] = cloneCampsite(c)
	r.s.order(c.ID())
	return nil
}

// Update implements CampsiteRepository.
func (r *CampsiteRepository) Update(_ context.Context, c *campsiteDomain.Campsite) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.campsites[c.ID()]
	if !ok || current.Version() != c.Version()-1 {
		return domain.NewConflictError("Campsite was modified by another request")
	}
	r.s.campsites[c.ID()] = cloneCampsite(c)
	return nil
}

// Delete implements CampsiteRepository, cascading to bookings and reviews.
func (r *CampsiteRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.campsites[id]; !ok {
		return domain.NewNotFoundError("Campsite", id.String())
	}
	delete(r.s.campsites, id)
	for bid, b := range r.s.bookings {
		if b.CampsiteID() == id {
			delete(r.s.bookings, bid)
		}
	}
	for rid, rv := range r.s.reviews {
		if rv.CampsiteID() == id {
			delete(r.s.reviews, rid)
		}
	}
	return nil
}

// --- Reviews ---

// ReviewRepository is an in-memory reviewDomain.ReviewRepository.
type ReviewRepository struct {
	s *Store
}

func cloneReview(rv *reviewDomain.Review) *reviewDomain.Review {
	return reviewDomain.Reconstruct(rv.ID(), rv.GuestID(), rv.CampsiteID(), rv.Rating(), rv.Comment(), rv.CreatedAt(), rv.UpdatedAt())
}

// FindByID implements ReviewRepository.
func (r *ReviewRepository) FindByID(_ context.Context, id uuid.UUID) (*reviewDomain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, domain.NewNotFoundError("Review", id.String())
	}
	return cloneReview(rv), nil
}

// FindView implements ReviewRepository.
func (r *ReviewRepository) FindView(_ context.Context, id uuid.UUID) (*reviewDomain.ReviewView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, domain.NewNotFoundError("Review", id.String())
	}
	return &reviewDomain.ReviewView{Review: cloneReview(rv), GuestName: r.s.users[rv.GuestID()].Name}, nil
}

func (r *ReviewRepository) exists(guestID, campsiteID uuid.UUID) bool {
	for _, rv := range r.s.reviews {
		if rv.GuestID() == guestID && rv.CampsiteID() == campsiteID {
			return true
		}
	}
	return false
}

// ExistsForGuest implements ReviewRepository.
func (r *ReviewRepository) ExistsForGuest(_ context.Context, guestID, campsiteID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.exists(guestID, campsiteID), nil
}

// ListByCampsite implements ReviewRepository.
func (r *ReviewRepository) ListByCampsite(_ context.Context, campsiteID uuid.UUID) ([]reviewDomain.ReviewView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []reviewDomain.ReviewView{}
	for _, rv := range r.s.reviews {
		if rv.CampsiteID() == campsiteID {
			out = append(out, reviewDomain.ReviewView{Review: cloneReview(rv), GuestName: r.s.users[rv.GuestID()].Name})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.s.seq[out[i].Review.ID()] > r.s.seq[out[j].Review.ID()]
	})
	return out, nil
}

// Save implements ReviewRepository and enforces one review per guest and campsite.
func (r *ReviewRepository) Save(_ context.Context, rv *reviewDomain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.exists(rv.GuestID(), rv.CampsiteID()) {
		return reviewDomain.NewAlreadyReviewedError()
	}
	r.s.reviews[rv.ID()] = cloneReview(rv)
	r.s.order(rv.ID())
	return nil
}

// Update implements ReviewRepository.
func (r *ReviewRepository) Update(_ context.Context, rv *reviewDomain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reviews[rv.ID()]; !ok {
		return domain.NewNotFoundError("Review", rv.ID().String())
	}
	r.s.reviews[rv.ID()] = cloneReview(rv)
	return nil
}

// Delete implements ReviewRepository.
func (r *ReviewRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reviews[id]; !ok {
		return domain.NewNotFoundError("Review", id.String())
	}
	delete(r.s.reviews, id)
	return nil
}

// --- Users ---

// UserRepository is an in-memory userDomain.UserRepository.
type UserRepository struct {
	s *Store
}

// Upsert implements UserRepository.
func (r *UserRepository) Upsert(_ context.Context, u userDomain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if current, ok := r.s.users[u.ID]; ok && current.UpdatedAt.After(u.UpdatedAt) {
		return nil
	}
	r.s.users[u.ID] = u
	return nil
}

// FindByID implements UserRepository.
func (r *UserRepository) FindByID(_ context.Context, id uuid.UUID) (*userDomain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("User", id.String())
	}
	return &u, nil
}

// --- Clock ---

// FixedClock is an application.Clock stopped at one instant.
type FixedClock struct {
	At time.Time
}

// NewFixedClock creates a clock stopped at at.
func NewFixedClock(at time.Time) *FixedClock {
	return &FixedClock{At: at.UTC()}
}

// Now implements application.Clock.
func (c *FixedClock) Now() time.Time { return c.At }

// Today implements application.Clock.
func (c *FixedClock) Today() time.Time { return bookingDomain.DateOf(c.At, time.UTC) }

// Day returns today plus offset days, formatted YYYY-MM-DD.
func (c *FixedClock) Day(offset int) string {
	return c.Today().AddDate(0, 0, offset).Format(bookingDomain.DateLayout)
}

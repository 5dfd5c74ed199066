package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/queue"
	"github.com/iliyamo/library-management/internal/repository"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

// memDB is an in-memory stand-in for MySQL. InTx serialises transactions
// and restores the pre-transaction state when fn fails.
type memDB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users   map[uint64]model.User
	books   map[uint64]model.Book
	borrows map[uint64]model.Borrow
	revoked map[string]model.RevokedToken
	nextID  uint64

	failIsRevoked error
	failRevoke    error
	failIncrement error
	failDecrement error
}

func newMemDB() *memDB {
	return &memDB{
		users:   map[uint64]model.User{},
		books:   map[uint64]model.Book{},
		borrows: map[uint64]model.Borrow{},
		revoked: map[string]model.RevokedToken{},
	}
}

type memSnapshot struct {
	users   map[uint64]model.User
	books   map[uint64]model.Book
	borrows map[uint64]model.Borrow
	revoked map[string]model.RevokedToken
	nextID  uint64
}

func clone[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m *memDB) InTx(ctx context.Context, fn func(q repository.Querier) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snap := memSnapshot{clone(m.users), clone(m.books), clone(m.borrows), clone(m.revoked), m.nextID}
	m.mu.Unlock()

	if err := fn(nil); err != nil {
		m.mu.Lock()
		m.users, m.books, m.borrows, m.revoked, m.nextID = snap.users, snap.books, snap.borrows, snap.revoked, snap.nextID
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memDB) Q() repository.Querier { return nil }

func (m *memDB) id() uint64 {
	m.nextID++
	return m.nextID
}

func (m *memDB) addUser(u model.User) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.id()
	}
	if u.PasswordChangedAt.IsZero() {
		u.PasswordChangedAt = t0.Add(-day)
	}
	m.users[u.ID] = u
	return u
}

func (m *memDB) addBook(b model.Book) model.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		b.ID = m.id()
	}
	m.books[b.ID] = b
	return b
}

func (m *memDB) stock(id uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.books[id].Stock
}

func (m *memDB) borrow(id uint64) model.Borrow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.borrows[id]
}

func (m *memDB) activeCount(userID, bookID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.borrows {
		if b.UserID == userID && b.BookID == bookID && b.IsActive() && b.DeletedAt == nil {
			n++
		}
	}
	return n
}

// users

type fakeUsers struct{ *memDB }

func (f fakeUsers) GetByID(_ context.Context, _ repository.Querier, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.IsDeleted() {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f fakeUsers) GetByIDForUpdate(ctx context.Context, q repository.Querier, id uint64) (model.User, error) {
	return f.GetByID(ctx, q, id)
}

func identifierOf(u model.User, field repository.Identifier) string {
	switch field {
	case repository.ByEmail:
		return u.Email
	case repository.ByPhone:
		return u.Phone
	default:
		return u.Username
	}
}

func (f fakeUsers) GetByIdentifier(_ context.Context, _ repository.Querier, field repository.Identifier, value string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if !u.IsDeleted() && identifierOf(u, field) == value {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f fakeUsers) IdentifierTaken(_ context.Context, _ repository.Querier, field repository.Identifier, value string, exceptID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if !u.IsDeleted() && u.ID != exceptID && identifierOf(u, field) == value {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeUsers) Create(_ context.Context, _ repository.Querier, u model.User) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.users {
		if o.IsDeleted() {
			continue
		}
		for _, field := range []repository.Identifier{repository.ByUsername, repository.ByEmail, repository.ByPhone} {
			if identifierOf(o, field) == identifierOf(u, field) {
				return 0, &repository.DuplicateError{Key: "uq_users_" + string(field) + "_live"}
			}
		}
	}
	u.ID = f.id()
	f.users[u.ID] = u
	return u.ID, nil
}

func (f fakeUsers) update(id uint64, apply func(*model.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.IsDeleted() {
		return repository.ErrNotFound
	}
	apply(&u)
	f.users[id] = u
	return nil
}

func (f fakeUsers) UpdateProfile(_ context.Context, _ repository.Querier, id uint64, c repository.ProfileChanges) error {
	return f.update(id, func(u *model.User) {
		if c.Name != nil {
			u.Name = *c.Name
		}
		if c.Sex != nil {
			u.Sex = *c.Sex
		}
		if c.Age != nil {
			u.Age = c.Age
		}
		if c.Introduction != nil {
			u.Introduction = c.Introduction
		}
		if c.Email != nil {
			u.Email = *c.Email
		}
		if c.Phone != nil {
			u.Phone = *c.Phone
		}
	})
}

func (f fakeUsers) UpdatePassword(_ context.Context, _ repository.Querier, id uint64, hash string, at time.Time) error {
	return f.update(id, func(u *model.User) { u.PasswordHash, u.PasswordChangedAt = hash, at })
}

func (f fakeUsers) SetPrivilege(_ context.Context, _ repository.Querier, id uint64, p model.Privilege) error {
	return f.update(id, func(u *model.User) { u.Privilege = p })
}

func (f fakeUsers) SetStatus(_ context.Context, _ repository.Querier, id uint64, s model.UserStatus) error {
	return f.update(id, func(u *model.User) { u.Status = s })
}

func (f fakeUsers) SoftDelete(_ context.Context, _ repository.Querier, id uint64, at time.Time) error {
	return f.update(id, func(u *model.User) { u.DeletedAt = &at })
}

func (f fakeUsers) List(_ context.Context, _ repository.Querier, keyword string, p model.Page) ([]model.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, u := range f.users {
		if !u.IsDeleted() && strings.Contains(u.Username+u.Name+u.Email, keyword) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, p), len(out), nil
}

func window[T any](rows []T, p model.Page) []T {
	lo := int(p.Offset())
	if lo >= len(rows) {
		return []T{}
	}
	hi := lo + int(p.Limit())
	if hi > len(rows) {
		hi = len(rows)
	}
	return rows[lo:hi]
}

// books

type fakeBooks struct{ *memDB }

func (f fakeBooks) GetByID(_ context.Context, _ repository.Querier, id uint64) (model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[id]
	if !ok || b.IsDeleted() {
		return model.Book{}, repository.ErrNotFound
	}
	return b, nil
}

func (f fakeBooks) LockByID(ctx context.Context, q repository.Querier, id uint64) (model.Book, error) {
	return f.GetByID(ctx, q, id)
}

func (f fakeBooks) DecrementStock(_ context.Context, _ repository.Querier, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDecrement != nil {
		return f.failDecrement
	}
	b, ok := f.books[id]
	if !ok || b.IsDeleted() || b.Stock <= 0 {
		return repository.ErrConflict
	}
	b.Stock--
	f.books[id] = b
	return nil
}

func (f fakeBooks) IncrementStock(_ context.Context, _ repository.Querier, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIncrement != nil {
		return f.failIncrement
	}
	b, ok := f.books[id]
	if !ok || b.IsDeleted() {
		return repository.ErrNotFound
	}
	b.Stock++
	f.books[id] = b
	return nil
}

func (f fakeBooks) Create(_ context.Context, _ repository.Querier, b model.Book) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.books {
		if !o.IsDeleted() && o.ISBN == b.ISBN {
			return 0, &repository.DuplicateError{Key: "uq_books_isbn_live"}
		}
	}
	b.ID = f.id()
	f.books[b.ID] = b
	return b.ID, nil
}

func (f fakeBooks) Update(_ context.Context, _ repository.Querier, id uint64, c repository.BookChanges) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[id]
	if !ok || b.IsDeleted() {
		return repository.ErrNotFound
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&b.Name, c.Name)
	set(&b.Author, c.Author)
	set(&b.Publisher, c.Publisher)
	set(&b.Category, c.Category)
	set(&b.ISBN, c.ISBN)
	if c.Introduction != nil {
		b.Introduction = c.Introduction
	}
	if c.Stock != nil {
		b.Stock = *c.Stock
	}
	f.books[id] = b
	return nil
}

func (f fakeBooks) SoftDelete(_ context.Context, _ repository.Querier, id uint64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[id]
	if !ok || b.IsDeleted() {
		return repository.ErrNotFound
	}
	b.DeletedAt = &at
	f.books[id] = b
	return nil
}

func (f fakeBooks) ISBNTaken(_ context.Context, _ repository.Querier, isbn string, exceptID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.books {
		if !b.IsDeleted() && b.ID != exceptID && b.ISBN == isbn {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeBooks) List(_ context.Context, _ repository.Querier, flt repository.BookFilter, p model.Page) ([]model.Book, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Book
	for _, b := range f.books {
		if b.IsDeleted() {
			continue
		}
		if flt.Keyword != "" && !strings.Contains(b.Name+b.Author+b.Publisher, flt.Keyword) {
			continue
		}
		if flt.Author != "" && !strings.Contains(b.Author, flt.Author) {
			continue
		}
		if flt.ISBN != "" && !strings.Contains(b.ISBN, flt.ISBN) {
			continue
		}
		if flt.Category != "" && b.Category != flt.Category {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return window(out, p), len(out), nil
}

func (f fakeBooks) Categories(context.Context, repository.Querier) ([]model.CategoryCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int{}
	for _, b := range f.books {
		if !b.IsDeleted() {
			counts[b.Category]++
		}
	}
	out := []model.CategoryCount{}
	for c, n := range counts {
		out = append(out, model.CategoryCount{Category: c, Books: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (f fakeBooks) RenameCategory(_ context.Context, _ repository.Querier, oldName, newName string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, b := range f.books {
		if !b.IsDeleted() && b.Category == oldName {
			b.Category = newName
			f.books[id] = b
			n++
		}
	}
	return n, nil
}

// borrows

type fakeBorrows struct{ *memDB }

func (f fakeBorrows) Create(_ context.Context, _ repository.Querier, userID, bookID uint64, at time.Time) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.borrows {
		if b.UserID == userID && b.BookID == bookID && b.IsActive() && b.DeletedAt == nil {
			return 0, &repository.DuplicateError{Key: "uq_borrows_active"}
		}
	}
	id := f.id()
	f.borrows[id] = model.Borrow{ID: id, UserID: userID, BookID: bookID, BorrowTime: at, Status: model.BorrowActive, CreatedAt: at, UpdatedAt: at}
	return id, nil
}

func (f fakeBorrows) HasActive(_ context.Context, _ repository.Querier, userID, bookID uint64) (bool, error) {
	return f.activeCount(userID, bookID) > 0, nil
}

func (f fakeBorrows) CountActiveForBook(_ context.Context, _ repository.Querier, bookID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.borrows {
		if b.BookID == bookID && b.IsActive() && b.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (f fakeBorrows) GetByID(_ context.Context, _ repository.Querier, id uint64) (model.Borrow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.borrows[id]
	if !ok || b.DeletedAt != nil {
		return model.Borrow{}, repository.ErrNotFound
	}
	return b, nil
}

func (f fakeBorrows) LockByID(ctx context.Context, q repository.Querier, id uint64) (model.Borrow, error) {
	return f.GetByID(ctx, q, id)
}

func (f fakeBorrows) MarkReturned(_ context.Context, _ repository.Querier, id uint64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.borrows[id]
	if !ok || b.DeletedAt != nil || !b.IsActive() {
		return repository.ErrConflict
	}
	b.Status, b.ReturnTime = model.BorrowReturned, &at
	f.borrows[id] = b
	return nil
}

// detailLocked joins b with its live book and user.
func (f fakeBorrows) detailLocked(b model.Borrow) (model.BorrowDetail, bool) {
	bk, ok := f.books[b.BookID]
	if !ok || bk.IsDeleted() {
		return model.BorrowDetail{}, false
	}
	u, ok := f.users[b.UserID]
	if !ok || u.IsDeleted() {
		return model.BorrowDetail{}, false
	}
	return model.BorrowDetail{Borrow: b, BookName: bk.Name, Author: bk.Author, ISBN: bk.ISBN, Username: u.Username}, true
}

func (f fakeBorrows) GetDetail(_ context.Context, _ repository.Querier, id uint64) (model.BorrowDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.borrows[id]
	if !ok || b.DeletedAt != nil {
		return model.BorrowDetail{}, repository.ErrNotFound
	}
	d, ok := f.detailLocked(b)
	if !ok {
		return model.BorrowDetail{}, repository.ErrNotFound
	}
	return d, nil
}

func (f fakeBorrows) matching(flt repository.BorrowFilter, now time.Time) []model.BorrowDetail {
	var out []model.BorrowDetail
	for _, b := range f.borrows {
		if b.DeletedAt != nil {
			continue
		}
		if flt.UserID != nil && b.UserID != *flt.UserID {
			continue
		}
		if flt.BookID != nil && b.BookID != *flt.BookID {
			continue
		}
		if flt.Status != nil && b.Status != *flt.Status {
			continue
		}
		if flt.Overdue != nil && b.IsOverdue(now) != *flt.Overdue {
			continue
		}
		if d, ok := f.detailLocked(b); ok {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BorrowTime.Equal(out[j].BorrowTime) {
			return out[i].ID > out[j].ID
		}
		return out[i].BorrowTime.After(out[j].BorrowTime)
	})
	return out
}

func (f fakeBorrows) List(_ context.Context, _ repository.Querier, flt repository.BorrowFilter, p model.Page, now time.Time) ([]model.BorrowDetail, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.matching(flt, now)
	return window(rows, p), len(rows), nil
}

// ledger

type fakeLedger struct{ *memDB }

func (f fakeLedger) Revoke(_ context.Context, _ repository.Querier, t model.RevokedToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRevoke != nil {
		return f.failRevoke
	}
	if _, ok := f.revoked[t.JTI]; ok {
		return &repository.DuplicateError{Key: "uq_revoked_tokens_jti"}
	}
	f.revoked[t.JTI] = t
	return nil
}

func (f fakeLedger) IsRevoked(_ context.Context, _ repository.Querier, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIsRevoked != nil {
		return false, f.failIsRevoked
	}
	_, ok := f.revoked[jti]
	return ok, nil
}

func (f fakeLedger) PurgeExpired(_ context.Context, _ repository.Querier, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for jti, t := range f.revoked {
		if t.ExpiresAt.Before(cutoff) {
			delete(f.revoked, jti)
			n++
		}
	}
	return n, nil
}

// stats

type fakeStats struct{ fakeBorrows }

func (f fakeStats) BorrowCounts(_ context.Context, _ repository.Querier, flt repository.BorrowFilter, now time.Time) (model.BorrowCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c model.BorrowCounts
	var days float64
	for _, d := range f.matching(repository.BorrowFilter{UserID: flt.UserID, BookID: flt.BookID}, now) {
		c.Total++
		if d.IsActive() {
			c.Active++
			if d.IsOverdue(now) {
				c.CurrentOverdue++
			}
			continue
		}
		c.Returned++
		if d.IsOverdue(now) {
			c.ReturnedLate++
		}
		days += float64(int(d.ReturnTime.Sub(d.BorrowTime) / day))
	}
	if c.Returned > 0 {
		avg := days / float64(c.Returned)
		c.AvgBorrowDays = &avg
	}
	return c, nil
}

func (f fakeStats) TopBorrowers(_ context.Context, _ repository.Querier, bookID *uint64, activeOnly bool, limit uint) ([]model.UserBorrowCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[uint64]int{}
	for _, d := range f.matching(repository.BorrowFilter{BookID: bookID}, t0) {
		if activeOnly && f.users[d.UserID].IsBanned() {
			continue
		}
		counts[d.UserID]++
	}
	out := []model.UserBorrowCount{}
	for id, n := range counts {
		u := f.users[id]
		out = append(out, model.UserBorrowCount{UserID: id, Username: u.Username, Name: u.Name, BorrowCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BorrowCount == out[j].BorrowCount {
			return out[i].UserID < out[j].UserID
		}
		return out[i].BorrowCount > out[j].BorrowCount
	})
	if uint(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeStats) PopularBooks(context.Context, repository.Querier, uint) ([]model.BookBorrowCount, error) {
	return []model.BookBorrowCount{}, nil
}

func (f fakeStats) CategoryStats(context.Context, repository.Querier) ([]model.CategoryStat, error) {
	return []model.CategoryStat{}, nil
}

func (f fakeStats) CatalogTotals(context.Context, repository.Querier) (model.CatalogTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var t model.CatalogTotals
	for _, u := range f.users {
		if !u.IsDeleted() && !u.IsBanned() {
			t.ActiveUsers++
		}
	}
	for _, b := range f.books {
		if !b.IsDeleted() {
			t.Books++
			t.Stock += b.Stock
		}
	}
	return t, nil
}

// collaborators

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock { return &fakeClock{t: t0} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.BorrowEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, ev queue.BorrowEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type countingRecorder struct {
	mu  sync.Mutex
	ops map[string]int
}

func (r *countingRecorder) Operation(name, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = map[string]int{}
	}
	r.ops[name+":"+outcome]++
}

func (r *countingRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ops[key]
}

const testSecret = "test-secret"

// fixture wires every service over one memDB.
type fixture struct {
	db       *memDB
	clock    *fakeClock
	events   *fakePublisher
	rec      *countingRecorder
	borrows  *BorrowService
	sessions *SessionService
	auth     *AuthService
	guard    *AccessGuard
	admin    *UserAdminService
	catalog  *CatalogService
	stats    *StatsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newMemDB()
	clock := newClock()
	events := &fakePublisher{}
	rec := &countingRecorder{}
	log := zap.NewNop()

	users, books, borrows := fakeUsers{db}, fakeBooks{db}, fakeBorrows{db}
	sessions := NewSessionService(db, users, fakeLedger{db},
		SessionConfig{Secret: testSecret, AccessTTL: time.Hour, RefreshTTL: 7 * day}, log,
		WithSessionClock(clock.Now), WithSessionRecorder(rec))

	admin := NewUserAdminService(db, users, log)
	admin.now = clock.Now
	catalog := NewCatalogService(db, books, borrows, log)
	catalog.now = clock.Now

	return &fixture{
		db:       db,
		clock:    clock,
		events:   events,
		rec:      rec,
		borrows:  NewBorrowService(db, users, books, borrows, events, log, WithBorrowClock(clock.Now), WithBorrowRecorder(rec)),
		sessions: sessions,
		auth:     NewAuthService(db, users, sessions, 4, log, WithAuthClock(clock.Now)),
		guard:    NewAccessGuard(db, users),
		admin:    admin,
		catalog:  catalog,
		stats:    NewStatsService(db, users, books, borrows, fakeStats{borrows}, log, WithStatsClock(clock.Now)),
	}
}

func (f *fixture) reader(name string) model.User {
	return f.db.addUser(model.User{Username: name, Email: name + "@example.com", Phone: "", Name: name})
}

func (f *fixture) adminUser(name string) model.User {
	return f.db.addUser(model.User{Username: name, Email: name + "@example.com", Name: name, Privilege: model.PrivilegeAdmin})
}

func (f *fixture) book(name string, stock int) model.Book {
	isbn := fmt.Sprintf("978%010d", f.db.nextID+1)
	return f.db.addBook(model.Book{Name: name, Author: "Author", Category: "fiction", ISBN: isbn, Stock: stock})
}

func zapNop() *zap.Logger { return zap.NewNop() }

package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/library-management/internal/middleware"
	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/repository"
	"github.com/iliyamo/library-management/internal/service"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type stubAuth struct{ principal service.Principal }

func (s stubAuth) Authenticate(context.Context, string, model.TokenType) (*service.Principal, error) {
	p := s.principal
	return &p, nil
}

type stubGuard struct{ user model.User }

func (g stubGuard) RequireRole(context.Context, uint64, model.Privilege) (*model.User, error) {
	u := g.user
	return &u, nil
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.JSONSerializer = JSONSerializer{}
	return e
}

func asUser(id uint64) echo.MiddlewareFunc {
	return middleware.Authenticate(stubAuth{principal: service.Principal{UserID: id, TokenType: model.TokenAccess, JTI: "jti"}}, model.TokenAccess)
}

func asAdmin(id uint64) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.Authenticate(stubAuth{principal: service.Principal{UserID: id, Privilege: model.PrivilegeAdmin}}, model.TokenAccess),
		middleware.RequireRole(stubGuard{user: model.User{ID: id, Privilege: model.PrivilegeAdmin}}, model.PrivilegeAdmin),
	}
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func appErr(kind service.Kind, code string) error {
	return &service.AppError{Kind: kind, Code: code, Message: code + " message"}
}

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{appErr(service.KindValidation, service.CodeValidation), http.StatusBadRequest, "validation_error"},
		{appErr(service.KindUnauthorized, service.CodeTokenRevoked), http.StatusUnauthorized, "token_revoked"},
		{appErr(service.KindForbidden, service.CodeAccountBanned), http.StatusForbidden, "account_banned"},
		{appErr(service.KindNotFound, service.CodeBorrowNotFound), http.StatusNotFound, "borrow_not_found"},
		{appErr(service.KindConflict, service.CodeInsufficientStock), http.StatusConflict, "insufficient_stock"},
		{errors.New("dial tcp: refused"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		e := newEcho()
		e.GET("/x", func(c echo.Context) error { return writeError(c, zap.NewNop(), tc.err) })
		rec := do(e, http.MethodGet, "/x", "")

		assert.Equal(t, tc.status, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, tc.code, body["error"])
		assert.NotEmpty(t, body["message"])
		assert.NotContains(t, rec.Body.String(), "dial tcp")
	}
}

func TestPersistenceMessageHidden(t *testing.T) {
	e := newEcho()
	err := &service.AppError{Kind: service.KindPersistence, Code: service.CodeInternal, Message: "Error 1146: table missing", Err: errors.New("x")}
	e.GET("/x", func(c echo.Context) error { return writeError(c, zap.NewNop(), err) })
	rec := do(e, http.MethodGet, "/x", "")
	assert.Equal(t, "internal error", decode(t, rec)["message"])
}

func TestPageOf(t *testing.T) {
	e := newEcho()
	var got model.Page
	e.GET("/x", func(c echo.Context) error { got = pageOf(c); return nil })

	do(e, http.MethodGet, "/x?page=3&per_page=500", "")
	assert.Equal(t, model.Page{Number: 3, PerPage: model.MaxPerPage}, got)

	do(e, http.MethodGet, "/x?page=abc", "")
	assert.Equal(t, model.Page{Number: 1, PerPage: model.DefaultPerPage}, got)
}

func TestJSONSerializerRejectsMalformed(t *testing.T) {
	e := newEcho()
	e.POST("/x", func(c echo.Context) error {
		var v struct{ A int }
		if err := c.Bind(&v); err != nil {
			return badRequest(c, "invalid request body")
		}
		return c.JSON(http.StatusOK, v)
	})
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/x", `{"A":`).Code)

	rec := do(e, http.MethodPost, "/x", `{"A":7}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"A":7}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	e := newEcho()
	e.GET("/up", Health(pingFunc(func(context.Context) error { return nil })))
	e.GET("/down", Health(pingFunc(func(context.Context) error { return errors.New("gone") })))

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/up", "").Code)
	rec := do(e, http.MethodGet, "/down", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decode(t, rec)["status"])
}

type pingFunc func(context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// --- auth ---

type stubAccounts struct {
	Accounts
	register func(service.RegisterInput) (uint64, error)
	login    func(service.LoginInput) (*service.LoginResult, error)
	change   func(service.Principal, service.ChangePasswordInput) error
	avail    func(repository.Identifier, string) (bool, error)
}

func (s stubAccounts) Register(_ context.Context, in service.RegisterInput) (uint64, error) {
	return s.register(in)
}
func (s stubAccounts) Login(_ context.Context, in service.LoginInput) (*service.LoginResult, error) {
	return s.login(in)
}
func (s stubAccounts) ChangePassword(_ context.Context, p service.Principal, in service.ChangePasswordInput) error {
	return s.change(p, in)
}
func (s stubAccounts) Available(_ context.Context, f repository.Identifier, v string) (bool, error) {
	return s.avail(f, v)
}

type stubSessions struct {
	refreshRaw string
	logoutRaw  string
	logoutWho  service.Principal
	err        error
}

func (s *stubSessions) Refresh(_ context.Context, raw string) (service.TokenPair, error) {
	s.refreshRaw = raw
	if s.err != nil {
		return service.TokenPair{}, s.err
	}
	return service.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
}

func (s *stubSessions) Logout(_ context.Context, p service.Principal, raw string) error {
	s.logoutWho, s.logoutRaw = p, raw
	return s.err
}

func TestRegisterAndLogin(t *testing.T) {
	var gotReg service.RegisterInput
	acc := stubAccounts{
		register: func(in service.RegisterInput) (uint64, error) { gotReg = in; return 9, nil },
		login: func(in service.LoginInput) (*service.LoginResult, error) {
			if in.Password != "secret1" {
				return nil, appErr(service.KindUnauthorized, service.CodeInvalidCredentials)
			}
			return &service.LoginResult{TokenPair: service.TokenPair{AccessToken: "a", RefreshToken: "r"}, User: model.UserView{ID: 9, Username: in.Username}}, nil
		},
	}
	h := NewAuthHandler(acc, &stubSessions{}, zap.NewNop())
	e := newEcho()
	e.POST("/register", h.Register)
	e.POST("/login", h.Login)

	rec := do(e, http.MethodPost, "/register", `{"username":"reader01","email":"r@example.com","phone":"13800000000","password":"secret1","name":"R","sex":1}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(9), decode(t, rec)["user_id"])
	assert.Equal(t, "reader01", gotReg.Username)
	assert.Equal(t, model.SexFemale, gotReg.Sex)

	rec = do(e, http.MethodPost, "/login", `{"username":"reader01","password":"secret1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "a", body["access_token"])
	assert.Equal(t, "r", body["refresh_token"])
	assert.Equal(t, "reader01", body["user"].(map[string]any)["username"])

	rec = do(e, http.MethodPost, "/login", `{"username":"reader01","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode(t, rec)["error"])
}

func TestRefreshTokenSources(t *testing.T) {
	ss := &stubSessions{}
	h := NewAuthHandler(stubAccounts{}, ss, zap.NewNop())
	e := newEcho()
	e.POST("/refresh", h.Refresh)

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer from-header")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from-header", ss.refreshRaw)
	assert.Equal(t, "a2", decode(t, rec)["access_token"])

	rec = do(e, http.MethodPost, "/refresh", `{"refresh_token":"from-body"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from-body", ss.refreshRaw)

	ss.err = appErr(service.KindUnauthorized, service.CodeTokenRevoked)
	rec = do(e, http.MethodPost, "/refresh", `{"refresh_token":"used"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token_revoked", decode(t, rec)["error"])
}

func TestLogoutPassesRefreshToken(t *testing.T) {
	ss := &stubSessions{}
	h := NewAuthHandler(stubAccounts{}, ss, zap.NewNop())
	e := newEcho()
	e.POST("/logout", h.Logout, asUser(5))

	rec := do(e, http.MethodPost, "/logout", `{"refresh_token":"r1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(5), ss.logoutWho.UserID)
	assert.Equal(t, "r1", ss.logoutRaw)

	rec = do(e, http.MethodPost, "/logout", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", ss.logoutRaw)
}

func TestChangePasswordNeedsFreshToken(t *testing.T) {
	acc := stubAccounts{change: func(p service.Principal, _ service.ChangePasswordInput) error {
		if !p.Fresh {
			return appErr(service.KindUnauthorized, service.CodeFreshTokenRequired)
		}
		return nil
	}}
	h := NewAuthHandler(acc, &stubSessions{}, zap.NewNop())
	e := newEcho()
	e.POST("/change-password", h.ChangePassword, asUser(5))

	rec := do(e, http.MethodPost, "/change-password", `{"current_password":"a","new_password":"bbbbbb"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "fresh_token_required", decode(t, rec)["error"])
}

func TestCheckAvailability(t *testing.T) {
	acc := stubAccounts{avail: func(f repository.Identifier, v string) (bool, error) {
		return !(f == repository.ByEmail && v == "taken@example.com"), nil
	}}
	h := NewAuthHandler(acc, &stubSessions{}, zap.NewNop())
	e := newEcho()
	e.GET("/check/email/:value", h.Check(repository.ByEmail))

	assert.Equal(t, false, decode(t, do(e, http.MethodGet, "/check/email/taken@example.com", ""))["available"])
	assert.Equal(t, true, decode(t, do(e, http.MethodGet, "/check/email/free@example.com", ""))["available"])
}

// --- borrows ---

type stubLending struct {
	Lending
	borrowErr error
	filter    repository.BorrowFilter
	status    *model.BorrowStatus
	page      model.Page
	caller    service.Principal
}

func (s *stubLending) Borrow(_ context.Context, userID, bookID uint64) (*service.BorrowReceipt, error) {
	if s.borrowErr != nil {
		return nil, s.borrowErr
	}
	return &service.BorrowReceipt{BorrowID: 100, BookID: bookID, BookName: "Dune", BorrowTime: t0, DueTime: t0.Add(model.LoanPeriod)}, nil
}

func (s *stubLending) Return(_ context.Context, userID, borrowID uint64) (*service.ReturnReceipt, error) {
	rt := t0.Add(20 * 24 * time.Hour)
	return &service.ReturnReceipt{BorrowID: borrowID, BookID: 1, ReturnTime: rt, IsOverdue: true, OverdueDays: 6}, nil
}

func (s *stubLending) ListMine(_ context.Context, _ uint64, status *model.BorrowStatus, p model.Page) (*service.BorrowPage, error) {
	s.status, s.page = status, p
	return &service.BorrowPage{Items: []model.BorrowView{{BorrowID: 1, Status: "active"}}, Total: 1, Pages: 1, CurrentPage: p.Number}, nil
}

func (s *stubLending) ListMyOverdue(_ context.Context, _ uint64, p model.Page) (*service.BorrowPage, error) {
	return &service.BorrowPage{CurrentPage: p.Number}, nil
}

func (s *stubLending) ListAll(_ context.Context, f repository.BorrowFilter, p model.Page) (*service.BorrowPage, error) {
	s.filter = f
	return &service.BorrowPage{CurrentPage: p.Number}, nil
}

func (s *stubLending) Get(_ context.Context, p service.Principal, id uint64) (*model.BorrowView, error) {
	s.caller = p
	return &model.BorrowView{BorrowID: id}, nil
}

func borrowEcho(l *stubLending) *echo.Echo {
	h := NewBorrowHandler(l, zap.NewNop())
	e := newEcho()
	g := e.Group("/borrows", asUser(7))
	g.POST("", h.Borrow)
	g.PUT("/:id/return", h.Return)
	g.GET("", h.ListMine)
	g.GET("/overdue", h.ListMyOverdue)
	g.GET("/all", h.ListAll)
	g.GET("/:id", h.Get)
	return e
}

func TestBorrowCreated(t *testing.T) {
	e := borrowEcho(&stubLending{})
	rec := do(e, http.MethodPost, "/borrows", `{"book_id":1}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(100), body["borrow_id"])
	assert.Equal(t, "Dune", body["book_name"])
	assert.Equal(t, "2025-03-15T10:00:00Z", body["due_time"])
}

func TestBorrowRejections(t *testing.T) {
	e := borrowEcho(&stubLending{})
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/borrows", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/borrows", `{"book_id":"x"}`).Code)

	e = borrowEcho(&stubLending{borrowErr: appErr(service.KindConflict, service.CodeInsufficientStock)})
	rec := do(e, http.MethodPost, "/borrows", `{"book_id":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient_stock", decode(t, rec)["error"])
}

func TestReturnOverdue(t *testing.T) {
	e := borrowEcho(&stubLending{})
	rec := do(e, http.MethodPut, "/borrows/3/return", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["is_overdue"])
	assert.Equal(t, float64(6), body["overdue_days"])

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPut, "/borrows/zero/return", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPut, "/borrows/0/return", "").Code)
}

func TestListMineResponseShape(t *testing.T) {
	l := &stubLending{}
	e := borrowEcho(l)

	rec := do(e, http.MethodGet, "/borrows?status=returned&page=2&per_page=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["borrows"], 1)
	assert.Equal(t, float64(2), body["current_page"])
	require.NotNil(t, l.status)
	assert.Equal(t, model.BorrowReturned, *l.status)
	assert.Equal(t, model.Page{Number: 2, PerPage: 5}, l.page)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/borrows?status=lost", "").Code)

	rec = do(e, http.MethodGet, "/borrows/overdue", "")
	body = decode(t, rec)
	assert.Contains(t, body, "overdue_borrows")
	assert.Equal(t, []any{}, body["overdue_borrows"])
}

func TestListAllFilters(t *testing.T) {
	l := &stubLending{}
	e := borrowEcho(l)

	rec := do(e, http.MethodGet, "/borrows/all?user_id=4&book_id=9&status=active&is_overdue=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, l.filter.UserID)
	require.NotNil(t, l.filter.BookID)
	require.NotNil(t, l.filter.Status)
	require.NotNil(t, l.filter.Overdue)
	assert.Equal(t, uint64(4), *l.filter.UserID)
	assert.Equal(t, uint64(9), *l.filter.BookID)
	assert.Equal(t, model.BorrowActive, *l.filter.Status)
	assert.True(t, *l.filter.Overdue)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/borrows/all?is_overdue=maybe", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/borrows/all?user_id=-1", "").Code)
}

func TestGetBorrowPassesCaller(t *testing.T) {
	l := &stubLending{}
	e := borrowEcho(l)
	rec := do(e, http.MethodGet, "/borrows/12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(7), l.caller.UserID)
	assert.Equal(t, float64(12), decode(t, rec)["borrow"].(map[string]any)["borrow_id"])
}

// --- users and books ---

type stubUserAdmin struct {
	UserAdmin
	actor  model.User
	target uint64
	priv   model.Privilege
}

func (s *stubUserAdmin) SetPrivilege(_ context.Context, actor model.User, id uint64, p model.Privilege) error {
	s.actor, s.target, s.priv = actor, id, p
	return nil
}

func (s *stubUserAdmin) Ban(_ context.Context, actor model.User, id uint64) error {
	if actor.ID == id {
		return appErr(service.KindForbidden, service.CodeForbidden)
	}
	s.actor, s.target = actor, id
	return nil
}

func TestUserAdminRoutes(t *testing.T) {
	ua := &stubUserAdmin{}
	h := NewUserHandler(ua, zap.NewNop())
	e := newEcho()
	g := e.Group("/users", asAdmin(1)...)
	g.PUT("/:id/privilege", h.SetPrivilege)
	g.PUT("/:id/ban", h.Ban)

	rec := do(e, http.MethodPut, "/users/2/privilege", `{"privilege":1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(1), ua.actor.ID)
	assert.Equal(t, uint64(2), ua.target)
	assert.Equal(t, model.PrivilegeAdmin, ua.priv)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPut, "/users/2/privilege", `{}`).Code)

	rec = do(e, http.MethodPut, "/users/1/ban", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUserAdminWithoutActor(t *testing.T) {
	h := NewUserHandler(&stubUserAdmin{}, zap.NewNop())
	e := newEcho()
	e.PUT("/users/:id/ban", h.Ban, asUser(3))
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPut, "/users/4/ban", "").Code)
}

type stubCatalog struct {
	Catalog
	filter repository.BookFilter
}

func (s *stubCatalog) Search(_ context.Context, f repository.BookFilter, p model.Page) (*service.BookPage, error) {
	s.filter = f
	return &service.BookPage{CurrentPage: p.Number}, nil
}

func (s *stubCatalog) Delete(context.Context, uint64) error {
	return appErr(service.KindConflict, service.CodeBookOnLoan)
}

func TestBookSearchAndDelete(t *testing.T) {
	sc := &stubCatalog{}
	h := NewBookHandler(sc, zap.NewNop())
	e := newEcho()
	e.GET("/books/search", h.Search)
	e.DELETE("/books/:id", h.Delete)

	rec := do(e, http.MethodGet, "/books/search?keyword=+dune+&category=SF", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dune", sc.filter.Keyword)
	assert.Equal(t, "SF", sc.filter.Category)
	assert.Equal(t, []any{}, decode(t, rec)["books"])

	rec = do(e, http.MethodDelete, "/books/3", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "book_on_loan", decode(t, rec)["error"])
}

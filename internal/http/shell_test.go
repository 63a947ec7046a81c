package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	html "github.com/gofiber/template/html/v2"

	"mermanager/internal/config"
	"mermanager/internal/domain"
	"mermanager/internal/http/handlers"
	"mermanager/internal/services"
	"mermanager/internal/store"
)

type testApp struct {
	app   *fiber.App
	deps  *handlers.Deps
	store store.Store
	model *services.ReadModel
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	st, err := store.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	authSvc := services.NewAuthService(st)
	rm := services.NewReadModel(st)
	authSvc.Subscribe(func(u *domain.User) { _ = rm.SetUser(u) })
	deps := handlers.NewDeps(st, config.Config{}, authSvc, rm)
	authH := &handlers.AuthHandler{Auth: authSvc}

	engine := html.New("../../web/templates", ".html")
	app := fiber.New(fiber.Config{Views: engine})
	app.Use(csrf.New(csrf.Config{KeyLookup: "form:csrf", CookieName: "csrf_", CookieSameSite: "Lax"}))
	requireUser := handlers.RequireUser(authSvc)

	app.Get("/login", authH.LoginForm)
	app.Post("/login", authH.Login)
	app.Post("/logout", authH.Logout)
	app.Get("/", requireUser, deps.DashboardHandler.Home)
	app.Get("/listings", requireUser, deps.ListingHandler.List)
	app.Get("/listings/new", requireUser, deps.EditorHandler.New)
	app.Get("/listings/:id/edit", requireUser, deps.EditorHandler.Edit)
	app.Post("/listings/save", requireUser, deps.EditorHandler.Save)
	app.Post("/listings/delete", requireUser, deps.EditorHandler.Delete)
	app.Get("/api/v1/listings", requireUser, deps.ListingHandler.Snapshot)

	return &testApp{app: app, deps: deps, store: st, model: rm}
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// signIn runs the demo login flow and returns the session + csrf cookies.
func signIn(t *testing.T, ta *testApp) (sid, csrfTok string) {
	t.Helper()
	respForm, err := ta.app.Test(httptest.NewRequest("GET", "/login", nil))
	if err != nil {
		t.Fatal(err)
	}
	csrfTok = cookieValue(respForm, "csrf_")
	if csrfTok == "" {
		t.Fatal("csrf token missing")
	}

	req := httptest.NewRequest("POST", "/login", strings.NewReader("csrf="+csrfTok))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: csrfTok})
	resp, err := ta.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("login: want 302, got %d", resp.StatusCode)
	}
	sid = cookieValue(resp, "sid")
	if sid == "" {
		t.Fatal("sid cookie missing after login")
	}
	return sid, csrfTok
}

func TestInventoryRoutesRequireLogin(t *testing.T) {
	ta := newTestApp(t)

	for _, path := range []string{"/", "/listings", "/listings/new"} {
		resp, err := ta.app.Test(httptest.NewRequest("GET", path, nil))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("%s: want redirect to login, got %d", path, resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); loc != "/login" {
			t.Fatalf("%s: want /login, got %s", path, loc)
		}
	}
}

func TestSignInThenDashboard(t *testing.T) {
	ta := newTestApp(t)
	sid, _ := signIn(t, ta)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	resp, err := ta.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard after login: want 200, got %d", resp.StatusCode)
	}
}

func TestCreateListingThroughEditor(t *testing.T) {
	ta := newTestApp(t)
	sid, csrfTok := signIn(t, ta)

	// open the editor so a form session token exists
	reqNew := httptest.NewRequest("GET", "/listings/new", nil)
	reqNew.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	respNew, err := ta.app.Test(reqNew)
	if err != nil {
		t.Fatal(err)
	}
	if respNew.StatusCode != http.StatusOK {
		t.Fatalf("editor form: want 200, got %d", respNew.StatusCode)
	}
	token := ta.deps.EditorHandler.Editors.For(sid).Token()
	if token == "" {
		t.Fatal("editor token missing after open")
	}

	form := "csrf=" + csrfTok + "&token=" + token +
		"&title=%E5%8F%A4%E3%81%84T%E3%82%B7%E3%83%A3%E3%83%84" + // 古いTシャツ
		"&description=desc&price=1200&cost=300&status=ACTIVE&category=&image_url="
	reqSave := httptest.NewRequest("POST", "/listings/save", strings.NewReader(form))
	reqSave.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	reqSave.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	reqSave.AddCookie(&http.Cookie{Name: "csrf_", Value: csrfTok})
	respSave, err := ta.app.Test(reqSave)
	if err != nil {
		t.Fatal(err)
	}
	if respSave.StatusCode != http.StatusFound {
		t.Fatalf("save: want 302, got %d", respSave.StatusCode)
	}

	snap := ta.model.Current()
	if len(snap) != 1 {
		t.Fatalf("want 1 listing after save, got %d", len(snap))
	}
	l := snap[0]
	if l.Title != "古いTシャツ" || l.Price != 1200 || l.Cost != 300 {
		t.Fatalf("saved fields wrong: %+v", l)
	}
	if l.CreatedAt != l.UpdatedAt || l.ID == "" {
		t.Fatalf("bad timestamps or id on create: %+v", l)
	}
}

func TestStaleFormTokenIsIgnored(t *testing.T) {
	ta := newTestApp(t)
	sid, csrfTok := signIn(t, ta)

	reqNew := httptest.NewRequest("GET", "/listings/new", nil)
	reqNew.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	if _, err := ta.app.Test(reqNew); err != nil {
		t.Fatal(err)
	}

	form := "csrf=" + csrfTok + "&token=stale-token&title=x&description=&price=0&cost=0&status=ACTIVE&category=&image_url="
	req := httptest.NewRequest("POST", "/listings/save", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: csrfTok})
	resp, err := ta.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("stale token: want redirect, got %d", resp.StatusCode)
	}
	if len(ta.model.Current()) != 0 {
		t.Fatal("stale form post must not create a listing")
	}
}

func TestSnapshotAPIServesOwnListingsOnly(t *testing.T) {
	ta := newTestApp(t)
	sid, _ := signIn(t, ta)

	// seed a foreign listing directly in the store
	if _, err := ta.store.Create(context.Background(), domain.Listing{
		OwnerID: "someone-else", Title: "theirs", Status: domain.StatusActive,
		Category: domain.Categories[0], CreatedAt: 1, UpdatedAt: 1,
	}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/api/v1/listings", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	resp, err := ta.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("snapshot api: want 200, got %d", resp.StatusCode)
	}
	body := make([]byte, 1<<16)
	n, _ := resp.Body.Read(body)
	if strings.Contains(string(body[:n]), "theirs") {
		t.Fatal("foreign listing leaked through the snapshot API")
	}
}

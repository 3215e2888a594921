package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/flavorzest/flavorzest/internal/domain"
	"github.com/flavorzest/flavorzest/internal/usecase"
)

// memStore is just enough of a product store to drive the handlers.
type memStore struct {
	rows  map[uuid.UUID]*domain.Product
	vars  map[uuid.UUID][]domain.ProductVariant
	order []uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{rows: map[uuid.UUID]*domain.Product{}, vars: map[uuid.UUID][]domain.ProductVariant{}}
}

func (m *memStore) SelectAllProducts(ctx context.Context, withVariants bool) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(m.order))
	for _, id := range m.order {
		p := *m.rows[id]
		if withVariants {
			p.Variants = append([]domain.ProductVariant(nil), m.vars[id]...)
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) InsertProduct(ctx context.Context, p *domain.Product) (uuid.UUID, error) {
	row := *p
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.Variants = nil
	m.rows[row.ID] = &row
	m.order = append(m.order, row.ID)
	return row.ID, nil
}

func (m *memStore) UpdateProduct(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	p, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			p.Name = v.(string)
		case "price":
			p.Price = v.(float64)
		case "description":
			p.Description = v.(string)
		case "image":
			p.Image = v.(string)
		case "category":
			p.Category = v.(string)
		case "origin":
			p.Origin = v.(string)
		case "gender":
			p.Gender = v.(domain.Gender)
		case "notes_top":
			p.Notes.Top = v.(string)
		case "notes_heart":
			p.Notes.Heart = v.(string)
		case "notes_base":
			p.Notes.Base = v.(string)
		case "is_signature":
			p.IsSignature = v.(bool)
		case "is_hidden":
			p.IsHidden = v.(bool)
		case "display_order":
			p.DisplayOrder = v.(int)
		case "discount":
			if v == nil {
				p.Discount = nil
			} else {
				d := v.(int)
				p.Discount = &d
			}
		case "discount_end_date":
			if v == nil {
				p.DiscountEndDate = nil
			} else {
				ts := v.(time.Time)
				p.DiscountEndDate = &ts
			}
		}
	}
	return nil
}

func (m *memStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rows, id)
	delete(m.vars, id)
	kept := m.order[:0]
	for _, x := range m.order {
		if x != id {
			kept = append(kept, x)
		}
	}
	m.order = kept
	return nil
}

func (m *memStore) InsertVariants(ctx context.Context, productID uuid.UUID, rows []domain.ProductVariant) error {
	m.vars[productID] = append(m.vars[productID], rows...)
	return nil
}

func (m *memStore) DeleteVariants(ctx context.Context, productID uuid.UUID) error {
	delete(m.vars, productID)
	return nil
}

func (m *memStore) ClearSignature(ctx context.Context) error {
	for _, p := range m.rows {
		p.IsSignature = false
	}
	return nil
}

type memSettings struct{ row *domain.SiteSettings }

func (m *memSettings) Get(ctx context.Context) (*domain.SiteSettings, error) {
	if m.row == nil {
		return nil, domain.ErrNotFound
	}
	cp := *m.row
	return &cp, nil
}

func (m *memSettings) Update(ctx context.Context, fields map[string]any) error {
	if m.row == nil {
		m.row = &domain.SiteSettings{ID: 1}
	}
	if v, ok := fields["hero_image"]; ok {
		m.row.HeroImage = v.(string)
	}
	return nil
}

type memNotifications struct {
	rows  map[string]domain.Notification
	order []string
}

func (m *memNotifications) List(ctx context.Context) ([]domain.Notification, error) {
	out := make([]domain.Notification, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rows[id])
	}
	return out, nil
}

func (m *memNotifications) SaveNew(ctx context.Context, ns []domain.Notification) error {
	for _, n := range ns {
		if _, ok := m.rows[n.ID]; ok {
			continue
		}
		m.rows[n.ID] = n
		m.order = append(m.order, n.ID)
	}
	return nil
}

func (m *memNotifications) MarkRead(ctx context.Context, id string) error {
	n, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.Read = true
	m.rows[id] = n
	return nil
}

func (m *memNotifications) Clear(ctx context.Context) error {
	m.rows = map[string]domain.Notification{}
	m.order = nil
	return nil
}

func newTestServer(t *testing.T) (*Server, *usecase.Catalog) {
	t.Helper()
	cat := usecase.NewCatalog(newMemStore(), nil, "products")
	s := &Server{
		mux:          http.NewServeMux(),
		catalog:      cat,
		cart:         &usecase.Cart{Catalog: cat},
		settings:     &usecase.Settings{Repo: &memSettings{}},
		notify:       &usecase.Notifier{Repo: &memNotifications{rows: map[string]domain.Notification{}}},
		adminAllowed: adminAllowList(""),
		adminSecret:  []byte("test-secret"),
	}
	s.routes()
	return s, cat
}

func seedProduct(t *testing.T, cat *usecase.Catalog, p domain.Product) uuid.UUID {
	t.Helper()
	if err := cat.Create(context.Background(), &p); err != nil {
		t.Fatalf("seed %q: %v", p.Name, err)
	}
	return p.ID
}

func adminHeader(t *testing.T, s *Server) string {
	t.Helper()
	tok, _, err := s.issueAdminToken("admin@local", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

func doJSON(s *Server, method, path, auth string, body any) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	return w
}

func TestProductsListHidesHiddenForPublic(t *testing.T) {
	s, cat := newTestServer(t)
	seedProduct(t, cat, domain.Product{Name: "Visible"})
	seedProduct(t, cat, domain.Product{Name: "Secret", IsHidden: true})

	w := doJSON(s, http.MethodGet, "/api/products", "", nil)
	if w.Code != 200 {
		t.Fatalf("status %d", w.Code)
	}
	var body struct {
		Products []json.RawMessage `json:"products"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Products) != 1 {
		t.Fatalf("public list has %d products, want 1", len(body.Products))
	}
	if strings.Contains(w.Body.String(), "Secret") {
		t.Fatal("hidden product leaked to a public listing")
	}
}

func TestProductsListAdminSeesAll(t *testing.T) {
	s, cat := newTestServer(t)
	seedProduct(t, cat, domain.Product{Name: "Visible"})
	seedProduct(t, cat, domain.Product{Name: "Secret", IsHidden: true})

	tok, _, err := s.issueAdminToken("admin@local", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/products?all=1", nil)
	req.AddCookie(&http.Cookie{Name: "admin_token", Value: tok})
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	var body struct {
		Products []json.RawMessage `json:"products"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Products) != 2 {
		t.Fatalf("admin list has %d products, want 2", len(body.Products))
	}
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(s, http.MethodPost, "/api/products", "", map[string]any{"name": "X"})
	if w.Code != 401 {
		t.Fatalf("status %d, want 401", w.Code)
	}

	w = doJSON(s, http.MethodPost, "/api/products", adminHeader(t, s), map[string]any{"name": "X", "price": 1000})
	if w.Code != 201 {
		t.Fatalf("status %d, want 201: %s", w.Code, w.Body.String())
	}
}

func TestCreateProductValidationStatus(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(s, http.MethodPost, "/api/products", adminHeader(t, s), map[string]any{"name": "  "})
	if w.Code != 400 {
		t.Fatalf("status %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "validation") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestProductViewCarriesDisplayPrice(t *testing.T) {
	s, cat := newTestServer(t)
	d := 20
	end := time.Now().Add(time.Hour)
	id := seedProduct(t, cat, domain.Product{Name: "X", Price: 1000, Discount: &d, DiscountEndDate: &end})

	w := doJSON(s, http.MethodGet, "/api/products/"+id.String(), "", nil)
	if w.Code != 200 {
		t.Fatalf("status %d", w.Code)
	}
	var view struct {
		DisplayPrice float64 `json:"displayPrice"`
		OnSale       bool    `json:"onSale"`
		Order        int     `json:"order"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if !view.OnSale || view.DisplayPrice != 800 {
		t.Fatalf("view = %+v, want onSale with displayPrice 800", view)
	}
}

func TestPatchProductClearsDiscountOnExplicitNull(t *testing.T) {
	s, cat := newTestServer(t)
	d := 20
	id := seedProduct(t, cat, domain.Product{Name: "X", Price: 1000, Discount: &d})
	auth := adminHeader(t, s)

	// a patch that does not mention discount leaves it alone
	w := doJSON(s, http.MethodPatch, "/api/products/"+id.String(), auth, map[string]any{"name": "Y"})
	if w.Code != 200 {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	p, _ := cat.Get(id)
	if p.Discount == nil {
		t.Fatal("absent key cleared the discount")
	}

	// explicit null clears it
	req := httptest.NewRequest(http.MethodPatch, "/api/products/"+id.String(), strings.NewReader(`{"discount": null}`))
	req.Header.Set("Authorization", auth)
	w2 := httptest.NewRecorder()
	s.mux.ServeHTTP(w2, req)
	if w2.Code != 200 {
		t.Fatalf("status %d: %s", w2.Code, w2.Body.String())
	}
	p, _ = cat.Get(id)
	if p.Discount != nil {
		t.Fatal("explicit null did not clear the discount")
	}
}

func TestSignatureEndpoint(t *testing.T) {
	s, cat := newTestServer(t)
	id := seedProduct(t, cat, domain.Product{Name: "X"})

	w := doJSON(s, http.MethodGet, "/api/signature", "", nil)
	if w.Code != 404 {
		t.Fatalf("no signature set: status %d, want 404", w.Code)
	}

	on := true
	if err := cat.Update(context.Background(), id, usecase.ProductPatch{IsSignature: &on}); err != nil {
		t.Fatal(err)
	}
	w = doJSON(s, http.MethodGet, "/api/signature", "", nil)
	if w.Code != 200 {
		t.Fatalf("status %d", w.Code)
	}

	// hiding the signature product hides the endpoint too
	hide := true
	if err := cat.Update(context.Background(), id, usecase.ProductPatch{IsHidden: &hide}); err != nil {
		t.Fatal(err)
	}
	w = doJSON(s, http.MethodGet, "/api/signature", "", nil)
	if w.Code != 404 {
		t.Fatalf("hidden signature: status %d, want 404", w.Code)
	}
}

func TestReorderEndpoint(t *testing.T) {
	s, cat := newTestServer(t)
	a := seedProduct(t, cat, domain.Product{Name: "A"})
	b := seedProduct(t, cat, domain.Product{Name: "B"})
	c := seedProduct(t, cat, domain.Product{Name: "C"})

	w := doJSON(s, http.MethodPost, "/api/products/reorder", adminHeader(t, s), map[string]any{
		"ids": []string{c.String(), a.String(), b.String()},
	})
	if w.Code != 200 {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	list := cat.List()
	want := []uuid.UUID{c, a, b}
	for i, p := range list {
		if p.ID != want[i] {
			t.Fatalf("position %d holds the wrong product after reorder", i)
		}
	}
}

func TestReorderUnknownID(t *testing.T) {
	s, cat := newTestServer(t)
	seedProduct(t, cat, domain.Product{Name: "A"})
	w := doJSON(s, http.MethodPost, "/api/products/reorder", adminHeader(t, s), map[string]any{
		"ids": []string{uuid.NewString()},
	})
	if w.Code != 404 {
		t.Fatalf("status %d, want 404", w.Code)
	}
}

func TestDeleteProductEndpoint(t *testing.T) {
	s, cat := newTestServer(t)
	id := seedProduct(t, cat, domain.Product{Name: "A"})
	w := doJSON(s, http.MethodDelete, "/api/products/"+id.String(), adminHeader(t, s), nil)
	if w.Code != 200 {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if _, err := cat.Get(id); err == nil {
		t.Fatal("product still present after delete")
	}
}

func TestCartCookieRoundtrip(t *testing.T) {
	s, cat := newTestServer(t)
	id := seedProduct(t, cat, domain.Product{
		Name:     "X",
		Variants: []domain.ProductVariant{{Size: "10ml", Price: 2000, Quantity: 3}},
	})

	w := doJSON(s, http.MethodPost, "/api/cart/add", "", map[string]any{
		"productId": id.String(), "size": "10ml",
	})
	if w.Code != 200 {
		t.Fatalf("add: status %d: %s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	var cart *http.Cookie
	for _, c := range cookies {
		if c.Name == "cart" {
			cart = c
		}
	}
	if cart == nil {
		t.Fatal("add did not set the cart cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(cart)
	w2 := httptest.NewRecorder()
	s.mux.ServeHTTP(w2, req)
	var body struct {
		Count int     `json:"count"`
		Total float64 `json:"total"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 || body.Total != 2000 {
		t.Fatalf("cart = %+v, want count 1 total 2000", body)
	}
}

func TestCartCookieTamperResets(t *testing.T) {
	s, cat := newTestServer(t)
	id := seedProduct(t, cat, domain.Product{
		Name:     "X",
		Variants: []domain.ProductVariant{{Size: "10ml", Price: 2000, Quantity: 3}},
	})
	w := doJSON(s, http.MethodPost, "/api/cart/add", "", map[string]any{
		"productId": id.String(), "size": "10ml",
	})
	var cart *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "cart" {
			cart = c
		}
	}
	if cart == nil {
		t.Fatal("no cart cookie")
	}
	// flip the payload while keeping the signature
	parts := strings.SplitN(cart.Value, ".", 2)
	cart.Value = parts[0] + "." + parts[1][:len(parts[1])-2] + "xx"

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(cart)
	w2 := httptest.NewRecorder()
	s.mux.ServeHTTP(w2, req)
	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 0 {
		t.Fatalf("tampered cookie kept %d items, want empty cart", body.Count)
	}
}

func TestCartAddOutOfStockStatus(t *testing.T) {
	s, cat := newTestServer(t)
	id := seedProduct(t, cat, domain.Product{
		Name:     "X",
		Variants: []domain.ProductVariant{{Size: "10ml", Price: 2000, Quantity: 0}},
	})
	w := doJSON(s, http.MethodPost, "/api/cart/add", "", map[string]any{
		"productId": id.String(), "size": "10ml",
	})
	if w.Code != 409 {
		t.Fatalf("status %d, want 409", w.Code)
	}
}

func TestAdminAuthIssuesToken(t *testing.T) {
	s, _ := newTestServer(t)
	form := url.Values{"user": {"admin"}, "pass": {"admin123"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/auth", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if _, err := s.verifyAdminToken(body.Token); err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
}

func TestAdminAllowList(t *testing.T) {
	got := adminAllowList("")
	if _, ok := got["admin@local"]; !ok || len(got) != 1 {
		t.Fatalf("empty list should seed the local admin, got %v", got)
	}

	got = adminAllowList(" Alice@Example.com , bob@example.com ,")
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %v", got)
	}
	if _, ok := got["alice@example.com"]; !ok {
		t.Fatal("entries not lowercased/trimmed")
	}
	if _, ok := got["admin@local"]; ok {
		t.Fatal("local admin seeded despite a configured list")
	}
}

func TestAdminAuthLeavesAllowListAlone(t *testing.T) {
	s, _ := newTestServer(t)
	before := len(s.adminAllowed)

	form := url.Values{"user": {"admin"}, "pass": {"admin123"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/auth", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	// the map is shared across request goroutines; logins must only read it
	if len(s.adminAllowed) != before {
		t.Fatalf("login mutated the allow-list: %d entries, had %d", len(s.adminAllowed), before)
	}
}

func TestAdminAuthRejectsBadCredentials(t *testing.T) {
	s, _ := newTestServer(t)
	form := url.Values{"user": {"admin"}, "pass": {"nope"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/auth", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("status %d, want 401", w.Code)
	}
}

func TestVerifyAdminTokenRejects(t *testing.T) {
	s, _ := newTestServer(t)

	if _, err := s.verifyAdminToken("not.a.token"); err == nil {
		t.Fatal("garbage token accepted")
	}

	// wrong signing key
	other := &Server{adminSecret: []byte("other"), adminAllowed: s.adminAllowed}
	tok, _, _ := other.issueAdminToken("admin@local", time.Hour)
	if _, err := s.verifyAdminToken(tok); err == nil {
		t.Fatal("token signed with another key accepted")
	}

	// expired
	tok, _, _ = s.issueAdminToken("admin@local", -time.Minute)
	if _, err := s.verifyAdminToken(tok); err == nil {
		t.Fatal("expired token accepted")
	}

	// email outside the allow-list
	tok, _, _ = s.issueAdminToken("intruder@evil.test", time.Hour)
	if _, err := s.verifyAdminToken(tok); err == nil {
		t.Fatal("token for unlisted email accepted")
	}
}

func TestSettingsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(s, http.MethodGet, "/api/settings", "", nil)
	if w.Code != 200 {
		t.Fatalf("status %d", w.Code)
	}
	// compare decoded values: the encoder escapes & as &, so raw
	// substring checks against the URL would never match
	var cfg domain.SiteSettings
	if err := json.Unmarshal(w.Body.Bytes(), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.HeroImage != domain.DefaultHeroImage {
		t.Fatalf("unset settings returned hero image %q, want the default", cfg.HeroImage)
	}

	w = doJSON(s, http.MethodPut, "/api/settings", "", map[string]any{"heroImage": "x"})
	if w.Code != 401 {
		t.Fatalf("unauthenticated update: status %d, want 401", w.Code)
	}

	img := "https://cdn.example.com/hero.jpg?auto=format&fit=crop"
	w = doJSON(s, http.MethodPut, "/api/settings", adminHeader(t, s), map[string]any{"heroImage": img})
	if w.Code != 200 {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	cfg = domain.SiteSettings{}
	if err := json.Unmarshal(w.Body.Bytes(), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.HeroImage != img {
		t.Fatalf("updated settings echoed %q, want %q", cfg.HeroImage, img)
	}
}

func TestNotificationsEndpointFlow(t *testing.T) {
	s, _ := newTestServer(t)
	auth := adminHeader(t, s)
	w := doJSON(s, http.MethodPost, "/api/products", auth, map[string]any{
		"name": "X",
		"variants": []map[string]any{
			{"size": "5ml", "price": 900, "quantity": 1},
		},
	})
	if w.Code != 201 {
		t.Fatalf("create: status %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(s, http.MethodGet, "/api/notifications", auth, nil)
	if w.Code != 200 {
		t.Fatalf("status %d", w.Code)
	}
	var feed struct {
		Notifications []domain.Notification `json:"notifications"`
		Unread        int                   `json:"unread"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &feed); err != nil {
		t.Fatal(err)
	}
	if len(feed.Notifications) != 1 || feed.Unread != 1 {
		t.Fatalf("feed %d unread %d, want 1/1", len(feed.Notifications), feed.Unread)
	}

	w = doJSON(s, http.MethodPost, "/api/notifications/read", auth, map[string]any{"id": feed.Notifications[0].ID})
	if w.Code != 200 {
		t.Fatalf("mark read: status %d", w.Code)
	}
	w = doJSON(s, http.MethodPost, "/api/notifications/clear", auth, nil)
	if w.Code != 200 {
		t.Fatalf("clear: status %d", w.Code)
	}
	w = doJSON(s, http.MethodGet, "/api/notifications", auth, nil)
	if err := json.Unmarshal(w.Body.Bytes(), &feed); err != nil {
		t.Fatal(err)
	}
	if len(feed.Notifications) != 0 {
		t.Fatalf("feed not cleared: %d entries", len(feed.Notifications))
	}
}

func TestDecodeProductPatchVariantsNullVsEmpty(t *testing.T) {
	// key absent: variants untouched
	p, err := decodeProductPatch(strings.NewReader(`{"name":"X"}`))
	if err != nil {
		t.Fatal(err)
	}
	if p.Variants != nil {
		t.Fatal("absent variants key produced a replacement")
	}

	// null: also untouched
	p, err = decodeProductPatch(strings.NewReader(`{"variants": null}`))
	if err != nil {
		t.Fatal(err)
	}
	if p.Variants != nil {
		t.Fatal("null variants must not replace rows")
	}

	// empty array: replace with nothing
	p, err = decodeProductPatch(strings.NewReader(`{"variants": []}`))
	if err != nil {
		t.Fatal(err)
	}
	if p.Variants == nil || len(p.Variants) != 0 {
		t.Fatalf("empty array should clear all variants, got %v", p.Variants)
	}
}

func TestDecodeProductPatchBadJSON(t *testing.T) {
	if _, err := decodeProductPatch(strings.NewReader("{")); err == nil {
		t.Fatal("truncated json accepted")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	for _, c := range []struct{ method, path string }{
		{http.MethodDelete, "/api/signature"},
		{http.MethodGet, "/api/cart/add"},
		{http.MethodPut, "/api/products/reorder"},
	} {
		w := doJSON(s, c.method, c.path, "", nil)
		if w.Code != 405 {
			t.Errorf("%s %s: status %d, want 405", c.method, c.path, w.Code)
		}
	}
}

func TestSecureCompare(t *testing.T) {
	if !secureCompare("abc", "abc") {
		t.Fatal("equal strings rejected")
	}
	if secureCompare("abc", "abd") || secureCompare("abc", "ab") {
		t.Fatal("unequal strings accepted")
	}
}

func TestProductByIDBadUUID(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(s, http.MethodGet, "/api/products/not-a-uuid", "", nil)
	if w.Code != 400 {
		t.Fatalf("status %d, want 400", w.Code)
	}
	w = doJSON(s, http.MethodGet, fmt.Sprintf("/api/products/%s", uuid.NewString()), "", nil)
	if w.Code != 404 {
		t.Fatalf("unknown id: status %d, want 404", w.Code)
	}
}

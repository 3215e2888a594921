package httpserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/flavorzest/flavorzest/internal/adapters/imaging"
	"github.com/flavorzest/flavorzest/internal/adapters/scraper"
	"github.com/flavorzest/flavorzest/internal/domain"
	"github.com/flavorzest/flavorzest/internal/usecase"
)

type Server struct {
	mux      *http.ServeMux
	catalog  *usecase.Catalog
	cart     *usecase.Cart
	settings *usecase.Settings
	notify   *usecase.Notifier
	blobs    domain.BlobStore
	images   *scraper.ImageScraper
	oauthCfg *oauth2.Config

	mediaDir string

	adminAllowed map[string]struct{}
	adminSecret  []byte
}

func New(cat *usecase.Catalog, cartUC *usecase.Cart, settingsUC *usecase.Settings, notifyUC *usecase.Notifier, blobs domain.BlobStore, images *scraper.ImageScraper, oauthCfg *oauth2.Config, mediaDir string) http.Handler {
	s := &Server{
		mux:      http.NewServeMux(),
		catalog:  cat,
		cart:     cartUC,
		settings: settingsUC,
		notify:   notifyUC,
		blobs:    blobs,
		images:   images,
		oauthCfg: oauthCfg,
		mediaDir: mediaDir,
	}

	s.adminAllowed = adminAllowList(os.Getenv("ADMIN_ALLOWED_EMAILS"))
	sec := os.Getenv("JWT_ADMIN_SECRET")
	if sec == "" {
		sec = os.Getenv("SECRET_KEY")
	}
	if sec == "" {
		sec = "dev-admin-secret"
	}
	s.adminSecret = []byte(sec)

	s.routes()
	return Chain(s.mux,
		Logging,
		Recovery,
		RequestID,
		Gzip,
		RateLimit(120),
	)
}

// adminAllowList parses the comma-separated allow-list. An empty list falls
// back to the local password admin; the map is fixed after construction and
// is read concurrently by request goroutines, so it must never be written to
// at request time.
func adminAllowList(raw string) map[string]struct{} {
	allowed := map[string]struct{}{}
	for _, e := range strings.Split(raw, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			allowed[e] = struct{}{}
		}
	}
	if len(allowed) == 0 {
		allowed["admin@local"] = struct{}{}
	}
	return allowed
}

func (s *Server) routes() {
	s.mux.Handle("/media/", http.StripPrefix("/media/", http.FileServer(http.Dir(s.mediaDir))))

	s.mux.HandleFunc("/api/products", s.apiProducts)
	s.mux.HandleFunc("/api/products/", s.apiProductByID)
	s.mux.HandleFunc("/api/products/reorder", s.apiProductsReorder)
	s.mux.HandleFunc("/api/products/refresh", s.apiProductsRefresh)
	s.mux.HandleFunc("/api/products/upload", s.apiProductUpload)
	s.mux.HandleFunc("/api/signature", s.apiSignature)
	s.mux.HandleFunc("/api/settings", s.apiSettings)
	s.mux.HandleFunc("/api/notifications", s.apiNotifications)
	s.mux.HandleFunc("/api/notifications/read", s.apiNotificationRead)
	s.mux.HandleFunc("/api/notifications/clear", s.apiNotificationClear)

	s.mux.HandleFunc("/api/cart", s.apiCart)
	s.mux.HandleFunc("/api/cart/add", s.apiCartAdd)
	s.mux.HandleFunc("/api/cart/update", s.apiCartUpdate)
	s.mux.HandleFunc("/api/cart/remove", s.apiCartRemove)

	s.mux.HandleFunc("/admin/auth", s.handleAdminAuth)
	s.mux.HandleFunc("/admin/logout", s.handleAdminLogout)
	s.mux.HandleFunc("/admin/export/xlsx", s.handleAdminExportXLSX)
	s.mux.HandleFunc("/admin/import/xlsx", s.handleAdminImportXLSX)
	s.mux.HandleFunc("/admin/images/search", s.handleAdminImageSearch)

	s.mux.HandleFunc("/auth/google/login", s.handleGoogleLogin)
	s.mux.HandleFunc("/auth/google/callback", s.handleGoogleCallback)
}

// productView is the wire shape: the record plus the derived price fields
// every view must agree on.
type productView struct {
	domain.Product
	DisplayPrice float64 `json:"displayPrice"`
	OnSale       bool    `json:"onSale"`
}

func (s *Server) viewOf(p domain.Product) productView {
	now := s.catalog.Now()
	return productView{
		Product:      p,
		DisplayPrice: p.DisplayPrice(now),
		OnSale:       p.DiscountActive(now),
	}
}

func (s *Server) viewsOf(list []domain.Product) []productView {
	out := make([]productView, 0, len(list))
	for _, p := range list {
		out = append(out, s.viewOf(p))
	}
	return out
}

func (s *Server) apiProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list := s.catalog.List()
		// hidden products are admin-only
		if !(s.isAdminSession(r) && r.URL.Query().Get("all") == "1") {
			visible := list[:0]
			for _, p := range list {
				if !p.IsHidden {
					visible = append(visible, p)
				}
			}
			list = visible
		}
		writeJSON(w, 200, map[string]any{"products": s.viewsOf(list)})
	case http.MethodPost:
		if !s.requireAdmin(w, r) {
			return
		}
		var draft domain.Product
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			http.Error(w, "json", 400)
			return
		}
		if err := s.catalog.Create(r.Context(), &draft); err != nil {
			writeError(w, err)
			return
		}
		s.recomputeAlerts(r)
		writeJSON(w, 201, s.viewOf(draft))
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) apiProductByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/products/")
	id, err := uuid.Parse(strings.Trim(rest, "/"))
	if err != nil {
		http.Error(w, "id", 400)
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := s.catalog.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, s.viewOf(*p))
	case http.MethodPatch, http.MethodPut:
		if !s.requireAdmin(w, r) {
			return
		}
		patch, err := decodeProductPatch(r.Body)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.catalog.Update(r.Context(), id, patch); err != nil {
			writeError(w, err)
			return
		}
		s.recomputeAlerts(r)
		p, err := s.catalog.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, s.viewOf(*p))
	case http.MethodDelete:
		if !s.requireAdmin(w, r) {
			return
		}
		if err := s.catalog.Delete(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"deleted": id})
	default:
		http.Error(w, "method", 405)
	}
}

// decodeProductPatch maps the JSON body onto a partial patch. The body is
// read twice: once typed and once raw so an explicit null (clear the
// discount) can be told apart from an absent key (leave it).
func decodeProductPatch(body io.Reader) (usecase.ProductPatch, error) {
	raw, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return usecase.ProductPatch{}, &domain.ValidationError{Field: "body", Reason: "unreadable"}
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return usecase.ProductPatch{}, &domain.ValidationError{Field: "body", Reason: "invalid json"}
	}
	var payload struct {
		Name            *string                  `json:"name"`
		Price           *float64                 `json:"price"`
		Description     *string                  `json:"description"`
		Image           *string                  `json:"image"`
		Category        *string                  `json:"category"`
		Gender          *domain.Gender           `json:"gender"`
		Notes           *domain.ScentNotes       `json:"notes"`
		Origin          *string                  `json:"origin"`
		IsSignature     *bool                    `json:"isSignature"`
		IsHidden        *bool                    `json:"isHidden"`
		Order           *int                     `json:"order"`
		Discount        *int                     `json:"discount"`
		DiscountEndDate *time.Time               `json:"discountEndDate"`
		Variants        *[]domain.ProductVariant `json:"variants"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return usecase.ProductPatch{}, &domain.ValidationError{Field: "body", Reason: "invalid json"}
	}
	patch := usecase.ProductPatch{
		Name:            payload.Name,
		Price:           payload.Price,
		Description:     payload.Description,
		Image:           payload.Image,
		Category:        payload.Category,
		Gender:          payload.Gender,
		Notes:           payload.Notes,
		Origin:          payload.Origin,
		IsSignature:     payload.IsSignature,
		IsHidden:        payload.IsHidden,
		DisplayOrder:    payload.Order,
		Discount:        payload.Discount,
		DiscountEndDate: payload.DiscountEndDate,
	}
	if _, present := keys["discount"]; present && payload.Discount == nil {
		patch.ClearDiscount = true
	}
	if _, present := keys["discountEndDate"]; present && payload.DiscountEndDate == nil {
		patch.ClearDiscountEnd = true
	}
	if payload.Variants != nil {
		// non-nil means replace-all, even when empty
		patch.Variants = *payload.Variants
		if patch.Variants == nil {
			patch.Variants = []domain.ProductVariant{}
		}
	}
	return patch, nil
}

func (s *Server) apiProductsReorder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	var body struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.IDs) == 0 {
		http.Error(w, "ids", 400)
		return
	}
	seq := make([]domain.Product, 0, len(body.IDs))
	for _, id := range body.IDs {
		p, err := s.catalog.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		seq = append(seq, *p)
	}
	if err := s.catalog.Reorder(r.Context(), seq); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"products": s.viewsOf(s.catalog.List())})
}

func (s *Server) apiProductsRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if err := s.catalog.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"products": s.viewsOf(s.catalog.List())})
}

func (s *Server) apiSignature(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	p := s.catalog.SignatureProduct()
	if p == nil || p.IsHidden {
		writeJSON(w, 404, map[string]any{"error": "not_found"})
		return
	}
	writeJSON(w, 200, s.viewOf(*p))
}

func (s *Server) apiProductUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		http.Error(w, "multipart", 400)
		return
	}
	fh := r.MultipartForm.File["image"]
	if len(fh) == 0 {
		http.Error(w, "image", 400)
		return
	}
	f, err := fh[0].Open()
	if err != nil {
		http.Error(w, "image", 400)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, 16<<20))
	if err != nil || len(data) == 0 {
		http.Error(w, "image", 400)
		return
	}
	compressed, contentType, err := imaging.Compress(data)
	if err != nil {
		http.Error(w, "unsupported image", 415)
		return
	}
	url, err := s.blobs.Upload(r.Context(), compressed, contentType)
	if err != nil {
		log.Error().Err(err).Msg("image upload")
		writeJSON(w, 502, map[string]any{"error": "blob"})
		return
	}
	writeJSON(w, 201, map[string]any{"url": url})
}

func (s *Server) apiSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cfg, err := s.settings.Get(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, cfg)
	case http.MethodPut, http.MethodPatch:
		if !s.requireAdmin(w, r) {
			return
		}
		var patch usecase.SettingsPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, "json", 400)
			return
		}
		if err := s.settings.Update(r.Context(), patch); err != nil {
			writeError(w, err)
			return
		}
		cfg, err := s.settings.Get(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, cfg)
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) apiNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	ns, unread, err := s.notify.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"notifications": ns, "unread": unread})
}

func (s *Server) apiNotificationRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		http.Error(w, "id", 400)
		return
	}
	if err := s.notify.MarkRead(r.Context(), body.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (s *Server) apiNotificationClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	if err := s.notify.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

// recomputeAlerts refreshes the low-stock feed after catalog writes; a
// failure here never fails the write that triggered it.
func (s *Server) recomputeAlerts(r *http.Request) {
	if s.notify == nil {
		return
	}
	if err := s.notify.Recompute(r.Context(), s.catalog.List()); err != nil {
		log.Warn().Err(err).Msg("low-stock recompute failed")
	}
}

// --- cart ---

type cartPayload struct {
	Items []domain.CartItem `json:"items"`
}

func (s *Server) cartResponse(w http.ResponseWriter, cp cartPayload) {
	writeCart(w, cp)
	writeJSON(w, 200, map[string]any{
		"items": cp.Items,
		"total": usecase.CartTotal(cp.Items),
		"count": usecase.CartCount(cp.Items),
	})
}

func (s *Server) apiCart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	cp := readCart(r)
	writeJSON(w, 200, map[string]any{
		"items": cp.Items,
		"total": usecase.CartTotal(cp.Items),
		"count": usecase.CartCount(cp.Items),
	})
}

type cartLineRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
}

func (s *Server) apiCartAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var body cartLineRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "json", 400)
		return
	}
	cp := readCart(r)
	items, err := s.cart.Add(cp.Items, body.ProductID, body.Size)
	if err != nil {
		writeError(w, err)
		return
	}
	cp.Items = items
	s.cartResponse(w, cp)
}

func (s *Server) apiCartUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var body cartLineRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "json", 400)
		return
	}
	cp := readCart(r)
	items, err := s.cart.UpdateQuantity(cp.Items, body.ProductID, body.Size, body.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	cp.Items = items
	s.cartResponse(w, cp)
}

func (s *Server) apiCartRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var body cartLineRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "json", 400)
		return
	}
	cp := readCart(r)
	cp.Items = s.cart.Remove(cp.Items, body.ProductID, body.Size)
	s.cartResponse(w, cp)
}

// --- admin auth ---

func (s *Server) handleAdminAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "form", 400)
		return
	}
	user := strings.TrimSpace(r.FormValue("user"))
	pass := strings.TrimSpace(r.FormValue("pass"))
	cfgUser := os.Getenv("ADMIN_USER")
	cfgPass := os.Getenv("ADMIN_PASS")
	if cfgUser == "" {
		cfgUser = "admin"
	}
	if cfgPass == "" {
		cfgPass = "admin123"
	}
	if !secureCompare(user, cfgUser) || !secureCompare(pass, cfgPass) {
		http.Error(w, "credentials", 401)
		return
	}
	// the allow-list is read-only after New; tokens are minted for a listed
	// identity rather than growing the list per login
	email := user + "@local"
	if _, ok := s.adminAllowed[email]; !ok {
		for k := range s.adminAllowed {
			email = k
			break
		}
	}
	tok, exp, err := s.issueAdminToken(email, 6*time.Hour)
	if err != nil {
		http.Error(w, "token", 500)
		return
	}
	s.setAdminCookie(w, r, tok, 60*60*6)
	writeJSON(w, 200, map[string]any{"token": tok, "expires": exp.Format(time.RFC3339)})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.setAdminCookie(w, r, "", -1)
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (s *Server) setAdminCookie(w http.ResponseWriter, r *http.Request, token string, maxAge int) {
	secure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	http.SetCookie(w, &http.Cookie{Name: "admin_token", Value: token, Path: "/", MaxAge: maxAge, HttpOnly: true, Secure: secure, SameSite: http.SameSiteStrictMode})
}

func (s *Server) isAdminSession(r *http.Request) bool {
	if tok := s.readAdminToken(r); tok != "" {
		if _, err := s.verifyAdminToken(tok); err == nil {
			return true
		}
	}
	return false
}

func (s *Server) readAdminToken(r *http.Request) string {
	c, err := r.Cookie("admin_token")
	if err != nil || c.Value == "" {
		return ""
	}
	return c.Value
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		tok := strings.TrimSpace(auth[7:])
		if _, err := s.verifyAdminToken(tok); err == nil {
			return true
		}
	}
	if tok := s.readAdminToken(r); tok != "" {
		if _, err := s.verifyAdminToken(tok); err == nil {
			return true
		}
	}
	http.Error(w, "unauthorized", 401)
	return false
}

func (s *Server) issueAdminToken(email string, dur time.Duration) (string, time.Time, error) {
	head := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	exp := time.Now().Add(dur)
	claims := map[string]any{"sub": email, "email": email, "role": "admin", "exp": exp.Unix(), "iat": time.Now().Unix(), "iss": "flavorzest"}
	b, _ := json.Marshal(claims)
	pay := base64.RawURLEncoding.EncodeToString(b)
	unsigned := head + "." + pay
	h := hmac.New(sha256.New, s.adminSecret)
	h.Write([]byte(unsigned))
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	return unsigned + "." + sig, exp, nil
}

func (s *Server) verifyAdminToken(tok string) (string, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("format")
	}
	unsigned := parts[0] + "." + parts[1]
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("sig")
	}
	h := hmac.New(sha256.New, s.adminSecret)
	h.Write([]byte(unsigned))
	if !hmac.Equal(sig, h.Sum(nil)) {
		return "", fmt.Errorf("signature")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("payload")
	}
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return "", fmt.Errorf("json")
	}
	role, _ := m["role"].(string)
	email, _ := m["email"].(string)
	expF, _ := m["exp"].(float64)
	if role != "admin" || email == "" {
		return "", fmt.Errorf("claims")
	}
	if time.Now().Unix() > int64(expF) {
		return "", fmt.Errorf("expired")
	}
	if _, ok := s.adminAllowed[strings.ToLower(email)]; !ok {
		return "", fmt.Errorf("not allowed")
	}
	return email, nil
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		http.Error(w, "oauth not configured", 500)
		return
	}
	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: state, Path: "/", MaxAge: 300, HttpOnly: true})
	http.Redirect(w, r, s.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOnline), 302)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		http.Error(w, "oauth not configured", 500)
		return
	}
	q := r.URL.Query()
	state := q.Get("state")
	code := q.Get("code")
	c, _ := r.Cookie("oauth_state")
	if c == nil || c.Value == "" || c.Value != state {
		http.Error(w, "state", 400)
		return
	}
	tok, err := s.oauthCfg.Exchange(r.Context(), code)
	if err != nil {
		log.Error().Err(err).Msg("oauth exchange")
		http.Error(w, "oauth", 400)
		return
	}
	client := s.oauthCfg.Client(r.Context(), tok)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v3/userinfo")
	if err != nil || resp.StatusCode != 200 {
		log.Error().Err(err).Msg("userinfo")
		http.Error(w, "userinfo", 400)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	var info struct {
		Email string `json:"email"`
	}
	_ = json.Unmarshal(body, &info)
	email := strings.ToLower(strings.TrimSpace(info.Email))
	if email == "" {
		http.Error(w, "email", 400)
		return
	}
	if _, ok := s.adminAllowed[email]; !ok {
		http.Error(w, "not allowed", 403)
		return
	}
	adminTok, _, err := s.issueAdminToken(email, 6*time.Hour)
	if err != nil {
		http.Error(w, "token", 500)
		return
	}
	s.setAdminCookie(w, r, adminTok, 60*60*6)
	http.Redirect(w, r, "/", 302)
}

func (s *Server) handleAdminImageSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	if s.images == nil {
		http.Error(w, "scraper disabled", 503)
		return
	}
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		http.Error(w, "name", 400)
		return
	}
	max, _ := strconv.Atoi(q.Get("max"))
	urls, err := s.images.SearchImages(r.Context(), name, q.Get("origin"), max)
	if err != nil {
		writeJSON(w, 502, map[string]any{"error": "search", "message": err.Error()})
		return
	}
	writeJSON(w, 200, map[string]any{"images": urls})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, 400, map[string]any{"error": "validation", "field": ve.Field, "message": ve.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, 404, map[string]any{"error": "not_found"})
	case errors.Is(err, domain.ErrOutOfStock):
		writeJSON(w, 409, map[string]any{"error": "out_of_stock"})
	case domain.IsStoreError(err):
		writeJSON(w, 502, map[string]any{"error": "persistence", "message": err.Error()})
	default:
		writeJSON(w, 500, map[string]any{"error": "internal"})
	}
}

func secretKey() []byte {
	k := os.Getenv("SESSION_KEY")
	if k == "" {
		k = "dev-insecure"
	}
	return []byte(k)
}

func readCart(r *http.Request) cartPayload {
	c, err := r.Cookie("cart")
	if err != nil {
		return cartPayload{}
	}
	parts := strings.SplitN(c.Value, ".", 2)
	if len(parts) != 2 {
		return cartPayload{}
	}
	sig, _ := base64.RawURLEncoding.DecodeString(parts[0])
	payload, _ := base64.RawURLEncoding.DecodeString(parts[1])
	h := hmac.New(sha256.New, secretKey())
	h.Write(payload)
	if !hmac.Equal(sig, h.Sum(nil)) {
		return cartPayload{}
	}
	var cp cartPayload
	_ = json.Unmarshal(payload, &cp)
	return cp
}

func writeCart(w http.ResponseWriter, cp cartPayload) {
	b, _ := json.Marshal(cp)
	h := hmac.New(sha256.New, secretKey())
	h.Write(b)
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	val := sig + "." + base64.RawURLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{Name: "cart", Value: val, Path: "/", MaxAge: 60 * 60 * 24 * 7, HttpOnly: true})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := 0; i < len(a); i++ {
		v |= a[i] ^ b[i]
	}
	return v == 0
}

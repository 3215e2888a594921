package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"github.com/xuri/excelize/v2"

	"github.com/flavorzest/flavorzest/internal/domain"
	"github.com/flavorzest/flavorzest/internal/usecase"
)

const sheetName = "products"

// handleAdminExportXLSX writes the whole catalog as a spreadsheet, one row
// per variant, variant columns empty for products without any.
func (s *Server) handleAdminExportXLSX(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		http.Error(w, "sheet", 500)
		return
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	header := []any{"name", "gender", "category", "origin", "description",
		"notes_top", "notes_heart", "notes_base", "signature", "hidden",
		"order", "discount", "discount_end", "size", "variant_price", "quantity", "image"}
	_ = f.SetSheetRow(sheetName, "A1", &header)

	rowNum := 2
	writeRow := func(p domain.Product, v *domain.ProductVariant) {
		discount := ""
		if p.Discount != nil {
			discount = strconv.Itoa(*p.Discount)
		}
		discountEnd := ""
		if p.DiscountEndDate != nil {
			discountEnd = p.DiscountEndDate.Format(time.RFC3339)
		}
		size, price, qty := "", "", ""
		if v != nil {
			size = v.Size
			price = fmt.Sprintf("%.2f", v.Price)
			qty = strconv.Itoa(v.Quantity)
		}
		row := []any{p.Name, string(p.Gender), p.Category, p.Origin, p.Description,
			p.Notes.Top, p.Notes.Heart, p.Notes.Base,
			strconv.FormatBool(p.IsSignature), strconv.FormatBool(p.IsHidden),
			p.DisplayOrder, discount, discountEnd, size, price, qty, p.Image}
		_ = f.SetSheetRow(sheetName, fmt.Sprintf("A%d", rowNum), &row)
		rowNum++
	}

	for _, p := range s.catalog.List() {
		if len(p.Variants) == 0 {
			writeRow(p, nil)
			continue
		}
		for i := range p.Variants {
			writeRow(p, &p.Variants[i])
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=catalog.xlsx")
	_ = f.Write(w)
}

// importedPerfume is one product assembled from spreadsheet rows sharing a
// name.
type importedPerfume struct {
	Name        string            `json:"name"`
	Gender      string            `json:"gender"`
	Category    string            `json:"category"`
	Origin      string            `json:"origin"`
	Description string            `json:"description"`
	NotesTop    string            `json:"notes_top"`
	NotesHeart  string            `json:"notes_heart"`
	NotesBase   string            `json:"notes_base"`
	Variants    []importedVariant `json:"variants"`
}

type importedVariant struct {
	Size     string  `json:"size"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// handleAdminImportXLSX ingests a supplier spreadsheet. With use_openai=true
// free-form rows are first normalized by the model; otherwise columns are
// read positionally (name, gender, category, origin, size, price, quantity,
// description, notes top/heart/base).
func (s *Server) handleAdminImportXLSX(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, "multipart", 400)
		return
	}
	fh := r.MultipartForm.File["file"]
	if len(fh) == 0 {
		http.Error(w, "file", 400)
		return
	}
	f, err := fh[0].Open()
	if err != nil {
		http.Error(w, "file", 400)
		return
	}
	defer f.Close()
	data, _ := io.ReadAll(io.LimitReader(f, 48<<20))
	if len(data) == 0 {
		http.Error(w, "empty", 400)
		return
	}

	useOpenAI := strings.TrimSpace(r.FormValue("use_openai")) == "true"

	var perfumes []importedPerfume
	if useOpenAI {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
		defer cancel()
		perfumes, err = s.normalizeWithOpenAI(ctx, data)
	} else {
		perfumes, err = parseImportXLSX(data)
	}
	if err != nil {
		log.Error().Err(err).Msg("import parse")
		writeJSON(w, 400, map[string]any{"error": "import", "message": err.Error()})
		return
	}

	created, updated, failed := 0, 0, 0
	existing := map[string]domain.Product{}
	for _, p := range s.catalog.List() {
		existing[strings.ToLower(strings.TrimSpace(p.Name))] = p
	}

	for _, imp := range perfumes {
		variants := make([]domain.ProductVariant, 0, len(imp.Variants))
		for _, v := range imp.Variants {
			variants = append(variants, domain.ProductVariant{Size: v.Size, Price: v.Price, Quantity: v.Quantity})
		}
		if prev, ok := existing[strings.ToLower(strings.TrimSpace(imp.Name))]; ok {
			patch := usecase.ProductPatch{
				Category:    optional(imp.Category),
				Origin:      optional(imp.Origin),
				Description: optional(imp.Description),
			}
			// only rows that list sizes replace the variant set
			if len(variants) > 0 {
				patch.Variants = variants
			}
			if g := parseGender(imp.Gender); g != "" {
				patch.Gender = &g
			}
			if imp.NotesTop != "" || imp.NotesHeart != "" || imp.NotesBase != "" {
				patch.Notes = &domain.ScentNotes{Top: imp.NotesTop, Heart: imp.NotesHeart, Base: imp.NotesBase}
			}
			if err := s.catalog.Update(r.Context(), prev.ID, patch); err != nil {
				log.Warn().Err(err).Str("name", imp.Name).Msg("import update failed")
				failed++
				continue
			}
			updated++
			continue
		}
		draft := domain.Product{
			Name:        imp.Name,
			Gender:      parseGender(imp.Gender),
			Category:    imp.Category,
			Origin:      imp.Origin,
			Description: imp.Description,
			Notes:       domain.ScentNotes{Top: imp.NotesTop, Heart: imp.NotesHeart, Base: imp.NotesBase},
			Variants:    variants,
		}
		if err := s.catalog.Create(r.Context(), &draft); err != nil {
			log.Warn().Err(err).Str("name", imp.Name).Msg("import create failed")
			failed++
			continue
		}
		created++
	}
	s.recomputeAlerts(r)
	writeJSON(w, 200, map[string]any{"created": created, "updated": updated, "failed": failed})
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func parseGender(s string) domain.Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "men", "male", "m", "hombre":
		return domain.GenderMen
	case "women", "female", "f", "mujer":
		return domain.GenderWomen
	case "unisex", "u":
		return domain.GenderUnisex
	}
	return ""
}

func parseImportXLSX(data []byte) ([]importedPerfume, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	byName := map[string]*importedPerfume{}
	order := []string{}
	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	for _, sh := range f.GetSheetList() {
		rows, err := f.GetRows(sh)
		if err != nil {
			continue
		}
		for _, row := range rows {
			name := cell(row, 0)
			if name == "" || strings.EqualFold(name, "name") {
				continue
			}
			key := strings.ToLower(name)
			p, ok := byName[key]
			if !ok {
				p = &importedPerfume{
					Name:        name,
					Gender:      cell(row, 1),
					Category:    cell(row, 2),
					Origin:      cell(row, 3),
					Description: cell(row, 7),
					NotesTop:    cell(row, 8),
					NotesHeart:  cell(row, 9),
					NotesBase:   cell(row, 10),
				}
				byName[key] = p
				order = append(order, key)
			}
			size := cell(row, 4)
			if size == "" {
				continue
			}
			price, _ := strconv.ParseFloat(cell(row, 5), 64)
			qty, _ := strconv.Atoi(cell(row, 6))
			p.Variants = append(p.Variants, importedVariant{Size: size, Price: price, Quantity: qty})
		}
	}

	out := make([]importedPerfume, 0, len(order))
	for _, k := range order {
		out = append(out, *byName[k])
	}
	if len(out) == 0 {
		return nil, errors.New("no usable rows")
	}
	return out, nil
}

// normalizeWithOpenAI hands messy supplier rows to the model in batches and
// gets back structured perfumes.
func (s *Server) normalizeWithOpenAI(ctx context.Context, xlsxData []byte) ([]importedPerfume, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not configured")
	}

	f, err := excelize.OpenReader(bytes.NewReader(xlsxData))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lines := []string{}
	for _, sh := range f.GetSheetList() {
		rows, err := f.GetRows(sh)
		if err != nil {
			continue
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " | "))
			if line != "" {
				lines = append(lines, line)
			}
		}
	}
	if len(lines) == 0 {
		return nil, errors.New("empty spreadsheet")
	}

	const batchSize = 50
	totalBatches := (len(lines) + batchSize - 1) / batchSize
	log.Info().Int("rows", len(lines)).Int("batches", totalBatches).Msg("normalizing import with OpenAI")

	client := openai.NewClient(apiKey)
	all := []importedPerfume{}
	for batch := 0; batch < totalBatches; batch++ {
		start := batch * batchSize
		end := start + batchSize
		if end > len(lines) {
			end = len(lines)
		}

		prompt := fmt.Sprintf(`Normalize these perfume supplier rows into structured products.

ROWS:
%s

Return JSON only:
{"products":[{"name":"...","gender":"Men|Women|Unisex","category":"...","origin":"...","description":"...","notes_top":"...","notes_heart":"...","notes_base":"...","variants":[{"size":"100ml","price":0,"quantity":0}]}]}

Rules:
- Merge rows of the same fragrance into one product with all its sizes.
- Sizes normalized like "5ml", "10ml", "100ml".
- Unknown fields stay empty strings, unknown quantities 0.
- Include EVERY fragrance from the rows.
`, strings.Join(lines[start:end], "\n"))

		batchCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		resp, err := client.CreateChatCompletion(batchCtx, openai.ChatCompletionRequest{
			Model: "gpt-4o-mini",
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: "You normalize perfume catalogs. Always return valid JSON covering every input row."},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: 0,
			MaxTokens:   8000,
		})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("batch %d/%d: %w", batch+1, totalBatches, err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("empty response in batch %d/%d", batch+1, totalBatches)
		}

		content := strings.TrimSpace(resp.Choices[0].Message.Content)
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)

		var result struct {
			Products []importedPerfume `json:"products"`
		}
		if err := json.Unmarshal([]byte(content), &result); err != nil {
			log.Error().Err(err).Int("batch", batch+1).Msg("bad JSON from OpenAI")
			return nil, fmt.Errorf("parse batch %d/%d: %w", batch+1, totalBatches, err)
		}
		all = append(all, result.Products...)
	}

	log.Info().Int("products", len(all)).Msg("normalization done")
	return all, nil
}

// Package transfer moves producers, products and members between koop instances
// as one xlsx workbook with a sheet per entity.
package transfer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"koop-backend/internal/apperr"
	"koop-backend/internal/database"
	"koop-backend/internal/models"
	"koop-backend/internal/stock"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SheetProducers    = "Producers"
	SheetProducts     = "Products"
	SheetUsers        = "Users"
	SheetUserProfiles = "UserProfiles"
)

var (
	producerColumns = []string{"id", "name", "slug", "short", "description", "display_order", "is_active", "order_deadline"}
	productColumns  = []string{"id", "producer_slug", "name", "description", "price", "order_max_quantity",
		"quantity_in_stock", "order_deadline", "is_active", "weight_schemes"}
	userColumns    = []string{"id", "username", "first_name", "last_name", "email", "role", "password_hash"}
	profileColumns = []string{"username", "koop_id", "fund", "phone_number", "payment_balance", "allow_emails"}
)

// -------------------------
// Export
// -------------------------

// Export writes every producer, product, user and profile to w as an xlsx workbook.
func Export(db *gorm.DB, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	var producers []models.Producer
	if err := db.Order("id").Find(&producers).Error; err != nil {
		return apperr.FromDB(err)
	}
	slugs := make(map[uint]string, len(producers))
	rows := make([][]any, 0, len(producers))
	for _, p := range producers {
		slugs[p.ID] = p.Slug
		rows = append(rows, []any{p.ID, p.Name, p.Slug, p.Short, p.Description, p.DisplayOrder, p.IsActive, formatTime(p.OrderDeadline)})
	}
	if err := writeSheet(f, SheetProducers, producerColumns, rows); err != nil {
		return err
	}

	var products []models.Product
	err := db.Preload("WeightSchemes", func(db *gorm.DB) *gorm.DB { return db.Order("quantity") }).
		Order("id").Find(&products).Error
	if err != nil {
		return apperr.FromDB(err)
	}
	rows = rows[:0]
	for _, p := range products {
		stockQ := ""
		if p.QuantityInStock.Valid {
			stockQ = p.QuantityInStock.Decimal.String()
		}
		schemes := make([]string, 0, len(p.WeightSchemes))
		for _, ws := range p.WeightSchemes {
			schemes = append(schemes, ws.Quantity.String())
		}
		rows = append(rows, []any{p.ID, slugs[p.ProducerID], p.Name, p.Description, p.Price.String(),
			p.OrderMaxQuantity.String(), stockQ, formatTime(p.OrderDeadline), p.IsActive, strings.Join(schemes, ";")})
	}
	if err := writeSheet(f, SheetProducts, productColumns, rows); err != nil {
		return err
	}

	var users []models.User
	if err := db.Preload("Profile").Order("id").Find(&users).Error; err != nil {
		return apperr.FromDB(err)
	}
	rows = rows[:0]
	profiles := make([][]any, 0, len(users))
	for _, u := range users {
		rows = append(rows, []any{u.ID, u.Username, u.FirstName, u.LastName, u.Email, string(u.Role), u.PasswordHash})
		if p := u.Profile; p != nil {
			koopID := ""
			if p.KoopID != nil {
				koopID = strconv.FormatUint(uint64(*p.KoopID), 10)
			}
			profiles = append(profiles, []any{u.Username, koopID, p.Fund.String(), p.PhoneNumber,
				p.PaymentBalance.String(), p.AllowEmails})
		}
	}
	if err := writeSheet(f, SheetUsers, userColumns, rows); err != nil {
		return err
	}
	if err := writeSheet(f, SheetUserProfiles, profileColumns, profiles); err != nil {
		return err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, header []string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("sheet %s: %w", name, err)
	}
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	all := append([][]any{head}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", name, i+1, err)
		}
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// -------------------------
// Import
// -------------------------

// Result counts the rows created and updated per sheet.
type Result struct {
	Producers SheetResult `json:"producers"`
	Products  SheetResult `json:"products"`
	Users     SheetResult `json:"users"`
	Profiles  SheetResult `json:"profiles"`
}

type SheetResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

func (r *SheetResult) count(created bool) {
	if created {
		r.Created++
	} else {
		r.Updated++
	}
}

// Import upserts the workbook read from r in one transaction. Rows are matched on natural
// keys: producer slug, product name, username. Missing sheets are skipped. Stock changes go
// through keeper.
func Import(db *gorm.DB, keeper *stock.Keeper, r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Rejected(apperr.ReasonInvalidInput, "cannot read workbook: %v", err)
	}
	defer f.Close()

	res := &Result{}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := importProducers(tx, f, &res.Producers); err != nil {
			return err
		}
		if err := importProducts(tx, keeper, f, &res.Products); err != nil {
			return err
		}
		if err := importUsers(tx, f, &res.Users); err != nil {
			return err
		}
		return importProfiles(tx, f, &res.Profiles)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// table is a sheet with its header row resolved to column indexes.
type table struct {
	sheet string
	index map[string]int
	rows  [][]string
}

func readTable(f *excelize.File, sheet string, required ...string) (*table, error) {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperr.Rejected(apperr.ReasonInvalidInput, "sheet %s: %v", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	t := &table{sheet: sheet, index: map[string]int{}, rows: rows[1:]}
	for i, h := range rows[0] {
		t.index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range required {
		if _, ok := t.index[col]; !ok {
			return nil, apperr.Rejected(apperr.ReasonInvalidInput, "sheet %s: missing column %q", sheet, col)
		}
	}
	return t, nil
}

// get returns the trimmed cell; GetRows drops trailing empty cells.
func (t *table) get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) has(col string) bool {
	_, ok := t.index[col]
	return ok
}

func (t *table) fail(line int, format string, args ...any) error {
	return apperr.Rejected(apperr.ReasonInvalidInput, "sheet %s row %d: %s", t.sheet, line+2, fmt.Sprintf(format, args...))
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func importProducers(tx *gorm.DB, f *excelize.File, res *SheetResult) error {
	t, err := readTable(f, SheetProducers, "name", "slug", "short")
	if err != nil || t == nil {
		return err
	}
	for i, row := range t.rows {
		slug := t.get(row, "slug")
		if slug == "" {
			continue
		}
		deadline, err := parseTime(t.get(row, "order_deadline"))
		if err != nil {
			return t.fail(i, "order_deadline: %v", err)
		}
		order := 10
		if s := t.get(row, "display_order"); s != "" {
			if order, err = strconv.Atoi(s); err != nil {
				return t.fail(i, "display_order: %v", err)
			}
		}

		var p models.Producer
		err = tx.Where("slug = ?", slug).Take(&p).Error
		created := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !created {
			return apperr.FromDB(err)
		}
		p.Slug = slug
		p.Name = t.get(row, "name")
		p.Short = t.get(row, "short")
		p.Description = t.get(row, "description")
		p.DisplayOrder = order
		p.IsActive = parseBool(t.get(row, "is_active"))
		p.OrderDeadline = deadline
		if err := tx.Save(&p).Error; err != nil {
			return apperr.FromDB(err)
		}
		res.count(created)
	}
	return nil
}

func importProducts(tx *gorm.DB, keeper *stock.Keeper, f *excelize.File, res *SheetResult) error {
	t, err := readTable(f, SheetProducts, "producer_slug", "name", "price")
	if err != nil || t == nil {
		return err
	}
	zero, err := database.ZeroWeightScheme(tx)
	if err != nil {
		return err
	}
	for i, row := range t.rows {
		name := t.get(row, "name")
		if name == "" {
			continue
		}
		var producer models.Producer
		if err := tx.Where("slug = ?", t.get(row, "producer_slug")).Take(&producer).Error; err != nil {
			return t.fail(i, "unknown producer %q", t.get(row, "producer_slug"))
		}
		price, err := decimal.NewFromString(t.get(row, "price"))
		if err != nil {
			return t.fail(i, "price: %v", err)
		}
		maxQ := models.DefaultOrderMaxQuantity
		if s := t.get(row, "order_max_quantity"); s != "" {
			if maxQ, err = decimal.NewFromString(s); err != nil {
				return t.fail(i, "order_max_quantity: %v", err)
			}
		}
		var stockQ decimal.NullDecimal
		if s := t.get(row, "quantity_in_stock"); s != "" {
			q, err := decimal.NewFromString(s)
			if err != nil {
				return t.fail(i, "quantity_in_stock: %v", err)
			}
			stockQ = decimal.NewNullDecimal(q)
		}
		deadline, err := parseTime(t.get(row, "order_deadline"))
		if err != nil {
			return t.fail(i, "order_deadline: %v", err)
		}

		var p models.Product
		err = tx.Where("name = ?", name).Take(&p).Error
		created := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !created {
			return apperr.FromDB(err)
		}
		p.Name = name
		p.ProducerID = producer.ID
		p.Description = t.get(row, "description")
		p.Price = price
		p.OrderMaxQuantity = maxQ
		p.OrderDeadline = deadline
		p.IsActive = parseBool(t.get(row, "is_active"))
		if err := tx.Omit(clause.Associations, "QuantityInStock").Save(&p).Error; err != nil {
			return apperr.FromDB(err)
		}
		if err := keeper.SetStock(tx, p.ID, stockQ); err != nil {
			return err
		}

		schemes := []models.WeightScheme{zero}
		if t.has("weight_schemes") {
			for _, s := range strings.Split(t.get(row, "weight_schemes"), ";") {
				if s = strings.TrimSpace(s); s == "" {
					continue
				}
				q, err := decimal.NewFromString(s)
				if err != nil {
					return t.fail(i, "weight_schemes: %v", err)
				}
				if q.IsZero() {
					continue
				}
				var ws models.WeightScheme
				if err := tx.Where("quantity = ?", q).Attrs(models.WeightScheme{Quantity: q}).FirstOrCreate(&ws).Error; err != nil {
					return apperr.FromDB(err)
				}
				schemes = append(schemes, ws)
			}
		}
		if err := tx.Model(&p).Association("WeightSchemes").Replace(schemes); err != nil {
			return apperr.FromDB(err)
		}
		res.count(created)
	}
	return nil
}

func importUsers(tx *gorm.DB, f *excelize.File, res *SheetResult) error {
	t, err := readTable(f, SheetUsers, "username", "password_hash")
	if err != nil || t == nil {
		return err
	}
	for i, row := range t.rows {
		username := t.get(row, "username")
		if username == "" {
			continue
		}
		role := models.UserRole(t.get(row, "role"))
		if role == "" {
			role = models.RoleMember
		}
		if role != models.RoleMember && role != models.RoleStaff {
			return t.fail(i, "unknown role %q", role)
		}
		hash := t.get(row, "password_hash")
		if hash == "" {
			return t.fail(i, "password_hash is empty")
		}

		var u models.User
		err := tx.Where("username = ?", username).Take(&u).Error
		created := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !created {
			return apperr.FromDB(err)
		}
		u.Username = username
		u.FirstName = t.get(row, "first_name")
		u.LastName = t.get(row, "last_name")
		u.Email = t.get(row, "email")
		u.Role = role
		u.PasswordHash = hash
		if err := tx.Omit(clause.Associations).Save(&u).Error; err != nil {
			return apperr.FromDB(err)
		}
		res.count(created)
	}
	return nil
}

func importProfiles(tx *gorm.DB, f *excelize.File, res *SheetResult) error {
	t, err := readTable(f, SheetUserProfiles, "username", "fund")
	if err != nil || t == nil {
		return err
	}
	for i, row := range t.rows {
		username := t.get(row, "username")
		if username == "" {
			continue
		}
		var u models.User
		if err := tx.Where("username = ?", username).Take(&u).Error; err != nil {
			return t.fail(i, "unknown user %q", username)
		}
		fund, err := decimal.NewFromString(t.get(row, "fund"))
		if err != nil || !models.ValidFund(fund) {
			return t.fail(i, "fund %q must be %s or %s", t.get(row, "fund"), models.FundLow, models.FundDefault)
		}
		balance := decimal.Zero
		if s := t.get(row, "payment_balance"); s != "" {
			if balance, err = decimal.NewFromString(s); err != nil {
				return t.fail(i, "payment_balance: %v", err)
			}
		}
		var koopID *uint
		if s := t.get(row, "koop_id"); s != "" {
			n, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return t.fail(i, "koop_id: %v", err)
			}
			id := uint(n)
			koopID = &id
		}

		var p models.UserProfile
		err = tx.Where("user_id = ?", u.ID).Take(&p).Error
		created := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !created {
			return apperr.FromDB(err)
		}
		p.UserID = u.ID
		p.Fund = fund
		p.KoopID = koopID
		p.PhoneNumber = t.get(row, "phone_number")
		p.PaymentBalance = balance
		p.AllowEmails = parseBool(t.get(row, "allow_emails"))
		if err := tx.Save(&p).Error; err != nil {
			return apperr.FromDB(err)
		}
		res.count(created)
	}
	return nil
}

package catalog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"koop-backend/internal/apperr"
	"koop-backend/internal/cache"
	"koop-backend/internal/ledger"
	"koop-backend/internal/models"
	"koop-backend/internal/orders"
	"koop-backend/internal/sequencer"
	"koop-backend/internal/stock"
	"koop-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type memCache struct {
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (m *memCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

func (m *memCache) GetJSON(_ context.Context, key string, dest any) error {
	b, ok := m.data[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(b, dest)
}

func (m *memCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type fixture struct {
	db     *gorm.DB
	svc    *Service
	orders *orders.Service
	cache  *memCache
	staff  models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	c, _ := testutil.Cycle(t, testutil.OrderingTime(t))
	keeper := stock.NewKeeper(nil)
	book := orders.NewService(orders.Deps{
		DB:        db,
		Cycle:     c,
		Stock:     keeper,
		Sequencer: sequencer.New(c),
		Ledger:    ledger.New(models.FundDefault),
	})
	mc := newMemCache()
	return &fixture{
		db:     db,
		svc:    NewService(Deps{DB: db, Cycle: c, Stock: keeper, Orders: book, Cache: mc}),
		orders: book,
		cache:  mc,
		staff:  testutil.Member(testutil.CreateStaff(t, db, "koordynator")),
	}
}

func (f *fixture) producer(t *testing.T, name, short string) *models.Producer {
	t.Helper()
	p, err := f.svc.CreateProducer(f.staff, ProducerInput{Name: name, Short: short})
	if err != nil {
		t.Fatalf("CreateProducer(%s): %v", name, err)
	}
	return p
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Gospodarstwo Łąka & Syn", "gospodarstwo-laka-syn"},
		{"  Żółć 2 ", "zolc-2"},
		{"Pszczółka Maja", "pszczolka-maja"},
		{"Sery---Górskie!", "sery-gorskie"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.name); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCreateProducer(t *testing.T) {
	t.Run("Given two producers with the same slug When created Then the second gets a suffix", func(t *testing.T) {
		f := newFixture(t)
		first := f.producer(t, "Miód Łąkowy", "ML")
		second := f.producer(t, "Miod Lakowy", "ML2")

		if first.Slug != "miod-lakowy" || second.Slug != "miod-lakowy-2" {
			t.Errorf("slugs = %q, %q", first.Slug, second.Slug)
		}
	})

	t.Run("Given display order zero When created Then zero is stored, and nil defaults to 10", func(t *testing.T) {
		f := newFixture(t)
		zero := 0
		first, err := f.svc.CreateProducer(f.staff, ProducerInput{Name: "Apiary", Short: "A", DisplayOrder: &zero})
		if err != nil {
			t.Fatalf("CreateProducer: %v", err)
		}
		plain, err := f.svc.CreateProducer(f.staff, ProducerInput{Name: "Bakery", Short: "B"})
		if err != nil {
			t.Fatalf("CreateProducer: %v", err)
		}

		var stored models.Producer
		f.db.First(&stored, first.ID)
		if stored.DisplayOrder != 0 {
			t.Errorf("display order = %d, want 0", stored.DisplayOrder)
		}
		var defaulted models.Producer
		f.db.First(&defaulted, plain.ID)
		if defaulted.DisplayOrder != 10 {
			t.Errorf("default display order = %d, want 10", defaulted.DisplayOrder)
		}
	})

	t.Run("Given a member When creating a producer Then permission is denied", func(t *testing.T) {
		f := newFixture(t)
		member := testutil.Member(testutil.CreateMember(t, f.db, "ala"))
		_, err := f.svc.CreateProducer(member, ProducerInput{Name: "X", Short: "X"})
		if !apperr.IsKind(err, apperr.KindPermissionDenied) {
			t.Fatalf("err = %v, want permission denied", err)
		}
	})
}

func TestProducerNavigation(t *testing.T) {
	f := newFixture(t)
	order := func(n int) *int { return &n }
	a, _ := f.svc.CreateProducer(f.staff, ProducerInput{Name: "Apiary", Short: "A", DisplayOrder: order(1)})
	b, _ := f.svc.CreateProducer(f.staff, ProducerInput{Name: "Bakery", Short: "B", DisplayOrder: order(2)})
	c, _ := f.svc.CreateProducer(f.staff, ProducerInput{Name: "Cheese", Short: "C", DisplayOrder: order(3)})

	prev, next, err := f.svc.ProducerNavigation(context.Background(), b.Slug)
	if err != nil {
		t.Fatalf("ProducerNavigation: %v", err)
	}
	if prev == nil || prev.ID != a.ID || next == nil || next.ID != c.ID {
		t.Errorf("prev, next = %v, %v; want %s, %s", prev, next, a.Slug, c.Slug)
	}

	prev, _, err = f.svc.ProducerNavigation(context.Background(), a.Slug)
	if err != nil || prev != nil {
		t.Errorf("first producer prev = %v (%v), want nil", prev, err)
	}
}

func TestListActiveProducersCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.producer(t, "Apiary", "A")

	got, err := f.svc.ListActiveProducers(ctx)
	if err != nil || len(got) != 1 {
		t.Fatalf("ListActiveProducers = %d (%v), want 1", len(got), err)
	}

	testutil.CreateProducer(t, f.db, "Bypass", "BY")
	got, _ = f.svc.ListActiveProducers(ctx)
	if len(got) != 1 {
		t.Errorf("cached list = %d producers, want 1", len(got))
	}

	f.producer(t, "Bakery", "B")
	got, _ = f.svc.ListActiveProducers(ctx)
	if len(got) != 3 {
		t.Errorf("list after write = %d producers, want 3", len(got))
	}
}

func TestSetProducerActive(t *testing.T) {
	f := newFixture(t)
	p := f.producer(t, "Apiary", "A")
	for _, name := range []string{"Miód lipowy", "Miód gryczany"} {
		if _, err := f.svc.CreateProduct(f.staff, ProductInput{ProducerID: p.ID, Name: name, Price: testutil.D("30")}); err != nil {
			t.Fatalf("CreateProduct: %v", err)
		}
	}

	if err := f.svc.SetProducerActive(f.staff, p.ID, false); err != nil {
		t.Fatalf("SetProducerActive: %v", err)
	}
	var active int64
	f.db.Model(&models.Product{}).Where("producer_id = ? AND is_active = ?", p.ID, true).Count(&active)
	if active != 0 {
		t.Errorf("active products = %d, want 0", active)
	}
	products, err := f.svc.ListProducerProducts(context.Background(), p.ID)
	if err != nil || len(products) != 0 {
		t.Errorf("ListProducerProducts = %d (%v), want 0", len(products), err)
	}

	if err := f.svc.SetProducerActive(f.staff, p.ID, true); err != nil {
		t.Fatalf("SetProducerActive: %v", err)
	}
	f.db.Model(&models.Product{}).Where("producer_id = ? AND is_active = ?", p.ID, true).Count(&active)
	if active != 2 {
		t.Errorf("active products = %d, want 2", active)
	}
}

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	p := f.producer(t, "Apiary", "A")

	product, err := f.svc.CreateProduct(f.staff, ProductInput{
		ProducerID:    p.ID,
		Name:          "Miód lipowy",
		Price:         testutil.D("30"),
		WeightSchemes: []decimal.Decimal{testutil.D("0.5"), testutil.D("1"), testutil.D("0.5")},
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if !product.OrderMaxQuantity.Equal(models.DefaultOrderMaxQuantity) {
		t.Errorf("max = %s, want default", product.OrderMaxQuantity)
	}

	products, err := f.svc.ListProducerProducts(context.Background(), p.ID)
	if err != nil || len(products) != 1 {
		t.Fatalf("ListProducerProducts = %d (%v), want 1", len(products), err)
	}
	var quantities []string
	for _, ws := range products[0].WeightSchemes {
		quantities = append(quantities, ws.Quantity.String())
	}
	if len(quantities) != 3 || quantities[0] != "0" || quantities[1] != "0.5" || quantities[2] != "1" {
		t.Errorf("weight schemes = %v, want [0 0.5 1]", quantities)
	}

	schemes, err := f.svc.SetProductWeightSchemes(f.staff, product.ID, []decimal.Decimal{testutil.D("2")})
	if err != nil {
		t.Fatalf("SetProductWeightSchemes: %v", err)
	}
	if len(schemes) != 2 || !schemes[0].Quantity.IsZero() {
		t.Errorf("schemes = %v, want zero plus 2", schemes)
	}
}

func TestUpdateProductStock(t *testing.T) {
	f := newFixture(t)
	p := f.producer(t, "Apiary", "A")
	product, err := f.svc.CreateProduct(f.staff, ProductInput{ProducerID: p.ID, Name: "Miód lipowy", Price: testutil.D("30")})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	stockQ := testutil.ND("12")
	name := "Miód lipowy 1l"
	updated, err := f.svc.UpdateProduct(f.staff, product.ID, ProductPatch{Name: &name, QuantityInStock: &stockQ})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if updated.Name != name {
		t.Errorf("name = %q, want %q", updated.Name, name)
	}
	testutil.AssertStock(t, f.db, product.ID, "12")
}

func TestDeleteProducer(t *testing.T) {
	f := newFixture(t)
	p := f.producer(t, "Apiary", "A")
	product := testutil.CreateProduct(t, f.db, testutil.ProductFixture{ProducerID: p.ID, Name: "Miód lipowy", Stock: "5", Schemes: []string{"2"}})
	other := testutil.CreateProducer(t, f.db, "Bakery", "B")
	bread := testutil.CreateProduct(t, f.db, testutil.ProductFixture{ProducerID: other.ID, Name: "Chleb", Stock: "5", Schemes: []string{"2"}})

	member := testutil.Member(testutil.CreateMember(t, f.db, "ala"))
	order, err := f.orders.CreateOrder(member, models.PickUpThursday)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	for _, id := range []uint{product.ID, bread.ID} {
		if _, err := f.orders.AddItem(member, order.ID, id, testutil.D("2")); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}

	if err := f.svc.DeleteProducer(f.staff, p.ID); err != nil {
		t.Fatalf("DeleteProducer: %v", err)
	}

	var left int64
	f.db.Model(&models.Product{}).Where("producer_id = ?", p.ID).Count(&left)
	if left != 0 {
		t.Errorf("products left = %d, want 0", left)
	}
	var items []models.OrderItem
	f.db.Where("order_id = ?", order.ID).Find(&items)
	if len(items) != 1 || items[0].ProductID != bread.ID {
		t.Errorf("order items = %+v, want only the bread", items)
	}
	testutil.AssertStock(t, f.db, bread.ID, "3")
}

package supply

import (
	"testing"

	"koop-backend/internal/apperr"
	"koop-backend/internal/cycle"
	"koop-backend/internal/ledger"
	"koop-backend/internal/models"
	"koop-backend/internal/orders"
	"koop-backend/internal/sequencer"
	"koop-backend/internal/stock"
	"koop-backend/internal/testutil"

	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	svc      *Service
	orders   *orders.Service
	cycle    *cycle.Cycle
	producer models.Producer
	staff    models.Actor
	pages    *droppedPages
}

// droppedPages records the producers whose cached catalog pages were invalidated.
type droppedPages struct {
	ids []uint
}

func (d *droppedPages) Invalidate(producerIDs ...uint) {
	d.ids = append(d.ids, producerIDs...)
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
	pages := &droppedPages{}
	return &fixture{
		db:       db,
		cycle:    c,
		pages:    pages,
		svc:      NewService(Deps{DB: db, Cycle: c, Stock: keeper, Orders: book, Cache: pages}),
		orders:   book,
		producer: testutil.CreateProducer(t, db, "Piekarnia Na Wzgórzu", "PNW"),
		staff:    testutil.Member(testutil.CreateStaff(t, db, "koordynator")),
	}
}

func (f *fixture) product(t *testing.T, name, stockQ string) models.Product {
	t.Helper()
	return testutil.CreateProduct(t, f.db, testutil.ProductFixture{
		ProducerID: f.producer.ID,
		Name:       name,
		Stock:      stockQ,
		Schemes:    []string{"1", "1.5", "2", "3", "6"},
	})
}

// order places a new member order holding one line per map entry.
func (f *fixture) order(t *testing.T, name string, lines map[uint]string) (models.Actor, *models.Order) {
	t.Helper()
	member := testutil.Member(testutil.CreateMember(t, f.db, name))
	order, err := f.orders.CreateOrder(member, models.PickUpWednesday)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	for productID, q := range lines {
		if _, err := f.orders.AddItem(member, order.ID, productID, testutil.D(q)); err != nil {
			t.Fatalf("AddItem(%d, %s): %v", productID, q, err)
		}
	}
	return member, order
}

func (f *fixture) supply(t *testing.T) *models.Supply {
	t.Helper()
	sup, err := f.svc.CreateSupply(f.staff, f.producer.ID)
	if err != nil {
		t.Fatalf("CreateSupply: %v", err)
	}
	return sup
}

func assertReason(t *testing.T, err error, want apperr.Reason) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", want)
	}
	if got := apperr.ReasonOf(err); got != want {
		t.Fatalf("reason = %q (%v), want %q", got, err, want)
	}
}

func itemQuantity(t *testing.T, db *gorm.DB, orderID, productID uint) string {
	t.Helper()
	var item models.OrderItem
	err := db.Where("order_id = ? AND product_id = ?", orderID, productID).Take(&item).Error
	if err == gorm.ErrRecordNotFound {
		return "gone"
	}
	if err != nil {
		t.Fatalf("load item: %v", err)
	}
	return item.Quantity.String()
}

func TestProducerDidNotArrive(t *testing.T) {
	t.Run("Given two orders for a stocked product When the producer does not arrive Then stock is restored and items removed", func(t *testing.T) {
		f := newFixture(t)
		a := f.product(t, "Chleb żytni", "10")
		b := f.product(t, "Bułki", "10")

		_, first := f.order(t, "ala", map[uint]string{a.ID: "2", b.ID: "1"})
		_, second := f.order(t, "ola", map[uint]string{a.ID: "3"})
		testutil.AssertStock(t, f.db, a.ID, "5")
		testutil.AssertStock(t, f.db, b.ID, "9")

		removed, err := f.svc.ProducerDidNotArrive(f.staff, f.producer.ID)
		if err != nil {
			t.Fatalf("ProducerDidNotArrive: %v", err)
		}
		if removed != 3 {
			t.Errorf("removed = %d, want 3", removed)
		}

		testutil.AssertStock(t, f.db, a.ID, "10")
		testutil.AssertStock(t, f.db, b.ID, "10")
		for _, o := range []*models.Order{first, second} {
			if got := itemQuantity(t, f.db, o.ID, a.ID); got != "gone" {
				t.Errorf("order %d item for %s = %s, want gone", o.ID, a.Name, got)
			}
		}

		var p models.Product
		f.db.First(&p, a.ID)
		if !p.QuantityDeliveredThisWeek.Valid || !p.QuantityDeliveredThisWeek.Decimal.IsZero() {
			t.Errorf("delivered = %v, want 0", p.QuantityDeliveredThisWeek)
		}
	})

	t.Run("Given a paid order When the producer does not arrive Then the member is credited", func(t *testing.T) {
		f := newFixture(t)
		a := f.product(t, "Chleb żytni", "")

		member, order := f.order(t, "ala", map[uint]string{a.ID: "2"})
		// 2 × 10 × 1.3
		if _, err := f.orders.SetPaidAmount(f.staff, order.ID, testutil.ND("26")); err != nil {
			t.Fatalf("SetPaidAmount: %v", err)
		}

		if _, err := f.svc.ProducerDidNotArrive(f.staff, f.producer.ID); err != nil {
			t.Fatalf("ProducerDidNotArrive: %v", err)
		}
		balance, err := ledger.Balance(f.db, member.UserID)
		if err != nil {
			t.Fatalf("Balance: %v", err)
		}
		if !balance.Equal(testutil.D("26")) {
			t.Errorf("balance = %s, want 26", balance)
		}
	})

	t.Run("Given a member When calling Then permission is denied", func(t *testing.T) {
		f := newFixture(t)
		member := testutil.Member(testutil.CreateMember(t, f.db, "ala"))
		_, err := f.svc.ProducerDidNotArrive(member, f.producer.ID)
		if !apperr.IsKind(err, apperr.KindPermissionDenied) {
			t.Fatalf("err = %v, want permission denied", err)
		}
	})
}

func TestSupplyItems(t *testing.T) {
	t.Run("Given a delivery When items are added updated and removed Then stock follows", func(t *testing.T) {
		f := newFixture(t)
		a := f.product(t, "Chleb żytni", "1")
		sup := f.supply(t)

		item, err := f.svc.AddSupplyItem(f.staff, sup.ID, a.ID, testutil.D("4"))
		if err != nil {
			t.Fatalf("AddSupplyItem: %v", err)
		}
		testutil.AssertStock(t, f.db, a.ID, "5")

		if _, err := f.svc.UpdateSupplyItem(f.staff, item.ID, testutil.D("2.5")); err != nil {
			t.Fatalf("UpdateSupplyItem: %v", err)
		}
		testutil.AssertStock(t, f.db, a.ID, "3.5")

		if _, err := f.svc.UpdateSupplyItem(f.staff, item.ID, testutil.D("0")); err != nil {
			t.Fatalf("UpdateSupplyItem(0): %v", err)
		}
		testutil.AssertStock(t, f.db, a.ID, "1")

		var n int64
		f.db.Model(&models.SupplyItem{}).Count(&n)
		if n != 0 {
			t.Errorf("supply items = %d, want 0", n)
		}
	})

	t.Run("Given a product already delivered this week When added again Then rejected", func(t *testing.T) {
		f := newFixture(t)
		a := f.product(t, "Chleb żytni", "0")
		sup := f.supply(t)

		if _, err := f.svc.AddSupplyItem(f.staff, sup.ID, a.ID, testutil.D("1")); err != nil {
			t.Fatalf("AddSupplyItem: %v", err)
		}
		_, err := f.svc.AddSupplyItem(f.staff, sup.ID, a.ID, testutil.D("1"))
		assertReason(t, err, apperr.ReasonProductAlreadyInSupply)
	})

	t.Run("Given another producer's product When added Then rejected", func(t *testing.T) {
		f := newFixture(t)
		other := testutil.CreateProducer(t, f.db, "Sery Górskie", "SG")
		cheese := testutil.CreateProduct(t, f.db, testutil.ProductFixture{ProducerID: other.ID, Name: "Oscypek", Stock: "0"})
		sup := f.supply(t)

		_, err := f.svc.AddSupplyItem(f.staff, sup.ID, cheese.ID, testutil.D("1"))
		assertReason(t, err, apperr.ReasonWrongProducer)
	})

	t.Run("Given a delivery When deleted Then every item is reversed", func(t *testing.T) {
		f := newFixture(t)
		a := f.product(t, "Chleb żytni", "1")
		b := f.product(t, "Bułki", "2")
		sup := f.supply(t)

		results := f.svc.AddSupplyItems(f.staff, sup.ID, []ItemInput{
			{ProductID: a.ID, Quantity: testutil.D("3")},
			{ProductID: b.ID, Quantity: testutil.D("0")},
		})
		if len(results) != 1 || results[0].Err != nil {
			t.Fatalf("results = %+v, want one successful line", results)
		}
		testutil.AssertStock(t, f.db, a.ID, "4")

		if err := f.svc.DeleteSupply(f.staff, sup.ID); err != nil {
			t.Fatalf("DeleteSupply: %v", err)
		}
		testutil.AssertStock(t, f.db, a.ID, "1")
		testutil.AssertStock(t, f.db, b.ID, "2")

		var audits int64
		f.db.Model(&models.AuditLog{}).Where("entity_type = ?", "supply").Count(&audits)
		if audits != 2 {
			t.Errorf("audit rows = %d, want 2", audits)
		}
	})
}

func TestCreateSupply(t *testing.T) {
	t.Run("Given a delivery this week When another is created Then rejected", func(t *testing.T) {
		f := newFixture(t)
		f.supply(t)
		_, err := f.svc.CreateSupply(f.staff, f.producer.ID)
		assertReason(t, err, apperr.ReasonSupplyAlreadyExists)
	})

	t.Run("Given orders for unstocked products When created from orders Then lines match ordered totals", func(t *testing.T) {
		f := newFixture(t)
		bread := f.product(t, "Chleb żytni", "")
		rolls := f.product(t, "Bułki", "")
		f.product(t, "Chałka", "")
		stocked := f.product(t, "Miód", "5")

		f.order(t, "ala", map[uint]string{bread.ID: "2", stocked.ID: "1"})
		f.order(t, "ola", map[uint]string{bread.ID: "1.5", rolls.ID: "6"})

		sup, err := f.svc.CreateSupplyFromOrders(f.staff, f.producer.ID)
		if err != nil {
			t.Fatalf("CreateSupplyFromOrders: %v", err)
		}
		got := map[uint]string{}
		for _, it := range sup.Items {
			got[it.ProductID] = it.Quantity.String()
		}
		want := map[uint]string{bread.ID: "3.5", rolls.ID: "6"}
		if len(got) != len(want) {
			t.Fatalf("items = %v, want %v", got, want)
		}
		for id, q := range want {
			if got[id] != q {
				t.Errorf("product %d = %s, want %s", id, got[id], q)
			}
		}

		supplies, err := f.svc.ListWeekSupplies(f.cycle.CurrentWeek())
		if err != nil {
			t.Fatalf("ListWeekSupplies: %v", err)
		}
		if len(supplies) != 1 || len(supplies[0].Items) != 2 {
			t.Errorf("week supplies = %+v, want one with two items", supplies)
		}
	})
}

func TestRecordDelivery(t *testing.T) {
	t.Run("Given more ordered than delivered When recorded Then newest items are cut first", func(t *testing.T) {
		f := newFixture(t)
		bread := f.product(t, "Chleb żytni", "")

		_, first := f.order(t, "ala", map[uint]string{bread.ID: "2"})
		_, second := f.order(t, "ola", map[uint]string{bread.ID: "1"})
		_, third := f.order(t, "ela", map[uint]string{bread.ID: "2"})

		trimmed, err := f.svc.RecordDelivery(f.staff, bread.ID, testutil.D("2.5"))
		if err != nil {
			t.Fatalf("RecordDelivery: %v", err)
		}
		if len(trimmed) != 2 {
			t.Errorf("trimmed = %d items, want 2", len(trimmed))
		}
		if got := itemQuantity(t, f.db, first.ID, bread.ID); got != "2" {
			t.Errorf("first = %s, want 2", got)
		}
		if got := itemQuantity(t, f.db, second.ID, bread.ID); got != "0.5" {
			t.Errorf("second = %s, want 0.5", got)
		}
		if got := itemQuantity(t, f.db, third.ID, bread.ID); got != "gone" {
			t.Errorf("third = %s, want gone", got)
		}

		var p models.Product
		f.db.First(&p, bread.ID)
		if !p.QuantityDeliveredThisWeek.Valid || !p.QuantityDeliveredThisWeek.Decimal.Equal(testutil.D("2.5")) {
			t.Errorf("delivered = %v, want 2.5", p.QuantityDeliveredThisWeek)
		}
	})

	t.Run("Given enough delivered When recorded Then nothing is cut", func(t *testing.T) {
		f := newFixture(t)
		bread := f.product(t, "Chleb żytni", "")
		f.order(t, "ala", map[uint]string{bread.ID: "2"})

		trimmed, err := f.svc.RecordDelivery(f.staff, bread.ID, testutil.D("3"))
		if err != nil {
			t.Fatalf("RecordDelivery: %v", err)
		}
		if len(trimmed) != 0 {
			t.Errorf("trimmed = %v, want none", trimmed)
		}
	})
}

func TestDeliveryCommandsDropCachedPages(t *testing.T) {
	t.Run("Given a recorded delivery When it is stored Then the producer's cached pages are dropped", func(t *testing.T) {
		f := newFixture(t)
		bread := f.product(t, "Chleb żytni", "")

		if _, err := f.svc.RecordDelivery(f.staff, bread.ID, testutil.D("4")); err != nil {
			t.Fatalf("RecordDelivery: %v", err)
		}
		if len(f.pages.ids) != 1 || f.pages.ids[0] != f.producer.ID {
			t.Errorf("invalidated = %v, want [%d]", f.pages.ids, f.producer.ID)
		}
	})

	t.Run("Given a producer that did not arrive When handled Then its cached pages are dropped", func(t *testing.T) {
		f := newFixture(t)
		f.product(t, "Chleb żytni", "10")

		if _, err := f.svc.ProducerDidNotArrive(f.staff, f.producer.ID); err != nil {
			t.Fatalf("ProducerDidNotArrive: %v", err)
		}
		if len(f.pages.ids) != 1 || f.pages.ids[0] != f.producer.ID {
			t.Errorf("invalidated = %v, want [%d]", f.pages.ids, f.producer.ID)
		}
	})

	t.Run("Given a rejected delivery When recorded Then nothing is dropped", func(t *testing.T) {
		f := newFixture(t)
		bread := f.product(t, "Chleb żytni", "")

		_, err := f.svc.RecordDelivery(f.staff, bread.ID, testutil.D("-1"))
		assertReason(t, err, apperr.ReasonInvalidQuantity)
		if len(f.pages.ids) != 0 {
			t.Errorf("invalidated = %v, want none", f.pages.ids)
		}
	})
}

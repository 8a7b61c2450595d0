package members

import (
	"testing"

	"koop-backend/internal/apperr"
	"koop-backend/internal/models"
	"koop-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	svc   *Service
	staff models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	return &fixture{
		db:    db,
		svc:   NewService(Deps{DB: db}),
		staff: testutil.Member(testutil.CreateStaff(t, db, "koordynator")),
	}
}

func ptr[T any](v T) *T { return &v }

func TestCreateMember(t *testing.T) {
	t.Run("Given staff When creating members Then profiles get defaults and consecutive koop ids", func(t *testing.T) {
		f := newFixture(t)

		ala, err := f.svc.CreateMember(f.staff, CreateInput{Username: "ala", Password: "tajnehaslo", FirstName: "Ala", LastName: "Kowalska"})
		if err != nil {
			t.Fatalf("CreateMember: %v", err)
		}
		ola, err := f.svc.CreateMember(f.staff, CreateInput{Username: "ola", Password: "tajnehaslo", Fund: ptr(models.FundLow)})
		if err != nil {
			t.Fatalf("CreateMember: %v", err)
		}

		if ala.Role != models.RoleMember || !ala.Fund.Equal(models.FundDefault) || !ala.AllowEmails {
			t.Errorf("ala = %+v, want member with fund 1.3 and emails allowed", ala)
		}
		if ala.KoopID == nil || ola.KoopID == nil || *ola.KoopID != *ala.KoopID+1 {
			t.Errorf("koop ids = %v, %v, want consecutive", ala.KoopID, ola.KoopID)
		}
		if !ola.Fund.Equal(models.FundLow) {
			t.Errorf("ola fund = %s, want 1.1", ola.Fund)
		}

		var user models.User
		f.db.First(&user, ala.ID)
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("tajnehaslo")); err != nil {
			t.Errorf("stored hash does not match the password: %v", err)
		}
	})

	t.Run("Given a fund outside the allowed set When creating a member Then it is rejected", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateMember(f.staff, CreateInput{Username: "ala", Password: "tajnehaslo", Fund: ptr(decimal.RequireFromString("1.2"))})
		if apperr.ReasonOf(err) != apperr.ReasonInvalidFund {
			t.Fatalf("err = %v, want INVALID_FUND", err)
		}
		var n int64
		f.db.Model(&models.User{}).Where("username = ?", "ala").Count(&n)
		if n != 0 {
			t.Errorf("users named ala = %d, want 0", n)
		}
	})

	t.Run("Given a taken username When creating a member Then nothing new is stored", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.svc.CreateMember(f.staff, CreateInput{Username: "ala", Password: "tajnehaslo"}); err != nil {
			t.Fatalf("CreateMember: %v", err)
		}
		if _, err := f.svc.CreateMember(f.staff, CreateInput{Username: "ala", Password: "innehaslo"}); err == nil {
			t.Fatal("expected an error for the duplicate username")
		}
		var n int64
		f.db.Model(&models.UserProfile{}).Count(&n)
		if n != 2 {
			t.Errorf("profiles = %d, want 2 (staff and ala)", n)
		}
	})

	t.Run("Given a member When creating another member Then permission is denied", func(t *testing.T) {
		f := newFixture(t)
		member := testutil.Member(testutil.CreateMember(t, f.db, "ala"))
		_, err := f.svc.CreateMember(member, CreateInput{Username: "ola", Password: "tajnehaslo"})
		if !apperr.IsKind(err, apperr.KindPermissionDenied) {
			t.Fatalf("err = %v, want permission denied", err)
		}
	})
}

func TestUpdateProfile(t *testing.T) {
	t.Run("Given a member When changing their own contact fields Then they are stored", func(t *testing.T) {
		f := newFixture(t)
		ala := testutil.Member(testutil.CreateMember(t, f.db, "ala"))

		m, err := f.svc.UpdateProfile(ala, ala.UserID, ProfilePatch{PhoneNumber: ptr(" 600100200 "), AllowEmails: ptr(false)})
		if err != nil {
			t.Fatalf("UpdateProfile: %v", err)
		}
		if m.PhoneNumber != "600100200" || m.AllowEmails {
			t.Errorf("member = %+v", m)
		}
	})

	t.Run("Given a member When changing their fund Then permission is denied", func(t *testing.T) {
		f := newFixture(t)
		ala := testutil.Member(testutil.CreateMember(t, f.db, "ala"))
		_, err := f.svc.UpdateProfile(ala, ala.UserID, ProfilePatch{Fund: ptr(models.FundLow)})
		if !apperr.IsKind(err, apperr.KindPermissionDenied) {
			t.Fatalf("err = %v, want permission denied", err)
		}
	})

	t.Run("Given a member When changing someone else's profile Then permission is denied", func(t *testing.T) {
		f := newFixture(t)
		ala := testutil.Member(testutil.CreateMember(t, f.db, "ala"))
		ola := testutil.CreateMember(t, f.db, "ola")
		_, err := f.svc.UpdateProfile(ala, ola.ID, ProfilePatch{PhoneNumber: ptr("1")})
		if !apperr.IsKind(err, apperr.KindPermissionDenied) {
			t.Fatalf("err = %v, want permission denied", err)
		}
	})

	t.Run("Given a user without a profile When staff sets the fund Then a profile is created", func(t *testing.T) {
		f := newFixture(t)
		ola := testutil.CreateMemberWithoutProfile(t, f.db, "ola")

		m, err := f.svc.UpdateProfile(f.staff, ola.ID, ProfilePatch{Fund: ptr(models.FundLow)})
		if err != nil {
			t.Fatalf("UpdateProfile: %v", err)
		}
		if !m.Fund.Equal(models.FundLow) || m.KoopID == nil {
			t.Errorf("member = %+v, want fund 1.1 with a koop id", m)
		}
		var logs int64
		f.db.Model(&models.AuditLog{}).Where("entity_type = ? AND entity_id = ?", "user", ola.ID).Count(&logs)
		if logs != 1 {
			t.Errorf("audit rows = %d, want 1", logs)
		}
	})
}

func TestListMembers(t *testing.T) {
	f := newFixture(t)
	testutil.CreateMember(t, f.db, "ala")
	testutil.CreateMemberWithoutProfile(t, f.db, "ola")

	list, err := f.svc.ListMembers(f.staff)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("members = %d, want 3", len(list))
	}
	for _, m := range list {
		if m.Username == "ola" && !m.Fund.Equal(models.FundDefault) {
			t.Errorf("ola fund = %s, want the default", m.Fund)
		}
	}
}

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/oncontrol/platform/internal/backend"
	"github.com/oncontrol/platform/internal/model"
	"github.com/oncontrol/platform/pkg/logging"
)

var pqUniqueViolation = pq.Error{Code: "23505"}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *backend.Memory) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mem := backend.NewMemory()
	client := backend.NewClient(mem, mem, "oncontrol-app")
	svc := NewService(NewRepository(db), client, "test-secret", time.Hour, logging.Default())
	return svc, mock, mem
}

func TestRegisterDoctorWritesKeyedProfile(t *testing.T) {
	svc, mock, mem := newTestService(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "a@hospital.com", sqlmock.AnyArg(), "Dr. A", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	uid, err := svc.RegisterDoctor(context.Background(), "a@hospital.com", "Secret@123", model.DoctorProfile{
		Name:         "Dr. A",
		Specialty:    "oncologia-medica",
		DocumentType: model.DocumentTypeDNI,
		DNI:          "11111111",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if uid == "" {
		t.Fatal("expected a uid")
	}

	// the profile is keyed directly by uid in the public doctors collection
	doc, err := mem.Get(context.Background(), backend.DoctorsPath("oncontrol-app"), uid)
	if err != nil || doc == nil {
		t.Fatalf("expected profile document, got %v (%v)", doc, err)
	}
	if doc.Data["documentType"] != "dni" || doc.Data["dni"] != "11111111" {
		t.Fatalf("unexpected identity document fields %+v", doc.Data)
	}
	if _, hasRUC := doc.Data["ruc"]; hasRUC {
		t.Fatal("ruc must be absent for a dni-registered doctor")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRegisterDoctorEmailTakenWritesNoProfile(t *testing.T) {
	svc, mock, mem := newTestService(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pqUniqueViolation)

	_, err := svc.RegisterDoctor(context.Background(), "dup@hospital.com", "Secret@123", model.DoctorProfile{
		Name:         "Dr. Dup",
		DocumentType: model.DocumentTypeDNI,
		DNI:          "22222222",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	docs, err := mem.GetAll(context.Background(), backend.DoctorsPath("oncontrol-app"))
	if err != nil {
		t.Fatalf("getall: %v", err)
	}
	if len(docs) != 0 {
		t.Fatal("no profile may be written when the credential fails")
	}
}

func TestLoginRoundTrip(t *testing.T) {
	svc, mock, _ := newTestService(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("Secret@123"), bcrypt.MinCost)
	rows := sqlmock.NewRows([]string{"uid", "email", "password_hash", "display_name", "created_at"}).
		AddRow("u1", "a@hospital.com", string(hash), "Dr. A", time.Now())
	mock.ExpectQuery("SELECT uid, email, password_hash").
		WithArgs("a@hospital.com").
		WillReturnRows(rows)

	user, token, err := svc.Login(context.Background(), "A@Hospital.com", "Secret@123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.UID != "u1" || token == "" {
		t.Fatalf("unexpected login result %+v token=%q", user, token)
	}

	verified, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.UID != "u1" || verified.Email != "a@hospital.com" {
		t.Fatalf("unexpected verified identity %+v", verified)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, mock, _ := newTestService(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
	rows := sqlmock.NewRows([]string{"uid", "email", "password_hash", "display_name", "created_at"}).
		AddRow("u1", "a@hospital.com", string(hash), "Dr. A", time.Now())
	mock.ExpectQuery("SELECT uid, email, password_hash").
		WillReturnRows(rows)

	_, _, err := svc.Login(context.Background(), "a@hospital.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT uid, email, password_hash").
		WillReturnRows(sqlmock.NewRows([]string{"uid", "email", "password_hash", "display_name", "created_at"}))

	_, _, err := svc.Login(context.Background(), "nobody@hospital.com", "pw")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyRejectsBadToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Verify("not-a-token"); err == nil {
		t.Fatal("expected verification failure")
	}
}

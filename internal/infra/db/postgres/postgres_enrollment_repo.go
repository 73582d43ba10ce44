package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/repository"
)

var _ repository.CourseEnrollmentRepository = (*enrollmentRepo)(nil)

type enrollmentRepo struct {
	pool *pgxpool.Pool
}

func NewEnrollmentRepo(pool *pgxpool.Pool) *enrollmentRepo {
	return &enrollmentRepo{pool: pool}
}

// Create relies on the (user_id, course_id) unique constraint; a duplicate
// pair comes back as domain.ErrAlreadyExists.
func (r *enrollmentRepo) Create(ctx context.Context, tx repository.Tx, e *model.CourseEnrollment) error {
	if e == nil || e.ID == "" || e.UserID == "" || e.CourseID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO course_enrollments (id, user_id, course_id, payment_intent_id, enrolled_at)
VALUES ($1,$2,$3,NULLIF($4,''),$5);`
	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.UserID, e.CourseID, e.PaymentIntentID, e.EnrolledAt)
	return mapWriteErr(err)
}

func (r *enrollmentRepo) FindByUserAndCourse(ctx context.Context, tx repository.Tx, userID, courseID string) (*model.CourseEnrollment, error) {
	const q = `
SELECT id, user_id, course_id, COALESCE(payment_intent_id,''), enrolled_at
  FROM course_enrollments WHERE user_id=$1 AND course_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, courseID)
	if err != nil {
		return nil, err
	}
	var e model.CourseEnrollment
	if err := row.Scan(&e.ID, &e.UserID, &e.CourseID, &e.PaymentIntentID, &e.EnrolledAt); err != nil {
		return nil, mapReadErr(err)
	}
	return &e, nil
}

func (r *enrollmentRepo) CountByUserAndCourse(ctx context.Context, tx repository.Tx, userID, courseID string) (int, error) {
	const q = `SELECT COUNT(*) FROM course_enrollments WHERE user_id=$1 AND course_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, courseID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, mapReadErr(err)
	}
	return n, nil
}

// -----------------------------
// Event registrations
// -----------------------------

var _ repository.EventRegistrationRepository = (*registrationRepo)(nil)

type registrationRepo struct {
	pool *pgxpool.Pool
}

func NewRegistrationRepo(pool *pgxpool.Pool) *registrationRepo {
	return &registrationRepo{pool: pool}
}

const registrationColumns = `id, event_id, COALESCE(user_id,''), email, status, payment_status,
       COALESCE(payment_intent_id,''), created_at, updated_at`

func (r *registrationRepo) Save(ctx context.Context, tx repository.Tx, reg *model.EventRegistration) error {
	if reg == nil || reg.ID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO event_registrations (
  id, event_id, user_id, email, status, payment_status, payment_intent_id, created_at, updated_at
) VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,NULLIF($7,''),$8,$9)
ON CONFLICT (id) DO UPDATE SET
  user_id=NULLIF($3,''), email=$4, status=$5, payment_status=$6, payment_intent_id=NULLIF($7,''), updated_at=$9;`
	_, err := execSQL(ctx, r.pool, tx, q,
		reg.ID, reg.EventID, reg.UserID, strings.ToLower(reg.Email), string(reg.Status), string(reg.PaymentStatus),
		reg.PaymentIntentID, reg.CreatedAt, reg.UpdatedAt)
	return mapWriteErr(err)
}

func (r *registrationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.EventRegistration, error) {
	return r.queryOne(ctx, tx, `SELECT `+registrationColumns+` FROM event_registrations WHERE id=$1;`, id)
}

func (r *registrationRepo) FindByPaymentIntent(ctx context.Context, tx repository.Tx, intentID string) (*model.EventRegistration, error) {
	return r.queryOne(ctx, tx, `SELECT `+registrationColumns+`
  FROM event_registrations WHERE payment_intent_id=$1
 ORDER BY created_at DESC LIMIT 1;`, intentID)
}

func (r *registrationRepo) FindOpenByEventAndEmail(ctx context.Context, tx repository.Tx, eventID, email string) (*model.EventRegistration, error) {
	return r.queryOne(ctx, tx, `SELECT `+registrationColumns+`
  FROM event_registrations
 WHERE event_id=$1 AND email=$2 AND status <> 'CANCELLED'
 ORDER BY created_at DESC LIMIT 1;`, eventID, strings.ToLower(strings.TrimSpace(email)))
}

func (r *registrationRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.EventRegistration, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	return scanRegistration(row)
}

func scanRegistration(row pgx.Row) (*model.EventRegistration, error) {
	var reg model.EventRegistration
	var status, payStatus string
	if err := row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Email, &status, &payStatus,
		&reg.PaymentIntentID, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	reg.Status = model.RegistrationStatus(status)
	reg.PaymentStatus = model.RegistrationPaymentStatus(payStatus)
	return &reg, nil
}

package service

import (
	"context"
	"time"

	"coursecart/internal/auth"
	"coursecart/internal/coupon"
	"coursecart/internal/events"
	"coursecart/internal/model"
	"coursecart/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// MockTransactor hands out a MockTx.
type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GetOrCreateCart(ctx context.Context, q repository.DBTX, userID int64, currency string) (*model.Order, error) {
	args := m.Called(ctx, q, userID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, q repository.DBTX, id int64) (*model.Order, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateOrder(ctx context.Context, q repository.DBTX, order *model.Order) error {
	return m.Called(ctx, q, order).Error(0)
}

func (m *MockOrderRepository) MarkDefunct(ctx context.Context, q repository.DBTX, userID, exceptOrderID int64) (int64, error) {
	args := m.Called(ctx, q, userID, exceptOrderID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) ListItems(ctx context.Context, q repository.DBTX, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, q, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// hand out a copy so callers cannot mutate the fixture
	items := args.Get(0).([]model.OrderItem)
	return append([]model.OrderItem(nil), items...), args.Error(1)
}

func (m *MockOrderRepository) GetItem(ctx context.Context, q repository.DBTX, itemID int64) (*model.OrderItem, error) {
	args := m.Called(ctx, q, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderItem), args.Error(1)
}

func (m *MockOrderRepository) AddItem(ctx context.Context, q repository.DBTX, item *model.OrderItem) error {
	return m.Called(ctx, q, item).Error(0)
}

func (m *MockOrderRepository) UpdateItem(ctx context.Context, q repository.DBTX, item *model.OrderItem) error {
	return m.Called(ctx, q, item).Error(0)
}

func (m *MockOrderRepository) UpdateItemStatuses(ctx context.Context, q repository.DBTX, orderID int64, status model.OrderStatus) error {
	return m.Called(ctx, q, orderID, status).Error(0)
}

func (m *MockOrderRepository) DeleteItem(ctx context.Context, q repository.DBTX, orderID, itemID int64) (bool, error) {
	args := m.Called(ctx, q, orderID, itemID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) DeleteItems(ctx context.Context, q repository.DBTX, orderID int64) error {
	return m.Called(ctx, q, orderID).Error(0)
}

func (m *MockOrderRepository) ReportItems(ctx context.Context, q repository.DBTX, start, end time.Time) ([]model.ReportItem, error) {
	args := m.Called(ctx, q, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReportItem), args.Error(1)
}

// MockCouponRepository is a mock implementation of CouponRepository.
type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) Create(ctx context.Context, q repository.DBTX, c *model.Coupon) error {
	return m.Called(ctx, q, c).Error(0)
}

func (m *MockCouponRepository) GetByID(ctx context.Context, q repository.DBTX, id int64) (*model.Coupon, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Coupon), args.Error(1)
}

func (m *MockCouponRepository) ListActiveByCode(ctx context.Context, q repository.DBTX, code string, now time.Time) ([]model.Coupon, error) {
	args := m.Called(ctx, q, code, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Coupon), args.Error(1)
}

func (m *MockCouponRepository) List(ctx context.Context, q repository.DBTX, courseID string) ([]model.Coupon, error) {
	args := m.Called(ctx, q, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Coupon), args.Error(1)
}

func (m *MockCouponRepository) Deactivate(ctx context.Context, q repository.DBTX, id int64) error {
	return m.Called(ctx, q, id).Error(0)
}

func (m *MockCouponRepository) UpsertCoupons(ctx context.Context, q repository.DBTX, coupons []model.Coupon) (int64, error) {
	args := m.Called(ctx, q, coupons)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCouponRepository) ListRedemptions(ctx context.Context, q repository.DBTX, orderID int64) ([]model.CouponRedemption, error) {
	args := m.Called(ctx, q, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CouponRedemption), args.Error(1)
}

func (m *MockCouponRepository) CreateRedemption(ctx context.Context, q repository.DBTX, r *model.CouponRedemption) error {
	return m.Called(ctx, q, r).Error(0)
}

func (m *MockCouponRepository) DeleteRedemptionsForCourse(ctx context.Context, q repository.DBTX, orderID int64, courseID string) (int64, error) {
	args := m.Called(ctx, q, orderID, courseID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCouponRepository) DeleteRedemptions(ctx context.Context, q repository.DBTX, orderID int64) (int64, error) {
	args := m.Called(ctx, q, orderID)
	return args.Get(0).(int64), args.Error(1)
}

// MockCodeRepository is a mock implementation of RegistrationCodeRepository.
type MockCodeRepository struct {
	mock.Mock
}

func (m *MockCodeRepository) GetByCode(ctx context.Context, q repository.DBTX, code string) (*model.RegistrationCode, error) {
	args := m.Called(ctx, q, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RegistrationCode), args.Error(1)
}

func (m *MockCodeRepository) Create(ctx context.Context, q repository.DBTX, rc *model.RegistrationCode) (bool, error) {
	args := m.Called(ctx, q, rc)
	return args.Bool(0), args.Error(1)
}

func (m *MockCodeRepository) ListByOrder(ctx context.Context, q repository.DBTX, orderID int64) ([]model.RegistrationCode, error) {
	args := m.Called(ctx, q, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RegistrationCode), args.Error(1)
}

func (m *MockCodeRepository) CreateRedemption(ctx context.Context, q repository.DBTX, r *model.RegistrationCodeRedemption) error {
	return m.Called(ctx, q, r).Error(0)
}

func (m *MockCodeRepository) RedemptionForItem(ctx context.Context, q repository.DBTX, itemID int64) (*model.RegistrationCodeRedemption, error) {
	args := m.Called(ctx, q, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RegistrationCodeRedemption), args.Error(1)
}

func (m *MockCodeRepository) DeleteRedemptionsForItem(ctx context.Context, q repository.DBTX, itemID int64) (int64, error) {
	args := m.Called(ctx, q, itemID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCodeRepository) DeleteRedemptionsForOrder(ctx context.Context, q repository.DBTX, orderID int64) (int64, error) {
	args := m.Called(ctx, q, orderID)
	return args.Get(0).(int64), args.Error(1)
}

// MockCourseRepository is a mock implementation of CourseRepository.
type MockCourseRepository struct {
	mock.Mock
}

func (m *MockCourseRepository) GetAll(ctx context.Context, q repository.DBTX, limit, offset int) ([]model.Course, error) {
	args := m.Called(ctx, q, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Course), args.Error(1)
}

func (m *MockCourseRepository) GetByID(ctx context.Context, q repository.DBTX, id string) (*model.Course, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Course), args.Error(1)
}

func (m *MockCourseRepository) Save(ctx context.Context, q repository.DBTX, c *model.Course) error {
	return m.Called(ctx, q, c).Error(0)
}

func (m *MockCourseRepository) IsEnrolled(ctx context.Context, q repository.DBTX, userID int64, courseID string) (bool, error) {
	args := m.Called(ctx, q, userID, courseID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCourseRepository) Enroll(ctx context.Context, q repository.DBTX, e *model.Enrollment) error {
	return m.Called(ctx, q, e).Error(0)
}

func (m *MockCourseRepository) Unenroll(ctx context.Context, q repository.DBTX, userID int64, courseID string) error {
	return m.Called(ctx, q, userID, courseID).Error(0)
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, q repository.DBTX, u *model.User) error {
	return m.Called(ctx, q, u).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, q repository.DBTX, id int64) (*model.User, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByLogin(ctx context.Context, q repository.DBTX, login string) (*model.User, error) {
	args := m.Called(ctx, q, login)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetBySocialAuth(ctx context.Context, q repository.DBTX, provider, uid string) (*model.User, error) {
	args := m.Called(ctx, q, provider, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) LinkSocialAuth(ctx context.Context, q repository.DBTX, userID int64, provider, uid string) error {
	return m.Called(ctx, q, userID, provider, uid).Error(0)
}

func (m *MockUserRepository) Conflicts(ctx context.Context, q repository.DBTX, email, username string) (bool, bool, error) {
	args := m.Called(ctx, q, email, username)
	return args.Bool(0), args.Bool(1), args.Error(2)
}

func (m *MockUserRepository) SetOrgTag(ctx context.Context, q repository.DBTX, userID int64, org, key, value string) error {
	return m.Called(ctx, q, userID, org, key, value).Error(0)
}

func (m *MockUserRepository) GetOrgTag(ctx context.Context, q repository.DBTX, userID int64, org, key string) (string, bool, error) {
	args := m.Called(ctx, q, userID, org, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

// MockIdentityVerifier is a mock implementation of auth.IdentityVerifier.
type MockIdentityVerifier struct {
	mock.Mock
}

func (m *MockIdentityVerifier) Supports(backend string) bool {
	return m.Called(backend).Bool(0)
}

func (m *MockIdentityVerifier) Verify(ctx context.Context, backend, accessToken string) (*auth.Identity, error) {
	args := m.Called(ctx, backend, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Identity), args.Error(1)
}

// MockSettingsRepository is a mock implementation of SettingsRepository.
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) DonationConfiguration(ctx context.Context, q repository.DBTX) (*model.DonationConfiguration, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DonationConfiguration), args.Error(1)
}

func (m *MockSettingsRepository) SaveDonationConfiguration(ctx context.Context, q repository.DBTX, enabled bool, changedBy int64) (*model.DonationConfiguration, error) {
	args := m.Called(ctx, q, enabled, changedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DonationConfiguration), args.Error(1)
}

// publishCtx matches the detached, deadline-bound context events are
// published with.
var publishCtx = mock.MatchedBy(func(ctx context.Context) bool {
	_, hasDeadline := ctx.Deadline()
	return hasDeadline && ctx.Err() == nil
})

// MockPublisher records published events.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, evts ...events.Event) error {
	return m.Called(ctx, evts).Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

// MockImporter is a mock implementation of coupon.Importer.
type MockImporter struct {
	mock.Mock
}

func (m *MockImporter) Collect(ctx context.Context, files []string) (*coupon.Collection, error) {
	args := m.Called(ctx, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coupon.Collection), args.Error(1)
}

// testStore wires mocks into a Store. The transaction doubles as the
// pool so that reads outside a transaction hit the same mocks.
type testStore struct {
	tx         *MockTx
	transactor *MockTransactor
	orders     *MockOrderRepository
	coupons    *MockCouponRepository
	codes      *MockCodeRepository
	courses    *MockCourseRepository
	users      *MockUserRepository
	settings   *MockSettingsRepository
}

func newTestStore() *testStore {
	return &testStore{
		tx:         new(MockTx),
		transactor: new(MockTransactor),
		orders:     new(MockOrderRepository),
		coupons:    new(MockCouponRepository),
		codes:      new(MockCodeRepository),
		courses:    new(MockCourseRepository),
		users:      new(MockUserRepository),
		settings:   new(MockSettingsRepository),
	}
}

func (ts *testStore) store() Store {
	return Store{
		DB:       ts.tx,
		Tx:       ts.transactor,
		Orders:   ts.orders,
		Coupons:  ts.coupons,
		Codes:    ts.codes,
		Courses:  ts.courses,
		Users:    ts.users,
		Settings: ts.settings,
	}
}

// expectCommit sets up a transaction that commits.
func (ts *testStore) expectCommit() {
	ts.transactor.On("BeginTx", mock.Anything).Return(ts.tx, nil).Once()
	ts.tx.On("Commit", mock.Anything).Return(nil).Once()
}

// expectRollback sets up a transaction that rolls back.
func (ts *testStore) expectRollback() {
	ts.transactor.On("BeginTx", mock.Anything).Return(ts.tx, nil).Once()
	ts.tx.On("Rollback", mock.Anything).Return(nil).Once()
}

func (ts *testStore) assertExpectations(t mock.TestingT) {
	ts.transactor.AssertExpectations(t)
	ts.tx.AssertExpectations(t)
	ts.orders.AssertExpectations(t)
	ts.coupons.AssertExpectations(t)
	ts.codes.AssertExpectations(t)
	ts.courses.AssertExpectations(t)
	ts.users.AssertExpectations(t)
	ts.settings.AssertExpectations(t)
}

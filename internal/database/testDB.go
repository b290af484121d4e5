package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	m "PartTimeJob-backend/internal/model"
)

var testDBInstance *DBinstanceStruct
var teardown func(context.Context, ...testcontainers.TerminateOption) error

// Exported test users and fixtures
var (
	TestAdminUser  m.User
	TestEmployer1  m.User
	TestEmployer2  m.User
	TestStudent1   m.User
	TestStudent2   m.User
	TestCompany1   m.Company
	TestCompany2   m.Company
	TestCVStudent1 m.File
	TestCVStudent2 m.File
	TestProfile1   m.Profile

	// Plain password shared by every seeded user
	TestSeedPassword = "SeedPass123!"

	// Seeded job posts, all created by TestEmployer1 for TestCompany1
	TestJobPostOpen    m.JobPost
	TestJobPostExpired m.JobPost
	TestJobPostDraft   m.JobPost
)

// GetTestDB starts a PostgreSQL test container and returns a teardown function,
// the DB instance, and any error encountered during setup.
func GetTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, *DBinstanceStruct, error) {

	if testDBInstance != nil && teardown != nil {
		return teardown, testDBInstance, nil
	}

	// Database configuration
	var (
		dbName = "database"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, nil, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), nat.Port("5432/tcp"))
	if err != nil {
		return dbContainer.Terminate, nil, err
	}

	config := &DBConfig{
		DSN: fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", dbHost, dbPort.Port(), dbUser, dbPwd, dbName),
	}

	db, err := NewDBInstance(config)
	if err != nil {
		return dbContainer.Terminate, nil, err
	}

	if err := seedTestData(db.DB); err != nil {
		_ = dbContainer.Terminate(context.Background())
		return nil, nil, err
	}

	testDBInstance = db
	teardown = dbContainer.Terminate

	return dbContainer.Terminate, db, nil
}

func seedTestData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var err error
		users := []struct {
			dst      *m.User
			username string
			role     string
		}{
			{&TestAdminUser, "admin_user", m.RoleAdmin},
			{&TestEmployer1, "employer_1", m.RoleEmployer},
			{&TestEmployer2, "employer_2", m.RoleEmployer},
			{&TestStudent1, "student_1", m.RoleStudent},
			{&TestStudent2, "student_2", m.RoleStudent},
		}
		for _, u := range users {
			if *u.dst, err = CreateUser(tx, u.username, TestSeedPassword, u.role); err != nil {
				return err
			}
		}

		if TestCompany1, err = NewTestCompany(tx, TestEmployer1.ID, "Company One"); err != nil {
			return err
		}
		if TestCompany2, err = NewTestCompany(tx, TestEmployer2.ID, "Company Two"); err != nil {
			return err
		}

		if TestCVStudent1, err = NewTestFile(tx, TestStudent1.ID); err != nil {
			return err
		}
		if TestCVStudent2, err = NewTestFile(tx, TestStudent2.ID); err != nil {
			return err
		}
		TestProfile1 = m.Profile{UserID: TestStudent1.ID, ResumeFileID: &TestCVStudent1.ID}
		if err := tx.Create(&TestProfile1).Error; err != nil {
			return err
		}

		yesterday := time.Now().Add(-24 * time.Hour)
		if TestJobPostOpen, err = NewTestJobPost(tx, TestEmployer1.ID, TestCompany1.ID, m.JobPostPublished, nil); err != nil {
			return err
		}
		if TestJobPostExpired, err = NewTestJobPost(tx, TestEmployer1.ID, TestCompany1.ID, m.JobPostPublished, &yesterday); err != nil {
			return err
		}
		TestJobPostDraft, err = NewTestJobPost(tx, TestEmployer1.ID, TestCompany1.ID, m.JobPostDraft, nil)
		return err
	})
}

// NewTestUser creates a user with a unique username derived from prefix
func NewTestUser(db *gorm.DB, prefix string, roles ...string) (m.User, error) {
	return CreateUser(db, fmt.Sprintf("%s_%s", prefix, uuid.NewString()[:8]), TestSeedPassword, roles...)
}

// NewTestCompany creates a company owned by owner
func NewTestCompany(db *gorm.DB, owner uuid.UUID, name string) (m.Company, error) {
	c := m.Company{OwnerUserID: owner, CompanyProfile: m.CompanyProfile{Name: name}}
	return c, db.Create(&c).Error
}

// NewTestFile creates a CV file reference owned by owner
func NewTestFile(db *gorm.DB, owner uuid.UUID) (m.File, error) {
	f := m.File{OwnerUserID: owner, FileName: "cv.pdf", Extension: ".pdf", StorageKey: uuid.NewString()}
	return f, db.Create(&f).Error
}

// NewTestJobPost creates a job post directly in the given state
func NewTestJobPost(db *gorm.DB, creator, company uuid.UUID, status m.JobPostStatus, expireAt *time.Time) (m.JobPost, error) {
	p := m.JobPost{
		CompanyID: company,
		CreatedBy: creator,
		EditableJobPostInfo: m.EditableJobPostInfo{
			Title:       "Part-time barista " + uuid.NewString()[:6],
			Description: "Weekend shifts",
			Currency:    "VND",
			ExpireAt:    expireAt,
		},
		Status: status,
	}
	if status == m.JobPostPublished {
		now := time.Now()
		p.PublishAt = &now
	}
	return p, db.Create(&p).Error
}

// ErrInjected is returned by creates failed through FailCreates
var ErrInjected = errors.New("injected create failure")

type failCreatesKey struct{}

// FailCreates registers a create callback named name that fails any insert
// whose destination satisfies match. Only statements run with the returned
// context are affected. Call remove to unregister it.
func FailCreates(db *gorm.DB, name string, match func(dest any) bool) (ctx context.Context, remove func() error, err error) {
	err = db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Context == nil || tx.Statement.Context.Value(failCreatesKey{}) != name {
			return
		}
		if match(tx.Statement.Dest) {
			_ = tx.AddError(ErrInjected)
		}
	})
	if err != nil {
		return nil, nil, err
	}
	remove = func() error { return db.Callback().Create().Remove(name) }
	return context.WithValue(context.Background(), failCreatesKey{}, name), remove, nil
}

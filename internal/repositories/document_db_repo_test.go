package repositories

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockRepo(t *testing.T) (DocumentRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return NewDBDocumentRepository(db, NewTransactionManager(db)), mock
}

var recordColumns = []string{"id", "base_document_id", "version", "code", "area", "status", "is_latest_version", "upload_date", "version_history"}

func recordRow(id string, base any, version string, latest bool, status models.DocumentStatus) []driver.Value {
	return []driver.Value{id, base, version, "X1", "Ops", string(status), latest, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), `[{"version":"1.0"}]`}
}

func TestDBSupersede_Success(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `version_records` WHERE id = \\?.*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(recordRow("root", nil, "1.0", true, models.StatusApproved)...))
	mock.ExpectExec("UPDATE `version_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `version_records`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var seenBase *models.VersionRecord
	next, err := repo.Supersede(context.Background(), "root", func(base *models.VersionRecord) (*models.VersionRecord, error) {
		seenBase = base
		rootID := base.ID
		return &models.VersionRecord{
			BaseDocumentID:  &rootID,
			Version:         "1.1",
			IsLatestVersion: true,
			Status:          models.StatusInReview,
			VersionHistory:  append(base.VersionHistory, models.VersionLogEntry{Version: "1.1"}),
		}, nil
	})
	require.NoError(t, err)
	require.NotNil(t, seenBase)
	assert.Equal(t, "1.0", seenBase.Version)
	assert.Len(t, seenBase.VersionHistory, 1)
	assert.NotEmpty(t, next.ID)
	assert.Equal(t, "root", *next.BaseDocumentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBSupersede_BaseNoLongerHead(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `version_records` WHERE id = \\?.*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(recordRow("root", nil, "1.0", false, models.StatusObsolete)...))
	mock.ExpectRollback()

	built := false
	_, err := repo.Supersede(context.Background(), "root", func(base *models.VersionRecord) (*models.VersionRecord, error) {
		built = true
		return &models.VersionRecord{}, nil
	})
	assert.ErrorIs(t, err, xerr.ErrChainHeadMoved)
	assert.False(t, built)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBSupersede_ConditionalUpdateLost(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `version_records` WHERE id = \\?.*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(recordRow("root", nil, "1.0", true, models.StatusDraft)...))
	mock.ExpectExec("UPDATE `version_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Supersede(context.Background(), "root", func(base *models.VersionRecord) (*models.VersionRecord, error) {
		return &models.VersionRecord{Version: "1.1"}, nil
	})
	assert.ErrorIs(t, err, xerr.ErrChainHeadMoved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBSupersede_InsertFailureRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `version_records` WHERE id = \\?.*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(recordRow("root", nil, "1.0", true, models.StatusDraft)...))
	mock.ExpectExec("UPDATE `version_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `version_records`").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.Supersede(context.Background(), "root", func(base *models.VersionRecord) (*models.VersionRecord, error) {
		return &models.VersionRecord{Version: "1.1"}, nil
	})
	assert.ErrorIs(t, err, xerr.ErrDatabaseError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBFindByID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT \\* FROM `version_records` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(recordColumns))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, xerr.ErrDocumentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBListLatest(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT \\* FROM `version_records` WHERE is_latest_version = \\? ORDER BY upload_date DESC").
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(recordRow("b", "root", "1.1", true, models.StatusInReview)...).
			AddRow(recordRow("c", nil, "1.0", true, models.StatusDraft)...))

	records, err := repo.ListLatest(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].ID)
	require.NotNil(t, records[0].BaseDocumentID)
	assert.Equal(t, "root", *records[0].BaseDocumentID)
	assert.True(t, records[1].IsRoot())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBDeleteChain(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `version_records` WHERE \\(?id = \\? OR base_document_id = \\?").
		WithArgs("root", "root").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := repo.DeleteChain(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBUpdateReview_Head(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `version_records` WHERE id = \\?.*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(recordRow("head", "root", "1.1", true, models.StatusInReview)...))
	mock.ExpectExec("UPDATE `version_records` SET .*is_latest_version = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := repo.UpdateReview(context.Background(), "head", models.ReviewUpdate{Status: models.StatusApproved, Comments: "ok", ApprovalDate: &now})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, "ok", got.Comments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBUpdateReview_SupersededRecord(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `version_records` WHERE id = \\?.*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(recordRow("root", nil, "1.0", false, models.StatusObsolete)...))
	mock.ExpectRollback()

	_, err := repo.UpdateReview(context.Background(), "root", models.ReviewUpdate{Status: models.StatusApproved})
	assert.ErrorIs(t, err, xerr.ErrNotChainHead)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBUpdateReview_ConditionalUpdateLost(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `version_records` WHERE id = \\?.*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(recordRow("root", nil, "1.0", true, models.StatusInReview)...))
	mock.ExpectExec("UPDATE `version_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.UpdateReview(context.Background(), "root", models.ReviewUpdate{Status: models.StatusRejected})
	assert.ErrorIs(t, err, xerr.ErrNotChainHead)
	assert.NoError(t, mock.ExpectationsWereMet())
}

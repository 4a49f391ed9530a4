package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEmulatorRepo 需要 Firestore 模拟器，例如:
// gcloud emulators firestore start --host-port=localhost:8080
// FIRESTORE_EMULATOR_HOST=localhost:8080 go test ./internal/repositories/...
func newEmulatorRepo(t *testing.T) DocumentRepository {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "docflow-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	// 每个测试独立集合，互不干扰
	return NewFirestoreDocumentRepository(client, "documents_"+uuid.NewString())
}

func seedFirestoreChain(t *testing.T, repo DocumentRepository) (models.VersionRecord, *models.VersionRecord) {
	t.Helper()
	ctx := context.Background()
	uploaded := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	root := models.VersionRecord{
		Version:         "1.0",
		Code:            "X1",
		Area:            "Ops",
		Status:          models.StatusInReview,
		UploadDate:      uploaded,
		IsLatestVersion: true,
		VersionHistory:  []models.VersionLogEntry{{Version: "1.0"}},
	}
	require.NoError(t, repo.Create(ctx, &root))
	require.NotEmpty(t, root.ID)

	next, err := repo.Supersede(ctx, root.ID, func(base *models.VersionRecord) (*models.VersionRecord, error) {
		rootID := base.ID
		return &models.VersionRecord{
			BaseDocumentID:  &rootID,
			Version:         "1.1",
			Code:            base.Code,
			Area:            base.Area,
			Status:          models.StatusInReview,
			UploadDate:      uploaded.Add(time.Hour),
			IsLatestVersion: true,
			VersionHistory:  append(base.VersionHistory, models.VersionLogEntry{Version: "1.1"}),
		}, nil
	})
	require.NoError(t, err)
	return root, next
}

func TestFirestoreCreateAndFind(t *testing.T) {
	repo := newEmulatorRepo(t)
	ctx := context.Background()

	root, _ := seedFirestoreChain(t, repo)
	got, err := repo.FindByID(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, got.ID)
	assert.Equal(t, "X1", got.Code)
	assert.True(t, got.IsRoot())
	require.Len(t, got.VersionHistory, 1)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, xerr.ErrDocumentNotFound)
}

func TestFirestoreSupersedeAndListChain(t *testing.T) {
	repo := newEmulatorRepo(t)
	ctx := context.Background()
	root, head := seedFirestoreChain(t, repo)

	old, err := repo.FindByID(ctx, root.ID)
	require.NoError(t, err)
	assert.False(t, old.IsLatestVersion)
	assert.Equal(t, models.StatusObsolete, old.Status)

	// 链根没有 baseDocumentId，需要合并进结果
	chain, err := repo.ListChain(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, root.ID, chain[0].ID)
	assert.Equal(t, head.ID, chain[1].ID)
	require.Len(t, chain[1].VersionHistory, 2)

	latest, err := repo.ListLatest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, head.ID, latest[0].ID)

	_, err = repo.Supersede(ctx, root.ID, func(base *models.VersionRecord) (*models.VersionRecord, error) {
		return &models.VersionRecord{Version: "1.2"}, nil
	})
	assert.ErrorIs(t, err, xerr.ErrChainHeadMoved)
}

func TestFirestoreUpdateReview(t *testing.T) {
	repo := newEmulatorRepo(t)
	ctx := context.Background()
	root, head := seedFirestoreChain(t, repo)
	now := time.Now().UTC()

	got, err := repo.UpdateReview(ctx, head.ID, models.ReviewUpdate{Status: models.StatusApproved, Comments: "ok", ApprovalDate: &now})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)

	_, err = repo.UpdateReview(ctx, root.ID, models.ReviewUpdate{Status: models.StatusApproved, ApprovalDate: &now})
	assert.ErrorIs(t, err, xerr.ErrNotChainHead)
	stored, err := repo.FindByID(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusObsolete, stored.Status)
}

func TestFirestoreDeleteChain(t *testing.T) {
	repo := newEmulatorRepo(t)
	ctx := context.Background()
	root, head := seedFirestoreChain(t, repo)

	n, err := repo.DeleteChain(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = repo.FindByID(ctx, head.ID)
	assert.ErrorIs(t, err, xerr.ErrDocumentNotFound)
	chain, err := repo.ListChain(ctx, root.ID)
	require.NoError(t, err)
	assert.Empty(t, chain)
}

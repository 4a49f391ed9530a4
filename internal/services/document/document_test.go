package document

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/metrics"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"github.com/3Eeeecho/go-docflow/internal/services/catalog"
	"github.com/klauspost/compress/zip"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRootRecord(t *testing.T) {
	env := newTestEnv(t)
	rec := env.create(t)

	assert.NotEmpty(t, rec.ID)
	assert.Nil(t, rec.BaseDocumentID)
	assert.True(t, rec.IsLatestVersion)
	assert.Equal(t, models.StatusInReview, rec.Status)
	assert.Equal(t, models.InitialStatusPublished, rec.InitialStatus)
	assert.Equal(t, "Alice", rec.CreatedBy)
	assert.Equal(t, "alice@example.com", rec.UploadedByEmail)
	assert.Contains(t, rec.FilePath, "documents/u-alice/")
	assert.Equal(t, int64(len("version one")), rec.FileSize)
	require.Len(t, rec.VersionHistory, 1)
	assert.Equal(t, "1.0", rec.VersionHistory[0].Version)
	assert.Equal(t, "plan.pdf", rec.VersionHistory[0].FileName)

	assert.Equal(t, 1, env.blobs.count())
	assert.Equal(t, []models.DocumentEventType{models.EventDocumentCreated}, env.pub.types())
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.OperationsTotal.WithLabelValues(opCreate, metrics.ResultSuccess)))
	assert.Equal(t, float64(len("version one")), testutil.ToFloat64(env.metrics.UploadBytesTotal))
}

func TestCreateDraft(t *testing.T) {
	env := newTestEnv(t)
	in := validCreate()
	in.InitialStatus = models.InitialStatusDraft

	rec, err := env.svc.Create(context.Background(), env.alice, in, newFile("plan.pdf", "x"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, rec.Status)
	assert.Equal(t, models.InitialStatusDraft, rec.InitialStatus)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		in := validCreate()
		in.Version = "   "
		in.Reviewer = ""
		_, err := env.svc.Create(ctx, env.alice, in, newFile("plan.pdf", "x"))
		require.ErrorIs(t, err, xerr.ErrValidationFailed)

		var ve *xerr.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, []string{"version", "reviewer"}, ve.Fields)
	})

	t.Run("no file", func(t *testing.T) {
		_, err := env.svc.Create(ctx, env.alice, validCreate(), nil)
		assert.ErrorIs(t, err, xerr.ErrFileRequired)
	})

	// 校验失败不产生任何网络调用
	assert.Equal(t, 0, env.blobs.uploadCount())
	heads, err := env.catalog.Refresh(ctx)
	require.NoError(t, err)
	assert.Empty(t, heads)
	assert.Equal(t, float64(2), testutil.ToFloat64(env.metrics.OperationsTotal.WithLabelValues(opCreate, metrics.ResultError)))
}

func TestCreateUploadFailureCreatesNoRecord(t *testing.T) {
	env := newTestEnv(t)
	env.blobs.failUpload = errors.New("network down")

	_, err := env.svc.Create(context.Background(), env.alice, validCreate(), newFile("plan.pdf", "x"))
	require.ErrorIs(t, err, xerr.ErrStorageError)

	heads, err := env.catalog.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, heads)
	assert.Empty(t, env.pub.types())
}

func TestSupersedeScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	root := env.create(t)

	next, err := env.svc.Supersede(ctx, env.bob, root.ID, validSupersede(), newFile("plan-v2.pdf", "version two"))
	require.NoError(t, err)

	old, err := env.repo.FindByID(ctx, root.ID)
	require.NoError(t, err)
	assert.False(t, old.IsLatestVersion)
	assert.Equal(t, models.StatusObsolete, old.Status)

	assert.Equal(t, "1.1", next.Version)
	require.NotNil(t, next.BaseDocumentID)
	assert.Equal(t, root.ID, *next.BaseDocumentID)
	assert.True(t, next.IsLatestVersion)
	assert.Len(t, next.VersionHistory, 2)

	// 空字段沿用链头，创建者固定为链根的创建者
	assert.Equal(t, "X1", next.Code)
	assert.Equal(t, "Ops", next.Area)
	assert.Equal(t, "Procedimiento", next.Description)
	assert.Equal(t, "Alice", next.CreatedBy)
	assert.Equal(t, models.DefaultDisplayName, next.UploadedBy)

	heads, err := env.catalog.ListLatest(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(heads))
	for _, h := range heads {
		ids = append(ids, h.ID)
	}
	assert.Contains(t, ids, next.ID)
	assert.NotContains(t, ids, root.ID)

	evs := env.pub.events
	require.Len(t, evs, 2)
	assert.Equal(t, models.EventDocumentSuperseded, evs[1].Type)
	assert.Equal(t, root.ID, evs[1].SupersededID)
	assert.Equal(t, root.ID, evs[1].ChainRootID)
}

func TestSupersedeChainInvariants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	root := env.create(t)

	head := root
	for i := 0; i < 4; i++ {
		in := validSupersede()
		in.Code = "X1-" + string(rune('a'+i))
		next, err := env.svc.Supersede(ctx, env.alice, head.ID, in, newFile("plan.pdf", "rev"))
		require.NoError(t, err)

		heads := env.heads(t, root.ID)
		require.Len(t, heads, 1)
		assert.Equal(t, next.ID, heads[0].ID)

		require.Len(t, next.VersionHistory, i+2)
		for j := 1; j < len(next.VersionHistory); j++ {
			assert.True(t, next.VersionHistory[j].UploadDate.After(next.VersionHistory[j-1].UploadDate))
		}
		head = next
	}
	assert.Equal(t, "1.4", head.Version)

	members, err := env.repo.ListChain(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, members, 5)
	obsolete := 0
	for _, m := range members {
		if m.ID == root.ID {
			continue
		}
		require.NotNil(t, m.BaseDocumentID)
		assert.Equal(t, root.ID, *m.BaseDocumentID)
		if m.Status == models.StatusObsolete {
			obsolete++
		}
	}
	// 除链根外，被覆盖的三个中间版本
	assert.Equal(t, 3, obsolete)
}

func TestSupersedeRejectsNonHead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	root := env.create(t)
	_, err := env.svc.Supersede(ctx, env.alice, root.ID, validSupersede(), newFile("b.pdf", "b"))
	require.NoError(t, err)
	uploads := env.blobs.uploadCount()

	_, err = env.svc.Supersede(ctx, env.alice, root.ID, validSupersede(), newFile("c.pdf", "c"))
	assert.ErrorIs(t, err, xerr.ErrNotChainHead)
	assert.Equal(t, uploads, env.blobs.uploadCount())
	assert.Len(t, env.heads(t, root.ID), 1)
}

func TestSupersedeValidation(t *testing.T) {
	env := newTestEnv(t)
	root := env.create(t)

	in := validSupersede()
	in.Approver = " "
	_, err := env.svc.Supersede(context.Background(), env.alice, root.ID, in, newFile("b.pdf", "b"))
	require.ErrorIs(t, err, xerr.ErrValidationFailed)

	_, err = env.svc.Supersede(context.Background(), env.alice, "missing", validSupersede(), newFile("b.pdf", "b"))
	assert.ErrorIs(t, err, xerr.ErrDocumentNotFound)
}

func TestConcurrentSupersedeKeepsSingleHead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	root := env.create(t)

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Supersede(ctx, env.alice, root.ID, validSupersede(), newFile("p.pdf", "p"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, xerr.ErrChainHeadMoved) || errors.Is(err, xerr.ErrNotChainHead), err.Error())
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, env.heads(t, root.ID), 1)
}

func TestReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := env.create(t)

	got, err := env.svc.Review(ctx, env.alice, rec.ID, ReviewInput{Status: models.StatusInReview, Comments: "revisar"})
	require.NoError(t, err)
	require.NotNil(t, got.ReviewDate)
	assert.False(t, got.ReviewDate.Before(got.UploadDate))
	assert.Nil(t, got.ApprovalDate)
	assert.Equal(t, "revisar", got.Comments)

	got, err = env.svc.Review(ctx, env.alice, rec.ID, ReviewInput{Status: models.StatusApproved, Comments: "ok"})
	require.NoError(t, err)
	require.NotNil(t, got.ApprovalDate)
	assert.Equal(t, "ok", got.Comments)
	reviewDate := *got.ReviewDate

	// 驳回不修改日期，评论直接覆盖
	got, err = env.svc.Review(ctx, env.alice, rec.ID, ReviewInput{Status: models.StatusRejected})
	require.NoError(t, err)
	assert.Equal(t, "", got.Comments)
	assert.Equal(t, reviewDate, *got.ReviewDate)

	_, err = env.svc.Review(ctx, env.alice, rec.ID, ReviewInput{Status: models.StatusObsolete})
	assert.ErrorIs(t, err, xerr.ErrInvalidReviewStatus)

	_, err = env.svc.Review(ctx, env.alice, rec.ID, ReviewInput{Status: "published"})
	assert.ErrorIs(t, err, xerr.ErrInvalidReviewStatus)

	stored, err := env.repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, stored.Status)

	heads, err := env.catalog.ListLatest(ctx)
	require.NoError(t, err)
	require.Len(t, heads, 1)
	assert.Equal(t, models.StatusRejected, heads[0].Status)
}

func TestReviewRejectsSupersededRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	root := env.create(t)
	_, err := env.svc.Supersede(ctx, env.alice, root.ID, validSupersede(), newFile("b.pdf", "b"))
	require.NoError(t, err)

	_, err = env.svc.Review(ctx, env.alice, root.ID, ReviewInput{Status: models.StatusApproved})
	assert.ErrorIs(t, err, xerr.ErrNotChainHead)

	stored, err := env.repo.FindByID(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusObsolete, stored.Status)
}

func buildChain(t *testing.T, env *testEnv) []*models.VersionRecord {
	t.Helper()
	ctx := context.Background()
	root := env.create(t)
	second, err := env.svc.Supersede(ctx, env.alice, root.ID, validSupersede(), newFile("plan-v2.pdf", "version two"))
	require.NoError(t, err)
	third, err := env.svc.Supersede(ctx, env.alice, second.ID, validSupersede(), newFile("plan-v3.pdf", "version three"))
	require.NoError(t, err)
	return []*models.VersionRecord{root, second, third}
}

func TestRemoveCascadesFromAnyMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chain := buildChain(t, env)
	require.Equal(t, 3, env.blobs.count())

	n, err := env.svc.Remove(ctx, env.alice, chain[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, r := range chain {
		_, err := env.repo.FindByID(ctx, r.ID)
		assert.ErrorIs(t, err, xerr.ErrDocumentNotFound)
	}
	assert.Equal(t, 0, env.blobs.count())

	heads, err := env.catalog.ListLatest(ctx)
	require.NoError(t, err)
	assert.Empty(t, heads)

	types := env.pub.types()
	assert.Equal(t, models.EventDocumentRemoved, types[len(types)-1])
}

func TestRemoveKeepsMetadataWhenBlobDeleteFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chain := buildChain(t, env)
	env.blobs.failDelete[chain[0].FilePath] = true

	_, err := env.svc.Remove(ctx, env.alice, chain[2].ID)
	require.ErrorIs(t, err, xerr.ErrStorageError)

	members, err := env.repo.ListChain(ctx, chain[0].ID)
	require.NoError(t, err)
	assert.Len(t, members, 3)
	// 只剩删除失败的那个文件
	assert.Equal(t, 1, env.blobs.count())
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	chain := buildChain(t, env)

	h, err := env.svc.History(context.Background(), chain[0].ID)
	require.NoError(t, err)
	assert.Equal(t, chain[0].ID, h.ChainRootID)
	require.NotNil(t, h.Head)
	assert.Equal(t, chain[2].ID, h.Head.ID)
	assert.Equal(t, "En Revisión", h.Head.StatusLabel)
	require.Len(t, h.Entries, 3)
	assert.Equal(t, []string{"1.0", "1.1", "1.2"}, []string{h.Entries[0].Version, h.Entries[1].Version, h.Entries[2].Version})
	require.Len(t, h.Members, 3)
	assert.Equal(t, chain[0].ID, h.Members[0].ID)
	assert.Equal(t, "Obsoleto", h.Members[0].StatusLabel)
}

func TestLatestVersionID(t *testing.T) {
	env := newTestEnv(t)
	chain := buildChain(t, env)

	for _, member := range chain {
		latest, ok := env.svc.LatestVersionID(member)
		require.True(t, ok)
		assert.Equal(t, chain[2].ID, latest)
	}

	_, ok := env.svc.LatestVersionID(&models.VersionRecord{ID: "unknown"})
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	buildChain(t, env)
	env.create(t)

	page, err := env.svc.List(context.Background(), catalog.Filter{Status: "in_review", PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	_, err = env.svc.List(context.Background(), catalog.Filter{Status: "obsolete"})
	assert.ErrorIs(t, err, xerr.ErrInvalidParams)
}

func TestDownloadURL(t *testing.T) {
	env := newTestEnv(t)
	rec := env.create(t)

	url, err := env.svc.DownloadURL(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "mem://"+rec.FilePath, url)
}

func TestArchive(t *testing.T) {
	env := newTestEnv(t)
	chain := buildChain(t, env)

	var buf bytes.Buffer
	rootID, err := env.svc.Archive(context.Background(), chain[2].ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, chain[0].ID, rootID)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	contents := map[string]string{}
	for _, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		contents[f.Name] = string(data)
	}
	assert.Equal(t, []string{"v1.0_plan.pdf", "v1.1_plan-v2.pdf", "v1.2_plan-v3.pdf", manifestName}, names)
	assert.Equal(t, "version one", contents["v1.0_plan.pdf"])
	assert.Equal(t, "version three", contents["v1.2_plan-v3.pdf"])
	assert.Contains(t, contents[manifestName], `"version": "1.2"`)
}

func TestArchiveMissingDocument(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	_, err := env.svc.Archive(context.Background(), "missing", &buf)
	assert.ErrorIs(t, err, xerr.ErrDocumentNotFound)
	assert.Zero(t, buf.Len())
}

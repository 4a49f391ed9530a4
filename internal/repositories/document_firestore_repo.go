package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// firestoreDocumentRepository 基于 Firestore 的实现，字段名与集合中的文档保持一致
type firestoreDocumentRepository struct {
	client     *firestore.Client
	collection string
}

var _ DocumentRepository = (*firestoreDocumentRepository)(nil)

// NewFirestoreDocumentRepository 创建 Firestore 文档仓储
func NewFirestoreDocumentRepository(client *firestore.Client, collection string) DocumentRepository {
	if collection == "" {
		collection = "documents"
	}
	return &firestoreDocumentRepository{client: client, collection: collection}
}

func (r *firestoreDocumentRepository) coll() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

func (r *firestoreDocumentRepository) Create(ctx context.Context, record *models.VersionRecord) error {
	ref := r.newRef(record.ID)
	if _, err := ref.Create(ctx, record); err != nil {
		logger.Error("Create: Failed to create version record in Firestore", zap.String("documentID", ref.ID), zap.Error(err))
		return fmt.Errorf("failed to create version record: %w", xerr.ErrDatabaseError)
	}
	record.ID = ref.ID
	return nil
}

func (r *firestoreDocumentRepository) FindByID(ctx context.Context, id string) (*models.VersionRecord, error) {
	snap, err := r.coll().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, xerr.ErrDocumentNotFound
		}
		logger.Error("FindByID: Failed to get document", zap.String("documentID", id), zap.Error(err))
		return nil, fmt.Errorf("failed to find version record: %w", xerr.ErrDatabaseError)
	}
	return decodeSnapshot(snap)
}

func (r *firestoreDocumentRepository) ListLatest(ctx context.Context) ([]models.VersionRecord, error) {
	snaps, err := r.coll().
		Where("isLatestVersion", "==", true).
		OrderBy("uploadDate", firestore.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		logger.Error("ListLatest: Failed to query chain heads", zap.Error(err))
		return nil, fmt.Errorf("failed to list latest versions: %w", xerr.ErrDatabaseError)
	}
	return decodeSnapshots(snaps)
}

func (r *firestoreDocumentRepository) ListChain(ctx context.Context, rootID string) ([]models.VersionRecord, error) {
	// 链根自身没有 baseDocumentId，需要单独读取
	members, err := r.coll().Where("baseDocumentId", "==", rootID).Documents(ctx).GetAll()
	if err != nil {
		logger.Error("ListChain: Failed to query chain members", zap.String("chainRootID", rootID), zap.Error(err))
		return nil, fmt.Errorf("failed to list chain: %w", xerr.ErrDatabaseError)
	}
	records, err := decodeSnapshots(members)
	if err != nil {
		return nil, err
	}

	root, err := r.FindByID(ctx, rootID)
	switch {
	case err == nil:
		records = append(records, *root)
	case !errors.Is(err, xerr.ErrDocumentNotFound):
		return nil, err
	}

	sortByUploadDate(records)
	return records, nil
}

func (r *firestoreDocumentRepository) Supersede(ctx context.Context, baseID string, build SuccessorBuilder) (*models.VersionRecord, error) {
	baseRef := r.coll().Doc(baseID)
	var next *models.VersionRecord

	// 冲突时 Firestore 会重试整个函数，build 必须无副作用
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(baseRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return xerr.ErrDocumentNotFound
			}
			return err
		}
		base, err := decodeSnapshot(snap)
		if err != nil {
			return err
		}
		if !base.IsLatestVersion {
			return xerr.ErrChainHeadMoved
		}

		next, err = build(base)
		if err != nil {
			return err
		}
		nextRef := r.newRef(next.ID)
		next.ID = nextRef.ID

		if err := tx.Update(baseRef, []firestore.Update{
			{Path: "isLatestVersion", Value: false},
			{Path: "status", Value: models.StatusObsolete},
		}); err != nil {
			return err
		}
		return tx.Create(nextRef, next)
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		logger.Error("Supersede: Firestore transaction failed", zap.String("baseID", baseID), zap.Error(err))
		return nil, fmt.Errorf("supersede %s: %w", baseID, xerr.ErrDatabaseError)
	}
	return next, nil
}

func (r *firestoreDocumentRepository) UpdateReview(ctx context.Context, id string, update models.ReviewUpdate) (*models.VersionRecord, error) {
	ref := r.coll().Doc(id)
	var record *models.VersionRecord

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return xerr.ErrDocumentNotFound
			}
			return err
		}
		record, err = decodeSnapshot(snap)
		if err != nil {
			return err
		}
		if !record.IsLatestVersion {
			return xerr.ErrNotChainHead
		}

		updates := []firestore.Update{
			{Path: "status", Value: update.Status},
			{Path: "comments", Value: update.Comments},
		}
		if update.ReviewDate != nil {
			updates = append(updates, firestore.Update{Path: "reviewDate", Value: *update.ReviewDate})
		}
		if update.ApprovalDate != nil {
			updates = append(updates, firestore.Update{Path: "approvalDate", Value: *update.ApprovalDate})
		}
		if err := tx.Update(ref, updates); err != nil {
			return err
		}
		update.Apply(record)
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		logger.Error("UpdateReview: Firestore transaction failed", zap.String("documentID", id), zap.Error(err))
		return nil, fmt.Errorf("update review %s: %w", id, xerr.ErrDatabaseError)
	}
	return record, nil
}

func (r *firestoreDocumentRepository) DeleteChain(ctx context.Context, rootID string) (int, error) {
	deleted := 0
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		deleted = 0
		members, err := tx.Documents(r.coll().Where("baseDocumentId", "==", rootID)).GetAll()
		if err != nil {
			return err
		}
		rootRef := r.coll().Doc(rootID)
		rootSnap, err := tx.Get(rootRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		for _, snap := range members {
			if err := tx.Delete(snap.Ref); err != nil {
				return err
			}
			deleted++
		}
		if rootSnap != nil && rootSnap.Exists() {
			if err := tx.Delete(rootRef); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		logger.Error("DeleteChain: Firestore transaction failed", zap.String("chainRootID", rootID), zap.Error(err))
		return 0, fmt.Errorf("delete chain %s: %w", rootID, xerr.ErrDatabaseError)
	}
	return deleted, nil
}

func (r *firestoreDocumentRepository) newRef(id string) *firestore.DocumentRef {
	if id == "" {
		return r.coll().NewDoc()
	}
	return r.coll().Doc(id)
}

func decodeSnapshot(snap *firestore.DocumentSnapshot) (*models.VersionRecord, error) {
	var record models.VersionRecord
	if err := snap.DataTo(&record); err != nil {
		logger.Error("decodeSnapshot: Failed to decode document", zap.String("documentID", snap.Ref.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to decode document %s: %w", snap.Ref.ID, xerr.ErrDatabaseError)
	}
	record.ID = snap.Ref.ID
	return &record, nil
}

func decodeSnapshots(snaps []*firestore.DocumentSnapshot) ([]models.VersionRecord, error) {
	records := make([]models.VersionRecord, 0, len(snaps))
	for _, snap := range snaps {
		record, err := decodeSnapshot(snap)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

func sortByUploadDate(records []models.VersionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UploadDate.Before(records[j].UploadDate)
	})
}

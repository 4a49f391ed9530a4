package setup

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/3Eeeecho/go-docflow/internal/config"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FirebaseClients 同一个 App 派生的客户端，未启用的为 nil
type FirebaseClients struct {
	App       *firebase.App
	Firestore *firestore.Client
	Auth      *auth.Client
	Bucket    *gcs.BucketHandle
}

// InitFirebase 只创建配置中实际用到的客户端
func InitFirebase(ctx context.Context, cfg *config.Config) (*FirebaseClients, error) {
	fbCfg := &firebase.Config{
		ProjectID:     cfg.Firebase.ProjectID,
		StorageBucket: cfg.Firebase.StorageBucket,
	}

	var opts []option.ClientOption
	if cfg.Firebase.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsPath))
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	clients := &FirebaseClients{App: app}

	if cfg.Database.Type == config.DatabaseFirestore {
		if clients.Firestore, err = app.Firestore(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize firestore client: %w", err)
		}
		logger.Info("Firestore client initialized", zap.String("projectID", cfg.Firebase.ProjectID))
	}

	if cfg.Auth.Provider == config.AuthFirebase {
		if clients.Auth, err = app.Auth(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize firebase auth client: %w", err)
		}
		logger.Info("Firebase Auth client initialized")
	}

	if cfg.Storage.Type == config.StorageFirebase {
		st, err := app.Storage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize firebase storage client: %w", err)
		}
		if clients.Bucket, err = st.DefaultBucket(); err != nil {
			return nil, fmt.Errorf("failed to open default storage bucket: %w", err)
		}
		logger.Info("Firebase Storage bucket opened", zap.String("bucket", cfg.Firebase.StorageBucket))
	}

	return clients, nil
}

// Close 释放 Firestore 连接
func (f *FirebaseClients) Close() {
	if f == nil || f.Firestore == nil {
		return
	}
	if err := f.Firestore.Close(); err != nil {
		logger.Error("Close: Error closing Firestore client", zap.Error(err))
	}
}

package utils

import (
	"context"
	"errors"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/gracechurch/church-backend/config"
)

// ErrFirebaseDisabled is returned when no credentials are configured.
var ErrFirebaseDisabled = errors.New("firebase credentials not configured")

// InitFirebase builds an FCM client. A nil client with ErrFirebaseDisabled
// means FCM delivery is turned off, which is not fatal.
func InitFirebase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*messaging.Client, error) {
	// GOOGLE_APPLICATION_CREDENTIALS takes priority over FCM_CREDENTIALS_PATH
	credentialsPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	if credentialsPath == "" {
		credentialsPath = cfg.FCMCredentialsPath
	}
	if credentialsPath == "" {
		return nil, ErrFirebaseDisabled
	}
	if _, err := os.Stat(credentialsPath); err != nil {
		return nil, fmt.Errorf("firebase credentials file %s: %w", credentialsPath, err)
	}
	if cfg.FCMProjectID == "" {
		return nil, errors.New("FCM_PROJECT_ID is required for FCM")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FCMProjectID}, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("firebase app initialization: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("FCM client initialization: %w", err)
	}

	logger.Info("firebase messaging initialized", zap.String("project_id", cfg.FCMProjectID))
	return client, nil
}

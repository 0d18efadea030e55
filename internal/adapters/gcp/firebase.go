// Package gcp bootstraps the Firebase Admin app shared by the Firestore
// store and the Firebase identity provider.
package gcp

import (
	"context"
	"errors"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// ErrCredentials reports a missing or unreadable service account file.
var ErrCredentials = errors.New("firebase credentials unavailable")

// NewApp initialises a Firebase app from a service account key file.
// projectID may be empty, in which case it is read from the key file.
// When FIRESTORE_EMULATOR_HOST or FIREBASE_AUTH_EMULATOR_HOST is set the
// key file is optional.
func NewApp(ctx context.Context, credentialsFile, projectID string) (*firebase.App, error) {
	var opts []option.ClientOption
	switch {
	case usingEmulator() && !fileExists(credentialsFile):
		opts = append(opts, option.WithoutAuthentication())
	case credentialsFile == "":
		return nil, fmt.Errorf("%w: no credentials file configured", ErrCredentials)
	case !fileExists(credentialsFile):
		return nil, fmt.Errorf("%w: %s", ErrCredentials, credentialsFile)
	default:
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	return app, nil
}

func usingEmulator() bool {
	return os.Getenv("FIRESTORE_EMULATOR_HOST") != "" || os.Getenv("FIREBASE_AUTH_EMULATOR_HOST") != ""
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

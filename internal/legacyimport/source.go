package legacyimport

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/smallbiznis/statement/internal/config"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// DecodeFunc fills dst with the current document.
type DecodeFunc func(dst any) error

// Source walks every document of a collection.
type Source interface {
	Each(ctx context.Context, collection string, fn func(id string, decode DecodeFunc) error) error
}

type FirestoreSource struct {
	client *firestore.Client
}

// NewFirestoreSource connects with the configured project. A credentials
// file is optional; application default credentials are used otherwise.
func NewFirestoreSource(ctx context.Context, cfg config.FirestoreConfig) (*FirestoreSource, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("FIRESTORE_PROJECT_ID is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &FirestoreSource{client: client}, nil
}

func (s *FirestoreSource) Each(ctx context.Context, collection string, fn func(id string, decode DecodeFunc) error) error {
	iter := s.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", collection, err)
		}
		if err := fn(doc.Ref.ID, doc.DataTo); err != nil {
			return err
		}
	}
}

func (s *FirestoreSource) Close() error {
	return s.client.Close()
}

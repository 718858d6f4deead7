// Package store persists challenge documents in Firestore. The engine always
// writes whole documents (no partial patches) and reads them back through a
// live snapshot subscription, so the local copy is only ever a cache.
package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"tradeMonkAPI/internal/types/challenge"
)

const challengesCollection = "challenges"

type ChallengeStore struct {
	client *firestore.Client
}

// NewChallengeStore initializes the Firestore client. It first attempts to
// use credentials from the FIREBASE_SERVICE_ACCOUNT_JSON environment variable
// (Base64 encoded). If that's not found, it falls back to a local service
// account key file.
func NewChallengeStore(ctx context.Context, localFilePath string) (*ChallengeStore, error) {
	var opt option.ClientOption

	encodedCreds := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
	if encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials from FIREBASE_SERVICE_ACCOUNT_JSON: %v", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		log.Println("Challenge store: initializing from FIREBASE_SERVICE_ACCOUNT_JSON environment variable.")
	} else {
		if _, err := os.Stat(localFilePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("local firebase file not found: %s, and FIREBASE_SERVICE_ACCOUNT_JSON environment variable is not set", localFilePath)
		}
		opt = option.WithCredentialsFile(localFilePath)
		log.Printf("Challenge store: initializing from local file: %s.", localFilePath)
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %v", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %v", err)
	}

	return &ChallengeStore{client: client}, nil
}

func (s *ChallengeStore) Close() error {
	return s.client.Close()
}

// Create writes a brand-new challenge document keyed by its ID.
func (s *ChallengeStore) Create(ctx context.Context, ch *challenge.Challenge) error {
	_, err := s.client.Collection(challengesCollection).Doc(ch.ID).Create(ctx, ch)
	if err != nil {
		return fmt.Errorf("failed to create challenge %s: %w", ch.ID, err)
	}
	return nil
}

// Update replaces the whole document. Task-level mutations never patch
// individual fields; the engine always sends the full recomputed challenge.
func (s *ChallengeStore) Update(ctx context.Context, ch *challenge.Challenge) error {
	_, err := s.client.Collection(challengesCollection).Doc(ch.ID).Set(ctx, ch)
	if err != nil {
		return fmt.Errorf("failed to update challenge %s: %w", ch.ID, err)
	}
	return nil
}

// ActiveForUser fetches the user's active challenge, or nil when there is
// none.
func (s *ChallengeStore) ActiveForUser(ctx context.Context, userID string) (*challenge.Challenge, error) {
	iter := s.client.Collection(challengesCollection).
		Where("userId", "==", userID).
		Where("status", "==", string(challenge.StatusActive)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active challenge for %s: %w", userID, err)
	}

	var ch challenge.Challenge
	if err := doc.DataTo(&ch); err != nil {
		return nil, fmt.Errorf("failed to decode challenge document: %w", err)
	}
	return &ch, nil
}

// ListByUser returns every challenge the user ever ran, newest first.
// Superseded and aborted challenges stay queryable as history.
func (s *ChallengeStore) ListByUser(ctx context.Context, userID string) ([]*challenge.Challenge, error) {
	iter := s.client.Collection(challengesCollection).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var out []*challenge.Challenge
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list challenges for %s: %w", userID, err)
		}
		var ch challenge.Challenge
		if err := doc.DataTo(&ch); err != nil {
			return nil, fmt.Errorf("failed to decode challenge document: %w", err)
		}
		out = append(out, &ch)
	}
	return out, nil
}

// Subscribe watches the user's active challenge and invokes onChange with
// the authoritative copy after every remote write (nil when no challenge is
// active). The returned function stops the listener.
func (s *ChallengeStore) Subscribe(userID string, onChange func(*challenge.Challenge)) func() {
	ctx, cancel := context.WithCancel(context.Background())

	snapIter := s.client.Collection(challengesCollection).
		Where("userId", "==", userID).
		Where("status", "==", string(challenge.StatusActive)).
		Limit(1).
		Snapshots(ctx)

	go func() {
		defer snapIter.Stop()
		for {
			snap, err := snapIter.Next()
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("Challenge store: subscription for %s ended: %v", userID, err)
				}
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				log.Printf("Challenge store: failed to read snapshot for %s: %v", userID, err)
				continue
			}
			if len(docs) == 0 {
				onChange(nil)
				continue
			}

			var ch challenge.Challenge
			if err := docs[0].DataTo(&ch); err != nil {
				log.Printf("Challenge store: failed to decode snapshot for %s: %v", userID, err)
				continue
			}
			onChange(&ch)
		}
	}()

	return cancel
}

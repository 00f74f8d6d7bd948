package catalog

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"galleria/internal/database"
	"galleria/internal/metrics"
)

// IssueShareToken mints a fresh share token for a record and stores it,
// replacing any previous token. The old token stops resolving immediately;
// a record has at most one live share link.
func (c *Coordinator) IssueShareToken(ctx context.Context, id int64) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate share token: %w", err)
	}
	token := hex.EncodeToString(raw)

	err := c.db.SetShareToken(ctx, id, token)
	if errors.Is(err, database.ErrNotFound) {
		return "", &NotFoundError{Resource: "media", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return "", &PersistenceError{Op: "failed to store share token", Err: err}
	}

	return token, nil
}

// ResolveShareToken looks up the record a share token points at. Unknown
// tokens and tokens whose record has been hidden both come back not found,
// indistinguishably.
func (c *Coordinator) ResolveShareToken(ctx context.Context, token string) (*database.MediaItem, error) {
	if token == "" {
		metrics.ShareLookupsTotal.WithLabelValues("miss").Inc()
		return nil, &NotFoundError{Resource: "share", ID: token}
	}

	item, err := c.db.GetMediaByShareToken(ctx, token)
	if errors.Is(err, database.ErrNotFound) {
		metrics.ShareLookupsTotal.WithLabelValues("miss").Inc()
		return nil, &NotFoundError{Resource: "share", ID: token}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "failed to resolve share token", Err: err}
	}

	metrics.ShareLookupsTotal.WithLabelValues("hit").Inc()
	return item, nil
}

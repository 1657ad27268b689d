package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/dataport/internal/config"
	"github.com/JonMunkholm/dataport/internal/core"
	"github.com/JonMunkholm/dataport/internal/logging"
	"github.com/google/uuid"
)

// Identity returns middleware that resolves the request owner from the
// X-API-Key header and stores it with core.ContextWithOwner.
//
// If RequireAPIKey is false, requests without a key act as DefaultOwner.
// A key that is present but unknown is always rejected.
func Identity(cfg *config.SecurityConfig) (func(http.Handler) http.Handler, error) {
	owners, err := cfg.KeyOwners()
	if err != nil {
		return nil, err
	}
	keys := make([]apiKey, 0, len(owners))
	for k, owner := range owners {
		keys = append(keys, apiKey{key: []byte(k), owner: owner})
	}
	fallback := cfg.DefaultOwnerID()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var owner uuid.UUID

			presented := r.Header.Get("X-API-Key")
			switch {
			case presented == "" && cfg.RequireAPIKey:
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized: missing API key", "AUTH001")
				return

			case presented == "":
				owner = fallback

			default:
				var ok bool
				owner, ok = lookupOwner(presented, keys)
				if !ok {
					slog.Warn("auth: invalid API key",
						"path", r.URL.Path,
						"method", r.Method,
						"remote_addr", r.RemoteAddr,
					)
					writeJSONError(w, http.StatusForbidden, "unauthorized: invalid API key", "AUTH001")
					return
				}
			}

			ctx := core.ContextWithOwner(r.Context(), owner)
			ctx = logging.ContextWith(ctx, "owner_id", owner.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}, nil
}

type apiKey struct {
	key   []byte
	owner uuid.UUID
}

// lookupOwner finds the owner of key.
// Uses constant-time comparison and checks ALL keys so the comparison time
// does not depend on which key matches.
func lookupOwner(key string, keys []apiKey) (uuid.UUID, bool) {
	var owner uuid.UUID
	found := 0
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(key), k.key) == 1 {
			owner = k.owner
			found = 1
		}
	}
	return owner, found == 1
}

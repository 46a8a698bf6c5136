package mw

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	svix "github.com/svix/svix-webhooks/go"
)

// maxWebhookBody caps inbound webhook payloads.
const maxWebhookBody = 65536

// vonageClaims is the JWT payload Vonage signs webhooks with. PayloadHash,
// when present, is the SHA-256 of the raw request body.
type vonageClaims struct {
	PayloadHash string `json:"payload_hash,omitempty"`
	jwt.RegisteredClaims
}

// VonageJWT verifies the HS256 bearer token Vonage attaches to webhook
// deliveries. When the token carries a payload_hash claim it must match the
// SHA-256 of the raw body, which binds the signature to this exact payload.
// The body is re-readable by the next handler.
func VonageJWT(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			token, err := jwt.ParseWithClaims(tokenString, &vonageClaims{}, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil {
				logger.Warn("webhook token rejected", "error", err)
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}
			claims, ok := token.Claims.(*vonageClaims)
			if !ok || !token.Valid {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
			payload, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_input", "failed to read request body")
				return
			}

			if claims.PayloadHash != "" && !payloadHashMatches(claims.PayloadHash, payload) {
				logger.Warn("webhook payload hash mismatch")
				writeError(w, http.StatusUnauthorized, "unauthorized", "payload hash mismatch")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(payload))
			next.ServeHTTP(w, r)
		})
	}
}

// payloadHashMatches compares a claimed digest against the body's SHA-256.
// Senders encode the digest as hex, base64, or base64url, padded or not.
func payloadHashMatches(claimed string, payload []byte) bool {
	sum := sha256.Sum256(payload)
	decoders := []func(string) ([]byte, error){
		hex.DecodeString,
		base64.StdEncoding.DecodeString,
		base64.RawStdEncoding.DecodeString,
		base64.URLEncoding.DecodeString,
		base64.RawURLEncoding.DecodeString,
	}
	for _, decode := range decoders {
		digest, err := decode(claimed)
		if err != nil {
			continue
		}
		if hmac.Equal(digest, sum[:]) {
			return true
		}
	}
	return false
}

// SvixVerify verifies svix signature headers on relay webhook deliveries and
// leaves the body re-readable for the handler.
func SvixVerify(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
			payload, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_input", "failed to read request body")
				return
			}

			headers := http.Header{}
			headers.Set("svix-id", r.Header.Get("svix-id"))
			headers.Set("svix-timestamp", r.Header.Get("svix-timestamp"))
			headers.Set("svix-signature", r.Header.Get("svix-signature"))

			wh, err := svix.NewWebhook(secret)
			if err != nil {
				logger.Error("failed to create webhook verifier", "error", err)
				writeError(w, http.StatusInternalServerError, "internal", "webhook verifier unavailable")
				return
			}
			if err := wh.Verify(payload, headers); err != nil {
				logger.Warn("webhook signature rejected", "error", err)
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid signature")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(payload))
			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes the API error body shape from raw middleware.
func writeError(w http.ResponseWriter, status int, kind, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"ok":false,"error":%q,"detail":%q}`, kind, detail)
}

package pay

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"shophub/apperr"
	"shophub/models"
	"shophub/store"
	"shophub/utils"

	"github.com/julienschmidt/httprouter"
)

// IdempotencyTTL is how long a recorded response can be replayed.
const IdempotencyTTL = 24 * time.Hour

func computeRequestHash(r *http.Request, bodyBytes []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(bodyBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// CaptureResponseWriter wraps http.ResponseWriter to capture status and body.
type CaptureResponseWriter struct {
	w           http.ResponseWriter
	statusCode  int
	buf         bytes.Buffer
	wroteHeader bool
}

func NewCaptureResponseWriter(w http.ResponseWriter) *CaptureResponseWriter {
	return &CaptureResponseWriter{w: w, statusCode: http.StatusOK}
}

func (c *CaptureResponseWriter) Header() http.Header {
	return c.w.Header()
}

func (c *CaptureResponseWriter) WriteHeader(statusCode int) {
	if !c.wroteHeader {
		c.statusCode = statusCode
		c.w.WriteHeader(statusCode)
		c.wroteHeader = true
	}
}

func (c *CaptureResponseWriter) Write(b []byte) (int, error) {
	c.wroteHeader = true
	c.buf.Write(b)
	return c.w.Write(b)
}

func (c *CaptureResponseWriter) Status() int { return c.statusCode }

func (c *CaptureResponseWriter) BodyBytes() []byte { return c.buf.Bytes() }

// Idempotency replays the first response recorded for an Idempotency-Key.
//
//   - No header: pass-through.
//   - New key: run the handler and record its response if it succeeded.
//   - Known key, different payload: 409.
//   - Known key with a recorded response: replay it.
//   - Known key still in flight: 409, the client should retry later.
type Idempotency struct {
	records store.IdempotencyStore
	now     func() time.Time
}

func NewIdempotency(records store.IdempotencyStore) *Idempotency {
	return &Idempotency{records: records, now: time.Now}
}

func (m *Idempotency) Wrap(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			next(w, r, ps)
			return
		}

		userID := utils.GetUserIDFromRequest(r)

		bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		reqHash := computeRequestHash(r, bodyBytes, userID)
		now := m.now()
		// Scope the key to the caller so two users cannot collide.
		scoped := userID + ":" + key
		rec := models.IdempotencyRecord{
			Key:         scoped,
			Method:      r.Method,
			Path:        r.URL.Path,
			UserID:      userID,
			RequestHash: reqHash,
			CreatedAt:   now,
			ExpiresAt:   now.Add(IdempotencyTTL),
		}

		ctx := r.Context()
		fresh, err := m.records.Reserve(ctx, rec)
		if err != nil {
			log.Printf("idempotency reserve %s: %v", key, err)
			utils.RespondWithError(w, http.StatusInternalServerError, "idempotency lookup error")
			return
		}
		if fresh {
			crw := NewCaptureResponseWriter(w)
			next(crw, r, ps)
			if crw.Status() >= http.StatusInternalServerError {
				if err := m.records.Release(ctx, scoped); err != nil {
					log.Printf("idempotency release %s: %v", key, err)
				}
				return
			}

			var parsed any
			if err := json.Unmarshal(crw.BodyBytes(), &parsed); err != nil {
				parsed = string(crw.BodyBytes())
			}
			response := map[string]any{"status": crw.Status(), "body": parsed}
			if err := m.records.Complete(ctx, scoped, response); err != nil {
				log.Printf("idempotency complete %s: %v", key, err)
			}
			return
		}

		existing, err := m.records.Find(ctx, scoped)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				// Expired between Reserve and Find.
				next(w, r, ps)
				return
			}
			utils.RespondWithError(w, http.StatusInternalServerError, "idempotency lookup error")
			return
		}
		if existing.RequestHash != reqHash {
			utils.RespondWithError(w, http.StatusConflict, "idempotency-key conflict")
			return
		}
		if existing.Response == nil {
			utils.RespondWithError(w, http.StatusConflict, "request with this idempotency-key is in progress")
			return
		}

		w.Header().Set("Idempotent-Replayed", "true")
		utils.RespondWithJSON(w, statusOf(existing.Response["status"]), existing.Response["body"])
	}
}

func statusOf(v any) int {
	switch s := v.(type) {
	case int:
		return s
	case int32:
		return int(s)
	case int64:
		return int(s)
	case float64:
		return int(s)
	}
	return http.StatusOK
}

package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/go-redis/redismock/v9"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func asActor(r *http.Request, id int64) *http.Request {
	return r.WithContext(internal.ContextWithActorID(r.Context(), id))
}

var _ = Describe("Idempotency", func() {
	const (
		cacheKey = "idemp:/api/v1/documents:5:abc"
		lockKey  = cacheKey + ":lock"
		ttl      = time.Hour
	)

	var (
		mock  redismock.ClientMock
		h     http.Handler
		calls int
		code  int
	)

	BeforeEach(func() {
		db, m := redismock.NewClientMock()
		mock = m
		calls = 0
		code = http.StatusCreated
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"id":1}`))
		})
		h = Idempotency(db, ttl, quietLogger)(next)
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	newRequest := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/documents", nil)
		r.Header.Set(IdempotencyKeyHeader, "abc")
		return asActor(r, 5)
	}

	stored := func(status int) string {
		b, _ := json.Marshal(storedResponse{Status: status, ContentType: "application/json", Body: `{"id":1}`})
		return string(b)
	}

	It("stores the first response and releases the lock", func() {
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(lockKey, "1", idempotencyLockTTL).SetVal(true)
		mock.ExpectSet(cacheKey, stored(http.StatusCreated), ttl).SetVal("OK")
		mock.ExpectDel(lockKey).SetVal(1)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newRequest())

		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(calls).To(Equal(1))
	})

	It("replays a completed response without running the handler", func() {
		mock.ExpectGet(cacheKey).SetVal(stored(http.StatusCreated))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newRequest())

		Expect(calls).To(BeZero())
		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(rec.Header().Get(IdempotentReplayHeader)).To(Equal("true"))
		Expect(rec.Body.String()).To(Equal(`{"id":1}`))
	})

	It("refuses a duplicate while the first is in flight", func() {
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(lockKey, "1", idempotencyLockTTL).SetVal(false)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newRequest())

		Expect(calls).To(BeZero())
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(rec.Body.String()).To(ContainSubstring(string(internal.ErrCodeRequestInProgress)))
	})

	It("does not remember server errors", func() {
		code = http.StatusServiceUnavailable
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(lockKey, "1", idempotencyLockTTL).SetVal(true)
		mock.ExpectDel(lockKey).SetVal(1)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newRequest())
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("passes through when redis is down", func() {
		mock.ExpectGet(cacheKey).SetErr(errors.New("connection refused"))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newRequest())
		Expect(calls).To(Equal(1))
		Expect(rec.Code).To(Equal(http.StatusCreated))
	})

	It("ignores requests without a key", func() {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, asActor(httptest.NewRequest(http.MethodPost, "/api/v1/documents", nil), 5))
		Expect(calls).To(Equal(1))
	})
})

var _ = Describe("RateLimit", func() {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	It("throttles each employee separately", func() {
		h := RateLimit(1, 2)(ok)
		hit := func(actor int64) int {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, asActor(httptest.NewRequest(http.MethodGet, "/", nil), actor))
			return rec.Code
		}

		Expect(hit(1)).To(Equal(http.StatusOK))
		Expect(hit(1)).To(Equal(http.StatusOK))
		Expect(hit(1)).To(Equal(http.StatusTooManyRequests))
		Expect(hit(2)).To(Equal(http.StatusOK))
	})

	It("is disabled by a zero rate", func() {
		h := RateLimit(0, 0)(ok)
		for i := 0; i < 10; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
		}
	})
})

var _ = Describe("CORS", func() {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	It("answers preflight for an allowed origin", func() {
		r := httptest.NewRequest(http.MethodOptions, "/api/v1/documents", nil)
		r.Header.Set("Origin", "https://portal.example.com")
		r.Header.Set("Access-Control-Request-Method", "POST")
		r.Header.Set("Access-Control-Request-Headers", IdempotencyKeyHeader)
		rec := httptest.NewRecorder()

		CORS([]string{"https://portal.example.com/"})(next).ServeHTTP(rec, r)

		Expect(rec.Code).To(BeNumerically("<", 300))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://portal.example.com"))
		Expect(rec.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring("POST"))
		Expect(rec.Header().Get("Access-Control-Allow-Headers")).To(ContainSubstring(IdempotencyKeyHeader))
	})

	It("exposes the request id on simple requests", func() {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
		r.Header.Set("Origin", "https://portal.example.com")
		rec := httptest.NewRecorder()

		CORS([]string{"*"})(next).ServeHTTP(rec, r)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).NotTo(BeEmpty())
		Expect(rec.Header().Get("Access-Control-Expose-Headers")).To(ContainSubstring(RequestIDHeader))
	})

	It("leaves other origins without allow headers", func() {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
		r.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()

		CORS([]string{"https://portal.example.com"})(next).ServeHTTP(rec, r)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})
})

var _ = Describe("Recovery", func() {
	It("turns a panic into a 500 error body", func() {
		boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") })
		rec := httptest.NewRecorder()

		RecoveryMiddleware(quietLogger)(boom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).To(ContainSubstring("INTERNAL_ERROR"))
	})
})

var _ = Describe("RequestID", func() {
	It("echoes an incoming id", func() {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, "req-42")
		rec := httptest.NewRecorder()

		RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, r)

		Expect(rec.Header().Get(RequestIDHeader)).To(Equal("req-42"))
	})
})

var _ = Describe("log filtering", func() {
	It("masks secrets in JSON bodies", func() {
		out := filterSensitiveBody([]byte(`{"email":"a@b.c","password":"hunter2","nested":{"refresh_token":"x"}}`))
		Expect(out).NotTo(ContainSubstring("hunter2"))
		Expect(out).To(ContainSubstring(`"email":"a@b.c"`))
		Expect(out).To(ContainSubstring(`"refresh_token":"[FILTERED]"`))
	})

	It("masks authorization headers", func() {
		h := http.Header{}
		h.Set("Authorization", "Bearer abc")
		h.Set("Accept", "application/json")
		filtered := filterSensitiveHeaders(h)
		Expect(filtered["Authorization"]).To(Equal("[FILTERED]"))
		Expect(filtered["Accept"]).To(Equal("application/json"))
	})
})

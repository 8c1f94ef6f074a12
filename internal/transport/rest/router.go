package rest

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/auth"
	"github.com/frahmantamala/approval-portal/internal/document"
	"github.com/frahmantamala/approval-portal/internal/employee"
	"github.com/frahmantamala/approval-portal/internal/export"
	"github.com/frahmantamala/approval-portal/internal/leave"
	"github.com/frahmantamala/approval-portal/internal/room"
	"github.com/frahmantamala/approval-portal/internal/transport/middleware"
	"github.com/frahmantamala/approval-portal/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Handlers bundles every feature handler mounted under /api/v1. A nil handler
// leaves its routes unmounted.
type Handlers struct {
	Auth     *auth.Handler
	RBAC     *auth.RBACAuthorization
	Employee *employee.Handler
	Document *document.Handler
	Leave    *leave.Handler
	Room     *room.Handler
	Reports  *export.Handler
}

type Options struct {
	DB             *sqlx.DB
	Redis          redis.Cmdable
	Spec           *swagger.Spec
	AllowedOrigins string
	RateLimit      internal.RateLimitConfig
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	healthHandler := NewHealthHandler(opts.DB, opts.Redis)

	router.Use(middleware.CORS(splitOrigins(opts.AllowedOrigins)))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.NotFound(NotFound)

	if opts.Spec != nil {
		router.Handle("/openapi.yml", opts.Spec)
		router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))
	}

	idempotent := middleware.Idempotency(opts.Redis, opts.IdempotencyTTL, logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Use(middleware.RateLimit(opts.RateLimit.RequestsPerSecond, opts.RateLimit.Burst))
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			pr.Use(middleware.ActorContext)
			pr.Use(middleware.RateLimit(opts.RateLimit.RequestsPerSecond, opts.RateLimit.Burst))

			if h.Employee != nil {
				pr.Get("/employees/me", h.Employee.GetCurrent)
				pr.Get("/employees/{id}", h.Employee.Get)
				pr.Get("/org/tree", h.Employee.OrgTree)
			}

			if h.Document != nil {
				pr.Route("/documents", func(dr chi.Router) {
					dr.With(idempotent).Post("/", h.Document.Submit)
					dr.Get("/", h.Document.ListMine)
					dr.Post("/drafts", h.Document.CreateDraft)
					dr.Get("/references", h.Document.ListReferences)
					dr.Get("/inbox", h.Document.Inbox)
					dr.Get("/chain-proposal", h.Document.ProposeChain)
					dr.With(idempotent).Post("/bulk-approve", h.Document.BulkApprove)

					dr.Route("/{id}", func(ir chi.Router) {
						ir.Get("/", h.Document.Get)
						ir.Put("/", h.Document.UpdateDraft)
						ir.With(idempotent).Post("/submit", h.Document.SubmitDraft)
						ir.Get("/linked", h.Document.GetLinked)
						ir.Get("/history", h.Document.History)
						ir.Get("/export", h.Document.Export)
						ir.Post("/withdraw", h.Document.Withdraw)
						ir.Post("/read", h.Document.MarkRead)
						ir.Post("/attachments", h.Document.UploadAttachment)
						ir.Get("/attachments/{attachmentID}", h.Document.DownloadAttachment)
						ir.Post("/steps/{stepID}/approve", h.Document.Approve)
						ir.Post("/steps/{stepID}/reject", h.Document.Reject)
						ir.Post("/steps/{stepID}/delegate", h.Document.Delegate)
					})
				})
			}

			if h.Leave != nil {
				pr.Route("/leave", func(lr chi.Router) {
					lr.Get("/balance", h.Leave.GetMyBalance)
					lr.Post("/quote", h.Leave.Quote)
					if h.RBAC != nil {
						lr.With(h.RBAC.RequireViewReports()).Get("/balances", h.Leave.ListBalances)
						lr.With(h.RBAC.RequireAdmin()).Post("/balances/grant", h.Leave.GrantYear)
					}
				})
			}

			if h.Room != nil {
				pr.Route("/rooms", func(rr chi.Router) {
					rr.Get("/", h.Room.ListRooms)
					if h.RBAC != nil {
						rr.With(h.RBAC.RequireManageRooms()).Post("/", h.Room.CreateRoom)
					}
					rr.Get("/availability", h.Room.Availability)
					rr.Get("/bookings/mine", h.Room.MyBookings)
					rr.With(idempotent).Post("/bookings", h.Room.Book)
					rr.Delete("/bookings/{id}", h.Room.Cancel)
				})
			}

			if h.Reports != nil && h.RBAC != nil {
				pr.With(h.RBAC.RequireViewReports()).Get("/reports/leave-usage", h.Reports.LeaveUsage)
			}
		})
	})
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// NotFound answers unknown routes with the standard error body.
func NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":{"type":"NOT_FOUND","code":"ROUTE_NOT_FOUND","message":"route not found"}}`))
}

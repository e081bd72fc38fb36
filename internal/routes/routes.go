package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tpc-global/tpc_portal/internal/config"
	"github.com/tpc-global/tpc_portal/internal/i18n"
	"github.com/tpc-global/tpc_portal/internal/invoice"
	"github.com/tpc-global/tpc_portal/internal/middleware"
	"github.com/tpc-global/tpc_portal/internal/notification"
	"github.com/tpc-global/tpc_portal/internal/presale"
	"github.com/tpc-global/tpc_portal/internal/rates"
	"github.com/tpc-global/tpc_portal/internal/referral"
	"github.com/tpc-global/tpc_portal/internal/rpc"
	"github.com/tpc-global/tpc_portal/internal/session"
	"github.com/tpc-global/tpc_portal/internal/storage"
	"github.com/tpc-global/tpc_portal/internal/withdrawal"
)

const apiPrefix = "/api/v1"

// Enqueuer accepts best-effort notifications.
type Enqueuer interface {
	Enqueue(message notification.Message) error
}

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg        config.Config
	DB         *pgxpool.Pool
	Cache      *redis.Client
	Logger     *slog.Logger
	Notifier   Enqueuer
	HTTPClient *http.Client
}

// Services are the long-lived components main drives outside of requests.
type Services struct {
	Catalog     *i18n.Catalog
	Presale     *presale.Service
	Rates       *rates.Provider
	Invoices    *invoice.Service
	Withdrawals *withdrawal.Service
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (*Services, error) {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}

	svc, err := build(d)
	if err != nil {
		return nil, err
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	RegisterHealthRoutes(app, d)

	api := app.Group(apiPrefix)
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	lang := api.Group("/:lang",
		middleware.Language(apiPrefix),
		middleware.ClientCookie(!d.Cfg.IsDev()),
		middleware.Audit(d.Logger),
	)

	var revoker session.Revoker = session.NewMemoryRevoker()
	if d.Cache != nil {
		revoker = session.NewRedisRevoker(d.Cache)
	}
	verifier := session.NewVerifier(d.Cfg.JWTSecret, revoker)
	requireSession := middleware.RequireSession(verifier, svc.Catalog)

	invoiceHandler := invoice.NewHandler(svc.Invoices, svc.Catalog, d.Logger)
	withdrawalHandler := withdrawal.NewHandler(svc.Withdrawals, svc.Catalog, d.Logger)

	// Public routes
	RegisterPortalRoutes(lang, svc.Services, svc.referral)
	lang.Post("/quote", invoiceHandler.Quote)
	lang.Post("/orders/validate", invoiceHandler.Validate)

	// Admin routes
	admin := lang.Group("/admin", requireSession, middleware.RequireAdmin(svc.Catalog))
	RegisterInvoiceAdminRoutes(admin, invoiceHandler)
	RegisterWithdrawalAdminRoutes(admin, withdrawalHandler)

	// Member routes
	member := lang.Group("", requireSession)
	RegisterInvoiceRoutes(member, invoiceHandler,
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
		middleware.SubmitRateLimit(d.Cache, d.Cfg.SubmitRatePerMin, svc.Catalog),
	)
	member.Get("/withdrawals", withdrawalHandler.List)
	RegisterSessionRoutes(member, svc.Catalog)

	return svc.Services, nil
}

type built struct {
	*Services
	referral *referral.Resolver
}

// build picks backend or in-memory implementations for every service.
func build(d Deps) (built, error) {
	catalog, err := i18n.Load()
	if err != nil {
		return built{}, fmt.Errorf("load copy: %w", err)
	}
	if d.Cfg.IsDev() {
		for _, lang := range i18n.Supported {
			for _, issue := range catalog.Issues(lang) {
				d.Logger.Warn("copy shape issue", slog.String("lang", string(lang)), slog.String("issue", issue.String()))
			}
			if missing := catalog.MissingKeys(lang); len(missing) > 0 {
				d.Logger.Warn("copy falls back to english", slog.String("lang", string(lang)), slog.Int("missing_keys", len(missing)))
			}
		}
	}

	var caller rpc.Caller
	if d.DB != nil {
		caller = rpc.NewClient(d.DB)
	}

	launch := d.Cfg.PresaleStart
	// config.Load requires PRESALE_START outside development.
	if launch.IsZero() {
		launch = time.Now().UTC().Truncate(24 * time.Hour)
	}
	presaleSvc := presale.NewService(caller, launch, d.Cfg.MinOrderUSD, d.Cfg.MinOrderTPC, d.Logger)

	source := rates.NewHTTPSource(d.Cfg.FiatRatesURL, d.Cfg.SolRatesURL, d.HTTPClient, d.Cfg.RatesRefreshInterval)
	rateProvider := rates.NewProvider(source, d.Cache, rates.Fallback{
		IDRPerUSD: d.Cfg.IDRPerUSDFallback,
		SOLUSD:    d.Cfg.SOLUSDFallback,
	}, d.Cfg.RatesRefreshInterval, d.Logger)

	var store referral.Store = referral.NewMemoryStore()
	if d.Cache != nil {
		store = referral.NewRedisStore(d.Cache)
	}
	resolver := referral.NewResolver(store, caller, d.Cfg.FallbackSponsorCode, d.Logger)

	var bucket storage.Bucket = storage.NewMemoryBucket("http://localhost" + d.Cfg.Address() + "/proofs")
	if d.Cfg.SupabaseURL != "" {
		bucket = storage.NewHTTPBucket(d.Cfg.SupabaseURL, d.Cfg.ProofBucket, d.Cfg.SupabaseAnonKey, d.HTTPClient)
	}

	var invoiceRepo invoice.Repository
	var withdrawalRepo withdrawal.Repository
	if caller != nil {
		invoiceRepo = invoice.NewPostgresRepository(caller)
		withdrawalRepo = withdrawal.NewPostgresRepository(caller)
	} else {
		invoiceRepo = invoice.NewMemoryRepository()
		withdrawalRepo = withdrawal.NewMemoryRepository()
	}

	invoiceSvc := invoice.NewService(invoice.Deps{
		Repo:     invoiceRepo,
		Cache:    invoice.NewCache(d.Cache),
		Presale:  presaleSvc,
		Rates:    rateProvider,
		Referral: resolver,
		Bucket:   bucket,
		Notifier: d.Notifier,
		Payment:  invoice.PaymentTarget{Treasury: d.Cfg.TreasuryWallet, USDCMint: d.Cfg.USDCMint},
		Logger:   d.Logger,
	})

	return built{
		Services: &Services{
			Catalog:     catalog,
			Presale:     presaleSvc,
			Rates:       rateProvider,
			Invoices:    invoiceSvc,
			Withdrawals: withdrawal.NewService(withdrawalRepo, d.Notifier, d.Logger),
		},
		referral: resolver,
	}, nil
}

// RegisterInvoiceRoutes wires the member invoice endpoints. submit runs
// before invoice creation only.
func RegisterInvoiceRoutes(r fiber.Router, h *invoice.Handler, submit ...fiber.Handler) {
	r.Post("/invoices", append(submit, h.Submit)...)
	r.Get("/invoices", h.List)
	r.Get("/invoices/stream", h.Stream)
	r.Get("/invoices/:id", h.Get)
	r.Post("/invoices/:id/proof", h.UploadProof)
	r.Get("/invoices/:id/qr.png", h.PaymentQR)
}

// RegisterInvoiceAdminRoutes wires invoice review endpoints.
func RegisterInvoiceAdminRoutes(r fiber.Router, h *invoice.Handler) {
	r.Get("/invoices/:id", h.AdminGet)
	r.Post("/invoices/:id/approve", h.Approve)
	r.Post("/invoices/:id/reject", h.Reject)
}

// RegisterWithdrawalAdminRoutes wires withdrawal review endpoints.
func RegisterWithdrawalAdminRoutes(r fiber.Router, h *withdrawal.Handler) {
	r.Get("/withdrawals", h.AdminList)
	r.Post("/withdrawals/:id/approve", h.Approve)
	r.Post("/withdrawals/:id/reject", h.Reject)
	r.Get("/withdrawals/:id/audit", h.AuditLogs)
}

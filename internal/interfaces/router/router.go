package router

import (
	"net/http"

	assetssvc "fracshare-backend/internal/application/assets"
	authsvc "fracshare-backend/internal/application/auth"
	eventssvc "fracshare-backend/internal/application/events"
	leasesvc "fracshare-backend/internal/application/leaseintent"
	ledgersvc "fracshare-backend/internal/application/ledger"
	registrysvc "fracshare-backend/internal/application/registry"
	revenuesvc "fracshare-backend/internal/application/revenue"
	salebooksvc "fracshare-backend/internal/application/salebook"
	vaultsvc "fracshare-backend/internal/application/vault"
	"fracshare-backend/internal/config"
	"fracshare-backend/internal/infrastructure/database"
	assetshandler "fracshare-backend/internal/interfaces/handlers/assets"
	authhandler "fracshare-backend/internal/interfaces/handlers/auth"
	eventshandler "fracshare-backend/internal/interfaces/handlers/events"
	healthhandler "fracshare-backend/internal/interfaces/handlers/health"
	leaseshandler "fracshare-backend/internal/interfaces/handlers/leases"
	ledgerhandler "fracshare-backend/internal/interfaces/handlers/ledger"
	payhandler "fracshare-backend/internal/interfaces/handlers/payments"
	registryhandler "fracshare-backend/internal/interfaces/handlers/registry"
	revenuehandler "fracshare-backend/internal/interfaces/handlers/revenue"
	salebookhandler "fracshare-backend/internal/interfaces/handlers/salebook"
	vaulthandler "fracshare-backend/internal/interfaces/handlers/vault"
	"fracshare-backend/internal/middleware"
	"fracshare-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	// Registered before the session middleware so nothing consumes the raw
	// body Stripe signs.
	stripeWebhook := &payhandler.WebhookHandler{WebhookSecret: cfg.StripeWebhookSecret}
	app.Post("/api/v1/stripe/webhook", func(c *fiber.Ctx) error {
		return stripeWebhook.HandleWebhook(c)
	})

	sessionHandler, rdb, err := middleware.Session(middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	})
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{Rdb: rdb}
	app.Get("/health/json", hh.JSON)

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, nil, errDB
		}
		hh.DB = &gormDBPinger{db: db}
	}

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}

	var userFinder authsvc.UserFinder
	if db != nil {
		userFinder = &authsvc.GormUserFinder{DB: db}
	}
	ah := &authhandler.Handlers{
		UserFinder: userFinder,
		DB:         db,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)
	authGroup.Post("/register", middleware.RequireAuth(), middleware.AuthorizePermission(constants.RegisterUser), ah.Register)

	if db != nil && rdb != nil {
		evs := &eventssvc.Service{DB: db, Rdb: rdb}
		ledger := &ledgersvc.Service{DB: db}
		vault := &vaultsvc.Service{DB: db}
		registry := &registrysvc.Service{DB: db}
		assets := &assetssvc.Service{DB: db, Ledger: ledger, Events: evs, DefaultAuthority: cfg.DistributorAddress}
		intents := &leasesvc.Service{DB: db, Schemas: registry}
		revenue := &revenuesvc.Service{
			DB:        db,
			Ledger:    ledger,
			Vault:     vault,
			Events:    evs,
			Authority: cfg.DistributorAddress,
		}
		salebook := &salebooksvc.Service{
			DB:      db,
			Ledger:  ledger,
			Vault:   vault,
			Intents: intents,
			Revenue: revenue,
			Events:  evs,
		}

		stripeWebhook.DB = db
		stripeWebhook.Vault = vault
		stripeWebhook.Events = evs

		// Registry
		regh := &registryhandler.Handlers{Service: registry}
		regg := app.Group("/api/v1/registry", middleware.RequireAuth())
		regg.Post("/asset-types", middleware.AuthorizePermission(constants.CreateAssetType), regh.CreateAssetType)
		regg.Get("/asset-types/:type_id", middleware.AuthorizePermission(constants.ViewData), regh.GetAssetType)

		// Assets
		assh := &assetshandler.Handlers{Service: assets}
		evh := &eventshandler.Handlers{Service: evs}
		sbh := &salebookhandler.Handlers{Service: salebook}
		revh := &revenuehandler.Handlers{Service: revenue}
		ag := app.Group("/api/v1/assets", middleware.RequireAuth())
		ag.Post("/", middleware.AuthorizePermission(constants.IssueAsset), assh.Issue)
		ag.Get("/", middleware.AuthorizePermission(constants.ViewData), assh.List)
		ag.Get("/:asset_id", middleware.AuthorizePermission(constants.ViewData), assh.Get)
		ag.Get("/:asset_id/listings", middleware.AuthorizePermission(constants.ViewData), sbh.AssetListings)
		ag.Get("/:asset_id/revenue-rounds", middleware.AuthorizePermission(constants.ViewData), revh.AssetRounds)
		ag.Get("/:asset_id/events", middleware.AuthorizePermission(constants.ViewData), evh.AssetEvents)

		// Ledger
		ldh := &ledgerhandler.Handlers{Service: ledger}
		ldg := app.Group("/api/v1/ledger", middleware.RequireAuth())
		ldg.Post("/transfer", middleware.AuthorizePermission(constants.TransferUnits), ldh.Transfer)
		ldg.Post("/create-checkpoint", middleware.AuthorizePermission(constants.CreateCheckpoint), ldh.CreateCheckpoint)
		ldg.Get("/balance/:asset_id", middleware.AuthorizePermission(constants.ViewData), ldh.Balance)
		ldg.Get("/balance-at", middleware.AuthorizePermission(constants.ViewData), ldh.BalanceAt)
		ldg.Get("/supply-at", middleware.AuthorizePermission(constants.ViewData), ldh.SupplyAt)
		ldg.Get("/holdings/:asset_id", middleware.AuthorizePermission(constants.ViewData), ldh.Holdings)

		// Vault
		vh := &vaulthandler.Handlers{Service: vault}
		vg := app.Group("/api/v1/vault", middleware.RequireAuth())
		vg.Post("/deposit", middleware.AuthorizePermission(constants.DepositFunds), vh.Deposit)
		vg.Post("/withdraw", middleware.AuthorizePermission(constants.WithdrawFunds), vh.Withdraw)
		vg.Get("/balance", middleware.AuthorizePermission(constants.ViewData), vh.Balance)
		vg.Get("/tickets/:ticket_id", middleware.AuthorizePermission(constants.ViewData), vh.Ticket)

		// Listings and bids
		lg := app.Group("/api/v1/listings", middleware.RequireAuth())
		lg.Post("/sale", middleware.AuthorizePermission(constants.PostListing), sbh.PostSale)
		lg.Post("/lease", middleware.AuthorizePermission(constants.PostListing), sbh.PostLease)
		lg.Get("/:listing_id", middleware.AuthorizePermission(constants.ViewData), sbh.GetListing)
		lg.Get("/:listing_id/bids", middleware.AuthorizePermission(constants.ViewData), sbh.ListingBids)
		lg.Post("/:listing_id/bids", middleware.AuthorizePermission(constants.PlaceBid), sbh.PlaceBid)
		lg.Post("/:listing_id/lease-bids", middleware.AuthorizePermission(constants.PlaceBid), sbh.PlaceLeaseBid)
		lg.Post("/:listing_id/accept", middleware.AuthorizePermission(constants.AcceptBid), sbh.AcceptBid)
		lg.Post("/:listing_id/accept-lease", middleware.AuthorizePermission(constants.AcceptBid), sbh.AcceptLeaseBid)
		lg.Post("/:listing_id/cancel", middleware.AuthorizePermission(constants.PostListing), sbh.CancelListing)
		bg := app.Group("/api/v1/bids", middleware.RequireAuth())
		bg.Post("/:bid_id/cancel", middleware.AuthorizePermission(constants.PlaceBid), sbh.CancelBid)

		// Leases
		lsh := &leaseshandler.Handlers{Service: intents}
		lsg := app.Group("/api/v1/leases", middleware.RequireAuth())
		lsg.Post("/digest", middleware.AuthorizePermission(constants.ViewData), lsh.Digest)
		lsg.Get("/:lease_id", middleware.AuthorizePermission(constants.ViewData), lsh.Get)

		// Revenue
		rvg := app.Group("/api/v1/revenue", middleware.RequireAuth())
		rvg.Post("/rounds/:round_id/claim", middleware.AuthorizePermission(constants.ClaimRevenue), revh.Claim)
		rvg.Get("/rounds/:round_id", middleware.AuthorizePermission(constants.ViewData), revh.GetRound)
		rvg.Get("/rounds/:round_id/claims", middleware.AuthorizePermission(constants.ViewData), revh.RoundClaims)

		// Events
		eg := app.Group("/api/v1/events", middleware.RequireAuth())
		eg.Get("/mine", middleware.AuthorizePermission(constants.ViewData), evh.MyEvents)

		// Payments
		ph := &payhandler.Handlers{
			StripeCreator: &payhandler.RealStripeCreator{SecretKey: cfg.StripeSecretKey},
		}
		pg := app.Group("/api/v1/payments", middleware.RequireAuth())
		pg.Post("/deposit-intent", middleware.AuthorizePermission(constants.CreateDeposit), ph.CreateDepositIntent)
	}

	return app, db, rdb, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}

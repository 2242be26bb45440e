package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wemaster/booking-core/internal/domain/actor"
	"github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/pricing"
	"github.com/wemaster/booking-core/internal/handlers"
	gateway "github.com/wemaster/booking-core/internal/infra/payment"
	"github.com/wemaster/booking-core/internal/infra/storage"
	"github.com/wemaster/booking-core/internal/middleware"
	"github.com/wemaster/booking-core/internal/usecase"
	ucAppeal "github.com/wemaster/booking-core/internal/usecase/appeal"
	ucBooking "github.com/wemaster/booking-core/internal/usecase/booking"
	"github.com/wemaster/booking-core/internal/usecase/payment"
	ucWallet "github.com/wemaster/booking-core/internal/usecase/wallet"
)

// Dependencies is everything the HTTP layer needs from main. DB only backs
// the audit log listing and may be nil in tests that never call it. An
// empty WebhookSecret leaves webhook deliveries unsigned.
type Dependencies struct {
	DB            *gorm.DB
	Usecase       usecase.Deps
	Payments      *payment.Service
	Payouts       gateway.Payouter
	Evidence      storage.ObjectStore
	Pricing       pricing.Config
	Policy        booking.Policy
	JWTSecret     string
	WebhookSecret string
	Log           *zap.Logger
}

func RegisterRoutes(r *gin.Engine, deps Dependencies) {

	// ======================================================
	// MIDDLEWARE GLOBAL
	// ======================================================
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(middleware.Recovery(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ======================================================
	// USE CASES
	// ======================================================
	bookingDeps := ucBooking.Deps{
		Deps:     deps.Usecase,
		Pricing:  deps.Pricing,
		Policy:   deps.Policy,
		Payments: deps.Payments,
	}
	appealDeps := ucAppeal.Deps{
		Deps:     deps.Usecase,
		Policy:   deps.Policy,
		Payments: deps.Payments,
		Evidence: deps.Evidence,
	}
	walletDeps := ucWallet.Deps{
		Deps:     deps.Usecase,
		Payouts:  deps.Payouts,
		Currency: deps.Pricing.Currency,
	}

	listBookings := ucBooking.NewListBookings(bookingDeps)
	getBalance := ucWallet.NewGetBalance(walletDeps)

	// ======================================================
	// HANDLERS
	// ======================================================
	bookingHandler := handlers.NewBookingHandler(handlers.BookingUseCases{
		CreateSlot:        ucBooking.NewCreateSlot(bookingDeps),
		ListFreeSlots:     ucBooking.NewListFreeSlots(bookingDeps),
		CreateCourse:      ucBooking.NewCreateCourse(bookingDeps),
		QuoteCourse:       ucBooking.NewQuoteCourse(bookingDeps),
		Create:            ucBooking.NewCreateBooking(bookingDeps),
		Confirm:           ucBooking.NewConfirmBooking(bookingDeps),
		Cancel:            ucBooking.NewCancelBooking(bookingDeps),
		Get:               ucBooking.NewGetBooking(bookingDeps),
		List:              listBookings,
		RequestReschedule: ucBooking.NewRequestReschedule(bookingDeps),
		ApproveReschedule: ucBooking.NewApproveReschedule(bookingDeps),
		RejectReschedule:  ucBooking.NewRejectReschedule(bookingDeps),
	}, deps.Pricing.Currency)

	appealHandler := handlers.NewAppealHandler(handlers.AppealUseCases{
		Open:            ucAppeal.NewOpenAppeal(appealDeps),
		Get:             ucAppeal.NewGetAppeal(appealDeps),
		TutorRespond:    ucAppeal.NewTutorRespond(appealDeps),
		StudentConfirm:  ucAppeal.NewStudentConfirm(appealDeps),
		Withdraw:        ucAppeal.NewWithdrawAppeal(appealDeps),
		AddEvidence:     ucAppeal.NewAddEvidence(appealDeps),
		StartProcessing: ucAppeal.NewStartProcessing(appealDeps),
		Resolve:         ucAppeal.NewPlatformResolve(appealDeps),
	})

	walletHandler := handlers.NewWalletHandler(handlers.WalletUseCases{
		Balance:      getBalance,
		Transactions: ucWallet.NewListTransactions(walletDeps),
		Record:       ucWallet.NewRecordTransaction(walletDeps),
		Settle:       ucWallet.NewSettleTransaction(walletDeps),
		Move:         ucWallet.NewMoveFunds(walletDeps),
		Withdraw:     ucWallet.NewRequestWithdrawal(walletDeps),
	}, deps.Pricing.Currency)

	meHandler := handlers.NewMeHandler(getBalance, listBookings, deps.Pricing.Currency, deps.Usecase.Clock.Now)
	webhookHandler := handlers.NewWebhookHandler(deps.Payments, deps.Log)
	auditLogsHandler := handlers.NewAuditLogsHandler(deps.DB)

	student := middleware.RequireRole(actor.RoleStudent)
	tutor := middleware.RequireRole(actor.RoleTutor)
	participant := middleware.RequireRole(actor.RoleStudent, actor.RoleTutor)

	// ======================================================
	// API (JSON)
	// ======================================================
	api := r.Group("/api")
	{
		// ------------------------------
		// WEBHOOKS (signed by the processor, deduplicated by event id)
		// ------------------------------
		api.POST("/webhooks/payments", middleware.WebhookSignature(deps.WebhookSecret), webhookHandler.Payments)

		secured := api.Group("/")
		secured.Use(middleware.AuthMiddleware(deps.JWTSecret))
		{
			secured.GET("/me", meHandler.GetMe)

			// ------------------------------
			// SLOTS & COURSES
			// ------------------------------
			secured.POST("/slots", tutor, bookingHandler.CreateSlot)
			secured.GET("/slots", bookingHandler.ListFreeSlots)
			secured.POST("/courses", tutor, bookingHandler.CreateCourse)
			secured.GET("/courses/:id/quote", bookingHandler.QuoteCourse)

			// ------------------------------
			// BOOKINGS
			// ------------------------------
			secured.POST("/bookings", student, bookingHandler.Create)
			secured.GET("/bookings", bookingHandler.List)
			secured.GET("/bookings/:id", bookingHandler.Get)
			secured.PATCH("/bookings/:id/confirm", tutor, bookingHandler.Confirm)
			secured.PATCH("/bookings/:id/cancel", bookingHandler.Cancel)
			secured.POST("/bookings/:id/reschedule", participant, bookingHandler.RequestReschedule)
			secured.PATCH("/reschedules/:id/approve", participant, bookingHandler.ApproveReschedule)
			secured.PATCH("/reschedules/:id/reject", participant, bookingHandler.RejectReschedule)

			// ------------------------------
			// APPEALS
			// ------------------------------
			secured.POST("/bookings/:id/appeals", student, appealHandler.Open)
			secured.GET("/appeals/:id", appealHandler.Get)
			secured.POST("/appeals/:id/respond", tutor, appealHandler.Respond)
			secured.POST("/appeals/:id/confirm", student, appealHandler.Confirm)
			secured.POST("/appeals/:id/withdraw", student, appealHandler.Withdraw)
			secured.POST("/appeals/:id/evidence", participant, appealHandler.AddEvidence)

			// ------------------------------
			// WALLET
			// ------------------------------
			secured.GET("/wallet/balance", walletHandler.Balance)
			secured.GET("/wallet/transactions", walletHandler.Transactions)
			secured.POST("/wallet/withdrawals", tutor, walletHandler.Withdraw)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(deps.JWTSecret), middleware.RequireRole(actor.RolePlatform))
		{
			admin.PATCH("/appeals/:id/process", appealHandler.StartProcessing)
			admin.POST("/appeals/:id/resolve", appealHandler.Resolve)

			admin.POST("/wallet/transactions", walletHandler.Record)
			admin.PATCH("/wallet/transactions/:id", walletHandler.Settle)
			admin.POST("/wallet/:userId/moves", walletHandler.Move)

			admin.GET("/audit-logs", auditLogsHandler.List)
		}
	}
}

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/printflow/internal/authorization"
	bookingdomain "github.com/smallbiznis/printflow/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/printflow/internal/catalog/domain"
	"github.com/smallbiznis/printflow/internal/config"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	inventorydomain "github.com/smallbiznis/printflow/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/printflow/internal/invoice/domain"
	"github.com/smallbiznis/printflow/internal/lifecyclemetrics"
	"github.com/smallbiznis/printflow/internal/observability"
	obslogger "github.com/smallbiznis/printflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/printflow/internal/observability/metrics"
	obstracing "github.com/smallbiznis/printflow/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/printflow/internal/order/domain"
	paymentdomain "github.com/smallbiznis/printflow/internal/payment/domain"
	proofdomain "github.com/smallbiznis/printflow/internal/proofing/domain"
	quotedomain "github.com/smallbiznis/printflow/internal/quote/domain"
	sladomain "github.com/smallbiznis/printflow/internal/sla/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ActorContext())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	authzSvc     authorization.Service
	catalogSvc   catalogdomain.Service
	quoteSvc     quotedomain.Service
	orderSvc     orderdomain.Service
	proofSvc     proofdomain.Service
	bookingSvc   bookingdomain.Service
	paymentSvc   paymentdomain.Service
	invoiceSvc   invoicedomain.Service
	slaSvc       sladomain.Service
	inventorySvc inventorydomain.Service
	eventSvc     eventdomain.Service
	collector    *lifecyclemetrics.Collector
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Authz        authorization.Service
	CatalogSvc   catalogdomain.Service
	QuoteSvc     quotedomain.Service
	OrderSvc     orderdomain.Service
	ProofSvc     proofdomain.Service
	BookingSvc   bookingdomain.Service
	PaymentSvc   paymentdomain.Service
	InvoiceSvc   invoicedomain.Service
	SLASvc       sladomain.Service
	InventorySvc inventorydomain.Service
	EventSvc     eventdomain.Service
	Collector    *lifecyclemetrics.Collector `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		authzSvc:     p.Authz,
		catalogSvc:   p.CatalogSvc,
		quoteSvc:     p.QuoteSvc,
		orderSvc:     p.OrderSvc,
		proofSvc:     p.ProofSvc,
		bookingSvc:   p.BookingSvc,
		paymentSvc:   p.PaymentSvc,
		invoiceSvc:   p.InvoiceSvc,
		slaSvc:       p.SLASvc,
		inventorySvc: p.InventorySvc,
		eventSvc:     p.EventSvc,
		collector:    p.Collector,
	}
}

func (s *Server) RegisterRoutes() {
	if s.collector != nil {
		s.engine.GET("/metrics", gin.WrapH(s.collector.Handler()))
	} else {
		s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := s.engine.Group("/api")
	api.GET("/schemas/:name", s.GetSchema)

	s.registerCatalogRoutes(api)
	s.registerQuoteRoutes(api)
	s.registerOrderRoutes(api)
	s.registerProofRoutes(api)
	s.registerPaymentRoutes(api)
	s.registerSLARoutes(api)
	s.registerBookingRoutes(api)
	s.registerInventoryRoutes(api)

	api.GET("/events", s.authorize(authorization.ObjectEvent, authorization.ActionEventView), s.ListEvents)
}

func (s *Server) registerCatalogRoutes(api *gin.RouterGroup) {
	view := s.authorize(authorization.ObjectCatalog, authorization.ActionCatalogView)
	manage := s.authorize(authorization.ObjectCatalog, authorization.ActionCatalogManage)

	services := api.Group("/services")
	services.POST("", manage, s.CreateService)
	services.GET("", view, s.ListServices)
	services.GET("/:id", view, s.GetService)
	services.PATCH("/:id", manage, s.UpdateService)
	services.POST("/:id/options", manage, s.AddServiceOption)
	services.GET("/:id/options", view, s.ListServiceOptions)
	services.POST("/:id/tiers", manage, s.CreateTier)
	services.GET("/:id/tiers", view, s.ListTiers)

	tiers := api.Group("/tiers")
	tiers.POST("/:id/deliverables", manage, s.AddDeliverable)
	tiers.GET("/:id/deliverables", view, s.ListDeliverables)
}

func (s *Server) registerQuoteRoutes(api *gin.RouterGroup) {
	quotes := api.Group("/quotes")
	quotes.POST("", s.authorize(authorization.ObjectQuote, authorization.ActionQuoteSubmit), s.SubmitQuote)
	quotes.GET("", s.authorize(authorization.ObjectQuote, authorization.ActionQuoteView), s.ListQuotes)
	quotes.GET("/:id", s.authorize(authorization.ObjectQuote, authorization.ActionQuoteView), s.GetQuote)
	quotes.PUT("/:id/review", s.authorize(authorization.ObjectQuote, authorization.ActionQuoteReview), s.StartQuoteReview)
	quotes.PUT("/:id/send", s.authorize(authorization.ObjectQuote, authorization.ActionQuoteReview), s.SendQuoteForApproval)
	quotes.PUT("/:id/reject", s.authorize(authorization.ObjectQuote, authorization.ActionQuoteReview), s.RejectQuote)
	quotes.POST("/:id/finalize", s.authorize(authorization.ObjectQuote, authorization.ActionQuoteFinalize), s.FinalizeQuote)
}

func (s *Server) registerOrderRoutes(api *gin.RouterGroup) {
	view := s.authorize(authorization.ObjectOrder, authorization.ActionOrderView)

	orders := api.Group("/orders")
	orders.GET("", view, s.ListOrders)
	orders.GET("/:id", view, s.GetOrder)
	orders.GET("/:id/history", view, s.GetOrderHistory)
	orders.PUT("/:id/status", s.authorize(authorization.ObjectOrder, authorization.ActionOrderAdvance), s.AdvanceOrderStatus)
	orders.POST("/:id/revisions", s.authorize(authorization.ObjectOrder, authorization.ActionOrderRevision), s.RecordRevision)
	orders.PUT("/:id/assignee", s.authorize(authorization.ObjectOrder, authorization.ActionOrderAssign), s.AssignOrderStaff)
	orders.PUT("/:id/priority", s.authorize(authorization.ObjectOrder, authorization.ActionOrderAssign), s.SetOrderPriority)

	orders.POST("/:id/proofs", s.authorize(authorization.ObjectProof, authorization.ActionProofUpload), s.UploadProof)
	orders.GET("/:id/proofs", s.authorize(authorization.ObjectProof, authorization.ActionProofView), s.ListProofs)

	orders.POST("/:id/payments", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentRecord), s.RecordPayment)
	orders.GET("/:id/payments", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentView), s.ListPayments)

	orders.POST("/:id/invoice", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceIssue), s.IssueInvoice)
	orders.GET("/:id/invoice", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.GetInvoice)
	orders.GET("/:id/invoice.pdf", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.DownloadInvoicePDF)

	orders.GET("/:id/sla-timers", s.authorize(authorization.ObjectSLA, authorization.ActionSLAView), s.ListSLATimers)
}

func (s *Server) registerProofRoutes(api *gin.RouterGroup) {
	proofs := api.Group("/proofs")
	proofs.GET("/:id", s.authorize(authorization.ObjectProof, authorization.ActionProofView), s.GetProof)
	proofs.PUT("/:id/viewed", s.authorize(authorization.ObjectProof, authorization.ActionProofMarkViewed), s.MarkProofViewed)
	proofs.PUT("/:id/response", s.authorize(authorization.ObjectProof, authorization.ActionProofRespond), s.RespondToProof)
}

func (s *Server) registerPaymentRoutes(api *gin.RouterGroup) {
	payments := api.Group("/payments")
	payments.GET("/:id", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentView), s.GetPayment)
	payments.PUT("/:id/confirm", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentConfirm), s.ConfirmPayment)
	payments.PUT("/:id/fail", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentConfirm), s.FailPayment)
	payments.POST("/:id/refunds", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentRefund), s.RefundPayment)
}

func (s *Server) registerSLARoutes(api *gin.RouterGroup) {
	api.PUT("/sla-timers/:id/complete", s.authorize(authorization.ObjectSLA, authorization.ActionSLAComplete), s.CompleteSLATimer)
	api.GET("/sla-breaches", s.authorize(authorization.ObjectSLA, authorization.ActionSLAView), s.ListSLABreaches)
}

func (s *Server) registerBookingRoutes(api *gin.RouterGroup) {
	bookings := api.Group("/bookings")
	bookings.POST("", s.authorize(authorization.ObjectBooking, authorization.ActionBookingCreate), s.CreateBooking)
	bookings.GET("", s.authorize(authorization.ObjectBooking, authorization.ActionBookingView), s.ListBookings)
	bookings.GET("/:id", s.authorize(authorization.ObjectBooking, authorization.ActionBookingView), s.GetBooking)
	bookings.PUT("/:id/reschedule", s.authorize(authorization.ObjectBooking, authorization.ActionBookingReschedule), s.RescheduleBooking)
	bookings.PUT("/:id/cancel", s.authorize(authorization.ObjectBooking, authorization.ActionBookingCancel), s.CancelBooking)
	bookings.PUT("/:id/confirm", s.authorize(authorization.ObjectBooking, authorization.ActionBookingConfirm), s.ConfirmBooking)
	bookings.PUT("/:id/complete", s.authorize(authorization.ObjectBooking, authorization.ActionBookingConfirm), s.CompleteBooking)

	capacityView := s.authorize(authorization.ObjectCapacity, authorization.ActionCapacityView)
	capacityManage := s.authorize(authorization.ObjectCapacity, authorization.ActionCapacityManage)
	api.GET("/availability", capacityView, s.GetAvailability)
	api.PUT("/capacity/settings/:weekday", capacityManage, s.UpsertCapacitySetting)
	api.PUT("/capacity/overrides/:date", capacityManage, s.SetCapacityOverride)
	api.POST("/blackout-dates", capacityManage, s.AddBlackoutDate)
	api.GET("/blackout-dates", capacityView, s.ListBlackoutDates)
}

func (s *Server) registerInventoryRoutes(api *gin.RouterGroup) {
	view := s.authorize(authorization.ObjectInventory, authorization.ActionInventoryView)
	manage := s.authorize(authorization.ObjectInventory, authorization.ActionInventoryManage)

	inventory := api.Group("/inventory")
	inventory.POST("/items", manage, s.CreateInventoryItem)
	inventory.GET("/items", view, s.ListInventoryItems)
	inventory.GET("/items/:id", view, s.GetInventoryItem)
	inventory.POST("/items/:id/transactions", manage, s.RecordInventoryTransaction)
	inventory.GET("/items/:id/transactions", view, s.ListInventoryTransactions)
	inventory.GET("/reorder-alerts", view, s.ListReorderAlerts)
	inventory.POST("/rules", manage, s.CreateConsumptionRule)
	inventory.GET("/rules", view, s.ListConsumptionRules)
}

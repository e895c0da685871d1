package router

import (
	"time"

	"qabackend/internal/app"
	"qabackend/internal/domain"
	"qabackend/internal/handler"
	"qabackend/internal/middleware"
	"qabackend/internal/ws"

	"github.com/gin-gonic/gin"
)

func Setup(a *app.App) *gin.Engine {
	cfg := a.Config
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = 16 << 20

	repos := a.Repos
	questionHandler := handler.NewQuestionHandler(a.Engine, repos.Questions, a.Pictures)
	answerHandler := handler.NewAnswerHandler(a.Engine)
	paymentWebhookHandler := handler.NewPaymentWebhookHandler(a.Engine, a.Gateway, a.SignatureHeader)
	maintenanceHandler := handler.NewMaintenanceHandler(a.Scheduler)
	questionTypeHandler := handler.NewQuestionTypeHandler(repos.QuestionTypes)
	statsHandler := handler.NewStatsHandler(a.Stats)
	notificationHandler := handler.NewNotificationHandler(repos.Notifications, repos.Users)
	earningHandler := handler.NewEarningHandler(repos.Earnings, a.Withdrawals)
	withdrawalHandler := handler.NewWithdrawalHandler(a.Withdrawals)
	withdrawalWebhookHandler := handler.NewWithdrawalWebhookHandler(a.Withdrawals)
	healthHandler := handler.NewHealthHandler(a.DB, a.Scheduler, a.Hub)

	authMw := middleware.AuthRequired(&cfg.JWT)
	questionerOnly := middleware.RequireRole(domain.RoleQuestioner, domain.RoleAdmin)
	answererOnly := middleware.RequireRole(domain.RoleAnswerer, domain.RoleAdmin)
	createLimit := middleware.RateLimit(middleware.NewInMemoryRateLimiter(30, time.Minute))

	r.GET("/healthz", healthHandler.Healthz)

	api := r.Group("/api/v1")
	{
		questions := api.Group("/questions")
		questions.Use(authMw)
		{
			questions.POST("", questionerOnly, createLimit, questionHandler.Create)
			questions.GET("/asked", questionerOnly, questionHandler.ListAsked)
			questions.GET("/received", answererOnly, questionHandler.ListReceived)
			questions.GET("/:id", questionHandler.Get)
			questions.GET("/:id/checkout-session", questionerOnly, questionHandler.CheckoutSession)
		}

		answers := api.Group("/answers")
		answers.Use(authMw)
		{
			// :id is a question id for Submit and an answer id for Review.
			answers.POST("/:id", answererOnly, answerHandler.Submit)
			answers.POST("/:id/review", questionerOnly, answerHandler.Review)
		}

		types := api.Group("/question-types")
		types.Use(authMw)
		{
			types.GET("", questionTypeHandler.List)
			types.POST("", answererOnly, questionTypeHandler.Create)
			types.PUT("/:id", answererOnly, questionTypeHandler.Update)
		}

		api.GET("/answerers/me/stats", authMw, answererOnly, statsHandler.Mine)

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/notifications", notificationHandler.List)
			me.PUT("/notifications/:id/read", notificationHandler.MarkRead)
			me.POST("/fcm-token", notificationHandler.RegisterFCMToken)
			me.GET("/earnings", answererOnly, earningHandler.List)
			me.GET("/withdrawals", answererOnly, withdrawalHandler.List)
		}
		api.POST("/withdrawals", authMw, answererOnly, withdrawalHandler.Create)

		maintenance := api.Group("/maintenance")
		maintenance.Use(middleware.MaintenanceAccess(&cfg.Maintenance))
		{
			maintenance.GET("/sweep", maintenanceHandler.Sweep)
			maintenance.GET("/refunds/retry", maintenanceHandler.RetryRefunds)
		}

		api.POST("/webhooks/payment", paymentWebhookHandler.Handle)
		api.POST("/webhooks/withdrawal", withdrawalWebhookHandler.Handle)
	}

	r.GET("/ws/events", ws.UpgradeEventsWS(&cfg.JWT, a.Hub))

	return r
}

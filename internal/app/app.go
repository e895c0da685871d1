// Package app wires repositories, the payment gateway, the lifecycle engine
// and the maintenance scheduler from configuration. Both the HTTP server and
// qactl build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"qabackend/config"
	"qabackend/internal/lifecycle"
	"qabackend/internal/repository"
	"qabackend/internal/service"
	"qabackend/internal/sweeper"
	"qabackend/internal/ws"
	"qabackend/pkg/cache"
	"qabackend/pkg/cloudinary"
	"qabackend/pkg/payment"

	"gorm.io/gorm"
)

type Repositories struct {
	Users         *repository.UserRepository
	Questions     *repository.QuestionRepository
	QuestionTypes *repository.QuestionTypeRepository
	Answers       *repository.AnswerRepository
	Earnings      *repository.EarningRepository
	Refunds       *repository.RefundRepository
	PaymentEvents *repository.PaymentEventRepository
	Notifications *repository.NotificationRepository
	Withdrawals   *repository.WithdrawalRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:         repository.NewUserRepository(db),
		Questions:     repository.NewQuestionRepository(db),
		QuestionTypes: repository.NewQuestionTypeRepository(db),
		Answers:       repository.NewAnswerRepository(db),
		Earnings:      repository.NewEarningRepository(db),
		Refunds:       repository.NewRefundRepository(db),
		PaymentEvents: repository.NewPaymentEventRepository(db),
		Notifications: repository.NewNotificationRepository(db),
		Withdrawals:   repository.NewWithdrawalRepository(db),
	}
}

type App struct {
	Config          *config.Config
	DB              *gorm.DB
	Repos           *Repositories
	Cache           *cache.Cache
	Gateway         payment.Gateway
	SignatureHeader string
	Hub             *ws.Hub
	Notifications   *service.NotificationService
	Stats           *service.StatsService
	Withdrawals     *service.WithdrawalService
	Pictures        cloudinary.PictureStore
	Engine          *lifecycle.Engine
	Sweeper         *sweeper.Sweeper
	Scheduler       *sweeper.Scheduler
}

// Options override external integrations, mainly for tests.
type Options struct {
	Gateway         payment.Gateway
	SignatureHeader string
	Payout          payment.PayoutProvider
	Pusher          service.Pusher
	Pictures        cloudinary.PictureStore
	Now             func() time.Time
}

// NewGateway selects the checkout gateway named by cfg.Payment.Provider and
// returns the header its webhook signature arrives in.
func NewGateway(cfg *config.Config) (payment.Gateway, string, error) {
	switch cfg.Payment.Provider {
	case "stripe":
		if cfg.Stripe.SecretKey == "" || cfg.Stripe.WebhookSecret == "" {
			return nil, "", errors.New("stripe provider needs STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET")
		}
		return payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, nil), payment.StripeSignatureHeader, nil
	case "", "stub":
		if cfg.Server.Env == "production" {
			return nil, "", errors.New("stub payment provider is not allowed in production")
		}
		return payment.NewStubGateway(cfg.Payment.WebhookSecret, cfg.Server.ClientOrigin+"/stub-checkout"), payment.StubSignatureHeader, nil
	default:
		return nil, "", fmt.Errorf("unknown payment provider %q", cfg.Payment.Provider)
	}
}

func Build(ctx context.Context, cfg *config.Config, db *gorm.DB, opts Options) (*App, error) {
	a := &App{Config: cfg, DB: db, Repos: NewRepositories(db), Hub: ws.NewHub()}

	a.Gateway, a.SignatureHeader = opts.Gateway, opts.SignatureHeader
	if a.Gateway == nil {
		gw, header, err := NewGateway(cfg)
		if err != nil {
			return nil, err
		}
		a.Gateway, a.SignatureHeader = gw, header
	}

	a.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	pusher := opts.Pusher
	if pusher == nil {
		if fcm := service.NewFCMService(ctx, cfg.Firebase.ServiceAccountPath); fcm != nil {
			log.Printf("[FCM] Push notifications enabled")
			pusher = fcm
		} else {
			log.Printf("[FCM] Push notifications disabled")
		}
	}

	a.Pictures = opts.Pictures
	if a.Pictures == nil {
		store, err := cloudinary.NewPictureStore(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		switch {
		case errors.Is(err, cloudinary.ErrNotConfigured):
			log.Printf("[Cloudinary] picture uploads disabled")
		case err != nil:
			return nil, fmt.Errorf("cloudinary: %w", err)
		default:
			a.Pictures = store
		}
	}

	payout := opts.Payout
	if payout == nil && cfg.LiberecMpesa.Email != "" {
		payout = payment.NewLiberecMpesaProvider(cfg.LiberecMpesa.BaseURL, cfg.LiberecMpesa.Email,
			cfg.LiberecMpesa.Password, cfg.LiberecMpesa.WebhookBaseURL)
	}

	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	r := a.Repos
	a.Notifications = service.NewNotificationService(r.Notifications, r.Users, pusher, a.Hub, cfg.Server.ClientOrigin)
	a.Stats = service.NewStatsService(r.Questions, r.Answers, r.Earnings, a.Cache, now)
	a.Withdrawals = service.NewWithdrawalService(r.Withdrawals, payout, cfg.Payment.Currency)

	a.Engine = lifecycle.New(lifecycle.Deps{
		Questions:     r.Questions,
		QuestionTypes: r.QuestionTypes,
		Answers:       r.Answers,
		Refunds:       r.Refunds,
		PaymentEvents: r.PaymentEvents,
		Gateway:       a.Gateway,
		Notifier:      a.Notifications,
		Stats:         a.Stats,
		Now:           now,
	}, lifecycle.Config{
		DeadlineAnchor:    cfg.SLA.DeadlineAnchor,
		PlatformFeeRate:   cfg.Payment.PlatformFeeRate,
		ClientOrigin:      cfg.Server.ClientOrigin,
		RefundMaxAttempts: cfg.Sweeper.RefundMaxAttempts,
		RefundStaleAfter:  cfg.Sweeper.RefundStaleAfter,
		CheckoutTTL:       cfg.Payment.CheckoutTTL,
	})
	a.Sweeper = sweeper.New(r.Questions, a.Engine, cfg.Sweeper.BatchSize)
	a.Scheduler = sweeper.NewScheduler(a.Sweeper, a.Engine, a.Cache, cfg.Sweeper, now)
	return a, nil
}

func (a *App) Close() {
	if err := a.Cache.Close(); err != nil {
		log.Printf("[Cache] close: %v", err)
	}
}

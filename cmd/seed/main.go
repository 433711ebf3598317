package main

import (
	"context"

	"github.com/betlink/affiliate-engine/internal/config"
	"github.com/betlink/affiliate-engine/internal/logger"
	"github.com/betlink/affiliate-engine/internal/models"
	"github.com/betlink/affiliate-engine/internal/provider"
	"github.com/betlink/affiliate-engine/internal/repository"
	"github.com/betlink/affiliate-engine/internal/service"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("failed to migrate database: %v", err)
	}

	c := provider.NewContainer(cfg)
	ctx := context.Background()

	// Persist the built-in rate table so operators can inspect and edit it.
	if err := c.ConfigProvider.UpdateTable(ctx, service.DefaultRateTable()); err != nil {
		stdLog.Fatalf("failed to seed rate table: %v", err)
	}
	stdLog.Printf("rate table seeded")

	_, total, err := c.AffiliateService.ListAffiliates(repository.AffiliateListFilter{Page: 1, PageSize: 1})
	if err != nil {
		stdLog.Fatalf("failed to inspect affiliates: %v", err)
	}
	if total > 0 {
		stdLog.Printf("affiliates already present (%d), skipping demo tree", total)
		return
	}

	// Demo tree: one root, two direct referrals, one second-level referral.
	root, err := c.AffiliateService.Register(service.RegisterInput{})
	if err != nil {
		stdLog.Fatalf("failed to create root affiliate: %v", err)
	}
	first, err := c.AffiliateService.Register(service.RegisterInput{ParentReferralCode: root.ReferralCode})
	if err != nil {
		stdLog.Fatalf("failed to create first-level affiliate: %v", err)
	}
	if _, err := c.AffiliateService.Register(service.RegisterInput{ParentReferralCode: root.ReferralCode}); err != nil {
		stdLog.Fatalf("failed to create first-level affiliate: %v", err)
	}
	if _, err := c.AffiliateService.Register(service.RegisterInput{ParentReferralCode: first.ReferralCode}); err != nil {
		stdLog.Fatalf("failed to create second-level affiliate: %v", err)
	}
	stdLog.Printf("demo affiliate tree seeded, root referral code: %s", root.ReferralCode)

	if cfg.Auth.ServiceSecret != "" {
		token, err := service.IssueServiceToken(cfg.Auth.ServiceSecret, "seed-cli", cfg.Auth.ExpireHours)
		if err != nil {
			stdLog.Printf("warning: failed to issue sample service token: %v", err)
		} else {
			stdLog.Printf("sample service token: %s", token)
		}
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ledger-admin-go/internal/common"
	"ledger-admin-go/internal/config"
	"ledger-admin-go/internal/formance"
	"ledger-admin-go/internal/models"

	"go.uber.org/zap"
)

type reconcileStats struct {
	checked      int
	inconsistent int
	mirrorDiffs  int
}

// compareMirror checks one balance row against the Formance mirror
func compareMirror(ctx context.Context, mirror *formance.Mirror, r models.Reconciliation) (bool, error) {
	mirrored, err := mirror.GetUserBalance(ctx, r.UserId, r.Asset)
	if err != nil {
		return false, err
	}
	if !mirrored.Equal(r.Balance) {
		fmt.Printf("│  MIRROR  %-36s %-6s local=%s formance=%s\n", r.UserId, r.Asset, r.Balance.String(), mirrored.String())
		return false, nil
	}
	return true, nil
}

func main() {
	ctx := context.Background()

	mirrorFlag := flag.Bool("formance", false, "Also compare balances with the Formance ledger mirror")
	verboseFlag := flag.Bool("v", false, "Print consistent rows too")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger, _ := zap.NewProduction()
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Log)
	defer loggerCleanup()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	var mirror *formance.Mirror
	if *mirrorFlag {
		mirror, err = formance.NewMirror(ctx, cfg.Formance, services.Assets)
		if err != nil {
			zap.L().Fatal("Failed to connect to Formance mirror", zap.Error(err))
		}
	}

	results, err := services.Ledger.ReconcileAll(ctx)
	if err != nil {
		zap.L().Fatal("Failed to reconcile balances", zap.Error(err))
	}

	common.PrintHeader("BALANCE RECONCILIATION (balance == sum of applied adjustments)", common.WideWidth)

	stats := reconcileStats{}
	for _, r := range results {
		stats.checked++
		if !r.Consistent {
			stats.inconsistent++
			fmt.Printf("│  DRIFT   %-36s %-6s balance=%s computed=%s (%d adjustments)\n",
				r.UserId, r.Asset, r.Balance.String(), r.Computed.String(), r.Adjustments)
		} else if *verboseFlag {
			fmt.Printf("│  OK      %-36s %-6s %s (%d adjustments)\n", r.UserId, r.Asset, r.Balance.String(), r.Adjustments)
		}

		if mirror != nil {
			ok, err := compareMirror(ctx, mirror, r)
			if err != nil {
				zap.L().Error("Failed to read mirrored balance",
					zap.String("user_id", r.UserId),
					zap.String("asset", r.Asset),
					zap.Error(err))
				stats.mirrorDiffs++
				continue
			}
			if !ok {
				stats.mirrorDiffs++
			}
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d balances checked, %d inconsistent", stats.checked, stats.inconsistent)
	if mirror != nil {
		summary += fmt.Sprintf(", %d differ from the Formance mirror", stats.mirrorDiffs)
	}
	common.PrintFooter(summary, common.WideWidth)

	if stats.inconsistent > 0 || stats.mirrorDiffs > 0 {
		loggerCleanup()
		services.Close()
		os.Exit(1)
	}
}

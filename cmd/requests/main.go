package main

import (
	"context"
	"flag"
	"fmt"

	"ledger-admin-go/internal/common"
	"ledger-admin-go/internal/config"
	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"go.uber.org/zap"
)

func printRequest(req models.FundsRequest, isLast bool) {
	prefix := common.BoxPrefix(isLast)
	fmt.Printf("%s %-8s %-10s %-9s %-6s %20s  user=%s  created=%s\n",
		prefix,
		common.ShortId(req.Id),
		req.Type,
		req.Status,
		req.Asset,
		req.Amount.String(),
		common.ShortId(req.UserId),
		common.FormatTime(&req.CreatedAt))

	detail := "│     "
	if isLast {
		detail = "      "
	}
	if req.DestinationAddress != "" {
		fmt.Printf("%sdestination: %s\n", detail, req.DestinationAddress)
	}
	if req.Status.Terminal() {
		fmt.Printf("%sprocessed: %s by %s", detail, common.FormatTime(req.ProcessedAt), req.ProcessedBy)
		if req.TxHash != "" {
			fmt.Printf(", tx: %s", req.TxHash)
		}
		if req.AdminNotes != "" {
			fmt.Printf(", notes: %s", req.AdminNotes)
		}
		fmt.Println()
	}
}

func main() {
	ctx := context.Background()

	typeFlag := flag.String("type", "", "Filter by type: deposit or withdrawal")
	statusFlag := flag.String("status", string(models.RequestPending), "Filter by status: pending, approved, rejected (empty for all)")
	emailFlag := flag.String("email", "", "Filter by user email")
	limitFlag := flag.Int("limit", 50, "Maximum number of requests to list")
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

	filter := store.RequestFilter{
		Type:   models.RequestType(*typeFlag),
		Status: models.RequestStatus(*statusFlag),
		Limit:  *limitFlag,
	}
	if *emailFlag != "" {
		accounts, err := common.InitializeUsers(ctx, services.Store, *emailFlag)
		if err != nil {
			zap.L().Fatal("Failed to find user", zap.Error(err))
		}
		filter.UserId = accounts[0].UserId
	}

	requests, err := services.Ledger.ListRequests(ctx, filter)
	if err != nil {
		zap.L().Fatal("Failed to list requests", zap.Error(err))
	}

	title := "FUNDS REQUEST QUEUE"
	if filter.Status != "" {
		title = fmt.Sprintf("FUNDS REQUEST QUEUE (%s)", filter.Status)
	}
	common.PrintHeader(title, common.WideWidth)
	for i, req := range requests {
		printRequest(req, i == len(requests)-1)
	}
	common.PrintFooter(fmt.Sprintf("SUMMARY: %d requests", len(requests)), common.WideWidth)
}

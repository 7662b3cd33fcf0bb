package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/portfolio"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "시스템 상태 요약",
	Long: `시스템 전반의 상태를 요약해서 보여줍니다.

표시 항목:
- Kill switch 상태
- 최신 포트폴리오 스냅샷 (NAV, 현금)
- 승인 대기 중인 PROPOSED 플랜

Example:
  go run ./cmd/trading status`,
	RunE: showSystemStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func showSystemStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Trading System Status ===")

	deps, err := initApp()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Kill switch
	control, err := deps.ControlRepo.GetControl(ctx)
	if err != nil {
		return fmt.Errorf("get control: %w", err)
	}
	if control.KillSwitch {
		fmt.Printf("\n🔴 Kill switch: ON (%s)\n", control.Reason)
	} else {
		fmt.Println("\n🟢 Kill switch: OFF")
	}

	// Latest portfolio snapshot
	snap, err := deps.PortfolioRepo.LatestSnapshot(ctx)
	switch {
	case errors.Is(err, portfolio.ErrNoSnapshot):
		fmt.Println("\nPortfolio: no snapshot yet")
	case err != nil:
		return fmt.Errorf("get snapshot: %w", err)
	default:
		fmt.Printf("\nPortfolio (as of %s):\n", snap.Asof.Format("2006-01-02 15:04"))
		fmt.Printf("  NAV:       %.2f\n", snap.NAV)
		fmt.Printf("  Cash:      %.2f\n", snap.Cash)
		fmt.Printf("  Positions: %d\n", len(snap.Positions))
	}

	// Pending plans
	proposed := contracts.PlanProposed
	plans, err := deps.Engine.ListPlans(ctx, &proposed, 10)
	if err != nil {
		return fmt.Errorf("list plans: %w", err)
	}
	fmt.Printf("\nPending plans: %d\n", len(plans))
	for _, p := range plans {
		expires := "-"
		if p.ExpiresAt != nil {
			expires = p.ExpiresAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("  %s  items=%d  expires=%s\n", p.ID, len(p.Items), expires)
	}

	return nil
}

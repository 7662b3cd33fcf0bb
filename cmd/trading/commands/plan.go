package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "리밸런스 플랜 관리",
	Long: `리밸런스 플랜을 생성하거나 상태를 전환합니다.

Subcommands:
  generate - 모멘텀 파이프라인 실행 후 플랜 제안
  list     - 최근 플랜 목록
  show     - 플랜 상세 조회
  approve  - PROPOSED 플랜 승인
  reject   - PROPOSED 플랜 거절
  expire   - PROPOSED 플랜 만료

Example:
  go run ./cmd/trading plan generate
  go run ./cmd/trading plan list --status PROPOSED
  go run ./cmd/trading plan approve 6f1c...`,
}

var (
	planActor  string
	planStatus string
	planLimit  int

	planGenerateCmd = &cobra.Command{
		Use:   "generate",
		Short: "리밸런스 플랜 생성",
		RunE:  generatePlan,
	}

	planListCmd = &cobra.Command{
		Use:   "list",
		Short: "최근 플랜 목록",
		RunE:  listPlans,
	}

	planShowCmd = &cobra.Command{
		Use:   "show [plan_id]",
		Short: "플랜 상세 조회",
		Args:  cobra.ExactArgs(1),
		RunE:  showPlan,
	}

	planApproveCmd = &cobra.Command{
		Use:   "approve [plan_id]",
		Short: "플랜 승인",
		Args:  cobra.ExactArgs(1),
		RunE:  approvePlan,
	}

	planRejectCmd = &cobra.Command{
		Use:   "reject [plan_id]",
		Short: "플랜 거절",
		Args:  cobra.ExactArgs(1),
		RunE:  rejectPlan,
	}

	planExpireCmd = &cobra.Command{
		Use:   "expire [plan_id]",
		Short: "플랜 만료",
		Args:  cobra.ExactArgs(1),
		RunE:  expirePlan,
	}
)

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planGenerateCmd)
	planCmd.AddCommand(planListCmd)
	planCmd.AddCommand(planShowCmd)
	planCmd.AddCommand(planApproveCmd)
	planCmd.AddCommand(planRejectCmd)
	planCmd.AddCommand(planExpireCmd)

	planCmd.PersistentFlags().StringVar(&planActor, "actor", "cli", "행위자 식별자 (audit에 기록)")
	planListCmd.Flags().StringVar(&planStatus, "status", "", "상태 필터 (PROPOSED|APPROVED|REJECTED|EXPIRED)")
	planListCmd.Flags().IntVar(&planLimit, "limit", 20, "조회 개수")
}

func generatePlan(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Generate Rebalance Plan ===")

	deps, err := initApp()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	plan, err := deps.Engine.GeneratePlan(ctx, planActor)
	if err != nil {
		return fmt.Errorf("generate plan: %w", err)
	}

	fmt.Printf("\n✅ Plan proposed: %s\n", plan.ID)
	fmt.Printf("   Status:     %s\n", plan.Status)
	if plan.ExpiresAt != nil {
		fmt.Printf("   Expires at: %s\n", plan.ExpiresAt.Format(time.RFC3339))
	}
	printPlanItems(plan)
	return nil
}

func listPlans(cmd *cobra.Command, args []string) error {
	deps, err := initApp()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var status *contracts.PlanStatus
	if planStatus != "" {
		s := contracts.PlanStatus(planStatus)
		status = &s
	}

	plans, err := deps.Engine.ListPlans(ctx, status, planLimit)
	if err != nil {
		return fmt.Errorf("list plans: %w", err)
	}

	fmt.Printf("=== Plans (%d) ===\n", len(plans))
	for _, p := range plans {
		fmt.Printf("  %s  %-9s  items=%d  created=%s\n",
			p.ID, p.Status, len(p.Items), p.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func showPlan(cmd *cobra.Command, args []string) error {
	planID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid plan ID: %w", err)
	}

	deps, err := initApp()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	plan, err := deps.Engine.GetPlan(ctx, planID)
	if err != nil {
		return fmt.Errorf("get plan: %w", err)
	}

	fmt.Printf("=== Plan %s ===\n", plan.ID)
	fmt.Printf("Status:     %s\n", plan.Status)
	fmt.Printf("Created at: %s\n", plan.CreatedAt.Format(time.RFC3339))
	if plan.ExpiresAt != nil {
		fmt.Printf("Expires at: %s\n", plan.ExpiresAt.Format(time.RFC3339))
	}
	printPlanItems(plan)
	return nil
}

func approvePlan(cmd *cobra.Command, args []string) error {
	return transitionPlan(args[0], "approve")
}

func rejectPlan(cmd *cobra.Command, args []string) error {
	return transitionPlan(args[0], "reject")
}

func expirePlan(cmd *cobra.Command, args []string) error {
	return transitionPlan(args[0], "expire")
}

func transitionPlan(rawID, action string) error {
	planID, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid plan ID: %w", err)
	}

	deps, err := initApp()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var plan *contracts.RebalancePlan
	switch action {
	case "approve":
		plan, err = deps.Engine.ApprovePlan(ctx, planID, planActor)
	case "reject":
		plan, err = deps.Engine.RejectPlan(ctx, planID, planActor)
	case "expire":
		plan, err = deps.Engine.ExpirePlan(ctx, planID)
	}
	if err != nil {
		return fmt.Errorf("%s plan: %w", action, err)
	}

	fmt.Printf("✅ Plan %s → %s\n", plan.ID, plan.Status)
	return nil
}

func printPlanItems(plan *contracts.RebalancePlan) {
	fmt.Printf("\n%-10s %-4s %10s %10s %10s\n", "SYMBOL", "MKT", "CURRENT", "TARGET", "DELTA")
	for _, item := range plan.Items {
		fmt.Printf("%-10s %-4s %9.2f%% %9.2f%% %+9.2f%%\n",
			item.Symbol, item.Market,
			item.CurrentWeight*100, item.TargetWeight*100, item.DeltaWeight*100)
	}
}

package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// executeCmd represents the execute command
var executeCmd = &cobra.Command{
	Use:   "execute [plan_id]",
	Short: "승인된 플랜 실행",
	Long: `승인된 플랜의 주문 파이프라인을 실행합니다.

이 명령어는:
- 플랜 승인 상태와 kill switch를 검사
- 주문 생성 (매도 우선, 현금 한도 내 매수)
- 같은 플랜에 대해 재호출해도 기존 실행을 반환 (idempotent)

Example:
  go run ./cmd/trading execute 6f1c...
  go run ./cmd/trading executions --limit 10`,
	Args: cobra.ExactArgs(1),
	RunE: startExecution,
}

var executionListCmd = &cobra.Command{
	Use:   "executions",
	Short: "최근 실행 목록",
	RunE:  listExecutions,
}

var executionLimit int

func init() {
	rootCmd.AddCommand(executeCmd)
	rootCmd.AddCommand(executionListCmd)

	executionListCmd.Flags().IntVar(&executionLimit, "limit", 20, "조회 개수")
}

func startExecution(cmd *cobra.Command, args []string) error {
	planID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid plan ID: %w", err)
	}

	fmt.Println("=== Start Execution ===")

	deps, err := initApp()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	exec, err := deps.Engine.StartExecution(ctx, planID, nil)
	if err != nil {
		return fmt.Errorf("start execution: %w", err)
	}

	fmt.Printf("\n✅ Execution %s: %s\n", exec.ID, exec.Status)

	orders, err := deps.Engine.ListExecutionOrders(ctx, exec.ID)
	if err != nil {
		return fmt.Errorf("list execution orders: %w", err)
	}

	fmt.Printf("\n%-10s %-5s %10s %12s %-8s\n", "SYMBOL", "SIDE", "QTY", "COST", "STATUS")
	for _, o := range orders {
		fmt.Printf("%-10s %-5s %10.2f %12.2f %-8s\n",
			o.Symbol, o.Side, o.Qty, o.EstimatedCost, o.Status)
		if o.Error != "" {
			fmt.Printf("           └ %s\n", o.Error)
		}
	}
	return nil
}

func listExecutions(cmd *cobra.Command, args []string) error {
	deps, err := initApp()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	execs, err := deps.Engine.ListExecutions(ctx, executionLimit)
	if err != nil {
		return fmt.Errorf("list executions: %w", err)
	}

	fmt.Printf("=== Executions (%d) ===\n", len(execs))
	for _, e := range execs {
		started := "-"
		if e.StartedAt != nil {
			started = e.StartedAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("  %s  plan=%s  %-7s  started=%s\n", e.ID, e.PlanID, e.Status, started)
	}
	return nil
}

package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// balanceCmd represents the balance command
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "브로커 계좌 잔고 조회",
	Long: `브로커 계좌의 현금과 보유 종목을 조회합니다.

페이퍼 모드에서는 결정적 스텁 값이, live 모드에서는 KIS 계좌
잔고가 반환됩니다.

Example:
  go run ./cmd/trading balance`,
	RunE: showBalance,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func showBalance(cmd *cobra.Command, args []string) error {
	deps, err := initApp()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	balance, err := deps.Broker.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}

	fmt.Println("=== Account Balance ===")
	fmt.Printf("Cash: %.2f\n", balance.Cash)
	fmt.Printf("\n%-10s %10s\n", "SYMBOL", "QTY")
	for symbol, qty := range balance.Positions {
		fmt.Printf("%-10s %10.2f\n", symbol, qty)
	}
	return nil
}

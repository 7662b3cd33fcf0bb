package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trading",
	Short: "듀얼 모멘텀 리밸런스 트레이딩 시스템",
	Long: `Trading System Unified CLI

듀얼 모멘텀 전략 기반 포트폴리오 리밸런스 시스템.
플랜 생성부터 승인, 주문 실행까지.

Usage:
  go run ./cmd/trading [command]

Examples:
  go run ./cmd/trading api
  go run ./cmd/trading plan generate
  go run ./cmd/trading execute <plan_id>
  go run ./cmd/trading control kill-switch on --reason "incident"`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/api"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 플랜 생성/승인/거절 엔드포인트 제공
- 실행 시작/조회 엔드포인트 제공
- Kill switch 제어 엔드포인트 제공

Endpoints:
  GET  /health                          - Health check
  POST /api/plans/generate              - 리밸런스 플랜 생성
  GET  /api/plans                       - 플랜 목록
  GET  /api/plans/{id}                  - 플랜 상세
  POST /api/plans/{id}/approve          - 플랜 승인
  POST /api/plans/{id}/reject           - 플랜 거절
  POST /api/plans/{id}/expire           - 플랜 만료
  POST /api/executions/{plan_id}/start  - 실행 시작
  GET  /api/executions                  - 실행 목록
  GET  /api/executions/{id}             - 실행 상세 (주문 포함)
  GET  /api/controls                    - Kill switch 상태
  POST /api/controls/kill-switch        - Kill switch 토글
  GET  /api/portfolio/snapshot          - 최신 포트폴리오 스냅샷
  GET  /api/audit/events                - 감사 이벤트 조회

Example:
  go run ./cmd/trading api
  go run ./cmd/trading api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "8080", "API 서버 포트")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Trading System API Server ===")

	deps, err := initApp()
	if err != nil {
		return err
	}
	defer deps.Close()

	// Override port if flag is set
	if apiPort != "" {
		deps.Config.Port = apiPort
	}

	log := deps.Logger
	log.Info("Connected to database")

	// Create handlers
	planHandler := handlers.NewPlanHandler(deps.Engine, log)
	executionHandler := handlers.NewExecutionHandler(deps.Engine, log)
	controlHandler := handlers.NewControlHandler(deps.ControlRepo, deps.Audit, log)
	portfolioHandler := handlers.NewPortfolioHandler(deps.PortfolioRepo, log)
	auditHandler := handlers.NewAuditHandler(deps.Audit, log)

	// Create router and server
	router := api.NewRouter(planHandler, executionHandler, controlHandler, portfolioHandler, auditHandler, log)
	server := api.New(deps.Config, log, router)

	// Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", deps.Config.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/scheduler"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/scheduler/jobs"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "백그라운드 워커 시작",
	Long: `스케줄러 기반 백그라운드 워커를 시작합니다.

등록되는 작업:
- plan_expirer: 매시 정각 (만료 시한이 지난 PROPOSED 플랜을 EXPIRED로 전환)

워커는 Ctrl+C로 종료할 수 있습니다.

Example:
  go run ./cmd/trading worker
  go run ./cmd/trading worker --run-once plan_expirer`,
	RunE: runWorker,
}

var (
	workerRunOnce string
)

func init() {
	rootCmd.AddCommand(workerCmd)

	// Flags
	workerCmd.Flags().StringVar(&workerRunOnce, "run-once", "", "작업을 한 번 실행하고 종료 (job name)")
}

func runWorker(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Trading System Worker ===")

	deps, err := initApp()
	if err != nil {
		return err
	}
	defer deps.Close()

	log := deps.Logger

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewPlanExpirerJob(deps.Engine, log)); err != nil {
		return fmt.Errorf("register plan_expirer: %w", err)
	}

	// One-shot mode for operational reruns
	if workerRunOnce != "" {
		fmt.Printf("Running job once: %s\n", workerRunOnce)
		if err := sched.RunJob(workerRunOnce); err != nil {
			return fmt.Errorf("run job %s: %w", workerRunOnce, err)
		}
		fmt.Println("✅ Job completed")
		return nil
	}

	sched.Start()
	defer sched.Stop()

	fmt.Println("\n✅ Worker started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down worker...")
	return nil
}

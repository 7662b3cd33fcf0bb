package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// controlCmd represents the control command
var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Kill switch 제어",
	Long: `전역 kill switch를 조회하거나 토글합니다.

Kill switch가 켜지면 플랜 생성과 실행 시작이 모두 차단됩니다.

Subcommands:
  status           - 현재 상태 조회
  kill-switch on   - Kill switch 활성화
  kill-switch off  - Kill switch 해제

Example:
  go run ./cmd/trading control status
  go run ./cmd/trading control kill-switch on --reason "broker incident"
  go run ./cmd/trading control kill-switch off`,
}

var (
	killSwitchReason string

	controlStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Kill switch 상태 조회",
		RunE:  showControlStatus,
	}

	killSwitchCmd = &cobra.Command{
		Use:   "kill-switch [on|off]",
		Short: "Kill switch 토글",
		Args:  cobra.ExactArgs(1),
		RunE:  setKillSwitch,
	}
)

func init() {
	rootCmd.AddCommand(controlCmd)
	controlCmd.AddCommand(controlStatusCmd)
	controlCmd.AddCommand(killSwitchCmd)

	killSwitchCmd.Flags().StringVar(&killSwitchReason, "reason", "", "차단 사유 (on일 때 권장)")
}

func showControlStatus(cmd *cobra.Command, args []string) error {
	deps, err := initApp()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	control, err := deps.ControlRepo.GetControl(ctx)
	if err != nil {
		return fmt.Errorf("get control: %w", err)
	}

	state := "OFF"
	if control.KillSwitch {
		state = "ON"
	}
	fmt.Printf("Kill switch: %s\n", state)
	if control.Reason != "" {
		fmt.Printf("Reason:      %s\n", control.Reason)
	}
	fmt.Printf("Updated at:  %s\n", control.UpdatedAt.Format(time.RFC3339))
	return nil
}

func setKillSwitch(cmd *cobra.Command, args []string) error {
	var on bool
	switch args[0] {
	case "on":
		on = true
	case "off":
		on = false
	default:
		return fmt.Errorf("invalid argument %q (must be 'on' or 'off')", args[0])
	}

	deps, err := initApp()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := deps.ControlRepo.SetKillSwitch(ctx, on, killSwitchReason); err != nil {
		return fmt.Errorf("set kill switch: %w", err)
	}

	if _, err := deps.Audit.Record(ctx, "kill_switch_set", "cli", "", uuid.Nil, map[string]interface{}{
		"on":     on,
		"reason": killSwitchReason,
	}); err != nil {
		deps.Logger.WithError(err).Warn("Failed to record kill switch audit event")
	}

	fmt.Printf("✅ Kill switch: %s\n", args[0])
	return nil
}

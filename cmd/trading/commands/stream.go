package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/broker"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/strategy"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/redis"
)

// streamCmd represents the stream command
var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "실시간 시세 스트림 시작",
	Long: `KIS WebSocket 실시간 시세 스트림을 시작합니다.

KR universe 종목을 구독하고 수신한 체결가를 quote 캐시에 적재합니다.
브로커 모드가 live이고 Redis가 활성화된 환경에서 의미가 있습니다.

Example:
  go run ./cmd/trading stream`,
	RunE: runStream,
}

func init() {
	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Trading System Quote Stream ===")

	deps, err := initApp()
	if err != nil {
		return err
	}
	defer deps.Close()

	log := deps.Logger

	symbols, err := strategy.LoadUniverse(deps.Config.Strategy.UniverseDir, contracts.MarketKR)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	var quoteCache *redis.Cache
	if deps.Redis != nil {
		quoteCache = redis.NewCache(deps.Redis, "quote")
	}

	stream := broker.NewQuoteStream(deps.Config.Broker.KIS, quoteCache, log)
	stream.OnTick(func(tick *broker.Tick) {
		log.WithFields(map[string]interface{}{
			"symbol": tick.Symbol,
			"price":  tick.Price,
			"time":   tick.TradeTime,
		}).Debug("Tick received")
	})
	stream.OnError(func(err error) {
		log.WithError(err).Warn("Quote stream error, attempting reconnect")
		if rerr := stream.Reconnect(context.Background()); rerr != nil {
			log.WithError(rerr).Error("Quote stream reconnection failed")
		}
	})

	ctx := context.Background()
	if err := stream.Connect(ctx); err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}
	defer stream.Disconnect()

	if err := stream.Subscribe(symbols...); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	fmt.Printf("\n✅ Streaming %d symbols\n", stream.SubscriptionCount())
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down quote stream...")
	return nil
}

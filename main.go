package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/contract"
	llmx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/llm"
	orchestratorx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/orchestrator"
	runtimex "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/runtime"
	statex "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/state"
	configx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/pkg/config"
	logx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/pkg/logger"
	_ "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/pkg/logger/autoload"
	restaurantx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/pkg/restaurant"
	storex "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/store"
)

type AppConfig struct {
	CallID       string `envconfig:"CALL_ID" split_words:"true" default:"console"`
	CallerNumber string `envconfig:"CALLER_NUMBER" split_words:"true"`
	RoomsEnabled bool   `envconfig:"ROOMS_ENABLED" split_words:"true" default:"false"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("VOXTABLE")

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	gateway, err := llmx.NewGateway(*llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize llm gateway")
	}

	storeCfg := configx.MustNew[storex.Config]("POSTGRES")
	db, err := storex.New(*storeCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize postgres store")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres unreachable")
	}

	var metadata contractx.SessionMetadata
	if appCfg.RoomsEnabled {
		roomsCfg := configx.MustNew[restaurantx.RoomsConfig]("ROOMS")
		metadata = restaurantx.MustNewRoomsClient(*roomsCfg)
	}

	var snapshots statex.SnapshotStore
	upstashCfg, err := configx.New[statex.UpstashConfig]("UPSTASH")
	if err == nil && upstashCfg.URL != "" {
		snapshots, err = statex.NewUpstashSnapshotStore(*upstashCfg)
		if err != nil {
			log.Warn().Err(err).Msg("snapshot store disabled")
			snapshots = nil
		}
	}

	build := func(ctx context.Context, session *statex.SessionState) (*orchestratorx.Orchestrator, error) {
		return orchestratorx.New(gateway, db, db, metadata, snapshots, session, logx.Named("orchestrator"))
	}

	runtimeCfg := configx.MustNew[runtimex.Config]("RUNTIME")
	manager, err := runtimex.NewManager(*runtimeCfg, build)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session manager")
	}
	go manager.StartCleanupRoutine(ctx)

	if err := runConsoleCall(ctx, manager, appCfg); err != nil {
		log.Fatal().Err(err).Msg("call failed")
	}
}

// runConsoleCall drives one dialogue over stdin/stdout. It stands in for the
// telephony transport during local development.
func runConsoleCall(ctx context.Context, manager *runtimex.Manager, cfg *AppConfig) error {
	session, greeting, err := manager.StartCall(ctx, cfg.CallID, cfg.CallerNumber)
	if err != nil {
		return err
	}
	defer manager.EndCall(session.ID)

	fmt.Printf("agent> %s\n", greeting)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("caller> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		utterance := strings.TrimSpace(scanner.Text())
		if utterance == "" {
			continue
		}

		reply, err := session.Respond(ctx, utterance)
		if err != nil {
			return err
		}
		fmt.Printf("agent> %s\n", reply)

		if session.Orchestrator.Done() {
			log.Info().Str("session_id", session.ID).Msg("call completed")
			return nil
		}
	}
}

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bloodlaac/fabricat/internal/api"
	"github.com/bloodlaac/fabricat/internal/config"
	"github.com/bloodlaac/fabricat/internal/protocol"
	"github.com/bloodlaac/fabricat/internal/session"
)

// A headless player for filling sessions during development. It joins the
// given session and submits the cheapest safe decision every phase.
func main() {
	var (
		configPath = flag.String("config", "./fabricat.yaml", "config path")
		nickname   = flag.String("nickname", "bot", "bot account nickname")
		password   = flag.String("password", "botpass", "bot account password")
		joinCode   = flag.String("join", "", "session code to join")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[fabricat-bot] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *joinCode == "" {
		logger.Fatalf("-join is required")
	}

	apiClient, err := api.New(cfg.APIBaseURL)
	if err != nil {
		logger.Fatalf("api client: %v", err)
	}

	creds, err := apiClient.Login(context.Background(), *nickname, *password)
	if err != nil {
		creds, err = apiClient.Register(context.Background(), *nickname, *password, "robot")
		if err != nil {
			logger.Fatalf("login/register: %v", err)
		}
	}

	wsBase := cfg.WSBaseURL
	if wsBase == "" {
		wsBase = api.WSBase(cfg.APIBaseURL)
	}

	sess := session.New(session.Config{
		WSBaseURL:   wsBase,
		AccessToken: creds.Token.AccessToken,
		SessionCode: *joinCode,
		Nickname:    creds.User.Nickname,
		RejoinWait:  cfg.RejoinWait(),
	}, apiClient, nil, nil, logger)
	sess.Open()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			sess.Close()
			return
		case <-sess.Done():
			logger.Printf("session over")
			return
		case <-ticker.C:
			act(sess, creds.User.Nickname)
		}
	}
}

// act plays one decision if the gate currently allows one. The strategy is
// deliberately passive: hold position, decline loans, never build.
func act(sess *session.Client, nickname string) {
	st := sess.Snapshot()
	switch st.Phase {
	case protocol.PhaseBuy:
		if sess.CanSubmit(protocol.KindSubmitBuyBid) {
			_ = sess.SubmitAction(protocol.NewBuyBid(1, st.Analytics.BankRawMaterialMinPrice))
		}
	case protocol.PhaseSell:
		if sess.CanSubmit(protocol.KindSubmitSellBid) {
			qty := localStock(st, nickname)
			if qty == 0 {
				_ = sess.Skip()
				return
			}
			_ = sess.SubmitAction(protocol.NewSellBid(qty, st.Analytics.BankFinishedGoodMaxPrice))
		}
	case protocol.PhaseProduction:
		if sess.CanSubmit(protocol.KindProductionPlan) {
			_ = sess.SubmitAction(protocol.NewProductionPlan(1, 0))
		}
	default:
		if sess.CanSubmit(protocol.KindSkip) {
			_ = sess.Skip()
		}
	}
}

func localStock(st session.State, nickname string) int {
	for _, p := range st.Analytics.Players {
		if p.Nickname == nickname {
			return p.FinishedGoods
		}
	}
	return 0
}

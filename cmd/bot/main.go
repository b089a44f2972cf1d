package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catastrophe.ai/internal/ai/act"
	"catastrophe.ai/internal/ai/turn"
	"catastrophe.ai/internal/protocol"
	"catastrophe.ai/internal/sim/tuning"
	"catastrophe.ai/internal/transport/ws"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name       = flag.String("name", "bot", "player name")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (bot section)")
		actTimeout = flag.Duration("act_timeout", 10*time.Second, "per-action round trip timeout")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = tuning.Defaults()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	c, err := ws.Dial(dialCtx, *url, *name, logger)
	cancel()
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer c.Close()
	c.ActTimeout = *actTimeout
	logger.Printf("WELCOME game=%s player=%s", c.GameID(), c.PlayerID())

	env := act.Env{
		World:     c,
		Authority: c,
		Logger:    logger,
		RecordFn: func(rec protocol.ActionRecord) {
			if !rec.OK {
				logger.Printf("rejected %s %s: %s %s", rec.Action, rec.UnitID, rec.Code, rec.Message)
			}
		},
	}
	b := turn.New(env, c.PlayerID(), tune.Bot)
	if err := b.Start(); err != nil {
		logger.Fatalf("start: %v", err)
	}

	for {
		t, over, err := c.NextTurn(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Fatalf("next turn: %v", err)
		}
		if over != nil {
			logger.Printf("GAME_OVER turn=%d winner=%q reason=%s", over.Turn, over.Winner, over.Reason)
			return
		}

		start := time.Now()
		if err := b.RunTurn(ctx); err != nil {
			var rej *protocol.RejectError
			if !errors.As(err, &rej) {
				if ctx.Err() != nil {
					return
				}
				logger.Fatalf("turn %d: %v", t, err)
			}
			if rej.Code == protocol.ErrGameOver {
				logger.Printf("game ended during turn %d", t)
				return
			}
			logger.Printf("turn %d: %v", t, err)
		}
		if err := c.EndTurn(ctx, t); err != nil {
			logger.Fatalf("end turn: %v", err)
		}
		logger.Printf("turn %d done in %s", t, time.Since(start).Round(time.Millisecond))
	}
}

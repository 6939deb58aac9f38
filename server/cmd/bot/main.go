package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"tankarena/server/application"
	"tankarena/server/auth"
	"tankarena/server/domain"
)

var errJoinRejected = errors.New("join rejected")

type botOptions struct {
	ServerURL      string
	Room           string
	Secret         string
	Msgpack        bool
	BehaviorChance float64
	FireChance     float64
}

// loadOptions は BOT_ で始まる環境変数と、サーバーと共通の ADDR / PORT を読みます。
func loadOptions() (botOptions, int) {
	v := viper.New()
	v.SetEnvPrefix("BOT")
	v.AutomaticEnv()
	v.SetDefault("count", 3)
	v.SetDefault("room", "")
	v.SetDefault("secret", "")
	v.SetDefault("msgpack", false)
	// ボットは人より頻繁に動かす
	v.SetDefault("behavior_chance", 0.05)
	v.SetDefault("fire_chance", application.DefaultFireChance)
	_ = v.BindEnv("addr", "ADDR")
	_ = v.BindEnv("port", "PORT")
	v.SetDefault("addr", "localhost")
	v.SetDefault("port", "9090")

	return botOptions{
		ServerURL:      fmt.Sprintf("ws://%s:%s/ws", v.GetString("addr"), v.GetString("port")),
		Room:           v.GetString("room"),
		Secret:         v.GetString("secret"),
		Msgpack:        v.GetBool("msgpack"),
		BehaviorChance: v.GetFloat64("behavior_chance"),
		FireChance:     v.GetFloat64("fire_chance"),
	}, v.GetInt("count")
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, botCount := loadOptions()
	slog.Info("starting bots", "count", botCount, "server", opts.ServerURL, "msgpack", opts.Msgpack)

	var eg errgroup.Group
	for i := range botCount {
		eg.Go(func() error {
			runBot(ctx, opts, i)
			return nil
		})
	}

	_ = eg.Wait()
	slog.Info("all bots stopped")
}

func runBot(ctx context.Context, opts botOptions, id int) {
	name := "bot-" + uuid.NewString()[:8]
	logger := slog.With("botID", id, "name", name)
	rng := rand.New(rand.NewPCG(uint64(id), uint64(time.Now().UnixNano())))

	for {
		if ctx.Err() != nil {
			return
		}
		err := botSession(ctx, opts, name, rng, logger)
		if err != nil && ctx.Err() == nil {
			logger.Warn("bot session ended, reconnecting", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}
}

type botConn struct {
	conn  *websocket.Conn
	codec domain.Codec
}

func (c *botConn) send(ctx context.Context, msg domain.ClientMessage) error {
	data, err := c.codec.Marshal(msg)
	if err != nil {
		return err
	}
	mt := websocket.MessageText
	if c.codec.Binary() {
		mt = websocket.MessageBinary
	}
	return c.conn.Write(ctx, mt, data)
}

func botSession(ctx context.Context, opts botOptions, name string, rng *rand.Rand, logger *slog.Logger) error {
	var dialOpts websocket.DialOptions
	if opts.Msgpack {
		dialOpts.Subprotocols = []string{domain.MsgpackSubprotocol}
	}
	conn, _, err := websocket.Dial(ctx, opts.ServerURL, &dialOpts)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	c := &botConn{conn: conn, codec: domain.CodecFor(conn.Subprotocol())}
	logger.Info("connected", "codec", c.codec.Name())

	join := domain.ClientMessage{Type: domain.MsgJoin, RoomID: opts.Room, PlayerName: name}
	if opts.Secret != "" {
		token, err := auth.NewHS256Verifier(opts.Secret).Issue(name, time.Hour)
		if err != nil {
			return fmt.Errorf("issue ticket: %w", err)
		}
		join.Token = token
	}

	var alive atomic.Bool
	eg, ctx := errgroup.WithContext(ctx)

	// 受信ループ
	eg.Go(func() error {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}
			msg, err := domain.DecodeServerMessage(c.codec, data)
			if err != nil {
				logger.Debug("undecodable message", "err", err)
				continue
			}
			switch p := msg.Payload.(type) {
			case domain.AssignPayload:
				logger.Info("session assigned", "sessionID", p.SessionID)
				if err := c.send(ctx, join); err != nil {
					return fmt.Errorf("send join: %w", err)
				}
			case domain.JoinedPayload:
				logger.Info("joined room", "roomID", p.RoomState.RoomID, "tankID", p.TankID)
				alive.Store(true)
			case domain.JoinErrorPayload:
				return fmt.Errorf("%w: %s", errJoinRejected, p.Reason)
			case domain.RoomFinishedPayload:
				logger.Info("round finished", "reason", p.Reason)
			case domain.PingPayload:
				if err := c.send(ctx, domain.ClientMessage{Type: domain.MsgPong}); err != nil {
					return fmt.Errorf("send pong: %w", err)
				}
			}
		}
	})

	// 判断・送信ループ (ルームと同じ30Hz)
	eg.Go(func() error {
		controller := &application.RandomBotController{
			BehaviorChance: opts.BehaviorChance,
			FireChance:     opts.FireChance,
		}
		ticker := time.NewTicker(time.Second / 30)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "shutdown")
				return nil
			case <-ticker.C:
				if !alive.Load() {
					continue
				}
				for _, msg := range actionMessages(controller.Decide(rng)) {
					if err := c.send(ctx, msg); err != nil {
						return fmt.Errorf("write: %w", err)
					}
				}
			}
		}
	})

	return eg.Wait()
}

// actionMessages はボットの判断をクライアントメッセージに変換します。
func actionMessages(a application.BotAction) []domain.ClientMessage {
	var msgs []domain.ClientMessage
	if a.Reroll {
		moving := a.Moving
		turning := a.Turning
		msgs = append(msgs,
			domain.ClientMessage{Type: domain.MsgMove, Moving: &moving},
			domain.ClientMessage{Type: domain.MsgTurn, Direction: &turning},
		)
	}
	if a.Fire {
		msgs = append(msgs, domain.ClientMessage{Type: domain.MsgFire})
	}
	return msgs
}

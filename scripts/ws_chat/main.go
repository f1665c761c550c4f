package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/chatrelay/internal/proto"
)

// frame mirrors proto.Outbound with the payload left raw for decoding.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error,omitempty"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3002/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "username")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Printf("Connected to %s as %s\n", *addr, *user)
	fmt.Println("Type messages and press Enter to send, /diceroll to roll. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *user)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch f.Event {
		case proto.OutboundEventChat:
			var msg proto.ChatData
			if err := json.Unmarshal(f.Data, &msg); err != nil {
				log.Printf("unmarshal chat: %v", err)
				continue
			}
			ts := time.UnixMilli(msg.Time).Format("15:04:05")
			fmt.Printf("[%s] %s: %s\n", ts, msg.User, msg.Msg)
		case proto.OutboundEventError:
			if f.Error != nil {
				fmt.Printf("error %s: %s\n", f.Error.Code, f.Error.Msg)
			}
		default:
			fmt.Printf("event=%s data=%s\n", f.Event, f.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, user string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			payload, err := json.Marshal(proto.MessageData{User: user, Msg: text})
			if err != nil {
				log.Printf("marshal msg: %v", err)
				return
			}
			if err := wsjson.Write(ctx, conn, proto.Inbound{Event: proto.InboundEventMessage, Data: payload}); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

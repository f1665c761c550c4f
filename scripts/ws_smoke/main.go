package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/chatrelay/internal/proto"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error,omitempty"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

// run sends one chat message and one dice roll, then waits for both to come
// back. Replayed history arriving first is printed and skipped.
func run() error {
	addr := flag.String("addr", "ws://localhost:3002/ws", "WebSocket address")
	user := flag.String("user", "tester", "username to send as")
	text := flag.String("text", "hello from smoke test", "message text to send")
	dice := flag.Bool("dice", true, "also request a dice roll")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	marker := fmt.Sprintf("%s (%d)", *text, time.Now().UnixNano())
	if err := send(ctx, conn, *user, marker); err != nil {
		return err
	}
	if *dice {
		if err := send(ctx, conn, *user, "/diceroll"); err != nil {
			return err
		}
	}

	sawEcho, sawDice := false, !*dice
	dicePrefix := *user + " requested a dice roll: "
	for !sawEcho || !sawDice {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return fmt.Errorf("read (echo=%v dice=%v): %w", sawEcho, sawDice, err)
		}

		if f.Event == proto.OutboundEventError && f.Error != nil {
			return fmt.Errorf("server error %s: %s", f.Error.Code, f.Error.Msg)
		}
		if f.Event != proto.OutboundEventChat {
			fmt.Printf("Received event=%s\n", f.Event)
			continue
		}

		var msg proto.ChatData
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			return fmt.Errorf("unmarshal chat: %w", err)
		}
		fmt.Printf("Chat: user=%s msg=%q time=%d\n", msg.User, msg.Msg, msg.Time)

		switch {
		case msg.User == *user && msg.Msg == marker:
			sawEcho = true
		case msg.User == "System" && strings.HasPrefix(msg.Msg, dicePrefix):
			sawDice = true
		}
	}

	fmt.Println("smoke test passed")
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, user, text string) error {
	payload, err := json.Marshal(proto.MessageData{User: user, Msg: text})
	if err != nil {
		return fmt.Errorf("marshal msg: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Event: proto.InboundEventMessage, Data: payload}); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

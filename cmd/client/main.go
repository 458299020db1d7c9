package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"style-relay/domain"
	"style-relay/ws"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=ws://localhost:3001/ws"`
	Nickname  string `env:"CHAT_NICKNAME,default=anonymous"`
	Style     string `env:"CHAT_STYLE,default=uwu"`
	Colours   bool   `env:"CHAT_COLOURS,default=true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run handles the WebSocket client lifecycle: dial, join, then pump stdin
// lines out and server events onto the terminal until interrupted.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, config.ServerURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	defer conn.Close()

	if err := send(conn, ws.TypeJoin, ws.JoinPayload{Nickname: config.Nickname, Style: config.Style}); err != nil {
		return exitRuntime, fmt.Errorf("join failed: %w", err)
	}

	// Server events are rendered from a dedicated goroutine; readErr also
	// doubles as the "connection is gone" signal for the input loop.
	readErr := make(chan error, 1)
	go func() {
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			render(config, frame)
		}
	}()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			switch {
			case line == "":
				continue
			case line == "/quit":
				stop()
				return
			case line == "/quota":
				_ = send(conn, ws.TypeRequestQuota, nil)
			default:
				_ = send(conn, ws.TypeSendMessage, ws.SendMessagePayload{Content: line})
			}
		}
	}()

	select {
	case <-ctx.Done():
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return exitOK, nil
	case err := <-readErr:
		return exitRuntime, fmt.Errorf("connection lost: %w", err)
	}
}

func send(conn *websocket.Conn, frameType string, payload any) error {
	envelope := ws.Envelope{Type: frameType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		envelope.Payload = raw
	}
	return conn.WriteJSON(envelope)
}

// render pretty-prints one server event.
func render(config Config, frame []byte) {
	var envelope ws.Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return
	}

	switch envelope.Type {
	case "user-joined":
		var p domain.Participant
		if json.Unmarshal(envelope.Payload, &p) != nil {
			return
		}
		printHeader(config, fmt.Sprintf("%s joined (born %s)", p.DisplayNickname, p.OriginalNickname))

	case "user-left":
		var p domain.Participant
		if json.Unmarshal(envelope.Payload, &p) != nil {
			return
		}
		printHeader(config, fmt.Sprintf("%s left", p.DisplayNickname))

	case "users-list":
		var users []domain.Participant
		if json.Unmarshal(envelope.Payload, &users) != nil {
			return
		}
		renderUsers(users)

	case "messages-history":
		var messages []domain.ChatMessage
		if json.Unmarshal(envelope.Payload, &messages) != nil {
			return
		}
		for _, m := range messages {
			printMessage(config, m)
		}

	case "new-message":
		var m domain.ChatMessage
		if json.Unmarshal(envelope.Payload, &m) != nil {
			return
		}
		printMessage(config, m)

	case "error":
		var message string
		if json.Unmarshal(envelope.Payload, &message) != nil {
			return
		}
		if config.Colours {
			color.Error.Println(message)
		} else {
			fmt.Println("error:", message)
		}

	case "quota-update":
		fmt.Printf("quota: %s\n", string(envelope.Payload))
	}
}

func printHeader(config Config, text string) {
	header := fmt.Sprintf("  ====== %s ======", text)
	if config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)
}

func printMessage(config Config, m domain.ChatMessage) {
	author := m.Author.DisplayNickname
	if config.Colours {
		author = color.New(color.FgCyan).Render(author)
	}
	fmt.Printf("[%s] %s: %s\n", m.SentAt.Local().Format("15:04:05"), author, m.DisplayContent)
}

func renderUsers(users []domain.Participant) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Nickname", "Original", "Style"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	rows := lo.Map(users, func(p domain.Participant, _ int) []string {
		return []string{p.DisplayNickname, p.OriginalNickname, string(p.Style)}
	})
	table.AppendBulk(rows)
	table.Render()
}

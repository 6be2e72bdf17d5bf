package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/valyala/fasthttp"

	"github.com/wfunc/analogyarena/game"
	"github.com/wfunc/analogyarena/network"
)

// current 最近一次收到的题目
type current struct {
	mu       sync.Mutex
	question *network.QuestionView
	wordle   bool
}

func (c *current) set(q network.QuestionPush) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.question = q.Question
	c.wordle = q.Puzzle != nil
}

func (c *current) get() (*network.QuestionView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.question, c.wordle
}

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, v interface{}) error {
	data, err := network.Encode(v)
	if err != nil {
		return err
	}
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

// signIn 调用开发环境登录接口换取 token
func signIn(host, userID string) (string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	body, _ := json.Marshal(map[string]string{"user_id": userID, "username": userID})
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI("http://" + host + "/auth/session")
	req.Header.SetContentType("application/json")
	req.SetBody(body)
	if err := fasthttp.DoTimeout(req, resp, 5*time.Second); err != nil {
		return "", err
	}

	var out struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Data    struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", err
	}
	if !out.Success {
		return "", fmt.Errorf("sign-in failed: %s", out.Error)
	}
	return out.Data.Token, nil
}

func printPacket(p *network.Packet, cur *current) {
	switch p.MsgID {
	case network.MsgTypeQuestion:
		var q network.QuestionPush
		if err := network.Decode(p.Data, &q); err != nil {
			break
		}
		cur.set(q)
		if q.Puzzle != nil {
			fmt.Printf("\n%s #%d (%d attempts)\n  %s\n> ", q.GameType.Label(), q.Number, q.Remaining, q.Puzzle.Clue)
			return
		}
		if q.Question == nil {
			break
		}
		fmt.Printf("\nQuestion %d/%d: %s\n", q.Number, q.Total, q.Question.Prompt)
		for i, o := range q.Question.Options {
			fmt.Printf("  %d) %s\n", i+1, o.Text)
		}
		fmt.Print("> ")
		return
	case network.MsgTypeGameEnd:
		var end network.GameEnd
		if err := network.Decode(p.Data, &end); err == nil {
			fmt.Printf("\nGame over. Score %d (saved: %v)\n", end.Result.Score, end.Saved)
			if end.ShareText != "" {
				fmt.Println(end.ShareText)
			}
			return
		}
	}
	log.Printf("<- RECV (ID: %d): %s", p.MsgID, string(p.Data))
}

func main() {
	host := flag.String("host", "localhost:8080", "server address")
	user := flag.String("user", "player-1", "user id for dev sign-in")
	gameType := flag.String("game", "riddle", "riddle | context-challenge | wordle")
	topic := flag.String("topic", "General", "topic")
	difficulty := flag.String("difficulty", "Medium", "Easy | Medium | Hard")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	token, err := signIn(*host, *user)
	if err != nil {
		log.Fatalf("Sign-in failed: %v", err)
	}

	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws", RawQuery: "token=" + url.QueryEscape(token)}
	log.Printf("Connecting to %s", u.Host)
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	cur := &current{}
	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			p, err := network.DecodePacket(message)
			if err != nil {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			printPacket(p, cur)
		}
	}()

	start := map[string]string{"game_type": *gameType, "topic": *topic, "difficulty": *difficulty}
	if err := send(c, network.MsgTypeStartGame, start); err != nil {
		log.Println("Write error:", err)
		return
	}
	log.Println("Type an answer, an option number, 'h' for a hint or 'q' to leave.")

	// stdin 读取放到单独 goroutine，主循环才能响应中断
	lines := make(chan string)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			text, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- strings.TrimSpace(text)
		}
	}()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			return
		case <-heartbeat.C:
			send(c, network.MsgTypeHeartbeat, nil)
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case text, ok := <-lines:
			if !ok {
				return
			}
			if err := handleInput(c, cur, text); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}

func handleInput(c *websocket.Conn, cur *current, text string) error {
	q, wordle := cur.get()
	switch {
	case text == "":
		return nil
	case text == "q":
		return send(c, network.MsgTypeLeaveGame, nil)
	case wordle:
		return send(c, network.MsgTypeGuess, network.GuessRequest{Guess: text})
	case q == nil:
		log.Println("No question yet.")
		return nil
	case text == "h":
		return send(c, network.MsgTypeHint, network.HintRequest{QuestionID: q.ID})
	}

	if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(q.Options) {
		return send(c, network.MsgTypeChoose, network.ChooseRequest{QuestionID: q.ID, OptionID: q.Options[n-1].ID})
	}
	if len([]rune(text)) < game.MinGuessLength {
		log.Println("Answers need at least two characters.")
		return nil
	}
	return send(c, network.MsgTypeAnswer, network.AnswerRequest{QuestionID: q.ID, Answer: text})
}

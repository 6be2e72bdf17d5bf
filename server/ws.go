package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/analogyarena/game"
	"github.com/wfunc/analogyarena/identity"
	"github.com/wfunc/analogyarena/logger"
	"github.com/wfunc/analogyarena/models"
	"github.com/wfunc/analogyarena/network"
	"github.com/wfunc/analogyarena/services"
	"github.com/wfunc/analogyarena/session"
)

// wordGame 猜词局和它的期号
type wordGame struct {
	session *game.WordSession
	number  int
}

// requestTimeout 单条消息里调用存储或生成服务的超时
const requestTimeout = 10 * time.Second

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	// 升级请求里已带 token 时直接绑定用户
	if uc, ok := identity.FromContext(r.Context()); ok {
		sess.Bind(uc.UserID, uc.Username)
	}
	s.handleConnection(sess, wsConn)
}

func (s *GameServer) handleConnection(sess *session.Session, conn network.Connection) {
	s.opts.Sessions.Add(sess)
	s.opts.Monitor.IncOnlinePlayers()
	if s.opts.Heartbeat > 0 {
		conn.SetHeartbeat(s.opts.Heartbeat)
	}
	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		s.dropGame(sess)
		s.opts.Sessions.Remove(sess.GetID())
		s.opts.Monitor.DecOnlinePlayers()
		conn.Close()
	}()

	for {
		packet, err := conn.ReadPacket()
		if err != nil {
			return
		}
		start := time.Now()
		sess.Touch()
		s.opts.Monitor.IncMessagesReceived()
		s.handlePacket(sess, packet)
		s.opts.Monitor.ObserveMessageLatency(time.Since(start))
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Send(network.MsgTypeHeartbeat, nil)
		return
	case network.MsgTypeAuth:
		s.handleAuth(sess, packet)
		return
	}

	if sess.UserID() == "" {
		s.sendError(sess, network.ErrCodeUnauthenticated, "sign in first")
		return
	}

	switch packet.MsgID {
	case network.MsgTypeStartGame:
		s.handleStartGame(sess, packet)
	case network.MsgTypeAnswer:
		s.handleAnswer(sess, packet)
	case network.MsgTypeChoose:
		s.handleChoose(sess, packet)
	case network.MsgTypeHint:
		s.handleHint(sess, packet)
	case network.MsgTypeGuess:
		s.handleGuess(sess, packet)
	case network.MsgTypeLeaveGame:
		s.dropGame(sess)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
		s.sendError(sess, network.ErrCodeBadRequest, "unknown message type")
	}
}

// decode 解析并校验请求，失败时已回复错误
func (s *GameServer) decode(sess *session.Session, packet *network.Packet, v interface{}) bool {
	if err := network.Decode(packet.Data, v); err != nil {
		s.sendError(sess, network.ErrCodeBadRequest, "malformed payload")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.sendError(sess, network.ErrCodeBadRequest, err.Error())
		return false
	}
	return true
}

func (s *GameServer) push(sess *session.Session, msgID uint16, v interface{}) {
	data, err := network.Encode(v)
	if err != nil {
		logger.Log.Errorw("encode push failed", "msg_id", msgID, "error", err)
		return
	}
	if err := sess.Send(msgID, data); err != nil {
		logger.Log.Debugw("send failed", "session", sess.GetID(), "msg_id", msgID, "error", err)
	}
}

func (s *GameServer) sendError(sess *session.Session, code, msg string) {
	s.push(sess, network.MsgTypeError, network.ErrorPush{Code: code, Message: msg})
}

// sendGameError 把会话错误转换为错误码
func (s *GameServer) sendGameError(sess *session.Session, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidGuess):
		s.sendError(sess, network.ErrCodeInvalidInput, err.Error())
	case errors.Is(err, game.ErrNoContent):
		s.sendError(sess, network.ErrCodeNoContent, err.Error())
	case errors.Is(err, game.ErrNotPlaying), errors.Is(err, game.ErrWrongQuestion), errors.Is(err, game.ErrUnknownOption):
		s.sendError(sess, network.ErrCodeBadRequest, err.Error())
	default:
		s.sendError(sess, network.ErrCodeInternal, err.Error())
	}
}

func (s *GameServer) handleAuth(sess *session.Session, packet *network.Packet) {
	var req network.AuthRequest
	if !s.decode(sess, packet, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	uc, err := s.opts.Auth.Resolve(ctx, req.Token)
	if err != nil {
		s.sendError(sess, network.ErrCodeUnauthenticated, identity.ErrUnauthenticated.Error())
		return
	}
	// 换账号时丢弃进行中的游戏
	if sess.UserID() != "" && sess.UserID() != uc.UserID {
		s.dropGame(sess)
	}
	sess.Bind(uc.UserID, uc.Username)
	s.push(sess, network.MsgTypeAuthResult, network.AuthResult{UserID: sess.UserID(), Username: sess.Username()})
}

// dropGame 放弃进行中的游戏，不产生结果
func (s *GameServer) dropGame(sess *session.Session) {
	switch g := sess.Game().(type) {
	case *game.QuizSession:
		if g.Phase() == game.PhasePlaying {
			g.Abandon()
			s.opts.Games.EndGame()
		}
	case *wordGame:
		if g.session.Status() == game.WordPlaying {
			s.opts.Games.EndGame()
		}
	}
	sess.ClearGame()
}

func (s *GameServer) handleStartGame(sess *session.Session, packet *network.Packet) {
	var req network.StartGameRequest
	if !s.decode(sess, packet, &req) {
		return
	}
	s.dropGame(sess)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if req.GameType == models.GameWordle {
		word, number, err := s.opts.Games.StartWord(ctx, sess.UserID(), req.Topic)
		if err != nil {
			s.sendGameError(sess, err)
			return
		}
		wg := &wordGame{session: word, number: number}
		sess.SetGame(wg)
		s.pushPuzzle(sess, wg)
		return
	}

	quiz, err := s.opts.Games.StartQuiz(ctx, sess.UserID(), services.StartRequest{
		GameType:   req.GameType,
		Topic:      req.Topic,
		SubTopics:  req.SubTopics,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		s.sendGameError(sess, err)
		return
	}
	sess.SetGame(quiz)
	s.pushQuestion(sess, quiz)
}

func (s *GameServer) pushQuestion(sess *session.Session, quiz *game.QuizSession) {
	q, ok := quiz.Current()
	if !ok {
		return
	}
	s.push(sess, network.MsgTypeQuestion, network.QuestionPush{
		SessionID:      quiz.ID,
		GameType:       quiz.GameType,
		Number:         quiz.QuestionNumber(),
		Total:          quiz.TotalQuestions(),
		Question:       network.NewQuestionView(q),
		HintsRemaining: quiz.HintsRemaining(),
	})
}

func (s *GameServer) pushPuzzle(sess *session.Session, wg *wordGame) {
	puzzle := wg.session.Puzzle
	s.push(sess, network.MsgTypeQuestion, network.QuestionPush{
		SessionID: wg.session.ID,
		GameType:  models.GameWordle,
		Number:    wg.number,
		Puzzle:    &puzzle,
		Remaining: wg.session.Remaining(),
	})
}

func (s *GameServer) currentQuiz(sess *session.Session) (*game.QuizSession, bool) {
	quiz, ok := sess.Game().(*game.QuizSession)
	if !ok {
		s.sendError(sess, network.ErrCodeNoGame, "no quiz in progress")
	}
	return quiz, ok
}

func (s *GameServer) handleAnswer(sess *session.Session, packet *network.Packet) {
	var req network.AnswerRequest
	if !s.decode(sess, packet, &req) {
		return
	}
	quiz, ok := s.currentQuiz(sess)
	if !ok {
		return
	}
	out, err := quiz.Answer(req.QuestionID, req.Answer)
	s.afterAnswer(sess, quiz, out, err)
}

func (s *GameServer) handleChoose(sess *session.Session, packet *network.Packet) {
	var req network.ChooseRequest
	if !s.decode(sess, packet, &req) {
		return
	}
	quiz, ok := s.currentQuiz(sess)
	if !ok {
		return
	}
	out, err := quiz.Choose(req.QuestionID, req.OptionID)
	s.afterAnswer(sess, quiz, out, err)
}

func (s *GameServer) afterAnswer(sess *session.Session, quiz *game.QuizSession, out game.AnswerOutcome, err error) {
	if err != nil {
		s.sendGameError(sess, err)
		return
	}
	s.push(sess, network.MsgTypeAnswerResult, out)

	if quiz.Phase() != game.PhaseFinished {
		s.pushQuestion(sess, quiz)
		return
	}

	result, _ := quiz.Result()
	summary := quiz.Summary()
	saved := s.record(result, services.OutcomeFinished)
	sess.ClearGame()
	s.push(sess, network.MsgTypeGameEnd, network.GameEnd{Result: result, Summary: summary, Saved: saved})
}

func (s *GameServer) handleHint(sess *session.Session, packet *network.Packet) {
	var req network.HintRequest
	if !s.decode(sess, packet, &req) {
		return
	}
	quiz, ok := s.currentQuiz(sess)
	if !ok {
		return
	}
	hint, granted := quiz.UseHint(req.QuestionID)
	s.push(sess, network.MsgTypeHintResult, network.HintResult{
		QuestionID:     req.QuestionID,
		Hint:           hint,
		Granted:        granted,
		HintsRemaining: quiz.HintsRemaining(),
	})
}

func (s *GameServer) handleGuess(sess *session.Session, packet *network.Packet) {
	var req network.GuessRequest
	if !s.decode(sess, packet, &req) {
		return
	}
	wg, ok := sess.Game().(*wordGame)
	if !ok {
		s.sendError(sess, network.ErrCodeNoGame, "no word game in progress")
		return
	}
	out, err := wg.session.Guess(req.Guess)
	if err != nil {
		s.sendGameError(sess, err)
		return
	}
	s.push(sess, network.MsgTypeGuessResult, out)
	if out.Status == game.WordPlaying {
		return
	}

	result, _ := wg.session.Result()
	saved := s.record(result, out.Status)
	sess.ClearGame()
	s.push(sess, network.MsgTypeGameEnd, network.GameEnd{
		Result:    result,
		ShareText: wg.session.ShareText(wg.number),
		Saved:     saved,
	})
}

// record 保存失败只影响 Saved 标记，玩家仍然看到结算
func (s *GameServer) record(result models.GameResult, outcome string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	return s.opts.Games.RecordResult(ctx, result, outcome) == nil
}

package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/khushi491/interview-buddy-sub000/internal/analysis"
	"github.com/khushi491/interview-buddy-sub000/internal/session"
	"github.com/khushi491/interview-buddy-sub000/internal/storage"
)

const (
	defaultPosition = "Software Engineer"
	maxMessageLen   = 4000
	sendTimeout     = 10 * time.Second
)

// RateLimiter gives every user their own token bucket.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 20
	}
	return &RateLimiter{
		limiters: make(map[int64]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (rl *RateLimiter) IsAllowed(userID int64) bool {
	rl.mu.Lock()
	l, ok := rl.limiters[userID]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[userID] = l
	}
	rl.mu.Unlock()
	return l.Allow()
}

// Handler maps chats onto interview sessions.
type Handler struct {
	bot         *Bot
	manager     *session.Manager
	logger      *slog.Logger
	rateLimiter *RateLimiter

	mu    sync.Mutex
	chats map[int64]string // chat id -> interview id
}

func NewHandler(bot *Bot, manager *session.Manager, messagesPerMin int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		bot:         bot,
		manager:     manager,
		logger:      logger.With("transport", "telegram"),
		rateLimiter: NewRateLimiter(messagesPerMin),
		chats:       make(map[int64]string),
	}
}

// HandleUpdate processes one update. It is safe to call concurrently.
func (h *Handler) HandleUpdate(ctx context.Context, update Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}

	if !h.rateLimiter.IsAllowed(userID) {
		h.send(ctx, chatID, "⏳ Too many messages. Please wait a minute.")
		return
	}

	if strings.HasPrefix(text, "/") {
		h.handleCommand(ctx, chatID, text)
		return
	}
	h.handleUserInput(ctx, chatID, text)
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, text string) {
	command, arg, _ := strings.Cut(text, " ")
	// "/start@botname" in group chats
	command, _, _ = strings.Cut(command, "@")

	switch command {
	case "/start":
		h.handleStartCommand(ctx, chatID, strings.TrimSpace(arg))
	case "/help":
		h.send(ctx, chatID, helpText)
	case "/status":
		h.handleStatusCommand(ctx, chatID)
	case "/continue":
		h.handleContinueCommand(ctx, chatID)
	case "/stop":
		h.handleStopCommand(ctx, chatID)
	case "/feedback":
		h.handleFeedbackCommand(ctx, chatID)
	default:
		h.send(ctx, chatID, "Unknown command. Use /help to see what I understand.")
	}
}

const helpText = `🤖 *Mock interview bot*

*Commands:*
/start <position> - start a new interview, e.g. /start Backend Engineer
/status - show progress and time left
/continue - move to the next section now
/stop - end the interview
/feedback - grade the interview (ends it if still running)
/help - show this message

Answer each question in a normal message. Sections move on automatically once the interviewer has what they need.`

func (h *Handler) handleStartCommand(ctx context.Context, chatID int64, position string) {
	if sess, ok := h.current(chatID); ok && !sess.Ended() {
		h.send(ctx, chatID, "You already have an interview running. Use /status to check progress or /stop to end it.")
		return
	}
	if position == "" {
		position = defaultPosition
	}

	sess, err := h.manager.Start(ctx, session.StartRequest{Position: position, Transport: "telegram"})
	if err != nil {
		h.logger.Error("failed to start interview", "chat_id", chatID, "error", err)
		h.send(ctx, chatID, "❌ Could not start the interview. Please try again later.")
		return
	}
	sess.OnSectionStart(func(msg storage.Message) {
		h.announceSection(chatID, sess, msg)
	})

	h.mu.Lock()
	h.chats[chatID] = sess.ID()
	h.mu.Unlock()

	v := sess.View()
	var b strings.Builder
	fmt.Fprintf(&b, "🎯 *Interview for %s*\n\n", position)
	fmt.Fprintf(&b, "🆔 ID: `%s`\n", v.ID)
	fmt.Fprintf(&b, "📋 Sections: %d\n", v.TotalSections)
	fmt.Fprintf(&b, "⏱ Time: ~%d minutes\n", v.TotalSecondsLeft/60)
	if v.CurrentSection != nil {
		fmt.Fprintf(&b, "\n*Section 1/%d: %s*", v.TotalSections, v.CurrentSection.Title)
	}
	h.send(ctx, chatID, b.String())
	if n := len(v.Transcript); n > 0 {
		h.send(ctx, chatID, v.Transcript[n-1].Content)
	}
}

func (h *Handler) announceSection(chatID int64, sess *session.Session, msg storage.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	header := "➡️ *Next section*"
	if v := sess.View(); v.CurrentSection != nil {
		header = fmt.Sprintf("➡️ *Section %d/%d: %s*", v.SectionIndex+1, v.TotalSections, v.CurrentSection.Title)
	}
	h.send(ctx, chatID, header+"\n\n"+msg.Content)
}

func (h *Handler) handleStatusCommand(ctx context.Context, chatID int64) {
	sess, ok := h.current(chatID)
	if !ok {
		h.send(ctx, chatID, "No interview yet. Use /start to begin.")
		return
	}
	v := sess.View()
	if v.Ended {
		h.send(ctx, chatID, fmt.Sprintf("✅ Interview finished.\n🆔 ID: `%s`\n\nUse /feedback for your results.", v.ID))
		return
	}

	title := "-"
	if v.CurrentSection != nil {
		title = v.CurrentSection.Title
	}
	h.send(ctx, chatID, fmt.Sprintf("📊 *Progress*\n\n"+
		"🆔 ID: `%s`\n"+
		"📋 Section: %d/%d (%s)\n"+
		"💬 Answers in section: %d\n"+
		"⏱ Section time left: %s\n"+
		"⏰ Total time left: %s",
		v.ID,
		v.SectionIndex+1, v.TotalSections, title,
		v.SectionResponseCount,
		formatSeconds(v.SectionSecondsLeft),
		formatSeconds(v.TotalSecondsLeft),
	))
}

func (h *Handler) handleContinueCommand(ctx context.Context, chatID int64) {
	sess, ok := h.current(chatID)
	if !ok {
		h.send(ctx, chatID, "No interview running. Use /start to begin.")
		return
	}
	switch err := sess.Continue(ctx); {
	case err == nil:
		if sess.Ended() {
			h.sendCompletion(ctx, chatID, sess)
		}
	case errors.Is(err, session.ErrInterviewEnded):
		h.send(ctx, chatID, "The interview has already ended. Use /feedback for your results.")
	case errors.Is(err, session.ErrBusy):
		h.send(ctx, chatID, "Already moving to the next section.")
	default:
		h.logger.Error("continue failed", "chat_id", chatID, "error", err)
		h.send(ctx, chatID, "❌ Could not move on. Please try again.")
	}
}

func (h *Handler) handleStopCommand(ctx context.Context, chatID int64) {
	sess, ok := h.current(chatID)
	if !ok || sess.Ended() {
		h.send(ctx, chatID, "No interview is running.")
		return
	}
	sess.Finish(ctx)
	h.send(ctx, chatID, "🛑 Interview stopped. Use /feedback for your results or /start for a new one.")
}

func (h *Handler) handleFeedbackCommand(ctx context.Context, chatID int64) {
	sess, ok := h.current(chatID)
	if !ok {
		h.send(ctx, chatID, "No interview to grade. Use /start to begin.")
		return
	}
	if a, ok := sess.Analysis(); ok {
		h.send(ctx, chatID, analysis.FormatSummary(a))
		return
	}

	h.send(ctx, chatID, "🧠 Grading your interview, this takes a moment...")
	a, err := sess.Analyze(ctx)
	if errors.Is(err, session.ErrAnalysisInProgress) {
		h.send(ctx, chatID, "Grading is already in progress.")
		return
	}
	if err != nil {
		h.logger.Error("analysis failed", "chat_id", chatID, "error", err)
		h.send(ctx, chatID, "❌ Could not grade the interview.")
		return
	}
	h.send(ctx, chatID, analysis.FormatSummary(a))
}

func validateUserInput(text string) error {
	if len([]rune(text)) > maxMessageLen {
		return fmt.Errorf("message is too long (max %d characters)", maxMessageLen)
	}
	if len(text) > 10 && strings.Count(text, text[:1]) > len(text)*8/10 {
		return fmt.Errorf("message has too many repeated characters")
	}
	return nil
}

func (h *Handler) handleUserInput(ctx context.Context, chatID int64, text string) {
	sess, ok := h.current(chatID)
	if !ok {
		h.send(ctx, chatID, "No interview running. Use /start to begin or /help for help.")
		return
	}
	if err := validateUserInput(text); err != nil {
		h.send(ctx, chatID, "❌ "+err.Error())
		return
	}

	msg, err := sess.Reply(ctx, text)
	switch {
	case errors.Is(err, session.ErrInterviewEnded):
		h.sendCompletion(ctx, chatID, sess)
		return
	case err != nil:
		h.logger.Error("reply failed", "chat_id", chatID, "error", err)
		h.send(ctx, chatID, "❌ The interviewer is unavailable right now. Please resend your answer.")
		return
	}

	if msg.Content != "" {
		h.send(ctx, chatID, msg.Content)
	}
	if sess.View().AutoAdvancing {
		h.send(ctx, chatID, "_Moving to the next section shortly..._")
	}
}

func (h *Handler) sendCompletion(ctx context.Context, chatID int64, sess *session.Session) {
	v := sess.View()
	h.send(ctx, chatID, fmt.Sprintf("🎉 *Interview complete!*\n\n"+
		"📋 Sections reached: %d/%d\n"+
		"🆔 ID: `%s`\n\n"+
		"Use /feedback for your results or /start for a new interview.",
		v.SectionIndex+1, v.TotalSections, v.ID))
}

// current returns the chat's session if the manager still holds it.
func (h *Handler) current(chatID int64) (*session.Session, bool) {
	h.mu.Lock()
	id, ok := h.chats[chatID]
	h.mu.Unlock()
	if !ok {
		return nil, false
	}

	sess, err := h.manager.Get(id)
	if err != nil {
		h.mu.Lock()
		delete(h.chats, chatID)
		h.mu.Unlock()
		return nil, false
	}
	return sess, true
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	if err := h.bot.SendMessage(ctx, chatID, text); err != nil {
		h.logger.Error("send failed", "chat_id", chatID, "error", err)
	}
}

func formatSeconds(secs int) string {
	return (time.Duration(secs) * time.Second).String()
}

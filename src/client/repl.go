package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

const helpText = `Commands:
  /new        start a new conversation
  /list       show recent conversations
  /open <n>   switch to conversation n from /list
  /help       show this help
  /quit       exit`

// REPL is a line-oriented chat loop over a Session.
type REPL struct {
	session  *Session
	renderer *Renderer
	in       io.Reader
	out      io.Writer
	logger   *slog.Logger
}

func NewREPL(session *Session, renderer *Renderer, in io.Reader, out io.Writer, logger *slog.Logger) *REPL {
	if logger == nil {
		logger = slog.Default()
	}
	return &REPL{
		session:  session,
		renderer: renderer,
		in:       in,
		out:      out,
		logger:   logger.With("component", "repl"),
	}
}

// Run reads lines until EOF, /quit, or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.session.Load(ctx); err != nil {
		r.logger.Warn("failed to load conversations", "error", err)
		r.println(r.renderer.Error("Could not load conversations: " + err.Error()))
	}

	r.println(r.renderer.Header())
	if len(r.session.Conversations) > 0 {
		r.println(r.renderer.Sidebar(r.session.Conversations, r.session.ConversationID))
		r.println("")
	}
	r.println(r.renderer.Transcript(r.session.Messages))

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	for {
		r.print("\n> ")
		if !scanner.Scan() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if quit := r.handle(ctx, strings.TrimSpace(scanner.Text())); quit {
			return nil
		}
	}
	return scanner.Err()
}

func (r *REPL) handle(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		r.println(r.renderer.Muted(helpText))
	case "/new":
		r.session.NewChat()
		r.println(r.renderer.Welcome())
	case "/list":
		r.println(r.renderer.Sidebar(r.session.Conversations, r.session.ConversationID))
	case "/open":
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			r.println(r.renderer.Error("usage: /open <n>"))
			return false
		}
		if err := r.session.Open(n); err != nil {
			r.println(r.renderer.Error(err.Error()))
			return false
		}
		r.println(r.renderer.Transcript(r.session.Messages))
	default:
		r.send(ctx, line)
	}
	return false
}

func (r *REPL) send(ctx context.Context, text string) {
	err := r.session.Send(ctx, text)
	if err != nil {
		r.logger.Debug("chat request failed", "error", err)
	}
	if n := len(r.session.Messages); n > 0 {
		r.println(r.renderer.Message(r.session.Messages[n-1]))
	}
}

func (r *REPL) print(s string) {
	fmt.Fprint(r.out, s)
}

func (r *REPL) println(s string) {
	fmt.Fprintln(r.out, s)
}

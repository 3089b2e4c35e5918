package client

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/elee1766/chatrelay/src/aisdk"
	"github.com/elee1766/chatrelay/src/storage"
	"github.com/elee1766/chatrelay/src/theme"
)

type RenderOptions struct {
	Theme theme.Theme
	// Width of the sidebar titles in cells
	SidebarWidth int
	// Highlight enables chroma highlighting of fenced code
	Highlight bool
}

// Renderer turns session state into terminal text.
type Renderer struct {
	opts RenderOptions

	header    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	muted     lipgloss.Style
	active    lipgloss.Style
	errStyle  lipgloss.Style
	code      lipgloss.Style
}

func NewRenderer(opts RenderOptions) *Renderer {
	if opts.SidebarWidth <= 0 {
		opts.SidebarWidth = 40
	}
	t := opts.Theme
	return &Renderer{
		opts:      opts,
		header:    lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		user:      lipgloss.NewStyle().Bold(true).Foreground(t.User),
		assistant: lipgloss.NewStyle().Bold(true).Foreground(t.Assistant),
		muted:     lipgloss.NewStyle().Foreground(t.TextMuted),
		active:    lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		errStyle:  lipgloss.NewStyle().Foreground(t.Error),
		code:      lipgloss.NewStyle().PaddingLeft(2),
	}
}

func (r *Renderer) Header() string {
	return r.header.Render("🤖 AI Assistant")
}

func (r *Renderer) Welcome() string {
	return strings.Join([]string{
		r.header.Render("✨ Hello! Ask me anything"),
		r.muted.Render("Your conversations are automatically saved"),
	}, "\n")
}

// Transcript renders every message, or the welcome text when there are none.
func (r *Renderer) Transcript(msgs []storage.Message) string {
	if len(msgs) == 0 {
		return r.Welcome()
	}
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, r.Message(m))
	}
	return strings.Join(parts, "\n\n")
}

func (r *Renderer) Message(m storage.Message) string {
	label := r.assistant.Render("Assistant")
	if m.Role == aisdk.RoleUser {
		label = r.user.Render("You")
	}
	return label + "\n" + r.body(m.Content)
}

// Sidebar lists conversations with their title and first-message date.
func (r *Renderer) Sidebar(convs []*storage.Conversation, activeID string) string {
	if len(convs) == 0 {
		return r.muted.Render("No conversations yet")
	}

	var b strings.Builder
	b.WriteString(r.header.Render("💬 Chats"))
	for i, c := range convs {
		title := ansi.Truncate(c.Title, r.opts.SidebarWidth, "…")
		line := fmt.Sprintf("%2d. %s", i+1, title)
		if c.ID == activeID {
			line = r.active.Render(line + " *")
		}
		b.WriteString("\n" + line)
		if date := firstMessageDate(c); date != "" {
			b.WriteString("  " + r.muted.Render(date))
		}
	}
	return b.String()
}

func (r *Renderer) Error(msg string) string {
	return r.errStyle.Render(msg)
}

func (r *Renderer) Muted(msg string) string {
	return r.muted.Render(msg)
}

func firstMessageDate(c *storage.Conversation) string {
	if len(c.Messages) == 0 || c.Messages[0].Timestamp.IsZero() {
		return ""
	}
	return c.Messages[0].Timestamp.Local().Format("Jan 2, 2006")
}

// body renders message text, highlighting fenced code blocks.
func (r *Renderer) body(content string) string {
	var out []string
	for _, seg := range splitFences(content) {
		if !seg.code {
			out = append(out, seg.text)
			continue
		}
		out = append(out, r.code.Render(r.highlight(seg.lang, seg.text)))
	}
	return strings.Join(out, "\n")
}

func (r *Renderer) highlight(lang, code string) string {
	if !r.opts.Highlight {
		return code
	}

	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(r.opts.Theme.CodeStyle)
	if style == nil {
		style = styles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var b strings.Builder
	if err := formatter.Format(&b, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(b.String(), "\n")
}

type segment struct {
	text string
	lang string
	code bool
}

// splitFences splits markdown-ish text into prose and ``` fenced code. An
// unterminated fence runs to the end of the text.
func splitFences(content string) []segment {
	var (
		segs   []segment
		buf    []string
		inCode bool
		lang   string
	)
	flush := func() {
		if len(buf) == 0 && !inCode {
			return
		}
		segs = append(segs, segment{text: strings.Join(buf, "\n"), lang: lang, code: inCode})
		buf = nil
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			flush()
			if inCode {
				inCode, lang = false, ""
			} else {
				inCode, lang = true, strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			}
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return segs
}

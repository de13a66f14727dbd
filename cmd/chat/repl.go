package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/set-night/chatbot/internal/config"
	"github.com/set-night/chatbot/internal/domain"
	"github.com/set-night/chatbot/internal/service"
)

var (
	userColor  = color.New(color.FgCyan, color.Bold)
	aiColor    = color.New(color.FgGreen, color.Bold)
	noteColor  = color.New(color.FgHiBlack)
	errorColor = color.New(color.FgRed)
)

// repl reads questions line by line and prints the answers.
type repl struct {
	bot     *service.Chatbot
	session string
	in      io.Reader
	out     io.Writer

	stream      bool
	showSources bool
	showUsage   bool
}

func newREPL(bot *service.Chatbot, session string, in io.Reader, out io.Writer) *repl {
	return &repl{bot: bot, session: session, in: in, out: out}
}

func (r *repl) run(ctx context.Context) error {
	noteColor.Fprintf(r.out, "Chatting with %s. Type /reset, /history, /sources or quit.\n", r.bot.ModelName())

	lines, errc := readLines(ctx, r.in)
	for {
		userColor.Fprint(r.out, "You: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out)
				return <-errc
			}
			line = strings.TrimSpace(l)
		}

		switch {
		case line == "":
			continue
		case slices.Contains(config.ExitCommands, strings.ToLower(line)):
			return nil
		case line == "/reset":
			if err := r.bot.Reset(ctx, r.session); err != nil {
				errorColor.Fprintf(r.out, "error: %v\n", err)
				continue
			}
			noteColor.Fprintln(r.out, "History cleared.")
		case line == "/history":
			r.printHistory(ctx)
		case line == "/sources":
			r.showSources = !r.showSources
			noteColor.Fprintf(r.out, "Sources %s.\n", onOff(r.showSources))
		default:
			if err := r.turn(ctx, line); err != nil {
				errorColor.Fprintf(r.out, "error: %v\n", err)
			}
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// readLines scans in on its own goroutine so that a blocked read never
// delays cancellation. errc always receives one value before lines closes. A read still blocked after ctx is done is
// left behind; the process is exiting by then.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// turn asks one question and prints the answer with its footers.
func (r *repl) turn(ctx context.Context, question string) error {
	var opts []service.ReplyOption
	if r.stream {
		aiColor.Fprint(r.out, "AI: ")
		opts = append(opts, service.WithStreaming(func(_ context.Context, chunk []byte) error {
			_, err := r.out.Write(chunk)
			return err
		}))
	}

	reply, err := r.bot.Reply(ctx, r.session, question, opts...)
	if err != nil {
		if r.stream {
			fmt.Fprintln(r.out)
		}
		return err
	}

	if r.stream {
		fmt.Fprintln(r.out)
	} else {
		aiColor.Fprint(r.out, "AI: ")
		fmt.Fprintln(r.out, reply.Message.Content)
	}

	if r.showSources && len(reply.Sources) > 0 {
		for i, doc := range reply.Sources {
			noteColor.Fprintf(r.out, "  [%d] %s (%.3f)\n", i+1, doc.Source(), doc.Score)
		}
	}
	if r.showUsage {
		noteColor.Fprintln(r.out, service.FormatCost(reply.Cost, reply.Usage))
	}
	return nil
}

func (r *repl) printHistory(ctx context.Context) {
	msgs, err := r.bot.History(ctx, r.session)
	if err != nil {
		errorColor.Fprintf(r.out, "error: %v\n", err)
		return
	}
	if len(msgs) == 0 {
		noteColor.Fprintln(r.out, "No messages yet.")
		return
	}
	for _, m := range msgs {
		c := userColor
		if m.Role == domain.RoleAI {
			c = aiColor
		}
		c.Fprintf(r.out, "%s: ", m.Role.Label())
		fmt.Fprintln(r.out, m.Content)
	}
}

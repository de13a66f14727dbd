package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/set-night/chatbot/internal/domain"
	"github.com/set-night/chatbot/internal/llm"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

const (
	VarSystem   = "system"
	VarLanguage = "language"
	VarContext  = "context"
	VarHistory  = "history"
	VarInput    = "input"
)

const (
	systemTemplate = `{{.system}}{{if .language}}
Answer in {{.language}}.{{end}}{{if .context}}

Answer the user's questions based on the below context:

{{.context}}{{end}}`

	rewriteInstruction = "Given the above conversation, generate a search query to look up in order to get information relevant to the conversation. Only respond with the query, nothing else."

	NoDocuments = "No relevant documents were retrieved."
)

// Chat is the template for one conversation turn: system message, prior
// history, then the user's input.
type Chat struct {
	tpl prompts.ChatPromptTemplate
}

func NewChat() *Chat {
	return &Chat{tpl: prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
		prompts.NewSystemMessagePromptTemplate(systemTemplate, []string{VarSystem, VarLanguage, VarContext}),
		prompts.MessagesPlaceholder{VariableName: VarHistory},
		prompts.NewHumanMessagePromptTemplate("{{.input}}", []string{VarInput}),
	})}
}

// ChatValues are the inputs of the chat template.
type ChatValues struct {
	System   string
	Language string
	// Context is the formatted block of retrieved documents; empty disables it.
	Context string
	History []domain.Message
	Input   string
}

func (c *Chat) Format(v ChatValues) ([]domain.Message, error) {
	msgs, err := c.tpl.FormatMessages(map[string]any{
		VarSystem:   v.System,
		VarLanguage: v.Language,
		VarContext:  v.Context,
		VarHistory:  llm.ToChatMessages(v.History),
		VarInput:    v.Input,
	})
	if err != nil {
		return nil, fmt.Errorf("format chat prompt: %w", err)
	}
	return fromChatMessages(msgs), nil
}

// Rewrite turns a follow-up question into a standalone search query.
type Rewrite struct {
	tpl prompts.ChatPromptTemplate
}

func NewRewrite() *Rewrite {
	return &Rewrite{tpl: prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
		prompts.MessagesPlaceholder{VariableName: VarHistory},
		prompts.NewHumanMessagePromptTemplate("{{.input}}", []string{VarInput}),
		prompts.NewHumanMessagePromptTemplate(rewriteInstruction, nil),
	})}
}

func (r *Rewrite) Format(history []domain.Message, input string) ([]domain.Message, error) {
	msgs, err := r.tpl.FormatMessages(map[string]any{
		VarHistory: llm.ToChatMessages(history),
		VarInput:   input,
	})
	if err != nil {
		return nil, fmt.Errorf("format rewrite prompt: %w", err)
	}
	return fromChatMessages(msgs), nil
}

// FormatContext renders retrieved documents as numbered source blocks.
func FormatContext(docs []domain.Document) string {
	if len(docs) == 0 {
		return NoDocuments
	}

	var sb strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&sb, "Source %d (score %.3f):\n", i+1, doc.Score)
		if len(doc.Metadata) > 0 {
			keys := make([]string, 0, len(doc.Metadata))
			for k := range doc.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&sb, "- %s: %s\n", k, doc.Metadata[k])
			}
		}
		sb.WriteString(strings.TrimSpace(doc.PageContent))
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String())
}

func fromChatMessages(msgs []llms.ChatMessage) []domain.Message {
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, llm.FromChatMessage(m))
	}
	return out
}

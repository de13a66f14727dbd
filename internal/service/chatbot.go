package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/set-night/chatbot/internal/config"
	"github.com/set-night/chatbot/internal/domain"
	"github.com/set-night/chatbot/internal/history"
	"github.com/set-night/chatbot/internal/llm"
	"github.com/set-night/chatbot/internal/prompt"
	"github.com/set-night/chatbot/internal/retriever"
)

// Ingester adds documents from external sources to a retriever.
type Ingester interface {
	Ingest(ctx context.Context, sources ...string) (int, error)
}

// TextIndexer adds inline text to a retriever.
type TextIndexer interface {
	AddText(ctx context.Context, name, text string) (int, error)
}

// Chatbot runs conversation turns: it reads a session's history, optionally
// retrieves documents, asks the model and records the exchange.
type Chatbot struct {
	model     *llm.ChatModel
	history   history.Store
	retriever retriever.Retriever
	trimmer   *history.Trimmer

	chat    *prompt.Chat
	rewrite *prompt.Rewrite

	systemPrompt    string
	language        string
	queryRewrite    bool
	pricePrompt     float64
	priceCompletion float64
	catalog         *PriceCatalog

	mu      sync.Mutex
	prompts map[string]string
	// locks holds entries only for sessions with a turn running or waiting.
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

type Option func(*Chatbot)

// WithRetriever enables retrieval. r may also implement Ingester.
func WithRetriever(r retriever.Retriever) Option {
	return func(c *Chatbot) { c.retriever = r }
}

func WithTrimmer(t *history.Trimmer) Option {
	return func(c *Chatbot) { c.trimmer = t }
}

func WithSystemPrompt(text string) Option {
	return func(c *Chatbot) { c.systemPrompt = text }
}

// WithLanguage asks the model to answer in the given language.
func WithLanguage(lang string) Option {
	return func(c *Chatbot) { c.language = lang }
}

func WithQueryRewrite(enabled bool) Option {
	return func(c *Chatbot) { c.queryRewrite = enabled }
}

// WithPrices sets USD prices per 1M prompt and completion tokens.
func WithPrices(prompt, completion float64) Option {
	return func(c *Chatbot) {
		c.pricePrompt = prompt
		c.priceCompletion = completion
	}
}

// WithPriceCatalog looks prices up in catalog when none are set with
// WithPrices. The catalog caches its list, so lookups refresh every
// config.PriceCacheDuration.
func WithPriceCatalog(catalog *PriceCatalog) Option {
	return func(c *Chatbot) { c.catalog = catalog }
}

func NewChatbot(model *llm.ChatModel, store history.Store, opts ...Option) *Chatbot {
	c := &Chatbot{
		model:        model,
		history:      store,
		chat:         prompt.NewChat(),
		rewrite:      prompt.NewRewrite(),
		queryRewrite: true,
		prompts:      make(map[string]string),
		locks:        make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewChatbotFromConfig wires prompt, history trimming and pricing settings,
// including the PRICES_URL catalog. ret may be nil.
func NewChatbotFromConfig(cfg *config.Config, model *llm.ChatModel, store history.Store, ret retriever.Retriever) *Chatbot {
	opts := []Option{
		WithSystemPrompt(cfg.SystemPrompt),
		WithLanguage(cfg.Language),
		WithQueryRewrite(cfg.QueryRewrite),
		WithPrices(cfg.PricePrompt, cfg.PriceCompletion),
		WithTrimmer(history.NewTrimmer(cfg.HistoryMaxTokens, history.NewCounter(model.Name()))),
	}
	if ret != nil {
		opts = append(opts, WithRetriever(ret))
	}
	if cfg.PricesURL != "" {
		opts = append(opts, WithPriceCatalog(NewPriceCatalog(cfg.PricesURL, cfg.LLMAPIKey, nil)))
	}
	return NewChatbot(model, store, opts...)
}

type ReplyOption func(*replyOptions)

type replyOptions struct {
	stream    func(ctx context.Context, chunk []byte) error
	noRewrite bool
}

// WithStreaming passes answer chunks to fn while the model generates.
// The search query rewrite is never streamed.
func WithStreaming(fn func(ctx context.Context, chunk []byte) error) ReplyOption {
	return func(o *replyOptions) { o.stream = fn }
}

// WithoutRewrite searches with the raw input for this turn.
func WithoutRewrite() ReplyOption {
	return func(o *replyOptions) { o.noRewrite = true }
}

// Reply runs one turn for sessionID. Turns of the same session are
// serialized; history is only written after the model answered.
func (c *Chatbot) Reply(ctx context.Context, sessionID, input string, opts ...ReplyOption) (*domain.Reply, error) {
	var o replyOptions
	for _, opt := range opts {
		opt(&o)
	}

	// 1. Validate input
	if strings.TrimSpace(input) == "" {
		return nil, domain.ErrEmptyInput
	}
	human := domain.HumanMessage(input)

	unlock := c.lockSession(sessionID)
	defer unlock()

	// 2. Load history
	past, err := c.history.Messages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	window := c.trimmer.Trim(past)

	reply := &domain.Reply{}

	// 3. Retrieve documents
	var contextBlock string
	if c.retriever != nil {
		query := input
		if len(window) > 0 && c.queryRewrite && !o.noRewrite {
			rewritten, usage, err := c.rewriteQuery(ctx, window, input)
			if err != nil {
				return nil, err
			}
			query = rewritten
			reply.Usage = addUsage(reply.Usage, usage)
		}

		docs, err := c.retriever.GetRelevantDocuments(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("retrieve documents: %w", err)
		}
		reply.Query = query
		reply.Sources = docs
		contextBlock = prompt.FormatContext(docs)
		slog.Debug("documents retrieved", "session", sessionID, "query", query, "count", len(docs))
	}

	// 4. Format prompt
	messages, err := c.chat.Format(prompt.ChatValues{
		System:   c.SystemPrompt(sessionID),
		Language: c.language,
		Context:  contextBlock,
		History:  window,
		Input:    input,
	})
	if err != nil {
		return nil, err
	}

	// 5. Invoke model
	var genOpts []llm.Option
	if o.stream != nil {
		genOpts = append(genOpts, llm.WithStream(o.stream))
	}
	answer, usage, err := c.model.Generate(ctx, messages, genOpts...)
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}
	reply.Message = answer
	reply.Usage = addUsage(reply.Usage, usage)

	// 6. Record the exchange
	if err := c.history.Append(ctx, sessionID, human, answer); err != nil {
		return nil, fmt.Errorf("save history: %w", err)
	}

	// 7. Calculate cost
	promptPrice, completionPrice := c.Prices(ctx)
	reply.Cost = CalculateCost(reply.Usage.PromptTokens, reply.Usage.CompletionTokens, promptPrice, completionPrice)

	slog.Info("reply generated",
		"session", sessionID,
		"model", c.model.Name(),
		"prompt_tokens", reply.Usage.PromptTokens,
		"completion_tokens", reply.Usage.CompletionTokens,
		"sources", len(reply.Sources),
	)

	// 8. Done
	return reply, nil
}

// Prices returns the USD prices per 1M prompt and completion tokens. Fixed
// prices win; otherwise the catalog entry of the model is used, and an
// unavailable catalog prices the turn at zero.
func (c *Chatbot) Prices(ctx context.Context) (float64, float64) {
	if c.pricePrompt != 0 || c.priceCompletion != 0 || c.catalog == nil {
		return c.pricePrompt, c.priceCompletion
	}

	ctx, cancel := context.WithTimeout(ctx, config.PriceLookupTimeout)
	defer cancel()

	m, err := c.catalog.GetModel(ctx, c.model.Name())
	if err != nil {
		slog.Warn("model prices unavailable", "model", c.model.Name(), "error", err)
		return 0, 0
	}
	return m.PromptPrice, m.CompletionPrice
}

func (c *Chatbot) rewriteQuery(ctx context.Context, window []domain.Message, input string) (string, domain.Usage, error) {
	messages, err := c.rewrite.Format(window, input)
	if err != nil {
		return "", domain.Usage{}, err
	}
	out, usage, err := c.model.Generate(ctx, messages,
		llm.WithTemperature(0),
		llm.WithMaxTokens(config.RewriteMaxTokens),
	)
	if err != nil {
		return "", domain.Usage{}, fmt.Errorf("rewrite query: %w", err)
	}
	return strings.Trim(strings.TrimSpace(out.Content), `"`), usage, nil
}

// History returns the stored messages of sessionID, oldest first.
func (c *Chatbot) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	msgs, err := c.history.Messages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return msgs, nil
}

// Reset forgets the session's history and its system prompt override.
func (c *Chatbot) Reset(ctx context.Context, sessionID string) error {
	unlock := c.lockSession(sessionID)
	defer unlock()

	if err := c.history.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}

	c.mu.Lock()
	delete(c.prompts, sessionID)
	c.mu.Unlock()
	return nil
}

// SetSystemPrompt overrides the system prompt for one session. Blank text
// restores the default.
func (c *Chatbot) SetSystemPrompt(sessionID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		delete(c.prompts, sessionID)
		return
	}
	c.prompts[sessionID] = text
}

// SystemPrompt returns the prompt in effect for sessionID.
func (c *Chatbot) SystemPrompt(sessionID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.prompts[sessionID]; ok {
		return p
	}
	return c.systemPrompt
}

// Ingest loads sources into the retriever and returns the number of
// chunks indexed.
func (c *Chatbot) Ingest(ctx context.Context, sources ...string) (int, error) {
	ing, ok := c.retriever.(Ingester)
	if !ok {
		return 0, domain.ErrNoRetriever
	}
	return ing.Ingest(ctx, sources...)
}

// AddText indexes inline text, such as an uploaded file, under name.
func (c *Chatbot) AddText(ctx context.Context, name, text string) (int, error) {
	ix, ok := c.retriever.(TextIndexer)
	if !ok {
		return 0, domain.ErrNoRetriever
	}
	return ix.AddText(ctx, name, text)
}

func (c *Chatbot) HasRetriever() bool {
	return c.retriever != nil
}

func (c *Chatbot) ModelName() string {
	return c.model.Name()
}

// lockSession serializes work on one session and returns the unlock
// function. The entry is dropped when its last holder or waiter leaves.
func (c *Chatbot) lockSession(sessionID string) func() {
	c.mu.Lock()
	l, ok := c.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		c.locks[sessionID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, sessionID)
		}
		c.mu.Unlock()
	}
}

func addUsage(a, b domain.Usage) domain.Usage {
	return domain.Usage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
	}
}

package history

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/set-night/chatbot/internal/config"
)

type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with the BPE encoding of the configured
// model, falling back to cl100k_base for models tiktoken does not know.
type TiktokenCounter struct {
	tke *tiktoken.Tiktoken
}

func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tke, err = tiktoken.GetEncoding(config.DefaultEncoding)
		if err != nil {
			return nil, fmt.Errorf("get encoding %s: %w", config.DefaultEncoding, err)
		}
	}
	return &TiktokenCounter{tke: tke}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.tke.Encode(text, nil, nil))
}

// WordCounter approximates tokens by whitespace-separated words. It needs no
// encoding files and is used when tiktoken cannot be initialised.
type WordCounter struct{}

func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

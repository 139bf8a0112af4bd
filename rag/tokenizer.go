package rag

import (
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// TokenCounter counts tokens for context budgeting.
type TokenCounter interface {
	CountTokens(text string) int
}

// TiktokenCounter counts tokens with the cl100k_base encoding. When the
// encoding cannot be loaded it falls back to a len/4 character estimate.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
	logger   *zap.Logger
}

// NewTiktokenCounter creates a token counter.
func NewTiktokenCounter(logger *zap.Logger) *TiktokenCounter {
	if logger == nil {
		logger = zap.NewNop()
	}
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn("failed to load tiktoken encoding, falling back to estimate",
			zap.Error(err))
		encoding = nil
	}
	return &TiktokenCounter{encoding: encoding, logger: logger}
}

// CountTokens returns the token count of text, estimating len(text)/4 when
// the encoding is unavailable.
func (c *TiktokenCounter) CountTokens(text string) int {
	if c.encoding == nil {
		return len(text) / 4
	}
	return len(c.encoding.Encode(text, nil, nil))
}

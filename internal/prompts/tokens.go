package prompts

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
)

// TokenEstimator approximates how many model tokens a prompt costs.
type TokenEstimator interface {
	Estimate(text string) int
}

// HeuristicEstimator assumes roughly four characters per token.
type HeuristicEstimator struct{}

func (HeuristicEstimator) Estimate(text string) int {
	return (len(text) + 3) / 4
}

// TiktokenEstimator counts tokens with a BPE encoding such as "cl100k_base".
// The encoding is loaded on first use; if it cannot be loaded the heuristic
// is used instead.
type TiktokenEstimator struct {
	Encoding string

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTokenEstimator returns a tiktoken estimator when encoding is set and the
// heuristic otherwise.
func NewTokenEstimator(encoding string) TokenEstimator {
	if encoding == "" {
		return HeuristicEstimator{}
	}
	return &TiktokenEstimator{Encoding: encoding}
}

func (e *TiktokenEstimator) Estimate(text string) int {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding(e.Encoding)
		if err != nil {
			log.Warn().Err(err).Str("encoding", e.Encoding).Msg("Falling back to heuristic token estimate")
			return
		}
		e.enc = enc
	})
	if e.enc == nil {
		return HeuristicEstimator{}.Estimate(text)
	}
	return len(e.enc.Encode(text, nil, nil))
}

package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// GenerationLogger writes the full prompt/response trace of one generator
// call to its own file. A nil *GenerationLogger is valid and discards
// everything, so callers never need to check.
type GenerationLogger struct {
	id        string
	operation string
	path      string
	file      *os.File
	mutex     sync.Mutex
	startTime time.Time
}

// StartGenerationLog opens <dir>/<operation>_<id>_<timestamp>.log. An empty
// dir disables tracing and returns a nil logger.
func StartGenerationLog(dir, operation, id string) (*GenerationLogger, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s_%s.log", operation, id, timestamp))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	g := &GenerationLogger{
		id:        id,
		operation: operation,
		path:      path,
		file:      f,
		startTime: time.Now(),
	}
	g.Log("Trace %s started for %s", id, operation)
	return g, nil
}

// Path returns the trace file location.
func (g *GenerationLogger) Path() string {
	if g == nil {
		return ""
	}
	return g.path
}

// Log appends a timestamped line.
func (g *GenerationLogger) Log(format string, args ...interface{}) {
	if g == nil {
		return
	}
	g.mutex.Lock()
	defer g.mutex.Unlock()

	elapsed := time.Since(g.startTime).Round(time.Millisecond)
	line := fmt.Sprintf("[%s] [+%v] %s\n", time.Now().Format("15:04:05.000"), elapsed, fmt.Sprintf(format, args...))
	if _, err := g.file.WriteString(line); err != nil {
		log.Warn().Err(err).Str("trace", g.path).Msg("Failed to write generation trace")
	}
}

// LogSection writes a banner.
func (g *GenerationLogger) LogSection(title string) {
	if g == nil {
		return
	}
	sep := strings.Repeat("=", 80)
	g.Log(sep)
	g.Log("= %s", title)
	g.Log(sep)
}

// LogRequest records the prompt sent to the model.
func (g *GenerationLogger) LogRequest(model, prompt string) {
	if g == nil {
		return
	}
	g.LogSection("LLM REQUEST")
	g.Log("Model: %s", model)
	g.Log("Prompt length: %d characters", len(prompt))
	g.block("PROMPT", prompt)
}

// LogResponse records the raw model output.
func (g *GenerationLogger) LogResponse(response string) {
	if g == nil {
		return
	}
	g.LogSection("LLM RESPONSE")
	g.Log("Response length: %d characters", len(response))
	g.block("RESPONSE", response)
}

// LogError records a failure.
func (g *GenerationLogger) LogError(stage string, err error) {
	if g == nil || err == nil {
		return
	}
	g.Log("ERROR during %s: %v", stage, err)
}

func (g *GenerationLogger) block(name, body string) {
	g.Log("--- %s START ---", name)
	g.mutex.Lock()
	_, _ = g.file.WriteString(body + "\n")
	g.mutex.Unlock()
	g.Log("--- %s END ---", name)
}

// Close writes the footer and closes the file.
func (g *GenerationLogger) Close() error {
	if g == nil {
		return nil
	}
	g.Log("Trace finished in %v", time.Since(g.startTime).Round(time.Millisecond))
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.file.Close()
}

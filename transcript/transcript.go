// Package transcript appends every exchanged message to a JSON Lines file,
// one {"<sender>": "<content>"} object per line.
package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sender identifies who wrote a transcript line.
type Sender string

const (
	Bot  Sender = "bot"
	User Sender = "user"
)

// timestampLayout keeps file names sortable and free of separators that
// some filesystems reject.
const timestampLayout = "20060102_150405"

var conversationPattern = regexp.MustCompile(`Conversation:\s*([0-9a-fA-F-]+)`)

// ExtractConversationID returns the target's conversation id from a bot
// message footer, or "" when the message carries none.
func ExtractConversationID(text string) string {
	m := conversationPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// Logger writes one session's transcript. Until the conversation id is
// seen the file is named time_<timestamp>.jsonl; the first bot message with
// an id renames it to <id>_<timestamp>.jsonl.
type Logger struct {
	mu             sync.Mutex
	dir            string
	stamp          string
	path           string
	conversationID string
	logger         *zap.Logger
}

// New prepares a transcript in dir. Nothing is written until the first
// Record.
func New(dir string, started time.Time, logger *zap.Logger) (*Logger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}
	stamp := started.Format(timestampLayout)
	return &Logger{
		dir:    dir,
		stamp:  stamp,
		path:   filepath.Join(dir, fmt.Sprintf("time_%s.jsonl", stamp)),
		logger: logger.Named("transcript"),
	}, nil
}

// Path returns the current file path.
func (l *Logger) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// ConversationID returns the id parsed from the bot messages so far.
func (l *Logger) ConversationID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conversationID
}

// Record appends one line. The file is opened for each write so that a
// crash never leaves buffered lines behind.
func (l *Logger) Record(sender Sender, content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if sender == Bot && l.conversationID == "" {
		if id := ExtractConversationID(content); id != "" {
			if err := l.rename(id); err != nil {
				return err
			}
		}
	}

	line, err := encodeLine(sender, content)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open transcript: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return f.Close()
}

func (l *Logger) rename(id string) error {
	next := filepath.Join(l.dir, fmt.Sprintf("%s_%s.jsonl", id, l.stamp))
	if err := os.Rename(l.path, next); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rename transcript: %w", err)
	}
	l.logger.Info("conversation identified", zap.String("conversation_id", id), zap.String("path", next))
	l.conversationID = id
	l.path = next
	return nil
}

// encodeLine renders {"sender": content} followed by a newline, leaving
// non-ASCII and HTML characters unescaped.
func encodeLine(sender Sender, content string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]string{string(sender): content}); err != nil {
		return nil, fmt.Errorf("failed to encode transcript line: %w", err)
	}
	return buf.Bytes(), nil
}

// Package jsonl is a file-backed transport: every published message becomes
// one JSON line. It is used for dry runs and for replaying a crawl into the
// ingestion loop without a broker.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ledgerScope/internal/transport"
)

// envelope is the on-disk form of a message.
type envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Producer appends messages to a JSONL file.
type Producer struct {
	path string
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
}

var _ transport.Producer = (*Producer)(nil)

func NewProducer(path string) (*Producer, error) {
	if path == "" {
		return nil, fmt.Errorf("jsonl path is required")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}

	return &Producer{path: path, file: file, w: bufio.NewWriter(file)}, nil
}

// Publish writes one line and flushes it so consumers tailing the file see it.
// The payload must be valid JSON.
func (p *Producer) Publish(_ context.Context, topic string, payload []byte) error {
	line, err := json.Marshal(envelope{Topic: topic, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.w.Write(line); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := p.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := p.w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.w.Flush(); err != nil {
		p.file.Close()
		return err
	}
	return p.file.Close()
}

// Consumer tails a JSONL file. The committed position is held in memory
// only; a new Consumer starts from the beginning of the file.
type Consumer struct {
	path        string
	pollTimeout time.Duration
	committed   int64
	next        int64
}

var _ transport.Consumer = (*Consumer)(nil)

func NewConsumer(path string, pollTimeout time.Duration) (*Consumer, error) {
	if path == "" {
		return nil, fmt.Errorf("jsonl path is required")
	}
	return &Consumer{path: path, pollTimeout: pollTimeout}, nil
}

// Poll reads up to max complete lines after the committed position. When the
// file has nothing new it waits for the poll timeout and returns an empty batch.
func (c *Consumer) Poll(ctx context.Context, max int) ([]transport.Message, error) {
	if max <= 0 {
		max = 1
	}

	msgs, next, err := c.readFrom(c.committed, max)
	if err != nil {
		return nil, err
	}
	c.next = next

	if len(msgs) == 0 && c.pollTimeout > 0 {
		timer := time.NewTimer(c.pollTimeout)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return msgs, nil
}

func (c *Consumer) readFrom(offset int64, max int) ([]transport.Message, int64, error) {
	file, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, offset, nil
		}
		return nil, offset, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek input: %w", err)
	}

	reader := bufio.NewReader(file)
	msgs := make([]transport.Message, 0, max)
	for len(msgs) < max {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			// A trailing partial line is left for the next poll.
			if err == io.EOF {
				break
			}
			return nil, offset, fmt.Errorf("read input: %w", err)
		}
		offset += int64(len(line))

		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			// Unreadable envelopes surface as an empty-topic message so the
			// decoder can count and drop them.
			msgs = append(msgs, transport.Message{Payload: line})
			continue
		}
		msgs = append(msgs, transport.Message{Topic: env.Topic, Payload: env.Payload})
	}
	return msgs, offset, nil
}

// Commit advances the committed position past the last polled batch.
func (c *Consumer) Commit(context.Context) error {
	c.committed = c.next
	return nil
}

func (c *Consumer) Close() error {
	return nil
}

package ingest

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"ledgerScope/internal/metrics"
	"ledgerScope/internal/model"
	"ledgerScope/internal/store"
	"ledgerScope/internal/transport"
)

// Decoder turns transport messages into store upserts.
type Decoder struct {
	store  *store.Store
	topics transport.Topics
	logger *zap.Logger
}

func NewDecoder(s *store.Store, topics transport.Topics, logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{store: s, topics: topics, logger: logger}
}

// Apply decodes msg and upserts the result. A message that does not parse is
// logged and dropped; the returned error is informational only.
func (d *Decoder) Apply(msg transport.Message) error {
	switch msg.Topic {
	case d.topics.Block:
		block, err := d.DecodeBlock(msg.Payload)
		if err != nil {
			return d.drop(msg, err)
		}
		d.store.UpsertBlock(block)
		metrics.UpsertTotal.WithLabelValues("block").Inc()
	case d.topics.Tx:
		tx, err := d.DecodeTransaction(msg.Payload)
		if err != nil {
			return d.drop(msg, err)
		}
		d.store.UpsertTransaction(tx)
		metrics.UpsertTotal.WithLabelValues("transaction").Inc()
	default:
		return d.drop(msg, fmt.Errorf("unknown topic %q", msg.Topic))
	}
	return nil
}

// DecodeBlock parses a BlockWire payload. Malformed hex fields decode as 0.
func (d *Decoder) DecodeBlock(payload []byte) (model.Block, error) {
	if err := requireFields(payload, blockFields, "transactions", "transactionHashes"); err != nil {
		return model.Block{}, fmt.Errorf("parse block: %w", err)
	}
	var wire model.BlockWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return model.Block{}, fmt.Errorf("parse block: %w", err)
	}
	if wire.Hash == "" {
		return model.Block{}, fmt.Errorf("parse block: empty hash")
	}

	return model.Block{
		Hash:              wire.Hash,
		Number:            d.hexField("block.number", wire.Hash, wire.Number),
		Timestamp:         d.hexField("block.timestamp", wire.Hash, wire.Timestamp),
		TransactionHashes: wire.TransactionHashes,
	}, nil
}

// DecodeTransaction parses a TransactionWire payload. Malformed hex fields
// decode as 0.
func (d *Decoder) DecodeTransaction(payload []byte) (model.Transaction, error) {
	if err := requireFields(payload, txFields); err != nil {
		return model.Transaction{}, fmt.Errorf("parse transaction: %w", err)
	}
	var wire model.TransactionWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return model.Transaction{}, fmt.Errorf("parse transaction: %w", err)
	}
	if wire.Hash == "" {
		return model.Transaction{}, fmt.Errorf("parse transaction: empty hash")
	}

	return model.Transaction{
		Hash:        wire.Hash,
		BlockHash:   wire.BlockHash,
		BlockNumber: d.hexField("tx.blockNumber", wire.Hash, wire.BlockNumber),
		From:        wire.From,
		To:          wire.To,
		Value:       d.hexField("tx.value", wire.Hash, wire.Value),
	}, nil
}

// Keys a wire record must carry. "to" is optional because contract
// creations have no recipient.
var (
	blockFields = []string{"hash", "number", "timestamp"}
	txFields    = []string{"hash", "blockHash", "blockNumber", "value", "from"}
)

// requireFields checks that payload is a JSON object holding every key in
// required and, when oneOf is given, at least one of those keys.
func requireFields(payload []byte, required []string, oneOf ...string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("payload is not an object")
	}
	for _, key := range required {
		if _, ok := fields[key]; !ok {
			return fmt.Errorf("missing field %q", key)
		}
	}
	if len(oneOf) == 0 {
		return nil
	}
	for _, key := range oneOf {
		if _, ok := fields[key]; ok {
			return nil
		}
	}
	return fmt.Errorf("missing one of %v", oneOf)
}

func (d *Decoder) hexField(field, hash, raw string) uint64 {
	v, err := model.ParseHex(raw)
	if err != nil {
		metrics.HexFallbackTotal.WithLabelValues(field).Inc()
		d.logger.Warn("hex field fell back to zero",
			zap.String("field", field),
			zap.String("hash", hash),
			zap.String("raw", raw),
		)
		return 0
	}
	return v
}

func (d *Decoder) drop(msg transport.Message, err error) error {
	metrics.DecodeErrorsTotal.WithLabelValues(msg.Topic).Inc()
	d.logger.Warn("message dropped", zap.String("topic", msg.Topic), zap.Int("bytes", len(msg.Payload)), zap.Error(err))
	return err
}

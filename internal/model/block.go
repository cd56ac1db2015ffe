package model

import "encoding/json"

// BlockWire is a block as carried on the event transport. Numeric fields are
// 0x-prefixed hex strings, as returned by eth_getBlockByNumber.
type BlockWire struct {
	Hash              string   `json:"hash"`
	Number            string   `json:"number"`
	Timestamp         string   `json:"timestamp"`
	TransactionHashes []string `json:"transactions"`
}

// UnmarshalJSON also accepts the hash list under "transactionHashes", the
// key used by some producers.
func (b *BlockWire) UnmarshalJSON(data []byte) error {
	type plain BlockWire
	var aux struct {
		plain
		Alt []string `json:"transactionHashes"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.TransactionHashes == nil {
		aux.TransactionHashes = aux.Alt
	}
	*b = BlockWire(aux.plain)
	return nil
}

// Block is the decoded form of BlockWire held by the store.
type Block struct {
	Hash              string   `json:"hash"`
	Number            uint64   `json:"number"`
	Timestamp         uint64   `json:"timestamp"`
	TransactionHashes []string `json:"transactions"`
}

// Clone returns a copy that shares no memory with b.
func (b Block) Clone() Block {
	if b.TransactionHashes != nil {
		hashes := make([]string, len(b.TransactionHashes))
		copy(hashes, b.TransactionHashes)
		b.TransactionHashes = hashes
	}
	return b
}

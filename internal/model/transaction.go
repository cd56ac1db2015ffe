package model

// TransactionWire is a transaction as carried on the event transport.
type TransactionWire struct {
	Hash        string `json:"hash"`
	BlockHash   string `json:"blockHash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	BlockNumber string `json:"blockNumber"`
}

// Transaction is the decoded form of TransactionWire held by the store.
type Transaction struct {
	Hash        string `json:"hash"`
	BlockHash   string `json:"blockHash"`
	BlockNumber uint64 `json:"blockNumber"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       uint64 `json:"value"`
}

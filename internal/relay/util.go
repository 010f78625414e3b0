package relay

import (
	"encoding/hex"
	"time"
)

func decodeHexTx(hexTx string) ([]byte, error) {
	return hex.DecodeString(hexTx)
}

func nowUnix() int64 {
	return time.Now().Unix()
}

// txBroadcastContent is the JSON payload of a TX_BROADCAST (kind 20012) event's content field.
type txBroadcastContent struct {
	TxID    string `json:"txid"`
	Size    int    `json:"size"`
	Version int32  `json:"version"`
	Inputs  int    `json:"inputs"`
	Outputs int    `json:"outputs"`
	Hex     string `json:"hex"`
}

// txResponseContent is the JSON payload of a TX_RESPONSE (kind 20011) event's content field.
type txResponseContent struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	TxID    string `json:"txid"`
}

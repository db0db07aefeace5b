// Package broker carries deposit notifications over RabbitMQ, Redis streams or Kafka.
package broker

import (
	"encoding/json"
	"fmt"

	"github.com/iho/godeposit/internal/domain"
)

const contentTypeJSON = "application/json"

func encode(n *domain.DepositNotification) ([]byte, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode notification %s: %w", n.TxID, err)
	}
	return body, nil
}

func decode(body []byte) (*domain.DepositNotification, error) {
	var n domain.DepositNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	if n.TxID == "" {
		return nil, fmt.Errorf("decode notification: missing tx_id")
	}
	return &n, nil
}

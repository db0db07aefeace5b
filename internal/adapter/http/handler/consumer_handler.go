package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/usecase"
)

// ConsumerView exposes the downstream consumer's progress.
type ConsumerView interface {
	Status() usecase.ConsumerStatus
	Recent(limit int) []*domain.DepositNotification
}

// ConsumerHandler serves consumer progress for operators.
type ConsumerHandler struct {
	consumer ConsumerView
}

func NewConsumerHandler(consumer ConsumerView) *ConsumerHandler {
	return &ConsumerHandler{consumer: consumer}
}

type consumerStatusResponse struct {
	Processed       int64                         `json:"processed"`
	Buffered        int                           `json:"buffered"`
	LastProcessedAt *time.Time                    `json:"last_processed_at,omitempty"`
	Recent          []*domain.DepositNotification `json:"recent"`
}

// Status returns counters and the most recent notifications (?limit=, default 10).
func (h *ConsumerHandler) Status(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 10)
	if limit < 0 || limit > usecase.RecentNotifications {
		limit = usecase.RecentNotifications
	}

	s := h.consumer.Status()
	resp := consumerStatusResponse{
		Processed: s.Processed,
		Buffered:  s.Buffered,
		Recent:    h.consumer.Recent(limit),
	}
	if !s.LastProcessedAt.IsZero() {
		resp.LastProcessedAt = &s.LastProcessedAt
	}
	if resp.Recent == nil {
		resp.Recent = []*domain.DepositNotification{}
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

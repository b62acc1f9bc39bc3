package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"CryptoSatX/internal/dispatcher"
	"CryptoSatX/internal/domain/models"
	"CryptoSatX/internal/domain/repository"
	xhttp "CryptoSatX/pkg/http"
	pkgkafka "CryptoSatX/pkg/kafka"

	"github.com/google/uuid"
)

// ResponsePublisher writes a keyed message with headers. *kafka.Producer satisfies it.
type ResponsePublisher interface {
	PublishWithHeaders(ctx context.Context, topic string, key []byte, value interface{}, headers map[string]string) error
}

// KafkaDispatchHandler runs dispatch requests read from Kafka and writes
// each envelope to the responses topic keyed by request id.
type KafkaDispatchHandler struct {
	topic          string
	responsesTopic string
	inv            Invoker
	pub            ResponsePublisher
	metrics        repository.Metrics
}

func NewKafkaDispatchHandler(topic, responsesTopic string, inv Invoker, pub ResponsePublisher, metrics repository.Metrics) *KafkaDispatchHandler {
	return &KafkaDispatchHandler{topic: topic, responsesTopic: responsesTopic, inv: inv, pub: pub, metrics: metrics}
}

func (h *KafkaDispatchHandler) Topic() string { return h.topic }

// timeoutResolver is implemented by *dispatcher.Dispatcher.
type timeoutResolver interface {
	TimeoutFor(name string) time.Duration
}

// incoming message schema: {operation, args, request_id}
func (h *KafkaDispatchHandler) Handle(ctx context.Context, b []byte) error {
	start := time.Now()
	var req models.DispatchRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.recordError("consumer_unmarshal")
		return fmt.Errorf("decode dispatch request: %w", err)
	}
	if req.RequestID == "" {
		req.RequestID = pkgkafka.TraceIDFromContext(ctx)
	}
	if req.RequestID != "" {
		ctx = dispatcher.WithRequestID(ctx, req.RequestID)
	}

	var resp *models.DispatchResponse
	if verrs := xhttp.ValidateStruct(ctx, &req); len(verrs) > 0 {
		h.recordError("consumer_invalid")
		resp = invalidRequest(&req, verrs)
		resp.Meta.ExecutionTimeMs = float64(time.Since(start).Microseconds()) / 1000
		if tr, ok := h.inv.(timeoutResolver); ok {
			resp.Meta.TimeoutLimitS = tr.TimeoutFor(req.Operation).Seconds()
		}
	} else {
		resp = h.inv.Dispatch(ctx, req.Operation, dispatcher.Args(req.Args))
	}

	key := []byte(resp.Meta.RequestID)
	headers := map[string]string{pkgkafka.HeaderTraceID: resp.Meta.RequestID}
	if err := h.pub.PublishWithHeaders(ctx, h.responsesTopic, key, resp, headers); err != nil {
		h.recordError("consumer_publish")
		return fmt.Errorf("publish dispatch response: %w", err)
	}
	return nil
}

func invalidRequest(req *models.DispatchRequest, verrs []xhttp.ValidationError) *models.DispatchResponse {
	parts := make([]string, 0, len(verrs))
	for _, v := range verrs {
		parts = append(parts, v.Field+": "+v.Message)
	}
	msg := "invalid dispatch request: " + strings.Join(parts, "; ")
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	return &models.DispatchResponse{
		OK:        false,
		Operation: req.Operation,
		Error:     &msg,
		Meta: models.DispatchMeta{
			ErrorType: dispatcher.KindBadRequest,
			Namespace: models.Namespace(req.Operation),
			RequestID: req.RequestID,
		},
	}
}

func (h *KafkaDispatchHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

var _ pkgkafka.MessageHandler = (*KafkaDispatchHandler)(nil)

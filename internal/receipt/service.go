package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ReceiptService normalizes provider delivery callbacks. Ingest never
// returns an error to the HTTP boundary: a receipt the provider cannot
// redeliver is worth more half-parsed than rejected.
type ReceiptService interface {
	Ingest(ctx context.Context, body []byte) int
	RecentWhatsApp(ctx context.Context, limit int64) ([]*DeliveryReceipt, error)
	RecentSMS(ctx context.Context, limit int64) ([]*DeliveryReceipt, error)
}

type receiptService struct {
	receiptRepository ReceiptRepository
	logger            *zap.SugaredLogger
}

func NewReceiptService(receiptRepository ReceiptRepository, logger *zap.SugaredLogger) ReceiptService {
	return &receiptService{
		receiptRepository: receiptRepository,
		logger:            logger,
	}
}

// Ingest parses a callback body, which may be a single object or an
// array, and stores one receipt row per entry. Returns how many rows
// were stored. Each row's Raw keeps the provider's bytes untouched; a
// malformed element never unwinds the rest of a batch.
func (s *receiptService) Ingest(ctx context.Context, body []byte) int {

	now := time.Now().UTC()

	var batch []json.RawMessage
	if err := json.Unmarshal(body, &batch); err == nil && batch != nil {
		stored := 0
		for _, raw := range batch {
			var payload map[string]any
			if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
				// Non-object element; the rest of the batch still counts.
				continue
			}
			stored += s.ingestOne(ctx, payload, raw, now)
		}
		return stored
	}

	var single map[string]any
	if err := json.Unmarshal(body, &single); err == nil && single != nil {
		return s.ingestOne(ctx, single, body, now)
	}

	// Not JSON at all. Keep the body anyway.
	s.store(ctx, BucketSMS, &DeliveryReceipt{
		MessageID:   Unknown,
		Recipient:   Unknown,
		Channel:     Unknown,
		Status:      Unknown,
		Code:        Unknown,
		Description: Unknown,
		Raw:         string(body),
		ReceivedAt:  now,
	})
	return 1
}

func (s *receiptService) ingestOne(ctx context.Context, payload map[string]any, raw []byte, now time.Time) int {

	if isPing(payload) {
		id := extractString(payload, messageIDRules)
		if id == Unknown {
			id = fmt.Sprintf("ping-%d", now.Unix())
		}
		s.store(ctx, BucketSMS, &DeliveryReceipt{
			MessageID:   id,
			Recipient:   Unknown,
			Channel:     Unknown,
			Status:      StatusPing,
			Code:        Unknown,
			Description: Unknown,
			Raw:         string(raw),
			ReceivedAt:  now,
		})
		return 1
	}

	status, code, description := extractStatus(payload)
	receipt := &DeliveryReceipt{
		MessageID:   extractString(payload, messageIDRules),
		Recipient:   extractRecipient(payload),
		Channel:     extractString(payload, channelRules),
		Status:      status,
		Code:        code,
		Description: description,
		Raw:         string(raw),
		ReceivedAt:  now,
	}

	bucket := BucketSMS
	if strings.EqualFold(receipt.Channel, "whatsapp") {
		bucket = BucketWhatsApp
	}

	s.store(ctx, bucket, receipt)
	s.logger.Infof("receipt: stored bucket=%s message_id=%s status=%s channel=%s",
		bucket, receipt.MessageID, receipt.Status, receipt.Channel)
	return 1
}

func (s *receiptService) store(ctx context.Context, bucket Bucket, receipt *DeliveryReceipt) {
	if err := s.receiptRepository.Store(ctx, bucket, receipt); err != nil {
		s.logger.Errorf("receipt: store failed bucket=%s message_id=%s err=%v", bucket, receipt.MessageID, err)
	}
}

func (s *receiptService) RecentWhatsApp(ctx context.Context, limit int64) ([]*DeliveryReceipt, error) {
	return s.receiptRepository.Recent(ctx, BucketWhatsApp, limit)
}

func (s *receiptService) RecentSMS(ctx context.Context, limit int64) ([]*DeliveryReceipt, error) {
	return s.receiptRepository.Recent(ctx, BucketSMS, limit)
}

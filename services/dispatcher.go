package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bjscha03/Final-Banner-Site-sub004/utils"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type dispatchRequest struct {
	CartID         string `json:"cartId"`
	SequenceNumber int    `json:"sequenceNumber"`
}

// HTTPDispatcher posts reminders to a remote email sender endpoint.
type HTTPDispatcher struct {
	url    string
	secret string
	client *http.Client
}

func NewHTTPDispatcher(url, secret string, timeout time.Duration) *HTTPDispatcher {
	return &HTTPDispatcher{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: timeout},
	}
}

// Dispatch treats any non-2xx response as a failure.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, cartID uuid.UUID, sequence int) error {
	ctx, span := tracer.Start(ctx, "dispatcher.Dispatch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("cart.id", cartID.String()),
		attribute.Int("reminder.sequence", sequence),
	)

	payload, err := json.Marshal(dispatchRequest{CartID: cartID.String(), SequenceNumber: sequence})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		span.RecordError(err)
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.secret != "" {
		req.Header.Set(utils.CronSecretHeader, d.secret)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := d.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("email dispatch request failed: %v", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("email dispatch returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// LocalDispatcher sends reminders in-process.
type LocalDispatcher struct {
	sender *ReminderSender
}

func NewLocalDispatcher(sender *ReminderSender) *LocalDispatcher {
	return &LocalDispatcher{sender: sender}
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, cartID uuid.UUID, sequence int) error {
	_, err := d.sender.Send(ctx, cartID, sequence)
	return err
}

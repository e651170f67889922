package grpcsvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

const (
	// IdempotencyKeyHeader - metadata, по которой Create* запросы дедуплицируются.
	IdempotencyKeyHeader = "idempotency-key"
)

type idempotencyErrorPayload struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// idempotency хранит состояние create-запросов с idempotency-key.
// Без ключа в metadata запрос выполняется как обычно.
type idempotency struct {
	repo   domain.IdempotencyRepository
	logger *log.Entry
}

func withIdempotency[T any](
	ctx context.Context,
	idem *idempotency,
	method string,
	req any,
	handler func() (*T, error),
) (*T, error) {
	if idem == nil || idem.repo == nil {
		return handler()
	}

	idemKey := readIdempotencyKey(ctx)
	if idemKey == "" {
		return handler()
	}

	reqHash, err := buildIdempotencyRequestHash(method, req)
	if err != nil {
		idem.logger.WithError(err).WithField("method", method).Warn("failed to build idempotency request hash")
		return nil, status.Error(codes.Internal, "failed to initialize idempotency request")
	}

	record, err := idem.repo.CreateProcessing(idemKey, reqHash, time.Now().UTC().Add(domain.DefaultIdempotencyTTL))
	if err != nil {
		return replayIdempotency[T](idem, err, record)
	}

	resp, runErr := handler()
	if runErr != nil {
		idem.cacheFailure(idemKey, runErr)
		return resp, runErr
	}

	if cacheErr := idem.cacheSuccess(idemKey, resp); cacheErr != nil {
		idem.logger.WithError(cacheErr).WithField("idempotency_key", idemKey).Warn("failed to store idempotent success response")
	}

	return resp, nil
}

func replayIdempotency[T any](idem *idempotency, createErr error, record domain.IdempotencyRecord) (*T, error) {
	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		return nil, status.Error(codes.AlreadyExists, "idempotency key is already used with different request payload")
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
		if record.Status.Finished() {
			idem.logger.WithFields(log.Fields{
				"idempotency_key": record.Key,
				"status":          record.Status,
			}).Debug("replaying stored create response")
		}
		switch record.Status {
		case domain.IdempotencyStatusDone:
			if len(record.ResponseBody) == 0 {
				return nil, status.Error(codes.Internal, "idempotency cache is empty")
			}
			resp := new(T)
			if err := json.Unmarshal(record.ResponseBody, resp); err != nil {
				idem.logger.WithError(err).WithField("idempotency_key", record.Key).Warn("failed to decode cached idempotency response")
				return nil, status.Error(codes.Internal, "failed to decode cached idempotency response")
			}
			return resp, nil
		case domain.IdempotencyStatusProcessing:
			return nil, status.Error(codes.Aborted, "request with the same idempotency key is already processing")
		case domain.IdempotencyStatusFailed:
			return nil, decodeIdempotencyFailure(record)
		default:
			return nil, status.Error(codes.Internal, "unknown idempotency record status")
		}
	case errors.Is(createErr, domain.ErrIdempotencyKeyRequired):
		return nil, status.Error(codes.InvalidArgument, "idempotency-key metadata is empty")
	default:
		idem.logger.WithError(createErr).Warn("failed to create idempotency record")
		return nil, status.Error(codes.Internal, "failed to initialize idempotency request")
	}
}

func (idem *idempotency) cacheSuccess(key string, resp any) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return idem.repo.MarkDone(key, data, int(codes.OK))
}

func (idem *idempotency) cacheFailure(key string, runErr error) {
	st := status.Convert(runErr)
	code := st.Code()
	if code == codes.OK {
		code = codes.Internal
	}

	payload, err := json.Marshal(idempotencyErrorPayload{
		Code:    int32(code), //nolint:gosec // codes.Code is a bounded enum value.
		Message: st.Message(),
	})
	if err != nil {
		idem.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to encode idempotency failure payload")
		payload = nil
	}

	if err := idem.repo.MarkFailed(key, payload, int(code)); err != nil {
		idem.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotency failure response")
	}
}

func decodeIdempotencyFailure(record domain.IdempotencyRecord) error {
	if len(record.ResponseBody) > 0 {
		var payload idempotencyErrorPayload
		if err := json.Unmarshal(record.ResponseBody, &payload); err == nil {
			if code, ok := grpcCode(int64(payload.Code)); ok && code != codes.OK {
				if payload.Message == "" {
					payload.Message = "previous request with the same idempotency key failed"
				}
				return status.Error(code, payload.Message)
			}
		}
	}

	if code, ok := grpcCode(int64(record.StatusCode)); ok && code != codes.OK {
		return status.Error(code, "previous request with the same idempotency key failed")
	}

	return status.Error(codes.Internal, "previous request with the same idempotency key failed")
}

func grpcCode(value int64) (codes.Code, bool) {
	if value < int64(codes.OK) || value > int64(codes.Unauthenticated) {
		return codes.Internal, false
	}
	return codes.Code(uint32(value)), true
}

func readIdempotencyKey(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		for _, value := range md.Get(IdempotencyKeyHeader) {
			if value = strings.TrimSpace(value); value != "" {
				return value
			}
		}
	}
	return ""
}

// buildIdempotencyRequestHash считает sha256 от имени метода и JSON запроса.
// encoding/json сериализует поля структур в порядке объявления, поэтому хэш стабилен.
func buildIdempotencyRequestHash(method string, req any) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request is nil")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	payload := make([]byte, 0, len(method)+1+len(data))
	payload = append(payload, method...)
	payload = append(payload, ':')
	payload = append(payload, data...)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

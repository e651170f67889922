// Package grpcsvc публикует менеджеры каталога как gRPC-сервисы ecomstore.v1.
// Сообщения кодируются в JSON: клиент выбирает кодек через content-subtype "json".
package grpcsvc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName - content-subtype, под которым зарегистрирован JSON-кодек.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json codec marshal: %w", err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string {
	return CodecName
}

// CallOption выбирает JSON-кодек для клиентского вызова.
func CallOption() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}

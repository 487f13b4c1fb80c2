package wire

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// Name is the gRPC content-subtype of the store service:
// "application/grpc+chatsync-wire".
const Name = "chatsync-wire"

// Message is implemented by every request and response of the service.
type Message interface {
	MarshalWire() ([]byte, error)
	UnmarshalWire(b []byte) error
}

type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("%s: cannot marshal %T", Name, v)
	}
	return m.MarshalWire()
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("%s: cannot unmarshal into %T", Name, v)
	}
	return m.UnmarshalWire(data)
}

func (Codec) Name() string {
	return Name
}

func init() {
	encoding.RegisterCodec(Codec{})
}
